package services

import "sort"

// uniqueUint64 removes duplicate values from a slice of uint64
func uniqueUint64(values []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(values))
	result := make([]uint64, 0, len(values))

	for _, v := range values {
		if _, exists := seen[v]; exists {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}

	return result
}

func containsID(ids []uint64, id uint64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func withoutID(ids []uint64, id uint64) []uint64 {
	out := make([]uint64, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// diffIDs returns the ids of target missing from current and the ids of current missing from target.
func diffIDs(current, target []uint64) (toAdd, toRemove []uint64) {
	for _, id := range target {
		if !containsID(current, id) {
			toAdd = append(toAdd, id)
		}
	}
	for _, id := range current {
		if !containsID(target, id) {
			toRemove = append(toRemove, id)
		}
	}
	return toAdd, toRemove
}

func sameSet(a, b []uint64) bool {
	a, b = uniqueUint64(a), uniqueUint64(b)
	if len(a) != len(b) {
		return false
	}
	for _, id := range a {
		if !containsID(b, id) {
			return false
		}
	}
	return true
}

func sortedIDs(ids []uint64) []uint64 {
	out := append([]uint64(nil), ids...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
