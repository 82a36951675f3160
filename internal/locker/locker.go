// Package locker serializes read-modify-write cycles on shared records.
//
// Keys are acquired in sorted order so callers that need several records at once
// never deadlock against each other.
package locker

import (
	"context"
	"fmt"
	"sort"
)

// Locker acquires a set of named locks. The returned function releases all of them.
type Locker interface {
	Lock(ctx context.Context, keys ...string) (unlock func(), err error)
}

// UserKey, TaskKey, ProjectKey and PairKey name the lockable records.
func UserKey(id uint64) string { return fmt.Sprintf("user:%d", id) }
func TaskKey(id uint64) string { return fmt.Sprintf("task:%d", id) }
func ProjectKey(id uint64) string { return fmt.Sprintf("project:%d", id) }

// PairKey names the worklog chain of one (user, task) pair.
func PairKey(userID, taskID uint64) string {
	return fmt.Sprintf("worklog:%d:%d", userID, taskID)
}

// LoginKey guards login name uniqueness among active users.
func LoginKey(login string) string {
	return "login:" + login
}

// StringIDKey guards human id allocation for one prefix.
func StringIDKey(prefix string) string {
	return "stringid:" + prefix
}

func normalize(keys []string) []string {
	out := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

type keyLocker interface {
	acquire(ctx context.Context, key string) (release func(), err error)
}

func lockAll(ctx context.Context, l keyLocker, keys []string) (func(), error) {
	keys = normalize(keys)
	releases := make([]func(), 0, len(keys))

	unlock := func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}

	for _, k := range keys {
		release, err := l.acquire(ctx, k)
		if err != nil {
			unlock()
			return nil, fmt.Errorf("failed to lock %s: %w", k, err)
		}
		releases = append(releases, release)
	}

	return unlock, nil
}
