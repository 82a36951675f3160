package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/yukikurage/workforce-api/internal/locker"
)

const maxLockAttempts = 3

var errConcurrentModification = errors.New("record changed while acquiring locks, retry the request")

// lockAround locks owner together with the keys related(ctx) derives from the owner's
// current state. When the related set grows between the read and the lock, the locks
// are released and the read is retried.
func lockAround(ctx context.Context, lk locker.Locker, owner string, related func(context.Context) ([]string, error)) (func(), error) {
	for attempt := 0; attempt < maxLockAttempts; attempt++ {
		keys, err := related(ctx)
		if err != nil {
			return nil, err
		}

		unlock, err := lk.Lock(ctx, append([]string{owner}, keys...)...)
		if err != nil {
			return nil, fmt.Errorf("failed to acquire locks: %w", err)
		}

		current, err := related(ctx)
		if err != nil {
			unlock()
			return nil, err
		}
		if containsAll(keys, current) {
			return unlock, nil
		}
		unlock()
	}

	return nil, errConcurrentModification
}

func containsAll(have, want []string) bool {
	set := make(map[string]struct{}, len(have))
	for _, k := range have {
		set[k] = struct{}{}
	}
	for _, k := range want {
		if _, ok := set[k]; !ok {
			return false
		}
	}
	return true
}

func userKeys(ids ...[]uint64) []string {
	var keys []string
	for _, list := range ids {
		for _, id := range list {
			keys = append(keys, locker.UserKey(id))
		}
	}
	return keys
}

func taskKeys(ids ...[]uint64) []string {
	var keys []string
	for _, list := range ids {
		for _, id := range list {
			keys = append(keys, locker.TaskKey(id))
		}
	}
	return keys
}
