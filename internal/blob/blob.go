// Package blob stores face photos outside the relational store.
package blob

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a key has no object.
var ErrNotFound = errors.New("blob not found")

// Object is a stored payload with its media type.
type Object struct {
	ContentType string
	Data        []byte
}

// Store is a flat key/value object store.
type Store interface {
	Put(ctx context.Context, key string, obj Object) error
	Get(ctx context.Context, key string) (Object, error)
	Delete(ctx context.Context, key string) error
}

// FaceKey is the object key of a user's face photo.
func FaceKey(userID uint64) string {
	return fmt.Sprintf("faces/%d", userID)
}
