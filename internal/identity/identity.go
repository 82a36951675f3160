// Package identity binds users to an external face recognition service.
package identity

import (
	"context"
	"errors"
)

// ErrDisabled is returned by Recognize when no recognition service is configured.
var ErrDisabled = errors.New("face recognition is not configured")

// Match is one candidate returned by a recognition search.
type Match struct {
	SubjectID   string
	Probability float64
}

// Provider manages recognition subjects. A subject is the service-side person a
// user's face photos are attached to.
type Provider interface {
	Register(ctx context.Context, name string) (subjectID string, err error)
	AttachFace(ctx context.Context, subjectID string, photo []byte) error
	RemoveFace(ctx context.Context, subjectID string) error
	Delete(ctx context.Context, subjectID string) error
	Recognize(ctx context.Context, photo []byte) ([]Match, error)
}

// Noop is used when no service is configured: subjects are never created and
// face login is unavailable.
type Noop struct{}

func (Noop) Register(context.Context, string) (string, error) { return "", nil }
func (Noop) AttachFace(context.Context, string, []byte) error { return nil }
func (Noop) RemoveFace(context.Context, string) error { return nil }
func (Noop) Delete(context.Context, string) error { return nil }
func (Noop) Recognize(context.Context, []byte) ([]Match, error) { return nil, ErrDisabled }
