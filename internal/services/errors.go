package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/yukikurage/workforce-api/internal/models"
)

// Sentinels matched by the typed errors below through errors.Is.
var (
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("validation failed")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrAlreadyTaken      = errors.New("already taken")
	ErrForbidden         = errors.New("forbidden")
	ErrCollaborator      = errors.New("collaborator failure")
	ErrPartialFailure    = errors.New("partial failure")

	ErrInvalidCredentials     = errors.New("invalid login or password")
	ErrFaceNotRecognized      = errors.New("face not recognized")
	ErrAIServiceNotConfigured = errors.New("AI service is not configured")
	ErrAINoTasksGenerated     = errors.New("AI did not generate any tasks")
)

// EntityKind names a stored collection in error payloads.
type EntityKind string

const (
	KindUser    EntityKind = "user"
	KindProject EntityKind = "project"
	KindTask    EntityKind = "task"
	KindWorkLog EntityKind = "worklog"
)

type NotFoundError struct {
	Kind EntityKind
	ID   uint64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// InvalidTransitionError rejects a worklog type that is illegal from the pair's current state.
// Current is empty when the pair has no history.
type InvalidTransitionError struct {
	Current   models.LogType
	Requested models.LogType
}

func (e *InvalidTransitionError) Error() string {
	current := string(e.Current)
	if current == "" {
		current = "NONE"
	}
	return fmt.Sprintf("cannot log %s after %s", e.Requested, current)
}

func (e *InvalidTransitionError) Is(target error) bool { return target == ErrInvalidTransition }

type AlreadyTakenError struct {
	Login string
}

func (e *AlreadyTakenError) Error() string {
	return fmt.Sprintf("login %q is already taken", e.Login)
}

func (e *AlreadyTakenError) Is(target error) bool { return target == ErrAlreadyTaken }

type ForbiddenError struct {
	Reason string
}

func (e *ForbiddenError) Error() string {
	return "forbidden: " + e.Reason
}

func (e *ForbiddenError) Is(target error) bool { return target == ErrForbidden }

func forbidden(reason string) *ForbiddenError {
	return &ForbiddenError{Reason: reason}
}

// IsManagerError blocks deactivating a user who still manages active projects.
type IsManagerError struct {
	ProjectIDs []uint64
}

func (e *IsManagerError) Error() string {
	ids := make([]string, len(e.ProjectIDs))
	for i, id := range e.ProjectIDs {
		ids[i] = fmt.Sprint(id)
	}
	return "user manages active projects: " + strings.Join(ids, ", ")
}

func (e *IsManagerError) Is(target error) bool { return target == ErrForbidden }

// CollaboratorError wraps a failure of an external service (face recognition, QR, blob storage, AI).
type CollaboratorError struct {
	Name  string
	Cause error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s: %v", e.Name, e.Cause)
}

func (e *CollaboratorError) Unwrap() error { return e.Cause }

func (e *CollaboratorError) Is(target error) bool { return target == ErrCollaborator }

// PartialFailureError reports a multi-step write that stopped after some steps were applied.
// Applied steps are not rolled back; reconciliation or a retry completes them.
type PartialFailureError struct {
	Operation string
	Step      string
	Cause     error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("%s stopped at %s: %v", e.Operation, e.Step, e.Cause)
}

func (e *PartialFailureError) Unwrap() error { return e.Cause }

func (e *PartialFailureError) Is(target error) bool { return target == ErrPartialFailure }
