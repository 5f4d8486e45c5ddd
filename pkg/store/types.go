package store

import (
	"context"
	"errors"
	"fmt"

	"mercator-hq/tripwire/pkg/trigger"
)

// ErrNotFound is returned when the row does not exist.
var ErrNotFound = errors.New("row not found")

// ErrExists is returned by Insert when the row already exists.
var ErrExists = errors.New("row already exists")

// Backend is the raw row storage under the guarded store. Backends apply
// writes verbatim; all policy decisions happen above them.
type Backend interface {
	// Get returns a snapshot of the row, or ErrNotFound.
	Get(ctx context.Context, entity, id string) (trigger.Row, error)

	// Insert stores a new row, or returns ErrExists.
	Insert(ctx context.Context, entity, id string, row trigger.Row) error

	// Update replaces an existing row, or returns ErrNotFound.
	Update(ctx context.Context, entity, id string, row trigger.Row) error

	// Delete removes the row, or returns ErrNotFound.
	Delete(ctx context.Context, entity, id string) error

	// Count returns the number of rows for the entity.
	Count(ctx context.Context, entity string) (int, error)

	// Close releases backend resources.
	Close() error
}

// BackendError wraps a backend failure with the operation that hit it.
type BackendError struct {
	Backend   string
	Operation string
	Cause     error
}

// Error implements the error interface.
func (e *BackendError) Error() string {
	return fmt.Sprintf("store backend error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *BackendError) Unwrap() error {
	return e.Cause
}

// NewBackendError creates a new BackendError.
func NewBackendError(backend, operation string, cause error) *BackendError {
	return &BackendError{Backend: backend, Operation: operation, Cause: cause}
}
