package eventlog

import "fmt"

// StorageError represents an error from the event storage backend.
type StorageError struct {
	Backend   string // Backend type ("memory", "sqlite")
	Operation string // Operation that failed ("append", "query", "prune")
	Cause     error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("eventlog storage error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a new StorageError.
func NewStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{Backend: backend, Operation: operation, Cause: cause}
}

// QueryError represents an invalid query.
type QueryError struct {
	Reason string
}

// Error implements the error interface.
func (e *QueryError) Error() string {
	return fmt.Sprintf("eventlog query error: %s", e.Reason)
}

// NewQueryError creates a new QueryError.
func NewQueryError(reason string) *QueryError {
	return &QueryError{Reason: reason}
}
