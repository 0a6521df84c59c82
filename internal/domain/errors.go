package domain

import "fmt"

// Error types for consistent error handling across the service.
// The handler layer owns the mapping from error kind to HTTP status;
// services and stores only ever return these.

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrValidation indicates a validation error (bad or missing input).
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrConflict indicates a resource already exists (e.g. duplicate tag name).
type ErrConflict struct {
	Message string
}

func (e *ErrConflict) Error() string {
	return e.Message
}

// ErrRow indicates a statement row that could not be parsed. Index is the
// 1-based data row number; Value is the raw offending field. Any row error
// aborts the whole import.
type ErrRow struct {
	Index int
	Field string
	Value string
}

func (e *ErrRow) Error() string {
	return fmt.Sprintf("invalid %s at row %d: %s", e.Field, e.Index, e.Value)
}
