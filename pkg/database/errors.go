package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Error types recorded in db_query_errors_total.
const (
	ErrorTypeTimeout  = "timeout"
	ErrorTypeCanceled = "canceled"
	ErrorTypeNoRows   = "no_rows"
	ErrorTypeQuery    = "query_error"
)

// StorageError represents an error from the storage backend.
type StorageError struct {
	Backend   string // Storage backend type ("sqlite", "redis")
	Operation string // Operation that failed ("open", "ping", "exec", etc.)
	Cause     error  // Underlying error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a new StorageError.
func NewStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{
		Backend:   backend,
		Operation: operation,
		Cause:     cause,
	}
}

// ErrorType maps a query error to its metric label. It returns "" for nil.
func ErrorType(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorTypeTimeout
	case errors.Is(err, context.Canceled):
		return ErrorTypeCanceled
	case errors.Is(err, sql.ErrNoRows):
		return ErrorTypeNoRows
	default:
		return ErrorTypeQuery
	}
}
