package catalog

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks malformed or missing client input.
	ErrValidation = errors.New("validation failed")
	// ErrOperational marks an index failure or an unexpected internal fault.
	ErrOperational = errors.New("operation failed")
	// ErrNotFound signals that no item has the requested ID.
	ErrNotFound = errors.New("item not found")
	// ErrConflict signals that the item changed between read and write.
	ErrConflict = errors.New("item changed concurrently")
)

// ValidationError names the input that was rejected.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// OperationalError wraps a failure of the operation Op.
type OperationalError struct {
	Op  string
	Err error
}

func (e *OperationalError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *OperationalError) Unwrap() []error { return []error{ErrOperational, e.Err} }

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

func operational(op string, err error) error {
	return &OperationalError{Op: op, Err: err}
}
