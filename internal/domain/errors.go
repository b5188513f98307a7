package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds shared by the backends and the admin flows. Backends wrap
// them, callers match with errors.Is.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrValidation    = errors.New("validation error")
	// ErrUnauthorized covers rejected credentials, a missing or expired
	// session and row-level permission denials.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrBusy rejects a mutation while an earlier one from the same page
	// view is unresolved.
	ErrBusy = errors.New("another change is still in progress")
)

// FieldError is one rejected input field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError lists rejected fields. It matches ErrValidation.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	switch len(e.Errors) {
	case 0:
		return "validation failed"
	case 1:
		return fmt.Sprintf("validation: %s: %s", e.Errors[0].Field, e.Errors[0].Message)
	}
	fields := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		fields[i] = fe.Field
	}
	return fmt.Sprintf("validation: %d errors (%s)", len(e.Errors), strings.Join(fields, ", "))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError rejects a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Errors: []FieldError{{Field: field, Message: message}}}
}

// IsAuthError reports whether err means the caller has to sign in again.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}
