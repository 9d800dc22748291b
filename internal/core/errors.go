package core

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds surfaced by the ledger. Transports map them to stable statuses.
var (
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("invalid delete secret")
	ErrNotFound     = errors.New("expense not found or already deleted")
	ErrInvalidID    = errors.New("invalid expense id")
	ErrStorage      = errors.New("storage failure")

	ErrInvalidAmount = errors.New("amount must be a positive number")
)

// FieldError describes one rejected input field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError collects every violated field of a request.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	return ErrValidation.Error() + ": " + strings.Join(e.Messages(), "; ")
}

// Is lets errors.Is(err, ErrValidation) match any *ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Add records a field violation.
func (e *ValidationError) Add(field, format string, args ...any) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

// Messages renders each violation as "field: message", in the order they
// were recorded.
func (e *ValidationError) Messages() []string {
	out := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		out = append(out, f.Field+": "+f.Message)
	}
	return out
}

// OrNil returns nil when no field was rejected.
func (e *ValidationError) OrNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// NewValidationError builds a single-field validation error.
func NewValidationError(field, format string, args ...any) *ValidationError {
	ve := &ValidationError{}
	ve.Add(field, format, args...)
	return ve
}

// StorageError wraps an infrastructure failure so that errors.Is(err,
// ErrStorage) holds while the cause stays available for logging.
func StorageError(op string, cause error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, cause)
}
