package app

import "errors"

var (
	// ErrNotFound indicates a well-formed identifier with no stored book.
	ErrNotFound = errors.New("book not found")
	// ErrValidation matches every *ValidationError.
	ErrValidation = errors.New("validation error")
)

// ValidationError names the first schema violation found in a payload.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return "ValidationError: " + e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func newValidationError(field, msg string) *ValidationError {
	return &ValidationError{Field: field, Message: msg}
}
