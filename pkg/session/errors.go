package session

import "errors"

// ErrValidation is the sentinel wrapped by every ValidationError so callers can
// match with errors.Is.
var ErrValidation = errors.New("validation failed")

// ValidationError is returned when a user turn is rejected before anything is
// appended.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// ErrPromptRequired is the stable rejection for empty or whitespace-only text.
var ErrPromptRequired = &ValidationError{Reason: "Prompt is required"}
