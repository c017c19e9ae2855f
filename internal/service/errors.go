package service

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is returned when an entity is asked to move to a state its
// current state does not allow.
var ErrInvalidTransition = errors.New("invalid state transition")

// ValidationError names the input field that was missing or malformed.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
