package service

import (
	"errors"
	"strings"
)

// ValidationError is a user-correctable failure: missing required fields at
// submit time, a non-positive quantity at save time, or insufficient
// authorization for a manager-only action. It is surfaced to the caller
// with the full list of violated fields, never silently swallowed.
type ValidationError struct {
	Message string
	Fields  []string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	return e.Message + ": " + strings.Join(e.Fields, ", ")
}

// IsValidationError reports whether err is (or wraps) a ValidationError,
// letting handlers map it to a 400 instead of a 500.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
