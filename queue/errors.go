package queue

import (
	"errors"
	"fmt"
)

// ValidationError reports a descriptor whose name cannot be staged.
type ValidationError struct {
	File   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid descriptor %s: %s", e.File, e.Reason)
}

// IsValidationError checks if the error is or wraps a ValidationError
func IsValidationError(err error) bool {
	var vErr *ValidationError
	return err != nil && errors.As(err, &vErr)
}
