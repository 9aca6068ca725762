package utils

import (
	"errors"
	"fmt"
)

// ValidationError is a local invariant violation detected before any remote
// call is made. The caller can retry after fixing its state.
type ValidationError struct {
	Op     string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

func Validationf(op, format string, args ...interface{}) error {
	return &ValidationError{Op: op, Reason: fmt.Sprintf(format, args...)}
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
