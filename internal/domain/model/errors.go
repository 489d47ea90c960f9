package model

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrEmptySourceKey    = errors.New("source key cannot be empty")
	ErrEmptyBucket       = errors.New("bucket cannot be empty")
)

// ValidationError reports a source key that does not follow the upload layout.
// It is never retryable: the caller supplied a key the pipeline cannot name outputs for.
type ValidationError struct {
	Key    string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid source key %q: %s", e.Key, e.Reason)
}

// IsValidationError reports whether err or any error it wraps is a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
