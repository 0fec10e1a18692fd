package store

import (
	"errors"
	"fmt"
)

var (
	// ErrStorageUnavailable reports that the backing store could not be
	// reached, was locked past the busy timeout, or failed the operation.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrNotFound reports a lookup miss. Stores return nil for a missing
	// post; callers that need an error form wrap this.
	ErrNotFound = errors.New("post not found")
	// ErrValidationRejected reports a create input that violates the post
	// constraints.
	ErrValidationRejected = errors.New("validation rejected")
)

// ValidationError describes one rejected field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationRejected
}

// Unavailable wraps a backend failure so that errors.Is reports
// ErrStorageUnavailable while keeping the driver error in the chain.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStorageUnavailable) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
}
