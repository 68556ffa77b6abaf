package service

import (
	"errors"
	"fmt"
)

var (
	// ErrConflict means the requested window overlaps an approved booking.
	ErrConflict = errors.New("time conflict with an approved booking")

	// ErrInvalidTransition means the booking has already been decided.
	ErrInvalidTransition = errors.New("booking already decided")

	// ErrUnauthorized means the caller is not an authenticated administrator.
	ErrUnauthorized = errors.New("administrator privileges required")

	// ErrRateLimited means the requester submitted too many requests.
	ErrRateLimited = errors.New("too many requests")
)

// ValidationError describes a malformed or incomplete submission field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalidField(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// StorageError wraps a failed repository call. The operation it interrupted
// is considered not to have happened and is safe to retry.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}
