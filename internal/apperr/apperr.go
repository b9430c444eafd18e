// Package apperr defines the error taxonomy shared by the workflow packages.
// Specific errors wrap one of the kind sentinels with %w so callers can
// classify them with errors.Is.
package apperr

import (
	"errors"
	"fmt"
)

// Kind sentinels.
var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrConflict     = errors.New("conflict")
	ErrPersistence  = errors.New("persistence failure")
)

// Code is a machine-readable error code used in API responses.
type Code string

const (
	CodeValidation   Code = "validation_error"
	CodeNotFound     Code = "not_found"
	CodeUnauthorized Code = "forbidden"
	CodeConflict     Code = "conflict"
	CodePersistence  Code = "internal_error"
)

// Validation returns a validation error carrying msg.
func Validation(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

// NotFound returns a not-found error for the named resource.
func NotFound(resource string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, resource)
}

// Persistence wraps a store failure. A nil err yields nil.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}

// CodeOf classifies err into one of the taxonomy codes. Unclassified errors
// are reported as persistence failures.
func CodeOf(err error) Code {
	switch {
	case errors.Is(err, ErrValidation):
		return CodeValidation
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrUnauthorized):
		return CodeUnauthorized
	case errors.Is(err, ErrConflict):
		return CodeConflict
	default:
		return CodePersistence
	}
}
