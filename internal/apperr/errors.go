// Package apperr classifies rolling-service failures into the three
// categories callers act on: validation, not found, and persistence.
package apperr

import (
	"errors"
	"net/http"
)

// Code is the machine-readable failure category.
type Code int

const (
	CodeUnknown Code = iota
	// CodeValidation marks malformed or oversized input. Never retried; no
	// state is mutated.
	CodeValidation
	// CodeNotFound marks a "no data" condition distinct from bad input.
	CodeNotFound
	// CodePersistence marks a storage-layer failure.
	CodePersistence
)

func (c Code) String() string {
	switch c {
	case CodeValidation:
		return "validation"
	case CodeNotFound:
		return "not_found"
	case CodePersistence:
		return "persistence"
	default:
		return "unknown"
	}
}

// Error is a categorised error carrying a user-facing message and an
// optional underlying cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil && e.Message != "" {
		return e.Message + ": " + e.Cause.Error()
	}
	if e.Message == "" && e.Cause != nil {
		return e.Cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same code, so that
// errors.Is(err, ErrValidation) matches every validation error.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code && (t.Message == "" || t.Message == e.Message)
	}
	return false
}

// Category sentinels. Compare with errors.Is.
var (
	ErrValidation  = &Error{Code: CodeValidation}
	ErrNotFound    = &Error{Code: CodeNotFound}
	ErrPersistence = &Error{Code: CodePersistence}
)

// New creates an error of the given category.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates an error of the given category wrapping cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// CodeOf returns the category of the first *Error in err's chain, or
// CodeUnknown.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// MessageOf returns the user-facing message of the first *Error in err's
// chain, falling back to err.Error().
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return err.Error()
}

// HTTPStatus maps err's category to an HTTP status code.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
