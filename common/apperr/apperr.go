package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the caller-facing boundary.
// Handlers map each kind to a fixed HTTP status/code pair.
type Kind string

const (
	KindValidation   Kind = "VALIDATION_ERROR"
	KindNotFound     Kind = "NOT_FOUND"
	KindConflict     Kind = "ALREADY_EXISTS"
	KindForbidden    Kind = "FORBIDDEN"
	KindUnauthorized Kind = "UNAUTHORIZED"
	KindTransient    Kind = "TRANSIENT"
)

// Error is the caller-visible error type. Internal failures are wrapped
// as KindTransient so callers know a retry is safe.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Validation reports malformed input on the named field
func Validation(field string) *Error {
	return &Error{Kind: KindValidation, Message: field}
}

// NotFound reports a missing or not-visible resource
func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Conflict reports a uniqueness violation
func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

// Forbidden reports an ownership/authorization failure
func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

// Unauthorized reports a missing caller identity
func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

// Transient wraps a storage or transport failure that is safe to retry
func Transient(message string, cause error) *Error {
	return &Error{Kind: KindTransient, Message: message, cause: cause}
}

// KindOf returns the kind of err, or KindTransient for untyped errors
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindTransient
}

// IsNotFound reports whether err is a NOT_FOUND error
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

// IsConflict reports whether err is an ALREADY_EXISTS error
func IsConflict(err error) bool {
	return KindOf(err) == KindConflict
}

// IsValidation reports whether err is a VALIDATION_ERROR
func IsValidation(err error) bool {
	return KindOf(err) == KindValidation
}
