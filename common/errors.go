package common

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrKind classifies an error for propagation and external mapping.
// Engines return typed errors; the HTTP layer maps each kind to a stable
// status code and the idempotency gate decides whether a result may be
// cached based on the kind.
type ErrKind string

const (
	// KindValidation covers malformed bodies, out-of-range indices,
	// out-of-bounds units and missing required headers.
	KindValidation ErrKind = "validation"
	// KindNotFound covers unknown sessions, recipes and overrides.
	KindNotFound ErrKind = "not_found"
	// KindConflict covers idempotency-key reuse with a different payload,
	// duplicate-key races and still-processing requests.
	KindConflict ErrKind = "conflict"
	// KindGone covers mutations against a non-active session.
	KindGone ErrKind = "gone"
	// KindTransient covers database serialization failures and KV or bus
	// unavailability; callers may retry.
	KindTransient ErrKind = "transient"
	// KindFatal covers invariant violations detected inside a transaction.
	KindFatal ErrKind = "fatal"
)

// Error is a kinded error. It wraps an optional cause for errors.Is/As
// chains while carrying a client-safe message.
type Error struct {
	Kind    ErrKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// E builds a kinded error from a format string.
func E(kind ErrKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an existing error.
func Wrap(kind ErrKind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

func Validationf(format string, args ...interface{}) *Error {
	return E(KindValidation, format, args...)
}

func NotFoundf(format string, args ...interface{}) *Error {
	return E(KindNotFound, format, args...)
}

func Conflictf(format string, args ...interface{}) *Error {
	return E(KindConflict, format, args...)
}

func Gonef(format string, args ...interface{}) *Error {
	return E(KindGone, format, args...)
}

func Transientf(format string, args ...interface{}) *Error {
	return E(KindTransient, format, args...)
}

func Fatalf(format string, args ...interface{}) *Error {
	return E(KindFatal, format, args...)
}

// KindOf extracts the kind from an error chain. Unclassified errors are
// reported as fatal so they surface as internal errors instead of being
// silently retried or cached.
func KindOf(err error) ErrKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindFatal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrKind) bool {
	return KindOf(err) == kind
}

// HTTPStatus maps an error kind to its stable external status code.
func HTTPStatus(kind ErrKind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindGone:
		return http.StatusGone
	case KindTransient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
