package shared

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies failures surfaced to a view.
type ErrorKind string

const (
	// KindConfiguration marks deployment defects such as a missing API URL.
	KindConfiguration ErrorKind = "configuration"
	// KindNetwork marks transport failures and non-2xx responses.
	KindNetwork ErrorKind = "network"
	// KindValidation marks payloads that do not match the expected shape.
	KindValidation ErrorKind = "validation"
	// KindServer marks backend faults reported by a provider.
	KindServer ErrorKind = "server"
)

// Error is the uniform error value passed from fetchers to views.
type Error struct {
	Kind    ErrorKind
	Message string
	// Status holds the HTTP status code when the failure came from a response.
	Status int
	cause  error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Retryable reports whether retrying without a redeploy can succeed.
func (e *Error) Retryable() bool {
	return e != nil && e.Kind != KindConfiguration
}

// WithCause attaches the underlying error for errors.Is/As callers.
func (e *Error) WithCause(err error) *Error {
	e.cause = err
	return e
}

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Configuration builds a configuration error.
func Configuration(format string, args ...any) *Error {
	return newError(KindConfiguration, format, args...)
}

// Network builds a network error.
func Network(format string, args ...any) *Error {
	return newError(KindNetwork, format, args...)
}

// Validation builds a validation error.
func Validation(format string, args ...any) *Error {
	return newError(KindValidation, format, args...)
}

// Server builds a server error.
func Server(format string, args ...any) *Error {
	return newError(KindServer, format, args...)
}

// AsError returns err as *Error. Errors outside the taxonomy are normalised:
// deadlines and cancellations become network errors, anything else a server
// error. A nil err yields nil.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var target *Error
	if errors.As(err, &target) {
		return target
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return Network("request timed out").WithCause(err)
	case errors.Is(err, context.Canceled):
		return Network("request cancelled").WithCause(err)
	default:
		return Server("%s", err.Error()).WithCause(err)
	}
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var target *Error
	return errors.As(err, &target) && target.Kind == kind
}
