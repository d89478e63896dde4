// Package apperr defines the error taxonomy shared by all workflow
// operations. Every operation returns one of these codes; the HTTP adapter
// maps them to status codes and never leaks raw store messages.
package apperr

import (
	"errors"
	"fmt"
)

// Code is a machine-readable error code.
type Code string

const (
	CodeUnknown         Code = "UNKNOWN"
	CodeUnauthenticated Code = "UNAUTHENTICATED"
	CodeForbidden       Code = "FORBIDDEN"
	CodeNotFound        Code = "NOT_FOUND"
	CodeValidation      Code = "VALIDATION"
	CodeConflict        Code = "CONFLICT"
	CodeRemote          Code = "REMOTE"
)

// Error carries a code, an operator-facing message, and for multi-step
// operations the step that failed, so a caller can decide whether to retry
// the whole operation or just that step.
type Error struct {
	Code    Code
	Message string
	Step    string
	Cause   error
}

func (e *Error) Error() string {
	if e.Step != "" {
		return fmt.Sprintf("%s (step %s)", e.Message, e.Step)
	}
	return e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates an error with a code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates an error that wraps an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// Unauthenticated indicates there is no valid session.
func Unauthenticated(message string) *Error {
	return New(CodeUnauthenticated, message)
}

// Forbidden indicates the session is valid but the active role is
// insufficient for the operation.
func Forbidden(role, operation string) *Error {
	return New(CodeForbidden, fmt.Sprintf("role %s may not %s", role, operation))
}

// NotFound indicates a referenced entity is missing.
func NotFound(entity, id string) *Error {
	return New(CodeNotFound, fmt.Sprintf("%s %s not found", entity, id))
}

// Validation indicates malformed input.
func Validation(message string) *Error {
	return New(CodeValidation, message)
}

// Validationf indicates malformed input with a formatted message.
func Validationf(format string, args ...any) *Error {
	return New(CodeValidation, fmt.Sprintf(format, args...))
}

// Conflict indicates the operation contradicts current state.
func Conflict(message string) *Error {
	return New(CodeConflict, message)
}

// Remote indicates an underlying store or network failure at a named step.
func Remote(step string, cause error) *Error {
	return &Error{Code: CodeRemote, Message: "store operation failed", Step: step, Cause: cause}
}

// CodeOf extracts the taxonomy code from any error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// StepOf extracts the failed step, if any, from an error.
func StepOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Step
	}
	return ""
}
