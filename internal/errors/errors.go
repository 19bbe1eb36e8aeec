// Package errors provides the domain error taxonomy for the pathledger agent.
//
// Usage:
//
//	// In components - return typed errors
//	if len(opts.EventTypes) == 0 {
//	    return errors.Configuration("no event types requested")
//	}
//
//	// In callers - check with errors.Is
//	if errors.Is(err, errors.ErrNotFound) {
//	    // path vanished between notification and stat, not an error
//	}
package errors

import (
	"errors"
	"fmt"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
)

// Code represents a machine-readable error code.
type Code string

// Error codes used throughout the agent.
const (
	// CodeNotFound: a path vanished between notification and read. Expected
	// for fast-moving files; callers must not log it as an error.
	CodeNotFound Code = "NOT_FOUND"
	// CodePermissionDenied: the watch root or a file is not accessible.
	CodePermissionDenied Code = "PERMISSION_DENIED"
	// CodeConfiguration: invalid startup configuration. Fatal, surfaced
	// before the watch is installed.
	CodeConfiguration Code = "CONFIGURATION"
	// CodeIO: metadata read or storage I/O failure.
	CodeIO Code = "IO"
	// CodeSerialization: wire-format mismatch between writer and stored
	// state. Fatal to the enclosing ledger operation.
	CodeSerialization Code = "SERIALIZATION"
	// CodeTransport: the remote ledger endpoint could not be reached.
	CodeTransport Code = "TRANSPORT"
	// CodeRejected: the remote ledger refused a submission.
	CodeRejected Code = "REJECTED"
)

// Error is a domain error with a code, message, and optional cause.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target matches this error.
// Matches if target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		cause:   err,
	}
}

// Sentinel errors for use with errors.Is().
var (
	ErrNotFound         = &Error{Code: CodeNotFound, Message: "not found"}
	ErrPermissionDenied = &Error{Code: CodePermissionDenied, Message: "permission denied"}
	ErrConfiguration    = &Error{Code: CodeConfiguration, Message: "configuration error"}
	ErrIO               = &Error{Code: CodeIO, Message: "i/o failure"}
	ErrSerialization    = &Error{Code: CodeSerialization, Message: "serialization error"}
	ErrTransport        = &Error{Code: CodeTransport, Message: "transport error"}
	ErrRejected         = &Error{Code: CodeRejected, Message: "submission rejected"}
)

// Constructor functions for creating errors with custom messages.

// NotFound creates a not found error.
func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

// NotFoundf creates a not found error with formatted message.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// PermissionDenied creates a permission denied error.
func PermissionDenied(msg string) *Error {
	return &Error{Code: CodePermissionDenied, Message: msg}
}

// Configuration creates a configuration error.
func Configuration(msg string) *Error {
	return &Error{Code: CodeConfiguration, Message: msg}
}

// Configurationf creates a configuration error with formatted message.
func Configurationf(format string, args ...any) *Error {
	return &Error{Code: CodeConfiguration, Message: fmt.Sprintf(format, args...)}
}

// IO creates an i/o failure error.
func IO(msg string) *Error {
	return &Error{Code: CodeIO, Message: msg}
}

// IOf creates an i/o failure error with formatted message.
func IOf(format string, args ...any) *Error {
	return &Error{Code: CodeIO, Message: fmt.Sprintf(format, args...)}
}

// Serialization creates a serialization error.
func Serialization(msg string) *Error {
	return &Error{Code: CodeSerialization, Message: msg}
}

// Serializationf creates a serialization error with formatted message.
func Serializationf(format string, args ...any) *Error {
	return &Error{Code: CodeSerialization, Message: fmt.Sprintf(format, args...)}
}

// Transport creates a transport error.
func Transport(msg string) *Error {
	return &Error{Code: CodeTransport, Message: msg}
}

// Transportf creates a transport error with formatted message.
func Transportf(format string, args ...any) *Error {
	return &Error{Code: CodeTransport, Message: fmt.Sprintf(format, args...)}
}

// Rejected creates a submission rejected error.
func Rejected(msg string) *Error {
	return &Error{Code: CodeRejected, Message: msg}
}

// Rejectedf creates a submission rejected error with formatted message.
func Rejectedf(format string, args ...any) *Error {
	return &Error{Code: CodeRejected, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an error with a code and message.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}

// Wrapf wraps an error with a code and formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: err}
}
