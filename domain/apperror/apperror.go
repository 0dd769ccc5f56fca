// Package apperror defines the caller-visible error taxonomy for the
// exchange and ledger subsystem. Every error returned across the application
// boundary carries one of these codes; transports map codes to their own
// status vocabulary.
package apperror

import (
	"errors"
	"fmt"
)

// Code classifies a caller-visible failure
type Code string

const (
	CodeNotFound            Code = "not_found"
	CodeForbidden           Code = "forbidden"
	CodeInvalidState        Code = "invalid_state"
	CodeConflict            Code = "conflict"
	CodeInsufficientBalance Code = "insufficient_balance"
	CodeInvalidAmount       Code = "invalid_amount"
	CodeInternal            Code = "internal"
)

// Error is a coded application error. All codes except CodeInternal are
// recoverable business outcomes; CodeInternal wraps store failures.
type Error struct {
	Code    Code
	Message string
	Err     error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a coded error
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a coded error wrapping an underlying cause
func Wrap(code Code, err error, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// Internal wraps a store failure
func Internal(err error, message string) *Error {
	return &Error{Code: CodeInternal, Message: message, Err: err}
}

// CodeOf extracts the code from an error chain, defaulting to CodeInternal
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// IsNotFound reports whether the error chain carries CodeNotFound
func IsNotFound(err error) bool { return CodeOf(err) == CodeNotFound }

// IsForbidden reports whether the error chain carries CodeForbidden
func IsForbidden(err error) bool { return CodeOf(err) == CodeForbidden }

// IsInvalidState reports whether the error chain carries CodeInvalidState
func IsInvalidState(err error) bool { return CodeOf(err) == CodeInvalidState }

// IsConflict reports whether the error chain carries CodeConflict
func IsConflict(err error) bool { return CodeOf(err) == CodeConflict }

// IsInsufficientBalance reports whether the error chain carries CodeInsufficientBalance
func IsInsufficientBalance(err error) bool { return CodeOf(err) == CodeInsufficientBalance }
