// Package errors provides structured error types for npmgen.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the generate and install commands
//   - Machine-readable error codes for programmatic handling
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - INVALID_* / MALFORMED_*: Input validation failures
//   - MANIFEST_*: Stored shrinkwrap problems
//   - SUBPROCESS_*: The package manager exited unsuccessfully
//   - INTERNAL_*: Unexpected internal errors
//
// # Usage
//
//	err := errors.New(errors.ErrCodeMalformedIdentifier, "missing '@' in %q", id)
//	if errors.Is(err, errors.ErrCodeMalformedIdentifier) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeSubprocess, exitErr, "npm install in %s", dir)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput        Code = "INVALID_INPUT"
	ErrCodeMalformedIdentifier Code = "MALFORMED_IDENTIFIER"
	ErrCodeInvalidPackage      Code = "INVALID_PACKAGE"
	ErrCodeInvalidManifest     Code = "INVALID_MANIFEST"
	ErrCodeInvalidPath         Code = "INVALID_PATH"
	ErrCodeInvalidConfig       Code = "INVALID_CONFIG"

	// Stored manifest errors
	ErrCodeManifestUnreadable Code = "MANIFEST_UNREADABLE"

	// Build descriptor errors
	ErrCodeInvalidDescriptor Code = "INVALID_DESCRIPTOR"

	// Package manager errors
	ErrCodeSubprocess Code = "SUBPROCESS_FAILURE"

	// Resource not found errors
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// OutputError is implemented by errors that carry diagnostic output captured
// from a child process. The CLI prints that output verbatim to stderr.
type OutputError interface {
	error
	CombinedOutput() []byte
}

// CapturedOutput returns the child process output attached to err, if any.
func CapturedOutput(err error) ([]byte, bool) {
	var oe OutputError
	if errors.As(err, &oe) {
		return oe.CombinedOutput(), true
	}
	return nil, false
}
