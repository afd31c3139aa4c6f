// Package errors provides the coded error type used at the friendlypipe
// user-facing boundaries (CLI commands and the HTTP server).
//
// Library packages return plain sentinel errors wrapped with fmt.Errorf;
// the CLI and server translate them into an [Error] carrying a
// machine-readable [Code] so that scripts and API clients can branch on it.
//
// # Error Codes
//
//   - INVALID_*: the workflow, an argument or a node path is malformed
//   - *_NOT_FOUND: a file or node does not exist
//   - INTERNAL_ERROR, UNSUPPORTED: everything else
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidPath, "bad node path %q", path)
//	if errors.Is(err, errors.ErrCodeInvalidPath) {
//	    // Handle validation error
//	}
//
//	err = errors.Wrap(errors.ErrCodeInvalidWorkflow, cause, "load %s", file)
package errors

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
)

// Code represents a machine-readable error code.
type Code string

const (
	ErrCodeInvalidWorkflow Code = "INVALID_WORKFLOW"
	ErrCodeInvalidInput    Code = "INVALID_INPUT"
	ErrCodeInvalidPath     Code = "INVALID_PATH"

	ErrCodeNodeNotFound Code = "NODE_NOT_FOUND"
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"

	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
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

// FromLoad classifies an error returned while reading a workflow file:
// missing files become FILE_NOT_FOUND, everything else INVALID_WORKFLOW.
// Errors that already carry a code are returned unchanged.
func FromLoad(err error, path string) error {
	if err == nil {
		return nil
	}
	if GetCode(err) != "" {
		return err
	}
	if errors.Is(err, fs.ErrNotExist) {
		return Wrap(ErrCodeFileNotFound, err, "workflow %s not found", path)
	}
	return Wrap(ErrCodeInvalidWorkflow, err, "cannot load %s", path)
}

// HTTPStatus maps an error to the status code the server responds with.
func HTTPStatus(err error) int {
	switch GetCode(err) {
	case ErrCodeInvalidWorkflow, ErrCodeInvalidInput, ErrCodeInvalidPath:
		return http.StatusBadRequest
	case ErrCodeNodeNotFound, ErrCodeFileNotFound:
		return http.StatusNotFound
	case ErrCodeUnsupported:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}
