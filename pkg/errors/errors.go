// Package errors provides structured error types for the blockforge scene core.
//
// Every failure the core reports to its collaborators is an [*Error] carrying a
// machine-readable [Code]. Callers branch on the code, not on message text:
//
//	_, err := p.MoveLayer("walls", "walls/inner")
//	if errors.Is(err, errors.ErrCodeCycle) {
//	    // reject the drop target
//	}
//
// # Error Codes
//
//   - NOT_FOUND: a referenced block, instance, layer or connection id is absent
//   - CYCLE: reparenting a layer would create a cycle
//   - NOT_EMPTY: deleting a non-empty layer without cascade
//   - CONSTRAINT_VIOLATION: a snap constraint failed (see [Error.Rule])
//   - LOCKED_CONNECTION: a locked connection blocks a move, delete or break
//   - EMPTY_HISTORY: undo or redo with nothing to do
//   - INVALID_INPUT: malformed ids, dimensions, config values
//   - INTERNAL_ERROR: invariant violations detected by Validate
//
// All codes except INTERNAL_ERROR are recoverable: the command is rejected and
// the project is left unchanged.
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
	ErrCodeInvalidInput Code = "INVALID_INPUT"

	// Lookup errors
	ErrCodeNotFound Code = "NOT_FOUND"

	// Structural errors that block a command
	ErrCodeCycle            Code = "CYCLE"
	ErrCodeNotEmpty         Code = "NOT_EMPTY"
	ErrCodeLockedConnection Code = "LOCKED_CONNECTION"
	ErrCodeEmptyHistory     Code = "EMPTY_HISTORY"

	// Snap constraint failures, reported as warnings on connections
	ErrCodeConstraintViolation Code = "CONSTRAINT_VIOLATION"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Rule    string // Failed snap rule, set for CONSTRAINT_VIOLATION
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

// NotFound reports a missing entity of the given kind ("block", "layer", ...).
func NotFound(kind, id string) *Error {
	return New(ErrCodeNotFound, "%s %q not found", kind, id)
}

// Cycle reports that making parent the parent of id would create a cycle.
func Cycle(id, parent string) *Error {
	return New(ErrCodeCycle, "moving layer %q under %q would create a cycle", id, parent)
}

// NotEmpty reports a layer that still owns children or instances.
func NotEmpty(id string, children, instances int) *Error {
	return New(ErrCodeNotEmpty, "layer %q has %d child layers and %d instances", id, children, instances)
}

// Constraint reports a failed snap rule.
func Constraint(rule, format string, args ...any) *Error {
	e := New(ErrCodeConstraintViolation, format, args...)
	e.Rule = rule
	return e
}

// LockedConnection reports that connection id is locked and force was not given.
func LockedConnection(id string) *Error {
	return New(ErrCodeLockedConnection, "connection %q is locked", id)
}

// EmptyHistory reports an undo or redo with nothing to do.
func EmptyHistory(op string) *Error {
	return New(ErrCodeEmptyHistory, "nothing to %s", op)
}

// Internal reports a broken invariant.
func Internal(format string, args ...any) *Error {
	return New(ErrCodeInternal, format, args...)
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	for err != nil {
		if !errors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.Cause
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

// GetRule returns the failed snap rule of a CONSTRAINT_VIOLATION, or "".
func GetRule(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Rule
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
