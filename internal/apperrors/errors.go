// Package apperrors defines the error taxonomy shared by the matching pipeline,
// the session layer and the HTTP API.
package apperrors

import (
	"errors"
	"fmt"
)

// Code classifies an Error.
type Code string

const (
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeNotFound        Code = "NOT_FOUND"
	// CodeInvalidState is returned when an operation is not allowed in the
	// conversation's current session state (e.g. input suppressed).
	CodeInvalidState Code = "INVALID_STATE"
	// CodeRetrieval marks a failed embedding or index lookup during candidate
	// search. It is fatal to a pipeline run.
	CodeRetrieval Code = "RETRIEVAL_FAILURE"
	// CodeContextReconstruction is returned when feedback is requested for a
	// conversation that has no stored search result.
	CodeContextReconstruction Code = "CONTEXT_RECONSTRUCTION"
	// CodeGeneration marks an LLM call or parse failure. Components recover
	// from it locally; it only shows up in logs.
	CodeGeneration  Code = "GENERATION_FAILURE"
	CodeUnavailable Code = "UNAVAILABLE"
	CodeInternal    Code = "INTERNAL"
)

// Error is the error type returned across package boundaries.
type Error struct {
	Code    Code
	Op      string // e.g. "session.Manager.Send"
	Message string // safe to show to a user
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch {
	case e.Op != "" && e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	case e.Op != "" && e.Message != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	default:
		return string(e.Code)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// E builds an *Error.
func E(code Code, op, msg string, err error) error {
	return &Error{Code: code, Op: op, Message: msg, Err: err}
}

// NotFound is shorthand for a NOT_FOUND error about a named resource.
func NotFound(op, resource string, id any) error {
	return &Error{Code: CodeNotFound, Op: op, Message: fmt.Sprintf("%s not found: %v", resource, id)}
}

// CodeOf returns the code of the outermost *Error in err's chain, or
// CodeInternal when there is none.
func CodeOf(err error) Code {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeInternal
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code == code
	}
	return false
}

// UserMessage returns the safe message of the outermost *Error, or fallback.
func UserMessage(err error, fallback string) string {
	var ae *Error
	if errors.As(err, &ae) && ae.Message != "" {
		return ae.Message
	}
	return fallback
}
