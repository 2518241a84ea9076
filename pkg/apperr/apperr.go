// Package apperr provides the error taxonomy shared by the loader, trainer,
// scoring service and HTTP API.
package apperr

import (
	"errors"
	"fmt"
)

// Code classifies an error for callers that need to branch on it.
type Code string

const (
	// CodeConfiguration covers a missing file or a missing required column.
	CodeConfiguration Code = "CONFIGURATION_ERROR"
	// CodeParse is a row-level numeric parse failure. Rows are dropped, so it is
	// only reported through counters and logs.
	CodeParse Code = "PARSE_ERROR"
	// CodeModelUnavailable means the pipeline artifact is missing or corrupt.
	CodeModelUnavailable Code = "MODEL_UNAVAILABLE"
	// CodeInvalidInput is a caller-correctable scoring request error.
	CodeInvalidInput Code = "INVALID_INPUT"
	// CodeTrainingFailed covers non-convergence and unusable training data.
	CodeTrainingFailed Code = "TRAINING_FAILED"
	// CodeInternal is anything unclassified.
	CodeInternal Code = "INTERNAL_ERROR"
)

// Error is a classified application error.
type Error struct {
	Code    Code
	Message string
	Details []string
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches a code-only sentinel (an *Error with an empty Message) carrying
// the same code, e.g. scoring.ErrModelUnavailable.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Code == e.Code
}

// New creates an error with the given code.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates an error with the given code around a cause.
func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// NewConfigurationError names the missing resource (file path or column).
func NewConfigurationError(resource string, err error) *Error {
	return &Error{
		Code:    CodeConfiguration,
		Message: fmt.Sprintf("required resource %q is not available", resource),
		Err:     err,
	}
}

// NewModelUnavailableError reports that no usable pipeline is loaded.
func NewModelUnavailableError(err error) *Error {
	return &Error{
		Code:    CodeModelUnavailable,
		Message: "churn model unavailable",
		Err:     err,
	}
}

// NewInvalidInputError lists every problem found in a request.
func NewInvalidInputError(details []string) *Error {
	return &Error{
		Code:    CodeInvalidInput,
		Message: "invalid scoring request",
		Details: details,
	}
}

// CodeOf returns the code of the first *Error in err's chain, or CodeInternal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}
