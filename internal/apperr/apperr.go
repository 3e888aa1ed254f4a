// Package apperr categorises user-facing failures of the CLI and HTTP API.
package apperr

import (
	"errors"
	"fmt"
)

// Error codes.
const (
	CodeInvalidInput  = "invalid_input"
	CodeInputTooLarge = "input_too_large"
	CodeNotFound      = "not_found"
	CodeConfig        = "config"
	CodeInternal      = "internal"
)

// Error is a typed error that can be shown to users without leaking
// internals.
type Error struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is/As.
func (e Error) Unwrap() error {
	return e.Err
}

// New constructs a typed Error.
func New(code, message string, err error) Error {
	return Error{Code: code, Message: message, Err: err}
}

// CodeOf returns the code of the first Error in err's chain, or
// CodeInternal.
func CodeOf(err error) string {
	var e Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// MessageOf returns the user-facing message of err.
func MessageOf(err error) string {
	var e Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}
