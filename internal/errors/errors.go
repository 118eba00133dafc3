// Package errors defines code-tagged application errors shared by groupmate
// components. Each error carries a short code so callers and log lines can
// classify failures without string matching.
package errors

import (
	"errors"
	"fmt"
)

// Error codes.
const (
	CodeUnknown    = "UNKNOWN"
	CodeConfig     = "CONFIG"
	CodeStore      = "STORE"
	CodeValidation = "VALIDATION"
	CodeAPI        = "API"
	CodeTransport  = "TRANSPORT"
)

// ApplicationError is implemented by every error created in this package.
type ApplicationError interface {
	error
	Code() string
	Unwrap() error
}

// Error is a code-tagged error with an optional cause.
type Error struct {
	code    string
	message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Code returns the error code.
func (e *Error) Code() string { return e.code }

func (e *Error) Unwrap() error { return e.cause }

// Is matches another *Error with the same code, so errors.Is(err, ErrStore)
// style sentinels work across wrapping.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.message == "" && t.code == e.code
}

// Sentinels usable with errors.Is to test only the code.
var (
	ErrConfig     = &Error{code: CodeConfig}
	ErrStore      = &Error{code: CodeStore}
	ErrValidation = &Error{code: CodeValidation}
	ErrAPI        = &Error{code: CodeAPI}
	ErrTransport  = &Error{code: CodeTransport}
)

// Code returns the code of the first ApplicationError in err's chain,
// or CodeUnknown.
func Code(err error) string {
	var appErr ApplicationError
	if errors.As(err, &appErr) {
		return appErr.Code()
	}
	return CodeUnknown
}

func newError(code, message string, cause error) error {
	return &Error{code: code, message: message, cause: cause}
}

func NewConfigError(message string, cause error) error {
	return newError(CodeConfig, message, cause)
}

func NewStoreError(message string, cause error) error {
	return newError(CodeStore, message, cause)
}

func NewValidationError(message string, cause error) error {
	return newError(CodeValidation, message, cause)
}

func NewAPIError(message string, cause error) error {
	return newError(CodeAPI, message, cause)
}

func NewTransportError(message string, cause error) error {
	return newError(CodeTransport, message, cause)
}
