// Package domainerrors carries the error taxonomy shared by the auth handoff and
// the verification workflow. Services return *Error values; transports translate
// the Code into a user-facing response.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code identifies a class of domain failure.
type Code string

const (
	// CodeRejected means the verification service refused the credentials.
	CodeRejected Code = "auth_rejected"
	// CodeUnreachable means the verification service could not be reached or
	// answered with a server-side failure.
	CodeUnreachable Code = "auth_unreachable"
	// CodeProviderUnavailable means no provider login URL could be obtained.
	CodeProviderUnavailable Code = "provider_unavailable"
	// CodeMissingClaims means a provider callback lacked a required claim.
	CodeMissingClaims Code = "missing_claims"
	// CodeInvalidState means the operation is not valid for the current state.
	CodeInvalidState Code = "invalid_state"
	CodeInvalidInput Code = "invalid_input"
	CodeNotFound     Code = "not_found"
	CodeInternal     Code = "internal"
)

// Error is a coded domain error. Err is optional and kept for unwrapping.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match on code alone, so callers can compare against a
// template such as &Error{Code: CodeRejected}.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code && (t.Message == "" || t.Message == e.Message)
}

// New builds a coded error.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap builds a coded error around an underlying cause.
func Wrap(err error, code Code, message string) error {
	return &Error{Code: code, Message: message, Err: err}
}

// HasCode reports whether any error in err's chain carries code.
func HasCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// CodeOf returns the first domain code in err's chain, or CodeInternal when the
// chain holds no domain error. A nil error has no code.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
