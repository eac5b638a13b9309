// Package domainerrors carries the error taxonomy shared by services and the
// HTTP transport. Stores return infrastructure sentinels (see
// pkg/platform/sentinel); services translate them into coded errors here and
// the transport maps codes onto HTTP statuses.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies an error class. Values double as the "error" field of the
// JSON error envelope.
type Code string

const (
	// CodeMalformed marks credential or token input that cannot be parsed.
	CodeMalformed Code = "malformed"
	// CodeUnauthorized marks credentials or tokens that do not resolve.
	CodeUnauthorized Code = "unauthorized"
	// CodeConflict marks a uniqueness violation (duplicate email).
	CodeConflict Code = "conflict"
	// CodeValidation marks missing or invalid request fields.
	CodeValidation Code = "validation_error"
	// CodeUnavailable marks an unreachable backing store.
	CodeUnavailable Code = "store_unavailable"
	CodeBadRequest  Code = "bad_request"
	CodeNotFound    Code = "not_found"
	CodeInternal    Code = "internal_error"
)

// Error is a coded domain error. Err keeps the underlying cause for logging
// and errors.Is checks; it is never rendered to clients.
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

// New creates a coded error without an underlying cause.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, Err: err}
}

// As returns the outermost coded error in err's chain.
func As(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code Code) bool {
	de, ok := As(err)
	return ok && de.Code == code
}

// ToHTTPStatus maps a code onto the HTTP status used by the transport.
// Conflict answers 400 to stay compatible with existing clients that treat
// "Already exist" as a plain client error.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeMalformed, CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeConflict, CodeValidation, CodeBadRequest:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
