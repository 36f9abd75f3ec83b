// Package apperr defines the error taxonomy shared by the service packages
// and its mapping onto HTTP status codes.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies an error for propagation at the request boundary.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAuthorization
	KindForbidden
	KindNotFound
	KindConflict
	KindStorage
)

// Error codes
const (
	CodeInvalidInput     = "INVALID_INPUT"
	CodeMissingField     = "MISSING_FIELD"
	CodeInvalidPhone     = "INVALID_PHONE"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeForbidden        = "FORBIDDEN"
	CodeNotFound         = "NOT_FOUND"
	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	CodeConflict         = "CONFLICT"
	CodeInvalidState     = "INVALID_STATE"
	CodeStorage          = "STORAGE_ERROR"
	CodeInternalError    = "INTERNAL_ERROR"
)

// Error is a classified application error. Sentinels are declared as
// package-level *Error values so errors.Is keeps working through wrapping.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an error of the given kind.
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Validation reports bad input shape.
func Validation(code, message string) *Error {
	return New(KindValidation, code, message)
}

// Storage wraps a connection or write failure. The message is safe to log
// but is never sent to clients.
func Storage(message string, err error) *Error {
	return &Error{Kind: KindStorage, Code: CodeStorage, Message: message, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or
// KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// HTTPStatus maps err onto a response status code.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthorization:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// IsClientError reports whether err should be surfaced to the caller as-is.
func IsClientError(err error) bool {
	return HTTPStatus(err) < http.StatusInternalServerError
}
