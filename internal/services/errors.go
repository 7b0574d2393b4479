package services

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies service failures
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindForbidden
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	default:
		return "internal"
	}
}

// HTTPStatus maps the kind to the status code the API answers with
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Error is the error type returned by ReturnService. Message is safe to show
// to clients for every kind except KindInternal.
type Error struct {
	Kind    Kind
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

// KindOf reports the kind of err; errors not produced by this package are internal
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

func validationError(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func notFoundError(message string, err error) *Error {
	return &Error{Kind: KindNotFound, Message: message, Err: err}
}

func forbiddenError(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

func internalError(message string, err error) *Error {
	return &Error{Kind: KindInternal, Message: message, Err: err}
}
