// Package apperr provides typed application errors with HTTP status mapping.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an Error per spec.md §7.
type Kind string

const (
	KindValidation         Kind = "VALIDATION"
	KindNotFound           Kind = "NOT_FOUND"
	KindBusinessRule       Kind = "BUSINESS_RULE"
	KindForbidden          Kind = "FORBIDDEN"
	KindManifestGeneration Kind = "MANIFEST_GENERATION"
	KindFileRead           Kind = "FILE_READ"
	KindInternal           Kind = "INTERNAL"
)

// Error is an application-specific error carrying a machine-readable Kind.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap supports errors.Is / errors.As against the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus maps Kind to the status code from spec.md §7.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindBusinessRule:
		return http.StatusConflict
	case KindForbidden:
		return http.StatusForbidden
	case KindManifestGeneration:
		return http.StatusInternalServerError
	case KindFileRead:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// Code returns a machine-readable code for the REST error envelope.
func (e *Error) Code() string {
	return string(e.Kind)
}

func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

func NotFound(resource, id string) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s %q not found", resource, id)}
}

func BusinessRule(message string) *Error {
	return &Error{Kind: KindBusinessRule, Message: message}
}

func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

func ManifestGeneration(message string, cause error) *Error {
	return &Error{Kind: KindManifestGeneration, Message: message, Err: cause}
}

func FileRead(message string, cause error) *Error {
	return &Error{Kind: KindFileRead, Message: message, Err: cause}
}

func Internal(message string, cause error) *Error {
	return &Error{Kind: KindInternal, Message: message, Err: cause}
}

// As extracts an *Error from err, if any is present in its chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
