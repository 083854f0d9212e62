// Package errors carries the API error codes and their HTTP mapping.
package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeIdempotency   Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit     Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"
	CodeEstimation    Code = "ESTIMATION_ERROR"
	CodeMissingMat    Code = "MISSING_MATERIAL"
	CodeUnitMismatch  Code = "UNIT_MISMATCH"
	CodeTemplate      Code = "TEMPLATE_ERROR"
)

// Metadata describes how a code surfaces to API callers.
type Metadata struct {
	HTTPStatus    int
	Retryable     bool
	PublicMessage string
	// ExposeMessage lets the error's own message replace PublicMessage.
	ExposeMessage  bool
	DetailsAllowed bool
}

func clientError(status int, public string, details bool) Metadata {
	return Metadata{HTTPStatus: status, PublicMessage: public, ExposeMessage: true, DetailsAllowed: details}
}

var metadataByCode = map[Code]Metadata{
	CodeValidation:    clientError(http.StatusBadRequest, "validation failed", true),
	CodeNotFound:      clientError(http.StatusNotFound, "resource not found", false),
	CodeConflict:      clientError(http.StatusConflict, "conflict detected", false),
	CodeStateConflict: clientError(http.StatusUnprocessableEntity, "state transition disallowed", true),
	CodeIdempotency:   clientError(http.StatusConflict, "idempotency key reused", true),
	CodeRateLimit:     clientError(http.StatusTooManyRequests, "rate limit exceeded", false),
	CodeMissingMat:    clientError(http.StatusUnprocessableEntity, "material cost missing", true),
	CodeUnitMismatch:  clientError(http.StatusUnprocessableEntity, "incompatible units", true),

	CodeEstimation: {HTTPStatus: http.StatusBadGateway, Retryable: true, PublicMessage: "bill of materials estimation failed", ExposeMessage: true, DetailsAllowed: true},
	CodeInternal:   {HTTPStatus: http.StatusInternalServerError, Retryable: true, PublicMessage: "internal server error"},
	CodeDependency: {HTTPStatus: http.StatusServiceUnavailable, Retryable: true, PublicMessage: "dependency unavailable", DetailsAllowed: true},
	CodeTemplate:   {HTTPStatus: http.StatusInternalServerError, PublicMessage: "quotation template failed", DetailsAllowed: true},
}

// MetadataFor falls back to CodeInternal for unknown codes.
func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

// Error is an API-facing failure with an optional cause and details payload.
type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

// Newf formats the message.
func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

func Wrap(code Code, err error, message string) *Error {
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

// PublicMessage is what a caller may see for e.
func (e *Error) PublicMessage() string {
	meta := MetadataFor(e.Code())
	if meta.ExposeMessage && e.Message() != "" {
		return e.message
	}
	return meta.PublicMessage
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// APIError is implemented by domain errors that map themselves to an *Error.
type APIError interface {
	error
	APIError() *Error
}

// As finds the first *Error or APIError in err's chain.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	var domain APIError
	if stdErrors.As(err, &domain) {
		return domain.APIError()
	}
	return nil
}

// Is matches another *Error with the same code, so errors.Is(err,
// New(CodeNotFound, "")) checks the code alone.
func (e *Error) Is(target error) bool {
	var other *Error
	if !stdErrors.As(target, &other) || e == nil || other == nil {
		return false
	}
	return e.code == other.code
}

// HasCode reports whether err maps to code.
func HasCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.code == code
}
