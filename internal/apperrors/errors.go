// Package apperrors classifies failures so handlers can report them with a
// consistent message and HTTP status.
package apperrors

import (
	"errors"
	"net/http"
)

// Kind is the category of a failure
type Kind int

const (
	KindInternal Kind = iota
	KindClientInput
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindEmptyInput
	KindSchemaMismatch
	KindUpstream
	KindUpstreamUnavailable
	KindUpstreamContractViolation
	KindPersistence
)

var kindNames = map[Kind]string{
	KindInternal:                  "internal",
	KindClientInput:               "client_input",
	KindUnauthorized:              "unauthorized",
	KindForbidden:                 "forbidden",
	KindNotFound:                  "not_found",
	KindConflict:                  "conflict",
	KindEmptyInput:                "empty_input",
	KindSchemaMismatch:            "schema_mismatch",
	KindUpstream:                  "upstream",
	KindUpstreamUnavailable:       "upstream_unavailable",
	KindUpstreamContractViolation: "upstream_contract_violation",
	KindPersistence:               "persistence",
}

// String returns the snake_case name used in logs and metrics
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// HTTPStatus maps a kind to the status code reported to clients
func (k Kind) HTTPStatus() int {
	switch k {
	case KindClientInput, KindEmptyInput, KindSchemaMismatch:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUpstream, KindUpstreamContractViolation:
		return http.StatusBadGateway
	case KindUpstreamUnavailable:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified application error
type Error struct {
	Kind    Kind
	Message string      // Client-facing message
	Details interface{} // Optional structured payload, e.g. schema diff
	Status  int         // Overrides Kind.HTTPStatus when non-zero
	Cause   error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error of the same kind
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

// HTTPStatus returns the status to report for this error
func (e *Error) HTTPStatus() int {
	if e.Status != 0 {
		return e.Status
	}
	return e.Kind.HTTPStatus()
}

// New creates an error of the given kind
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an error of the given kind around a cause
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// WithDetails creates an error carrying a structured payload
func WithDetails(kind Kind, message string, details interface{}) *Error {
	return &Error{Kind: kind, Message: message, Details: details}
}

// Convenience constructors for the common kinds

func ClientInput(message string) *Error { return New(KindClientInput, message) }
func NotFound(message string) *Error    { return New(KindNotFound, message) }
func Conflict(message string) *Error    { return New(KindConflict, message) }
func Forbidden(message string) *Error   { return New(KindForbidden, message) }

func Unauthorized(message string) *Error { return New(KindUnauthorized, message) }

func Persistence(message string, cause error) *Error {
	return Wrap(KindPersistence, message, cause)
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// Is reports whether err's chain holds an *Error of the given kind
func Is(err error, kind Kind) bool {
	return errors.Is(err, &Error{Kind: kind})
}
