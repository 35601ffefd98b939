// Package dErrors provides coded domain errors shared by services and
// transport. Services create or wrap errors with a Code; the HTTP layer
// translates codes to status codes without inspecting error strings.
package dErrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain error for transport mapping and branching.
type Code string

const (
	// CodeValidation marks malformed input: negative quantities, missing
	// required references, bad request bodies.
	CodeValidation Code = "validation_error"

	// CodeStructuralViolation marks container parent/kind rule breaches.
	CodeStructuralViolation Code = "structural_violation"

	// CodeUnknownReference marks catalog lookup misses (incident type,
	// denomination, quality).
	CodeUnknownReference Code = "unknown_reference"

	// CodeInvalidState marks a mutation attempted while the owning
	// transaction is not in a state that permits it.
	CodeInvalidState Code = "invalid_transaction_state"

	// CodeInvalidTransition marks an illegal lifecycle move.
	CodeInvalidTransition Code = "invalid_transition"

	// CodeFinalState marks any mutation attempt against a terminal
	// transaction.
	CodeFinalState Code = "final_state_violation"

	// CodeNotFound marks a missing transaction/container/incident/order.
	CodeNotFound Code = "not_found"

	// CodeConflict marks a lost optimistic-concurrency race; the caller
	// decides whether to retry.
	CodeConflict Code = "concurrency_conflict"

	// CodeInternal marks unexpected infrastructure failures.
	CodeInternal Code = "internal_error"
)

// Error carries a code, a human-readable message and an optional cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a coded error with a static message.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error, preserving the
// cause for errors.Is/As chains.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal for
// uncoded errors.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf extracts the message from err without the code prefix.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "internal error"
}

// ToHTTPStatus maps a domain error code to an HTTP status code.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeValidation, CodeStructuralViolation:
		return http.StatusBadRequest
	case CodeUnknownReference:
		return http.StatusUnprocessableEntity
	case CodeNotFound:
		return http.StatusNotFound
	case CodeInvalidState, CodeInvalidTransition, CodeFinalState, CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
