package domain

import (
	"errors"
	"fmt"
)

// ErrorCode classifies domain errors for transport-level mapping.
type ErrorCode string

const (
	CodeNotFound           ErrorCode = "NOT_FOUND"
	CodeForbidden          ErrorCode = "FORBIDDEN"
	CodeConflict           ErrorCode = "CONFLICT"
	CodeValidation         ErrorCode = "VALIDATION"
	CodeInvalidState       ErrorCode = "INVALID_STATE"
	CodeInvalidAmount      ErrorCode = "INVALID_AMOUNT"
	CodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	CodeUpstream           ErrorCode = "UPSTREAM_ERROR"
)

// Error is a typed domain error carrying enough context for the caller to
// reconcile its view (most importantly the booking's current status on
// conflicts and invalid transitions).
type Error struct {
	Code          ErrorCode
	Message       string
	CurrentStatus string
	cause         error
}

func (e *Error) Error() string {
	if e.CurrentStatus != "" {
		return fmt.Sprintf("%s (current status: %s)", e.Message, e.CurrentStatus)
	}
	return e.Message
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *Error) Unwrap() error { return e.cause }

// NewNotFoundError reports a missing entity.
func NewNotFoundError(entity, id string) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf("%s %s not found", entity, id)}
}

// NewForbiddenError reports an actor acting on a booking it does not own.
func NewForbiddenError(message string) *Error {
	return &Error{Code: CodeForbidden, Message: message}
}

// NewConflictError reports a concurrently-lost or replayed update.
func NewConflictError(message, currentStatus string) *Error {
	return &Error{Code: CodeConflict, Message: message, CurrentStatus: currentStatus}
}

// NewValidationError reports malformed or missing input.
func NewValidationError(message string) *Error {
	return &Error{Code: CodeValidation, Message: message}
}

// NewInvalidStateError reports a transition attempted from a status outside
// the operation's valid-from set.
func NewInvalidStateError(current, target string) *Error {
	return &Error{
		Code:          CodeInvalidState,
		Message:       fmt.Sprintf("cannot transition from %s to %s", current, target),
		CurrentStatus: current,
	}
}

// NewInvalidAmountError reports a payment amount that fails precondition checks.
func NewInvalidAmountError(message string) *Error {
	return &Error{Code: CodeInvalidAmount, Message: message}
}

// NewServiceUnavailableError reports a required collaborator that is not
// configured or not reachable.
func NewServiceUnavailableError(message string) *Error {
	return &Error{Code: CodeServiceUnavailable, Message: message}
}

// NewUpstreamError wraps a rejection from an external provider. The provider
// message is kept verbatim for operator diagnosis.
func NewUpstreamError(message string, cause error) *Error {
	return &Error{Code: CodeUpstream, Message: message, cause: cause}
}

// CodeOf extracts the domain error code from an error chain, or "" if the
// error is not a domain error.
func CodeOf(err error) ErrorCode {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
