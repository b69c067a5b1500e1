// Package services defines the business logic for the request storage
// engine: queue mutation, expiration sweeps, and cancellation-reason
// lifecycle. This file centralizes common service-level error values and
// types so that they can be consistently returned by service methods and
// checked by callers.
//
// These errors are intended for internal use by the service layer and
// translation into user-facing messages or HTTP status codes should be
// performed at the handler layer.
package services

import (
	"errors"
	"fmt"
)

// PositionConflictMessage is the stable, client-visible message for a queue
// position collision. Its wording is part of the API contract.
const PositionConflictMessage = "Cannot have more than one request with the same position in the queue"

var (
	// ErrRequestNotFound indicates that the addressed request does not exist.
	ErrRequestNotFound = errors.New("request not found")

	// ErrReasonNotFound indicates that the addressed cancellation reason does
	// not exist.
	ErrReasonNotFound = errors.New("cancellation reason not found")

	// ErrReasonInUse is returned when a cancellation reason cannot be deleted
	// because at least one request, whatever its status, still references it.
	ErrReasonInUse = errors.New("cancellation reason is referenced by at least one request")

	// ErrPositionConflict is returned when a write would give two requests on
	// the same item the same queue position.
	ErrPositionConflict = errors.New(PositionConflictMessage)

	// ErrDuplicateReasonName is returned when a cancellation reason write
	// collides with an existing reason's globally-unique name.
	ErrDuplicateReasonName = errors.New("cancellation reason name already exists")
)

// ValidationError reports a client-fixable problem with a single parameter.
// It carries the parameter name, the rejected value, and a human-readable
// message, which handlers surface as a structured 422 response.
type ValidationError struct {
	Key     string
	Value   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got %q)", e.Key, e.Message, e.Value)
}

// NewValidationError constructs a ValidationError for the given parameter.
func NewValidationError(key, value, message string) *ValidationError {
	return &ValidationError{Key: key, Value: value, Message: message}
}

// ErrMissingActor is the validation error returned when a write arrives
// without an acting-user context. Writes must be attributable; the absence of
// an actor is reported up front instead of failing deep in the write path.
var ErrMissingActor = NewValidationError("actorId", "", "an acting user id is required for writes")

// BatchEntryError reports a batch entry that cannot be applied: it has no
// resolvable identifier, fails field validation, or addresses a row that does
// not exist. The whole batch is rolled back when one is returned.
type BatchEntryError struct {
	Index int
	Err   error
}

// Error implements the error interface.
func (e *BatchEntryError) Error() string {
	return fmt.Sprintf("batch entry %d: %v", e.Index, e.Err)
}

// Unwrap exposes the underlying cause for errors.Is/As checks.
func (e *BatchEntryError) Unwrap() error { return e.Err }
