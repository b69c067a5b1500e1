// Package handlers defines HTTP-layer error codes used across all API
// endpoints.
//
// This file centralizes symbolic error code constants that are mapped to
// HTTP responses (via the `fail()` / `failValidation()` helpers in this
// package). These codes give clients a stable, machine-readable error
// taxonomy that supplements human-readable messages.
//
// Conventions:
//   - Generic codes (bad_request, not_found, …) are lowercase snake_case and
//     mirror common HTTP status semantics.
//   - Domain codes (request.position.duplicate, reason.in.use, …) are dotted
//     and name the specific contract rule that was violated; clients branch
//     on them programmatically.
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Domain-specific:
	ErrCodeValidation       = "validation.error"
	ErrCodePositionConflict = "request.position.duplicate"
	ErrCodeActorRequired    = "actor.required"
	ErrCodeBatchEntry       = "batch.entry.invalid"
	ErrCodeReasonInUse      = "reason.in.use"
	ErrCodeDuplicateName    = "reason.duplicate.name"
)
