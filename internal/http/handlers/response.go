// Package handlers provides HTTP handler implementations for the public API.
//
// This file defines the standard response utilities used across all
// endpoints: the generic error envelope, the structured validation envelope,
// and helpers for common success shapes. The goal is to guarantee uniform
// responses for both success and failure cases, making the API predictable
// and machine-friendly.
//
// Conventions:
//   - Generic failures (400/404/429/5xx) return an ErrorResponse with a
//     stable `code`.
//   - Schema/field validation failures return 422 with a ValidationErrors
//     envelope carrying one parameter triple (key, value, message) per error.
//   - `fail()` centralizes error logging and formatting; 5xx responses are
//     logged with request context for observability.
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-request-storage/internal/http/middleware"
	"github.com/tbourn/go-request-storage/internal/services"
)

// ErrorResponse is the generic error envelope returned by non-validation
// failures.
//
// Fields:
//   - RequestID: correlation ID echoed from X-Request-ID, used to match
//     server logs with client-side errors.
//   - Code: a stable, machine-readable string (see errors.go constants).
//   - Message: a human-readable description, safe for display.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code" example:"not_found"`
	// Human-readable message (safe to show to users)
	Message string `json:"message" example:"resource not found"`
}

// ErrorParameter identifies the parameter a validation error refers to.
type ErrorParameter struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ValidationErrorBody is one entry of a 422 validation envelope.
type ValidationErrorBody struct {
	Message    string           `json:"message"`
	Code       string           `json:"code"`
	Parameters []ErrorParameter `json:"parameters,omitempty"`
}

// ValidationErrors is the 422 envelope: a list of structured errors.
type ValidationErrors struct {
	Errors []ValidationErrorBody `json:"errors"`
}

// fail aborts the request with a generic error envelope and logs server-side
// errors with the request-scoped logger.
func fail(c *gin.Context, status int, code, msg string) {
	reqID := c.Writer.Header().Get("X-Request-ID")
	resp := ErrorResponse{
		RequestID: reqID,
		Code:      code,
		Message:   msg,
	}

	if status >= http.StatusInternalServerError {
		lg := middleware.LoggerFrom(c)
		lg.Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}

	c.AbortWithStatusJSON(status, resp)
}

// Fail is the exported variant of fail(), for use by router-level fallbacks.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// failValidation aborts with a 422 envelope carrying one structured error.
func failValidation(c *gin.Context, code, msg string, params ...ErrorParameter) {
	c.AbortWithStatusJSON(http.StatusUnprocessableEntity, ValidationErrors{
		Errors: []ValidationErrorBody{{Message: msg, Code: code, Parameters: params}},
	})
}

// failFromService maps the service error taxonomy onto HTTP responses:
// validation errors and position conflicts become structured 422s, missing
// rows 404, the reason guard 400, and anything else a logged 500.
func failFromService(c *gin.Context, err error) {
	var be *services.BatchEntryError
	switch {
	case err == nil:
		return
	case err == services.ErrMissingActor:
		failValidation(c, ErrCodeActorRequired,
			"an acting user id is required for writes",
			ErrorParameter{Key: "header", Value: middleware.HeaderActingUser})
	case errors.As(err, &be):
		params := []ErrorParameter{{Key: "index", Value: strconv.Itoa(be.Index)}}
		if ve := asValidation(be.Err); ve != nil {
			params = append(params, ErrorParameter{Key: ve.Key, Value: ve.Value})
		}
		failValidation(c, ErrCodeBatchEntry, be.Error(), params...)
	case isValidation(err):
		ve := asValidation(err)
		failValidation(c, ErrCodeValidation, ve.Message, ErrorParameter{Key: ve.Key, Value: ve.Value})
	case err == services.ErrPositionConflict:
		failValidation(c, ErrCodePositionConflict, services.PositionConflictMessage)
	case err == services.ErrRequestNotFound:
		fail(c, http.StatusNotFound, ErrCodeNotFound, "request not found")
	case err == services.ErrReasonNotFound:
		fail(c, http.StatusNotFound, ErrCodeNotFound, "cancellation reason not found")
	case err == services.ErrReasonInUse:
		fail(c, http.StatusBadRequest, ErrCodeReasonInUse,
			"cannot delete a cancellation reason that is referenced by requests")
	case err == services.ErrDuplicateReasonName:
		failValidation(c, ErrCodeDuplicateName, "a cancellation reason with this name already exists")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}

// isValidation reports whether err is (or wraps) a *services.ValidationError.
func isValidation(err error) bool { return asValidation(err) != nil }

// asValidation unwraps err to a *services.ValidationError, or nil.
func asValidation(err error) *services.ValidationError {
	for err != nil {
		if ve, ok := err.(*services.ValidationError); ok {
			return ve
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil
		}
		err = u.Unwrap()
	}
	return nil
}

// ok writes a success JSON response.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

// noContent writes an HTTP 204 No Content response.
func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
