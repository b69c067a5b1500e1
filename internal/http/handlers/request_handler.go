// Request HTTP handlers.
//
// This file exposes REST endpoints for the request collection:
//   - POST   /requests             (create)
//   - GET    /requests             (list: filter expression, offset/limit, ETag)
//   - GET    /requests/{id}        (fetch)
//   - PUT    /requests/{id}        (full-record upsert)
//   - DELETE /requests/{id}        (delete one)
//   - DELETE /requests             (tenant reset)
//   - POST   /requests-batch       (transactional batch apply)
//   - PATCH  /requests/{id}/snapshots (denormalization feed)
//
// Handlers are transport-thin: they validate input, call application
// services, and translate results into HTTP responses. All engine invariants
// (queue uniqueness, batch atomicity, the closure-date rule) live in the
// service and repository layers, so they hold regardless of which endpoint
// triggered the write.
package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/go-request-storage/internal/domain"
	"github.com/tbourn/go-request-storage/internal/http/middleware"
	"github.com/tbourn/go-request-storage/internal/services"
	"github.com/tbourn/go-request-storage/internal/utils"
)

//
// Service contracts (context-aware)
//

// RequestService defines the queue mutator operations consumed by HTTP
// handlers. Implementations must be safe for concurrent use and honor the
// provided context for cancellation and timeouts.
type RequestService interface {
	// Create validates and persists a new request.
	Create(ctx context.Context, actorID string, r *domain.Request) (*domain.Request, error)
	// Get fetches a request by ID.
	Get(ctx context.Context, id string) (*domain.Request, error)
	// Upsert writes a full representation under id, creating when absent.
	Upsert(ctx context.Context, actorID, id string, r *domain.Request) (bool, error)
	// Delete removes a request by ID.
	Delete(ctx context.Context, id string) error
	// DeleteAll removes every request row.
	DeleteAll(ctx context.Context) error
	// List returns a page of requests matching the filter expression.
	List(ctx context.Context, expr string, offset, limit int) ([]domain.Request, int64, error)
	// ApplyBatch applies an ordered list of full-record updates atomically.
	ApplyBatch(ctx context.Context, actorID string, entries []domain.Request) error
	// RefreshSnapshots rewrites only the denormalized snapshot fields.
	RefreshSnapshots(ctx context.Context, actorID, id string, snaps domain.Snapshots) error
}

// ExpirationService defines the sweep operation consumed by the manual
// trigger endpoint.
type ExpirationService interface {
	// Sweep performs one full expiration pass.
	Sweep(ctx context.Context) (services.SweepResult, error)
}

// ReasonService defines the cancellation-reason operations consumed by HTTP
// handlers.
type ReasonService interface {
	// Create validates and persists a new cancellation reason.
	Create(ctx context.Context, actorID string, r *domain.CancellationReason) (*domain.CancellationReason, error)
	// Get fetches a reason by ID.
	Get(ctx context.Context, id string) (*domain.CancellationReason, error)
	// List returns a page of reasons plus the total count.
	List(ctx context.Context, offset, limit int) ([]domain.CancellationReason, int64, error)
	// Update replaces the reason stored under id.
	Update(ctx context.Context, actorID, id string, r *domain.CancellationReason) error
	// Delete removes a reason unless requests still reference it.
	Delete(ctx context.Context, id string) error
}

// StatsFunc returns aggregate collection metadata for ETag generation.
type StatsFunc func(ctx context.Context) (count int64, maxUpdated *int64, err error)

//
// Handler wiring
//

// Handlers groups the HTTP endpoints for requests, cancellation reasons, and
// the expiration trigger. It depends on abstract service interfaces to keep
// transport concerns separate from engine logic.
type Handlers struct {
	reqSvc    RequestService
	expSvc    ExpirationService
	reasonSvc ReasonService
	stats     StatsFunc
}

// New constructs a Handlers instance bound to the given services. stats may
// be nil, which disables conditional responses on the request listing.
func New(reqSvc RequestService, expSvc ExpirationService, reasonSvc ReasonService, stats StatsFunc) *Handlers {
	return &Handlers{reqSvc: reqSvc, expSvc: expSvc, reasonSvc: reasonSvc, stats: stats}
}

//
// DTOs
//

// RequestCollection wraps a page of requests and the total match count.
type RequestCollection struct {
	Requests     []domain.Request `json:"requests"`
	TotalRecords int64            `json:"totalRecords"`
}

// BatchRequest is the JSON payload for the transactional batch apply.
type BatchRequest struct {
	Requests []domain.Request `json:"requests" binding:"required"`
}

//
// Helpers
//

// clampPaging parses offset/limit query params. Offsets must be
// non-negative; limits are bounded to keep responses tractable.
func clampPaging(c *gin.Context) (offset, limit int, err *services.ValidationError) {
	const (
		defaultLimit = 10
		maxLimit     = 1000
	)
	offset = utils.AtoiDefault(c.Query("offset"), 0)
	if offset < 0 {
		return 0, 0, services.NewValidationError("offset", c.Query("offset"), "must not be negative")
	}
	limit = utils.AtoiDefault(c.Query("limit"), defaultLimit)
	if limit < 1 {
		limit = 1
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return offset, limit, nil
}

//
// Request endpoints
//

// CreateRequest godoc
// @ID          createRequest
// @Summary     Create a request
// @Description Creates a circulation request. A queue slot collision yields a structured 422.
// @Tags        Requests
// @Accept      json
// @Produce     json
// @Param       X-Acting-User-ID  header  string  true  "Acting user (UUID)"
// @Param       body  body  domain.Request  true  "Request record"
// @Success     201  {object}  domain.Request
// @Failure     400  {object}  handlers.ErrorResponse     "Malformed JSON"
// @Failure     422  {object}  handlers.ValidationErrors  "Validation or position conflict"
// @Router      /requests [post]
func (h *Handlers) CreateRequest(c *gin.Context) {
	var req domain.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	created, err := h.reqSvc.Create(c.Request.Context(), middleware.ActorFrom(c), &req)
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusCreated, created)
}

// GetRequest godoc
// @ID          getRequest
// @Summary     Fetch a request
// @Tags        Requests
// @Produce     json
// @Param       id  path  string  true  "Request ID (UUID)"  format(uuid)
// @Success     200  {object}  domain.Request
// @Failure     400  {object}  handlers.ErrorResponse  "Bad ID"
// @Failure     404  {object}  handlers.ErrorResponse  "Not found"
// @Router      /requests/{id} [get]
func (h *Handlers) GetRequest(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "request id must be a UUID")
		return
	}

	r, err := h.reqSvc.Get(c.Request.Context(), id)
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusOK, r)
}

// ListRequests godoc
// @ID          listRequests
// @Summary     List requests (filtered, paginated)
// @Description Returns requests matching an optional filter expression. Supports weak ETag via If-None-Match.
// @Tags        Requests
// @Produce     json
// @Param       query   query  string  false  "Filter expression, e.g. itemId==<uuid> sortBy position asc"
// @Param       offset  query  int     false  "Rows to skip"      minimum(0) default(0)
// @Param       limit   query  int     false  "Rows to return"    minimum(1) maximum(1000) default(10)
// @Success     200  {object}  handlers.RequestCollection
// @Success     304  {string}  string  "Not Modified"
// @Failure     422  {object}  handlers.ValidationErrors  "Bad paging or filter"
// @Router      /requests [get]
func (h *Handlers) ListRequests(c *gin.Context) {
	ctx := c.Request.Context()
	offset, limit, verr := clampPaging(c)
	if verr != nil {
		failFromService(c, verr)
		return
	}

	// ETag pre-check (best effort).
	if h.stats != nil {
		if count, maxTS, err := h.stats(ctx); err == nil {
			var ts int64
			if maxTS != nil {
				ts = *maxTS
			}
			etag := fmt.Sprintf(`W/"requests:%d:%d"`, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, total, err := h.reqSvc.List(ctx, c.Query("query"), offset, limit)
	if err != nil {
		failFromService(c, err)
		return
	}
	if items == nil {
		items = []domain.Request{}
	}
	ok(c, http.StatusOK, RequestCollection{Requests: items, TotalRecords: total})
}

// PutRequest godoc
// @ID          putRequest
// @Summary     Create or replace a request
// @Description Writes a full request representation under the given ID, creating the row when absent.
// @Tags        Requests
// @Accept      json
// @Param       X-Acting-User-ID  header  string  true  "Acting user (UUID)"
// @Param       id    path  string          true  "Request ID (UUID)"  format(uuid)
// @Param       body  body  domain.Request  true  "Full request record"
// @Success     204  {string}  string  "No Content"
// @Failure     400  {object}  handlers.ErrorResponse     "Bad ID or JSON"
// @Failure     422  {object}  handlers.ValidationErrors  "Validation or position conflict"
// @Router      /requests/{id} [put]
func (h *Handlers) PutRequest(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "request id must be a UUID")
		return
	}

	var req domain.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	if _, err := h.reqSvc.Upsert(c.Request.Context(), middleware.ActorFrom(c), id, &req); err != nil {
		failFromService(c, err)
		return
	}
	noContent(c)
}

// DeleteRequest godoc
// @ID          deleteRequest
// @Summary     Delete a request
// @Tags        Requests
// @Param       id  path  string  true  "Request ID (UUID)"  format(uuid)
// @Success     204  {string}  string  "No Content"
// @Failure     404  {object}  handlers.ErrorResponse  "Not found"
// @Router      /requests/{id} [delete]
func (h *Handlers) DeleteRequest(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "request id must be a UUID")
		return
	}
	if err := h.reqSvc.Delete(c.Request.Context(), id); err != nil {
		failFromService(c, err)
		return
	}
	noContent(c)
}

// DeleteAllRequests godoc
// @ID          deleteAllRequests
// @Summary     Delete every request (tenant reset)
// @Tags        Requests
// @Success     204  {string}  string  "No Content"
// @Router      /requests [delete]
func (h *Handlers) DeleteAllRequests(c *gin.Context) {
	if err := h.reqSvc.DeleteAll(c.Request.Context()); err != nil {
		failFromService(c, err)
		return
	}
	noContent(c)
}

// BatchRequests godoc
// @ID          batchRequests
// @Summary     Apply a transactional batch of request updates
// @Description Applies the given full-record writes in order within one transaction. All-or-nothing: any slot collision or unresolvable entry rolls the whole batch back. Success is signaled as 201 without a body.
// @Tags        Requests
// @Accept      json
// @Param       X-Acting-User-ID  header  string  true  "Acting user (UUID)"
// @Param       body  body  handlers.BatchRequest  true  "Ordered batch"
// @Success     201  {string}  string  "Created"
// @Failure     400  {object}  handlers.ErrorResponse     "Malformed JSON"
// @Failure     422  {object}  handlers.ValidationErrors  "Position conflict or invalid entry"
// @Router      /requests-batch [post]
func (h *Handlers) BatchRequests(c *gin.Context) {
	var batch BatchRequest
	if err := c.ShouldBindJSON(&batch); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	if err := h.reqSvc.ApplyBatch(c.Request.Context(), middleware.ActorFrom(c), batch.Requests); err != nil {
		failFromService(c, err)
		return
	}
	// Whole-batch success: created, no body to echo.
	c.Status(http.StatusCreated)
}

// RefreshSnapshots godoc
// @ID          refreshSnapshots
// @Summary     Replace a request's denormalized snapshots
// @Description Entry point for the denormalization feed. Rewrites only the display snapshot fields; status and position are untouched, so no queue or transition rules fire.
// @Tags        Requests
// @Accept      json
// @Param       X-Acting-User-ID  header  string  true  "Acting user (UUID)"
// @Param       id    path  string            true  "Request ID (UUID)"  format(uuid)
// @Param       body  body  domain.Snapshots  true  "Snapshot fields"
// @Success     204  {string}  string  "No Content"
// @Failure     404  {object}  handlers.ErrorResponse  "Not found"
// @Router      /requests/{id}/snapshots [patch]
func (h *Handlers) RefreshSnapshots(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "request id must be a UUID")
		return
	}

	var snaps domain.Snapshots
	if err := c.ShouldBindJSON(&snaps); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	if err := h.reqSvc.RefreshSnapshots(c.Request.Context(), middleware.ActorFrom(c), id, snaps); err != nil {
		failFromService(c, err)
		return
	}
	noContent(c)
}

// ExpireRequests godoc
// @ID          expireRequests
// @Summary     Run one expiration sweep pass
// @Description Closes expired requests and compacts affected queues. Invoked by the in-process scheduler on a timer and available here for external schedulers; safe to re-run.
// @Tags        Expiration
// @Success     204  {string}  string  "No Content"
// @Failure     500  {object}  handlers.ErrorResponse  "Sweep failed"
// @Router      /expire-requests [post]
func (h *Handlers) ExpireRequests(c *gin.Context) {
	if _, err := h.expSvc.Sweep(c.Request.Context()); err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	noContent(c)
}
