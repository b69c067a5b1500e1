// Cancellation-reason HTTP handlers.
//
// This file exposes reference CRUD for cancellation reasons:
//   - POST   /cancellation-reasons        (create)
//   - GET    /cancellation-reasons        (list)
//   - GET    /cancellation-reasons/{id}   (fetch)
//   - PUT    /cancellation-reasons/{id}   (update)
//   - DELETE /cancellation-reasons/{id}   (delete, guarded)
//
// Deletion is refused with a 400 — deliberately distinct from both 404 and
// the 422 used for schema validation — while any request still references
// the reason, whatever that request's status.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/go-request-storage/internal/domain"
	"github.com/tbourn/go-request-storage/internal/http/middleware"
)

// ReasonCollection wraps a page of cancellation reasons and the total count.
type ReasonCollection struct {
	CancellationReasons []domain.CancellationReason `json:"cancellationReasons"`
	TotalRecords        int64                       `json:"totalRecords"`
}

// CreateReason godoc
// @ID          createCancellationReason
// @Summary     Create a cancellation reason
// @Tags        CancellationReasons
// @Accept      json
// @Produce     json
// @Param       X-Acting-User-ID  header  string  true  "Acting user (UUID)"
// @Param       body  body  domain.CancellationReason  true  "Reason record"
// @Success     201  {object}  domain.CancellationReason
// @Failure     422  {object}  handlers.ValidationErrors  "Validation or duplicate name"
// @Router      /cancellation-reasons [post]
func (h *Handlers) CreateReason(c *gin.Context) {
	var reason domain.CancellationReason
	if err := c.ShouldBindJSON(&reason); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	created, err := h.reasonSvc.Create(c.Request.Context(), middleware.ActorFrom(c), &reason)
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusCreated, created)
}

// GetReason godoc
// @ID          getCancellationReason
// @Summary     Fetch a cancellation reason
// @Tags        CancellationReasons
// @Produce     json
// @Param       id  path  string  true  "Reason ID (UUID)"  format(uuid)
// @Success     200  {object}  domain.CancellationReason
// @Failure     404  {object}  handlers.ErrorResponse  "Not found"
// @Router      /cancellation-reasons/{id} [get]
func (h *Handlers) GetReason(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "reason id must be a UUID")
		return
	}

	r, err := h.reasonSvc.Get(c.Request.Context(), id)
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusOK, r)
}

// ListReasons godoc
// @ID          listCancellationReasons
// @Summary     List cancellation reasons
// @Tags        CancellationReasons
// @Produce     json
// @Param       offset  query  int  false  "Rows to skip"    minimum(0) default(0)
// @Param       limit   query  int  false  "Rows to return"  minimum(1) maximum(1000) default(10)
// @Success     200  {object}  handlers.ReasonCollection
// @Failure     422  {object}  handlers.ValidationErrors  "Bad paging"
// @Router      /cancellation-reasons [get]
func (h *Handlers) ListReasons(c *gin.Context) {
	offset, limit, verr := clampPaging(c)
	if verr != nil {
		failFromService(c, verr)
		return
	}

	items, total, err := h.reasonSvc.List(c.Request.Context(), offset, limit)
	if err != nil {
		failFromService(c, err)
		return
	}
	if items == nil {
		items = []domain.CancellationReason{}
	}
	ok(c, http.StatusOK, ReasonCollection{CancellationReasons: items, TotalRecords: total})
}

// PutReason godoc
// @ID          putCancellationReason
// @Summary     Update a cancellation reason
// @Tags        CancellationReasons
// @Accept      json
// @Param       X-Acting-User-ID  header  string  true  "Acting user (UUID)"
// @Param       id    path  string                     true  "Reason ID (UUID)"  format(uuid)
// @Param       body  body  domain.CancellationReason  true  "Full reason record"
// @Success     204  {string}  string  "No Content"
// @Failure     404  {object}  handlers.ErrorResponse     "Not found"
// @Failure     422  {object}  handlers.ValidationErrors  "Validation or duplicate name"
// @Router      /cancellation-reasons/{id} [put]
func (h *Handlers) PutReason(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "reason id must be a UUID")
		return
	}

	var reason domain.CancellationReason
	if err := c.ShouldBindJSON(&reason); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	if err := h.reasonSvc.Update(c.Request.Context(), middleware.ActorFrom(c), id, &reason); err != nil {
		failFromService(c, err)
		return
	}
	noContent(c)
}

// DeleteReason godoc
// @ID          deleteCancellationReason
// @Summary     Delete a cancellation reason
// @Description Refused with 400 while any request, open or closed, references the reason.
// @Tags        CancellationReasons
// @Param       id  path  string  true  "Reason ID (UUID)"  format(uuid)
// @Success     204  {string}  string  "No Content"
// @Failure     400  {object}  handlers.ErrorResponse  "Reason still referenced"
// @Failure     404  {object}  handlers.ErrorResponse  "Not found"
// @Router      /cancellation-reasons/{id} [delete]
func (h *Handlers) DeleteReason(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "reason id must be a UUID")
		return
	}

	if err := h.reasonSvc.Delete(c.Request.Context(), id); err != nil {
		failFromService(c, err)
		return
	}
	noContent(c)
}
