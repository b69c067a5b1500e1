// Package services – ReasonService
//
// This file implements the cancellation-reason lifecycle: reference CRUD plus
// the referential-integrity guard. A reason referenced by any request —
// including requests that are long closed — must not be deleted; the guard
// reports that case distinctly from "not found" and from schema validation
// failures so handlers can map it to its own HTTP status.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-request-storage/internal/domain"
	"github.com/tbourn/go-request-storage/internal/repo"
)

// ReasonRepo defines the repository contract required by ReasonService.
type ReasonRepo interface {
	// CreateReason inserts a new cancellation reason.
	CreateReason(ctx context.Context, db *gorm.DB, r *domain.CancellationReason) error

	// GetReason fetches a cancellation reason by ID.
	GetReason(ctx context.Context, db *gorm.DB, id string) (*domain.CancellationReason, error)

	// ListReasons returns a page of reasons plus the total count.
	ListReasons(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.CancellationReason, int64, error)

	// SaveReason writes a full reason row, inserting it when absent.
	SaveReason(ctx context.Context, db *gorm.DB, r *domain.CancellationReason) error

	// DeleteReason removes a reason row by ID.
	DeleteReason(ctx context.Context, db *gorm.DB, id string) error

	// CountRequestsByReason counts requests referencing the reason.
	CountRequestsByReason(ctx context.Context, db *gorm.DB, reasonID string) (int64, error)
}

// ReasonService provides cancellation-reason operations with the delete
// guard.
type ReasonService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the reason repository used by this service.
	Repo ReasonRepo
}

// NewReasonService constructs a ReasonService.
func NewReasonService(db *gorm.DB, r ReasonRepo) *ReasonService {
	return &ReasonService{DB: db, Repo: r}
}

// Create validates and persists a new cancellation reason. When r.ID is
// empty a UUID is generated.
func (s *ReasonService) Create(ctx context.Context, actorID string, r *domain.CancellationReason) (*domain.CancellationReason, error) {
	if actorID == "" {
		return nil, ErrMissingActor
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if err := validateReason(r); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	r.Metadata = domain.Metadata{
		CreatedDate:     now,
		CreatedByUserID: actorID,
		UpdatedDate:     now,
		UpdatedByUserID: actorID,
	}
	if err := s.Repo.CreateReason(ctx, s.DB, r); err != nil {
		if errors.Is(err, repo.ErrDuplicateName) {
			return nil, ErrDuplicateReasonName
		}
		return nil, err
	}
	return r, nil
}

// Get fetches a reason by ID, returning ErrReasonNotFound when absent.
func (s *ReasonService) Get(ctx context.Context, id string) (*domain.CancellationReason, error) {
	r, err := s.Repo.GetReason(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReasonNotFound
		}
		return nil, err
	}
	return r, nil
}

// List returns a page of reasons plus the total count.
func (s *ReasonService) List(ctx context.Context, offset, limit int) ([]domain.CancellationReason, int64, error) {
	return s.Repo.ListReasons(ctx, s.DB, offset, limit)
}

// Update replaces the reason stored under id with the given representation,
// preserving creation metadata. Returns ErrReasonNotFound when absent.
func (s *ReasonService) Update(ctx context.Context, actorID, id string, r *domain.CancellationReason) error {
	if actorID == "" {
		return ErrMissingActor
	}
	r.ID = id
	if err := validateReason(r); err != nil {
		return err
	}

	existing, err := s.Repo.GetReason(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrReasonNotFound
		}
		return err
	}

	now := time.Now().UTC()
	r.Metadata = domain.Metadata{
		CreatedDate:     existing.Metadata.CreatedDate,
		CreatedByUserID: existing.Metadata.CreatedByUserID,
		UpdatedDate:     now,
		UpdatedByUserID: actorID,
	}
	if err := s.Repo.SaveReason(ctx, s.DB, r); err != nil {
		if errors.Is(err, repo.ErrDuplicateName) {
			return ErrDuplicateReasonName
		}
		return err
	}
	return nil
}

// Delete removes a reason unless any request still references it. The check
// ignores request status: a reference from a closed or cancelled request
// blocks deletion the same as one from an open request.
func (s *ReasonService) Delete(ctx context.Context, id string) error {
	if _, err := s.Repo.GetReason(ctx, s.DB, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrReasonNotFound
		}
		return err
	}

	n, err := s.Repo.CountRequestsByReason(ctx, s.DB, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrReasonInUse
	}

	if err := s.Repo.DeleteReason(ctx, s.DB, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrReasonNotFound
		}
		return err
	}
	return nil
}

// validateReason checks the field-level constraints for a reason write.
func validateReason(r *domain.CancellationReason) error {
	if err := checkUUID("id", r.ID, true); err != nil {
		return err
	}
	if r.Name == "" {
		return NewValidationError("name", "", "is required")
	}
	return nil
}
