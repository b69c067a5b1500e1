// Package services – RequestService
//
// This file implements the RequestService, the queue mutator for circulation
// requests. It validates field-level constraints (identifier shape, closed
// enumerations, position sign), stamps row metadata from the acting-user
// context, applies the closure-date transition rule on every status write,
// and coordinates repository operations for single-record and batch
// mutations.
//
// Batch semantics: ApplyBatch applies an ordered list of full-record writes
// inside one transaction, in the order given by the caller. The operation is
// all-or-nothing. Queue slots behave as if every entry were inserted fresh:
// an entry assigning a non-null position fails when the slot is occupied at
// that point in the batch, even by the entry's own current row. A caller
// that wants to reorder queued requests must therefore issue two batches:
// one clearing the positions of every row that will be touched, then one
// assigning the final positions. The service does not reorder or stage the
// caller's writes to dodge transient collisions.
package services

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-request-storage/internal/domain"
	"github.com/tbourn/go-request-storage/internal/query"
	"github.com/tbourn/go-request-storage/internal/repo"
)

// RequestRepo defines the repository contract required by RequestService.
// Implementations are responsible for persistence of request rows and for
// translating queue slot collisions into repo.ErrPositionConflict.
type RequestRepo interface {
	// CreateRequest inserts a new request row.
	CreateRequest(ctx context.Context, db *gorm.DB, r *domain.Request) error

	// GetRequest fetches a request by ID.
	GetRequest(ctx context.Context, db *gorm.DB, id string) (*domain.Request, error)

	// SaveRequest writes a full request row, inserting it when absent.
	SaveRequest(ctx context.Context, db *gorm.DB, r *domain.Request) error

	// PositionOccupied reports whether any row holds the (item, position) slot.
	PositionOccupied(ctx context.Context, db *gorm.DB, itemID string, position int) (bool, error)

	// DeleteRequest removes a request row by ID.
	DeleteRequest(ctx context.Context, db *gorm.DB, id string) error

	// DeleteAllRequests removes every request row.
	DeleteAllRequests(ctx context.Context, db *gorm.DB) error

	// ListRequests returns a page of requests matching scope plus the total.
	ListRequests(ctx context.Context, db *gorm.DB, scope func(*gorm.DB) *gorm.DB, offset, limit int) ([]domain.Request, int64, error)

	// UpdateSnapshots rewrites only the denormalized snapshot columns.
	UpdateSnapshots(ctx context.Context, db *gorm.DB, id string, snaps domain.Snapshots, now time.Time, actorID string) error
}

// RequestService provides request-level operations: create, read, update,
// delete, list, and the transactional batch apply. It is safe for concurrent
// use; every method takes its state from arguments and the shared *gorm.DB.
type RequestService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the request repository used by this service.
	Repo RequestRepo
}

// NewRequestService constructs a RequestService.
func NewRequestService(db *gorm.DB, r RequestRepo) *RequestService {
	return &RequestService{DB: db, Repo: r}
}

// Create validates and persists a new request. When r.ID is empty a UUID is
// generated. The closure-date field is system-owned and always starts empty;
// whatever the client sent in it is discarded.
func (s *RequestService) Create(ctx context.Context, actorID string, r *domain.Request) (*domain.Request, error) {
	if actorID == "" {
		return nil, ErrMissingActor
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if err := validateRequest(r); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	r.AwaitingPickupRequestClosedDate = nil
	r.Metadata = domain.Metadata{
		CreatedDate:     now,
		CreatedByUserID: actorID,
		UpdatedDate:     now,
		UpdatedByUserID: actorID,
	}
	if r.RequestDate.IsZero() {
		r.RequestDate = now
	}

	if err := s.Repo.CreateRequest(ctx, s.DB, r); err != nil {
		return nil, mapRepoErr(err)
	}
	return r, nil
}

// Get fetches a request by ID, returning ErrRequestNotFound when absent.
func (s *RequestService) Get(ctx context.Context, id string) (*domain.Request, error) {
	r, err := s.Repo.GetRequest(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	return r, nil
}

// Upsert writes a full request representation under the given ID. When the
// row exists it is replaced: creation metadata is preserved, the closure-date
// rule is evaluated against the stored status, and the system-owned closure
// field keeps its prior value unless the transition stamps it. When the row
// does not exist the call degrades to a create with the caller's ID.
//
// The returned bool reports whether a new row was created.
func (s *RequestService) Upsert(ctx context.Context, actorID, id string, r *domain.Request) (bool, error) {
	if actorID == "" {
		return false, ErrMissingActor
	}
	r.ID = id
	if err := validateRequest(r); err != nil {
		return false, err
	}

	existing, err := s.Repo.GetRequest(ctx, s.DB, id)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	now := time.Now().UTC()
	if existing == nil {
		r.AwaitingPickupRequestClosedDate = nil
		r.Metadata = domain.Metadata{
			CreatedDate:     now,
			CreatedByUserID: actorID,
			UpdatedDate:     now,
			UpdatedByUserID: actorID,
		}
		if r.RequestDate.IsZero() {
			r.RequestDate = now
		}
		if err := s.Repo.CreateRequest(ctx, s.DB, r); err != nil {
			return false, mapRepoErr(err)
		}
		return true, nil
	}

	mergeForUpdate(r, existing, now, actorID)
	if err := s.Repo.SaveRequest(ctx, s.DB, r); err != nil {
		return false, mapRepoErr(err)
	}
	return false, nil
}

// Delete removes a request by ID, returning ErrRequestNotFound when absent.
func (s *RequestService) Delete(ctx context.Context, id string) error {
	if err := s.Repo.DeleteRequest(ctx, s.DB, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRequestNotFound
		}
		return err
	}
	return nil
}

// DeleteAll removes every request row.
func (s *RequestService) DeleteAll(ctx context.Context) error {
	return s.Repo.DeleteAllRequests(ctx, s.DB)
}

// List returns a page of requests matching the given filter expression (see
// package query) plus the total match count.
func (s *RequestService) List(ctx context.Context, expr string, offset, limit int) ([]domain.Request, int64, error) {
	f, err := query.Parse(expr)
	if err != nil {
		var syn *query.ErrSyntax
		if errors.As(err, &syn) {
			return nil, 0, NewValidationError(syn.Field, syn.Value, syn.Msg)
		}
		return nil, 0, err
	}
	return s.Repo.ListRequests(ctx, s.DB, f.Scope(), offset, limit)
}

// ApplyBatch applies an ordered list of full-record updates in a single
// transaction. Every entry must carry the ID of an existing row; an entry
// with no ID, a validation failure, or an unknown ID fails the whole batch
// with a BatchEntryError identifying the offending index, and a queue slot
// collision (transient or final) fails it with ErrPositionConflict. On any
// failure none of the batch's changes persist.
//
// Position writes use insert-style slot semantics: an entry assigning a
// non-null position conflicts whenever that (item, position) slot is
// occupied as of the entry's turn in the batch — even when the occupant is
// the row being rewritten. Rewriting a queued request therefore always takes
// two batches: one clearing the touched positions, one assigning them.
func (s *RequestService) ApplyBatch(ctx context.Context, actorID string, entries []domain.Request) error {
	if actorID == "" {
		return ErrMissingActor
	}
	for i := range entries {
		if entries[i].ID == "" {
			return &BatchEntryError{Index: i, Err: NewValidationError("id", "", "batch entry has no resolvable identifier")}
		}
		if err := validateRequest(&entries[i]); err != nil {
			return &BatchEntryError{Index: i, Err: err}
		}
	}

	now := time.Now().UTC()
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range entries {
			existing, err := s.Repo.GetRequest(ctx, tx, entries[i].ID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return &BatchEntryError{Index: i, Err: ErrRequestNotFound}
				}
				return err
			}
			if entries[i].Position != nil {
				occupied, err := s.Repo.PositionOccupied(ctx, tx, entries[i].ItemID, *entries[i].Position)
				if err != nil {
					return err
				}
				if occupied {
					return ErrPositionConflict
				}
			}
			mergeForUpdate(&entries[i], existing, now, actorID)
			if err := s.Repo.SaveRequest(ctx, tx, &entries[i]); err != nil {
				return mapRepoErr(err)
			}
		}
		return nil
	})
}

// RefreshSnapshots rewrites only the denormalized display snapshots of a
// request. The denormalization feed goes through here: the write bypasses
// field validation and the status transition rule, since it never touches
// status or position.
func (s *RequestService) RefreshSnapshots(ctx context.Context, actorID, id string, snaps domain.Snapshots) error {
	if actorID == "" {
		return ErrMissingActor
	}
	err := s.Repo.UpdateSnapshots(ctx, s.DB, id, snaps, time.Now().UTC(), actorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRequestNotFound
		}
		return err
	}
	return nil
}

// mergeForUpdate prepares an incoming full representation to replace the
// stored row: creation metadata survives, the update stamp is refreshed, and
// the closure-date rule is evaluated from the stored status. The closure
// field is system-owned, so the incoming value is ignored either way.
func mergeForUpdate(incoming, existing *domain.Request, now time.Time, actorID string) {
	incoming.Metadata = domain.Metadata{
		CreatedDate:     existing.Metadata.CreatedDate,
		CreatedByUserID: existing.Metadata.CreatedByUserID,
		UpdatedDate:     now,
		UpdatedByUserID: actorID,
	}
	if domain.StampsClosure(existing.Status, incoming.Status) {
		t := now
		incoming.AwaitingPickupRequestClosedDate = &t
	} else {
		incoming.AwaitingPickupRequestClosedDate = existing.AwaitingPickupRequestClosedDate
	}
}

// validateRequest checks the field-level constraints that hold for every
// write path: UUID-shaped identifiers, membership in the closed status and
// type sets, and a strictly positive position when one is present.
func validateRequest(r *domain.Request) error {
	if err := checkUUID("id", r.ID, true); err != nil {
		return err
	}
	if err := checkUUID("itemId", r.ItemID, true); err != nil {
		return err
	}
	if err := checkUUID("requesterId", r.RequesterID, true); err != nil {
		return err
	}
	if err := checkUUID("proxyUserId", r.ProxyUserID, false); err != nil {
		return err
	}
	if err := checkUUID("cancellationReasonId", r.CancellationReasonID, false); err != nil {
		return err
	}
	if err := checkUUID("cancelledByUserId", r.CancelledByUserID, false); err != nil {
		return err
	}
	if !domain.ValidRequestType(r.RequestType) {
		return NewValidationError("requestType", string(r.RequestType), "must be one of Hold, Recall, Page")
	}
	if !domain.ValidStatus(r.Status) {
		return NewValidationError("status", string(r.Status), "is not a member of the request status set")
	}
	if r.FulfilmentPreference != "" && !domain.ValidFulfilment(r.FulfilmentPreference) {
		return NewValidationError("fulfilmentPreference", string(r.FulfilmentPreference), "must be Hold Shelf or Delivery")
	}
	if r.Position != nil && *r.Position < 1 {
		return NewValidationError("position", strconv.Itoa(*r.Position), "must be a positive integer")
	}
	return nil
}

// checkUUID validates the shape of an identifier field. Optional fields may
// be empty.
func checkUUID(key, value string, required bool) error {
	if value == "" {
		if required {
			return NewValidationError(key, value, "is required")
		}
		return nil
	}
	if _, err := uuid.Parse(value); err != nil {
		return NewValidationError(key, value, "must be a UUID")
	}
	return nil
}

// mapRepoErr lifts repository sentinels into their service-level equivalents.
func mapRepoErr(err error) error {
	if errors.Is(err, repo.ErrPositionConflict) {
		return ErrPositionConflict
	}
	return err
}

