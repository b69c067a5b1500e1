// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Request
// model: the durable request store and the low-level primitives the queue
// mutator and expiration sweep are built from.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a request is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - A statement that would place two requests on the same (item, position)
//     slot is rejected by the composite unique index; those driver errors are
//     translated to ErrPositionConflict before they leave this package.
//   - On other DB errors the raw gorm error is propagated.
//
// The uniqueness constraint is enforced by SQLite at statement time, not at
// transaction commit. A transaction that routes two rows through the same
// slot, even transiently, fails on the offending statement — callers that
// swap positions must clear them first (see services.RequestService).
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-request-storage/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrPositionConflict is returned when a write would place two requests on
// the same (item, position) queue slot.
var ErrPositionConflict = errors.New("another request already holds this queue position")

// ErrDuplicateName is returned when a cancellation reason write collides with
// an existing reason name.
var ErrDuplicateName = errors.New("a cancellation reason with this name already exists")

// translateUnique maps driver-level unique violations onto the repository's
// sentinel errors. The SQLite message names the violated columns, which is
// enough to tell the queue slot index from the reason-name index.
func translateUnique(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "requests.item_id") && strings.Contains(msg, "requests.position"):
		return ErrPositionConflict
	case strings.Contains(msg, "cancellation_reasons.name"):
		return ErrDuplicateName
	}
	return err
}

// CreateRequest inserts a new Request row. The caller is responsible for
// having validated the record and populated its metadata; the row is written
// exactly as given. Returns ErrPositionConflict if the insert would give two
// requests the same queue slot.
func CreateRequest(ctx context.Context, db *gorm.DB, r *domain.Request) error {
	if err := db.WithContext(ctx).Create(r).Error; err != nil {
		return translateUnique(err)
	}
	return nil
}

// GetRequest fetches a single request by ID, or ErrNotFound if missing.
func GetRequest(ctx context.Context, db *gorm.DB, id string) (*domain.Request, error) {
	var r domain.Request
	if err := db.WithContext(ctx).First(&r, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

// SaveRequest writes a full request row, replacing every column of the row
// with the given ID (or inserting it when absent). Zero-valued fields are
// written as zero, which lets a caller clear a position by saving a record
// whose Position is nil. Returns ErrPositionConflict on a queue slot clash.
func SaveRequest(ctx context.Context, db *gorm.DB, r *domain.Request) error {
	if err := db.WithContext(ctx).Save(r).Error; err != nil {
		return translateUnique(err)
	}
	return nil
}

// PositionOccupied reports whether any request currently holds the given
// (item, position) queue slot. Callers that enforce insert-style slot
// semantics on updates use this to treat an occupied slot as a conflict even
// when the occupant is the row being rewritten.
func PositionOccupied(ctx context.Context, db *gorm.DB, itemID string, position int) (bool, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Request{}).
		Where("item_id = ? AND position = ?", itemID, position).
		Count(&n).Error
	return n > 0, err
}

// DeleteRequest removes a request row by ID. Returns ErrNotFound when no row
// was deleted.
func DeleteRequest(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).Delete(&domain.Request{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAllRequests removes every request row (tenant reset).
func DeleteAllRequests(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).Where("1 = 1").Delete(&domain.Request{}).Error
}

// ListRequests returns a page of requests matching scope, plus the total
// match count. The scope callback composes WHERE/ORDER clauses; pass nil for
// an unfiltered listing ordered by request date.
func ListRequests(ctx context.Context, db *gorm.DB, scope func(*gorm.DB) *gorm.DB, offset, limit int) ([]domain.Request, int64, error) {
	q := db.WithContext(ctx).Model(&domain.Request{})
	if scope != nil {
		q = scope(q)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var out []domain.Request
	err := q.Offset(offset).Limit(limit).Find(&out).Error
	return out, total, err
}

// UpdateSnapshots rewrites only the denormalized snapshot columns of a
// request, leaving status, position, and every other engine-owned column
// alone. Returns ErrNotFound when the row does not exist.
func UpdateSnapshots(ctx context.Context, db *gorm.DB, id string, snaps domain.Snapshots, now time.Time, actorID string) error {
	// Struct-based update with an explicit Select so the JSON serializer runs
	// and nil snapshots still overwrite stale copies.
	res := db.WithContext(ctx).
		Model(&domain.Request{}).
		Where("id = ?", id).
		Select("item", "requester", "proxy", "instance", "search_index",
			"meta_updated_date", "meta_updated_by_user_id").
		Updates(&domain.Request{
			Item:        snaps.Item,
			Requester:   snaps.Requester,
			Proxy:       snaps.Proxy,
			Instance:    snaps.Instance,
			SearchIndex: snaps.SearchIndex,
			Metadata: domain.Metadata{
				UpdatedDate:     now,
				UpdatedByUserID: actorID,
			},
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CountRequestsByReason returns how many requests, regardless of status,
// reference the given cancellation reason.
func CountRequestsByReason(ctx context.Context, db *gorm.DB, reasonID string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Request{}).
		Where("cancellation_reason_id = ?", reasonID).
		Count(&n).Error
	return n, err
}

// ExpiredRequests selects the requests in the given status whose expiry
// column (one of "request_expiration_date" or "hold_shelf_expiration_date")
// is set and strictly before now. Rows with the column unset never match.
func ExpiredRequests(ctx context.Context, db *gorm.DB, status domain.RequestStatus, dateColumn string, now time.Time) ([]domain.Request, error) {
	var out []domain.Request
	err := db.WithContext(ctx).
		Where("status = ?", status).
		Where(dateColumn+" IS NOT NULL").
		Where(dateColumn+" < ?", now).
		Order("id asc").
		Find(&out).Error
	return out, err
}

// CloseRequest transitions a request out of fromStatus into toStatus,
// clearing its queue position. The update is conditioned on the row still
// holding fromStatus, so a request touched by a client between selection and
// this write is skipped rather than clobbered; the returned bool reports
// whether the row was actually closed. closedAt, when non-nil, is stamped
// into awaiting_pickup_request_closed_date.
func CloseRequest(ctx context.Context, db *gorm.DB, id string, fromStatus, toStatus domain.RequestStatus, closedAt *time.Time, now time.Time, actorID string) (bool, error) {
	cols := map[string]any{
		"status":                  toStatus,
		"position":                nil,
		"meta_updated_date":       now,
		"meta_updated_by_user_id": actorID,
	}
	if closedAt != nil {
		cols["awaiting_pickup_request_closed_date"] = *closedAt
	}
	res := db.WithContext(ctx).
		Model(&domain.Request{}).
		Where("id = ? AND status = ?", id, fromStatus).
		Updates(cols)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// QueuedRequests returns the item's queue: every request for itemID that
// still carries a position, ordered by position ascending.
func QueuedRequests(ctx context.Context, db *gorm.DB, itemID string) ([]domain.Request, error) {
	var out []domain.Request
	err := db.WithContext(ctx).
		Where("item_id = ? AND position IS NOT NULL", itemID).
		Order("position asc").
		Find(&out).Error
	return out, err
}

// CompactQueue renumbers the item's queue contiguously from 1, preserving the
// current relative order. Each renumbering statement is conditioned on the
// row still holding the position it was selected with, so interleaved client
// writes make the statement a no-op instead of overwriting fresh state.
//
// Rows are processed in ascending position order; every new position is less
// than or equal to the old one and below any position still to be visited, so
// the per-statement uniqueness check never trips on a transient collision.
func CompactQueue(ctx context.Context, db *gorm.DB, itemID string, now time.Time, actorID string) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		queue, err := QueuedRequests(ctx, tx, itemID)
		if err != nil {
			return err
		}
		for i := range queue {
			want := i + 1
			if queue[i].Position != nil && *queue[i].Position == want {
				continue
			}
			err := tx.Model(&domain.Request{}).
				Where("id = ? AND position = ?", queue[i].ID, queue[i].Position).
				Updates(map[string]any{
					"position":                want,
					"meta_updated_date":       now,
					"meta_updated_by_user_id": actorID,
				}).Error
			if err != nil {
				return translateUnique(err)
			}
		}
		return nil
	})
}
