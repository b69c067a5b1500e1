// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// CancellationReason reference model.
//
// Deletion is guarded at the service layer (see services.ReasonService): a
// reason referenced by any request, whatever that request's status, must not
// be removed. The repository only supplies the primitives.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-request-storage/internal/domain"
)

// CreateReason inserts a new cancellation reason. Returns ErrDuplicateName
// when the globally-unique name is already taken.
func CreateReason(ctx context.Context, db *gorm.DB, r *domain.CancellationReason) error {
	if err := db.WithContext(ctx).Create(r).Error; err != nil {
		return translateUnique(err)
	}
	return nil
}

// GetReason fetches a cancellation reason by ID, or ErrNotFound if missing.
func GetReason(ctx context.Context, db *gorm.DB, id string) (*domain.CancellationReason, error) {
	var r domain.CancellationReason
	if err := db.WithContext(ctx).First(&r, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

// ListReasons returns all cancellation reasons ordered by name, plus the
// total count.
func ListReasons(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.CancellationReason, int64, error) {
	var total int64
	if err := db.WithContext(ctx).Model(&domain.CancellationReason{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []domain.CancellationReason
	err := db.WithContext(ctx).
		Order("name asc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, total, err
}

// SaveReason writes a full cancellation reason row, inserting it when absent.
// Returns ErrDuplicateName on a name clash.
func SaveReason(ctx context.Context, db *gorm.DB, r *domain.CancellationReason) error {
	if err := db.WithContext(ctx).Save(r).Error; err != nil {
		return translateUnique(err)
	}
	return nil
}

// DeleteReason removes a cancellation reason row by ID. Returns ErrNotFound
// when no row was deleted.
func DeleteReason(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).Delete(&domain.CancellationReason{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
