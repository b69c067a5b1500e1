// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate/statistics queries used
// primarily for conditional responses (e.g., ETag generation) in the HTTP
// layer. Each function is context-aware and safe to call from services or
// handlers.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-request-storage/internal/domain"
)

// RequestsStats returns aggregate metadata for the request collection: the
// total number of rows and the maximum metadata UpdatedDate among them.
//
// When the collection is empty, the returned count is 0 and maxUpdated is
// nil. Sweeps and client writes both refresh the updated stamp, so the pair
// (count, maxUpdated) changes whenever the collection does.
func RequestsStats(ctx context.Context, db *gorm.DB) (count int64, maxUpdated *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.Request{})

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest updated stamp (avoid MAX() -> TEXT in SQLite)
	var row struct {
		MetaUpdatedDate time.Time
	}
	if err = q.Select("meta_updated_date").Order("meta_updated_date DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.MetaUpdatedDate, nil
}
