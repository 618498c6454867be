// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate queries used for
// conditional responses (ETag generation) in the HTTP layer.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-lookup-bot/internal/domain"
)

// LookupsStats returns the number of lookups owned by userID and the greatest
// UpdatedAt among them (nil when the user has none). A resolution bumps
// UpdatedAt, so the pair changes whenever the listing would.
func LookupsStats(ctx context.Context, db *gorm.DB, userID string) (count int64, maxUpdatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.Lookup{}).Where("user_id = ?", userID)

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	if err = db.WithContext(ctx).Model(&domain.Lookup{}).
		Where("user_id = ?", userID).
		Select("updated_at").Order("updated_at DESC").Limit(1).
		Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}

// OutcomeCount is one row of LookupOutcomes.
type OutcomeCount struct {
	Kind  domain.Kind
	State domain.State
	N     int64
}

// LookupOutcomes aggregates lookups by (kind, state) for the admin surface.
func LookupOutcomes(ctx context.Context, db *gorm.DB) ([]OutcomeCount, error) {
	var out []OutcomeCount
	err := db.WithContext(ctx).
		Model(&domain.Lookup{}).
		Select("kind, state, COUNT(*) AS n").
		Group("kind, state").
		Order("kind, state").
		Scan(&out).Error
	return out, err
}
