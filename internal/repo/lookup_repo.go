// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file is the lookup request registry: one audit row per
// lookup attempt, created pending and resolved exactly once.
//
// Resolution is guarded by "WHERE state = 'pending'": the first resolver
// wins and every later call gets ErrAlreadyResolved without touching the row
// or the ledger. ResolveSuccess charges the owning user in the same
// transaction, so a lookup is success if and only if it was paid for.
package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-lookup-bot/internal/domain"
)

var (
	// ErrAlreadyResolved is returned when resolving a lookup that already left pending.
	ErrAlreadyResolved = errors.New("lookup already resolved")
	// ErrInvalidState is returned for a failure resolution outside {error, no_data}.
	ErrInvalidState = errors.New("invalid terminal state")
)

// CreateLookup inserts a pending lookup with the price captured now.
func CreateLookup(ctx context.Context, db *gorm.DB, userID string, kind domain.Kind, params string, price int64) (*domain.Lookup, error) {
	l := &domain.Lookup{
		UserID:    userID,
		Kind:      kind,
		Params:    params,
		Price:     price,
		State:     domain.StatePending,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(l).Error; err != nil {
		return nil, err
	}
	return l, nil
}

// ResolveSuccess moves lookup id from pending to success, stores raw and
// charges the owner the captured price, all in one transaction. Any failure
// rolls back both sides.
func ResolveSuccess(ctx context.Context, db *gorm.DB, id uint, raw string, at time.Time) (*domain.Lookup, error) {
	var out domain.Lookup
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&out).Error; err != nil {
			return err
		}
		res := tx.Model(&domain.Lookup{}).
			Where("id = ? AND state = ?", id, domain.StatePending).
			Updates(map[string]any{
				"state":       domain.StateSuccess,
				"raw_payload": raw,
				"resolved_at": at,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyResolved
		}
		if err := ChargeUser(ctx, tx, out.UserID, out.Price, at); err != nil {
			return fmt.Errorf("charge user %s: %w", out.UserID, err)
		}
		out.State = domain.StateSuccess
		out.RawPayload = raw
		out.ResolvedAt = &at
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ResolveFailure moves lookup id from pending to state (error or no_data)
// with detail and an optional raw payload. The ledger is never touched.
func ResolveFailure(ctx context.Context, db *gorm.DB, id uint, state domain.State, detail, raw string, at time.Time) error {
	if state != domain.StateError && state != domain.StateNoData {
		return fmt.Errorf("%w: %q", ErrInvalidState, state)
	}
	res := db.WithContext(ctx).
		Model(&domain.Lookup{}).
		Where("id = ? AND state = ?", id, domain.StatePending).
		Updates(map[string]any{
			"state":        state,
			"error_detail": detail,
			"raw_payload":  raw,
			"resolved_at":  at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// Distinguish a missing row from a finished one.
		var n int64
		if err := db.WithContext(ctx).Model(&domain.Lookup{}).Where("id = ?", id).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return ErrAlreadyResolved
	}
	return nil
}

// GetLookup fetches lookup id owned by userID, or ErrNotFound.
func GetLookup(ctx context.Context, db *gorm.DB, id uint, userID string) (*domain.Lookup, error) {
	var l domain.Lookup
	err := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&l).Error
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// CountLookups returns the number of lookups owned by userID.
func CountLookups(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Lookup{}).
		Where("user_id = ?", userID).
		Count(&total).Error
	return total, err
}

// ListLookupsPage returns a page of userID's lookups, most recent first.
func ListLookupsPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.Lookup, error) {
	var out []domain.Lookup
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc, id desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// ListPendingLookups returns lookups still pending that were created before
// cutoff. Used at startup to close records orphaned by a previous process.
func ListPendingLookups(ctx context.Context, db *gorm.DB, cutoff time.Time) ([]domain.Lookup, error) {
	var out []domain.Lookup
	err := db.WithContext(ctx).
		Where("state = ? AND created_at < ?", domain.StatePending, cutoff).
		Order("id asc").
		Find(&out).Error
	return out, err
}
