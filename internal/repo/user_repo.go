// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file holds the credit ledger: user rows with their
// granted and consumed credit counters.
//
// Counter updates are expressed as single UPDATE statements
// (credits_used = credits_used + ?) so concurrent charges for the same user
// never lose an increment, even when callers hold stale User copies.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-lookup-bot/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrInvalidAmount is returned for non-positive charge or grant amounts.
var ErrInvalidAmount = errors.New("amount must be positive")

// GetOrCreateUser returns the user row for id, inserting it with
// defaultCredits granted when it does not exist yet. Concurrent first
// contacts for the same id are safe: the insert is ON CONFLICT DO NOTHING.
func GetOrCreateUser(ctx context.Context, db *gorm.DB, id string, defaultCredits int64) (*domain.User, error) {
	u := &domain.User{ID: id, CreditsTotal: defaultCredits}
	if err := db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(u).Error; err != nil {
		return nil, err
	}
	return GetUser(ctx, db, id)
}

// GetUser fetches a user by id, or ErrNotFound.
func GetUser(ctx context.Context, db *gorm.DB, id string) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// GrantCredits raises credits_total by amount, creating the user first when
// needed, and returns the updated row.
func GrantCredits(ctx context.Context, db *gorm.DB, id string, amount int64) (*domain.User, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	var out *domain.User
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&domain.User{ID: id}).Error; err != nil {
			return err
		}
		if err := tx.Model(&domain.User{}).
			Where("id = ?", id).
			Update("credits_total", gorm.Expr("credits_total + ?", amount)).Error; err != nil {
			return err
		}
		u, err := GetUser(ctx, tx, id)
		if err != nil {
			return err
		}
		out = u
		return nil
	})
	return out, err
}

// ChargeUser increments credits_used by amount and stamps last_lookup_at.
// It is meant to run inside the transaction that resolves the lookup being
// paid for; it returns ErrNotFound if the user row is missing.
func ChargeUser(ctx context.Context, tx *gorm.DB, id string, amount int64, at time.Time) error {
	if amount < 0 {
		return ErrInvalidAmount
	}
	res := tx.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"credits_used":   gorm.Expr("credits_used + ?", amount),
			"last_lookup_at": at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
