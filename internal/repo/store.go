package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-lookup-bot/internal/domain"
)

// Store adapts the repository free functions to the repository interfaces
// declared by the services package, so services stay decoupled from this
// package while reusing its functions.
type Store struct{}

// GetOrCreateUser proxies GetOrCreateUser.
func (Store) GetOrCreateUser(ctx context.Context, db *gorm.DB, id string, defaultCredits int64) (*domain.User, error) {
	return GetOrCreateUser(ctx, db, id, defaultCredits)
}

// GrantCredits proxies GrantCredits.
func (Store) GrantCredits(ctx context.Context, db *gorm.DB, id string, amount int64) (*domain.User, error) {
	return GrantCredits(ctx, db, id, amount)
}

// GetKindConfig proxies GetKindConfig.
func (Store) GetKindConfig(ctx context.Context, db *gorm.DB, kind domain.Kind) (*domain.KindConfig, error) {
	return GetKindConfig(ctx, db, kind)
}

// ListKindConfigs proxies ListKindConfigs.
func (Store) ListKindConfigs(ctx context.Context, db *gorm.DB) ([]domain.KindConfig, error) {
	return ListKindConfigs(ctx, db)
}

// UpdateKindConfig proxies UpdateKindConfig.
func (Store) UpdateKindConfig(ctx context.Context, db *gorm.DB, kind domain.Kind, p KindPatch) (*domain.KindConfig, error) {
	return UpdateKindConfig(ctx, db, kind, p)
}

// CreateLookup proxies CreateLookup.
func (Store) CreateLookup(ctx context.Context, db *gorm.DB, userID string, kind domain.Kind, params string, price int64) (*domain.Lookup, error) {
	return CreateLookup(ctx, db, userID, kind, params, price)
}

// ResolveSuccess proxies ResolveSuccess.
func (Store) ResolveSuccess(ctx context.Context, db *gorm.DB, id uint, raw string, at time.Time) (*domain.Lookup, error) {
	return ResolveSuccess(ctx, db, id, raw, at)
}

// ResolveFailure proxies ResolveFailure.
func (Store) ResolveFailure(ctx context.Context, db *gorm.DB, id uint, state domain.State, detail, raw string, at time.Time) error {
	return ResolveFailure(ctx, db, id, state, detail, raw, at)
}

// GetLookup proxies GetLookup.
func (Store) GetLookup(ctx context.Context, db *gorm.DB, id uint, userID string) (*domain.Lookup, error) {
	return GetLookup(ctx, db, id, userID)
}

// CountLookups proxies CountLookups.
func (Store) CountLookups(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	return CountLookups(ctx, db, userID)
}

// ListLookupsPage proxies ListLookupsPage.
func (Store) ListLookupsPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.Lookup, error) {
	return ListLookupsPage(ctx, db, userID, offset, limit)
}

// ListPendingLookups proxies ListPendingLookups.
func (Store) ListPendingLookups(ctx context.Context, db *gorm.DB, cutoff time.Time) ([]domain.Lookup, error) {
	return ListPendingLookups(ctx, db, cutoff)
}
