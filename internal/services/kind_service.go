package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/tbourn/go-lookup-bot/internal/domain"
	"github.com/tbourn/go-lookup-bot/internal/repo"
)

// KindRepo defines the repository contract required by KindService.
type KindRepo interface {
	ListKindConfigs(ctx context.Context, db *gorm.DB) ([]domain.KindConfig, error)
	UpdateKindConfig(ctx context.Context, db *gorm.DB, kind domain.Kind, p repo.KindPatch) (*domain.KindConfig, error)
}

// KindService is the administrative surface for lookup prices and flags.
type KindService struct {
	DB   *gorm.DB
	Repo KindRepo
}

// List returns every configured kind.
func (s *KindService) List(ctx context.Context) ([]domain.KindConfig, error) {
	return s.Repo.ListKindConfigs(ctx, s.DB)
}

// Update patches one kind. Prices and timeouts must be >= 0.
func (s *KindService) Update(ctx context.Context, kind domain.Kind, p repo.KindPatch) (*domain.KindConfig, error) {
	if !kind.Valid() {
		return nil, ErrUnknownKind
	}
	if (p.Price != nil && *p.Price < 0) || (p.TimeoutSeconds != nil && *p.TimeoutSeconds < 0) {
		return nil, ErrInvalidKindConfig
	}
	kc, err := s.Repo.UpdateKindConfig(ctx, s.DB, kind, p)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrUnknownKind
	}
	return kc, err
}
