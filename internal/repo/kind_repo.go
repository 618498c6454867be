package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-lookup-bot/internal/domain"
)

// KindPatch is a partial update of a KindConfig; nil fields are left as is.
type KindPatch struct {
	Price          *int64
	Enabled        *bool
	TimeoutSeconds *int
}

// GetKindConfig returns the configuration row for kind, or ErrNotFound.
func GetKindConfig(ctx context.Context, db *gorm.DB, kind domain.Kind) (*domain.KindConfig, error) {
	var kc domain.KindConfig
	if err := db.WithContext(ctx).Where("kind = ?", kind).First(&kc).Error; err != nil {
		return nil, err
	}
	return &kc, nil
}

// ListKindConfigs returns every configured kind ordered by code.
func ListKindConfigs(ctx context.Context, db *gorm.DB) ([]domain.KindConfig, error) {
	var out []domain.KindConfig
	err := db.WithContext(ctx).Order("kind asc").Find(&out).Error
	return out, err
}

// UpdateKindConfig applies p to kind and returns the updated row. Returns
// ErrNotFound when the kind is not configured.
func UpdateKindConfig(ctx context.Context, db *gorm.DB, kind domain.Kind, p KindPatch) (*domain.KindConfig, error) {
	fields := map[string]any{}
	if p.Price != nil {
		fields["price"] = *p.Price
	}
	if p.Enabled != nil {
		fields["enabled"] = *p.Enabled
	}
	if p.TimeoutSeconds != nil {
		fields["timeout_seconds"] = *p.TimeoutSeconds
	}
	if len(fields) > 0 {
		res := db.WithContext(ctx).
			Model(&domain.KindConfig{}).
			Where("kind = ?", kind).
			Updates(fields)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, ErrNotFound
		}
	}
	return GetKindConfig(ctx, db, kind)
}
