// Package services – LedgerService
//
// LedgerService exposes a user's prepaid credit balance and administrative
// top-ups. Charging is not done here: it happens inside the lookup
// registry's success transition so a lookup is success if and only if it was
// paid for.
package services

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-lookup-bot/internal/domain"
	"github.com/tbourn/go-lookup-bot/internal/repo"
)

// LedgerRepo defines the repository contract required by LedgerService.
type LedgerRepo interface {
	// GetOrCreateUser loads a user, creating it with defaultCredits on first contact.
	GetOrCreateUser(ctx context.Context, db *gorm.DB, id string, defaultCredits int64) (*domain.User, error)
	// GrantCredits raises a user's granted total.
	GrantCredits(ctx context.Context, db *gorm.DB, id string, amount int64) (*domain.User, error)
}

// Balance is a user's credit position.
type Balance struct {
	UserID    string `json:"user_id"`
	Total     int64  `json:"credits_total"`
	Used      int64  `json:"credits_used"`
	Available int64  `json:"credits_available"`
}

func balanceOf(u *domain.User) Balance {
	return Balance{UserID: u.ID, Total: u.CreditsTotal, Used: u.CreditsUsed, Available: u.Available()}
}

// LedgerService provides balance reads and grants.
type LedgerService struct {
	DB   *gorm.DB
	Repo LedgerRepo
	// DefaultCredits is granted to users created on first contact.
	DefaultCredits int64
}

// NewLedgerService constructs a LedgerService.
func NewLedgerService(db *gorm.DB, r LedgerRepo, defaultCredits int64) *LedgerService {
	return &LedgerService{DB: db, Repo: r, DefaultCredits: defaultCredits}
}

// Balance returns the user's balance, creating the account lazily.
func (s *LedgerService) Balance(ctx context.Context, userID string) (Balance, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Balance{}, ErrMissingUser
	}
	u, err := s.Repo.GetOrCreateUser(ctx, s.DB, userID, s.DefaultCredits)
	if err != nil {
		return Balance{}, err
	}
	return balanceOf(u), nil
}

// Available returns max(granted - consumed, 0) for userID.
func (s *LedgerService) Available(ctx context.Context, userID string) (int64, error) {
	b, err := s.Balance(ctx, userID)
	if err != nil {
		return 0, err
	}
	return b.Available, nil
}

// Grant adds amount credits to userID.
func (s *LedgerService) Grant(ctx context.Context, userID string, amount int64) (Balance, error) {
	ctx, span := otel.Tracer("services/LedgerService").Start(ctx, "Grant",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.Int64("credits.amount", amount),
		),
	)
	defer span.End()

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Balance{}, ErrMissingUser
	}
	if amount <= 0 {
		return Balance{}, ErrInvalidAmount
	}
	u, err := s.Repo.GrantCredits(ctx, s.DB, userID, amount)
	if errors.Is(err, repo.ErrInvalidAmount) {
		return Balance{}, ErrInvalidAmount
	}
	if err != nil {
		return Balance{}, err
	}
	return balanceOf(u), nil
}
