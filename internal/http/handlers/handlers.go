package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tbourn/go-lookup-bot/internal/domain"
	"github.com/tbourn/go-lookup-bot/internal/http/middleware"
	"github.com/tbourn/go-lookup-bot/internal/repo"
	"github.com/tbourn/go-lookup-bot/internal/services"
	"github.com/tbourn/go-lookup-bot/internal/telegram"
)

// LookupService starts and reads lookups.
type LookupService interface {
	Start(ctx context.Context, req services.StartRequest) (*domain.Lookup, error)
	Get(ctx context.Context, userID string, id uint) (*domain.Lookup, error)
	ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.Lookup, int64, error)
}

// LedgerService reads balances and grants credits.
type LedgerService interface {
	Balance(ctx context.Context, userID string) (services.Balance, error)
	Grant(ctx context.Context, userID string, amount int64) (services.Balance, error)
}

// KindService administers lookup prices and flags.
type KindService interface {
	List(ctx context.Context) ([]domain.KindConfig, error)
	Update(ctx context.Context, kind domain.Kind, p repo.KindPatch) (*domain.KindConfig, error)
}

// UpdateHandler consumes Telegram updates.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, upd telegram.Update) error
}

// Deps are the collaborators of Handlers. DB is optional: without it list
// ETags, idempotent replays and admin stats are skipped.
type Deps struct {
	Lookups LookupService
	Ledger  LedgerService
	Kinds   KindService
	Bot     UpdateHandler
	DB      *gorm.DB

	WebhookSecret  string
	IdempotencyTTL time.Duration
}

// Handlers groups every HTTP endpoint.
type Handlers struct {
	lookups LookupService
	ledger  LedgerService
	kinds   KindService
	bot     UpdateHandler
	db      *gorm.DB

	webhookSecret  string
	idempotencyTTL time.Duration
	now            func() time.Time
}

// New builds Handlers from d. A zero IdempotencyTTL means 24h.
func New(d Deps) *Handlers {
	ttl := d.IdempotencyTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Handlers{
		lookups:        d.Lookups,
		ledger:         d.Ledger,
		kinds:          d.Kinds,
		bot:            d.Bot,
		db:             d.DB,
		webhookSecret:  d.WebhookSecret,
		idempotencyTTL: ttl,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// userID returns the caller set by middleware.Identity.
func userID(c *gin.Context) string {
	return middleware.UserID(c)
}

// Pagination carries list metadata.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}
