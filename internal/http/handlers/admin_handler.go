// Admin HTTP handlers, mounted behind middleware.AdminToken.
//
//   - GET  /admin/kinds              list kind prices and flags
//   - PUT  /admin/kinds/{kind}       patch price, enabled, timeout
//   - POST /admin/users/{id}/credits grant credits
//   - GET  /admin/stats              lookup outcomes by kind and state
package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-lookup-bot/internal/domain"
	"github.com/tbourn/go-lookup-bot/internal/http/middleware"
	"github.com/tbourn/go-lookup-bot/internal/repo"
)

// KindView is one lookup kind's configuration.
type KindView struct {
	Kind           string    `json:"kind" example:"vehicle"`
	Code           int       `json:"code" example:"3"`
	Price          int64     `json:"price" example:"6000"`
	Enabled        bool      `json:"enabled" example:"true"`
	TimeoutSeconds int       `json:"timeout_seconds" example:"0"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func kindViewOf(k domain.KindConfig) KindView {
	return KindView{
		Kind:           k.Kind.String(),
		Code:           int(k.Kind),
		Price:          k.Price,
		Enabled:        k.Enabled,
		TimeoutSeconds: k.TimeoutSeconds,
		UpdatedAt:      k.UpdatedAt,
	}
}

// ListKindsResponse wraps the kind catalog.
type ListKindsResponse struct {
	Kinds []KindView `json:"kinds"`
}

// UpdateKindRequest patches a kind; omitted fields are left unchanged.
type UpdateKindRequest struct {
	Price          *int64 `json:"price,omitempty" example:"7000"`
	Enabled        *bool  `json:"enabled,omitempty" example:"false"`
	TimeoutSeconds *int   `json:"timeout_seconds,omitempty" example:"90"`
}

// GrantCreditsRequest adds credits to a user.
type GrantCreditsRequest struct {
	Amount int64 `json:"amount" binding:"required" example:"50000"`
}

// OutcomeView is one row of the stats report.
type OutcomeView struct {
	Kind  string       `json:"kind" example:"person"`
	State domain.State `json:"state" example:"success"`
	Count int64        `json:"count" example:"17"`
}

// StatsResponse aggregates lookups by kind and state.
type StatsResponse struct {
	Outcomes []OutcomeView `json:"outcomes"`
}

// ListKinds godoc
// @ID          listKinds
// @Summary     List lookup kinds
// @Tags        Admin
// @Produce     json
// @Param       X-Admin-Token  header  string  true  "Admin token"
// @Success     200  {object}  handlers.ListKindsResponse
// @Failure     401  {object}  handlers.ErrorResponse  "Bad admin token"
// @Router      /admin/kinds [get]
func (h *Handlers) ListKinds(c *gin.Context) {
	kinds, err := h.kinds.List(c.Request.Context())
	if err != nil {
		failService(c, err, ErrCodeListFailed)
		return
	}
	out := ListKindsResponse{Kinds: make([]KindView, 0, len(kinds))}
	for _, k := range kinds {
		out.Kinds = append(out.Kinds, kindViewOf(k))
	}
	ok(c, http.StatusOK, out)
}

// UpdateKind godoc
// @ID          updateKind
// @Summary     Update a lookup kind
// @Description Changes price, enabled flag or polling timeout. The new price applies to lookups registered afterwards.
// @Tags        Admin
// @Accept      json
// @Produce     json
// @Param       X-Admin-Token  header  string                      true  "Admin token"
// @Param       kind           path    string                      true  "Kind slug or code"  example(vehicle)
// @Param       body           body    handlers.UpdateKindRequest  true  "Patch"
// @Success     200  {object}  handlers.KindView
// @Failure     400  {object}  handlers.ErrorResponse  "Unknown kind or invalid values"
// @Router      /admin/kinds/{kind} [put]
func (h *Handlers) UpdateKind(c *gin.Context) {
	kind, err := domain.ParseKind(c.Param("kind"))
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeUnknownKind, err.Error())
		return
	}
	var req UpdateKindRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	if req.Price == nil && req.Enabled == nil && req.TimeoutSeconds == nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "nothing to update")
		return
	}
	kc, err := h.kinds.Update(c.Request.Context(), kind, repo.KindPatch{
		Price:          req.Price,
		Enabled:        req.Enabled,
		TimeoutSeconds: req.TimeoutSeconds,
	})
	if err != nil {
		failService(c, err, ErrCodeUpdateFailed)
		return
	}
	middleware.LoggerFrom(c).Info().
		Str("kind", kind.String()).
		Int64("price", kc.Price).
		Bool("enabled", kc.Enabled).
		Msg("kind updated")
	ok(c, http.StatusOK, kindViewOf(*kc))
}

// GrantCredits godoc
// @ID          grantCredits
// @Summary     Grant credits
// @Tags        Admin
// @Accept      json
// @Produce     json
// @Param       X-Admin-Token  header  string                        true  "Admin token"
// @Param       id             path    string                        true  "User ID"
// @Param       body           body    handlers.GrantCreditsRequest  true  "Amount"
// @Success     200  {object}  services.Balance
// @Failure     400  {object}  handlers.ErrorResponse  "Non-positive amount"
// @Router      /admin/users/{id}/credits [post]
func (h *Handlers) GrantCredits(c *gin.Context) {
	uid := strings.TrimSpace(c.Param("id"))
	var req GrantCreditsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "amount is required")
		return
	}
	b, err := h.ledger.Grant(c.Request.Context(), uid, req.Amount)
	if err != nil {
		failService(c, err, ErrCodeUpdateFailed)
		return
	}
	middleware.LoggerFrom(c).Info().
		Str("target_user", uid).
		Int64("amount", req.Amount).
		Int64("available", b.Available).
		Msg("credits granted")
	ok(c, http.StatusOK, b)
}

// Stats godoc
// @ID          lookupStats
// @Summary     Lookup outcomes
// @Tags        Admin
// @Produce     json
// @Param       X-Admin-Token  header  string  true  "Admin token"
// @Success     200  {object}  handlers.StatsResponse
// @Router      /admin/stats [get]
func (h *Handlers) Stats(c *gin.Context) {
	if h.db == nil {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "stats unavailable")
		return
	}
	rows, err := repo.LookupOutcomes(c.Request.Context(), h.db)
	if err != nil {
		failService(c, err, ErrCodeListFailed)
		return
	}
	out := StatsResponse{Outcomes: make([]OutcomeView, 0, len(rows))}
	for _, r := range rows {
		out.Outcomes = append(out.Outcomes, OutcomeView{Kind: r.Kind.String(), State: r.State, Count: r.N})
	}
	ok(c, http.StatusOK, out)
}
