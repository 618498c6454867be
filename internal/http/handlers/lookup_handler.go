// Lookup HTTP handlers.
//
//   - POST /lookups       start a lookup (202, Idempotency-Key aware)
//   - GET  /lookups       list the caller's lookups (paginated, weak ETag)
//   - GET  /lookups/{id}  read one lookup
//
// Lookups started here have no chat attached: the caller polls GET
// /lookups/{id} until the state is terminal.
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-lookup-bot/internal/domain"
	"github.com/tbourn/go-lookup-bot/internal/http/middleware"
	"github.com/tbourn/go-lookup-bot/internal/repo"
	"github.com/tbourn/go-lookup-bot/internal/services"
	"github.com/tbourn/go-lookup-bot/internal/utils"
)

// StartLookupRequest is the body of POST /lookups. Which fields are
// required depends on the kind.
type StartLookupRequest struct {
	// Kind slug or numeric code.
	Kind      string `json:"kind" binding:"required" example:"vehicle"`
	DocType   string `json:"doc_type,omitempty" example:"CC"`
	DocNumber string `json:"doc_number,omitempty" example:"1020304050"`
	Plate     string `json:"plate,omitempty" example:"ABC123"`
	Chassis   string `json:"chassis,omitempty" example:"9BWZZZ377VT004251"`
}

func (r StartLookupRequest) params() domain.Params {
	return domain.Params{
		DocType:   strings.ToUpper(strings.TrimSpace(r.DocType)),
		DocNumber: strings.TrimSpace(r.DocNumber),
		Plate:     strings.TrimSpace(r.Plate),
		Chassis:   strings.TrimSpace(r.Chassis),
	}
}

// LookupView is the public shape of a lookup. Internal failure details are
// never exposed.
type LookupView struct {
	ID         uint            `json:"id" example:"42"`
	Kind       string          `json:"kind" example:"vehicle"`
	KindCode   int             `json:"kind_code" example:"3"`
	State      domain.State    `json:"state" example:"pending"`
	Price      int64           `json:"price" example:"6000"`
	Params     json.RawMessage `json:"params" swaggertype:"object"`
	Result     json.RawMessage `json:"result,omitempty" swaggertype:"object"`
	CreatedAt  time.Time       `json:"created_at"`
	ResolvedAt *time.Time      `json:"resolved_at,omitempty"`
}

func viewOf(l *domain.Lookup) LookupView {
	v := LookupView{
		ID:         l.ID,
		Kind:       l.Kind.String(),
		KindCode:   int(l.Kind),
		State:      l.State,
		Price:      l.Price,
		Params:     json.RawMessage("{}"),
		CreatedAt:  l.CreatedAt,
		ResolvedAt: l.ResolvedAt,
	}
	if json.Valid([]byte(l.Params)) {
		v.Params = json.RawMessage(l.Params)
	}
	if l.State == domain.StateSuccess && json.Valid([]byte(l.RawPayload)) {
		v.Result = json.RawMessage(l.RawPayload)
	}
	return v
}

// ListLookupsResponse is a page of lookups.
type ListLookupsResponse struct {
	Lookups    []LookupView `json:"lookups"`
	Pagination Pagination   `json:"pagination"`
}

// StartLookup godoc
// @ID          startLookup
// @Summary     Start a lookup
// @Description Admits, registers and launches a lookup. The lookup is charged only if it succeeds. Retries with the same Idempotency-Key return the original lookup.
// @Tags        Lookups
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string  true   "User ID"          example(123456789)
// @Param       Idempotency-Key  header  string  false  "Retry-safe key"   example(7f9c-2024-01)
// @Param       body             body    handlers.StartLookupRequest  true  "Lookup"
//
// @Success     202  {object}  handlers.LookupView
// @Header      202  {string}  Idempotency-Replayed  "true when an earlier result was returned"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request, unknown kind or invalid params"
// @Failure     401  {object}  handlers.ErrorResponse  "Missing X-User-ID"
// @Failure     402  {object}  handlers.ErrorResponse  "Insufficient credits"
// @Failure     409  {object}  handlers.ErrorResponse  "Kind disabled"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /lookups [post]
func (h *Handlers) StartLookup(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)
	if uid == "" {
		failService(c, services.ErrMissingUser, ErrCodeStartFailed)
		return
	}

	var req StartLookupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body: kind is required")
		return
	}
	kind, err := domain.ParseKind(req.Kind)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeUnknownKind, err.Error())
		return
	}

	// Replay path.
	key, hasKey := middleware.GetIdempotencyKey(c)
	if hasKey && h.db != nil {
		if rec, err := repo.GetIdempotency(ctx, h.db, uid, key, h.now()); err == nil {
			if prev, err := h.lookups.Get(ctx, uid, rec.LookupID); err == nil {
				c.Header("Idempotency-Replayed", "true")
				ok(c, rec.Status, viewOf(prev))
				return
			}
		}
	}

	l, err := h.lookups.Start(ctx, services.StartRequest{
		UserID: uid,
		Kind:   kind,
		Params: req.params(),
	})
	if err != nil {
		failService(c, err, ErrCodeStartFailed)
		return
	}

	// Store path; best effort.
	if hasKey && h.db != nil {
		if _, err := repo.CreateIdempotency(ctx, h.db, uid, key, l.ID, http.StatusAccepted, h.idempotencyTTL); err != nil {
			middleware.LoggerFrom(c).Warn().Err(err).Uint("lookup_id", l.ID).Msg("idempotency record not stored")
		}
	}
	ok(c, http.StatusAccepted, viewOf(l))
}

// GetLookup godoc
// @ID          getLookup
// @Summary     Get a lookup
// @Tags        Lookups
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "User ID"
// @Param       id         path    int     true  "Lookup ID"  minimum(1)
//
// @Success     200  {object}  handlers.LookupView
// @Failure     400  {object}  handlers.ErrorResponse  "Bad id"
// @Failure     404  {object}  handlers.ErrorResponse  "Lookup not found"
// @Router      /lookups/{id} [get]
func (h *Handlers) GetLookup(c *gin.Context) {
	uid := userID(c)
	if uid == "" {
		failService(c, services.ErrMissingUser, ErrCodeInternal)
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "lookup id must be a positive integer")
		return
	}
	l, err := h.lookups.Get(c.Request.Context(), uid, uint(id))
	if err != nil {
		failService(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, viewOf(l))
}

// ListLookups godoc
// @ID          listLookups
// @Summary     List lookups (paginated)
// @Description Newest first. Supports a weak ETag via If-None-Match and may return 304.
// @Tags        Lookups
// @Produce     json
//
// @Param       X-User-ID      header  string  true   "User ID"
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"
// @Param       page           query   int     false  "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false  "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  handlers.ListLookupsResponse
// @Header      200  {string}  ETag  "Weak ETag for the caller's lookups"
// @Success     304  {string}  string  "Not Modified"
// @Failure     401  {object}  handlers.ErrorResponse  "Missing X-User-ID"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /lookups [get]
func (h *Handlers) ListLookups(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)
	if uid == "" {
		failService(c, services.ErrMissingUser, ErrCodeListFailed)
		return
	}
	page, pageSize := utils.ClampPage(c.Query("page"), c.Query("page_size"))

	if h.db != nil {
		if count, maxTS, err := repo.LookupsStats(ctx, h.db, uid); err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.UnixMilli()
			}
			etag := fmt.Sprintf(`W/"lookups:%s:%d:%d:%d:%d"`, uid, count, ts, page, pageSize)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, total, err := h.lookups.ListPage(ctx, uid, page, pageSize)
	if err != nil {
		failService(c, err, ErrCodeListFailed)
		return
	}
	views := make([]LookupView, 0, len(items))
	for i := range items {
		views = append(views, viewOf(&items[i]))
	}
	totalPages := utils.TotalPages(total, pageSize)
	ok(c, http.StatusOK, ListLookupsResponse{
		Lookups: views,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

