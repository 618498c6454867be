package handlers

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-lookup-bot/internal/http/middleware"
	"github.com/tbourn/go-lookup-bot/internal/telegram"
)

// HeaderTelegramSecret is set by Telegram when the webhook was registered
// with a secret_token.
const HeaderTelegramSecret = "X-Telegram-Bot-Api-Secret-Token"

// Webhook godoc
// @ID          telegramWebhook
// @Summary     Telegram webhook
// @Description Receives one Telegram update. The secret comes from the path or the X-Telegram-Bot-Api-Secret-Token header. Authenticated deliveries are always acknowledged with 200 so Telegram does not redeliver them.
// @Tags        Webhook
// @Accept      json
// @Produce     json
// @Param       secret  path  string  true  "Webhook secret"
// @Success     200  {object}  map[string]bool
// @Failure     403  {object}  handlers.ErrorResponse  "Bad secret"
// @Failure     404  {object}  handlers.ErrorResponse  "Webhook disabled"
// @Router      /webhook/{secret} [post]
func (h *Handlers) Webhook(c *gin.Context) {
	if h.webhookSecret == "" || h.bot == nil {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "route not found")
		return
	}
	if !h.validWebhookSecret(c) {
		middleware.ObserveWebhook("rejected")
		fail(c, http.StatusForbidden, ErrCodeForbidden, "invalid webhook secret")
		return
	}

	lg := middleware.LoggerFrom(c)
	body, err := io.ReadAll(c.Request.Body)
	var upd telegram.Update
	if err == nil {
		err = json.Unmarshal(body, &upd)
	}
	if err != nil {
		middleware.ObserveWebhook("malformed")
		lg.Warn().Err(err).Msg("webhook: undecodable update")
		ok(c, http.StatusOK, gin.H{"ok": true})
		return
	}

	// Lookup workers outlive the request; the dispatcher must not be cut
	// short by Telegram closing the connection.
	ctx := context.WithoutCancel(c.Request.Context())
	if err := h.bot.HandleUpdate(ctx, upd); err != nil {
		middleware.ObserveWebhook("failed")
		lg.Error().Err(err).Int64("update_id", upd.UpdateID).Msg("webhook: update not handled")
	} else {
		middleware.ObserveWebhook("handled")
	}
	ok(c, http.StatusOK, gin.H{"ok": true})
}

func (h *Handlers) validWebhookSecret(c *gin.Context) bool {
	want := []byte(h.webhookSecret)
	for _, got := range []string{c.Param("secret"), c.GetHeader(HeaderTelegramSecret)} {
		if got != "" && subtle.ConstantTimeCompare([]byte(got), want) == 1 {
			return true
		}
	}
	return false
}
