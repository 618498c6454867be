package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetBalance godoc
// @ID          getBalance
// @Summary     Credit balance
// @Description Returns granted, consumed and available credits. The account is created on first contact.
// @Tags        Balance
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "User ID"  example(123456789)
//
// @Success     200  {object}  services.Balance
// @Failure     401  {object}  handlers.ErrorResponse  "Missing X-User-ID"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /balance [get]
func (h *Handlers) GetBalance(c *gin.Context) {
	b, err := h.ledger.Balance(c.Request.Context(), userID(c))
	if err != nil {
		failService(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, b)
}

