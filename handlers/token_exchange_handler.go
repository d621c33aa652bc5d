// Package handlers contains the HTTP handlers for the exchange API.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pushbridge/pushbridge/errors"
	"github.com/pushbridge/pushbridge/services"
	"github.com/pushbridge/pushbridge/types"
)

type TokenExchangeHandler struct {
	exchangeService services.TokenExchangeService
}

func NewTokenExchangeHandler(exchangeService services.TokenExchangeService) *TokenExchangeHandler {
	return &TokenExchangeHandler{
		exchangeService: exchangeService,
	}
}

// ExchangeToken handles POST /v1/tokens/exchange. It converts the APNS device
// token in the request body into an FCM registration token.
func (h *TokenExchangeHandler) ExchangeToken(c *gin.Context) {
	var req types.TokenExchangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errors.ValidationFailed("device token is required", err.Error()))
		c.Abort()
		return
	}

	registrationToken, err := h.exchangeService.Exchange(c.Request.Context(), req.DeviceToken)
	if err != nil {
		_ = c.Error(err)
		c.Abort()
		return
	}

	c.JSON(http.StatusOK, types.TokenExchangeResponse{
		RegistrationToken: registrationToken,
	})
}
