package handler

import (
	"marketplace-engine/internal/adapter/http/dto"
	"marketplace-engine/internal/core/domain"
	"marketplace-engine/internal/core/ports"
	"marketplace-engine/pkg/apperror"
	"marketplace-engine/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TokenHandler handles token ledger administration and balance reads.
type TokenHandler struct {
	tokenLedger ports.TokenLedger
}

// NewTokenHandler creates a new TokenHandler.
func NewTokenHandler(tokenLedger ports.TokenLedger) *TokenHandler {
	return &TokenHandler{tokenLedger: tokenLedger}
}

// RegisterCurrency handles POST /api/v1/tokens.
func (h *TokenHandler) RegisterCurrency(c *gin.Context) {
	actor, ok := accountFromCtx(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.RegisterCurrencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	if err := h.tokenLedger.RegisterCurrency(c.Request.Context(), actor, domain.Currency(req.Code), req.TransferFeeBps); err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, gin.H{"code": req.Code, "transfer_fee_bps": req.TransferFeeBps})
}

// Topup handles POST /api/v1/tokens/topup.
func (h *TokenHandler) Topup(c *gin.Context) {
	actor, ok := accountFromCtx(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.TopupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	to, err := uuid.Parse(req.To)
	if err != nil {
		response.Error(c, apperror.Validation("invalid to"))
		return
	}

	if err := h.tokenLedger.Topup(c.Request.Context(), actor, to, domain.Currency(req.Currency), req.Amount); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"to": to.String(), "currency": req.Currency, "amount": req.Amount})
}

// Balance handles GET /api/v1/balances/:currency — the caller's balance.
func (h *TokenHandler) Balance(c *gin.Context) {
	account, ok := accountFromCtx(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}
	currency, err := currencyFromPath(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	balance, err := h.tokenLedger.BalanceOf(c.Request.Context(), account, currency)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.BalanceResponse{Currency: string(currency), Balance: balance})
}
