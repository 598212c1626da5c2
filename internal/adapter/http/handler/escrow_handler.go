package handler

import (
	"strings"

	"marketplace-engine/internal/adapter/http/dto"
	"marketplace-engine/internal/core/domain"
	"marketplace-engine/internal/core/ports"
	"marketplace-engine/pkg/apperror"
	"marketplace-engine/pkg/response"

	"github.com/gin-gonic/gin"
)

// EscrowHandler handles payee escrow endpoints. There is deliberately no
// deposit route; cells are credited only by the marketplace core during
// settlement.
type EscrowHandler struct {
	escrowSvc ports.EscrowService
}

// NewEscrowHandler creates a new EscrowHandler.
func NewEscrowHandler(escrowSvc ports.EscrowService) *EscrowHandler {
	return &EscrowHandler{escrowSvc: escrowSvc}
}

// Deposits handles GET /api/v1/escrow/:currency — the caller's withdrawable balance.
func (h *EscrowHandler) Deposits(c *gin.Context) {
	payee, ok := accountFromCtx(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}
	currency, err := currencyFromPath(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	balance, err := h.escrowSvc.DepositsOf(c.Request.Context(), payee, currency)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.EscrowResponse{
		Currency: string(currency),
		Balance:  balance,
	})
}

// Withdraw handles POST /api/v1/escrow/:currency/withdraw — pays out the
// caller's entire balance in the currency.
func (h *EscrowHandler) Withdraw(c *gin.Context) {
	payee, ok := accountFromCtx(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}
	currency, err := currencyFromPath(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	amount, err := h.escrowSvc.Withdraw(c.Request.Context(), payee, currency)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.WithdrawResponse{
		Currency: string(currency),
		Amount:   amount,
	})
}

// Totals handles GET /api/v1/escrow/:currency/totals — ledger-wide aggregates.
func (h *EscrowHandler) Totals(c *gin.Context) {
	currency, err := currencyFromPath(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	totals, err := h.escrowSvc.Totals(c.Request.Context(), currency)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.EscrowTotalsResponse{
		Currency:  string(totals.Currency),
		Balance:   totals.Balance,
		Deposited: totals.Deposited,
		Withdrawn: totals.Withdrawn,
	})
}

// currencyFromPath parses the :currency path parameter.
func currencyFromPath(c *gin.Context) (domain.Currency, error) {
	code := strings.ToUpper(strings.TrimSpace(c.Param("currency")))
	if code == "" || len(code) > 16 {
		return "", apperror.Validation("invalid currency")
	}
	return domain.Currency(code), nil
}
