package handler

import (
	"strconv"

	"marketplace-engine/internal/adapter/http/dto"
	"marketplace-engine/internal/core/domain"
	"marketplace-engine/internal/core/ports"
	"marketplace-engine/pkg/apperror"
	"marketplace-engine/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// MarketHandler handles minting and holder transfer endpoints.
type MarketHandler struct {
	marketSvc ports.MarketService
}

// NewMarketHandler creates a new MarketHandler.
func NewMarketHandler(marketSvc ports.MarketService) *MarketHandler {
	return &MarketHandler{marketSvc: marketSvc}
}

// Mint handles POST /api/v1/listings/:id/mint.
func (h *MarketHandler) Mint(c *gin.Context) {
	minter, ok := accountFromCtx(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}
	listingID, err := listingIDFromPath(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.MintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	recipient := uuid.Nil
	if req.Recipient != nil {
		recipient, err = uuid.Parse(*req.Recipient)
		if err != nil {
			response.Error(c, apperror.Validation("invalid recipient"))
			return
		}
	}

	currency := domain.CurrencyNative
	if req.Currency != "" {
		currency = domain.Currency(req.Currency)
	}

	receipt, err := h.marketSvc.Mint(c.Request.Context(), ports.MintRequest{
		Minter:      minter,
		ListingID:   listingID,
		Recipient:   recipient,
		Quantity:    req.Quantity,
		Currency:    currency,
		Payment:     req.Payment,
		ReferenceID: req.ReferenceID,
		Proof:       req.Proof,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toReceiptResponse(receipt))
}

// Transfer handles POST /api/v1/listings/:id/transfer.
func (h *MarketHandler) Transfer(c *gin.Context) {
	from, ok := accountFromCtx(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}
	listingID, err := listingIDFromPath(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	to, err := uuid.Parse(req.To)
	if err != nil {
		response.Error(c, apperror.Validation("invalid to"))
		return
	}

	if err := h.marketSvc.Transfer(c.Request.Context(), ports.TransferRequest{
		From:      from,
		To:        to,
		ListingID: listingID,
		Units:     req.Units,
	}); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"listing_id": listingID, "to": to.String(), "units": req.Units})
}

// Receipt handles GET /api/v1/receipts/:id.
func (h *MarketHandler) Receipt(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid receipt id"))
		return
	}

	receipt, err := h.marketSvc.Receipt(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toReceiptResponse(receipt))
}

// Receipts handles GET /api/v1/listings/:id/receipts?limit=N.
func (h *MarketHandler) Receipts(c *gin.Context) {
	listingID, err := listingIDFromPath(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	receipts, err := h.marketSvc.ReceiptsByListing(c.Request.Context(), listingID, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.MintReceiptResponse, 0, len(receipts))
	for i := range receipts {
		items = append(items, toReceiptResponse(&receipts[i]))
	}
	response.OK(c, items)
}

// Holdings handles GET /api/v1/holdings — positions of the authenticated account.
func (h *MarketHandler) Holdings(c *gin.Context) {
	holder, ok := accountFromCtx(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	holdings, err := h.marketSvc.HoldingsOf(c.Request.Context(), holder)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.HoldingResponse, 0, len(holdings))
	for _, hold := range holdings {
		items = append(items, dto.HoldingResponse{ListingID: hold.ListingID, Units: hold.Units})
	}
	response.OK(c, items)
}

// toReceiptResponse converts domain.MintReceipt to DTO.
func toReceiptResponse(r *domain.MintReceipt) dto.MintReceiptResponse {
	return dto.MintReceiptResponse{
		ID:          r.ID.String(),
		ListingID:   r.ListingID,
		Minter:      r.Minter.String(),
		Recipient:   r.Recipient.String(),
		ReferenceID: r.ReferenceID,
		Quantity:    r.Quantity,
		Currency:    string(r.Currency),
		UnitPrice:   r.UnitPrice,
		Total:       r.Total,
		Fee:         r.Fee,
		VendorShare: r.VendorShare,
		CreatedAt:   r.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}
