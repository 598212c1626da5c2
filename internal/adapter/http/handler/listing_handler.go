package handler

import (
	"strconv"

	"marketplace-engine/internal/adapter/http/dto"
	"marketplace-engine/internal/adapter/http/middleware"
	"marketplace-engine/internal/core/domain"
	"marketplace-engine/internal/core/ports"
	"marketplace-engine/pkg/apperror"
	"marketplace-engine/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ListingHandler handles listing registry endpoints.
type ListingHandler struct {
	listingSvc ports.ListingService
}

// NewListingHandler creates a new ListingHandler.
func NewListingHandler(listingSvc ports.ListingService) *ListingHandler {
	return &ListingHandler{listingSvc: listingSvc}
}

// Create handles POST /api/v1/listings.
func (h *ListingHandler) Create(c *gin.Context) {
	actor, ok := accountFromCtx(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.CreateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	listing, err := h.listingSvc.Create(c.Request.Context(), ports.CreateListingRequest{
		Vendor:    actor,
		Config:    domain.ConfigFlags(req.Config),
		Limit:     req.Limit,
		AllowRoot: req.AllowRoot,
		Royalty:   req.Royalty,
		URI:       req.URI,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toListingResponse(listing))
}

// Get handles GET /api/v1/listings/:id.
func (h *ListingHandler) Get(c *gin.Context) {
	listingID, err := listingIDFromPath(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	listing, err := h.listingSvc.Get(c.Request.Context(), listingID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toListingResponse(listing))
}

// Configure handles PUT /api/v1/listings/:id/config.
func (h *ListingHandler) Configure(c *gin.Context) {
	actor, ok := accountFromCtx(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}
	listingID, err := listingIDFromPath(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.ConfigureListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	listing, err := h.listingSvc.Configure(c.Request.Context(), ports.ConfigureListingRequest{
		Actor:     actor,
		ListingID: listingID,
		Config:    domain.ConfigFlags(req.Config),
		Limit:     req.Limit,
		AllowRoot: req.AllowRoot,
		Royalty:   req.Royalty,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toListingResponse(listing))
}

// TransferVendor handles PUT /api/v1/listings/:id/vendor.
func (h *ListingHandler) TransferVendor(c *gin.Context) {
	actor, ok := accountFromCtx(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}
	listingID, err := listingIDFromPath(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.TransferVendorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	newVendor, err := uuid.Parse(req.NewVendor)
	if err != nil {
		response.Error(c, apperror.Validation("invalid new_vendor"))
		return
	}

	if err := h.listingSvc.TransferVendor(c.Request.Context(), actor, listingID, newVendor); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"listing_id": listingID, "vendor": newVendor.String()})
}

// UpdateURI handles PUT /api/v1/listings/:id/uri.
func (h *ListingHandler) UpdateURI(c *gin.Context) {
	actor, ok := accountFromCtx(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}
	listingID, err := listingIDFromPath(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.UpdateURIRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	if err := h.listingSvc.UpdateURI(c.Request.Context(), actor, listingID, req.URI); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"listing_id": listingID, "uri": req.URI})
}

// SetPrice handles PUT /api/v1/listings/:id/price.
func (h *ListingHandler) SetPrice(c *gin.Context) {
	actor, ok := accountFromCtx(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}
	listingID, err := listingIDFromPath(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.SetPriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	if err := h.listingSvc.SetPrice(c.Request.Context(), actor, listingID, domain.Currency(req.Currency), req.Price); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.PriceResponse{Currency: req.Currency, Price: req.Price})
}

// Prices handles GET /api/v1/listings/:id/prices.
func (h *ListingHandler) Prices(c *gin.Context) {
	listingID, err := listingIDFromPath(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	prices, err := h.listingSvc.Prices(c.Request.Context(), listingID)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.PriceResponse, 0, len(prices))
	for _, p := range prices {
		items = append(items, dto.PriceResponse{Currency: string(p.Currency), Price: p.Price})
	}
	response.OK(c, items)
}

// Royalty handles GET /api/v1/listings/:id/royalty?sale_price=N.
func (h *ListingHandler) Royalty(c *gin.Context) {
	listingID, err := listingIDFromPath(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	salePrice, err := strconv.ParseInt(c.Query("sale_price"), 10, 64)
	if err != nil || salePrice < 0 {
		response.Error(c, apperror.Validation("sale_price must be a non-negative integer"))
		return
	}

	info, err := h.listingSvc.RoyaltyInfo(c.Request.Context(), listingID, salePrice)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.RoyaltyResponse{
		Receiver: info.Receiver.String(),
		Amount:   info.Amount,
	})
}

// Mine handles GET /api/v1/listings — listings of the authenticated vendor.
func (h *ListingHandler) Mine(c *gin.Context) {
	actor, ok := accountFromCtx(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	listings, err := h.listingSvc.ListByVendor(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.ListingResponse, 0, len(listings))
	for i := range listings {
		items = append(items, toListingResponse(&listings[i]))
	}
	response.OK(c, items)
}

// accountFromCtx extracts the authenticated account set by JWTAuth.
func accountFromCtx(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(middleware.CtxAccountID)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// listingIDFromPath parses the :id path parameter.
func listingIDFromPath(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, apperror.Validation("invalid listing id")
	}
	return id, nil
}

// toListingResponse converts domain.Listing to DTO.
func toListingResponse(l *domain.Listing) dto.ListingResponse {
	return dto.ListingResponse{
		ID:        l.ID,
		Vendor:    l.Vendor.String(),
		Config:    uint32(l.Config),
		Supply:    l.Supply,
		Limit:     l.Limit,
		AllowRoot: l.AllowRoot,
		Royalty:   l.Royalty,
		URI:       l.URI,
		CreatedAt: l.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt: l.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}
