package service

import (
	"context"
	"fmt"
	"time"

	"marketplace-engine/internal/core/domain"
	"marketplace-engine/internal/core/ports"
	"marketplace-engine/pkg/apperror"
	"marketplace-engine/pkg/merkle"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ListingServiceImpl implements ports.ListingService: the listing registry.
type ListingServiceImpl struct {
	listingRepo ports.ListingRepository
	priceRepo   ports.PriceRepository
	transactor  ports.DBTransactor
	log         zerolog.Logger
}

// NewListingService creates a new ListingServiceImpl.
func NewListingService(
	listingRepo ports.ListingRepository,
	priceRepo ports.PriceRepository,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *ListingServiceImpl {
	return &ListingServiceImpl{
		listingRepo: listingRepo,
		priceRepo:   priceRepo,
		transactor:  transactor,
		log:         log,
	}
}

// Create registers a new listing with supply 0 and allocates its id.
func (s *ListingServiceImpl) Create(ctx context.Context, req ports.CreateListingRequest) (*domain.Listing, error) {
	if req.Royalty < 0 || req.Royalty > domain.FeeDenominator {
		return nil, apperror.ErrRoyaltyExceedsDenominator()
	}
	if req.Limit < 0 {
		return nil, apperror.Validation("limit must not be negative")
	}
	if err := validateAllowRoot(req.AllowRoot); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	listing := &domain.Listing{
		Vendor:    req.Vendor,
		Config:    req.Config,
		Supply:    0,
		Limit:     req.Limit,
		AllowRoot: req.AllowRoot,
		Royalty:   req.Royalty,
		URI:       req.URI,
		CreatedAt: now,
		UpdatedAt: now,
	}

	id, err := s.listingRepo.Create(ctx, listing)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create listing: %w", err))
	}
	listing.ID = id

	s.log.Info().
		Int64("listing_id", id).
		Str("vendor", req.Vendor.String()).
		Uint32("config", uint32(req.Config)).
		Int64("limit", req.Limit).
		Msg("listing created")

	return listing, nil
}

// Configure replaces the listing's config, limit, allowlist root, and
// royalty. The listing row is locked so the lock predicate evaluates against
// a stable supply.
func (s *ListingServiceImpl) Configure(ctx context.Context, req ports.ConfigureListingRequest) (*domain.Listing, error) {
	if req.Royalty < 0 || req.Royalty > domain.FeeDenominator {
		return nil, apperror.ErrRoyaltyExceedsDenominator()
	}
	if req.Limit < 0 {
		return nil, apperror.Validation("limit must not be negative")
	}
	if err := validateAllowRoot(req.AllowRoot); err != nil {
		return nil, err
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	listing, err := s.listingRepo.GetByIDForUpdate(ctx, dbTx, req.ListingID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock listing: %w", err))
	}
	if listing == nil {
		return nil, apperror.ErrNotFound("listing")
	}
	if listing.Vendor != req.Actor {
		return nil, apperror.ErrNotVendor()
	}
	if req.Limit != 0 && req.Limit < listing.Supply {
		return nil, apperror.ErrLimitBelowSupply()
	}
	if !domain.CanReconfigure(listing.Config, req.Config, listing.Supply) {
		return nil, apperror.ErrConfigLocked()
	}

	if err := s.listingRepo.UpdateConfig(ctx, dbTx, req.ListingID, req.Config, req.Limit, req.AllowRoot, req.Royalty); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update config: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	listing.Config = req.Config
	listing.Limit = req.Limit
	listing.AllowRoot = req.AllowRoot
	listing.Royalty = req.Royalty

	s.log.Info().
		Int64("listing_id", req.ListingID).
		Uint32("config", uint32(req.Config)).
		Msg("listing reconfigured")

	return listing, nil
}

// TransferVendor reassigns administrative and payout rights.
func (s *ListingServiceImpl) TransferVendor(ctx context.Context, actor uuid.UUID, listingID int64, newVendor uuid.UUID) error {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	listing, err := s.listingRepo.GetByIDForUpdate(ctx, dbTx, listingID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("lock listing: %w", err))
	}
	if listing == nil {
		return apperror.ErrNotFound("listing")
	}
	if listing.Vendor != actor {
		return apperror.ErrNotVendor()
	}

	if err := s.listingRepo.UpdateVendor(ctx, dbTx, listingID, newVendor); err != nil {
		return apperror.InternalError(fmt.Errorf("update vendor: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Int64("listing_id", listingID).
		Str("new_vendor", newVendor.String()).
		Msg("vendor transferred")

	return nil
}

// UpdateURI changes the metadata pointer. The row lock keeps the vendor
// check and the write atomic against a concurrent vendor transfer.
func (s *ListingServiceImpl) UpdateURI(ctx context.Context, actor uuid.UUID, listingID int64, uri string) error {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	listing, err := s.listingRepo.GetByIDForUpdate(ctx, dbTx, listingID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("lock listing: %w", err))
	}
	if listing == nil {
		return apperror.ErrNotFound("listing")
	}
	if listing.Vendor != actor {
		return apperror.ErrNotVendor()
	}

	if err := s.listingRepo.UpdateURI(ctx, dbTx, listingID, uri); err != nil {
		return apperror.InternalError(fmt.Errorf("update uri: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	return nil
}

// SetPrice upserts the per-currency price. Zero clears the entry, taking the
// listing off sale in that currency. Runs under the listing row lock for the
// same reason as UpdateURI.
func (s *ListingServiceImpl) SetPrice(ctx context.Context, actor uuid.UUID, listingID int64, currency domain.Currency, price int64) error {
	if price < 0 {
		return apperror.Validation("price must not be negative")
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	listing, err := s.listingRepo.GetByIDForUpdate(ctx, dbTx, listingID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("lock listing: %w", err))
	}
	if listing == nil {
		return apperror.ErrNotFound("listing")
	}
	if listing.Vendor != actor {
		return apperror.ErrNotVendor()
	}

	if err := s.priceRepo.Set(ctx, dbTx, listingID, currency, price); err != nil {
		return apperror.InternalError(fmt.Errorf("set price: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Int64("listing_id", listingID).
		Str("currency", string(currency)).
		Int64("price", price).
		Msg("price updated")

	return nil
}

// Get returns the full listing record.
func (s *ListingServiceImpl) Get(ctx context.Context, listingID int64) (*domain.Listing, error) {
	listing, err := s.listingRepo.GetByID(ctx, listingID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get listing: %w", err))
	}
	if listing == nil {
		return nil, apperror.ErrNotFound("listing")
	}
	return listing, nil
}

// Price returns the listing's price in the given currency (0 = not for sale).
func (s *ListingServiceImpl) Price(ctx context.Context, listingID int64, currency domain.Currency) (int64, error) {
	if _, err := s.Get(ctx, listingID); err != nil {
		return 0, err
	}
	price, err := s.priceRepo.Get(ctx, listingID, currency)
	if err != nil {
		return 0, apperror.InternalError(fmt.Errorf("get price: %w", err))
	}
	return price, nil
}

// Prices returns every currency the listing is for sale in.
func (s *ListingServiceImpl) Prices(ctx context.Context, listingID int64) ([]domain.PriceEntry, error) {
	if _, err := s.Get(ctx, listingID); err != nil {
		return nil, err
	}
	entries, err := s.priceRepo.ListByListing(ctx, listingID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list prices: %w", err))
	}
	return entries, nil
}

// RoyaltyInfo reports the royalty receiver and amount for a sale price.
func (s *ListingServiceImpl) RoyaltyInfo(ctx context.Context, listingID int64, salePrice int64) (*ports.RoyaltyInfo, error) {
	if salePrice < 0 {
		return nil, apperror.Validation("sale price must not be negative")
	}
	listing, err := s.Get(ctx, listingID)
	if err != nil {
		return nil, err
	}
	return &ports.RoyaltyInfo{
		Receiver: listing.Vendor,
		Amount:   listing.RoyaltyAmount(salePrice),
	}, nil
}

// ListByVendor returns all listings administered by a vendor.
func (s *ListingServiceImpl) ListByVendor(ctx context.Context, vendor uuid.UUID) ([]domain.Listing, error) {
	listings, err := s.listingRepo.ListByVendor(ctx, vendor)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list by vendor: %w", err))
	}
	return listings, nil
}

// validateAllowRoot accepts "" (open) or a well-formed hex commitment.
func validateAllowRoot(root string) error {
	if root == "" {
		return nil
	}
	if _, ok := merkle.ParseHash(root); !ok {
		return apperror.Validation("allow root must be 32 bytes of hex")
	}
	return nil
}
