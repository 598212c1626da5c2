package service

import (
	"context"
	"fmt"

	"marketplace-engine/internal/core/domain"
	"marketplace-engine/internal/core/ports"
	"marketplace-engine/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// HoldingLedger is the multi-item ownership-count store. Every mutation runs
// the post-transfer hook before it is considered committed: uniqueness first,
// then the supply limit, then the supply increment. Callers supply the open
// transaction whose commit makes the mutation visible.
type HoldingLedger struct {
	holdingRepo ports.HoldingRepository
	listingRepo ports.ListingRepository
}

// NewHoldingLedger creates a new HoldingLedger.
func NewHoldingLedger(holdingRepo ports.HoldingRepository, listingRepo ports.ListingRepository) *HoldingLedger {
	return &HoldingLedger{
		holdingRepo: holdingRepo,
		listingRepo: listingRepo,
	}
}

// Mint issues units to a recipient and increments listing supply. The
// listing row must already be locked by the caller.
func (l *HoldingLedger) Mint(ctx context.Context, tx pgx.Tx, listing *domain.Listing, to uuid.UUID, units int64) error {
	if units < 1 {
		return apperror.Validation("quantity must be at least 1")
	}

	if err := l.holdingRepo.Add(ctx, tx, to, listing.ID, units); err != nil {
		return apperror.InternalError(fmt.Errorf("add holding: %w", err))
	}

	if err := l.checkAfterReceive(ctx, tx, listing, to); err != nil {
		return err
	}

	// Compared as remaining headroom so an oversized units cannot wrap the sum.
	if listing.Limit != 0 && units > listing.Limit-listing.Supply {
		return apperror.ErrSupplyLimitReached()
	}

	if err := l.listingRepo.IncrementSupply(ctx, tx, listing.ID, units); err != nil {
		return apperror.InternalError(fmt.Errorf("increment supply: %w", err))
	}
	listing.Supply += units

	return nil
}

// Transfer moves already-issued units between holders. Supply is unchanged.
// Soulbound listings reject every non-mint movement.
func (l *HoldingLedger) Transfer(ctx context.Context, tx pgx.Tx, listing *domain.Listing, from, to uuid.UUID, units int64) error {
	if units < 1 {
		return apperror.Validation("units must be at least 1")
	}
	if listing.IsSoulbound() {
		return apperror.ErrSoulbound()
	}

	holding, err := l.holdingRepo.GetForUpdate(ctx, tx, from, listing.ID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("lock holding: %w", err))
	}
	if holding == nil || holding.Units < units {
		return apperror.ErrInsufficientUnits()
	}

	if err := l.holdingRepo.Sub(ctx, tx, from, listing.ID, units); err != nil {
		return apperror.InternalError(fmt.Errorf("sub holding: %w", err))
	}
	if err := l.holdingRepo.Add(ctx, tx, to, listing.ID, units); err != nil {
		return apperror.InternalError(fmt.Errorf("add holding: %w", err))
	}

	return l.checkAfterReceive(ctx, tx, listing, to)
}

// BalanceOf returns the unit count a holder owns of a listing.
func (l *HoldingLedger) BalanceOf(ctx context.Context, holder uuid.UUID, listingID int64) (int64, error) {
	holding, err := l.holdingRepo.Get(ctx, holder, listingID)
	if err != nil {
		return 0, apperror.InternalError(fmt.Errorf("get holding: %w", err))
	}
	if holding == nil {
		return 0, nil
	}
	return holding.Units, nil
}

// ListByHolder returns every holding of an account.
func (l *HoldingLedger) ListByHolder(ctx context.Context, holder uuid.UUID) ([]domain.Holding, error) {
	holdings, err := l.holdingRepo.ListByHolder(ctx, holder)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list holdings: %w", err))
	}
	return holdings, nil
}

// checkAfterReceive enforces the UNIQUE cap on the receiver after mutation.
func (l *HoldingLedger) checkAfterReceive(ctx context.Context, tx pgx.Tx, listing *domain.Listing, to uuid.UUID) error {
	if !listing.IsUnique() {
		return nil
	}
	holding, err := l.holdingRepo.GetForUpdate(ctx, tx, to, listing.ID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("check unique: %w", err))
	}
	if holding != nil && holding.Units > 1 {
		return apperror.ErrUniqueViolation()
	}
	return nil
}
