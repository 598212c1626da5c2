package ports

import (
	"context"

	"marketplace-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AccountRepository defines persistence operations for accounts.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	GetByUsername(ctx context.Context, username string) (*domain.Account, error)
}

// ListingRepository defines persistence operations for listings.
// Methods accepting pgx.Tx are used inside transaction blocks; the listing
// row lock is what serializes mint, configure, and transfer on the same id.
type ListingRepository interface {
	Create(ctx context.Context, listing *domain.Listing) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.Listing, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*domain.Listing, error)
	UpdateConfig(ctx context.Context, tx pgx.Tx, id int64, config domain.ConfigFlags, limit int64, allowRoot string, royalty int64) error
	UpdateVendor(ctx context.Context, tx pgx.Tx, id int64, newVendor uuid.UUID) error
	UpdateURI(ctx context.Context, tx pgx.Tx, id int64, uri string) error
	IncrementSupply(ctx context.Context, tx pgx.Tx, id int64, delta int64) error
	ListByVendor(ctx context.Context, vendor uuid.UUID) ([]domain.Listing, error)
}

// PriceRepository defines persistence for per-currency listing prices.
// Set runs inside the caller's transaction so writes serialize behind the
// listing row lock.
type PriceRepository interface {
	// Set upserts the price; a zero price removes the entry.
	Set(ctx context.Context, tx pgx.Tx, listingID int64, currency domain.Currency, price int64) error
	// Get returns 0 when the listing has no price in the currency.
	Get(ctx context.Context, listingID int64, currency domain.Currency) (int64, error)
	ListByListing(ctx context.Context, listingID int64) ([]domain.PriceEntry, error)
}

// EscrowTotals aggregates lifetime escrow accounting for one currency.
type EscrowTotals struct {
	Currency  domain.Currency
	Balance   int64
	Deposited int64
	Withdrawn int64
}

// EscrowRepository defines persistence for escrow cells.
type EscrowRepository interface {
	Get(ctx context.Context, payee uuid.UUID, currency domain.Currency) (*domain.EscrowCell, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, payee uuid.UUID, currency domain.Currency) (*domain.EscrowCell, error)
	// Credit upserts the cell, adding amount to balance and total_deposited.
	Credit(ctx context.Context, tx pgx.Tx, payee uuid.UUID, currency domain.Currency, amount int64) error
	// Withdraw zeroes the balance and adds amount to total_withdrawn.
	Withdraw(ctx context.Context, tx pgx.Tx, payee uuid.UUID, currency domain.Currency, amount int64) error
	TotalsByCurrency(ctx context.Context, currency domain.Currency) (*EscrowTotals, error)
}

// HoldingRepository defines persistence for ownership records.
type HoldingRepository interface {
	Get(ctx context.Context, holder uuid.UUID, listingID int64) (*domain.Holding, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, holder uuid.UUID, listingID int64) (*domain.Holding, error)
	Add(ctx context.Context, tx pgx.Tx, holder uuid.UUID, listingID int64, units int64) error
	Sub(ctx context.Context, tx pgx.Tx, holder uuid.UUID, listingID int64, units int64) error
	ListByHolder(ctx context.Context, holder uuid.UUID) ([]domain.Holding, error)
}

// TokenRepository defines persistence for external token currencies and
// per-account token balances. Debit reports ok=false when the account lacks
// funds, so callers can distinguish business failure from storage failure.
type TokenRepository interface {
	CreateCurrency(ctx context.Context, currency *domain.TokenCurrency) error
	GetCurrency(ctx context.Context, code domain.Currency) (*domain.TokenCurrency, error)
	Balance(ctx context.Context, account uuid.UUID, currency domain.Currency) (int64, error)
	BalanceTx(ctx context.Context, tx pgx.Tx, account uuid.UUID, currency domain.Currency) (int64, error)
	Credit(ctx context.Context, tx pgx.Tx, account uuid.UUID, currency domain.Currency, amount int64) error
	Debit(ctx context.Context, tx pgx.Tx, account uuid.UUID, currency domain.Currency, amount int64) (bool, error)
}

// ReceiptRepository defines persistence for mint receipts.
type ReceiptRepository interface {
	Create(ctx context.Context, tx pgx.Tx, receipt *domain.MintReceipt) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.MintReceipt, error)
	ListByListing(ctx context.Context, listingID int64, limit int) ([]domain.MintReceipt, error)
}

// IdempotencyRepository defines persistence for mint idempotency logs (DB backup).
type IdempotencyRepository interface {
	Create(ctx context.Context, tx pgx.Tx, log *domain.IdempotencyLog) error
	Get(ctx context.Context, key string) (*domain.IdempotencyLog, error)
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
