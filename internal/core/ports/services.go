package ports

import (
	"context"
	"time"

	"marketplace-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// HashService handles password hashing (Argon2id).
type HashService interface {
	Hash(password string) (string, error)
	Verify(password string, hash string) (bool, error)
}

// TokenService handles JWT session token operations.
type TokenService interface {
	Generate(accountID uuid.UUID) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	AccountID uuid.UUID
}

// MintGuard marks an idempotency key as in flight, so concurrent requests
// carrying the same reference never both reach settlement.
type MintGuard interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// IdempotencyCache is the Redis-layer mint replay check (fast path).
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // Returns cached response JSON or nil
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// --- Service Ports (Business Logic) ---

// ListingService defines the listing registry operations.
type ListingService interface {
	Create(ctx context.Context, req CreateListingRequest) (*domain.Listing, error)
	Configure(ctx context.Context, req ConfigureListingRequest) (*domain.Listing, error)
	TransferVendor(ctx context.Context, actor uuid.UUID, listingID int64, newVendor uuid.UUID) error
	UpdateURI(ctx context.Context, actor uuid.UUID, listingID int64, uri string) error
	SetPrice(ctx context.Context, actor uuid.UUID, listingID int64, currency domain.Currency, price int64) error
	Get(ctx context.Context, listingID int64) (*domain.Listing, error)
	Price(ctx context.Context, listingID int64, currency domain.Currency) (int64, error)
	Prices(ctx context.Context, listingID int64) ([]domain.PriceEntry, error)
	RoyaltyInfo(ctx context.Context, listingID int64, salePrice int64) (*RoyaltyInfo, error)
	ListByVendor(ctx context.Context, vendor uuid.UUID) ([]domain.Listing, error)
}

// CreateListingRequest holds validated input for listing creation.
type CreateListingRequest struct {
	Vendor    uuid.UUID
	Config    domain.ConfigFlags
	Limit     int64
	AllowRoot string
	Royalty   int64
	URI       string
}

// ConfigureListingRequest holds validated input for listing reconfiguration.
type ConfigureListingRequest struct {
	Actor     uuid.UUID
	ListingID int64
	Config    domain.ConfigFlags
	Limit     int64
	AllowRoot string
	Royalty   int64
}

// RoyaltyInfo reports who is owed what on a secondary sale.
type RoyaltyInfo struct {
	Receiver uuid.UUID `json:"receiver"`
	Amount   int64     `json:"amount"`
}

// MarketService is the marketplace core: access-gated minting and holder
// transfers of issued units.
type MarketService interface {
	Mint(ctx context.Context, req MintRequest) (*domain.MintReceipt, error)
	Transfer(ctx context.Context, req TransferRequest) error
	Receipt(ctx context.Context, id uuid.UUID) (*domain.MintReceipt, error)
	ReceiptsByListing(ctx context.Context, listingID int64, limit int) ([]domain.MintReceipt, error)
	HoldingsOf(ctx context.Context, holder uuid.UUID) ([]domain.Holding, error)
}

// MintRequest holds validated input for a mint.
type MintRequest struct {
	Minter      uuid.UUID
	ListingID   int64
	Recipient   uuid.UUID
	Quantity    int64
	Currency    domain.Currency
	Payment     int64 // attached native value; must be 0 unless Currency is native
	ReferenceID string
	Proof       []string // allowlist membership proof
}

// TransferRequest holds validated input for a holder-to-holder transfer.
type TransferRequest struct {
	From      uuid.UUID
	To        uuid.UUID
	ListingID int64
	Units     int64
}

// EscrowService defines the payee-facing escrow operations.
type EscrowService interface {
	DepositsOf(ctx context.Context, payee uuid.UUID, currency domain.Currency) (int64, error)
	Withdraw(ctx context.Context, payee uuid.UUID, currency domain.Currency) (int64, error)
	Totals(ctx context.Context, currency domain.Currency) (*EscrowTotals, error)
}

// EscrowDepositor is the deposit capability. The escrow ledger hands out
// exactly one at construction; only the marketplace core holds it, so no
// other caller can credit cells.
type EscrowDepositor interface {
	Deposit(ctx context.Context, tx pgx.Tx, payee uuid.UUID, currency domain.Currency, amount int64) error
}

// TokenLedger defines administration and reads for external token accounts.
// In-transaction pulls and payouts are not exposed here; they belong to the
// marketplace core and escrow ledger alone.
type TokenLedger interface {
	RegisterCurrency(ctx context.Context, actor uuid.UUID, code domain.Currency, transferFeeBps int64) error
	Topup(ctx context.Context, actor uuid.UUID, to uuid.UUID, currency domain.Currency, amount int64) error
	BalanceOf(ctx context.Context, account uuid.UUID, currency domain.Currency) (int64, error)
}

// AuthService defines authentication business logic.
type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (*domain.Account, error)
	Login(ctx context.Context, username, password string) (string, time.Time, error) // token, expiry, error
}

// RegisterRequest holds input for account registration.
type RegisterRequest struct {
	Username    string
	Password    string
	DisplayName string
}
