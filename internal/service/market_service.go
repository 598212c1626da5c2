package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"marketplace-engine/internal/core/domain"
	"marketplace-engine/internal/core/ports"
	"marketplace-engine/pkg/apperror"
	"marketplace-engine/pkg/merkle"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

const (
	mintCacheTTL = 24 * time.Hour
	mintGuardTTL = 30 * time.Second

	// maxMintQuantity bounds a single mint so unit arithmetic on quantities
	// stays far from int64 wraparound.
	maxMintQuantity = 10_000
)

// MarketServiceImpl is the marketplace core. A mint runs gates, settlement,
// escrow crediting, and issuance inside one transaction holding the listing
// row lock, so concurrent operations on the same listing serialize and a
// failure at any step leaves nothing behind.
type MarketServiceImpl struct {
	listingRepo  ports.ListingRepository
	priceRepo    ports.PriceRepository
	tokenRepo    ports.TokenRepository
	receiptRepo  ports.ReceiptRepository
	idemRepo     ports.IdempotencyRepository
	cache        ports.IdempotencyCache
	guard        ports.MintGuard
	depositor    ports.EscrowDepositor
	holdings     *HoldingLedger
	transactor   ports.DBTransactor
	owner        uuid.UUID
	feeNumerator int64
	log          zerolog.Logger
}

// NewMarketService creates the marketplace core. The owner account receives
// the protocol fee cut; feeNumerator is in basis points of FeeDenominator.
func NewMarketService(
	listingRepo ports.ListingRepository,
	priceRepo ports.PriceRepository,
	tokenRepo ports.TokenRepository,
	receiptRepo ports.ReceiptRepository,
	idemRepo ports.IdempotencyRepository,
	cache ports.IdempotencyCache,
	guard ports.MintGuard,
	depositor ports.EscrowDepositor,
	holdings *HoldingLedger,
	transactor ports.DBTransactor,
	owner uuid.UUID,
	feeNumerator int64,
	log zerolog.Logger,
) *MarketServiceImpl {
	return &MarketServiceImpl{
		listingRepo:  listingRepo,
		priceRepo:    priceRepo,
		tokenRepo:    tokenRepo,
		receiptRepo:  receiptRepo,
		idemRepo:     idemRepo,
		cache:        cache,
		guard:        guard,
		depositor:    depositor,
		holdings:     holdings,
		transactor:   transactor,
		owner:        owner,
		feeNumerator: feeNumerator,
		log:          log,
	}
}

// Mint purchases units of a listing for the recipient. Replays of the same
// (minter, listing, reference) return the original receipt.
func (s *MarketServiceImpl) Mint(ctx context.Context, req ports.MintRequest) (*domain.MintReceipt, error) {
	if req.Quantity < 1 {
		return nil, apperror.Validation("quantity must be at least 1")
	}
	if req.Quantity > maxMintQuantity {
		return nil, apperror.Validation("quantity exceeds per-mint maximum")
	}
	if req.ReferenceID == "" {
		return nil, apperror.Validation("reference_id is required")
	}
	recipient := req.Recipient
	if recipient == uuid.Nil {
		recipient = req.Minter
	}

	key := domain.BuildMintIdempotencyKey(req.Minter, req.ListingID, req.ReferenceID)

	// Fast path: Redis cache of a committed result.
	if cached, err := s.cache.Get(ctx, key); err == nil && cached != nil {
		var receipt domain.MintReceipt
		if err := json.Unmarshal(cached, &receipt); err == nil {
			s.log.Info().Str("idempotency_key", key).Msg("mint replay served from cache")
			return &receipt, nil
		}
	}

	// Durable check: the idempotency log survives cache eviction.
	if entry, err := s.idemRepo.Get(ctx, key); err == nil && entry != nil {
		receipt, err := s.receiptRepo.GetByID(ctx, entry.ReceiptID)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("load replayed receipt: %w", err))
		}
		if receipt != nil {
			return receipt, nil
		}
	}

	// Claim the key so a concurrent duplicate cannot race us to settlement.
	acquired, err := s.guard.Acquire(ctx, key, mintGuardTTL)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("acquire mint guard: %w", err))
	}
	if !acquired {
		return nil, apperror.ErrMintInProgress()
	}
	defer s.guard.Release(ctx, key) //nolint:errcheck

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

	if err := s.checkGates(listing, req.Minter, req.Proof); err != nil {
		return nil, err
	}

	unitPrice, received, err := s.settle(ctx, dbTx, listing, req)
	if err != nil {
		return nil, err
	}

	fee, vendorShare := domain.SplitFee(received, s.feeNumerator)
	if fee > 0 {
		if err := s.depositor.Deposit(ctx, dbTx, s.owner, req.Currency, fee); err != nil {
			return nil, err
		}
	}
	if vendorShare > 0 {
		if err := s.depositor.Deposit(ctx, dbTx, listing.Vendor, req.Currency, vendorShare); err != nil {
			return nil, err
		}
	}

	if err := s.holdings.Mint(ctx, dbTx, listing, recipient, req.Quantity); err != nil {
		return nil, err
	}

	receipt := &domain.MintReceipt{
		ID:          uuid.New(),
		ListingID:   listing.ID,
		Minter:      req.Minter,
		Recipient:   recipient,
		ReferenceID: req.ReferenceID,
		Quantity:    req.Quantity,
		Currency:    req.Currency,
		UnitPrice:   unitPrice,
		Total:       received,
		Fee:         fee,
		VendorShare: vendorShare,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.receiptRepo.Create(ctx, dbTx, receipt); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create receipt: %w", err))
	}

	responseJSON, err := json.Marshal(receipt)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("marshal receipt: %w", err))
	}
	if err := s.idemRepo.Create(ctx, dbTx, &domain.IdempotencyLog{
		Key:          key,
		ReceiptID:    receipt.ID,
		ResponseJSON: responseJSON,
		CreatedAt:    receipt.CreatedAt,
	}); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create idempotency log: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	// Best effort; the DB log remains the source of truth.
	if err := s.cache.Set(ctx, key, responseJSON, mintCacheTTL); err != nil {
		s.log.Warn().Err(err).Str("idempotency_key", key).Msg("failed to cache mint result")
	}

	s.log.Info().
		Int64("listing_id", listing.ID).
		Str("minter", req.Minter.String()).
		Str("recipient", recipient.String()).
		Int64("quantity", req.Quantity).
		Str("currency", string(req.Currency)).
		Int64("received", received).
		Int64("fee", fee).
		Msg("mint committed")

	return receipt, nil
}

// Transfer moves issued units between holders under the listing lock.
func (s *MarketServiceImpl) Transfer(ctx context.Context, req ports.TransferRequest) error {
	if req.Units < 1 {
		return apperror.Validation("units must be at least 1")
	}
	if req.From == req.To {
		return apperror.Validation("cannot transfer to self")
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	listing, err := s.listingRepo.GetByIDForUpdate(ctx, dbTx, req.ListingID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("lock listing: %w", err))
	}
	if listing == nil {
		return apperror.ErrNotFound("listing")
	}

	if err := s.holdings.Transfer(ctx, dbTx, listing, req.From, req.To, req.Units); err != nil {
		return err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Int64("listing_id", req.ListingID).
		Str("from", req.From.String()).
		Str("to", req.To.String()).
		Int64("units", req.Units).
		Msg("units transferred")

	return nil
}

// Receipt looks up a mint receipt by ID.
func (s *MarketServiceImpl) Receipt(ctx context.Context, id uuid.UUID) (*domain.MintReceipt, error) {
	receipt, err := s.receiptRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get receipt: %w", err))
	}
	if receipt == nil {
		return nil, apperror.ErrNotFound("receipt")
	}
	return receipt, nil
}

// ReceiptsByListing returns the most recent receipts of a listing.
func (s *MarketServiceImpl) ReceiptsByListing(ctx context.Context, listingID int64, limit int) ([]domain.MintReceipt, error) {
	if limit < 1 || limit > 100 {
		limit = 50
	}
	receipts, err := s.receiptRepo.ListByListing(ctx, listingID, limit)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list receipts: %w", err))
	}
	return receipts, nil
}

// HoldingsOf returns every listing position of a holder.
func (s *MarketServiceImpl) HoldingsOf(ctx context.Context, holder uuid.UUID) ([]domain.Holding, error) {
	return s.holdings.ListByHolder(ctx, holder)
}

// checkGates enforces the pause and allowlist gates in that order.
func (s *MarketServiceImpl) checkGates(listing *domain.Listing, minter uuid.UUID, proof []string) error {
	if listing.IsPaused() {
		return apperror.ErrMintPaused()
	}
	if listing.Restricted() {
		if !merkle.Verify(listing.AllowRoot, merkle.Leaf(minter), proof) {
			return apperror.ErrNotAllowed()
		}
	}
	return nil
}

// settle pulls payment into custody and returns the unit price together with
// the amount actually received. Fee-on-transfer currencies can deliver less
// than was debited, so the received amount is measured, not assumed.
func (s *MarketServiceImpl) settle(ctx context.Context, tx pgx.Tx, listing *domain.Listing, req ports.MintRequest) (unitPrice, received int64, err error) {
	if listing.IsFree() {
		if req.Payment != 0 {
			return 0, 0, apperror.ErrUnexpectedPayment()
		}
		return 0, 0, nil
	}

	unitPrice, err = s.priceRepo.Get(ctx, req.ListingID, req.Currency)
	if err != nil {
		return 0, 0, apperror.InternalError(fmt.Errorf("get price: %w", err))
	}
	if unitPrice == 0 {
		return 0, 0, apperror.ErrInvalidCurrency()
	}
	total := unitPrice * req.Quantity
	if total/req.Quantity != unitPrice {
		return 0, 0, apperror.Validation("order total overflows")
	}

	if req.Currency.IsNative() {
		if req.Payment != total {
			return 0, 0, apperror.ErrIncorrectPayment()
		}
		ok, err := s.tokenRepo.Debit(ctx, tx, req.Minter, req.Currency, total)
		if err != nil {
			return 0, 0, apperror.InternalError(fmt.Errorf("debit minter: %w", err))
		}
		if !ok {
			return 0, 0, apperror.ErrTransferFailed()
		}
		if err := s.tokenRepo.Credit(ctx, tx, domain.TreasuryAccount, req.Currency, total); err != nil {
			return 0, 0, apperror.InternalError(fmt.Errorf("credit treasury: %w", err))
		}
		return unitPrice, total, nil
	}

	// Token settlement: no native value may ride along.
	if req.Payment != 0 {
		return 0, 0, apperror.ErrIncorrectPayment()
	}
	cur, err := s.tokenRepo.GetCurrency(ctx, req.Currency)
	if err != nil {
		return 0, 0, apperror.InternalError(fmt.Errorf("get currency: %w", err))
	}
	if cur == nil {
		return 0, 0, apperror.ErrInvalidCurrency()
	}

	before, err := s.tokenRepo.BalanceTx(ctx, tx, domain.TreasuryAccount, req.Currency)
	if err != nil {
		return 0, 0, apperror.InternalError(fmt.Errorf("treasury balance: %w", err))
	}
	ok, err := s.tokenRepo.Debit(ctx, tx, req.Minter, req.Currency, total)
	if err != nil {
		return 0, 0, apperror.InternalError(fmt.Errorf("debit minter: %w", err))
	}
	if !ok {
		return 0, 0, apperror.ErrTransferFailed()
	}
	if err := s.tokenRepo.Credit(ctx, tx, domain.TreasuryAccount, req.Currency, cur.ReceivedAfterFee(total)); err != nil {
		return 0, 0, apperror.InternalError(fmt.Errorf("credit treasury: %w", err))
	}
	after, err := s.tokenRepo.BalanceTx(ctx, tx, domain.TreasuryAccount, req.Currency)
	if err != nil {
		return 0, 0, apperror.InternalError(fmt.Errorf("treasury balance: %w", err))
	}

	return unitPrice, after - before, nil
}
