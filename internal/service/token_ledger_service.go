package service

import (
	"context"
	"fmt"
	"strings"

	"marketplace-engine/internal/core/domain"
	"marketplace-engine/internal/core/ports"
	"marketplace-engine/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// TokenLedgerImpl implements ports.TokenLedger. Registering currencies and
// topping up accounts are owner-only administration; balance reads are open.
type TokenLedgerImpl struct {
	tokenRepo  ports.TokenRepository
	transactor ports.DBTransactor
	owner      uuid.UUID
	log        zerolog.Logger
}

// NewTokenLedger creates a new TokenLedgerImpl.
func NewTokenLedger(tokenRepo ports.TokenRepository, transactor ports.DBTransactor, owner uuid.UUID, log zerolog.Logger) *TokenLedgerImpl {
	return &TokenLedgerImpl{
		tokenRepo:  tokenRepo,
		transactor: transactor,
		owner:      owner,
		log:        log,
	}
}

// RegisterCurrency adds a settlement currency with its transfer fee.
func (s *TokenLedgerImpl) RegisterCurrency(ctx context.Context, actor uuid.UUID, code domain.Currency, transferFeeBps int64) error {
	if actor != s.owner {
		return apperror.ErrNotOwner()
	}
	code = domain.Currency(strings.ToUpper(strings.TrimSpace(string(code))))
	if code == "" || code.IsNative() {
		return apperror.Validation("invalid currency code")
	}
	if transferFeeBps < 0 || transferFeeBps >= domain.FeeDenominator {
		return apperror.Validation("transfer fee out of range")
	}

	existing, err := s.tokenRepo.GetCurrency(ctx, code)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("get currency: %w", err))
	}
	if existing != nil {
		return apperror.Validation("currency already registered")
	}

	if err := s.tokenRepo.CreateCurrency(ctx, &domain.TokenCurrency{
		Code:           code,
		TransferFeeBps: transferFeeBps,
	}); err != nil {
		return apperror.InternalError(fmt.Errorf("create currency: %w", err))
	}

	s.log.Info().
		Str("currency", string(code)).
		Int64("transfer_fee_bps", transferFeeBps).
		Msg("currency registered")

	return nil
}

// Topup credits an account out of thin air. Owner-only faucet used to fund
// buyers with native value or registered tokens.
func (s *TokenLedgerImpl) Topup(ctx context.Context, actor uuid.UUID, to uuid.UUID, currency domain.Currency, amount int64) error {
	if actor != s.owner {
		return apperror.ErrNotOwner()
	}
	if amount <= 0 {
		return apperror.Validation("amount must be positive")
	}
	if !currency.IsNative() {
		cur, err := s.tokenRepo.GetCurrency(ctx, currency)
		if err != nil {
			return apperror.InternalError(fmt.Errorf("get currency: %w", err))
		}
		if cur == nil {
			return apperror.ErrInvalidCurrency()
		}
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.tokenRepo.Credit(ctx, dbTx, to, currency, amount); err != nil {
		return apperror.InternalError(fmt.Errorf("credit account: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("to", to.String()).
		Str("currency", string(currency)).
		Int64("amount", amount).
		Msg("account topped up")

	return nil
}

// BalanceOf returns the account balance in a currency, zero when absent.
func (s *TokenLedgerImpl) BalanceOf(ctx context.Context, account uuid.UUID, currency domain.Currency) (int64, error) {
	balance, err := s.tokenRepo.Balance(ctx, account, currency)
	if err != nil {
		return 0, apperror.InternalError(fmt.Errorf("get balance: %w", err))
	}
	return balance, nil
}
