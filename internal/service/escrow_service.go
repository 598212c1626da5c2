package service

import (
	"context"
	"fmt"

	"marketplace-engine/internal/core/domain"
	"marketplace-engine/internal/core/ports"
	"marketplace-engine/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// EscrowServiceImpl implements ports.EscrowService: custody of sale proceeds
// keyed by (payee, currency).
//
// Deposits are not part of the public surface. NewEscrowService returns the
// single deposit capability; main hands it to the marketplace core and to
// nobody else, so no other caller can credit cells.
type EscrowServiceImpl struct {
	escrowRepo ports.EscrowRepository
	tokenRepo  ports.TokenRepository
	transactor ports.DBTransactor
	log        zerolog.Logger
}

// NewEscrowService creates the escrow ledger and its deposit capability.
func NewEscrowService(
	escrowRepo ports.EscrowRepository,
	tokenRepo ports.TokenRepository,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) (*EscrowServiceImpl, ports.EscrowDepositor) {
	svc := &EscrowServiceImpl{
		escrowRepo: escrowRepo,
		tokenRepo:  tokenRepo,
		transactor: transactor,
		log:        log,
	}
	return svc, &escrowDepositor{escrowRepo: escrowRepo}
}

// DepositsOf returns the accumulated, not-yet-withdrawn balance of a cell.
func (s *EscrowServiceImpl) DepositsOf(ctx context.Context, payee uuid.UUID, currency domain.Currency) (int64, error) {
	cell, err := s.escrowRepo.Get(ctx, payee, currency)
	if err != nil {
		return 0, apperror.InternalError(fmt.Errorf("get escrow cell: %w", err))
	}
	if cell == nil {
		return 0, nil
	}
	return cell.Balance, nil
}

// Withdraw pays out the full cell balance atomically. The cell is zeroed
// before the payout leg runs, so a re-entering withdrawal sees an empty cell.
func (s *EscrowServiceImpl) Withdraw(ctx context.Context, payee uuid.UUID, currency domain.Currency) (int64, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return 0, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	cell, err := s.escrowRepo.GetForUpdate(ctx, dbTx, payee, currency)
	if err != nil {
		return 0, apperror.InternalError(fmt.Errorf("lock escrow cell: %w", err))
	}
	if cell == nil || cell.Balance == 0 {
		return 0, apperror.ErrNothingToWithdraw()
	}
	amount := cell.Balance

	// Effects before interactions: zero the cell first.
	if err := s.escrowRepo.Withdraw(ctx, dbTx, payee, currency, amount); err != nil {
		return 0, apperror.InternalError(fmt.Errorf("zero escrow cell: %w", err))
	}

	// Payout leg: move custodied funds from the treasury to the payee.
	if err := s.payOut(ctx, dbTx, payee, currency, amount); err != nil {
		return 0, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return 0, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("payee", payee.String()).
		Str("currency", string(currency)).
		Int64("amount", amount).
		Msg("escrow withdrawn")

	return amount, nil
}

// Totals returns the lifetime conservation aggregate for a currency.
func (s *EscrowServiceImpl) Totals(ctx context.Context, currency domain.Currency) (*ports.EscrowTotals, error) {
	totals, err := s.escrowRepo.TotalsByCurrency(ctx, currency)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("escrow totals: %w", err))
	}
	return totals, nil
}

func (s *EscrowServiceImpl) payOut(ctx context.Context, tx pgx.Tx, payee uuid.UUID, currency domain.Currency, amount int64) error {
	ok, err := s.tokenRepo.Debit(ctx, tx, domain.TreasuryAccount, currency, amount)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("debit treasury: %w", err))
	}
	if !ok {
		// Custodied funds short of recorded balances means the conservation
		// invariant was broken upstream; refuse rather than mint value.
		return apperror.ErrTransferFailed()
	}

	received := amount
	if !currency.IsNative() {
		cur, err := s.tokenRepo.GetCurrency(ctx, currency)
		if err != nil {
			return apperror.InternalError(fmt.Errorf("get currency: %w", err))
		}
		if cur == nil {
			return apperror.ErrInvalidCurrency()
		}
		received = cur.ReceivedAfterFee(amount)
	}

	if err := s.tokenRepo.Credit(ctx, tx, payee, currency, received); err != nil {
		return apperror.InternalError(fmt.Errorf("credit payee: %w", err))
	}
	return nil
}

// escrowDepositor is the sole implementation of ports.EscrowDepositor.
type escrowDepositor struct {
	escrowRepo ports.EscrowRepository
}

// Deposit credits a cell inside the caller's transaction. Amounts are the
// measured received values; zero deposits are rejected.
func (d *escrowDepositor) Deposit(ctx context.Context, tx pgx.Tx, payee uuid.UUID, currency domain.Currency, amount int64) error {
	if amount <= 0 {
		return apperror.Validation("deposit amount must be positive")
	}
	if err := d.escrowRepo.Credit(ctx, tx, payee, currency, amount); err != nil {
		return apperror.InternalError(fmt.Errorf("credit escrow cell: %w", err))
	}
	return nil
}
