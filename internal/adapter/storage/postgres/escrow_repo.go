package postgres

import (
	"context"
	"errors"
	"fmt"

	"marketplace-engine/internal/core/domain"
	"marketplace-engine/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// EscrowRepo implements ports.EscrowRepository.
type EscrowRepo struct {
	pool Pool
}

// NewEscrowRepo creates a new EscrowRepo.
func NewEscrowRepo(pool Pool) *EscrowRepo {
	return &EscrowRepo{pool: pool}
}

const escrowColumns = `payee, currency, balance, total_deposited, total_withdrawn, updated_at`

// Get fetches an escrow cell (non-locking read).
func (r *EscrowRepo) Get(ctx context.Context, payee uuid.UUID, currency domain.Currency) (*domain.EscrowCell, error) {
	query := `SELECT ` + escrowColumns + ` FROM escrow_cells WHERE payee = $1 AND currency = $2`
	return scanEscrowCell(r.pool.QueryRow(ctx, query, payee, currency))
}

// GetForUpdate fetches an escrow cell with a row lock inside a transaction.
func (r *EscrowRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, payee uuid.UUID, currency domain.Currency) (*domain.EscrowCell, error) {
	query := `SELECT ` + escrowColumns + ` FROM escrow_cells WHERE payee = $1 AND currency = $2 FOR UPDATE`
	return scanEscrowCell(tx.QueryRow(ctx, query, payee, currency))
}

// Credit adds amount to a cell's balance and lifetime deposits, creating the
// cell on first use.
func (r *EscrowRepo) Credit(ctx context.Context, tx pgx.Tx, payee uuid.UUID, currency domain.Currency, amount int64) error {
	query := `INSERT INTO escrow_cells (payee, currency, balance, total_deposited, total_withdrawn, updated_at)
		VALUES ($1, $2, $3, $3, 0, NOW())
		ON CONFLICT (payee, currency) DO UPDATE SET
			balance = escrow_cells.balance + EXCLUDED.balance,
			total_deposited = escrow_cells.total_deposited + EXCLUDED.balance,
			updated_at = NOW()`

	if _, err := tx.Exec(ctx, query, payee, currency, amount); err != nil {
		return fmt.Errorf("credit escrow cell: %w", err)
	}
	return nil
}

// Withdraw zeroes a cell's balance and adds amount to lifetime withdrawals.
// The caller passes the balance it observed under the row lock.
func (r *EscrowRepo) Withdraw(ctx context.Context, tx pgx.Tx, payee uuid.UUID, currency domain.Currency, amount int64) error {
	query := `UPDATE escrow_cells SET balance = 0, total_withdrawn = total_withdrawn + $1, updated_at = NOW()
		WHERE payee = $2 AND currency = $3 AND balance = $1`

	tag, err := tx.Exec(ctx, query, amount, payee, currency)
	if err != nil {
		return fmt.Errorf("withdraw escrow cell: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("escrow cell balance changed under lock")
	}
	return nil
}

// TotalsByCurrency aggregates lifetime accounting across all cells of a
// currency.
func (r *EscrowRepo) TotalsByCurrency(ctx context.Context, currency domain.Currency) (*ports.EscrowTotals, error) {
	query := `SELECT COALESCE(SUM(balance), 0), COALESCE(SUM(total_deposited), 0), COALESCE(SUM(total_withdrawn), 0)
		FROM escrow_cells WHERE currency = $1`

	totals := &ports.EscrowTotals{Currency: currency}
	err := r.pool.QueryRow(ctx, query, currency).Scan(&totals.Balance, &totals.Deposited, &totals.Withdrawn)
	if err != nil {
		return nil, fmt.Errorf("escrow totals: %w", err)
	}
	return totals, nil
}

func scanEscrowCell(row pgx.Row) (*domain.EscrowCell, error) {
	c := &domain.EscrowCell{}
	err := row.Scan(&c.Payee, &c.Currency, &c.Balance, &c.TotalDeposited, &c.TotalWithdrawn, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get escrow cell: %w", err)
	}
	return c, nil
}
