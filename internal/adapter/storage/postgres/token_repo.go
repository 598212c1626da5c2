package postgres

import (
	"context"
	"errors"
	"fmt"

	"marketplace-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TokenRepo implements ports.TokenRepository: registered settlement
// currencies and per-account token balances, the native currency included.
type TokenRepo struct {
	pool Pool
}

// NewTokenRepo creates a new TokenRepo.
func NewTokenRepo(pool Pool) *TokenRepo {
	return &TokenRepo{pool: pool}
}

// CreateCurrency registers a settlement currency.
func (r *TokenRepo) CreateCurrency(ctx context.Context, c *domain.TokenCurrency) error {
	query := `INSERT INTO token_currencies (code, transfer_fee_bps, created_at) VALUES ($1, $2, NOW())`

	if _, err := r.pool.Exec(ctx, query, c.Code, c.TransferFeeBps); err != nil {
		return fmt.Errorf("insert token currency: %w", err)
	}
	return nil
}

// GetCurrency fetches a registered currency, nil when unknown.
func (r *TokenRepo) GetCurrency(ctx context.Context, code domain.Currency) (*domain.TokenCurrency, error) {
	query := `SELECT code, transfer_fee_bps, created_at FROM token_currencies WHERE code = $1`

	c := &domain.TokenCurrency{}
	err := r.pool.QueryRow(ctx, query, code).Scan(&c.Code, &c.TransferFeeBps, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get token currency: %w", err)
	}
	return c, nil
}

// Balance returns the account balance in a currency, 0 when absent.
func (r *TokenRepo) Balance(ctx context.Context, account uuid.UUID, currency domain.Currency) (int64, error) {
	return r.balance(ctx, r.pool, account, currency)
}

// BalanceTx reads the balance inside a transaction, so deltas measured
// around a settlement see that transaction's own writes.
func (r *TokenRepo) BalanceTx(ctx context.Context, tx pgx.Tx, account uuid.UUID, currency domain.Currency) (int64, error) {
	return r.balance(ctx, tx, account, currency)
}

// Credit adds amount to an account balance, creating the row on first use.
func (r *TokenRepo) Credit(ctx context.Context, tx pgx.Tx, account uuid.UUID, currency domain.Currency, amount int64) error {
	query := `INSERT INTO token_accounts (account, currency, balance, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (account, currency) DO UPDATE SET
			balance = token_accounts.balance + EXCLUDED.balance,
			updated_at = NOW()`

	if _, err := tx.Exec(ctx, query, account, currency, amount); err != nil {
		return fmt.Errorf("credit token account: %w", err)
	}
	return nil
}

// Debit subtracts amount from an account balance. It reports ok=false when
// the balance is insufficient; the guard in the WHERE clause makes overdraft
// impossible regardless of what the caller checked.
func (r *TokenRepo) Debit(ctx context.Context, tx pgx.Tx, account uuid.UUID, currency domain.Currency, amount int64) (bool, error) {
	query := `UPDATE token_accounts SET balance = balance - $1, updated_at = NOW()
		WHERE account = $2 AND currency = $3 AND balance >= $1`

	tag, err := tx.Exec(ctx, query, amount, account, currency)
	if err != nil {
		return false, fmt.Errorf("debit token account: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *TokenRepo) balance(ctx context.Context, q rowQuerier, account uuid.UUID, currency domain.Currency) (int64, error) {
	query := `SELECT balance FROM token_accounts WHERE account = $1 AND currency = $2`

	var balance int64
	err := q.QueryRow(ctx, query, account, currency).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("get token balance: %w", err)
	}
	return balance, nil
}
