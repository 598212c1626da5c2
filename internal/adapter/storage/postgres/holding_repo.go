package postgres

import (
	"context"
	"errors"
	"fmt"

	"marketplace-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// HoldingRepo implements ports.HoldingRepository.
type HoldingRepo struct {
	pool Pool
}

// NewHoldingRepo creates a new HoldingRepo.
func NewHoldingRepo(pool Pool) *HoldingRepo {
	return &HoldingRepo{pool: pool}
}

// Get fetches a holding (non-locking read).
func (r *HoldingRepo) Get(ctx context.Context, holder uuid.UUID, listingID int64) (*domain.Holding, error) {
	query := `SELECT holder, listing_id, units, updated_at FROM holdings WHERE holder = $1 AND listing_id = $2`
	return scanHolding(r.pool.QueryRow(ctx, query, holder, listingID))
}

// GetForUpdate fetches a holding with a row lock inside a transaction.
func (r *HoldingRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, holder uuid.UUID, listingID int64) (*domain.Holding, error) {
	query := `SELECT holder, listing_id, units, updated_at FROM holdings WHERE holder = $1 AND listing_id = $2 FOR UPDATE`
	return scanHolding(tx.QueryRow(ctx, query, holder, listingID))
}

// Add credits units to a holder, creating the row on first receipt.
func (r *HoldingRepo) Add(ctx context.Context, tx pgx.Tx, holder uuid.UUID, listingID int64, units int64) error {
	query := `INSERT INTO holdings (holder, listing_id, units, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (holder, listing_id) DO UPDATE SET
			units = holdings.units + EXCLUDED.units,
			updated_at = NOW()`

	if _, err := tx.Exec(ctx, query, holder, listingID, units); err != nil {
		return fmt.Errorf("add holding units: %w", err)
	}
	return nil
}

// Sub debits units from a holder. The guard keeps units non-negative even if
// the caller's balance check raced.
func (r *HoldingRepo) Sub(ctx context.Context, tx pgx.Tx, holder uuid.UUID, listingID int64, units int64) error {
	query := `UPDATE holdings SET units = units - $1, updated_at = NOW()
		WHERE holder = $2 AND listing_id = $3 AND units >= $1`

	tag, err := tx.Exec(ctx, query, units, holder, listingID)
	if err != nil {
		return fmt.Errorf("sub holding units: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("insufficient holding units")
	}
	return nil
}

// ListByHolder fetches every non-empty holding of an account.
func (r *HoldingRepo) ListByHolder(ctx context.Context, holder uuid.UUID) ([]domain.Holding, error) {
	query := `SELECT holder, listing_id, units, updated_at FROM holdings
		WHERE holder = $1 AND units > 0 ORDER BY listing_id`

	rows, err := r.pool.Query(ctx, query, holder)
	if err != nil {
		return nil, fmt.Errorf("list holdings: %w", err)
	}
	defer rows.Close()

	var out []domain.Holding
	for rows.Next() {
		var h domain.Holding
		if err := rows.Scan(&h.Holder, &h.ListingID, &h.Units, &h.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan holding: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func scanHolding(row pgx.Row) (*domain.Holding, error) {
	h := &domain.Holding{}
	err := row.Scan(&h.Holder, &h.ListingID, &h.Units, &h.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get holding: %w", err)
	}
	return h, nil
}
