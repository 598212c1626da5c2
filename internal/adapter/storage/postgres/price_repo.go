package postgres

import (
	"context"
	"errors"
	"fmt"

	"marketplace-engine/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// PriceRepo implements ports.PriceRepository.
type PriceRepo struct {
	pool Pool
}

// NewPriceRepo creates a new PriceRepo.
func NewPriceRepo(pool Pool) *PriceRepo {
	return &PriceRepo{pool: pool}
}

// Set upserts the per-currency price of a listing inside the caller's
// transaction. Zero removes the entry, so an unpriced currency and a deleted
// price are indistinguishable.
func (r *PriceRepo) Set(ctx context.Context, tx pgx.Tx, listingID int64, currency domain.Currency, price int64) error {
	if price == 0 {
		query := `DELETE FROM listing_prices WHERE listing_id = $1 AND currency = $2`
		if _, err := tx.Exec(ctx, query, listingID, currency); err != nil {
			return fmt.Errorf("delete listing price: %w", err)
		}
		return nil
	}

	query := `INSERT INTO listing_prices (listing_id, currency, price, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (listing_id, currency) DO UPDATE SET price = EXCLUDED.price, updated_at = NOW()`

	if _, err := tx.Exec(ctx, query, listingID, currency, price); err != nil {
		return fmt.Errorf("upsert listing price: %w", err)
	}
	return nil
}

// Get returns the listing price in a currency, 0 when none is set.
func (r *PriceRepo) Get(ctx context.Context, listingID int64, currency domain.Currency) (int64, error) {
	query := `SELECT price FROM listing_prices WHERE listing_id = $1 AND currency = $2`

	var price int64
	err := r.pool.QueryRow(ctx, query, listingID, currency).Scan(&price)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("get listing price: %w", err)
	}
	return price, nil
}

// ListByListing fetches every priced currency of a listing.
func (r *PriceRepo) ListByListing(ctx context.Context, listingID int64) ([]domain.PriceEntry, error) {
	query := `SELECT currency, price FROM listing_prices WHERE listing_id = $1 ORDER BY currency`

	rows, err := r.pool.Query(ctx, query, listingID)
	if err != nil {
		return nil, fmt.Errorf("list listing prices: %w", err)
	}
	defer rows.Close()

	var out []domain.PriceEntry
	for rows.Next() {
		var e domain.PriceEntry
		if err := rows.Scan(&e.Currency, &e.Price); err != nil {
			return nil, fmt.Errorf("scan listing price: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
