package postgres

import (
	"context"
	"errors"
	"fmt"

	"marketplace-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ListingRepo implements ports.ListingRepository.
type ListingRepo struct {
	pool Pool
}

// NewListingRepo creates a new ListingRepo.
func NewListingRepo(pool Pool) *ListingRepo {
	return &ListingRepo{pool: pool}
}

const listingColumns = `id, vendor, config, supply, mint_limit, allow_root, royalty, uri, created_at, updated_at`

// Create inserts a new listing and returns its assigned id.
func (r *ListingRepo) Create(ctx context.Context, l *domain.Listing) (int64, error) {
	query := `INSERT INTO listings (vendor, config, supply, mint_limit, allow_root, royalty, uri, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`

	var id int64
	err := r.pool.QueryRow(ctx, query,
		l.Vendor, l.Config, l.Supply, l.Limit, l.AllowRoot, l.Royalty, l.URI, l.CreatedAt, l.UpdatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert listing: %w", err)
	}
	return id, nil
}

// GetByID fetches a listing (non-locking read).
func (r *ListingRepo) GetByID(ctx context.Context, id int64) (*domain.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE id = $1`
	return scanListing(r.pool.QueryRow(ctx, query, id))
}

// GetByIDForUpdate fetches a listing with a row lock inside a transaction.
// The lock serializes every mutation touching the same listing.
func (r *ListingRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*domain.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE id = $1 FOR UPDATE`
	return scanListing(tx.QueryRow(ctx, query, id))
}

// UpdateConfig replaces the reconfigurable columns of a listing.
func (r *ListingRepo) UpdateConfig(ctx context.Context, tx pgx.Tx, id int64, config domain.ConfigFlags, limit int64, allowRoot string, royalty int64) error {
	query := `UPDATE listings SET config = $1, mint_limit = $2, allow_root = $3, royalty = $4, updated_at = NOW()
		WHERE id = $5`

	_, err := tx.Exec(ctx, query, config, limit, allowRoot, royalty, id)
	if err != nil {
		return fmt.Errorf("update listing config: %w", err)
	}
	return nil
}

// UpdateVendor reassigns listing control.
func (r *ListingRepo) UpdateVendor(ctx context.Context, tx pgx.Tx, id int64, newVendor uuid.UUID) error {
	query := `UPDATE listings SET vendor = $1, updated_at = NOW() WHERE id = $2`

	_, err := tx.Exec(ctx, query, newVendor, id)
	if err != nil {
		return fmt.Errorf("update listing vendor: %w", err)
	}
	return nil
}

// UpdateURI sets the metadata URI.
func (r *ListingRepo) UpdateURI(ctx context.Context, tx pgx.Tx, id int64, uri string) error {
	query := `UPDATE listings SET uri = $1, updated_at = NOW() WHERE id = $2`

	_, err := tx.Exec(ctx, query, uri, id)
	if err != nil {
		return fmt.Errorf("update listing uri: %w", err)
	}
	return nil
}

// IncrementSupply adds delta to the issued-unit count.
func (r *ListingRepo) IncrementSupply(ctx context.Context, tx pgx.Tx, id int64, delta int64) error {
	query := `UPDATE listings SET supply = supply + $1, updated_at = NOW() WHERE id = $2`

	_, err := tx.Exec(ctx, query, delta, id)
	if err != nil {
		return fmt.Errorf("increment listing supply: %w", err)
	}
	return nil
}

// ListByVendor fetches all listings controlled by a vendor.
func (r *ListingRepo) ListByVendor(ctx context.Context, vendor uuid.UUID) ([]domain.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE vendor = $1 ORDER BY id`

	rows, err := r.pool.Query(ctx, query, vendor)
	if err != nil {
		return nil, fmt.Errorf("list listings by vendor: %w", err)
	}
	defer rows.Close()

	var out []domain.Listing
	for rows.Next() {
		var l domain.Listing
		if err := rows.Scan(
			&l.ID, &l.Vendor, &l.Config, &l.Supply, &l.Limit,
			&l.AllowRoot, &l.Royalty, &l.URI, &l.CreatedAt, &l.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan listing: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func scanListing(row pgx.Row) (*domain.Listing, error) {
	l := &domain.Listing{}
	err := row.Scan(
		&l.ID, &l.Vendor, &l.Config, &l.Supply, &l.Limit,
		&l.AllowRoot, &l.Royalty, &l.URI, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get listing: %w", err)
	}
	return l, nil
}
