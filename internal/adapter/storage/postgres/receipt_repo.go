package postgres

import (
	"context"
	"errors"
	"fmt"

	"marketplace-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ReceiptRepo implements ports.ReceiptRepository.
type ReceiptRepo struct {
	pool Pool
}

// NewReceiptRepo creates a new ReceiptRepo.
func NewReceiptRepo(pool Pool) *ReceiptRepo {
	return &ReceiptRepo{pool: pool}
}

const receiptColumns = `id, listing_id, minter, recipient, reference_id, quantity, currency, unit_price, total, fee, vendor_share, created_at`

// Create inserts a mint receipt within the settlement transaction.
func (r *ReceiptRepo) Create(ctx context.Context, tx pgx.Tx, receipt *domain.MintReceipt) error {
	query := `INSERT INTO mint_receipts (` + receiptColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := tx.Exec(ctx, query,
		receipt.ID, receipt.ListingID, receipt.Minter, receipt.Recipient,
		receipt.ReferenceID, receipt.Quantity, receipt.Currency,
		receipt.UnitPrice, receipt.Total, receipt.Fee, receipt.VendorShare,
		receipt.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert mint receipt: %w", err)
	}
	return nil
}

// GetByID fetches a receipt.
func (r *ReceiptRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.MintReceipt, error) {
	query := `SELECT ` + receiptColumns + ` FROM mint_receipts WHERE id = $1`

	receipt := &domain.MintReceipt{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&receipt.ID, &receipt.ListingID, &receipt.Minter, &receipt.Recipient,
		&receipt.ReferenceID, &receipt.Quantity, &receipt.Currency,
		&receipt.UnitPrice, &receipt.Total, &receipt.Fee, &receipt.VendorShare,
		&receipt.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get mint receipt: %w", err)
	}
	return receipt, nil
}

// ListByListing fetches the most recent receipts of a listing.
func (r *ReceiptRepo) ListByListing(ctx context.Context, listingID int64, limit int) ([]domain.MintReceipt, error) {
	query := `SELECT ` + receiptColumns + ` FROM mint_receipts
		WHERE listing_id = $1 ORDER BY created_at DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, listingID, limit)
	if err != nil {
		return nil, fmt.Errorf("list mint receipts: %w", err)
	}
	defer rows.Close()

	var out []domain.MintReceipt
	for rows.Next() {
		var receipt domain.MintReceipt
		if err := rows.Scan(
			&receipt.ID, &receipt.ListingID, &receipt.Minter, &receipt.Recipient,
			&receipt.ReferenceID, &receipt.Quantity, &receipt.Currency,
			&receipt.UnitPrice, &receipt.Total, &receipt.Fee, &receipt.VendorShare,
			&receipt.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan mint receipt: %w", err)
		}
		out = append(out, receipt)
	}
	return out, rows.Err()
}
