package domain

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// MintReceipt is the immutable record of a committed mint.
type MintReceipt struct {
	ID          uuid.UUID `json:"id"`
	ListingID   int64     `json:"listing_id"`
	Minter      uuid.UUID `json:"minter"`
	Recipient   uuid.UUID `json:"recipient"`
	ReferenceID string    `json:"reference_id"`
	Quantity    int64     `json:"quantity"`
	Currency    Currency  `json:"currency"`
	UnitPrice   int64     `json:"unit_price"`
	Total       int64     `json:"total"` // amount actually received into custody
	Fee         int64     `json:"fee"`
	VendorShare int64     `json:"vendor_share"`
	CreatedAt   time.Time `json:"created_at"`
}

// SplitFee divides a received total into the protocol fee and the vendor
// share. Floor division on the fee guarantees fee + share == total.
func SplitFee(total, feeNumerator int64) (fee, vendorShare int64) {
	fee = bpsOf(total, feeNumerator)
	return fee, total - fee
}

// bpsOf computes floor(amount * numerator / FeeDenominator) without the
// intermediate product, so amounts near MaxInt64 cannot wrap. Exact for
// amount >= 0 and 0 <= numerator <= FeeDenominator.
func bpsOf(amount, numerator int64) int64 {
	q, r := amount/FeeDenominator, amount%FeeDenominator
	return q*numerator + r*numerator/FeeDenominator
}

// BuildMintIdempotencyKey constructs the replay-detection key for a mint.
func BuildMintIdempotencyKey(minter uuid.UUID, listingID int64, referenceID string) string {
	return minter.String() + ":" + strconv.FormatInt(listingID, 10) + ":" + referenceID
}

// IdempotencyLog represents a cached mint result to prevent double-processing.
type IdempotencyLog struct {
	Key          string    `json:"key"` // Format: "minter:listing:reference_id"
	ReceiptID    uuid.UUID `json:"receipt_id"`
	ResponseJSON []byte    `json:"response_json"` // Cached response to return
	CreatedAt    time.Time `json:"created_at"`
}
