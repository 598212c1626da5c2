package dto

// RegisterRequest is the request body for account registration.
type RegisterRequest struct {
	Username    string `json:"username" binding:"required,min=3,max=50,safe_id"`
	Password    string `json:"password" binding:"required,min=8,max=128"`
	DisplayName string `json:"display_name" binding:"required,min=1,max=100"`
}

// LoginRequest is the request body for account login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RegisterResponse is the response body for successful registration.
type RegisterResponse struct {
	AccountID string `json:"account_id"`
	Username  string `json:"username"`
}

// LoginResponse is the response body for successful login.
type LoginResponse struct {
	Token  string `json:"token"`
	Expiry int64  `json:"expiry"` // Unix timestamp
}

// CreateListingRequest is the request body for listing creation.
// Config is the raw flag bitmask; limit 0 means unbounded and an empty
// allow_root leaves minting open to everyone.
type CreateListingRequest struct {
	Config    uint32 `json:"config"`
	Limit     int64  `json:"limit" binding:"gte=0"`
	AllowRoot string `json:"allow_root,omitempty" binding:"omitempty,len=64,hexadecimal"`
	Royalty   int64  `json:"royalty" binding:"gte=0"`
	URI       string `json:"uri,omitempty" binding:"max=512"`
}

// ConfigureListingRequest is the request body for listing reconfiguration.
type ConfigureListingRequest struct {
	Config    uint32 `json:"config"`
	Limit     int64  `json:"limit" binding:"gte=0"`
	AllowRoot string `json:"allow_root,omitempty" binding:"omitempty,len=64,hexadecimal"`
	Royalty   int64  `json:"royalty" binding:"gte=0"`
}

// TransferVendorRequest is the request body for handing a listing to a new vendor.
type TransferVendorRequest struct {
	NewVendor string `json:"new_vendor" binding:"required,uuid"`
}

// UpdateURIRequest is the request body for replacing a listing's metadata URI.
type UpdateURIRequest struct {
	URI string `json:"uri" binding:"required,max=512"`
}

// SetPriceRequest is the request body for pricing a listing in one currency.
// A zero price removes the currency from the listing's price list.
type SetPriceRequest struct {
	Currency string `json:"currency" binding:"required,max=16,safe_id"`
	Price    int64  `json:"price" binding:"gte=0"`
}

// MintRequest is the request body for minting units of a listing.
// Recipient defaults to the authenticated minter when omitted. Payment is
// the attached native value and must be zero unless the currency is native.
type MintRequest struct {
	Recipient   *string  `json:"recipient,omitempty" binding:"omitempty,uuid"`
	Quantity    int64    `json:"quantity" binding:"required,gt=0,lte=10000"`
	Currency    string   `json:"currency,omitempty" binding:"omitempty,max=16,safe_id"`
	Payment     int64    `json:"payment" binding:"gte=0"`
	ReferenceID string   `json:"reference_id" binding:"required,max=100,safe_id"`
	Proof       []string `json:"proof,omitempty" binding:"omitempty,dive,len=64,hexadecimal"`
}

// TransferRequest is the request body for a holder-to-holder transfer.
type TransferRequest struct {
	To    string `json:"to" binding:"required,uuid"`
	Units int64  `json:"units" binding:"required,gt=0"`
}

// RegisterCurrencyRequest is the request body for registering an external token currency.
type RegisterCurrencyRequest struct {
	Code           string `json:"code" binding:"required,min=2,max=16,safe_id"`
	TransferFeeBps int64  `json:"transfer_fee_bps" binding:"gte=0"`
}

// TopupRequest is the request body for crediting a token or native balance.
type TopupRequest struct {
	To       string `json:"to" binding:"required,uuid"`
	Currency string `json:"currency" binding:"required,max=16,safe_id"`
	Amount   int64  `json:"amount" binding:"required,gt=0"`
}

// ListingResponse is the response body for listing reads.
type ListingResponse struct {
	ID        int64  `json:"id"`
	Vendor    string `json:"vendor"`
	Config    uint32 `json:"config"`
	Supply    int64  `json:"supply"`
	Limit     int64  `json:"limit"`
	AllowRoot string `json:"allow_root,omitempty"`
	Royalty   int64  `json:"royalty"`
	URI       string `json:"uri,omitempty"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// PriceResponse is one priced currency of a listing.
type PriceResponse struct {
	Currency string `json:"currency"`
	Price    int64  `json:"price"`
}

// RoyaltyResponse reports who is owed what on a secondary sale.
type RoyaltyResponse struct {
	Receiver string `json:"receiver"`
	Amount   int64  `json:"amount"`
}

// MintReceiptResponse is the response body for a completed mint.
type MintReceiptResponse struct {
	ID          string `json:"id"`
	ListingID   int64  `json:"listing_id"`
	Minter      string `json:"minter"`
	Recipient   string `json:"recipient"`
	ReferenceID string `json:"reference_id"`
	Quantity    int64  `json:"quantity"`
	Currency    string `json:"currency"`
	UnitPrice   int64  `json:"unit_price"`
	Total       int64  `json:"total"`
	Fee         int64  `json:"fee"`
	VendorShare int64  `json:"vendor_share"`
	CreatedAt   string `json:"created_at"`
}

// HoldingResponse is one listing position of a holder.
type HoldingResponse struct {
	ListingID int64 `json:"listing_id"`
	Units     int64 `json:"units"`
}

// BalanceResponse is the response for a balance query.
type BalanceResponse struct {
	Balance  int64  `json:"balance"`
	Currency string `json:"currency"`
}

// EscrowResponse is the response for an escrow cell query.
type EscrowResponse struct {
	Currency       string `json:"currency"`
	Balance        int64  `json:"balance"`
	TotalDeposited int64  `json:"total_deposited,omitempty"`
	TotalWithdrawn int64  `json:"total_withdrawn,omitempty"`
}

// WithdrawResponse is the response for a successful escrow withdrawal.
type WithdrawResponse struct {
	Currency string `json:"currency"`
	Amount   int64  `json:"amount"`
}

// EscrowTotalsResponse aggregates the ledger across all cells of a currency.
type EscrowTotalsResponse struct {
	Currency  string `json:"currency"`
	Balance   int64  `json:"balance"`
	Deposited int64  `json:"deposited"`
	Withdrawn int64  `json:"withdrawn"`
}
