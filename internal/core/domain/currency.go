package domain

import (
	"time"

	"github.com/google/uuid"
)

// Currency identifies a settlement unit. The sentinel CurrencyNative denotes
// the platform-native value unit settled as attached payment; any other code
// is an external fungible token ledger.
type Currency string

// CurrencyNative is the chain-native value sentinel.
const CurrencyNative Currency = "NATIVE"

// TreasuryAccount is the custody account holding settled funds between
// escrow deposit and withdrawal payout.
var TreasuryAccount = uuid.MustParse("00000000-0000-0000-0000-000000000001")

// IsNative reports whether c is the native value unit.
func (c Currency) IsNative() bool {
	return c == CurrencyNative
}

// TokenCurrency is a registered external fungible token. TransferFeeBps
// models fee-on-transfer behavior: each transfer burns that many basis
// points of the moved amount, so receivers must measure actual deltas
// instead of trusting nominal amounts.
type TokenCurrency struct {
	Code           Currency  `json:"code"`
	TransferFeeBps int64     `json:"transfer_fee_bps"`
	CreatedAt      time.Time `json:"created_at"`
}

// ReceivedAfterFee returns the amount a receiver is credited when amount
// units are transferred in this currency.
func (t *TokenCurrency) ReceivedAfterFee(amount int64) int64 {
	return amount - bpsOf(amount, t.TransferFeeBps)
}

// TokenAccount is one account's balance in one external token currency.
type TokenAccount struct {
	Account   uuid.UUID `json:"account"`
	Currency  Currency  `json:"currency"`
	Balance   int64     `json:"balance"`
	UpdatedAt time.Time `json:"updated_at"`
}
