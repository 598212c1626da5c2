package domain

import (
	"time"

	"github.com/google/uuid"
)

// FeeDenominator is the fixed denominator for protocol fees and royalties.
const FeeDenominator = 10000

// ConfigFlags is the listing configuration bitmask. Flags are independent;
// post-issuance mutability is governed by CanReconfigure, never by ad hoc
// bit arithmetic at call sites.
type ConfigFlags uint32

const (
	// FlagPaused blocks all minting while set.
	FlagPaused ConfigFlags = 1 << 0
	// FlagFree makes mints cost nothing; prices are ignored.
	FlagFree ConfigFlags = 1 << 1
	// FlagSoulbound forbids transferring already-issued units.
	FlagSoulbound ConfigFlags = 1 << 2
	// FlagUnique caps every holder at one unit.
	FlagUnique ConfigFlags = 1 << 3
)

// Has reports whether all bits of flag are set.
func (f ConfigFlags) Has(flag ConfigFlags) bool {
	return f&flag == flag
}

// Listing is a sellable semi-fungible item class.
type Listing struct {
	ID        int64       `json:"id"`
	Vendor    uuid.UUID   `json:"vendor"`
	Config    ConfigFlags `json:"config"`
	Supply    int64       `json:"supply"`
	Limit     int64       `json:"limit"`      // 0 = unbounded
	AllowRoot string      `json:"allow_root"` // hex Merkle root, "" = open to all
	Royalty   int64       `json:"royalty"`    // numerator over FeeDenominator
	URI       string      `json:"uri"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// IsPaused reports whether minting is paused.
func (l *Listing) IsPaused() bool { return l.Config.Has(FlagPaused) }

// IsFree reports whether mints are free of charge.
func (l *Listing) IsFree() bool { return l.Config.Has(FlagFree) }

// IsSoulbound reports whether issued units are non-transferable.
func (l *Listing) IsSoulbound() bool { return l.Config.Has(FlagSoulbound) }

// IsUnique reports whether holders are capped at one unit.
func (l *Listing) IsUnique() bool { return l.Config.Has(FlagUnique) }

// Restricted reports whether an allowlist commitment gates minting.
func (l *Listing) Restricted() bool { return l.AllowRoot != "" }

// CanReconfigure is the config-transition predicate. Before any unit is
// issued every bit is mutable. Once supply > 0:
//   - SOULBOUND and UNIQUE may not be cleared (holders acquired under those
//     terms keep them),
//   - UNIQUE may not be newly set (existing holders may already own more
//     than one unit),
//   - SOULBOUND may still be newly set, and PAUSED/FREE stay freely
//     togglable.
func CanReconfigure(old, updated ConfigFlags, supply int64) bool {
	if supply == 0 {
		return true
	}
	if old.Has(FlagSoulbound) && !updated.Has(FlagSoulbound) {
		return false
	}
	if old.Has(FlagUnique) != updated.Has(FlagUnique) {
		return false
	}
	return true
}

// RoyaltyAmount computes the secondary-sale royalty owed on salePrice.
func (l *Listing) RoyaltyAmount(salePrice int64) int64 {
	return bpsOf(salePrice, l.Royalty)
}

// PriceEntry is a per-currency sale price for a listing. A zero price means
// the listing is not for sale in that currency.
type PriceEntry struct {
	ListingID int64    `json:"listing_id"`
	Currency  Currency `json:"currency"`
	Price     int64    `json:"price"`
}
