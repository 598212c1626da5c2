package domain

import (
	"time"

	"github.com/google/uuid"
)

// EscrowCell is the custody record for one (payee, currency) pair. Besides
// the live balance it carries lifetime totals so the conservation invariant
// is auditable directly from persisted state.
type EscrowCell struct {
	Payee          uuid.UUID `json:"payee"`
	Currency       Currency  `json:"currency"`
	Balance        int64     `json:"balance"`
	TotalDeposited int64     `json:"total_deposited"`
	TotalWithdrawn int64     `json:"total_withdrawn"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ConservationHolds reports whether the cell's lifetime accounting balances:
// everything ever deposited is either still held or already paid out.
func (c *EscrowCell) ConservationHolds() bool {
	return c.TotalDeposited == c.Balance+c.TotalWithdrawn
}
