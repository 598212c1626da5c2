package domain

import (
	"time"

	"github.com/google/uuid"
)

// AccountStatus represents the state of an account.
type AccountStatus string

const (
	AccountStatusActive    AccountStatus = "ACTIVE"
	AccountStatusSuspended AccountStatus = "SUSPENDED"
)

// Account is a registered marketplace participant. Vendors, minters, and the
// protocol owner are all accounts.
type Account struct {
	ID           uuid.UUID     `json:"id"`
	Username     string        `json:"username"`
	PasswordHash string        `json:"-"` // Never expose
	DisplayName  string        `json:"display_name"`
	Status       AccountStatus `json:"status"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// IsActive returns true if the account may act.
func (a *Account) IsActive() bool {
	return a.Status == AccountStatusActive
}
