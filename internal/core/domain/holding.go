package domain

import (
	"time"

	"github.com/google/uuid"
)

// Holding is the ownership record: units of one listing held by one account.
type Holding struct {
	Holder    uuid.UUID `json:"holder"`
	ListingID int64     `json:"listing_id"`
	Units     int64     `json:"units"`
	UpdatedAt time.Time `json:"updated_at"`
}
