package models

import (
	"time"

	"github.com/uptrace/bun"
)

type HoldStatus string

const (
	HoldStatusReserved  HoldStatus = "RESERVED"
	HoldStatusConfirmed HoldStatus = "CONFIRMED"
	HoldStatusExpired   HoldStatus = "EXPIRED"
	HoldStatusCancelled HoldStatus = "CANCELLED"
)

// CommittedStatuses are the states that consume capacity.
var CommittedStatuses = []HoldStatus{HoldStatusReserved, HoldStatusConfirmed}

// IsTerminal reports whether no further transition can leave the status.
func (s HoldStatus) IsTerminal() bool {
	return s == HoldStatusConfirmed || s == HoldStatusExpired || s == HoldStatusCancelled
}

// Hold is one seat held or sold to a buyer. Holds are never deleted; expired
// and cancelled ones simply stop counting against capacity.
type Hold struct {
	bun.BaseModel `bun:"table:holds"`

	ID        string     `bun:"id,pk" json:"ticket_id"`
	EventID   int64      `bun:"event_id,notnull" json:"event_id"`
	BuyerID   int64      `bun:"buyer_id,notnull" json:"user_id"`
	Tier      Tier       `bun:"tier,notnull" json:"seat_type"`
	Quantity  int        `bun:"quantity,notnull" json:"quantity"`
	Status    HoldStatus `bun:"status,notnull" json:"status"`
	Amount    float64    `bun:"amount,notnull" json:"amount"`
	CreatedAt time.Time  `bun:"created_at,notnull" json:"booking_time"`
	ExpiresAt *time.Time `bun:"expires_at" json:"reservation_expiry,omitempty"`
	UpdatedAt time.Time  `bun:"updated_at,nullzero" json:"updated_at,omitempty"`
}

// ExpiredAt reports whether a RESERVED hold is past its deadline at now.
func (h *Hold) ExpiredAt(now time.Time) bool {
	return h.Status == HoldStatusReserved && h.ExpiresAt != nil && now.After(*h.ExpiresAt)
}
