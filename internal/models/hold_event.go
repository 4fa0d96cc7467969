package models

import "time"

type HoldEventType string

const (
	HoldEventReserved  HoldEventType = "hold.reserved"
	HoldEventConfirmed HoldEventType = "hold.confirmed"
	HoldEventCancelled HoldEventType = "hold.cancelled"
	HoldEventExpired   HoldEventType = "hold.expired"
)

// HoldEvent is published whenever holds change state.
type HoldEvent struct {
	Type       HoldEventType `json:"type"`
	EventID    int64         `json:"event_id"`
	Tier       Tier          `json:"seat_type"`
	BuyerID    int64         `json:"user_id"`
	HoldIDs    []string      `json:"ticket_ids"`
	ExpiresAt  *time.Time    `json:"expires_at,omitempty"`
	OccurredAt time.Time     `json:"occurred_at"`
}

// NewHoldEvent builds an event describing holds that share event, tier and buyer.
func NewHoldEvent(typ HoldEventType, holds []Hold, at time.Time) HoldEvent {
	ev := HoldEvent{Type: typ, OccurredAt: at, HoldIDs: make([]string, 0, len(holds))}
	for i, h := range holds {
		if i == 0 {
			ev.EventID = h.EventID
			ev.Tier = h.Tier
			ev.BuyerID = h.BuyerID
			ev.ExpiresAt = h.ExpiresAt
		}
		ev.HoldIDs = append(ev.HoldIDs, h.ID)
	}
	return ev
}
