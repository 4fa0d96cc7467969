package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Event is a catalog entry: one scheduled show with a finite seat pool.
type Event struct {
	bun.BaseModel `bun:"table:events"`

	ID             int64        `bun:"id,pk,autoincrement" json:"id"`
	Name           string       `bun:"name,notnull" json:"name"`
	Artist         string       `bun:"artist" json:"artist"`
	Venue          string       `bun:"venue" json:"venue"`
	Genre          string       `bun:"genre" json:"genre"`
	Description    string       `bun:"description" json:"description"`
	ScheduledAt    time.Time    `bun:"scheduled_at,notnull" json:"scheduled_at"`
	MinPrice       float64      `bun:"min_price,notnull" json:"min_price"`
	Capacity       int          `bun:"capacity,notnull" json:"capacity"`
	TierCapacities map[Tier]int `bun:"tier_capacities,nullzero" json:"tier_capacities,omitempty"`
	CreatedAt      time.Time    `bun:"created_at,notnull" json:"created_at"`
}

// Price returns the per-seat amount charged for tier.
func (e *Event) Price(tier Tier) float64 {
	return e.MinPrice * tier.Multiplier()
}

// Available returns how many seats of tier can still be held. Capacity is one
// pool shared by all tiers; a tier listed in TierCapacities is further capped
// by its own sub-capacity.
func (e *Event) Available(tier Tier, committedAll, committedTier int) int {
	available := e.Capacity - committedAll
	if limit, ok := e.TierCapacities[tier]; ok {
		if byTier := limit - committedTier; byTier < available {
			available = byTier
		}
	}
	if available < 0 {
		return 0
	}
	return available
}

// HasOccurred reports whether the event start is not in the future.
func (e *Event) HasOccurred(now time.Time) bool {
	return !e.ScheduledAt.After(now)
}

// CancellationOpen reports whether at least window remains before the event.
func (e *Event) CancellationOpen(now time.Time, window time.Duration) bool {
	return e.ScheduledAt.Sub(now) >= window
}

// EventFilter narrows a catalog listing.
type EventFilter struct {
	Genre         string
	MinPrice      *float64
	UpcomingAfter time.Time
	Skip          int
	Limit         int
}
