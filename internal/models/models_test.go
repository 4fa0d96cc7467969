package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTierPricing(t *testing.T) {
	event := Event{MinPrice: 50}

	tests := []struct {
		tier Tier
		want float64
	}{
		{TierGeneral, 50},
		{TierVIP, 125},
		{TierBackstage, 200},
		{Tier("BALCONY"), 50},
	}
	for _, tt := range tests {
		t.Run(string(tt.tier), func(t *testing.T) {
			assert.InDelta(t, tt.want, event.Price(tt.tier), 0.0001)
		})
	}
}

func TestParseTier(t *testing.T) {
	tier, err := ParseTier(" vip ")
	require.NoError(t, err)
	assert.Equal(t, TierVIP, tier)

	_, err = ParseTier("balcony")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestEventAvailable(t *testing.T) {
	shared := Event{Capacity: 10}
	assert.Equal(t, 4, shared.Available(TierVIP, 6, 1))
	assert.Equal(t, 0, shared.Available(TierVIP, 12, 0))

	capped := Event{Capacity: 10, TierCapacities: map[Tier]int{TierBackstage: 2}}
	assert.Equal(t, 1, capped.Available(TierBackstage, 3, 1))
	assert.Equal(t, 7, capped.Available(TierGeneral, 3, 3))
}

func TestEventTiming(t *testing.T) {
	now := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)
	event := Event{ScheduledAt: now.Add(24 * time.Hour)}

	assert.False(t, event.HasOccurred(now))
	assert.True(t, event.HasOccurred(now.Add(24*time.Hour)))

	assert.True(t, event.CancellationOpen(now, 24*time.Hour))
	assert.False(t, event.CancellationOpen(now.Add(time.Minute), 24*time.Hour))
}

func TestHoldExpiredAt(t *testing.T) {
	deadline := time.Date(2030, 1, 1, 12, 15, 0, 0, time.UTC)
	hold := Hold{Status: HoldStatusReserved, ExpiresAt: &deadline}

	assert.False(t, hold.ExpiredAt(deadline))
	assert.True(t, hold.ExpiredAt(deadline.Add(time.Microsecond)))

	hold.Status = HoldStatusConfirmed
	assert.False(t, hold.ExpiredAt(deadline.Add(time.Hour)))
}

func TestNewHoldEvent(t *testing.T) {
	at := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)
	ev := NewHoldEvent(HoldEventReserved, []Hold{
		{ID: "a", EventID: 3, BuyerID: 9, Tier: TierVIP},
		{ID: "b", EventID: 3, BuyerID: 9, Tier: TierVIP},
	}, at)

	assert.Equal(t, int64(3), ev.EventID)
	assert.Equal(t, int64(9), ev.BuyerID)
	assert.Equal(t, []string{"a", "b"}, ev.HoldIDs)
	assert.Equal(t, at, ev.OccurredAt)
}
