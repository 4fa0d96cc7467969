package sse

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-reservation/internal/models"
)

func TestHoldEventEmitter_DeliversToEventSubscribers(t *testing.T) {
	e := NewHoldEventEmitter()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	watching := e.Subscribe(ctx, 1)
	other := e.Subscribe(ctx, 2)
	assert.Equal(t, 1, e.ClientCount(1))

	require.NoError(t, e.NotifyHoldEvent(ctx, models.HoldEvent{Type: models.HoldEventReserved, EventID: 1, HoldIDs: []string{"h1"}}))

	select {
	case ev := <-watching:
		assert.Equal(t, models.HoldEventReserved, ev.Type)
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive event")
	}

	select {
	case ev := <-other:
		t.Fatalf("unexpected event for other subscriber: %+v", ev)
	default:
	}
}

func TestHoldEventEmitter_SlowClientDoesNotBlock(t *testing.T) {
	e := NewHoldEventEmitter()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	e.Subscribe(ctx, 1)
	for i := 0; i < 50; i++ {
		require.NoError(t, e.NotifyHoldEvent(ctx, models.HoldEvent{EventID: 1}))
	}
}

func TestHoldEventEmitter_UnsubscribesOnCancel(t *testing.T) {
	e := NewHoldEventEmitter()
	ctx, cancel := context.WithCancel(context.Background())

	ch := e.Subscribe(ctx, 1)
	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok, "channel is closed after cancel")
	case <-time.After(time.Second):
		t.Fatal("channel was not closed")
	}
	assert.Zero(t, e.ClientCount(1))
}
