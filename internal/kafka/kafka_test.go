package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-reservation/internal/config"
	"ms-reservation/internal/logger"
	"ms-reservation/internal/models"
)

var testTopics = config.TopicConfig{
	HoldReserved:  "hold-reserved",
	HoldConfirmed: "hold-confirmed",
	HoldCancelled: "hold-cancelled",
	HoldExpired:   "hold-expired",
	CatalogEvents: "event-catalog",
}

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestProducer_RoutesByEventType(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, testTopics, logger.NewWithWriter(io.Discard))
	ctx := context.Background()

	expires := time.Date(2030, 1, 1, 12, 15, 0, 0, time.UTC)
	ev := models.HoldEvent{
		Type:      models.HoldEventReserved,
		EventID:   17,
		Tier:      models.TierVIP,
		BuyerID:   3,
		HoldIDs:   []string{"h1", "h2"},
		ExpiresAt: &expires,
	}
	require.NoError(t, p.NotifyHoldEvent(ctx, ev))

	ev.Type = models.HoldEventExpired
	require.NoError(t, p.NotifyHoldEvent(ctx, ev))

	require.Len(t, w.msgs, 2)
	assert.Equal(t, "hold-reserved", w.msgs[0].Topic)
	assert.Equal(t, "hold-expired", w.msgs[1].Topic)
	assert.Equal(t, "17", string(w.msgs[0].Key))

	var decoded models.HoldEvent
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &decoded))
	assert.Equal(t, []string{"h1", "h2"}, decoded.HoldIDs)
	assert.Equal(t, models.TierVIP, decoded.Tier)
}

func TestProducer_Errors(t *testing.T) {
	w := &fakeWriter{err: errors.New("leader not available")}
	p := newProducer(w, testTopics, logger.NewWithWriter(io.Discard))

	err := p.NotifyHoldEvent(context.Background(), models.HoldEvent{Type: models.HoldEventConfirmed})
	assert.ErrorContains(t, err, "leader not available")

	err = p.NotifyHoldEvent(context.Background(), models.HoldEvent{Type: "hold.unknown"})
	assert.Error(t, err)
}

type fakeReader struct {
	mu   sync.Mutex
	msgs []kafka.Message
}

func (r *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.msgs) > 0 {
		msg := r.msgs[0]
		r.msgs = r.msgs[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) Close() error { return nil }

func TestConsumer_AppliesValidMessages(t *testing.T) {
	good, err := json.Marshal(models.Event{ID: 5, Name: "Classical Night", Capacity: 500, MinPrice: 75})
	require.NoError(t, err)
	noID, err := json.Marshal(models.Event{Name: "Nameless"})
	require.NoError(t, err)

	reader := &fakeReader{msgs: []kafka.Message{
		{Topic: "event-catalog", Value: []byte("{not json")},
		{Topic: "event-catalog", Value: noID},
		{Topic: "event-catalog", Value: good},
	}}
	c := &Consumer{reader: reader, logger: logger.NewWithWriter(io.Discard)}

	ctx, cancel := context.WithCancel(context.Background())
	var applied []*models.Event
	done := make(chan struct{})
	go func() {
		c.Start(ctx, func(_ context.Context, event *models.Event) error {
			applied = append(applied, event)
			cancel()
			return nil
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop")
	}

	require.Len(t, applied, 1)
	assert.Equal(t, int64(5), applied[0].ID)
	assert.Equal(t, 500, applied[0].Capacity)
}

func TestTopicNames(t *testing.T) {
	assert.ElementsMatch(t,
		[]string{"hold-reserved", "hold-confirmed", "hold-cancelled", "hold-expired", "event-catalog"},
		TopicNames(testTopics))
}
