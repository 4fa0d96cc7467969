package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/segmentio/kafka-go"

	"ms-reservation/internal/config"
	"ms-reservation/internal/logger"
	"ms-reservation/internal/models"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes hold lifecycle events, one topic per event type.
type Producer struct {
	Writer messageWriter
	topics map[models.HoldEventType]string
	logger *logger.Logger
}

func NewProducer(brokers []string, topics config.TopicConfig, log *logger.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	return newProducer(writer, topics, log)
}

func newProducer(w messageWriter, topics config.TopicConfig, log *logger.Logger) *Producer {
	return &Producer{
		Writer: w,
		topics: map[models.HoldEventType]string{
			models.HoldEventReserved:  topics.HoldReserved,
			models.HoldEventConfirmed: topics.HoldConfirmed,
			models.HoldEventCancelled: topics.HoldCancelled,
			models.HoldEventExpired:   topics.HoldExpired,
		},
		logger: log,
	}
}

// NotifyHoldEvent streams the event keyed by event id, so every change to
// one event lands on the same partition in order.
func (p *Producer) NotifyHoldEvent(ctx context.Context, event models.HoldEvent) error {
	topic, ok := p.topics[event.Type]
	if !ok {
		return fmt.Errorf("no topic configured for %s", event.Type)
	}

	msgBytes, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if err := p.Writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(strconv.FormatInt(event.EventID, 10)),
		Value: msgBytes,
	}); err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}

	p.logger.LogKafka("PUBLISH", topic, fmt.Sprintf("%d holds for event %d", len(event.HoldIDs), event.EventID))
	return nil
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}
