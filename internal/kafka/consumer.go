package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"

	"ms-reservation/internal/logger"
	"ms-reservation/internal/models"
)

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Consumer keeps the local event catalog in sync with the upstream catalog
// topic.
type Consumer struct {
	reader messageReader
	logger *logger.Logger
}

// NewConsumer creates a new Kafka consumer for the given topic and group
func NewConsumer(brokers []string, topic, groupID string, log *logger.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})
	return &Consumer{reader: reader, logger: log}
}

// Start reads catalog messages until ctx is cancelled. Messages that fail to
// decode or apply are logged and skipped.
func (c *Consumer) Start(ctx context.Context, handler func(ctx context.Context, event *models.Event) error) {
	c.logger.Info("KAFKA", "Catalog consumer started")

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				c.logger.Info("KAFKA", "Catalog consumer stopped")
				return
			}
			c.logger.Error("KAFKA", fmt.Sprintf("Error reading message: %v", err))
			continue
		}

		event, err := decodeCatalogEvent(msg)
		if err != nil {
			c.logger.Warn("KAFKA", fmt.Sprintf("Failed to unmarshal message at offset %d: %v", msg.Offset, err))
			continue
		}

		if err := handler(ctx, event); err != nil {
			c.logger.Error("KAFKA", fmt.Sprintf("Failed to apply catalog event %d: %v", event.ID, err))
			continue
		}
		c.logger.LogKafka("CONSUME", msg.Topic, fmt.Sprintf("synced event %d (%s)", event.ID, event.Name))
	}
}

func decodeCatalogEvent(msg kafka.Message) (*models.Event, error) {
	var event models.Event
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return nil, err
	}
	if event.ID <= 0 {
		return nil, fmt.Errorf("%w: catalog message without event id", models.ErrInvalidArgument)
	}
	return &event, nil
}

// Close gracefully shuts down the Kafka reader
func (c *Consumer) Close() error {
	return c.reader.Close()
}
