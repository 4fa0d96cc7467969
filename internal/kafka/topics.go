package kafka

import (
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/segmentio/kafka-go"

	"ms-reservation/internal/config"
	"ms-reservation/internal/logger"
)

// TopicNames lists every topic the service reads or writes.
func TopicNames(topics config.TopicConfig) []string {
	return []string{
		topics.HoldReserved,
		topics.HoldConfirmed,
		topics.HoldCancelled,
		topics.HoldExpired,
		topics.CatalogEvents,
	}
}

// EnsureTopicsExist creates Kafka topics if they don't already exist
func EnsureTopicsExist(brokers []string, topics []string, log *logger.Logger) error {
	if len(brokers) == 0 {
		return errors.New("no kafka brokers configured")
	}

	conn, err := kafka.Dial("tcp", brokers[0])
	if err != nil {
		return err
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return err
	}
	controllerConn, err := kafka.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return err
	}
	defer controllerConn.Close()

	for _, topic := range topics {
		err = controllerConn.CreateTopics(kafka.TopicConfig{
			Topic:             topic,
			NumPartitions:     1,
			ReplicationFactor: 1,
		})
		switch {
		case errors.Is(err, kafka.TopicAlreadyExists):
			log.Debug("KAFKA", fmt.Sprintf("Topic %s already exists", topic))
		case err != nil:
			// keep going; the writer can still auto-create
			log.Warn("KAFKA", fmt.Sprintf("Error creating topic %s: %v", topic, err))
		default:
			log.LogKafka("CREATE", topic, "topic created")
		}
	}
	return nil
}
