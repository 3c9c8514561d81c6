package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/finflow/transfer-service/internal/domain"
)

// KafkaNotifier publishes notifications to a Kafka topic keyed by account
// id. The hash balancer maps each key to a fixed partition, which gives
// per-account ordering; consumers read their own partition and filter on
// their id.
type KafkaNotifier struct {
	writer *kafka.Writer
}

// NewKafkaNotifier creates a notifier writing to the given brokers and topic.
func NewKafkaNotifier(brokers []string, topic string) *KafkaNotifier {
	return &KafkaNotifier{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.Hash{},
		},
	}
}

// Publish sends one notification keyed by account id.
func (n *KafkaNotifier) Publish(ctx context.Context, accountID uuid.UUID, notification domain.Notification) error {
	value, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	err = n.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(accountID.String()),
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("failed to write notification: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}

var _ domain.Notifier = (*KafkaNotifier)(nil)
