// Package events contains the notification publisher implementations. Each
// publisher delivers transfer outcome notifications at least once, ordered
// per account key.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/finflow/transfer-service/internal/domain"
)

// RabbitMQNotifier publishes notifications to a topic exchange. The routing
// key embeds the account id, so per-account queue bindings receive their
// notifications in publish order.
type RabbitMQNotifier struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

// NewRabbitMQNotifier connects to RabbitMQ and declares the exchange.
func NewRabbitMQNotifier(url, exchange string) (*RabbitMQNotifier, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &RabbitMQNotifier{
		conn:     conn,
		channel:  channel,
		exchange: exchange,
	}, nil
}

// RoutingKey returns the per-account routing key used for notifications.
func RoutingKey(accountID uuid.UUID) string {
	return "transfers.notification." + accountID.String()
}

// Publish sends one notification keyed by account id.
func (n *RabbitMQNotifier) Publish(ctx context.Context, accountID uuid.UUID, notification domain.Notification) error {
	body, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	err = n.channel.PublishWithContext(ctx,
		n.exchange,
		RoutingKey(accountID),
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	return nil
}

// Close releases the channel and connection.
func (n *RabbitMQNotifier) Close() error {
	if err := n.channel.Close(); err != nil {
		n.conn.Close()
		return err
	}
	return n.conn.Close()
}

var _ domain.Notifier = (*RabbitMQNotifier)(nil)
