// Package events publishes reservation status changes to the message
// broker. Publishing is fire-and-forget: failures are logged by the
// caller and never interrupt the reservation flow.
package events

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// StatusChangedEvent notifies downstream consumers that a reservation
// entered a new status.
type StatusChangedEvent struct {
	ReservationID string    `json:"reservation_id"`
	ItemID        int64     `json:"item_id"`
	UserID        string    `json:"user_id"`
	Status        string    `json:"status"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Publisher publishes reservation events.
type Publisher interface {
	PublishStatusChanged(ctx context.Context, event StatusChangedEvent) error
}

const statusQueue = "reserve.status-changed"

// AMQPPublisher publishes events to RabbitMQ. Each publish dials a
// fresh connection; the volume here is low and a broker outage then
// costs nothing more than the failed dial.
type AMQPPublisher struct {
	url string
}

// NewAMQPPublisher creates a publisher for the given broker URL.
func NewAMQPPublisher(url string) *AMQPPublisher {
	return &AMQPPublisher{url: url}
}

// PublishStatusChanged implements Publisher.
func (p *AMQPPublisher) PublishStatusChanged(ctx context.Context, event StatusChangedEvent) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer func() { _ = ch.Close() }()

	// Idempotent declare; durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(statusQueue, true, false, false, false, nil); err != nil {
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return ch.PublishWithContext(ctx, "", statusQueue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
}

// NoopPublisher discards events. Used when eventing is disabled and in
// tests.
type NoopPublisher struct{}

// PublishStatusChanged implements Publisher.
func (NoopPublisher) PublishStatusChanged(ctx context.Context, event StatusChangedEvent) error {
	return nil
}
