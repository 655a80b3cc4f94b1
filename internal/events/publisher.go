// internal/events/publisher.go
//
// Package events publishes booking lifecycle events to RabbitMQ. Publish
// failures are logged and returned so callers can ignore them; a booking is
// never failed because the broker is down.
package events

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

const (
	QueueBookingConfirmed = "booking.confirmed"
	QueueBookingCancelled = "booking.cancelled"
)

type BookingEvent struct {
	BookingID  int64     `json:"booking_id"`
	LeagueID   int64     `json:"league_id"`
	FacilityID int64     `json:"facility_id"`
	UserID     int64     `json:"user_id"`
	StartAt    time.Time `json:"start_at"`
	EndAt      time.Time `json:"end_at"`
	Status     string    `json:"status"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher sends events over a fresh connection per publish. A nil
// Publisher is a no-op, which is how the feature is disabled.
type Publisher struct {
	url string
}

func NewPublisher(url string) *Publisher {
	if url == "" {
		return nil
	}
	return &Publisher{url: url}
}

// Publish declares the durable queue and sends the event as a persistent
// JSON message on the default exchange.
func (p *Publisher) Publish(ctx context.Context, queue string, event BookingEvent) error {
	if p == nil {
		return nil
	}

	conn, err := amqp.Dial(p.url)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("queue", queue).Msg("Event broker dial failed")
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("queue", queue).Msg("Event channel open failed")
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("queue", queue).Msg("Event queue declare failed")
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	if err := ch.PublishWithContext(ctx, "", queue, false, false, pub); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("queue", queue).Msg("Event publish failed")
		return err
	}

	return nil
}
