// Package events publishes booking lifecycle notifications for the external
// signaling relay. The relay gates video call establishment on started and
// completed bookings; the core only emits and never consumes.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/rafaelaquinocxs/supravelconnect-backend/internal/models"
)

const (
	BookingConfirmed = "booking.confirmed"
	BookingStarted   = "booking.started"
	BookingCompleted = "booking.completed"
	BookingCancelled = "booking.cancelled"
)

type BookingEvent struct {
	EventID     string    `json:"event_id"`
	Event       string    `json:"event"`
	BookingID   int64     `json:"booking_id"`
	ClientID    int64     `json:"client_id"`
	HelperID    int64     `json:"helper_id"`
	ScheduledAt time.Time `json:"scheduled_at"`
	EndsAt      time.Time `json:"ends_at"`
	Status      string    `json:"status"`
	OccurredAt  time.Time `json:"occurred_at"`
}

type Publisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

func NewPublisher(url, exchange string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &Publisher{conn: conn, ch: ch, exchange: exchange}, nil
}

func (p *Publisher) PublishBookingEvent(ctx context.Context, event string, b *models.Booking) error {
	body, err := json.Marshal(BookingEvent{
		EventID:     uuid.NewString(),
		Event:       event,
		BookingID:   b.ID,
		ClientID:    b.ClientID,
		HelperID:    b.HelperID,
		ScheduledAt: b.ScheduledAt,
		EndsAt:      b.End(),
		Status:      b.Status,
		OccurredAt:  time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	publishCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return p.ch.PublishWithContext(
		publishCtx,
		p.exchange,
		event,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)
}

func (p *Publisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
