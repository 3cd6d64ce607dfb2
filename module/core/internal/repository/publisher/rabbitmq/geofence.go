package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/sobri3195/pegasus-real-time-phone-tracking/module/core/domain"
	"github.com/sobri3195/pegasus-real-time-phone-tracking/module/core/internal/repository/publisher"
)

var _ publisher.GeofencePublisher = (*GeofencePublisher)(nil)

const (
	ExchangeName = "tracking.events"
	QueueName    = "geofence_events"
)

type GeofencePublisher struct {
	ch *amqp.Channel
}

func NewGeofencePublisher(conn *amqp.Connection) (*GeofencePublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}

	if err := ch.ExchangeDeclare(ExchangeName, "fanout", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	if _, err := ch.QueueDeclare(QueueName, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(QueueName, "", ExchangeName, false, nil); err != nil {
		return nil, fmt.Errorf("bind queue: %w", err)
	}

	return &GeofencePublisher{ch: ch}, nil
}

// EventMessage is the wire form of a geofence transition on the exchange.
type EventMessage struct {
	ID         string                   `json:"id"`
	GeofenceID string                   `json:"geofence_id"`
	DeviceID   string                   `json:"device_id"`
	EventType  domain.GeofenceEventType `json:"event_type"`
	Location   EventLocation            `json:"location"`
	Timestamp  int64                    `json:"timestamp"`
}

type EventLocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func NewEventMessage(ev *domain.GeofenceEvent) EventMessage {
	return EventMessage{
		ID:         ev.ID,
		GeofenceID: ev.GeofenceID,
		DeviceID:   ev.DeviceID,
		EventType:  ev.EventType,
		Location: EventLocation{
			Latitude:  ev.Lat,
			Longitude: ev.Lon,
		},
		Timestamp: ev.Timestamp.Unix(),
	}
}

func (p *GeofencePublisher) PublishEvent(ctx context.Context, ev *domain.GeofenceEvent) error {
	body, err := json.Marshal(NewEventMessage(ev))
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	return p.ch.PublishWithContext(ctx, ExchangeName, "", false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.ID,
		Body:         body,
	})
}
