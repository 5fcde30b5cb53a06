package domain

import (
	"context"

	"fuelops/internal/core/id"
)

// Event is a domain event written to the outbox in the same transaction
// as the change it describes.
type Event struct {
	AggregateType string
	AggregateID   id.ID
	EventType     string
	Payload       any
}

// EventPublisher persists events for asynchronous delivery.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// NopPublisher drops events. Used when no outbox is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
