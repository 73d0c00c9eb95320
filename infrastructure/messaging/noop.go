package messaging

import (
	"context"

	"dome-backend/application/ports"
	"dome-backend/domain/events"
)

// NoopPublisher discards events. Used when no event bus is configured.
type NoopPublisher struct{}

// NewNoopPublisher creates a publisher that drops all events
func NewNoopPublisher() ports.EventPublisher {
	return NoopPublisher{}
}

// Publish implements the EventPublisher port
func (NoopPublisher) Publish(ctx context.Context, evts ...events.DomainEvent) error {
	return nil
}
