package ports

import (
	"context"
	"encoding/json"

	"github.com/storefront/realtime/internal/core/domain"
)

// PublishInput is the DTO passed from the transport layer to EventService.
type PublishInput struct {
	Tag            string
	Target         string
	Data           json.RawMessage
	IdempotencyKey string // optional
}

// PublishResult reports the outcome of a publish request.
type PublishResult struct {
	Event     domain.DomainEvent
	Duplicate bool // the idempotency key was already seen; nothing was published
}

// EventService validates collaborator events and hands them to the hub.
type EventService interface {
	// Validate checks the envelope and payload without publishing.
	Validate(in PublishInput) error
	Publish(ctx context.Context, in PublishInput) (*PublishResult, error)
}

// EventPublisher is the hub as seen by the core services.
type EventPublisher interface {
	Publish(ev domain.DomainEvent) domain.DomainEvent
}
