package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/storefront/realtime/internal/core/domain"
	"github.com/storefront/realtime/internal/core/ports"
	"github.com/storefront/realtime/internal/metrics"
	"github.com/storefront/realtime/internal/pkg/eventcodec"
)

// DedupChecker abstracts the publish idempotency store (Redis).
type DedupChecker interface {
	IsDuplicate(ctx context.Context, key string) (bool, error)
	Mark(ctx context.Context, key string) error
}

type eventService struct {
	publisher ports.EventPublisher
	dedup     DedupChecker
	log       zerolog.Logger
}

// NewEventService returns an EventService implementation.
func NewEventService(publisher ports.EventPublisher, dedup DedupChecker, log zerolog.Logger) ports.EventService {
	return &eventService{
		publisher: publisher,
		dedup:     dedup,
		log:       log,
	}
}

// Validate checks the tag, the target and that the payload decodes into the
// tag's schema.
func (s *eventService) Validate(in ports.PublishInput) error {
	_, err := s.build(in)
	return err
}

func (s *eventService) build(in ports.PublishInput) (domain.DomainEvent, error) {
	tag := domain.Tag(in.Tag)
	if !tag.Valid() {
		return domain.DomainEvent{}, fmt.Errorf("publish event: %w (%q)", domain.ErrUnknownTag, in.Tag)
	}
	target, err := domain.ParseTarget(in.Target)
	if err != nil {
		return domain.DomainEvent{}, fmt.Errorf("publish event: %w (%q)", err, in.Target)
	}
	ev := domain.DomainEvent{Tag: tag, Target: target, Data: in.Data}
	if _, err := eventcodec.Decode(ev); err != nil {
		return domain.DomainEvent{}, fmt.Errorf("publish event: %w", err)
	}
	return ev, nil
}

// Publish validates, deduplicates, and hands a collaborator event to the hub.
func (s *eventService) Publish(ctx context.Context, in ports.PublishInput) (*ports.PublishResult, error) {
	// 1. Envelope and payload checks.
	ev, err := s.build(in)
	if err != nil {
		return nil, err
	}

	// 2. Idempotency check, duplicates are skipped silently.
	if in.IdempotencyKey != "" {
		isDup, err := s.dedup.IsDuplicate(ctx, in.IdempotencyKey)
		if err != nil {
			s.log.Warn().Err(err).Str("idempotency_key", in.IdempotencyKey).Msg("dedup check failed, publishing anyway")
		} else if isDup {
			metrics.EventsDedupTotal.WithLabelValues("hit").Inc()
			s.log.Debug().Str("idempotency_key", in.IdempotencyKey).Str("tag", in.Tag).Msg("duplicate publish skipped")
			return &ports.PublishResult{Duplicate: true}, nil
		}
		metrics.EventsDedupTotal.WithLabelValues("miss").Inc()

		// 3. Mark before publishing (prevents a double publish on client retry).
		if markErr := s.dedup.Mark(ctx, in.IdempotencyKey); markErr != nil {
			s.log.Warn().Err(markErr).Str("idempotency_key", in.IdempotencyKey).Msg("failed to set dedup key")
		}
	}

	// 4. Fan out.
	published := s.publisher.Publish(ev)

	s.log.Debug().
		Str("event_id", published.ID).
		Uint64("seq", published.Seq).
		Str("tag", in.Tag).
		Str("target", in.Target).
		Msg("event published")

	return &ports.PublishResult{Event: published}, nil
}
