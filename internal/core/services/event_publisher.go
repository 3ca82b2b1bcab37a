package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SscSPs/commerce_ledger/internal/apperrors"
	"github.com/SscSPs/commerce_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/commerce_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/commerce_ledger/internal/core/ports/services"
)

const defaultClaimTimeout = 5 * time.Minute

// OutboxConfig tunes the event publisher.
type OutboxConfig struct {
	// ClaimTimeout is how long an event may sit in publishing before a later
	// pass treats its dispatcher as dead and releases it.
	ClaimTimeout time.Duration
}

// eventPublisher moves outbox events to the queue. Each event is claimed
// before publishing, so concurrent publishers never send the same event.
type eventPublisher struct {
	BaseService
	eventRepo    portsrepo.DomainEventRepositoryFacade
	queue        portsrepo.QueuePublisher
	claimTimeout time.Duration
}

// NewEventPublisher creates a new EventPublisher.
func NewEventPublisher(eventRepo portsrepo.DomainEventRepositoryFacade, queue portsrepo.QueuePublisher, cfg OutboxConfig, options ...ServiceOption) portssvc.EventPublisherSvcFacade {
	svc := &eventPublisher{
		eventRepo:    eventRepo,
		queue:        queue,
		claimTimeout: cfg.ClaimTimeout,
	}
	if svc.claimTimeout <= 0 {
		svc.claimTimeout = defaultClaimTimeout
	}
	svc.apply(options)
	return svc
}

var _ portssvc.EventPublisherSvcFacade = (*eventPublisher)(nil)

// StoreEvent persists one event in the caller's transaction.
func (p *eventPublisher) StoreEvent(ctx context.Context, event domain.DomainEvent) error {
	return p.StoreEvents(ctx, []domain.DomainEvent{event})
}

// StoreEvents persists events in the caller's transaction.
func (p *eventPublisher) StoreEvents(ctx context.Context, events []domain.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}
	for i := range events {
		events[i].Status = domain.EventPending
	}
	if err := p.eventRepo.SaveMany(ctx, events); err != nil {
		p.LogError(ctx, err, "Failed to store domain events", slog.Int("count", len(events)))
		return fmt.Errorf("failed to store domain events: %w", err)
	}
	return nil
}

// PublishPendingEvents runs one dispatch pass. Queue errors end up on the
// events themselves; only failing to claim a batch is returned.
func (p *eventPublisher) PublishPendingEvents(ctx context.Context, batchSize, maxRetries int) (*portssvc.PublishResult, error) {
	if p.queue == nil {
		return nil, apperrors.NewExternalError("no queue publisher is configured", nil)
	}
	result := &portssvc.PublishResult{}
	now := p.Now()

	released, err := p.eventRepo.ReleaseStaleClaims(ctx, now.Add(-p.claimTimeout))
	if err != nil {
		p.LogWarn(ctx, "Failed to release stale outbox claims", slog.String("error", err.Error()))
	} else if released > 0 {
		result.Released = int(released)
		p.LogWarn(ctx, "Released stale outbox claims", slog.Int64("count", released))
	}

	events, err := p.eventRepo.FindPendingEvents(ctx, batchSize, now)
	if err != nil {
		p.LogError(ctx, err, "Failed to claim pending events", slog.Int("batch_size", batchSize))
		return nil, fmt.Errorf("failed to claim pending events: %w", err)
	}
	result.Total = len(events)

	for _, event := range events {
		logArgs := []any{
			slog.String("event_id", event.EventID),
			slog.String("event_type", event.EventType),
			slog.Int("retry_count", event.RetryCount),
		}

		if event.IsOverRetryBudget(maxRetries) {
			result.Skipped++
			reason := fmt.Sprintf("retry budget of %d exhausted", maxRetries)
			if err := p.eventRepo.MarkAsDeadLettered(ctx, event.EventID, reason); err != nil {
				p.LogError(ctx, err, "Failed to dead-letter event", logArgs...)
				continue
			}
			p.LogWarn(ctx, "Event dead-lettered", logArgs...)
			continue
		}

		if err := p.queue.Publish(ctx, event); err != nil {
			result.Failed++
			p.LogWarn(ctx, "Failed to publish event", append(logArgs, slog.String("error", err.Error()))...)
			if markErr := p.eventRepo.MarkAsFailed(ctx, event.EventID, err.Error()); markErr != nil {
				p.LogError(ctx, markErr, "Failed to mark event as failed", logArgs...)
			}
			continue
		}

		// At-least-once: if this write fails the event is published again later.
		if err := p.eventRepo.MarkAsPublished(ctx, event.EventID, p.Now()); err != nil {
			p.LogError(ctx, err, "Failed to mark event as published", logArgs...)
		}
		result.Published++
	}

	if result.Total > 0 {
		p.LogInfo(ctx, "Outbox dispatch pass finished",
			slog.Int("total", result.Total),
			slog.Int("published", result.Published),
			slog.Int("failed", result.Failed),
			slog.Int("skipped", result.Skipped))
	}
	return result, nil
}

// OutboxStats counts events per status.
func (p *eventPublisher) OutboxStats(ctx context.Context) (map[domain.EventStatus]int, error) {
	stats, err := p.eventRepo.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count outbox events: %w", err)
	}
	return stats, nil
}
