package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/commerce_ledger/internal/core/domain"
)

// DomainEventWriter stores events in the caller's transaction.
type DomainEventWriter interface {
	// SaveMany inserts events with status pending.
	SaveMany(ctx context.Context, events []domain.DomainEvent) error
}

// DomainEventDispatchStore is the outbox side used by the event publisher.
type DomainEventDispatchStore interface {
	// FindPendingEvents claims up to limit pending or failed events, oldest
	// first, by moving them to publishing. Concurrent callers never receive
	// the same event.
	FindPendingEvents(ctx context.Context, limit int, claimedAt time.Time) ([]domain.DomainEvent, error)

	// MarkAsPublished moves a publishing event to published.
	MarkAsPublished(ctx context.Context, eventID string, publishedAt time.Time) error

	// MarkAsFailed moves a publishing event to failed, records the error and
	// bumps its retry count in the same write.
	MarkAsFailed(ctx context.Context, eventID string, lastError string) error

	// MarkAsDeadLettered moves a publishing event to dead_lettered.
	MarkAsDeadLettered(ctx context.Context, eventID string, reason string) error

	// ReleaseStaleClaims moves events claimed before olderThan back to failed.
	// An abandoned claim counts as a failed attempt.
	ReleaseStaleClaims(ctx context.Context, olderThan time.Time) (int64, error)
}

// DomainEventReader defines read operations for the outbox
type DomainEventReader interface {
	FindEventByID(ctx context.Context, eventID string) (*domain.DomainEvent, error)
	ListEventsByAggregate(ctx context.Context, aggregateID string) ([]domain.DomainEvent, error)
	CountByStatus(ctx context.Context) (map[domain.EventStatus]int, error)
}

// DomainEventRepositoryFacade combines outbox repository interfaces
type DomainEventRepositoryFacade interface {
	DomainEventWriter
	DomainEventDispatchStore
	DomainEventReader
}
