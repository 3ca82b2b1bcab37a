package repositories

import (
	"context"

	"github.com/SscSPs/commerce_ledger/internal/core/domain"
)

// QueuePublisher delivers domain events to the message broker.
type QueuePublisher interface {
	Publish(ctx context.Context, event domain.DomainEvent) error
	PublishBatch(ctx context.Context, events []domain.DomainEvent) error
}

// PeriodLocker serializes work on one fiscal period across processes.
type PeriodLocker interface {
	// Acquire blocks until the lock for period is held or ctx ends. The
	// returned release func must be called to give it back.
	Acquire(ctx context.Context, period domain.PeriodRef) (release func(context.Context) error, err error)
}
