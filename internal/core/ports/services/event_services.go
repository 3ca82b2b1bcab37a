package services

import (
	"context"

	"github.com/SscSPs/commerce_ledger/internal/core/domain"
)

// PublishResult summarizes one dispatch pass.
type PublishResult struct {
	Total     int `json:"total"`
	Published int `json:"published"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
	Released  int `json:"released"`
}

// EventStoreSvc persists events in the caller's transaction
type EventStoreSvc interface {
	StoreEvent(ctx context.Context, event domain.DomainEvent) error
	StoreEvents(ctx context.Context, events []domain.DomainEvent) error
}

// EventDispatcherSvc flushes the outbox to the queue
type EventDispatcherSvc interface {
	// PublishPendingEvents claims up to batchSize events and publishes them.
	// Queue failures are recorded on the events, never returned.
	PublishPendingEvents(ctx context.Context, batchSize, maxRetries int) (*PublishResult, error)

	// OutboxStats counts events per status.
	OutboxStats(ctx context.Context) (map[domain.EventStatus]int, error)
}

// EventPublisherSvcFacade combines outbox service interfaces
type EventPublisherSvcFacade interface {
	EventStoreSvc
	EventDispatcherSvc
}
