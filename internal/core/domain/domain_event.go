package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// EventStatus is the outbox lifecycle state of a stored domain event.
type EventStatus string

const (
	EventPending      EventStatus = "pending"
	EventPublishing   EventStatus = "publishing"
	EventPublished    EventStatus = "published"
	EventFailed       EventStatus = "failed"
	EventDeadLettered EventStatus = "dead_lettered"
)

// IsTerminal reports whether the event will never be dispatched again.
func (s EventStatus) IsTerminal() bool {
	return s == EventPublished || s == EventDeadLettered
}

// IsDispatchable reports whether a dispatcher may claim the event.
func (s EventStatus) IsDispatchable() bool {
	return s == EventPending || s == EventFailed
}

// CanTransitionTo reports whether a transition from s to next is allowed.
func (s EventStatus) CanTransitionTo(next EventStatus) bool {
	switch s {
	case EventPending, EventFailed:
		return next == EventPublishing
	case EventPublishing:
		return next == EventPublished || next == EventFailed || next == EventDeadLettered
	default:
		return false
	}
}

// Aggregate types carried on domain events.
const (
	AggregateJournalEntry       = "JournalEntry"
	AggregateFiscalPeriod       = "FiscalPeriod"
	AggregateBankStatement      = "BankStatement"
	AggregateBankReconciliation = "BankReconciliation"
)

// Event types published by the ledger core.
const (
	EventJournalEntryPosted          = "JournalEntryPosted"
	EventJournalEntryVoided          = "JournalEntryVoided"
	EventFiscalPeriodClosed          = "FiscalPeriodClosed"
	EventFiscalPeriodReopened        = "FiscalPeriodReopened"
	EventFiscalPeriodLocked          = "FiscalPeriodLocked"
	EventAccountBalancesCalculated   = "AccountBalancesCalculated"
	EventBankStatementImported       = "BankStatementImported"
	EventBankReconciliationCompleted = "BankReconciliationCompleted"
	EventBankReconciliationApproved  = "BankReconciliationApproved"
)

// DomainEvent records something that happened to an aggregate. Its lifecycle
// after creation is owned by the event publisher.
type DomainEvent struct {
	EventID       string          `json:"eventID"`
	EventType     string          `json:"eventType"`
	AggregateID   string          `json:"aggregateID"`
	AggregateType string          `json:"aggregateType"`
	Payload       json.RawMessage `json:"payload"`
	OccurredAt    time.Time       `json:"occurredAt"`
	Status        EventStatus     `json:"status"`
	RetryCount    int             `json:"retryCount"`
	LastError     string          `json:"lastError,omitempty"`
	ClaimedAt     *time.Time      `json:"claimedAt,omitempty"`
	PublishedAt   *time.Time      `json:"publishedAt,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// NewDomainEvent builds a pending event with a JSON encoded payload.
func NewDomainEvent(eventType, aggregateType, aggregateID string, payload any, occurredAt time.Time) (DomainEvent, error) {
	eventType = strings.TrimSpace(eventType)
	if eventType == "" {
		return DomainEvent{}, fmt.Errorf("event type is required")
	}
	if aggregateID == "" {
		return DomainEvent{}, fmt.Errorf("aggregate id is required for %s", eventType)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return DomainEvent{}, fmt.Errorf("failed to encode %s payload: %w", eventType, err)
	}

	return DomainEvent{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		Payload:       raw,
		OccurredAt:    occurredAt,
		Status:        EventPending,
		CreatedAt:     occurredAt,
	}, nil
}

// mustEvent is used by aggregates whose payloads are plain structs that
// always encode.
func mustEvent(eventType, aggregateType, aggregateID string, payload any, occurredAt time.Time) DomainEvent {
	event, err := NewDomainEvent(eventType, aggregateType, aggregateID, payload, occurredAt)
	if err != nil {
		panic(err)
	}
	return event
}

// IsOverRetryBudget reports whether the event exhausted its retry budget.
func (e DomainEvent) IsOverRetryBudget(maxRetries int) bool {
	return e.RetryCount > maxRetries
}
