package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BalanceTolerance is the absolute difference under which two monetary totals
// are considered equal for trial-balance and reconciliation checks.
var BalanceTolerance = decimal.NewFromFloat(0.01)

// WithinTolerance reports whether |a - b| < BalanceTolerance.
func WithinTolerance(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThan(BalanceTolerance)
}

// AuditFields holds standard audit information for domain entities.
type AuditFields struct {
	CreatedAt     time.Time `json:"createdAt"`
	CreatedBy     string    `json:"createdBy"` // UserID Reference
	LastUpdatedAt time.Time `json:"lastUpdatedAt"`
	LastUpdatedBy string    `json:"lastUpdatedBy"` // UserID Reference
}

func newAuditFields(userID string, now time.Time) AuditFields {
	return AuditFields{
		CreatedAt:     now,
		CreatedBy:     userID,
		LastUpdatedAt: now,
		LastUpdatedBy: userID,
	}
}

func (a *AuditFields) touch(userID string, now time.Time) {
	a.LastUpdatedAt = now
	a.LastUpdatedBy = userID
}

// AggregateRoot buffers domain events raised by an aggregate's mutating
// methods until the persistence layer drains them in the same transaction.
type AggregateRoot struct {
	pendingEvents []DomainEvent
}

// RecordEvent appends an event to the pending buffer.
func (a *AggregateRoot) RecordEvent(event DomainEvent) {
	a.pendingEvents = append(a.pendingEvents, event)
}

// PendingEvents returns the buffered events without draining them.
func (a *AggregateRoot) PendingEvents() []DomainEvent {
	return a.pendingEvents
}

// PullEvents drains and returns the buffered events.
func (a *AggregateRoot) PullEvents() []DomainEvent {
	events := a.pendingEvents
	a.pendingEvents = nil
	return events
}

// EventSource is implemented by every aggregate that raises domain events.
type EventSource interface {
	PullEvents() []DomainEvent
}

func stringPtr(s string) *string {
	return &s
}

func timePtr(t time.Time) *time.Time {
	return &t
}
