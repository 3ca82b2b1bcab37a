package memory

import (
	"context"
	"sort"
	"time"

	"github.com/SscSPs/commerce_ledger/internal/apperrors"
	"github.com/SscSPs/commerce_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/commerce_ledger/internal/core/ports/repositories"
)

// DomainEventRepository implements portsrepo.DomainEventRepositoryFacade.
type DomainEventRepository struct {
	s *Store
}

var _ portsrepo.DomainEventRepositoryFacade = (*DomainEventRepository)(nil)

func (r *DomainEventRepository) SaveMany(ctx context.Context, events []domain.DomainEvent) error {
	return r.s.run(ctx, func(st *state) error {
		for _, e := range events {
			if _, exists := st.events[e.EventID]; exists {
				return apperrors.NewConflictError("DUPLICATE_EVENT", "event %s already stored", e.EventID)
			}
			e.Status = domain.EventPending
			st.nextEventSeq++
			st.eventSeq[e.EventID] = st.nextEventSeq
			st.events[e.EventID] = e
		}
		return nil
	})
}

// orderedEvents returns events passing keep in insertion order.
func (st *state) orderedEvents(keep func(domain.DomainEvent) bool) []domain.DomainEvent {
	out := make([]domain.DomainEvent, 0)
	for _, e := range st.events {
		if keep(e) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return st.eventSeq[out[i].EventID] < st.eventSeq[out[j].EventID] })
	return out
}

func (r *DomainEventRepository) FindPendingEvents(ctx context.Context, limit int, claimedAt time.Time) ([]domain.DomainEvent, error) {
	var out []domain.DomainEvent
	err := r.s.run(ctx, func(st *state) error {
		ready := st.orderedEvents(func(e domain.DomainEvent) bool { return e.Status.IsDispatchable() })
		if limit > 0 && len(ready) > limit {
			ready = ready[:limit]
		}
		for i := range ready {
			ready[i].Status = domain.EventPublishing
			at := claimedAt
			ready[i].ClaimedAt = &at
			st.events[ready[i].EventID] = ready[i]
		}
		out = ready
		return nil
	})
	return out, err
}

// transition moves a publishing event to next after applying change.
func (r *DomainEventRepository) transition(ctx context.Context, eventID string, next domain.EventStatus, change func(*domain.DomainEvent)) error {
	return r.s.run(ctx, func(st *state) error {
		e, ok := st.events[eventID]
		if !ok {
			return apperrors.NewNotFoundError("event %s not found", eventID)
		}
		if !e.Status.CanTransitionTo(next) {
			return apperrors.NewConflictError("EVENT_STATUS_CHANGED", "event %s is %s, cannot move to %s", eventID, e.Status, next)
		}
		e.Status = next
		if change != nil {
			change(&e)
		}
		st.events[eventID] = e
		return nil
	})
}

func (r *DomainEventRepository) MarkAsPublished(ctx context.Context, eventID string, publishedAt time.Time) error {
	return r.transition(ctx, eventID, domain.EventPublished, func(e *domain.DomainEvent) {
		e.PublishedAt = &publishedAt
		e.ClaimedAt = nil
	})
}

func (r *DomainEventRepository) MarkAsFailed(ctx context.Context, eventID string, lastError string) error {
	return r.transition(ctx, eventID, domain.EventFailed, func(e *domain.DomainEvent) {
		e.LastError = lastError
		e.ClaimedAt = nil
		e.RetryCount++
	})
}

func (r *DomainEventRepository) MarkAsDeadLettered(ctx context.Context, eventID string, reason string) error {
	return r.transition(ctx, eventID, domain.EventDeadLettered, func(e *domain.DomainEvent) {
		e.LastError = reason
		e.ClaimedAt = nil
	})
}

func (r *DomainEventRepository) ReleaseStaleClaims(ctx context.Context, olderThan time.Time) (int64, error) {
	var released int64
	err := r.s.run(ctx, func(st *state) error {
		for id, e := range st.events {
			if e.Status == domain.EventPublishing && e.ClaimedAt != nil && e.ClaimedAt.Before(olderThan) {
				e.Status = domain.EventFailed
				e.LastError = "claim expired"
				e.ClaimedAt = nil
				e.RetryCount++
				st.events[id] = e
				released++
			}
		}
		return nil
	})
	return released, err
}

func (r *DomainEventRepository) FindEventByID(ctx context.Context, eventID string) (*domain.DomainEvent, error) {
	var out *domain.DomainEvent
	err := r.s.run(ctx, func(st *state) error {
		e, ok := st.events[eventID]
		if !ok {
			return apperrors.NewNotFoundError("event %s not found", eventID)
		}
		out = &e
		return nil
	})
	return out, err
}

func (r *DomainEventRepository) ListEventsByAggregate(ctx context.Context, aggregateID string) ([]domain.DomainEvent, error) {
	var out []domain.DomainEvent
	err := r.s.run(ctx, func(st *state) error {
		out = st.orderedEvents(func(e domain.DomainEvent) bool { return e.AggregateID == aggregateID })
		return nil
	})
	return out, err
}

func (r *DomainEventRepository) CountByStatus(ctx context.Context) (map[domain.EventStatus]int, error) {
	out := make(map[domain.EventStatus]int)
	err := r.s.run(ctx, func(st *state) error {
		for _, e := range st.events {
			out[e.Status]++
		}
		return nil
	})
	return out, err
}
