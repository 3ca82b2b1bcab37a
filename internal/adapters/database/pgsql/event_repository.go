package pgsql

import (
	"context"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/SscSPs/commerce_ledger/internal/apperrors"
	"github.com/SscSPs/commerce_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/commerce_ledger/internal/core/ports/repositories"
)

// PgxDomainEventRepository is the transactional outbox table.
type PgxDomainEventRepository struct {
	BaseRepository
}

func newPgxDomainEventRepository(pool *pgxpool.Pool) portsrepo.DomainEventRepositoryFacade {
	return &PgxDomainEventRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.DomainEventRepositoryFacade = (*PgxDomainEventRepository)(nil)

const eventColumns = `
	event_id, event_type, aggregate_id, aggregate_type, payload, occurred_at,
	status, retry_count, last_error, claimed_at, published_at, created_at`

func scanEvent(row pgx.Row) (domain.DomainEvent, error) {
	var e domain.DomainEvent
	err := row.Scan(
		&e.EventID,
		&e.EventType,
		&e.AggregateID,
		&e.AggregateType,
		&e.Payload,
		&e.OccurredAt,
		&e.Status,
		&e.RetryCount,
		&e.LastError,
		&e.ClaimedAt,
		&e.PublishedAt,
		&e.CreatedAt,
	)
	return e, err
}

func collectEvents(rows pgx.Rows) ([]domain.DomainEvent, error) {
	defer rows.Close()
	events := make([]domain.DomainEvent, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan domain event", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "failed to iterate domain events", err)
	}
	return events, nil
}

// SaveMany inserts events as pending in the caller's transaction.
func (r *PgxDomainEventRepository) SaveMany(ctx context.Context, events []domain.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}
	query := `INSERT INTO domain_events (` + eventColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12);`
	batch := &pgx.Batch{}
	for _, e := range events {
		batch.Queue(query,
			e.EventID,
			e.EventType,
			e.AggregateID,
			e.AggregateType,
			[]byte(e.Payload),
			e.OccurredAt,
			domain.EventPending,
			e.RetryCount,
			e.LastError,
			e.ClaimedAt,
			e.PublishedAt,
			e.CreatedAt,
		)
	}
	if err := r.db(ctx).SendBatch(ctx, batch).Close(); err != nil {
		return mapWriteError(err, "failed to save domain events")
	}
	return nil
}

// FindPendingEvents claims dispatchable events with SKIP LOCKED so concurrent
// publishers never receive the same row.
func (r *PgxDomainEventRepository) FindPendingEvents(ctx context.Context, limit int, claimedAt time.Time) ([]domain.DomainEvent, error) {
	query := `
		UPDATE domain_events
		SET status = $1, claimed_at = $2
		WHERE event_id IN (
			SELECT event_id FROM domain_events
			WHERE status IN ($3, $4)
			ORDER BY seq
			LIMIT $5
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + eventColumns + `, seq;`
	var pageSize *int
	if limit > 0 {
		pageSize = &limit
	}
	rows, err := r.db(ctx).Query(ctx, query, domain.EventPublishing, claimedAt, domain.EventPending, domain.EventFailed, pageSize)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to claim pending events", err)
	}
	defer rows.Close()

	type claimed struct {
		event domain.DomainEvent
		seq   int64
	}
	out := make([]claimed, 0)
	for rows.Next() {
		var c claimed
		if err := rows.Scan(
			&c.event.EventID,
			&c.event.EventType,
			&c.event.AggregateID,
			&c.event.AggregateType,
			&c.event.Payload,
			&c.event.OccurredAt,
			&c.event.Status,
			&c.event.RetryCount,
			&c.event.LastError,
			&c.event.ClaimedAt,
			&c.event.PublishedAt,
			&c.event.CreatedAt,
			&c.seq,
		); err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan claimed event", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "failed to iterate claimed events", err)
	}

	// RETURNING does not keep the subquery order.
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	events := make([]domain.DomainEvent, len(out))
	for i, c := range out {
		events[i] = c.event
	}
	return events, nil
}

// transition moves a publishing event to next. A miss means the event is
// unknown or was moved by someone else.
func (r *PgxDomainEventRepository) transition(ctx context.Context, eventID string, next domain.EventStatus, set string, args ...any) error {
	query := `UPDATE domain_events SET status = $2, claimed_at = NULL` + set + `
		WHERE event_id = $1 AND status = $3;`
	params := append([]any{eventID, next, domain.EventPublishing}, args...)
	tag, err := r.db(ctx).Exec(ctx, query, params...)
	if err != nil {
		return apperrors.NewAppError(500, "failed to update event "+eventID, err)
	}
	if tag.RowsAffected() == 0 {
		current, err := r.FindEventByID(ctx, eventID)
		if err != nil {
			return err
		}
		return apperrors.NewConflictError("EVENT_STATUS_CHANGED", "event %s is %s, cannot move to %s", eventID, current.Status, next)
	}
	return nil
}

func (r *PgxDomainEventRepository) MarkAsPublished(ctx context.Context, eventID string, publishedAt time.Time) error {
	return r.transition(ctx, eventID, domain.EventPublished, `, published_at = $4`, publishedAt)
}

// Failure and claim release both count an attempt against the retry budget.
const (
	markFailedSet    = `, last_error = $4, retry_count = retry_count + 1`
	releaseClaimsSQL = `
		UPDATE domain_events
		SET status = $1, last_error = 'claim expired', claimed_at = NULL, retry_count = retry_count + 1
		WHERE status = $2 AND claimed_at < $3;
	`
)

func (r *PgxDomainEventRepository) MarkAsFailed(ctx context.Context, eventID string, lastError string) error {
	return r.transition(ctx, eventID, domain.EventFailed, markFailedSet, lastError)
}

func (r *PgxDomainEventRepository) MarkAsDeadLettered(ctx context.Context, eventID string, reason string) error {
	return r.transition(ctx, eventID, domain.EventDeadLettered, `, last_error = $4`, reason)
}

// ReleaseStaleClaims hands events abandoned by a crashed publisher back to the queue.
func (r *PgxDomainEventRepository) ReleaseStaleClaims(ctx context.Context, olderThan time.Time) (int64, error) {
	tag, err := r.db(ctx).Exec(ctx, releaseClaimsSQL, domain.EventFailed, domain.EventPublishing, olderThan)
	if err != nil {
		return 0, apperrors.NewAppError(500, "failed to release stale claims", err)
	}
	return tag.RowsAffected(), nil
}

func (r *PgxDomainEventRepository) FindEventByID(ctx context.Context, eventID string) (*domain.DomainEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM domain_events WHERE event_id = $1;`
	e, err := scanEvent(r.db(ctx).QueryRow(ctx, query, eventID))
	if err != nil {
		return nil, mapReadError(err, apperrors.NewNotFoundError("event %s not found", eventID), "failed to find event "+eventID)
	}
	return &e, nil
}

func (r *PgxDomainEventRepository) ListEventsByAggregate(ctx context.Context, aggregateID string) ([]domain.DomainEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM domain_events WHERE aggregate_id = $1 ORDER BY seq;`
	rows, err := r.db(ctx).Query(ctx, query, aggregateID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to list events of "+aggregateID, err)
	}
	return collectEvents(rows)
}

func (r *PgxDomainEventRepository) CountByStatus(ctx context.Context) (map[domain.EventStatus]int, error) {
	rows, err := r.db(ctx).Query(ctx, `SELECT status, COUNT(*) FROM domain_events GROUP BY status;`)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to count events", err)
	}
	defer rows.Close()

	out := make(map[domain.EventStatus]int)
	for rows.Next() {
		var (
			status domain.EventStatus
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan event count", err)
		}
		out[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "failed to iterate event counts", err)
	}
	return out, nil
}
