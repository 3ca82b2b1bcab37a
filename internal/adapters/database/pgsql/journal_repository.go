package pgsql

import (
	"context"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/SscSPs/commerce_ledger/internal/apperrors"
	"github.com/SscSPs/commerce_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/commerce_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/commerce_ledger/internal/utils/pagination"
)

type PgxJournalEntryRepository struct {
	BaseRepository
}

// newPgxJournalEntryRepository creates a new repository for journal entries and their lines.
func newPgxJournalEntryRepository(pool *pgxpool.Pool) portsrepo.JournalEntryRepositoryFacade {
	return &PgxJournalEntryRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.JournalEntryRepositoryFacade = (*PgxJournalEntryRepository)(nil)

const entryColumns = `
	journal_entry_id, entry_number, entry_date, description, entry_type, status,
	fiscal_year, fiscal_month, source_service, source_reference_id,
	posted_by, posted_at, voided_by, voided_at, void_reason,
	created_at, created_by, last_updated_at, last_updated_by`

const lineColumns = `
	journal_line_id, journal_entry_id, line_number, account_id, transaction_type, amount, memo, dimensions`

func scanEntry(row pgx.Row) (domain.JournalEntry, error) {
	var (
		e                         domain.JournalEntry
		number, source, sourceRef *string
	)
	err := row.Scan(
		&e.JournalEntryID,
		&number,
		&e.EntryDate,
		&e.Description,
		&e.EntryType,
		&e.Status,
		&e.FiscalYear,
		&e.FiscalMonth,
		&source,
		&sourceRef,
		&e.PostedBy,
		&e.PostedAt,
		&e.VoidedBy,
		&e.VoidedAt,
		&e.VoidReason,
		&e.CreatedAt,
		&e.CreatedBy,
		&e.LastUpdatedAt,
		&e.LastUpdatedBy,
	)
	e.EntryNumber = derefString(number)
	e.SourceService = derefString(source)
	e.SourceReferenceID = derefString(sourceRef)
	return e, err
}

// loadLines attaches lines to the given entries, ordered by line number.
func (r *PgxJournalEntryRepository) loadLines(ctx context.Context, entries []domain.JournalEntry) error {
	if len(entries) == 0 {
		return nil
	}
	ids := make([]string, len(entries))
	index := make(map[string]int, len(entries))
	for i, e := range entries {
		ids[i] = e.JournalEntryID
		index[e.JournalEntryID] = i
		entries[i].Lines = make([]domain.JournalLine, 0)
	}

	query := `SELECT ` + lineColumns + ` FROM journal_lines
		WHERE journal_entry_id = ANY($1) ORDER BY journal_entry_id, line_number;`
	rows, err := r.db(ctx).Query(ctx, query, ids)
	if err != nil {
		return apperrors.NewAppError(500, "failed to query journal lines", err)
	}
	defer rows.Close()

	for rows.Next() {
		var l domain.JournalLine
		if err := rows.Scan(
			&l.JournalLineID,
			&l.JournalEntryID,
			&l.LineNumber,
			&l.AccountID,
			&l.TransactionType,
			&l.Amount,
			&l.Memo,
			&l.Dimensions,
		); err != nil {
			return apperrors.NewAppError(500, "failed to scan journal line", err)
		}
		i := index[l.JournalEntryID]
		entries[i].Lines = append(entries[i].Lines, l)
	}
	if err := rows.Err(); err != nil {
		return apperrors.NewAppError(500, "failed to iterate journal lines", err)
	}
	return nil
}

// selectEntryQuery reads one entry header, locking it as requested when ctx
// carries a transaction.
func selectEntryQuery(ctx context.Context, where string, lock portsrepo.RowLock) string {
	return `SELECT ` + entryColumns + ` FROM journal_entries WHERE ` + where + lockClause(ctx, lock) + `;`
}

func (r *PgxJournalEntryRepository) findOne(ctx context.Context, where string, lock portsrepo.RowLock, notFound *apperrors.AppError, args ...any) (*domain.JournalEntry, error) {
	query := selectEntryQuery(ctx, where, lock)
	e, err := scanEntry(r.db(ctx).QueryRow(ctx, query, args...))
	if err != nil {
		return nil, mapReadError(err, notFound, "failed to find journal entry")
	}
	entries := []domain.JournalEntry{e}
	if err := r.loadLines(ctx, entries); err != nil {
		return nil, err
	}
	return &entries[0], nil
}

// FindJournalEntryByID retrieves an entry and its lines. Lines change only
// together with their header, so locking the header covers them too.
func (r *PgxJournalEntryRepository) FindJournalEntryByID(ctx context.Context, journalEntryID string, lock portsrepo.RowLock) (*domain.JournalEntry, error) {
	return r.findOne(ctx, `journal_entry_id = $1`, lock,
		apperrors.NewNotFoundError("journal entry %s not found", journalEntryID), journalEntryID)
}

func (r *PgxJournalEntryRepository) FindBySourceReference(ctx context.Context, sourceService, sourceReferenceID string) (*domain.JournalEntry, error) {
	return r.findOne(ctx, `source_service = $1 AND source_reference_id = $2`, portsrepo.RowLockNone,
		apperrors.NewNotFoundError("journal entry for %s/%s not found", sourceService, sourceReferenceID),
		sourceService, sourceReferenceID)
}

// ListJournalEntries pages with a keyset on (entry_date, created_at, id), all descending.
func (r *PgxJournalEntryRepository) ListJournalEntries(ctx context.Context, filter portsrepo.JournalEntryFilter, limit int, nextToken *string) ([]domain.JournalEntry, *string, error) {
	query := `SELECT ` + entryColumns + ` FROM journal_entries WHERE TRUE`
	args := make([]any, 0, 6)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.Period != nil {
		query += ` AND fiscal_year = ` + arg(filter.Period.Year) + ` AND fiscal_month = ` + arg(filter.Period.Month)
	}
	if filter.Status != "" {
		query += ` AND status = ` + arg(filter.Status)
	}
	if nextToken != nil && *nextToken != "" {
		cursor, err := pagination.DecodeToken(*nextToken)
		if err != nil {
			return nil, nil, apperrors.NewValidationError("INVALID_PAGE_TOKEN", "%s", err.Error())
		}
		query += ` AND (entry_date, created_at, journal_entry_id) < (` +
			arg(cursor.EntryDate) + `, ` + arg(cursor.CreatedAt) + `, ` + arg(cursor.ID) + `)`
	}
	query += ` ORDER BY entry_date DESC, created_at DESC, journal_entry_id DESC`
	if limit > 0 {
		// One extra row tells whether another page exists.
		query += ` LIMIT ` + arg(limit+1)
	}

	rows, err := r.db(ctx).Query(ctx, query+`;`, args...)
	if err != nil {
		return nil, nil, apperrors.NewAppError(500, "failed to list journal entries", err)
	}
	entries := make([]domain.JournalEntry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			rows.Close()
			return nil, nil, apperrors.NewAppError(500, "failed to scan journal entry", err)
		}
		entries = append(entries, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, nil, apperrors.NewAppError(500, "failed to iterate journal entries", err)
	}

	var next *string
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
		last := entries[limit-1]
		token := pagination.EncodeToken(last.EntryDate, last.CreatedAt, last.JournalEntryID)
		next = &token
	}
	if err := r.loadLines(ctx, entries); err != nil {
		return nil, nil, err
	}
	return entries, next, nil
}

func (r *PgxJournalEntryRepository) AccountHasLines(ctx context.Context, accountID string) (bool, error) {
	var used bool
	query := `SELECT EXISTS (SELECT 1 FROM journal_lines WHERE account_id = $1);`
	if err := r.db(ctx).QueryRow(ctx, query, accountID).Scan(&used); err != nil {
		return false, apperrors.NewAppError(500, "failed to check lines of account "+accountID, err)
	}
	return used, nil
}

func (r *PgxJournalEntryRepository) insertLines(ctx context.Context, lines []domain.JournalLine) error {
	batch := &pgx.Batch{}
	query := `INSERT INTO journal_lines (` + lineColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8);`
	for _, l := range lines {
		batch.Queue(query,
			l.JournalLineID,
			l.JournalEntryID,
			l.LineNumber,
			l.AccountID,
			l.TransactionType,
			l.Amount,
			l.Memo,
			l.Dimensions,
		)
	}
	if err := r.db(ctx).SendBatch(ctx, batch).Close(); err != nil {
		return mapWriteError(err, "failed to insert journal lines")
	}
	return nil
}

// SaveJournalEntry persists a new entry with its lines. Callers run it inside
// a transaction so the header and lines land together.
func (r *PgxJournalEntryRepository) SaveJournalEntry(ctx context.Context, entry domain.JournalEntry) error {
	query := `
		INSERT INTO journal_entries (` + entryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19);
	`
	_, err := r.db(ctx).Exec(ctx, query,
		entry.JournalEntryID,
		nullIfEmpty(entry.EntryNumber),
		entry.EntryDate,
		entry.Description,
		entry.EntryType,
		entry.Status,
		entry.FiscalYear,
		entry.FiscalMonth,
		nullIfEmpty(entry.SourceService),
		nullIfEmpty(entry.SourceReferenceID),
		entry.PostedBy,
		entry.PostedAt,
		entry.VoidedBy,
		entry.VoidedAt,
		entry.VoidReason,
		entry.CreatedAt,
		entry.CreatedBy,
		entry.LastUpdatedAt,
		entry.LastUpdatedBy,
	)
	if err != nil {
		return mapWriteError(err, "failed to insert journal entry "+entry.JournalEntryID)
	}
	return r.insertLines(ctx, entry.Lines)
}

// UpdateJournalEntry rewrites a Draft entry's header and replaces its lines.
func (r *PgxJournalEntryRepository) UpdateJournalEntry(ctx context.Context, entry domain.JournalEntry) error {
	query := `
		UPDATE journal_entries
		SET entry_date = $2, description = $3, fiscal_year = $4, fiscal_month = $5,
		    last_updated_at = $6, last_updated_by = $7
		WHERE journal_entry_id = $1 AND status = $8;
	`
	tag, err := r.db(ctx).Exec(ctx, query,
		entry.JournalEntryID,
		entry.EntryDate,
		entry.Description,
		entry.FiscalYear,
		entry.FiscalMonth,
		entry.LastUpdatedAt,
		entry.LastUpdatedBy,
		domain.JournalDraft,
	)
	if err != nil {
		return mapWriteError(err, "failed to update journal entry "+entry.JournalEntryID)
	}
	if tag.RowsAffected() == 0 {
		return r.casMiss(ctx, entry.JournalEntryID, domain.JournalDraft)
	}
	if _, err := r.db(ctx).Exec(ctx, `DELETE FROM journal_lines WHERE journal_entry_id = $1;`, entry.JournalEntryID); err != nil {
		return apperrors.NewAppError(500, "failed to replace lines of journal entry "+entry.JournalEntryID, err)
	}
	return r.insertLines(ctx, entry.Lines)
}

// UpdateJournalEntryStatus persists a post or void as a compare-and-set on status.
func (r *PgxJournalEntryRepository) UpdateJournalEntryStatus(ctx context.Context, entry domain.JournalEntry, expected domain.JournalStatus) error {
	query := `
		UPDATE journal_entries
		SET status = $2, entry_number = $3, posted_by = $4, posted_at = $5,
		    voided_by = $6, voided_at = $7, void_reason = $8,
		    last_updated_at = $9, last_updated_by = $10
		WHERE journal_entry_id = $1 AND status = $11;
	`
	tag, err := r.db(ctx).Exec(ctx, query,
		entry.JournalEntryID,
		entry.Status,
		nullIfEmpty(entry.EntryNumber),
		entry.PostedBy,
		entry.PostedAt,
		entry.VoidedBy,
		entry.VoidedAt,
		entry.VoidReason,
		entry.LastUpdatedAt,
		entry.LastUpdatedBy,
		expected,
	)
	if err != nil {
		return mapWriteError(err, "failed to update status of journal entry "+entry.JournalEntryID)
	}
	if tag.RowsAffected() == 0 {
		return r.casMiss(ctx, entry.JournalEntryID, expected)
	}
	return nil
}

// DeleteJournalEntry removes a Draft entry; lines go with it by cascade.
func (r *PgxJournalEntryRepository) DeleteJournalEntry(ctx context.Context, journalEntryID string) error {
	tag, err := r.db(ctx).Exec(ctx, `DELETE FROM journal_entries WHERE journal_entry_id = $1 AND status = $2;`,
		journalEntryID, domain.JournalDraft)
	if err != nil {
		return mapWriteError(err, "failed to delete journal entry "+journalEntryID)
	}
	if tag.RowsAffected() == 0 {
		return r.casMiss(ctx, journalEntryID, domain.JournalDraft)
	}
	return nil
}

// casMiss explains why a guarded write touched no row.
func (r *PgxJournalEntryRepository) casMiss(ctx context.Context, journalEntryID string, expected domain.JournalStatus) error {
	var current domain.JournalStatus
	err := r.db(ctx).QueryRow(ctx, `SELECT status FROM journal_entries WHERE journal_entry_id = $1;`, journalEntryID).Scan(&current)
	if err != nil {
		return mapReadError(err, apperrors.NewNotFoundError("journal entry %s not found", journalEntryID), "failed to read journal entry "+journalEntryID)
	}
	return apperrors.NewConflictError("CONCURRENT_MODIFICATION", "journal entry %s is %s, expected %s", journalEntryID, current, expected)
}

// GenerateEntryNumber bumps the per-period counter. The counter row stays
// locked until the surrounding transaction ends.
func (r *PgxJournalEntryRepository) GenerateEntryNumber(ctx context.Context, period domain.PeriodRef) (string, error) {
	query := `
		INSERT INTO journal_entry_counters (fiscal_year, fiscal_month, last_value)
		VALUES ($1, $2, 1)
		ON CONFLICT (fiscal_year, fiscal_month)
		DO UPDATE SET last_value = journal_entry_counters.last_value + 1
		RETURNING last_value;
	`
	var seq int64
	if err := r.db(ctx).QueryRow(ctx, query, period.Year, period.Month).Scan(&seq); err != nil {
		return "", apperrors.NewAppError(500, "failed to generate entry number for "+period.String(), err)
	}
	return domain.FormatEntryNumber(period, seq), nil
}

// AggregatePostedLines sums posted lines per account for the period.
func (r *PgxJournalEntryRepository) AggregatePostedLines(ctx context.Context, period domain.PeriodRef) ([]domain.AccountMovement, error) {
	query := `
		SELECT l.account_id,
		       COALESCE(SUM(l.amount) FILTER (WHERE l.transaction_type = 'DEBIT'), 0),
		       COALESCE(SUM(l.amount) FILTER (WHERE l.transaction_type = 'CREDIT'), 0)
		FROM journal_lines l
		JOIN journal_entries e ON e.journal_entry_id = l.journal_entry_id
		WHERE e.status = $1 AND e.fiscal_year = $2 AND e.fiscal_month = $3
		GROUP BY l.account_id
		ORDER BY l.account_id;
	`
	rows, err := r.db(ctx).Query(ctx, query, domain.JournalPosted, period.Year, period.Month)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to aggregate lines for "+period.String(), err)
	}
	defer rows.Close()

	movements := make([]domain.AccountMovement, 0)
	for rows.Next() {
		var m domain.AccountMovement
		if err := rows.Scan(&m.AccountID, &m.Debit, &m.Credit); err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan account movement", err)
		}
		movements = append(movements, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "failed to iterate account movements", err)
	}
	return movements, nil
}

const candidateSelect = `
	SELECT l.journal_line_id, e.journal_entry_id, e.entry_number, l.account_id,
	       e.entry_date, l.transaction_type, l.amount
	FROM journal_lines l
	JOIN journal_entries e ON e.journal_entry_id = l.journal_entry_id`

func scanCandidate(row pgx.Row) (domain.MatchCandidate, error) {
	var (
		c      domain.MatchCandidate
		number *string
	)
	err := row.Scan(&c.JournalLineID, &c.JournalEntryID, &number, &c.AccountID, &c.EntryDate, &c.TransactionType, &c.Amount)
	c.EntryNumber = derefString(number)
	return c, err
}

// FindMatchCandidates lists unmatched posted lines on the GL account within [from, to].
func (r *PgxJournalEntryRepository) FindMatchCandidates(ctx context.Context, glAccountID string, from, to time.Time) ([]domain.MatchCandidate, error) {
	query := candidateSelect + `
		WHERE e.status = $1 AND l.account_id = $2 AND e.entry_date BETWEEN $3 AND $4
		  AND NOT EXISTS (
		      SELECT 1 FROM bank_transactions t
		      WHERE t.matched_journal_line_id = l.journal_line_id AND t.match_status = $5)
		ORDER BY e.entry_date, l.journal_line_id;`
	rows, err := r.db(ctx).Query(ctx, query, domain.JournalPosted, glAccountID, from, to, domain.MatchMatched)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query match candidates", err)
	}
	defer rows.Close()

	candidates := make([]domain.MatchCandidate, 0)
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan match candidate", err)
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "failed to iterate match candidates", err)
	}
	return candidates, nil
}

func (r *PgxJournalEntryRepository) FindMatchCandidate(ctx context.Context, journalLineID string) (*domain.MatchCandidate, error) {
	query := candidateSelect + ` WHERE e.status = $1 AND l.journal_line_id = $2;`
	c, err := scanCandidate(r.db(ctx).QueryRow(ctx, query, domain.JournalPosted, journalLineID))
	if err != nil {
		return nil, mapReadError(err, apperrors.NewNotFoundError("posted journal line %s not found", journalLineID), "failed to find journal line "+journalLineID)
	}
	return &c, nil
}
