package pgsql

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/SscSPs/commerce_ledger/internal/apperrors"
	"github.com/SscSPs/commerce_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/commerce_ledger/internal/core/ports/repositories"
)

type PgxBankReconciliationRepository struct {
	BaseRepository
}

func newPgxBankReconciliationRepository(pool *pgxpool.Pool) portsrepo.BankReconciliationRepositoryFacade {
	return &PgxBankReconciliationRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.BankReconciliationRepositoryFacade = (*PgxBankReconciliationRepository)(nil)

const reconciliationColumns = `
	bank_reconciliation_id, bank_account_id, fiscal_year, fiscal_month,
	statement_ending_balance, book_ending_balance, adjusted_bank_balance, adjusted_book_balance,
	status, notes, completed_by, completed_at, approved_by, approved_at,
	created_at, created_by, last_updated_at, last_updated_by`

const itemColumns = `
	reconciling_item_id, bank_reconciliation_id, position, item_type, description, amount,
	transaction_date, requires_journal_entry, status, journal_entry_id, cleared_at`

func scanReconciliation(row pgx.Row) (domain.BankReconciliation, error) {
	var rec domain.BankReconciliation
	err := row.Scan(
		&rec.BankReconciliationID,
		&rec.BankAccountID,
		&rec.FiscalYear,
		&rec.FiscalMonth,
		&rec.StatementEndingBalance,
		&rec.BookEndingBalance,
		&rec.AdjustedBankBalance,
		&rec.AdjustedBookBalance,
		&rec.Status,
		&rec.Notes,
		&rec.CompletedBy,
		&rec.CompletedAt,
		&rec.ApprovedBy,
		&rec.ApprovedAt,
		&rec.CreatedAt,
		&rec.CreatedBy,
		&rec.LastUpdatedAt,
		&rec.LastUpdatedBy,
	)
	return rec, err
}

// loadItems attaches items in insertion order.
func (r *PgxBankReconciliationRepository) loadItems(ctx context.Context, recs []domain.BankReconciliation) error {
	if len(recs) == 0 {
		return nil
	}
	ids := make([]string, len(recs))
	index := make(map[string]int, len(recs))
	for i, rec := range recs {
		ids[i] = rec.BankReconciliationID
		index[rec.BankReconciliationID] = i
		recs[i].Items = make([]domain.ReconcilingItem, 0)
	}

	query := `SELECT ` + itemColumns + ` FROM reconciling_items
		WHERE bank_reconciliation_id = ANY($1) ORDER BY bank_reconciliation_id, position;`
	rows, err := r.db(ctx).Query(ctx, query, ids)
	if err != nil {
		return apperrors.NewAppError(500, "failed to query reconciling items", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			item     domain.ReconcilingItem
			recID    string
			position int
		)
		if err := rows.Scan(
			&item.ReconcilingItemID,
			&recID,
			&position,
			&item.ItemType,
			&item.Description,
			&item.Amount,
			&item.TransactionDate,
			&item.RequiresJournalEntry,
			&item.Status,
			&item.JournalEntryID,
			&item.ClearedAt,
		); err != nil {
			return apperrors.NewAppError(500, "failed to scan reconciling item", err)
		}
		i := index[recID]
		recs[i].Items = append(recs[i].Items, item)
	}
	if err := rows.Err(); err != nil {
		return apperrors.NewAppError(500, "failed to iterate reconciling items", err)
	}
	return nil
}

func (r *PgxBankReconciliationRepository) writeItems(ctx context.Context, rec domain.BankReconciliation) error {
	if _, err := r.db(ctx).Exec(ctx, `DELETE FROM reconciling_items WHERE bank_reconciliation_id = $1;`, rec.BankReconciliationID); err != nil {
		return apperrors.NewAppError(500, "failed to clear reconciling items", err)
	}
	if len(rec.Items) == 0 {
		return nil
	}
	query := `INSERT INTO reconciling_items (` + itemColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);`
	batch := &pgx.Batch{}
	for position, item := range rec.Items {
		batch.Queue(query,
			item.ReconcilingItemID,
			rec.BankReconciliationID,
			position,
			item.ItemType,
			item.Description,
			item.Amount,
			item.TransactionDate,
			item.RequiresJournalEntry,
			item.Status,
			item.JournalEntryID,
			item.ClearedAt,
		)
	}
	if err := r.db(ctx).SendBatch(ctx, batch).Close(); err != nil {
		return mapWriteError(err, "failed to save reconciling items")
	}
	return nil
}

func (r *PgxBankReconciliationRepository) SaveBankReconciliation(ctx context.Context, rec domain.BankReconciliation) error {
	query := `INSERT INTO bank_reconciliations (` + reconciliationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18);`
	_, err := r.db(ctx).Exec(ctx, query,
		rec.BankReconciliationID,
		rec.BankAccountID,
		rec.FiscalYear,
		rec.FiscalMonth,
		rec.StatementEndingBalance,
		rec.BookEndingBalance,
		rec.AdjustedBankBalance,
		rec.AdjustedBookBalance,
		rec.Status,
		rec.Notes,
		rec.CompletedBy,
		rec.CompletedAt,
		rec.ApprovedBy,
		rec.ApprovedAt,
		rec.CreatedAt,
		rec.CreatedBy,
		rec.LastUpdatedAt,
		rec.LastUpdatedBy,
	)
	if err != nil {
		return mapWriteError(err, "failed to save reconciliation "+rec.BankReconciliationID)
	}
	return r.writeItems(ctx, rec)
}

func selectReconciliationQuery(ctx context.Context, lock portsrepo.RowLock) string {
	return `SELECT ` + reconciliationColumns + ` FROM bank_reconciliations WHERE bank_reconciliation_id = $1` + lockClause(ctx, lock) + `;`
}

// FindBankReconciliationByID loads the header and its items. Items are only
// rewritten after the header, so the header lock covers them.
func (r *PgxBankReconciliationRepository) FindBankReconciliationByID(ctx context.Context, bankReconciliationID string, lock portsrepo.RowLock) (*domain.BankReconciliation, error) {
	query := selectReconciliationQuery(ctx, lock)
	rec, err := scanReconciliation(r.db(ctx).QueryRow(ctx, query, bankReconciliationID))
	if err != nil {
		return nil, mapReadError(err, apperrors.NewNotFoundError("reconciliation %s not found", bankReconciliationID), "failed to find reconciliation "+bankReconciliationID)
	}
	recs := []domain.BankReconciliation{rec}
	if err := r.loadItems(ctx, recs); err != nil {
		return nil, err
	}
	return &recs[0], nil
}

// ListBankReconciliations returns the account's reconciliations, newest period first.
func (r *PgxBankReconciliationRepository) ListBankReconciliations(ctx context.Context, bankAccountID string) ([]domain.BankReconciliation, error) {
	query := `SELECT ` + reconciliationColumns + ` FROM bank_reconciliations
		WHERE bank_account_id = $1 ORDER BY fiscal_year DESC, fiscal_month DESC;`
	rows, err := r.db(ctx).Query(ctx, query, bankAccountID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to list reconciliations", err)
	}
	recs := make([]domain.BankReconciliation, 0)
	for rows.Next() {
		rec, err := scanReconciliation(rows)
		if err != nil {
			rows.Close()
			return nil, apperrors.NewAppError(500, "failed to scan reconciliation", err)
		}
		recs = append(recs, rec)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "failed to iterate reconciliations", err)
	}
	if err := r.loadItems(ctx, recs); err != nil {
		return nil, err
	}
	return recs, nil
}

// UpdateBankReconciliation rewrites the header as a compare-and-set on status,
// then replaces the items.
func (r *PgxBankReconciliationRepository) UpdateBankReconciliation(ctx context.Context, rec domain.BankReconciliation, expected domain.ReconciliationStatus) error {
	query := `
		UPDATE bank_reconciliations
		SET statement_ending_balance = $2, book_ending_balance = $3,
		    adjusted_bank_balance = $4, adjusted_book_balance = $5,
		    status = $6, notes = $7, completed_by = $8, completed_at = $9,
		    approved_by = $10, approved_at = $11, last_updated_at = $12, last_updated_by = $13
		WHERE bank_reconciliation_id = $1 AND status = $14;
	`
	tag, err := r.db(ctx).Exec(ctx, query,
		rec.BankReconciliationID,
		rec.StatementEndingBalance,
		rec.BookEndingBalance,
		rec.AdjustedBankBalance,
		rec.AdjustedBookBalance,
		rec.Status,
		rec.Notes,
		rec.CompletedBy,
		rec.CompletedAt,
		rec.ApprovedBy,
		rec.ApprovedAt,
		rec.LastUpdatedAt,
		rec.LastUpdatedBy,
		expected,
	)
	if err != nil {
		return mapWriteError(err, "failed to update reconciliation "+rec.BankReconciliationID)
	}
	if tag.RowsAffected() == 0 {
		var current domain.ReconciliationStatus
		err := r.db(ctx).QueryRow(ctx, `SELECT status FROM bank_reconciliations WHERE bank_reconciliation_id = $1;`, rec.BankReconciliationID).Scan(&current)
		if err != nil {
			return mapReadError(err, apperrors.NewNotFoundError("reconciliation %s not found", rec.BankReconciliationID), "failed to read reconciliation "+rec.BankReconciliationID)
		}
		return apperrors.NewConflictError("CONCURRENT_MODIFICATION", "reconciliation %s is %s, expected %s", rec.BankReconciliationID, current, expected)
	}
	return r.writeItems(ctx, rec)
}
