package pgsql

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/SscSPs/commerce_ledger/internal/apperrors"
	portsrepo "github.com/SscSPs/commerce_ledger/internal/core/ports/repositories"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

type txKey struct{}

// querier is the subset of pgx shared by the pool and an open transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// BaseRepository provides common functionality for all repositories
type BaseRepository struct {
	Pool *pgxpool.Pool
}

// db returns the transaction carried by ctx, or the pool.
func (r *BaseRepository) db(ctx context.Context) querier {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return r.Pool
}

// inTx reports whether ctx carries an open transaction.
func inTx(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(pgx.Tx)
	return ok
}

// Begin starts a new database transaction
func (r *BaseRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.Pool.Begin(ctx)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to begin transaction", err)
	}
	return tx, nil
}

// Commit commits a transaction
func (r *BaseRepository) Commit(ctx context.Context, tx pgx.Tx) error {
	if err := tx.Commit(ctx); err != nil {
		return apperrors.NewAppError(500, "failed to commit transaction", err)
	}
	return nil
}

// Rollback rolls back a transaction
func (r *BaseRepository) Rollback(ctx context.Context, tx pgx.Tx) error {
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return apperrors.NewAppError(500, "failed to rollback transaction", err)
	}
	return nil
}

// TxManager implements portsrepo.TransactionManager on a pgx pool.
type TxManager struct {
	BaseRepository
}

var _ portsrepo.TransactionManager = (*TxManager)(nil)

func (m *TxManager) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx(ctx) {
		return fn(ctx)
	}
	tx, err := m.Begin(ctx)
	if err != nil {
		return err
	}
	defer m.Rollback(ctx, tx) //nolint:errcheck // ignored once committed

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	return m.Commit(ctx, tx)
}

// lockClause returns the row lock suffix for a SELECT. Outside a transaction
// a lock would be released immediately, so none is taken.
func lockClause(ctx context.Context, lock portsrepo.RowLock) string {
	if !inTx(ctx) {
		return ""
	}
	switch lock {
	case portsrepo.RowLockShare:
		return " FOR SHARE"
	case portsrepo.RowLockUpdate:
		return " FOR UPDATE"
	default:
		return ""
	}
}

// constraintCode maps a unique constraint name to an apperrors code.
func constraintCode(name string) string {
	switch name {
	case "accounts_pkey":
		return "DUPLICATE_ACCOUNT"
	case "accounts_code_key":
		return "DUPLICATE_ACCOUNT_CODE"
	case "fiscal_periods_pkey", "fiscal_periods_period_key":
		return "DUPLICATE_FISCAL_PERIOD"
	case "journal_entries_pkey":
		return "DUPLICATE_JOURNAL_ENTRY"
	case "journal_entries_entry_number_key":
		return portsrepo.CodeDuplicateEntryNumber
	case "journal_entries_source_reference_key":
		return "DUPLICATE_SOURCE_REFERENCE"
	case "bank_accounts_pkey":
		return "DUPLICATE_BANK_ACCOUNT"
	case "bank_statements_pkey":
		return "DUPLICATE_BANK_STATEMENT"
	case "bank_transactions_fingerprint_key":
		return "DUPLICATE_FINGERPRINT"
	case "bank_transactions_matched_line_key":
		return "LINE_ALREADY_MATCHED"
	case "bank_reconciliations_period_key":
		return "DUPLICATE_RECONCILIATION"
	case "domain_events_pkey":
		return "DUPLICATE_EVENT"
	default:
		return "DUPLICATE"
	}
}

// mapWriteError turns constraint violations into conflict and validation
// errors and everything else into an internal error.
func mapWriteError(err error, message string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			return &apperrors.AppError{Kind: apperrors.ErrConflict, Code: constraintCode(pgErr.ConstraintName), Message: message, Err: err}
		case foreignKeyViolation:
			return &apperrors.AppError{Kind: apperrors.ErrValidation, Code: "REFERENCE_NOT_FOUND", Message: message, Err: err}
		}
	}
	return apperrors.NewAppError(500, message, err)
}

// mapReadError reports pgx.ErrNoRows as not found.
func mapReadError(err error, notFound *apperrors.AppError, message string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return notFound
	}
	return apperrors.NewAppError(500, message, err)
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
