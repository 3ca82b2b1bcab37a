package pgsql

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/SscSPs/commerce_ledger/internal/apperrors"
	"github.com/SscSPs/commerce_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/commerce_ledger/internal/core/ports/repositories"
)

type PgxFiscalPeriodRepository struct {
	BaseRepository
}

func newPgxFiscalPeriodRepository(pool *pgxpool.Pool) portsrepo.FiscalPeriodRepositoryFacade {
	return &PgxFiscalPeriodRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.FiscalPeriodRepositoryFacade = (*PgxFiscalPeriodRepository)(nil)

const periodColumns = `
	fiscal_period_id, fiscal_year, fiscal_month, status,
	closed_by, closed_at, reopened_by, reopened_at, reopen_reason, locked_by, locked_at,
	created_at, created_by, last_updated_at, last_updated_by`

func scanPeriod(row pgx.Row) (domain.FiscalPeriod, error) {
	var p domain.FiscalPeriod
	err := row.Scan(
		&p.FiscalPeriodID,
		&p.FiscalYear,
		&p.FiscalMonth,
		&p.Status,
		&p.ClosedBy,
		&p.ClosedAt,
		&p.ReopenedBy,
		&p.ReopenedAt,
		&p.ReopenReason,
		&p.LockedBy,
		&p.LockedAt,
		&p.CreatedAt,
		&p.CreatedBy,
		&p.LastUpdatedAt,
		&p.LastUpdatedBy,
	)
	return p, err
}

func (r *PgxFiscalPeriodRepository) FindFiscalPeriodByID(ctx context.Context, fiscalPeriodID string) (*domain.FiscalPeriod, error) {
	query := `SELECT ` + periodColumns + ` FROM fiscal_periods WHERE fiscal_period_id = $1;`
	p, err := scanPeriod(r.db(ctx).QueryRow(ctx, query, fiscalPeriodID))
	if err != nil {
		return nil, mapReadError(err, apperrors.NewNotFoundError("fiscal period %s not found", fiscalPeriodID), "failed to find fiscal period "+fiscalPeriodID)
	}
	return &p, nil
}

// FindByPeriod reads the period row, locking it when called inside a transaction.
func (r *PgxFiscalPeriodRepository) FindByPeriod(ctx context.Context, period domain.PeriodRef, lock portsrepo.RowLock) (*domain.FiscalPeriod, error) {
	query := `SELECT ` + periodColumns + ` FROM fiscal_periods
		WHERE fiscal_year = $1 AND fiscal_month = $2` + lockClause(ctx, lock) + `;`
	p, err := scanPeriod(r.db(ctx).QueryRow(ctx, query, period.Year, period.Month))
	if err != nil {
		return nil, mapReadError(err, apperrors.NewNotFoundError("fiscal period %s not found", period), "failed to find fiscal period "+period.String())
	}
	return &p, nil
}

func (r *PgxFiscalPeriodRepository) FindCurrentOpen(ctx context.Context) (*domain.FiscalPeriod, error) {
	query := `SELECT ` + periodColumns + ` FROM fiscal_periods
		WHERE status = $1
		ORDER BY fiscal_year DESC, fiscal_month DESC
		LIMIT 1;`
	p, err := scanPeriod(r.db(ctx).QueryRow(ctx, query, domain.PeriodOpen))
	if err != nil {
		return nil, mapReadError(err, apperrors.NewNotFoundError("no open fiscal period"), "failed to find the open fiscal period")
	}
	return &p, nil
}

func (r *PgxFiscalPeriodRepository) PeriodExists(ctx context.Context, period domain.PeriodRef) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM fiscal_periods WHERE fiscal_year = $1 AND fiscal_month = $2);`
	if err := r.db(ctx).QueryRow(ctx, query, period.Year, period.Month).Scan(&exists); err != nil {
		return false, apperrors.NewAppError(500, "failed to check fiscal period "+period.String(), err)
	}
	return exists, nil
}

// ListFiscalPeriods returns all periods, newest first.
func (r *PgxFiscalPeriodRepository) ListFiscalPeriods(ctx context.Context) ([]domain.FiscalPeriod, error) {
	query := `SELECT ` + periodColumns + ` FROM fiscal_periods ORDER BY fiscal_year DESC, fiscal_month DESC;`
	rows, err := r.db(ctx).Query(ctx, query)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to list fiscal periods", err)
	}
	defer rows.Close()

	periods := make([]domain.FiscalPeriod, 0)
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan fiscal period", err)
		}
		periods = append(periods, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "failed to iterate fiscal periods", err)
	}
	return periods, nil
}

func (r *PgxFiscalPeriodRepository) SaveFiscalPeriod(ctx context.Context, period domain.FiscalPeriod) error {
	query := `
		INSERT INTO fiscal_periods (` + periodColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15);
	`
	_, err := r.db(ctx).Exec(ctx, query,
		period.FiscalPeriodID,
		period.FiscalYear,
		period.FiscalMonth,
		period.Status,
		period.ClosedBy,
		period.ClosedAt,
		period.ReopenedBy,
		period.ReopenedAt,
		period.ReopenReason,
		period.LockedBy,
		period.LockedAt,
		period.CreatedAt,
		period.CreatedBy,
		period.LastUpdatedAt,
		period.LastUpdatedBy,
	)
	if err != nil {
		return mapWriteError(err, "failed to save fiscal period "+period.Ref().String())
	}
	return nil
}

// UpdateStatus is a compare-and-set on the stored status.
func (r *PgxFiscalPeriodRepository) UpdateStatus(ctx context.Context, period domain.FiscalPeriod, expected domain.FiscalPeriodStatus) error {
	query := `
		UPDATE fiscal_periods
		SET status = $2, closed_by = $3, closed_at = $4, reopened_by = $5, reopened_at = $6,
		    reopen_reason = $7, locked_by = $8, locked_at = $9, last_updated_at = $10, last_updated_by = $11
		WHERE fiscal_period_id = $1 AND status = $12;
	`
	tag, err := r.db(ctx).Exec(ctx, query,
		period.FiscalPeriodID,
		period.Status,
		period.ClosedBy,
		period.ClosedAt,
		period.ReopenedBy,
		period.ReopenedAt,
		period.ReopenReason,
		period.LockedBy,
		period.LockedAt,
		period.LastUpdatedAt,
		period.LastUpdatedBy,
		expected,
	)
	if err != nil {
		return mapWriteError(err, "failed to update fiscal period "+period.Ref().String())
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.FindFiscalPeriodByID(ctx, period.FiscalPeriodID); err != nil {
			return err
		}
		return apperrors.NewConflictError("CONCURRENT_MODIFICATION", "fiscal period %s is no longer %s", period.Ref(), expected)
	}
	return nil
}
