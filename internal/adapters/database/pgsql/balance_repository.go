package pgsql

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/SscSPs/commerce_ledger/internal/apperrors"
	"github.com/SscSPs/commerce_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/commerce_ledger/internal/core/ports/repositories"
)

type PgxAccountBalanceRepository struct {
	BaseRepository
}

func newPgxAccountBalanceRepository(pool *pgxpool.Pool) portsrepo.AccountBalanceRepositoryFacade {
	return &PgxAccountBalanceRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.AccountBalanceRepositoryFacade = (*PgxAccountBalanceRepository)(nil)

const balanceColumns = `
	account_id, fiscal_year, fiscal_month, opening_balance, debit_total, credit_total,
	closing_balance, last_updated_at`

func scanBalance(row pgx.Row) (domain.AccountBalance, error) {
	var b domain.AccountBalance
	err := row.Scan(
		&b.AccountID,
		&b.FiscalYear,
		&b.FiscalMonth,
		&b.OpeningBalance,
		&b.DebitTotal,
		&b.CreditTotal,
		&b.ClosingBalance,
		&b.LastUpdatedAt,
	)
	return b, err
}

func (r *PgxAccountBalanceRepository) FindByAccountAndPeriod(ctx context.Context, accountID string, period domain.PeriodRef) (*domain.AccountBalance, error) {
	query := `SELECT ` + balanceColumns + ` FROM account_balances
		WHERE account_id = $1 AND fiscal_year = $2 AND fiscal_month = $3;`
	b, err := scanBalance(r.db(ctx).QueryRow(ctx, query, accountID, period.Year, period.Month))
	if err != nil {
		return nil, mapReadError(err,
			apperrors.NewNotFoundError("no balance for account %s in %s", accountID, period),
			"failed to find balance of account "+accountID)
	}
	return &b, nil
}

func (r *PgxAccountBalanceRepository) FindByPeriod(ctx context.Context, period domain.PeriodRef) ([]domain.AccountBalance, error) {
	query := `SELECT ` + balanceColumns + ` FROM account_balances
		WHERE fiscal_year = $1 AND fiscal_month = $2 ORDER BY account_id;`
	rows, err := r.db(ctx).Query(ctx, query, period.Year, period.Month)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query balances for "+period.String(), err)
	}
	defer rows.Close()

	balances := make([]domain.AccountBalance, 0)
	for rows.Next() {
		b, err := scanBalance(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan balance", err)
		}
		balances = append(balances, b)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "failed to iterate balances", err)
	}
	return balances, nil
}

// SaveMany upserts every row in one batch.
func (r *PgxAccountBalanceRepository) SaveMany(ctx context.Context, balances []domain.AccountBalance) error {
	if len(balances) == 0 {
		return nil
	}
	query := `
		INSERT INTO account_balances (` + balanceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (account_id, fiscal_year, fiscal_month) DO UPDATE
		SET opening_balance = EXCLUDED.opening_balance,
		    debit_total = EXCLUDED.debit_total,
		    credit_total = EXCLUDED.credit_total,
		    closing_balance = EXCLUDED.closing_balance,
		    last_updated_at = EXCLUDED.last_updated_at;
	`
	batch := &pgx.Batch{}
	for _, b := range balances {
		batch.Queue(query,
			b.AccountID,
			b.FiscalYear,
			b.FiscalMonth,
			b.OpeningBalance,
			b.DebitTotal,
			b.CreditTotal,
			b.ClosingBalance,
			b.LastUpdatedAt,
		)
	}
	if err := r.db(ctx).SendBatch(ctx, batch).Close(); err != nil {
		return mapWriteError(err, "failed to save account balances")
	}
	return nil
}

func (r *PgxAccountBalanceRepository) DeleteByPeriod(ctx context.Context, period domain.PeriodRef) error {
	_, err := r.db(ctx).Exec(ctx, `DELETE FROM account_balances WHERE fiscal_year = $1 AND fiscal_month = $2;`, period.Year, period.Month)
	if err != nil {
		return apperrors.NewAppError(500, "failed to delete balances for "+period.String(), err)
	}
	return nil
}

func (r *PgxAccountBalanceRepository) DeleteByPeriodExcept(ctx context.Context, period domain.PeriodRef, keepAccountIDs []string) error {
	query := `
		DELETE FROM account_balances
		WHERE fiscal_year = $1 AND fiscal_month = $2 AND NOT (account_id = ANY($3));
	`
	if keepAccountIDs == nil {
		keepAccountIDs = []string{}
	}
	_, err := r.db(ctx).Exec(ctx, query, period.Year, period.Month, keepAccountIDs)
	if err != nil {
		return apperrors.NewAppError(500, "failed to prune balances for "+period.String(), err)
	}
	return nil
}
