package repositories

import (
	"context"

	"github.com/SscSPs/commerce_ledger/internal/core/domain"
)

// AccountBalanceReader defines read operations for materialized balances
type AccountBalanceReader interface {
	// FindByAccountAndPeriod returns the balance row, or apperrors.ErrNotFound.
	FindByAccountAndPeriod(ctx context.Context, accountID string, period domain.PeriodRef) (*domain.AccountBalance, error)

	// FindByPeriod returns every balance row of the period.
	FindByPeriod(ctx context.Context, period domain.PeriodRef) ([]domain.AccountBalance, error)
}

// AccountBalanceWriter defines write operations for materialized balances
type AccountBalanceWriter interface {
	// SaveMany upserts rows keyed by (account, year, month).
	SaveMany(ctx context.Context, balances []domain.AccountBalance) error

	// DeleteByPeriod removes every row of the period.
	DeleteByPeriod(ctx context.Context, period domain.PeriodRef) error

	// DeleteByPeriodExcept removes the period's rows for accounts not in keep.
	DeleteByPeriodExcept(ctx context.Context, period domain.PeriodRef, keepAccountIDs []string) error
}

// AccountBalanceRepositoryFacade combines balance repository interfaces
type AccountBalanceRepositoryFacade interface {
	AccountBalanceReader
	AccountBalanceWriter
}
