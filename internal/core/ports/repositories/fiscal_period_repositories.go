package repositories

import (
	"context"

	"github.com/SscSPs/commerce_ledger/internal/core/domain"
)

// FiscalPeriodReader defines read operations for fiscal periods
type FiscalPeriodReader interface {
	// FindFiscalPeriodByID retrieves a period by id.
	FindFiscalPeriodByID(ctx context.Context, fiscalPeriodID string) (*domain.FiscalPeriod, error)

	// FindByPeriod retrieves a period by year and month. Inside a transaction
	// the row is locked according to lock.
	FindByPeriod(ctx context.Context, period domain.PeriodRef, lock RowLock) (*domain.FiscalPeriod, error)

	// FindCurrentOpen returns the latest Open period, or apperrors.ErrNotFound.
	FindCurrentOpen(ctx context.Context) (*domain.FiscalPeriod, error)

	// PeriodExists reports whether a row for (year, month) exists.
	PeriodExists(ctx context.Context, period domain.PeriodRef) (bool, error)

	// ListFiscalPeriods returns all periods, newest first.
	ListFiscalPeriods(ctx context.Context) ([]domain.FiscalPeriod, error)
}

// FiscalPeriodWriter defines write operations for fiscal periods
type FiscalPeriodWriter interface {
	// SaveFiscalPeriod inserts a period. A duplicate (year, month) yields apperrors.ErrConflict.
	SaveFiscalPeriod(ctx context.Context, period domain.FiscalPeriod) error

	// UpdateStatus writes the period's transition fields only if the stored
	// status still equals expected; otherwise apperrors.ErrConflict.
	UpdateStatus(ctx context.Context, period domain.FiscalPeriod, expected domain.FiscalPeriodStatus) error
}

// FiscalPeriodRepositoryFacade combines fiscal period repository interfaces
type FiscalPeriodRepositoryFacade interface {
	FiscalPeriodReader
	FiscalPeriodWriter
}
