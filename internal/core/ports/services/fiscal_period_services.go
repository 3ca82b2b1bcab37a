package services

import (
	"context"

	"github.com/SscSPs/commerce_ledger/internal/core/domain"
)

// ClosePeriodResult reports the balances materialized while closing.
type ClosePeriodResult struct {
	Period   *domain.FiscalPeriod
	Balances *BalanceCalculationResult
}

// FiscalPeriodReaderSvc defines read operations for fiscal periods
type FiscalPeriodReaderSvc interface {
	GetFiscalPeriod(ctx context.Context, period domain.PeriodRef) (*domain.FiscalPeriod, error)
	GetCurrentOpenPeriod(ctx context.Context) (*domain.FiscalPeriod, error)
	ListFiscalPeriods(ctx context.Context) ([]domain.FiscalPeriod, error)
}

// FiscalPeriodWriterSvc defines the fiscal period lifecycle commands
type FiscalPeriodWriterSvc interface {
	// CreateFiscalPeriod opens a new period. Duplicates yield a ConflictError.
	CreateFiscalPeriod(ctx context.Context, period domain.PeriodRef, createdBy string) (*domain.FiscalPeriod, error)

	// CloseFiscalPeriod recalculates the period's balances and closes it
	// when the trial balance holds.
	CloseFiscalPeriod(ctx context.Context, period domain.PeriodRef, closedBy string) (*ClosePeriodResult, error)

	// ReopenFiscalPeriod reopens a Closed period. A reason is mandatory.
	ReopenFiscalPeriod(ctx context.Context, period domain.PeriodRef, reopenedBy string, reason string) (*domain.FiscalPeriod, error)

	// LockFiscalPeriod locks a Closed period for good.
	LockFiscalPeriod(ctx context.Context, period domain.PeriodRef, lockedBy string) (*domain.FiscalPeriod, error)
}

// FiscalPeriodSvcFacade combines fiscal period service interfaces
type FiscalPeriodSvcFacade interface {
	FiscalPeriodReaderSvc
	FiscalPeriodWriterSvc
}
