package services

import (
	"context"

	"github.com/SscSPs/commerce_ledger/internal/core/domain"
)

// ReportingService defines read-only views over materialized balances
type ReportingService interface {
	// TrialBalance builds the trial balance report of a period.
	TrialBalance(ctx context.Context, period domain.PeriodRef) (*domain.TrialBalanceReport, error)

	// AccountBalance returns one account's balance row for a period.
	AccountBalance(ctx context.Context, accountID string, period domain.PeriodRef) (*domain.AccountBalance, error)
}
