package services

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/SscSPs/commerce_ledger/internal/core/domain"
)

// BalanceCalculationResult is the outcome of one calculation run.
type BalanceCalculationResult struct {
	FiscalYear        int                     `json:"fiscalYear"`
	FiscalMonth       int                     `json:"fiscalMonth"`
	AccountsProcessed int                     `json:"accountsProcessed"`
	TotalDebits       decimal.Decimal         `json:"totalDebits"`
	TotalCredits      decimal.Decimal         `json:"totalCredits"`
	Difference        decimal.Decimal         `json:"difference"`
	IsBalanced        bool                    `json:"isBalanced"`
	Balances          []domain.AccountBalance `json:"balances"`
}

// BalanceCalculatorSvc materializes per-period account balances
type BalanceCalculatorSvc interface {
	// CalculatePeriodBalances rebuilds balances for the period from posted,
	// non-void lines and prior closing balances. With recalculate the
	// existing rows are deleted first.
	CalculatePeriodBalances(ctx context.Context, period domain.PeriodRef, recalculate bool, requestedBy string) (*BalanceCalculationResult, error)

	// ValidateTrialBalance checks an arbitrary set of balances.
	ValidateTrialBalance(balances []domain.AccountBalance) domain.TrialBalance
}

// BalanceSvcFacade combines balance service interfaces
type BalanceSvcFacade interface {
	BalanceCalculatorSvc
}
