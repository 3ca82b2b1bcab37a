package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/SscSPs/commerce_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/commerce_ledger/internal/core/ports/services"
)

// PeriodURI binds the /:year/:month path segments of period routes.
type PeriodURI struct {
	Year  int `uri:"year" binding:"required,min=1900,max=9999"`
	Month int `uri:"month" binding:"required,fiscal_month"`
}

// Ref returns the bound period.
func (p PeriodURI) Ref() domain.PeriodRef {
	return domain.PeriodRef{Year: p.Year, Month: p.Month}
}

// CreateFiscalPeriodRequest opens a new fiscal period.
type CreateFiscalPeriodRequest struct {
	FiscalYear  int `json:"fiscalYear" binding:"required,min=1900,max=9999"`
	FiscalMonth int `json:"fiscalMonth" binding:"required,fiscal_month"`
}

// ReopenFiscalPeriodRequest carries the mandatory reopen reason.
type ReopenFiscalPeriodRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// FiscalPeriodResponse defines the data returned for a fiscal period.
type FiscalPeriodResponse struct {
	FiscalPeriodID string                    `json:"fiscalPeriodID"`
	FiscalYear     int                       `json:"fiscalYear"`
	FiscalMonth    int                       `json:"fiscalMonth"`
	StartDate      string                    `json:"startDate"`
	EndDate        string                    `json:"endDate"`
	Status         domain.FiscalPeriodStatus `json:"status"`
	ClosedBy       *string                   `json:"closedBy,omitempty"`
	ClosedAt       *time.Time                `json:"closedAt,omitempty"`
	ReopenedBy     *string                   `json:"reopenedBy,omitempty"`
	ReopenedAt     *time.Time                `json:"reopenedAt,omitempty"`
	ReopenReason   *string                   `json:"reopenReason,omitempty"`
	LockedBy       *string                   `json:"lockedBy,omitempty"`
	LockedAt       *time.Time                `json:"lockedAt,omitempty"`
}

// ToFiscalPeriodResponse converts a domain.FiscalPeriod to its DTO.
func ToFiscalPeriodResponse(p *domain.FiscalPeriod) FiscalPeriodResponse {
	ref := p.Ref()
	return FiscalPeriodResponse{
		FiscalPeriodID: p.FiscalPeriodID,
		FiscalYear:     p.FiscalYear,
		FiscalMonth:    p.FiscalMonth,
		StartDate:      ref.StartDate().Format(time.DateOnly),
		EndDate:        ref.EndDate().Format(time.DateOnly),
		Status:         p.Status,
		ClosedBy:       p.ClosedBy,
		ClosedAt:       p.ClosedAt,
		ReopenedBy:     p.ReopenedBy,
		ReopenedAt:     p.ReopenedAt,
		ReopenReason:   p.ReopenReason,
		LockedBy:       p.LockedBy,
		LockedAt:       p.LockedAt,
	}
}

// ToFiscalPeriodResponses converts a slice of periods.
func ToFiscalPeriodResponses(periods []domain.FiscalPeriod) []FiscalPeriodResponse {
	res := make([]FiscalPeriodResponse, len(periods))
	for i := range periods {
		res[i] = ToFiscalPeriodResponse(&periods[i])
	}
	return res
}

// CalculateBalancesRequest triggers a balance run for a period.
type CalculateBalancesRequest struct {
	Recalculate bool `json:"recalculate"`
}

// AccountBalanceResponse defines the data returned for one account's period balance.
type AccountBalanceResponse struct {
	AccountID      string          `json:"accountID"`
	FiscalYear     int             `json:"fiscalYear"`
	FiscalMonth    int             `json:"fiscalMonth"`
	OpeningBalance decimal.Decimal `json:"openingBalance"`
	DebitTotal     decimal.Decimal `json:"debitTotal"`
	CreditTotal    decimal.Decimal `json:"creditTotal"`
	ClosingBalance decimal.Decimal `json:"closingBalance"`
	LastUpdatedAt  time.Time       `json:"lastUpdatedAt"`
}

// ToAccountBalanceResponse converts a domain.AccountBalance to its DTO.
func ToAccountBalanceResponse(b *domain.AccountBalance) AccountBalanceResponse {
	return AccountBalanceResponse{
		AccountID:      b.AccountID,
		FiscalYear:     b.FiscalYear,
		FiscalMonth:    b.FiscalMonth,
		OpeningBalance: b.OpeningBalance,
		DebitTotal:     b.DebitTotal,
		CreditTotal:    b.CreditTotal,
		ClosingBalance: b.ClosingBalance,
		LastUpdatedAt:  b.LastUpdatedAt,
	}
}

// BalanceCalculationResponse summarizes a balance run.
type BalanceCalculationResponse struct {
	FiscalYear        int                      `json:"fiscalYear"`
	FiscalMonth       int                      `json:"fiscalMonth"`
	AccountsProcessed int                      `json:"accountsProcessed"`
	TotalDebits       decimal.Decimal          `json:"totalDebits"`
	TotalCredits      decimal.Decimal          `json:"totalCredits"`
	Difference        decimal.Decimal          `json:"difference"`
	IsBalanced        bool                     `json:"isBalanced"`
	Balances          []AccountBalanceResponse `json:"balances"`
}

// ToBalanceCalculationResponse converts a calculation result to its DTO.
func ToBalanceCalculationResponse(r *portssvc.BalanceCalculationResult) BalanceCalculationResponse {
	balances := make([]AccountBalanceResponse, len(r.Balances))
	for i := range r.Balances {
		balances[i] = ToAccountBalanceResponse(&r.Balances[i])
	}
	return BalanceCalculationResponse{
		FiscalYear:        r.FiscalYear,
		FiscalMonth:       r.FiscalMonth,
		AccountsProcessed: r.AccountsProcessed,
		TotalDebits:       r.TotalDebits,
		TotalCredits:      r.TotalCredits,
		Difference:        r.Difference,
		IsBalanced:        r.IsBalanced,
		Balances:          balances,
	}
}

// ClosePeriodResponse is returned when a period closes.
type ClosePeriodResponse struct {
	Period   FiscalPeriodResponse       `json:"period"`
	Balances BalanceCalculationResponse `json:"balances"`
}

// TrialBalanceRowResponse represents a row in the trial balance report response
type TrialBalanceRowResponse struct {
	AccountID      string          `json:"accountID"`
	AccountCode    string          `json:"accountCode"`
	AccountName    string          `json:"accountName"`
	AccountType    string          `json:"accountType"`
	OpeningBalance decimal.Decimal `json:"openingBalance"`
	Debit          decimal.Decimal `json:"debit"`
	Credit         decimal.Decimal `json:"credit"`
	ClosingBalance decimal.Decimal `json:"closingBalance"`
}

// TrialBalanceResponse represents the trial balance report response
type TrialBalanceResponse struct {
	FiscalYear  int                       `json:"fiscalYear"`
	FiscalMonth int                       `json:"fiscalMonth"`
	Rows        []TrialBalanceRowResponse `json:"rows"`
	Totals      struct {
		Debit      decimal.Decimal `json:"debit"`
		Credit     decimal.Decimal `json:"credit"`
		Difference decimal.Decimal `json:"difference"`
		IsBalanced bool            `json:"isBalanced"`
	} `json:"totals"`
}

// ToTrialBalanceResponse converts the report to its DTO.
func ToTrialBalanceResponse(report *domain.TrialBalanceReport) TrialBalanceResponse {
	res := TrialBalanceResponse{
		FiscalYear:  report.FiscalYear,
		FiscalMonth: report.FiscalMonth,
		Rows:        make([]TrialBalanceRowResponse, len(report.Rows)),
	}
	for i, row := range report.Rows {
		res.Rows[i] = TrialBalanceRowResponse{
			AccountID:      row.AccountID,
			AccountCode:    row.AccountCode,
			AccountName:    row.AccountName,
			AccountType:    string(row.AccountType),
			OpeningBalance: row.OpeningBalance,
			Debit:          row.Debit,
			Credit:         row.Credit,
			ClosingBalance: row.ClosingBalance,
		}
	}
	res.Totals.Debit = report.Summary.TotalDebits
	res.Totals.Credit = report.Summary.TotalCredits
	res.Totals.Difference = report.Summary.Difference
	res.Totals.IsBalanced = report.Summary.IsBalanced
	return res
}

// PublishOutboxRequest overrides the configured dispatch limits for one run.
type PublishOutboxRequest struct {
	BatchSize  int `json:"batchSize" binding:"omitempty,min=1,max=1000"`
	MaxRetries int `json:"maxRetries" binding:"omitempty,min=0"`
}

// OutboxStatsResponse counts outbox events by status.
type OutboxStatsResponse struct {
	Counts map[domain.EventStatus]int `json:"counts"`
	Total  int                        `json:"total"`
}
