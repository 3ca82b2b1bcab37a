package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountBalance is the materialized balance of one account in one fiscal
// period. It is recomputed from journal lines and never edited by hand.
type AccountBalance struct {
	AccountID      string          `json:"accountID"`
	FiscalYear     int             `json:"fiscalYear"`
	FiscalMonth    int             `json:"fiscalMonth"`
	OpeningBalance decimal.Decimal `json:"openingBalance"`
	DebitTotal     decimal.Decimal `json:"debitTotal"`
	CreditTotal    decimal.Decimal `json:"creditTotal"`
	ClosingBalance decimal.Decimal `json:"closingBalance"`
	LastUpdatedAt  time.Time       `json:"lastUpdatedAt"`
}

// ClosingBalance applies the normal-balance rule to the period movements.
func ClosingBalance(normal NormalBalance, opening, debitTotal, creditTotal decimal.Decimal) decimal.Decimal {
	if normal == NormalDebit {
		return opening.Add(debitTotal).Sub(creditTotal)
	}
	return opening.Add(creditTotal).Sub(debitTotal)
}

// NewAccountBalance computes the closing balance and returns the row.
func NewAccountBalance(accountID string, period PeriodRef, normal NormalBalance, opening, debitTotal, creditTotal decimal.Decimal, now time.Time) AccountBalance {
	return AccountBalance{
		AccountID:      accountID,
		FiscalYear:     period.Year,
		FiscalMonth:    period.Month,
		OpeningBalance: opening,
		DebitTotal:     debitTotal,
		CreditTotal:    creditTotal,
		ClosingBalance: ClosingBalance(normal, opening, debitTotal, creditTotal),
		LastUpdatedAt:  now,
	}
}

// Period returns the balance's fiscal period.
func (b AccountBalance) Period() PeriodRef {
	return PeriodRef{Year: b.FiscalYear, Month: b.FiscalMonth}
}

// TrialBalance is the outcome of summing debit and credit totals.
type TrialBalance struct {
	TotalDebits  decimal.Decimal `json:"totalDebits"`
	TotalCredits decimal.Decimal `json:"totalCredits"`
	Difference   decimal.Decimal `json:"difference"`
	IsBalanced   bool            `json:"isBalanced"`
	AccountCount int             `json:"accountCount"`
}

// ValidateTrialBalance sums the movements of the given balances.
func ValidateTrialBalance(balances []AccountBalance) TrialBalance {
	debits, credits := decimal.Zero, decimal.Zero
	for _, b := range balances {
		debits = debits.Add(b.DebitTotal)
		credits = credits.Add(b.CreditTotal)
	}
	return TrialBalance{
		TotalDebits:  debits,
		TotalCredits: credits,
		Difference:   debits.Sub(credits),
		IsBalanced:   WithinTolerance(debits, credits),
		AccountCount: len(balances),
	}
}

// AccountBalancesCalculatedPayload is carried by AccountBalancesCalculated.
type AccountBalancesCalculatedPayload struct {
	FiscalYear      int             `json:"fiscalYear"`
	FiscalMonth     int             `json:"fiscalMonth"`
	AccountsUpdated int             `json:"accountsUpdated"`
	TotalDebits     decimal.Decimal `json:"totalDebits"`
	TotalCredits    decimal.Decimal `json:"totalCredits"`
	IsBalanced      bool            `json:"isBalanced"`
	Recalculated    bool            `json:"recalculated"`
}
