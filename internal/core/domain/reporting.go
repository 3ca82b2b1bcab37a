package domain

import (
	"sort"

	"github.com/shopspring/decimal"
)

// TrialBalanceRow represents a single row in a trial balance report
type TrialBalanceRow struct {
	AccountID      string          `json:"accountID"`
	AccountCode    string          `json:"accountCode"`
	AccountName    string          `json:"accountName"`
	AccountType    AccountType     `json:"accountType"`
	NormalBalance  NormalBalance   `json:"normalBalance"`
	OpeningBalance decimal.Decimal `json:"openingBalance"`
	Debit          decimal.Decimal `json:"debit"`
	Credit         decimal.Decimal `json:"credit"`
	ClosingBalance decimal.Decimal `json:"closingBalance"`
}

// TrialBalanceReport is the per-account view of one period's balances.
type TrialBalanceReport struct {
	FiscalYear  int               `json:"fiscalYear"`
	FiscalMonth int               `json:"fiscalMonth"`
	Rows        []TrialBalanceRow `json:"rows"`
	Summary     TrialBalance      `json:"summary"`
}

// BuildTrialBalanceReport joins balances with their accounts, ordered by
// account code. Balances whose account is unknown keep an empty code and name.
func BuildTrialBalanceReport(period PeriodRef, balances []AccountBalance, accounts map[string]Account) TrialBalanceReport {
	rows := make([]TrialBalanceRow, 0, len(balances))
	for _, b := range balances {
		row := TrialBalanceRow{
			AccountID:      b.AccountID,
			OpeningBalance: b.OpeningBalance,
			Debit:          b.DebitTotal,
			Credit:         b.CreditTotal,
			ClosingBalance: b.ClosingBalance,
		}
		if acc, ok := accounts[b.AccountID]; ok {
			row.AccountCode = acc.Code
			row.AccountName = acc.Name
			row.AccountType = acc.AccountType
			row.NormalBalance = acc.NormalBalance
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].AccountCode != rows[j].AccountCode {
			return rows[i].AccountCode < rows[j].AccountCode
		}
		return rows[i].AccountID < rows[j].AccountID
	})

	return TrialBalanceReport{
		FiscalYear:  period.Year,
		FiscalMonth: period.Month,
		Rows:        rows,
		Summary:     ValidateTrialBalance(balances),
	}
}
