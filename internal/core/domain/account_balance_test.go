package domain_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/SscSPs/commerce_ledger/internal/core/domain"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestClosingBalance(t *testing.T) {
	tests := []struct {
		name    string
		normal  domain.NormalBalance
		opening string
		debit   string
		credit  string
		want    string
	}{
		{"debit normal increases with debits", domain.NormalDebit, "1000", "250", "100", "1150"},
		{"credit normal increases with credits", domain.NormalCredit, "1000", "250", "100", "850"},
		{"credit normal from zero", domain.NormalCredit, "0", "0", "100000", "100000"},
		{"debit normal goes negative", domain.NormalDebit, "0", "10", "25.50", "-15.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := domain.ClosingBalance(tt.normal, dec(tt.opening), dec(tt.debit), dec(tt.credit))
			assert.True(t, got.Equal(dec(tt.want)), "got %s want %s", got, tt.want)
		})
	}
}

func TestNewAccountBalance(t *testing.T) {
	b := domain.NewAccountBalance("cash", domain.PeriodRef{Year: 2024, Month: 3}, domain.NormalDebit, dec("10"), dec("5"), dec("2"), testNow)
	assert.True(t, b.ClosingBalance.Equal(dec("13")))
	assert.Equal(t, domain.PeriodRef{Year: 2024, Month: 3}, b.Period())
	assert.Equal(t, testNow, b.LastUpdatedAt)
}

func TestValidateTrialBalance(t *testing.T) {
	tests := []struct {
		name      string
		balances  []domain.AccountBalance
		balanced  bool
		wantDiffs string
	}{
		{"empty", nil, true, "0"},
		{
			"balanced",
			[]domain.AccountBalance{
				{DebitTotal: dec("100000"), CreditTotal: dec("0")},
				{DebitTotal: dec("0"), CreditTotal: dec("100000")},
			},
			true, "0",
		},
		{
			"within tolerance",
			[]domain.AccountBalance{
				{DebitTotal: dec("100.005"), CreditTotal: dec("0")},
				{DebitTotal: dec("0"), CreditTotal: dec("100")},
			},
			true, "0.005",
		},
		{
			"at tolerance is unbalanced",
			[]domain.AccountBalance{
				{DebitTotal: dec("100.01"), CreditTotal: dec("0")},
				{DebitTotal: dec("0"), CreditTotal: dec("100")},
			},
			false, "0.01",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := domain.ValidateTrialBalance(tt.balances)
			assert.Equal(t, tt.balanced, got.IsBalanced)
			assert.True(t, got.Difference.Equal(dec(tt.wantDiffs)), "difference %s", got.Difference)
			assert.Equal(t, len(tt.balances), got.AccountCount)
		})
	}
}

func TestBuildTrialBalanceReport_SortsByCode(t *testing.T) {
	balances := []domain.AccountBalance{
		{AccountID: "sales", CreditTotal: dec("50"), DebitTotal: decimal.Zero},
		{AccountID: "cash", DebitTotal: dec("50"), CreditTotal: decimal.Zero},
	}
	accounts := map[string]domain.Account{
		"cash":  {AccountID: "cash", Code: "1010", Name: "Cash"},
		"sales": {AccountID: "sales", Code: "4010", Name: "Sales"},
	}
	report := domain.BuildTrialBalanceReport(domain.PeriodRef{Year: 2024, Month: 3}, balances, accounts)
	assert.Equal(t, "1010", report.Rows[0].AccountCode)
	assert.Equal(t, "Sales", report.Rows[1].AccountName)
	assert.True(t, report.Summary.IsBalanced)
}
