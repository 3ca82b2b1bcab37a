package domain

import (
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/SscSPs/commerce_ledger/internal/apperrors"
)

// TransactionType indicates whether a line is a Debit or a Credit.
type TransactionType string

const (
	Debit  TransactionType = "DEBIT"
	Credit TransactionType = "CREDIT"
)

// IsValid reports whether t is Debit or Credit.
func (t TransactionType) IsValid() bool {
	return t == Debit || t == Credit
}

// Dimensions are reporting tags on a journal line. They never affect balancing.
type Dimensions struct {
	WarehouseID    string `json:"warehouseID,omitempty"`
	SalespersonID  string `json:"salespersonID,omitempty"`
	Channel        string `json:"channel,omitempty"`
	CustomerID     string `json:"customerID,omitempty"`
	VendorID       string `json:"vendorID,omitempty"`
	ProductID      string `json:"productID,omitempty"`
	BusinessUnitID string `json:"businessUnitID,omitempty"`
}

// JournalLine is a single debit or credit posting against one account.
type JournalLine struct {
	JournalLineID   string          `json:"journalLineID"`
	JournalEntryID  string          `json:"journalEntryID"`
	LineNumber      int             `json:"lineNumber"`
	AccountID       string          `json:"accountID"`
	TransactionType TransactionType `json:"transactionType"`
	Amount          decimal.Decimal `json:"amount"` // always positive
	Memo            string          `json:"memo,omitempty"`
	Dimensions      Dimensions      `json:"dimensions"`
}

// SignedAmount is the line amount seen from the account's side: debits are
// positive, credits negative.
func (l JournalLine) SignedAmount() decimal.Decimal {
	if l.TransactionType == Credit {
		return l.Amount.Neg()
	}
	return l.Amount
}

// ValidateLines checks the double-entry rules for a set of lines.
func ValidateLines(lines []JournalLine) error {
	if len(lines) < 2 {
		return apperrors.NewValidationError("INSUFFICIENT_LINES", "journal entry must have at least two lines, got %d", len(lines))
	}
	for i, line := range lines {
		if line.AccountID == "" {
			return apperrors.NewValidationError("LINE_ACCOUNT_REQUIRED", "line %d has no account", i+1)
		}
		if !line.TransactionType.IsValid() {
			return apperrors.NewValidationError("INVALID_LINE_DIRECTION", "line %d has invalid direction %q", i+1, line.TransactionType)
		}
		if !line.Amount.IsPositive() {
			return apperrors.NewValidationError("NON_POSITIVE_AMOUNT", "line %d amount must be positive, got %s", i+1, line.Amount)
		}
	}
	debits, credits := LineTotals(lines)
	if !debits.Equal(credits) {
		return apperrors.NewValidationError("UNBALANCED_ENTRY", "debits %s do not equal credits %s", debits.StringFixed(2), credits.StringFixed(2))
	}
	return nil
}

// LineTotals sums debit and credit amounts.
func LineTotals(lines []JournalLine) (debits, credits decimal.Decimal) {
	debits, credits = decimal.Zero, decimal.Zero
	for _, line := range lines {
		switch line.TransactionType {
		case Debit:
			debits = debits.Add(line.Amount)
		case Credit:
			credits = credits.Add(line.Amount)
		}
	}
	return debits, credits
}

// AccountMovement is the debit/credit total of an entry for one account.
type AccountMovement struct {
	AccountID string          `json:"accountID"`
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
}

// AccountBreakdown groups lines per account, sorted by account id.
func AccountBreakdown(lines []JournalLine) []AccountMovement {
	byAccount := make(map[string]*AccountMovement)
	for _, line := range lines {
		m, ok := byAccount[line.AccountID]
		if !ok {
			m = &AccountMovement{AccountID: line.AccountID, Debit: decimal.Zero, Credit: decimal.Zero}
			byAccount[line.AccountID] = m
		}
		if line.TransactionType == Debit {
			m.Debit = m.Debit.Add(line.Amount)
		} else {
			m.Credit = m.Credit.Add(line.Amount)
		}
	}

	out := make([]AccountMovement, 0, len(byAccount))
	for _, m := range byAccount {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountID < out[j].AccountID })
	return out
}

func assignLineIdentity(entryID string, lines []JournalLine) []JournalLine {
	out := make([]JournalLine, len(lines))
	for i, line := range lines {
		if line.JournalLineID == "" {
			line.JournalLineID = uuid.NewString()
		}
		line.JournalEntryID = entryID
		line.LineNumber = i + 1
		out[i] = line
	}
	return out
}
