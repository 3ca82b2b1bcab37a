package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/SscSPs/commerce_ledger/internal/apperrors"
)

// MatchStatus is the reconciliation state of a bank transaction.
type MatchStatus string

const (
	MatchUnmatched MatchStatus = "UNMATCHED"
	MatchMatched   MatchStatus = "MATCHED"
	MatchExcluded  MatchStatus = "EXCLUDED"
)

const fingerprintLength = 32

// Fingerprint is the duplicate-import key of a bank transaction. It is
// scoped to the bank account so the same statement file imported twice
// yields the same values. Each field is length-prefixed so no separator
// inside a reference or description can shift a boundary, and the amount is
// hashed at full precision with trailing zeros dropped.
func Fingerprint(bankAccountID string, date time.Time, amount decimal.Decimal, reference, description string) string {
	parts := []string{
		bankAccountID,
		date.UTC().Format(time.DateOnly),
		amount.String(),
		strings.TrimSpace(reference),
		strings.TrimSpace(description),
	}
	h := sha256.New()
	for _, part := range parts {
		h.Write([]byte(strconv.Itoa(len(part)) + ":" + part))
	}
	return hex.EncodeToString(h.Sum(nil))[:fingerprintLength]
}

// BankTransaction is one line of an imported bank statement.
type BankTransaction struct {
	BankTransactionID    string          `json:"bankTransactionID"`
	BankStatementID      string          `json:"bankStatementID"`
	BankAccountID        string          `json:"bankAccountID"`
	TransactionDate      time.Time       `json:"transactionDate"`
	Description          string          `json:"description"`
	Reference            string          `json:"reference,omitempty"`
	Amount               decimal.Decimal `json:"amount"` // deposits positive, withdrawals negative
	TransactionType      TransactionType `json:"transactionType"`
	Fingerprint          string          `json:"fingerprint"`
	MatchStatus          MatchStatus     `json:"matchStatus"`
	MatchedJournalLineID *string         `json:"matchedJournalLineID,omitempty"`
	MatchedBy            *string         `json:"matchedBy,omitempty"`
	MatchedAt            *time.Time      `json:"matchedAt,omitempty"`
	ExcludedReason       *string         `json:"excludedReason,omitempty"`
	CreatedAt            time.Time       `json:"createdAt"`
}

// NewBankTransactionParams holds one statement line.
type NewBankTransactionParams struct {
	BankTransactionID string
	BankStatementID   string
	BankAccountID     string
	TransactionDate   time.Time
	Description       string
	Reference         string
	Amount            decimal.Decimal
}

// NewBankTransaction derives direction and fingerprint from the signed amount.
// A withdrawal is a Debit on the statement, a deposit a Credit.
func NewBankTransaction(p NewBankTransactionParams, now time.Time) (*BankTransaction, error) {
	if p.TransactionDate.IsZero() {
		return nil, apperrors.NewValidationError("TRANSACTION_DATE_REQUIRED", "bank transaction date is required")
	}
	if p.Amount.IsZero() {
		return nil, apperrors.NewValidationError("ZERO_AMOUNT", "bank transaction amount must not be zero")
	}
	txType := Credit
	if p.Amount.IsNegative() {
		txType = Debit
	}
	return &BankTransaction{
		BankTransactionID: p.BankTransactionID,
		BankStatementID:   p.BankStatementID,
		BankAccountID:     p.BankAccountID,
		TransactionDate:   p.TransactionDate,
		Description:       strings.TrimSpace(p.Description),
		Reference:         strings.TrimSpace(p.Reference),
		Amount:            p.Amount,
		TransactionType:   txType,
		Fingerprint:       Fingerprint(p.BankAccountID, p.TransactionDate, p.Amount, p.Reference, p.Description),
		MatchStatus:       MatchUnmatched,
		CreatedAt:         now,
	}, nil
}

// Match records the journal line the transaction clears against.
func (t *BankTransaction) Match(journalLineID, matchedBy string, now time.Time) error {
	switch t.MatchStatus {
	case MatchUnmatched:
	case MatchMatched:
		return apperrors.NewConflictError("TRANSACTION_ALREADY_MATCHED", "bank transaction %s is already matched", t.BankTransactionID)
	default:
		return apperrors.NewStateError("TRANSACTION_EXCLUDED", "bank transaction %s is excluded; include it before matching", t.BankTransactionID)
	}
	if journalLineID == "" {
		return apperrors.NewValidationError("JOURNAL_LINE_REQUIRED", "journal line is required to match")
	}
	t.MatchStatus = MatchMatched
	t.MatchedJournalLineID = stringPtr(journalLineID)
	t.MatchedBy = stringPtr(matchedBy)
	t.MatchedAt = timePtr(now)
	return nil
}

// Unmatch releases a Matched transaction.
func (t *BankTransaction) Unmatch() error {
	if t.MatchStatus != MatchMatched {
		return apperrors.NewStateError("TRANSACTION_NOT_MATCHED", "bank transaction %s is %s", t.BankTransactionID, t.MatchStatus)
	}
	t.MatchStatus = MatchUnmatched
	t.MatchedJournalLineID = nil
	t.MatchedBy = nil
	t.MatchedAt = nil
	return nil
}

// Exclude removes an Unmatched transaction from reconciliation.
func (t *BankTransaction) Exclude(reason string) error {
	if t.MatchStatus != MatchUnmatched {
		return apperrors.NewStateError("TRANSACTION_NOT_UNMATCHED", "only unmatched transactions can be excluded, %s is %s", t.BankTransactionID, t.MatchStatus)
	}
	t.MatchStatus = MatchExcluded
	if reason = strings.TrimSpace(reason); reason != "" {
		t.ExcludedReason = stringPtr(reason)
	}
	return nil
}

// Include returns an Excluded transaction to Unmatched.
func (t *BankTransaction) Include() error {
	if t.MatchStatus != MatchExcluded {
		return apperrors.NewStateError("TRANSACTION_NOT_EXCLUDED", "bank transaction %s is %s", t.BankTransactionID, t.MatchStatus)
	}
	t.MatchStatus = MatchUnmatched
	t.ExcludedReason = nil
	return nil
}
