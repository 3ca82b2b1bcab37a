package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/SscSPs/commerce_ledger/internal/apperrors"
)

// BankAccount links a real bank account to its general-ledger account.
type BankAccount struct {
	BankAccountID string `json:"bankAccountID"`
	Name          string `json:"name"`
	BankName      string `json:"bankName"`
	AccountNumber string `json:"accountNumber"`
	GLAccountID   string `json:"glAccountID"`
	IsActive      bool   `json:"isActive"`
	AuditFields
}

// NewBankAccount validates the required fields.
func NewBankAccount(id, name, bankName, accountNumber, glAccountID, createdBy string, now time.Time) (*BankAccount, error) {
	name = strings.TrimSpace(name)
	accountNumber = strings.TrimSpace(accountNumber)
	if name == "" || accountNumber == "" {
		return nil, apperrors.NewValidationError("BANK_ACCOUNT_INCOMPLETE", "bank account name and number are required")
	}
	if glAccountID == "" {
		return nil, apperrors.NewValidationError("GL_ACCOUNT_REQUIRED", "bank account %s must reference a GL account", accountNumber)
	}
	return &BankAccount{
		BankAccountID: id,
		Name:          name,
		BankName:      strings.TrimSpace(bankName),
		AccountNumber: accountNumber,
		GLAccountID:   glAccountID,
		IsActive:      true,
		AuditFields:   newAuditFields(createdBy, now),
	}, nil
}

// BankStatement is one imported statement file for a bank account.
type BankStatement struct {
	BankStatementID   string          `json:"bankStatementID"`
	BankAccountID     string          `json:"bankAccountID"`
	StatementDate     time.Time       `json:"statementDate"`
	PeriodStart       time.Time       `json:"periodStart"`
	PeriodEnd         time.Time       `json:"periodEnd"`
	OpeningBalance    decimal.Decimal `json:"openingBalance"`
	ClosingBalance    decimal.Decimal `json:"closingBalance"`
	FileName          string          `json:"fileName,omitempty"`
	TransactionCount  int             `json:"transactionCount"`
	DuplicatesSkipped int             `json:"duplicatesSkipped"`
	AuditFields
	AggregateRoot `json:"-"`
}

// NewBankStatementParams holds the statement header.
type NewBankStatementParams struct {
	BankStatementID string
	BankAccountID   string
	StatementDate   time.Time
	PeriodStart     time.Time
	PeriodEnd       time.Time
	OpeningBalance  decimal.Decimal
	ClosingBalance  decimal.Decimal
	FileName        string
}

// NewBankStatement validates the statement header.
func NewBankStatement(p NewBankStatementParams, importedBy string, now time.Time) (*BankStatement, error) {
	if p.BankAccountID == "" {
		return nil, apperrors.NewValidationError("BANK_ACCOUNT_REQUIRED", "bank account is required")
	}
	if p.StatementDate.IsZero() {
		return nil, apperrors.NewValidationError("STATEMENT_DATE_REQUIRED", "statement date is required")
	}
	if !p.PeriodStart.IsZero() && !p.PeriodEnd.IsZero() && p.PeriodEnd.Before(p.PeriodStart) {
		return nil, apperrors.NewValidationError("INVALID_STATEMENT_PERIOD", "statement period ends before it starts")
	}
	return &BankStatement{
		BankStatementID: p.BankStatementID,
		BankAccountID:   p.BankAccountID,
		StatementDate:   p.StatementDate,
		PeriodStart:     p.PeriodStart,
		PeriodEnd:       p.PeriodEnd,
		OpeningBalance:  p.OpeningBalance,
		ClosingBalance:  p.ClosingBalance,
		FileName:        strings.TrimSpace(p.FileName),
		AuditFields:     newAuditFields(importedBy, now),
	}, nil
}

// BankStatementImportedPayload is carried by BankStatementImported.
type BankStatementImportedPayload struct {
	BankStatementID      string          `json:"bankStatementID"`
	BankAccountID        string          `json:"bankAccountID"`
	StatementDate        time.Time       `json:"statementDate"`
	ClosingBalance       decimal.Decimal `json:"closingBalance"`
	TransactionsImported int             `json:"transactionsImported"`
	DuplicatesSkipped    int             `json:"duplicatesSkipped"`
}

// MarkImported records the import outcome and raises BankStatementImported.
func (s *BankStatement) MarkImported(imported, skipped int, now time.Time) {
	s.TransactionCount = imported
	s.DuplicatesSkipped = skipped
	s.RecordEvent(mustEvent(EventBankStatementImported, AggregateBankStatement, s.BankStatementID, BankStatementImportedPayload{
		BankStatementID:      s.BankStatementID,
		BankAccountID:        s.BankAccountID,
		StatementDate:        s.StatementDate,
		ClosingBalance:       s.ClosingBalance,
		TransactionsImported: imported,
		DuplicatesSkipped:    skipped,
	}, now))
}

// EnsureStatementDeletable rejects deletion while any of its transactions is matched.
func EnsureStatementDeletable(statementID string, transactions []BankTransaction) error {
	for _, tx := range transactions {
		if tx.MatchStatus == MatchMatched {
			return apperrors.NewStateError("STATEMENT_HAS_MATCHES", "bank statement %s has matched transaction %s; unmatch it first", statementID, tx.BankTransactionID)
		}
	}
	return nil
}
