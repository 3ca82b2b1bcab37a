package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/SscSPs/commerce_ledger/internal/core/domain"
)

// CreateBankAccountCommand is the input for CreateBankAccount.
type CreateBankAccountCommand struct {
	Name          string
	BankName      string
	AccountNumber string
	GLAccountID   string
	CreatedBy     string
}

// BankStatementLine is one transaction of an imported statement.
type BankStatementLine struct {
	TransactionDate time.Time
	Description     string
	Reference       string
	Amount          decimal.Decimal
}

// ImportBankStatementCommand is the input for ImportBankStatement.
type ImportBankStatementCommand struct {
	BankAccountID  string
	StatementDate  time.Time
	PeriodStart    time.Time
	PeriodEnd      time.Time
	OpeningBalance decimal.Decimal
	ClosingBalance decimal.Decimal
	FileName       string
	Lines          []BankStatementLine
	ImportedBy     string
}

// ImportBankStatementResult reports how many lines were new.
type ImportBankStatementResult struct {
	BankStatementID      string `json:"bankStatementID"`
	TransactionsImported int    `json:"transactionsImported"`
	DuplicatesSkipped    int    `json:"duplicatesSkipped"`
}

// MatchTransactionCommand is the input for MatchTransaction.
type MatchTransactionCommand struct {
	BankTransactionID string
	JournalLineID     string
	DateToleranceDays int
	MatchedBy         string
}

// MatchTransactionResult carries the rule outcome and the transaction state after it.
type MatchTransactionResult struct {
	Transaction *domain.BankTransaction `json:"transaction"`
	Result      domain.MatchResult      `json:"result"`
}

// AutoMatchCommand is the input for AutoMatchStatement.
type AutoMatchCommand struct {
	BankStatementID   string
	DateToleranceDays int
	MatchedBy         string
}

// BankAccountSvc manages bank accounts
type BankAccountSvc interface {
	CreateBankAccount(ctx context.Context, cmd CreateBankAccountCommand) (*domain.BankAccount, error)
	GetBankAccount(ctx context.Context, bankAccountID string) (*domain.BankAccount, error)
	ListBankAccounts(ctx context.Context) ([]domain.BankAccount, error)
}

// BankStatementSvc imports and removes bank statements
type BankStatementSvc interface {
	// ImportBankStatement stores the statement and every line whose
	// fingerprint is new for the bank account.
	ImportBankStatement(ctx context.Context, cmd ImportBankStatementCommand) (*ImportBankStatementResult, error)

	// DeleteBankStatement removes a statement whose transactions are all unmatched.
	DeleteBankStatement(ctx context.Context, bankStatementID string, userID string) error

	GetBankStatement(ctx context.Context, bankStatementID string) (*domain.BankStatement, error)
	ListStatementTransactions(ctx context.Context, bankStatementID string) ([]domain.BankTransaction, error)
}

// BankTransactionSvc drives the match status of bank transactions
type BankTransactionSvc interface {
	MatchTransaction(ctx context.Context, cmd MatchTransactionCommand) (*MatchTransactionResult, error)
	UnmatchTransaction(ctx context.Context, bankTransactionID string, userID string) (*domain.BankTransaction, error)
	ExcludeTransaction(ctx context.Context, bankTransactionID string, reason string, userID string) (*domain.BankTransaction, error)
	IncludeTransaction(ctx context.Context, bankTransactionID string, userID string) (*domain.BankTransaction, error)
	AutoMatchStatement(ctx context.Context, cmd AutoMatchCommand) (*domain.AutoMatchResult, error)
}

// BankStatementSvcFacade combines bank account, statement and transaction services
type BankStatementSvcFacade interface {
	BankAccountSvc
	BankStatementSvc
	BankTransactionSvc
}
