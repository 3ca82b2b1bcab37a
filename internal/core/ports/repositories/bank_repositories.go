package repositories

import (
	"context"

	"github.com/SscSPs/commerce_ledger/internal/core/domain"
)

// BankAccountRepositoryFacade persists bank accounts.
type BankAccountRepositoryFacade interface {
	SaveBankAccount(ctx context.Context, account domain.BankAccount) error
	FindBankAccountByID(ctx context.Context, bankAccountID string) (*domain.BankAccount, error)
	ListBankAccounts(ctx context.Context) ([]domain.BankAccount, error)
}

// BankStatementRepositoryFacade persists statement headers.
type BankStatementRepositoryFacade interface {
	SaveBankStatement(ctx context.Context, statement domain.BankStatement) error
	FindBankStatementByID(ctx context.Context, bankStatementID string) (*domain.BankStatement, error)
	ListBankStatements(ctx context.Context, bankAccountID string) ([]domain.BankStatement, error)
	// DeleteBankStatement removes the statement and its transactions.
	DeleteBankStatement(ctx context.Context, bankStatementID string) error
}

// BankTransactionReader defines read operations for bank transactions
type BankTransactionReader interface {
	FindBankTransactionByID(ctx context.Context, bankTransactionID string) (*domain.BankTransaction, error)
	FindByStatement(ctx context.Context, bankStatementID string) ([]domain.BankTransaction, error)

	// FingerprintsExistMany returns the subset of fingerprints already
	// stored for the bank account.
	FingerprintsExistMany(ctx context.Context, bankAccountID string, fingerprints []string) (map[string]bool, error)
}

// BankTransactionWriter defines write operations for bank transactions
type BankTransactionWriter interface {
	// SaveBankTransactions inserts a batch. A fingerprint already present for
	// the bank account yields apperrors.ErrConflict.
	SaveBankTransactions(ctx context.Context, transactions []domain.BankTransaction) error

	// UpdateMatchStatus writes match fields only if the stored status still
	// equals expected; otherwise apperrors.ErrConflict.
	UpdateMatchStatus(ctx context.Context, transaction domain.BankTransaction, expected domain.MatchStatus) error
}

// BankTransactionRepositoryFacade combines bank transaction repository interfaces
type BankTransactionRepositoryFacade interface {
	BankTransactionReader
	BankTransactionWriter
}

// BankReconciliationRepositoryFacade persists reconciliations with their items.
type BankReconciliationRepositoryFacade interface {
	SaveBankReconciliation(ctx context.Context, reconciliation domain.BankReconciliation) error
	// FindBankReconciliationByID loads a reconciliation with its items, locking
	// the header row as requested when called inside a transaction.
	FindBankReconciliationByID(ctx context.Context, bankReconciliationID string, lock RowLock) (*domain.BankReconciliation, error)
	ListBankReconciliations(ctx context.Context, bankAccountID string) ([]domain.BankReconciliation, error)

	// UpdateBankReconciliation rewrites header and items only if the stored
	// status still equals expected; otherwise apperrors.ErrConflict.
	UpdateBankReconciliation(ctx context.Context, reconciliation domain.BankReconciliation, expected domain.ReconciliationStatus) error
}
