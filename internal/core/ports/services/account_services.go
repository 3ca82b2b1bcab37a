package services

import (
	"context"

	"github.com/SscSPs/commerce_ledger/internal/core/domain"
)

// CreateAccountCommand is the input for CreateAccount.
type CreateAccountCommand struct {
	Code            string
	Name            string
	AccountType     domain.AccountType
	NormalBalance   domain.NormalBalance // defaults from AccountType when empty
	IsDetailAccount bool
	IsSystemAccount bool
	ParentAccountID string
	Description     string
	CreatedBy       string
}

// UpdateAccountCommand is the input for UpdateAccount.
type UpdateAccountCommand struct {
	AccountID   string
	Name        string
	Description string
	UpdatedBy   string
}

// AccountReaderSvc defines read operations for account data
type AccountReaderSvc interface {
	// GetAccountByID retrieves a specific account by its unique identifier.
	GetAccountByID(ctx context.Context, accountID string) (*domain.Account, error)

	// GetAccountByCode retrieves an account by its 4-digit code.
	GetAccountByCode(ctx context.Context, code string) (*domain.Account, error)

	// ListAccounts retrieves a page of accounts ordered by code.
	ListAccounts(ctx context.Context, limit int, offset int) ([]domain.Account, error)
}

// AccountWriterSvc defines write operations for account data
type AccountWriterSvc interface {
	// CreateAccount persists a new account.
	CreateAccount(ctx context.Context, cmd CreateAccountCommand) (*domain.Account, error)

	// UpdateAccount updates an existing account's name and description.
	UpdateAccount(ctx context.Context, cmd UpdateAccountCommand) (*domain.Account, error)

	// DeactivateAccount marks an account as inactive.
	DeactivateAccount(ctx context.Context, accountID string, userID string) (*domain.Account, error)

	// ActivateAccount returns an inactive account to active.
	ActivateAccount(ctx context.Context, accountID string, userID string) (*domain.Account, error)

	// ArchiveAccount archives an inactive account.
	ArchiveAccount(ctx context.Context, accountID string, userID string) (*domain.Account, error)

	// DeleteAccount removes an account that has never been posted to.
	DeleteAccount(ctx context.Context, accountID string, userID string) error
}

// AccountSvcFacade combines all account-related service interfaces
type AccountSvcFacade interface {
	AccountReaderSvc
	AccountWriterSvc
}
