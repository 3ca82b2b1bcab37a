package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/SscSPs/commerce_ledger/internal/apperrors"
	"github.com/SscSPs/commerce_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/commerce_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/commerce_ledger/internal/core/ports/services"
)

// accountService manages the chart of accounts.
type accountService struct {
	BaseService
	accountRepo portsrepo.AccountRepositoryFacade
	journalRepo portsrepo.JournalEntryReader
}

// NewAccountService creates a new account service with the provided options
func NewAccountService(accountRepo portsrepo.AccountRepositoryFacade, journalRepo portsrepo.JournalEntryReader, options ...ServiceOption) portssvc.AccountSvcFacade {
	svc := &accountService{
		accountRepo: accountRepo,
		journalRepo: journalRepo,
	}
	svc.apply(options)
	return svc
}

// Ensure accountService implements the AccountSvcFacade interface
var _ portssvc.AccountSvcFacade = (*accountService)(nil)

func (s *accountService) CreateAccount(ctx context.Context, cmd portssvc.CreateAccountCommand) (*domain.Account, error) {
	var parent *domain.Account
	if cmd.ParentAccountID != "" {
		p, err := s.accountRepo.FindAccountByID(ctx, cmd.ParentAccountID)
		if err != nil {
			s.LogError(ctx, err, "Failed to find parent account", slog.String("parent_id", cmd.ParentAccountID))
			return nil, fmt.Errorf("invalid parent account: %w", err)
		}
		parent = p
	}

	account, err := domain.NewAccount(domain.NewAccountParams{
		AccountID:       uuid.NewString(),
		Code:            cmd.Code,
		Name:            cmd.Name,
		AccountType:     cmd.AccountType,
		NormalBalance:   cmd.NormalBalance,
		IsDetailAccount: cmd.IsDetailAccount,
		IsSystemAccount: cmd.IsSystemAccount,
		Parent:          parent,
		Description:     cmd.Description,
	}, cmd.CreatedBy, s.Now())
	if err != nil {
		return nil, err
	}

	existing, err := s.accountRepo.FindAccountByCode(ctx, account.Code)
	switch {
	case err == nil && existing != nil:
		return nil, apperrors.NewConflictError("DUPLICATE_ACCOUNT_CODE", "account code %s is already used by %s", account.Code, existing.Name)
	case err != nil && !errors.Is(err, apperrors.ErrNotFound):
		s.LogError(ctx, err, "Failed to check account code", slog.String("code", account.Code))
		return nil, fmt.Errorf("failed to check account code: %w", err)
	}

	if err := s.accountRepo.SaveAccount(ctx, *account); err != nil {
		s.LogError(ctx, err, "Failed to save account", slog.String("code", account.Code))
		return nil, fmt.Errorf("failed to save account: %w", err)
	}

	s.LogInfo(ctx, "Account created successfully",
		slog.String("account_id", account.AccountID),
		slog.String("code", account.Code))
	return account, nil
}

func (s *accountService) GetAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	account, err := s.accountRepo.FindAccountByID(ctx, accountID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to get account by ID", slog.String("account_id", accountID))
		}
		return nil, fmt.Errorf("failed to get account %s: %w", accountID, err)
	}
	return account, nil
}

func (s *accountService) GetAccountByCode(ctx context.Context, code string) (*domain.Account, error) {
	if !domain.ValidAccountCode(code) {
		return nil, apperrors.NewValidationError("INVALID_ACCOUNT_CODE", "account code %q must be exactly 4 digits", code)
	}
	account, err := s.accountRepo.FindAccountByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to get account by code %s: %w", code, err)
	}
	return account, nil
}

func (s *accountService) ListAccounts(ctx context.Context, limit int, offset int) ([]domain.Account, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	accounts, err := s.accountRepo.ListAccounts(ctx, limit, offset)
	if err != nil {
		s.LogError(ctx, err, "Failed to list accounts")
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return accounts, nil
}

func (s *accountService) UpdateAccount(ctx context.Context, cmd portssvc.UpdateAccountCommand) (*domain.Account, error) {
	return s.mutate(ctx, cmd.AccountID, "update", func(a *domain.Account) error {
		return a.Rename(cmd.Name, cmd.Description, cmd.UpdatedBy, s.Now())
	})
}

func (s *accountService) DeactivateAccount(ctx context.Context, accountID string, userID string) (*domain.Account, error) {
	return s.mutate(ctx, accountID, "deactivate", func(a *domain.Account) error {
		return a.Deactivate(userID, s.Now())
	})
}

func (s *accountService) ActivateAccount(ctx context.Context, accountID string, userID string) (*domain.Account, error) {
	return s.mutate(ctx, accountID, "activate", func(a *domain.Account) error {
		return a.Activate(userID, s.Now())
	})
}

func (s *accountService) ArchiveAccount(ctx context.Context, accountID string, userID string) (*domain.Account, error) {
	return s.mutate(ctx, accountID, "archive", func(a *domain.Account) error {
		return a.Archive(userID, s.Now())
	})
}

func (s *accountService) DeleteAccount(ctx context.Context, accountID string, userID string) error {
	account, err := s.GetAccountByID(ctx, accountID)
	if err != nil {
		return err
	}
	if err := account.EnsureDeletable(); err != nil {
		return err
	}

	used, err := s.journalRepo.AccountHasLines(ctx, accountID)
	if err != nil {
		s.LogError(ctx, err, "Failed to check account usage", slog.String("account_id", accountID))
		return fmt.Errorf("failed to check account usage: %w", err)
	}
	if used {
		return apperrors.NewStateError("ACCOUNT_HAS_POSTINGS", "account %s has journal lines; deactivate it instead", account.Code)
	}

	if err := s.accountRepo.DeleteAccount(ctx, accountID); err != nil {
		s.LogError(ctx, err, "Failed to delete account", slog.String("account_id", accountID))
		return fmt.Errorf("failed to delete account: %w", err)
	}
	s.LogInfo(ctx, "Account deleted", slog.String("account_id", accountID), slog.String("user_id", userID))
	return nil
}

func (s *accountService) mutate(ctx context.Context, accountID, action string, change func(*domain.Account) error) (*domain.Account, error) {
	account, err := s.GetAccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if err := change(account); err != nil {
		return nil, err
	}
	if err := s.accountRepo.UpdateAccount(ctx, *account); err != nil {
		s.LogError(ctx, err, "Failed to update account",
			slog.String("account_id", accountID),
			slog.String("action", action))
		return nil, fmt.Errorf("failed to %s account: %w", action, err)
	}
	s.LogInfo(ctx, "Account updated",
		slog.String("account_id", accountID),
		slog.String("action", action),
		slog.String("status", string(account.Status)))
	return account, nil
}
