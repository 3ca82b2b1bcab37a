package memory

import (
	"context"
	"sort"

	"github.com/SscSPs/commerce_ledger/internal/apperrors"
	"github.com/SscSPs/commerce_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/commerce_ledger/internal/core/ports/repositories"
)

// AccountRepository implements portsrepo.AccountRepositoryFacade.
type AccountRepository struct {
	s *Store
}

var _ portsrepo.AccountRepositoryFacade = (*AccountRepository)(nil)

func (r *AccountRepository) FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	var out *domain.Account
	err := r.s.run(ctx, func(st *state) error {
		a, ok := st.accounts[accountID]
		if !ok {
			return apperrors.NewNotFoundError("account %s not found", accountID)
		}
		out = &a
		return nil
	})
	return out, err
}

func (r *AccountRepository) FindAccountByCode(ctx context.Context, code string) (*domain.Account, error) {
	var out *domain.Account
	err := r.s.run(ctx, func(st *state) error {
		for _, a := range st.accounts {
			if a.Code == code {
				found := a
				out = &found
				return nil
			}
		}
		return apperrors.NewNotFoundError("account with code %s not found", code)
	})
	return out, err
}

func (r *AccountRepository) FindAccountsByIDs(ctx context.Context, accountIDs []string) (map[string]domain.Account, error) {
	out := make(map[string]domain.Account, len(accountIDs))
	err := r.s.run(ctx, func(st *state) error {
		for _, id := range accountIDs {
			if a, ok := st.accounts[id]; ok {
				out[id] = a
			}
		}
		return nil
	})
	return out, err
}

func (r *AccountRepository) ListAccounts(ctx context.Context, limit int, offset int) ([]domain.Account, error) {
	var out []domain.Account
	err := r.s.run(ctx, func(st *state) error {
		all := make([]domain.Account, 0, len(st.accounts))
		for _, a := range st.accounts {
			all = append(all, a)
		}
		sort.Slice(all, func(i, j int) bool { return all[i].Code < all[j].Code })
		out = page(all, limit, offset)
		return nil
	})
	return out, err
}

func (r *AccountRepository) SaveAccount(ctx context.Context, account domain.Account) error {
	return r.s.run(ctx, func(st *state) error {
		if _, exists := st.accounts[account.AccountID]; exists {
			return apperrors.NewConflictError("DUPLICATE_ACCOUNT", "account %s already exists", account.AccountID)
		}
		for _, a := range st.accounts {
			if a.Code == account.Code {
				return apperrors.NewConflictError("DUPLICATE_ACCOUNT_CODE", "account code %s already exists", account.Code)
			}
		}
		st.accounts[account.AccountID] = account
		return nil
	})
}

func (r *AccountRepository) UpdateAccount(ctx context.Context, account domain.Account) error {
	return r.s.run(ctx, func(st *state) error {
		if _, exists := st.accounts[account.AccountID]; !exists {
			return apperrors.NewNotFoundError("account %s not found", account.AccountID)
		}
		st.accounts[account.AccountID] = account
		return nil
	})
}

func (r *AccountRepository) DeleteAccount(ctx context.Context, accountID string) error {
	return r.s.run(ctx, func(st *state) error {
		if _, exists := st.accounts[accountID]; !exists {
			return apperrors.NewNotFoundError("account %s not found", accountID)
		}
		delete(st.accounts, accountID)
		return nil
	})
}

// page applies limit and offset to an already ordered slice.
func page[T any](all []T, limit, offset int) []T {
	if offset > len(all) {
		offset = len(all)
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return all[offset:end]
}
