package memory

import (
	"context"
	"slices"
	"sort"

	"github.com/SscSPs/commerce_ledger/internal/apperrors"
	"github.com/SscSPs/commerce_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/commerce_ledger/internal/core/ports/repositories"
)

// AccountBalanceRepository implements portsrepo.AccountBalanceRepositoryFacade.
type AccountBalanceRepository struct {
	s *Store
}

var _ portsrepo.AccountBalanceRepositoryFacade = (*AccountBalanceRepository)(nil)

func (r *AccountBalanceRepository) FindByAccountAndPeriod(ctx context.Context, accountID string, period domain.PeriodRef) (*domain.AccountBalance, error) {
	var out *domain.AccountBalance
	err := r.s.run(ctx, func(st *state) error {
		b, ok := st.balances[balanceKey{accountID: accountID, period: period}]
		if !ok {
			return apperrors.NewNotFoundError("no balance for account %s in %s", accountID, period)
		}
		out = &b
		return nil
	})
	return out, err
}

func (r *AccountBalanceRepository) FindByPeriod(ctx context.Context, period domain.PeriodRef) ([]domain.AccountBalance, error) {
	var out []domain.AccountBalance
	err := r.s.run(ctx, func(st *state) error {
		out = make([]domain.AccountBalance, 0)
		for k, b := range st.balances {
			if k.period == period {
				out = append(out, b)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].AccountID < out[j].AccountID })
		return nil
	})
	return out, err
}

func (r *AccountBalanceRepository) SaveMany(ctx context.Context, balances []domain.AccountBalance) error {
	return r.s.run(ctx, func(st *state) error {
		for _, b := range balances {
			st.balances[balanceKey{accountID: b.AccountID, period: b.Period()}] = b
		}
		return nil
	})
}

func (r *AccountBalanceRepository) DeleteByPeriod(ctx context.Context, period domain.PeriodRef) error {
	return r.s.run(ctx, func(st *state) error {
		for k := range st.balances {
			if k.period == period {
				delete(st.balances, k)
			}
		}
		return nil
	})
}

func (r *AccountBalanceRepository) DeleteByPeriodExcept(ctx context.Context, period domain.PeriodRef, keepAccountIDs []string) error {
	return r.s.run(ctx, func(st *state) error {
		for k := range st.balances {
			if k.period == period && !slices.Contains(keepAccountIDs, k.accountID) {
				delete(st.balances, k)
			}
		}
		return nil
	})
}
