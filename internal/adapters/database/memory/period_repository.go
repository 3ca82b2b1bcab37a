package memory

import (
	"context"
	"sort"

	"github.com/SscSPs/commerce_ledger/internal/apperrors"
	"github.com/SscSPs/commerce_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/commerce_ledger/internal/core/ports/repositories"
)

// FiscalPeriodRepository implements portsrepo.FiscalPeriodRepositoryFacade.
// Row locks are implied by the store's single transaction lock.
type FiscalPeriodRepository struct {
	s *Store
}

var _ portsrepo.FiscalPeriodRepositoryFacade = (*FiscalPeriodRepository)(nil)

func storedPeriod(p domain.FiscalPeriod) domain.FiscalPeriod {
	p.AggregateRoot = domain.AggregateRoot{}
	return p
}

func (r *FiscalPeriodRepository) FindFiscalPeriodByID(ctx context.Context, fiscalPeriodID string) (*domain.FiscalPeriod, error) {
	var out *domain.FiscalPeriod
	err := r.s.run(ctx, func(st *state) error {
		p, ok := st.periods[fiscalPeriodID]
		if !ok {
			return apperrors.NewNotFoundError("fiscal period %s not found", fiscalPeriodID)
		}
		out = &p
		return nil
	})
	return out, err
}

func (r *FiscalPeriodRepository) FindByPeriod(ctx context.Context, period domain.PeriodRef, _ portsrepo.RowLock) (*domain.FiscalPeriod, error) {
	var out *domain.FiscalPeriod
	err := r.s.run(ctx, func(st *state) error {
		for _, p := range st.periods {
			if p.Ref() == period {
				found := p
				out = &found
				return nil
			}
		}
		return apperrors.NewNotFoundError("fiscal period %s not found", period)
	})
	return out, err
}

func (r *FiscalPeriodRepository) FindCurrentOpen(ctx context.Context) (*domain.FiscalPeriod, error) {
	var out *domain.FiscalPeriod
	err := r.s.run(ctx, func(st *state) error {
		for _, p := range st.periods {
			if p.Status != domain.PeriodOpen {
				continue
			}
			if out == nil || out.Ref().Before(p.Ref()) {
				found := p
				out = &found
			}
		}
		if out == nil {
			return apperrors.NewNotFoundError("no open fiscal period")
		}
		return nil
	})
	return out, err
}

func (r *FiscalPeriodRepository) PeriodExists(ctx context.Context, period domain.PeriodRef) (bool, error) {
	exists := false
	err := r.s.run(ctx, func(st *state) error {
		for _, p := range st.periods {
			if p.Ref() == period {
				exists = true
				break
			}
		}
		return nil
	})
	return exists, err
}

func (r *FiscalPeriodRepository) ListFiscalPeriods(ctx context.Context) ([]domain.FiscalPeriod, error) {
	var out []domain.FiscalPeriod
	err := r.s.run(ctx, func(st *state) error {
		out = make([]domain.FiscalPeriod, 0, len(st.periods))
		for _, p := range st.periods {
			out = append(out, p)
		}
		sort.Slice(out, func(i, j int) bool { return out[j].Ref().Before(out[i].Ref()) })
		return nil
	})
	return out, err
}

func (r *FiscalPeriodRepository) SaveFiscalPeriod(ctx context.Context, period domain.FiscalPeriod) error {
	return r.s.run(ctx, func(st *state) error {
		for _, p := range st.periods {
			if p.Ref() == period.Ref() {
				return apperrors.NewConflictError("DUPLICATE_FISCAL_PERIOD", "fiscal period %s already exists", period.Ref())
			}
		}
		st.periods[period.FiscalPeriodID] = storedPeriod(period)
		return nil
	})
}

func (r *FiscalPeriodRepository) UpdateStatus(ctx context.Context, period domain.FiscalPeriod, expected domain.FiscalPeriodStatus) error {
	return r.s.run(ctx, func(st *state) error {
		current, ok := st.periods[period.FiscalPeriodID]
		if !ok {
			return apperrors.NewNotFoundError("fiscal period %s not found", period.Ref())
		}
		if current.Status != expected {
			return apperrors.NewConflictError("CONCURRENT_MODIFICATION", "fiscal period %s is %s, expected %s", period.Ref(), current.Status, expected)
		}
		st.periods[period.FiscalPeriodID] = storedPeriod(period)
		return nil
	})
}
