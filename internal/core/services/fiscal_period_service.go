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

// FiscalPeriodPolicy holds the configurable period rules.
type FiscalPeriodPolicy struct {
	// SingleOpenPeriod rejects creating a period while another one is Open.
	SingleOpenPeriod bool
}

type fiscalPeriodService struct {
	BaseService
	txManager  portsrepo.TransactionManager
	periodRepo portsrepo.FiscalPeriodRepositoryFacade
	eventRepo  portsrepo.DomainEventWriter
	balances   portssvc.BalanceCalculatorSvc
	policy     FiscalPeriodPolicy
}

// NewFiscalPeriodService creates a new FiscalPeriodService. Closing a period
// runs balances through the given calculator inside the close transaction.
func NewFiscalPeriodService(repos portsrepo.RepositoryProvider, balances portssvc.BalanceCalculatorSvc, policy FiscalPeriodPolicy, options ...ServiceOption) portssvc.FiscalPeriodSvcFacade {
	svc := &fiscalPeriodService{
		txManager:  repos.TxManager,
		periodRepo: repos.FiscalPeriodRepo,
		eventRepo:  repos.DomainEventRepo,
		balances:   balances,
		policy:     policy,
	}
	svc.apply(options)
	return svc
}

var _ portssvc.FiscalPeriodSvcFacade = (*fiscalPeriodService)(nil)

func (s *fiscalPeriodService) CreateFiscalPeriod(ctx context.Context, period domain.PeriodRef, createdBy string) (*domain.FiscalPeriod, error) {
	if _, err := domain.NewPeriodRef(period.Year, period.Month); err != nil {
		return nil, err
	}

	var created *domain.FiscalPeriod
	err := s.txManager.WithinTransaction(ctx, func(ctx context.Context) error {
		exists, err := s.periodRepo.PeriodExists(ctx, period)
		if err != nil {
			return fmt.Errorf("failed to check fiscal period %s: %w", period, err)
		}
		if exists {
			return apperrors.NewConflictError("DUPLICATE_FISCAL_PERIOD", "fiscal period %s already exists", period)
		}

		if s.policy.SingleOpenPeriod {
			open, err := s.periodRepo.FindCurrentOpen(ctx)
			switch {
			case err == nil:
				return apperrors.NewConflictError("ANOTHER_PERIOD_OPEN", "fiscal period %s is still open", open.Ref())
			case !errors.Is(err, apperrors.ErrNotFound):
				return fmt.Errorf("failed to look up open fiscal period: %w", err)
			}
		}

		fp := domain.NewFiscalPeriod(uuid.NewString(), period, createdBy, s.Now())
		if err := s.periodRepo.SaveFiscalPeriod(ctx, *fp); err != nil {
			return fmt.Errorf("failed to save fiscal period %s: %w", period, err)
		}
		created = fp
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.LogInfo(ctx, "Fiscal period created",
		slog.String("fiscal_period", period.String()),
		slog.String("fiscal_period_id", created.FiscalPeriodID))
	return created, nil
}

func (s *fiscalPeriodService) GetFiscalPeriod(ctx context.Context, period domain.PeriodRef) (*domain.FiscalPeriod, error) {
	fp, err := s.periodRepo.FindByPeriod(ctx, period, portsrepo.RowLockNone)
	if err != nil {
		return nil, fmt.Errorf("failed to find fiscal period %s: %w", period, err)
	}
	return fp, nil
}

func (s *fiscalPeriodService) GetCurrentOpenPeriod(ctx context.Context) (*domain.FiscalPeriod, error) {
	fp, err := s.periodRepo.FindCurrentOpen(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to find open fiscal period: %w", err)
	}
	return fp, nil
}

func (s *fiscalPeriodService) ListFiscalPeriods(ctx context.Context) ([]domain.FiscalPeriod, error) {
	periods, err := s.periodRepo.ListFiscalPeriods(ctx)
	if err != nil {
		s.LogError(ctx, err, "Failed to list fiscal periods")
		return nil, fmt.Errorf("failed to list fiscal periods: %w", err)
	}
	return periods, nil
}

// CloseFiscalPeriod recalculates balances and closes the period in a single
// transaction. An unbalanced trial balance leaves the period Open.
func (s *fiscalPeriodService) CloseFiscalPeriod(ctx context.Context, period domain.PeriodRef, closedBy string) (*portssvc.ClosePeriodResult, error) {
	current, err := s.GetFiscalPeriod(ctx, period)
	if err != nil {
		return nil, err
	}
	if err := current.EnsureOpen(); err != nil {
		return nil, err
	}

	var result *portssvc.ClosePeriodResult
	err = s.txManager.WithinTransaction(ctx, func(ctx context.Context) error {
		// The calculation takes the period lock first and its row lock is
		// held until this transaction commits.
		calc, err := s.balances.CalculatePeriodBalances(ctx, period, true, closedBy)
		if err != nil {
			return err
		}
		fp, err := s.loadForUpdate(ctx, period)
		if err != nil {
			return err
		}
		if err := fp.EnsureOpen(); err != nil {
			return err
		}
		if !calc.IsBalanced {
			return apperrors.NewConflictError("TRIAL_BALANCE_UNBALANCED",
				"cannot close fiscal period %s: debits %s and credits %s differ by %s",
				period, calc.TotalDebits.StringFixed(2), calc.TotalCredits.StringFixed(2), calc.Difference.StringFixed(2))
		}

		if err := s.transition(ctx, fp, domain.PeriodOpen, func() error { return fp.Close(closedBy, s.Now()) }); err != nil {
			return err
		}
		result = &portssvc.ClosePeriodResult{Period: fp, Balances: calc}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.LogInfo(ctx, "Fiscal period closed",
		slog.String("fiscal_period", period.String()),
		slog.String("user_id", closedBy),
		slog.Int("accounts_processed", result.Balances.AccountsProcessed))
	return result, nil
}

func (s *fiscalPeriodService) ReopenFiscalPeriod(ctx context.Context, period domain.PeriodRef, reopenedBy string, reason string) (*domain.FiscalPeriod, error) {
	var reopened *domain.FiscalPeriod
	err := s.txManager.WithinTransaction(ctx, func(ctx context.Context) error {
		fp, err := s.loadForUpdate(ctx, period)
		if err != nil {
			return err
		}
		if err := s.transition(ctx, fp, domain.PeriodClosed, func() error { return fp.Reopen(reopenedBy, reason, s.Now()) }); err != nil {
			return err
		}
		reopened = fp
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.LogWarn(ctx, "Fiscal period reopened",
		slog.String("fiscal_period", period.String()),
		slog.String("user_id", reopenedBy),
		slog.String("reason", reason))
	return reopened, nil
}

func (s *fiscalPeriodService) LockFiscalPeriod(ctx context.Context, period domain.PeriodRef, lockedBy string) (*domain.FiscalPeriod, error) {
	var locked *domain.FiscalPeriod
	err := s.txManager.WithinTransaction(ctx, func(ctx context.Context) error {
		fp, err := s.loadForUpdate(ctx, period)
		if err != nil {
			return err
		}
		if err := s.transition(ctx, fp, domain.PeriodClosed, func() error { return fp.Lock(lockedBy, s.Now()) }); err != nil {
			return err
		}
		locked = fp
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.LogInfo(ctx, "Fiscal period locked",
		slog.String("fiscal_period", period.String()),
		slog.String("user_id", lockedBy))
	return locked, nil
}

func (s *fiscalPeriodService) loadForUpdate(ctx context.Context, period domain.PeriodRef) (*domain.FiscalPeriod, error) {
	fp, err := s.periodRepo.FindByPeriod(ctx, period, portsrepo.RowLockUpdate)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("fiscal period %s does not exist", period)
		}
		return nil, fmt.Errorf("failed to load fiscal period %s: %w", period, err)
	}
	return fp, nil
}

// transition applies change and persists it with a check-and-set on the
// status the period had when it was read.
func (s *fiscalPeriodService) transition(ctx context.Context, fp *domain.FiscalPeriod, expected domain.FiscalPeriodStatus, change func() error) error {
	if err := change(); err != nil {
		return err
	}
	if err := s.periodRepo.UpdateStatus(ctx, *fp, expected); err != nil {
		return err
	}
	if err := s.saveEvents(ctx, s.eventRepo, fp); err != nil {
		return fmt.Errorf("failed to store fiscal period events: %w", err)
	}
	return nil
}
