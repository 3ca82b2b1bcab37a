package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/SscSPs/commerce_ledger/internal/apperrors"
	"github.com/SscSPs/commerce_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/commerce_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/commerce_ledger/internal/core/ports/services"
)

// balanceService materializes AccountBalance rows from posted journal lines.
type balanceService struct {
	BaseService
	txManager   portsrepo.TransactionManager
	accountRepo portsrepo.AccountReader
	journalRepo portsrepo.JournalAggregateReader
	balanceRepo portsrepo.AccountBalanceRepositoryFacade
	periodRepo  portsrepo.FiscalPeriodReader
	eventRepo   portsrepo.DomainEventWriter
	locker      portsrepo.PeriodLocker
}

// NewBalanceService creates a new BalanceService. locker may be nil, in which
// case only the fiscal period row lock serializes calculation runs.
func NewBalanceService(repos portsrepo.RepositoryProvider, locker portsrepo.PeriodLocker, options ...ServiceOption) portssvc.BalanceSvcFacade {
	svc := &balanceService{
		txManager:   repos.TxManager,
		accountRepo: repos.AccountRepo,
		journalRepo: repos.JournalEntryRepo,
		balanceRepo: repos.AccountBalanceRepo,
		periodRepo:  repos.FiscalPeriodRepo,
		eventRepo:   repos.DomainEventRepo,
		locker:      locker,
	}
	svc.apply(options)
	return svc
}

var _ portssvc.BalanceSvcFacade = (*balanceService)(nil)

// CalculatePeriodBalances rebuilds the period's balances. The fiscal period
// row is held FOR UPDATE for the whole run, so posts into the period (which
// take it FOR SHARE) wait until the calculation commits.
func (s *balanceService) CalculatePeriodBalances(ctx context.Context, period domain.PeriodRef, recalculate bool, requestedBy string) (*portssvc.BalanceCalculationResult, error) {
	if s.locker != nil {
		release, err := s.locker.Acquire(ctx, period)
		if err != nil {
			s.LogError(ctx, err, "Failed to acquire period lock", slog.String("fiscal_period", period.String()))
			return nil, fmt.Errorf("failed to acquire lock for period %s: %w", period, err)
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				s.LogWarn(ctx, "Failed to release period lock",
					slog.String("fiscal_period", period.String()),
					slog.String("error", err.Error()))
			}
		}()
	}

	var result *portssvc.BalanceCalculationResult
	err := s.txManager.WithinTransaction(ctx, func(ctx context.Context) error {
		fp, err := s.periodRepo.FindByPeriod(ctx, period, portsrepo.RowLockUpdate)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return apperrors.NewNotFoundError("fiscal period %s does not exist", period)
			}
			return fmt.Errorf("failed to load fiscal period %s: %w", period, err)
		}
		if fp.Status == domain.PeriodLocked {
			return apperrors.NewStateError("PERIOD_LOCKED", "fiscal period %s is locked; balances are final", period)
		}

		if recalculate {
			if err := s.balanceRepo.DeleteByPeriod(ctx, period); err != nil {
				return fmt.Errorf("failed to clear balances for %s: %w", period, err)
			}
		}

		balances, err := s.buildBalances(ctx, period)
		if err != nil {
			return err
		}
		if !recalculate {
			// Rows whose only movement was voided since the last run.
			keep := make([]string, len(balances))
			for i, b := range balances {
				keep[i] = b.AccountID
			}
			if err := s.balanceRepo.DeleteByPeriodExcept(ctx, period, keep); err != nil {
				return fmt.Errorf("failed to prune balances for %s: %w", period, err)
			}
		}
		if len(balances) > 0 {
			if err := s.balanceRepo.SaveMany(ctx, balances); err != nil {
				return fmt.Errorf("failed to save balances for %s: %w", period, err)
			}
		}

		tb := domain.ValidateTrialBalance(balances)
		event, err := domain.NewDomainEvent(domain.EventAccountBalancesCalculated, domain.AggregateFiscalPeriod, fp.FiscalPeriodID,
			domain.AccountBalancesCalculatedPayload{
				FiscalYear:      period.Year,
				FiscalMonth:     period.Month,
				AccountsUpdated: len(balances),
				TotalDebits:     tb.TotalDebits,
				TotalCredits:    tb.TotalCredits,
				IsBalanced:      tb.IsBalanced,
				Recalculated:    recalculate,
			}, s.Now())
		if err != nil {
			return err
		}
		fp.RecordEvent(event)
		if err := s.saveEvents(ctx, s.eventRepo, fp); err != nil {
			return fmt.Errorf("failed to store balance event: %w", err)
		}

		result = &portssvc.BalanceCalculationResult{
			FiscalYear:        period.Year,
			FiscalMonth:       period.Month,
			AccountsProcessed: len(balances),
			TotalDebits:       tb.TotalDebits,
			TotalCredits:      tb.TotalCredits,
			Difference:        tb.Difference,
			IsBalanced:        tb.IsBalanced,
			Balances:          balances,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logArgs := []any{
		slog.String("fiscal_period", period.String()),
		slog.Int("accounts_processed", result.AccountsProcessed),
		slog.String("total_debits", result.TotalDebits.StringFixed(2)),
		slog.String("total_credits", result.TotalCredits.StringFixed(2)),
		slog.Bool("recalculate", recalculate),
		slog.String("requested_by", requestedBy),
	}
	if !result.IsBalanced {
		s.LogWarn(ctx, "Period balances calculated but trial balance is off", append(logArgs, slog.String("difference", result.Difference.String()))...)
	} else {
		s.LogInfo(ctx, "Period balances calculated", logArgs...)
	}
	return result, nil
}

// buildBalances processes every account with movement in the period plus
// every account carrying a balance from the previous period. Archived
// accounts without movement are dropped.
func (s *balanceService) buildBalances(ctx context.Context, period domain.PeriodRef) ([]domain.AccountBalance, error) {
	movements, err := s.journalRepo.AggregatePostedLines(ctx, period)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate journal lines for %s: %w", period, err)
	}
	previous, err := s.balanceRepo.FindByPeriod(ctx, period.Previous())
	if err != nil {
		return nil, fmt.Errorf("failed to load balances for %s: %w", period.Previous(), err)
	}

	moved := make(map[string]domain.AccountMovement, len(movements))
	for _, m := range movements {
		moved[m.AccountID] = m
	}
	opening := make(map[string]decimal.Decimal, len(previous))
	for _, b := range previous {
		opening[b.AccountID] = b.ClosingBalance
	}

	ids := make([]string, 0, len(moved)+len(opening))
	seen := make(map[string]bool, cap(ids))
	for id := range moved {
		ids = append(ids, id)
		seen[id] = true
	}
	for id := range opening {
		if !seen[id] {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}
	sort.Strings(ids)

	accounts, err := s.accountRepo.FindAccountsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load accounts: %w", err)
	}

	now := s.Now()
	balances := make([]domain.AccountBalance, 0, len(ids))
	for _, id := range ids {
		account, ok := accounts[id]
		if !ok {
			return nil, apperrors.NewNotFoundError("account %s referenced by balances does not exist", id)
		}
		m, hasMovement := moved[id]
		if !hasMovement {
			if account.Status == domain.AccountArchived {
				continue
			}
			m = domain.AccountMovement{AccountID: id, Debit: decimal.Zero, Credit: decimal.Zero}
		}
		open, ok := opening[id]
		if !ok {
			open = decimal.Zero
		}
		balances = append(balances, domain.NewAccountBalance(id, period, account.NormalBalance, open, m.Debit, m.Credit, now))
	}
	return balances, nil
}

// ValidateTrialBalance checks an arbitrary set of balances.
func (s *balanceService) ValidateTrialBalance(balances []domain.AccountBalance) domain.TrialBalance {
	return domain.ValidateTrialBalance(balances)
}
