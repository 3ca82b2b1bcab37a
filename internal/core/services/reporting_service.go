package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SscSPs/commerce_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/commerce_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/commerce_ledger/internal/core/ports/services"
)

// reportingService implements the ReportingService interface
type reportingService struct {
	BaseService
	balanceRepo portsrepo.AccountBalanceReader
	accountRepo portsrepo.AccountReader
	periodRepo  portsrepo.FiscalPeriodReader
}

// NewReportingService creates a new reporting service with the provided options
func NewReportingService(balanceRepo portsrepo.AccountBalanceReader, accountRepo portsrepo.AccountReader, periodRepo portsrepo.FiscalPeriodReader, options ...ServiceOption) portssvc.ReportingService {
	svc := &reportingService{
		balanceRepo: balanceRepo,
		accountRepo: accountRepo,
		periodRepo:  periodRepo,
	}
	svc.apply(options)
	return svc
}

// Ensure reportingService implements the ReportingService interface
var _ portssvc.ReportingService = (*reportingService)(nil)

// TrialBalance generates a trial balance report from the period's materialized balances
func (s *reportingService) TrialBalance(ctx context.Context, period domain.PeriodRef) (*domain.TrialBalanceReport, error) {
	if _, err := s.periodRepo.FindByPeriod(ctx, period, portsrepo.RowLockNone); err != nil {
		return nil, fmt.Errorf("failed to find fiscal period %s: %w", period, err)
	}

	balances, err := s.balanceRepo.FindByPeriod(ctx, period)
	if err != nil {
		s.LogError(ctx, err, "Failed to retrieve balances", slog.String("fiscal_period", period.String()))
		return nil, fmt.Errorf("failed to retrieve balances: %w", err)
	}

	ids := make([]string, 0, len(balances))
	for _, b := range balances {
		ids = append(ids, b.AccountID)
	}
	accounts := map[string]domain.Account{}
	if len(ids) > 0 {
		accounts, err = s.accountRepo.FindAccountsByIDs(ctx, ids)
		if err != nil {
			s.LogError(ctx, err, "Failed to retrieve accounts for trial balance", slog.String("fiscal_period", period.String()))
			return nil, fmt.Errorf("failed to retrieve accounts: %w", err)
		}
	}

	report := domain.BuildTrialBalanceReport(period, balances, accounts)
	s.LogInfo(ctx, "Trial balance report generated successfully",
		slog.String("fiscal_period", period.String()),
		slog.Int("row_count", len(report.Rows)),
		slog.Bool("is_balanced", report.Summary.IsBalanced))
	return &report, nil
}

// AccountBalance returns one account's balance row for a period
func (s *reportingService) AccountBalance(ctx context.Context, accountID string, period domain.PeriodRef) (*domain.AccountBalance, error) {
	balance, err := s.balanceRepo.FindByAccountAndPeriod(ctx, accountID, period)
	if err != nil {
		return nil, fmt.Errorf("failed to find balance of account %s for %s: %w", accountID, period, err)
	}
	return balance, nil
}
