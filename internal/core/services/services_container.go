package services

import (
	portsrepo "github.com/SscSPs/commerce_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/commerce_ledger/internal/core/ports/services"
	"github.com/SscSPs/commerce_ledger/internal/platform/config"
)

// NewServiceContainer creates a new service container with properly initialized dependencies.
// locker may be nil when no distributed lock is configured.
func NewServiceContainer(cfg *config.Config, repos portsrepo.RepositoryProvider, queue portsrepo.QueuePublisher, locker portsrepo.PeriodLocker, options ...ServiceOption) *portssvc.ServiceContainer {
	container := &portssvc.ServiceContainer{}

	container.Account = NewAccountService(repos.AccountRepo, repos.JournalEntryRepo, options...)
	container.Journal = NewJournalService(repos, JournalConfig{
		EntryNumberMaxAttempts: cfg.EntryNumberMaxAttempts,
	}, options...)

	// Period close recalculates balances inside its own transaction.
	container.Balance = NewBalanceService(repos, locker, options...)
	container.FiscalPeriod = NewFiscalPeriodService(repos, container.Balance, FiscalPeriodPolicy{
		SingleOpenPeriod: cfg.SingleOpenPeriod,
	}, options...)
	container.Reporting = NewReportingService(repos.AccountBalanceRepo, repos.AccountRepo, repos.FiscalPeriodRepo, options...)

	container.BankStatement = NewBankStatementService(repos, options...)
	container.Reconciliation = NewReconciliationService(repos, container.Journal, options...)

	container.EventPublisher = NewEventPublisher(repos.DomainEventRepo, queue, OutboxConfig{
		ClaimTimeout: cfg.OutboxClaimTimeout,
	}, options...)

	return container
}
