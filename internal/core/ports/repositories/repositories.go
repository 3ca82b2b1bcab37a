package repositories

// RepositoryProvider holds all repository interfaces needed by services.
// This makes passing dependencies to the service container constructor cleaner.
type RepositoryProvider struct {
	TxManager              TransactionManager
	AccountRepo            AccountRepositoryFacade
	JournalEntryRepo       JournalEntryRepositoryFacade
	AccountBalanceRepo     AccountBalanceRepositoryFacade
	FiscalPeriodRepo       FiscalPeriodRepositoryFacade
	BankAccountRepo        BankAccountRepositoryFacade
	BankStatementRepo      BankStatementRepositoryFacade
	BankTransactionRepo    BankTransactionRepositoryFacade
	BankReconciliationRepo BankReconciliationRepositoryFacade
	DomainEventRepo        DomainEventRepositoryFacade
}
