package services

// ServiceContainer holds instances of all the application services.
// This is the main entry point for accessing service functionality and
// is used throughout the application, particularly in the handlers and
// the CLI commands.
type ServiceContainer struct {
	Account        AccountSvcFacade
	Journal        JournalSvcFacade
	FiscalPeriod   FiscalPeriodSvcFacade
	Balance        BalanceSvcFacade
	Reporting      ReportingService
	BankStatement  BankStatementSvcFacade
	Reconciliation ReconciliationSvcFacade
	EventPublisher EventPublisherSvcFacade
}
