package pgsql

import (
	"github.com/jackc/pgx/v5/pgxpool"

	portsrepo "github.com/SscSPs/commerce_ledger/internal/core/ports/repositories"
)

func NewRepositoryProvider(dbPool *pgxpool.Pool) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		TxManager:              &TxManager{BaseRepository: BaseRepository{Pool: dbPool}},
		AccountRepo:            newPgxAccountRepository(dbPool),
		JournalEntryRepo:       newPgxJournalEntryRepository(dbPool),
		AccountBalanceRepo:     newPgxAccountBalanceRepository(dbPool),
		FiscalPeriodRepo:       newPgxFiscalPeriodRepository(dbPool),
		BankAccountRepo:        newPgxBankAccountRepository(dbPool),
		BankStatementRepo:      newPgxBankStatementRepository(dbPool),
		BankTransactionRepo:    newPgxBankTransactionRepository(dbPool),
		BankReconciliationRepo: newPgxBankReconciliationRepository(dbPool),
		DomainEventRepo:        newPgxDomainEventRepository(dbPool),
	}
}
