// Package memory keeps every ledger aggregate in process memory. Transactions
// are serialized on one mutex and roll back by restoring a snapshot, which
// makes the store suitable for tests and single-process local runs.
package memory

import (
	"context"
	"maps"
	"sync"

	"github.com/SscSPs/commerce_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/commerce_ledger/internal/core/ports/repositories"
)

type balanceKey struct {
	accountID string
	period    domain.PeriodRef
}

type state struct {
	accounts      map[string]domain.Account
	entries       map[string]domain.JournalEntry
	entryCounters map[domain.PeriodRef]int64
	balances      map[balanceKey]domain.AccountBalance
	periods       map[string]domain.FiscalPeriod
	bankAccounts  map[string]domain.BankAccount
	statements    map[string]domain.BankStatement
	bankTxs       map[string]domain.BankTransaction
	recs          map[string]domain.BankReconciliation
	events        map[string]domain.DomainEvent
	eventSeq      map[string]int64
	nextEventSeq  int64
}

func newState() *state {
	return &state{
		accounts:      make(map[string]domain.Account),
		entries:       make(map[string]domain.JournalEntry),
		entryCounters: make(map[domain.PeriodRef]int64),
		balances:      make(map[balanceKey]domain.AccountBalance),
		periods:       make(map[string]domain.FiscalPeriod),
		bankAccounts:  make(map[string]domain.BankAccount),
		statements:    make(map[string]domain.BankStatement),
		bankTxs:       make(map[string]domain.BankTransaction),
		recs:          make(map[string]domain.BankReconciliation),
		events:        make(map[string]domain.DomainEvent),
		eventSeq:      make(map[string]int64),
	}
}

// clone copies every map. Stored values are replaced, never mutated in
// place, so a shallow copy is a consistent snapshot.
func (st *state) clone() *state {
	return &state{
		accounts:      maps.Clone(st.accounts),
		entries:       maps.Clone(st.entries),
		entryCounters: maps.Clone(st.entryCounters),
		balances:      maps.Clone(st.balances),
		periods:       maps.Clone(st.periods),
		bankAccounts:  maps.Clone(st.bankAccounts),
		statements:    maps.Clone(st.statements),
		bankTxs:       maps.Clone(st.bankTxs),
		recs:          maps.Clone(st.recs),
		events:        maps.Clone(st.events),
		eventSeq:      maps.Clone(st.eventSeq),
		nextEventSeq:  st.nextEventSeq,
	}
}

// Store is the in-memory database shared by all memory repositories.
type Store struct {
	mu   sync.Mutex
	data *state
}

// New creates an empty Store.
func New() *Store {
	return &Store{data: newState()}
}

type txKey struct{}

// WithinTransaction runs fn holding the store lock. An error from fn restores
// the state seen when the transaction began. Nested calls join the outer one.
func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

func (s *Store) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

// run executes one repository operation, taking the lock unless ctx already
// carries this store's transaction.
func (s *Store) run(ctx context.Context, fn func(st *state) error) error {
	if s.inTx(ctx) {
		return fn(s.data)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.data)
}

// Repositories wires every repository port to this store.
func (s *Store) Repositories() portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		TxManager:              s,
		AccountRepo:            &AccountRepository{s: s},
		JournalEntryRepo:       &JournalEntryRepository{s: s},
		AccountBalanceRepo:     &AccountBalanceRepository{s: s},
		FiscalPeriodRepo:       &FiscalPeriodRepository{s: s},
		BankAccountRepo:        &BankAccountRepository{s: s},
		BankStatementRepo:      &BankStatementRepository{s: s},
		BankTransactionRepo:    &BankTransactionRepository{s: s},
		BankReconciliationRepo: &BankReconciliationRepository{s: s},
		DomainEventRepo:        &DomainEventRepository{s: s},
	}
}

var _ portsrepo.TransactionManager = (*Store)(nil)
