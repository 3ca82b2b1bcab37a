package handlers_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/SscSPs/commerce_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/commerce_ledger/internal/core/ports/services"
)

// --- Mock AccountService ---
type MockAccountService struct {
	mock.Mock
}

func (m *MockAccountService) GetAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}
func (m *MockAccountService) GetAccountByCode(ctx context.Context, code string) (*domain.Account, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}
func (m *MockAccountService) ListAccounts(ctx context.Context, limit int, offset int) ([]domain.Account, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Account), args.Error(1)
}
func (m *MockAccountService) CreateAccount(ctx context.Context, cmd portssvc.CreateAccountCommand) (*domain.Account, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}
func (m *MockAccountService) UpdateAccount(ctx context.Context, cmd portssvc.UpdateAccountCommand) (*domain.Account, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}
func (m *MockAccountService) DeactivateAccount(ctx context.Context, accountID string, userID string) (*domain.Account, error) {
	return m.statusCall("DeactivateAccount", ctx, accountID, userID)
}
func (m *MockAccountService) ActivateAccount(ctx context.Context, accountID string, userID string) (*domain.Account, error) {
	return m.statusCall("ActivateAccount", ctx, accountID, userID)
}
func (m *MockAccountService) ArchiveAccount(ctx context.Context, accountID string, userID string) (*domain.Account, error) {
	return m.statusCall("ArchiveAccount", ctx, accountID, userID)
}
func (m *MockAccountService) DeleteAccount(ctx context.Context, accountID string, userID string) error {
	args := m.Called(ctx, accountID, userID)
	return args.Error(0)
}

func (m *MockAccountService) statusCall(method string, ctx context.Context, accountID, userID string) (*domain.Account, error) {
	args := m.MethodCalled(method, ctx, accountID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

// Ensure mock implements the interface
var _ portssvc.AccountSvcFacade = (*MockAccountService)(nil)

// --- Mock JournalService ---
type MockJournalService struct {
	mock.Mock
}

func (m *MockJournalService) entry(args mock.Arguments) (*domain.JournalEntry, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.JournalEntry), args.Error(1)
}

func (m *MockJournalService) GetJournalEntry(ctx context.Context, journalEntryID string) (*domain.JournalEntry, error) {
	return m.entry(m.Called(ctx, journalEntryID))
}
func (m *MockJournalService) FindBySourceReference(ctx context.Context, sourceService, sourceReferenceID string) (*domain.JournalEntry, error) {
	return m.entry(m.Called(ctx, sourceService, sourceReferenceID))
}
func (m *MockJournalService) ListJournalEntries(ctx context.Context, query portssvc.ListJournalEntriesQuery) (*portssvc.JournalEntryPage, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*portssvc.JournalEntryPage), args.Error(1)
}
func (m *MockJournalService) CreateJournalEntry(ctx context.Context, cmd portssvc.CreateJournalEntryCommand) (*domain.JournalEntry, error) {
	return m.entry(m.Called(ctx, cmd))
}
func (m *MockJournalService) UpdateJournalEntry(ctx context.Context, cmd portssvc.UpdateJournalEntryCommand) (*domain.JournalEntry, error) {
	return m.entry(m.Called(ctx, cmd))
}
func (m *MockJournalService) PostJournalEntry(ctx context.Context, journalEntryID string, postedBy string) (*domain.JournalEntry, error) {
	return m.entry(m.Called(ctx, journalEntryID, postedBy))
}
func (m *MockJournalService) VoidJournalEntry(ctx context.Context, journalEntryID string, voidedBy string, reason string) (*domain.JournalEntry, error) {
	return m.entry(m.Called(ctx, journalEntryID, voidedBy, reason))
}
func (m *MockJournalService) DeleteJournalEntry(ctx context.Context, journalEntryID string, userID string) error {
	return m.Called(ctx, journalEntryID, userID).Error(0)
}

var _ portssvc.JournalSvcFacade = (*MockJournalService)(nil)

// --- Mock FiscalPeriodService ---
type MockFiscalPeriodService struct {
	mock.Mock
}

func (m *MockFiscalPeriodService) period(args mock.Arguments) (*domain.FiscalPeriod, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FiscalPeriod), args.Error(1)
}

func (m *MockFiscalPeriodService) GetFiscalPeriod(ctx context.Context, period domain.PeriodRef) (*domain.FiscalPeriod, error) {
	return m.period(m.Called(ctx, period))
}
func (m *MockFiscalPeriodService) GetCurrentOpenPeriod(ctx context.Context) (*domain.FiscalPeriod, error) {
	return m.period(m.Called(ctx))
}
func (m *MockFiscalPeriodService) ListFiscalPeriods(ctx context.Context) ([]domain.FiscalPeriod, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.FiscalPeriod), args.Error(1)
}
func (m *MockFiscalPeriodService) CreateFiscalPeriod(ctx context.Context, period domain.PeriodRef, createdBy string) (*domain.FiscalPeriod, error) {
	return m.period(m.Called(ctx, period, createdBy))
}
func (m *MockFiscalPeriodService) CloseFiscalPeriod(ctx context.Context, period domain.PeriodRef, closedBy string) (*portssvc.ClosePeriodResult, error) {
	args := m.Called(ctx, period, closedBy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*portssvc.ClosePeriodResult), args.Error(1)
}
func (m *MockFiscalPeriodService) ReopenFiscalPeriod(ctx context.Context, period domain.PeriodRef, reopenedBy string, reason string) (*domain.FiscalPeriod, error) {
	return m.period(m.Called(ctx, period, reopenedBy, reason))
}
func (m *MockFiscalPeriodService) LockFiscalPeriod(ctx context.Context, period domain.PeriodRef, lockedBy string) (*domain.FiscalPeriod, error) {
	return m.period(m.Called(ctx, period, lockedBy))
}

var _ portssvc.FiscalPeriodSvcFacade = (*MockFiscalPeriodService)(nil)

// --- Mock BalanceService ---
type MockBalanceService struct {
	mock.Mock
}

func (m *MockBalanceService) CalculatePeriodBalances(ctx context.Context, period domain.PeriodRef, recalculate bool, requestedBy string) (*portssvc.BalanceCalculationResult, error) {
	args := m.Called(ctx, period, recalculate, requestedBy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*portssvc.BalanceCalculationResult), args.Error(1)
}
func (m *MockBalanceService) ValidateTrialBalance(balances []domain.AccountBalance) domain.TrialBalance {
	return m.Called(balances).Get(0).(domain.TrialBalance)
}

var _ portssvc.BalanceSvcFacade = (*MockBalanceService)(nil)

// --- Mock BankStatementService ---
type MockBankService struct {
	mock.Mock
}

func (m *MockBankService) transaction(args mock.Arguments) (*domain.BankTransaction, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BankTransaction), args.Error(1)
}

func (m *MockBankService) CreateBankAccount(ctx context.Context, cmd portssvc.CreateBankAccountCommand) (*domain.BankAccount, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BankAccount), args.Error(1)
}
func (m *MockBankService) GetBankAccount(ctx context.Context, bankAccountID string) (*domain.BankAccount, error) {
	args := m.Called(ctx, bankAccountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BankAccount), args.Error(1)
}
func (m *MockBankService) ListBankAccounts(ctx context.Context) ([]domain.BankAccount, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.BankAccount), args.Error(1)
}
func (m *MockBankService) ImportBankStatement(ctx context.Context, cmd portssvc.ImportBankStatementCommand) (*portssvc.ImportBankStatementResult, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*portssvc.ImportBankStatementResult), args.Error(1)
}
func (m *MockBankService) DeleteBankStatement(ctx context.Context, bankStatementID string, userID string) error {
	return m.Called(ctx, bankStatementID, userID).Error(0)
}
func (m *MockBankService) GetBankStatement(ctx context.Context, bankStatementID string) (*domain.BankStatement, error) {
	args := m.Called(ctx, bankStatementID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BankStatement), args.Error(1)
}
func (m *MockBankService) ListStatementTransactions(ctx context.Context, bankStatementID string) ([]domain.BankTransaction, error) {
	args := m.Called(ctx, bankStatementID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.BankTransaction), args.Error(1)
}
func (m *MockBankService) MatchTransaction(ctx context.Context, cmd portssvc.MatchTransactionCommand) (*portssvc.MatchTransactionResult, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*portssvc.MatchTransactionResult), args.Error(1)
}
func (m *MockBankService) UnmatchTransaction(ctx context.Context, bankTransactionID string, userID string) (*domain.BankTransaction, error) {
	return m.transaction(m.Called(ctx, bankTransactionID, userID))
}
func (m *MockBankService) ExcludeTransaction(ctx context.Context, bankTransactionID string, reason string, userID string) (*domain.BankTransaction, error) {
	return m.transaction(m.Called(ctx, bankTransactionID, reason, userID))
}
func (m *MockBankService) IncludeTransaction(ctx context.Context, bankTransactionID string, userID string) (*domain.BankTransaction, error) {
	return m.transaction(m.Called(ctx, bankTransactionID, userID))
}
func (m *MockBankService) AutoMatchStatement(ctx context.Context, cmd portssvc.AutoMatchCommand) (*domain.AutoMatchResult, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AutoMatchResult), args.Error(1)
}

var _ portssvc.BankStatementSvcFacade = (*MockBankService)(nil)

// --- Mock EventPublisher ---
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) StoreEvent(ctx context.Context, event domain.DomainEvent) error {
	return m.Called(ctx, event).Error(0)
}
func (m *MockEventPublisher) StoreEvents(ctx context.Context, events []domain.DomainEvent) error {
	return m.Called(ctx, events).Error(0)
}
func (m *MockEventPublisher) PublishPendingEvents(ctx context.Context, batchSize, maxRetries int) (*portssvc.PublishResult, error) {
	args := m.Called(ctx, batchSize, maxRetries)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*portssvc.PublishResult), args.Error(1)
}
func (m *MockEventPublisher) OutboxStats(ctx context.Context) (map[domain.EventStatus]int, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[domain.EventStatus]int), args.Error(1)
}

var _ portssvc.EventPublisherSvcFacade = (*MockEventPublisher)(nil)
