package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/SscSPs/commerce_ledger/internal/adapters/database/memory"
	"github.com/SscSPs/commerce_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/commerce_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/commerce_ledger/internal/core/ports/services"
	"github.com/SscSPs/commerce_ledger/internal/core/services"
	"github.com/SscSPs/commerce_ledger/internal/platform/config"
)

const testUser = "user-1"

// ledgerFixture wires every service to a fresh in-memory store.
type ledgerFixture struct {
	ctx   context.Context
	store *memory.Store
	repos portsrepo.RepositoryProvider
	svc   *portssvc.ServiceContainer
	now   time.Time

	cash     *domain.Account
	sales    *domain.Account
	fees     *domain.Account
	interest *domain.Account
}

func newLedgerFixture(t *testing.T, queue portsrepo.QueuePublisher) *ledgerFixture {
	t.Helper()
	f := &ledgerFixture{
		ctx:   context.Background(),
		store: memory.New(),
		now:   time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC),
	}
	f.repos = f.store.Repositories()
	f.svc = services.NewServiceContainer(&config.Config{EntryNumberMaxAttempts: 3}, f.repos, queue, nil,
		services.WithClock(func() time.Time { return f.now }))

	f.cash = f.account(t, "1000", "Cash", domain.Asset)
	f.sales = f.account(t, "4000", "Sales", domain.Revenue)
	f.fees = f.account(t, "6100", "Bank fees", domain.Expense)
	f.interest = f.account(t, "4100", "Interest income", domain.Revenue)
	return f
}

func (f *ledgerFixture) account(t *testing.T, code, name string, accountType domain.AccountType) *domain.Account {
	t.Helper()
	acc, err := f.svc.Account.CreateAccount(f.ctx, portssvc.CreateAccountCommand{
		Code:            code,
		Name:            name,
		AccountType:     accountType,
		IsDetailAccount: true,
		CreatedBy:       testUser,
	})
	require.NoError(t, err)
	return acc
}

func (f *ledgerFixture) openPeriod(t *testing.T, year, month int) domain.PeriodRef {
	t.Helper()
	ref, err := domain.NewPeriodRef(year, month)
	require.NoError(t, err)
	_, err = f.svc.FiscalPeriod.CreateFiscalPeriod(f.ctx, ref, testUser)
	require.NoError(t, err)
	return ref
}

// sale books a cash sale as a Draft entry.
func (f *ledgerFixture) sale(t *testing.T, date time.Time, amount string) *domain.JournalEntry {
	t.Helper()
	entry, err := f.svc.Journal.CreateJournalEntry(f.ctx, portssvc.CreateJournalEntryCommand{
		EntryDate:   date,
		Description: "Cash sale",
		Lines: []domain.JournalLine{
			{AccountID: f.cash.AccountID, TransactionType: domain.Debit, Amount: decimal.RequireFromString(amount)},
			{AccountID: f.sales.AccountID, TransactionType: domain.Credit, Amount: decimal.RequireFromString(amount)},
		},
		CreatedBy: testUser,
	})
	require.NoError(t, err)
	return entry
}

// postedSale books and posts a cash sale.
func (f *ledgerFixture) postedSale(t *testing.T, date time.Time, amount string) *domain.JournalEntry {
	t.Helper()
	entry := f.sale(t, date, amount)
	posted, err := f.svc.Journal.PostJournalEntry(f.ctx, entry.JournalEntryID, testUser)
	require.NoError(t, err)
	return posted
}

func (f *ledgerFixture) balanceOf(t *testing.T, accountID string, period domain.PeriodRef) domain.AccountBalance {
	t.Helper()
	b, err := f.svc.Reporting.AccountBalance(f.ctx, accountID, period)
	require.NoError(t, err)
	return *b
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
