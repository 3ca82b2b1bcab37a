package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/SscSPs/commerce_ledger/internal/apperrors"
	"github.com/SscSPs/commerce_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/commerce_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/commerce_ledger/internal/core/ports/services"
	"github.com/SscSPs/commerce_ledger/internal/core/services"
)

// reconciliationLocks records the row lock each reconciliation lookup asked for.
type reconciliationLocks struct {
	portsrepo.BankReconciliationRepositoryFacade
	locks []portsrepo.RowLock
}

func (r *reconciliationLocks) FindBankReconciliationByID(ctx context.Context, bankReconciliationID string, lock portsrepo.RowLock) (*domain.BankReconciliation, error) {
	r.locks = append(r.locks, lock)
	return r.BankReconciliationRepositoryFacade.FindBankReconciliationByID(ctx, bankReconciliationID, lock)
}

type ReconciliationServiceTestSuite struct {
	suite.Suite
	f        *ledgerFixture
	march    domain.PeriodRef
	bank     *domain.BankAccount
	accounts domain.AdjustingAccounts
}

func (suite *ReconciliationServiceTestSuite) SetupTest() {
	suite.f = newLedgerFixture(suite.T(), nil)
	suite.march = suite.f.openPeriod(suite.T(), 2024, 3)

	bank, err := suite.f.svc.BankStatement.CreateBankAccount(suite.f.ctx, portssvc.CreateBankAccountCommand{
		Name:          "Operating",
		AccountNumber: "0012345678",
		GLAccountID:   suite.f.cash.AccountID,
		CreatedBy:     testUser,
	})
	suite.Require().NoError(err)
	suite.bank = bank
	suite.accounts = domain.AdjustingAccounts{
		BankFeeExpenseAccount: suite.f.fees.AccountID,
		InterestIncomeAccount: suite.f.interest.AccountID,
	}
}

func (suite *ReconciliationServiceTestSuite) start(statementEnding string) *domain.BankReconciliation {
	rec, err := suite.f.svc.Reconciliation.StartReconciliation(suite.f.ctx, portssvc.StartReconciliationCommand{
		BankAccountID:          suite.bank.BankAccountID,
		Period:                 suite.march,
		StatementEndingBalance: amount(statementEnding),
		Notes:                  "month end",
		StartedBy:              testUser,
	})
	suite.Require().NoError(err)
	return rec
}

func (suite *ReconciliationServiceTestSuite) addItem(recID string, itemType domain.ReconcilingItemType, value string) *domain.BankReconciliation {
	rec, err := suite.f.svc.Reconciliation.AddReconcilingItem(suite.f.ctx, portssvc.AddReconcilingItemCommand{
		BankReconciliationID: recID,
		ItemType:             itemType,
		Amount:               amount(value),
		TransactionDate:      day(2024, time.March, 31),
		AddedBy:              testUser,
	})
	suite.Require().NoError(err)
	return rec
}

func (suite *ReconciliationServiceTestSuite) TestItemChangesLockTheReconciliation() {
	rec := suite.start("1000")

	repos := suite.f.repos
	recorder := &reconciliationLocks{BankReconciliationRepositoryFacade: repos.BankReconciliationRepo}
	repos.BankReconciliationRepo = recorder
	reconciliation := services.NewReconciliationService(repos, suite.f.svc.Journal,
		services.WithClock(func() time.Time { return suite.f.now }))

	withFee, err := reconciliation.AddReconcilingItem(suite.f.ctx, portssvc.AddReconcilingItemCommand{
		BankReconciliationID: rec.BankReconciliationID,
		ItemType:             domain.BankFee,
		Amount:               amount("15"),
		TransactionDate:      day(2024, time.March, 31),
		AddedBy:              testUser,
	})
	suite.Require().NoError(err)
	_, err = reconciliation.CreateAdjustingEntries(suite.f.ctx, rec.BankReconciliationID, suite.accounts, testUser)
	suite.Require().NoError(err)
	_, err = reconciliation.ClearReconcilingItem(suite.f.ctx, rec.BankReconciliationID, withFee.Items[0].ReconcilingItemID, testUser)
	suite.Require().NoError(err)
	suite.Equal([]portsrepo.RowLock{portsrepo.RowLockUpdate, portsrepo.RowLockUpdate, portsrepo.RowLockUpdate}, recorder.locks)

	recorder.locks = nil
	_, err = reconciliation.GetReconciliation(suite.f.ctx, rec.BankReconciliationID)
	suite.Require().NoError(err)
	suite.Equal([]portsrepo.RowLock{portsrepo.RowLockNone}, recorder.locks)
}

func (suite *ReconciliationServiceTestSuite) TestFullReconciliation() {
	suite.f.postedSale(suite.T(), day(2024, time.March, 3), "1000")
	_, err := suite.f.svc.Balance.CalculatePeriodBalances(suite.f.ctx, suite.march, false, testUser)
	suite.Require().NoError(err)

	rec := suite.start("820")
	suite.Equal(domain.ReconciliationInProgress, rec.Status)
	suite.True(amount("1000").Equal(rec.BookEndingBalance), "book balance read from the GL balance")
	suite.Equal("month end", rec.Notes)

	_, err = suite.f.svc.Reconciliation.CompleteReconciliation(suite.f.ctx, rec.BankReconciliationID, testUser)
	suite.ErrorIs(err, apperrors.ErrState)
	suite.Equal("RECONCILIATION_NOT_BALANCED", apperrors.Code(err))

	suite.addItem(rec.BankReconciliationID, domain.DepositInTransit, "200")
	suite.addItem(rec.BankReconciliationID, domain.BankInterest, "50")
	rec = suite.addItem(rec.BankReconciliationID, domain.BankFee, "30")
	suite.True(amount("1020").Equal(rec.AdjustedBankBalance))
	suite.True(amount("1020").Equal(rec.AdjustedBookBalance))
	suite.True(rec.IsBalanced())
	suite.False(rec.Items[0].RequiresJournalEntry, "bank side items never need an entry")
	suite.True(rec.Items[2].RequiresJournalEntry)

	drafts, err := suite.f.svc.Reconciliation.GenerateAdjustingEntries(suite.f.ctx, rec.BankReconciliationID, suite.accounts)
	suite.Require().NoError(err)
	suite.Require().Len(drafts, 2)

	entries, err := suite.f.svc.Reconciliation.CreateAdjustingEntries(suite.f.ctx, rec.BankReconciliationID, suite.accounts, testUser)
	suite.Require().NoError(err)
	suite.Require().Len(entries, 2)
	for _, e := range entries {
		suite.Equal(domain.JournalDraft, e.Status)
		suite.Equal(domain.EntrySystem, e.EntryType)
		suite.Equal(services.AdjustingEntrySource, e.SourceService)
	}
	interest := entries[0]
	suite.Equal(suite.f.cash.AccountID, interest.Lines[0].AccountID)
	suite.Equal(domain.Debit, interest.Lines[0].TransactionType)
	suite.Equal(suite.f.interest.AccountID, interest.Lines[1].AccountID)

	again, err := suite.f.svc.Reconciliation.CreateAdjustingEntries(suite.f.ctx, rec.BankReconciliationID, suite.accounts, testUser)
	suite.Require().NoError(err)
	suite.Empty(again, "items already carry their entries")

	stored, err := suite.f.svc.Reconciliation.GetReconciliation(suite.f.ctx, rec.BankReconciliationID)
	suite.Require().NoError(err)
	suite.Require().NotNil(stored.Items[1].JournalEntryID)
	suite.Equal(interest.JournalEntryID, *stored.Items[1].JournalEntryID)

	completed, err := suite.f.svc.Reconciliation.CompleteReconciliation(suite.f.ctx, rec.BankReconciliationID, testUser)
	suite.Require().NoError(err)
	suite.Equal(domain.ReconciliationCompleted, completed.Status)

	_, err = suite.f.svc.Reconciliation.AddReconcilingItem(suite.f.ctx, portssvc.AddReconcilingItemCommand{
		BankReconciliationID: rec.BankReconciliationID,
		ItemType:             domain.BankFee,
		Amount:               amount("1"),
		TransactionDate:      day(2024, time.March, 31),
		AddedBy:              testUser,
	})
	suite.ErrorIs(err, apperrors.ErrState)

	approved, err := suite.f.svc.Reconciliation.ApproveReconciliation(suite.f.ctx, rec.BankReconciliationID, "approver")
	suite.Require().NoError(err)
	suite.Equal(domain.ReconciliationApproved, approved.Status)
	suite.Equal("approver", *approved.ApprovedBy)

	events, err := suite.f.repos.DomainEventRepo.ListEventsByAggregate(suite.f.ctx, rec.BankReconciliationID)
	suite.Require().NoError(err)
	suite.Require().Len(events, 2)
	suite.Equal(domain.EventBankReconciliationCompleted, events[0].EventType)
	suite.Equal(domain.EventBankReconciliationApproved, events[1].EventType)
}

func (suite *ReconciliationServiceTestSuite) TestStart_WithoutBalanceUsesZero() {
	rec := suite.start("0")
	suite.True(rec.BookEndingBalance.IsZero())

	explicit := decimal.NewFromInt(5)
	_, err := suite.f.svc.Reconciliation.StartReconciliation(suite.f.ctx, portssvc.StartReconciliationCommand{
		BankAccountID:          suite.bank.BankAccountID,
		Period:                 suite.march,
		StatementEndingBalance: amount("5"),
		BookEndingBalance:      &explicit,
		StartedBy:              testUser,
	})
	suite.ErrorIs(err, apperrors.ErrConflict)
	suite.Equal("DUPLICATE_RECONCILIATION", apperrors.Code(err))
}

func (suite *ReconciliationServiceTestSuite) TestStart_UnknownPeriod() {
	_, err := suite.f.svc.Reconciliation.StartReconciliation(suite.f.ctx, portssvc.StartReconciliationCommand{
		BankAccountID: suite.bank.BankAccountID,
		Period:        domain.PeriodRef{Year: 2024, Month: 8},
		StartedBy:     testUser,
	})
	suite.ErrorIs(err, apperrors.ErrNotFound)
}

func (suite *ReconciliationServiceTestSuite) TestClearItem() {
	rec := suite.start("100")
	rec = suite.addItem(rec.BankReconciliationID, domain.OutstandingCheck, "100")
	itemID := rec.Items[0].ReconcilingItemID

	cleared, err := suite.f.svc.Reconciliation.ClearReconcilingItem(suite.f.ctx, rec.BankReconciliationID, itemID, testUser)
	suite.Require().NoError(err)
	suite.Equal(domain.ItemCleared, cleared.Items[0].Status)
	suite.True(cleared.AdjustedBankBalance.IsZero(), "cleared items still count")

	_, err = suite.f.svc.Reconciliation.ClearReconcilingItem(suite.f.ctx, rec.BankReconciliationID, itemID, testUser)
	suite.ErrorIs(err, apperrors.ErrState)
}

func (suite *ReconciliationServiceTestSuite) TestBankSideItemCannotRequireEntry() {
	rec := suite.start("0")
	requires := true
	_, err := suite.f.svc.Reconciliation.AddReconcilingItem(suite.f.ctx, portssvc.AddReconcilingItemCommand{
		BankReconciliationID: rec.BankReconciliationID,
		ItemType:             domain.OutstandingCheck,
		Amount:               amount("10"),
		TransactionDate:      day(2024, time.March, 31),
		RequiresJournalEntry: &requires,
		AddedBy:              testUser,
	})
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func TestReconciliationService(t *testing.T) {
	suite.Run(t, new(ReconciliationServiceTestSuite))
}
