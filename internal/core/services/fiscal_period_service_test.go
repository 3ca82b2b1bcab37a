package services_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/SscSPs/commerce_ledger/internal/apperrors"
	"github.com/SscSPs/commerce_ledger/internal/core/domain"
	"github.com/SscSPs/commerce_ledger/internal/core/services"
)

type FiscalPeriodServiceTestSuite struct {
	suite.Suite
	f     *ledgerFixture
	march domain.PeriodRef
}

func (suite *FiscalPeriodServiceTestSuite) SetupTest() {
	suite.f = newLedgerFixture(suite.T(), nil)
	suite.march = suite.f.openPeriod(suite.T(), 2024, 3)
}

func (suite *FiscalPeriodServiceTestSuite) eventTypes(periodID string) []string {
	events, err := suite.f.repos.DomainEventRepo.ListEventsByAggregate(suite.f.ctx, periodID)
	suite.Require().NoError(err)
	types := make([]string, 0, len(events))
	for _, e := range events {
		types = append(types, e.EventType)
	}
	return types
}

func (suite *FiscalPeriodServiceTestSuite) TestCreate_Duplicate() {
	_, err := suite.f.svc.FiscalPeriod.CreateFiscalPeriod(suite.f.ctx, suite.march, testUser)
	suite.ErrorIs(err, apperrors.ErrConflict)
	suite.Equal("DUPLICATE_FISCAL_PERIOD", apperrors.Code(err))
}

func (suite *FiscalPeriodServiceTestSuite) TestCreate_InvalidMonth() {
	_, err := suite.f.svc.FiscalPeriod.CreateFiscalPeriod(suite.f.ctx, domain.PeriodRef{Year: 2024, Month: 13}, testUser)
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *FiscalPeriodServiceTestSuite) TestCreate_SingleOpenPeriodPolicy() {
	svc := services.NewFiscalPeriodService(suite.f.repos, suite.f.svc.Balance, services.FiscalPeriodPolicy{SingleOpenPeriod: true})

	_, err := svc.CreateFiscalPeriod(suite.f.ctx, domain.PeriodRef{Year: 2024, Month: 4}, testUser)
	suite.ErrorIs(err, apperrors.ErrConflict)
	suite.Equal("ANOTHER_PERIOD_OPEN", apperrors.Code(err))

	_, err = svc.CloseFiscalPeriod(suite.f.ctx, suite.march, testUser)
	suite.Require().NoError(err)
	april, err := svc.CreateFiscalPeriod(suite.f.ctx, domain.PeriodRef{Year: 2024, Month: 4}, testUser)
	suite.Require().NoError(err)
	suite.Equal(domain.PeriodOpen, april.Status)
}

func (suite *FiscalPeriodServiceTestSuite) TestCurrentOpenIsLatest() {
	suite.f.openPeriod(suite.T(), 2024, 4)

	current, err := suite.f.svc.FiscalPeriod.GetCurrentOpenPeriod(suite.f.ctx)
	suite.Require().NoError(err)
	suite.Equal(domain.PeriodRef{Year: 2024, Month: 4}, current.Ref())

	periods, err := suite.f.svc.FiscalPeriod.ListFiscalPeriods(suite.f.ctx)
	suite.Require().NoError(err)
	suite.Require().Len(periods, 2)
	suite.Equal(4, periods[0].FiscalMonth)
}

func (suite *FiscalPeriodServiceTestSuite) TestLifecycle() {
	suite.f.postedSale(suite.T(), day(2024, time.March, 4), "80")

	closed, err := suite.f.svc.FiscalPeriod.CloseFiscalPeriod(suite.f.ctx, suite.march, testUser)
	suite.Require().NoError(err)
	suite.Equal(domain.PeriodClosed, closed.Period.Status)
	suite.True(closed.Balances.IsBalanced)
	suite.Equal(2, closed.Balances.AccountsProcessed)

	_, err = suite.f.svc.FiscalPeriod.CloseFiscalPeriod(suite.f.ctx, suite.march, testUser)
	suite.ErrorIs(err, apperrors.ErrState)

	_, err = suite.f.svc.FiscalPeriod.ReopenFiscalPeriod(suite.f.ctx, suite.march, testUser, " ")
	suite.ErrorIs(err, apperrors.ErrValidation)

	reopened, err := suite.f.svc.FiscalPeriod.ReopenFiscalPeriod(suite.f.ctx, suite.march, testUser, "late invoice")
	suite.Require().NoError(err)
	suite.Equal(domain.PeriodOpen, reopened.Status)
	suite.Require().NotNil(reopened.ReopenReason)
	suite.Equal("late invoice", *reopened.ReopenReason)

	_, err = suite.f.svc.FiscalPeriod.LockFiscalPeriod(suite.f.ctx, suite.march, testUser)
	suite.ErrorIs(err, apperrors.ErrState, "an open period cannot be locked")

	_, err = suite.f.svc.FiscalPeriod.CloseFiscalPeriod(suite.f.ctx, suite.march, testUser)
	suite.Require().NoError(err)
	locked, err := suite.f.svc.FiscalPeriod.LockFiscalPeriod(suite.f.ctx, suite.march, testUser)
	suite.Require().NoError(err)
	suite.Equal(domain.PeriodLocked, locked.Status)

	_, err = suite.f.svc.FiscalPeriod.ReopenFiscalPeriod(suite.f.ctx, suite.march, testUser, "too late")
	suite.ErrorIs(err, apperrors.ErrState)

	suite.Equal([]string{
		domain.EventAccountBalancesCalculated,
		domain.EventFiscalPeriodClosed,
		domain.EventFiscalPeriodReopened,
		domain.EventAccountBalancesCalculated,
		domain.EventFiscalPeriodClosed,
		domain.EventFiscalPeriodLocked,
	}, suite.eventTypes(locked.FiscalPeriodID))
}

func (suite *FiscalPeriodServiceTestSuite) TestClose_UnbalancedTrialBalanceKeepsPeriodOpen() {
	// A posted entry that bypassed validation, as left behind by a bad import.
	corrupt := domain.JournalEntry{
		JournalEntryID: "corrupt-1",
		EntryNumber:    "JE-202403-9999",
		EntryDate:      day(2024, time.March, 9),
		EntryType:      domain.EntryManual,
		Status:         domain.JournalPosted,
		FiscalYear:     2024,
		FiscalMonth:    3,
		Lines: []domain.JournalLine{
			{JournalLineID: "corrupt-1-1", JournalEntryID: "corrupt-1", LineNumber: 1, AccountID: suite.f.cash.AccountID, TransactionType: domain.Debit, Amount: amount("10")},
			{JournalLineID: "corrupt-1-2", JournalEntryID: "corrupt-1", LineNumber: 2, AccountID: suite.f.sales.AccountID, TransactionType: domain.Credit, Amount: amount("9")},
		},
	}
	suite.Require().NoError(suite.f.repos.JournalEntryRepo.SaveJournalEntry(suite.f.ctx, corrupt))

	_, err := suite.f.svc.FiscalPeriod.CloseFiscalPeriod(suite.f.ctx, suite.march, testUser)
	suite.ErrorIs(err, apperrors.ErrConflict)
	suite.Equal("TRIAL_BALANCE_UNBALANCED", apperrors.Code(err))

	period, err := suite.f.svc.FiscalPeriod.GetFiscalPeriod(suite.f.ctx, suite.march)
	suite.Require().NoError(err)
	suite.Equal(domain.PeriodOpen, period.Status)
	suite.Empty(suite.eventTypes(period.FiscalPeriodID), "the failed close is rolled back")

	_, err = suite.f.svc.Reporting.AccountBalance(suite.f.ctx, suite.f.cash.AccountID, suite.march)
	suite.ErrorIs(err, apperrors.ErrNotFound)
}

func (suite *FiscalPeriodServiceTestSuite) TestClose_MissingPeriod() {
	_, err := suite.f.svc.FiscalPeriod.CloseFiscalPeriod(suite.f.ctx, domain.PeriodRef{Year: 2024, Month: 9}, testUser)
	suite.ErrorIs(err, apperrors.ErrNotFound)
}

func TestFiscalPeriodService(t *testing.T) {
	suite.Run(t, new(FiscalPeriodServiceTestSuite))
}
