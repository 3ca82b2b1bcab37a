package services_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/SscSPs/commerce_ledger/internal/apperrors"
	"github.com/SscSPs/commerce_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/commerce_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/commerce_ledger/internal/core/ports/services"
	"github.com/SscSPs/commerce_ledger/internal/core/services"
)

// collidingNumbers hands out a number that is already taken before falling
// back to the real generator.
type collidingNumbers struct {
	portsrepo.JournalEntryRepositoryFacade
	taken     string
	remaining int
	calls     int
}

func (c *collidingNumbers) GenerateEntryNumber(ctx context.Context, period domain.PeriodRef) (string, error) {
	c.calls++
	if c.remaining > 0 {
		c.remaining--
		return c.taken, nil
	}
	return c.JournalEntryRepositoryFacade.GenerateEntryNumber(ctx, period)
}

// entryLocks records the row lock each entry lookup asked for.
type entryLocks struct {
	portsrepo.JournalEntryRepositoryFacade
	locks []portsrepo.RowLock
}

func (e *entryLocks) FindJournalEntryByID(ctx context.Context, journalEntryID string, lock portsrepo.RowLock) (*domain.JournalEntry, error) {
	e.locks = append(e.locks, lock)
	return e.JournalEntryRepositoryFacade.FindJournalEntryByID(ctx, journalEntryID, lock)
}

type JournalServiceTestSuite struct {
	suite.Suite
	f      *ledgerFixture
	period domain.PeriodRef
}

func (suite *JournalServiceTestSuite) SetupTest() {
	suite.f = newLedgerFixture(suite.T(), nil)
	suite.period = suite.f.openPeriod(suite.T(), 2024, 3)
}

func (suite *JournalServiceTestSuite) TestCreateJournalEntry_Unbalanced() {
	_, err := suite.f.svc.Journal.CreateJournalEntry(suite.f.ctx, portssvc.CreateJournalEntryCommand{
		EntryDate: day(2024, time.March, 5),
		Lines: []domain.JournalLine{
			{AccountID: suite.f.cash.AccountID, TransactionType: domain.Debit, Amount: amount("100")},
			{AccountID: suite.f.sales.AccountID, TransactionType: domain.Credit, Amount: amount("90")},
		},
		CreatedBy: testUser,
	})
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *JournalServiceTestSuite) TestCreateJournalEntry_UnknownAccount() {
	_, err := suite.f.svc.Journal.CreateJournalEntry(suite.f.ctx, portssvc.CreateJournalEntryCommand{
		EntryDate: day(2024, time.March, 5),
		Lines: []domain.JournalLine{
			{AccountID: suite.f.cash.AccountID, TransactionType: domain.Debit, Amount: amount("100")},
			{AccountID: "missing", TransactionType: domain.Credit, Amount: amount("100")},
		},
		CreatedBy: testUser,
	})
	suite.ErrorIs(err, apperrors.ErrNotFound)
}

func (suite *JournalServiceTestSuite) TestCreateJournalEntry_SourceReferenceIsIdempotent() {
	cmd := portssvc.CreateJournalEntryCommand{
		EntryDate: day(2024, time.March, 5),
		Lines: []domain.JournalLine{
			{AccountID: suite.f.cash.AccountID, TransactionType: domain.Debit, Amount: amount("50")},
			{AccountID: suite.f.sales.AccountID, TransactionType: domain.Credit, Amount: amount("50")},
		},
		SourceService:     "orders",
		SourceReferenceID: "order-42",
		CreatedBy:         testUser,
	}

	first, err := suite.f.svc.Journal.CreateJournalEntry(suite.f.ctx, cmd)
	suite.Require().NoError(err)
	second, err := suite.f.svc.Journal.CreateJournalEntry(suite.f.ctx, cmd)
	suite.Require().NoError(err)

	suite.Equal(first.JournalEntryID, second.JournalEntryID)
	found, err := suite.f.svc.Journal.FindBySourceReference(suite.f.ctx, "orders", "order-42")
	suite.Require().NoError(err)
	suite.Equal(first.JournalEntryID, found.JournalEntryID)
}

func (suite *JournalServiceTestSuite) TestPostJournalEntry_AssignsNumberAndStoresEvent() {
	posted := suite.f.postedSale(suite.T(), day(2024, time.March, 5), "250.00")

	suite.Equal(domain.JournalPosted, posted.Status)
	suite.Equal("JE-202403-0001", posted.EntryNumber)
	suite.Require().NotNil(posted.PostedAt)
	suite.Equal(suite.f.now, *posted.PostedAt)

	events, err := suite.f.repos.DomainEventRepo.ListEventsByAggregate(suite.f.ctx, posted.JournalEntryID)
	suite.Require().NoError(err)
	suite.Require().Len(events, 1)
	suite.Equal(domain.EventJournalEntryPosted, events[0].EventType)
	suite.Equal(domain.EventPending, events[0].Status)

	var payload domain.JournalEntryPostedPayload
	suite.Require().NoError(json.Unmarshal(events[0].Payload, &payload))
	suite.Equal("JE-202403-0001", payload.EntryNumber)
	suite.True(amount("250").Equal(payload.TotalAmount))

	second := suite.f.postedSale(suite.T(), day(2024, time.March, 6), "10")
	suite.Equal("JE-202403-0002", second.EntryNumber)
}

func (suite *JournalServiceTestSuite) TestPostJournalEntry_TwiceFails() {
	posted := suite.f.postedSale(suite.T(), day(2024, time.March, 5), "10")

	_, err := suite.f.svc.Journal.PostJournalEntry(suite.f.ctx, posted.JournalEntryID, testUser)
	suite.ErrorIs(err, apperrors.ErrState)
}

func (suite *JournalServiceTestSuite) TestPostJournalEntry_MissingPeriod() {
	entry := suite.f.sale(suite.T(), day(2024, time.May, 5), "10")

	_, err := suite.f.svc.Journal.PostJournalEntry(suite.f.ctx, entry.JournalEntryID, testUser)
	suite.ErrorIs(err, apperrors.ErrNotFound)

	stored, err := suite.f.svc.Journal.GetJournalEntry(suite.f.ctx, entry.JournalEntryID)
	suite.Require().NoError(err)
	suite.Equal(domain.JournalDraft, stored.Status)
}

func (suite *JournalServiceTestSuite) TestPostJournalEntry_ClosedPeriod() {
	entry := suite.f.sale(suite.T(), day(2024, time.March, 5), "10")
	_, err := suite.f.svc.FiscalPeriod.CloseFiscalPeriod(suite.f.ctx, suite.period, testUser)
	suite.Require().NoError(err)

	_, err = suite.f.svc.Journal.PostJournalEntry(suite.f.ctx, entry.JournalEntryID, testUser)
	suite.ErrorIs(err, apperrors.ErrState)
	suite.Equal("PERIOD_NOT_OPEN", apperrors.Code(err))
}

func (suite *JournalServiceTestSuite) TestPostJournalEntry_InactiveAccount() {
	entry := suite.f.sale(suite.T(), day(2024, time.March, 5), "10")
	_, err := suite.f.svc.Account.DeactivateAccount(suite.f.ctx, suite.f.sales.AccountID, testUser)
	suite.Require().NoError(err)

	_, err = suite.f.svc.Journal.PostJournalEntry(suite.f.ctx, entry.JournalEntryID, testUser)
	suite.ErrorIs(err, apperrors.ErrState)
	suite.Equal("ACCOUNT_NOT_ACTIVE", apperrors.Code(err))
}

func (suite *JournalServiceTestSuite) TestPostJournalEntry_RetriesEntryNumberCollision() {
	first := suite.f.postedSale(suite.T(), day(2024, time.March, 5), "10")

	repos := suite.f.repos
	numbers := &collidingNumbers{JournalEntryRepositoryFacade: repos.JournalEntryRepo, taken: first.EntryNumber, remaining: 1}
	repos.JournalEntryRepo = numbers
	journal := services.NewJournalService(repos, services.JournalConfig{EntryNumberMaxAttempts: 3},
		services.WithClock(func() time.Time { return suite.f.now }))

	entry := suite.f.sale(suite.T(), day(2024, time.March, 6), "20")
	posted, err := journal.PostJournalEntry(suite.f.ctx, entry.JournalEntryID, testUser)

	suite.Require().NoError(err)
	suite.Equal(2, numbers.calls)
	suite.NotEqual(first.EntryNumber, posted.EntryNumber)
	suite.Equal(domain.JournalPosted, posted.Status)

	events, err := repos.DomainEventRepo.ListEventsByAggregate(suite.f.ctx, entry.JournalEntryID)
	suite.Require().NoError(err)
	suite.Len(events, 1, "the failed attempt must not leave an event behind")
}

func (suite *JournalServiceTestSuite) TestPostJournalEntry_GivesUpAfterMaxAttempts() {
	first := suite.f.postedSale(suite.T(), day(2024, time.March, 5), "10")

	repos := suite.f.repos
	numbers := &collidingNumbers{JournalEntryRepositoryFacade: repos.JournalEntryRepo, taken: first.EntryNumber, remaining: 10}
	repos.JournalEntryRepo = numbers
	journal := services.NewJournalService(repos, services.JournalConfig{EntryNumberMaxAttempts: 2})

	entry := suite.f.sale(suite.T(), day(2024, time.March, 6), "20")
	_, err := journal.PostJournalEntry(suite.f.ctx, entry.JournalEntryID, testUser)

	suite.ErrorIs(err, apperrors.ErrConflict)
	suite.Equal(portsrepo.CodeDuplicateEntryNumber, apperrors.Code(err))
	suite.Equal(2, numbers.calls)
}

func (suite *JournalServiceTestSuite) TestLifecycleChangesLockTheEntry() {
	repos := suite.f.repos
	recorder := &entryLocks{JournalEntryRepositoryFacade: repos.JournalEntryRepo}
	repos.JournalEntryRepo = recorder
	journal := services.NewJournalService(repos, services.JournalConfig{},
		services.WithClock(func() time.Time { return suite.f.now }))

	entry := suite.f.sale(suite.T(), day(2024, time.March, 6), "20")
	desc := "Cash sale, corrected"
	_, err := journal.UpdateJournalEntry(suite.f.ctx, portssvc.UpdateJournalEntryCommand{
		JournalEntryID: entry.JournalEntryID,
		Description:    &desc,
		UpdatedBy:      testUser,
	})
	suite.Require().NoError(err)
	_, err = journal.PostJournalEntry(suite.f.ctx, entry.JournalEntryID, testUser)
	suite.Require().NoError(err)
	_, err = journal.VoidJournalEntry(suite.f.ctx, entry.JournalEntryID, testUser, "duplicate order")
	suite.Require().NoError(err)
	suite.Equal([]portsrepo.RowLock{portsrepo.RowLockUpdate, portsrepo.RowLockUpdate, portsrepo.RowLockUpdate}, recorder.locks)

	recorder.locks = nil
	_, err = journal.GetJournalEntry(suite.f.ctx, entry.JournalEntryID)
	suite.Require().NoError(err)
	suite.Equal([]portsrepo.RowLock{portsrepo.RowLockNone}, recorder.locks, "plain reads do not lock")
}

func (suite *JournalServiceTestSuite) TestVoidJournalEntry() {
	posted := suite.f.postedSale(suite.T(), day(2024, time.March, 5), "10")

	_, err := suite.f.svc.Journal.VoidJournalEntry(suite.f.ctx, posted.JournalEntryID, testUser, "")
	suite.ErrorIs(err, apperrors.ErrValidation)

	voided, err := suite.f.svc.Journal.VoidJournalEntry(suite.f.ctx, posted.JournalEntryID, testUser, "duplicate order")
	suite.Require().NoError(err)
	suite.Equal(domain.JournalVoided, voided.Status)
	suite.Equal(posted.EntryNumber, voided.EntryNumber)

	_, err = suite.f.svc.Journal.VoidJournalEntry(suite.f.ctx, posted.JournalEntryID, testUser, "duplicate order")
	suite.ErrorIs(err, apperrors.ErrState)
	suite.Equal("ENTRY_ALREADY_VOIDED", apperrors.Code(err))
}

func (suite *JournalServiceTestSuite) TestVoidJournalEntry_DraftRejected() {
	entry := suite.f.sale(suite.T(), day(2024, time.March, 5), "10")

	_, err := suite.f.svc.Journal.VoidJournalEntry(suite.f.ctx, entry.JournalEntryID, testUser, "mistake")
	suite.ErrorIs(err, apperrors.ErrState)
	suite.Equal("ENTRY_NOT_POSTED", apperrors.Code(err))
}

func (suite *JournalServiceTestSuite) TestUpdateAndDeleteDraft() {
	entry := suite.f.sale(suite.T(), day(2024, time.March, 5), "10")
	description := "Corrected sale"

	updated, err := suite.f.svc.Journal.UpdateJournalEntry(suite.f.ctx, portssvc.UpdateJournalEntryCommand{
		JournalEntryID: entry.JournalEntryID,
		Description:    &description,
		UpdatedBy:      testUser,
	})
	suite.Require().NoError(err)
	suite.Equal(description, updated.Description)

	suite.Require().NoError(suite.f.svc.Journal.DeleteJournalEntry(suite.f.ctx, entry.JournalEntryID, testUser))
	_, err = suite.f.svc.Journal.GetJournalEntry(suite.f.ctx, entry.JournalEntryID)
	suite.ErrorIs(err, apperrors.ErrNotFound)
}

func (suite *JournalServiceTestSuite) TestDeletePostedRejected() {
	posted := suite.f.postedSale(suite.T(), day(2024, time.March, 5), "10")

	err := suite.f.svc.Journal.DeleteJournalEntry(suite.f.ctx, posted.JournalEntryID, testUser)
	suite.ErrorIs(err, apperrors.ErrState)
}

func (suite *JournalServiceTestSuite) TestListJournalEntries_Pages() {
	for d := 1; d <= 3; d++ {
		suite.f.sale(suite.T(), day(2024, time.March, d), "10")
	}

	page, err := suite.f.svc.Journal.ListJournalEntries(suite.f.ctx, portssvc.ListJournalEntriesQuery{Limit: 2})
	suite.Require().NoError(err)
	suite.Require().Len(page.Entries, 2)
	suite.Require().NotNil(page.NextToken)
	suite.True(page.Entries[0].EntryDate.After(page.Entries[1].EntryDate))

	rest, err := suite.f.svc.Journal.ListJournalEntries(suite.f.ctx, portssvc.ListJournalEntriesQuery{Limit: 2, NextToken: page.NextToken})
	suite.Require().NoError(err)
	suite.Len(rest.Entries, 1)
	suite.Nil(rest.NextToken)

	bad := "not-a-token"
	_, err = suite.f.svc.Journal.ListJournalEntries(suite.f.ctx, portssvc.ListJournalEntriesQuery{NextToken: &bad})
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func TestJournalService(t *testing.T) {
	suite.Run(t, new(JournalServiceTestSuite))
}
