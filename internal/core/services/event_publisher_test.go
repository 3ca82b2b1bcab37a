package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/SscSPs/commerce_ledger/internal/adapters/database/memory"
	"github.com/SscSPs/commerce_ledger/internal/apperrors"
	"github.com/SscSPs/commerce_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/commerce_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/commerce_ledger/internal/core/ports/services"
	"github.com/SscSPs/commerce_ledger/internal/core/services"
)

// MockQueuePublisher is a mock implementation of portsrepo.QueuePublisher
type MockQueuePublisher struct {
	mock.Mock
}

func (m *MockQueuePublisher) Publish(ctx context.Context, event domain.DomainEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockQueuePublisher) PublishBatch(ctx context.Context, events []domain.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

var _ portsrepo.QueuePublisher = (*MockQueuePublisher)(nil)

type EventPublisherTestSuite struct {
	suite.Suite
	ctx       context.Context
	repo      portsrepo.DomainEventRepositoryFacade
	queue     *MockQueuePublisher
	publisher portssvc.EventPublisherSvcFacade
	now       time.Time
}

func (suite *EventPublisherTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.repo = memory.New().Repositories().DomainEventRepo
	suite.queue = new(MockQueuePublisher)
	suite.now = time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)
	suite.publisher = services.NewEventPublisher(suite.repo, suite.queue, services.OutboxConfig{ClaimTimeout: time.Minute},
		services.WithClock(func() time.Time { return suite.now }))
}

func (suite *EventPublisherTestSuite) TearDownTest() {
	suite.queue.AssertExpectations(suite.T())
}

func (suite *EventPublisherTestSuite) store(aggregateID string) domain.DomainEvent {
	event, err := domain.NewDomainEvent(domain.EventJournalEntryPosted, domain.AggregateJournalEntry, aggregateID,
		map[string]string{"journalEntryID": aggregateID}, suite.now)
	suite.Require().NoError(err)
	suite.Require().NoError(suite.publisher.StoreEvent(suite.ctx, event))
	return event
}

func (suite *EventPublisherTestSuite) stored(eventID string) *domain.DomainEvent {
	event, err := suite.repo.FindEventByID(suite.ctx, eventID)
	suite.Require().NoError(err)
	return event
}

// failAttempts claims every waiting event and fails it, n times over.
func (suite *EventPublisherTestSuite) failAttempts(n int) {
	for i := 0; i < n; i++ {
		claimed, err := suite.repo.FindPendingEvents(suite.ctx, 10, suite.now)
		suite.Require().NoError(err)
		for _, e := range claimed {
			suite.Require().NoError(suite.repo.MarkAsFailed(suite.ctx, e.EventID, "nack"))
		}
	}
}

func withID(eventID string) any {
	return mock.MatchedBy(func(e domain.DomainEvent) bool { return e.EventID == eventID })
}

func (suite *EventPublisherTestSuite) TestPublish_Success() {
	first := suite.store("je-1")
	second := suite.store("je-2")
	suite.queue.On("Publish", mock.Anything, withID(first.EventID)).Return(nil).Once()
	suite.queue.On("Publish", mock.Anything, withID(second.EventID)).Return(nil).Once()

	result, err := suite.publisher.PublishPendingEvents(suite.ctx, 10, 3)
	suite.Require().NoError(err)
	suite.Equal(&portssvc.PublishResult{Total: 2, Published: 2}, result)

	published := suite.stored(first.EventID)
	suite.Equal(domain.EventPublished, published.Status)
	suite.Require().NotNil(published.PublishedAt)
	suite.Equal(suite.now, *published.PublishedAt)
	suite.Nil(published.ClaimedAt)

	again, err := suite.publisher.PublishPendingEvents(suite.ctx, 10, 3)
	suite.Require().NoError(err)
	suite.Zero(again.Total, "published events are never claimed again")
}

func (suite *EventPublisherTestSuite) TestPublish_BatchSizeLimitsClaim() {
	first := suite.store("je-1")
	second := suite.store("je-2")
	suite.queue.On("Publish", mock.Anything, withID(first.EventID)).Return(nil).Once()

	result, err := suite.publisher.PublishPendingEvents(suite.ctx, 1, 3)
	suite.Require().NoError(err)
	suite.Equal(1, result.Total)
	suite.Equal(domain.EventPending, suite.stored(second.EventID).Status, "oldest event goes first")
}

func (suite *EventPublisherTestSuite) TestPublish_QueueFailureIsRecorded() {
	event := suite.store("je-1")
	suite.queue.On("Publish", mock.Anything, withID(event.EventID)).Return(errors.New("broker unavailable")).Once()

	result, err := suite.publisher.PublishPendingEvents(suite.ctx, 10, 3)
	suite.Require().NoError(err, "queue errors are not returned")
	suite.Equal(1, result.Failed)
	suite.Zero(result.Published)

	failed := suite.stored(event.EventID)
	suite.Equal(domain.EventFailed, failed.Status)
	suite.Equal(1, failed.RetryCount)
	suite.Equal("broker unavailable", failed.LastError)

	suite.queue.On("Publish", mock.Anything, withID(event.EventID)).Return(nil).Once()
	retried, err := suite.publisher.PublishPendingEvents(suite.ctx, 10, 3)
	suite.Require().NoError(err)
	suite.Equal(1, retried.Published)
	suite.Equal(domain.EventPublished, suite.stored(event.EventID).Status)
}

func (suite *EventPublisherTestSuite) TestPublish_OverRetryBudgetIsDeadLettered() {
	event := suite.store("je-1")
	suite.failAttempts(3)

	result, err := suite.publisher.PublishPendingEvents(suite.ctx, 10, 2)
	suite.Require().NoError(err)
	suite.Equal(1, result.Skipped)
	suite.Zero(result.Published)
	suite.queue.AssertNotCalled(suite.T(), "Publish", mock.Anything, mock.Anything)

	dead := suite.stored(event.EventID)
	suite.Equal(domain.EventDeadLettered, dead.Status)
	suite.Contains(dead.LastError, "retry budget of 2")
}

func (suite *EventPublisherTestSuite) TestPublish_AtRetryBudgetStillPublishes() {
	event := suite.store("je-1")
	suite.failAttempts(2)
	suite.queue.On("Publish", mock.Anything, withID(event.EventID)).Return(nil).Once()

	result, err := suite.publisher.PublishPendingEvents(suite.ctx, 10, 2)
	suite.Require().NoError(err)
	suite.Equal(1, result.Published)
}

func (suite *EventPublisherTestSuite) TestPublish_ReleasesStaleClaims() {
	event := suite.store("je-1")
	claimed, err := suite.repo.FindPendingEvents(suite.ctx, 10, suite.now.Add(-time.Hour))
	suite.Require().NoError(err)
	suite.Require().Len(claimed, 1)

	suite.queue.On("Publish", mock.Anything, withID(event.EventID)).Return(nil).Once()
	result, err := suite.publisher.PublishPendingEvents(suite.ctx, 10, 3)
	suite.Require().NoError(err)
	suite.Equal(1, result.Released)
	suite.Equal(1, result.Published)
	suite.Equal(1, suite.stored(event.EventID).RetryCount, "an abandoned claim counts as an attempt")
}

func (suite *EventPublisherTestSuite) TestPublish_RepeatedlyAbandonedClaimIsDeadLettered() {
	event := suite.store("je-1")
	for i := 0; i < 5; i++ {
		claimed, err := suite.repo.FindPendingEvents(suite.ctx, 10, suite.now.Add(-time.Hour))
		suite.Require().NoError(err)
		suite.Require().Len(claimed, 1)
		released, err := suite.repo.ReleaseStaleClaims(suite.ctx, suite.now)
		suite.Require().NoError(err)
		suite.Require().EqualValues(1, released)
	}
	suite.Equal(5, suite.stored(event.EventID).RetryCount)

	result, err := suite.publisher.PublishPendingEvents(suite.ctx, 10, 3)
	suite.Require().NoError(err)
	suite.Equal(1, result.Skipped)
	suite.Zero(result.Published)
	suite.queue.AssertNotCalled(suite.T(), "Publish", mock.Anything, mock.Anything)
	suite.Equal(domain.EventDeadLettered, suite.stored(event.EventID).Status)
}

func (suite *EventPublisherTestSuite) TestPublish_FreshClaimIsLeftAlone() {
	suite.store("je-1")
	_, err := suite.repo.FindPendingEvents(suite.ctx, 10, suite.now)
	suite.Require().NoError(err)

	result, err := suite.publisher.PublishPendingEvents(suite.ctx, 10, 3)
	suite.Require().NoError(err)
	suite.Zero(result.Released)
	suite.Zero(result.Total)
}

func (suite *EventPublisherTestSuite) TestOutboxStats() {
	ok := suite.store("je-1")
	bad := suite.store("je-2")
	suite.store("je-3")
	suite.queue.On("Publish", mock.Anything, withID(ok.EventID)).Return(nil).Once()
	suite.queue.On("Publish", mock.Anything, withID(bad.EventID)).Return(errors.New("nack")).Once()

	_, err := suite.publisher.PublishPendingEvents(suite.ctx, 2, 3)
	suite.Require().NoError(err)

	stats, err := suite.publisher.OutboxStats(suite.ctx)
	suite.Require().NoError(err)
	suite.Equal(map[domain.EventStatus]int{
		domain.EventPublished: 1,
		domain.EventFailed:    1,
		domain.EventPending:   1,
	}, stats)
}

func TestEventPublisher(t *testing.T) {
	suite.Run(t, new(EventPublisherTestSuite))
}

func (suite *EventPublisherTestSuite) TestPublish_WithoutQueueLeavesEventsPending() {
	event := suite.store("je-9")
	publisher := services.NewEventPublisher(suite.repo, nil, services.OutboxConfig{},
		services.WithClock(func() time.Time { return suite.now }))

	result, err := publisher.PublishPendingEvents(suite.ctx, 10, 3)

	suite.Nil(result)
	suite.True(errors.Is(err, apperrors.ErrExternal))
	suite.Equal(domain.EventPending, suite.stored(event.EventID).Status)
}
