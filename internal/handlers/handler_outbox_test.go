package handlers_test

import (
	"net/http"

	"github.com/stretchr/testify/mock"

	"github.com/SscSPs/commerce_ledger/internal/apperrors"
	"github.com/SscSPs/commerce_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/commerce_ledger/internal/core/ports/services"
	"github.com/SscSPs/commerce_ledger/internal/dto"
)

func (suite *HandlerTestSuite) TestOutboxStats() {
	suite.publisher.On("OutboxStats", mock.Anything).Return(map[domain.EventStatus]int{
		domain.EventPending:   3,
		domain.EventPublished: 7,
	}, nil).Once()

	w := suite.do(http.MethodGet, "/api/v1/outbox/stats", nil)

	suite.Equal(http.StatusOK, w.Code)
	var res dto.OutboxStatsResponse
	suite.decode(w, &res)
	suite.Equal(10, res.Total)
	suite.Equal(3, res.Counts[domain.EventPending])
}

func (suite *HandlerTestSuite) TestPublishOutbox_UsesConfiguredDefaults() {
	suite.publisher.On("PublishPendingEvents", mock.Anything, 50, 3).
		Return(&portssvc.PublishResult{Total: 2, Published: 2}, nil).Once()

	w := suite.do(http.MethodPost, "/api/v1/outbox/publish", nil)

	suite.Equal(http.StatusOK, w.Code)
	var res portssvc.PublishResult
	suite.decode(w, &res)
	suite.Equal(2, res.Published)
}

func (suite *HandlerTestSuite) TestPublishOutbox_Override() {
	suite.publisher.On("PublishPendingEvents", mock.Anything, 10, 1).
		Return(nil, apperrors.NewAppError(http.StatusInternalServerError, "claim failed", nil)).Once()

	w := suite.do(http.MethodPost, "/api/v1/outbox/publish", map[string]any{"batchSize": 10, "maxRetries": 1})
	suite.Equal(http.StatusInternalServerError, w.Code)
}
