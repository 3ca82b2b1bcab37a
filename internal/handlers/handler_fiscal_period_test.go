package handlers_test

import (
	"net/http"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/SscSPs/commerce_ledger/internal/apperrors"
	"github.com/SscSPs/commerce_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/commerce_ledger/internal/core/ports/services"
	"github.com/SscSPs/commerce_ledger/internal/dto"
)

var march2024 = domain.PeriodRef{Year: 2024, Month: 3}

func samplePeriod(status domain.FiscalPeriodStatus) *domain.FiscalPeriod {
	return &domain.FiscalPeriod{
		FiscalPeriodID: "fp-2024-03",
		FiscalYear:     2024,
		FiscalMonth:    3,
		Status:         status,
	}
}

func (suite *HandlerTestSuite) TestCreateFiscalPeriod() {
	suite.periods.On("CreateFiscalPeriod", mock.Anything, march2024, suite.userID).
		Return(samplePeriod(domain.PeriodOpen), nil).Once()

	w := suite.do(http.MethodPost, "/api/v1/fiscal-periods", map[string]any{"fiscalYear": 2024, "fiscalMonth": 3})

	suite.Equal(http.StatusCreated, w.Code, w.Body.String())
	var res dto.FiscalPeriodResponse
	suite.decode(w, &res)
	suite.Equal("2024-03-01", res.StartDate)
	suite.Equal("2024-03-31", res.EndDate)
	suite.Equal(domain.PeriodOpen, res.Status)
}

func (suite *HandlerTestSuite) TestCreateFiscalPeriod_InvalidMonth() {
	w := suite.do(http.MethodPost, "/api/v1/fiscal-periods", map[string]any{"fiscalYear": 2024, "fiscalMonth": 13})
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *HandlerTestSuite) TestCloseFiscalPeriod() {
	period := samplePeriod(domain.PeriodClosed)
	suite.periods.On("CloseFiscalPeriod", mock.Anything, march2024, suite.userID).Return(&portssvc.ClosePeriodResult{
		Period: period,
		Balances: &portssvc.BalanceCalculationResult{
			FiscalYear:        2024,
			FiscalMonth:       3,
			AccountsProcessed: 2,
			TotalDebits:       decimal.NewFromInt(100),
			TotalCredits:      decimal.NewFromInt(100),
			IsBalanced:        true,
			Balances:          []domain.AccountBalance{},
		},
	}, nil).Once()

	w := suite.do(http.MethodPost, "/api/v1/fiscal-periods/2024/3/close", nil)

	suite.Equal(http.StatusOK, w.Code, w.Body.String())
	var res dto.ClosePeriodResponse
	suite.decode(w, &res)
	suite.Equal(domain.PeriodClosed, res.Period.Status)
	suite.True(res.Balances.IsBalanced)
	suite.Equal(2, res.Balances.AccountsProcessed)
}

func (suite *HandlerTestSuite) TestCloseFiscalPeriod_Unbalanced() {
	suite.periods.On("CloseFiscalPeriod", mock.Anything, march2024, suite.userID).
		Return(nil, apperrors.NewConflictError("TRIAL_BALANCE_UNBALANCED", "trial balance is off by 1.00")).Once()

	w := suite.do(http.MethodPost, "/api/v1/fiscal-periods/2024/3/close", nil)
	suite.Equal(http.StatusConflict, w.Code)
	suite.Contains(w.Body.String(), "TRIAL_BALANCE_UNBALANCED")
}

func (suite *HandlerTestSuite) TestFiscalPeriodPath_Invalid() {
	w := suite.do(http.MethodGet, "/api/v1/fiscal-periods/2024/0", nil)
	suite.Equal(http.StatusBadRequest, w.Code)

	w = suite.do(http.MethodPost, "/api/v1/fiscal-periods/abc/3/lock", nil)
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *HandlerTestSuite) TestReopenFiscalPeriod_RequiresReason() {
	w := suite.do(http.MethodPost, "/api/v1/fiscal-periods/2024/3/reopen", map[string]any{"reason": ""})
	suite.Equal(http.StatusBadRequest, w.Code)

	reopened := samplePeriod(domain.PeriodOpen)
	suite.periods.On("ReopenFiscalPeriod", mock.Anything, march2024, suite.userID, "late invoice").Return(reopened, nil).Once()
	w = suite.do(http.MethodPost, "/api/v1/fiscal-periods/2024/3/reopen", map[string]any{"reason": "late invoice"})
	suite.Equal(http.StatusOK, w.Code)
}

func (suite *HandlerTestSuite) TestCalculateBalances_DefaultsToIncremental() {
	suite.balances.On("CalculatePeriodBalances", mock.Anything, march2024, false, suite.userID).
		Return(&portssvc.BalanceCalculationResult{FiscalYear: 2024, FiscalMonth: 3, IsBalanced: true}, nil).Once()

	w := suite.do(http.MethodPost, "/api/v1/fiscal-periods/2024/3/balances", nil)
	suite.Equal(http.StatusOK, w.Code, w.Body.String())

	suite.balances.On("CalculatePeriodBalances", mock.Anything, march2024, true, suite.userID).
		Return(nil, apperrors.NewStateError("PERIOD_LOCKED", "fiscal period 2024-03 is locked")).Once()

	w = suite.do(http.MethodPost, "/api/v1/fiscal-periods/2024/3/balances", map[string]any{"recalculate": true})
	suite.Equal(http.StatusUnprocessableEntity, w.Code)
}

func (suite *HandlerTestSuite) TestGetCurrentOpenPeriod_None() {
	suite.periods.On("GetCurrentOpenPeriod", mock.Anything).
		Return(nil, apperrors.NewNotFoundError("no open fiscal period")).Once()

	w := suite.do(http.MethodGet, "/api/v1/current-fiscal-period", nil)
	suite.Equal(http.StatusNotFound, w.Code)
}
