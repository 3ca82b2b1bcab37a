package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"

	portssvc "github.com/SscSPs/commerce_ledger/internal/core/ports/services"
	"github.com/SscSPs/commerce_ledger/internal/handlers"
	"github.com/SscSPs/commerce_ledger/internal/platform/config"
	"github.com/SscSPs/commerce_ledger/internal/utils"
)

const (
	testSecret = "test-secret-key-that-is-long-enough"
	testIssuer = "ledger-test"
)

// HandlerTestSuite serves the real router against mocked services.
type HandlerTestSuite struct {
	suite.Suite
	router       *gin.Engine
	accounts     *MockAccountService
	journal      *MockJournalService
	periods      *MockFiscalPeriodService
	balances     *MockBalanceService
	bank         *MockBankService
	publisher    *MockEventPublisher
	userID       string
	bearerHeader string
}

func (suite *HandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	suite.router = gin.New()

	suite.accounts = new(MockAccountService)
	suite.journal = new(MockJournalService)
	suite.periods = new(MockFiscalPeriodService)
	suite.balances = new(MockBalanceService)
	suite.bank = new(MockBankService)
	suite.publisher = new(MockEventPublisher)

	cfg := &config.Config{
		JWTSecret:        testSecret,
		JWTIssuer:        testIssuer,
		OutboxBatchSize:  50,
		OutboxMaxRetries: 3,
	}
	handlers.RegisterRoutes(suite.router, cfg, &portssvc.ServiceContainer{
		Account:        suite.accounts,
		Journal:        suite.journal,
		FiscalPeriod:   suite.periods,
		Balance:        suite.balances,
		BankStatement:  suite.bank,
		EventPublisher: suite.publisher,
	})

	suite.userID = "user-42"
	token, err := utils.GenerateJWT(suite.userID, testSecret, time.Hour, testIssuer)
	suite.Require().NoError(err)
	suite.bearerHeader = "Bearer " + token
}

func (suite *HandlerTestSuite) TearDownTest() {
	suite.accounts.AssertExpectations(suite.T())
	suite.journal.AssertExpectations(suite.T())
	suite.periods.AssertExpectations(suite.T())
	suite.balances.AssertExpectations(suite.T())
	suite.bank.AssertExpectations(suite.T())
	suite.publisher.AssertExpectations(suite.T())
}

// do sends an authenticated request. body is marshalled to JSON unless nil.
func (suite *HandlerTestSuite) do(method, url string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		suite.Require().NoError(err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, url, reader)
	suite.Require().NoError(err)
	req.Header.Set("Authorization", suite.bearerHeader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *HandlerTestSuite) decode(w *httptest.ResponseRecorder, into any) {
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), into), w.Body.String())
}

func (suite *HandlerTestSuite) TestHealth() {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/health", nil)
	suite.router.ServeHTTP(w, req)
	suite.Equal(http.StatusOK, w.Code)
	suite.Equal("OK", w.Body.String())
}

func (suite *HandlerTestSuite) TestRequiresToken() {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/accounts", nil)
	suite.router.ServeHTTP(w, req)
	suite.Equal(http.StatusUnauthorized, w.Code)
}

func TestHandlers(t *testing.T) {
	suite.Run(t, new(HandlerTestSuite))
}
