package handlers_test

import (
	"net/http"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/SscSPs/commerce_ledger/internal/apperrors"
	"github.com/SscSPs/commerce_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/commerce_ledger/internal/core/ports/services"
	"github.com/SscSPs/commerce_ledger/internal/dto"
)

func sampleAccount(id, code string) *domain.Account {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	return &domain.Account{
		AccountID:       id,
		Code:            code,
		Name:            "Cash",
		AccountType:     domain.Asset,
		NormalBalance:   domain.NormalDebit,
		IsDetailAccount: true,
		Level:           1,
		Status:          domain.AccountActive,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     "user-42",
			LastUpdatedAt: now,
			LastUpdatedBy: "user-42",
		},
	}
}

func (suite *HandlerTestSuite) TestCreateAccount_Success() {
	suite.accounts.On("CreateAccount", mock.Anything, portssvc.CreateAccountCommand{
		Code:            "1000",
		Name:            "Cash",
		AccountType:     domain.Asset,
		IsDetailAccount: true,
		CreatedBy:       suite.userID,
	}).Return(sampleAccount("acc-1", "1000"), nil).Once()

	w := suite.do(http.MethodPost, "/api/v1/accounts", map[string]any{
		"code":            "1000",
		"name":            "Cash",
		"accountType":     "ASSET",
		"isDetailAccount": true,
	})

	suite.Equal(http.StatusCreated, w.Code, w.Body.String())
	var res dto.AccountResponse
	suite.decode(w, &res)
	suite.Equal("acc-1", res.AccountID)
	suite.Equal(domain.NormalDebit, res.NormalBalance)
	suite.Equal(domain.AccountActive, res.Status)
}

func (suite *HandlerTestSuite) TestCreateAccount_InvalidCode() {
	w := suite.do(http.MethodPost, "/api/v1/accounts", map[string]any{
		"code":        "10A",
		"name":        "Cash",
		"accountType": "ASSET",
	})

	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Contains(w.Body.String(), "Invalid request format")
	suite.accounts.AssertNotCalled(suite.T(), "CreateAccount", mock.Anything, mock.Anything)
}

func (suite *HandlerTestSuite) TestCreateAccount_DuplicateCode() {
	suite.accounts.On("CreateAccount", mock.Anything, mock.Anything).
		Return(nil, apperrors.NewConflictError("DUPLICATE_ACCOUNT_CODE", "account code 1000 already exists")).Once()

	w := suite.do(http.MethodPost, "/api/v1/accounts", map[string]any{
		"code":        "1000",
		"name":        "Cash",
		"accountType": "ASSET",
	})

	suite.Equal(http.StatusConflict, w.Code)
	var body map[string]string
	suite.decode(w, &body)
	suite.Equal("DUPLICATE_ACCOUNT_CODE", body["code"])
}

func (suite *HandlerTestSuite) TestGetAccount_NotFound() {
	suite.accounts.On("GetAccountByID", mock.Anything, "missing").
		Return(nil, apperrors.NewNotFoundError("account missing not found")).Once()

	w := suite.do(http.MethodGet, "/api/v1/accounts/missing", nil)
	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *HandlerTestSuite) TestListAccounts_DefaultPaging() {
	suite.accounts.On("ListAccounts", mock.Anything, 20, 0).
		Return([]domain.Account{*sampleAccount("acc-1", "1000"), *sampleAccount("acc-2", "1100")}, nil).Once()

	w := suite.do(http.MethodGet, "/api/v1/accounts", nil)

	suite.Equal(http.StatusOK, w.Code)
	var res dto.ListAccountsResponse
	suite.decode(w, &res)
	suite.Len(res.Accounts, 2)
	suite.Equal("1100", res.Accounts[1].Code)
}

func (suite *HandlerTestSuite) TestListAccounts_ByCode() {
	suite.accounts.On("GetAccountByCode", mock.Anything, "4000").
		Return(sampleAccount("acc-9", "4000"), nil).Once()

	w := suite.do(http.MethodGet, "/api/v1/accounts?code=4000", nil)

	suite.Equal(http.StatusOK, w.Code)
	var res dto.ListAccountsResponse
	suite.decode(w, &res)
	suite.Require().Len(res.Accounts, 1)
	suite.Equal("acc-9", res.Accounts[0].AccountID)
	suite.accounts.AssertNotCalled(suite.T(), "ListAccounts", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *HandlerTestSuite) TestListAccounts_LimitOutOfRange() {
	w := suite.do(http.MethodGet, "/api/v1/accounts?limit=0", nil)
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *HandlerTestSuite) TestArchiveAccount_IllegalTransition() {
	suite.accounts.On("ArchiveAccount", mock.Anything, "acc-1", suite.userID).
		Return(nil, apperrors.NewStateError("INVALID_ACCOUNT_TRANSITION", "cannot archive an active account")).Once()

	w := suite.do(http.MethodPost, "/api/v1/accounts/acc-1/archive", nil)

	suite.Equal(http.StatusUnprocessableEntity, w.Code)
	suite.Contains(w.Body.String(), "INVALID_ACCOUNT_TRANSITION")
}

func (suite *HandlerTestSuite) TestDeleteAccount_InternalErrorIsHidden() {
	suite.accounts.On("DeleteAccount", mock.Anything, "acc-1", suite.userID).
		Return(apperrors.NewAppError(http.StatusInternalServerError, "delete failed", assertErr("connection reset"))).Once()

	w := suite.do(http.MethodDelete, "/api/v1/accounts/acc-1", nil)

	suite.Equal(http.StatusInternalServerError, w.Code)
	suite.NotContains(w.Body.String(), "connection reset")
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
