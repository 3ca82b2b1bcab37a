package handlers_test

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/SscSPs/commerce_ledger/internal/apperrors"
	"github.com/SscSPs/commerce_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/commerce_ledger/internal/core/ports/services"
	"github.com/SscSPs/commerce_ledger/internal/dto"
)

func (suite *HandlerTestSuite) TestImportBankStatement() {
	suite.bank.On("ImportBankStatement", mock.Anything, mock.MatchedBy(func(cmd portssvc.ImportBankStatementCommand) bool {
		return cmd.BankAccountID == "ba-1" &&
			cmd.ImportedBy == suite.userID &&
			len(cmd.Lines) == 2 &&
			cmd.Lines[1].Amount.Equal(decimal.NewFromInt(-20))
	})).Return(&portssvc.ImportBankStatementResult{
		BankStatementID:      "bs-1",
		TransactionsImported: 2,
	}, nil).Once()

	w := suite.do(http.MethodPost, "/api/v1/bank-accounts/ba-1/statements", map[string]any{
		"statementDate":  "2024-03-31T00:00:00Z",
		"periodStart":    "2024-03-01T00:00:00Z",
		"periodEnd":      "2024-03-31T00:00:00Z",
		"openingBalance": "0",
		"closingBalance": "230",
		"fileName":       "march.csv",
		"lines": []map[string]any{
			{"transactionDate": "2024-03-05T00:00:00Z", "description": "Deposit", "amount": "250"},
			{"transactionDate": "2024-03-06T00:00:00Z", "description": "Fee", "amount": "-20"},
		},
	})

	suite.Equal(http.StatusCreated, w.Code, w.Body.String())
	var res portssvc.ImportBankStatementResult
	suite.decode(w, &res)
	suite.Equal("bs-1", res.BankStatementID)
	suite.Equal(2, res.TransactionsImported)
}

func (suite *HandlerTestSuite) TestImportBankStatement_PeriodEndBeforeStart() {
	w := suite.do(http.MethodPost, "/api/v1/bank-accounts/ba-1/statements", map[string]any{
		"statementDate": "2024-03-31T00:00:00Z",
		"periodStart":   "2024-03-31T00:00:00Z",
		"periodEnd":     "2024-03-01T00:00:00Z",
		"lines": []map[string]any{
			{"transactionDate": "2024-03-05T00:00:00Z", "amount": "1"},
		},
	})
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *HandlerTestSuite) TestMatchTransaction_RuleFailureIsNotAnError() {
	tx := &domain.BankTransaction{
		BankTransactionID: "bt-1",
		TransactionDate:   time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
		Amount:            decimal.NewFromInt(99),
		TransactionType:   domain.Credit,
		MatchStatus:       domain.MatchUnmatched,
	}
	suite.bank.On("MatchTransaction", mock.Anything, portssvc.MatchTransactionCommand{
		BankTransactionID: "bt-1",
		JournalLineID:     "jl-1",
		DateToleranceDays: 3,
		MatchedBy:         suite.userID,
	}).Return(&portssvc.MatchTransactionResult{
		Transaction: tx,
		Result:      domain.MatchResult{Reason: domain.ReasonAmountMismatch},
	}, nil).Once()

	w := suite.do(http.MethodPost, "/api/v1/bank-transactions/bt-1/match", map[string]any{
		"journalLineID":     "jl-1",
		"dateToleranceDays": 3,
	})

	suite.Equal(http.StatusOK, w.Code)
	var res dto.MatchTransactionResponse
	suite.decode(w, &res)
	suite.False(res.Matched)
	suite.Equal(domain.ReasonAmountMismatch, res.Reason)
	suite.Equal(domain.MatchUnmatched, res.Transaction.MatchStatus)
}

func (suite *HandlerTestSuite) TestMatchTransaction_LineAlreadyMatched() {
	suite.bank.On("MatchTransaction", mock.Anything, mock.Anything).
		Return(nil, apperrors.NewConflictError("LINE_ALREADY_MATCHED", "journal line jl-1 is already matched")).Once()

	w := suite.do(http.MethodPost, "/api/v1/bank-transactions/bt-2/match", map[string]any{"journalLineID": "jl-1"})
	suite.Equal(http.StatusConflict, w.Code)
}

func (suite *HandlerTestSuite) TestAutoMatchStatement() {
	suite.bank.On("AutoMatchStatement", mock.Anything, portssvc.AutoMatchCommand{
		BankStatementID:   "bs-1",
		DateToleranceDays: 5,
		MatchedBy:         suite.userID,
	}).Return(&domain.AutoMatchResult{
		Examined: 2,
		Matched:  1,
		Pairs:    []domain.MatchPair{{BankTransactionID: "bt-1", JournalLineID: "jl-1"}},
	}, nil).Once()

	w := suite.do(http.MethodPost, "/api/v1/bank-statements/bs-1/auto-match", map[string]any{"dateToleranceDays": 5})

	suite.Equal(http.StatusOK, w.Code)
	var res domain.AutoMatchResult
	suite.decode(w, &res)
	suite.Equal(1, res.Matched)
	suite.Len(res.Pairs, 1)
}

func (suite *HandlerTestSuite) TestDeleteBankStatement_WithMatches() {
	suite.bank.On("DeleteBankStatement", mock.Anything, "bs-1", suite.userID).
		Return(apperrors.NewStateError("STATEMENT_HAS_MATCHES", "statement bs-1 has matched transactions")).Once()

	w := suite.do(http.MethodDelete, "/api/v1/bank-statements/bs-1", nil)
	suite.Equal(http.StatusUnprocessableEntity, w.Code)
}
