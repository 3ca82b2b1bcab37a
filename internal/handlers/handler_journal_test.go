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

func sampleEntry(id string, status domain.JournalStatus) *domain.JournalEntry {
	return &domain.JournalEntry{
		JournalEntryID: id,
		EntryDate:      time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		Description:    "Cash sale",
		EntryType:      domain.EntryManual,
		Status:         status,
		FiscalYear:     2024,
		FiscalMonth:    3,
		Lines: []domain.JournalLine{
			{JournalLineID: id + "-1", LineNumber: 1, AccountID: "cash", TransactionType: domain.Debit, Amount: decimal.NewFromInt(100)},
			{JournalLineID: id + "-2", LineNumber: 2, AccountID: "sales", TransactionType: domain.Credit, Amount: decimal.NewFromInt(100)},
		},
	}
}

func (suite *HandlerTestSuite) TestCreateJournalEntry_Success() {
	suite.journal.On("CreateJournalEntry", mock.Anything, mock.MatchedBy(func(cmd portssvc.CreateJournalEntryCommand) bool {
		return len(cmd.Lines) == 2 &&
			cmd.CreatedBy == suite.userID &&
			cmd.Lines[0].Amount.Equal(decimal.RequireFromString("100.50")) &&
			cmd.Lines[1].Dimensions.Channel == "web" &&
			cmd.SourceService == "orders" && cmd.SourceReferenceID == "SO-1"
	})).Return(sampleEntry("je-1", domain.JournalDraft), nil).Once()

	w := suite.do(http.MethodPost, "/api/v1/journal-entries", map[string]any{
		"entryDate":         "2024-03-15T00:00:00Z",
		"description":       "Cash sale",
		"sourceService":     "orders",
		"sourceReferenceID": "SO-1",
		"lines": []map[string]any{
			{"accountID": "cash", "transactionType": "DEBIT", "amount": "100.50"},
			{"accountID": "sales", "transactionType": "CREDIT", "amount": "100.50", "dimensions": map[string]string{"channel": "web"}},
		},
	})

	suite.Equal(http.StatusCreated, w.Code, w.Body.String())
	var res dto.JournalEntryResponse
	suite.decode(w, &res)
	suite.Equal("je-1", res.JournalEntryID)
	suite.Equal(domain.JournalDraft, res.Status)
	suite.True(res.TotalDebit.Equal(res.TotalCredit))
	suite.Len(res.Lines, 2)
}

func (suite *HandlerTestSuite) TestCreateJournalEntry_SingleLineRejected() {
	w := suite.do(http.MethodPost, "/api/v1/journal-entries", map[string]any{
		"entryDate": "2024-03-15T00:00:00Z",
		"lines": []map[string]any{
			{"accountID": "cash", "transactionType": "DEBIT", "amount": "1"},
		},
	})
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *HandlerTestSuite) TestCreateJournalEntry_UnbalancedFromService() {
	suite.journal.On("CreateJournalEntry", mock.Anything, mock.Anything).
		Return(nil, apperrors.NewValidationError("UNBALANCED_ENTRY", "debits 10.00 do not equal credits 9.00")).Once()

	w := suite.do(http.MethodPost, "/api/v1/journal-entries", map[string]any{
		"entryDate": "2024-03-15T00:00:00Z",
		"lines": []map[string]any{
			{"accountID": "cash", "transactionType": "DEBIT", "amount": "10"},
			{"accountID": "sales", "transactionType": "CREDIT", "amount": "9"},
		},
	})

	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Contains(w.Body.String(), "UNBALANCED_ENTRY")
}

func (suite *HandlerTestSuite) TestPostJournalEntry_ClosedPeriod() {
	suite.journal.On("PostJournalEntry", mock.Anything, "je-1", suite.userID).
		Return(nil, apperrors.NewStateError("PERIOD_NOT_OPEN", "fiscal period 2024-03 is CLOSED")).Once()

	w := suite.do(http.MethodPost, "/api/v1/journal-entries/je-1/post", nil)
	suite.Equal(http.StatusUnprocessableEntity, w.Code)
	suite.Contains(w.Body.String(), "PERIOD_NOT_OPEN")
}

func (suite *HandlerTestSuite) TestVoidJournalEntry_RequiresReason() {
	w := suite.do(http.MethodPost, "/api/v1/journal-entries/je-1/void", map[string]any{})
	suite.Equal(http.StatusBadRequest, w.Code)

	voided := sampleEntry("je-1", domain.JournalVoided)
	suite.journal.On("VoidJournalEntry", mock.Anything, "je-1", suite.userID, "duplicate").Return(voided, nil).Once()

	w = suite.do(http.MethodPost, "/api/v1/journal-entries/je-1/void", map[string]any{"reason": "duplicate"})
	suite.Equal(http.StatusOK, w.Code)
	var res dto.JournalEntryResponse
	suite.decode(w, &res)
	suite.Equal(domain.JournalVoided, res.Status)
}

func (suite *HandlerTestSuite) TestListJournalEntries_PeriodFilterAndToken() {
	next := "token-2"
	suite.journal.On("ListJournalEntries", mock.Anything, mock.MatchedBy(func(q portssvc.ListJournalEntriesQuery) bool {
		return q.Period != nil && *q.Period == (domain.PeriodRef{Year: 2024, Month: 3}) &&
			q.Status == domain.JournalPosted && q.Limit == 5 &&
			q.NextToken != nil && *q.NextToken == "token-1"
	})).Return(&portssvc.JournalEntryPage{
		Entries:   []domain.JournalEntry{*sampleEntry("je-1", domain.JournalPosted)},
		NextToken: &next,
	}, nil).Once()

	w := suite.do(http.MethodGet, "/api/v1/journal-entries?fiscalYear=2024&fiscalMonth=3&status=POSTED&limit=5&nextToken=token-1", nil)

	suite.Equal(http.StatusOK, w.Code, w.Body.String())
	var res dto.ListJournalEntriesResponse
	suite.decode(w, &res)
	suite.Len(res.Entries, 1)
	suite.Require().NotNil(res.NextToken)
	suite.Equal("token-2", *res.NextToken)
}

func (suite *HandlerTestSuite) TestListJournalEntries_InvalidMonth() {
	w := suite.do(http.MethodGet, "/api/v1/journal-entries?fiscalYear=2024&fiscalMonth=13", nil)
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *HandlerTestSuite) TestListJournalEntries_BySourceReference() {
	suite.journal.On("FindBySourceReference", mock.Anything, "orders", "SO-7").
		Return(sampleEntry("je-7", domain.JournalPosted), nil).Once()

	w := suite.do(http.MethodGet, "/api/v1/journal-entries?sourceService=orders&sourceReferenceID=SO-7", nil)

	suite.Equal(http.StatusOK, w.Code)
	var res dto.ListJournalEntriesResponse
	suite.decode(w, &res)
	suite.Require().Len(res.Entries, 1)
	suite.Equal("je-7", res.Entries[0].JournalEntryID)
}
