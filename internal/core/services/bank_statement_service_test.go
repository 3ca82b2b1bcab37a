package services_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/SscSPs/commerce_ledger/internal/apperrors"
	"github.com/SscSPs/commerce_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/commerce_ledger/internal/core/ports/services"
)

type BankStatementServiceTestSuite struct {
	suite.Suite
	f    *ledgerFixture
	bank *domain.BankAccount
}

func (suite *BankStatementServiceTestSuite) SetupTest() {
	suite.f = newLedgerFixture(suite.T(), nil)
	suite.f.openPeriod(suite.T(), 2024, 3)

	bank, err := suite.f.svc.BankStatement.CreateBankAccount(suite.f.ctx, portssvc.CreateBankAccountCommand{
		Name:          "Operating",
		BankName:      "First Bank",
		AccountNumber: "0012345678",
		GLAccountID:   suite.f.cash.AccountID,
		CreatedBy:     testUser,
	})
	suite.Require().NoError(err)
	suite.bank = bank
}

func (suite *BankStatementServiceTestSuite) importLines(lines ...portssvc.BankStatementLine) *portssvc.ImportBankStatementResult {
	result, err := suite.f.svc.BankStatement.ImportBankStatement(suite.f.ctx, portssvc.ImportBankStatementCommand{
		BankAccountID:  suite.bank.BankAccountID,
		StatementDate:  day(2024, time.March, 31),
		PeriodStart:    day(2024, time.March, 1),
		PeriodEnd:      day(2024, time.March, 31),
		OpeningBalance: amount("0"),
		ClosingBalance: amount("250"),
		FileName:       "march.csv",
		Lines:          lines,
		ImportedBy:     testUser,
	})
	suite.Require().NoError(err)
	return result
}

func (suite *BankStatementServiceTestSuite) transactions(statementID string) []domain.BankTransaction {
	txs, err := suite.f.svc.BankStatement.ListStatementTransactions(suite.f.ctx, statementID)
	suite.Require().NoError(err)
	return txs
}

func deposit(d int, value, reference string) portssvc.BankStatementLine {
	return portssvc.BankStatementLine{
		TransactionDate: day(2024, time.March, d),
		Description:     "Deposit " + reference,
		Reference:       reference,
		Amount:          amount(value),
	}
}

func (suite *BankStatementServiceTestSuite) TestCreateBankAccount_GLMustBeAsset() {
	_, err := suite.f.svc.BankStatement.CreateBankAccount(suite.f.ctx, portssvc.CreateBankAccountCommand{
		Name:          "Wrong",
		AccountNumber: "1",
		GLAccountID:   suite.f.sales.AccountID,
		CreatedBy:     testUser,
	})
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.Equal("GL_ACCOUNT_NOT_ASSET", apperrors.Code(err))
}

func (suite *BankStatementServiceTestSuite) TestImport_SkipsDuplicates() {
	first := suite.importLines(deposit(5, "250", "DEP-1"), deposit(6, "-20", "FEE-1"), deposit(5, "250", "DEP-1"))
	suite.Equal(2, first.TransactionsImported)
	suite.Equal(1, first.DuplicatesSkipped, "repeated line within the same file")

	second := suite.importLines(deposit(5, "250", "DEP-1"), deposit(7, "30", "DEP-2"))
	suite.Equal(1, second.TransactionsImported)
	suite.Equal(1, second.DuplicatesSkipped, "line already imported by the first statement")

	statement, err := suite.f.svc.BankStatement.GetBankStatement(suite.f.ctx, second.BankStatementID)
	suite.Require().NoError(err)
	suite.Equal(1, statement.TransactionCount)
	suite.Equal(1, statement.DuplicatesSkipped)

	txs := suite.transactions(first.BankStatementID)
	suite.Require().Len(txs, 2)
	suite.Equal(domain.Credit, txs[0].TransactionType)
	suite.Equal(domain.Debit, txs[1].TransactionType)
	suite.Equal(domain.MatchUnmatched, txs[0].MatchStatus)

	events, err := suite.f.repos.DomainEventRepo.ListEventsByAggregate(suite.f.ctx, first.BankStatementID)
	suite.Require().NoError(err)
	suite.Require().Len(events, 1)
	suite.Equal(domain.EventBankStatementImported, events[0].EventType)
}

func (suite *BankStatementServiceTestSuite) TestImport_KeepsLinesThatDifferBelowOneCent() {
	result := suite.importLines(
		deposit(5, "10.001", "DEP-1"),
		deposit(5, "10.004", "DEP-1"),
		portssvc.BankStatementLine{TransactionDate: day(2024, time.March, 6), Reference: "A|B", Description: "C", Amount: amount("5")},
		portssvc.BankStatementLine{TransactionDate: day(2024, time.March, 6), Reference: "A", Description: "B|C", Amount: amount("5")},
	)
	suite.Equal(4, result.TransactionsImported)
	suite.Equal(0, result.DuplicatesSkipped)
}

func (suite *BankStatementServiceTestSuite) TestImport_InvalidLineRejectsWholeFile() {
	_, err := suite.f.svc.BankStatement.ImportBankStatement(suite.f.ctx, portssvc.ImportBankStatementCommand{
		BankAccountID: suite.bank.BankAccountID,
		StatementDate: day(2024, time.March, 31),
		Lines:         []portssvc.BankStatementLine{deposit(5, "10", "A"), deposit(6, "0", "B")},
		ImportedBy:    testUser,
	})
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.Contains(err.Error(), "statement line 2")

	statements, err := suite.f.repos.BankStatementRepo.ListBankStatements(suite.f.ctx, suite.bank.BankAccountID)
	suite.Require().NoError(err)
	suite.Empty(statements)
}

func (suite *BankStatementServiceTestSuite) TestMatchTransaction() {
	sale := suite.f.postedSale(suite.T(), day(2024, time.March, 4), "250")
	cashLine := sale.Lines[0].JournalLineID
	imported := suite.importLines(deposit(5, "250", "DEP-1"), deposit(6, "99", "DEP-2"))
	txs := suite.transactions(imported.BankStatementID)

	mismatch, err := suite.f.svc.BankStatement.MatchTransaction(suite.f.ctx, portssvc.MatchTransactionCommand{
		BankTransactionID: txs[1].BankTransactionID,
		JournalLineID:     cashLine,
		DateToleranceDays: 3,
		MatchedBy:         testUser,
	})
	suite.Require().NoError(err)
	suite.False(mismatch.Result.Matched)
	suite.Equal(domain.ReasonAmountMismatch, mismatch.Result.Reason)

	_, err = suite.f.svc.BankStatement.MatchTransaction(suite.f.ctx, portssvc.MatchTransactionCommand{
		BankTransactionID: txs[0].BankTransactionID,
		JournalLineID:     sale.Lines[1].JournalLineID,
		DateToleranceDays: 3,
		MatchedBy:         testUser,
	})
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.Equal("LINE_NOT_ON_BANK_ACCOUNT", apperrors.Code(err))

	matched, err := suite.f.svc.BankStatement.MatchTransaction(suite.f.ctx, portssvc.MatchTransactionCommand{
		BankTransactionID: txs[0].BankTransactionID,
		JournalLineID:     cashLine,
		DateToleranceDays: 3,
		MatchedBy:         testUser,
	})
	suite.Require().NoError(err)
	suite.True(matched.Result.Matched)
	suite.Equal(domain.MatchMatched, matched.Transaction.MatchStatus)
	suite.Equal(cashLine, *matched.Transaction.MatchedJournalLineID)

	err = suite.f.svc.BankStatement.DeleteBankStatement(suite.f.ctx, imported.BankStatementID, testUser)
	suite.ErrorIs(err, apperrors.ErrState)
	suite.Equal("STATEMENT_HAS_MATCHES", apperrors.Code(err))

	unmatched, err := suite.f.svc.BankStatement.UnmatchTransaction(suite.f.ctx, txs[0].BankTransactionID, testUser)
	suite.Require().NoError(err)
	suite.Equal(domain.MatchUnmatched, unmatched.MatchStatus)
	suite.Nil(unmatched.MatchedJournalLineID)

	suite.Require().NoError(suite.f.svc.BankStatement.DeleteBankStatement(suite.f.ctx, imported.BankStatementID, testUser))
	_, err = suite.f.svc.BankStatement.GetBankStatement(suite.f.ctx, imported.BankStatementID)
	suite.ErrorIs(err, apperrors.ErrNotFound)
}

func (suite *BankStatementServiceTestSuite) TestMatchTransaction_DateOutsideTolerance() {
	sale := suite.f.postedSale(suite.T(), day(2024, time.March, 1), "250")
	imported := suite.importLines(deposit(20, "250", "DEP-1"))
	txs := suite.transactions(imported.BankStatementID)

	res, err := suite.f.svc.BankStatement.MatchTransaction(suite.f.ctx, portssvc.MatchTransactionCommand{
		BankTransactionID: txs[0].BankTransactionID,
		JournalLineID:     sale.Lines[0].JournalLineID,
		DateToleranceDays: 3,
		MatchedBy:         testUser,
	})
	suite.Require().NoError(err)
	suite.False(res.Result.Matched)
	suite.Equal(domain.ReasonDateOutOfRange, res.Result.Reason)
	suite.Equal(domain.MatchUnmatched, res.Transaction.MatchStatus)
}

func (suite *BankStatementServiceTestSuite) TestExcludeAndInclude() {
	imported := suite.importLines(deposit(5, "12", "X"))
	txID := suite.transactions(imported.BankStatementID)[0].BankTransactionID

	excluded, err := suite.f.svc.BankStatement.ExcludeTransaction(suite.f.ctx, txID, "internal transfer", testUser)
	suite.Require().NoError(err)
	suite.Equal(domain.MatchExcluded, excluded.MatchStatus)

	_, err = suite.f.svc.BankStatement.UnmatchTransaction(suite.f.ctx, txID, testUser)
	suite.ErrorIs(err, apperrors.ErrState)

	included, err := suite.f.svc.BankStatement.IncludeTransaction(suite.f.ctx, txID, testUser)
	suite.Require().NoError(err)
	suite.Equal(domain.MatchUnmatched, included.MatchStatus)
	suite.Nil(included.ExcludedReason)
}

func (suite *BankStatementServiceTestSuite) TestAutoMatchStatement() {
	near := suite.f.postedSale(suite.T(), day(2024, time.March, 4), "100")
	far := suite.f.postedSale(suite.T(), day(2024, time.March, 1), "100")
	suite.f.postedSale(suite.T(), day(2024, time.March, 10), "55")

	imported := suite.importLines(deposit(5, "100", "DEP-1"), deposit(12, "70", "DEP-2"), deposit(6, "-5", "FEE"))
	txs := suite.transactions(imported.BankStatementID)
	_, err := suite.f.svc.BankStatement.ExcludeTransaction(suite.f.ctx, txs[1].BankTransactionID, "", testUser)
	suite.Require().NoError(err)

	result, err := suite.f.svc.BankStatement.AutoMatchStatement(suite.f.ctx, portssvc.AutoMatchCommand{
		BankStatementID:   imported.BankStatementID,
		DateToleranceDays: 5,
		MatchedBy:         testUser,
	})
	suite.Require().NoError(err)
	suite.Equal(2, result.Examined)
	suite.Equal(1, result.Matched)
	suite.Equal(1, result.Unmatched)
	suite.Equal(1, result.Excluded)
	suite.Require().Len(result.Pairs, 1)
	suite.Equal(near.Lines[0].JournalLineID, result.Pairs[0].JournalLineID, "closest date wins")
	suite.NotEqual(far.Lines[0].JournalLineID, result.Pairs[0].JournalLineID)

	again, err := suite.f.svc.BankStatement.AutoMatchStatement(suite.f.ctx, portssvc.AutoMatchCommand{
		BankStatementID:   imported.BankStatementID,
		DateToleranceDays: 5,
		MatchedBy:         testUser,
	})
	suite.Require().NoError(err)
	suite.Equal(1, again.AlreadyMatched)
	suite.Equal(0, again.Matched)
}

func TestBankStatementService(t *testing.T) {
	suite.Run(t, new(BankStatementServiceTestSuite))
}
