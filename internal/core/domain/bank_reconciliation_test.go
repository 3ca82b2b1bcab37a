package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SscSPs/commerce_ledger/internal/apperrors"
	"github.com/SscSPs/commerce_ledger/internal/core/domain"
)

func newReconciliation(statement, book string) *domain.BankReconciliation {
	return domain.NewBankReconciliation("rec-1", "bank-1", domain.PeriodRef{Year: 2024, Month: 3}, dec(statement), dec(book), "user-1", testNow)
}

func addItem(t *testing.T, r *domain.BankReconciliation, itemType domain.ReconcilingItemType, amount string, requiresEntry bool) domain.ReconcilingItem {
	t.Helper()
	item, err := domain.NewReconcilingItem(itemType, "", dec(amount), testNow, requiresEntry)
	require.NoError(t, err)
	require.NoError(t, r.AddItem(item, "user-1", testNow))
	return item
}

func TestBankReconciliation_OutstandingCheckBalances(t *testing.T) {
	r := newReconciliation("150000000", "145000000")
	assert.False(t, r.IsBalanced())

	addItem(t, r, domain.OutstandingCheck, "5000000", false)

	assert.True(t, r.AdjustedBankBalance.Equal(dec("145000000")))
	assert.True(t, r.AdjustedBookBalance.Equal(dec("145000000")))
	assert.True(t, r.IsBalanced())
}

func TestBankReconciliation_AdjustedBalances(t *testing.T) {
	r := newReconciliation("1000", "1000")
	addItem(t, r, domain.OutstandingCheck, "200", false)
	addItem(t, r, domain.DepositInTransit, "50", false)
	addItem(t, r, domain.BankError, "-10", false)
	addItem(t, r, domain.BankFee, "25", true)
	addItem(t, r, domain.NSFCheck, "100", true)
	addItem(t, r, domain.BankInterest, "5", true)
	addItem(t, r, domain.BookError, "-20", true)

	assert.True(t, r.AdjustedBankBalance.Equal(dec("840")), "bank %s", r.AdjustedBankBalance)
	assert.True(t, r.AdjustedBookBalance.Equal(dec("860")), "book %s", r.AdjustedBookBalance)
	assert.True(t, r.Difference().Equal(dec("-20")))
}

func TestNewReconcilingItem_Validation(t *testing.T) {
	_, err := domain.NewReconcilingItem(domain.BankFee, "", dec("-5"), testNow, true)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	_, err = domain.NewReconcilingItem(domain.BookError, "", dec("0"), testNow, true)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	_, err = domain.NewReconcilingItem("MYSTERY", "", dec("5"), testNow, false)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	_, err = domain.NewReconcilingItem(domain.OutstandingCheck, "", dec("5"), testNow, true)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestBankReconciliation_Lifecycle(t *testing.T) {
	r := newReconciliation("1000", "1010")

	err := r.Complete("user-1", testNow)
	assert.ErrorIs(t, err, apperrors.ErrState, "draft cannot complete")

	require.NoError(t, r.Start("user-1", testNow))
	assert.ErrorIs(t, r.Start("user-1", testNow), apperrors.ErrState)

	err = r.Complete("user-1", testNow)
	assert.ErrorIs(t, err, apperrors.ErrState)
	assert.Equal(t, "RECONCILIATION_NOT_BALANCED", apperrors.Code(err))
	assert.Equal(t, domain.ReconciliationInProgress, r.Status)

	assert.ErrorIs(t, r.Approve("boss", testNow), apperrors.ErrState, "approve requires completed")

	addItem(t, r, domain.DepositInTransit, "10", false)
	require.NoError(t, r.Complete("user-1", testNow))
	assert.Equal(t, domain.ReconciliationCompleted, r.Status)

	item, err := domain.NewReconcilingItem(domain.BankFee, "", dec("1"), testNow, true)
	require.NoError(t, err)
	assert.ErrorIs(t, r.AddItem(item, "user-1", testNow), apperrors.ErrState, "completed reconciliation is frozen")

	require.NoError(t, r.Approve("boss", testNow))
	assert.Equal(t, domain.ReconciliationApproved, r.Status)

	events := r.PullEvents()
	require.Len(t, events, 2)
	assert.Equal(t, domain.EventBankReconciliationCompleted, events[0].EventType)
	assert.Equal(t, domain.EventBankReconciliationApproved, events[1].EventType)
}

func TestBankReconciliation_ClearItemKeepsItInBalances(t *testing.T) {
	r := newReconciliation("1000", "800")
	item := addItem(t, r, domain.OutstandingCheck, "200", false)

	require.NoError(t, r.ClearItem(item.ReconcilingItemID, "user-1", testNow))
	assert.ErrorIs(t, r.ClearItem(item.ReconcilingItemID, "user-1", testNow), apperrors.ErrState)
	assert.ErrorIs(t, r.ClearItem("missing", "user-1", testNow), apperrors.ErrNotFound)
	assert.Equal(t, domain.ItemCleared, r.Items[0].Status)
	assert.True(t, r.IsBalanced())
}

func TestGenerateAdjustingEntries(t *testing.T) {
	r := newReconciliation("1000", "1000")
	fee := addItem(t, r, domain.BankFee, "25", true)
	interest := addItem(t, r, domain.BankInterest, "5", true)
	addItem(t, r, domain.OutstandingCheck, "100", false)
	addItem(t, r, domain.BankFee, "3", false)

	accounts := domain.AdjustingAccounts{
		BankGLAccountID:       "bank-gl",
		BankFeeExpenseAccount: "fees",
		InterestIncomeAccount: "interest",
	}

	drafts, err := domain.GenerateAdjustingEntries(r, accounts)
	require.NoError(t, err)
	require.Len(t, drafts, 2)

	assert.Equal(t, fee.ReconcilingItemID, drafts[0].ReconcilingItemID)
	assert.Equal(t, "fees", drafts[0].Lines[0].AccountID)
	assert.Equal(t, domain.Debit, drafts[0].Lines[0].TransactionType)
	assert.Equal(t, "bank-gl", drafts[0].Lines[1].AccountID)
	assert.Equal(t, domain.Credit, drafts[0].Lines[1].TransactionType)
	assert.NoError(t, domain.ValidateLines(drafts[0].Lines))

	assert.Equal(t, interest.ReconcilingItemID, drafts[1].ReconcilingItemID)
	assert.Equal(t, "bank-gl", drafts[1].Lines[0].AccountID)
	assert.Equal(t, "interest", drafts[1].Lines[1].AccountID)

	require.NoError(t, r.LinkJournalEntry(fee.ReconcilingItemID, "je-fee", "user-1", testNow))
	assert.ErrorIs(t, r.LinkJournalEntry(fee.ReconcilingItemID, "je-2", "user-1", testNow), apperrors.ErrConflict)
	drafts, err = domain.GenerateAdjustingEntries(r, accounts)
	require.NoError(t, err)
	assert.Len(t, drafts, 1, "items with an entry are skipped")

	addItem(t, r, domain.NSFCheck, "40", true)
	_, err = domain.GenerateAdjustingEntries(r, accounts)
	assert.ErrorIs(t, err, apperrors.ErrValidation, "NSF account not configured")
}
