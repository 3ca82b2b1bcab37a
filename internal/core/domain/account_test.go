package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SscSPs/commerce_ledger/internal/apperrors"
	"github.com/SscSPs/commerce_ledger/internal/core/domain"
)

func TestNewAccount(t *testing.T) {
	header := &domain.Account{AccountID: "hdr", Code: "1000", AccountType: domain.Asset, Level: 1}

	tests := []struct {
		name     string
		params   domain.NewAccountParams
		wantCode string
	}{
		{"three digit code", domain.NewAccountParams{Code: "100", Name: "Cash", AccountType: domain.Asset}, "INVALID_ACCOUNT_CODE"},
		{"alpha code", domain.NewAccountParams{Code: "10A0", Name: "Cash", AccountType: domain.Asset}, "INVALID_ACCOUNT_CODE"},
		{"blank name", domain.NewAccountParams{Code: "1010", Name: " ", AccountType: domain.Asset}, "ACCOUNT_NAME_REQUIRED"},
		{"bad type", domain.NewAccountParams{Code: "1010", Name: "Cash", AccountType: "STUFF"}, "INVALID_ACCOUNT_TYPE"},
		{"detail parent", domain.NewAccountParams{Code: "1011", Name: "Petty", AccountType: domain.Asset, Parent: &domain.Account{Code: "1010", AccountType: domain.Asset, IsDetailAccount: true}}, "PARENT_IS_DETAIL"},
		{"parent type mismatch", domain.NewAccountParams{Code: "4010", Name: "Sales", AccountType: domain.Revenue, Parent: header}, "PARENT_TYPE_MISMATCH"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := domain.NewAccount(tt.params, "user-1", testNow)
			assert.ErrorIs(t, err, apperrors.ErrValidation)
			assert.Equal(t, tt.wantCode, apperrors.Code(err))
		})
	}

	acc, err := domain.NewAccount(domain.NewAccountParams{
		AccountID: "cash", Code: "1010", Name: "Cash", AccountType: domain.Asset, IsDetailAccount: true, Parent: header,
	}, "user-1", testNow)
	require.NoError(t, err)
	assert.Equal(t, domain.NormalDebit, acc.NormalBalance)
	assert.Equal(t, 2, acc.Level)
	assert.Equal(t, "hdr", acc.ParentAccountID)
	assert.True(t, acc.CanReceivePostings())

	rev, err := domain.NewAccount(domain.NewAccountParams{Code: "4000", Name: "Sales", AccountType: domain.Revenue}, "user-1", testNow)
	require.NoError(t, err)
	assert.Equal(t, domain.NormalCredit, rev.NormalBalance)
	assert.False(t, rev.CanReceivePostings(), "header accounts cannot receive postings")
	assert.ErrorIs(t, rev.EnsurePostable(), apperrors.ErrState)
}

func TestAccount_StatusTransitions(t *testing.T) {
	acc := &domain.Account{Code: "1010", Status: domain.AccountActive, IsDetailAccount: true}

	assert.ErrorIs(t, acc.Archive("u", testNow), apperrors.ErrState, "archive requires inactive")
	require.NoError(t, acc.Deactivate("u", testNow))
	assert.False(t, acc.CanReceivePostings())
	assert.ErrorIs(t, acc.EnsurePostable(), apperrors.ErrState)
	require.NoError(t, acc.Activate("u", testNow))
	require.NoError(t, acc.Deactivate("u", testNow))
	require.NoError(t, acc.Archive("u", testNow))
	assert.Equal(t, domain.AccountArchived, acc.Status)
	assert.ErrorIs(t, acc.Activate("u", testNow), apperrors.ErrState)
	assert.ErrorIs(t, acc.Rename("New", "", "u", testNow), apperrors.ErrState)
}

func TestAccount_SystemAccountProtected(t *testing.T) {
	acc := &domain.Account{Code: "3900", Status: domain.AccountActive, IsSystemAccount: true}

	err := acc.Deactivate("u", testNow)
	assert.ErrorIs(t, err, apperrors.ErrState)
	assert.Equal(t, "SYSTEM_ACCOUNT", apperrors.Code(err))
	assert.Equal(t, domain.AccountActive, acc.Status)
	assert.ErrorIs(t, acc.EnsureDeletable(), apperrors.ErrState)
	assert.ErrorIs(t, acc.Archive("u", testNow), apperrors.ErrState)
}
