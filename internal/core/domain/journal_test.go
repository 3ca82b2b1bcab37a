package domain_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SscSPs/commerce_ledger/internal/apperrors"
	"github.com/SscSPs/commerce_ledger/internal/core/domain"
)

var testNow = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

func line(accountID string, dir domain.TransactionType, amount int64) domain.JournalLine {
	return domain.JournalLine{AccountID: accountID, TransactionType: dir, Amount: decimal.NewFromInt(amount)}
}

func newDraft(t *testing.T) *domain.JournalEntry {
	t.Helper()
	entry, err := domain.NewJournalEntry(domain.NewJournalEntryParams{
		JournalEntryID: "je-1",
		EntryDate:      testNow,
		Description:    " Cash sale ",
		Lines: []domain.JournalLine{
			line("cash", domain.Debit, 100000),
			line("sales", domain.Credit, 100000),
		},
	}, "user-1", testNow)
	require.NoError(t, err)
	return entry
}

func openPeriod(year, month int) *domain.FiscalPeriod {
	return domain.NewFiscalPeriod("fp-1", domain.PeriodRef{Year: year, Month: month}, "user-1", testNow)
}

func TestNewJournalEntry_Validation(t *testing.T) {
	tests := []struct {
		name     string
		lines    []domain.JournalLine
		wantCode string
	}{
		{
			name:     "single line",
			lines:    []domain.JournalLine{line("cash", domain.Debit, 10)},
			wantCode: "INSUFFICIENT_LINES",
		},
		{
			name:     "zero amount",
			lines:    []domain.JournalLine{line("cash", domain.Debit, 0), line("sales", domain.Credit, 0)},
			wantCode: "NON_POSITIVE_AMOUNT",
		},
		{
			name:     "negative amount",
			lines:    []domain.JournalLine{line("cash", domain.Debit, -5), line("sales", domain.Credit, -5)},
			wantCode: "NON_POSITIVE_AMOUNT",
		},
		{
			name:     "unbalanced",
			lines:    []domain.JournalLine{line("cash", domain.Debit, 100), line("sales", domain.Credit, 99)},
			wantCode: "UNBALANCED_ENTRY",
		},
		{
			name:     "missing account",
			lines:    []domain.JournalLine{line("", domain.Debit, 100), line("sales", domain.Credit, 100)},
			wantCode: "LINE_ACCOUNT_REQUIRED",
		},
		{
			name:     "invalid direction",
			lines:    []domain.JournalLine{line("cash", "SIDEWAYS", 100), line("sales", domain.Credit, 100)},
			wantCode: "INVALID_LINE_DIRECTION",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := domain.NewJournalEntry(domain.NewJournalEntryParams{
				JournalEntryID: "je-x",
				EntryDate:      testNow,
				Lines:          tt.lines,
			}, "user-1", testNow)
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrValidation)
			assert.Equal(t, tt.wantCode, apperrors.Code(err))
		})
	}
}

func TestNewJournalEntry_AssignsPeriodAndLineIdentity(t *testing.T) {
	entry := newDraft(t)

	assert.Equal(t, domain.JournalDraft, entry.Status)
	assert.Equal(t, domain.EntryManual, entry.EntryType)
	assert.Equal(t, domain.PeriodRef{Year: 2024, Month: 3}, entry.Period())
	assert.Equal(t, "Cash sale", entry.Description)
	assert.Empty(t, entry.EntryNumber)
	for i, l := range entry.Lines {
		assert.NotEmpty(t, l.JournalLineID)
		assert.Equal(t, "je-1", l.JournalEntryID)
		assert.Equal(t, i+1, l.LineNumber)
	}
	assert.Empty(t, entry.PendingEvents())
}

func TestNewJournalEntry_SourceReferenceMustBeComplete(t *testing.T) {
	_, err := domain.NewJournalEntry(domain.NewJournalEntryParams{
		JournalEntryID: "je-x",
		EntryDate:      testNow,
		EntryType:      domain.EntrySystem,
		SourceService:  "orders",
		Lines:          []domain.JournalLine{line("cash", domain.Debit, 1), line("sales", domain.Credit, 1)},
	}, "system", testNow)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestJournalEntry_Post(t *testing.T) {
	entry := newDraft(t)
	number := domain.FormatEntryNumber(entry.Period(), 7)

	require.NoError(t, entry.Post(openPeriod(2024, 3), number, "poster", testNow))

	assert.Equal(t, domain.JournalPosted, entry.Status)
	assert.Equal(t, "JE-202403-0007", entry.EntryNumber)
	require.NotNil(t, entry.PostedBy)
	assert.Equal(t, "poster", *entry.PostedBy)

	events := entry.PullEvents()
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventJournalEntryPosted, events[0].EventType)
	assert.Equal(t, domain.EventPending, events[0].Status)

	var payload domain.JournalEntryPostedPayload
	require.NoError(t, json.Unmarshal(events[0].Payload, &payload))
	require.Len(t, payload.Accounts, 2)
	assert.Equal(t, "cash", payload.Accounts[0].AccountID)
	assert.True(t, payload.Accounts[0].Debit.Equal(decimal.NewFromInt(100000)))
	assert.True(t, payload.Accounts[1].Credit.Equal(decimal.NewFromInt(100000)))
	assert.True(t, payload.TotalAmount.Equal(decimal.NewFromInt(100000)))
	assert.Empty(t, entry.PendingEvents())
}

func TestJournalEntry_PostRejections(t *testing.T) {
	t.Run("closed period", func(t *testing.T) {
		entry := newDraft(t)
		period := openPeriod(2024, 3)
		require.NoError(t, period.Close("closer", testNow))

		err := entry.Post(period, "JE-202403-0001", "poster", testNow)
		assert.ErrorIs(t, err, apperrors.ErrState)
		assert.Equal(t, domain.JournalDraft, entry.Status)
		assert.Empty(t, entry.PendingEvents())
	})

	t.Run("wrong period", func(t *testing.T) {
		entry := newDraft(t)
		err := entry.Post(openPeriod(2024, 4), "JE-202404-0001", "poster", testNow)
		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})

	t.Run("already posted", func(t *testing.T) {
		entry := newDraft(t)
		require.NoError(t, entry.Post(openPeriod(2024, 3), "JE-202403-0001", "poster", testNow))
		err := entry.Post(openPeriod(2024, 3), "JE-202403-0002", "poster", testNow)
		assert.ErrorIs(t, err, apperrors.ErrState)
		assert.Equal(t, "JE-202403-0001", entry.EntryNumber)
	})

	t.Run("voided", func(t *testing.T) {
		entry := newDraft(t)
		require.NoError(t, entry.Post(openPeriod(2024, 3), "JE-202403-0001", "poster", testNow))
		require.NoError(t, entry.Void("voider", "duplicate", testNow))
		err := entry.Post(openPeriod(2024, 3), "JE-202403-0002", "poster", testNow)
		assert.ErrorIs(t, err, apperrors.ErrState)
		assert.Equal(t, "ENTRY_VOIDED", apperrors.Code(err))
	})
}

func TestJournalEntry_Void(t *testing.T) {
	entry := newDraft(t)

	err := entry.Void("voider", "duplicate", testNow)
	assert.ErrorIs(t, err, apperrors.ErrState, "draft entries cannot be voided")

	require.NoError(t, entry.Post(openPeriod(2024, 3), "JE-202403-0001", "poster", testNow))
	entry.PullEvents()

	err = entry.Void("voider", "  x ", testNow)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	originalLines := append([]domain.JournalLine(nil), entry.Lines...)
	require.NoError(t, entry.Void("voider", "customer refund", testNow))
	assert.Equal(t, domain.JournalVoided, entry.Status)
	assert.Equal(t, originalLines, entry.Lines)
	require.NotNil(t, entry.VoidReason)
	assert.Equal(t, "customer refund", *entry.VoidReason)

	events := entry.PullEvents()
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventJournalEntryVoided, events[0].EventType)

	err = entry.Void("voider", "again please", testNow)
	assert.ErrorIs(t, err, apperrors.ErrState)
	assert.Equal(t, "ENTRY_ALREADY_VOIDED", apperrors.Code(err))
}

func TestJournalEntry_VoidChecksStatusBeforeReason(t *testing.T) {
	draft := newDraft(t)
	err := draft.Void("voider", "", testNow)
	assert.ErrorIs(t, err, apperrors.ErrState)
	assert.Equal(t, "ENTRY_NOT_POSTED", apperrors.Code(err))

	voided := newDraft(t)
	require.NoError(t, voided.Post(openPeriod(2024, 3), "JE-202403-0001", "poster", testNow))
	require.NoError(t, voided.Void("voider", "duplicate", testNow))
	err = voided.Void("voider", "x", testNow)
	assert.ErrorIs(t, err, apperrors.ErrState)
	assert.Equal(t, "ENTRY_ALREADY_VOIDED", apperrors.Code(err))
}

func TestJournalEntry_UpdateAndDelete(t *testing.T) {
	entry := newDraft(t)
	newDate := time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC)
	desc := "Corrected"

	err := entry.Update(domain.JournalEntryUpdate{
		Lines: []domain.JournalLine{line("cash", domain.Debit, 10), line("sales", domain.Credit, 11)},
	}, "editor", testNow)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	assert.True(t, entry.Lines[0].Amount.Equal(decimal.NewFromInt(100000)), "failed update must not mutate")

	require.NoError(t, entry.Update(domain.JournalEntryUpdate{
		EntryDate:   &newDate,
		Description: &desc,
		Lines:       []domain.JournalLine{line("cash", domain.Debit, 50), line("sales", domain.Credit, 50)},
	}, "editor", testNow))
	assert.Equal(t, domain.PeriodRef{Year: 2024, Month: 4}, entry.Period())
	assert.Equal(t, "Corrected", entry.Description)
	assert.Equal(t, "editor", entry.LastUpdatedBy)
	assert.NoError(t, entry.EnsureDeletable())

	require.NoError(t, entry.Post(openPeriod(2024, 4), "JE-202404-0001", "poster", testNow))
	assert.ErrorIs(t, entry.Update(domain.JournalEntryUpdate{Description: &desc}, "editor", testNow), apperrors.ErrState)
	assert.ErrorIs(t, entry.EnsureDeletable(), apperrors.ErrState)
}

func TestFormatEntryNumber(t *testing.T) {
	assert.Equal(t, "JE-202401-0001", domain.FormatEntryNumber(domain.PeriodRef{Year: 2024, Month: 1}, 1))
	assert.Equal(t, "JE-202412-12345", domain.FormatEntryNumber(domain.PeriodRef{Year: 2024, Month: 12}, 12345))
}

func TestAccountBreakdown_GroupsByAccount(t *testing.T) {
	lines := []domain.JournalLine{
		line("b", domain.Debit, 30),
		line("a", domain.Credit, 50),
		line("b", domain.Debit, 20),
	}
	got := domain.AccountBreakdown(lines)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].AccountID)
	assert.True(t, got[0].Credit.Equal(decimal.NewFromInt(50)))
	assert.True(t, got[1].Debit.Equal(decimal.NewFromInt(50)))
	assert.True(t, got[1].Credit.IsZero())
}
