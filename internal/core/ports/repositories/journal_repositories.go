package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/commerce_ledger/internal/core/domain"
)

// JournalEntryFilter narrows ListJournalEntries. Zero values do not filter.
type JournalEntryFilter struct {
	Period *domain.PeriodRef
	Status domain.JournalStatus
}

// JournalEntryReader defines read operations for journal entries
type JournalEntryReader interface {
	// FindJournalEntryByID retrieves an entry and its lines. Inside a
	// transaction the entry row is locked as requested, which serializes
	// lifecycle changes on the same entry.
	FindJournalEntryByID(ctx context.Context, journalEntryID string, lock RowLock) (*domain.JournalEntry, error)

	// FindBySourceReference retrieves the entry created for an external
	// source document, or apperrors.ErrNotFound.
	FindBySourceReference(ctx context.Context, sourceService, sourceReferenceID string) (*domain.JournalEntry, error)

	// ListJournalEntries retrieves a page of entries ordered by entry date
	// descending. It returns the entries, a token for the next page, and an error.
	ListJournalEntries(ctx context.Context, filter JournalEntryFilter, limit int, nextToken *string) ([]domain.JournalEntry, *string, error)

	// AccountHasLines reports whether any journal line references the account.
	AccountHasLines(ctx context.Context, accountID string) (bool, error)
}

// JournalEntryWriter defines write operations for journal entries
type JournalEntryWriter interface {
	// SaveJournalEntry persists a new entry with its lines.
	SaveJournalEntry(ctx context.Context, entry domain.JournalEntry) error

	// UpdateJournalEntry rewrites a Draft entry's header and lines.
	UpdateJournalEntry(ctx context.Context, entry domain.JournalEntry) error

	// UpdateJournalEntryStatus persists a post or void. It only succeeds when
	// the stored status equals expected; otherwise apperrors.ErrConflict.
	UpdateJournalEntryStatus(ctx context.Context, entry domain.JournalEntry, expected domain.JournalStatus) error

	// DeleteJournalEntry removes a Draft entry and its lines.
	DeleteJournalEntry(ctx context.Context, journalEntryID string) error
}

// EntryNumberGenerator hands out period-scoped entry numbers. It must be
// called inside the posting transaction; a number is never handed out twice.
type EntryNumberGenerator interface {
	GenerateEntryNumber(ctx context.Context, period domain.PeriodRef) (string, error)
}

// JournalAggregateReader exposes the aggregates balance calculation and
// bank matching are built on. Only posted, non-void lines are considered.
type JournalAggregateReader interface {
	// AggregatePostedLines sums debits and credits per account for the period.
	AggregatePostedLines(ctx context.Context, period domain.PeriodRef) ([]domain.AccountMovement, error)

	// FindMatchCandidates lists posted lines on a GL account dated within
	// [from, to] that no bank transaction is matched to yet.
	FindMatchCandidates(ctx context.Context, glAccountID string, from, to time.Time) ([]domain.MatchCandidate, error)

	// FindMatchCandidate loads a single posted line as a match candidate.
	FindMatchCandidate(ctx context.Context, journalLineID string) (*domain.MatchCandidate, error)
}

// JournalEntryRepositoryFacade combines all journal-related repository interfaces
type JournalEntryRepositoryFacade interface {
	JournalEntryReader
	JournalEntryWriter
	EntryNumberGenerator
	JournalAggregateReader
}

// CodeDuplicateEntryNumber is the apperrors code returned when a generated
// entry number collides with an existing one. Callers retry the post.
const CodeDuplicateEntryNumber = "DUPLICATE_ENTRY_NUMBER"
