package services

import (
	"context"
	"time"

	"github.com/SscSPs/commerce_ledger/internal/core/domain"
)

// CreateJournalEntryCommand is the input for CreateJournalEntry.
// SourceService and SourceReferenceID together form an idempotency key.
type CreateJournalEntryCommand struct {
	EntryDate         time.Time
	Description       string
	EntryType         domain.EntryType
	Lines             []domain.JournalLine
	SourceService     string
	SourceReferenceID string
	CreatedBy         string
}

// UpdateJournalEntryCommand is the input for UpdateJournalEntry. Nil fields are unchanged.
type UpdateJournalEntryCommand struct {
	JournalEntryID string
	EntryDate      *time.Time
	Description    *string
	Lines          []domain.JournalLine
	UpdatedBy      string
}

// ListJournalEntriesQuery selects a page of entries.
type ListJournalEntriesQuery struct {
	Period    *domain.PeriodRef
	Status    domain.JournalStatus
	Limit     int
	NextToken *string
}

// JournalEntryPage is one page of ListJournalEntries.
type JournalEntryPage struct {
	Entries   []domain.JournalEntry
	NextToken *string
}

// JournalReaderSvc defines read operations for journal entries
type JournalReaderSvc interface {
	// GetJournalEntry retrieves an entry with its lines.
	GetJournalEntry(ctx context.Context, journalEntryID string) (*domain.JournalEntry, error)

	// FindBySourceReference retrieves the entry created for an external document.
	FindBySourceReference(ctx context.Context, sourceService, sourceReferenceID string) (*domain.JournalEntry, error)

	// ListJournalEntries retrieves a page of entries.
	ListJournalEntries(ctx context.Context, query ListJournalEntriesQuery) (*JournalEntryPage, error)
}

// JournalWriterSvc defines the journal entry lifecycle commands
type JournalWriterSvc interface {
	// CreateJournalEntry validates and stores a Draft entry. When a source
	// reference is given and already used, the existing entry is returned.
	CreateJournalEntry(ctx context.Context, cmd CreateJournalEntryCommand) (*domain.JournalEntry, error)

	// UpdateJournalEntry changes a Draft entry.
	UpdateJournalEntry(ctx context.Context, cmd UpdateJournalEntryCommand) (*domain.JournalEntry, error)

	// PostJournalEntry posts a Draft entry into its Open fiscal period.
	PostJournalEntry(ctx context.Context, journalEntryID string, postedBy string) (*domain.JournalEntry, error)

	// VoidJournalEntry voids a Posted entry.
	VoidJournalEntry(ctx context.Context, journalEntryID string, voidedBy string, reason string) (*domain.JournalEntry, error)

	// DeleteJournalEntry removes a Draft entry.
	DeleteJournalEntry(ctx context.Context, journalEntryID string, userID string) error
}

// JournalSvcFacade combines all journal-related service interfaces
type JournalSvcFacade interface {
	JournalReaderSvc
	JournalWriterSvc
}
