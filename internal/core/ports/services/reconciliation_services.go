package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/SscSPs/commerce_ledger/internal/core/domain"
)

// StartReconciliationCommand is the input for StartReconciliation. When
// BookEndingBalance is nil it is read from the bank GL account's balance.
type StartReconciliationCommand struct {
	BankAccountID          string
	Period                 domain.PeriodRef
	StatementEndingBalance decimal.Decimal
	BookEndingBalance      *decimal.Decimal
	Notes                  string
	StartedBy              string
}

// AddReconcilingItemCommand is the input for AddReconcilingItem. When
// RequiresJournalEntry is nil, book-side items require an entry.
type AddReconcilingItemCommand struct {
	BankReconciliationID string
	ItemType             domain.ReconcilingItemType
	Description          string
	Amount               decimal.Decimal
	TransactionDate      time.Time
	RequiresJournalEntry *bool
	AddedBy              string
}

// ReconciliationReaderSvc defines read operations for reconciliations
type ReconciliationReaderSvc interface {
	GetReconciliation(ctx context.Context, bankReconciliationID string) (*domain.BankReconciliation, error)
	ListReconciliations(ctx context.Context, bankAccountID string) ([]domain.BankReconciliation, error)
}

// ReconciliationWriterSvc defines the reconciliation lifecycle commands
type ReconciliationWriterSvc interface {
	StartReconciliation(ctx context.Context, cmd StartReconciliationCommand) (*domain.BankReconciliation, error)
	AddReconcilingItem(ctx context.Context, cmd AddReconcilingItemCommand) (*domain.BankReconciliation, error)
	ClearReconcilingItem(ctx context.Context, bankReconciliationID, itemID, userID string) (*domain.BankReconciliation, error)
	CompleteReconciliation(ctx context.Context, bankReconciliationID string, completedBy string) (*domain.BankReconciliation, error)
	ApproveReconciliation(ctx context.Context, bankReconciliationID string, approvedBy string) (*domain.BankReconciliation, error)
}

// AdjustingEntrySvc turns reconciling items into journal entries
type AdjustingEntrySvc interface {
	// GenerateAdjustingEntries drafts entries without storing anything.
	GenerateAdjustingEntries(ctx context.Context, bankReconciliationID string, accounts domain.AdjustingAccounts) ([]domain.AdjustingEntryDraft, error)

	// CreateAdjustingEntries hands the drafts to the journal lifecycle as
	// Draft system entries and links them to their items.
	CreateAdjustingEntries(ctx context.Context, bankReconciliationID string, accounts domain.AdjustingAccounts, createdBy string) ([]domain.JournalEntry, error)
}

// ReconciliationSvcFacade combines reconciliation service interfaces
type ReconciliationSvcFacade interface {
	ReconciliationReaderSvc
	ReconciliationWriterSvc
	AdjustingEntrySvc
}
