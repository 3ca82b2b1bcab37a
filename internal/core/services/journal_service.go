package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/SscSPs/commerce_ledger/internal/apperrors"
	"github.com/SscSPs/commerce_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/commerce_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/commerce_ledger/internal/core/ports/services"
)

const (
	defaultEntryNumberAttempts = 5
	defaultJournalPageSize     = 20
	maxJournalPageSize         = 100
)

// JournalConfig tunes the journal entry lifecycle.
type JournalConfig struct {
	// EntryNumberMaxAttempts bounds how often a post is retried after an
	// entry-number collision.
	EntryNumberMaxAttempts int
}

// journalService drives the journal entry lifecycle.
type journalService struct {
	BaseService
	txManager   portsrepo.TransactionManager
	journalRepo portsrepo.JournalEntryRepositoryFacade
	accountRepo portsrepo.AccountReader
	periodRepo  portsrepo.FiscalPeriodReader
	eventRepo   portsrepo.DomainEventWriter
	maxAttempts int
}

// NewJournalService creates a new JournalService.
func NewJournalService(repos portsrepo.RepositoryProvider, cfg JournalConfig, options ...ServiceOption) portssvc.JournalSvcFacade {
	svc := &journalService{
		txManager:   repos.TxManager,
		journalRepo: repos.JournalEntryRepo,
		accountRepo: repos.AccountRepo,
		periodRepo:  repos.FiscalPeriodRepo,
		eventRepo:   repos.DomainEventRepo,
		maxAttempts: cfg.EntryNumberMaxAttempts,
	}
	if svc.maxAttempts <= 0 {
		svc.maxAttempts = defaultEntryNumberAttempts
	}
	svc.apply(options)
	return svc
}

// Ensure journalService implements the portssvc.JournalSvcFacade interface
var _ portssvc.JournalSvcFacade = (*journalService)(nil)

// ensurePostableAccounts loads every referenced account and checks it can
// receive postings.
func (s *journalService) ensurePostableAccounts(ctx context.Context, entry *domain.JournalEntry) error {
	ids := entry.AccountIDs()
	accounts, err := s.accountRepo.FindAccountsByIDs(ctx, ids)
	if err != nil {
		s.LogError(ctx, err, "Failed to fetch accounts for journal entry", slog.String("entry_id", entry.JournalEntryID))
		return fmt.Errorf("failed to fetch accounts: %w", err)
	}
	for _, id := range ids {
		account, ok := accounts[id]
		if !ok {
			return apperrors.NewNotFoundError("account %s not found", id)
		}
		if err := account.EnsurePostable(); err != nil {
			return err
		}
	}
	return nil
}

// CreateJournalEntry validates and stores a Draft entry.
func (s *journalService) CreateJournalEntry(ctx context.Context, cmd portssvc.CreateJournalEntryCommand) (*domain.JournalEntry, error) {
	if cmd.SourceService != "" && cmd.SourceReferenceID != "" {
		existing, err := s.journalRepo.FindBySourceReference(ctx, cmd.SourceService, cmd.SourceReferenceID)
		if err == nil {
			s.LogInfo(ctx, "Journal entry already exists for source reference",
				slog.String("entry_id", existing.JournalEntryID),
				slog.String("source_service", cmd.SourceService),
				slog.String("source_reference_id", cmd.SourceReferenceID))
			return existing, nil
		}
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to look up source reference", slog.String("source_reference_id", cmd.SourceReferenceID))
			return nil, fmt.Errorf("failed to look up source reference: %w", err)
		}
	}

	entry, err := domain.NewJournalEntry(domain.NewJournalEntryParams{
		JournalEntryID:    uuid.NewString(),
		EntryDate:         cmd.EntryDate,
		Description:       cmd.Description,
		EntryType:         cmd.EntryType,
		Lines:             cmd.Lines,
		SourceService:     cmd.SourceService,
		SourceReferenceID: cmd.SourceReferenceID,
	}, cmd.CreatedBy, s.Now())
	if err != nil {
		return nil, err
	}
	if err := s.ensurePostableAccounts(ctx, entry); err != nil {
		return nil, err
	}

	if err := s.journalRepo.SaveJournalEntry(ctx, *entry); err != nil {
		if errors.Is(err, apperrors.ErrConflict) && entry.SourceService != "" {
			// A concurrent create with the same source reference won the race.
			if existing, findErr := s.journalRepo.FindBySourceReference(ctx, entry.SourceService, entry.SourceReferenceID); findErr == nil {
				return existing, nil
			}
		}
		s.LogError(ctx, err, "Failed to save journal entry", slog.String("entry_id", entry.JournalEntryID))
		return nil, fmt.Errorf("failed to save journal entry: %w", err)
	}

	s.LogInfo(ctx, "Journal entry created",
		slog.String("entry_id", entry.JournalEntryID),
		slog.String("fiscal_period", entry.Period().String()),
		slog.Int("line_count", len(entry.Lines)))
	return entry, nil
}

// UpdateJournalEntry changes a Draft entry.
func (s *journalService) UpdateJournalEntry(ctx context.Context, cmd portssvc.UpdateJournalEntryCommand) (*domain.JournalEntry, error) {
	var updated *domain.JournalEntry
	err := s.txManager.WithinTransaction(ctx, func(ctx context.Context) error {
		entry, err := s.loadEntry(ctx, cmd.JournalEntryID, portsrepo.RowLockUpdate)
		if err != nil {
			return err
		}
		if err := entry.Update(domain.JournalEntryUpdate{
			EntryDate:   cmd.EntryDate,
			Description: cmd.Description,
			Lines:       cmd.Lines,
		}, cmd.UpdatedBy, s.Now()); err != nil {
			return err
		}
		if cmd.Lines != nil {
			if err := s.ensurePostableAccounts(ctx, entry); err != nil {
				return err
			}
		}
		if err := s.journalRepo.UpdateJournalEntry(ctx, *entry); err != nil {
			return fmt.Errorf("failed to update journal entry: %w", err)
		}
		updated = entry
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.LogInfo(ctx, "Journal entry updated", slog.String("entry_id", cmd.JournalEntryID))
	return updated, nil
}

// PostJournalEntry posts a Draft entry. Entry-number collisions are retried
// in a fresh transaction up to the configured number of attempts.
func (s *journalService) PostJournalEntry(ctx context.Context, journalEntryID string, postedBy string) (*domain.JournalEntry, error) {
	for attempt := 1; ; attempt++ {
		entry, err := s.postOnce(ctx, journalEntryID, postedBy)
		if err == nil {
			s.LogInfo(ctx, "Journal entry posted",
				slog.String("entry_id", entry.JournalEntryID),
				slog.String("entry_number", entry.EntryNumber),
				slog.String("fiscal_period", entry.Period().String()))
			return entry, nil
		}
		if apperrors.Code(err) != portsrepo.CodeDuplicateEntryNumber || attempt >= s.maxAttempts {
			return nil, err
		}
		s.LogWarn(ctx, "Entry number collision, retrying post",
			slog.String("entry_id", journalEntryID),
			slog.Int("attempt", attempt))
	}
}

func (s *journalService) postOnce(ctx context.Context, journalEntryID string, postedBy string) (*domain.JournalEntry, error) {
	var posted *domain.JournalEntry
	err := s.txManager.WithinTransaction(ctx, func(ctx context.Context) error {
		entry, err := s.loadEntry(ctx, journalEntryID, portsrepo.RowLockUpdate)
		if err != nil {
			return err
		}
		if err := entry.EnsurePostable(); err != nil {
			return err
		}

		// FOR SHARE: concurrent posts proceed, period transitions and
		// recalculation wait.
		period, err := s.periodRepo.FindByPeriod(ctx, entry.Period(), portsrepo.RowLockShare)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return apperrors.NewNotFoundError("fiscal period %s does not exist", entry.Period())
			}
			return fmt.Errorf("failed to load fiscal period %s: %w", entry.Period(), err)
		}
		if err := period.EnsureOpen(); err != nil {
			return err
		}
		if err := s.ensurePostableAccounts(ctx, entry); err != nil {
			return err
		}

		number, err := s.journalRepo.GenerateEntryNumber(ctx, entry.Period())
		if err != nil {
			return fmt.Errorf("failed to generate entry number: %w", err)
		}
		if err := entry.Post(period, number, postedBy, s.Now()); err != nil {
			return err
		}
		if err := s.journalRepo.UpdateJournalEntryStatus(ctx, *entry, domain.JournalDraft); err != nil {
			return err
		}
		if err := s.saveEvents(ctx, s.eventRepo, entry); err != nil {
			return fmt.Errorf("failed to store journal events: %w", err)
		}
		posted = entry
		return nil
	})
	if err != nil {
		return nil, err
	}
	return posted, nil
}

// VoidJournalEntry voids a Posted entry whose fiscal period is still Open.
func (s *journalService) VoidJournalEntry(ctx context.Context, journalEntryID string, voidedBy string, reason string) (*domain.JournalEntry, error) {
	var voided *domain.JournalEntry
	err := s.txManager.WithinTransaction(ctx, func(ctx context.Context) error {
		entry, err := s.loadEntry(ctx, journalEntryID, portsrepo.RowLockUpdate)
		if err != nil {
			return err
		}
		period, err := s.periodRepo.FindByPeriod(ctx, entry.Period(), portsrepo.RowLockShare)
		if err != nil {
			return fmt.Errorf("failed to load fiscal period %s: %w", entry.Period(), err)
		}
		if err := entry.Void(voidedBy, reason, s.Now()); err != nil {
			return err
		}
		if err := period.EnsureOpen(); err != nil {
			return err
		}
		if err := s.journalRepo.UpdateJournalEntryStatus(ctx, *entry, domain.JournalPosted); err != nil {
			return err
		}
		if err := s.saveEvents(ctx, s.eventRepo, entry); err != nil {
			return fmt.Errorf("failed to store journal events: %w", err)
		}
		voided = entry
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.LogInfo(ctx, "Journal entry voided",
		slog.String("entry_id", journalEntryID),
		slog.String("user_id", voidedBy))
	return voided, nil
}

// DeleteJournalEntry removes a Draft entry.
func (s *journalService) DeleteJournalEntry(ctx context.Context, journalEntryID string, userID string) error {
	err := s.txManager.WithinTransaction(ctx, func(ctx context.Context) error {
		entry, err := s.loadEntry(ctx, journalEntryID, portsrepo.RowLockUpdate)
		if err != nil {
			return err
		}
		if err := entry.EnsureDeletable(); err != nil {
			return err
		}
		return s.journalRepo.DeleteJournalEntry(ctx, journalEntryID)
	})
	if err != nil {
		return err
	}
	s.LogInfo(ctx, "Journal entry deleted", slog.String("entry_id", journalEntryID), slog.String("user_id", userID))
	return nil
}

// GetJournalEntry retrieves an entry with its lines.
func (s *journalService) GetJournalEntry(ctx context.Context, journalEntryID string) (*domain.JournalEntry, error) {
	return s.loadEntry(ctx, journalEntryID, portsrepo.RowLockNone)
}

// loadEntry reads an entry, locking it for the rest of the surrounding
// transaction when lock asks for it.
func (s *journalService) loadEntry(ctx context.Context, journalEntryID string, lock portsrepo.RowLock) (*domain.JournalEntry, error) {
	entry, err := s.journalRepo.FindJournalEntryByID(ctx, journalEntryID, lock)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to find journal entry", slog.String("entry_id", journalEntryID))
		}
		return nil, fmt.Errorf("failed to find journal entry %s: %w", journalEntryID, err)
	}
	return entry, nil
}

// FindBySourceReference retrieves the entry created for an external document.
func (s *journalService) FindBySourceReference(ctx context.Context, sourceService, sourceReferenceID string) (*domain.JournalEntry, error) {
	if sourceService == "" || sourceReferenceID == "" {
		return nil, apperrors.NewValidationError("INCOMPLETE_SOURCE_REFERENCE", "source service and source reference id are required")
	}
	entry, err := s.journalRepo.FindBySourceReference(ctx, sourceService, sourceReferenceID)
	if err != nil {
		return nil, fmt.Errorf("failed to find journal entry for %s/%s: %w", sourceService, sourceReferenceID, err)
	}
	return entry, nil
}

// ListJournalEntries retrieves a page of entries.
func (s *journalService) ListJournalEntries(ctx context.Context, query portssvc.ListJournalEntriesQuery) (*portssvc.JournalEntryPage, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = defaultJournalPageSize
	}
	if limit > maxJournalPageSize {
		limit = maxJournalPageSize
	}

	entries, next, err := s.journalRepo.ListJournalEntries(ctx, portsrepo.JournalEntryFilter{
		Period: query.Period,
		Status: query.Status,
	}, limit, query.NextToken)
	if err != nil {
		s.LogError(ctx, err, "Failed to list journal entries")
		return nil, fmt.Errorf("failed to list journal entries: %w", err)
	}
	return &portssvc.JournalEntryPage{Entries: entries, NextToken: next}, nil
}
