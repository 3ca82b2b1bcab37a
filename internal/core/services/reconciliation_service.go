package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/SscSPs/commerce_ledger/internal/apperrors"
	"github.com/SscSPs/commerce_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/commerce_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/commerce_ledger/internal/core/ports/services"
)

// AdjustingEntrySource is the source service stamped on adjusting entries.
// Together with the reconciling item id it makes their creation idempotent.
const AdjustingEntrySource = "bank-reconciliation"

type reconciliationService struct {
	BaseService
	txManager   portsrepo.TransactionManager
	recRepo     portsrepo.BankReconciliationRepositoryFacade
	bankRepo    portsrepo.BankAccountRepositoryFacade
	balanceRepo portsrepo.AccountBalanceReader
	periodRepo  portsrepo.FiscalPeriodReader
	eventRepo   portsrepo.DomainEventWriter
	journal     portssvc.JournalWriterSvc
}

// NewReconciliationService creates a new ReconciliationService. Adjusting
// entries are handed to journal; this service never posts.
func NewReconciliationService(repos portsrepo.RepositoryProvider, journal portssvc.JournalWriterSvc, options ...ServiceOption) portssvc.ReconciliationSvcFacade {
	svc := &reconciliationService{
		txManager:   repos.TxManager,
		recRepo:     repos.BankReconciliationRepo,
		bankRepo:    repos.BankAccountRepo,
		balanceRepo: repos.AccountBalanceRepo,
		periodRepo:  repos.FiscalPeriodRepo,
		eventRepo:   repos.DomainEventRepo,
		journal:     journal,
	}
	svc.apply(options)
	return svc
}

var _ portssvc.ReconciliationSvcFacade = (*reconciliationService)(nil)

func (s *reconciliationService) GetReconciliation(ctx context.Context, bankReconciliationID string) (*domain.BankReconciliation, error) {
	return s.loadReconciliation(ctx, bankReconciliationID, portsrepo.RowLockNone)
}

// loadReconciliation reads a reconciliation with its items. Writers pass
// RowLockUpdate so concurrent item changes queue instead of overwriting each other.
func (s *reconciliationService) loadReconciliation(ctx context.Context, bankReconciliationID string, lock portsrepo.RowLock) (*domain.BankReconciliation, error) {
	rec, err := s.recRepo.FindBankReconciliationByID(ctx, bankReconciliationID, lock)
	if err != nil {
		return nil, fmt.Errorf("failed to find reconciliation %s: %w", bankReconciliationID, err)
	}
	return rec, nil
}

func (s *reconciliationService) ListReconciliations(ctx context.Context, bankAccountID string) ([]domain.BankReconciliation, error) {
	recs, err := s.recRepo.ListBankReconciliations(ctx, bankAccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reconciliations: %w", err)
	}
	return recs, nil
}

// StartReconciliation creates an InProgress reconciliation for a bank
// account and period. At most one exists per pair.
func (s *reconciliationService) StartReconciliation(ctx context.Context, cmd portssvc.StartReconciliationCommand) (*domain.BankReconciliation, error) {
	var started *domain.BankReconciliation
	err := s.txManager.WithinTransaction(ctx, func(ctx context.Context) error {
		bank, err := s.bankRepo.FindBankAccountByID(ctx, cmd.BankAccountID)
		if err != nil {
			return fmt.Errorf("failed to find bank account %s: %w", cmd.BankAccountID, err)
		}
		if _, err := s.periodRepo.FindByPeriod(ctx, cmd.Period, portsrepo.RowLockNone); err != nil {
			return fmt.Errorf("failed to find fiscal period %s: %w", cmd.Period, err)
		}

		existing, err := s.recRepo.ListBankReconciliations(ctx, bank.BankAccountID)
		if err != nil {
			return fmt.Errorf("failed to list reconciliations: %w", err)
		}
		for _, r := range existing {
			if r.Period() == cmd.Period {
				return apperrors.NewConflictError("DUPLICATE_RECONCILIATION",
					"bank account %s already has reconciliation %s for %s", bank.Name, r.BankReconciliationID, cmd.Period)
			}
		}

		book, err := s.bookEndingBalance(ctx, bank, cmd)
		if err != nil {
			return err
		}

		now := s.Now()
		rec := domain.NewBankReconciliation(uuid.NewString(), bank.BankAccountID, cmd.Period, cmd.StatementEndingBalance, book, cmd.StartedBy, now)
		rec.Notes = cmd.Notes
		if err := rec.Start(cmd.StartedBy, now); err != nil {
			return err
		}
		if err := s.recRepo.SaveBankReconciliation(ctx, *rec); err != nil {
			return fmt.Errorf("failed to save reconciliation: %w", err)
		}
		started = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.LogInfo(ctx, "Reconciliation started",
		slog.String("bank_reconciliation_id", started.BankReconciliationID),
		slog.String("bank_account_id", started.BankAccountID),
		slog.String("fiscal_period", cmd.Period.String()),
		slog.String("difference", started.Difference().String()))
	return started, nil
}

func (s *reconciliationService) bookEndingBalance(ctx context.Context, bank *domain.BankAccount, cmd portssvc.StartReconciliationCommand) (decimal.Decimal, error) {
	if cmd.BookEndingBalance != nil {
		return *cmd.BookEndingBalance, nil
	}
	balance, err := s.balanceRepo.FindByAccountAndPeriod(ctx, bank.GLAccountID, cmd.Period)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.LogWarn(ctx, "No materialized balance for bank GL account, using zero",
				slog.String("gl_account_id", bank.GLAccountID),
				slog.String("fiscal_period", cmd.Period.String()))
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("failed to read book balance: %w", err)
	}
	return balance.ClosingBalance, nil
}

func (s *reconciliationService) AddReconcilingItem(ctx context.Context, cmd portssvc.AddReconcilingItemCommand) (*domain.BankReconciliation, error) {
	requiresEntry := !cmd.ItemType.IsBankSide()
	if cmd.RequiresJournalEntry != nil {
		requiresEntry = *cmd.RequiresJournalEntry
	}
	item, err := domain.NewReconcilingItem(cmd.ItemType, cmd.Description, cmd.Amount, cmd.TransactionDate, requiresEntry)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, cmd.BankReconciliationID, "add_item", func(rec *domain.BankReconciliation) error {
		return rec.AddItem(item, cmd.AddedBy, s.Now())
	})
}

func (s *reconciliationService) ClearReconcilingItem(ctx context.Context, bankReconciliationID, itemID, userID string) (*domain.BankReconciliation, error) {
	return s.mutate(ctx, bankReconciliationID, "clear_item", func(rec *domain.BankReconciliation) error {
		return rec.ClearItem(itemID, userID, s.Now())
	})
}

func (s *reconciliationService) CompleteReconciliation(ctx context.Context, bankReconciliationID string, completedBy string) (*domain.BankReconciliation, error) {
	return s.mutate(ctx, bankReconciliationID, "complete", func(rec *domain.BankReconciliation) error {
		return rec.Complete(completedBy, s.Now())
	})
}

func (s *reconciliationService) ApproveReconciliation(ctx context.Context, bankReconciliationID string, approvedBy string) (*domain.BankReconciliation, error) {
	return s.mutate(ctx, bankReconciliationID, "approve", func(rec *domain.BankReconciliation) error {
		return rec.Approve(approvedBy, s.Now())
	})
}

// GenerateAdjustingEntries drafts entries without storing anything. The bank
// GL account defaults to the reconciled bank account's.
func (s *reconciliationService) GenerateAdjustingEntries(ctx context.Context, bankReconciliationID string, accounts domain.AdjustingAccounts) ([]domain.AdjustingEntryDraft, error) {
	rec, err := s.GetReconciliation(ctx, bankReconciliationID)
	if err != nil {
		return nil, err
	}
	accounts, err = s.withBankGLAccount(ctx, rec, accounts)
	if err != nil {
		return nil, err
	}
	return domain.GenerateAdjustingEntries(rec, accounts)
}

// CreateAdjustingEntries creates one Draft system entry per draft and links
// it to its reconciling item.
func (s *reconciliationService) CreateAdjustingEntries(ctx context.Context, bankReconciliationID string, accounts domain.AdjustingAccounts, createdBy string) ([]domain.JournalEntry, error) {
	var created []domain.JournalEntry
	err := s.txManager.WithinTransaction(ctx, func(ctx context.Context) error {
		rec, err := s.loadReconciliation(ctx, bankReconciliationID, portsrepo.RowLockUpdate)
		if err != nil {
			return err
		}
		expected := rec.Status
		accounts, err := s.withBankGLAccount(ctx, rec, accounts)
		if err != nil {
			return err
		}
		drafts, err := domain.GenerateAdjustingEntries(rec, accounts)
		if err != nil {
			return err
		}
		if len(drafts) == 0 {
			return nil
		}

		now := s.Now()
		for _, d := range drafts {
			entry, err := s.journal.CreateJournalEntry(ctx, portssvc.CreateJournalEntryCommand{
				EntryDate:         d.EntryDate,
				Description:       d.Description,
				EntryType:         domain.EntrySystem,
				Lines:             d.Lines,
				SourceService:     AdjustingEntrySource,
				SourceReferenceID: d.ReconcilingItemID,
				CreatedBy:         createdBy,
			})
			if err != nil {
				return fmt.Errorf("failed to create adjusting entry for item %s: %w", d.ReconcilingItemID, err)
			}
			if err := rec.LinkJournalEntry(d.ReconcilingItemID, entry.JournalEntryID, createdBy, now); err != nil {
				return err
			}
			created = append(created, *entry)
		}
		return s.recRepo.UpdateBankReconciliation(ctx, *rec, expected)
	})
	if err != nil {
		return nil, err
	}
	s.LogInfo(ctx, "Adjusting entries created",
		slog.String("bank_reconciliation_id", bankReconciliationID),
		slog.Int("entry_count", len(created)))
	return created, nil
}

func (s *reconciliationService) withBankGLAccount(ctx context.Context, rec *domain.BankReconciliation, accounts domain.AdjustingAccounts) (domain.AdjustingAccounts, error) {
	if accounts.BankGLAccountID != "" {
		return accounts, nil
	}
	bank, err := s.bankRepo.FindBankAccountByID(ctx, rec.BankAccountID)
	if err != nil {
		return accounts, fmt.Errorf("failed to find bank account %s: %w", rec.BankAccountID, err)
	}
	accounts.BankGLAccountID = bank.GLAccountID
	return accounts, nil
}

// mutate loads, changes and stores a reconciliation with a check-and-set on
// its status, then stores any events the change raised.
func (s *reconciliationService) mutate(ctx context.Context, bankReconciliationID, action string, change func(*domain.BankReconciliation) error) (*domain.BankReconciliation, error) {
	var changed *domain.BankReconciliation
	err := s.txManager.WithinTransaction(ctx, func(ctx context.Context) error {
		rec, err := s.loadReconciliation(ctx, bankReconciliationID, portsrepo.RowLockUpdate)
		if err != nil {
			return err
		}
		expected := rec.Status
		if err := change(rec); err != nil {
			return err
		}
		if err := s.recRepo.UpdateBankReconciliation(ctx, *rec, expected); err != nil {
			return err
		}
		if err := s.saveEvents(ctx, s.eventRepo, rec); err != nil {
			return fmt.Errorf("failed to store reconciliation events: %w", err)
		}
		changed = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.LogInfo(ctx, "Reconciliation updated",
		slog.String("bank_reconciliation_id", bankReconciliationID),
		slog.String("action", action),
		slog.String("status", string(changed.Status)),
		slog.Bool("is_balanced", changed.IsBalanced()))
	return changed, nil
}
