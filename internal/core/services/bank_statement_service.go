package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/SscSPs/commerce_ledger/internal/apperrors"
	"github.com/SscSPs/commerce_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/commerce_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/commerce_ledger/internal/core/ports/services"
)

// bankStatementService handles bank accounts, statement imports and the
// match status of imported transactions.
type bankStatementService struct {
	BaseService
	txManager     portsrepo.TransactionManager
	accountRepo   portsrepo.AccountReader
	bankRepo      portsrepo.BankAccountRepositoryFacade
	statementRepo portsrepo.BankStatementRepositoryFacade
	txRepo        portsrepo.BankTransactionRepositoryFacade
	journalRepo   portsrepo.JournalAggregateReader
	eventRepo     portsrepo.DomainEventWriter
}

// NewBankStatementService creates a new BankStatementService.
func NewBankStatementService(repos portsrepo.RepositoryProvider, options ...ServiceOption) portssvc.BankStatementSvcFacade {
	svc := &bankStatementService{
		txManager:     repos.TxManager,
		accountRepo:   repos.AccountRepo,
		bankRepo:      repos.BankAccountRepo,
		statementRepo: repos.BankStatementRepo,
		txRepo:        repos.BankTransactionRepo,
		journalRepo:   repos.JournalEntryRepo,
		eventRepo:     repos.DomainEventRepo,
	}
	svc.apply(options)
	return svc
}

var _ portssvc.BankStatementSvcFacade = (*bankStatementService)(nil)

func (s *bankStatementService) CreateBankAccount(ctx context.Context, cmd portssvc.CreateBankAccountCommand) (*domain.BankAccount, error) {
	gl, err := s.accountRepo.FindAccountByID(ctx, cmd.GLAccountID)
	if err != nil {
		return nil, fmt.Errorf("invalid GL account: %w", err)
	}
	if err := gl.EnsurePostable(); err != nil {
		return nil, err
	}
	if gl.AccountType != domain.Asset {
		return nil, apperrors.NewValidationError("GL_ACCOUNT_NOT_ASSET", "GL account %s of a bank account must be an asset account", gl.Code)
	}

	account, err := domain.NewBankAccount(uuid.NewString(), cmd.Name, cmd.BankName, cmd.AccountNumber, cmd.GLAccountID, cmd.CreatedBy, s.Now())
	if err != nil {
		return nil, err
	}
	if err := s.bankRepo.SaveBankAccount(ctx, *account); err != nil {
		s.LogError(ctx, err, "Failed to save bank account", slog.String("name", cmd.Name))
		return nil, fmt.Errorf("failed to save bank account: %w", err)
	}
	s.LogInfo(ctx, "Bank account created",
		slog.String("bank_account_id", account.BankAccountID),
		slog.String("gl_account_id", account.GLAccountID))
	return account, nil
}

func (s *bankStatementService) GetBankAccount(ctx context.Context, bankAccountID string) (*domain.BankAccount, error) {
	account, err := s.bankRepo.FindBankAccountByID(ctx, bankAccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to find bank account %s: %w", bankAccountID, err)
	}
	return account, nil
}

func (s *bankStatementService) ListBankAccounts(ctx context.Context) ([]domain.BankAccount, error) {
	accounts, err := s.bankRepo.ListBankAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list bank accounts: %w", err)
	}
	return accounts, nil
}

// ImportBankStatement stores the statement header and every line whose
// fingerprint has not been seen for the bank account, neither in storage nor
// earlier in the same file.
func (s *bankStatementService) ImportBankStatement(ctx context.Context, cmd portssvc.ImportBankStatementCommand) (*portssvc.ImportBankStatementResult, error) {
	bank, err := s.GetBankAccount(ctx, cmd.BankAccountID)
	if err != nil {
		return nil, err
	}
	if !bank.IsActive {
		return nil, apperrors.NewStateError("BANK_ACCOUNT_INACTIVE", "bank account %s is inactive", bank.Name)
	}

	now := s.Now()
	statement, err := domain.NewBankStatement(domain.NewBankStatementParams{
		BankStatementID: uuid.NewString(),
		BankAccountID:   bank.BankAccountID,
		StatementDate:   cmd.StatementDate,
		PeriodStart:     cmd.PeriodStart,
		PeriodEnd:       cmd.PeriodEnd,
		OpeningBalance:  cmd.OpeningBalance,
		ClosingBalance:  cmd.ClosingBalance,
		FileName:        cmd.FileName,
	}, cmd.ImportedBy, now)
	if err != nil {
		return nil, err
	}

	parsed := make([]domain.BankTransaction, 0, len(cmd.Lines))
	fingerprints := make([]string, 0, len(cmd.Lines))
	for i, l := range cmd.Lines {
		tx, err := domain.NewBankTransaction(domain.NewBankTransactionParams{
			BankTransactionID: uuid.NewString(),
			BankStatementID:   statement.BankStatementID,
			BankAccountID:     bank.BankAccountID,
			TransactionDate:   l.TransactionDate,
			Description:       l.Description,
			Reference:         l.Reference,
			Amount:            l.Amount,
		}, now)
		if err != nil {
			return nil, fmt.Errorf("statement line %d: %w", i+1, err)
		}
		parsed = append(parsed, *tx)
		fingerprints = append(fingerprints, tx.Fingerprint)
	}

	result := &portssvc.ImportBankStatementResult{BankStatementID: statement.BankStatementID}
	err = s.txManager.WithinTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.txRepo.FingerprintsExistMany(ctx, bank.BankAccountID, fingerprints)
		if err != nil {
			return fmt.Errorf("failed to check fingerprints: %w", err)
		}

		fresh := make([]domain.BankTransaction, 0, len(parsed))
		seen := make(map[string]bool, len(parsed))
		skipped := 0
		for _, tx := range parsed {
			if existing[tx.Fingerprint] || seen[tx.Fingerprint] {
				skipped++
				continue
			}
			seen[tx.Fingerprint] = true
			fresh = append(fresh, tx)
		}

		statement.MarkImported(len(fresh), skipped, now)
		if err := s.statementRepo.SaveBankStatement(ctx, *statement); err != nil {
			return fmt.Errorf("failed to save bank statement: %w", err)
		}
		if len(fresh) > 0 {
			if err := s.txRepo.SaveBankTransactions(ctx, fresh); err != nil {
				return fmt.Errorf("failed to save bank transactions: %w", err)
			}
		}
		if err := s.saveEvents(ctx, s.eventRepo, statement); err != nil {
			return fmt.Errorf("failed to store statement events: %w", err)
		}
		result.TransactionsImported = len(fresh)
		result.DuplicatesSkipped = skipped
		return nil
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to import bank statement", slog.String("bank_account_id", bank.BankAccountID))
		return nil, err
	}

	s.LogInfo(ctx, "Bank statement imported",
		slog.String("bank_statement_id", result.BankStatementID),
		slog.String("bank_account_id", bank.BankAccountID),
		slog.Int("transactions_imported", result.TransactionsImported),
		slog.Int("duplicates_skipped", result.DuplicatesSkipped))
	return result, nil
}

func (s *bankStatementService) DeleteBankStatement(ctx context.Context, bankStatementID string, userID string) error {
	err := s.txManager.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.GetBankStatement(ctx, bankStatementID); err != nil {
			return err
		}
		txs, err := s.txRepo.FindByStatement(ctx, bankStatementID)
		if err != nil {
			return fmt.Errorf("failed to load statement transactions: %w", err)
		}
		if err := domain.EnsureStatementDeletable(bankStatementID, txs); err != nil {
			return err
		}
		return s.statementRepo.DeleteBankStatement(ctx, bankStatementID)
	})
	if err != nil {
		return err
	}
	s.LogInfo(ctx, "Bank statement deleted",
		slog.String("bank_statement_id", bankStatementID),
		slog.String("user_id", userID))
	return nil
}

func (s *bankStatementService) GetBankStatement(ctx context.Context, bankStatementID string) (*domain.BankStatement, error) {
	statement, err := s.statementRepo.FindBankStatementByID(ctx, bankStatementID)
	if err != nil {
		return nil, fmt.Errorf("failed to find bank statement %s: %w", bankStatementID, err)
	}
	return statement, nil
}

func (s *bankStatementService) ListStatementTransactions(ctx context.Context, bankStatementID string) ([]domain.BankTransaction, error) {
	if _, err := s.GetBankStatement(ctx, bankStatementID); err != nil {
		return nil, err
	}
	txs, err := s.txRepo.FindByStatement(ctx, bankStatementID)
	if err != nil {
		return nil, fmt.Errorf("failed to list statement transactions: %w", err)
	}
	return txs, nil
}

// MatchTransaction applies the amount and date rule to one transaction and
// one posted journal line on the bank's GL account.
func (s *bankStatementService) MatchTransaction(ctx context.Context, cmd portssvc.MatchTransactionCommand) (*portssvc.MatchTransactionResult, error) {
	var out *portssvc.MatchTransactionResult
	err := s.txManager.WithinTransaction(ctx, func(ctx context.Context) error {
		tx, err := s.findTransaction(ctx, cmd.BankTransactionID)
		if err != nil {
			return err
		}
		bank, err := s.GetBankAccount(ctx, tx.BankAccountID)
		if err != nil {
			return err
		}
		candidate, err := s.journalRepo.FindMatchCandidate(ctx, cmd.JournalLineID)
		if err != nil {
			return fmt.Errorf("failed to load journal line %s: %w", cmd.JournalLineID, err)
		}
		if candidate.AccountID != bank.GLAccountID {
			return apperrors.NewValidationError("LINE_NOT_ON_BANK_ACCOUNT",
				"journal line %s is not posted to the GL account of bank account %s", cmd.JournalLineID, bank.Name)
		}

		result, err := domain.MatchTransactionToJournalLine(tx, *candidate, cmd.MatchedBy,
			domain.MatchOptions{DateToleranceDays: cmd.DateToleranceDays}, s.Now())
		if err != nil {
			return err
		}
		if result.Matched {
			if err := s.txRepo.UpdateMatchStatus(ctx, *tx, domain.MatchUnmatched); err != nil {
				return err
			}
		}
		out = &portssvc.MatchTransactionResult{Transaction: tx, Result: result}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if out.Result.Matched {
		s.LogInfo(ctx, "Bank transaction matched",
			slog.String("bank_transaction_id", cmd.BankTransactionID),
			slog.String("journal_line_id", cmd.JournalLineID))
	} else {
		s.LogDebug(ctx, "Bank transaction not matched",
			slog.String("bank_transaction_id", cmd.BankTransactionID),
			slog.String("reason", out.Result.Reason))
	}
	return out, nil
}

func (s *bankStatementService) UnmatchTransaction(ctx context.Context, bankTransactionID string, userID string) (*domain.BankTransaction, error) {
	return s.changeMatchStatus(ctx, bankTransactionID, userID, "unmatch", func(tx *domain.BankTransaction) error {
		return tx.Unmatch()
	})
}

func (s *bankStatementService) ExcludeTransaction(ctx context.Context, bankTransactionID string, reason string, userID string) (*domain.BankTransaction, error) {
	return s.changeMatchStatus(ctx, bankTransactionID, userID, "exclude", func(tx *domain.BankTransaction) error {
		return tx.Exclude(reason)
	})
}

func (s *bankStatementService) IncludeTransaction(ctx context.Context, bankTransactionID string, userID string) (*domain.BankTransaction, error) {
	return s.changeMatchStatus(ctx, bankTransactionID, userID, "include", func(tx *domain.BankTransaction) error {
		return tx.Include()
	})
}

// AutoMatchStatement runs the matching rule over every unmatched transaction
// of a statement against the open lines of the bank's GL account.
func (s *bankStatementService) AutoMatchStatement(ctx context.Context, cmd portssvc.AutoMatchCommand) (*domain.AutoMatchResult, error) {
	var out domain.AutoMatchResult
	err := s.txManager.WithinTransaction(ctx, func(ctx context.Context) error {
		statement, err := s.GetBankStatement(ctx, cmd.BankStatementID)
		if err != nil {
			return err
		}
		bank, err := s.GetBankAccount(ctx, statement.BankAccountID)
		if err != nil {
			return err
		}
		stored, err := s.txRepo.FindByStatement(ctx, statement.BankStatementID)
		if err != nil {
			return fmt.Errorf("failed to load statement transactions: %w", err)
		}
		if len(stored) == 0 {
			return nil
		}

		txs := make([]*domain.BankTransaction, len(stored))
		byID := make(map[string]*domain.BankTransaction, len(stored))
		from, to := stored[0].TransactionDate, stored[0].TransactionDate
		for i := range stored {
			tx := &stored[i]
			txs[i] = tx
			byID[tx.BankTransactionID] = tx
			if tx.TransactionDate.Before(from) {
				from = tx.TransactionDate
			}
			if tx.TransactionDate.After(to) {
				to = tx.TransactionDate
			}
		}
		tolerance := time.Duration(cmd.DateToleranceDays) * 24 * time.Hour
		candidates, err := s.journalRepo.FindMatchCandidates(ctx, bank.GLAccountID, from.Add(-tolerance), to.Add(tolerance))
		if err != nil {
			return fmt.Errorf("failed to load match candidates: %w", err)
		}

		out = domain.AutoMatchTransactions(txs, candidates, cmd.MatchedBy,
			domain.MatchOptions{DateToleranceDays: cmd.DateToleranceDays}, s.Now())
		for _, pair := range out.Pairs {
			if err := s.txRepo.UpdateMatchStatus(ctx, *byID[pair.BankTransactionID], domain.MatchUnmatched); err != nil {
				return fmt.Errorf("failed to store match of %s: %w", pair.BankTransactionID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.LogInfo(ctx, "Auto-match finished",
		slog.String("bank_statement_id", cmd.BankStatementID),
		slog.Int("examined", out.Examined),
		slog.Int("matched", out.Matched),
		slog.Int("unmatched", out.Unmatched))
	return &out, nil
}

func (s *bankStatementService) findTransaction(ctx context.Context, bankTransactionID string) (*domain.BankTransaction, error) {
	tx, err := s.txRepo.FindBankTransactionByID(ctx, bankTransactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find bank transaction %s: %w", bankTransactionID, err)
	}
	return tx, nil
}

func (s *bankStatementService) changeMatchStatus(ctx context.Context, bankTransactionID, userID, action string, change func(*domain.BankTransaction) error) (*domain.BankTransaction, error) {
	var changed *domain.BankTransaction
	err := s.txManager.WithinTransaction(ctx, func(ctx context.Context) error {
		tx, err := s.findTransaction(ctx, bankTransactionID)
		if err != nil {
			return err
		}
		expected := tx.MatchStatus
		if err := change(tx); err != nil {
			return err
		}
		if err := s.txRepo.UpdateMatchStatus(ctx, *tx, expected); err != nil {
			return err
		}
		changed = tx
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.LogInfo(ctx, "Bank transaction match status changed",
		slog.String("bank_transaction_id", bankTransactionID),
		slog.String("action", action),
		slog.String("status", string(changed.MatchStatus)),
		slog.String("user_id", userID))
	return changed, nil
}
