package memory

import (
	"context"
	"slices"
	"sort"

	"github.com/SscSPs/commerce_ledger/internal/apperrors"
	"github.com/SscSPs/commerce_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/commerce_ledger/internal/core/ports/repositories"
)

// BankAccountRepository implements portsrepo.BankAccountRepositoryFacade.
type BankAccountRepository struct {
	s *Store
}

var _ portsrepo.BankAccountRepositoryFacade = (*BankAccountRepository)(nil)

func (r *BankAccountRepository) SaveBankAccount(ctx context.Context, account domain.BankAccount) error {
	return r.s.run(ctx, func(st *state) error {
		if _, exists := st.bankAccounts[account.BankAccountID]; exists {
			return apperrors.NewConflictError("DUPLICATE_BANK_ACCOUNT", "bank account %s already exists", account.BankAccountID)
		}
		st.bankAccounts[account.BankAccountID] = account
		return nil
	})
}

func (r *BankAccountRepository) FindBankAccountByID(ctx context.Context, bankAccountID string) (*domain.BankAccount, error) {
	var out *domain.BankAccount
	err := r.s.run(ctx, func(st *state) error {
		a, ok := st.bankAccounts[bankAccountID]
		if !ok {
			return apperrors.NewNotFoundError("bank account %s not found", bankAccountID)
		}
		out = &a
		return nil
	})
	return out, err
}

func (r *BankAccountRepository) ListBankAccounts(ctx context.Context) ([]domain.BankAccount, error) {
	var out []domain.BankAccount
	err := r.s.run(ctx, func(st *state) error {
		out = make([]domain.BankAccount, 0, len(st.bankAccounts))
		for _, a := range st.bankAccounts {
			out = append(out, a)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
		return nil
	})
	return out, err
}

// BankStatementRepository implements portsrepo.BankStatementRepositoryFacade.
type BankStatementRepository struct {
	s *Store
}

var _ portsrepo.BankStatementRepositoryFacade = (*BankStatementRepository)(nil)

func (r *BankStatementRepository) SaveBankStatement(ctx context.Context, statement domain.BankStatement) error {
	return r.s.run(ctx, func(st *state) error {
		if _, exists := st.statements[statement.BankStatementID]; exists {
			return apperrors.NewConflictError("DUPLICATE_BANK_STATEMENT", "bank statement %s already exists", statement.BankStatementID)
		}
		statement.AggregateRoot = domain.AggregateRoot{}
		st.statements[statement.BankStatementID] = statement
		return nil
	})
}

func (r *BankStatementRepository) FindBankStatementByID(ctx context.Context, bankStatementID string) (*domain.BankStatement, error) {
	var out *domain.BankStatement
	err := r.s.run(ctx, func(st *state) error {
		s, ok := st.statements[bankStatementID]
		if !ok {
			return apperrors.NewNotFoundError("bank statement %s not found", bankStatementID)
		}
		out = &s
		return nil
	})
	return out, err
}

func (r *BankStatementRepository) ListBankStatements(ctx context.Context, bankAccountID string) ([]domain.BankStatement, error) {
	var out []domain.BankStatement
	err := r.s.run(ctx, func(st *state) error {
		out = make([]domain.BankStatement, 0)
		for _, s := range st.statements {
			if s.BankAccountID == bankAccountID {
				out = append(out, s)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].StatementDate.After(out[j].StatementDate) })
		return nil
	})
	return out, err
}

func (r *BankStatementRepository) DeleteBankStatement(ctx context.Context, bankStatementID string) error {
	return r.s.run(ctx, func(st *state) error {
		if _, exists := st.statements[bankStatementID]; !exists {
			return apperrors.NewNotFoundError("bank statement %s not found", bankStatementID)
		}
		for id, tx := range st.bankTxs {
			if tx.BankStatementID == bankStatementID {
				delete(st.bankTxs, id)
			}
		}
		delete(st.statements, bankStatementID)
		return nil
	})
}

// BankTransactionRepository implements portsrepo.BankTransactionRepositoryFacade.
type BankTransactionRepository struct {
	s *Store
}

var _ portsrepo.BankTransactionRepositoryFacade = (*BankTransactionRepository)(nil)

func (r *BankTransactionRepository) FindBankTransactionByID(ctx context.Context, bankTransactionID string) (*domain.BankTransaction, error) {
	var out *domain.BankTransaction
	err := r.s.run(ctx, func(st *state) error {
		tx, ok := st.bankTxs[bankTransactionID]
		if !ok {
			return apperrors.NewNotFoundError("bank transaction %s not found", bankTransactionID)
		}
		out = &tx
		return nil
	})
	return out, err
}

func (r *BankTransactionRepository) FindByStatement(ctx context.Context, bankStatementID string) ([]domain.BankTransaction, error) {
	var out []domain.BankTransaction
	err := r.s.run(ctx, func(st *state) error {
		out = make([]domain.BankTransaction, 0)
		for _, tx := range st.bankTxs {
			if tx.BankStatementID == bankStatementID {
				out = append(out, tx)
			}
		}
		sort.Slice(out, func(i, j int) bool {
			if !out[i].TransactionDate.Equal(out[j].TransactionDate) {
				return out[i].TransactionDate.Before(out[j].TransactionDate)
			}
			return out[i].CreatedAt.Before(out[j].CreatedAt) ||
				(out[i].CreatedAt.Equal(out[j].CreatedAt) && out[i].BankTransactionID < out[j].BankTransactionID)
		})
		return nil
	})
	return out, err
}

func (r *BankTransactionRepository) FingerprintsExistMany(ctx context.Context, bankAccountID string, fingerprints []string) (map[string]bool, error) {
	out := make(map[string]bool)
	err := r.s.run(ctx, func(st *state) error {
		for _, tx := range st.bankTxs {
			if tx.BankAccountID == bankAccountID && slices.Contains(fingerprints, tx.Fingerprint) {
				out[tx.Fingerprint] = true
			}
		}
		return nil
	})
	return out, err
}

func (r *BankTransactionRepository) SaveBankTransactions(ctx context.Context, transactions []domain.BankTransaction) error {
	return r.s.run(ctx, func(st *state) error {
		type scoped struct{ account, fingerprint string }
		existing := make(map[scoped]bool, len(st.bankTxs))
		for _, tx := range st.bankTxs {
			existing[scoped{tx.BankAccountID, tx.Fingerprint}] = true
		}
		for _, tx := range transactions {
			key := scoped{tx.BankAccountID, tx.Fingerprint}
			if existing[key] {
				return apperrors.NewConflictError("DUPLICATE_FINGERPRINT", "bank transaction %s is already imported", tx.Fingerprint)
			}
			existing[key] = true
			st.bankTxs[tx.BankTransactionID] = tx
		}
		return nil
	})
}

func (r *BankTransactionRepository) UpdateMatchStatus(ctx context.Context, transaction domain.BankTransaction, expected domain.MatchStatus) error {
	return r.s.run(ctx, func(st *state) error {
		current, ok := st.bankTxs[transaction.BankTransactionID]
		if !ok {
			return apperrors.NewNotFoundError("bank transaction %s not found", transaction.BankTransactionID)
		}
		if current.MatchStatus != expected {
			return apperrors.NewConflictError("TRANSACTION_STATUS_CHANGED", "bank transaction %s is %s, expected %s", transaction.BankTransactionID, current.MatchStatus, expected)
		}
		if transaction.MatchStatus == domain.MatchMatched && transaction.MatchedJournalLineID != nil {
			for id, tx := range st.bankTxs {
				if id != transaction.BankTransactionID && tx.MatchStatus == domain.MatchMatched &&
					tx.MatchedJournalLineID != nil && *tx.MatchedJournalLineID == *transaction.MatchedJournalLineID {
					return apperrors.NewConflictError("LINE_ALREADY_MATCHED", "journal line %s is already matched to %s", *transaction.MatchedJournalLineID, id)
				}
			}
		}
		st.bankTxs[transaction.BankTransactionID] = transaction
		return nil
	})
}

// BankReconciliationRepository implements portsrepo.BankReconciliationRepositoryFacade.
type BankReconciliationRepository struct {
	s *Store
}

var _ portsrepo.BankReconciliationRepositoryFacade = (*BankReconciliationRepository)(nil)

func storedReconciliation(rec domain.BankReconciliation) domain.BankReconciliation {
	rec.Items = slices.Clone(rec.Items)
	rec.AggregateRoot = domain.AggregateRoot{}
	return rec
}

func (r *BankReconciliationRepository) SaveBankReconciliation(ctx context.Context, rec domain.BankReconciliation) error {
	return r.s.run(ctx, func(st *state) error {
		for _, existing := range st.recs {
			if existing.BankAccountID == rec.BankAccountID && existing.Period() == rec.Period() {
				return apperrors.NewConflictError("DUPLICATE_RECONCILIATION", "bank account %s is already reconciled for %s", rec.BankAccountID, rec.Period())
			}
		}
		st.recs[rec.BankReconciliationID] = storedReconciliation(rec)
		return nil
	})
}

func (r *BankReconciliationRepository) FindBankReconciliationByID(ctx context.Context, bankReconciliationID string, _ portsrepo.RowLock) (*domain.BankReconciliation, error) {
	var out *domain.BankReconciliation
	err := r.s.run(ctx, func(st *state) error {
		rec, ok := st.recs[bankReconciliationID]
		if !ok {
			return apperrors.NewNotFoundError("reconciliation %s not found", bankReconciliationID)
		}
		rec = storedReconciliation(rec)
		out = &rec
		return nil
	})
	return out, err
}

func (r *BankReconciliationRepository) ListBankReconciliations(ctx context.Context, bankAccountID string) ([]domain.BankReconciliation, error) {
	var out []domain.BankReconciliation
	err := r.s.run(ctx, func(st *state) error {
		out = make([]domain.BankReconciliation, 0)
		for _, rec := range st.recs {
			if rec.BankAccountID == bankAccountID {
				out = append(out, storedReconciliation(rec))
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[j].Period().Before(out[i].Period()) })
		return nil
	})
	return out, err
}

func (r *BankReconciliationRepository) UpdateBankReconciliation(ctx context.Context, rec domain.BankReconciliation, expected domain.ReconciliationStatus) error {
	return r.s.run(ctx, func(st *state) error {
		current, ok := st.recs[rec.BankReconciliationID]
		if !ok {
			return apperrors.NewNotFoundError("reconciliation %s not found", rec.BankReconciliationID)
		}
		if current.Status != expected {
			return apperrors.NewConflictError("CONCURRENT_MODIFICATION", "reconciliation %s is %s, expected %s", rec.BankReconciliationID, current.Status, expected)
		}
		st.recs[rec.BankReconciliationID] = storedReconciliation(rec)
		return nil
	})
}
