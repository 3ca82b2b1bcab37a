package pgsql

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/SscSPs/commerce_ledger/internal/apperrors"
	"github.com/SscSPs/commerce_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/commerce_ledger/internal/core/ports/repositories"
)

type PgxBankAccountRepository struct {
	BaseRepository
}

func newPgxBankAccountRepository(pool *pgxpool.Pool) portsrepo.BankAccountRepositoryFacade {
	return &PgxBankAccountRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.BankAccountRepositoryFacade = (*PgxBankAccountRepository)(nil)

const bankAccountColumns = `
	bank_account_id, name, bank_name, account_number, gl_account_id, is_active,
	created_at, created_by, last_updated_at, last_updated_by`

func scanBankAccount(row pgx.Row) (domain.BankAccount, error) {
	var a domain.BankAccount
	err := row.Scan(
		&a.BankAccountID,
		&a.Name,
		&a.BankName,
		&a.AccountNumber,
		&a.GLAccountID,
		&a.IsActive,
		&a.CreatedAt,
		&a.CreatedBy,
		&a.LastUpdatedAt,
		&a.LastUpdatedBy,
	)
	return a, err
}

func (r *PgxBankAccountRepository) SaveBankAccount(ctx context.Context, account domain.BankAccount) error {
	query := `INSERT INTO bank_accounts (` + bankAccountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);`
	_, err := r.db(ctx).Exec(ctx, query,
		account.BankAccountID,
		account.Name,
		account.BankName,
		account.AccountNumber,
		account.GLAccountID,
		account.IsActive,
		account.CreatedAt,
		account.CreatedBy,
		account.LastUpdatedAt,
		account.LastUpdatedBy,
	)
	if err != nil {
		return mapWriteError(err, "failed to save bank account "+account.BankAccountID)
	}
	return nil
}

func (r *PgxBankAccountRepository) FindBankAccountByID(ctx context.Context, bankAccountID string) (*domain.BankAccount, error) {
	query := `SELECT ` + bankAccountColumns + ` FROM bank_accounts WHERE bank_account_id = $1;`
	a, err := scanBankAccount(r.db(ctx).QueryRow(ctx, query, bankAccountID))
	if err != nil {
		return nil, mapReadError(err, apperrors.NewNotFoundError("bank account %s not found", bankAccountID), "failed to find bank account "+bankAccountID)
	}
	return &a, nil
}

func (r *PgxBankAccountRepository) ListBankAccounts(ctx context.Context) ([]domain.BankAccount, error) {
	rows, err := r.db(ctx).Query(ctx, `SELECT `+bankAccountColumns+` FROM bank_accounts ORDER BY name;`)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to list bank accounts", err)
	}
	defer rows.Close()

	accounts := make([]domain.BankAccount, 0)
	for rows.Next() {
		a, err := scanBankAccount(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan bank account", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "failed to iterate bank accounts", err)
	}
	return accounts, nil
}

type PgxBankStatementRepository struct {
	BaseRepository
}

func newPgxBankStatementRepository(pool *pgxpool.Pool) portsrepo.BankStatementRepositoryFacade {
	return &PgxBankStatementRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.BankStatementRepositoryFacade = (*PgxBankStatementRepository)(nil)

const statementColumns = `
	bank_statement_id, bank_account_id, statement_date, period_start, period_end,
	opening_balance, closing_balance, file_name, transaction_count, duplicates_skipped,
	created_at, created_by, last_updated_at, last_updated_by`

func scanStatement(row pgx.Row) (domain.BankStatement, error) {
	var s domain.BankStatement
	err := row.Scan(
		&s.BankStatementID,
		&s.BankAccountID,
		&s.StatementDate,
		&s.PeriodStart,
		&s.PeriodEnd,
		&s.OpeningBalance,
		&s.ClosingBalance,
		&s.FileName,
		&s.TransactionCount,
		&s.DuplicatesSkipped,
		&s.CreatedAt,
		&s.CreatedBy,
		&s.LastUpdatedAt,
		&s.LastUpdatedBy,
	)
	return s, err
}

func (r *PgxBankStatementRepository) SaveBankStatement(ctx context.Context, statement domain.BankStatement) error {
	query := `INSERT INTO bank_statements (` + statementColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14);`
	_, err := r.db(ctx).Exec(ctx, query,
		statement.BankStatementID,
		statement.BankAccountID,
		statement.StatementDate,
		statement.PeriodStart,
		statement.PeriodEnd,
		statement.OpeningBalance,
		statement.ClosingBalance,
		statement.FileName,
		statement.TransactionCount,
		statement.DuplicatesSkipped,
		statement.CreatedAt,
		statement.CreatedBy,
		statement.LastUpdatedAt,
		statement.LastUpdatedBy,
	)
	if err != nil {
		return mapWriteError(err, "failed to save bank statement "+statement.BankStatementID)
	}
	return nil
}

func (r *PgxBankStatementRepository) FindBankStatementByID(ctx context.Context, bankStatementID string) (*domain.BankStatement, error) {
	query := `SELECT ` + statementColumns + ` FROM bank_statements WHERE bank_statement_id = $1;`
	s, err := scanStatement(r.db(ctx).QueryRow(ctx, query, bankStatementID))
	if err != nil {
		return nil, mapReadError(err, apperrors.NewNotFoundError("bank statement %s not found", bankStatementID), "failed to find bank statement "+bankStatementID)
	}
	return &s, nil
}

func (r *PgxBankStatementRepository) ListBankStatements(ctx context.Context, bankAccountID string) ([]domain.BankStatement, error) {
	query := `SELECT ` + statementColumns + ` FROM bank_statements
		WHERE bank_account_id = $1 ORDER BY statement_date DESC;`
	rows, err := r.db(ctx).Query(ctx, query, bankAccountID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to list bank statements", err)
	}
	defer rows.Close()

	statements := make([]domain.BankStatement, 0)
	for rows.Next() {
		s, err := scanStatement(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan bank statement", err)
		}
		statements = append(statements, s)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "failed to iterate bank statements", err)
	}
	return statements, nil
}

// DeleteBankStatement removes the statement; its transactions go by cascade.
func (r *PgxBankStatementRepository) DeleteBankStatement(ctx context.Context, bankStatementID string) error {
	tag, err := r.db(ctx).Exec(ctx, `DELETE FROM bank_statements WHERE bank_statement_id = $1;`, bankStatementID)
	if err != nil {
		return mapWriteError(err, "failed to delete bank statement "+bankStatementID)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("bank statement %s not found", bankStatementID)
	}
	return nil
}

type PgxBankTransactionRepository struct {
	BaseRepository
}

func newPgxBankTransactionRepository(pool *pgxpool.Pool) portsrepo.BankTransactionRepositoryFacade {
	return &PgxBankTransactionRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.BankTransactionRepositoryFacade = (*PgxBankTransactionRepository)(nil)

const bankTransactionColumns = `
	bank_transaction_id, bank_statement_id, bank_account_id, transaction_date, description,
	reference, amount, transaction_type, fingerprint, match_status,
	matched_journal_line_id, matched_by, matched_at, excluded_reason, created_at`

func scanBankTransaction(row pgx.Row) (domain.BankTransaction, error) {
	var t domain.BankTransaction
	err := row.Scan(
		&t.BankTransactionID,
		&t.BankStatementID,
		&t.BankAccountID,
		&t.TransactionDate,
		&t.Description,
		&t.Reference,
		&t.Amount,
		&t.TransactionType,
		&t.Fingerprint,
		&t.MatchStatus,
		&t.MatchedJournalLineID,
		&t.MatchedBy,
		&t.MatchedAt,
		&t.ExcludedReason,
		&t.CreatedAt,
	)
	return t, err
}

func (r *PgxBankTransactionRepository) FindBankTransactionByID(ctx context.Context, bankTransactionID string) (*domain.BankTransaction, error) {
	query := `SELECT ` + bankTransactionColumns + ` FROM bank_transactions WHERE bank_transaction_id = $1;`
	t, err := scanBankTransaction(r.db(ctx).QueryRow(ctx, query, bankTransactionID))
	if err != nil {
		return nil, mapReadError(err, apperrors.NewNotFoundError("bank transaction %s not found", bankTransactionID), "failed to find bank transaction "+bankTransactionID)
	}
	return &t, nil
}

func (r *PgxBankTransactionRepository) FindByStatement(ctx context.Context, bankStatementID string) ([]domain.BankTransaction, error) {
	query := `SELECT ` + bankTransactionColumns + ` FROM bank_transactions
		WHERE bank_statement_id = $1
		ORDER BY transaction_date, created_at, bank_transaction_id;`
	rows, err := r.db(ctx).Query(ctx, query, bankStatementID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to list bank transactions", err)
	}
	defer rows.Close()

	txs := make([]domain.BankTransaction, 0)
	for rows.Next() {
		t, err := scanBankTransaction(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan bank transaction", err)
		}
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "failed to iterate bank transactions", err)
	}
	return txs, nil
}

func (r *PgxBankTransactionRepository) FingerprintsExistMany(ctx context.Context, bankAccountID string, fingerprints []string) (map[string]bool, error) {
	out := make(map[string]bool)
	if len(fingerprints) == 0 {
		return out, nil
	}
	query := `SELECT fingerprint FROM bank_transactions WHERE bank_account_id = $1 AND fingerprint = ANY($2);`
	rows, err := r.db(ctx).Query(ctx, query, bankAccountID, fingerprints)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to check fingerprints", err)
	}
	defer rows.Close()
	for rows.Next() {
		var fp string
		if err := rows.Scan(&fp); err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan fingerprint", err)
		}
		out[fp] = true
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "failed to iterate fingerprints", err)
	}
	return out, nil
}

// SaveBankTransactions inserts the batch; the fingerprint constraint rejects duplicates.
func (r *PgxBankTransactionRepository) SaveBankTransactions(ctx context.Context, transactions []domain.BankTransaction) error {
	if len(transactions) == 0 {
		return nil
	}
	query := `INSERT INTO bank_transactions (` + bankTransactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15);`
	batch := &pgx.Batch{}
	for _, t := range transactions {
		batch.Queue(query,
			t.BankTransactionID,
			t.BankStatementID,
			t.BankAccountID,
			t.TransactionDate,
			t.Description,
			t.Reference,
			t.Amount,
			t.TransactionType,
			t.Fingerprint,
			t.MatchStatus,
			t.MatchedJournalLineID,
			t.MatchedBy,
			t.MatchedAt,
			t.ExcludedReason,
			t.CreatedAt,
		)
	}
	if err := r.db(ctx).SendBatch(ctx, batch).Close(); err != nil {
		return mapWriteError(err, "failed to save bank transactions")
	}
	return nil
}

// UpdateMatchStatus is a compare-and-set on match_status. A journal line
// matched twice trips the partial unique index.
func (r *PgxBankTransactionRepository) UpdateMatchStatus(ctx context.Context, transaction domain.BankTransaction, expected domain.MatchStatus) error {
	query := `
		UPDATE bank_transactions
		SET match_status = $2, matched_journal_line_id = $3, matched_by = $4, matched_at = $5, excluded_reason = $6
		WHERE bank_transaction_id = $1 AND match_status = $7;
	`
	tag, err := r.db(ctx).Exec(ctx, query,
		transaction.BankTransactionID,
		transaction.MatchStatus,
		transaction.MatchedJournalLineID,
		transaction.MatchedBy,
		transaction.MatchedAt,
		transaction.ExcludedReason,
		expected,
	)
	if err != nil {
		return mapWriteError(err, "failed to update bank transaction "+transaction.BankTransactionID)
	}
	if tag.RowsAffected() == 0 {
		current, err := r.FindBankTransactionByID(ctx, transaction.BankTransactionID)
		if err != nil {
			return err
		}
		return apperrors.NewConflictError("TRANSACTION_STATUS_CHANGED", "bank transaction %s is %s, expected %s",
			transaction.BankTransactionID, current.MatchStatus, expected)
	}
	return nil
}
