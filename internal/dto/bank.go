package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/SscSPs/commerce_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/commerce_ledger/internal/core/ports/services"
)

// CreateBankAccountRequest links a bank account to an asset GL account.
type CreateBankAccountRequest struct {
	Name          string `json:"name" binding:"required"`
	BankName      string `json:"bankName"`
	AccountNumber string `json:"accountNumber" binding:"required"`
	GLAccountID   string `json:"glAccountID" binding:"required"`
}

// ToCommand converts the request into the service command.
func (r CreateBankAccountRequest) ToCommand(userID string) portssvc.CreateBankAccountCommand {
	return portssvc.CreateBankAccountCommand{
		Name:          r.Name,
		BankName:      r.BankName,
		AccountNumber: r.AccountNumber,
		GLAccountID:   r.GLAccountID,
		CreatedBy:     userID,
	}
}

// BankStatementLineRequest is one line of an imported statement. Deposits
// are positive, withdrawals negative.
type BankStatementLineRequest struct {
	TransactionDate time.Time        `json:"transactionDate" binding:"required"`
	Description     string           `json:"description"`
	Reference       string           `json:"reference"`
	Amount          *decimal.Decimal `json:"amount" binding:"required"`
}

// ImportBankStatementRequest imports a parsed statement file.
type ImportBankStatementRequest struct {
	StatementDate  time.Time                  `json:"statementDate" binding:"required"`
	PeriodStart    time.Time                  `json:"periodStart" binding:"required"`
	PeriodEnd      time.Time                  `json:"periodEnd" binding:"required,gtefield=PeriodStart"`
	OpeningBalance decimal.Decimal            `json:"openingBalance"`
	ClosingBalance decimal.Decimal            `json:"closingBalance"`
	FileName       string                     `json:"fileName"`
	Lines          []BankStatementLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// ToCommand converts the request into the service command.
func (r ImportBankStatementRequest) ToCommand(bankAccountID, userID string) portssvc.ImportBankStatementCommand {
	lines := make([]portssvc.BankStatementLine, len(r.Lines))
	for i, l := range r.Lines {
		lines[i] = portssvc.BankStatementLine{
			TransactionDate: l.TransactionDate,
			Description:     l.Description,
			Reference:       l.Reference,
			Amount:          *l.Amount,
		}
	}
	return portssvc.ImportBankStatementCommand{
		BankAccountID:  bankAccountID,
		StatementDate:  r.StatementDate,
		PeriodStart:    r.PeriodStart,
		PeriodEnd:      r.PeriodEnd,
		OpeningBalance: r.OpeningBalance,
		ClosingBalance: r.ClosingBalance,
		FileName:       r.FileName,
		Lines:          lines,
		ImportedBy:     userID,
	}
}

// MatchTransactionRequest pairs a bank transaction with a journal line.
type MatchTransactionRequest struct {
	JournalLineID     string `json:"journalLineID" binding:"required"`
	DateToleranceDays int    `json:"dateToleranceDays" binding:"min=0,max=365"`
}

// AutoMatchRequest tunes an auto-match pass over a statement.
type AutoMatchRequest struct {
	DateToleranceDays int `json:"dateToleranceDays" binding:"min=0,max=365"`
}

// ExcludeTransactionRequest carries an optional exclusion reason.
type ExcludeTransactionRequest struct {
	Reason string `json:"reason"`
}

// BankTransactionResponse defines the data returned for a bank transaction.
type BankTransactionResponse struct {
	BankTransactionID    string                 `json:"bankTransactionID"`
	BankStatementID      string                 `json:"bankStatementID"`
	BankAccountID        string                 `json:"bankAccountID"`
	TransactionDate      time.Time              `json:"transactionDate"`
	Description          string                 `json:"description"`
	Reference            string                 `json:"reference,omitempty"`
	Amount               decimal.Decimal        `json:"amount"`
	TransactionType      domain.TransactionType `json:"transactionType"`
	MatchStatus          domain.MatchStatus     `json:"matchStatus"`
	MatchedJournalLineID *string                `json:"matchedJournalLineID,omitempty"`
	MatchedBy            *string                `json:"matchedBy,omitempty"`
	MatchedAt            *time.Time             `json:"matchedAt,omitempty"`
	ExcludedReason       *string                `json:"excludedReason,omitempty"`
}

// ToBankTransactionResponse converts a domain.BankTransaction to its DTO.
func ToBankTransactionResponse(tx *domain.BankTransaction) BankTransactionResponse {
	return BankTransactionResponse{
		BankTransactionID:    tx.BankTransactionID,
		BankStatementID:      tx.BankStatementID,
		BankAccountID:        tx.BankAccountID,
		TransactionDate:      tx.TransactionDate,
		Description:          tx.Description,
		Reference:            tx.Reference,
		Amount:               tx.Amount,
		TransactionType:      tx.TransactionType,
		MatchStatus:          tx.MatchStatus,
		MatchedJournalLineID: tx.MatchedJournalLineID,
		MatchedBy:            tx.MatchedBy,
		MatchedAt:            tx.MatchedAt,
		ExcludedReason:       tx.ExcludedReason,
	}
}

// ToBankTransactionResponses converts a slice of transactions.
func ToBankTransactionResponses(txs []domain.BankTransaction) []BankTransactionResponse {
	res := make([]BankTransactionResponse, len(txs))
	for i := range txs {
		res[i] = ToBankTransactionResponse(&txs[i])
	}
	return res
}

// MatchTransactionResponse reports the outcome of a manual match. A rule
// failure is not an error: Matched is false and Reason says why.
type MatchTransactionResponse struct {
	Matched     bool                    `json:"matched"`
	Reason      string                  `json:"reason,omitempty"`
	Transaction BankTransactionResponse `json:"transaction"`
}
