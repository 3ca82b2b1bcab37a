package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/SscSPs/commerce_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/commerce_ledger/internal/core/ports/services"
)

// StartReconciliationRequest opens a reconciliation for one bank account and
// period. When bookEndingBalance is omitted it is read from the GL balance.
type StartReconciliationRequest struct {
	FiscalYear             int              `json:"fiscalYear" binding:"required,min=1900,max=9999"`
	FiscalMonth            int              `json:"fiscalMonth" binding:"required,fiscal_month"`
	StatementEndingBalance *decimal.Decimal `json:"statementEndingBalance" binding:"required"`
	BookEndingBalance      *decimal.Decimal `json:"bookEndingBalance"`
	Notes                  string           `json:"notes"`
}

// ToCommand converts the request into the service command.
func (r StartReconciliationRequest) ToCommand(bankAccountID, userID string) portssvc.StartReconciliationCommand {
	return portssvc.StartReconciliationCommand{
		BankAccountID:          bankAccountID,
		Period:                 domain.PeriodRef{Year: r.FiscalYear, Month: r.FiscalMonth},
		StatementEndingBalance: *r.StatementEndingBalance,
		BookEndingBalance:      r.BookEndingBalance,
		Notes:                  r.Notes,
		StartedBy:              userID,
	}
}

// AddReconcilingItemRequest adds an outstanding item to a reconciliation.
type AddReconcilingItemRequest struct {
	ItemType             domain.ReconcilingItemType `json:"itemType" binding:"required,oneof=OUTSTANDING_CHECK DEPOSIT_IN_TRANSIT BANK_ERROR BANK_FEE BANK_INTEREST NSF_CHECK BOOK_ERROR"`
	Description          string                     `json:"description"`
	Amount               *decimal.Decimal           `json:"amount" binding:"required"`
	TransactionDate      time.Time                  `json:"transactionDate" binding:"required"`
	RequiresJournalEntry *bool                      `json:"requiresJournalEntry"`
}

// ToCommand converts the request into the service command.
func (r AddReconcilingItemRequest) ToCommand(reconciliationID, userID string) portssvc.AddReconcilingItemCommand {
	return portssvc.AddReconcilingItemCommand{
		BankReconciliationID: reconciliationID,
		ItemType:             r.ItemType,
		Description:          r.Description,
		Amount:               *r.Amount,
		TransactionDate:      r.TransactionDate,
		RequiresJournalEntry: r.RequiresJournalEntry,
		AddedBy:              userID,
	}
}

// AdjustingAccountsRequest names the GL accounts used for adjusting entries.
type AdjustingAccountsRequest struct {
	BankFeeExpenseAccountID string `json:"bankFeeExpenseAccountID" binding:"required"`
	InterestIncomeAccountID string `json:"interestIncomeAccountID" binding:"required"`
	NSFReceivableAccountID  string `json:"nsfReceivableAccountID"`
	SuspenseAccountID       string `json:"suspenseAccountID"`
}

// ToDomain converts the request. The bank GL account is filled in by the
// service from the reconciliation's bank account.
func (r AdjustingAccountsRequest) ToDomain() domain.AdjustingAccounts {
	return domain.AdjustingAccounts{
		BankFeeExpenseAccount: r.BankFeeExpenseAccountID,
		InterestIncomeAccount: r.InterestIncomeAccountID,
		NSFReceivableAccount:  r.NSFReceivableAccountID,
		SuspenseAccount:       r.SuspenseAccountID,
	}
}

// ReconciliationResponse defines the data returned for a reconciliation.
type ReconciliationResponse struct {
	domain.BankReconciliation
	Difference decimal.Decimal `json:"difference"`
	IsBalanced bool            `json:"isBalanced"`
}

// ToReconciliationResponse converts a domain.BankReconciliation to its DTO.
func ToReconciliationResponse(r *domain.BankReconciliation) ReconciliationResponse {
	return ReconciliationResponse{
		BankReconciliation: *r,
		Difference:         r.Difference(),
		IsBalanced:         r.IsBalanced(),
	}
}

// ToReconciliationResponses converts a slice of reconciliations.
func ToReconciliationResponses(recs []domain.BankReconciliation) []ReconciliationResponse {
	res := make([]ReconciliationResponse, len(recs))
	for i := range recs {
		res[i] = ToReconciliationResponse(&recs[i])
	}
	return res
}
