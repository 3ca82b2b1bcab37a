package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/SscSPs/commerce_ledger/internal/apperrors"
)

// ReconciliationStatus only ever advances Draft → InProgress → Completed → Approved.
type ReconciliationStatus string

const (
	ReconciliationDraft      ReconciliationStatus = "DRAFT"
	ReconciliationInProgress ReconciliationStatus = "IN_PROGRESS"
	ReconciliationCompleted  ReconciliationStatus = "COMPLETED"
	ReconciliationApproved   ReconciliationStatus = "APPROVED"
)

// ReconcilingItemType classifies a difference between bank and book.
type ReconcilingItemType string

const (
	// Bank side.
	OutstandingCheck ReconcilingItemType = "OUTSTANDING_CHECK"
	DepositInTransit ReconcilingItemType = "DEPOSIT_IN_TRANSIT"
	BankError        ReconcilingItemType = "BANK_ERROR"
	// Book side.
	BankFee      ReconcilingItemType = "BANK_FEE"
	BankInterest ReconcilingItemType = "BANK_INTEREST"
	NSFCheck     ReconcilingItemType = "NSF_CHECK"
	BookError    ReconcilingItemType = "BOOK_ERROR"
)

// IsValid reports whether t is a known item type.
func (t ReconcilingItemType) IsValid() bool {
	switch t {
	case OutstandingCheck, DepositInTransit, BankError, BankFee, BankInterest, NSFCheck, BookError:
		return true
	}
	return false
}

// IsBankSide reports whether the item adjusts the statement balance.
func (t ReconcilingItemType) IsBankSide() bool {
	return t == OutstandingCheck || t == DepositInTransit || t == BankError
}

// isCorrection reports whether the amount is a signed correction.
func (t ReconcilingItemType) isCorrection() bool {
	return t == BankError || t == BookError
}

// adjustment returns the signed effect of an item on its side's balance.
func (t ReconcilingItemType) adjustment(amount decimal.Decimal) decimal.Decimal {
	switch t {
	case OutstandingCheck, BankFee, NSFCheck:
		return amount.Neg()
	default:
		return amount
	}
}

// ReconcilingItemStatus tracks whether an item has cleared.
type ReconcilingItemStatus string

const (
	ItemPending ReconcilingItemStatus = "PENDING"
	ItemCleared ReconcilingItemStatus = "CLEARED"
)

// ReconcilingItem is a difference between statement and book balances.
type ReconcilingItem struct {
	ReconcilingItemID    string                `json:"reconcilingItemID"`
	ItemType             ReconcilingItemType   `json:"itemType"`
	Description          string                `json:"description"`
	Amount               decimal.Decimal       `json:"amount"`
	TransactionDate      time.Time             `json:"transactionDate"`
	RequiresJournalEntry bool                  `json:"requiresJournalEntry"`
	Status               ReconcilingItemStatus `json:"status"`
	JournalEntryID       *string               `json:"journalEntryID,omitempty"`
	ClearedAt            *time.Time            `json:"clearedAt,omitempty"`
}

// NewReconcilingItem validates an item. Fees, interest and NSF checks take a
// positive amount; error corrections take a signed, non-zero amount.
func NewReconcilingItem(itemType ReconcilingItemType, description string, amount decimal.Decimal, date time.Time, requiresJournalEntry bool) (ReconcilingItem, error) {
	if !itemType.IsValid() {
		return ReconcilingItem{}, apperrors.NewValidationError("INVALID_ITEM_TYPE", "unknown reconciling item type %q", itemType)
	}
	if itemType.isCorrection() {
		if amount.IsZero() {
			return ReconcilingItem{}, apperrors.NewValidationError("ZERO_AMOUNT", "%s amount must not be zero", itemType)
		}
	} else if !amount.IsPositive() {
		return ReconcilingItem{}, apperrors.NewValidationError("NON_POSITIVE_AMOUNT", "%s amount must be positive, got %s", itemType, amount)
	}
	if date.IsZero() {
		return ReconcilingItem{}, apperrors.NewValidationError("ITEM_DATE_REQUIRED", "reconciling item date is required")
	}
	if requiresJournalEntry && itemType.IsBankSide() {
		return ReconcilingItem{}, apperrors.NewValidationError("BANK_SIDE_ITEM_NO_ENTRY", "%s items are corrected by the bank, not by a journal entry", itemType)
	}
	return ReconcilingItem{
		ReconcilingItemID:    uuid.NewString(),
		ItemType:             itemType,
		Description:          strings.TrimSpace(description),
		Amount:               amount,
		TransactionDate:      date,
		RequiresJournalEntry: requiresJournalEntry,
		Status:               ItemPending,
	}, nil
}

// BankReconciliation compares a bank statement with the book balance of the
// bank's GL account for one fiscal period.
type BankReconciliation struct {
	BankReconciliationID   string               `json:"bankReconciliationID"`
	BankAccountID          string               `json:"bankAccountID"`
	FiscalYear             int                  `json:"fiscalYear"`
	FiscalMonth            int                  `json:"fiscalMonth"`
	StatementEndingBalance decimal.Decimal      `json:"statementEndingBalance"`
	BookEndingBalance      decimal.Decimal      `json:"bookEndingBalance"`
	AdjustedBankBalance    decimal.Decimal      `json:"adjustedBankBalance"`
	AdjustedBookBalance    decimal.Decimal      `json:"adjustedBookBalance"`
	Status                 ReconciliationStatus `json:"status"`
	Items                  []ReconcilingItem    `json:"items"`
	Notes                  string               `json:"notes,omitempty"`
	CompletedBy            *string              `json:"completedBy,omitempty"`
	CompletedAt            *time.Time           `json:"completedAt,omitempty"`
	ApprovedBy             *string              `json:"approvedBy,omitempty"`
	ApprovedAt             *time.Time           `json:"approvedAt,omitempty"`
	AuditFields
	AggregateRoot `json:"-"`
}

// NewBankReconciliation returns a Draft reconciliation with no items.
func NewBankReconciliation(id, bankAccountID string, period PeriodRef, statementEnding, bookEnding decimal.Decimal, createdBy string, now time.Time) *BankReconciliation {
	r := &BankReconciliation{
		BankReconciliationID:   id,
		BankAccountID:          bankAccountID,
		FiscalYear:             period.Year,
		FiscalMonth:            period.Month,
		StatementEndingBalance: statementEnding,
		BookEndingBalance:      bookEnding,
		Status:                 ReconciliationDraft,
		Items:                  []ReconcilingItem{},
		AuditFields:            newAuditFields(createdBy, now),
	}
	r.Recalculate()
	return r
}

// Period returns the reconciled fiscal period.
func (r *BankReconciliation) Period() PeriodRef {
	return PeriodRef{Year: r.FiscalYear, Month: r.FiscalMonth}
}

// Recalculate refreshes both adjusted balances from the items.
//
//	adjustedBank = statement − outstanding checks + deposits in transit ± bank errors
//	adjustedBook = book − fees − NSF checks + interest ± book errors
func (r *BankReconciliation) Recalculate() {
	bank, book := r.StatementEndingBalance, r.BookEndingBalance
	for _, item := range r.Items {
		if item.ItemType.IsBankSide() {
			bank = bank.Add(item.ItemType.adjustment(item.Amount))
		} else {
			book = book.Add(item.ItemType.adjustment(item.Amount))
		}
	}
	r.AdjustedBankBalance = bank
	r.AdjustedBookBalance = book
}

// Difference is adjustedBank − adjustedBook.
func (r *BankReconciliation) Difference() decimal.Decimal {
	return r.AdjustedBankBalance.Sub(r.AdjustedBookBalance)
}

// IsBalanced reports whether the adjusted balances agree within tolerance.
func (r *BankReconciliation) IsBalanced() bool {
	return WithinTolerance(r.AdjustedBankBalance, r.AdjustedBookBalance)
}

func (r *BankReconciliation) ensureEditable() error {
	if r.Status != ReconciliationDraft && r.Status != ReconciliationInProgress {
		return apperrors.NewStateError("RECONCILIATION_NOT_EDITABLE", "reconciliation %s is %s", r.BankReconciliationID, r.Status)
	}
	return nil
}

// Start moves Draft to InProgress.
func (r *BankReconciliation) Start(by string, now time.Time) error {
	if r.Status != ReconciliationDraft {
		return apperrors.NewStateError("RECONCILIATION_NOT_DRAFT", "reconciliation %s is %s", r.BankReconciliationID, r.Status)
	}
	r.Status = ReconciliationInProgress
	r.touch(by, now)
	return nil
}

// SetBalances replaces the statement and book ending balances.
func (r *BankReconciliation) SetBalances(statementEnding, bookEnding decimal.Decimal, by string, now time.Time) error {
	if err := r.ensureEditable(); err != nil {
		return err
	}
	r.StatementEndingBalance = statementEnding
	r.BookEndingBalance = bookEnding
	r.Recalculate()
	r.touch(by, now)
	return nil
}

// AddItem appends a reconciling item and recalculates.
func (r *BankReconciliation) AddItem(item ReconcilingItem, by string, now time.Time) error {
	if err := r.ensureEditable(); err != nil {
		return err
	}
	r.Items = append(r.Items, item)
	r.Recalculate()
	r.touch(by, now)
	return nil
}

// ClearItem marks a pending item as cleared. Cleared items still count in
// the adjusted balances of this reconciliation.
func (r *BankReconciliation) ClearItem(itemID, by string, now time.Time) error {
	if err := r.ensureEditable(); err != nil {
		return err
	}
	item, err := r.item(itemID)
	if err != nil {
		return err
	}
	if item.Status == ItemCleared {
		return apperrors.NewStateError("ITEM_ALREADY_CLEARED", "reconciling item %s is already cleared", itemID)
	}
	item.Status = ItemCleared
	item.ClearedAt = timePtr(now)
	r.touch(by, now)
	return nil
}

// LinkJournalEntry records the adjusting entry created for an item.
func (r *BankReconciliation) LinkJournalEntry(itemID, journalEntryID, by string, now time.Time) error {
	item, err := r.item(itemID)
	if err != nil {
		return err
	}
	if item.JournalEntryID != nil {
		return apperrors.NewConflictError("ITEM_ALREADY_ADJUSTED", "reconciling item %s already has journal entry %s", itemID, *item.JournalEntryID)
	}
	item.JournalEntryID = stringPtr(journalEntryID)
	r.touch(by, now)
	return nil
}

func (r *BankReconciliation) item(itemID string) (*ReconcilingItem, error) {
	for i := range r.Items {
		if r.Items[i].ReconcilingItemID == itemID {
			return &r.Items[i], nil
		}
	}
	return nil, apperrors.NewNotFoundError("reconciling item %s not found", itemID)
}

// BankReconciliationPayload is carried by reconciliation events.
type BankReconciliationPayload struct {
	BankReconciliationID string               `json:"bankReconciliationID"`
	BankAccountID        string               `json:"bankAccountID"`
	FiscalYear           int                  `json:"fiscalYear"`
	FiscalMonth          int                  `json:"fiscalMonth"`
	AdjustedBankBalance  decimal.Decimal      `json:"adjustedBankBalance"`
	AdjustedBookBalance  decimal.Decimal      `json:"adjustedBookBalance"`
	Status               ReconciliationStatus `json:"status"`
	By                   string               `json:"by"`
}

// Complete requires InProgress status and balanced adjusted balances.
func (r *BankReconciliation) Complete(by string, now time.Time) error {
	if r.Status != ReconciliationInProgress {
		return apperrors.NewStateError("RECONCILIATION_NOT_IN_PROGRESS", "reconciliation %s is %s", r.BankReconciliationID, r.Status)
	}
	r.Recalculate()
	if !r.IsBalanced() {
		return apperrors.NewStateError("RECONCILIATION_NOT_BALANCED",
			"reconciliation %s is not balanced: adjusted bank %s, adjusted book %s, difference %s",
			r.BankReconciliationID, r.AdjustedBankBalance.StringFixed(2), r.AdjustedBookBalance.StringFixed(2), r.Difference().StringFixed(2))
	}
	r.Status = ReconciliationCompleted
	r.CompletedBy = stringPtr(by)
	r.CompletedAt = timePtr(now)
	r.touch(by, now)
	r.record(EventBankReconciliationCompleted, by, now)
	return nil
}

// Approve moves Completed to Approved.
func (r *BankReconciliation) Approve(by string, now time.Time) error {
	if r.Status != ReconciliationCompleted {
		return apperrors.NewStateError("RECONCILIATION_NOT_COMPLETED", "reconciliation %s is %s", r.BankReconciliationID, r.Status)
	}
	r.Status = ReconciliationApproved
	r.ApprovedBy = stringPtr(by)
	r.ApprovedAt = timePtr(now)
	r.touch(by, now)
	r.record(EventBankReconciliationApproved, by, now)
	return nil
}

func (r *BankReconciliation) record(eventType, by string, now time.Time) {
	r.RecordEvent(mustEvent(eventType, AggregateBankReconciliation, r.BankReconciliationID, BankReconciliationPayload{
		BankReconciliationID: r.BankReconciliationID,
		BankAccountID:        r.BankAccountID,
		FiscalYear:           r.FiscalYear,
		FiscalMonth:          r.FiscalMonth,
		AdjustedBankBalance:  r.AdjustedBankBalance,
		AdjustedBookBalance:  r.AdjustedBookBalance,
		Status:               r.Status,
		By:                   by,
	}, now))
}

// AdjustingAccounts maps reconciling item types to GL accounts.
type AdjustingAccounts struct {
	BankGLAccountID       string `json:"bankGLAccountID"`
	BankFeeExpenseAccount string `json:"bankFeeExpenseAccountID"`
	InterestIncomeAccount string `json:"interestIncomeAccountID"`
	NSFReceivableAccount  string `json:"nsfReceivableAccountID,omitempty"`
	SuspenseAccount       string `json:"suspenseAccountID,omitempty"`
}

// AdjustingEntryDraft is a two-line entry proposed for one reconciling item.
type AdjustingEntryDraft struct {
	ReconcilingItemID string        `json:"reconcilingItemID"`
	EntryDate         time.Time     `json:"entryDate"`
	Description       string        `json:"description"`
	Lines             []JournalLine `json:"lines"`
}

// GenerateAdjustingEntries drafts one entry per item that requires a journal
// entry and has none yet. Nothing is posted here.
func GenerateAdjustingEntries(r *BankReconciliation, accounts AdjustingAccounts) ([]AdjustingEntryDraft, error) {
	if accounts.BankGLAccountID == "" {
		return nil, apperrors.NewValidationError("BANK_GL_ACCOUNT_REQUIRED", "bank GL account is required for adjusting entries")
	}

	drafts := make([]AdjustingEntryDraft, 0)
	for _, item := range r.Items {
		if !item.RequiresJournalEntry || item.JournalEntryID != nil {
			continue
		}

		var debitAccount, creditAccount string
		amount := item.Amount
		switch item.ItemType {
		case BankFee:
			debitAccount, creditAccount = accounts.BankFeeExpenseAccount, accounts.BankGLAccountID
		case BankInterest:
			debitAccount, creditAccount = accounts.BankGLAccountID, accounts.InterestIncomeAccount
		case NSFCheck:
			debitAccount, creditAccount = accounts.NSFReceivableAccount, accounts.BankGLAccountID
		case BookError:
			if amount.IsNegative() {
				debitAccount, creditAccount = accounts.SuspenseAccount, accounts.BankGLAccountID
				amount = amount.Abs()
			} else {
				debitAccount, creditAccount = accounts.BankGLAccountID, accounts.SuspenseAccount
			}
		default:
			continue
		}
		if debitAccount == "" || creditAccount == "" {
			return nil, apperrors.NewValidationError("ADJUSTING_ACCOUNT_MISSING", "no GL account configured for %s items", item.ItemType)
		}

		description := item.Description
		if description == "" {
			description = fmt.Sprintf("%s adjustment", strings.ToLower(strings.ReplaceAll(string(item.ItemType), "_", " ")))
		}
		drafts = append(drafts, AdjustingEntryDraft{
			ReconcilingItemID: item.ReconcilingItemID,
			EntryDate:         item.TransactionDate,
			Description:       fmt.Sprintf("Bank reconciliation %s: %s", r.Period(), description),
			Lines: []JournalLine{
				{AccountID: debitAccount, TransactionType: Debit, Amount: amount, Memo: description},
				{AccountID: creditAccount, TransactionType: Credit, Amount: amount, Memo: description},
			},
		})
	}
	return drafts, nil
}
