package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/SscSPs/commerce_ledger/internal/apperrors"
)

// JournalStatus indicates the state of a journal entry.
type JournalStatus string

const (
	JournalDraft  JournalStatus = "DRAFT"
	JournalPosted JournalStatus = "POSTED"
	JournalVoided JournalStatus = "VOIDED"
)

// EntryType distinguishes user-entered entries from those generated by other services.
type EntryType string

const (
	EntryManual EntryType = "MANUAL"
	EntrySystem EntryType = "SYSTEM"
)

const minVoidReasonLength = 3

// FormatEntryNumber renders JE-YYYYMM-NNNN.
func FormatEntryNumber(period PeriodRef, sequence int64) string {
	return fmt.Sprintf("JE-%04d%02d-%04d", period.Year, period.Month, sequence)
}

// JournalEntry is a balanced set of debit/credit lines recording one business event.
type JournalEntry struct {
	JournalEntryID    string        `json:"journalEntryID"`
	EntryNumber       string        `json:"entryNumber,omitempty"` // assigned on post
	EntryDate         time.Time     `json:"entryDate"`
	Description       string        `json:"description"`
	EntryType         EntryType     `json:"entryType"`
	Status            JournalStatus `json:"status"`
	FiscalYear        int           `json:"fiscalYear"`
	FiscalMonth       int           `json:"fiscalMonth"`
	SourceService     string        `json:"sourceService,omitempty"`
	SourceReferenceID string        `json:"sourceReferenceID,omitempty"`
	Lines             []JournalLine `json:"lines"`
	PostedBy          *string       `json:"postedBy,omitempty"`
	PostedAt          *time.Time    `json:"postedAt,omitempty"`
	VoidedBy          *string       `json:"voidedBy,omitempty"`
	VoidedAt          *time.Time    `json:"voidedAt,omitempty"`
	VoidReason        *string       `json:"voidReason,omitempty"`
	AuditFields
	AggregateRoot `json:"-"`
}

// NewJournalEntryParams holds the input for NewJournalEntry.
type NewJournalEntryParams struct {
	JournalEntryID    string
	EntryDate         time.Time
	Description       string
	EntryType         EntryType
	Lines             []JournalLine
	SourceService     string
	SourceReferenceID string
}

// NewJournalEntry validates the lines and returns a Draft entry in the
// fiscal period containing the entry date.
func NewJournalEntry(p NewJournalEntryParams, createdBy string, now time.Time) (*JournalEntry, error) {
	if p.EntryDate.IsZero() {
		return nil, apperrors.NewValidationError("ENTRY_DATE_REQUIRED", "entry date is required")
	}
	if err := ValidateLines(p.Lines); err != nil {
		return nil, err
	}
	entryType := p.EntryType
	if entryType == "" {
		entryType = EntryManual
	}
	if entryType != EntryManual && entryType != EntrySystem {
		return nil, apperrors.NewValidationError("INVALID_ENTRY_TYPE", "unknown entry type %q", entryType)
	}
	if (p.SourceService == "") != (p.SourceReferenceID == "") {
		return nil, apperrors.NewValidationError("INCOMPLETE_SOURCE_REFERENCE", "source service and source reference id must be given together")
	}

	period := PeriodOf(p.EntryDate)
	return &JournalEntry{
		JournalEntryID:    p.JournalEntryID,
		EntryDate:         p.EntryDate,
		Description:       strings.TrimSpace(p.Description),
		EntryType:         entryType,
		Status:            JournalDraft,
		FiscalYear:        period.Year,
		FiscalMonth:       period.Month,
		SourceService:     p.SourceService,
		SourceReferenceID: p.SourceReferenceID,
		Lines:             assignLineIdentity(p.JournalEntryID, p.Lines),
		AuditFields:       newAuditFields(createdBy, now),
	}, nil
}

// Period returns the fiscal period the entry belongs to.
func (e *JournalEntry) Period() PeriodRef {
	return PeriodRef{Year: e.FiscalYear, Month: e.FiscalMonth}
}

// Totals returns the debit and credit sums of the entry.
func (e *JournalEntry) Totals() (debits, credits decimal.Decimal) {
	return LineTotals(e.Lines)
}

// AccountIDs returns the distinct accounts referenced by the lines.
func (e *JournalEntry) AccountIDs() []string {
	seen := make(map[string]struct{}, len(e.Lines))
	ids := make([]string, 0, len(e.Lines))
	for _, line := range e.Lines {
		if _, ok := seen[line.AccountID]; ok {
			continue
		}
		seen[line.AccountID] = struct{}{}
		ids = append(ids, line.AccountID)
	}
	return ids
}

func (e *JournalEntry) ensureDraft(action string) error {
	switch e.Status {
	case JournalDraft:
		return nil
	case JournalVoided:
		return apperrors.NewStateError("ENTRY_VOIDED", "cannot %s journal entry %s: it is voided", action, e.JournalEntryID)
	default:
		return apperrors.NewStateError("ENTRY_NOT_DRAFT", "cannot %s journal entry %s: status is %s", action, e.JournalEntryID, e.Status)
	}
}

// JournalEntryUpdate lists the fields that may change on a Draft entry.
// Nil fields are left untouched.
type JournalEntryUpdate struct {
	EntryDate   *time.Time
	Description *string
	Lines       []JournalLine
}

// Update applies changes to a Draft entry.
func (e *JournalEntry) Update(u JournalEntryUpdate, updatedBy string, now time.Time) error {
	if err := e.ensureDraft("update"); err != nil {
		return err
	}
	if u.Lines != nil {
		if err := ValidateLines(u.Lines); err != nil {
			return err
		}
	}
	if u.EntryDate != nil {
		if u.EntryDate.IsZero() {
			return apperrors.NewValidationError("ENTRY_DATE_REQUIRED", "entry date is required")
		}
		e.EntryDate = *u.EntryDate
		period := PeriodOf(*u.EntryDate)
		e.FiscalYear, e.FiscalMonth = period.Year, period.Month
	}
	if u.Description != nil {
		e.Description = strings.TrimSpace(*u.Description)
	}
	if u.Lines != nil {
		e.Lines = assignLineIdentity(e.JournalEntryID, u.Lines)
	}
	e.touch(updatedBy, now)
	return nil
}

// EnsurePostable checks the entry state without a period.
func (e *JournalEntry) EnsurePostable() error {
	return e.ensureDraft("post")
}

// JournalEntryPostedPayload is carried by JournalEntryPosted.
type JournalEntryPostedPayload struct {
	JournalEntryID    string            `json:"journalEntryID"`
	EntryNumber       string            `json:"entryNumber"`
	EntryDate         time.Time         `json:"entryDate"`
	EntryType         EntryType         `json:"entryType"`
	FiscalYear        int               `json:"fiscalYear"`
	FiscalMonth       int               `json:"fiscalMonth"`
	TotalAmount       decimal.Decimal   `json:"totalAmount"`
	SourceService     string            `json:"sourceService,omitempty"`
	SourceReferenceID string            `json:"sourceReferenceID,omitempty"`
	Accounts          []AccountMovement `json:"accounts"`
	PostedBy          string            `json:"postedBy"`
}

// Post moves a Draft entry to Posted inside an Open period.
func (e *JournalEntry) Post(period *FiscalPeriod, entryNumber, postedBy string, now time.Time) error {
	if err := e.ensureDraft("post"); err != nil {
		return err
	}
	if period == nil || period.Ref() != e.Period() {
		return apperrors.NewValidationError("PERIOD_MISMATCH", "journal entry %s belongs to fiscal period %s", e.JournalEntryID, e.Period())
	}
	if err := period.EnsureOpen(); err != nil {
		return err
	}
	if err := ValidateLines(e.Lines); err != nil {
		return err
	}
	if entryNumber == "" {
		return apperrors.NewValidationError("ENTRY_NUMBER_REQUIRED", "entry number is required to post")
	}

	e.Status = JournalPosted
	e.EntryNumber = entryNumber
	e.PostedBy = stringPtr(postedBy)
	e.PostedAt = timePtr(now)
	e.touch(postedBy, now)

	debits, _ := e.Totals()
	e.RecordEvent(mustEvent(EventJournalEntryPosted, AggregateJournalEntry, e.JournalEntryID, JournalEntryPostedPayload{
		JournalEntryID:    e.JournalEntryID,
		EntryNumber:       e.EntryNumber,
		EntryDate:         e.EntryDate,
		EntryType:         e.EntryType,
		FiscalYear:        e.FiscalYear,
		FiscalMonth:       e.FiscalMonth,
		TotalAmount:       debits,
		SourceService:     e.SourceService,
		SourceReferenceID: e.SourceReferenceID,
		Accounts:          AccountBreakdown(e.Lines),
		PostedBy:          postedBy,
	}, now))
	return nil
}

// JournalEntryVoidedPayload is carried by JournalEntryVoided.
type JournalEntryVoidedPayload struct {
	JournalEntryID string            `json:"journalEntryID"`
	EntryNumber    string            `json:"entryNumber"`
	FiscalYear     int               `json:"fiscalYear"`
	FiscalMonth    int               `json:"fiscalMonth"`
	Reason         string            `json:"reason"`
	Accounts       []AccountMovement `json:"accounts"`
	VoidedBy       string            `json:"voidedBy"`
}

// Void flags a Posted entry as void. Lines are left untouched.
func (e *JournalEntry) Void(voidedBy, reason string, now time.Time) error {
	switch e.Status {
	case JournalPosted:
	case JournalVoided:
		return apperrors.NewStateError("ENTRY_ALREADY_VOIDED", "journal entry %s is already voided", e.EntryNumber)
	default:
		return apperrors.NewStateError("ENTRY_NOT_POSTED", "only posted entries can be voided, %s is %s", e.JournalEntryID, e.Status)
	}
	reason = strings.TrimSpace(reason)
	if len(reason) < minVoidReasonLength {
		return apperrors.NewValidationError("VOID_REASON_REQUIRED", "void reason must be at least %d characters", minVoidReasonLength)
	}

	e.Status = JournalVoided
	e.VoidedBy = stringPtr(voidedBy)
	e.VoidedAt = timePtr(now)
	e.VoidReason = stringPtr(reason)
	e.touch(voidedBy, now)

	e.RecordEvent(mustEvent(EventJournalEntryVoided, AggregateJournalEntry, e.JournalEntryID, JournalEntryVoidedPayload{
		JournalEntryID: e.JournalEntryID,
		EntryNumber:    e.EntryNumber,
		FiscalYear:     e.FiscalYear,
		FiscalMonth:    e.FiscalMonth,
		Reason:         reason,
		Accounts:       AccountBreakdown(e.Lines),
		VoidedBy:       voidedBy,
	}, now))
	return nil
}

// EnsureDeletable permits deletion of Draft entries only.
func (e *JournalEntry) EnsureDeletable() error {
	return e.ensureDraft("delete")
}
