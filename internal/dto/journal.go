package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/SscSPs/commerce_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/commerce_ledger/internal/core/ports/services"
)

// JournalLineRequest is one debit or credit line of a journal entry request.
type JournalLineRequest struct {
	AccountID       string                 `json:"accountID" binding:"required"`
	TransactionType domain.TransactionType `json:"transactionType" binding:"required,oneof=DEBIT CREDIT"`
	Amount          *decimal.Decimal       `json:"amount" binding:"required"`
	Memo            string                 `json:"memo"`
	Dimensions      domain.Dimensions      `json:"dimensions"`
}

func toDomainLines(lines []JournalLineRequest) []domain.JournalLine {
	if lines == nil {
		return nil
	}
	out := make([]domain.JournalLine, len(lines))
	for i, l := range lines {
		out[i] = domain.JournalLine{
			AccountID:       l.AccountID,
			TransactionType: l.TransactionType,
			Amount:          *l.Amount,
			Memo:            l.Memo,
			Dimensions:      l.Dimensions,
		}
	}
	return out
}

// CreateJournalEntryRequest defines the data needed to create a draft entry.
type CreateJournalEntryRequest struct {
	EntryDate         time.Time            `json:"entryDate" binding:"required"`
	Description       string               `json:"description"`
	EntryType         domain.EntryType     `json:"entryType" binding:"omitempty,oneof=MANUAL SYSTEM"`
	Lines             []JournalLineRequest `json:"lines" binding:"required,min=2,dive"`
	SourceService     string               `json:"sourceService" binding:"required_with=SourceReferenceID"`
	SourceReferenceID string               `json:"sourceReferenceID" binding:"required_with=SourceService"`
}

// ToCommand converts the request into the service command.
func (r CreateJournalEntryRequest) ToCommand(userID string) portssvc.CreateJournalEntryCommand {
	return portssvc.CreateJournalEntryCommand{
		EntryDate:         r.EntryDate,
		Description:       r.Description,
		EntryType:         r.EntryType,
		Lines:             toDomainLines(r.Lines),
		SourceService:     r.SourceService,
		SourceReferenceID: r.SourceReferenceID,
		CreatedBy:         userID,
	}
}

// UpdateJournalEntryRequest changes a draft entry. Omitted fields are kept;
// a lines array replaces all existing lines.
type UpdateJournalEntryRequest struct {
	EntryDate   *time.Time           `json:"entryDate"`
	Description *string              `json:"description"`
	Lines       []JournalLineRequest `json:"lines" binding:"omitempty,min=2,dive"`
}

// ToCommand converts the request into the service command.
func (r UpdateJournalEntryRequest) ToCommand(journalEntryID, userID string) portssvc.UpdateJournalEntryCommand {
	return portssvc.UpdateJournalEntryCommand{
		JournalEntryID: journalEntryID,
		EntryDate:      r.EntryDate,
		Description:    r.Description,
		Lines:          toDomainLines(r.Lines),
		UpdatedBy:      userID,
	}
}

// VoidJournalEntryRequest carries the mandatory void reason.
type VoidJournalEntryRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// ListJournalEntriesParams defines query parameters for listing entries.
// SourceService and SourceReferenceID together look up a single entry.
type ListJournalEntriesParams struct {
	FiscalYear        int     `form:"fiscalYear" binding:"omitempty,min=1900,max=9999"`
	FiscalMonth       int     `form:"fiscalMonth" binding:"omitempty,fiscal_month"`
	Status            string  `form:"status" binding:"omitempty,oneof=DRAFT POSTED VOIDED"`
	Limit             int     `form:"limit,default=20" binding:"min=1,max=100"`
	NextToken         *string `form:"nextToken"`
	SourceService     string  `form:"sourceService" binding:"required_with=SourceReferenceID"`
	SourceReferenceID string  `form:"sourceReferenceID" binding:"required_with=SourceService"`
}

// ToQuery converts the params into the service query. A period filter is
// only applied when both year and month are given.
func (p ListJournalEntriesParams) ToQuery() portssvc.ListJournalEntriesQuery {
	q := portssvc.ListJournalEntriesQuery{
		Status:    domain.JournalStatus(p.Status),
		Limit:     p.Limit,
		NextToken: p.NextToken,
	}
	if p.FiscalYear != 0 && p.FiscalMonth != 0 {
		q.Period = &domain.PeriodRef{Year: p.FiscalYear, Month: p.FiscalMonth}
	}
	return q
}

// JournalLineResponse defines the data returned for a journal line.
type JournalLineResponse struct {
	JournalLineID   string                 `json:"journalLineID"`
	LineNumber      int                    `json:"lineNumber"`
	AccountID       string                 `json:"accountID"`
	TransactionType domain.TransactionType `json:"transactionType"`
	Amount          decimal.Decimal        `json:"amount"`
	Memo            string                 `json:"memo,omitempty"`
	Dimensions      domain.Dimensions      `json:"dimensions"`
}

// JournalEntryResponse defines the data returned for a journal entry.
type JournalEntryResponse struct {
	JournalEntryID    string                `json:"journalEntryID"`
	EntryNumber       string                `json:"entryNumber,omitempty"`
	EntryDate         time.Time             `json:"entryDate"`
	Description       string                `json:"description"`
	EntryType         domain.EntryType      `json:"entryType"`
	Status            domain.JournalStatus  `json:"status"`
	FiscalYear        int                   `json:"fiscalYear"`
	FiscalMonth       int                   `json:"fiscalMonth"`
	SourceService     string                `json:"sourceService,omitempty"`
	SourceReferenceID string                `json:"sourceReferenceID,omitempty"`
	TotalDebit        decimal.Decimal       `json:"totalDebit"`
	TotalCredit       decimal.Decimal       `json:"totalCredit"`
	Lines             []JournalLineResponse `json:"lines"`
	PostedBy          *string               `json:"postedBy,omitempty"`
	PostedAt          *time.Time            `json:"postedAt,omitempty"`
	VoidedBy          *string               `json:"voidedBy,omitempty"`
	VoidedAt          *time.Time            `json:"voidedAt,omitempty"`
	VoidReason        *string               `json:"voidReason,omitempty"`
	CreatedAt         time.Time             `json:"createdAt"`
	CreatedBy         string                `json:"createdBy"`
	LastUpdatedAt     time.Time             `json:"lastUpdatedAt"`
	LastUpdatedBy     string                `json:"lastUpdatedBy"`
}

// ToJournalEntryResponse converts a domain.JournalEntry to its DTO.
func ToJournalEntryResponse(e *domain.JournalEntry) JournalEntryResponse {
	debits, credits := domain.LineTotals(e.Lines)
	lines := make([]JournalLineResponse, len(e.Lines))
	for i, l := range e.Lines {
		lines[i] = JournalLineResponse{
			JournalLineID:   l.JournalLineID,
			LineNumber:      l.LineNumber,
			AccountID:       l.AccountID,
			TransactionType: l.TransactionType,
			Amount:          l.Amount,
			Memo:            l.Memo,
			Dimensions:      l.Dimensions,
		}
	}
	return JournalEntryResponse{
		JournalEntryID:    e.JournalEntryID,
		EntryNumber:       e.EntryNumber,
		EntryDate:         e.EntryDate,
		Description:       e.Description,
		EntryType:         e.EntryType,
		Status:            e.Status,
		FiscalYear:        e.FiscalYear,
		FiscalMonth:       e.FiscalMonth,
		SourceService:     e.SourceService,
		SourceReferenceID: e.SourceReferenceID,
		TotalDebit:        debits,
		TotalCredit:       credits,
		Lines:             lines,
		PostedBy:          e.PostedBy,
		PostedAt:          e.PostedAt,
		VoidedBy:          e.VoidedBy,
		VoidedAt:          e.VoidedAt,
		VoidReason:        e.VoidReason,
		CreatedAt:         e.CreatedAt,
		CreatedBy:         e.CreatedBy,
		LastUpdatedAt:     e.LastUpdatedAt,
		LastUpdatedBy:     e.LastUpdatedBy,
	}
}

// ToJournalEntryResponses converts a slice of entries.
func ToJournalEntryResponses(entries []domain.JournalEntry) []JournalEntryResponse {
	res := make([]JournalEntryResponse, len(entries))
	for i := range entries {
		res[i] = ToJournalEntryResponse(&entries[i])
	}
	return res
}

// ListJournalEntriesResponse wraps one page of entries.
type ListJournalEntriesResponse struct {
	Entries   []JournalEntryResponse `json:"entries"`
	NextToken *string                `json:"nextToken,omitempty"`
}
