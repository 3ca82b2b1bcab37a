package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/SscSPs/commerce_ledger/internal/apperrors"
)

// PeriodRef identifies a fiscal period by year and month.
type PeriodRef struct {
	Year  int `json:"fiscalYear"`
	Month int `json:"fiscalMonth"`
}

// NewPeriodRef validates year and month.
func NewPeriodRef(year, month int) (PeriodRef, error) {
	if month < 1 || month > 12 {
		return PeriodRef{}, apperrors.NewValidationError("INVALID_FISCAL_MONTH", "fiscal month %d must be between 1 and 12", month)
	}
	if year < 1900 || year > 9999 {
		return PeriodRef{}, apperrors.NewValidationError("INVALID_FISCAL_YEAR", "fiscal year %d is out of range", year)
	}
	return PeriodRef{Year: year, Month: month}, nil
}

// PeriodOf returns the calendar-month period containing t.
func PeriodOf(t time.Time) PeriodRef {
	return PeriodRef{Year: t.Year(), Month: int(t.Month())}
}

// Previous returns the period immediately before p.
func (p PeriodRef) Previous() PeriodRef {
	if p.Month == 1 {
		return PeriodRef{Year: p.Year - 1, Month: 12}
	}
	return PeriodRef{Year: p.Year, Month: p.Month - 1}
}

// Before reports whether p precedes other.
func (p PeriodRef) Before(other PeriodRef) bool {
	if p.Year != other.Year {
		return p.Year < other.Year
	}
	return p.Month < other.Month
}

// StartDate is the first day of the period in UTC.
func (p PeriodRef) StartDate() time.Time {
	return time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, time.UTC)
}

// EndDate is the last day of the period in UTC.
func (p PeriodRef) EndDate() time.Time {
	return p.StartDate().AddDate(0, 1, -1)
}

func (p PeriodRef) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

// FiscalPeriodStatus is the lifecycle status of a fiscal period.
type FiscalPeriodStatus string

const (
	PeriodOpen   FiscalPeriodStatus = "OPEN"
	PeriodClosed FiscalPeriodStatus = "CLOSED"
	PeriodLocked FiscalPeriodStatus = "LOCKED"
)

// FiscalPeriod is a year+month accounting window.
type FiscalPeriod struct {
	FiscalPeriodID string             `json:"fiscalPeriodID"`
	FiscalYear     int                `json:"fiscalYear"`
	FiscalMonth    int                `json:"fiscalMonth"`
	Status         FiscalPeriodStatus `json:"status"`
	ClosedBy       *string            `json:"closedBy,omitempty"`
	ClosedAt       *time.Time         `json:"closedAt,omitempty"`
	ReopenedBy     *string            `json:"reopenedBy,omitempty"`
	ReopenedAt     *time.Time         `json:"reopenedAt,omitempty"`
	ReopenReason   *string            `json:"reopenReason,omitempty"`
	LockedBy       *string            `json:"lockedBy,omitempty"`
	LockedAt       *time.Time         `json:"lockedAt,omitempty"`
	AuditFields
	AggregateRoot `json:"-"`
}

// FiscalPeriodTransition is the payload of period lifecycle events.
type FiscalPeriodTransition struct {
	FiscalPeriodID string             `json:"fiscalPeriodID"`
	FiscalYear     int                `json:"fiscalYear"`
	FiscalMonth    int                `json:"fiscalMonth"`
	From           FiscalPeriodStatus `json:"from"`
	To             FiscalPeriodStatus `json:"to"`
	By             string             `json:"by"`
	Reason         string             `json:"reason,omitempty"`
	At             time.Time          `json:"at"`
}

// NewFiscalPeriod returns an Open period.
func NewFiscalPeriod(id string, ref PeriodRef, createdBy string, now time.Time) *FiscalPeriod {
	return &FiscalPeriod{
		FiscalPeriodID: id,
		FiscalYear:     ref.Year,
		FiscalMonth:    ref.Month,
		Status:         PeriodOpen,
		AuditFields:    newAuditFields(createdBy, now),
	}
}

// Ref returns the period's year and month.
func (p *FiscalPeriod) Ref() PeriodRef {
	return PeriodRef{Year: p.FiscalYear, Month: p.FiscalMonth}
}

// IsOpen reports whether entries may be posted into the period.
func (p *FiscalPeriod) IsOpen() bool {
	return p.Status == PeriodOpen
}

// EnsureOpen fails with a StateError unless the period is Open.
func (p *FiscalPeriod) EnsureOpen() error {
	if !p.IsOpen() {
		return apperrors.NewStateError("PERIOD_NOT_OPEN", "fiscal period %s is %s", p.Ref(), p.Status)
	}
	return nil
}

// Close moves an Open period to Closed.
func (p *FiscalPeriod) Close(closedBy string, now time.Time) error {
	if p.Status != PeriodOpen {
		return apperrors.NewStateError("PERIOD_NOT_OPEN", "cannot close fiscal period %s: status is %s", p.Ref(), p.Status)
	}
	p.Status = PeriodClosed
	p.ClosedBy = stringPtr(closedBy)
	p.ClosedAt = timePtr(now)
	p.touch(closedBy, now)
	p.record(EventFiscalPeriodClosed, PeriodOpen, closedBy, "", now)
	return nil
}

// Reopen moves a Closed period back to Open. A reason is mandatory.
func (p *FiscalPeriod) Reopen(reopenedBy, reason string, now time.Time) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return apperrors.NewValidationError("REOPEN_REASON_REQUIRED", "a reason is required to reopen fiscal period %s", p.Ref())
	}
	if p.Status != PeriodClosed {
		return apperrors.NewStateError("PERIOD_NOT_CLOSED", "cannot reopen fiscal period %s: status is %s", p.Ref(), p.Status)
	}
	p.Status = PeriodOpen
	p.ReopenedBy = stringPtr(reopenedBy)
	p.ReopenedAt = timePtr(now)
	p.ReopenReason = stringPtr(reason)
	p.touch(reopenedBy, now)
	p.record(EventFiscalPeriodReopened, PeriodClosed, reopenedBy, reason, now)
	return nil
}

// Lock moves a Closed period to Locked. There is no way back.
func (p *FiscalPeriod) Lock(lockedBy string, now time.Time) error {
	if p.Status != PeriodClosed {
		return apperrors.NewStateError("PERIOD_NOT_CLOSED", "cannot lock fiscal period %s: status is %s", p.Ref(), p.Status)
	}
	p.Status = PeriodLocked
	p.LockedBy = stringPtr(lockedBy)
	p.LockedAt = timePtr(now)
	p.touch(lockedBy, now)
	p.record(EventFiscalPeriodLocked, PeriodClosed, lockedBy, "", now)
	return nil
}

func (p *FiscalPeriod) record(eventType string, from FiscalPeriodStatus, by, reason string, now time.Time) {
	p.RecordEvent(mustEvent(eventType, AggregateFiscalPeriod, p.FiscalPeriodID, FiscalPeriodTransition{
		FiscalPeriodID: p.FiscalPeriodID,
		FiscalYear:     p.FiscalYear,
		FiscalMonth:    p.FiscalMonth,
		From:           from,
		To:             p.Status,
		By:             by,
		Reason:         reason,
		At:             now,
	}, now))
}
