package domain

import (
	"regexp"
	"strings"
	"time"

	"github.com/SscSPs/commerce_ledger/internal/apperrors"
)

// AccountType defines the fundamental accounting type of an account.
type AccountType string

const (
	Asset     AccountType = "ASSET"
	Liability AccountType = "LIABILITY"
	Equity    AccountType = "EQUITY"
	Revenue   AccountType = "REVENUE"
	Expense   AccountType = "EXPENSE"
)

// IsValid reports whether t is a known account type.
func (t AccountType) IsValid() bool {
	switch t {
	case Asset, Liability, Equity, Revenue, Expense:
		return true
	}
	return false
}

// DefaultNormalBalance returns the conventional normal balance for the type.
func (t AccountType) DefaultNormalBalance() NormalBalance {
	if t == Asset || t == Expense {
		return NormalDebit
	}
	return NormalCredit
}

// NormalBalance is the side on which increases to an account are recorded.
type NormalBalance string

const (
	NormalDebit  NormalBalance = "DEBIT"
	NormalCredit NormalBalance = "CREDIT"
)

// AccountStatus is the lifecycle status of an account.
type AccountStatus string

const (
	AccountActive   AccountStatus = "ACTIVE"
	AccountInactive AccountStatus = "INACTIVE"
	AccountArchived AccountStatus = "ARCHIVED"
)

var accountCodePattern = regexp.MustCompile(`^[0-9]{4}$`)

// ValidAccountCode reports whether code has exactly four digits.
func ValidAccountCode(code string) bool {
	return accountCodePattern.MatchString(code)
}

// Account represents a chart-of-accounts entry.
type Account struct {
	AccountID       string        `json:"accountID"`
	Code            string        `json:"code"`
	Name            string        `json:"name"`
	AccountType     AccountType   `json:"accountType"`
	NormalBalance   NormalBalance `json:"normalBalance"`
	IsDetailAccount bool          `json:"isDetailAccount"`
	IsSystemAccount bool          `json:"isSystemAccount"`
	ParentAccountID string        `json:"parentAccountID,omitempty"`
	Level           int           `json:"level"`
	Description     string        `json:"description,omitempty"`
	Status          AccountStatus `json:"status"`
	AuditFields
}

// NewAccountParams holds the input for NewAccount.
type NewAccountParams struct {
	AccountID       string
	Code            string
	Name            string
	AccountType     AccountType
	NormalBalance   NormalBalance
	IsDetailAccount bool
	IsSystemAccount bool
	Parent          *Account
	Description     string
}

// NewAccount validates params and returns an Active account.
func NewAccount(p NewAccountParams, createdBy string, now time.Time) (*Account, error) {
	if !ValidAccountCode(p.Code) {
		return nil, apperrors.NewValidationError("INVALID_ACCOUNT_CODE", "account code %q must be exactly 4 digits", p.Code)
	}
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return nil, apperrors.NewValidationError("ACCOUNT_NAME_REQUIRED", "account name is required")
	}
	if !p.AccountType.IsValid() {
		return nil, apperrors.NewValidationError("INVALID_ACCOUNT_TYPE", "unknown account type %q", p.AccountType)
	}
	normal := p.NormalBalance
	if normal == "" {
		normal = p.AccountType.DefaultNormalBalance()
	}
	if normal != NormalDebit && normal != NormalCredit {
		return nil, apperrors.NewValidationError("INVALID_NORMAL_BALANCE", "unknown normal balance %q", normal)
	}

	account := &Account{
		AccountID:       p.AccountID,
		Code:            p.Code,
		Name:            name,
		AccountType:     p.AccountType,
		NormalBalance:   normal,
		IsDetailAccount: p.IsDetailAccount,
		IsSystemAccount: p.IsSystemAccount,
		Level:           1,
		Description:     p.Description,
		Status:          AccountActive,
		AuditFields:     newAuditFields(createdBy, now),
	}
	if p.Parent != nil {
		if p.Parent.IsDetailAccount {
			return nil, apperrors.NewValidationError("PARENT_IS_DETAIL", "detail account %s cannot have children", p.Parent.Code)
		}
		if p.Parent.AccountType != p.AccountType {
			return nil, apperrors.NewValidationError("PARENT_TYPE_MISMATCH", "parent account %s is %s, child is %s", p.Parent.Code, p.Parent.AccountType, p.AccountType)
		}
		account.ParentAccountID = p.Parent.AccountID
		account.Level = p.Parent.Level + 1
	}
	return account, nil
}

// CanReceivePostings reports whether journal lines may reference the account.
func (a *Account) CanReceivePostings() bool {
	return a.Status == AccountActive && a.IsDetailAccount
}

// EnsurePostable returns a StateError when the account cannot receive postings.
func (a *Account) EnsurePostable() error {
	if a.Status != AccountActive {
		return apperrors.NewStateError("ACCOUNT_NOT_ACTIVE", "account %s is %s", a.Code, a.Status)
	}
	if !a.IsDetailAccount {
		return apperrors.NewStateError("ACCOUNT_NOT_DETAIL", "account %s is a header account and cannot receive postings", a.Code)
	}
	return nil
}

// Rename updates the descriptive fields.
func (a *Account) Rename(name, description string, by string, now time.Time) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return apperrors.NewValidationError("ACCOUNT_NAME_REQUIRED", "account name is required")
	}
	if a.Status == AccountArchived {
		return apperrors.NewStateError("ACCOUNT_ARCHIVED", "account %s is archived", a.Code)
	}
	a.Name = name
	a.Description = description
	a.touch(by, now)
	return nil
}

// Deactivate moves an Active account to Inactive. System accounts never deactivate.
func (a *Account) Deactivate(by string, now time.Time) error {
	if a.IsSystemAccount {
		return apperrors.NewStateError("SYSTEM_ACCOUNT", "system account %s cannot be deactivated", a.Code)
	}
	if a.Status != AccountActive {
		return apperrors.NewStateError("ACCOUNT_NOT_ACTIVE", "account %s is %s", a.Code, a.Status)
	}
	a.Status = AccountInactive
	a.touch(by, now)
	return nil
}

// Activate moves an Inactive account back to Active.
func (a *Account) Activate(by string, now time.Time) error {
	if a.Status != AccountInactive {
		return apperrors.NewStateError("ACCOUNT_NOT_INACTIVE", "account %s is %s", a.Code, a.Status)
	}
	a.Status = AccountActive
	a.touch(by, now)
	return nil
}

// Archive requires the account to be Inactive first.
func (a *Account) Archive(by string, now time.Time) error {
	if a.IsSystemAccount {
		return apperrors.NewStateError("SYSTEM_ACCOUNT", "system account %s cannot be archived", a.Code)
	}
	if a.Status != AccountInactive {
		return apperrors.NewStateError("ACCOUNT_NOT_INACTIVE", "account %s must be inactive before archiving, is %s", a.Code, a.Status)
	}
	a.Status = AccountArchived
	a.touch(by, now)
	return nil
}

// EnsureDeletable rejects deletion of system accounts.
func (a *Account) EnsureDeletable() error {
	if a.IsSystemAccount {
		return apperrors.NewStateError("SYSTEM_ACCOUNT", "system account %s cannot be deleted", a.Code)
	}
	return nil
}
