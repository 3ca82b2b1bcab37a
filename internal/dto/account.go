package dto

import (
	"time"

	"github.com/SscSPs/commerce_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/commerce_ledger/internal/core/ports/services"
)

// CreateAccountRequest defines the data needed to create a new account.
type CreateAccountRequest struct {
	Code            string               `json:"code" binding:"required,account_code"`
	Name            string               `json:"name" binding:"required"`
	AccountType     domain.AccountType   `json:"accountType" binding:"required,oneof=ASSET LIABILITY EQUITY REVENUE EXPENSE"`
	NormalBalance   domain.NormalBalance `json:"normalBalance" binding:"omitempty,oneof=DEBIT CREDIT"` // defaults from accountType
	IsDetailAccount bool                 `json:"isDetailAccount"`
	IsSystemAccount bool                 `json:"isSystemAccount"`
	ParentAccountID string               `json:"parentAccountID"`
	Description     string               `json:"description"`
}

// ToCommand converts the request into the service command.
func (r CreateAccountRequest) ToCommand(userID string) portssvc.CreateAccountCommand {
	return portssvc.CreateAccountCommand{
		Code:            r.Code,
		Name:            r.Name,
		AccountType:     r.AccountType,
		NormalBalance:   r.NormalBalance,
		IsDetailAccount: r.IsDetailAccount,
		IsSystemAccount: r.IsSystemAccount,
		ParentAccountID: r.ParentAccountID,
		Description:     r.Description,
		CreatedBy:       userID,
	}
}

// UpdateAccountRequest defines the data allowed for updating an account.
// Code, type and normal balance are fixed once the account exists.
type UpdateAccountRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// AccountResponse defines the data returned for an account.
type AccountResponse struct {
	AccountID       string               `json:"accountID"`
	Code            string               `json:"code"`
	Name            string               `json:"name"`
	AccountType     domain.AccountType   `json:"accountType"`
	NormalBalance   domain.NormalBalance `json:"normalBalance"`
	IsDetailAccount bool                 `json:"isDetailAccount"`
	IsSystemAccount bool                 `json:"isSystemAccount"`
	ParentAccountID string               `json:"parentAccountID,omitempty"`
	Level           int                  `json:"level"`
	Description     string               `json:"description"`
	Status          domain.AccountStatus `json:"status"`
	CreatedAt       time.Time            `json:"createdAt"`
	CreatedBy       string               `json:"createdBy"`
	LastUpdatedAt   time.Time            `json:"lastUpdatedAt"`
	LastUpdatedBy   string               `json:"lastUpdatedBy"`
}

// ToAccountResponse converts a domain.Account to AccountResponse DTO
func ToAccountResponse(acc *domain.Account) AccountResponse {
	return AccountResponse{
		AccountID:       acc.AccountID,
		Code:            acc.Code,
		Name:            acc.Name,
		AccountType:     acc.AccountType,
		NormalBalance:   acc.NormalBalance,
		IsDetailAccount: acc.IsDetailAccount,
		IsSystemAccount: acc.IsSystemAccount,
		ParentAccountID: acc.ParentAccountID,
		Level:           acc.Level,
		Description:     acc.Description,
		Status:          acc.Status,
		CreatedAt:       acc.CreatedAt,
		CreatedBy:       acc.CreatedBy,
		LastUpdatedAt:   acc.LastUpdatedAt,
		LastUpdatedBy:   acc.LastUpdatedBy,
	}
}

// ToListAccountResponse converts a slice of domain.Account to a slice of AccountResponse DTOs
func ToListAccountResponse(accounts []domain.Account) []AccountResponse {
	res := make([]AccountResponse, len(accounts))
	for i := range accounts {
		res[i] = ToAccountResponse(&accounts[i])
	}
	return res
}

// ListAccountsParams defines query parameters for listing accounts.
// When Code is set the list holds at most the one account with that code.
type ListAccountsParams struct {
	Limit  int    `form:"limit,default=20" binding:"min=1,max=500"`
	Offset int    `form:"offset,default=0" binding:"min=0"`
	Code   string `form:"code" binding:"omitempty,account_code"`
}

// ListAccountsResponse wraps the list of accounts.
type ListAccountsResponse struct {
	Accounts []AccountResponse `json:"accounts"`
}
