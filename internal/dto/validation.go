package dto

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/SscSPs/commerce_ledger/internal/core/domain"
)

// RegisterValidators adds the ledger specific binding rules to gin's validator.
// It is safe to call more than once.
func RegisterValidators() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	_ = v.RegisterValidation("account_code", validateAccountCode)
	_ = v.RegisterValidation("fiscal_month", validateFiscalMonth)
}

// account_code: exactly four digits.
func validateAccountCode(fl validator.FieldLevel) bool {
	return domain.ValidAccountCode(fl.Field().String())
}

// fiscal_month: 1 through 12.
func validateFiscalMonth(fl validator.FieldLevel) bool {
	m := fl.Field().Int()
	return m >= 1 && m <= 12
}
