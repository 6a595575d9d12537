// Package validator re-checks enum and required fields at the service
// layer, independent of whatever validation the transport performed.
package validator

import (
	"sync"

	"github.com/go-playground/validator/v10"

	"monetra/internal/models"
)

var (
	validate *validator.Validate
	once     sync.Once
)

// Get returns the shared validator with custom validations registered.
func Get() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("transaction_type", validateTransactionType)
		_ = validate.RegisterValidation("wallet_type", validateWalletType)
		_ = validate.RegisterValidation("frequency", validateFrequency)
	})
	return validate
}

// Struct validates a tagged input struct.
func Struct(s any) error {
	return Get().Struct(s)
}

func validateTransactionType(fl validator.FieldLevel) bool {
	return models.ValidTransactionType(models.TransactionType(fl.Field().String()))
}

func validateWalletType(fl validator.FieldLevel) bool {
	return models.ValidWalletType(models.WalletType(fl.Field().String()))
}

func validateFrequency(fl validator.FieldLevel) bool {
	return models.ValidFrequency(models.Frequency(fl.Field().String()))
}
