package handlers

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// validCurrencySymbol accepts commodity symbols of 3 to 8 characters with a
// leading letter and the rest letters or digits. Dotted tickers like BRK.B
// are rejected; dots collide with the account path separator.
func validCurrencySymbol(fl validator.FieldLevel) bool {
	symbol := fl.Field().String()
	if len(symbol) < 3 || len(symbol) > 8 {
		return false
	}
	for i, r := range symbol {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func registerValidators() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("currencysymbol", validCurrencySymbol)
	}
}
