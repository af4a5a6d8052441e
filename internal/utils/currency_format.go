package utils

import (
	"github.com/shopspring/decimal"

	"github.com/ranlab/jgnash/internal/engine"
)

// FormatWithCurrencyPrecision formats an amount rounded to the currency's
// scale, wrapped in its prefix and suffix.
// Example: amount 12.3456 with USD (scale 2, prefix "$") returns "$12.35"
// Example: amount 12.3456 with JPY (scale 0, prefix "¥") returns "¥12"
func FormatWithCurrencyPrecision(amount decimal.Decimal, currency *engine.CurrencyNode) string {
	if currency == nil {
		return amount.String()
	}
	return currency.Prefix() + amount.Round(currency.Scale()).String() + currency.Suffix()
}

// FormatWithPrecision formats an amount with the given precision.
// This is a convenience function when you only have the scale value.
func FormatWithPrecision(amount decimal.Decimal, precision int32) string {
	return amount.Round(precision).String()
}
