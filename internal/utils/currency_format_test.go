package utils

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/ranlab/jgnash/internal/engine"
)

func TestFormatWithCurrencyPrecision(t *testing.T) {
	usd := engine.NewCurrencyNode("USD", 2)
	usd.SetPrefix("$")

	jpy := engine.NewCurrencyNode("JPY", 0)

	amount := decimal.RequireFromString("12.3456")
	assert.Equal(t, "$12.35", FormatWithCurrencyPrecision(amount, usd))
	assert.Equal(t, "12", FormatWithCurrencyPrecision(amount, jpy))
	assert.Equal(t, "12.3456", FormatWithCurrencyPrecision(amount, nil))
}

func TestFormatWithPrecision(t *testing.T) {
	amount := decimal.RequireFromString("12.345")
	assert.Equal(t, "12.35", FormatWithPrecision(amount, 2))
	assert.Equal(t, "12", FormatWithPrecision(amount, 0))
}
