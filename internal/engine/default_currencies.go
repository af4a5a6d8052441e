package engine

import "github.com/Rhymond/go-money"

// defaultCurrencyCodes are the ISO currencies seeded into a new ledger.
var defaultCurrencyCodes = []string{
	"AUD", "BRL", "CAD", "CHF", "CNY", "CZK", "DKK", "EUR", "GBP", "HKD",
	"HUF", "INR", "JPY", "KRW", "MXN", "NOK", "NZD", "PLN", "RUB", "SEK",
	"SGD", "THB", "TRY", "USD", "ZAR",
}

// defaultCurrencyNode builds a currency node from the ISO metadata for the
// code, or nil when the code is unknown.
func defaultCurrencyNode(code string) *CurrencyNode {
	currency := money.GetCurrency(code)
	if currency == nil {
		return nil
	}
	node := NewCurrencyNode(currency.Code, int32(currency.Fraction))
	node.SetDescription(currency.Code)
	node.SetPrefix(currency.Grapheme)
	return node
}

// DefaultCurrencies returns fresh nodes for the seed list, for callers
// populating a new ledger with the common ISO currencies.
func DefaultCurrencies() []*CurrencyNode {
	out := make([]*CurrencyNode, 0, len(defaultCurrencyCodes))
	for _, code := range defaultCurrencyCodes {
		if node := defaultCurrencyNode(code); node != nil {
			out = append(out, node)
		}
	}
	return out
}
