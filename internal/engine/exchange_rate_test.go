package engine

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateIDGreaterSymbolFirst(t *testing.T) {
	eur := NewCurrencyNode("EUR", 2)
	dollar := NewCurrencyNode("USD", 2)

	// USD compares greater than EUR, so it leads regardless of order.
	assert.Equal(t, "USDEUR", rateID(dollar, eur))
	assert.Equal(t, "USDEUR", rateID(eur, dollar))
}

func TestExchangeRateInverseQuery(t *testing.T) {
	eur := NewCurrencyNode("EUR", 2)
	dollar := NewCurrencyNode("USD", 2)
	date := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	rate := newExchangeRate(dollar, eur)
	require.Equal(t, "USD", rate.BaseCurrency().Symbol())

	// 1 USD = 0.90 EUR.
	rate.addHistoryNode(newExchangeRateHistoryNode(date, decimal.RequireFromString("0.90")))

	forward, ok := rate.RateAsOf(dollar, date)
	require.True(t, ok)
	assert.True(t, forward.Equal(decimal.RequireFromString("0.90")))

	inverse, ok := rate.RateAsOf(eur, date)
	require.True(t, ok)
	expected := decimal.NewFromInt(1).DivRound(decimal.RequireFromString("0.90"), ratePrecision)
	assert.True(t, inverse.Equal(expected), "got %s want %s", inverse, expected)
}

func TestExchangeRateSameDateReplaces(t *testing.T) {
	eur := NewCurrencyNode("EUR", 2)
	dollar := NewCurrencyNode("USD", 2)
	date := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	rate := newExchangeRate(dollar, eur)
	first := newExchangeRateHistoryNode(date, decimal.RequireFromString("0.90"))
	require.Nil(t, rate.addHistoryNode(first))

	second := newExchangeRateHistoryNode(date, decimal.RequireFromString("0.92"))
	displaced := rate.addHistoryNode(second)
	require.Same(t, first, displaced)

	require.Len(t, rate.History(), 1)
	got, ok := rate.RateAsOf(dollar, date)
	require.True(t, ok)
	assert.True(t, got.Equal(decimal.RequireFromString("0.92")))
}

func TestExchangeRateClosestPriorFallback(t *testing.T) {
	eur := NewCurrencyNode("EUR", 2)
	dollar := NewCurrencyNode("USD", 2)

	rate := newExchangeRate(dollar, eur)
	rate.addHistoryNode(newExchangeRateHistoryNode(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), decimal.RequireFromString("0.90")))
	rate.addHistoryNode(newExchangeRateHistoryNode(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), decimal.RequireFromString("0.95")))

	got, ok := rate.RateAsOf(dollar, time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC))
	require.True(t, ok)
	assert.True(t, got.Equal(decimal.RequireFromString("0.90")))

	_, ok = rate.RateAsOf(dollar, time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC))
	assert.False(t, ok, "no observation on or before the date")
}

func TestLatestRateDefaultsToOne(t *testing.T) {
	eur := NewCurrencyNode("EUR", 2)
	dollar := NewCurrencyNode("USD", 2)
	rate := newExchangeRate(dollar, eur)

	assert.True(t, rate.LatestRate(dollar).Equal(decimal.NewFromInt(1)))
}
