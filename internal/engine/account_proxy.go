package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

// accountProxy is the balance strategy selected by account group. The
// transaction slice is passed in because the caller already holds the
// account's transaction lock.
type accountProxy interface {
	balance(a *Account, transactions []*Transaction) decimal.Decimal
	reconciledBalance(a *Account, transactions []*Transaction) decimal.Decimal
}

// standardProxy sums the signed entry amounts; used by every non-investment
// group.
type standardProxy struct{}

func (standardProxy) balance(a *Account, transactions []*Transaction) decimal.Decimal {
	sum := decimal.Decimal{}
	for _, t := range transactions {
		sum = sum.Add(t.Amount(a))
	}
	return sum
}

func (standardProxy) reconciledBalance(a *Account, transactions []*Transaction) decimal.Decimal {
	sum := decimal.Decimal{}
	for _, t := range transactions {
		for _, e := range t.Entries() {
			if e.Reconciled(a) == Reconciled {
				sum = sum.Add(e.Amount(a))
			}
		}
	}
	return sum
}

// investmentProxy values an investment account as its cash legs plus the
// market value of the held securities at today's prices.
type investmentProxy struct{}

func (investmentProxy) balance(a *Account, transactions []*Transaction) decimal.Decimal {
	cash := standardProxy{}.balance(a, transactions)
	return cash.Add(marketValue(a, transactions, time.Now(), a.rates))
}

func (investmentProxy) reconciledBalance(a *Account, transactions []*Transaction) decimal.Decimal {
	return standardProxy{}.reconciledBalance(a, transactions)
}

// marketValue prices every held security position as of the date in the
// account's currency.
func marketValue(a *Account, transactions []*Transaction, date time.Time, rates RateSource) decimal.Decimal {
	sum := decimal.Decimal{}
	for _, security := range a.Securities() {
		quantity := position(transactions, security, date)
		if quantity.IsZero() {
			continue
		}
		price := MarketPrice(transactions, security, a.CurrencyNode(), date, rates)
		sum = sum.Add(quantity.Mul(price))
	}
	return sum
}
