package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

// investmentShape captures the entry-shape constraints for one investment
// action. Shapes are looked up by action, which keeps the constraint set
// declarative instead of spread over per-variant code.
type investmentShape struct {
	requiresQuantity bool
	requiresPrice    bool
	shareDelta       int // +1 adds shares, -1 removes shares, 0 cash only
	allowsCashLegs   bool
}

var investmentShapes = map[InvestmentAction]investmentShape{
	ActionBuy:             {requiresQuantity: true, requiresPrice: true, shareDelta: +1, allowsCashLegs: true},
	ActionSell:            {requiresQuantity: true, requiresPrice: true, shareDelta: -1, allowsCashLegs: true},
	ActionDividend:        {shareDelta: 0, allowsCashLegs: true},
	ActionReinvestDiv:     {requiresQuantity: true, requiresPrice: true, shareDelta: +1, allowsCashLegs: true},
	ActionSplitShare:      {requiresQuantity: true, shareDelta: +1},
	ActionMergeShare:      {requiresQuantity: true, shareDelta: -1},
	ActionAddShare:        {requiresQuantity: true, shareDelta: +1},
	ActionRemoveShare:     {requiresQuantity: true, shareDelta: -1},
	ActionReturnOfCapital: {shareDelta: 0, allowsCashLegs: true},
}

// validInvestmentDetail checks an investment transaction against its
// action's shape. The account must actually hold the security; the engine
// checks that separately because it owns the account's security set.
func validInvestmentDetail(detail *InvestmentDetail, entries []*TransactionEntry) bool {
	if detail == nil {
		return true
	}
	if detail.Security == nil || detail.Account == nil {
		return false
	}
	shape, ok := investmentShapes[detail.Action]
	if !ok {
		return false
	}
	if shape.requiresQuantity && !detail.Quantity.IsPositive() {
		return false
	}
	if shape.requiresPrice && !detail.Price.IsPositive() {
		return false
	}
	if !shape.allowsCashLegs && len(entries) > 0 {
		for _, e := range entries {
			if e.Tag() != TagInvestment {
				return false
			}
		}
	}
	return true
}

// shareDelta returns the signed share count change an investment transaction
// applies to a position.
func shareDelta(detail *InvestmentDetail) decimal.Decimal {
	shape, ok := investmentShapes[detail.Action]
	if !ok || shape.shareDelta == 0 {
		return decimal.Decimal{}
	}
	if shape.shareDelta < 0 {
		return detail.Quantity.Neg()
	}
	return detail.Quantity
}

// position sums the share quantity held in a security over the investment
// transactions dated on or before the given date.
func position(transactions []*Transaction, security *SecurityNode, date time.Time) decimal.Decimal {
	day := dateOnly(date)
	sum := decimal.Decimal{}
	for _, t := range transactions {
		d := t.Investment()
		if d == nil || d.Security != security || t.Date().After(day) {
			continue
		}
		sum = sum.Add(shareDelta(d))
	}
	return sum
}

// MarketPrice resolves the price of a security on a date, in baseCurrency.
// An exact history node wins outright. Otherwise the closest prior node is
// the baseline, superseded by any investment transaction in the security
// with a later date (but not after the request) and a positive price, since
// a traded price is more current than stale history while a dividend's zero
// price must never override a real baseline. The result is scaled from the
// security's reporting currency into baseCurrency.
func MarketPrice(transactions []*Transaction, security *SecurityNode, baseCurrency *CurrencyNode, date time.Time, rates RateSource) decimal.Decimal {
	day := dateOnly(date)

	if node := security.HistoryNode(day); node != nil {
		return convertAmount(node.Price(), security.ReportedCurrency(), baseCurrency, rates)
	}

	price := decimal.Decimal{}
	priceDate := time.Time{}
	if node := security.ClosestHistoryNode(day); node != nil {
		price = node.Price()
		priceDate = node.Date()
	}

	for _, t := range transactions {
		d := t.Investment()
		if d == nil || d.Security != security {
			continue
		}
		if t.Date().After(day) || !t.Date().After(priceDate) {
			continue
		}
		if d.Price.IsPositive() {
			price = d.Price
			priceDate = t.Date()
		}
	}

	return convertAmount(price, security.ReportedCurrency(), baseCurrency, rates)
}
