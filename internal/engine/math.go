package engine

import "github.com/shopspring/decimal"

// ratePrecision is the number of fractional digits kept when the engine
// divides amounts, most importantly when inverting exchange rates. Every
// division in the engine goes through divide so the precision is uniform.
const ratePrecision = 16

func divide(a, b decimal.Decimal) decimal.Decimal {
	return a.DivRound(b, ratePrecision)
}

func invert(rate decimal.Decimal) decimal.Decimal {
	return divide(decimal.NewFromInt(1), rate)
}
