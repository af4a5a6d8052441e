package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ranlab/jgnash/internal/engine"
)

// SetExchangeRateRequest records one observed rate between two currencies:
// one unit of Base bought Rate units of Counter on Date.
type SetExchangeRateRequest struct {
	BaseSymbol    string          `json:"baseSymbol" binding:"required"`
	CounterSymbol string          `json:"counterSymbol" binding:"required"`
	Rate          decimal.Decimal `json:"rate" binding:"required"`
	Date          time.Time       `json:"date" binding:"required"`
}

// RateHistoryResponse defines one returned rate observation.
type RateHistoryResponse struct {
	Date time.Time       `json:"date"`
	Rate decimal.Decimal `json:"rate"`
}

// ExchangeRateResponse defines the data returned for a currency pair.
type ExchangeRateResponse struct {
	RateID        string                `json:"rateID"`
	BaseSymbol    string                `json:"baseSymbol"`
	CounterSymbol string                `json:"counterSymbol"`
	History       []RateHistoryResponse `json:"history"`
}

// ToExchangeRateResponse converts an engine rate pair to its response DTO.
func ToExchangeRateResponse(r *engine.ExchangeRate) ExchangeRateResponse {
	resp := ExchangeRateResponse{
		RateID:        r.RateID(),
		BaseSymbol:    r.BaseCurrency().Symbol(),
		CounterSymbol: r.CounterCurrency().Symbol(),
	}
	for _, n := range r.History() {
		resp.History = append(resp.History, RateHistoryResponse{Date: n.Date(), Rate: n.Rate()})
	}
	return resp
}

// RateQueryResponse answers a point-in-time conversion rate lookup.
type RateQueryResponse struct {
	FromSymbol string          `json:"fromSymbol"`
	ToSymbol   string          `json:"toSymbol"`
	Date       time.Time       `json:"date"`
	Rate       decimal.Decimal `json:"rate"`
}
