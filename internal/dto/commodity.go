package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ranlab/jgnash/internal/engine"
)

// CreateCurrencyRequest defines the data needed to register a currency.
type CreateCurrencyRequest struct {
	Symbol      string `json:"symbol" binding:"required,currencysymbol"`
	Scale       int32  `json:"scale" binding:"gte=0,lte=8"`
	Description string `json:"description"`
	Prefix      string `json:"prefix"`
	Suffix      string `json:"suffix"`
}

// CurrencyResponse defines the data returned for a currency.
type CurrencyResponse struct {
	UUID        string `json:"uuid"`
	Symbol      string `json:"symbol"`
	Scale       int32  `json:"scale"`
	Description string `json:"description,omitempty"`
	Prefix      string `json:"prefix,omitempty"`
	Suffix      string `json:"suffix,omitempty"`
}

// ToCurrencyResponse converts an engine currency to its response DTO.
func ToCurrencyResponse(c *engine.CurrencyNode) CurrencyResponse {
	return CurrencyResponse{
		UUID:        c.UUID(),
		Symbol:      c.Symbol(),
		Scale:       c.Scale(),
		Description: c.Description(),
		Prefix:      c.Prefix(),
		Suffix:      c.Suffix(),
	}
}

// ToListCurrencyResponse converts a slice of currencies.
func ToListCurrencyResponse(currencies []*engine.CurrencyNode) []CurrencyResponse {
	res := make([]CurrencyResponse, len(currencies))
	for i, c := range currencies {
		res[i] = ToCurrencyResponse(c)
	}
	return res
}

// CreateSecurityRequest defines the data needed to register a security.
type CreateSecurityRequest struct {
	Symbol         string `json:"symbol" binding:"required"`
	Scale          int32  `json:"scale" binding:"gte=0,lte=8"`
	CurrencySymbol string `json:"currencySymbol" binding:"required"`
	Description    string `json:"description"`
	QuoteSource    string `json:"quoteSource"`
}

// SecurityHistoryRequest records one price observation for a security.
type SecurityHistoryRequest struct {
	Date   time.Time       `json:"date" binding:"required"`
	Price  decimal.Decimal `json:"price" binding:"required"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Volume int64           `json:"volume"`
}

// SecurityHistoryResponse defines one returned price observation.
type SecurityHistoryResponse struct {
	Date   time.Time       `json:"date"`
	Price  decimal.Decimal `json:"price"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Volume int64           `json:"volume"`
}

// SecurityResponse defines the data returned for a security.
type SecurityResponse struct {
	UUID           string                    `json:"uuid"`
	Symbol         string                    `json:"symbol"`
	Scale          int32                     `json:"scale"`
	CurrencySymbol string                    `json:"currencySymbol,omitempty"`
	Description    string                    `json:"description,omitempty"`
	QuoteSource    string                    `json:"quoteSource,omitempty"`
	History        []SecurityHistoryResponse `json:"history,omitempty"`
}

// ToSecurityResponse converts an engine security to its response DTO.
func ToSecurityResponse(s *engine.SecurityNode) SecurityResponse {
	resp := SecurityResponse{
		UUID:        s.UUID(),
		Symbol:      s.Symbol(),
		Scale:       s.Scale(),
		Description: s.Description(),
		QuoteSource: s.QuoteSource(),
	}
	if c := s.ReportedCurrency(); c != nil {
		resp.CurrencySymbol = c.Symbol()
	}
	for _, n := range s.History() {
		resp.History = append(resp.History, SecurityHistoryResponse{
			Date:   n.Date(),
			Price:  n.Price(),
			High:   n.High(),
			Low:    n.Low(),
			Volume: n.Volume(),
		})
	}
	return resp
}

// SecurityPriceResponse answers a market price lookup.
type SecurityPriceResponse struct {
	SecuritySymbol string          `json:"securitySymbol"`
	CurrencySymbol string          `json:"currencySymbol"`
	Date           time.Time       `json:"date"`
	Price          decimal.Decimal `json:"price"`
}

// ToListSecurityResponse converts a slice of securities. Histories are
// omitted from list views.
func ToListSecurityResponse(securities []*engine.SecurityNode) []SecurityResponse {
	res := make([]SecurityResponse, len(securities))
	for i, s := range securities {
		res[i] = SecurityResponse{
			UUID:        s.UUID(),
			Symbol:      s.Symbol(),
			Scale:       s.Scale(),
			Description: s.Description(),
			QuoteSource: s.QuoteSource(),
		}
		if c := s.ReportedCurrency(); c != nil {
			res[i].CurrencySymbol = c.Symbol()
		}
	}
	return res
}
