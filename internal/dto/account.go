package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ranlab/jgnash/internal/engine"
	"github.com/ranlab/jgnash/internal/utils"
)

// CreateAccountRequest defines the data needed to create a new account.
type CreateAccountRequest struct {
	Name           string `json:"name" binding:"required"`
	AccountType    string `json:"accountType" binding:"required"`
	CurrencySymbol string `json:"currencySymbol" binding:"required"`
	ParentUUID     string `json:"parentUUID"`
	Description    string `json:"description"`
	Notes          string `json:"notes"`
	Code           int    `json:"code"`
	AccountNumber  string `json:"accountNumber"`
	BankID         string `json:"bankID"`
}

// ModifyAccountRequest carries the descriptive fields an update may change.
type ModifyAccountRequest struct {
	Name               *string `json:"name"`
	Description        *string `json:"description"`
	Notes              *string `json:"notes"`
	Code               *int    `json:"code"`
	AccountNumber      *string `json:"accountNumber"`
	Visible            *bool   `json:"visible"`
	Locked             *bool   `json:"locked"`
	Placeholder        *bool   `json:"placeholder"`
	ExcludedFromBudget *bool   `json:"excludedFromBudget"`
}

// MoveAccountRequest names the new parent for a move.
type MoveAccountRequest struct {
	NewParentUUID string `json:"newParentUUID" binding:"required"`
}

// SetAttributeRequest stores one string attribute on an account.
type SetAttributeRequest struct {
	Key   string `json:"key" binding:"required"`
	Value string `json:"value"`
}

// AccountResponse defines the data returned for an account.
type AccountResponse struct {
	UUID               string          `json:"uuid"`
	Name               string          `json:"name"`
	Path               string          `json:"path"`
	AccountType        string          `json:"accountType"`
	CurrencySymbol     string          `json:"currencySymbol"`
	ParentUUID         string          `json:"parentUUID,omitempty"`
	Description        string          `json:"description,omitempty"`
	Notes              string          `json:"notes,omitempty"`
	Code               int             `json:"code,omitempty"`
	AccountNumber      string          `json:"accountNumber,omitempty"`
	BankID             string          `json:"bankID,omitempty"`
	Visible            bool            `json:"visible"`
	Locked             bool            `json:"locked"`
	Placeholder        bool            `json:"placeholder"`
	ExcludedFromBudget bool            `json:"excludedFromBudget"`
	Balance            decimal.Decimal `json:"balance"`
	BalanceDisplay     string          `json:"balanceDisplay"`
	ReconciledBalance  decimal.Decimal `json:"reconciledBalance"`
	TransactionCount   int             `json:"transactionCount"`
	ChildCount         int             `json:"childCount"`
}

// ToAccountResponse converts an engine account to its response DTO.
func ToAccountResponse(a *engine.Account, path string) AccountResponse {
	resp := AccountResponse{
		UUID:               a.UUID(),
		Name:               a.Name(),
		Path:               path,
		AccountType:        string(a.AccountType()),
		Description:        a.Description(),
		Notes:              a.Notes(),
		Code:               a.Code(),
		AccountNumber:      a.AccountNumber(),
		BankID:             a.BankID(),
		Visible:            a.Visible(),
		Locked:             a.Locked(),
		Placeholder:        a.Placeholder(),
		ExcludedFromBudget: a.ExcludedFromBudget(),
		Balance:            a.Balance(),
		ReconciledBalance:  a.ReconciledBalance(),
		TransactionCount:   a.TransactionCount(),
		ChildCount:         a.ChildCount(),
	}
	if c := a.CurrencyNode(); c != nil {
		resp.CurrencySymbol = c.Symbol()
	}
	resp.BalanceDisplay = utils.FormatWithCurrencyPrecision(resp.Balance, a.CurrencyNode())
	if p := a.Parent(); p != nil {
		resp.ParentUUID = p.UUID()
	}
	return resp
}

// AccountBalanceResponse reports one account's own balance, optionally as
// of a past date.
type AccountBalanceResponse struct {
	AccountUUID    string          `json:"accountUUID"`
	CurrencySymbol string          `json:"currencySymbol"`
	Balance        decimal.Decimal `json:"balance"`
	AsOf           *time.Time      `json:"asOf,omitempty"`
}

// TreeBalanceResponse reports a recursive balance in a target currency.
type TreeBalanceResponse struct {
	AccountUUID    string          `json:"accountUUID"`
	CurrencySymbol string          `json:"currencySymbol"`
	Balance        decimal.Decimal `json:"balance"`
}
