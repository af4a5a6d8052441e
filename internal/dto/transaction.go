package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ranlab/jgnash/internal/engine"
)

// CreateEntryRequest defines one credit/debit leg of a transaction. For a
// same-currency entry only Amount is set; a cross-currency entry sets
// CreditAmount and DebitAmount explicitly.
type CreateEntryRequest struct {
	CreditAccountUUID string           `json:"creditAccountUUID" binding:"required"`
	DebitAccountUUID  string           `json:"debitAccountUUID" binding:"required"`
	Amount            *decimal.Decimal `json:"amount"`
	CreditAmount      *decimal.Decimal `json:"creditAmount"`
	DebitAmount       *decimal.Decimal `json:"debitAmount"`
	Memo              string           `json:"memo"`
}

// InvestmentRequest defines the investment detail of a trade transaction.
type InvestmentRequest struct {
	Action         string          `json:"action" binding:"required"`
	SecuritySymbol string          `json:"securitySymbol" binding:"required"`
	AccountUUID    string          `json:"accountUUID" binding:"required"`
	Price        decimal.Decimal `json:"price"`
	Quantity     decimal.Decimal `json:"quantity"`
}

// CreateTransactionRequest defines the data needed to record a transaction.
type CreateTransactionRequest struct {
	Date       time.Time            `json:"date" binding:"required"`
	Number     string               `json:"number"`
	Payee      string               `json:"payee"`
	Memo       string               `json:"memo"`
	Entries    []CreateEntryRequest `json:"entries" binding:"required,min=1,dive"`
	Investment *InvestmentRequest   `json:"investment"`
}

// SetReconciledRequest changes the reconciliation state of one side of a
// transaction.
type SetReconciledRequest struct {
	AccountUUID string `json:"accountUUID" binding:"required"`
	State       string `json:"state" binding:"required,oneof=N C R"`
}

// EntryResponse defines the data returned for a transaction entry.
type EntryResponse struct {
	CreditAccountUUID string          `json:"creditAccountUUID,omitempty"`
	DebitAccountUUID  string          `json:"debitAccountUUID,omitempty"`
	CreditAmount      decimal.Decimal `json:"creditAmount"`
	DebitAmount       decimal.Decimal `json:"debitAmount"`
	Memo              string          `json:"memo,omitempty"`
	Tag               string          `json:"tag"`
}

// InvestmentResponse defines the returned investment detail.
type InvestmentResponse struct {
	Action       string          `json:"action"`
	SecurityUUID string          `json:"securityUUID,omitempty"`
	AccountUUID  string          `json:"accountUUID,omitempty"`
	Price        decimal.Decimal `json:"price"`
	Quantity     decimal.Decimal `json:"quantity"`
}

// TransactionResponse defines the data returned for a transaction.
type TransactionResponse struct {
	UUID       string              `json:"uuid"`
	Date       time.Time           `json:"date"`
	Timestamp  time.Time           `json:"timestamp"`
	Number     string              `json:"number,omitempty"`
	Payee      string              `json:"payee,omitempty"`
	Memo       string              `json:"memo,omitempty"`
	Type       string              `json:"type"`
	Entries    []EntryResponse     `json:"entries"`
	Investment *InvestmentResponse `json:"investment,omitempty"`
}

// ToTransactionResponse converts an engine transaction to its response DTO.
func ToTransactionResponse(t *engine.Transaction) TransactionResponse {
	resp := TransactionResponse{
		UUID:      t.UUID(),
		Date:      t.Date(),
		Timestamp: t.Timestamp(),
		Number:    t.Number(),
		Payee:     t.Payee(),
		Memo:      t.Memo(),
		Type:      string(t.Type()),
	}
	for _, e := range t.Entries() {
		er := EntryResponse{
			CreditAmount: e.CreditAmount(),
			DebitAmount:  e.DebitAmount(),
			Memo:         e.Memo(),
			Tag:          string(e.Tag()),
		}
		if a := e.CreditAccount(); a != nil {
			er.CreditAccountUUID = a.UUID()
		}
		if a := e.DebitAccount(); a != nil {
			er.DebitAccountUUID = a.UUID()
		}
		resp.Entries = append(resp.Entries, er)
	}
	if d := t.Investment(); d != nil {
		ir := &InvestmentResponse{
			Action:   string(d.Action),
			Price:    d.Price,
			Quantity: d.Quantity,
		}
		if d.Security != nil {
			ir.SecurityUUID = d.Security.UUID()
		}
		if d.Account != nil {
			ir.AccountUUID = d.Account.UUID()
		}
		resp.Investment = ir
	}
	return resp
}

// ToListTransactionResponse converts a slice of transactions.
func ToListTransactionResponse(transactions []*engine.Transaction) []TransactionResponse {
	res := make([]TransactionResponse, len(transactions))
	for i, t := range transactions {
		res[i] = ToTransactionResponse(t)
	}
	return res
}
