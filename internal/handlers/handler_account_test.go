package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/ranlab/jgnash/internal/dto"
	"github.com/ranlab/jgnash/internal/engine"
	"github.com/ranlab/jgnash/internal/handlers"
	"github.com/ranlab/jgnash/internal/storage/memory"
)

type HandlerTestSuite struct {
	suite.Suite
	engine *engine.Engine
	router *gin.Engine
}

func (s *HandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	e, err := engine.New(context.Background(), memory.New(), engine.Config{
		Name:               uuid.NewString(),
		TrashRetention:     time.Hour,
		TrashSweepInterval: time.Hour,
	}, nil)
	require.NoError(s.T(), err)
	s.engine = e

	s.router = gin.New()
	handlers.RegisterRoutes(s.router, e)
}

func (s *HandlerTestSuite) TearDownTest() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(s.T(), s.engine.Shutdown(ctx))
}

func (s *HandlerTestSuite) request(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.T(), json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerTestSuite) createAccount(name, accountType string) dto.AccountResponse {
	rec := s.request(http.MethodPost, "/api/v1/accounts", dto.CreateAccountRequest{
		Name:           name,
		AccountType:    accountType,
		CurrencySymbol: "USD",
	})
	require.Equal(s.T(), http.StatusCreated, rec.Code, rec.Body.String())
	var resp dto.AccountResponse
	require.NoError(s.T(), json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func (s *HandlerTestSuite) TestHealth() {
	rec := s.request(http.MethodGet, "/health", nil)
	s.Equal(http.StatusOK, rec.Code)
}

func (s *HandlerTestSuite) TestCreateAccount() {
	resp := s.createAccount("Checking", "BANK")

	s.NotEmpty(resp.UUID)
	s.Equal("Checking", resp.Name)
	s.Equal("BANK", resp.AccountType)
	s.Equal("USD", resp.CurrencySymbol)

	rec := s.request(http.MethodGet, "/api/v1/accounts/"+resp.UUID, nil)
	s.Equal(http.StatusOK, rec.Code)
}

func (s *HandlerTestSuite) TestCreateAccountRejectsUnknownCurrency() {
	rec := s.request(http.MethodPost, "/api/v1/accounts", dto.CreateAccountRequest{
		Name:           "Checking",
		AccountType:    "BANK",
		CurrencySymbol: "XXX",
	})
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *HandlerTestSuite) TestGetAccountNotFound() {
	rec := s.request(http.MethodGet, "/api/v1/accounts/"+uuid.NewString(), nil)
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *HandlerTestSuite) TestCreateTransactionMovesBalance() {
	checking := s.createAccount("Checking", "BANK")
	groceries := s.createAccount("Groceries", "EXPENSE")

	// Credit increases the credited account, so spending out of checking
	// puts checking on the debit side.
	amount := decimal.RequireFromString("42.50")
	rec := s.request(http.MethodPost, "/api/v1/transactions", dto.CreateTransactionRequest{
		Date:  time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC),
		Payee: "Market",
		Entries: []dto.CreateEntryRequest{{
			CreditAccountUUID: groceries.UUID,
			DebitAccountUUID:  checking.UUID,
			Amount:            &amount,
		}},
	})
	require.Equal(s.T(), http.StatusCreated, rec.Code, rec.Body.String())

	var tx dto.TransactionResponse
	require.NoError(s.T(), json.Unmarshal(rec.Body.Bytes(), &tx))
	s.Equal("Market", tx.Payee)
	s.Len(tx.Entries, 1)

	get := s.request(http.MethodGet, "/api/v1/accounts/"+checking.UUID, nil)
	var after dto.AccountResponse
	require.NoError(s.T(), json.Unmarshal(get.Body.Bytes(), &after))
	s.True(after.Balance.Equal(amount.Neg()), "balance %s", after.Balance)
}

func (s *HandlerTestSuite) TestCreateTransactionRejectsEntryWithoutAmount() {
	checking := s.createAccount("Checking", "BANK")
	groceries := s.createAccount("Groceries", "EXPENSE")

	rec := s.request(http.MethodPost, "/api/v1/transactions", dto.CreateTransactionRequest{
		Date: time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC),
		Entries: []dto.CreateEntryRequest{{
			CreditAccountUUID: checking.UUID,
			DebitAccountUUID:  groceries.UUID,
		}},
	})
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerTestSuite) TestLockedAccountRejectsTransaction() {
	checking := s.createAccount("Checking", "BANK")
	groceries := s.createAccount("Groceries", "EXPENSE")

	locked := true
	rec := s.request(http.MethodPatch, "/api/v1/accounts/"+checking.UUID, dto.ModifyAccountRequest{Locked: &locked})
	require.Equal(s.T(), http.StatusOK, rec.Code, rec.Body.String())

	amount := decimal.NewFromInt(5)
	rec = s.request(http.MethodPost, "/api/v1/transactions", dto.CreateTransactionRequest{
		Date: time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC),
		Entries: []dto.CreateEntryRequest{{
			CreditAccountUUID: checking.UUID,
			DebitAccountUUID:  groceries.UUID,
			Amount:            &amount,
		}},
	})
	s.Equal(http.StatusLocked, rec.Code)
}

func (s *HandlerTestSuite) TestRemoveAccountWithTransactionsConflicts() {
	checking := s.createAccount("Checking", "BANK")
	groceries := s.createAccount("Groceries", "EXPENSE")

	amount := decimal.NewFromInt(5)
	rec := s.request(http.MethodPost, "/api/v1/transactions", dto.CreateTransactionRequest{
		Date: time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC),
		Entries: []dto.CreateEntryRequest{{
			CreditAccountUUID: checking.UUID,
			DebitAccountUUID:  groceries.UUID,
			Amount:            &amount,
		}},
	})
	require.Equal(s.T(), http.StatusCreated, rec.Code)

	rec = s.request(http.MethodDelete, "/api/v1/accounts/"+checking.UUID, nil)
	s.Equal(http.StatusConflict, rec.Code)
}

func (s *HandlerTestSuite) TestDuplicateCurrencyConflicts() {
	rec := s.request(http.MethodPost, "/api/v1/currencies", dto.CreateCurrencyRequest{Symbol: "EUR", Scale: 2})
	require.Equal(s.T(), http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.request(http.MethodPost, "/api/v1/currencies", dto.CreateCurrencyRequest{Symbol: "eur", Scale: 2})
	s.Equal(http.StatusConflict, rec.Code)
}

func (s *HandlerTestSuite) TestExchangeRateQuery() {
	rec := s.request(http.MethodPost, "/api/v1/currencies", dto.CreateCurrencyRequest{Symbol: "EUR", Scale: 2})
	require.Equal(s.T(), http.StatusCreated, rec.Code)

	rec = s.request(http.MethodPut, "/api/v1/exchange-rates", dto.SetExchangeRateRequest{
		BaseSymbol:    "USD",
		CounterSymbol: "EUR",
		Rate:          decimal.RequireFromString("0.90"),
		Date:          time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC),
	})
	require.Equal(s.T(), http.StatusOK, rec.Code, rec.Body.String())

	rec = s.request(http.MethodGet, "/api/v1/exchange-rates/query?from=USD&to=EUR&date=2026-02-15", nil)
	require.Equal(s.T(), http.StatusOK, rec.Code, rec.Body.String())

	var resp dto.RateQueryResponse
	require.NoError(s.T(), json.Unmarshal(rec.Body.Bytes(), &resp))
	s.True(resp.Rate.Equal(decimal.RequireFromString("0.90")), "rate %s", resp.Rate)

	rec = s.request(http.MethodGet, "/api/v1/exchange-rates/query?from=USD&to=EUR&date=2026-01-15", nil)
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *HandlerTestSuite) TestRemovedAccountShowsInTrash() {
	empty := s.createAccount("Old Savings", "BANK")

	rec := s.request(http.MethodDelete, "/api/v1/accounts/"+empty.UUID, nil)
	require.Equal(s.T(), http.StatusNoContent, rec.Code)

	rec = s.request(http.MethodGet, "/api/v1/trash", nil)
	require.Equal(s.T(), http.StatusOK, rec.Code)

	var trash []dto.TrashObjectResponse
	require.NoError(s.T(), json.Unmarshal(rec.Body.Bytes(), &trash))
	require.Len(s.T(), trash, 1)
	s.Equal(empty.UUID, trash[0].ObjectUUID)
	s.Equal("ACCOUNT", trash[0].ObjectType)
}

func (s *HandlerTestSuite) TestAccountBalanceAsOf() {
	checking := s.createAccount("Checking", "BANK")
	groceries := s.createAccount("Groceries", "EXPENSE")

	amount := decimal.RequireFromString("42.50")
	rec := s.request(http.MethodPost, "/api/v1/transactions", dto.CreateTransactionRequest{
		Date: time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC),
		Entries: []dto.CreateEntryRequest{{
			CreditAccountUUID: groceries.UUID,
			DebitAccountUUID:  checking.UUID,
			Amount:            &amount,
		}},
	})
	require.Equal(s.T(), http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.request(http.MethodGet, "/api/v1/accounts/"+checking.UUID+"/balance?asOf=2026-02-01", nil)
	require.Equal(s.T(), http.StatusOK, rec.Code, rec.Body.String())
	var before dto.AccountBalanceResponse
	require.NoError(s.T(), json.Unmarshal(rec.Body.Bytes(), &before))
	s.True(before.Balance.IsZero(), "balance %s", before.Balance)

	rec = s.request(http.MethodGet, "/api/v1/accounts/"+checking.UUID+"/balance?asOf=2026-03-15", nil)
	require.Equal(s.T(), http.StatusOK, rec.Code)
	var after dto.AccountBalanceResponse
	require.NoError(s.T(), json.Unmarshal(rec.Body.Bytes(), &after))
	s.True(after.Balance.Equal(amount.Neg()), "balance %s", after.Balance)

	rec = s.request(http.MethodGet, "/api/v1/accounts/"+checking.UUID+"/balance", nil)
	require.Equal(s.T(), http.StatusOK, rec.Code)
	var current dto.AccountBalanceResponse
	require.NoError(s.T(), json.Unmarshal(rec.Body.Bytes(), &current))
	s.True(current.Balance.Equal(amount.Neg()), "balance %s", current.Balance)
	s.Nil(current.AsOf)

	rec = s.request(http.MethodGet, "/api/v1/accounts/"+checking.UUID+"/balance?asOf=yesterday", nil)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerTestSuite) TestExcludeAccountFromBudget() {
	groceries := s.createAccount("Groceries", "EXPENSE")
	s.False(groceries.ExcludedFromBudget)

	excluded := true
	rec := s.request(http.MethodPatch, "/api/v1/accounts/"+groceries.UUID, dto.ModifyAccountRequest{
		ExcludedFromBudget: &excluded,
	})
	require.Equal(s.T(), http.StatusOK, rec.Code, rec.Body.String())

	var resp dto.AccountResponse
	require.NoError(s.T(), json.Unmarshal(rec.Body.Bytes(), &resp))
	s.True(resp.ExcludedFromBudget)
}

func (s *HandlerTestSuite) TestSeedDefaultCurrenciesIsIdempotent() {
	rec := s.request(http.MethodPost, "/api/v1/currencies/defaults", nil)
	require.Equal(s.T(), http.StatusCreated, rec.Code, rec.Body.String())
	var created []dto.CurrencyResponse
	require.NoError(s.T(), json.Unmarshal(rec.Body.Bytes(), &created))
	s.NotEmpty(created)

	rec = s.request(http.MethodGet, "/api/v1/currencies/EUR", nil)
	s.Equal(http.StatusOK, rec.Code)

	// A second seeding skips everything already registered.
	rec = s.request(http.MethodPost, "/api/v1/currencies/defaults", nil)
	require.Equal(s.T(), http.StatusCreated, rec.Code, rec.Body.String())
	created = nil
	require.NoError(s.T(), json.Unmarshal(rec.Body.Bytes(), &created))
	s.Empty(created)
}

func (s *HandlerTestSuite) TestSecurityMarketPriceUsesRecordedHistory() {
	brokerage := s.createAccount("Brokerage", "INVEST")

	rec := s.request(http.MethodPost, "/api/v1/securities", dto.CreateSecurityRequest{
		Symbol:         "ACME",
		Scale:          2,
		CurrencySymbol: "USD",
	})
	require.Equal(s.T(), http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.request(http.MethodPost, "/api/v1/securities/ACME/history", dto.SecurityHistoryRequest{
		Date:  time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC),
		Price: decimal.RequireFromString("125.40"),
	})
	require.Equal(s.T(), http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.request(http.MethodGet, "/api/v1/securities/ACME/price?account="+brokerage.UUID+"&date=2026-04-01", nil)
	require.Equal(s.T(), http.StatusOK, rec.Code, rec.Body.String())

	var resp dto.SecurityPriceResponse
	require.NoError(s.T(), json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal("ACME", resp.SecuritySymbol)
	s.Equal("USD", resp.CurrencySymbol)
	s.True(resp.Price.Equal(decimal.RequireFromString("125.40")), "price %s", resp.Price)
}

func TestHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(HandlerTestSuite))
}
