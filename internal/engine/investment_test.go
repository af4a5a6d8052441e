package engine

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newInvestmentFixture() (*Account, *SecurityNode, *CurrencyNode) {
	currency := NewCurrencyNode("USD", 2)
	security := NewSecurityNode("ACME", 2, currency)
	account := NewAccount(AccountTypeInvest, currency)
	account.SetName("Brokerage")
	account.addSecurity(security)
	return account, security, currency
}

func buyTransaction(account *Account, security *SecurityNode, cash *Account, date time.Time, quantity, price string) *Transaction {
	q := decimal.RequireFromString(quantity)
	p := decimal.RequireFromString(price)
	t := NewInvestmentTransaction(date, &InvestmentDetail{
		Action:   ActionBuy,
		Security: security,
		Account:  account,
		Price:    p,
		Quantity: q,
	})
	t.AddEntry(NewTransactionEntry(account, cash, q.Mul(p)))
	return t
}

func TestInvestmentShapeValidation(t *testing.T) {
	account, security, _ := newInvestmentFixture()

	valid := &InvestmentDetail{
		Action: ActionBuy, Security: security, Account: account,
		Price: decimal.NewFromInt(10), Quantity: decimal.NewFromInt(5),
	}
	assert.True(t, validInvestmentDetail(valid, nil))

	missingPrice := &InvestmentDetail{
		Action: ActionBuy, Security: security, Account: account,
		Quantity: decimal.NewFromInt(5),
	}
	assert.False(t, validInvestmentDetail(missingPrice, nil))

	dividend := &InvestmentDetail{Action: ActionDividend, Security: security, Account: account}
	assert.True(t, validInvestmentDetail(dividend, nil))

	unknown := &InvestmentDetail{Action: InvestmentAction("SHORT"), Security: security, Account: account}
	assert.False(t, validInvestmentDetail(unknown, nil))

	noSecurity := &InvestmentDetail{Action: ActionAddShare, Account: account, Quantity: decimal.NewFromInt(1)}
	assert.False(t, validInvestmentDetail(noSecurity, nil))
}

func TestPositionAccumulation(t *testing.T) {
	account, security, currency := newInvestmentFixture()
	cash := NewAccount(AccountTypeBank, currency)

	jan := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)

	buy := buyTransaction(account, security, cash, jan, "10", "5")
	sell := NewInvestmentTransaction(feb, &InvestmentDetail{
		Action:   ActionSell,
		Security: security,
		Account:  account,
		Price:    decimal.RequireFromString("6"),
		Quantity: decimal.RequireFromString("4"),
	})

	txs := []*Transaction{buy, sell}
	assert.True(t, position(txs, security, jan).Equal(decimal.NewFromInt(10)))
	assert.True(t, position(txs, security, feb).Equal(decimal.NewFromInt(6)))
	assert.True(t, position(txs, security, jan.AddDate(0, 0, -1)).IsZero())
}

func TestMarketPriceResolutionOrder(t *testing.T) {
	account, security, currency := newInvestmentFixture()
	cash := NewAccount(AccountTypeBank, currency)

	history := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tradeDate := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	query := time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC)

	security.addHistoryNode(NewSecurityHistoryNode(history, decimal.RequireFromString("10")))

	// An exact history node wins outright.
	exact := MarketPrice(nil, security, currency, history, nil)
	assert.True(t, exact.Equal(decimal.RequireFromString("10")))

	// A later trade supersedes the stale baseline.
	buy := buyTransaction(account, security, cash, tradeDate, "5", "12")
	superseded := MarketPrice([]*Transaction{buy}, security, currency, query, nil)
	assert.True(t, superseded.Equal(decimal.RequireFromString("12")))

	// A zero-price transaction never overrides the baseline.
	dividend := NewInvestmentTransaction(tradeDate, &InvestmentDetail{
		Action: ActionDividend, Security: security, Account: account,
	})
	baseline := MarketPrice([]*Transaction{dividend}, security, currency, query, nil)
	assert.True(t, baseline.Equal(decimal.RequireFromString("10")))

	// Future trades are invisible to the query date.
	future := buyTransaction(account, security, cash, query.AddDate(0, 1, 0), "5", "99")
	unaffected := MarketPrice([]*Transaction{future}, security, currency, query, nil)
	assert.True(t, unaffected.Equal(decimal.RequireFromString("10")))
}

func TestSecurityHistoryReplaceAndEvents(t *testing.T) {
	_, security, _ := newInvestmentFixture()
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	first := NewSecurityHistoryNode(date, decimal.RequireFromString("10"))
	require.Nil(t, security.addHistoryNode(first))

	second := NewSecurityHistoryNode(date, decimal.RequireFromString("11"))
	displaced := security.addHistoryNode(second)
	require.Same(t, first, displaced)
	require.Len(t, security.History(), 1)

	event := NewSecurityHistoryEvent(EventTypeDividend, date, decimal.RequireFromString("0.25"))
	assert.True(t, security.addEvent(event))
	assert.False(t, security.addEvent(event), "equal events de-duplicate")
	assert.Len(t, security.Events(), 1)
}
