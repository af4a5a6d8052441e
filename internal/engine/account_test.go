package engine

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func usd() *CurrencyNode { return NewCurrencyNode("USD", 2) }

func newTestTransaction(t *testing.T, credit, debit *Account, amount string, date time.Time) *Transaction {
	t.Helper()
	tx := NewTransaction(date)
	tx.AddEntry(NewTransactionEntry(credit, debit, decimal.RequireFromString(amount)))
	return tx
}

func TestAccountBalanceMatchesColdRecomputation(t *testing.T) {
	currency := usd()
	checking := NewAccount(AccountTypeBank, currency)
	checking.SetName("Checking")
	groceries := NewAccount(AccountTypeExpense, currency)
	groceries.SetName("Groceries")

	today := time.Now()
	for _, amount := range []string{"42.50", "10.00", "3.25"} {
		tx := newTestTransaction(t, groceries, checking, amount, today)
		require.True(t, checking.addTransaction(tx))
		require.True(t, groceries.addTransaction(tx))
	}

	cached := checking.Balance()
	checking.invalidateCaches()
	cold := checking.Balance()

	assert.True(t, cached.Equal(cold), "cached %s vs cold %s", cached, cold)
	assert.True(t, cached.Equal(decimal.RequireFromString("-55.75")))
	assert.True(t, groceries.Balance().Equal(decimal.RequireFromString("55.75")))
}

func TestAccountBalanceCacheInvalidatedOnRemove(t *testing.T) {
	currency := usd()
	a := NewAccount(AccountTypeBank, currency)
	b := NewAccount(AccountTypeExpense, currency)

	tx := newTestTransaction(t, b, a, "100", time.Now())
	require.True(t, a.addTransaction(tx))
	assert.True(t, a.Balance().Equal(decimal.RequireFromString("-100")))

	require.True(t, a.removeTransaction(tx))
	assert.True(t, a.Balance().IsZero())
}

func TestPlaceholderAccountRejectsTransactions(t *testing.T) {
	currency := usd()
	a := NewAccount(AccountTypeBank, currency)
	a.setPlaceholder(true)
	b := NewAccount(AccountTypeExpense, currency)

	tx := newTestTransaction(t, b, a, "5", time.Now())
	assert.False(t, a.addTransaction(tx))
	assert.Equal(t, 0, a.TransactionCount())
}

func TestAccountChildOrderingAndAncestry(t *testing.T) {
	currency := usd()
	root := NewAccount(AccountTypeRoot, currency)
	parent := NewAccount(AccountTypeAsset, currency)
	parent.SetName("Assets")
	zebra := NewAccount(AccountTypeBank, currency)
	zebra.SetName("Zebra")
	alpha := NewAccount(AccountTypeBank, currency)
	alpha.SetName("Alpha")

	require.True(t, root.addChild(parent))
	require.True(t, parent.addChild(zebra))
	require.True(t, parent.addChild(alpha))
	assert.False(t, parent.addChild(parent), "account must not parent itself")
	assert.False(t, parent.addChild(alpha), "double link must be rejected")

	children := parent.Children()
	require.Len(t, children, 2)
	assert.Equal(t, "Alpha", children[0].Name())
	assert.Equal(t, "Zebra", children[1].Name())

	assert.True(t, root.IsAncestorOf(alpha))
	assert.True(t, parent.IsAncestorOf(alpha))
	assert.False(t, alpha.IsAncestorOf(parent))
}

type fixedRates struct{ rate decimal.Decimal }

func (f fixedRates) LatestRate(from, to *CurrencyNode) decimal.Decimal { return f.rate }

func TestTreeBalanceSumsConvertedChildren(t *testing.T) {
	eur := NewCurrencyNode("EUR", 2)
	dollar := usd()

	parent := NewAccount(AccountTypeAsset, dollar)
	parent.SetName("Assets")
	child := NewAccount(AccountTypeBank, eur)
	child.SetName("Euro Bank")
	expense := NewAccount(AccountTypeExpense, eur)

	require.True(t, parent.addChild(child))
	tx := newTestTransaction(t, child, expense, "100", time.Now())
	require.True(t, child.addTransaction(tx))

	// 1 EUR = 1.10 USD
	rates := fixedRates{rate: decimal.RequireFromString("1.10")}
	tree := parent.TreeBalance(dollar, rates)
	assert.True(t, tree.Equal(decimal.RequireFromString("110")), "got %s", tree)

	// Tree balance equals own balance plus each child's tree balance.
	expected := parent.Balance().Add(child.TreeBalance(dollar, rates))
	assert.True(t, tree.Equal(expected))
}

func TestReconciledBalanceTracksOnlyReconciledEntries(t *testing.T) {
	currency := usd()
	a := NewAccount(AccountTypeBank, currency)
	b := NewAccount(AccountTypeExpense, currency)

	first := newTestTransaction(t, a, b, "40", time.Now())
	second := newTestTransaction(t, a, b, "60", time.Now())
	require.True(t, a.addTransaction(first))
	require.True(t, a.addTransaction(second))

	for _, e := range first.Entries() {
		e.setReconciled(a, Reconciled)
	}
	a.invalidateCaches()

	assert.True(t, a.ReconciledBalance().Equal(decimal.RequireFromString("40")))
	assert.True(t, a.Balance().Equal(decimal.RequireFromString("100")))
}

func TestAccountAttributes(t *testing.T) {
	a := NewAccount(AccountTypeBank, usd())
	a.setAttribute("bank.routing", "021000021")
	assert.Equal(t, "021000021", a.Attribute("bank.routing"))

	a.setAttribute("bank.routing", "")
	assert.Empty(t, a.Attribute("bank.routing"))
}

func TestPathName(t *testing.T) {
	currency := usd()
	root := NewAccount(AccountTypeRoot, currency)
	assets := NewAccount(AccountTypeAsset, currency)
	assets.SetName("Assets")
	bank := NewAccount(AccountTypeBank, currency)
	bank.SetName("Checking")

	require.True(t, root.addChild(assets))
	require.True(t, assets.addChild(bank))

	assert.Equal(t, "Assets:Checking", bank.PathName(":"))
	assert.Equal(t, "Assets", assets.PathName(":"))
}

func TestTransactionOrderingWithinAccount(t *testing.T) {
	currency := usd()
	a := NewAccount(AccountTypeBank, currency)
	b := NewAccount(AccountTypeExpense, currency)

	later := newTestTransaction(t, a, b, "1", time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC))
	earlier := newTestTransaction(t, a, b, "1", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	require.True(t, a.addTransaction(later))
	require.True(t, a.addTransaction(earlier))

	txs := a.Transactions()
	require.Len(t, txs, 2)
	assert.Same(t, earlier, txs[0])
	assert.Same(t, later, txs[1])
}
