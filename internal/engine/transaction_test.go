package engine

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntrySignConvention(t *testing.T) {
	currency := usd()
	credit := NewAccount(AccountTypeExpense, currency)
	debit := NewAccount(AccountTypeBank, currency)

	entry := NewTransactionEntry(credit, debit, decimal.RequireFromString("42.50"))

	assert.True(t, entry.CreditAmount().Equal(decimal.RequireFromString("42.50")))
	assert.True(t, entry.DebitAmount().Equal(decimal.RequireFromString("-42.50")))
	assert.True(t, entry.Amount(credit).IsPositive())
	assert.True(t, entry.Amount(debit).IsNegative())

	other := NewAccount(AccountTypeBank, currency)
	assert.True(t, entry.Amount(other).IsZero())
}

func TestTransactionTypeDerivation(t *testing.T) {
	currency := usd()
	a := NewAccount(AccountTypeBank, currency)
	b := NewAccount(AccountTypeExpense, currency)
	c := NewAccount(AccountTypeExpense, currency)

	empty := NewTransaction(time.Now())
	assert.Equal(t, TypeInvalid, empty.Type())

	single := NewTransaction(time.Now())
	single.AddEntry(NewTransactionEntry(a, a, decimal.NewFromInt(1)))
	assert.Equal(t, TypeSingleEntry, single.Type())

	double := NewTransaction(time.Now())
	double.AddEntry(NewTransactionEntry(b, a, decimal.NewFromInt(1)))
	assert.Equal(t, TypeDoubleEntry, double.Type())

	split := NewTransaction(time.Now())
	split.AddEntry(NewTransactionEntry(b, a, decimal.NewFromInt(1)))
	split.AddEntry(NewTransactionEntry(c, a, decimal.NewFromInt(2)))
	assert.Equal(t, TypeSplitEntry, split.Type())
	assert.Same(t, a, split.CommonAccount())
}

func TestSplitWithoutCommonAccount(t *testing.T) {
	currency := usd()
	a := NewAccount(AccountTypeBank, currency)
	b := NewAccount(AccountTypeExpense, currency)
	c := NewAccount(AccountTypeExpense, currency)
	d := NewAccount(AccountTypeBank, currency)

	split := NewTransaction(time.Now())
	split.AddEntry(NewTransactionEntry(b, a, decimal.NewFromInt(1)))
	split.AddEntry(NewTransactionEntry(c, d, decimal.NewFromInt(2)))
	assert.Nil(t, split.CommonAccount())
}

func TestMultiCurrencyEntry(t *testing.T) {
	dollar := usd()
	eur := NewCurrencyNode("EUR", 2)
	usdAccount := NewAccount(AccountTypeBank, dollar)
	eurAccount := NewAccount(AccountTypeBank, eur)

	entry := NewMultiCurrencyEntry(eurAccount, usdAccount,
		decimal.RequireFromString("90"), decimal.RequireFromString("100"))

	assert.True(t, entry.IsMultiCurrency())
	assert.True(t, entry.Amount(eurAccount).Equal(decimal.RequireFromString("90")))
	assert.True(t, entry.Amount(usdAccount).Equal(decimal.RequireFromString("-100")))

	same := NewTransactionEntry(usdAccount, NewAccount(AccountTypeBank, dollar), decimal.NewFromInt(1))
	assert.False(t, same.IsMultiCurrency())
}

func TestTransactionCloneIsDeep(t *testing.T) {
	currency := usd()
	a := NewAccount(AccountTypeBank, currency)
	b := NewAccount(AccountTypeExpense, currency)

	original := NewTransaction(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	original.SetPayee("Utility Co")
	original.SetMemo("power bill")
	original.AddEntry(NewTransactionEntry(b, a, decimal.RequireFromString("75")))

	cloneDate := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	clone := original.Clone(cloneDate)

	require.NotEqual(t, original.UUID(), clone.UUID())
	assert.Equal(t, "Utility Co", clone.Payee())
	assert.True(t, clone.Date().Equal(dateOnly(cloneDate)))
	require.Len(t, clone.Entries(), 1)
	assert.NotSame(t, original.Entries()[0], clone.Entries()[0])
	assert.True(t, clone.Amount(a).Equal(original.Amount(a)))
}

func TestEntryReconciledPerAccount(t *testing.T) {
	currency := usd()
	a := NewAccount(AccountTypeBank, currency)
	b := NewAccount(AccountTypeExpense, currency)

	entry := NewTransactionEntry(b, a, decimal.NewFromInt(10))
	entry.setReconciled(a, Cleared)

	assert.Equal(t, Cleared, entry.Reconciled(a))
	assert.Equal(t, NotReconciled, entry.Reconciled(b))
}
