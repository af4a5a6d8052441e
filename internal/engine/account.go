package engine

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// MaxAttributeLength caps the size of a single account attribute value.
const MaxAttributeLength = 8192

// RateSource resolves the most recent exchange rate between two currencies.
// The engine is the canonical implementation.
type RateSource interface {
	LatestRate(from, to *CurrencyNode) decimal.Decimal
}

// Account is a node in the account hierarchy owning a sorted transaction set
// and, for investment accounts, the securities it holds. The transaction,
// child, security and attribute collections are each guarded by their own
// lock so unrelated reads never contend. Balance and reconciled balance are
// cached with a nil-is-stale sentinel cleared on any transaction add or
// remove and on currency change; dropping the cache only costs a
// recomputation, never correctness.
type Account struct {
	storedObject

	accountType AccountType
	currency    *CurrencyNode

	name          string
	description   string
	notes         string
	code          int
	accountNumber string
	bankID        string

	visible            bool
	locked             bool
	placeholder        bool
	excludedFromBudget bool

	parent *Account

	txMu            sync.RWMutex
	transactions    []*Transaction
	balanceCache    *decimal.Decimal
	reconciledCache *decimal.Decimal

	childMu  sync.RWMutex
	children []*Account

	securityMu sync.RWMutex
	securities []*SecurityNode

	attrMu     sync.RWMutex
	attributes map[string]string

	rates RateSource
}

// NewAccount builds a detached account of the given type and currency.
func NewAccount(accountType AccountType, currency *CurrencyNode) *Account {
	return &Account{
		storedObject: newStoredObject(),
		accountType:  accountType,
		currency:     currency,
		visible:      true,
		attributes:   make(map[string]string),
	}
}

func (a *Account) AccountType() AccountType    { return a.accountType }
func (a *Account) CurrencyNode() *CurrencyNode { return a.currency }
func (a *Account) Name() string                { return a.name }
func (a *Account) Description() string         { return a.description }
func (a *Account) Notes() string               { return a.notes }
func (a *Account) Code() int                   { return a.code }
func (a *Account) AccountNumber() string       { return a.accountNumber }
func (a *Account) BankID() string              { return a.bankID }
func (a *Account) Visible() bool               { return a.visible }
func (a *Account) Locked() bool                { return a.locked }
func (a *Account) Placeholder() bool           { return a.placeholder }
func (a *Account) ExcludedFromBudget() bool    { return a.excludedFromBudget }
func (a *Account) Parent() *Account            { return a.parent }

func (a *Account) SetName(name string)               { a.name = name }
func (a *Account) SetDescription(description string) { a.description = description }
func (a *Account) SetNotes(notes string)             { a.notes = notes }
func (a *Account) SetAccountNumber(number string)    { a.accountNumber = number }
func (a *Account) SetBankID(bankID string)           { a.bankID = bankID }
func (a *Account) SetCode(code int)                  { a.code = code }

func (a *Account) setVisible(visible bool)   { a.visible = visible }
func (a *Account) setLocked(locked bool)     { a.locked = locked }
func (a *Account) setRates(rates RateSource) { a.rates = rates }

// setPlaceholder flips the placeholder flag. Only legal while the account
// holds no transactions; the engine enforces that.
func (a *Account) setPlaceholder(placeholder bool) { a.placeholder = placeholder }

func (a *Account) setExcludedFromBudget(excluded bool) { a.excludedFromBudget = excluded }

// setCurrencyNode swaps the unit of account and drops the balance caches.
func (a *Account) setCurrencyNode(currency *CurrencyNode) {
	a.txMu.Lock()
	a.currency = currency
	a.balanceCache = nil
	a.reconciledCache = nil
	a.txMu.Unlock()
}

// setAccountType changes the type; the engine verifies mutability first.
func (a *Account) setAccountType(accountType AccountType) {
	a.txMu.Lock()
	a.accountType = accountType
	a.balanceCache = nil
	a.reconciledCache = nil
	a.txMu.Unlock()
}

// PathName returns the account's display path from just below the root,
// joined with the given separator.
func (a *Account) PathName(separator string) string {
	var parts []string
	for n := a; n != nil && n.accountType != AccountTypeRoot; n = n.parent {
		parts = append(parts, n.name)
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, separator)
}

// addChild links child under a. Returns false when child is a itself or is
// already linked here.
func (a *Account) addChild(child *Account) bool {
	if child == nil || child == a {
		return false
	}
	a.childMu.Lock()
	defer a.childMu.Unlock()
	for _, c := range a.children {
		if c == child {
			return false
		}
	}
	child.parent = a
	a.children = append(a.children, child)
	sort.Slice(a.children, func(i, j int) bool { return lessAccounts(a.children[i], a.children[j]) })
	return true
}

func (a *Account) removeChild(child *Account) bool {
	a.childMu.Lock()
	defer a.childMu.Unlock()
	for i, c := range a.children {
		if c == child {
			child.parent = nil
			a.children = append(a.children[:i], a.children[i+1:]...)
			return true
		}
	}
	return false
}

// lessAccounts orders siblings by code, then name, then uuid for stability.
func lessAccounts(x, y *Account) bool {
	if x.code != y.code {
		return x.code < y.code
	}
	if x.name != y.name {
		return x.name < y.name
	}
	return x.id < y.id
}

// Children returns a sorted copy of the direct children.
func (a *Account) Children() []*Account {
	a.childMu.RLock()
	defer a.childMu.RUnlock()
	out := make([]*Account, len(a.children))
	copy(out, a.children)
	return out
}

func (a *Account) ChildCount() int {
	a.childMu.RLock()
	defer a.childMu.RUnlock()
	return len(a.children)
}

// IsAncestorOf reports whether other sits anywhere below a in the tree.
func (a *Account) IsAncestorOf(other *Account) bool {
	for n := other; n != nil; n = n.parent {
		if n.parent == a {
			return true
		}
	}
	return false
}

// addTransaction attaches t and invalidates the balance caches. Returns
// false for placeholder accounts and when t is already attached.
func (a *Account) addTransaction(t *Transaction) bool {
	if a.placeholder {
		return false
	}
	a.txMu.Lock()
	defer a.txMu.Unlock()
	for _, existing := range a.transactions {
		if existing == t {
			return false
		}
	}
	a.transactions = append(a.transactions, t)
	sort.Slice(a.transactions, func(i, j int) bool { return lessTransactions(a.transactions[i], a.transactions[j]) })
	a.balanceCache = nil
	a.reconciledCache = nil
	return true
}

func (a *Account) removeTransaction(t *Transaction) bool {
	a.txMu.Lock()
	defer a.txMu.Unlock()
	for i, existing := range a.transactions {
		if existing == t {
			a.transactions = append(a.transactions[:i], a.transactions[i+1:]...)
			a.balanceCache = nil
			a.reconciledCache = nil
			return true
		}
	}
	return false
}

func (a *Account) contains(t *Transaction) bool {
	a.txMu.RLock()
	defer a.txMu.RUnlock()
	for _, existing := range a.transactions {
		if existing == t {
			return true
		}
	}
	return false
}

// invalidateCaches drops the cached balances; the next read recomputes.
func (a *Account) invalidateCaches() {
	a.txMu.Lock()
	a.balanceCache = nil
	a.reconciledCache = nil
	a.txMu.Unlock()
}

func lessTransactions(x, y *Transaction) bool {
	if !x.date.Equal(y.date) {
		return x.date.Before(y.date)
	}
	if x.number != y.number {
		return x.number < y.number
	}
	if !x.timestamp.Equal(y.timestamp) {
		return x.timestamp.Before(y.timestamp)
	}
	return x.id < y.id
}

// Transactions returns a copy of the transaction set sorted by date, number
// and entry timestamp.
func (a *Account) Transactions() []*Transaction {
	a.txMu.RLock()
	defer a.txMu.RUnlock()
	out := make([]*Transaction, len(a.transactions))
	copy(out, a.transactions)
	return out
}

func (a *Account) TransactionCount() int {
	a.txMu.RLock()
	defer a.txMu.RUnlock()
	return len(a.transactions)
}

// Balance returns the cached balance, computing it through the account
// type's strategy when the cache is stale.
func (a *Account) Balance() decimal.Decimal {
	a.txMu.Lock()
	defer a.txMu.Unlock()
	if a.balanceCache == nil {
		v := a.proxy().balance(a, a.transactions)
		a.balanceCache = &v
	}
	return *a.balanceCache
}

// ReconciledBalance returns the cached balance over reconciled entries only.
func (a *Account) ReconciledBalance() decimal.Decimal {
	a.txMu.Lock()
	defer a.txMu.Unlock()
	if a.reconciledCache == nil {
		v := a.proxy().reconciledBalance(a, a.transactions)
		a.reconciledCache = &v
	}
	return *a.reconciledCache
}

// BalanceAsOf returns the uncached balance over transactions dated on or
// before the given date.
func (a *Account) BalanceAsOf(date time.Time) decimal.Decimal {
	day := dateOnly(date)
	sum := decimal.Decimal{}
	for _, t := range a.Transactions() {
		if !t.Date().After(day) {
			sum = sum.Add(t.Amount(a))
		}
	}
	return sum
}

// TreeBalance returns the account's balance plus every descendant's tree
// balance, each converted into the target currency.
func (a *Account) TreeBalance(target *CurrencyNode, rates RateSource) decimal.Decimal {
	sum := convertAmount(a.Balance(), a.currency, target, rates)
	for _, c := range a.Children() {
		sum = sum.Add(c.TreeBalance(target, rates))
	}
	return sum
}

func convertAmount(amount decimal.Decimal, from, to *CurrencyNode, rates RateSource) decimal.Decimal {
	if from == nil || to == nil || from.UUID() == to.UUID() || rates == nil {
		return amount
	}
	return amount.Mul(rates.LatestRate(from, to))
}

// addSecurity registers a security the account holds. Returns false when
// already present.
func (a *Account) addSecurity(node *SecurityNode) bool {
	a.securityMu.Lock()
	defer a.securityMu.Unlock()
	for _, s := range a.securities {
		if s == node {
			return false
		}
	}
	a.securities = append(a.securities, node)
	return true
}

func (a *Account) removeSecurity(node *SecurityNode) bool {
	a.securityMu.Lock()
	defer a.securityMu.Unlock()
	for i, s := range a.securities {
		if s == node {
			a.securities = append(a.securities[:i], a.securities[i+1:]...)
			return true
		}
	}
	return false
}

// ContainsSecurity reports whether the account holds the security.
func (a *Account) ContainsSecurity(node *SecurityNode) bool {
	a.securityMu.RLock()
	defer a.securityMu.RUnlock()
	for _, s := range a.securities {
		if s == node {
			return true
		}
	}
	return false
}

// Securities returns a copy of the held securities.
func (a *Account) Securities() []*SecurityNode {
	a.securityMu.RLock()
	defer a.securityMu.RUnlock()
	out := make([]*SecurityNode, len(a.securities))
	copy(out, a.securities)
	return out
}

func (a *Account) setAttribute(key, value string) {
	a.attrMu.Lock()
	defer a.attrMu.Unlock()
	if value == "" {
		delete(a.attributes, key)
		return
	}
	a.attributes[key] = value
}

// Attribute returns the attribute value for key, or the empty string.
func (a *Account) Attribute(key string) string {
	a.attrMu.RLock()
	defer a.attrMu.RUnlock()
	return a.attributes[key]
}

// Attributes returns a copy of the attribute map.
func (a *Account) Attributes() map[string]string {
	a.attrMu.RLock()
	defer a.attrMu.RUnlock()
	out := make(map[string]string, len(a.attributes))
	for k, v := range a.attributes {
		out[k] = v
	}
	return out
}

func (a *Account) proxy() accountProxy {
	if a.accountType.Group() == GroupInvest {
		return investmentProxy{}
	}
	return standardProxy{}
}
