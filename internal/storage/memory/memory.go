// Package memory provides the in-memory DAO backend. It is the default
// store for a fresh engine and the backend the tests run against; nothing
// survives process exit.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/ranlab/jgnash/internal/apperrors"
	"github.com/ranlab/jgnash/internal/engine"
)

// DAO keeps the live object graph in maps. All methods are safe for
// concurrent use; a dirty flag flips on every mutation so callers polling
// IsDirty can decide whether a save is needed.
type DAO struct {
	mu    sync.RWMutex
	dirty bool

	accounts     map[string]*engine.Account
	transactions map[string]*engine.Transaction
	currencies   map[string]*engine.CurrencyNode
	securities   map[string]*engine.SecurityNode
	rates        map[string]*engine.ExchangeRate
	budgets      map[string]*engine.Budget
	reminders    map[string]*engine.Reminder
	trash        map[string]*engine.TrashObject
	preferences  map[string]string
}

// New returns an empty in-memory DAO.
func New() *DAO {
	return &DAO{
		accounts:     make(map[string]*engine.Account),
		transactions: make(map[string]*engine.Transaction),
		currencies:   make(map[string]*engine.CurrencyNode),
		securities:   make(map[string]*engine.SecurityNode),
		rates:        make(map[string]*engine.ExchangeRate),
		budgets:      make(map[string]*engine.Budget),
		reminders:    make(map[string]*engine.Reminder),
		trash:        make(map[string]*engine.TrashObject),
		preferences:  make(map[string]string),
	}
}

func (d *DAO) Accounts() engine.AccountDAO         { return (*accountDAO)(d) }
func (d *DAO) Transactions() engine.TransactionDAO { return (*transactionDAO)(d) }
func (d *DAO) Commodities() engine.CommodityDAO    { return (*commodityDAO)(d) }
func (d *DAO) Config() engine.ConfigDAO            { return (*configDAO)(d) }
func (d *DAO) Budgets() engine.BudgetDAO           { return (*budgetDAO)(d) }
func (d *DAO) Reminders() engine.ReminderDAO       { return (*reminderDAO)(d) }
func (d *DAO) Trash() engine.TrashDAO              { return (*trashDAO)(d) }

// IsDirty reports whether a mutation happened since construction.
func (d *DAO) IsDirty() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.dirty
}

// Shutdown is a no-op for the in-memory store.
func (d *DAO) Shutdown(context.Context) error { return nil }

func (d *DAO) markDirty() { d.dirty = true }

type accountDAO DAO

func (d *accountDAO) AddAccount(_ context.Context, a *engine.Account) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.accounts[a.UUID()]; ok {
		return fmt.Errorf("%w: account %s", apperrors.ErrDuplicate, a.UUID())
	}
	d.accounts[a.UUID()] = a
	(*DAO)(d).markDirty()
	return nil
}

func (d *accountDAO) UpdateAccount(_ context.Context, a *engine.Account) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.accounts[a.UUID()] = a
	(*DAO)(d).markDirty()
	return nil
}

func (d *accountDAO) AccountByUUID(_ context.Context, id string) (*engine.Account, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	a, ok := d.accounts[id]
	if !ok {
		return nil, fmt.Errorf("%w: account %s", apperrors.ErrNotFound, id)
	}
	return a, nil
}

func (d *accountDAO) AccountList(_ context.Context) ([]*engine.Account, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]*engine.Account, 0, len(d.accounts))
	for _, a := range d.accounts {
		if !a.MarkedForRemoval() {
			out = append(out, a)
		}
	}
	return out, nil
}

type transactionDAO DAO

func (d *transactionDAO) AddTransaction(_ context.Context, t *engine.Transaction) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.transactions[t.UUID()]; ok {
		return fmt.Errorf("%w: transaction %s", apperrors.ErrDuplicate, t.UUID())
	}
	d.transactions[t.UUID()] = t
	(*DAO)(d).markDirty()
	return nil
}

func (d *transactionDAO) UpdateTransaction(_ context.Context, t *engine.Transaction) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.transactions[t.UUID()] = t
	(*DAO)(d).markDirty()
	return nil
}

func (d *transactionDAO) TransactionByUUID(_ context.Context, id string) (*engine.Transaction, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	t, ok := d.transactions[id]
	if !ok {
		return nil, fmt.Errorf("%w: transaction %s", apperrors.ErrNotFound, id)
	}
	return t, nil
}

func (d *transactionDAO) TransactionList(_ context.Context) ([]*engine.Transaction, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]*engine.Transaction, 0, len(d.transactions))
	for _, t := range d.transactions {
		if !t.MarkedForRemoval() {
			out = append(out, t)
		}
	}
	return out, nil
}

type commodityDAO DAO

func (d *commodityDAO) AddCurrency(_ context.Context, node *engine.CurrencyNode) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.currencies[node.UUID()]; ok {
		return fmt.Errorf("%w: currency %s", apperrors.ErrDuplicate, node.Symbol())
	}
	d.currencies[node.UUID()] = node
	(*DAO)(d).markDirty()
	return nil
}

func (d *commodityDAO) UpdateCurrency(_ context.Context, node *engine.CurrencyNode) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.currencies[node.UUID()] = node
	(*DAO)(d).markDirty()
	return nil
}

func (d *commodityDAO) CurrencyByUUID(_ context.Context, id string) (*engine.CurrencyNode, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.currencies[id]
	if !ok {
		return nil, fmt.Errorf("%w: currency %s", apperrors.ErrNotFound, id)
	}
	return c, nil
}

func (d *commodityDAO) CurrencyList(_ context.Context) ([]*engine.CurrencyNode, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]*engine.CurrencyNode, 0, len(d.currencies))
	for _, c := range d.currencies {
		if !c.MarkedForRemoval() {
			out = append(out, c)
		}
	}
	return out, nil
}

func (d *commodityDAO) AddSecurity(_ context.Context, node *engine.SecurityNode) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.securities[node.UUID()]; ok {
		return fmt.Errorf("%w: security %s", apperrors.ErrDuplicate, node.Symbol())
	}
	d.securities[node.UUID()] = node
	(*DAO)(d).markDirty()
	return nil
}

func (d *commodityDAO) UpdateSecurity(_ context.Context, node *engine.SecurityNode) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.securities[node.UUID()] = node
	(*DAO)(d).markDirty()
	return nil
}

func (d *commodityDAO) SecurityByUUID(_ context.Context, id string) (*engine.SecurityNode, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	s, ok := d.securities[id]
	if !ok {
		return nil, fmt.Errorf("%w: security %s", apperrors.ErrNotFound, id)
	}
	return s, nil
}

func (d *commodityDAO) SecurityList(_ context.Context) ([]*engine.SecurityNode, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]*engine.SecurityNode, 0, len(d.securities))
	for _, s := range d.securities {
		if !s.MarkedForRemoval() {
			out = append(out, s)
		}
	}
	return out, nil
}

func (d *commodityDAO) AddExchangeRate(_ context.Context, rate *engine.ExchangeRate) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.rates[rate.UUID()]; ok {
		return fmt.Errorf("%w: exchange rate %s", apperrors.ErrDuplicate, rate.RateID())
	}
	d.rates[rate.UUID()] = rate
	(*DAO)(d).markDirty()
	return nil
}

func (d *commodityDAO) UpdateExchangeRate(_ context.Context, rate *engine.ExchangeRate) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rates[rate.UUID()] = rate
	(*DAO)(d).markDirty()
	return nil
}

func (d *commodityDAO) ExchangeRateList(_ context.Context) ([]*engine.ExchangeRate, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]*engine.ExchangeRate, 0, len(d.rates))
	for _, r := range d.rates {
		if !r.MarkedForRemoval() {
			out = append(out, r)
		}
	}
	return out, nil
}

type configDAO DAO

func (d *configDAO) SetPreference(_ context.Context, key, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if value == "" {
		delete(d.preferences, key)
	} else {
		d.preferences[key] = value
	}
	(*DAO)(d).markDirty()
	return nil
}

func (d *configDAO) Preference(_ context.Context, key string) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.preferences[key], nil
}

type budgetDAO DAO

func (d *budgetDAO) AddBudget(_ context.Context, b *engine.Budget) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.budgets[b.UUID()]; ok {
		return fmt.Errorf("%w: budget %s", apperrors.ErrDuplicate, b.UUID())
	}
	d.budgets[b.UUID()] = b
	(*DAO)(d).markDirty()
	return nil
}

func (d *budgetDAO) UpdateBudget(_ context.Context, b *engine.Budget) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.budgets[b.UUID()] = b
	(*DAO)(d).markDirty()
	return nil
}

func (d *budgetDAO) BudgetByUUID(_ context.Context, id string) (*engine.Budget, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	b, ok := d.budgets[id]
	if !ok {
		return nil, fmt.Errorf("%w: budget %s", apperrors.ErrNotFound, id)
	}
	return b, nil
}

func (d *budgetDAO) BudgetList(_ context.Context) ([]*engine.Budget, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]*engine.Budget, 0, len(d.budgets))
	for _, b := range d.budgets {
		if !b.MarkedForRemoval() {
			out = append(out, b)
		}
	}
	return out, nil
}

type reminderDAO DAO

func (d *reminderDAO) AddReminder(_ context.Context, r *engine.Reminder) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.reminders[r.UUID()]; ok {
		return fmt.Errorf("%w: reminder %s", apperrors.ErrDuplicate, r.UUID())
	}
	d.reminders[r.UUID()] = r
	(*DAO)(d).markDirty()
	return nil
}

func (d *reminderDAO) UpdateReminder(_ context.Context, r *engine.Reminder) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reminders[r.UUID()] = r
	(*DAO)(d).markDirty()
	return nil
}

func (d *reminderDAO) ReminderList(_ context.Context) ([]*engine.Reminder, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]*engine.Reminder, 0, len(d.reminders))
	for _, r := range d.reminders {
		if !r.MarkedForRemoval() {
			out = append(out, r)
		}
	}
	return out, nil
}

type trashDAO DAO

func (d *trashDAO) AddTrash(_ context.Context, t *engine.TrashObject) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.trash[t.UUID()] = t
	(*DAO)(d).markDirty()
	return nil
}

func (d *trashDAO) TrashList(_ context.Context) ([]*engine.TrashObject, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]*engine.TrashObject, 0, len(d.trash))
	for _, t := range d.trash {
		out = append(out, t)
	}
	return out, nil
}

// RemoveTrash deletes the wrapper and the wrapped object permanently.
func (d *trashDAO) RemoveTrash(_ context.Context, t *engine.TrashObject) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.trash, t.UUID())
	switch obj := t.Object().(type) {
	case *engine.Account:
		delete(d.accounts, obj.UUID())
	case *engine.Transaction:
		delete(d.transactions, obj.UUID())
	case *engine.CurrencyNode:
		delete(d.currencies, obj.UUID())
	case *engine.SecurityNode:
		delete(d.securities, obj.UUID())
	case *engine.ExchangeRate:
		delete(d.rates, obj.UUID())
	case *engine.Budget:
		delete(d.budgets, obj.UUID())
	case *engine.Reminder:
		delete(d.reminders, obj.UUID())
	}
	(*DAO)(d).markDirty()
	return nil
}
