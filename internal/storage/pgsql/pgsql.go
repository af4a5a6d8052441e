// Package pgsql provides the PostgreSQL DAO backend. Writes go straight
// to the database; the object graph itself lives in memory and is rebuilt
// from the stored snapshots when the store opens, so the engine always
// works against live pointers regardless of backend.
package pgsql

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ranlab/jgnash/internal/engine"
)

// DAO is the PostgreSQL-backed store. The identity maps mirror the
// database so lookups return the same live pointer the engine already
// holds.
type DAO struct {
	pool *pgxpool.Pool

	mu           sync.RWMutex
	accounts     map[string]*engine.Account
	transactions map[string]*engine.Transaction
	currencies   map[string]*engine.CurrencyNode
	securities   map[string]*engine.SecurityNode
	rates        map[string]*engine.ExchangeRate
	budgets      map[string]*engine.Budget
	reminders    map[string]*engine.Reminder
	trash        map[string]*engine.TrashObject
}

// Open loads the full object graph from the pool's database and returns a
// ready DAO. The caller runs migrations first.
func Open(ctx context.Context, pool *pgxpool.Pool) (*DAO, error) {
	d := &DAO{
		pool:         pool,
		accounts:     make(map[string]*engine.Account),
		transactions: make(map[string]*engine.Transaction),
		currencies:   make(map[string]*engine.CurrencyNode),
		securities:   make(map[string]*engine.SecurityNode),
		rates:        make(map[string]*engine.ExchangeRate),
		budgets:      make(map[string]*engine.Budget),
		reminders:    make(map[string]*engine.Reminder),
		trash:        make(map[string]*engine.TrashObject),
	}
	if err := d.load(ctx); err != nil {
		return nil, fmt.Errorf("loading object graph: %w", err)
	}
	return d, nil
}

func (d *DAO) Accounts() engine.AccountDAO         { return &accountDAO{d} }
func (d *DAO) Transactions() engine.TransactionDAO { return &transactionDAO{d} }
func (d *DAO) Commodities() engine.CommodityDAO    { return &commodityDAO{d} }
func (d *DAO) Config() engine.ConfigDAO            { return &configDAO{d} }
func (d *DAO) Budgets() engine.BudgetDAO           { return &budgetDAO{d} }
func (d *DAO) Reminders() engine.ReminderDAO       { return &reminderDAO{d} }
func (d *DAO) Trash() engine.TrashDAO              { return &trashDAO{d} }

// IsDirty is always false; every mutation is written through immediately.
func (d *DAO) IsDirty() bool { return false }

// Shutdown closes the connection pool.
func (d *DAO) Shutdown(context.Context) error {
	d.pool.Close()
	return nil
}

// load rebuilds the graph in dependency order: commodities first, then the
// account tree, transactions, budgets, reminders and finally the trash
// index. Objects marked removed are loaded but left detached, matching how
// the engine trashes them.
func (d *DAO) load(ctx context.Context) error {
	if err := d.loadCurrencies(ctx); err != nil {
		return err
	}
	if err := d.loadSecurities(ctx); err != nil {
		return err
	}
	if err := d.loadExchangeRates(ctx); err != nil {
		return err
	}
	if err := d.loadAccounts(ctx); err != nil {
		return err
	}
	if err := d.loadTransactions(ctx); err != nil {
		return err
	}
	if err := d.loadBudgets(ctx); err != nil {
		return err
	}
	if err := d.loadReminders(ctx); err != nil {
		return err
	}
	return d.loadTrash(ctx)
}
