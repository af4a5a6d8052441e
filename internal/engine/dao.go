package engine

import "context"

// The engine never assumes a storage technology; everything it persists
// goes through these contracts. Implementations live under
// internal/storage. List accessors must exclude objects marked for removal;
// lookups by uuid must still resolve them so trash stays observable.

// AccountDAO persists the account hierarchy.
type AccountDAO interface {
	AddAccount(ctx context.Context, account *Account) error
	UpdateAccount(ctx context.Context, account *Account) error
	AccountByUUID(ctx context.Context, id string) (*Account, error)
	AccountList(ctx context.Context) ([]*Account, error)
}

// TransactionDAO persists transactions and their entries.
type TransactionDAO interface {
	AddTransaction(ctx context.Context, transaction *Transaction) error
	UpdateTransaction(ctx context.Context, transaction *Transaction) error
	TransactionByUUID(ctx context.Context, id string) (*Transaction, error)
	TransactionList(ctx context.Context) ([]*Transaction, error)
}

// CommodityDAO persists currencies, securities and exchange rate histories.
type CommodityDAO interface {
	AddCurrency(ctx context.Context, node *CurrencyNode) error
	UpdateCurrency(ctx context.Context, node *CurrencyNode) error
	CurrencyByUUID(ctx context.Context, id string) (*CurrencyNode, error)
	CurrencyList(ctx context.Context) ([]*CurrencyNode, error)

	AddSecurity(ctx context.Context, node *SecurityNode) error
	UpdateSecurity(ctx context.Context, node *SecurityNode) error
	SecurityByUUID(ctx context.Context, id string) (*SecurityNode, error)
	SecurityList(ctx context.Context) ([]*SecurityNode, error)

	AddExchangeRate(ctx context.Context, rate *ExchangeRate) error
	UpdateExchangeRate(ctx context.Context, rate *ExchangeRate) error
	ExchangeRateList(ctx context.Context) ([]*ExchangeRate, error)
}

// ConfigDAO persists engine preferences as string key/value pairs.
type ConfigDAO interface {
	SetPreference(ctx context.Context, key, value string) error
	Preference(ctx context.Context, key string) (string, error)
}

// BudgetDAO persists budgets and their goals.
type BudgetDAO interface {
	AddBudget(ctx context.Context, budget *Budget) error
	UpdateBudget(ctx context.Context, budget *Budget) error
	BudgetByUUID(ctx context.Context, id string) (*Budget, error)
	BudgetList(ctx context.Context) ([]*Budget, error)
}

// ReminderDAO persists scheduled reminders.
type ReminderDAO interface {
	AddReminder(ctx context.Context, reminder *Reminder) error
	UpdateReminder(ctx context.Context, reminder *Reminder) error
	ReminderList(ctx context.Context) ([]*Reminder, error)
}

// TrashDAO persists the soft-delete staging area. RemoveTrash deletes the
// wrapper and the wrapped object permanently.
type TrashDAO interface {
	AddTrash(ctx context.Context, trash *TrashObject) error
	TrashList(ctx context.Context) ([]*TrashObject, error)
	RemoveTrash(ctx context.Context, trash *TrashObject) error
}

// DAO aggregates the per-family DAOs behind one handle. IsDirty reports
// whether unsaved changes exist, for backends that buffer writes.
type DAO interface {
	Accounts() AccountDAO
	Transactions() TransactionDAO
	Commodities() CommodityDAO
	Config() ConfigDAO
	Budgets() BudgetDAO
	Reminders() ReminderDAO
	Trash() TrashDAO

	IsDirty() bool
	Shutdown(ctx context.Context) error
}
