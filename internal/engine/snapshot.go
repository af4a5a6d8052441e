package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

// Snapshots are the flattened, uuid-referenced form of the object graph
// that persistence backends store and reload. Restore functions rebuild
// live objects; the Restore* methods on Account relink the graph. They are
// for DAO implementations only; normal mutation goes through the engine.

// CurrencySnapshot flattens a CurrencyNode.
type CurrencySnapshot struct {
	UUID        string
	Symbol      string
	Scale       int32
	Description string
	Prefix      string
	Suffix      string
	Removed     bool
}

// Snapshot flattens the currency for persistence.
func (c *CurrencyNode) Snapshot() CurrencySnapshot {
	return CurrencySnapshot{
		UUID:        c.id,
		Symbol:      c.symbol,
		Scale:       c.scale,
		Description: c.description,
		Prefix:      c.prefix,
		Suffix:      c.suffix,
		Removed:     c.removed,
	}
}

// RestoreCurrency rebuilds a currency from its snapshot.
func RestoreCurrency(s CurrencySnapshot) *CurrencyNode {
	return &CurrencyNode{
		storedObject: storedObject{id: s.UUID, removed: s.Removed},
		symbol:       s.Symbol,
		scale:        s.Scale,
		description:  s.Description,
		prefix:       s.Prefix,
		suffix:       s.Suffix,
	}
}

// SecurityHistorySnapshot flattens one price observation.
type SecurityHistorySnapshot struct {
	UUID   string
	Date   time.Time
	Price  decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Volume int64
}

// SecurityEventSnapshot flattens one corporate action record.
type SecurityEventSnapshot struct {
	Type  string
	Date  time.Time
	Value string
}

// SecuritySnapshot flattens a SecurityNode with its history.
type SecuritySnapshot struct {
	UUID                 string
	Symbol               string
	Scale                int32
	Description          string
	QuoteSource          string
	ReportedCurrencyUUID string
	Removed              bool
	History              []SecurityHistorySnapshot
	Events               []SecurityEventSnapshot
}

// Snapshot flattens the security for persistence.
func (s *SecurityNode) Snapshot() SecuritySnapshot {
	out := SecuritySnapshot{
		UUID:        s.id,
		Symbol:      s.symbol,
		Scale:       s.scale,
		Description: s.description,
		QuoteSource: s.quoteSource,
		Removed:     s.removed,
	}
	if s.reportedCurrency != nil {
		out.ReportedCurrencyUUID = s.reportedCurrency.UUID()
	}
	for _, n := range s.History() {
		out.History = append(out.History, SecurityHistorySnapshot{
			UUID:   n.id,
			Date:   n.date,
			Price:  n.price,
			High:   n.high,
			Low:    n.low,
			Volume: n.volume,
		})
	}
	for _, ev := range s.Events() {
		out.Events = append(out.Events, SecurityEventSnapshot{
			Type:  string(ev.Type),
			Date:  ev.Date,
			Value: ev.Value,
		})
	}
	return out
}

// RestoreSecurity rebuilds a security; the reporting currency is resolved
// from the currency index.
func RestoreSecurity(s SecuritySnapshot, currencies map[string]*CurrencyNode) *SecurityNode {
	node := &SecurityNode{
		storedObject:     storedObject{id: s.UUID, removed: s.Removed},
		symbol:           s.Symbol,
		scale:            s.Scale,
		description:      s.Description,
		quoteSource:      s.QuoteSource,
		reportedCurrency: currencies[s.ReportedCurrencyUUID],
	}
	for _, h := range s.History {
		node.history = append(node.history, &SecurityHistoryNode{
			storedObject: storedObject{id: h.UUID},
			date:         dateOnly(h.Date),
			price:        h.Price,
			high:         h.High,
			low:          h.Low,
			volume:       h.Volume,
		})
	}
	for _, ev := range s.Events {
		node.events = append(node.events, SecurityHistoryEvent{
			Type:  SecurityHistoryEventType(ev.Type),
			Date:  dateOnly(ev.Date),
			Value: ev.Value,
		})
	}
	return node
}

// RateHistorySnapshot flattens one exchange rate observation.
type RateHistorySnapshot struct {
	UUID string
	Date time.Time
	Rate decimal.Decimal
}

// ExchangeRateSnapshot flattens an ExchangeRate with its history.
type ExchangeRateSnapshot struct {
	UUID        string
	BaseUUID    string
	CounterUUID string
	Removed     bool
	History     []RateHistorySnapshot
}

// Snapshot flattens the rate pair for persistence.
func (r *ExchangeRate) Snapshot() ExchangeRateSnapshot {
	out := ExchangeRateSnapshot{
		UUID:        r.id,
		BaseUUID:    r.base.UUID(),
		CounterUUID: r.counter.UUID(),
		Removed:     r.removed,
	}
	for _, n := range r.History() {
		out.History = append(out.History, RateHistorySnapshot{UUID: n.id, Date: n.date, Rate: n.rate})
	}
	return out
}

// RestoreExchangeRate rebuilds a rate pair from its snapshot.
func RestoreExchangeRate(s ExchangeRateSnapshot, currencies map[string]*CurrencyNode) *ExchangeRate {
	r := &ExchangeRate{
		storedObject: storedObject{id: s.UUID, removed: s.Removed},
		base:         currencies[s.BaseUUID],
		counter:      currencies[s.CounterUUID],
	}
	for _, h := range s.History {
		r.history = append(r.history, &ExchangeRateHistoryNode{
			storedObject: storedObject{id: h.UUID},
			date:         dateOnly(h.Date),
			rate:         h.Rate,
		})
	}
	return r
}

// AccountSnapshot flattens an Account; structure is captured as uuid
// references and relinked by the loader.
type AccountSnapshot struct {
	UUID               string
	ParentUUID         string
	CurrencyUUID       string
	Type               string
	Name               string
	Description        string
	Notes              string
	Code               int
	AccountNumber      string
	BankID             string
	Visible            bool
	Locked             bool
	Placeholder        bool
	ExcludedFromBudget bool
	Removed            bool
	SecurityUUIDs      []string
	Attributes         map[string]string
}

// Snapshot flattens the account for persistence.
func (a *Account) Snapshot() AccountSnapshot {
	out := AccountSnapshot{
		UUID:               a.id,
		Type:               string(a.accountType),
		Name:               a.name,
		Description:        a.description,
		Notes:              a.notes,
		Code:               a.code,
		AccountNumber:      a.accountNumber,
		BankID:             a.bankID,
		Visible:            a.visible,
		Locked:             a.locked,
		Placeholder:        a.placeholder,
		ExcludedFromBudget: a.excludedFromBudget,
		Removed:            a.removed,
		Attributes:         a.Attributes(),
	}
	if a.parent != nil {
		out.ParentUUID = a.parent.UUID()
	}
	if a.currency != nil {
		out.CurrencyUUID = a.currency.UUID()
	}
	for _, s := range a.Securities() {
		out.SecurityUUIDs = append(out.SecurityUUIDs, s.UUID())
	}
	return out
}

// RestoreAccount rebuilds an account; parent, securities and transactions
// are relinked afterwards with the Restore* methods.
func RestoreAccount(s AccountSnapshot, currencies map[string]*CurrencyNode) *Account {
	attrs := s.Attributes
	if attrs == nil {
		attrs = make(map[string]string)
	}
	return &Account{
		storedObject:       storedObject{id: s.UUID, removed: s.Removed},
		accountType:        AccountType(s.Type),
		currency:           currencies[s.CurrencyUUID],
		name:               s.Name,
		description:        s.Description,
		notes:              s.Notes,
		code:               s.Code,
		accountNumber:      s.AccountNumber,
		bankID:             s.BankID,
		visible:            s.Visible,
		locked:             s.Locked,
		placeholder:        s.Placeholder,
		excludedFromBudget: s.ExcludedFromBudget,
		attributes:         attrs,
	}
}

// RestoreChild relinks a loaded child account under its parent.
func (a *Account) RestoreChild(child *Account) { a.addChild(child) }

// RestoreSecurity relinks a loaded security holding.
func (a *Account) RestoreSecurity(node *SecurityNode) { a.addSecurity(node) }

// RestoreTransaction reattaches a loaded transaction to the account,
// bypassing engine validation.
func (a *Account) RestoreTransaction(t *Transaction) {
	a.txMu.Lock()
	defer a.txMu.Unlock()
	for _, existing := range a.transactions {
		if existing == t {
			return
		}
	}
	a.transactions = append(a.transactions, t)
	a.balanceCache = nil
	a.reconciledCache = nil
}

// EntrySnapshot flattens one transaction entry.
type EntrySnapshot struct {
	CreditAccountUUID string
	DebitAccountUUID  string
	CreditAmount      decimal.Decimal
	DebitAmount       decimal.Decimal
	CreditReconciled  string
	DebitReconciled   string
	Memo              string
	Tag               string
}

// InvestmentSnapshot flattens the investment detail of a transaction.
type InvestmentSnapshot struct {
	Action       string
	SecurityUUID string
	AccountUUID  string
	Price        decimal.Decimal
	Quantity     decimal.Decimal
}

// TransactionSnapshot flattens a Transaction with its entries.
type TransactionSnapshot struct {
	UUID       string
	Date       time.Time
	Timestamp  time.Time
	Number     string
	Payee      string
	Memo       string
	Removed    bool
	Entries    []EntrySnapshot
	Investment *InvestmentSnapshot
}

// Snapshot flattens the transaction for persistence.
func (t *Transaction) Snapshot() TransactionSnapshot {
	out := TransactionSnapshot{
		UUID:      t.id,
		Date:      t.date,
		Timestamp: t.timestamp,
		Number:    t.number,
		Payee:     t.payee,
		Memo:      t.memo,
		Removed:   t.removed,
	}
	for _, e := range t.entries {
		es := EntrySnapshot{
			CreditAmount:     e.creditAmount,
			DebitAmount:      e.debitAmount,
			CreditReconciled: string(e.creditReconciled),
			DebitReconciled:  string(e.debitReconciled),
			Memo:             e.memo,
			Tag:              string(e.tag),
		}
		if e.creditAccount != nil {
			es.CreditAccountUUID = e.creditAccount.UUID()
		}
		if e.debitAccount != nil {
			es.DebitAccountUUID = e.debitAccount.UUID()
		}
		out.Entries = append(out.Entries, es)
	}
	if d := t.investment; d != nil {
		is := &InvestmentSnapshot{
			Action:   string(d.Action),
			Price:    d.Price,
			Quantity: d.Quantity,
		}
		if d.Security != nil {
			is.SecurityUUID = d.Security.UUID()
		}
		if d.Account != nil {
			is.AccountUUID = d.Account.UUID()
		}
		out.Investment = is
	}
	return out
}

// RestoreTransaction rebuilds a transaction, resolving account and security
// references from the loaded indexes.
func RestoreTransaction(s TransactionSnapshot, accounts map[string]*Account, securities map[string]*SecurityNode) *Transaction {
	t := &Transaction{
		storedObject: storedObject{id: s.UUID, removed: s.Removed},
		date:         dateOnly(s.Date),
		timestamp:    s.Timestamp,
		number:       s.Number,
		payee:        s.Payee,
		memo:         s.Memo,
	}
	for _, es := range s.Entries {
		t.entries = append(t.entries, &TransactionEntry{
			creditAccount:    accounts[es.CreditAccountUUID],
			debitAccount:     accounts[es.DebitAccountUUID],
			creditAmount:     es.CreditAmount,
			debitAmount:      es.DebitAmount,
			creditReconciled: ReconciledState(es.CreditReconciled),
			debitReconciled:  ReconciledState(es.DebitReconciled),
			memo:             es.Memo,
			tag:              TransactionTag(es.Tag),
		})
	}
	if is := s.Investment; is != nil {
		t.investment = &InvestmentDetail{
			Action:   InvestmentAction(is.Action),
			Security: securities[is.SecurityUUID],
			Account:  accounts[is.AccountUUID],
			Price:    is.Price,
			Quantity: is.Quantity,
		}
	}
	return t
}

// GoalSnapshot flattens one budget goal.
type GoalSnapshot struct {
	UUID    string
	Period  string
	Amounts []decimal.Decimal
}

// BudgetSnapshot flattens a Budget with its per-account goals.
type BudgetSnapshot struct {
	UUID        string
	Name        string
	Description string
	Period      string
	Removed     bool
	Goals       map[string]GoalSnapshot
}

// Snapshot flattens the budget for persistence.
func (b *Budget) Snapshot() BudgetSnapshot {
	out := BudgetSnapshot{
		UUID:        b.id,
		Name:        b.name,
		Description: b.description,
		Period:      string(b.period),
		Removed:     b.removed,
		Goals:       make(map[string]GoalSnapshot),
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for accountID, g := range b.goals {
		amounts := make([]decimal.Decimal, len(g.amounts))
		copy(amounts, g.amounts)
		out.Goals[accountID] = GoalSnapshot{UUID: g.id, Period: string(g.period), Amounts: amounts}
	}
	return out
}

// RestoreBudget rebuilds a budget from its snapshot.
func RestoreBudget(s BudgetSnapshot) *Budget {
	b := &Budget{
		storedObject: storedObject{id: s.UUID, removed: s.Removed},
		name:         s.Name,
		description:  s.Description,
		period:       BudgetPeriod(s.Period),
		goals:        make(map[string]*BudgetGoal),
	}
	for accountID, gs := range s.Goals {
		goal := NewBudgetGoal(BudgetPeriod(gs.Period))
		goal.id = gs.UUID
		copy(goal.amounts, gs.Amounts)
		b.goals[accountID] = goal
	}
	return b
}

// ReminderSnapshot flattens a Reminder.
type ReminderSnapshot struct {
	UUID                    string
	Description             string
	Enabled                 bool
	AutoEnter               bool
	AccountUUID             string
	TemplateTransactionUUID string
	Type                    string
	Increment               int
	StartDate               time.Time
	EndDate                 time.Time
	LastDate                time.Time
	Removed                 bool
}

// Snapshot flattens the reminder for persistence.
func (r *Reminder) Snapshot() ReminderSnapshot {
	out := ReminderSnapshot{
		UUID:        r.id,
		Description: r.description,
		Enabled:     r.enabled,
		AutoEnter:   r.autoEnter,
		Type:        string(r.reminderType),
		Increment:   r.increment,
		StartDate:   r.startDate,
		EndDate:     r.endDate,
		LastDate:    r.lastDate,
		Removed:     r.removed,
	}
	if r.account != nil {
		out.AccountUUID = r.account.UUID()
	}
	if r.template != nil {
		out.TemplateTransactionUUID = r.template.UUID()
	}
	return out
}

// RestoreReminder rebuilds a reminder, resolving its account and template
// transaction from the loaded indexes.
func RestoreReminder(s ReminderSnapshot, accounts map[string]*Account, transactions map[string]*Transaction) *Reminder {
	return &Reminder{
		storedObject: storedObject{id: s.UUID, removed: s.Removed},
		description:  s.Description,
		enabled:      s.Enabled,
		autoEnter:    s.AutoEnter,
		account:      accounts[s.AccountUUID],
		template:     transactions[s.TemplateTransactionUUID],
		reminderType: ReminderType(s.Type),
		increment:    s.Increment,
		startDate:    s.StartDate,
		endDate:      s.EndDate,
		lastDate:     s.LastDate,
	}
}
