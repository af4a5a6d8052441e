package engine

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// ReconciledState marks an entry's statement reconciliation status for one
// side of the entry.
type ReconciledState string

const (
	NotReconciled ReconciledState = "N"
	Cleared       ReconciledState = "C"
	Reconciled    ReconciledState = "R"
)

// TransactionTag classifies an entry's role inside a transaction; investment
// transactions use it to mark fee and gain/loss legs.
type TransactionTag string

const (
	TagBank                   TransactionTag = "BANK"
	TagInvestment             TransactionTag = "INVESTMENT"
	TagInvestmentFee          TransactionTag = "INVESTMENT_FEE"
	TagInvestmentCashTransfer TransactionTag = "INVESTMENT_CASH_TRANSFER"
	TagGainLoss               TransactionTag = "GAIN_LOSS"
	TagVat                    TransactionTag = "VAT"
)

// TransactionType describes the shape of a transaction, derived from its
// entries rather than stored.
type TransactionType string

const (
	TypeInvalid     TransactionType = "INVALID"
	TypeSingleEntry TransactionType = "SINGLENTRY"
	TypeDoubleEntry TransactionType = "DOUBLEENTRY"
	TypeSplitEntry  TransactionType = "SPLITENTRY"
	TypeInvestment  TransactionType = "INVESTMENT"
)

// TransactionEntry is one credit/debit pair. The credit amount is never
// negative and the debit amount never positive; when the two accounts use
// different currencies the differing magnitudes encode the exchange rate at
// transaction time.
type TransactionEntry struct {
	creditAccount    *Account
	debitAccount     *Account
	creditAmount     decimal.Decimal
	debitAmount      decimal.Decimal
	creditReconciled ReconciledState
	debitReconciled  ReconciledState
	memo             string
	tag              TransactionTag
}

// NewTransactionEntry builds a same-currency entry moving amount from the
// debit account to the credit account.
func NewTransactionEntry(credit, debit *Account, amount decimal.Decimal) *TransactionEntry {
	return &TransactionEntry{
		creditAccount:    credit,
		debitAccount:     debit,
		creditAmount:     amount.Abs(),
		debitAmount:      amount.Abs().Neg(),
		creditReconciled: NotReconciled,
		debitReconciled:  NotReconciled,
		tag:              TagBank,
	}
}

// NewMultiCurrencyEntry builds an entry whose credit and debit magnitudes
// differ because the two accounts use different currencies.
func NewMultiCurrencyEntry(credit, debit *Account, creditAmount, debitAmount decimal.Decimal) *TransactionEntry {
	return &TransactionEntry{
		creditAccount:    credit,
		debitAccount:     debit,
		creditAmount:     creditAmount.Abs(),
		debitAmount:      debitAmount.Abs().Neg(),
		creditReconciled: NotReconciled,
		debitReconciled:  NotReconciled,
		tag:              TagBank,
	}
}

func (e *TransactionEntry) CreditAccount() *Account      { return e.creditAccount }
func (e *TransactionEntry) DebitAccount() *Account       { return e.debitAccount }
func (e *TransactionEntry) CreditAmount() decimal.Decimal { return e.creditAmount }
func (e *TransactionEntry) DebitAmount() decimal.Decimal  { return e.debitAmount }
func (e *TransactionEntry) Memo() string                  { return e.memo }
func (e *TransactionEntry) Tag() TransactionTag           { return e.tag }

func (e *TransactionEntry) SetMemo(memo string)       { e.memo = memo }
func (e *TransactionEntry) SetTag(tag TransactionTag) { e.tag = tag }

// Amount returns the entry's signed effect on the given account: the credit
// amount for the credit account, the debit amount for the debit account, and
// zero for anybody else.
func (e *TransactionEntry) Amount(account *Account) decimal.Decimal {
	switch {
	case account == e.creditAccount:
		return e.creditAmount
	case account == e.debitAccount:
		return e.debitAmount
	default:
		return decimal.Decimal{}
	}
}

// Reconciled returns the reconciliation state of the entry for one account.
func (e *TransactionEntry) Reconciled(account *Account) ReconciledState {
	switch {
	case account == e.creditAccount:
		return e.creditReconciled
	case account == e.debitAccount:
		return e.debitReconciled
	default:
		return NotReconciled
	}
}

func (e *TransactionEntry) setReconciled(account *Account, state ReconciledState) {
	if account == e.creditAccount {
		e.creditReconciled = state
	}
	if account == e.debitAccount {
		e.debitReconciled = state
	}
}

// IsMultiCurrency reports whether the entry crosses currencies.
func (e *TransactionEntry) IsMultiCurrency() bool {
	if e.creditAccount == nil || e.debitAccount == nil {
		return false
	}
	cc := e.creditAccount.CurrencyNode()
	dc := e.debitAccount.CurrencyNode()
	return cc != nil && dc != nil && cc.UUID() != dc.UUID()
}

// valid checks the structural invariants of a single entry.
func (e *TransactionEntry) valid() bool {
	if e.creditAccount == nil || e.debitAccount == nil || e.tag == "" {
		return false
	}
	if e.creditAmount.IsNegative() || e.debitAmount.IsPositive() {
		return false
	}
	return true
}

func (e *TransactionEntry) clone() *TransactionEntry {
	dup := *e
	return &dup
}

// InvestmentAction names the kind of an investment transaction. Each action
// constrains the entry shape; see investment.go.
type InvestmentAction string

const (
	ActionBuy             InvestmentAction = "BUY"
	ActionSell            InvestmentAction = "SELL"
	ActionDividend        InvestmentAction = "DIVIDEND"
	ActionReinvestDiv     InvestmentAction = "REINVESTDIV"
	ActionSplitShare      InvestmentAction = "SPLITSHARE"
	ActionMergeShare      InvestmentAction = "MERGESHARE"
	ActionAddShare        InvestmentAction = "ADDSHARE"
	ActionRemoveShare     InvestmentAction = "REMOVESHARE"
	ActionReturnOfCapital InvestmentAction = "RETURNOFCAPITAL"
)

// InvestmentDetail carries the security-specific fields of an investment
// transaction. A nil detail means a plain cash transaction.
type InvestmentDetail struct {
	Action   InvestmentAction
	Security *SecurityNode
	Account  *Account
	Price    decimal.Decimal
	Quantity decimal.Decimal
}

// Transaction is the atomic unit of double-entry bookkeeping: one or more
// entries applied together. A transaction is immutable once attached; edits
// go through the engine as remove/add pairs except for reconciliation, which
// is updated in place.
type Transaction struct {
	storedObject
	date       time.Time
	timestamp  time.Time
	number     string
	payee      string
	memo       string
	entries    []*TransactionEntry
	investment *InvestmentDetail
}

// NewTransaction builds an empty transaction dated the given day.
func NewTransaction(date time.Time) *Transaction {
	return &Transaction{
		storedObject: newStoredObject(),
		date:         dateOnly(date),
		timestamp:    time.Now(),
	}
}

// NewInvestmentTransaction builds a transaction carrying investment detail.
func NewInvestmentTransaction(date time.Time, detail *InvestmentDetail) *Transaction {
	t := NewTransaction(date)
	t.investment = detail
	return t
}

func (t *Transaction) Date() time.Time               { return t.date }
func (t *Transaction) Timestamp() time.Time          { return t.timestamp }
func (t *Transaction) Number() string                { return t.number }
func (t *Transaction) Payee() string                 { return t.payee }
func (t *Transaction) Memo() string                  { return t.memo }
func (t *Transaction) Investment() *InvestmentDetail { return t.investment }

func (t *Transaction) SetNumber(number string) { t.number = number }
func (t *Transaction) SetPayee(payee string)   { t.payee = payee }
func (t *Transaction) SetMemo(memo string)     { t.memo = memo }

// AddEntry appends an entry. Entries are only added while the transaction is
// being assembled, before it is handed to the engine.
func (t *Transaction) AddEntry(entry *TransactionEntry) {
	t.entries = append(t.entries, entry)
}

// Entries returns a copy of the entry list.
func (t *Transaction) Entries() []*TransactionEntry {
	out := make([]*TransactionEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Accounts returns the distinct accounts referenced by the entries, sorted
// by name for stable iteration.
func (t *Transaction) Accounts() []*Account {
	seen := make(map[string]*Account)
	for _, e := range t.entries {
		if e.creditAccount != nil {
			seen[e.creditAccount.UUID()] = e.creditAccount
		}
		if e.debitAccount != nil {
			seen[e.debitAccount.UUID()] = e.debitAccount
		}
	}
	out := make([]*Account, 0, len(seen))
	for _, a := range seen {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// CommonAccount returns the account referenced by every entry, or nil. Split
// transactions are only valid when such an account exists.
func (t *Transaction) CommonAccount() *Account {
	if len(t.entries) == 0 {
		return nil
	}
	first := t.entries[0]
	for _, candidate := range []*Account{first.creditAccount, first.debitAccount} {
		if candidate == nil {
			continue
		}
		common := true
		for _, e := range t.entries[1:] {
			if e.creditAccount != candidate && e.debitAccount != candidate {
				common = false
				break
			}
		}
		if common {
			return candidate
		}
	}
	return nil
}

// Amount returns the transaction's signed effect on one account, summed over
// all entries.
func (t *Transaction) Amount(account *Account) decimal.Decimal {
	sum := decimal.Decimal{}
	for _, e := range t.entries {
		sum = sum.Add(e.Amount(account))
	}
	return sum
}

// Type derives the transaction shape from the entries.
func (t *Transaction) Type() TransactionType {
	if t.investment != nil {
		return TypeInvestment
	}
	switch len(t.entries) {
	case 0:
		return TypeInvalid
	case 1:
		if t.entries[0].creditAccount == t.entries[0].debitAccount {
			return TypeSingleEntry
		}
		return TypeDoubleEntry
	default:
		return TypeSplitEntry
	}
}

// Clone returns a deep copy with a fresh uuid and timestamp, dated the given
// day. Reminders use this to materialize template transactions.
func (t *Transaction) Clone(date time.Time) *Transaction {
	dup := NewTransaction(date)
	dup.number = t.number
	dup.payee = t.payee
	dup.memo = t.memo
	if t.investment != nil {
		detail := *t.investment
		dup.investment = &detail
	}
	for _, e := range t.entries {
		dup.entries = append(dup.entries, e.clone())
	}
	return dup
}
