package engine

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// rateID builds the canonical identifier for a currency pair. The symbol that
// compares greater case-insensitively goes first; this ordering is arbitrary
// but must stay stable because it decides which direction of the rate history
// is stored directly and which is derived by inversion.
func rateID(a, b *CurrencyNode) string {
	if strings.Compare(strings.ToUpper(a.Symbol()), strings.ToUpper(b.Symbol())) > 0 {
		return a.Symbol() + b.Symbol()
	}
	return b.Symbol() + a.Symbol()
}

// ExchangeRateHistoryNode is one observed rate for a pair, one per date.
// The rate is stored in the pair's canonical direction.
type ExchangeRateHistoryNode struct {
	storedObject
	date time.Time
	rate decimal.Decimal
}

func newExchangeRateHistoryNode(date time.Time, rate decimal.Decimal) *ExchangeRateHistoryNode {
	return &ExchangeRateHistoryNode{storedObject: newStoredObject(), date: dateOnly(date), rate: rate}
}

func (n *ExchangeRateHistoryNode) Date() time.Time       { return n.date }
func (n *ExchangeRateHistoryNode) Rate() decimal.Decimal { return n.rate }

// ExchangeRate is the rate history for one currency pair. The base currency
// is the canonical-first currency of the pair; a stored rate r for a date
// means one unit of base buys r units of the counter currency.
type ExchangeRate struct {
	storedObject
	base    *CurrencyNode
	counter *CurrencyNode
	mu      sync.RWMutex
	history []*ExchangeRateHistoryNode
}

func newExchangeRate(a, b *CurrencyNode) *ExchangeRate {
	base, counter := a, b
	if rateID(a, b) != a.Symbol()+b.Symbol() {
		base, counter = b, a
	}
	return &ExchangeRate{storedObject: newStoredObject(), base: base, counter: counter}
}

// RateID returns the canonical pair identifier.
func (r *ExchangeRate) RateID() string { return r.base.Symbol() + r.counter.Symbol() }

func (r *ExchangeRate) BaseCurrency() *CurrencyNode    { return r.base }
func (r *ExchangeRate) CounterCurrency() *CurrencyNode { return r.counter }

// History returns a copy of the rate history sorted by date ascending.
func (r *ExchangeRate) History() []*ExchangeRateHistoryNode {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*ExchangeRateHistoryNode, len(r.history))
	copy(out, r.history)
	return out
}

// historyNode returns the exact node for the date, or nil.
func (r *ExchangeRate) historyNode(date time.Time) *ExchangeRateHistoryNode {
	day := dateOnly(date)
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, n := range r.history {
		if n.date.Equal(day) {
			return n
		}
	}
	return nil
}

// addHistoryNode inserts a node keeping the history sorted and returns the
// displaced node for the same date, if any, so the caller can trash it.
func (r *ExchangeRate) addHistoryNode(node *ExchangeRateHistoryNode) *ExchangeRateHistoryNode {
	r.mu.Lock()
	defer r.mu.Unlock()
	var displaced *ExchangeRateHistoryNode
	for i, n := range r.history {
		if n.date.Equal(node.date) {
			displaced = n
			r.history = append(r.history[:i], r.history[i+1:]...)
			break
		}
	}
	r.history = append(r.history, node)
	sort.Slice(r.history, func(i, j int) bool { return r.history[i].date.Before(r.history[j].date) })
	return displaced
}

func (r *ExchangeRate) removeHistoryNode(date time.Time) *ExchangeRateHistoryNode {
	day := dateOnly(date)
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, n := range r.history {
		if n.date.Equal(day) {
			r.history = append(r.history[:i], r.history[i+1:]...)
			return n
		}
	}
	return nil
}

// RateAsOf returns the rate from the given currency into the other currency
// of the pair as of the date: the exact node when one exists, otherwise the
// closest prior node. Queries against the non-canonical direction return the
// inverse at the engine's division precision. The second result is false when
// no observation exists on or before the date.
func (r *ExchangeRate) RateAsOf(from *CurrencyNode, date time.Time) (decimal.Decimal, bool) {
	day := dateOnly(date)
	r.mu.RLock()
	var node *ExchangeRateHistoryNode
	for i := len(r.history) - 1; i >= 0; i-- {
		if !r.history[i].date.After(day) {
			node = r.history[i]
			break
		}
	}
	r.mu.RUnlock()
	if node == nil {
		return decimal.Decimal{}, false
	}
	if from.UUID() == r.base.UUID() {
		return node.rate, true
	}
	return invert(node.rate), true
}

// LatestRate returns the most recent rate from the given currency, or one
// when the pair has no history, which keeps currency conversion a no-op
// until a rate is known.
func (r *ExchangeRate) LatestRate(from *CurrencyNode) decimal.Decimal {
	r.mu.RLock()
	n := len(r.history)
	var last *ExchangeRateHistoryNode
	if n > 0 {
		last = r.history[n-1]
	}
	r.mu.RUnlock()
	if last == nil {
		return decimal.NewFromInt(1)
	}
	if from.UUID() == r.base.UUID() {
		return last.rate
	}
	return invert(last.rate)
}
