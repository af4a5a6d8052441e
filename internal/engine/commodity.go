package engine

import (
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// dateOnly strips the time-of-day so history nodes and rate lookups compare
// on calendar dates.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// CurrencyNode is the unit of account for an Account and the key for
// exchange rate lookups. Display fields may be set freely before the node is
// registered with an engine; afterwards mutation goes through the engine.
type CurrencyNode struct {
	storedObject
	symbol      string
	scale       int32
	description string
	prefix      string
	suffix      string
}

// NewCurrencyNode builds a currency with the given symbol and decimal scale.
func NewCurrencyNode(symbol string, scale int32) *CurrencyNode {
	return &CurrencyNode{storedObject: newStoredObject(), symbol: symbol, scale: scale}
}

func (c *CurrencyNode) Symbol() string      { return c.symbol }
func (c *CurrencyNode) Scale() int32        { return c.scale }
func (c *CurrencyNode) Description() string { return c.description }
func (c *CurrencyNode) Prefix() string      { return c.prefix }
func (c *CurrencyNode) Suffix() string      { return c.suffix }

func (c *CurrencyNode) SetDescription(description string) { c.description = description }
func (c *CurrencyNode) SetPrefix(prefix string)           { c.prefix = prefix }
func (c *CurrencyNode) SetSuffix(suffix string)           { c.suffix = suffix }

// SecurityHistoryEventType classifies a corporate action on a security.
type SecurityHistoryEventType string

const (
	EventTypeDividend SecurityHistoryEventType = "DIVIDEND"
	EventTypeSplit    SecurityHistoryEventType = "SPLIT"
)

// SecurityHistoryEvent records a dividend or split. Events are value objects
// de-duplicated by equality, so the fields stay comparable.
type SecurityHistoryEvent struct {
	Type  SecurityHistoryEventType
	Date  time.Time
	Value string
}

// NewSecurityHistoryEvent normalizes the date and renders the value at a
// fixed representation so equal events always compare equal.
func NewSecurityHistoryEvent(eventType SecurityHistoryEventType, date time.Time, value decimal.Decimal) SecurityHistoryEvent {
	return SecurityHistoryEvent{Type: eventType, Date: dateOnly(date), Value: value.String()}
}

// SecurityHistoryNode is one observed price for a security, one per date.
type SecurityHistoryNode struct {
	storedObject
	date   time.Time
	price  decimal.Decimal
	high   decimal.Decimal
	low    decimal.Decimal
	volume int64
}

// NewSecurityHistoryNode builds a price observation for the given date.
func NewSecurityHistoryNode(date time.Time, price decimal.Decimal) *SecurityHistoryNode {
	return &SecurityHistoryNode{
		storedObject: newStoredObject(),
		date:         dateOnly(date),
		price:        price,
		high:         price,
		low:          price,
	}
}

func (n *SecurityHistoryNode) Date() time.Time       { return n.date }
func (n *SecurityHistoryNode) Price() decimal.Decimal { return n.price }
func (n *SecurityHistoryNode) High() decimal.Decimal  { return n.high }
func (n *SecurityHistoryNode) Low() decimal.Decimal   { return n.low }
func (n *SecurityHistoryNode) Volume() int64          { return n.volume }

func (n *SecurityHistoryNode) SetHigh(high decimal.Decimal) { n.high = high }
func (n *SecurityHistoryNode) SetLow(low decimal.Decimal)   { n.low = low }
func (n *SecurityHistoryNode) SetVolume(volume int64)       { n.volume = volume }

// SecurityNode is a tradable instrument priced in a reporting currency.
// The price history is kept sorted by date, one node per date.
type SecurityNode struct {
	storedObject
	symbol            string
	scale             int32
	description       string
	quoteSource       string
	reportedCurrency  *CurrencyNode
	historyMu         sync.RWMutex
	history           []*SecurityHistoryNode
	events            []SecurityHistoryEvent
}

// NewSecurityNode builds a security reported in the given currency.
func NewSecurityNode(symbol string, scale int32, reportedCurrency *CurrencyNode) *SecurityNode {
	return &SecurityNode{
		storedObject:     newStoredObject(),
		symbol:           symbol,
		scale:            scale,
		reportedCurrency: reportedCurrency,
	}
}

func (s *SecurityNode) Symbol() string                   { return s.symbol }
func (s *SecurityNode) Scale() int32                     { return s.scale }
func (s *SecurityNode) Description() string              { return s.description }
func (s *SecurityNode) QuoteSource() string              { return s.quoteSource }
func (s *SecurityNode) ReportedCurrency() *CurrencyNode  { return s.reportedCurrency }

func (s *SecurityNode) SetDescription(description string) { s.description = description }
func (s *SecurityNode) SetQuoteSource(source string)      { s.quoteSource = source }

// History returns a copy of the price history sorted by date ascending.
func (s *SecurityNode) History() []*SecurityHistoryNode {
	s.historyMu.RLock()
	defer s.historyMu.RUnlock()
	out := make([]*SecurityHistoryNode, len(s.history))
	copy(out, s.history)
	return out
}

// HistoryNode returns the exact price observation for the date, or nil.
func (s *SecurityNode) HistoryNode(date time.Time) *SecurityHistoryNode {
	day := dateOnly(date)
	s.historyMu.RLock()
	defer s.historyMu.RUnlock()
	for _, n := range s.history {
		if n.date.Equal(day) {
			return n
		}
	}
	return nil
}

// ClosestHistoryNode returns the latest observation dated on or before the
// given date, or nil when the history starts later.
func (s *SecurityNode) ClosestHistoryNode(date time.Time) *SecurityHistoryNode {
	day := dateOnly(date)
	s.historyMu.RLock()
	defer s.historyMu.RUnlock()
	for i := len(s.history) - 1; i >= 0; i-- {
		if !s.history[i].date.After(day) {
			return s.history[i]
		}
	}
	return nil
}

// addHistoryNode inserts a node keeping the slice sorted. The displaced node
// for the same date is returned so the caller can trash it.
func (s *SecurityNode) addHistoryNode(node *SecurityHistoryNode) *SecurityHistoryNode {
	s.historyMu.Lock()
	defer s.historyMu.Unlock()
	var displaced *SecurityHistoryNode
	for i, n := range s.history {
		if n.date.Equal(node.date) {
			displaced = n
			s.history = append(s.history[:i], s.history[i+1:]...)
			break
		}
	}
	s.history = append(s.history, node)
	sort.Slice(s.history, func(i, j int) bool { return s.history[i].date.Before(s.history[j].date) })
	return displaced
}

func (s *SecurityNode) removeHistoryNode(date time.Time) *SecurityHistoryNode {
	day := dateOnly(date)
	s.historyMu.Lock()
	defer s.historyMu.Unlock()
	for i, n := range s.history {
		if n.date.Equal(day) {
			s.history = append(s.history[:i], s.history[i+1:]...)
			return n
		}
	}
	return nil
}

// Events returns a copy of the recorded corporate actions.
func (s *SecurityNode) Events() []SecurityHistoryEvent {
	s.historyMu.RLock()
	defer s.historyMu.RUnlock()
	out := make([]SecurityHistoryEvent, len(s.events))
	copy(out, s.events)
	return out
}

// addEvent records the event unless an equal one already exists.
func (s *SecurityNode) addEvent(event SecurityHistoryEvent) bool {
	s.historyMu.Lock()
	defer s.historyMu.Unlock()
	for _, e := range s.events {
		if e == event {
			return false
		}
	}
	s.events = append(s.events, event)
	return true
}

func (s *SecurityNode) removeEvent(event SecurityHistoryEvent) bool {
	s.historyMu.Lock()
	defer s.historyMu.Unlock()
	for i, e := range s.events {
		if e == event {
			s.events = append(s.events[:i], s.events[i+1:]...)
			return true
		}
	}
	return false
}
