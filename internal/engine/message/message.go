package message

import "fmt"

// Channel groups related events so listeners can subscribe to just the
// traffic they care about.
type Channel string

const (
	ChannelAccount     Channel = "ACCOUNT"
	ChannelBudget      Channel = "BUDGET"
	ChannelCommodity   Channel = "COMMODITY"
	ChannelConfig      Channel = "CONFIG"
	ChannelReminder    Channel = "REMINDER"
	ChannelSystem      Channel = "SYSTEM"
	ChannelTransaction Channel = "TRANSACTION"
)

// Event identifies what happened. Failed variants carry the same payload as
// their successful counterparts so listeners can report what was rejected.
type Event string

const (
	EventAccountAdd              Event = "ACCOUNT_ADD"
	EventAccountAddFailed        Event = "ACCOUNT_ADD_FAILED"
	EventAccountModify           Event = "ACCOUNT_MODIFY"
	EventAccountModifyFailed     Event = "ACCOUNT_MODIFY_FAILED"
	EventAccountRemove           Event = "ACCOUNT_REMOVE"
	EventAccountRemoveFailed     Event = "ACCOUNT_REMOVE_FAILED"
	EventAccountSecurityAdd      Event = "ACCOUNT_SECURITY_ADD"
	EventAccountSecurityRemove   Event = "ACCOUNT_SECURITY_REMOVE"
	EventAccountVisibilityChange Event = "ACCOUNT_VISIBILITY_CHANGE"

	EventBudgetAdd          Event = "BUDGET_ADD"
	EventBudgetAddFailed    Event = "BUDGET_ADD_FAILED"
	EventBudgetGoalsUpdate  Event = "BUDGET_GOALS_UPDATE"
	EventBudgetRemove       Event = "BUDGET_REMOVE"
	EventBudgetRemoveFailed Event = "BUDGET_REMOVE_FAILED"
	EventBudgetUpdate       Event = "BUDGET_UPDATE"

	EventCurrencyAdd          Event = "CURRENCY_ADD"
	EventCurrencyAddFailed    Event = "CURRENCY_ADD_FAILED"
	EventCurrencyModify       Event = "CURRENCY_MODIFY"
	EventCurrencyRemove       Event = "CURRENCY_REMOVE"
	EventCurrencyRemoveFailed Event = "CURRENCY_REMOVE_FAILED"

	EventSecurityAdd                 Event = "SECURITY_ADD"
	EventSecurityAddFailed           Event = "SECURITY_ADD_FAILED"
	EventSecurityModify              Event = "SECURITY_MODIFY"
	EventSecurityRemove              Event = "SECURITY_REMOVE"
	EventSecurityRemoveFailed        Event = "SECURITY_REMOVE_FAILED"
	EventSecurityHistoryAdd          Event = "SECURITY_HISTORY_ADD"
	EventSecurityHistoryRemove       Event = "SECURITY_HISTORY_REMOVE"
	EventSecurityHistoryEventAdd     Event = "SECURITY_HISTORY_EVENT_ADD"
	EventSecurityHistoryEventRemove  Event = "SECURITY_HISTORY_EVENT_REMOVE"

	EventExchangeRateAdd    Event = "EXCHANGE_RATE_ADD"
	EventExchangeRateRemove Event = "EXCHANGE_RATE_REMOVE"

	EventConfigModify Event = "CONFIG_MODIFY"

	EventReminderAdd          Event = "REMINDER_ADD"
	EventReminderAddFailed    Event = "REMINDER_ADD_FAILED"
	EventReminderUpdate       Event = "REMINDER_UPDATE"
	EventReminderRemove       Event = "REMINDER_REMOVE"
	EventReminderRemoveFailed Event = "REMINDER_REMOVE_FAILED"

	EventTransactionAdd          Event = "TRANSACTION_ADD"
	EventTransactionAddFailed    Event = "TRANSACTION_ADD_FAILED"
	EventTransactionRemove       Event = "TRANSACTION_REMOVE"
	EventTransactionRemoveFailed Event = "TRANSACTION_REMOVE_FAILED"

	EventBackgroundProcessStarted Event = "BACKGROUND_PROCESS_STARTED"
	EventBackgroundProcessStopped Event = "BACKGROUND_PROCESS_STOPPED"
)

// Property names an object attached to a message.
type Property string

const (
	PropertyAccount      Property = "account"
	PropertyBudget       Property = "budget"
	PropertyCommodity    Property = "commodity"
	PropertyConfig       Property = "config"
	PropertyExchangeRate Property = "exchangeRate"
	PropertyReminder     Property = "reminder"
	PropertyTransaction  Property = "transaction"
)

// Message is an immutable notification published on a Bus. Source carries the
// id of the engine that produced the event so listeners attached to several
// engines can tell the origins apart.
type Message struct {
	Channel    Channel
	Event      Event
	Source     string
	properties map[Property]any
}

// New builds a message for the given channel and event.
func New(channel Channel, event Event, source string) *Message {
	return &Message{
		Channel:    channel,
		Event:      event,
		Source:     source,
		properties: make(map[Property]any),
	}
}

// With attaches a named object and returns the message for chaining.
func (m *Message) With(key Property, value any) *Message {
	m.properties[key] = value
	return m
}

// Get returns the object attached under key, or nil.
func (m *Message) Get(key Property) any {
	return m.properties[key]
}

func (m *Message) String() string {
	return fmt.Sprintf("message[channel=%s event=%s source=%s]", m.Channel, m.Event, m.Source)
}
