package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusDeliversToSubscribedChannelOnly(t *testing.T) {
	bus := NewBus(nil)

	var got []*Message
	bus.Subscribe(ListenerFunc(func(m *Message) {
		got = append(got, m)
	}), ChannelAccount)

	bus.Publish(New(ChannelAccount, EventAccountAdd, "engine-1"))
	bus.Publish(New(ChannelTransaction, EventTransactionAdd, "engine-1"))

	require.Len(t, got, 1)
	assert.Equal(t, EventAccountAdd, got[0].Event)
	assert.Equal(t, "engine-1", got[0].Source)
}

func TestBusDispatchIsSynchronousAndOrdered(t *testing.T) {
	bus := NewBus(nil)

	var order []string
	bus.Subscribe(ListenerFunc(func(m *Message) { order = append(order, "first") }), ChannelSystem)
	bus.Subscribe(ListenerFunc(func(m *Message) { order = append(order, "second") }), ChannelSystem)

	bus.Publish(New(ChannelSystem, EventBackgroundProcessStarted, "e"))

	// Publish returns only after both listeners ran, in subscription order.
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestBusUnsubscribeStopsDelivery(t *testing.T) {
	bus := NewBus(nil)

	count := 0
	l := ListenerFunc(func(m *Message) { count++ })
	bus.Subscribe(l, ChannelCommodity)

	bus.Publish(New(ChannelCommodity, EventCurrencyAdd, "e"))
	bus.Unsubscribe(l, ChannelCommodity)
	bus.Publish(New(ChannelCommodity, EventCurrencyAdd, "e"))

	assert.Equal(t, 1, count)
}

func TestBusFuncListenersCoexistAndUnsubscribeIndividually(t *testing.T) {
	bus := NewBus(nil)

	first, second := 0, 0
	a := ListenerFunc(func(m *Message) { first++ })
	b := ListenerFunc(func(m *Message) { second++ })

	// Func values are not comparable with ==; registering and removing them
	// must not panic and must keep the two subscriptions distinct.
	bus.Subscribe(a, ChannelBudget)
	bus.Subscribe(b, ChannelBudget)
	bus.Subscribe(a, ChannelBudget)

	bus.Publish(New(ChannelBudget, EventBudgetAdd, "e"))
	require.Equal(t, 1, first)
	require.Equal(t, 1, second)

	bus.Unsubscribe(a, ChannelBudget)
	bus.Publish(New(ChannelBudget, EventBudgetAdd, "e"))

	assert.Equal(t, 1, first)
	assert.Equal(t, 2, second)
}

func TestBusForEngineIsolatesByName(t *testing.T) {
	t.Cleanup(func() {
		ReleaseBus("alpha")
		ReleaseBus("beta")
	})

	alpha := BusForEngine("alpha", nil)
	beta := BusForEngine("beta", nil)
	require.NotSame(t, alpha, beta)
	assert.Same(t, alpha, BusForEngine("alpha", nil))

	count := 0
	alpha.Subscribe(ListenerFunc(func(m *Message) { count++ }), ChannelAccount)
	beta.Publish(New(ChannelAccount, EventAccountAdd, "beta"))
	assert.Equal(t, 0, count)
}

func TestMessageProperties(t *testing.T) {
	m := New(ChannelTransaction, EventTransactionAddFailed, "e").
		With(PropertyTransaction, "tx-1")

	assert.Equal(t, "tx-1", m.Get(PropertyTransaction))
	assert.Nil(t, m.Get(PropertyAccount))
}
