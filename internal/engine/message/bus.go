package message

import (
	"log/slog"
	"reflect"
	"sync"
)

// Listener receives messages published on the channels it subscribed to.
// Dispatch is synchronous; listeners must not block.
type Listener interface {
	MessagePosted(m *Message)
}

// ListenerFunc adapts a plain function to the Listener interface.
type ListenerFunc func(m *Message)

// MessagePosted calls f.
func (f ListenerFunc) MessagePosted(m *Message) { f(m) }

// Bus is a synchronous publish/subscribe hub keyed by Channel.
type Bus struct {
	mu        sync.RWMutex
	listeners map[Channel][]Listener
	logger    *slog.Logger
}

// NewBus returns an empty bus. A nil logger falls back to slog.Default.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		listeners: make(map[Channel][]Listener),
		logger:    logger,
	}
}

// Subscribe registers l on every given channel. Subscribing the same listener
// twice on a channel is a no-op.
func (b *Bus) Subscribe(l Listener, channels ...Channel) {
	if l == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range channels {
		if b.indexOfLocked(c, l) < 0 {
			b.listeners[c] = append(b.listeners[c], l)
		}
	}
}

// Unsubscribe removes l from the given channels.
func (b *Bus) Unsubscribe(l Listener, channels ...Channel) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range channels {
		if i := b.indexOfLocked(c, l); i >= 0 {
			b.listeners[c] = append(b.listeners[c][:i], b.listeners[c][i+1:]...)
		}
	}
}

func (b *Bus) indexOfLocked(c Channel, l Listener) int {
	for i, registered := range b.listeners[c] {
		if sameListener(registered, l) {
			return i
		}
	}
	return -1
}

// sameListener reports whether two listeners are the same subscriber.
// Interface equality panics on uncomparable dynamic types such as
// ListenerFunc, so funcs match by code pointer instead.
func sameListener(a, b Listener) bool {
	ta := reflect.TypeOf(a)
	if ta != reflect.TypeOf(b) {
		return false
	}
	if ta.Comparable() {
		return a == b
	}
	if ta.Kind() == reflect.Func {
		return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
	}
	return false
}

// Publish delivers m to every listener on its channel, in subscription order,
// on the calling goroutine.
func (b *Bus) Publish(m *Message) {
	if m == nil {
		return
	}
	b.mu.RLock()
	subscribers := make([]Listener, len(b.listeners[m.Channel]))
	copy(subscribers, b.listeners[m.Channel])
	b.mu.RUnlock()

	b.logger.Debug("publishing message",
		slog.String("channel", string(m.Channel)),
		slog.String("event", string(m.Event)),
	)

	for _, l := range subscribers {
		l.MessagePosted(m)
	}
}

var (
	registryMu sync.Mutex
	registry   = make(map[string]*Bus)
)

// BusForEngine returns the shared bus for the named engine, creating it on
// first use. Engines with different names never see each other's traffic.
func BusForEngine(name string, logger *slog.Logger) *Bus {
	registryMu.Lock()
	defer registryMu.Unlock()
	if b, ok := registry[name]; ok {
		return b
	}
	b := NewBus(logger)
	registry[name] = b
	return b
}

// ReleaseBus drops the named bus from the registry. Used when an engine shuts
// down so a later engine with the same name starts with fresh subscriptions.
func ReleaseBus(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(registry, name)
}
