package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ranlab/jgnash/internal/apperrors"
	"github.com/ranlab/jgnash/internal/engine/message"
)

// Preference keys the engine persists through the config DAO.
const (
	prefAccountSeparator = "accountSeparator"
	prefDefaultCurrency  = "defaultCurrency"
	prefLastQuoteUpdate  = "lastQuoteUpdate"
)

const defaultAccountSeparator = ":"

// Config tunes an engine instance. Zero values fall back to the defaults
// listed on each field.
type Config struct {
	// Name keys the engine's message bus; defaults to "default".
	Name string
	// DefaultCurrencySymbol seeds the default currency on first start;
	// defaults to USD.
	DefaultCurrencySymbol string
	// TrashRetention is the minimum age before trash is evicted; defaults
	// to five minutes.
	TrashRetention time.Duration
	// TrashSweepInterval is the fixed delay between sweeps; defaults to
	// one minute.
	TrashSweepInterval time.Duration
	// BackgroundStartDelay postpones the startup quote update kick;
	// defaults to ten seconds.
	BackgroundStartDelay time.Duration
	// UpdateOnStartup schedules a quote update after start when the last
	// update is stale.
	UpdateOnStartup bool
	// QuoteSource supplies background price update work; nil disables
	// updates.
	QuoteSource QuoteSource
}

func (c *Config) applyDefaults() {
	if c.Name == "" {
		c.Name = "default"
	}
	if c.DefaultCurrencySymbol == "" {
		c.DefaultCurrencySymbol = "USD"
	}
	if c.TrashRetention <= 0 {
		c.TrashRetention = 5 * time.Minute
	}
	if c.TrashSweepInterval <= 0 {
		c.TrashSweepInterval = time.Minute
	}
	if c.BackgroundStartDelay <= 0 {
		c.BackgroundStartDelay = 10 * time.Second
	}
}

// Engine is the coordinating facade for the ledger: the only mutation
// gateway. One read/write lock serializes all writers; accessors take the
// read lock so readers always observe the graph as of the last completed
// mutation. Every mutation validates, mutates, persists and then publishes
// a message; business rejections publish the event's _FAILED variant and
// return a sentinel error.
type Engine struct {
	mu sync.RWMutex

	id        string
	name      string
	separator string

	dao    DAO
	bus    *message.Bus
	logger *slog.Logger
	cfg    Config

	root            *Account
	defaultCurrency *CurrencyNode

	bgMu    sync.Mutex
	bgCount int

	stop chan struct{}
	wg   sync.WaitGroup
}

// New opens an engine over the given DAO, bootstrapping the default
// currency and root account when the store is empty, and starts the
// background trash sweep and, when configured, the startup quote update.
func New(ctx context.Context, dao DAO, cfg Config, logger *slog.Logger) (*Engine, error) {
	if dao == nil {
		return nil, fmt.Errorf("%w: nil dao", apperrors.ErrInvalidArgument)
	}
	if logger == nil {
		logger = slog.Default()
	}
	cfg.applyDefaults()

	e := &Engine{
		id:        uuid.NewString(),
		name:      cfg.Name,
		separator: defaultAccountSeparator,
		dao:       dao,
		bus:       message.BusForEngine(cfg.Name, logger),
		logger:    logger.With(slog.String("engine", cfg.Name)),
		cfg:       cfg,
		stop:      make(chan struct{}),
	}

	if sep, err := dao.Config().Preference(ctx, prefAccountSeparator); err == nil && sep != "" {
		e.separator = sep
	}

	if err := e.bootstrap(ctx); err != nil {
		return nil, fmt.Errorf("engine bootstrap: %w", err)
	}

	e.wg.Add(1)
	go e.trashSweepLoop()

	if cfg.UpdateOnStartup && cfg.QuoteSource != nil {
		if stale, err := e.quotesAreStale(ctx); err == nil && stale {
			e.wg.Add(1)
			go e.startupUpdateKick()
		}
	}

	e.logger.Info("engine started", slog.String("id", e.id))
	return e, nil
}

// bootstrap loads or creates the default currency and root account and
// wires every loaded account to the engine's rate source.
func (e *Engine) bootstrap(ctx context.Context) error {
	accounts, err := e.dao.Accounts().AccountList(ctx)
	if err != nil {
		return fmt.Errorf("loading accounts: %w", err)
	}
	for _, a := range accounts {
		a.setRates(e)
		if a.AccountType() == AccountTypeRoot {
			e.root = a
		}
	}

	symbol := e.cfg.DefaultCurrencySymbol
	if stored, err := e.dao.Config().Preference(ctx, prefDefaultCurrency); err == nil && stored != "" {
		symbol = stored
	}

	currencies, err := e.dao.Commodities().CurrencyList(ctx)
	if err != nil {
		return fmt.Errorf("loading currencies: %w", err)
	}
	for _, c := range currencies {
		if strings.EqualFold(c.Symbol(), symbol) {
			e.defaultCurrency = c
		}
	}

	if e.defaultCurrency == nil {
		node := defaultCurrencyNode(symbol)
		if node == nil {
			node = NewCurrencyNode(symbol, 2)
		}
		if err := e.dao.Commodities().AddCurrency(ctx, node); err != nil {
			return fmt.Errorf("seeding default currency: %w", err)
		}
		if err := e.dao.Config().SetPreference(ctx, prefDefaultCurrency, node.Symbol()); err != nil {
			return fmt.Errorf("storing default currency preference: %w", err)
		}
		e.defaultCurrency = node
		e.logger.Info("seeded default currency", slog.String("symbol", node.Symbol()))
	}

	if e.root == nil {
		root := NewAccount(AccountTypeRoot, e.defaultCurrency)
		root.SetName("Root Account")
		root.setRates(e)
		if err := e.dao.Accounts().AddAccount(ctx, root); err != nil {
			return fmt.Errorf("creating root account: %w", err)
		}
		e.root = root
		e.logger.Info("created root account")
	}

	return nil
}

// Shutdown stops the background workers, bounded by the context deadline,
// then closes the DAO and releases the engine's message bus.
func (e *Engine) Shutdown(ctx context.Context) error {
	close(e.stop)

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		e.logger.Warn("background workers did not stop in time", slog.String("error", ctx.Err().Error()))
	}

	err := e.dao.Shutdown(ctx)
	message.ReleaseBus(e.name)
	e.logger.Info("engine stopped")
	return err
}

// UUID identifies this engine instance; messages carry it as their source.
func (e *Engine) UUID() string { return e.id }

// Name returns the engine name keying its message bus.
func (e *Engine) Name() string { return e.name }

// Bus returns the engine's message bus.
func (e *Engine) Bus() *message.Bus { return e.bus }

// IsDirty reports whether the DAO holds unsaved changes.
func (e *Engine) IsDirty() bool { return e.dao.IsDirty() }

// DefaultCurrency returns the engine's default currency.
func (e *Engine) DefaultCurrency() *CurrencyNode {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.defaultCurrency
}

// SetDefaultCurrency changes the default currency; the currency must
// already be registered.
func (e *Engine) SetDefaultCurrency(ctx context.Context, node *CurrencyNode) error {
	if node == nil {
		return fmt.Errorf("%w: nil currency", apperrors.ErrInvalidArgument)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.dao.Commodities().CurrencyByUUID(ctx, node.UUID()); err != nil {
		return fmt.Errorf("default currency not registered: %w", err)
	}
	if err := e.dao.Config().SetPreference(ctx, prefDefaultCurrency, node.Symbol()); err != nil {
		return fmt.Errorf("storing default currency preference: %w", err)
	}
	e.defaultCurrency = node
	e.post(message.ChannelConfig, message.EventConfigModify)
	return nil
}

// AccountSeparator returns the separator used for account path display.
func (e *Engine) AccountSeparator() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.separator
}

// SetAccountSeparator changes the path separator and persists it.
func (e *Engine) SetAccountSeparator(ctx context.Context, separator string) error {
	if separator == "" {
		return fmt.Errorf("%w: empty separator", apperrors.ErrInvalidArgument)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.dao.Config().SetPreference(ctx, prefAccountSeparator, separator); err != nil {
		return fmt.Errorf("storing account separator: %w", err)
	}
	e.separator = separator
	e.post(message.ChannelConfig, message.EventConfigModify)
	return nil
}

// SetPreference stores an arbitrary engine preference.
func (e *Engine) SetPreference(ctx context.Context, key, value string) error {
	if key == "" {
		return fmt.Errorf("%w: empty preference key", apperrors.ErrInvalidArgument)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.dao.Config().SetPreference(ctx, key, value); err != nil {
		return fmt.Errorf("storing preference %q: %w", key, err)
	}
	e.post(message.ChannelConfig, message.EventConfigModify)
	return nil
}

// Preference returns a stored preference value, or the empty string.
func (e *Engine) Preference(ctx context.Context, key string) (string, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dao.Config().Preference(ctx, key)
}

// post publishes a message sourced from this engine.
func (e *Engine) post(channel message.Channel, event message.Event) *message.Message {
	m := message.New(channel, event, e.id)
	e.bus.Publish(m)
	return m
}

func (e *Engine) postWith(channel message.Channel, event message.Event, key message.Property, value any) {
	e.bus.Publish(message.New(channel, event, e.id).With(key, value))
}

// moveToTrash marks the object removed, persists the mark and stages the
// object in the trash. Caller holds the write lock.
func (e *Engine) moveToTrash(ctx context.Context, obj StoredObject) error {
	obj.setMarkedForRemoval(true)
	if err := e.persistRemovalMark(ctx, obj); err != nil {
		obj.setMarkedForRemoval(false)
		return err
	}
	if err := e.dao.Trash().AddTrash(ctx, newTrashObject(obj)); err != nil {
		// Unwind the removal mark so the object stays live and listable.
		obj.setMarkedForRemoval(false)
		if perr := e.persistRemovalMark(ctx, obj); perr != nil {
			e.logger.Error("unwinding removal mark failed",
				slog.String("object", obj.UUID()), slog.String("error", perr.Error()))
		}
		return fmt.Errorf("staging object in trash: %w", err)
	}
	return nil
}

// persistRemovalMark updates the owning DAO so the removal flag survives a
// restart. History nodes and goals persist through their parent, which the
// caller has already updated.
func (e *Engine) persistRemovalMark(ctx context.Context, obj StoredObject) error {
	switch v := obj.(type) {
	case *Account:
		return e.dao.Accounts().UpdateAccount(ctx, v)
	case *Transaction:
		return e.dao.Transactions().UpdateTransaction(ctx, v)
	case *CurrencyNode:
		return e.dao.Commodities().UpdateCurrency(ctx, v)
	case *SecurityNode:
		return e.dao.Commodities().UpdateSecurity(ctx, v)
	case *Budget:
		return e.dao.Budgets().UpdateBudget(ctx, v)
	case *Reminder:
		return e.dao.Reminders().UpdateReminder(ctx, v)
	default:
		return nil
	}
}

// TrashObjects returns the trash contents sorted by removal time ascending.
func (e *Engine) TrashObjects(ctx context.Context) ([]*TrashObject, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	list, err := e.dao.Trash().TrashList(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing trash: %w", err)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].timestamp.Before(list[j].timestamp) })
	return list, nil
}

// ObjectInTrash reports whether the uuid resolves to a trashed object.
func (e *Engine) ObjectInTrash(ctx context.Context, id string) (bool, error) {
	list, err := e.TrashObjects(ctx)
	if err != nil {
		return false, err
	}
	for _, t := range list {
		if t.object != nil && t.object.UUID() == id {
			return true, nil
		}
	}
	return false, nil
}

// EmptyTrash evicts every trash entry older than the retention age, oldest
// first so interrelated objects leave in removal order.
func (e *Engine) EmptyTrash(ctx context.Context) error {
	e.startBackgroundProcess()
	defer e.stopBackgroundProcess()

	e.mu.Lock()
	defer e.mu.Unlock()

	list, err := e.dao.Trash().TrashList(ctx)
	if err != nil {
		return fmt.Errorf("listing trash: %w", err)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].timestamp.Before(list[j].timestamp) })

	now := time.Now()
	for _, t := range list {
		if now.Sub(t.timestamp) < e.cfg.TrashRetention {
			break
		}
		if err := e.dao.Trash().RemoveTrash(ctx, t); err != nil {
			return fmt.Errorf("evicting trash %s: %w", t.UUID(), err)
		}
	}
	return nil
}

// LatestRate implements RateSource with the most recent stored rate between
// the two currencies, or one when no history exists.
func (e *Engine) LatestRate(from, to *CurrencyNode) decimal.Decimal {
	if from == nil || to == nil || from.UUID() == to.UUID() {
		return decimal.NewFromInt(1)
	}
	rate := e.findExchangeRate(context.Background(), from, to)
	if rate == nil {
		return decimal.NewFromInt(1)
	}
	return rate.LatestRate(from)
}

// findExchangeRate resolves the pair's rate object, or nil.
func (e *Engine) findExchangeRate(ctx context.Context, a, b *CurrencyNode) *ExchangeRate {
	id := rateID(a, b)
	list, err := e.dao.Commodities().ExchangeRateList(ctx)
	if err != nil {
		e.logger.Error("listing exchange rates", slog.String("error", err.Error()))
		return nil
	}
	for _, r := range list {
		if r.RateID() == id {
			return r
		}
	}
	return nil
}
