package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ranlab/jgnash/internal/apperrors"
	"github.com/ranlab/jgnash/internal/engine/message"
)

// AddCurrency registers a currency. Symbols must be unique among
// currencies and the scale non-negative.
func (e *Engine) AddCurrency(ctx context.Context, node *CurrencyNode) error {
	if node == nil {
		return fmt.Errorf("%w: nil currency", apperrors.ErrInvalidArgument)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.validateCommodity(ctx, node.Symbol(), node.Scale(), node.UUID()); err != nil {
		e.postWith(message.ChannelCommodity, message.EventCurrencyAddFailed, message.PropertyCommodity, node)
		return err
	}

	if err := e.dao.Commodities().AddCurrency(ctx, node); err != nil {
		e.postWith(message.ChannelCommodity, message.EventCurrencyAddFailed, message.PropertyCommodity, node)
		return fmt.Errorf("%w: persisting currency: %v", apperrors.ErrValidation, err)
	}

	e.postWith(message.ChannelCommodity, message.EventCurrencyAdd, message.PropertyCommodity, node)
	return nil
}

// RemoveCurrency trashes a currency not referenced by any account,
// security or rate history.
func (e *Engine) RemoveCurrency(ctx context.Context, node *CurrencyNode) error {
	if node == nil {
		return fmt.Errorf("%w: nil currency", apperrors.ErrInvalidArgument)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if inUse, err := e.currencyInUse(ctx, node); err != nil {
		return err
	} else if inUse {
		e.postWith(message.ChannelCommodity, message.EventCurrencyRemoveFailed, message.PropertyCommodity, node)
		return fmt.Errorf("%w: currency %s", apperrors.ErrConflict, node.Symbol())
	}

	if err := e.moveToTrash(ctx, node); err != nil {
		e.postWith(message.ChannelCommodity, message.EventCurrencyRemoveFailed, message.PropertyCommodity, node)
		return fmt.Errorf("%w: trashing currency: %v", apperrors.ErrValidation, err)
	}

	e.postWith(message.ChannelCommodity, message.EventCurrencyRemove, message.PropertyCommodity, node)
	return nil
}

func (e *Engine) currencyInUse(ctx context.Context, node *CurrencyNode) (bool, error) {
	accounts, err := e.dao.Accounts().AccountList(ctx)
	if err != nil {
		return false, fmt.Errorf("listing accounts: %w", err)
	}
	for _, a := range accounts {
		if a.CurrencyNode() != nil && a.CurrencyNode().UUID() == node.UUID() {
			return true, nil
		}
	}
	securities, err := e.dao.Commodities().SecurityList(ctx)
	if err != nil {
		return false, fmt.Errorf("listing securities: %w", err)
	}
	for _, s := range securities {
		if s.ReportedCurrency() != nil && s.ReportedCurrency().UUID() == node.UUID() {
			return true, nil
		}
	}
	rates, err := e.dao.Commodities().ExchangeRateList(ctx)
	if err != nil {
		return false, fmt.Errorf("listing exchange rates: %w", err)
	}
	for _, r := range rates {
		if r.BaseCurrency().UUID() == node.UUID() || r.CounterCurrency().UUID() == node.UUID() {
			if len(r.History()) > 0 {
				return true, nil
			}
		}
	}
	return false, nil
}

// AddSecurity registers a security. The reporting currency is required.
func (e *Engine) AddSecurity(ctx context.Context, node *SecurityNode) error {
	if node == nil {
		return fmt.Errorf("%w: nil security", apperrors.ErrInvalidArgument)
	}
	if node.ReportedCurrency() == nil {
		return fmt.Errorf("%w: security has no reporting currency", apperrors.ErrInvalidArgument)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.validateSecurity(ctx, node); err != nil {
		e.postWith(message.ChannelCommodity, message.EventSecurityAddFailed, message.PropertyCommodity, node)
		return err
	}

	if err := e.dao.Commodities().AddSecurity(ctx, node); err != nil {
		e.postWith(message.ChannelCommodity, message.EventSecurityAddFailed, message.PropertyCommodity, node)
		return fmt.Errorf("%w: persisting security: %v", apperrors.ErrValidation, err)
	}

	e.postWith(message.ChannelCommodity, message.EventSecurityAdd, message.PropertyCommodity, node)
	return nil
}

// RemoveSecurity trashes a security no account holds.
func (e *Engine) RemoveSecurity(ctx context.Context, node *SecurityNode) error {
	if node == nil {
		return fmt.Errorf("%w: nil security", apperrors.ErrInvalidArgument)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	accounts, err := e.dao.Accounts().AccountList(ctx)
	if err != nil {
		return fmt.Errorf("listing accounts: %w", err)
	}
	for _, a := range accounts {
		if a.ContainsSecurity(node) {
			e.postWith(message.ChannelCommodity, message.EventSecurityRemoveFailed, message.PropertyCommodity, node)
			return fmt.Errorf("%w: security %s is held by account %s", apperrors.ErrConflict, node.Symbol(), a.Name())
		}
	}

	if err := e.moveToTrash(ctx, node); err != nil {
		e.postWith(message.ChannelCommodity, message.EventSecurityRemoveFailed, message.PropertyCommodity, node)
		return fmt.Errorf("%w: trashing security: %v", apperrors.ErrValidation, err)
	}

	e.postWith(message.ChannelCommodity, message.EventSecurityRemove, message.PropertyCommodity, node)
	return nil
}

func (e *Engine) validateCommodity(ctx context.Context, symbol string, scale int32, id string) error {
	if symbol == "" {
		return fmt.Errorf("%w: empty symbol", apperrors.ErrValidation)
	}
	if scale < 0 {
		return fmt.Errorf("%w: negative scale", apperrors.ErrValidation)
	}
	currencies, err := e.dao.Commodities().CurrencyList(ctx)
	if err != nil {
		return fmt.Errorf("listing currencies: %w", err)
	}
	for _, c := range currencies {
		if c.UUID() == id || strings.EqualFold(c.Symbol(), symbol) {
			return fmt.Errorf("%w: currency %s", apperrors.ErrDuplicate, symbol)
		}
	}
	return nil
}

func (e *Engine) validateSecurity(ctx context.Context, node *SecurityNode) error {
	if node.Symbol() == "" {
		return fmt.Errorf("%w: empty symbol", apperrors.ErrValidation)
	}
	if node.Scale() < 0 {
		return fmt.Errorf("%w: negative scale", apperrors.ErrValidation)
	}
	securities, err := e.dao.Commodities().SecurityList(ctx)
	if err != nil {
		return fmt.Errorf("listing securities: %w", err)
	}
	for _, s := range securities {
		if s.UUID() == node.UUID() || strings.EqualFold(s.Symbol(), node.Symbol()) {
			return fmt.Errorf("%w: security %s", apperrors.ErrDuplicate, node.Symbol())
		}
	}
	return nil
}

// CurrencyBySymbol resolves a live currency by symbol, case-insensitively.
func (e *Engine) CurrencyBySymbol(ctx context.Context, symbol string) (*CurrencyNode, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	currencies, err := e.dao.Commodities().CurrencyList(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing currencies: %w", err)
	}
	for _, c := range currencies {
		if strings.EqualFold(c.Symbol(), symbol) {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: currency %s", apperrors.ErrNotFound, symbol)
}

// CurrencyList returns every live currency.
func (e *Engine) CurrencyList(ctx context.Context) ([]*CurrencyNode, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dao.Commodities().CurrencyList(ctx)
}

// SecurityBySymbol resolves a live security by symbol, case-insensitively.
func (e *Engine) SecurityBySymbol(ctx context.Context, symbol string) (*SecurityNode, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	securities, err := e.dao.Commodities().SecurityList(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing securities: %w", err)
	}
	for _, s := range securities {
		if strings.EqualFold(s.Symbol(), symbol) {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: security %s", apperrors.ErrNotFound, symbol)
}

// SecurityList returns every live security.
func (e *Engine) SecurityList(ctx context.Context) ([]*SecurityNode, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dao.Commodities().SecurityList(ctx)
}

// AddSecurityHistory records a price observation, replacing any existing
// node for the same date. The displaced node is trashed first.
func (e *Engine) AddSecurityHistory(ctx context.Context, node *SecurityNode, history *SecurityHistoryNode) error {
	if node == nil || history == nil {
		return fmt.Errorf("%w: nil security or history node", apperrors.ErrInvalidArgument)
	}
	if history.Price().IsNegative() {
		return fmt.Errorf("%w: negative price", apperrors.ErrInvalidArgument)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	displaced := node.addHistoryNode(history)
	if err := e.dao.Commodities().UpdateSecurity(ctx, node); err != nil {
		return fmt.Errorf("%w: persisting security history: %v", apperrors.ErrValidation, err)
	}
	if displaced != nil {
		if err := e.moveToTrash(ctx, displaced); err != nil {
			return fmt.Errorf("%w: trashing displaced history: %v", apperrors.ErrValidation, err)
		}
	}

	e.postWith(message.ChannelCommodity, message.EventSecurityHistoryAdd, message.PropertyCommodity, node)
	return nil
}

// RemoveSecurityHistory trashes the price observation for the date.
func (e *Engine) RemoveSecurityHistory(ctx context.Context, node *SecurityNode, date time.Time) error {
	if node == nil {
		return fmt.Errorf("%w: nil security", apperrors.ErrInvalidArgument)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	removed := node.removeHistoryNode(date)
	if removed == nil {
		return fmt.Errorf("%w: no history for date", apperrors.ErrNotFound)
	}
	if err := e.dao.Commodities().UpdateSecurity(ctx, node); err != nil {
		return fmt.Errorf("%w: persisting security history: %v", apperrors.ErrValidation, err)
	}
	if err := e.moveToTrash(ctx, removed); err != nil {
		return fmt.Errorf("%w: trashing history: %v", apperrors.ErrValidation, err)
	}

	e.postWith(message.ChannelCommodity, message.EventSecurityHistoryRemove, message.PropertyCommodity, node)
	return nil
}

// AddSecurityHistoryEvent records a dividend or split; equal events are
// de-duplicated.
func (e *Engine) AddSecurityHistoryEvent(ctx context.Context, node *SecurityNode, event SecurityHistoryEvent) error {
	if node == nil {
		return fmt.Errorf("%w: nil security", apperrors.ErrInvalidArgument)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !node.addEvent(event) {
		return fmt.Errorf("%w: equal event already recorded", apperrors.ErrDuplicate)
	}
	if err := e.dao.Commodities().UpdateSecurity(ctx, node); err != nil {
		return fmt.Errorf("%w: persisting security event: %v", apperrors.ErrValidation, err)
	}

	e.postWith(message.ChannelCommodity, message.EventSecurityHistoryEventAdd, message.PropertyCommodity, node)
	return nil
}

// RemoveSecurityHistoryEvent drops a recorded dividend or split.
func (e *Engine) RemoveSecurityHistoryEvent(ctx context.Context, node *SecurityNode, event SecurityHistoryEvent) error {
	if node == nil {
		return fmt.Errorf("%w: nil security", apperrors.ErrInvalidArgument)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !node.removeEvent(event) {
		return fmt.Errorf("%w: event not recorded", apperrors.ErrNotFound)
	}
	if err := e.dao.Commodities().UpdateSecurity(ctx, node); err != nil {
		return fmt.Errorf("%w: persisting security event: %v", apperrors.ErrValidation, err)
	}

	e.postWith(message.ChannelCommodity, message.EventSecurityHistoryEventRemove, message.PropertyCommodity, node)
	return nil
}

// SetExchangeRate records that one unit of base bought rate units of
// counter on the date. Rates must be positive; equal currencies are a
// silent no-op. An existing observation for the date is replaced, the old
// node trashed first.
func (e *Engine) SetExchangeRate(ctx context.Context, base, counter *CurrencyNode, rate decimal.Decimal, date time.Time) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.setExchangeRateLocked(ctx, base, counter, rate, date)
}

func (e *Engine) setExchangeRateLocked(ctx context.Context, base, counter *CurrencyNode, rate decimal.Decimal, date time.Time) error {
	if base == nil || counter == nil {
		return fmt.Errorf("%w: nil currency", apperrors.ErrInvalidArgument)
	}
	if !rate.IsPositive() {
		return fmt.Errorf("%w: exchange rate must be positive", apperrors.ErrInvalidArgument)
	}
	if base.UUID() == counter.UUID() {
		return nil
	}

	exchangeRate := e.findExchangeRate(ctx, base, counter)
	created := false
	if exchangeRate == nil {
		exchangeRate = newExchangeRate(base, counter)
		if err := e.dao.Commodities().AddExchangeRate(ctx, exchangeRate); err != nil {
			return fmt.Errorf("%w: persisting exchange rate: %v", apperrors.ErrValidation, err)
		}
		created = true
	}

	// Store in the canonical direction; invert when the caller's base is
	// the pair's counter currency.
	stored := rate
	if base.UUID() != exchangeRate.BaseCurrency().UUID() {
		stored = invert(rate)
	}

	displaced := exchangeRate.addHistoryNode(newExchangeRateHistoryNode(date, stored))
	if err := e.dao.Commodities().UpdateExchangeRate(ctx, exchangeRate); err != nil {
		return fmt.Errorf("%w: persisting exchange rate history: %v", apperrors.ErrValidation, err)
	}
	if displaced != nil {
		if err := e.moveToTrash(ctx, displaced); err != nil {
			return fmt.Errorf("%w: trashing displaced rate: %v", apperrors.ErrValidation, err)
		}
	}

	if created {
		e.logger.Debug("created exchange rate pair", "pair", exchangeRate.RateID())
	}
	e.postWith(message.ChannelCommodity, message.EventExchangeRateAdd, message.PropertyExchangeRate, exchangeRate)
	return nil
}

// RemoveExchangeRateHistory trashes the pair's observation for the date.
func (e *Engine) RemoveExchangeRateHistory(ctx context.Context, base, counter *CurrencyNode, date time.Time) error {
	if base == nil || counter == nil {
		return fmt.Errorf("%w: nil currency", apperrors.ErrInvalidArgument)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	exchangeRate := e.findExchangeRate(ctx, base, counter)
	if exchangeRate == nil {
		return fmt.Errorf("%w: no rate history for pair", apperrors.ErrNotFound)
	}
	removed := exchangeRate.removeHistoryNode(date)
	if removed == nil {
		return fmt.Errorf("%w: no rate for date", apperrors.ErrNotFound)
	}
	if err := e.dao.Commodities().UpdateExchangeRate(ctx, exchangeRate); err != nil {
		return fmt.Errorf("%w: persisting exchange rate history: %v", apperrors.ErrValidation, err)
	}
	if err := e.moveToTrash(ctx, removed); err != nil {
		return fmt.Errorf("%w: trashing rate: %v", apperrors.ErrValidation, err)
	}

	e.postWith(message.ChannelCommodity, message.EventExchangeRateRemove, message.PropertyExchangeRate, exchangeRate)
	return nil
}

// ExchangeRateAsOf resolves the rate from one currency into another as of
// the date: exact observation first, then the closest prior one. The second
// result is false when the pair has no usable history.
func (e *Engine) ExchangeRateAsOf(ctx context.Context, from, to *CurrencyNode, date time.Time) (decimal.Decimal, bool) {
	if from == nil || to == nil {
		return decimal.Decimal{}, false
	}
	if from.UUID() == to.UUID() {
		return decimal.NewFromInt(1), true
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	rate := e.findExchangeRate(ctx, from, to)
	if rate == nil {
		return decimal.Decimal{}, false
	}
	return rate.RateAsOf(from, date)
}

// ExchangeRateList returns every known currency pair.
func (e *Engine) ExchangeRateList(ctx context.Context) ([]*ExchangeRate, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dao.Commodities().ExchangeRateList(ctx)
}

// SecurityMarketPrice resolves a security's price on a date in the given
// currency, preferring exact history, then prior history superseded by more
// recent traded prices.
func (e *Engine) SecurityMarketPrice(account *Account, security *SecurityNode, currency *CurrencyNode, date time.Time) decimal.Decimal {
	if account == nil || security == nil {
		return decimal.Decimal{}
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return MarketPrice(account.Transactions(), security, currency, date, e)
}
