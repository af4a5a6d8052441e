package pgsql

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ranlab/jgnash/internal/apperrors"
	"github.com/ranlab/jgnash/internal/engine"
)

type commodityDAO struct {
	d *DAO
}

const upsertCurrencySQL = `
	INSERT INTO currencies (uuid, symbol, scale, description, prefix, suffix, removed)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (uuid) DO UPDATE SET
		symbol = EXCLUDED.symbol,
		scale = EXCLUDED.scale,
		description = EXCLUDED.description,
		prefix = EXCLUDED.prefix,
		suffix = EXCLUDED.suffix,
		removed = EXCLUDED.removed;
`

func (r *commodityDAO) writeCurrency(ctx context.Context, node *engine.CurrencyNode) error {
	s := node.Snapshot()
	_, err := r.d.pool.Exec(ctx, upsertCurrencySQL,
		s.UUID, s.Symbol, s.Scale, s.Description, s.Prefix, s.Suffix, s.Removed)
	if err != nil {
		return fmt.Errorf("writing currency %s: %w", s.Symbol, err)
	}
	return nil
}

func (r *commodityDAO) AddCurrency(ctx context.Context, node *engine.CurrencyNode) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	if _, ok := r.d.currencies[node.UUID()]; ok {
		return fmt.Errorf("%w: currency %s", apperrors.ErrDuplicate, node.Symbol())
	}
	if err := r.writeCurrency(ctx, node); err != nil {
		return err
	}
	r.d.currencies[node.UUID()] = node
	return nil
}

func (r *commodityDAO) UpdateCurrency(ctx context.Context, node *engine.CurrencyNode) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	if err := r.writeCurrency(ctx, node); err != nil {
		return err
	}
	r.d.currencies[node.UUID()] = node
	return nil
}

func (r *commodityDAO) CurrencyByUUID(_ context.Context, id string) (*engine.CurrencyNode, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	c, ok := r.d.currencies[id]
	if !ok {
		return nil, fmt.Errorf("%w: currency %s", apperrors.ErrNotFound, id)
	}
	return c, nil
}

func (r *commodityDAO) CurrencyList(_ context.Context) ([]*engine.CurrencyNode, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	out := make([]*engine.CurrencyNode, 0, len(r.d.currencies))
	for _, c := range r.d.currencies {
		if !c.MarkedForRemoval() {
			out = append(out, c)
		}
	}
	return out, nil
}

const upsertSecuritySQL = `
	INSERT INTO securities (uuid, symbol, scale, description, quote_source, reported_currency_uuid, removed)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (uuid) DO UPDATE SET
		symbol = EXCLUDED.symbol,
		scale = EXCLUDED.scale,
		description = EXCLUDED.description,
		quote_source = EXCLUDED.quote_source,
		reported_currency_uuid = EXCLUDED.reported_currency_uuid,
		removed = EXCLUDED.removed;
`

// writeSecurity rewrites the security row and its history and event child
// rows in one transaction.
func (r *commodityDAO) writeSecurity(ctx context.Context, node *engine.SecurityNode) error {
	s := node.Snapshot()
	return r.d.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, upsertSecuritySQL,
			s.UUID, s.Symbol, s.Scale, s.Description, s.QuoteSource, s.ReportedCurrencyUUID, s.Removed); err != nil {
			return fmt.Errorf("writing security %s: %w", s.Symbol, err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM security_history WHERE security_uuid = $1`, s.UUID); err != nil {
			return fmt.Errorf("clearing security history: %w", err)
		}
		for _, h := range s.History {
			if _, err := tx.Exec(ctx, `
				INSERT INTO security_history (uuid, security_uuid, observed_on, price, high, low, volume)
				VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				h.UUID, s.UUID, h.Date, h.Price, h.High, h.Low, h.Volume); err != nil {
				return fmt.Errorf("writing security history: %w", err)
			}
		}
		if _, err := tx.Exec(ctx, `DELETE FROM security_events WHERE security_uuid = $1`, s.UUID); err != nil {
			return fmt.Errorf("clearing security events: %w", err)
		}
		for _, ev := range s.Events {
			if _, err := tx.Exec(ctx, `
				INSERT INTO security_events (security_uuid, event_type, observed_on, value)
				VALUES ($1, $2, $3, $4)`,
				s.UUID, ev.Type, ev.Date, ev.Value); err != nil {
				return fmt.Errorf("writing security event: %w", err)
			}
		}
		return nil
	})
}

func (r *commodityDAO) AddSecurity(ctx context.Context, node *engine.SecurityNode) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	if _, ok := r.d.securities[node.UUID()]; ok {
		return fmt.Errorf("%w: security %s", apperrors.ErrDuplicate, node.Symbol())
	}
	if err := r.writeSecurity(ctx, node); err != nil {
		return err
	}
	r.d.securities[node.UUID()] = node
	return nil
}

func (r *commodityDAO) UpdateSecurity(ctx context.Context, node *engine.SecurityNode) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	if err := r.writeSecurity(ctx, node); err != nil {
		return err
	}
	r.d.securities[node.UUID()] = node
	return nil
}

func (r *commodityDAO) SecurityByUUID(_ context.Context, id string) (*engine.SecurityNode, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	s, ok := r.d.securities[id]
	if !ok {
		return nil, fmt.Errorf("%w: security %s", apperrors.ErrNotFound, id)
	}
	return s, nil
}

func (r *commodityDAO) SecurityList(_ context.Context) ([]*engine.SecurityNode, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	out := make([]*engine.SecurityNode, 0, len(r.d.securities))
	for _, s := range r.d.securities {
		if !s.MarkedForRemoval() {
			out = append(out, s)
		}
	}
	return out, nil
}

const upsertExchangeRateSQL = `
	INSERT INTO exchange_rates (uuid, base_currency_uuid, counter_currency_uuid, removed)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (uuid) DO UPDATE SET removed = EXCLUDED.removed;
`

func (r *commodityDAO) writeExchangeRate(ctx context.Context, rate *engine.ExchangeRate) error {
	s := rate.Snapshot()
	return r.d.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, upsertExchangeRateSQL,
			s.UUID, s.BaseUUID, s.CounterUUID, s.Removed); err != nil {
			return fmt.Errorf("writing exchange rate %s: %w", rate.RateID(), err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM exchange_rate_history WHERE rate_uuid = $1`, s.UUID); err != nil {
			return fmt.Errorf("clearing rate history: %w", err)
		}
		for _, h := range s.History {
			if _, err := tx.Exec(ctx, `
				INSERT INTO exchange_rate_history (uuid, rate_uuid, observed_on, rate)
				VALUES ($1, $2, $3, $4)`,
				h.UUID, s.UUID, h.Date, h.Rate); err != nil {
				return fmt.Errorf("writing rate history: %w", err)
			}
		}
		return nil
	})
}

func (r *commodityDAO) AddExchangeRate(ctx context.Context, rate *engine.ExchangeRate) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	if _, ok := r.d.rates[rate.UUID()]; ok {
		return fmt.Errorf("%w: exchange rate %s", apperrors.ErrDuplicate, rate.RateID())
	}
	if err := r.writeExchangeRate(ctx, rate); err != nil {
		return err
	}
	r.d.rates[rate.UUID()] = rate
	return nil
}

func (r *commodityDAO) UpdateExchangeRate(ctx context.Context, rate *engine.ExchangeRate) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	if err := r.writeExchangeRate(ctx, rate); err != nil {
		return err
	}
	r.d.rates[rate.UUID()] = rate
	return nil
}

func (r *commodityDAO) ExchangeRateList(_ context.Context) ([]*engine.ExchangeRate, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	out := make([]*engine.ExchangeRate, 0, len(r.d.rates))
	for _, rate := range r.d.rates {
		if !rate.MarkedForRemoval() {
			out = append(out, rate)
		}
	}
	return out, nil
}

func (d *DAO) loadCurrencies(ctx context.Context) error {
	rows, err := d.pool.Query(ctx, `
		SELECT uuid, symbol, scale, description, prefix, suffix, removed
		FROM currencies ORDER BY symbol`)
	if err != nil {
		return fmt.Errorf("querying currencies: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s engine.CurrencySnapshot
		if err := rows.Scan(&s.UUID, &s.Symbol, &s.Scale, &s.Description, &s.Prefix, &s.Suffix, &s.Removed); err != nil {
			return fmt.Errorf("scanning currency: %w", err)
		}
		d.currencies[s.UUID] = engine.RestoreCurrency(s)
	}
	return rows.Err()
}

func (d *DAO) loadSecurities(ctx context.Context) error {
	rows, err := d.pool.Query(ctx, `
		SELECT uuid, symbol, scale, description, quote_source, reported_currency_uuid, removed
		FROM securities ORDER BY symbol`)
	if err != nil {
		return fmt.Errorf("querying securities: %w", err)
	}
	snapshots := make(map[string]*engine.SecuritySnapshot)
	for rows.Next() {
		var s engine.SecuritySnapshot
		if err := rows.Scan(&s.UUID, &s.Symbol, &s.Scale, &s.Description, &s.QuoteSource, &s.ReportedCurrencyUUID, &s.Removed); err != nil {
			rows.Close()
			return fmt.Errorf("scanning security: %w", err)
		}
		snapshots[s.UUID] = &s
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	histRows, err := d.pool.Query(ctx, `
		SELECT uuid, security_uuid, observed_on, price, high, low, volume
		FROM security_history ORDER BY observed_on`)
	if err != nil {
		return fmt.Errorf("querying security history: %w", err)
	}
	for histRows.Next() {
		var h engine.SecurityHistorySnapshot
		var owner string
		if err := histRows.Scan(&h.UUID, &owner, &h.Date, &h.Price, &h.High, &h.Low, &h.Volume); err != nil {
			histRows.Close()
			return fmt.Errorf("scanning security history: %w", err)
		}
		if s, ok := snapshots[owner]; ok {
			s.History = append(s.History, h)
		}
	}
	histRows.Close()
	if err := histRows.Err(); err != nil {
		return err
	}

	eventRows, err := d.pool.Query(ctx, `
		SELECT security_uuid, event_type, observed_on, value
		FROM security_events ORDER BY observed_on`)
	if err != nil {
		return fmt.Errorf("querying security events: %w", err)
	}
	for eventRows.Next() {
		var ev engine.SecurityEventSnapshot
		var owner string
		if err := eventRows.Scan(&owner, &ev.Type, &ev.Date, &ev.Value); err != nil {
			eventRows.Close()
			return fmt.Errorf("scanning security event: %w", err)
		}
		if s, ok := snapshots[owner]; ok {
			s.Events = append(s.Events, ev)
		}
	}
	eventRows.Close()
	if err := eventRows.Err(); err != nil {
		return err
	}

	for id, s := range snapshots {
		d.securities[id] = engine.RestoreSecurity(*s, d.currencies)
	}
	return nil
}

func (d *DAO) loadExchangeRates(ctx context.Context) error {
	rows, err := d.pool.Query(ctx, `
		SELECT uuid, base_currency_uuid, counter_currency_uuid, removed
		FROM exchange_rates`)
	if err != nil {
		return fmt.Errorf("querying exchange rates: %w", err)
	}
	snapshots := make(map[string]*engine.ExchangeRateSnapshot)
	for rows.Next() {
		var s engine.ExchangeRateSnapshot
		if err := rows.Scan(&s.UUID, &s.BaseUUID, &s.CounterUUID, &s.Removed); err != nil {
			rows.Close()
			return fmt.Errorf("scanning exchange rate: %w", err)
		}
		snapshots[s.UUID] = &s
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	histRows, err := d.pool.Query(ctx, `
		SELECT uuid, rate_uuid, observed_on, rate
		FROM exchange_rate_history ORDER BY observed_on`)
	if err != nil {
		return fmt.Errorf("querying rate history: %w", err)
	}
	for histRows.Next() {
		var h engine.RateHistorySnapshot
		var owner string
		if err := histRows.Scan(&h.UUID, &owner, &h.Date, &h.Rate); err != nil {
			histRows.Close()
			return fmt.Errorf("scanning rate history: %w", err)
		}
		if s, ok := snapshots[owner]; ok {
			s.History = append(s.History, h)
		}
	}
	histRows.Close()
	if err := histRows.Err(); err != nil {
		return err
	}

	for id, s := range snapshots {
		d.rates[id] = engine.RestoreExchangeRate(*s, d.currencies)
	}
	return nil
}
