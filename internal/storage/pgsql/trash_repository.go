package pgsql

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ranlab/jgnash/internal/engine"
)

type trashDAO struct {
	d *DAO
}

// Object type discriminators stored with each trash row so eviction knows
// which table holds the wrapped object.
const (
	trashAccount     = "ACCOUNT"
	trashTransaction = "TRANSACTION"
	trashCurrency    = "CURRENCY"
	trashSecurity    = "SECURITY"
	trashRate        = "EXCHANGE_RATE"
	trashBudget      = "BUDGET"
	trashReminder    = "REMINDER"
)

func trashObjectType(obj engine.StoredObject) string {
	switch obj.(type) {
	case *engine.Account:
		return trashAccount
	case *engine.Transaction:
		return trashTransaction
	case *engine.CurrencyNode:
		return trashCurrency
	case *engine.SecurityNode:
		return trashSecurity
	case *engine.ExchangeRate:
		return trashRate
	case *engine.Budget:
		return trashBudget
	case *engine.Reminder:
		return trashReminder
	default:
		return ""
	}
}

func (r *trashDAO) AddTrash(ctx context.Context, t *engine.TrashObject) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	var objectUUID, objectType any
	if obj := t.Object(); obj != nil {
		objectUUID = obj.UUID()
		objectType = trashObjectType(obj)
	}
	_, err := r.d.pool.Exec(ctx, `
		INSERT INTO trash (uuid, object_uuid, object_type, removed_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (uuid) DO NOTHING`,
		t.UUID(), objectUUID, objectType, t.Timestamp())
	if err != nil {
		return fmt.Errorf("staging trash %s: %w", t.UUID(), err)
	}
	r.d.trash[t.UUID()] = t
	return nil
}

func (r *trashDAO) TrashList(_ context.Context) ([]*engine.TrashObject, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	out := make([]*engine.TrashObject, 0, len(r.d.trash))
	for _, t := range r.d.trash {
		out = append(out, t)
	}
	return out, nil
}

// RemoveTrash deletes the wrapper and the wrapped object permanently.
// Child rows (entries, histories, events) go with their parent through the
// cascading foreign keys.
func (r *trashDAO) RemoveTrash(ctx context.Context, t *engine.TrashObject) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	err := r.d.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM trash WHERE uuid = $1`, t.UUID()); err != nil {
			return fmt.Errorf("deleting trash row: %w", err)
		}
		obj := t.Object()
		if obj == nil {
			return nil
		}
		var table string
		switch trashObjectType(obj) {
		case trashAccount:
			table = "accounts"
		case trashTransaction:
			table = "transactions"
		case trashCurrency:
			table = "currencies"
		case trashSecurity:
			table = "securities"
		case trashRate:
			table = "exchange_rates"
		case trashBudget:
			table = "budgets"
		case trashReminder:
			table = "reminders"
		default:
			return nil
		}
		if _, err := tx.Exec(ctx, `DELETE FROM `+table+` WHERE uuid = $1`, obj.UUID()); err != nil {
			return fmt.Errorf("deleting trashed object: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	delete(r.d.trash, t.UUID())
	switch obj := t.Object().(type) {
	case *engine.Account:
		delete(r.d.accounts, obj.UUID())
	case *engine.Transaction:
		delete(r.d.transactions, obj.UUID())
	case *engine.CurrencyNode:
		delete(r.d.currencies, obj.UUID())
	case *engine.SecurityNode:
		delete(r.d.securities, obj.UUID())
	case *engine.ExchangeRate:
		delete(r.d.rates, obj.UUID())
	case *engine.Budget:
		delete(r.d.budgets, obj.UUID())
	case *engine.Reminder:
		delete(r.d.reminders, obj.UUID())
	}
	return nil
}

// loadTrash resolves each trash row against the already loaded indexes.
// Rows whose object vanished are dropped on the next eviction pass.
func (d *DAO) loadTrash(ctx context.Context) error {
	rows, err := d.pool.Query(ctx, `SELECT uuid, object_uuid, object_type, removed_at FROM trash`)
	if err != nil {
		return fmt.Errorf("querying trash: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var objectUUID, objectType *string
		var removedAt time.Time
		if err := rows.Scan(&id, &objectUUID, &objectType, &removedAt); err != nil {
			return fmt.Errorf("scanning trash: %w", err)
		}

		var obj engine.StoredObject
		if objectUUID != nil && objectType != nil {
			switch *objectType {
			case trashAccount:
				if a, ok := d.accounts[*objectUUID]; ok {
					obj = a
				}
			case trashTransaction:
				if t, ok := d.transactions[*objectUUID]; ok {
					obj = t
				}
			case trashCurrency:
				if c, ok := d.currencies[*objectUUID]; ok {
					obj = c
				}
			case trashSecurity:
				if s, ok := d.securities[*objectUUID]; ok {
					obj = s
				}
			case trashRate:
				if rate, ok := d.rates[*objectUUID]; ok {
					obj = rate
				}
			case trashBudget:
				if b, ok := d.budgets[*objectUUID]; ok {
					obj = b
				}
			case trashReminder:
				if r, ok := d.reminders[*objectUUID]; ok {
					obj = r
				}
			}
		}
		if obj == nil {
			continue
		}
		d.trash[id] = engine.RestoreTrashObject(id, removedAt, obj)
	}
	return rows.Err()
}
