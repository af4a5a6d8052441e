package pgsql

import (
	"context"
	"fmt"

	"github.com/ranlab/jgnash/internal/apperrors"
	"github.com/ranlab/jgnash/internal/engine"
)

type accountDAO struct {
	d *DAO
}

const upsertAccountSQL = `
	INSERT INTO accounts (uuid, parent_uuid, currency_uuid, account_type, name, description, notes,
		code, account_number, bank_id, visible, locked, placeholder, excluded_from_budget, removed,
		security_uuids, attributes)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	ON CONFLICT (uuid) DO UPDATE SET
		parent_uuid = EXCLUDED.parent_uuid,
		currency_uuid = EXCLUDED.currency_uuid,
		account_type = EXCLUDED.account_type,
		name = EXCLUDED.name,
		description = EXCLUDED.description,
		notes = EXCLUDED.notes,
		code = EXCLUDED.code,
		account_number = EXCLUDED.account_number,
		bank_id = EXCLUDED.bank_id,
		visible = EXCLUDED.visible,
		locked = EXCLUDED.locked,
		placeholder = EXCLUDED.placeholder,
		excluded_from_budget = EXCLUDED.excluded_from_budget,
		removed = EXCLUDED.removed,
		security_uuids = EXCLUDED.security_uuids,
		attributes = EXCLUDED.attributes;
`

func (r *accountDAO) writeAccount(ctx context.Context, a *engine.Account) error {
	s := a.Snapshot()
	var parent any
	if s.ParentUUID != "" {
		parent = s.ParentUUID
	}
	securities := s.SecurityUUIDs
	if securities == nil {
		securities = []string{}
	}
	_, err := r.d.pool.Exec(ctx, upsertAccountSQL,
		s.UUID, parent, s.CurrencyUUID, s.Type, s.Name, s.Description, s.Notes,
		s.Code, s.AccountNumber, s.BankID, s.Visible, s.Locked, s.Placeholder,
		s.ExcludedFromBudget, s.Removed, securities, s.Attributes)
	if err != nil {
		return fmt.Errorf("writing account %s: %w", s.UUID, err)
	}
	return nil
}

func (r *accountDAO) AddAccount(ctx context.Context, a *engine.Account) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	if _, ok := r.d.accounts[a.UUID()]; ok {
		return fmt.Errorf("%w: account %s", apperrors.ErrDuplicate, a.UUID())
	}
	if err := r.writeAccount(ctx, a); err != nil {
		return err
	}
	r.d.accounts[a.UUID()] = a
	return nil
}

func (r *accountDAO) UpdateAccount(ctx context.Context, a *engine.Account) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	if err := r.writeAccount(ctx, a); err != nil {
		return err
	}
	r.d.accounts[a.UUID()] = a
	return nil
}

func (r *accountDAO) AccountByUUID(_ context.Context, id string) (*engine.Account, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	a, ok := r.d.accounts[id]
	if !ok {
		return nil, fmt.Errorf("%w: account %s", apperrors.ErrNotFound, id)
	}
	return a, nil
}

func (r *accountDAO) AccountList(_ context.Context) ([]*engine.Account, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	out := make([]*engine.Account, 0, len(r.d.accounts))
	for _, a := range r.d.accounts {
		if !a.MarkedForRemoval() {
			out = append(out, a)
		}
	}
	return out, nil
}

// loadAccounts restores every account row and relinks the tree. Removed
// accounts stay detached from their former parent, the way the engine left
// them when it trashed them.
func (d *DAO) loadAccounts(ctx context.Context) error {
	rows, err := d.pool.Query(ctx, `
		SELECT uuid, parent_uuid, currency_uuid, account_type, name, description, notes,
			code, account_number, bank_id, visible, locked, placeholder, excluded_from_budget,
			removed, security_uuids, attributes
		FROM accounts`)
	if err != nil {
		return fmt.Errorf("querying accounts: %w", err)
	}
	snapshots := make(map[string]*engine.AccountSnapshot)
	for rows.Next() {
		var s engine.AccountSnapshot
		var parent *string
		if err := rows.Scan(&s.UUID, &parent, &s.CurrencyUUID, &s.Type, &s.Name, &s.Description,
			&s.Notes, &s.Code, &s.AccountNumber, &s.BankID, &s.Visible, &s.Locked, &s.Placeholder,
			&s.ExcludedFromBudget, &s.Removed, &s.SecurityUUIDs, &s.Attributes); err != nil {
			rows.Close()
			return fmt.Errorf("scanning account: %w", err)
		}
		if parent != nil {
			s.ParentUUID = *parent
		}
		snapshots[s.UUID] = &s
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for id, s := range snapshots {
		d.accounts[id] = engine.RestoreAccount(*s, d.currencies)
	}
	for id, s := range snapshots {
		a := d.accounts[id]
		if s.ParentUUID != "" && !s.Removed {
			if parent, ok := d.accounts[s.ParentUUID]; ok {
				parent.RestoreChild(a)
			}
		}
		for _, secID := range s.SecurityUUIDs {
			if sec, ok := d.securities[secID]; ok {
				a.RestoreSecurity(sec)
			}
		}
	}
	return nil
}
