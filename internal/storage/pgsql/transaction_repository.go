package pgsql

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ranlab/jgnash/internal/apperrors"
	"github.com/ranlab/jgnash/internal/engine"
)

type transactionDAO struct {
	d *DAO
}

const upsertTransactionSQL = `
	INSERT INTO transactions (uuid, transaction_date, entered_at, number, payee, memo, removed,
		investment_action, investment_security_uuid, investment_account_uuid, investment_price, investment_quantity)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	ON CONFLICT (uuid) DO UPDATE SET
		transaction_date = EXCLUDED.transaction_date,
		entered_at = EXCLUDED.entered_at,
		number = EXCLUDED.number,
		payee = EXCLUDED.payee,
		memo = EXCLUDED.memo,
		removed = EXCLUDED.removed,
		investment_action = EXCLUDED.investment_action,
		investment_security_uuid = EXCLUDED.investment_security_uuid,
		investment_account_uuid = EXCLUDED.investment_account_uuid,
		investment_price = EXCLUDED.investment_price,
		investment_quantity = EXCLUDED.investment_quantity;
`

// writeTransaction rewrites the transaction row and its entry rows in one
// database transaction.
func (r *transactionDAO) writeTransaction(ctx context.Context, t *engine.Transaction) error {
	s := t.Snapshot()
	var action, securityUUID, accountUUID any
	var price, quantity any
	if inv := s.Investment; inv != nil {
		action = inv.Action
		if inv.SecurityUUID != "" {
			securityUUID = inv.SecurityUUID
		}
		if inv.AccountUUID != "" {
			accountUUID = inv.AccountUUID
		}
		price = inv.Price
		quantity = inv.Quantity
	}

	return r.d.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, upsertTransactionSQL,
			s.UUID, s.Date, s.Timestamp, s.Number, s.Payee, s.Memo, s.Removed,
			action, securityUUID, accountUUID, price, quantity); err != nil {
			return fmt.Errorf("writing transaction %s: %w", s.UUID, err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM transaction_entries WHERE transaction_uuid = $1`, s.UUID); err != nil {
			return fmt.Errorf("clearing transaction entries: %w", err)
		}
		for i, e := range s.Entries {
			var credit, debit any
			if e.CreditAccountUUID != "" {
				credit = e.CreditAccountUUID
			}
			if e.DebitAccountUUID != "" {
				debit = e.DebitAccountUUID
			}
			if _, err := tx.Exec(ctx, `
				INSERT INTO transaction_entries (transaction_uuid, position, credit_account_uuid,
					debit_account_uuid, credit_amount, debit_amount, credit_reconciled,
					debit_reconciled, memo, tag)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
				s.UUID, i, credit, debit, e.CreditAmount, e.DebitAmount,
				e.CreditReconciled, e.DebitReconciled, e.Memo, e.Tag); err != nil {
				return fmt.Errorf("writing transaction entry: %w", err)
			}
		}
		return nil
	})
}

func (r *transactionDAO) AddTransaction(ctx context.Context, t *engine.Transaction) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	if _, ok := r.d.transactions[t.UUID()]; ok {
		return fmt.Errorf("%w: transaction %s", apperrors.ErrDuplicate, t.UUID())
	}
	if err := r.writeTransaction(ctx, t); err != nil {
		return err
	}
	r.d.transactions[t.UUID()] = t
	return nil
}

func (r *transactionDAO) UpdateTransaction(ctx context.Context, t *engine.Transaction) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	if err := r.writeTransaction(ctx, t); err != nil {
		return err
	}
	r.d.transactions[t.UUID()] = t
	return nil
}

func (r *transactionDAO) TransactionByUUID(_ context.Context, id string) (*engine.Transaction, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	t, ok := r.d.transactions[id]
	if !ok {
		return nil, fmt.Errorf("%w: transaction %s", apperrors.ErrNotFound, id)
	}
	return t, nil
}

func (r *transactionDAO) TransactionList(_ context.Context) ([]*engine.Transaction, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	out := make([]*engine.Transaction, 0, len(r.d.transactions))
	for _, t := range r.d.transactions {
		if !t.MarkedForRemoval() {
			out = append(out, t)
		}
	}
	return out, nil
}

// loadTransactions restores transactions and reattaches the live ones to
// their accounts. Removed ones stay detached so the trash index can still
// resolve them.
func (d *DAO) loadTransactions(ctx context.Context) error {
	rows, err := d.pool.Query(ctx, `
		SELECT uuid, transaction_date, entered_at, number, payee, memo, removed,
			investment_action, investment_security_uuid, investment_account_uuid,
			investment_price, investment_quantity
		FROM transactions`)
	if err != nil {
		return fmt.Errorf("querying transactions: %w", err)
	}
	snapshots := make(map[string]*engine.TransactionSnapshot)
	for rows.Next() {
		var s engine.TransactionSnapshot
		var action, securityUUID, accountUUID *string
		var inv engine.InvestmentSnapshot
		if err := rows.Scan(&s.UUID, &s.Date, &s.Timestamp, &s.Number, &s.Payee, &s.Memo, &s.Removed,
			&action, &securityUUID, &accountUUID, &inv.Price, &inv.Quantity); err != nil {
			rows.Close()
			return fmt.Errorf("scanning transaction: %w", err)
		}
		if action != nil {
			inv.Action = *action
			if securityUUID != nil {
				inv.SecurityUUID = *securityUUID
			}
			if accountUUID != nil {
				inv.AccountUUID = *accountUUID
			}
			s.Investment = &inv
		}
		snapshots[s.UUID] = &s
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	entryRows, err := d.pool.Query(ctx, `
		SELECT transaction_uuid, credit_account_uuid, debit_account_uuid, credit_amount,
			debit_amount, credit_reconciled, debit_reconciled, memo, tag
		FROM transaction_entries ORDER BY transaction_uuid, position`)
	if err != nil {
		return fmt.Errorf("querying transaction entries: %w", err)
	}
	for entryRows.Next() {
		var owner string
		var credit, debit *string
		var e engine.EntrySnapshot
		if err := entryRows.Scan(&owner, &credit, &debit, &e.CreditAmount, &e.DebitAmount,
			&e.CreditReconciled, &e.DebitReconciled, &e.Memo, &e.Tag); err != nil {
			entryRows.Close()
			return fmt.Errorf("scanning transaction entry: %w", err)
		}
		if credit != nil {
			e.CreditAccountUUID = *credit
		}
		if debit != nil {
			e.DebitAccountUUID = *debit
		}
		if s, ok := snapshots[owner]; ok {
			s.Entries = append(s.Entries, e)
		}
	}
	entryRows.Close()
	if err := entryRows.Err(); err != nil {
		return err
	}

	for id, s := range snapshots {
		t := engine.RestoreTransaction(*s, d.accounts, d.securities)
		d.transactions[id] = t
		if s.Removed {
			continue
		}
		for _, a := range t.Accounts() {
			a.RestoreTransaction(t)
		}
	}
	return nil
}
