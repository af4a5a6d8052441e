package pgsql

import (
	"context"
	"fmt"

	"github.com/ranlab/jgnash/internal/apperrors"
	"github.com/ranlab/jgnash/internal/engine"
)

type budgetDAO struct {
	d *DAO
}

const upsertBudgetSQL = `
	INSERT INTO budgets (uuid, name, description, period, removed, goals)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (uuid) DO UPDATE SET
		name = EXCLUDED.name,
		description = EXCLUDED.description,
		period = EXCLUDED.period,
		removed = EXCLUDED.removed,
		goals = EXCLUDED.goals;
`

func (r *budgetDAO) writeBudget(ctx context.Context, b *engine.Budget) error {
	s := b.Snapshot()
	_, err := r.d.pool.Exec(ctx, upsertBudgetSQL,
		s.UUID, s.Name, s.Description, s.Period, s.Removed, s.Goals)
	if err != nil {
		return fmt.Errorf("writing budget %s: %w", s.Name, err)
	}
	return nil
}

func (r *budgetDAO) AddBudget(ctx context.Context, b *engine.Budget) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	if _, ok := r.d.budgets[b.UUID()]; ok {
		return fmt.Errorf("%w: budget %s", apperrors.ErrDuplicate, b.UUID())
	}
	if err := r.writeBudget(ctx, b); err != nil {
		return err
	}
	r.d.budgets[b.UUID()] = b
	return nil
}

func (r *budgetDAO) UpdateBudget(ctx context.Context, b *engine.Budget) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	if err := r.writeBudget(ctx, b); err != nil {
		return err
	}
	r.d.budgets[b.UUID()] = b
	return nil
}

func (r *budgetDAO) BudgetByUUID(_ context.Context, id string) (*engine.Budget, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	b, ok := r.d.budgets[id]
	if !ok {
		return nil, fmt.Errorf("%w: budget %s", apperrors.ErrNotFound, id)
	}
	return b, nil
}

func (r *budgetDAO) BudgetList(_ context.Context) ([]*engine.Budget, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	out := make([]*engine.Budget, 0, len(r.d.budgets))
	for _, b := range r.d.budgets {
		if !b.MarkedForRemoval() {
			out = append(out, b)
		}
	}
	return out, nil
}

func (d *DAO) loadBudgets(ctx context.Context) error {
	rows, err := d.pool.Query(ctx, `
		SELECT uuid, name, description, period, removed, goals FROM budgets`)
	if err != nil {
		return fmt.Errorf("querying budgets: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s engine.BudgetSnapshot
		if err := rows.Scan(&s.UUID, &s.Name, &s.Description, &s.Period, &s.Removed, &s.Goals); err != nil {
			return fmt.Errorf("scanning budget: %w", err)
		}
		d.budgets[s.UUID] = engine.RestoreBudget(s)
	}
	return rows.Err()
}
