package engine

import (
	"context"
	"fmt"

	"github.com/ranlab/jgnash/internal/apperrors"
	"github.com/ranlab/jgnash/internal/engine/message"
)

// AddBudget registers a budget.
func (e *Engine) AddBudget(ctx context.Context, budget *Budget) error {
	if budget == nil {
		return fmt.Errorf("%w: nil budget", apperrors.ErrInvalidArgument)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if budget.Name() == "" {
		e.postWith(message.ChannelBudget, message.EventBudgetAddFailed, message.PropertyBudget, budget)
		return fmt.Errorf("%w: budget has no name", apperrors.ErrValidation)
	}
	if existing, err := e.dao.Budgets().BudgetByUUID(ctx, budget.UUID()); err == nil && existing != nil {
		e.postWith(message.ChannelBudget, message.EventBudgetAddFailed, message.PropertyBudget, budget)
		return fmt.Errorf("%w: budget %s", apperrors.ErrDuplicate, budget.UUID())
	}

	if err := e.dao.Budgets().AddBudget(ctx, budget); err != nil {
		e.postWith(message.ChannelBudget, message.EventBudgetAddFailed, message.PropertyBudget, budget)
		return fmt.Errorf("%w: persisting budget: %v", apperrors.ErrValidation, err)
	}

	e.postWith(message.ChannelBudget, message.EventBudgetAdd, message.PropertyBudget, budget)
	return nil
}

// UpdateBudget persists changes to a budget's descriptive fields.
func (e *Engine) UpdateBudget(ctx context.Context, budget *Budget) error {
	if budget == nil {
		return fmt.Errorf("%w: nil budget", apperrors.ErrInvalidArgument)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.dao.Budgets().UpdateBudget(ctx, budget); err != nil {
		return fmt.Errorf("%w: persisting budget: %v", apperrors.ErrValidation, err)
	}
	e.postWith(message.ChannelBudget, message.EventBudgetUpdate, message.PropertyBudget, budget)
	return nil
}

// RemoveBudget trashes a budget and every goal it owns.
func (e *Engine) RemoveBudget(ctx context.Context, budget *Budget) error {
	if budget == nil {
		return fmt.Errorf("%w: nil budget", apperrors.ErrInvalidArgument)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.moveToTrash(ctx, budget); err != nil {
		e.postWith(message.ChannelBudget, message.EventBudgetRemoveFailed, message.PropertyBudget, budget)
		return fmt.Errorf("%w: trashing budget: %v", apperrors.ErrValidation, err)
	}

	e.postWith(message.ChannelBudget, message.EventBudgetRemove, message.PropertyBudget, budget)
	return nil
}

// UpdateBudgetGoals installs a goal for the account, moving the predecessor
// to trash instead of overwriting it so stale references stay resolvable.
func (e *Engine) UpdateBudgetGoals(ctx context.Context, budget *Budget, account *Account, goal *BudgetGoal) error {
	if budget == nil || account == nil || goal == nil {
		return fmt.Errorf("%w: nil budget, account or goal", apperrors.ErrInvalidArgument)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if account.Placeholder() || account.ExcludedFromBudget() {
		e.postWith(message.ChannelBudget, message.EventBudgetGoalsUpdate, message.PropertyBudget, budget)
		return fmt.Errorf("%w: account %s cannot be budgeted", apperrors.ErrValidation, account.Name())
	}

	displaced := budget.setGoal(account, goal)
	if err := e.dao.Budgets().UpdateBudget(ctx, budget); err != nil {
		return fmt.Errorf("%w: persisting budget goals: %v", apperrors.ErrValidation, err)
	}
	if displaced != nil {
		if err := e.moveToTrash(ctx, displaced); err != nil {
			return fmt.Errorf("%w: trashing displaced goal: %v", apperrors.ErrValidation, err)
		}
	}

	e.postWith(message.ChannelBudget, message.EventBudgetGoalsUpdate, message.PropertyBudget, budget)
	return nil
}

// purgeBudgetGoals trashes every goal referencing the account across all
// budgets. Caller holds the write lock.
func (e *Engine) purgeBudgetGoals(ctx context.Context, account *Account) error {
	budgets, err := e.dao.Budgets().BudgetList(ctx)
	if err != nil {
		return fmt.Errorf("listing budgets: %w", err)
	}
	for _, b := range budgets {
		goal := b.removeGoal(account)
		if goal == nil {
			continue
		}
		if err := e.dao.Budgets().UpdateBudget(ctx, b); err != nil {
			return fmt.Errorf("%w: persisting budget: %v", apperrors.ErrValidation, err)
		}
		if err := e.moveToTrash(ctx, goal); err != nil {
			return fmt.Errorf("%w: trashing goal: %v", apperrors.ErrValidation, err)
		}
		e.postWith(message.ChannelBudget, message.EventBudgetGoalsUpdate, message.PropertyBudget, b)
	}
	return nil
}

// BudgetByUUID resolves a budget, including trashed ones.
func (e *Engine) BudgetByUUID(ctx context.Context, id string) (*Budget, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dao.Budgets().BudgetByUUID(ctx, id)
}

// BudgetList returns every live budget.
func (e *Engine) BudgetList(ctx context.Context) ([]*Budget, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dao.Budgets().BudgetList(ctx)
}
