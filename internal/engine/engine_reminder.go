package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ranlab/jgnash/internal/apperrors"
	"github.com/ranlab/jgnash/internal/engine/message"
)

// AddReminder schedules a reminder. The reminder must name an account and a
// recurrence start.
func (e *Engine) AddReminder(ctx context.Context, reminder *Reminder) error {
	if reminder == nil {
		return fmt.Errorf("%w: nil reminder", apperrors.ErrInvalidArgument)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if reminder.Account() == nil || reminder.StartDate().IsZero() {
		e.postWith(message.ChannelReminder, message.EventReminderAddFailed, message.PropertyReminder, reminder)
		return fmt.Errorf("%w: reminder needs an account and a start date", apperrors.ErrValidation)
	}

	if err := e.dao.Reminders().AddReminder(ctx, reminder); err != nil {
		e.postWith(message.ChannelReminder, message.EventReminderAddFailed, message.PropertyReminder, reminder)
		return fmt.Errorf("%w: persisting reminder: %v", apperrors.ErrValidation, err)
	}

	e.postWith(message.ChannelReminder, message.EventReminderAdd, message.PropertyReminder, reminder)
	return nil
}

// UpdateReminder persists changes to a reminder.
func (e *Engine) UpdateReminder(ctx context.Context, reminder *Reminder) error {
	if reminder == nil {
		return fmt.Errorf("%w: nil reminder", apperrors.ErrInvalidArgument)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.dao.Reminders().UpdateReminder(ctx, reminder); err != nil {
		return fmt.Errorf("%w: persisting reminder: %v", apperrors.ErrValidation, err)
	}
	e.postWith(message.ChannelReminder, message.EventReminderUpdate, message.PropertyReminder, reminder)
	return nil
}

// RemoveReminder trashes a reminder.
func (e *Engine) RemoveReminder(ctx context.Context, reminder *Reminder) error {
	if reminder == nil {
		return fmt.Errorf("%w: nil reminder", apperrors.ErrInvalidArgument)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.moveToTrash(ctx, reminder); err != nil {
		e.postWith(message.ChannelReminder, message.EventReminderRemoveFailed, message.PropertyReminder, reminder)
		return fmt.Errorf("%w: trashing reminder: %v", apperrors.ErrValidation, err)
	}

	e.postWith(message.ChannelReminder, message.EventReminderRemove, message.PropertyReminder, reminder)
	return nil
}

// ReminderList returns every live reminder.
func (e *Engine) ReminderList(ctx context.Context) ([]*Reminder, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dao.Reminders().ReminderList(ctx)
}

// PendingReminders walks every enabled reminder's recurrence forward from
// its last fired date and returns the occurrences due on or before asOf,
// ordered by commit date.
func (e *Engine) PendingReminders(ctx context.Context, asOf time.Time) ([]*PendingReminder, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	reminders, err := e.dao.Reminders().ReminderList(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing reminders: %w", err)
	}

	var pending []*PendingReminder
	for _, r := range reminders {
		pending = append(pending, r.pendingOccurrences(asOf)...)
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].commitDate.Before(pending[j].commitDate) })
	return pending, nil
}

// ApprovePendingReminder materializes one due occurrence: the template
// transaction is cloned onto the commit date and added through the normal
// transaction path, and the reminder's last fired date advances. A reminder
// without a template just advances.
func (e *Engine) ApprovePendingReminder(ctx context.Context, pending *PendingReminder) error {
	if pending == nil || pending.reminder == nil {
		return fmt.Errorf("%w: nil pending reminder", apperrors.ErrInvalidArgument)
	}

	reminder := pending.reminder
	if template := reminder.Template(); template != nil {
		clone := template.Clone(pending.commitDate)
		if err := e.AddTransaction(ctx, clone); err != nil {
			return fmt.Errorf("materializing reminder transaction: %w", err)
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	reminder.setLastFiredDate(pending.commitDate)
	pending.SetApproved(true)
	if err := e.dao.Reminders().UpdateReminder(ctx, reminder); err != nil {
		return fmt.Errorf("%w: persisting reminder: %v", apperrors.ErrValidation, err)
	}
	e.postWith(message.ChannelReminder, message.EventReminderUpdate, message.PropertyReminder, reminder)
	return nil
}

// DismissPendingReminder advances the reminder past the occurrence without
// creating a transaction.
func (e *Engine) DismissPendingReminder(ctx context.Context, pending *PendingReminder) error {
	if pending == nil || pending.reminder == nil {
		return fmt.Errorf("%w: nil pending reminder", apperrors.ErrInvalidArgument)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	pending.reminder.setLastFiredDate(pending.commitDate)
	if err := e.dao.Reminders().UpdateReminder(ctx, pending.reminder); err != nil {
		return fmt.Errorf("%w: persisting reminder: %v", apperrors.ErrValidation, err)
	}
	e.postWith(message.ChannelReminder, message.EventReminderUpdate, message.PropertyReminder, pending.reminder)
	return nil
}
