package pgsql

import (
	"context"
	"fmt"
	"time"

	"github.com/ranlab/jgnash/internal/apperrors"
	"github.com/ranlab/jgnash/internal/engine"
)

type reminderDAO struct {
	d *DAO
}

const upsertReminderSQL = `
	INSERT INTO reminders (uuid, description, enabled, auto_enter, account_uuid, reminder_type,
		increment, start_date, end_date, last_date, removed, template)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	ON CONFLICT (uuid) DO UPDATE SET
		description = EXCLUDED.description,
		enabled = EXCLUDED.enabled,
		auto_enter = EXCLUDED.auto_enter,
		account_uuid = EXCLUDED.account_uuid,
		reminder_type = EXCLUDED.reminder_type,
		increment = EXCLUDED.increment,
		start_date = EXCLUDED.start_date,
		end_date = EXCLUDED.end_date,
		last_date = EXCLUDED.last_date,
		removed = EXCLUDED.removed,
		template = EXCLUDED.template;
`

// writeReminder persists the reminder row. The template transaction is
// embedded as jsonb rather than stored with the ledger transactions; it is
// a pattern, not a posting, and must never reattach to an account on load.
func (r *reminderDAO) writeReminder(ctx context.Context, reminder *engine.Reminder) error {
	s := reminder.Snapshot()
	var account any
	if s.AccountUUID != "" {
		account = s.AccountUUID
	}
	var template any
	if t := reminder.Template(); t != nil {
		snap := t.Snapshot()
		template = &snap
	}
	var endDate, lastDate any
	if !s.EndDate.IsZero() {
		endDate = s.EndDate
	}
	if !s.LastDate.IsZero() {
		lastDate = s.LastDate
	}
	_, err := r.d.pool.Exec(ctx, upsertReminderSQL,
		s.UUID, s.Description, s.Enabled, s.AutoEnter, account, s.Type,
		s.Increment, s.StartDate, endDate, lastDate, s.Removed, template)
	if err != nil {
		return fmt.Errorf("writing reminder %s: %w", s.UUID, err)
	}
	return nil
}

func (r *reminderDAO) AddReminder(ctx context.Context, reminder *engine.Reminder) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	if _, ok := r.d.reminders[reminder.UUID()]; ok {
		return fmt.Errorf("%w: reminder %s", apperrors.ErrDuplicate, reminder.UUID())
	}
	if err := r.writeReminder(ctx, reminder); err != nil {
		return err
	}
	r.d.reminders[reminder.UUID()] = reminder
	return nil
}

func (r *reminderDAO) UpdateReminder(ctx context.Context, reminder *engine.Reminder) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	if err := r.writeReminder(ctx, reminder); err != nil {
		return err
	}
	r.d.reminders[reminder.UUID()] = reminder
	return nil
}

func (r *reminderDAO) ReminderList(_ context.Context) ([]*engine.Reminder, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	out := make([]*engine.Reminder, 0, len(r.d.reminders))
	for _, reminder := range r.d.reminders {
		if !reminder.MarkedForRemoval() {
			out = append(out, reminder)
		}
	}
	return out, nil
}

func (d *DAO) loadReminders(ctx context.Context) error {
	rows, err := d.pool.Query(ctx, `
		SELECT uuid, description, enabled, auto_enter, account_uuid, reminder_type,
			increment, start_date, end_date, last_date, removed, template
		FROM reminders`)
	if err != nil {
		return fmt.Errorf("querying reminders: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s engine.ReminderSnapshot
		var account *string
		var endDate, lastDate *time.Time
		var template *engine.TransactionSnapshot
		if err := rows.Scan(&s.UUID, &s.Description, &s.Enabled, &s.AutoEnter, &account, &s.Type,
			&s.Increment, &s.StartDate, &endDate, &lastDate, &s.Removed, &template); err != nil {
			return fmt.Errorf("scanning reminder: %w", err)
		}
		if account != nil {
			s.AccountUUID = *account
		}
		if endDate != nil {
			s.EndDate = *endDate
		}
		if lastDate != nil {
			s.LastDate = *lastDate
		}

		templates := make(map[string]*engine.Transaction)
		if template != nil {
			s.TemplateTransactionUUID = template.UUID
			templates[template.UUID] = engine.RestoreTransaction(*template, d.accounts, d.securities)
		}
		d.reminders[s.UUID] = engine.RestoreReminder(s, d.accounts, templates)
	}
	return rows.Err()
}
