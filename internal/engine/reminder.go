package engine

import "time"

// ReminderType is the recurrence unit for a scheduled reminder.
type ReminderType string

const (
	ReminderDaily   ReminderType = "DAILY"
	ReminderWeekly  ReminderType = "WEEKLY"
	ReminderMonthly ReminderType = "MONTHLY"
	ReminderYearly  ReminderType = "YEARLY"
	ReminderOneTime ReminderType = "ONETIME"
)

// Reminder schedules a recurring transaction. The template transaction is
// cloned, never shared, when a pending occurrence is approved.
type Reminder struct {
	storedObject
	description string
	enabled     bool
	autoEnter   bool

	account  *Account
	template *Transaction

	reminderType ReminderType
	increment    int
	startDate    time.Time
	endDate      time.Time
	lastDate     time.Time
}

// NewReminder builds an enabled reminder starting at the given date with an
// increment of one recurrence unit.
func NewReminder(account *Account, reminderType ReminderType, startDate time.Time) *Reminder {
	return &Reminder{
		storedObject: newStoredObject(),
		enabled:      true,
		account:      account,
		reminderType: reminderType,
		increment:    1,
		startDate:    dateOnly(startDate),
	}
}

func (r *Reminder) Description() string        { return r.description }
func (r *Reminder) Enabled() bool              { return r.enabled }
func (r *Reminder) AutoEnter() bool            { return r.autoEnter }
func (r *Reminder) Account() *Account          { return r.account }
func (r *Reminder) Template() *Transaction     { return r.template }
func (r *Reminder) Type() ReminderType         { return r.reminderType }
func (r *Reminder) Increment() int             { return r.increment }
func (r *Reminder) StartDate() time.Time       { return r.startDate }
func (r *Reminder) EndDate() time.Time         { return r.endDate }
func (r *Reminder) LastFiredDate() time.Time   { return r.lastDate }

func (r *Reminder) SetDescription(description string) { r.description = description }
func (r *Reminder) SetEnabled(enabled bool)           { r.enabled = enabled }
func (r *Reminder) SetAutoEnter(auto bool)            { r.autoEnter = auto }
func (r *Reminder) SetTemplate(t *Transaction)        { r.template = t }
func (r *Reminder) SetEndDate(end time.Time)          { r.endDate = dateOnly(end) }

// SetIncrement sets the recurrence step; values below one snap to one.
func (r *Reminder) SetIncrement(increment int) {
	if increment < 1 {
		increment = 1
	}
	r.increment = increment
}

func (r *Reminder) setLastFiredDate(date time.Time) { r.lastDate = dateOnly(date) }

// nextDate advances one recurrence step from the given date.
func (r *Reminder) nextDate(from time.Time) time.Time {
	switch r.reminderType {
	case ReminderDaily:
		return from.AddDate(0, 0, r.increment)
	case ReminderWeekly:
		return from.AddDate(0, 0, 7*r.increment)
	case ReminderMonthly:
		return from.AddDate(0, r.increment, 0)
	case ReminderYearly:
		return from.AddDate(r.increment, 0, 0)
	default:
		return time.Time{}
	}
}

// iterator walks occurrence dates forward from the last fired date, or from
// the start date when the reminder has never fired.
type reminderIterator struct {
	reminder *Reminder
	current  time.Time
	started  bool
}

func (r *Reminder) iterator() *reminderIterator {
	return &reminderIterator{reminder: r}
}

// next returns the following occurrence, or the zero time when the schedule
// is exhausted.
func (it *reminderIterator) next() time.Time {
	r := it.reminder
	if !it.started {
		it.started = true
		if r.lastDate.IsZero() {
			it.current = r.startDate
		} else if r.reminderType == ReminderOneTime {
			return time.Time{}
		} else {
			it.current = r.nextDate(r.lastDate)
		}
	} else {
		if r.reminderType == ReminderOneTime {
			return time.Time{}
		}
		it.current = r.nextDate(it.current)
	}
	if it.current.IsZero() {
		return time.Time{}
	}
	if !r.endDate.IsZero() && it.current.After(r.endDate) {
		return time.Time{}
	}
	return it.current
}

// PendingReminder is one due occurrence of a reminder, awaiting approval.
type PendingReminder struct {
	reminder   *Reminder
	commitDate time.Time
	approved   bool
}

func (p *PendingReminder) Reminder() *Reminder    { return p.reminder }
func (p *PendingReminder) CommitDate() time.Time  { return p.commitDate }
func (p *PendingReminder) Approved() bool         { return p.approved }
func (p *PendingReminder) SetApproved(approved bool) { p.approved = approved }

// pendingOccurrences lists the due dates up to and including asOf.
func (r *Reminder) pendingOccurrences(asOf time.Time) []*PendingReminder {
	if !r.enabled {
		return nil
	}
	day := dateOnly(asOf)
	var out []*PendingReminder
	it := r.iterator()
	for date := it.next(); !date.IsZero() && !date.After(day); date = it.next() {
		out = append(out, &PendingReminder{reminder: r, commitDate: date})
	}
	return out
}
