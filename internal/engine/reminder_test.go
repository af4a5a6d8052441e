package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReminderIteratorMonthly(t *testing.T) {
	account := NewAccount(AccountTypeBank, usd())
	start := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	r := NewReminder(account, ReminderMonthly, start)

	it := r.iterator()
	assert.Equal(t, start, it.next())
	assert.Equal(t, time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC), it.next())
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), it.next())
}

func TestReminderIteratorResumesAfterLastFired(t *testing.T) {
	account := NewAccount(AccountTypeBank, usd())
	r := NewReminder(account, ReminderWeekly, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	r.setLastFiredDate(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))

	it := r.iterator()
	assert.Equal(t, time.Date(2024, 1, 22, 0, 0, 0, 0, time.UTC), it.next())
}

func TestReminderIteratorIncrementAndEndDate(t *testing.T) {
	account := NewAccount(AccountTypeBank, usd())
	r := NewReminder(account, ReminderDaily, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	r.SetIncrement(10)
	r.SetEndDate(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))

	it := r.iterator()
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), it.next())
	assert.Equal(t, time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC), it.next())
	assert.True(t, it.next().IsZero(), "schedule exhausted past the end date")
}

func TestOneTimeReminderFiresOnce(t *testing.T) {
	account := NewAccount(AccountTypeBank, usd())
	start := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	r := NewReminder(account, ReminderOneTime, start)

	pending := r.pendingOccurrences(start.AddDate(0, 1, 0))
	require.Len(t, pending, 1)
	assert.Equal(t, start, pending[0].CommitDate())

	r.setLastFiredDate(start)
	assert.Empty(t, r.pendingOccurrences(start.AddDate(0, 2, 0)))
}

func TestPendingOccurrencesRespectEnabledAndAsOf(t *testing.T) {
	account := NewAccount(AccountTypeBank, usd())
	r := NewReminder(account, ReminderMonthly, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	pending := r.pendingOccurrences(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC))
	assert.Len(t, pending, 3)

	r.SetEnabled(false)
	assert.Empty(t, r.pendingOccurrences(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)))
}

func TestYearlyReminder(t *testing.T) {
	account := NewAccount(AccountTypeBank, usd())
	r := NewReminder(account, ReminderYearly, time.Date(2023, 7, 4, 0, 0, 0, 0, time.UTC))

	it := r.iterator()
	assert.Equal(t, time.Date(2023, 7, 4, 0, 0, 0, 0, time.UTC), it.next())
	assert.Equal(t, time.Date(2024, 7, 4, 0, 0, 0, 0, time.UTC), it.next())
}
