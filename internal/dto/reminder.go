package dto

import (
	"time"

	"github.com/ranlab/jgnash/internal/engine"
)

// CreateReminderRequest defines the data needed to schedule a reminder.
// Template, when set, is the transaction pattern cloned on approval.
type CreateReminderRequest struct {
	Description string                    `json:"description"`
	AccountUUID string                    `json:"accountUUID" binding:"required"`
	Type        string                    `json:"type" binding:"required,oneof=ONE_TIME DAILY WEEKLY MONTHLY YEARLY"`
	StartDate   time.Time                 `json:"startDate" binding:"required"`
	EndDate     *time.Time                `json:"endDate"`
	Increment   int                       `json:"increment"`
	AutoEnter   bool                      `json:"autoEnter"`
	Template    *CreateTransactionRequest `json:"template"`
}

// UpdateReminderRequest changes a reminder's schedule or state.
type UpdateReminderRequest struct {
	Description *string    `json:"description"`
	Enabled     *bool      `json:"enabled"`
	AutoEnter   *bool      `json:"autoEnter"`
	Increment   *int       `json:"increment"`
	EndDate     *time.Time `json:"endDate"`
}

// ReminderResponse defines the data returned for a reminder.
type ReminderResponse struct {
	UUID        string     `json:"uuid"`
	Description string     `json:"description,omitempty"`
	AccountUUID string     `json:"accountUUID,omitempty"`
	Type        string     `json:"type"`
	Enabled     bool       `json:"enabled"`
	AutoEnter   bool       `json:"autoEnter"`
	Increment   int        `json:"increment"`
	StartDate   time.Time  `json:"startDate"`
	EndDate     *time.Time `json:"endDate,omitempty"`
	LastFired   *time.Time `json:"lastFired,omitempty"`
}

// ToReminderResponse converts an engine reminder to its response DTO.
func ToReminderResponse(r *engine.Reminder) ReminderResponse {
	resp := ReminderResponse{
		UUID:        r.UUID(),
		Description: r.Description(),
		Type:        string(r.Type()),
		Enabled:     r.Enabled(),
		AutoEnter:   r.AutoEnter(),
		Increment:   r.Increment(),
		StartDate:   r.StartDate(),
	}
	if a := r.Account(); a != nil {
		resp.AccountUUID = a.UUID()
	}
	if end := r.EndDate(); !end.IsZero() {
		resp.EndDate = &end
	}
	if last := r.LastFiredDate(); !last.IsZero() {
		resp.LastFired = &last
	}
	return resp
}

// ToListReminderResponse converts a slice of reminders.
func ToListReminderResponse(reminders []*engine.Reminder) []ReminderResponse {
	res := make([]ReminderResponse, len(reminders))
	for i, r := range reminders {
		res[i] = ToReminderResponse(r)
	}
	return res
}

// ResolvePendingRequest names one due occurrence to approve or dismiss.
// Occurrences carry no identity of their own; the reminder UUID plus the
// commit date identifies one.
type ResolvePendingRequest struct {
	ReminderUUID string     `json:"reminderUUID" binding:"required"`
	CommitDate   time.Time  `json:"commitDate" binding:"required"`
	AsOf         *time.Time `json:"asOf"`
}

// PendingReminderResponse defines one due occurrence of a reminder.
type PendingReminderResponse struct {
	ReminderUUID string    `json:"reminderUUID"`
	Description  string    `json:"description,omitempty"`
	CommitDate   time.Time `json:"commitDate"`
}

// ToPendingReminderResponse converts one pending occurrence.
func ToPendingReminderResponse(p *engine.PendingReminder) PendingReminderResponse {
	resp := PendingReminderResponse{CommitDate: p.CommitDate()}
	if r := p.Reminder(); r != nil {
		resp.ReminderUUID = r.UUID()
		resp.Description = r.Description()
	}
	return resp
}
