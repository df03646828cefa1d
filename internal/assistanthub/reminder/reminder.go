package reminder

import (
	"fmt"
	"strings"
	"time"
)

type Recurrence string

const (
	None    Recurrence = ""
	Daily   Recurrence = "daily"
	Weekly  Recurrence = "weekly"
	Monthly Recurrence = "monthly"
)

// ParseRecurrence accepts the literal tokens; "", "none" and "once" mean no repeat.
func ParseRecurrence(s string) (Recurrence, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "once", "no", "null":
		return None, nil
	case "daily":
		return Daily, nil
	case "weekly":
		return Weekly, nil
	case "monthly":
		return Monthly, nil
	}
	return None, fmt.Errorf("unknown recurrence %q", s)
}

func (r Recurrence) String() string {
	if r == None {
		return "none"
	}
	return string(r)
}

// Next returns the fire time following t, or the zero time for one-shot reminders.
// Monthly keeps the day of month, clamped to the last day of shorter months.
func (r Recurrence) Next(t time.Time) time.Time {
	switch r {
	case Daily:
		return t.AddDate(0, 0, 1)
	case Weekly:
		return t.AddDate(0, 0, 7)
	case Monthly:
		return addMonthClamped(t)
	}
	return time.Time{}
}

func addMonthClamped(t time.Time) time.Time {
	y, m, d := t.Date()
	firstOfNext := time.Date(y, m+1, 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	last := daysIn(firstOfNext.Year(), firstOfNext.Month(), t.Location())
	if d > last {
		d = last
	}
	return time.Date(firstOfNext.Year(), firstOfNext.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysIn(y int, m time.Month, loc *time.Location) int {
	return time.Date(y, m+1, 0, 0, 0, 0, 0, loc).Day()
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusFired     Status = "fired"
	StatusCancelled Status = "cancelled"
)

// Reminder is a scheduled notification.
type Reminder struct {
	ID         string     `json:"id"`
	Task       string     `json:"task"`
	FireAt     time.Time  `json:"fire_at"`
	Recurrence Recurrence `json:"recurrence,omitempty"`
	Status     Status     `json:"status"`

	SessionID string `json:"session_id,omitempty"`
	// Owner is the account that created the reminder. Empty when accounts are off.
	Owner string `json:"owner,omitempty"`
	// Contact is the mail address notified on fire. Empty skips mail.
	Contact   string    `json:"contact,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Describe renders the confirmation text shown to the user.
func (r Reminder) Describe() string {
	s := fmt.Sprintf("Reminder set for '%s' at %s on %s", r.Task, r.FireAt.Format("15:04"), r.FireAt.Format("02-01-2006"))
	if r.Recurrence != None {
		s += " (" + string(r.Recurrence) + ")"
	}
	return s + "."
}
