package reminder

import (
	"strings"
	"time"
)

// Recurrence selects how a reminder re-arms after firing.
// The numeric values are part of the stored schema; do not reorder.
type Recurrence int

const (
	None Recurrence = iota
	Daily
	BiDaily
	Weekly
	Fortnightly
	Monthly
	MonthEnd
	Yearly
	YearEnd
)

func (r Recurrence) String() string {
	switch r {
	case None:
		return "none"
	case Daily:
		return "daily"
	case BiDaily:
		return "bi-daily"
	case Weekly:
		return "weekly"
	case Fortnightly:
		return "fortnightly"
	case Monthly:
		return "monthly"
	case MonthEnd:
		return "month-end"
	case Yearly:
		return "yearly"
	case YearEnd:
		return "year-end"
	default:
		return "unknown"
	}
}

// IsRecurring reports whether the reminder re-arms after firing.
func (r Recurrence) IsRecurring() bool { return r > None && r <= YearEnd }

// recurrenceAliases maps user-entered keywords to kinds.
// Kept permissive: long forms, short forms, and common misspellings.
var recurrenceAliases = map[string]Recurrence{
	"daily":       Daily,
	"day":         Daily,
	"d":           Daily,
	"bi-daily":    BiDaily,
	"bidaily":     BiDaily,
	"biday":       BiDaily,
	"bd":          BiDaily,
	"weekly":      Weekly,
	"week":        Weekly,
	"w":           Weekly,
	"fortnightly": Fortnightly,
	"fornightly":  Fortnightly,
	"fortnight":   Fortnightly,
	"fortnite":    Fortnightly,
	"fn":          Fortnightly,
	"monthly":     Monthly,
	"month":       Monthly,
	"m":           Monthly,
	"month-end":   MonthEnd,
	"monthend":    MonthEnd,
	"me":          MonthEnd,
	"yearly":      Yearly,
	"year":        Yearly,
	"y":           Yearly,
	"year-end":    YearEnd,
	"yearend":     YearEnd,
	"ye":          YearEnd,
}

// ParseRecurrence resolves a user-entered recurrence keyword.
func ParseRecurrence(s string) (Recurrence, bool) {
	r, ok := recurrenceAliases[strings.ToLower(strings.TrimSpace(s))]
	return r, ok
}

// Reminder is the persisted scheduling record.
//
// TriggerAt moves forward on every firing of a recurring reminder;
// OriginalTriggerAt never does — it is the calendar anchor all subsequent
// occurrences are computed from, which keeps monthly/yearly phase stable.
type Reminder struct {
	ID              int64
	OwnerID         int64
	OriginMessageID int
	OriginChatID    int64
	CreatedAt       time.Time
	TriggerAt       time.Time
	// OriginalTriggerAt is zero for one-shot reminders.
	OriginalTriggerAt time.Time
	Message           string
	Recurrence        Recurrence
	Active            bool
}
