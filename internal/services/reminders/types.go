package reminders

import (
	"context"
	"time"

	"remembot/internal/reminder"
	kit "remembot/internal/transport"
)

type Config struct {
	// PollInterval is how often the durable store is scanned for due rows.
	PollInterval time.Duration
	// QuickThreshold is the span below which one-shot reminders are kept
	// in memory instead of the store. Spans at or above it are persisted.
	QuickThreshold time.Duration
	// MinDelay rejects reminders closer than this to now.
	MinDelay time.Duration
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = time.Minute
	}
	if c.QuickThreshold <= 0 {
		c.QuickThreshold = 10 * time.Minute
	}
	if c.MinDelay <= 0 {
		c.MinDelay = 10 * time.Second
	}
	return c
}

// Dispatcher is the slice of the transport adapter the service needs to
// deliver reminders and resolve member mentions.
type Dispatcher interface {
	SendText(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error)
	MemberName(ctx context.Context, chatID, userID int64) (string, error)
}

// CreateRequest carries everything needed to schedule a reminder from an
// incoming chat message.
type CreateRequest struct {
	OwnerID   int64
	ChatID    int64
	MessageID int
	// Input is the raw trigger expression plus message, e.g. "2 hours call mom".
	Input      string
	Recurrence reminder.Recurrence
}

type CreateResult struct {
	// ID is 0 for quick in-memory reminders.
	ID         int64
	TriggerAt  time.Time
	Quick      bool
	Message    string
	Recurrence reminder.Recurrence
}

type memberKey struct {
	chat int64
	user int64
}
