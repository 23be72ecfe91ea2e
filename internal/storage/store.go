package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	"remembot/internal/reminder"
	logx "remembot/pkg/logx"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures the reminder store.
//
// Driver values:
//   - "sqlite": SQLite database file (the default production backend)
//
// If Driver is empty or "none", storage is disabled and only quick reminders
// work.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Store is the durable reminder persistence API.
//
// Soft-deleted (inactive) rows stay retrievable by id so cancellation and
// lookup paths can produce specific error messages; they are only excluded
// from due-polling.
type Store interface {
	// Insert persists a new reminder and returns its assigned id.
	Insert(ctx context.Context, r reminder.Reminder) (int64, error)
	// GetDue returns all active reminders with trigger_at <= asOf,
	// in no particular order.
	GetDue(ctx context.Context, asOf time.Time) ([]reminder.Reminder, error)
	// GetByID returns nil when no row exists with that id.
	GetByID(ctx context.Context, id int64) (*reminder.Reminder, error)
	// Deactivate soft-deletes a reminder. It is idempotent and reports
	// whether a row actually changed.
	Deactivate(ctx context.Context, id int64) (bool, error)
	// UpdateTriggerAt re-arms a recurring reminder.
	UpdateTriggerAt(ctx context.Context, id int64, at time.Time) (bool, error)
	Close() error
}

// Open initializes the configured store.
// It returns (nil, nil) if storage is disabled.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}
