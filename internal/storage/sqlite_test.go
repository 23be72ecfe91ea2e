package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"remembot/internal/reminder"
	logx "remembot/pkg/logx"
)

func openTestStore(t *testing.T, path string) Store {
	t.Helper()
	st, err := Open(Config{Driver: "sqlite", Path: path, BusyTimeout: time.Second}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func sampleReminder(trigger time.Time) reminder.Reminder {
	return reminder.Reminder{
		OwnerID:         42,
		OriginMessageID: 1001,
		OriginChatID:    -500,
		CreatedAt:       trigger.Add(-time.Hour),
		TriggerAt:       trigger,
		Message:         `don't forget \@\alice`,
	}
}

func TestInsertAndGetDue(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := openTestStore(t, filepath.Join(t.TempDir(), "reminders.db"))

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	dueID, err := st.Insert(ctx, sampleReminder(now.Add(-time.Minute)))
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if _, err := st.Insert(ctx, sampleReminder(now.Add(time.Hour))); err != nil {
		t.Fatalf("Insert future: %v", err)
	}

	due, err := st.GetDue(ctx, now)
	if err != nil {
		t.Fatalf("GetDue: %v", err)
	}
	if len(due) != 1 || due[0].ID != dueID {
		t.Fatalf("GetDue = %+v, want single row id %d", due, dueID)
	}
	if due[0].Message != `don't forget \@\alice` {
		t.Fatalf("message round-trip failed: %q", due[0].Message)
	}
	if !due[0].Active {
		t.Fatal("due reminder should be active")
	}
}

func TestRecurringRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := openTestStore(t, filepath.Join(t.TempDir(), "reminders.db"))

	trigger := time.Date(2025, 1, 31, 3, 0, 0, 0, time.UTC)
	r := sampleReminder(trigger)
	r.Recurrence = reminder.Monthly
	r.OriginalTriggerAt = trigger

	id, err := st.Insert(ctx, r)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	got, err := st.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got == nil {
		t.Fatal("GetByID returned nil")
	}
	if got.Recurrence != reminder.Monthly {
		t.Fatalf("recurrence = %v", got.Recurrence)
	}
	if !got.OriginalTriggerAt.Equal(trigger) {
		t.Fatalf("original trigger = %v, want %v", got.OriginalTriggerAt, trigger)
	}

	next := time.Date(2025, 2, 28, 3, 0, 0, 0, time.UTC)
	changed, err := st.UpdateTriggerAt(ctx, id, next)
	if err != nil || !changed {
		t.Fatalf("UpdateTriggerAt = %v, %v", changed, err)
	}
	got, err = st.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("GetByID after update: %v", err)
	}
	if !got.TriggerAt.Equal(next) {
		t.Fatalf("trigger = %v, want %v", got.TriggerAt, next)
	}
	// The anchor must survive re-arming untouched.
	if !got.OriginalTriggerAt.Equal(trigger) {
		t.Fatalf("anchor mutated: %v", got.OriginalTriggerAt)
	}
}

func TestDeactivateIdempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := openTestStore(t, filepath.Join(t.TempDir(), "reminders.db"))

	trigger := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	id, err := st.Insert(ctx, sampleReminder(trigger))
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	changed, err := st.Deactivate(ctx, id)
	if err != nil || !changed {
		t.Fatalf("first Deactivate = %v, %v", changed, err)
	}
	changed, err = st.Deactivate(ctx, id)
	if err != nil {
		t.Fatalf("second Deactivate: %v", err)
	}
	if changed {
		t.Fatal("second Deactivate should not change a row")
	}

	// Soft-deleted rows stay readable for error messages.
	got, err := st.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got == nil || got.Active {
		t.Fatalf("expected inactive row, got %+v", got)
	}

	due, err := st.GetDue(ctx, trigger.Add(time.Hour))
	if err != nil {
		t.Fatalf("GetDue: %v", err)
	}
	if len(due) != 0 {
		t.Fatalf("inactive row still due: %+v", due)
	}
}

func TestGetByIDMissing(t *testing.T) {
	t.Parallel()
	st := openTestStore(t, filepath.Join(t.TempDir(), "reminders.db"))
	got, err := st.GetByID(context.Background(), 9999)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil, got %+v", got)
	}
}

func TestMigrateLegacyTable(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "legacy.db")

	// Simulate a database created before the recurrence columns existed.
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open raw db: %v", err)
	}
	_, err = db.Exec(`CREATE TABLE reminders
		(owner_id INTEGER NOT NULL, origin_message_id INTEGER NOT NULL,
		 origin_chat_id INTEGER NOT NULL, created_at INTEGER NOT NULL,
		 trigger_at INTEGER NOT NULL, message TEXT, active INTEGER NOT NULL DEFAULT 1)`)
	if err != nil {
		t.Fatalf("create legacy table: %v", err)
	}
	if _, err := db.Exec(
		`INSERT INTO reminders(owner_id, origin_message_id, origin_chat_id, created_at, trigger_at, message, active)
		 VALUES(7, 1, 2, 100, 200, 'old row', 1)`); err != nil {
		t.Fatalf("insert legacy row: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close raw db: %v", err)
	}

	st := openTestStore(t, path)

	got, err := st.GetByID(ctx, 1)
	if err != nil {
		t.Fatalf("GetByID after migration: %v", err)
	}
	if got == nil || got.Message != "old row" {
		t.Fatalf("legacy row lost: %+v", got)
	}
	if got.Recurrence != reminder.None {
		t.Fatalf("legacy row recurrence = %v, want None", got.Recurrence)
	}
	if !got.OriginalTriggerAt.IsZero() {
		t.Fatalf("legacy row anchor = %v, want zero", got.OriginalTriggerAt)
	}

	// Reopening must be a no-op.
	st2 := openTestStore(t, path)
	if _, err := st2.GetByID(ctx, 1); err != nil {
		t.Fatalf("GetByID after reopen: %v", err)
	}
}
