package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"remembot/internal/reminder"
	logx "remembot/pkg/logx"
)

//go:embed schema.sql
var schemaFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	path := cfg.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	st := &sqliteStore{db: db, log: log}

	// Basic pragmas.
	if cfg.BusyTimeout > 0 {
		ms := cfg.BusyTimeout.Milliseconds()
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", ms))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

// migrate applies the base schema, then the additive column migrations.
// Both steps are idempotent so the store can be reopened against any older
// database file without data loss.
func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, string(b)); err != nil {
		return err
	}

	// Columns added after the original deployment. Never recreate the table.
	if err := s.addColumn(ctx, "reminders", "recurrence", "INTEGER NOT NULL DEFAULT 0"); err != nil {
		return err
	}
	return s.addColumn(ctx, "reminders", "original_trigger_at", "INTEGER")
}

func (s *sqliteStore) addColumn(ctx context.Context, table, column, attrs string) error {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notNull int
			dflt    any
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dflt, &pk); err != nil {
			return err
		}
		if name == column {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	s.log.Info("adding column", logx.String("table", table), logx.String("column", column))
	_, err = s.db.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, attrs))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) Insert(ctx context.Context, r reminder.Reminder) (int64, error) {
	if s == nil || s.db == nil {
		return 0, ErrDisabled
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO reminders(owner_id, origin_message_id, origin_chat_id, created_at, trigger_at, message, active, recurrence, original_trigger_at)
		 VALUES(?,?,?,?,?,?,1,?,?)`,
		r.OwnerID, r.OriginMessageID, r.OriginChatID,
		r.CreatedAt.UTC().Unix(), r.TriggerAt.UTC().Unix(),
		nullStr(r.Message), int(r.Recurrence), nullTime(r.OriginalTriggerAt),
	)
	if err != nil {
		return 0, fmt.Errorf("insert reminder: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert reminder: %w", err)
	}
	return id, nil
}

const reminderColumns = `rowid, owner_id, origin_message_id, origin_chat_id, created_at, trigger_at, message, active, recurrence, original_trigger_at`

func (s *sqliteStore) GetDue(ctx context.Context, asOf time.Time) ([]reminder.Reminder, error) {
	if s == nil || s.db == nil {
		return nil, ErrDisabled
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+reminderColumns+` FROM reminders WHERE active = 1 AND trigger_at <= ?`,
		asOf.UTC().Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("query due reminders: %w", err)
	}
	defer rows.Close()

	var out []reminder.Reminder
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *sqliteStore) GetByID(ctx context.Context, id int64) (*reminder.Reminder, error) {
	if s == nil || s.db == nil {
		return nil, ErrDisabled
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+reminderColumns+` FROM reminders WHERE rowid = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("query reminder %d: %w", id, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	r, err := scanReminder(rows)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *sqliteStore) Deactivate(ctx context.Context, id int64) (bool, error) {
	if s == nil || s.db == nil {
		return false, ErrDisabled
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE reminders SET active = 0 WHERE rowid = ? AND active = 1`, id)
	if err != nil {
		return false, fmt.Errorf("deactivate reminder %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *sqliteStore) UpdateTriggerAt(ctx context.Context, id int64, at time.Time) (bool, error) {
	if s == nil || s.db == nil {
		return false, ErrDisabled
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE reminders SET trigger_at = ? WHERE rowid = ?`, at.UTC().Unix(), id)
	if err != nil {
		return false, fmt.Errorf("update trigger for reminder %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func scanReminder(rows *sql.Rows) (reminder.Reminder, error) {
	var (
		r         reminder.Reminder
		createdAt int64
		triggerAt int64
		message   sql.NullString
		active    int
		rec       int
		original  sql.NullInt64
	)
	err := rows.Scan(&r.ID, &r.OwnerID, &r.OriginMessageID, &r.OriginChatID,
		&createdAt, &triggerAt, &message, &active, &rec, &original)
	if err != nil {
		return reminder.Reminder{}, fmt.Errorf("scan reminder: %w", err)
	}
	r.CreatedAt = time.Unix(createdAt, 0).UTC()
	r.TriggerAt = time.Unix(triggerAt, 0).UTC()
	r.Message = message.String
	r.Active = active != 0
	r.Recurrence = reminder.Recurrence(rec)
	if original.Valid {
		r.OriginalTriggerAt = time.Unix(original.Int64, 0).UTC()
	}
	return r, nil
}

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Unix()
}
