package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"planner/internal/task"
)

// ErrUnavailable wraps every failure of the underlying database. Callers keep
// their in-memory state when they see it.
var ErrUnavailable = errors.New("storage unavailable")

type Store struct {
	db *sql.DB
}

func Open(dbPath string) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("open: %w: db path is empty", ErrUnavailable)
	}
	if !strings.HasPrefix(dbPath, "file:") {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("open: %w: %w", ErrUnavailable, err)
		}
	}
	db, err := sql.Open("sqlite", sqliteDSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open: %w: %w", ErrUnavailable, err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.ensureSchema(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w: %w", ErrUnavailable, err)
	}
	return s, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) ensureSchema(ctx context.Context) error {
	ddl := []string{`
CREATE TABLE IF NOT EXISTS tasks (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	due_date TEXT NOT NULL,
	duration REAL NOT NULL,
	tag TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	position INTEGER NOT NULL DEFAULT 0
);`, `
CREATE TABLE IF NOT EXISTS settings (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	weekly_cap INTEGER NOT NULL,
	duration_unit TEXT NOT NULL
);`}
	for _, stmt := range ddl {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return s.ensureTaskColumns(ctx)
}

// ensureTaskColumns upgrades task tables created before a column existed.
func (s *Store) ensureTaskColumns(ctx context.Context) error {
	required := map[string]string{
		"position": "ALTER TABLE tasks ADD COLUMN position INTEGER NOT NULL DEFAULT 0;",
	}
	existing := map[string]struct{}{}
	rows, err := s.db.QueryContext(ctx, `PRAGMA table_info(tasks);`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return err
		}
		existing[name] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	for col, alter := range required {
		if _, ok := existing[col]; ok {
			continue
		}
		if _, err := s.db.ExecContext(ctx, alter); err != nil {
			return err
		}
	}
	return nil
}

// LoadTasks returns the saved collection in the order it was saved.
func (s *Store) LoadTasks(ctx context.Context) ([]task.Task, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, title, due_date, duration, tag, created_at, updated_at FROM tasks ORDER BY position, rowid;`)
	if err != nil {
		return nil, fmt.Errorf("load tasks: %w: %w", ErrUnavailable, err)
	}
	defer rows.Close()

	var tasks []task.Task
	for rows.Next() {
		var t task.Task
		var createdStr, updatedStr string
		if err := rows.Scan(&t.ID, &t.Title, &t.DueDate, &t.Duration, &t.Tag, &createdStr, &updatedStr); err != nil {
			return nil, fmt.Errorf("load tasks: %w: %w", ErrUnavailable, err)
		}
		if created, err := time.Parse(time.RFC3339Nano, createdStr); err == nil {
			t.CreatedAt = created
		}
		if updated, err := time.Parse(time.RFC3339Nano, updatedStr); err == nil {
			t.UpdatedAt = updated
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load tasks: %w: %w", ErrUnavailable, err)
	}
	return tasks, nil
}

// SaveTasks replaces the saved collection with tasks in one transaction.
func (s *Store) SaveTasks(ctx context.Context, tasks []task.Task) error {
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM tasks;`); err != nil {
			return err
		}
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO tasks (id, title, due_date, duration, tag, created_at, updated_at, position) VALUES (?, ?, ?, ?, ?, ?, ?, ?);`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for i, t := range tasks {
			_, err := stmt.ExecContext(ctx, t.ID, t.Title, t.DueDate, t.Duration, t.Tag,
				formatTime(t.CreatedAt), formatTime(t.UpdatedAt), i)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save tasks: %w: %w", ErrUnavailable, err)
	}
	return nil
}

// Clear removes all saved tasks and settings.
func (s *Store) Clear(ctx context.Context) error {
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM tasks;`); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM settings;`)
		return err
	})
	if err != nil {
		return fmt.Errorf("clear: %w: %w", ErrUnavailable, err)
	}
	return nil
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func sqliteDSN(path string) string {
	if strings.HasPrefix(path, "file:") {
		return path
	}
	abs, err := filepath.Abs(path)
	if err == nil {
		path = abs
	}
	u := url.URL{
		Scheme: "file",
		Path:   path,
	}
	q := u.Query()
	q.Set("mode", "rwc")
	q.Set("_pragma", "busy_timeout(5000)")
	u.RawQuery = q.Encode()
	return u.String()
}
