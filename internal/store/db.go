package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/christopherklint97/skedule/internal/model"
)

// ErrNotFound is returned when a row does not exist or is not owned by the caller.
var ErrNotFound = errors.New("not found")

const timeLayout = time.RFC3339

// MemoryPath opens a private in-memory database, used by tests.
const MemoryPath = ":memory:"

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// repo holds every query. It runs against either the pool or a transaction.
type repo struct {
	q querier
}

type DB struct {
	*sql.DB
	repo
}

// DefaultPath returns ~/.config/skedule/skedule.db.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, ".config", "skedule", "skedule.db"), nil
}

// Open opens (creating if needed) the database at path and runs migrations.
// An empty path uses DefaultPath.
func Open(path string) (*DB, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	dsn := path + "?_pragma=foreign_keys(1)"
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn += "&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One connection serialises writers and keeps an in-memory database alive.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	store := &DB{DB: db, repo: repo{q: db}}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return store, nil
}

func (db *DB) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			difficulty TEXT NOT NULL DEFAULT 'medium',
			focus_level TEXT NOT NULL,
			focus_minutes INTEGER NOT NULL,
			time_preference TEXT,
			estimated_minutes INTEGER,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_user ON tasks (user_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS suggested_slots (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			task_id TEXT NOT NULL REFERENCES tasks (id) ON DELETE CASCADE,
			start_time TEXT NOT NULL,
			end_time TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'approved', 'rejected')),
			calendar_event_id TEXT,
			created_at TEXT NOT NULL,
			CHECK (end_time > start_time)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_slots_user_status ON suggested_slots (user_id, status, start_time)`,
		`CREATE INDEX IF NOT EXISTS idx_slots_task_status ON suggested_slots (task_id, status)`,
		`CREATE TABLE IF NOT EXISTS user_profiles (
			user_id TEXT PRIMARY KEY,
			display_name TEXT NOT NULL DEFAULT '',
			timezone TEXT NOT NULL DEFAULT 'UTC',
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS state (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("executing migration: %w", err)
		}
	}

	return nil
}

// Repo is the set of queries available both on the pool and inside InTx.
type Repo interface {
	InsertTask(ctx context.Context, t *model.Task) error
	GetTask(ctx context.Context, userID, id string) (*model.Task, error)
	ListTasks(ctx context.Context, userID string) ([]model.Task, error)
	UpdateTask(ctx context.Context, t *model.Task) error
	DeleteTask(ctx context.Context, userID, id string) error

	GetProfile(ctx context.Context, userID string) (*model.Profile, error)
	UpsertProfile(ctx context.Context, p *model.Profile) error

	InsertSlot(ctx context.Context, s *model.Slot) error
	GetSlot(ctx context.Context, userID, id string) (*model.Slot, error)
	ListSlots(ctx context.Context, f SlotFilter) ([]model.Slot, error)
	ListSlotViews(ctx context.Context, f SlotFilter) ([]SlotView, error)
	CountSlots(ctx context.Context, f SlotFilter) (int, error)
	SetSlotStatus(ctx context.Context, f SlotFilter, status model.Status) (int64, error)
	SetSlotEventID(ctx context.Context, id, eventID string) error
	DeleteSlots(ctx context.Context, f SlotFilter) (int64, error)
}

// InTx runs fn inside a write transaction. The transaction commits when fn
// returns nil and rolls back otherwise. fn must only use the Repo it is given.
func (db *DB) InTx(ctx context.Context, fn func(Repo) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(repo{q: tx}); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (db *DB) GetState(key string) (string, error) {
	var value string
	err := db.QueryRow("SELECT value FROM state WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (db *DB) SetState(key, value string) error {
	_, err := db.Exec(
		"INSERT INTO state (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	return err
}

func (db *DB) DeleteState(key string) error {
	_, err := db.Exec("DELETE FROM state WHERE key = ?", key)
	return err
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
