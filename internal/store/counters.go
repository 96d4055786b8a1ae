package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sketchloom/sessionengine/internal/apperr"

	_ "modernc.org/sqlite"
)

// CounterStore persists the Janitor's daily aggregate counters (sessions
// created, edits applied, edits failed, clarifications requested) in
// SQLite, so operators can query trends without replaying the event bus.
type CounterStore struct {
	db *sql.DB
}

const countersSchema = `
CREATE TABLE IF NOT EXISTS daily_counters (
	day   TEXT NOT NULL,
	name  TEXT NOT NULL,
	count INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (day, name)
);
`

// OpenCounterStore opens (creating if necessary) a SQLite database at
// dbPath. Use ":memory:" for an ephemeral store, useful in tests.
func OpenCounterStore(dbPath string) (*CounterStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, apperr.Wrap(apperr.KindTransientStore, "creating counters db directory", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransientStore, "opening counters db", err)
	}

	if _, err := db.Exec(countersSchema); err != nil {
		db.Close()
		return nil, apperr.Wrap(apperr.KindTransientStore, "running counters migration", err)
	}

	return &CounterStore{db: db}, nil
}

// Increment adds delta to the named counter for the given day (formatted
// "2006-01-02"), creating the row if absent.
func (c *CounterStore) Increment(ctx context.Context, day, name string, delta int64) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO daily_counters (day, name, count) VALUES (?, ?, ?)
		ON CONFLICT(day, name) DO UPDATE SET count = count + excluded.count`,
		day, name, delta,
	)
	if err != nil {
		return apperr.Wrap(apperr.KindTransientStore, fmt.Sprintf("incrementing counter %s/%s", day, name), err)
	}
	return nil
}

// Get returns the current value of a named counter for a day, or 0 if
// absent.
func (c *CounterStore) Get(ctx context.Context, day, name string) (int64, error) {
	var count int64
	err := c.db.QueryRowContext(ctx, `
		SELECT count FROM daily_counters WHERE day = ? AND name = ?`, day, name).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, apperr.Wrap(apperr.KindTransientStore, "reading counter", err)
	}
	return count, nil
}

// ForDay returns every counter recorded for a given day.
func (c *CounterStore) ForDay(ctx context.Context, day string) (map[string]int64, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT name, count FROM daily_counters WHERE day = ?`, day)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransientStore, "listing counters", err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var name string
		var count int64
		if err := rows.Scan(&name, &count); err != nil {
			return nil, err
		}
		out[name] = count
	}
	return out, rows.Err()
}

// Close releases the underlying database handle.
func (c *CounterStore) Close() error {
	return c.db.Close()
}
