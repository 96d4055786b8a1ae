package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/sketchloom/sessionengine/internal/apperr"

	_ "modernc.org/sqlite"
)

var _ backend = (*sqliteBackend)(nil)

// sqliteBackend is the alternate Store backend selected by
// Config.StoreBackend = "sqlite": every key a Store addresses by path
// segments becomes one row in a single table, keyed by the segments joined
// with "/". casMetadata and appendToRing, the two operations that need
// read-then-write atomicity, run inside a SQL transaction instead of
// filestore.go's flock.
type sqliteBackend struct {
	db *sql.DB
}

const sqliteKVSchema = `
CREATE TABLE IF NOT EXISTS kv (
	key   TEXT PRIMARY KEY,
	value BLOB NOT NULL
);
`

func newSQLiteBackend(dbPath string) (*sqliteBackend, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, apperr.Wrap(apperr.KindTransientStore, "creating store db directory", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransientStore, "opening store db", err)
	}
	if _, err := db.Exec(sqliteKVSchema); err != nil {
		db.Close()
		return nil, apperr.Wrap(apperr.KindTransientStore, "running store migration", err)
	}
	return &sqliteBackend{db: db}, nil
}

// Close releases the underlying database handle. The file-backed Store has
// no handle to release, so this only applies to a sqlite-backed one.
func (b *sqliteBackend) Close() error {
	return b.db.Close()
}

func keyFor(path []string) string {
	return strings.Join(path, "/")
}

func (b *sqliteBackend) get(ctx context.Context, path []string, v any) error {
	key := keyFor(path)
	var raw []byte
	err := b.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&raw)
	if err == sql.ErrNoRows {
		return apperr.New(apperr.KindNotFound, fmt.Sprintf("key %s not found", key))
	}
	if err != nil {
		return apperr.Wrap(apperr.KindTransientStore, "reading key", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return apperr.Wrap(apperr.KindFatal, "corrupt row "+key, err)
	}
	return nil
}

func (b *sqliteBackend) put(ctx context.Context, path []string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("store: marshal: %w", err)
	}
	_, err = b.db.ExecContext(ctx, `
		INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, keyFor(path), data)
	if err != nil {
		return apperr.Wrap(apperr.KindTransientStore, "writing key", err)
	}
	return nil
}

func (b *sqliteBackend) putIfAbsent(ctx context.Context, path []string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("store: marshal: %w", err)
	}
	res, err := b.db.ExecContext(ctx, `INSERT OR IGNORE INTO kv (key, value) VALUES (?, ?)`, keyFor(path), data)
	if err != nil {
		return apperr.Wrap(apperr.KindTransientStore, "writing key", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.Wrap(apperr.KindTransientStore, "checking insert result", err)
	}
	if n == 0 {
		return apperr.New(apperr.KindConflict, "key already exists: "+keyFor(path))
	}
	return nil
}

func (b *sqliteBackend) delete(ctx context.Context, path []string) error {
	if _, err := b.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, keyFor(path)); err != nil {
		return apperr.Wrap(apperr.KindTransientStore, "deleting key", err)
	}
	return nil
}

// list returns the distinct next path segment under path, mirroring
// fileStore.list's "one directory/file entry per item" semantics over a
// flat key space.
func (b *sqliteBackend) list(ctx context.Context, path []string) ([]string, error) {
	prefix := keyFor(path) + "/"
	rows, err := b.db.QueryContext(ctx, `SELECT key FROM kv WHERE key LIKE ? || '%'`, prefix)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransientStore, "listing keys", err)
	}
	defer rows.Close()

	seen := make(map[string]bool)
	items := []string{}
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, apperr.Wrap(apperr.KindTransientStore, "scanning key", err)
		}
		item := strings.SplitN(strings.TrimPrefix(key, prefix), "/", 2)[0]
		if item != "" && !seen[item] {
			seen[item] = true
			items = append(items, item)
		}
	}
	return items, rows.Err()
}

func (b *sqliteBackend) exists(ctx context.Context, path []string) bool {
	var one int
	err := b.db.QueryRowContext(ctx, `SELECT 1 FROM kv WHERE key = ?`, keyFor(path)).Scan(&one)
	return err == nil
}

func (b *sqliteBackend) removeDir(ctx context.Context, path []string) error {
	prefix := keyFor(path)
	if _, err := b.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ? OR key LIKE ? || '/%'`, prefix, prefix); err != nil {
		return apperr.Wrap(apperr.KindTransientStore, "removing session rows", err)
	}
	return nil
}

func (b *sqliteBackend) casMetadata(ctx context.Context, path []string, expectedVersion int, newMeta *Metadata) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return apperr.Wrap(apperr.KindTransientStore, "beginning cas transaction", err)
	}
	defer tx.Rollback()

	key := keyFor(path)
	var raw []byte
	if err := tx.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&raw); err != nil {
		if err == sql.ErrNoRows {
			return apperr.New(apperr.KindNotFound, fmt.Sprintf("key %s not found", key))
		}
		return apperr.Wrap(apperr.KindTransientStore, "reading metadata", err)
	}

	var current Metadata
	if err := json.Unmarshal(raw, &current); err != nil {
		return apperr.Wrap(apperr.KindFatal, "corrupt metadata row "+key, err)
	}
	if current.CurrentVersion != expectedVersion {
		return apperr.New(apperr.KindConflict, fmt.Sprintf("session %s: expected version %d, found %d", current.SessionID, expectedVersion, current.CurrentVersion))
	}

	data, err := json.Marshal(newMeta)
	if err != nil {
		return fmt.Errorf("store: marshal: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE kv SET value = ? WHERE key = ?`, data, key); err != nil {
		return apperr.Wrap(apperr.KindTransientStore, "writing metadata", err)
	}
	return tx.Commit()
}

func (b *sqliteBackend) appendToRing(ctx context.Context, path []string, entry ContextEntry, maxEntries int) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return apperr.Wrap(apperr.KindTransientStore, "beginning ring transaction", err)
	}
	defer tx.Rollback()

	key := keyFor(path)
	var ring contextRing
	var raw []byte
	err = tx.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&raw)
	if err != nil && err != sql.ErrNoRows {
		return apperr.Wrap(apperr.KindTransientStore, "reading context ring", err)
	}
	if err == nil {
		if jerr := json.Unmarshal(raw, &ring); jerr != nil {
			return apperr.Wrap(apperr.KindFatal, "corrupt context ring row "+key, jerr)
		}
	}

	if entry.ID == "" {
		entry.ID = ulid.Make().String()
	}
	ring.Entries = append(ring.Entries, entry)
	if len(ring.Entries) > maxEntries {
		ring.Entries = ring.Entries[len(ring.Entries)-maxEntries:]
	}

	data, merr := json.Marshal(&ring)
	if merr != nil {
		return fmt.Errorf("store: marshal: %w", merr)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, data); err != nil {
		return apperr.Wrap(apperr.KindTransientStore, "writing context ring", err)
	}
	return tx.Commit()
}
