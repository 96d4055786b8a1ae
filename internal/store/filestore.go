// Package store implements the session engine's State Store: versioned
// wireframe bodies, session metadata with compare-and-swap semantics, the
// bounded per-session context ring, and TTL-driven expiration.
//
// The default backend is a file-per-key JSON tree with flock-based
// exclusion, matching the shape of a key/value store while remaining
// inspectable on disk. An optional SQLite-backed counters store (see
// counters.go) supports the Janitor's daily aggregate metrics.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/sketchloom/sessionengine/internal/apperr"
)

var _ backend = (*fileStore)(nil)

// fileStore provides atomic, flock-guarded JSON file storage keyed by a
// path made of string segments.
type fileStore struct {
	basePath string
	mu       sync.RWMutex
	locks    map[string]*fileLock
}

func newFileStore(basePath string) *fileStore {
	return &fileStore{
		basePath: basePath,
		locks:    make(map[string]*fileLock),
	}
}

func (s *fileStore) pathToFile(path []string) string {
	parts := append([]string{s.basePath}, path...)
	return filepath.Join(parts...) + ".json"
}

func (s *fileStore) pathToDir(path []string) string {
	parts := append([]string{s.basePath}, path...)
	return filepath.Join(parts...)
}

// get reads a value from storage, returning a KindNotFound *apperr.Error if
// it is absent and a KindTransientStore error on any other I/O failure.
func (s *fileStore) get(_ context.Context, path []string, v any) error {
	filePath := s.pathToFile(path)

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return apperr.New(apperr.KindNotFound, fmt.Sprintf("key %s not found", strings.Join(path, "/")))
		}
		return apperr.Wrap(apperr.KindTransientStore, "reading state file", err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return apperr.Wrap(apperr.KindFatal, "corrupt state file "+filePath, err)
	}
	return nil
}

// put writes a value, atomically via temp-file-then-rename, under a
// per-file flock.
func (s *fileStore) put(_ context.Context, path []string, v any) error {
	filePath := s.pathToFile(path)

	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return apperr.Wrap(apperr.KindTransientStore, "creating directory", err)
	}

	lock := s.getLock(filePath)
	if err := lock.Lock(); err != nil {
		return apperr.Wrap(apperr.KindTransientStore, "acquiring file lock", err)
	}
	defer lock.Unlock()

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("store: marshal: %w", err)
	}

	tmpPath := filePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return apperr.Wrap(apperr.KindTransientStore, "writing temp file", err)
	}

	if err := os.Rename(tmpPath, filePath); err != nil {
		os.Remove(tmpPath)
		return apperr.Wrap(apperr.KindTransientStore, "renaming temp file", err)
	}

	return nil
}

// putIfAbsent writes v only if no file currently exists at path, returning
// KindConflict if one does.
func (s *fileStore) putIfAbsent(ctx context.Context, path []string, v any) error {
	filePath := s.pathToFile(path)

	lock := s.getLock(filePath)
	if err := lock.Lock(); err != nil {
		return apperr.Wrap(apperr.KindTransientStore, "acquiring file lock", err)
	}
	defer lock.Unlock()

	if _, err := os.Stat(filePath); err == nil {
		return apperr.New(apperr.KindConflict, "key already exists: "+strings.Join(path, "/"))
	}

	return s.putLocked(filePath, v)
}

// putLocked writes v to filePath assuming the caller already holds its lock.
func (s *fileStore) putLocked(filePath string, v any) error {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return apperr.Wrap(apperr.KindTransientStore, "creating directory", err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("store: marshal: %w", err)
	}

	tmpPath := filePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return apperr.Wrap(apperr.KindTransientStore, "writing temp file", err)
	}
	if err := os.Rename(tmpPath, filePath); err != nil {
		os.Remove(tmpPath)
		return apperr.Wrap(apperr.KindTransientStore, "renaming temp file", err)
	}
	return nil
}

func (s *fileStore) delete(_ context.Context, path []string) error {
	filePath := s.pathToFile(path)

	lock := s.getLock(filePath)
	if err := lock.Lock(); err != nil {
		return apperr.Wrap(apperr.KindTransientStore, "acquiring file lock", err)
	}
	defer lock.Unlock()

	if err := os.Remove(filePath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return apperr.Wrap(apperr.KindTransientStore, "deleting file", err)
	}
	return nil
}

func (s *fileStore) list(_ context.Context, path []string) ([]string, error) {
	dirPath := s.pathToDir(path)

	entries, err := os.ReadDir(dirPath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, apperr.Wrap(apperr.KindTransientStore, "reading directory", err)
	}

	var items []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			items = append(items, name)
		} else if strings.HasSuffix(name, ".json") {
			items = append(items, strings.TrimSuffix(name, ".json"))
		}
	}
	return items, nil
}

func (s *fileStore) exists(_ context.Context, path []string) bool {
	_, err := os.Stat(s.pathToFile(path))
	return err == nil
}

// removeDir deletes the entire subtree at path, used by ExpireSession to
// reclaim all of a session's keys in one call.
func (s *fileStore) removeDir(_ context.Context, path []string) error {
	dirPath := s.pathToDir(path)
	if err := os.RemoveAll(dirPath); err != nil {
		return apperr.Wrap(apperr.KindTransientStore, "removing session directory", err)
	}
	return nil
}

// casMetadata implements backend's optimistic metadata advance under the
// same per-file flock CompareAndSwapMetadata used before the backend
// interface existed: read the current value while holding the lock, check
// its version, and write only on a match.
func (s *fileStore) casMetadata(ctx context.Context, path []string, expectedVersion int, newMeta *Metadata) error {
	filePath := s.pathToFile(path)

	lock := s.getLock(filePath)
	if err := lock.Lock(); err != nil {
		return apperr.Wrap(apperr.KindTransientStore, "acquiring metadata lock", err)
	}
	defer lock.Unlock()

	var current Metadata
	if err := s.get(ctx, path, &current); err != nil {
		return err
	}
	if current.CurrentVersion != expectedVersion {
		return apperr.New(apperr.KindConflict, fmt.Sprintf("session %s: expected version %d, found %d", current.SessionID, expectedVersion, current.CurrentVersion))
	}

	return s.putLocked(filePath, newMeta)
}

// appendToRing implements backend's bounded context-ring append: read the
// ring under the file's lock, append and evict past maxEntries, write back.
func (s *fileStore) appendToRing(ctx context.Context, path []string, entry ContextEntry, maxEntries int) error {
	filePath := s.pathToFile(path)

	lock := s.getLock(filePath)
	if err := lock.Lock(); err != nil {
		return apperr.Wrap(apperr.KindTransientStore, "acquiring context ring lock", err)
	}
	defer lock.Unlock()

	var ring contextRing
	if err := s.get(ctx, path, &ring); err != nil && apperr.KindOf(err) != apperr.KindNotFound {
		return err
	}

	if entry.ID == "" {
		entry.ID = ulid.Make().String()
	}
	ring.Entries = append(ring.Entries, entry)
	if len(ring.Entries) > maxEntries {
		ring.Entries = ring.Entries[len(ring.Entries)-maxEntries:]
	}

	return s.putLocked(filePath, &ring)
}

func (s *fileStore) getLock(filePath string) *fileLock {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[filePath]
	if !ok {
		lock = newFileLock(filePath)
		s.locks[filePath] = lock
	}
	return lock
}
