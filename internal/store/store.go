package store

import (
	"context"
	"fmt"
	"time"

	"github.com/sketchloom/sessionengine/internal/apperr"
	"github.com/sketchloom/sessionengine/internal/wireframe"
)

// backend is the storage medium a Store writes through. fileStore
// (filestore.go) is the default: a file-per-key JSON tree with flock-based
// exclusion. sqliteBackend (sqlitestore.go) is the alternate backend
// selected by Config.StoreBackend = "sqlite", a single-table key/value
// store using SQL transactions for the two operations (casMetadata,
// appendToRing) that need read-then-write atomicity.
type backend interface {
	get(ctx context.Context, path []string, v any) error
	put(ctx context.Context, path []string, v any) error
	putIfAbsent(ctx context.Context, path []string, v any) error
	delete(ctx context.Context, path []string) error
	list(ctx context.Context, path []string) ([]string, error)
	exists(ctx context.Context, path []string) bool
	removeDir(ctx context.Context, path []string) error
	casMetadata(ctx context.Context, path []string, expectedVersion int, newMeta *Metadata) error
	appendToRing(ctx context.Context, path []string, entry ContextEntry, maxEntries int) error
}

// SessionStatus is the lifecycle status carried on session metadata.
type SessionStatus string

const (
	StatusActive      SessionStatus = "active"
	StatusExpired     SessionStatus = "expired"
	StatusCompleted   SessionStatus = "completed"
	StatusQuarantined SessionStatus = "quarantined"
)

// Metadata is the per-session record mutated only under the session's
// advisory lock. CurrentVersion is advanced exclusively through
// CompareAndSwapMetadata.
type Metadata struct {
	SessionID      string        `json:"sessionID"`
	UserID         string        `json:"userID,omitempty"`
	CurrentVersion int           `json:"currentVersion"`
	Status         SessionStatus `json:"status"`
	CreatedAt      time.Time     `json:"createdAt"`
	LastActivity   time.Time     `json:"lastActivity"`

	// ParentSessionID and ParentVersion identify the session and version a
	// forked session was copied from; zero-valued for non-forked sessions.
	ParentSessionID string `json:"parentSessionID,omitempty"`
	ParentVersion   int    `json:"parentVersion,omitempty"`

	// ShareToken is an opaque bookkeeping token attached by ShareSession;
	// empty when the session is not shared. It implies no rendering
	// surface of its own.
	ShareToken string `json:"shareToken,omitempty"`
}

// VersionState is the body written exactly once per version: the wireframe
// produced plus the metadata describing how it was produced.
type VersionState struct {
	Version       int                 `json:"version"`
	ParentVersion int                 `json:"parentVersion"`
	Wireframe     *wireframe.Document `json:"wireframe"`
	Prompt        string              `json:"prompt"`
	EditType      string              `json:"editType"`
	ProcessingMs  int64               `json:"processingMs"`
	CreatedAt     time.Time           `json:"createdAt"`
	// Compacted is set by the Janitor when the wireframe body has been
	// discarded by retention compaction; Wireframe is nil when true.
	Compacted bool `json:"compacted,omitempty"`
}

// ContextEntry is one record in a session's bounded context ring. ID is a
// sortable record identifier assigned on append, independent of Version, so
// entries retain a stable identity across ring eviction and compaction.
type ContextEntry struct {
	ID             string    `json:"id"`
	Prompt         string    `json:"prompt"`
	EditType       string    `json:"editType"`
	TargetElements []string  `json:"targetElements"`
	Version        int       `json:"version"`
	CreatedAt      time.Time `json:"createdAt"`
}

// contextRing is the on-disk shape of a session's context ring file.
type contextRing struct {
	Entries []ContextEntry `json:"entries"`
}

// MaxContextEntries bounds the context ring; the oldest entry is dropped on
// overflow.
const MaxContextEntries = 10

// Store is the State Store: a namespaced, TTL-aware key/value layer over a
// pluggable backend. CounterStore in counters.go is a separate sqlite
// handle used for janitor daily aggregates regardless of which backend a
// Store itself uses.
type Store struct {
	backend backend
}

// New returns a file-backed Store rooted at dataDir, matching
// Config.StoreBackend's default of "file".
func New(dataDir string) *Store {
	return &Store{backend: newFileStore(dataDir)}
}

// NewSQLite returns a Store backed by a single SQLite database at dbPath,
// used when Config.StoreBackend is "sqlite". Use ":memory:" for an
// ephemeral store in tests.
func NewSQLite(dbPath string) (*Store, error) {
	b, err := newSQLiteBackend(dbPath)
	if err != nil {
		return nil, err
	}
	return &Store{backend: b}, nil
}

func metaPath(sessionID string) []string {
	return []string{"sessions", sessionID, "meta"}
}

func statePath(sessionID string, version int) []string {
	return []string{"sessions", sessionID, "state", fmt.Sprintf("%d", version)}
}

func contextPath(sessionID string) []string {
	return []string{"sessions", sessionID, "ctx"}
}

func userIndexPath(userID string) []string {
	return []string{"users", userID, "sessions"}
}

// CreateMetadata performs the unconditional initial write of session
// metadata, failing with Conflict if the session already has metadata.
func (s *Store) CreateMetadata(ctx context.Context, meta *Metadata) error {
	if err := s.backend.putIfAbsent(ctx, metaPath(meta.SessionID), meta); err != nil {
		return err
	}
	if meta.UserID != "" {
		s.indexForUser(ctx, meta.UserID, meta.SessionID)
	}
	return nil
}

// GetMetadata returns a session's metadata, or KindNotFound.
func (s *Store) GetMetadata(ctx context.Context, sessionID string) (*Metadata, error) {
	var meta Metadata
	if err := s.backend.get(ctx, metaPath(sessionID), &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// CompareAndSwapMetadata replaces a session's metadata only if its current
// CurrentVersion equals expectedVersion, returning KindConflict otherwise.
// This is the only sanctioned way to advance CurrentVersion.
func (s *Store) CompareAndSwapMetadata(ctx context.Context, sessionID string, expectedVersion int, newMeta *Metadata) error {
	return s.backend.casMetadata(ctx, metaPath(sessionID), expectedVersion, newMeta)
}

// PutMetadata performs an unconditional metadata write, used by the Session
// Manager and QuarantineSession for status and bookkeeping changes that do
// not advance CurrentVersion.
func (s *Store) PutMetadata(ctx context.Context, meta *Metadata) error {
	return s.backend.put(ctx, metaPath(meta.SessionID), meta)
}

// QuarantineSession marks sessionID Quarantined after an integrity
// violation, such as current_version pointing at a missing state, is
// detected. Quarantine only ever tightens a session's status: the Session
// Manager's active-status check already rejects further writes against a
// non-active session, so quarantining needs no CAS of its own, while reads
// through GetHistory/GetVersion remain unaffected.
func (s *Store) QuarantineSession(ctx context.Context, sessionID string) error {
	meta, err := s.GetMetadata(ctx, sessionID)
	if err != nil {
		return err
	}
	meta.Status = StatusQuarantined
	return s.PutMetadata(ctx, meta)
}

// PutState writes a new version's state, failing with Conflict if that
// version already exists.
func (s *Store) PutState(ctx context.Context, sessionID string, version int, state *VersionState) error {
	return s.backend.putIfAbsent(ctx, statePath(sessionID, version), state)
}

// GetState returns the stored state for a specific version.
func (s *Store) GetState(ctx context.Context, sessionID string, version int) (*VersionState, error) {
	var state VersionState
	if err := s.backend.get(ctx, statePath(sessionID, version), &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// DeleteState removes a version's state file, used to roll back a write
// whose subsequent CompareAndSwapMetadata failed.
func (s *Store) DeleteState(ctx context.Context, sessionID string, version int) error {
	return s.backend.delete(ctx, statePath(sessionID, version))
}

// CompactState overwrites a version's state with its compacted form
// (metadata retained, wireframe body discarded).
func (s *Store) CompactState(ctx context.Context, sessionID string, version int, compacted *VersionState) error {
	compacted.Compacted = true
	compacted.Wireframe = nil
	return s.backend.put(ctx, statePath(sessionID, version), compacted)
}

// AppendContext appends entry to the session's context ring, evicting the
// oldest entry if the ring is at capacity. Refreshes the session's TTL
// clock is the caller's responsibility (via CompareAndSwapMetadata's
// LastActivity field), matching the spec's "one logical operation" framing
// for PutState+AppendContext.
func (s *Store) AppendContext(ctx context.Context, sessionID string, entry ContextEntry) error {
	return s.backend.appendToRing(ctx, contextPath(sessionID), entry, MaxContextEntries)
}

// GetContext returns a session's context ring, newest entry last.
func (s *Store) GetContext(ctx context.Context, sessionID string) ([]ContextEntry, error) {
	var ring contextRing
	if err := s.backend.get(ctx, contextPath(sessionID), &ring); err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return nil, nil
		}
		return nil, err
	}
	return ring.Entries, nil
}

// ExpireSession removes every key belonging to a session: metadata, all
// version states, and the context ring. Called by the Janitor once
// now - last_activity > session_ttl.
func (s *Store) ExpireSession(ctx context.Context, sessionID string) error {
	return s.backend.removeDir(ctx, []string{"sessions", sessionID})
}

// indexForUser best-efforts an addition of sessionID to a user's session
// index; failures are not propagated since the index is advisory (listing
// convenience), not authoritative session state.
func (s *Store) indexForUser(ctx context.Context, userID, sessionID string) {
	path := append(userIndexPath(userID), sessionID)
	_ = s.backend.put(ctx, path, map[string]bool{"present": true})
}

// ListSessionsForUser returns the session IDs indexed under userID.
func (s *Store) ListSessionsForUser(ctx context.Context, userID string) ([]string, error) {
	return s.backend.list(ctx, userIndexPath(userID))
}

// SessionExists reports whether a session has metadata.
func (s *Store) SessionExists(ctx context.Context, sessionID string) bool {
	return s.backend.exists(ctx, metaPath(sessionID))
}

// ListSessions returns every session ID known to the store, for the
// Janitor's sweep. Order is unspecified.
func (s *Store) ListSessions(ctx context.Context) ([]string, error) {
	return s.backend.list(ctx, []string{"sessions"})
}

// Close releases the backend's resources. The file backend has none; a
// sqlite-backed Store closes its database handle.
func (s *Store) Close() error {
	if c, ok := s.backend.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
