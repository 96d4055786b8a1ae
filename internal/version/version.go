// Package version implements the Version Manager: monotonic per-session
// version allocation, atomic commit via compare-and-swap, structural diffing,
// and retention compaction.
package version

import (
	"context"
	"fmt"
	"time"

	"github.com/sketchloom/sessionengine/internal/apperr"
	"github.com/sketchloom/sessionengine/internal/store"
	"github.com/sketchloom/sessionengine/internal/wireframe"
)

// EditMetadata describes how a version was produced, supplied by the
// Session Manager when committing a new version.
type EditMetadata struct {
	Prompt       string
	EditType     string
	ProcessingMs int64
}

// Manager is the Version Manager (C2). It owns no state of its own; every
// operation reads and writes through a Store.
type Manager struct {
	store *store.Store
}

// New returns a Manager backed by s.
func New(s *store.Store) *Manager {
	return &Manager{store: s}
}

// CreateInitial writes version 1 and the session's initial metadata. It
// fails with Conflict if the session already has any state.
func (m *Manager) CreateInitial(ctx context.Context, sessionID, userID string, wf *wireframe.Document, prompt string) (int, error) {
	if m.store.SessionExists(ctx, sessionID) {
		return 0, apperr.New(apperr.KindConflict, fmt.Sprintf("session %s already exists", sessionID))
	}

	now := time.Now()
	state := &store.VersionState{
		Version:   1,
		Prompt:    prompt,
		EditType:  "modify",
		Wireframe: wf,
		CreatedAt: now,
	}
	if err := m.store.PutState(ctx, sessionID, 1, state); err != nil {
		return 0, err
	}

	meta := &store.Metadata{
		SessionID:      sessionID,
		UserID:         userID,
		CurrentVersion: 1,
		Status:         store.StatusActive,
		CreatedAt:      now,
		LastActivity:   now,
	}
	if err := m.store.CreateMetadata(ctx, meta); err != nil {
		_ = m.store.DeleteState(ctx, sessionID, 1)
		return 0, err
	}

	return 1, nil
}

// CreateNext allocates expectedCurrentVersion+1, writes its state, then
// atomically advances session metadata via CompareAndSwapMetadata. If the
// CAS loses the race, the newly written state is rolled back and Conflict
// is returned. This is the only sanctioned way to advance CurrentVersion.
func (m *Manager) CreateNext(ctx context.Context, sessionID string, expectedCurrentVersion int, newWireframe *wireframe.Document, edit EditMetadata) (int, error) {
	newVersion := expectedCurrentVersion + 1

	state := &store.VersionState{
		Version:       newVersion,
		ParentVersion: expectedCurrentVersion,
		Wireframe:     newWireframe,
		Prompt:        edit.Prompt,
		EditType:      edit.EditType,
		ProcessingMs:  edit.ProcessingMs,
		CreatedAt:     time.Now(),
	}
	if err := m.store.PutState(ctx, sessionID, newVersion, state); err != nil {
		return 0, err
	}

	meta, err := m.store.GetMetadata(ctx, sessionID)
	if err != nil {
		_ = m.store.DeleteState(ctx, sessionID, newVersion)
		return 0, err
	}

	updated := *meta
	updated.CurrentVersion = newVersion
	updated.LastActivity = state.CreatedAt

	if err := m.store.CompareAndSwapMetadata(ctx, sessionID, expectedCurrentVersion, &updated); err != nil {
		_ = m.store.DeleteState(ctx, sessionID, newVersion)
		return 0, err
	}

	return newVersion, nil
}

// GetState returns a version's state. Reading a compacted version's
// wireframe body returns KindGone; callers that only need metadata should
// inspect the Compacted flag before treating that as fatal.
func (m *Manager) GetState(ctx context.Context, sessionID string, version int) (*store.VersionState, error) {
	state, err := m.store.GetState(ctx, sessionID, version)
	if err != nil {
		return nil, err
	}
	if state.Compacted {
		return state, apperr.New(apperr.KindGone, fmt.Sprintf("session %s version %d was compacted", sessionID, version))
	}
	return state, nil
}
