package store

import (
	"context"
	"testing"
	"time"

	"github.com/sketchloom/sessionengine/internal/apperr"
	"github.com/sketchloom/sessionengine/internal/wireframe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(t.TempDir())
}

func TestCreateAndGetMetadata(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	meta := &Metadata{
		SessionID:      "sess-1",
		CurrentVersion: 1,
		Status:         StatusActive,
		CreatedAt:      time.Now(),
		LastActivity:   time.Now(),
	}
	require.NoError(t, s.CreateMetadata(ctx, meta))

	got, err := s.GetMetadata(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.CurrentVersion)
	assert.Equal(t, StatusActive, got.Status)
}

func TestCreateMetadataConflictsOnDuplicate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	meta := &Metadata{SessionID: "sess-1", CurrentVersion: 1}
	require.NoError(t, s.CreateMetadata(ctx, meta))

	err := s.CreateMetadata(ctx, meta)
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestGetMetadataNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetMetadata(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestCompareAndSwapMetadataSucceeds(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	meta := &Metadata{SessionID: "sess-1", CurrentVersion: 1}
	require.NoError(t, s.CreateMetadata(ctx, meta))

	updated := &Metadata{SessionID: "sess-1", CurrentVersion: 2}
	require.NoError(t, s.CompareAndSwapMetadata(ctx, "sess-1", 1, updated))

	got, err := s.GetMetadata(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.CurrentVersion)
}

func TestCompareAndSwapMetadataFailsOnStaleExpectedVersion(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	meta := &Metadata{SessionID: "sess-1", CurrentVersion: 1}
	require.NoError(t, s.CreateMetadata(ctx, meta))
	require.NoError(t, s.CompareAndSwapMetadata(ctx, "sess-1", 1, &Metadata{SessionID: "sess-1", CurrentVersion: 2}))

	err := s.CompareAndSwapMetadata(ctx, "sess-1", 1, &Metadata{SessionID: "sess-1", CurrentVersion: 2})
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	// Unchanged after the failed CAS.
	got, err := s.GetMetadata(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.CurrentVersion)
}

func TestPutAndGetState(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	state := &VersionState{
		Version:   1,
		Wireframe: &wireframe.Document{Root: &wireframe.Node{Type: "frame"}},
		EditType:  "modify",
	}
	require.NoError(t, s.PutState(ctx, "sess-1", 1, state))

	got, err := s.GetState(ctx, "sess-1", 1)
	require.NoError(t, err)
	assert.Equal(t, "frame", got.Wireframe.Root.Type)
}

func TestPutStateConflictsOnExistingVersion(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	state := &VersionState{Version: 1}
	require.NoError(t, s.PutState(ctx, "sess-1", 1, state))

	err := s.PutState(ctx, "sess-1", 1, state)
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestDeleteStateRollback(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutState(ctx, "sess-1", 2, &VersionState{Version: 2}))
	require.NoError(t, s.DeleteState(ctx, "sess-1", 2))

	_, err := s.GetState(ctx, "sess-1", 2)
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestCompactStateDiscardsWireframeBody(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	state := &VersionState{
		Version:   2,
		Wireframe: &wireframe.Document{Root: &wireframe.Node{Type: "frame"}},
	}
	require.NoError(t, s.PutState(ctx, "sess-1", 2, state))

	require.NoError(t, s.CompactState(ctx, "sess-1", 2, &VersionState{Version: 2, EditType: "style"}))

	got, err := s.GetState(ctx, "sess-1", 2)
	require.NoError(t, err)
	assert.True(t, got.Compacted)
	assert.Nil(t, got.Wireframe)
	assert.Equal(t, "style", got.EditType)
}

func TestAppendContextBoundedRing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < MaxContextEntries+5; i++ {
		require.NoError(t, s.AppendContext(ctx, "sess-1", ContextEntry{
			Prompt:  "edit",
			Version: i + 1,
		}))
	}

	entries, err := s.GetContext(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, entries, MaxContextEntries)

	// Oldest entries evicted; newest is last.
	assert.Equal(t, MaxContextEntries+5, entries[len(entries)-1].Version)
	assert.Equal(t, 6, entries[0].Version)
}

func TestGetContextEmptyWhenNeverAppended(t *testing.T) {
	s := newTestStore(t)
	entries, err := s.GetContext(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestExpireSessionRemovesAllKeys(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateMetadata(ctx, &Metadata{SessionID: "sess-1", CurrentVersion: 1}))
	require.NoError(t, s.PutState(ctx, "sess-1", 1, &VersionState{Version: 1}))
	require.NoError(t, s.AppendContext(ctx, "sess-1", ContextEntry{Prompt: "x"}))

	require.NoError(t, s.ExpireSession(ctx, "sess-1"))

	assert.False(t, s.SessionExists(ctx, "sess-1"))
	_, err := s.GetState(ctx, "sess-1", 1)
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestListSessionsForUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateMetadata(ctx, &Metadata{SessionID: "sess-1", UserID: "user-1", CurrentVersion: 1}))
	require.NoError(t, s.CreateMetadata(ctx, &Metadata{SessionID: "sess-2", UserID: "user-1", CurrentVersion: 1}))

	sessions, err := s.ListSessionsForUser(ctx, "user-1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"sess-1", "sess-2"}, sessions)
}
