package janitor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sketchloom/sessionengine/internal/event"
	"github.com/sketchloom/sessionengine/internal/store"
	"github.com/sketchloom/sessionengine/internal/version"
	"github.com/sketchloom/sessionengine/internal/wireframe"
)

func frame(componentName string) *wireframe.Document {
	return &wireframe.Document{Root: &wireframe.Node{Type: "frame", ComponentName: componentName}}
}

func TestSweepOnceExpiresSessionPastTTL(t *testing.T) {
	s := store.New(t.TempDir())
	versions := version.New(s)
	ctx := context.Background()

	_, err := versions.CreateInitial(ctx, "sess-1", "user-1", frame("root"), "p")
	require.NoError(t, err)

	meta, err := s.GetMetadata(ctx, "sess-1")
	require.NoError(t, err)
	meta.LastActivity = time.Now().Add(-48 * time.Hour)
	require.NoError(t, s.PutMetadata(ctx, meta))

	j := New(s, versions, nil, 24*time.Hour, 20, time.Hour)
	j.SweepOnce(ctx)

	assert.False(t, s.SessionExists(ctx, "sess-1"))
}

func TestSweepOnceLeavesFreshSessionsAlone(t *testing.T) {
	s := store.New(t.TempDir())
	versions := version.New(s)
	ctx := context.Background()

	_, err := versions.CreateInitial(ctx, "sess-1", "user-1", frame("root"), "p")
	require.NoError(t, err)

	j := New(s, versions, nil, 24*time.Hour, 20, time.Hour)
	j.SweepOnce(ctx)

	assert.True(t, s.SessionExists(ctx, "sess-1"))
}

func TestSweepOnceCompactsSessionsPastRetentionWindow(t *testing.T) {
	s := store.New(t.TempDir())
	versions := version.New(s)
	ctx := context.Background()

	_, err := versions.CreateInitial(ctx, "sess-1", "user-1", frame("root"), "p")
	require.NoError(t, err)

	current := 1
	for current < 5 {
		next, err := versions.CreateNext(ctx, "sess-1", current, frame("root"), version.EditMetadata{Prompt: "edit", EditType: "modify"})
		require.NoError(t, err)
		current = next
	}

	j := New(s, versions, nil, 24*time.Hour, 2, time.Hour)
	j.SweepOnce(ctx)

	state1, err := s.GetState(ctx, "sess-1", 1)
	require.NoError(t, err)
	assert.False(t, state1.Compacted)

	state2, err := s.GetState(ctx, "sess-1", 2)
	require.NoError(t, err)
	assert.True(t, state2.Compacted)

	state5, err := s.GetState(ctx, "sess-1", 5)
	require.NoError(t, err)
	assert.False(t, state5.Compacted)
}

func TestStartSubscribesLifecycleCountersToStorage(t *testing.T) {
	s := store.New(t.TempDir())
	versions := version.New(s)
	counters, err := store.OpenCounterStore(":memory:")
	require.NoError(t, err)
	defer counters.Close()

	j := New(s, versions, counters, 24*time.Hour, 20, time.Hour)
	stop := j.Start()
	defer stop()

	event.PublishSync(event.Event{Type: event.SessionCreated, Data: event.SessionCreatedData{SessionID: "sess-1"}})
	event.PublishSync(event.Event{Type: event.EditApplied, Data: event.EditAppliedData{SessionID: "sess-1", Version: 2}})
	event.PublishSync(event.Event{Type: event.EditFailed, Data: event.EditFailedData{SessionID: "sess-1"}})
	event.PublishSync(event.Event{Type: event.ClarificationRequested, Data: event.ClarificationRequestedData{SessionID: "sess-1"}})

	day := currentDay()
	ctx := context.Background()

	created, err := counters.Get(ctx, day, "sessions_created")
	require.NoError(t, err)
	assert.Equal(t, int64(1), created)

	applied, err := counters.Get(ctx, day, "edits_applied")
	require.NoError(t, err)
	assert.Equal(t, int64(1), applied)

	failed, err := counters.Get(ctx, day, "edits_failed")
	require.NoError(t, err)
	assert.Equal(t, int64(1), failed)

	clarified, err := counters.Get(ctx, day, "clarifications_requested")
	require.NoError(t, err)
	assert.Equal(t, int64(1), clarified)
}

func TestStopUnsubscribesCounters(t *testing.T) {
	s := store.New(t.TempDir())
	versions := version.New(s)
	counters, err := store.OpenCounterStore(":memory:")
	require.NoError(t, err)
	defer counters.Close()

	j := New(s, versions, counters, 24*time.Hour, 20, time.Hour)
	stop := j.Start()
	stop()

	event.PublishSync(event.Event{Type: event.SessionCreated, Data: event.SessionCreatedData{SessionID: "sess-1"}})

	day := currentDay()
	count, err := counters.Get(context.Background(), day, "sessions_created")
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestRunStopsOnContextCancellation(t *testing.T) {
	s := store.New(t.TempDir())
	versions := version.New(s)
	j := New(s, versions, nil, 24*time.Hour, 20, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		j.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}
