package sessionmgr

import (
	"context"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sketchloom/sessionengine/internal/apperr"
	"github.com/sketchloom/sessionengine/internal/llmadapter"
	"github.com/sketchloom/sessionengine/internal/store"
	"github.com/sketchloom/sessionengine/internal/version"
)

type fakeChatModel struct {
	calls     int
	responses []string
}

func (f *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	idx := f.calls
	f.calls++
	if idx >= len(f.responses) {
		idx = len(f.responses) - 1
	}
	return &schema.Message{Role: schema.Assistant, Content: f.responses[idx]}, nil
}

const initialWireframeJSON = `{"type":"frame","componentName":"root","children":[{"type":"button","componentName":"submit"}]}`
const editedWireframeJSON = `{"type":"frame","componentName":"root","children":[{"type":"button","componentName":"submit"},{"type":"button","componentName":"cancel"}]}`

func newTestManager(t *testing.T, fake *fakeChatModel) (*Manager, *store.Store) {
	t.Helper()
	s := store.New(t.TempDir())
	versions := version.New(s)
	adapter := llmadapter.New(fake, time.Second, 0)
	mgr := New(s, versions, adapter, Limits{EditBudget: 5 * time.Second, LockTimeout: time.Second})
	return mgr, s
}

func TestCreateSessionWritesVersionOne(t *testing.T) {
	mgr, s := newTestManager(t, &fakeChatModel{responses: []string{initialWireframeJSON}})
	ctx := context.Background()

	result, err := mgr.CreateSession(ctx, "user-1", "build a form")
	require.NoError(t, err)
	assert.NotEmpty(t, result.SessionID)
	assert.Equal(t, 1, result.Version)
	assert.Equal(t, "root", result.Wireframe.Root.ComponentName)

	meta, err := s.GetMetadata(ctx, result.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 1, meta.CurrentVersion)
	assert.Equal(t, store.StatusActive, meta.Status)

	ring, err := s.GetContext(ctx, result.SessionID)
	require.NoError(t, err)
	require.Len(t, ring, 1)
	assert.Equal(t, []string{"root"}, ring[0].TargetElements)
}

func TestApplyEditCommitsNewVersionWithoutClarification(t *testing.T) {
	fake := &fakeChatModel{responses: []string{initialWireframeJSON, editedWireframeJSON}}
	mgr, _ := newTestManager(t, fake)
	ctx := context.Background()

	created, err := mgr.CreateSession(ctx, "user-1", "build a form")
	require.NoError(t, err)

	result, err := mgr.ApplyEdit(ctx, created.SessionID, "add a cancel button")
	require.NoError(t, err)
	require.False(t, result.NeedsClarification)
	assert.Equal(t, 2, result.Version)
	assert.Equal(t, 2, fake.calls)
	require.NotNil(t, result.Diff)
	assert.Equal(t, 1, result.Diff.NodesAdded)
}

func TestApplyEditNeedsClarificationSkipsLLMCall(t *testing.T) {
	fake := &fakeChatModel{responses: []string{initialWireframeJSON, editedWireframeJSON}}
	mgr, _ := newTestManager(t, fake)
	ctx := context.Background()

	created, err := mgr.CreateSession(ctx, "user-1", "build a form")
	require.NoError(t, err)

	result, err := mgr.ApplyEdit(ctx, created.SessionID, "modify the widget")
	require.NoError(t, err)
	assert.True(t, result.NeedsClarification)
	assert.Equal(t, 1, fake.calls)
}

func TestApplyEditOnClosedSessionReturnsConflict(t *testing.T) {
	fake := &fakeChatModel{responses: []string{initialWireframeJSON, editedWireframeJSON}}
	mgr, _ := newTestManager(t, fake)
	ctx := context.Background()

	created, err := mgr.CreateSession(ctx, "user-1", "build a form")
	require.NoError(t, err)
	require.NoError(t, mgr.CloseSession(ctx, created.SessionID))

	_, err = mgr.ApplyEdit(ctx, created.SessionID, "add a cancel button")
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestApplyEditReturnsBusyWhenLockHeld(t *testing.T) {
	fake := &fakeChatModel{responses: []string{initialWireframeJSON, editedWireframeJSON}}
	mgr, _ := newTestManager(t, fake)
	mgr.limits.LockTimeout = 10 * time.Millisecond
	ctx := context.Background()

	created, err := mgr.CreateSession(ctx, "user-1", "build a form")
	require.NoError(t, err)

	release, err := mgr.locks.acquire(ctx, created.SessionID, time.Second)
	require.NoError(t, err)
	defer release()

	_, err = mgr.ApplyEdit(ctx, created.SessionID, "add a cancel button")
	require.Error(t, err)
	assert.Equal(t, apperr.KindBusy, apperr.KindOf(err))
}

func TestGetHistoryListsCommittedVersions(t *testing.T) {
	fake := &fakeChatModel{responses: []string{initialWireframeJSON, editedWireframeJSON}}
	mgr, _ := newTestManager(t, fake)
	ctx := context.Background()

	created, err := mgr.CreateSession(ctx, "user-1", "build a form")
	require.NoError(t, err)
	_, err = mgr.ApplyEdit(ctx, created.SessionID, "add a cancel button")
	require.NoError(t, err)

	history, err := mgr.GetHistory(ctx, created.SessionID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 1, history[0].Version)
	assert.Equal(t, 2, history[1].Version)
}

func TestForkSessionCopiesWireframeAtVersion(t *testing.T) {
	fake := &fakeChatModel{responses: []string{initialWireframeJSON}}
	mgr, s := newTestManager(t, fake)
	ctx := context.Background()

	created, err := mgr.CreateSession(ctx, "user-1", "build a form")
	require.NoError(t, err)

	forkID, err := mgr.ForkSession(ctx, created.SessionID, 1, "user-1")
	require.NoError(t, err)
	assert.NotEqual(t, created.SessionID, forkID)

	meta, err := s.GetMetadata(ctx, forkID)
	require.NoError(t, err)
	assert.Equal(t, 1, meta.CurrentVersion)
	assert.Equal(t, created.SessionID, meta.ParentSessionID)
	assert.Equal(t, 1, meta.ParentVersion)

	state, err := mgr.GetVersion(ctx, forkID, 1)
	require.NoError(t, err)
	assert.Equal(t, "root", state.Wireframe.Root.ComponentName)
}

func TestGetSessionQuarantinesOnDanglingCurrentVersion(t *testing.T) {
	mgr, s := newTestManager(t, &fakeChatModel{responses: []string{initialWireframeJSON}})
	ctx := context.Background()

	created, err := mgr.CreateSession(ctx, "user-1", "build a form")
	require.NoError(t, err)
	require.NoError(t, s.DeleteState(ctx, created.SessionID, 1))

	_, err = mgr.GetSession(ctx, created.SessionID)
	require.Error(t, err)
	assert.Equal(t, apperr.KindFatal, apperr.KindOf(err))

	meta, err := s.GetMetadata(ctx, created.SessionID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusQuarantined, meta.Status)
}

func TestShareAndUnshareSession(t *testing.T) {
	mgr, s := newTestManager(t, &fakeChatModel{responses: []string{initialWireframeJSON}})
	ctx := context.Background()

	created, err := mgr.CreateSession(ctx, "user-1", "build a form")
	require.NoError(t, err)

	token, err := mgr.ShareSession(ctx, created.SessionID)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	meta, err := s.GetMetadata(ctx, created.SessionID)
	require.NoError(t, err)
	assert.Equal(t, token, meta.ShareToken)

	require.NoError(t, mgr.UnshareSession(ctx, created.SessionID))
	meta, err = s.GetMetadata(ctx, created.SessionID)
	require.NoError(t, err)
	assert.Empty(t, meta.ShareToken)
}
