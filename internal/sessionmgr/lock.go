package sessionmgr

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sketchloom/sessionengine/internal/apperr"
)

// lockTable is a per-session advisory lock keyed by session ID, generalized
// from the teacher's per-session map+mutex processing-state pattern into a
// bounded-timeout mutex: acquisition that cannot complete within the
// configured window fails Busy rather than queuing indefinitely.
type lockTable struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[string]chan struct{})}
}

func (t *lockTable) channel(sessionID string) chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	ch, ok := t.locks[sessionID]
	if !ok {
		ch = make(chan struct{}, 1)
		t.locks[sessionID] = ch
	}
	return ch
}

// acquire blocks until sessionID's lock is free, ctx is done, or timeout
// elapses, whichever happens first. The returned release func must be
// called exactly once to unlock.
func (t *lockTable) acquire(ctx context.Context, sessionID string, timeout time.Duration) (func(), error) {
	ch := t.channel(sessionID)
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-timer.C:
		return nil, apperr.New(apperr.KindBusy, fmt.Sprintf("session %s: lock acquisition timed out after %s", sessionID, timeout))
	case <-ctx.Done():
		return nil, apperr.Wrap(apperr.KindTimeout, fmt.Sprintf("session %s: lock acquisition cancelled", sessionID), ctx.Err())
	}
}
