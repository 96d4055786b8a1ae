package janitor

import (
	"context"
	"time"

	"github.com/sketchloom/sessionengine/internal/apperr"
	"github.com/sketchloom/sessionengine/internal/event"
	"github.com/sketchloom/sessionengine/internal/logging"
	"github.com/sketchloom/sessionengine/internal/store"
	"github.com/sketchloom/sessionengine/internal/version"
)

// dayFormat is the key daily counters are bucketed under.
const dayFormat = "2006-01-02"

// Janitor is the background sweeper. It never holds a per-session lock for
// longer than one compaction call; expiry and compaction of distinct
// sessions proceed independently of the Session Manager's edit pipeline.
type Janitor struct {
	store           *store.Store
	versions        *version.Manager
	counters        *store.CounterStore
	sessionTTL      time.Duration
	retentionWindow int
	interval        time.Duration

	unsubscribe []func()
}

// New returns a Janitor. counters may be nil, in which case lifecycle
// events are observed but not persisted.
func New(s *store.Store, versions *version.Manager, counters *store.CounterStore, sessionTTL time.Duration, retentionWindow int, interval time.Duration) *Janitor {
	return &Janitor{
		store:           s,
		versions:        versions,
		counters:        counters,
		sessionTTL:      sessionTTL,
		retentionWindow: retentionWindow,
		interval:        interval,
	}
}

// Start registers the Janitor's event-bus counter subscriptions. Call
// before Run. Returns a func that unsubscribes everything.
func (j *Janitor) Start() func() {
	j.unsubscribe = []func(){
		event.Subscribe(event.SessionCreated, j.countFor("sessions_created")),
		event.Subscribe(event.EditApplied, j.countFor("edits_applied")),
		event.Subscribe(event.EditFailed, j.countFor("edits_failed")),
		event.Subscribe(event.ClarificationRequested, j.countFor("clarifications_requested")),
	}
	return j.Stop
}

// Stop unregisters the Janitor's event-bus subscriptions.
func (j *Janitor) Stop() {
	for _, unsub := range j.unsubscribe {
		unsub()
	}
	j.unsubscribe = nil
}

func (j *Janitor) countFor(name string) event.Subscriber {
	return func(_ event.Event) {
		if j.counters == nil {
			return
		}
		day := currentDay()
		if err := j.counters.Increment(context.Background(), day, name, 1); err != nil {
			logging.Logger.Warn().Err(err).Str("counter", name).Msg("janitor failed to increment daily counter")
		}
	}
}

func currentDay() string {
	return time.Now().UTC().Format(dayFormat)
}

// Run blocks, sweeping every interval until ctx is cancelled.
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.SweepOnce(ctx)
		}
	}
}

// SweepOnce performs one sweep: expire sessions past TTL, compact version
// history for sessions past the retention window.
func (j *Janitor) SweepOnce(ctx context.Context) {
	sessionIDs, err := j.store.ListSessions(ctx)
	if err != nil {
		logging.Logger.Error().Err(err).Msg("janitor failed to list sessions")
		return
	}

	now := time.Now()
	for _, sessionID := range sessionIDs {
		meta, err := j.store.GetMetadata(ctx, sessionID)
		if err != nil {
			if apperr.KindOf(err) != apperr.KindNotFound {
				logging.Logger.Warn().Err(err).Str("sessionID", sessionID).Msg("janitor failed to read session metadata")
			}
			continue
		}

		if now.Sub(meta.LastActivity) > j.sessionTTL {
			j.expire(ctx, sessionID)
			continue
		}

		if meta.Status == store.StatusActive {
			if err := j.versions.Compact(ctx, sessionID, j.retentionWindow); err != nil {
				logging.Logger.Warn().Err(err).Str("sessionID", sessionID).Msg("janitor compaction failed")
			}
		}
	}
}

func (j *Janitor) expire(ctx context.Context, sessionID string) {
	event.Publish(event.Event{Type: event.SessionExpired, Data: event.SessionExpiredData{SessionID: sessionID}})

	if err := j.store.ExpireSession(ctx, sessionID); err != nil {
		logging.Logger.Error().Err(err).Str("sessionID", sessionID).Msg("janitor failed to expire session")
	}
}
