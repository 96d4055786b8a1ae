package version

import (
	"context"
	"time"

	"github.com/sketchloom/sessionengine/internal/store"
)

// SessionMetrics is derived on demand from the context ring and session
// metadata; none of it is stored verbatim.
type SessionMetrics struct {
	TotalEdits           int            `json:"totalEdits"`
	SessionDuration      time.Duration  `json:"sessionDuration"`
	EditTypeDistribution map[string]int `json:"editTypeDistribution"`
	MeanProcessingMs     float64        `json:"meanProcessingMs"`
	// UserSatisfactionScore is never populated: nothing in this package
	// accepts a score, so Metrics always leaves it nil.
	UserSatisfactionScore *float64 `json:"userSatisfactionScore,omitempty"`
}

// Metrics derives SessionMetrics from the session's metadata and its
// current context ring. Entries evicted from the ring by older edits are
// not reflected; Metrics is a snapshot over the live ring only.
func (m *Manager) Metrics(ctx context.Context, sessionID string) (*SessionMetrics, error) {
	meta, err := m.store.GetMetadata(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	entries, err := m.store.GetContext(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	metrics := &SessionMetrics{
		TotalEdits:           len(entries),
		SessionDuration:      meta.LastActivity.Sub(meta.CreatedAt),
		EditTypeDistribution: make(map[string]int),
	}

	var totalMs int64
	for _, e := range entries {
		metrics.EditTypeDistribution[e.EditType]++
	}
	for _, e := range contextProcessingTimes(ctx, m.store, sessionID, entries) {
		totalMs += e
	}
	if len(entries) > 0 {
		metrics.MeanProcessingMs = float64(totalMs) / float64(len(entries))
	}

	return metrics, nil
}

// contextProcessingTimes resolves each context entry's version to its
// stored processing time. Compacted versions no longer carry a wireframe
// body but their metadata, including ProcessingMs, survives compaction.
func contextProcessingTimes(ctx context.Context, s *store.Store, sessionID string, entries []store.ContextEntry) []int64 {
	out := make([]int64, 0, len(entries))
	for _, e := range entries {
		state, err := s.GetState(ctx, sessionID, e.Version)
		if err != nil {
			continue
		}
		out = append(out, state.ProcessingMs)
	}
	return out
}
