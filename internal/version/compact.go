package version

import (
	"context"

	"github.com/sketchloom/sessionengine/internal/apperr"
)

// Compact applies the retention policy: every version at or below
// currentVersion-retentionWindow has its wireframe body discarded, so the
// newest retentionWindow versions stay intact, and version 1 and the current
// version are always preserved intact.
// Safe to call repeatedly; already-compacted versions are skipped.
func (m *Manager) Compact(ctx context.Context, sessionID string, retentionWindow int) error {
	meta, err := m.store.GetMetadata(ctx, sessionID)
	if err != nil {
		return err
	}

	threshold := meta.CurrentVersion - retentionWindow
	if threshold < 2 {
		return nil
	}

	for v := 2; v <= threshold; v++ {
		if v == meta.CurrentVersion {
			continue
		}
		state, err := m.store.GetState(ctx, sessionID, v)
		if err != nil {
			if apperr.KindOf(err) == apperr.KindNotFound {
				continue
			}
			return err
		}
		if state.Compacted {
			continue
		}
		if err := m.store.CompactState(ctx, sessionID, v, state); err != nil {
			return err
		}
	}

	return nil
}
