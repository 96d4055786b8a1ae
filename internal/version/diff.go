package version

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sketchloom/sessionengine/internal/apperr"
	"github.com/sketchloom/sessionengine/internal/wireframe"
)

// ChangeSummary is the advisory, structurally-exact result of Diff. Wording
// is not guaranteed stable across implementations, but the counts are.
type ChangeSummary struct {
	FromVersion     int      `json:"fromVersion"`
	ToVersion       int      `json:"toVersion"`
	NodesAdded      int      `json:"nodesAdded"`
	NodesRemoved    int      `json:"nodesRemoved"`
	NodesModified   int      `json:"nodesModified"`
	ChangedPropKeys []string `json:"changedPropKeys"`
}

// positionedNode is a node keyed by its path from the root, so the same
// tree position in two versions can be compared directly.
type positionedNode struct {
	path string
	node *wireframe.Node
}

// Diff computes a structural comparison of two committed versions: nodes
// present in "to" but not "from" at the same tree path are additions, nodes
// present in "from" but not "to" are removals, and nodes present in both
// whose componentName matches but whose props differ are modifications.
func (m *Manager) Diff(ctx context.Context, sessionID string, from, to int) (*ChangeSummary, error) {
	fromState, err := m.store.GetState(ctx, sessionID, from)
	if err != nil {
		return nil, err
	}
	toState, err := m.store.GetState(ctx, sessionID, to)
	if err != nil {
		return nil, err
	}
	if fromState.Compacted || toState.Compacted {
		return nil, apperr.New(apperr.KindGone, fmt.Sprintf("session %s: version %d or %d was compacted", sessionID, from, to))
	}

	fromNodes := flatten(fromState.Wireframe)
	toNodes := flatten(toState.Wireframe)

	summary := &ChangeSummary{FromVersion: from, ToVersion: to}
	changedKeys := make(map[string]bool)

	for path, fn := range fromNodes {
		tn, ok := toNodes[path]
		if !ok {
			summary.NodesRemoved++
			continue
		}
		if fn.node.ComponentName != tn.node.ComponentName || fn.node.Type != tn.node.Type {
			summary.NodesRemoved++
			summary.NodesAdded++
			continue
		}
		if keys := propDiff(fn.node.Props, tn.node.Props); len(keys) > 0 {
			summary.NodesModified++
			for _, k := range keys {
				changedKeys[k] = true
			}
		}
	}

	for path := range toNodes {
		if _, ok := fromNodes[path]; !ok {
			summary.NodesAdded++
		}
	}

	for k := range changedKeys {
		summary.ChangedPropKeys = append(summary.ChangedPropKeys, k)
	}
	sort.Strings(summary.ChangedPropKeys)

	return summary, nil
}

// flatten walks doc pre-order and indexes every node by its path string.
func flatten(doc *wireframe.Document) map[string]positionedNode {
	out := make(map[string]positionedNode)
	if doc == nil || doc.Root == nil {
		return out
	}
	doc.Walk(func(n *wireframe.Node, path []int) bool {
		out[pathKey(path)] = positionedNode{path: pathKey(path), node: n}
		return true
	})
	return out
}

func pathKey(path []int) string {
	parts := make([]string, len(path))
	for i, p := range path {
		parts[i] = fmt.Sprintf("%d", p)
	}
	return strings.Join(parts, ".")
}

// propDiff returns the sorted set of prop keys whose presence or value
// differs between a and b.
func propDiff(a, b map[string]any) []string {
	seen := make(map[string]bool)
	var keys []string
	for k, av := range a {
		bv, ok := b[k]
		if !ok || !equalProp(av, bv) {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	for k := range b {
		if _, ok := a[k]; !ok {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	sort.Strings(keys)
	return keys
}

// equalProp compares two decoded JSON values (string, float64, bool, nil,
// []any, map[string]any) for equality. fmt.Sprintf normalizes composite
// values well enough for change detection, since props are opaque to this
// package.
func equalProp(a, b any) bool {
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}
