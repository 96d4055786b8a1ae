package contextengine

import (
	"regexp"
	"strings"

	"github.com/sketchloom/sessionengine/internal/store"
	"github.com/sketchloom/sessionengine/internal/wireframe"
)

// MaxClarificationCandidates bounds the candidate list returned when
// reference resolution fails and the edit intent requires a referent.
const MaxClarificationCandidates = 5

var pronounRe = regexp.MustCompile(`\b(it|this|that)\b`)
var theTypeRe = regexp.MustCompile(`\bthe\s+([a-zA-Z][a-zA-Z0-9_-]*)\b(?:\s+in\s+(?:the\s+)?([a-zA-Z][a-zA-Z0-9_-]*))?`)

const rootIdentifier = "root"

// Candidate is one plausible referent offered back to the caller when
// resolution is ambiguous.
type Candidate struct {
	Identifier    string `json:"identifier"`
	Type          string `json:"type"`
	ComponentName string `json:"componentName,omitempty"`
}

// ResolveResult is the outcome of ResolveReferences.
type ResolveResult struct {
	TargetElements     []string    `json:"targetElements"`
	NeedsClarification bool        `json:"needsClarification"`
	Candidates         []Candidate `json:"candidates,omitempty"`
}

// requiresReferent reports whether an edit intent is meaningless without a
// resolved target, per the spec's clarification trigger.
func requiresReferent(intent EditIntent) bool {
	return intent == IntentModify || intent == IntentRemove || intent == IntentStyle
}

// ResolveReferences resolves anaphoric references in prompt against doc's
// current wireframe and the session's context ring (oldest first, as
// returned by store.Store.GetContext). Determinism: identical prompt, doc,
// ring, and intent always yield an identical ResolveResult.
func ResolveReferences(prompt string, doc *wireframe.Document, ring []store.ContextEntry, intent EditIntent) ResolveResult {
	lower := strings.ToLower(prompt)

	if pronounRe.MatchString(lower) {
		if len(ring) > 0 {
			newest := ring[len(ring)-1]
			if len(newest.TargetElements) > 0 {
				return ResolveResult{TargetElements: newest.TargetElements}
			}
		}
		return ResolveResult{TargetElements: []string{rootIdentifier}}
	}

	if m := theTypeRe.FindStringSubmatch(lower); m != nil {
		typeToken := m[1]
		region := m[2]

		if target, ok := resolveFromRing(doc, ring, typeToken); ok {
			return ResolveResult{TargetElements: []string{target}}
		}

		if target, ok := resolveFromWireframe(doc, typeToken, region); ok {
			return ResolveResult{TargetElements: []string{target}}
		}

		if requiresReferent(intent) {
			return ResolveResult{NeedsClarification: true, Candidates: candidates(ring, doc)}
		}
		return ResolveResult{TargetElements: []string{rootIdentifier}}
	}

	return ResolveResult{TargetElements: []string{rootIdentifier}}
}

// resolveFromRing searches the most recent context entry first, then the
// remaining ring entries newest-to-oldest, for a recorded target element
// that still identifies a node of type typeToken in the current wireframe.
func resolveFromRing(doc *wireframe.Document, ring []store.ContextEntry, typeToken string) (string, bool) {
	for i := len(ring) - 1; i >= 0; i-- {
		for _, el := range ring[i].TargetElements {
			if n, ok := findByIdentifier(doc, el); ok && strings.EqualFold(n.Type, typeToken) {
				return el, true
			}
		}
	}
	return "", false
}

// findByIdentifier looks up the node whose component identifier (see
// identifier) equals id.
func findByIdentifier(doc *wireframe.Document, id string) (*wireframe.Node, bool) {
	if doc == nil || doc.Root == nil {
		return nil, false
	}
	var found *wireframe.Node
	doc.Walk(func(n *wireframe.Node, _ []int) bool {
		if identifier(n) == id {
			found = n
			return false
		}
		return true
	})
	return found, found != nil
}

// resolveFromWireframe falls back to a structural search of the current
// document, narrowing by ancestor componentName substring when a region is
// given.
func resolveFromWireframe(doc *wireframe.Document, typeToken, region string) (string, bool) {
	if doc == nil || doc.Root == nil {
		return "", false
	}

	var found string
	var ok bool
	doc.Walk(func(n *wireframe.Node, path []int) bool {
		if !strings.EqualFold(n.Type, typeToken) && !strings.EqualFold(n.ComponentName, typeToken) {
			return true
		}
		if region != "" && !ancestorMatches(doc, path, region) {
			return true
		}
		found = identifier(n)
		ok = true
		return false
	})
	return found, ok
}

// ancestorMatches reports whether any ancestor of the node at path has a
// componentName containing region, case-insensitively.
func ancestorMatches(doc *wireframe.Document, path []int, region string) bool {
	n := doc.Root
	if strings.Contains(strings.ToLower(n.ComponentName), strings.ToLower(region)) {
		return true
	}
	for _, idx := range path {
		if idx < 0 || idx >= len(n.Children) {
			return false
		}
		n = n.Children[idx]
		if strings.Contains(strings.ToLower(n.ComponentName), strings.ToLower(region)) {
			return true
		}
	}
	return false
}

// candidates builds the up-to-five, newest-first list offered when
// resolution fails and a referent is required. Context ring targets are
// preferred (they represent recently touched elements); the wireframe is
// walked as a fallback source when the ring is empty or exhausted.
func candidates(ring []store.ContextEntry, doc *wireframe.Document) []Candidate {
	seen := make(map[string]bool)
	var out []Candidate

	for i := len(ring) - 1; i >= 0 && len(out) < MaxClarificationCandidates; i-- {
		for _, el := range ring[i].TargetElements {
			if seen[el] {
				continue
			}
			seen[el] = true
			out = append(out, Candidate{Identifier: el})
			if len(out) >= MaxClarificationCandidates {
				break
			}
		}
	}

	if len(out) < MaxClarificationCandidates && doc != nil {
		doc.Walk(func(n *wireframe.Node, _ []int) bool {
			if len(out) >= MaxClarificationCandidates {
				return false
			}
			id := identifier(n)
			if seen[id] {
				return true
			}
			seen[id] = true
			out = append(out, Candidate{Identifier: id, Type: n.Type, ComponentName: n.ComponentName})
			return true
		})
	}

	return out
}

// identifier returns the component identifier used as a target element: the
// componentName when present, otherwise the node's type.
func identifier(n *wireframe.Node) string {
	if n.ComponentName != "" {
		return n.ComponentName
	}
	return n.Type
}
