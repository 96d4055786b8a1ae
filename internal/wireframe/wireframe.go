// Package wireframe models the opaque structured document the session
// engine stores and edits. The tree is treated as opaque beyond a small set
// of addressable fields: a node's type, componentName, props map, and
// ordered children.
package wireframe

import (
	"encoding/json"
	"fmt"

	"github.com/sketchloom/sessionengine/internal/apperr"
)

// MaxDepth is the deepest a wireframe tree may nest before it is rejected
// as InvalidOutput.
const MaxDepth = 64

// MaxNodes is the largest total node count a wireframe tree may contain
// before it is rejected as InvalidOutput.
const MaxNodes = 10000

// Node is a single element of the wireframe tree. Props and Children are
// the only structure the core interprets; everything else about a node's
// meaning belongs to the LLM and the downstream renderer.
type Node struct {
	Type          string         `json:"type"`
	ComponentName string         `json:"componentName,omitempty"`
	Props         map[string]any `json:"props,omitempty"`
	Children      []*Node        `json:"children,omitempty"`
}

// Document is the root of a wireframe tree.
type Document struct {
	Root *Node `json:"-"`
}

// MarshalJSON serializes the document as its root node, matching the wire
// shape LLMs are prompted to return.
func (d *Document) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Root)
}

// UnmarshalJSON parses a document from its root node shape, tolerating a
// single-object children value, which it wraps into a one-element slice.
func (d *Document) UnmarshalJSON(data []byte) error {
	var raw rawNode
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	root, err := raw.toNode()
	if err != nil {
		return err
	}
	d.Root = root
	return nil
}

// rawNode mirrors Node but leaves Children as json.RawMessage so
// UnmarshalJSON can detect and tolerate a single-object Children value
// before committing to the []*Node shape.
type rawNode struct {
	Type          string          `json:"type"`
	ComponentName string          `json:"componentName,omitempty"`
	Props         map[string]any  `json:"props,omitempty"`
	Children      json.RawMessage `json:"children,omitempty"`
}

func (r *rawNode) toNode() (*Node, error) {
	n := &Node{
		Type:          r.Type,
		ComponentName: r.ComponentName,
		Props:         r.Props,
	}

	if len(r.Children) == 0 || string(r.Children) == "null" {
		return n, nil
	}

	var seq []rawNode
	if err := json.Unmarshal(r.Children, &seq); err == nil {
		for i := range seq {
			child, err := seq[i].toNode()
			if err != nil {
				return nil, err
			}
			n.Children = append(n.Children, child)
		}
		return n, nil
	}

	// Not a sequence; might be a single child object. Parse it as one and
	// wrap it so downstream code always sees a slice.
	var single rawNode
	if err := json.Unmarshal(r.Children, &single); err != nil {
		return nil, fmt.Errorf("wireframe: children is neither a sequence nor an object: %w", err)
	}
	child, err := single.toNode()
	if err != nil {
		return nil, err
	}
	n.Children = []*Node{child}
	return n, nil
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	if d == nil || d.Root == nil {
		return &Document{}
	}
	return &Document{Root: cloneNode(d.Root)}
}

func cloneNode(n *Node) *Node {
	if n == nil {
		return nil
	}
	clone := &Node{
		Type:          n.Type,
		ComponentName: n.ComponentName,
	}
	if n.Props != nil {
		clone.Props = make(map[string]any, len(n.Props))
		for k, v := range n.Props {
			clone.Props[k] = v
		}
	}
	for _, c := range n.Children {
		clone.Children = append(clone.Children, cloneNode(c))
	}
	return clone
}

// CountNodes returns the total number of nodes in the document, including
// the root.
func (d *Document) CountNodes() int {
	if d == nil || d.Root == nil {
		return 0
	}
	return countNodes(d.Root)
}

func countNodes(n *Node) int {
	count := 1
	for _, c := range n.Children {
		count += countNodes(c)
	}
	return count
}

// Depth returns the maximum nesting depth of the document; a lone root has
// depth 1.
func (d *Document) Depth() int {
	if d == nil || d.Root == nil {
		return 0
	}
	return depth(d.Root)
}

func depth(n *Node) int {
	max := 0
	for _, c := range n.Children {
		if d := depth(c); d > max {
			max = d
		}
	}
	return max + 1
}

// Validate checks structural integrity per the document's invariants:
// a present root type, children forming a sequence (guaranteed once parsed
// into Node), no cycles, bounded depth, and a bounded total node count.
// It returns an *apperr.Error of kind InvalidOutput on any violation.
func (d *Document) Validate() error {
	if d == nil || d.Root == nil {
		return apperr.New(apperr.KindInvalidOutput, "wireframe has no root node")
	}
	if d.Root.Type == "" {
		return apperr.New(apperr.KindInvalidOutput, "root node missing type")
	}

	visited := make(map[*Node]bool)
	if err := detectCycle(d.Root, visited); err != nil {
		return err
	}

	if n := d.CountNodes(); n > MaxNodes {
		return apperr.New(apperr.KindInvalidOutput, fmt.Sprintf("wireframe has %d nodes, exceeds max of %d", n, MaxNodes))
	}
	if depth := d.Depth(); depth > MaxDepth {
		return apperr.New(apperr.KindInvalidOutput, fmt.Sprintf("wireframe depth %d exceeds max of %d", depth, MaxDepth))
	}

	return nil
}

func detectCycle(n *Node, visited map[*Node]bool) error {
	if visited[n] {
		return apperr.New(apperr.KindInvalidOutput, "wireframe contains a cycle")
	}
	visited[n] = true
	for _, c := range n.Children {
		if err := detectCycle(c, visited); err != nil {
			return err
		}
	}
	delete(visited, n)
	return nil
}
