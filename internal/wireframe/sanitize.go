package wireframe

import "strings"

// textNodeType is the case-insensitive node type whose string children are
// migrated into props.text by Sanitize.
const textNodeType = "text"

// Sanitize normalizes a freshly parsed document so downstream code can rely
// on a single canonical shape:
//   - a single-child-object Children value is already coerced to a
//     one-element slice during UnmarshalJSON; Sanitize only recurses into
//     Children and does not reshape them
//   - a Text node's string-valued "_rawText" prop is migrated into
//     props.text, unless props.text is already set
//
// Sanitize mutates the document in place and also returns it for chaining.
func (d *Document) Sanitize() *Document {
	if d == nil || d.Root == nil {
		return d
	}
	sanitizeNode(d.Root)
	return d
}

func sanitizeNode(n *Node) {
	if n == nil {
		return
	}

	if strings.EqualFold(n.Type, textNodeType) {
		migrateTextChild(n)
	}

	for _, c := range n.Children {
		sanitizeNode(c)
	}
}

// migrateTextChild moves a Text node's raw string content, if stashed under
// the non-standard props key "_rawText", into props.text. It does nothing
// when props.text is already set or "_rawText" is absent or not a string.
func migrateTextChild(n *Node) {
	if n.Props == nil {
		n.Props = make(map[string]any)
	}
	if _, hasText := n.Props["text"]; hasText {
		return
	}
	if raw, ok := n.Props["_rawText"]; ok {
		if s, ok := raw.(string); ok {
			n.Props["text"] = s
			delete(n.Props, "_rawText")
		}
	}
}
