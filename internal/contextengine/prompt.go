package contextengine

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sketchloom/sessionengine/internal/store"
	"github.com/sketchloom/sessionengine/internal/wireframe"
)

// BuildPrompt assembles the augmented prompt handed to the LLM Adapter. It
// always includes, in order: the edit instruction verbatim, a compact JSON
// projection of the current wireframe, a summary of the most recent context
// entries (at most the fixed context window), the resolved target
// identifiers, and an explicit no-diff/no-commentary instruction.
func BuildPrompt(editPrompt string, currentWireframe *wireframe.Document, recentContext []store.ContextEntry, resolvedTargets []string) string {
	var b strings.Builder

	b.WriteString("Edit instruction:\n")
	b.WriteString(editPrompt)
	b.WriteString("\n\n")

	b.WriteString("Current wireframe (JSON):\n")
	if currentWireframe != nil {
		if raw, err := json.Marshal(currentWireframe); err == nil {
			b.Write(raw)
		}
	}
	b.WriteString("\n\n")

	window := recentContext
	if len(window) > store.MaxContextEntries {
		window = window[len(window)-store.MaxContextEntries:]
	}
	b.WriteString("Recent edit history (oldest first):\n")
	if len(window) == 0 {
		b.WriteString("(none)\n")
	}
	for _, entry := range window {
		fmt.Fprintf(&b, "- prompt=%q edit_type=%s target_elements=%v\n", entry.Prompt, entry.EditType, entry.TargetElements)
	}
	b.WriteString("\n")

	b.WriteString("Resolved target elements: ")
	if len(resolvedTargets) == 0 {
		b.WriteString("(none)")
	} else {
		b.WriteString(strings.Join(resolvedTargets, ", "))
	}
	b.WriteString("\n\n")

	b.WriteString("Return a single structured wireframe document that replaces the current one in full. Do not return a diff, patch, or any commentary outside the document itself.")

	return b.String()
}
