package contextengine

import (
	"regexp"
	"strings"
)

// EditIntent is the deterministic classification of an edit prompt.
type EditIntent string

const (
	IntentModify EditIntent = "modify"
	IntentAdd    EditIntent = "add"
	IntentRemove EditIntent = "remove"
	IntentStyle  EditIntent = "style"
	IntentLayout EditIntent = "layout"
)

var removeKeywords = []string{"remove", "delete", "drop", "get rid of"}

var addKeywords = []string{"add", "insert", "create", "introduce", "include a new"}

var layoutKeywords = []string{
	"align", "center", "centre", "position", "move", "layout", "arrange",
	"reorder", "stack", "row", "column", "order", "wrap", "justify",
}

var styleKeywords = []string{
	"style", "color", "colour", "font", "bold", "italic", "underline",
	"background", "border", "shadow", "theme", "padding", "margin", "spacing",
	"gap", "size", "width", "height",
}

// colorKeywords are bare colour names; a prompt naming one is a style edit
// even without the word "color" itself ("make the button blue").
var colorKeywords = []string{
	"red", "blue", "green", "yellow", "orange", "purple", "pink", "black",
	"white", "gray", "grey", "teal", "cyan", "magenta", "indigo", "violet",
	"brown", "gold", "silver", "maroon", "navy", "lime", "beige",
}

// sizeValuePattern matches a numeric value paired with a CSS-style unit
// ("16px", "2rem", "1.5em"), the other bare-value form a style edit takes
// besides a named colour.
var sizeValuePattern = regexp.MustCompile(`\b\d+(\.\d+)?(px|rem|em|pt|%|vh|vw)\b`)

// Classify assigns an EditIntent to a free-form edit prompt using
// deterministic keyword tables. Checks run in a fixed precedence order so
// that a prompt matching more than one table always resolves the same way:
// remove, then add, then layout, then style, defaulting to modify.
func Classify(prompt string) EditIntent {
	p := strings.ToLower(prompt)

	switch {
	case containsAny(p, removeKeywords):
		return IntentRemove
	case containsAny(p, addKeywords):
		return IntentAdd
	case containsAny(p, layoutKeywords):
		return IntentLayout
	case containsAny(p, styleKeywords), containsAny(p, colorKeywords), sizeValuePattern.MatchString(p):
		return IntentStyle
	default:
		return IntentModify
	}
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
