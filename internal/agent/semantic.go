package agent

import (
	"strings"

	"github.com/agenticqa/runner/internal/core"
)

// Words stripped from instructions when extracting the target text.
var (
	actionVerbs = map[string]struct{}{
		"click": {}, "fill": {}, "enter": {}, "type": {}, "select": {}, "choose": {},
	}
	articles = map[string]struct{}{
		"the": {}, "a": {}, "an": {},
	}
)

// ExtractTargetText strips action verbs and articles from an instruction and
// trims surrounding quotes and whitespace, leaving the element description.
// "Click the 'Login' button" becomes "Login button".
func ExtractTargetText(instruction string) string {
	words := strings.Fields(strings.TrimSpace(instruction))
	kept := make([]string, 0, len(words))
	for _, w := range words {
		lower := strings.ToLower(w)
		if _, verb := actionVerbs[lower]; verb {
			continue
		}
		if _, art := articles[lower]; art {
			continue
		}
		kept = append(kept, w)
	}
	out := strings.TrimSpace(strings.Join(kept, " "))
	out = strings.Trim(out, `"'`)
	return strings.TrimSpace(out)
}

// ClassifyTarget maps an instruction to a locator kind by keyword heuristic:
// "button" -> role=button, "input"/"field" -> label, "link" -> role=link,
// anything else -> plain text match. The mapping is not exhaustive; a wrong
// classification just fails and falls through to the next strategy.
func ClassifyTarget(instruction, text string) core.Target {
	lower := strings.ToLower(instruction)
	switch {
	case strings.Contains(lower, "button"):
		return core.Target{Kind: core.TargetRole, Role: "button", Text: text}
	case strings.Contains(lower, "input"), strings.Contains(lower, "field"):
		return core.Target{Kind: core.TargetLabel, Text: text}
	case strings.Contains(lower, "link"):
		return core.Target{Kind: core.TargetRole, Role: "link", Text: text}
	default:
		return core.Target{Kind: core.TargetText, Text: text}
	}
}
