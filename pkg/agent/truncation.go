package agent

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultToolCharLimits is the per-tool default character budget applied
// before a tool result is appended to history.
var DefaultToolCharLimits = map[string]int{
	"read_file":   50_000,
	"shell":       30_000,
	"grep":        20_000,
	"glob":        20_000,
	"edit_file":   10_000,
	"apply_patch": 10_000,
	"write_file":  1_000,
}

// DefaultToolLineLimits is the per-tool line-count budget; tools absent
// from this map are not line-truncated.
var DefaultToolLineLimits = map[string]int{
	"shell": 256,
	"grep":  200,
	"glob":  500,
}

// DefaultToolModes selects the char-truncation strategy per tool; tools
// absent from this map default to "head_tail".
var DefaultToolModes = map[string]string{
	"read_file":   "head_tail",
	"shell":       "head_tail",
	"grep":        "tail",
	"glob":        "tail",
	"edit_file":   "tail",
	"apply_patch": "tail",
	"write_file":  "tail",
}

// TruncateOutput applies char-budget truncation to output. mode "tail"
// keeps the last maxChars characters and prefixes a warning naming how
// many leading characters were dropped; any other mode ("head_tail")
// keeps half the budget from the head and half from the tail, with a
// warning inserted in the middle.
func TruncateOutput(output string, maxChars int, mode string) string {
	if maxChars <= 0 || len(output) <= maxChars {
		return output
	}

	if mode == "tail" {
		removed := len(output) - maxChars
		return fmt.Sprintf(
			"[WARNING: Tool output was truncated. First %d characters were removed. "+
				"The full output is available in the event stream.]\n\n%s",
			removed, output[len(output)-maxChars:],
		)
	}

	headChars := maxChars / 2
	tailChars := maxChars - headChars
	removed := len(output) - maxChars
	return fmt.Sprintf(
		"%s\n\n[WARNING: Tool output was truncated. %d characters were removed from the middle. "+
			"The full output is available in the event stream. If you need to see specific parts, "+
			"re-run the tool with more targeted parameters.]\n\n%s",
		output[:headChars], removed, output[len(output)-tailChars:],
	)
}

// TruncateLines applies a line-count budget, keeping half the budget from
// the head and half from the tail with an "omitted" marker in between. If
// the input carried a "[WARNING:" line that truncation would otherwise
// drop, it is re-inserted at index 0.
func TruncateLines(output string, maxLines int) string {
	if maxLines <= 0 {
		return output
	}

	lines := strings.Split(output, "\n")
	if len(lines) <= maxLines {
		return output
	}

	headCount := maxLines / 2
	tailCount := maxLines - headCount
	omitted := len(lines) - headCount - tailCount

	kept := make([]string, 0, maxLines+1)
	kept = append(kept, lines[:headCount]...)
	kept = append(kept, "[... "+strconv.Itoa(omitted)+" lines omitted ...]")
	kept = append(kept, lines[len(lines)-tailCount:]...)

	hasWarning := false
	for _, l := range kept {
		if strings.HasPrefix(l, "[WARNING:") {
			hasWarning = true
			break
		}
	}
	if strings.Contains(output, "[WARNING:") && !hasWarning {
		for _, l := range lines {
			if strings.HasPrefix(l, "[WARNING:") {
				kept = append([]string{l}, kept...)
				break
			}
		}
	}
	return strings.Join(kept, "\n")
}

// TruncateToolOutput applies a tool's char-limit then its line-limit (if
// any), with per-call overrides merged over the package defaults.
func TruncateToolOutput(output, toolName string, charLimits, lineLimits map[string]int) string {
	maxChars, ok := charLimits[toolName]
	if !ok {
		maxChars, ok = DefaultToolCharLimits[toolName]
		if !ok {
			maxChars = 10_000
		}
	}
	mode, ok := DefaultToolModes[toolName]
	if !ok {
		mode = "head_tail"
	}

	result := TruncateOutput(output, maxChars, mode)

	maxLines, hasLineLimit := lineLimits[toolName]
	if !hasLineLimit {
		maxLines, hasLineLimit = DefaultToolLineLimits[toolName]
	}
	if hasLineLimit {
		result = TruncateLines(result, maxLines)
	}
	return result
}
