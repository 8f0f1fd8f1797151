package orchestrator

import (
	"fmt"
	"strings"

	"github.com/ascendhq/ascend/internal/action"
)

// toolResultPrefix tags synthetic feedback turns so they are never mistaken
// for user input and never routed through the classifier.
const toolResultPrefix = "[TOOL_RESULT]"

// renderToolResults produces one status line per executed action, in
// execution order, followed by any data a read-only action produced.
func renderToolResults(actions []*action.ChatAction) string {
	var b strings.Builder
	for _, a := range actions {
		if a.Result == nil {
			continue
		}
		if a.Result.Success {
			fmt.Fprintf(&b, "%s %s: SUCCESS\n", toolResultPrefix, a.Type)
		} else {
			fmt.Fprintf(&b, "%s %s: FAILED - %s\n", toolResultPrefix, a.Type, a.Result.Error)
		}
		if a.Result.Success && a.Result.Message != "" {
			b.WriteString(a.Result.Message)
			b.WriteString("\n")
		}
	}
	return strings.TrimSpace(b.String())
}

func isToolResult(content string) bool {
	return strings.HasPrefix(strings.TrimSpace(content), toolResultPrefix)
}
