package cycle

import (
	"fmt"
	"strings"

	"github.com/kenryu42/ralph-review-sub002/types"
)

// reviewPrompt is the base prompt sent to the reviewer each cycle.
func reviewPrompt(cycle int) string {
	return fmt.Sprintf("This is review cycle %d.", cycle)
}

// fixPrompt turns a reviewer's findings into instructions for the fixer.
func fixPrompt(findings []types.Finding) string {
	var sb strings.Builder
	sb.WriteString("Address the following findings:\n")
	for _, f := range findings {
		fmt.Fprintf(&sb, "- [%s] %s:%d %s\n", f.Severity, f.File, f.Line, f.Message)
		if f.Suggestion != "" {
			fmt.Fprintf(&sb, "  suggestion: %s\n", f.Suggestion)
		}
	}
	return sb.String()
}

// reminderPrompt is appended to the original prompt for the one-shot
// re-invocation sent after a structured result failed to parse, asking
// the agent to answer again in the required shape. The re-invocation is a
// new CLI process; it does not see the earlier answer.
func reminderPrompt(role types.Role) string {
	switch role {
	case types.RoleReviewer:
		return "Your previous response could not be parsed as JSON matching the required review schema. Re-emit your findings as exactly one JSON object in that shape, with no surrounding prose."
	case types.RoleFixer:
		return "Your previous response could not be parsed as JSON matching the required fix schema. Re-emit your summary as exactly one JSON object in that shape, with no surrounding prose."
	default:
		return "Your previous response could not be parsed. Re-emit it as exactly one JSON object matching the required schema."
	}
}

// codeSimplifyPrompt is sent ahead of the review when a code-simplifier
// role is configured.
func codeSimplifyPrompt() string {
	return "Simplify the code touched by uncommitted changes, preserving behavior."
}
