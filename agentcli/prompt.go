package agentcli

import (
	"fmt"
	"strings"

	"github.com/kenryu42/ralph-review-sub002/types"
)

// buildGoalText describes what the agent is being asked to do, independent
// of output format.
func buildGoalText(role types.Role, opts types.ReviewOptions) string {
	switch role {
	case types.RoleReviewer:
		var sb strings.Builder
		sb.WriteString("Review the working tree for correctness, security, and maintainability issues.")
		if len(opts.Focus) > 0 {
			fmt.Fprintf(&sb, " Focus areas: %s.", strings.Join(opts.Focus, ", "))
		}
		if opts.IncludeDiffOnly {
			sb.WriteString(" Limit review to the current diff against the base branch.")
		}
		if opts.MaxFindings > 0 {
			fmt.Fprintf(&sb, " Report at most %d findings, most severe first.", opts.MaxFindings)
		}
		return sb.String()
	case types.RoleFixer:
		return "Address the reported findings with minimal, targeted changes. Skip findings that cannot be safely fixed and explain why."
	case types.RoleCodeSimplify:
		return "Simplify the code touched by the current changeset without altering behavior."
	default:
		return ""
	}
}

// BuildJSONPrompt returns the full prompt text, including the goal and a
// strict instruction to respond with exactly one JSON object matching the
// role's schema.
func BuildJSONPrompt(role types.Role, opts types.ReviewOptions) string {
	goal := buildGoalText(role, opts)
	var schemaDesc string
	switch role {
	case types.RoleReviewer:
		schemaDesc = `{"findings":[{"id":string,"severity":"critical"|"major"|"minor"|"nit","file":string,"line":int,"message":string,"suggestion":string}],"clean":bool,"notes":string}`
	case types.RoleFixer, types.RoleCodeSimplify:
		schemaDesc = `{"fixes":[{"finding_id":string,"description":string,"files_touched":[string]}],"skipped":[{"finding_id":string,"reason":string}],"notes":string}`
	}
	return fmt.Sprintf(
		"%s\n\nRespond with exactly one JSON object and nothing else, matching this shape:\n%s",
		goal, schemaDesc,
	)
}
