// Package types holds the data model shared by every package in this
// module: agent/role enums, review and fix verdicts, lockfile and session
// log shapes, and the error taxonomy raised by the agent runtime.
package types

import "fmt"

// AgentKind identifies one of the externally installed AI coding CLIs this
// engine can drive. The set is closed; callers should treat an unknown
// string as invalid rather than attempt to support it generically.
type AgentKind string

const (
	AgentClaude   AgentKind = "claude"
	AgentCodex    AgentKind = "codex"
	AgentCursor   AgentKind = "cursor"
	AgentGemini   AgentKind = "gemini"
	AgentOpencode AgentKind = "opencode"
	AgentPi       AgentKind = "pi"
)

// AllAgentKinds is the ordered list of known agent kinds.
var AllAgentKinds = []AgentKind{
	AgentClaude, AgentCodex, AgentCursor, AgentGemini, AgentOpencode, AgentPi,
}

// Valid reports whether k is one of the known agent kinds.
func (k AgentKind) Valid() bool {
	for _, known := range AllAgentKinds {
		if k == known {
			return true
		}
	}
	return false
}

// Binary returns the conventional CLI binary name for this agent kind.
func (k AgentKind) Binary() string {
	switch k {
	case AgentClaude:
		return "claude"
	case AgentCodex:
		return "codex"
	case AgentCursor:
		return "agent"
	case AgentGemini:
		return "gemini"
	case AgentOpencode:
		return "opencode"
	case AgentPi:
		return "pi"
	default:
		return string(k)
	}
}

// Role identifies which stage of the cycle an agent invocation serves.
type Role string

const (
	RoleReviewer      Role = "reviewer"
	RoleFixer         Role = "fixer"
	RoleCodeSimplify  Role = "code-simplifier"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleReviewer, RoleFixer, RoleCodeSimplify:
		return true
	default:
		return false
	}
}

// Severity classifies a single review finding.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityMajor    Severity = "major"
	SeverityMinor    Severity = "minor"
	SeverityNit      Severity = "nit"
)

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	switch s {
	case SeverityCritical, SeverityMajor, SeverityMinor, SeverityNit:
		return true
	default:
		return false
	}
}

// ReviewOptions configures a single reviewer invocation.
type ReviewOptions struct {
	Focus           []string `json:"focus,omitempty"`
	MaxFindings     int      `json:"max_findings,omitempty"`
	IncludeDiffOnly bool     `json:"include_diff_only,omitempty"`
}

// Finding is a single reviewer-reported issue.
type Finding struct {
	ID         string   `json:"id"`
	Severity   Severity `json:"severity"`
	File       string   `json:"file"`
	Line       int      `json:"line,omitempty"`
	Message    string   `json:"message"`
	Suggestion string   `json:"suggestion,omitempty"`
}

// ReviewSummary is the structured verdict returned by a reviewer agent.
type ReviewSummary struct {
	Findings []Finding `json:"findings"`
	Clean    bool      `json:"clean"`
	Notes    string    `json:"notes,omitempty"`
}

// FixEntry records one finding the fixer addressed.
type FixEntry struct {
	FindingID   string `json:"finding_id"`
	Description string `json:"description"`
	FilesTouched []string `json:"files_touched,omitempty"`
}

// SkippedEntry records one finding the fixer declined to address.
type SkippedEntry struct {
	FindingID string `json:"finding_id"`
	Reason    string `json:"reason"`
}

// FixSummary is the structured verdict returned by a fixer agent.
type FixSummary struct {
	Fixes   []FixEntry     `json:"fixes"`
	Skipped []SkippedEntry `json:"skipped,omitempty"`
	Notes   string         `json:"notes,omitempty"`
}

// IterationResult captures one agent invocation's outcome within a cycle.
type IterationResult struct {
	RunID      string    `json:"run_id"`
	Kind       AgentKind `json:"kind"`
	Role       Role      `json:"role"`
	Cycle      int       `json:"cycle"`
	StartedAt  string    `json:"started_at"`
	FinishedAt string    `json:"finished_at"`
	ExitCode   int       `json:"exit_code"`
	RawOutput  string    `json:"raw_output"`
	Review     *ReviewSummary `json:"review,omitempty"`
	Fix        *FixSummary    `json:"fix,omitempty"`
	Err        string    `json:"error,omitempty"`
}

// --- Error taxonomy -------------------------------------------------------

// CLINotFoundError indicates the agent's CLI binary is not on PATH.
type CLINotFoundError struct {
	Kind  AgentKind
	Path  string
	Cause error
}

func (e *CLINotFoundError) Error() string {
	return fmt.Sprintf("agent %s: CLI binary %q not found: %v", e.Kind, e.Path, e.Cause)
}

func (e *CLINotFoundError) Unwrap() error { return e.Cause }

// ProcessExitError indicates the agent process exited with a non-zero
// status without itself reporting a structured error.
type ProcessExitError struct {
	Kind     AgentKind
	ExitCode int
	Stderr   string
	Cause    error
}

func (e *ProcessExitError) Error() string {
	return fmt.Sprintf("agent %s: process exited %d: %s", e.Kind, e.ExitCode, e.Stderr)
}

func (e *ProcessExitError) Unwrap() error { return e.Cause }

// ParseError indicates a structured verdict could not be recovered from
// an agent's output.
type ParseError struct {
	Kind  AgentKind
	Role  Role
	Cause error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("agent %s (%s): failed to parse structured result: %v", e.Kind, e.Role, e.Cause)
}

func (e *ParseError) Unwrap() error { return e.Cause }

// TimeoutError indicates an agent invocation exceeded its deadline.
type TimeoutError struct {
	Kind    AgentKind
	Timeout string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("agent %s: timed out after %s", e.Kind, e.Timeout)
}

// LockContentionError indicates another session already holds the
// project's lockfile.
type LockContentionError struct {
	Path  string
	Owner string
}

func (e *LockContentionError) Error() string {
	return fmt.Sprintf("lockfile %s: held by %s", e.Path, e.Owner)
}
