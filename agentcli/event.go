// Package agentcli builds CLI argv/env for each supported agent kind and
// decodes that CLI's output stream into a normalized event.
package agentcli

import "github.com/kenryu42/ralph-review-sub002/types"

// EventKind discriminates the normalized events emitted by every
// adapter, regardless of the underlying CLI's own wire format.
type EventKind string

const (
	EventTextDelta     EventKind = "text_delta"
	EventReasoning     EventKind = "reasoning_delta"
	EventToolStart     EventKind = "tool_start"
	EventToolEnd       EventKind = "tool_end"
	EventTurnCompleted EventKind = "turn_completed"
	EventError         EventKind = "error"
)

// Event is a normalized, adapter-agnostic stream event.
type Event struct {
	Kind       EventKind
	Delta      string
	ToolName   string
	ToolInput  string
	ToolOutput string
	ExitCode   int
	Success    bool
	Err        error
}

// Adapter builds CLI arguments and decodes stream output for one agent
// kind.
type Adapter interface {
	Kind() types.AgentKind
	// BuildArgs returns the argv (excluding the binary itself) to invoke
	// the CLI for the given role and prompt.
	BuildArgs(role types.Role, prompt string, opts types.ReviewOptions) []string
	// Streaming reports whether DecodeLine should be called once per
	// stdout line (true) or once over the full captured stdout after the
	// process exits (false).
	Streaming() bool
	// DecodeLine decodes one unit of output (a line, if Streaming, or the
	// entire captured stdout otherwise) into zero or more normalized
	// events. Unrecognized shapes are skipped, not errored.
	DecodeLine(line []byte) ([]Event, error)
}

// ForKind returns the adapter for k, or (nil, false) if k is unknown.
func ForKind(k types.AgentKind) (Adapter, bool) {
	switch k {
	case types.AgentClaude:
		return claudeAdapter{}, true
	case types.AgentCodex:
		return codexAdapter{}, true
	case types.AgentCursor:
		return cursorAdapter{}, true
	case types.AgentGemini:
		return geminiAdapter{}, true
	case types.AgentOpencode:
		return opencodeAdapter{}, true
	case types.AgentPi:
		return piAdapter{}, true
	default:
		return nil, false
	}
}
