package agentcli

import (
	"encoding/json"
	"log/slog"

	"github.com/kenryu42/ralph-review-sub002/types"
)

type cursorAdapter struct{}

func (cursorAdapter) Kind() types.AgentKind { return types.AgentCursor }

func (cursorAdapter) Streaming() bool { return true }

func (cursorAdapter) BuildArgs(role types.Role, prompt string, opts types.ReviewOptions) []string {
	fullPrompt := BuildJSONPrompt(role, opts) + "\n\n" + prompt
	return []string{
		"chat",
		"-p", fullPrompt,
		"--output-format", "stream-json",
		"--force",
	}
}

// cursor's agent CLI emits its own NDJSON event stream, distinct from
// Claude Code's stream-json envelope: each line is a flat {"type": ...}
// object rather than a nested "stream_event" wrapper.
func (cursorAdapter) DecodeLine(line []byte) ([]Event, error) {
	var base struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(line, &base); err != nil {
		return nil, err
	}

	switch base.Type {
	case "assistant_delta", "text":
		var payload struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(line, &payload); err != nil {
			return nil, err
		}
		return []Event{{Kind: EventTextDelta, Delta: payload.Text}}, nil
	case "tool_call_start":
		var payload struct {
			Name  string `json:"name"`
			Input string `json:"input"`
		}
		if err := json.Unmarshal(line, &payload); err != nil {
			return nil, err
		}
		return []Event{{Kind: EventToolStart, ToolName: payload.Name, ToolInput: payload.Input}}, nil
	case "tool_call_end":
		var payload struct {
			Name   string `json:"name"`
			Output string `json:"output"`
		}
		if err := json.Unmarshal(line, &payload); err != nil {
			return nil, err
		}
		return []Event{{Kind: EventToolEnd, ToolName: payload.Name, ToolOutput: payload.Output}}, nil
	case "result", "done":
		var payload struct {
			Success bool `json:"success"`
		}
		_ = json.Unmarshal(line, &payload)
		return []Event{{Kind: EventTurnCompleted, Success: payload.Success}}, nil
	case "error":
		var payload struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(line, &payload)
		return []Event{{Kind: EventError, Err: errString(payload.Message)}}, nil
	default:
		slog.Warn("agentcli/cursor: skipping unknown event type", "type", base.Type)
		return nil, nil
	}
}
