package agentcli

import (
	"encoding/json"
	"log/slog"

	"github.com/kenryu42/ralph-review-sub002/types"
)

type claudeAdapter struct{}

func (claudeAdapter) Kind() types.AgentKind { return types.AgentClaude }

func (claudeAdapter) Streaming() bool { return true }

func (claudeAdapter) BuildArgs(role types.Role, prompt string, opts types.ReviewOptions) []string {
	fullPrompt := BuildJSONPrompt(role, opts) + "\n\n" + prompt
	return []string{
		"-p", fullPrompt,
		"--output-format", "stream-json",
		"--verbose",
	}
}

// streamEventEnvelope mirrors Claude Code's stream-json wire format: each
// line carries a type discriminant and an inner, type-specific payload.
type streamEventEnvelope struct {
	Type  string          `json:"type"`
	Event json.RawMessage `json:"event"`
}

type contentBlockDeltaEnvelope struct {
	Type  string          `json:"type"`
	Delta json.RawMessage `json:"delta"`
}

type textDeltaPayload struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type messageStopEnvelope struct {
	Type string `json:"type"`
}

func (claudeAdapter) DecodeLine(line []byte) ([]Event, error) {
	var base struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(line, &base); err != nil {
		return nil, err
	}

	switch base.Type {
	case "stream_event":
		var env streamEventEnvelope
		if err := json.Unmarshal(line, &env); err != nil {
			return nil, err
		}
		return decodeClaudeStreamEvent(env.Event)
	case "result":
		return []Event{{Kind: EventTurnCompleted, Success: true}}, nil
	case "error":
		var payload struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(line, &payload)
		return []Event{{Kind: EventError, Err: errString(payload.Message)}}, nil
	default:
		slog.Warn("agentcli/claude: skipping unknown top-level event type", "type", base.Type)
		return nil, nil
	}
}

func decodeClaudeStreamEvent(raw json.RawMessage) ([]Event, error) {
	var base struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &base); err != nil {
		return nil, err
	}

	switch base.Type {
	case "content_block_delta":
		var env contentBlockDeltaEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, err
		}
		var deltaBase struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(env.Delta, &deltaBase); err != nil {
			return nil, err
		}
		switch deltaBase.Type {
		case "text_delta":
			var d textDeltaPayload
			if err := json.Unmarshal(env.Delta, &d); err != nil {
				return nil, err
			}
			return []Event{{Kind: EventTextDelta, Delta: d.Text}}, nil
		case "thinking_delta":
			var d struct {
				Thinking string `json:"thinking"`
			}
			if err := json.Unmarshal(env.Delta, &d); err != nil {
				return nil, err
			}
			return []Event{{Kind: EventReasoning, Delta: d.Thinking}}, nil
		default:
			slog.Warn("agentcli/claude: skipping unknown delta type", "type", deltaBase.Type)
			return nil, nil
		}
	case "message_stop":
		return []Event{{Kind: EventTurnCompleted, Success: true}}, nil
	default:
		slog.Warn("agentcli/claude: skipping unknown stream event type", "type", base.Type)
		return nil, nil
	}
}

func errString(s string) error {
	if s == "" {
		return nil
	}
	return &claudeStreamError{msg: s}
}

type claudeStreamError struct{ msg string }

func (e *claudeStreamError) Error() string { return e.msg }
