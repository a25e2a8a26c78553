package agentcli

import (
	"encoding/json"

	"github.com/kenryu42/ralph-review-sub002/types"
)

type geminiAdapter struct{}

func (geminiAdapter) Kind() types.AgentKind { return types.AgentGemini }

// Streaming is false: gemini's CLI emits one JSON object on exit rather
// than NDJSON, unlike the teacher's stub (multiagent/agent/gemini_provider.go)
// which never got far enough to decide this.
func (geminiAdapter) Streaming() bool { return false }

func (geminiAdapter) BuildArgs(role types.Role, prompt string, opts types.ReviewOptions) []string {
	fullPrompt := BuildJSONPrompt(role, opts) + "\n\n" + prompt
	return []string{
		"-p", fullPrompt,
		"--output-format", "json",
	}
}

type geminiResponse struct {
	Response string `json:"response"`
	Stats    struct {
		Success bool `json:"success"`
	} `json:"stats"`
}

func (geminiAdapter) DecodeLine(full []byte) ([]Event, error) {
	var resp geminiResponse
	if err := json.Unmarshal(full, &resp); err != nil {
		return nil, err
	}
	return []Event{
		{Kind: EventTextDelta, Delta: resp.Response},
		{Kind: EventTurnCompleted, Success: resp.Stats.Success || resp.Response != ""},
	}, nil
}
