package agentcli

import (
	"encoding/json"

	"github.com/kenryu42/ralph-review-sub002/types"
)

type opencodeAdapter struct{}

func (opencodeAdapter) Kind() types.AgentKind { return types.AgentOpencode }

func (opencodeAdapter) Streaming() bool { return false }

func (opencodeAdapter) BuildArgs(role types.Role, prompt string, opts types.ReviewOptions) []string {
	fullPrompt := BuildJSONPrompt(role, opts) + "\n\n" + prompt
	return []string{
		"run",
		fullPrompt,
		"--format", "json",
	}
}

type opencodeResponse struct {
	Result string `json:"result"`
}

func (opencodeAdapter) DecodeLine(full []byte) ([]Event, error) {
	var resp opencodeResponse
	if err := json.Unmarshal(full, &resp); err != nil {
		return nil, err
	}
	return []Event{
		{Kind: EventTextDelta, Delta: resp.Result},
		{Kind: EventTurnCompleted, Success: true},
	}, nil
}

// ListModelsArgs returns the argv used by preflight's capability probe.
func ListModelsArgs() []string { return []string{"models", "--json"} }
