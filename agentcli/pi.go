package agentcli

import (
	"encoding/json"

	"github.com/kenryu42/ralph-review-sub002/types"
)

type piAdapter struct{}

func (piAdapter) Kind() types.AgentKind { return types.AgentPi }

func (piAdapter) Streaming() bool { return false }

func (piAdapter) BuildArgs(role types.Role, prompt string, opts types.ReviewOptions) []string {
	fullPrompt := BuildJSONPrompt(role, opts) + "\n\n" + prompt
	return []string{
		"--prompt", fullPrompt,
		"--json",
	}
}

type piResponse struct {
	Output string `json:"output"`
}

func (piAdapter) DecodeLine(full []byte) ([]Event, error) {
	var resp piResponse
	if err := json.Unmarshal(full, &resp); err != nil {
		return nil, err
	}
	return []Event{
		{Kind: EventTextDelta, Delta: resp.Output},
		{Kind: EventTurnCompleted, Success: true},
	}, nil
}

// ListModelsArgs returns the argv used by preflight's capability probe.
func ListModelsArgs() []string { return []string{"--list-models"} }
