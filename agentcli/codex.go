package agentcli

import (
	"bufio"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/kenryu42/ralph-review-sub002/types"
)

type codexAdapter struct{}

func (codexAdapter) Kind() types.AgentKind { return types.AgentCodex }

func (codexAdapter) Streaming() bool { return true }

func (codexAdapter) BuildArgs(role types.Role, prompt string, opts types.ReviewOptions) []string {
	fullPrompt := BuildJSONPrompt(role, opts) + "\n\n" + prompt
	return []string{
		"exec",
		"--json",
		fullPrompt,
	}
}

// DecodeLine handles codex's JSON-RPC-style event stream: each
// line is either a top-level typed event or a {"method","params"}
// notification that itself carries a nested, type-discriminated message.
func (codexAdapter) DecodeLine(line []byte) ([]Event, error) {
	var base struct {
		Type   string          `json:"type"`
		Method string          `json:"method"`
		Params json.RawMessage `json:"params"`
	}
	if err := json.Unmarshal(line, &base); err != nil {
		return nil, err
	}

	if base.Method != "" {
		return decodeCodexNotification(base.Method, base.Params)
	}

	switch base.Type {
	case "agent_message_delta", "item.delta":
		var payload struct {
			Delta string `json:"delta"`
		}
		if err := json.Unmarshal(line, &payload); err != nil {
			return nil, err
		}
		return []Event{{Kind: EventTextDelta, Delta: payload.Delta}}, nil
	case "exec_command_begin":
		var payload struct {
			Command []string `json:"command"`
			CWD     string   `json:"cwd"`
		}
		if err := json.Unmarshal(line, &payload); err != nil {
			return nil, err
		}
		return []Event{{Kind: EventToolStart, ToolName: "exec", ToolInput: strings.Join(payload.Command, " ")}}, nil
	case "exec_command_end":
		var payload struct {
			Stdout   string `json:"stdout"`
			Stderr   string `json:"stderr"`
			ExitCode int    `json:"exit_code"`
		}
		if err := json.Unmarshal(line, &payload); err != nil {
			return nil, err
		}
		return []Event{{Kind: EventToolEnd, ToolName: "exec", ToolOutput: payload.Stdout, ExitCode: payload.ExitCode, Success: payload.ExitCode == 0}}, nil
	case "turn.completed", "turn_completed":
		var payload struct {
			Status string `json:"status"`
		}
		_ = json.Unmarshal(line, &payload)
		return []Event{{Kind: EventTurnCompleted, Success: payload.Status == "completed" || payload.Status == ""}}, nil
	case "error":
		var payload struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(line, &payload)
		return []Event{{Kind: EventError, Err: errString(payload.Message)}}, nil
	default:
		slog.Warn("agentcli/codex: skipping unknown event type", "type", base.Type)
		return nil, nil
	}
}

func decodeCodexNotification(method string, params json.RawMessage) ([]Event, error) {
	switch method {
	case "codex/event/agent_reasoning_delta":
		var msg struct {
			Delta string `json:"delta"`
		}
		if err := json.Unmarshal(params, &msg); err != nil {
			return nil, err
		}
		return []Event{{Kind: EventReasoning, Delta: msg.Delta}}, nil
	case "codex/event/error":
		var msg struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(params, &msg); err != nil {
			return nil, err
		}
		return []Event{{Kind: EventError, Err: errString(msg.Message)}}, nil
	default:
		slog.Warn("agentcli/codex: skipping unknown notification method", "method", method)
		return nil, nil
	}
}

// --- Session rollout fallback ---------------------------------------------
//
// Codex persists its own per-session transcript ("rollout file") to disk
// independent of what this engine captures from stdout.
// RolloutReviewOutput reads the latest "exited_review_mode.review_output"
// payload recorded in a session's rollout file. Nothing in this module
// calls it: the codex adapter does not record a thread ID, and the cycle
// engine parses the reviewer's verdict from the stream text only.
//
// rolloutLookback bounds how far back to search for a matching rollout
// file; see DESIGN.md for why 48h was chosen (a hypothesis, not a ported
// value — the teacher's retrieved tree never exercises this fallback).
const rolloutLookback = 48 * time.Hour

// RolloutReviewOutput scans ~/.codex/sessions for a rollout file whose
// thread ID matches threadID, modified within rolloutLookback, and
// returns the most recent "exited_review_mode" entry's review_output
// field. It returns ("", false) if no such entry is found.
func RolloutReviewOutput(threadID string) (string, bool) {
	home, err := os.UserHomeDir()
	if err != nil || threadID == "" {
		return "", false
	}
	dir := filepath.Join(home, ".codex", "sessions")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}

	cutoff := time.Now().Add(-rolloutLookback)
	var candidates []string
	for _, e := range entries {
		if e.IsDir() || !strings.Contains(e.Name(), threadID) {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().Before(cutoff) {
			continue
		}
		candidates = append(candidates, filepath.Join(dir, e.Name()))
	}
	if len(candidates) == 0 {
		return "", false
	}
	sort.Strings(candidates)
	path := candidates[len(candidates)-1]

	f, err := os.Open(path)
	if err != nil {
		return "", false
	}
	defer f.Close()

	var latest string
	found := false
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		var entry struct {
			Type         string `json:"type"`
			ReviewOutput string `json:"review_output"`
		}
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			continue
		}
		if entry.Type == "exited_review_mode" && entry.ReviewOutput != "" {
			latest = entry.ReviewOutput
			found = true
		}
	}
	return latest, found
}
