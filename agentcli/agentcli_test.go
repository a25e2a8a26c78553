package agentcli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kenryu42/ralph-review-sub002/types"
)

func TestForKind_AllKnownKinds(t *testing.T) {
	t.Parallel()
	for _, k := range types.AllAgentKinds {
		adapter, ok := ForKind(k)
		require.True(t, ok, "kind %s should resolve", k)
		assert.Equal(t, k, adapter.Kind())
	}
}

func TestForKind_Unknown(t *testing.T) {
	t.Parallel()
	_, ok := ForKind(types.AgentKind("nope"))
	assert.False(t, ok)
}

func TestClaudeAdapter_DecodesTextDelta(t *testing.T) {
	t.Parallel()
	a := claudeAdapter{}
	line := []byte(`{"type":"stream_event","event":{"type":"content_block_delta","delta":{"type":"text_delta","text":"hello"}}}`)
	events, err := a.DecodeLine(line)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, EventTextDelta, events[0].Kind)
	assert.Equal(t, "hello", events[0].Delta)
}

func TestClaudeAdapter_SkipsUnknownType(t *testing.T) {
	t.Parallel()
	a := claudeAdapter{}
	events, err := a.DecodeLine([]byte(`{"type":"something_new"}`))
	require.NoError(t, err)
	assert.Nil(t, events)
}

func TestCursorAdapter_DecodesToolStart(t *testing.T) {
	t.Parallel()
	a := cursorAdapter{}
	events, err := a.DecodeLine([]byte(`{"type":"tool_call_start","name":"grep","input":"foo"}`))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, EventToolStart, events[0].Kind)
	assert.Equal(t, "grep", events[0].ToolName)
}

func TestCodexAdapter_DecodesExecCommand(t *testing.T) {
	t.Parallel()
	a := codexAdapter{}
	events, err := a.DecodeLine([]byte(`{"type":"exec_command_begin","command":["go","test"],"cwd":"/tmp"}`))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, EventToolStart, events[0].Kind)
	assert.Equal(t, "go test", events[0].ToolInput)
}

func TestCodexAdapter_DecodesNotification(t *testing.T) {
	t.Parallel()
	a := codexAdapter{}
	events, err := a.DecodeLine([]byte(`{"method":"codex/event/agent_reasoning_delta","params":{"delta":"thinking..."}}`))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, EventReasoning, events[0].Kind)
	assert.Equal(t, "thinking...", events[0].Delta)
}

func TestGeminiAdapter_NonStreaming(t *testing.T) {
	t.Parallel()
	a := geminiAdapter{}
	assert.False(t, a.Streaming())
	events, err := a.DecodeLine([]byte(`{"response":"done","stats":{"success":true}}`))
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, EventTextDelta, events[0].Kind)
	assert.Equal(t, EventTurnCompleted, events[1].Kind)
	assert.True(t, events[1].Success)
}

func TestRolloutReviewOutput_EmptyThreadID(t *testing.T) {
	t.Parallel()
	_, found := RolloutReviewOutput("")
	assert.False(t, found)
}

func TestBuildJSONPrompt_Reviewer(t *testing.T) {
	t.Parallel()
	prompt := BuildJSONPrompt(types.RoleReviewer, types.ReviewOptions{MaxFindings: 5})
	assert.Contains(t, prompt, "at most 5 findings")
	assert.Contains(t, prompt, `"findings"`)
}
