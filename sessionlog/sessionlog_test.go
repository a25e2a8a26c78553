package sessionlog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kenryu42/ralph-review-sub002/types"
)

func TestAppend_WritesLogAndSummary(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	log, err := Open(dir, "/proj", "run-a/b")
	require.NoError(t, err)
	defer log.Close()

	err = log.Append(types.LogEvent{
		Type:  types.LogEventIteration,
		RunID: "run-a/b",
		Iteration: &types.IterationEvent{
			Result: types.IterationResult{
				Cycle: 1,
				Role:  types.RoleReviewer,
				Review: &types.ReviewSummary{
					Findings: []types.Finding{{ID: "f1"}},
				},
			},
		},
	})
	require.NoError(t, err)

	summary := log.Summary()
	assert.Equal(t, 1, summary.Cycles)
	assert.Equal(t, 1, summary.TotalFindings)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var sawJSONL, sawSummary bool
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".jsonl" {
			sawJSONL = true
		}
		if filepath.Ext(e.Name()) == ".json" {
			sawSummary = true
		}
	}
	assert.True(t, sawJSONL)
	assert.True(t, sawSummary)
}

func TestAppend_SessionEndMarksDoneOrAborted(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	log, err := Open(dir, "/proj", "run-b")
	require.NoError(t, err)
	defer log.Close()

	require.NoError(t, log.Append(types.LogEvent{
		Type:       types.LogEventSessionEnd,
		SessionEnd: &types.SessionEndEvent{Reason: "abort: lock contention", Cycles: 2},
	}))

	summary := log.Summary()
	assert.True(t, summary.Done)
	assert.True(t, summary.Aborted)
	assert.Equal(t, "abort: lock contention", summary.AbortReason)
}

func TestLoadSummary_RoundTrips(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	log, err := Open(dir, "/proj", "run-c")
	require.NoError(t, err)
	require.NoError(t, log.Append(types.LogEvent{Type: types.LogEventSystem, System: &types.SystemEvent{Message: "preflight ok"}}))
	require.NoError(t, log.Close())

	loaded, err := LoadSummary(dir, "run-c")
	require.NoError(t, err)
	assert.Equal(t, "preflight ok", loaded.LastState)
}

func TestSanitizeName(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "a_b_c_d", sanitizeName("a/b c:d"))
}
