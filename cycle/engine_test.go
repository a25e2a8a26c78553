package cycle

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kenryu42/ralph-review-sub002/checkpoint"
	"github.com/kenryu42/ralph-review-sub002/runtime"
)

// scriptLauncher runs one fixed shell script for every invocation; it
// is enough for scenarios where reviewer and fixer never both fire.
type scriptLauncher struct{ script string }

func (l scriptLauncher) Command(ctx context.Context, _ string, _ []string, env []string, dir string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", l.script)
	cmd.Env = env
	cmd.Dir = dir
	return cmd
}

// roleAwareLauncher picks between a reviewer and a fixer script by
// sniffing the fixer's distinctive goal text out of the built prompt
// argument, since Command is not handed the Role directly.
type roleAwareLauncher struct{ reviewScript, fixScript string }

func (l roleAwareLauncher) Command(ctx context.Context, _ string, args []string, env []string, dir string) *exec.Cmd {
	script := l.reviewScript
	for _, a := range args {
		if strings.Contains(a, "Address the reported findings") {
			script = l.fixScript
			break
		}
	}
	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", script)
	cmd.Env = env
	cmd.Dir = dir
	return cmd
}

type fakeGitRunner struct{ statuses map[string]string }

func (f *fakeGitRunner) Run(_ context.Context, args []string, dir string) (*checkpoint.CmdResult, error) {
	if len(args) > 0 && args[0] == "status" {
		return &checkpoint.CmdResult{Stdout: f.statuses[dir]}, nil
	}
	return &checkpoint.CmdResult{}, nil
}

func geminiScriptFor(t *testing.T, payload string) string {
	t.Helper()
	env := map[string]interface{}{"response": payload, "stats": map[string]bool{"success": true}}
	data, err := json.Marshal(env)
	require.NoError(t, err)
	return "cat <<'EOF'\n" + string(data) + "\nEOF\n"
}

func writeConfig(t *testing.T, dir string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".rr.yaml"), []byte("reviewer: gemini\nfixer: gemini\nmax_cycles: 2\n"), 0o644))
}

func TestEngine_Run_CleanReviewFinishesImmediately(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeConfig(t, dir)

	script := geminiScriptFor(t, `{"findings":[],"clean":true}`)
	launcher := scriptLauncher{script: script}

	eng, err := New(Config{
		ProjectDir:  dir,
		GitRunner:   &fakeGitRunner{statuses: map[string]string{dir: ""}},
		RuntimeOpts: runtime.Options{Launcher: launcher},
	})
	require.NoError(t, err)

	summary, err := eng.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, summary.Done)
	assert.False(t, summary.Aborted)
	assert.Equal(t, 1, summary.Cycles)
}

func TestEngine_Run_ExhaustsCycleBudget(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeConfig(t, dir)

	// Every review comes back dirty and every fix succeeds, so the loop
	// should run to MaxCycles and abort with "cycle budget exhausted"
	// rather than ever reaching a clean review.
	reviewScript := geminiScriptFor(t, `{"findings":[{"id":"f1","severity":"minor","file":"a.go","message":"nit"}],"clean":false}`)
	fixScript := geminiScriptFor(t, `{"fixes":[{"finding_id":"f1","description":"fixed it"}]}`)
	launcher := roleAwareLauncher{reviewScript: reviewScript, fixScript: fixScript}

	eng, err := New(Config{
		ProjectDir:  dir,
		GitRunner:   &fakeGitRunner{statuses: map[string]string{dir: ""}},
		RuntimeOpts: runtime.Options{Launcher: launcher},
	})
	require.NoError(t, err)

	summary, err := eng.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, summary.Aborted)
	assert.Contains(t, summary.AbortReason, "cycle budget exhausted")
	assert.Equal(t, 2, summary.Cycles)
}

func TestEngine_Run_ReleasesLockfileOnExit(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeConfig(t, dir)
	script := geminiScriptFor(t, `{"findings":[],"clean":true}`)

	eng, err := New(Config{
		ProjectDir:  dir,
		GitRunner:   &fakeGitRunner{statuses: map[string]string{dir: ""}},
		RuntimeOpts: runtime.Options{Launcher: scriptLauncher{script: script}},
	})
	require.NoError(t, err)

	_, err = eng.Run(context.Background())
	require.NoError(t, err)

	_, statErr := os.Stat(eng.lockMgr.Path)
	assert.True(t, os.IsNotExist(statErr), "lockfile should be removed after run")
}
