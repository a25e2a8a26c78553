// Package preflight probes the environment before a run starts: is each
// configured agent CLI installed, and is the project's config and
// working tree in a state the cycle engine can operate on.
package preflight

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/kenryu42/ralph-review-sub002/agentcli"
	"github.com/kenryu42/ralph-review-sub002/config"
	"github.com/kenryu42/ralph-review-sub002/types"
)

// probeTimeout bounds both the --version probe and the capability probe.
// This module's probes cover six CLIs (heavier installs than the
// teacher's two) and, for opencode/pi, a model-listing query rather than
// a bare --version, so it keeps the spec's longer 8s budget rather than
// the teacher's 5s.
const probeTimeout = 8 * time.Second

// AgentStatus describes one AgentKind's installation/capability check.
type AgentStatus struct {
	Kind      types.AgentKind
	Installed bool
	Version   string
	Models    []string
	Error     string
}

// Report is the full result of a preflight run.
type Report struct {
	Agents        []AgentStatus
	ConfigOK      bool
	ConfigError   string
	WorkingTreeOK bool
	WorkingTreeError string
}

// Problems returns every reason this report should block a run. An empty
// slice means the project is ready.
func (r *Report) Problems(initMode bool) []string {
	var problems []string
	for _, a := range r.Agents {
		if !a.Installed {
			problems = append(problems, fmt.Sprintf("agent %s: %s", a.Kind, a.Error))
		}
	}
	if !r.ConfigOK && !initMode {
		problems = append(problems, "config: "+r.ConfigError)
	}
	if !r.WorkingTreeOK {
		problems = append(problems, "working tree: "+r.WorkingTreeError)
	}
	return problems
}

// GitRunner executes git commands; injected for testability.
type GitRunner interface {
	Run(ctx context.Context, args []string, dir string) ([]byte, error)
}

type execGitRunner struct{}

func (execGitRunner) Run(ctx context.Context, args []string, dir string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	return cmd.Output()
}

// Run executes every probe concurrently and joins on completion,
// mirroring multiagent/agent/provider_check.go's
// NewProviderAvailability.
func Run(ctx context.Context, projectDir string, git GitRunner) (*Report, error) {
	if git == nil {
		git = execGitRunner{}
	}

	cfg, cfgErr := config.Load(projectDir)
	report := &Report{}
	if cfgErr != nil {
		report.ConfigError = cfgErr.Error()
	} else if _, statErr := os.Stat(filepath.Join(projectDir, ".rr.yaml")); os.IsNotExist(statErr) {
		report.ConfigError = "no .rr.yaml found (run `rr init`)"
	} else if valErr := cfg.Validate(); valErr != nil {
		report.ConfigError = valErr.Error()
	} else {
		report.ConfigOK = true
	}

	kinds := map[types.AgentKind]struct{}{}
	if cfg != nil {
		for _, kind := range cfg.Roles() {
			kinds[kind] = struct{}{}
		}
	}
	if len(kinds) == 0 {
		for _, k := range types.AllAgentKinds {
			kinds[k] = struct{}{}
		}
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	for kind := range kinds {
		wg.Add(1)
		go func(k types.AgentKind) {
			defer wg.Done()
			status := checkAgent(ctx, k)
			mu.Lock()
			report.Agents = append(report.Agents, status)
			mu.Unlock()
		}(kind)
	}
	wg.Wait()

	out, err := git.Run(ctx, []string{"rev-parse", "--is-inside-work-tree"}, projectDir)
	if err != nil || strings.TrimSpace(string(out)) != "true" {
		report.WorkingTreeError = "not a git working tree"
	} else {
		report.WorkingTreeOK = true
	}

	return report, nil
}

// checkAgent probes one agent kind's CLI: is the binary on PATH, what
// version does it report, and (for kinds that support it) what models
// does it list.
func checkAgent(ctx context.Context, kind types.AgentKind) AgentStatus {
	binary := kind.Binary()
	path, err := exec.LookPath(binary)
	if err != nil {
		return AgentStatus{Kind: kind, Error: "not found in PATH"}
	}

	status := AgentStatus{Kind: kind, Installed: true}
	status.Version = strings.SplitN(runProbe(ctx, path, []string{"--version"}), "\n", 2)[0]

	switch kind {
	case types.AgentOpencode:
		out := runProbe(ctx, path, agentcli.ListModelsArgs())
		status.Models = splitLines(out)
	case types.AgentPi:
		out := runProbe(ctx, path, agentcli.ListModelsArgs())
		status.Models = splitLines(out)
	}

	return status
}

// runProbe runs binaryPath with args under probeTimeout, discarding
// stderr (agent CLIs routinely emit Node.js deprecation warnings there),
// and returns the trimmed stdout. Returns "" on any failure, matching the
// teacher's non-fatal getVersion.
func runProbe(ctx context.Context, binaryPath string, args []string) string {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	cmd := exec.CommandContext(probeCtx, binaryPath, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return ""
	}
	return strings.TrimSpace(out.String())
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
