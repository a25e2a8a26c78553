// Package config loads the small, optional .rr.yaml settings file this
// engine consults: which AgentKind serves each role, the per-run cycle
// budget, and checkpoint policy. It is deliberately thin — general
// configuration discovery and persistence are out of scope for this
// module; this package exists only to give preflight and the cycle
// engine something concrete to validate and read.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/kenryu42/ralph-review-sub002/types"
)

// Config is the on-disk settings shape, loaded from .rr.yaml in a
// project's root.
type Config struct {
	Reviewer       types.AgentKind `yaml:"reviewer"`
	Fixer          types.AgentKind `yaml:"fixer"`
	CodeSimplifier types.AgentKind `yaml:"code_simplifier,omitempty"`
	MaxCycles      int             `yaml:"max_cycles"`
	// CheckpointEachCycle is loaded and written by `rr init` but not
	// consulted: the cycle engine checkpoints before every fix regardless.
	CheckpointEachCycle bool       `yaml:"checkpoint_each_cycle"`
}

// DefaultConfig returns the configuration used when no .rr.yaml is
// present, matching wt/config.go's LoadRepoConfig default-on-absent
// behavior.
func DefaultConfig() *Config {
	return &Config{
		Reviewer:  types.AgentClaude,
		Fixer:     types.AgentClaude,
		MaxCycles: 10,
		CheckpointEachCycle: true,
	}
}

// Load reads .rr.yaml from projectDir. A missing file returns
// DefaultConfig(), nil (not an error) -- preflight treats that
// differently in run vs. init mode (see preflight's Report.Problems
// initMode flag). A present-but-unparseable file is always an error.
func Load(projectDir string) (*Config, error) {
	path := filepath.Join(projectDir, ".rr.yaml")

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks structural validity: role agent kinds must be known,
// and the cycle budget must be positive.
func (c *Config) Validate() error {
	if !c.Reviewer.Valid() {
		return fmt.Errorf("config: reviewer agent kind %q is not recognized", c.Reviewer)
	}
	if !c.Fixer.Valid() {
		return fmt.Errorf("config: fixer agent kind %q is not recognized", c.Fixer)
	}
	if c.CodeSimplifier != "" && !c.CodeSimplifier.Valid() {
		return fmt.Errorf("config: code_simplifier agent kind %q is not recognized", c.CodeSimplifier)
	}
	if c.MaxCycles <= 0 {
		return fmt.Errorf("config: max_cycles must be positive, got %d", c.MaxCycles)
	}
	return nil
}

// Roles returns the AgentKind configured for each role (the
// code-simplifier role only when set), used by preflight to know which
// CLIs to probe. Two roles may map to the same kind.
func (c *Config) Roles() map[types.Role]types.AgentKind {
	roles := map[types.Role]types.AgentKind{
		types.RoleReviewer: c.Reviewer,
		types.RoleFixer:    c.Fixer,
	}
	if c.CodeSimplifier != "" {
		roles[types.RoleCodeSimplify] = c.CodeSimplifier
	}
	return roles
}
