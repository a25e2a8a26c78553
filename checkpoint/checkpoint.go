// Package checkpoint snapshots a project's working tree before a fix
// attempt and can roll it back if the fix is abandoned or fails
// validation.
package checkpoint

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// AtomicOp accumulates undo steps as a multi-step operation succeeds and
// runs them in reverse order on failure. A committed op's Rollback is a
// no-op. This mirrors wt/atomic.go's AtomicOp exactly; a Checkpoint
// exposes its op through AddUndo so other per-cycle side effects can be
// registered on the same undo stack, and a single Rollback call unwinds
// everything registered on it.
type AtomicOp struct {
	undoSteps []func(ctx context.Context) error
	committed bool
}

// NewAtomicOp creates an empty atomic operation.
func NewAtomicOp() *AtomicOp { return &AtomicOp{} }

// AddUndo registers a rollback step, run in reverse registration order.
func (op *AtomicOp) AddUndo(fn func(ctx context.Context) error) {
	op.undoSteps = append(op.undoSteps, fn)
}

// Commit marks the operation successful; Rollback becomes a no-op.
func (op *AtomicOp) Commit() { op.committed = true }

// Rollback runs all undo steps in reverse order, continuing past errors
// and returning the first one encountered.
func (op *AtomicOp) Rollback(ctx context.Context) error {
	if op.committed {
		return nil
	}
	var firstErr error
	for i := len(op.undoSteps) - 1; i >= 0; i-- {
		if err := op.undoSteps[i](ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Checkpoint is a recorded working-tree snapshot for one cycle.
type Checkpoint struct {
	ProjectDir string
	Cycle      int
	// stashed is true if the checkpoint stashed pre-existing dirty state
	// (clean trees get no snapshot at all; see Begin).
	stashed bool
	commit  bool
	op      *AtomicOp
}

// Manager begins and rolls back checkpoints for one project directory.
type Manager struct {
	git        GitRunner
	projectDir string
}

// New constructs a Manager rooted at projectDir.
func New(projectDir string, runner GitRunner) *Manager {
	if runner == nil {
		runner = DefaultGitRunner{}
	}
	return &Manager{git: runner, projectDir: projectDir}
}

// Begin snapshots the current working tree ahead of a fix attempt. If the
// tree is dirty, its state is stashed (with an untracked-files-included
// stash) and then re-applied, so the fixer still sees the changes and a
// Rollback can restore exactly what was there; a clean tree gets no
// snapshot at all since there is nothing to lose.
func (m *Manager) Begin(ctx context.Context, cycle int) (*Checkpoint, error) {
	op := NewAtomicOp()
	cp := &Checkpoint{ProjectDir: m.projectDir, Cycle: cycle, op: op}

	status, err := m.git.Run(ctx, []string{"status", "--porcelain"}, m.projectDir)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: status failed: %w", err)
	}

	if strings.TrimSpace(status.Stdout) == "" {
		slog.Info("checkpoint.begin", "project", m.projectDir, "cycle", cycle, "dirty", false)
		return cp, nil
	}

	label := fmt.Sprintf("ralph-review checkpoint cycle=%d", cycle)
	if _, err := m.git.Run(ctx, []string{"stash", "push", "--include-untracked", "-m", label}, m.projectDir); err != nil {
		return nil, fmt.Errorf("checkpoint: stash failed: %w", err)
	}
	if _, err := m.git.Run(ctx, []string{"stash", "apply"}, m.projectDir); err != nil {
		return nil, fmt.Errorf("checkpoint: stash apply failed: %w", err)
	}
	cp.stashed = true
	op.AddUndo(func(ctx context.Context) error {
		slog.Info("checkpoint.rollback.restore_stash", "project", m.projectDir, "cycle", cycle)
		// Discard whatever the fixer did and restore the pre-cycle state.
		if _, err := m.git.Run(ctx, []string{"reset", "--hard"}, m.projectDir); err != nil {
			return err
		}
		if _, err := m.git.Run(ctx, []string{"clean", "-fd"}, m.projectDir); err != nil {
			return err
		}
		if _, err := m.git.Run(ctx, []string{"stash", "pop"}, m.projectDir); err != nil {
			return err
		}
		return nil
	})

	slog.Info("checkpoint.begin", "project", m.projectDir, "cycle", cycle, "dirty", true)
	return cp, nil
}

// AddUndo exposes the checkpoint's undo stack so other per-cycle side
// effects (e.g. a scratch worktree created for the fixer) can be unwound
// by the same Rollback call.
func (cp *Checkpoint) AddUndo(fn func(ctx context.Context) error) {
	cp.op.AddUndo(fn)
}

// Commit marks the cycle successful; Rollback becomes a no-op.
func (cp *Checkpoint) Commit() { cp.op.Commit() }

// Rollback restores the working tree to its pre-cycle state. No-op if
// Commit was already called.
func (cp *Checkpoint) Rollback(ctx context.Context) error {
	return cp.op.Rollback(ctx)
}
