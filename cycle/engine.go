// Package cycle drives the review -> checkpoint -> fix pseudostate
// machine: IDLE -> CODE_SIMPLIFY(optional) -> REVIEW -> CHECKPOINT -> FIX
// -> FIX_VALIDATED -> (DONE | ABORT | RETRY_WITH_REMINDER), looping until
// the reviewer reports a clean tree, the cycle budget is exhausted, or an
// unrecoverable error occurs.
package cycle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kenryu42/ralph-review-sub002/checkpoint"
	"github.com/kenryu42/ralph-review-sub002/config"
	"github.com/kenryu42/ralph-review-sub002/lockfile"
	"github.com/kenryu42/ralph-review-sub002/resultparser"
	"github.com/kenryu42/ralph-review-sub002/runtime"
	"github.com/kenryu42/ralph-review-sub002/sessionlog"
	"github.com/kenryu42/ralph-review-sub002/types"
)

// State names the pseudostates a cycle passes through, used only for
// logging; states are not written to the session log.
type State string

const (
	StateIdle             State = "idle"
	StateCodeSimplify     State = "code_simplify"
	StateReview           State = "review"
	StateCheckpoint       State = "checkpoint"
	StateFix              State = "fix"
	StateFixValidated     State = "fix_validated"
	StateDone             State = "done"
	StateAbort            State = "abort"
	StateRetryWithReminder State = "retry_with_reminder"
)

// Config configures one engine run.
type Config struct {
	ProjectDir  string
	LockDir     string
	LogDir      string
	MaxCycles   int
	Backoff     BackoffConfig
	Logger      *slog.Logger
	GitRunner   checkpoint.GitRunner
	RuntimeOpts runtime.Options
}

// Engine drives the cycle loop for one project.
type Engine struct {
	config  Config
	cfg     *config.Config
	logger  *slog.Logger
	lockMgr *lockfile.Manager
	ckptMgr *checkpoint.Manager
	runID   string
}

// New constructs an Engine, loading the project's .rr.yaml and applying
// defaults the way fixer/engine.New does.
func New(cfg Config) (*Engine, error) {
	if cfg.MaxCycles <= 0 {
		cfg.MaxCycles = 0 // 0 means "use config.Config.MaxCycles"
	}
	if cfg.LockDir == "" {
		cfg.LockDir = cfg.ProjectDir
	}
	if cfg.LogDir == "" {
		cfg.LogDir = cfg.ProjectDir
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Backoff == (BackoffConfig{}) {
		cfg.Backoff = DefaultBackoff
	}

	projectCfg, err := config.Load(cfg.ProjectDir)
	if err != nil {
		return nil, fmt.Errorf("cycle: load config: %w", err)
	}
	if err := projectCfg.Validate(); err != nil {
		return nil, fmt.Errorf("cycle: invalid config: %w", err)
	}
	if cfg.MaxCycles == 0 {
		cfg.MaxCycles = projectCfg.MaxCycles
	}

	lockPath := lockfile.PathFor(cfg.LockDir, cfg.ProjectDir)

	return &Engine{
		config:  cfg,
		cfg:     projectCfg,
		logger:  cfg.Logger,
		lockMgr: lockfile.New(lockPath),
		ckptMgr: checkpoint.New(cfg.ProjectDir, cfg.GitRunner),
		runID:   uuid.NewString(),
	}, nil
}

// Run drives the cycle loop to completion, returning the final session
// summary. It acquires the project's lockfile for the duration of the run
// and releases it (invariant L5) even on error.
func (e *Engine) Run(ctx context.Context) (*types.SessionSummary, error) {
	lf, err := e.lockMgr.Acquire(ctx, e.config.ProjectDir)
	if err != nil {
		return nil, fmt.Errorf("cycle: acquire lock: %w", err)
	}
	defer e.lockMgr.Release()

	log, err := sessionlog.Open(e.config.LogDir, e.config.ProjectDir, e.runID)
	if err != nil {
		return nil, fmt.Errorf("cycle: open session log: %w", err)
	}
	defer log.Close()

	if err := e.lockMgr.Transition(lf, types.LockRunning); err != nil {
		return nil, fmt.Errorf("cycle: transition to running: %w", err)
	}

	_ = log.Append(types.LogEvent{
		Type:   types.LogEventSystem,
		RunID:  e.runID,
		System: &types.SystemEvent{Level: "info", Message: "preflight passed, starting cycle loop"},
	})

	reason := "complete"
	cyclesRun := 0
	var lastFindings int

	for cycleNum := 1; cycleNum <= e.config.MaxCycles; cycleNum++ {
		cyclesRun = cycleNum
		_ = e.lockMgr.Renew(lf)

		if kind, ok := e.cfg.Roles()[types.RoleCodeSimplify]; ok {
			e.logState(StateCodeSimplify, cycleNum)
			_, _ = e.invoke(ctx, log, kind, types.RoleCodeSimplify, cycleNum, codeSimplifyPrompt())
		}

		e.logState(StateReview, cycleNum)
		reviewKind := e.cfg.Roles()[types.RoleReviewer]
		_, review, err := e.invokeReview(ctx, log, reviewKind, cycleNum)
		if err != nil {
			reason = "abort: " + err.Error()
			e.endSession(log, reason, cyclesRun, lastFindings)
			return e.finish(log, lf)
		}
		lastFindings = len(review.Findings)

		if review.Clean {
			reason = "complete"
			e.endSession(log, reason, cyclesRun, lastFindings)
			return e.finish(log, lf)
		}

		e.logState(StateCheckpoint, cycleNum)
		cp, err := e.ckptMgr.Begin(ctx, cycleNum)
		if err != nil {
			reason = "abort: checkpoint failed: " + err.Error()
			e.endSession(log, reason, cyclesRun, lastFindings)
			return e.finish(log, lf)
		}

		e.logState(StateFix, cycleNum)
		fixKind := e.cfg.Roles()[types.RoleFixer]
		_, _, fixErr := e.invokeFix(ctx, log, fixKind, cycleNum, review.Findings)
		if fixErr != nil {
			_ = cp.Rollback(ctx)
			reason = "abort: fix failed: " + fixErr.Error()
			e.endSession(log, reason, cyclesRun, lastFindings)
			return e.finish(log, lf)
		}

		e.logState(StateFixValidated, cycleNum)
		cp.Commit()
	}

	reason = "abort: cycle budget exhausted"
	e.endSession(log, reason, cyclesRun, lastFindings)
	return e.finish(log, lf)
}

func (e *Engine) finish(log *sessionlog.Log, lf *types.Lockfile) (*types.SessionSummary, error) {
	_ = e.lockMgr.Transition(lf, types.LockStopping)
	summary := log.Summary()
	return &summary, nil
}

func (e *Engine) endSession(log *sessionlog.Log, reason string, cycles, findings int) {
	_ = log.Append(types.LogEvent{
		Type:  types.LogEventSessionEnd,
		RunID: e.runID,
		SessionEnd: &types.SessionEndEvent{
			Reason:        reason,
			Cycles:        cycles,
			FindingsAtEnd: findings,
		},
	})
}

func (e *Engine) logState(state State, cycle int) {
	e.logger.Info("cycle.transition", "state", state, "cycle", cycle, "run_id", e.runID)
}

// invoke runs a single agent turn and appends its result to the session
// log. The optional code-simplify role uses it directly, without parsing a
// verdict; invokeReview and invokeFix parse its output after it returns.
func (e *Engine) invoke(ctx context.Context, log *sessionlog.Log, kind types.AgentKind, role types.Role, cycle int, prompt string) (*types.IterationResult, error) {
	result, err := runtime.RunAgent(ctx, e.runID, kind, role, cycle, prompt, types.ReviewOptions{}, e.config.RuntimeOpts)
	if result != nil {
		_ = log.Append(types.LogEvent{Type: types.LogEventIteration, RunID: e.runID, Iteration: &types.IterationEvent{Result: *result}})
	}
	return result, err
}

// invokeReview runs the reviewer, recovering its ReviewSummary and
// retrying once with a format reminder if the first attempt did not
// parse.
func (e *Engine) invokeReview(ctx context.Context, log *sessionlog.Log, kind types.AgentKind, cycle int) (*types.IterationResult, *types.ReviewSummary, error) {
	result, err := e.invoke(ctx, log, kind, types.RoleReviewer, cycle, reviewPrompt(cycle))
	if err != nil {
		return result, nil, err
	}

	review, parseErr := resultparser.ParseReview(result.RawOutput)
	if parseErr == nil {
		result.Review = review
		return result, review, nil
	}

	e.logState(StateRetryWithReminder, cycle)
	time.Sleep(e.config.Backoff.Delay(0))
	retryResult, retryErr := e.invoke(ctx, log, kind, types.RoleReviewer, cycle, reviewPrompt(cycle)+"\n\n"+reminderPrompt(types.RoleReviewer))
	if retryErr != nil {
		return retryResult, nil, retryErr
	}
	review, parseErr = resultparser.ParseReview(retryResult.RawOutput)
	if parseErr != nil {
		return retryResult, nil, parseErr
	}
	retryResult.Review = review
	return retryResult, review, nil
}

// invokeFix runs the fixer, recovering its FixSummary with the same
// one-shot reminder retry as invokeReview.
func (e *Engine) invokeFix(ctx context.Context, log *sessionlog.Log, kind types.AgentKind, cycle int, findings []types.Finding) (*types.IterationResult, *types.FixSummary, error) {
	result, err := e.invoke(ctx, log, kind, types.RoleFixer, cycle, fixPrompt(findings))
	if err != nil {
		return result, nil, err
	}

	fix, parseErr := resultparser.ParseFix(result.RawOutput)
	if parseErr == nil {
		result.Fix = fix
		return result, fix, nil
	}

	e.logState(StateRetryWithReminder, cycle)
	time.Sleep(e.config.Backoff.Delay(0))
	retryResult, retryErr := e.invoke(ctx, log, kind, types.RoleFixer, cycle, fixPrompt(findings)+"\n\n"+reminderPrompt(types.RoleFixer))
	if retryErr != nil {
		return retryResult, nil, retryErr
	}
	fix, parseErr = resultparser.ParseFix(retryResult.RawOutput)
	if parseErr != nil {
		return retryResult, nil, parseErr
	}
	retryResult.Fix = fix
	return retryResult, fix, nil
}
