// Package lockfile implements the single-writer lease a cycle engine
// holds over a project directory for the duration of a run.
package lockfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/kenryu42/ralph-review-sub002/types"
)

// sanitizeName mirrors bramble/session/store.go's sanitizeName.
func sanitizeName(name string) string {
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, ":", "_")
	name = strings.ReplaceAll(name, " ", "_")
	return name
}

// PathFor returns the lockfile path for projectDir under lockDir.
// A sanitized-name collision (two distinct project paths sanitizing to
// the same string) is avoided by suffixing an 8-hex-character FNV-1a hash
// of the absolute project path, keeping the name human-legible while
// making it unique. See DESIGN.md for this Open Question's resolution.
func PathFor(lockDir, projectDir string) string {
	abs, err := filepath.Abs(projectDir)
	if err != nil {
		abs = projectDir
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(abs))
	suffix := fmt.Sprintf("%08x", h.Sum32())
	name := fmt.Sprintf("%s-%s.lock", sanitizeName(filepath.Base(abs)), suffix)
	return filepath.Join(lockDir, name)
}

// Clock abstracts time for staleness tests.
type Clock interface{ Now() time.Time }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

// PIDLiveness reports whether a process with the given pid is still
// alive. The default implementation sends signal 0, which the kernel
// validates without actually delivering.
type PIDLiveness func(pid int) bool

func defaultPIDLiveness(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

// Manager acquires, renews, and releases the lockfile at Path.
type Manager struct {
	Path     string
	Clock    Clock
	IsAlive  PIDLiveness
}

// New constructs a Manager for the lockfile at path.
func New(path string) *Manager {
	return &Manager{Path: path, Clock: realClock{}, IsAlive: defaultPIDLiveness}
}

// ErrHeld names the held-by-another-session condition. Acquire does not
// return it; it reports contention as *types.LockContentionError.
var ErrHeld = errors.New("lockfile: held by another session")

// Acquire atomically creates the lockfile in the pending state, first
// checking for and clearing a stale existing lease (invariants L1-L3). It
// returns *types.LockContentionError if a live session already holds it.
func (m *Manager) Acquire(ctx context.Context, projectDir string) (*types.Lockfile, error) {
	if existing, err := m.read(); err == nil {
		if !m.isStale(existing) {
			return nil, &types.LockContentionError{Path: m.Path, Owner: existing.SessionID}
		}
	}

	lf := &types.Lockfile{
		Version:    types.LockfileVersion,
		SessionID:  uuid.NewString(),
		ProjectDir: projectDir,
		PID:        os.Getpid(),
		State:      types.LockPending,
		AcquiredAt: m.Clock.Now().Format(time.RFC3339Nano),
	}
	lf.RenewedAt = lf.AcquiredAt

	if err := m.writeAtomic(lf); err != nil {
		return nil, fmt.Errorf("lockfile: acquire: %w", err)
	}
	return lf, nil
}

// Transition advances lf to state newState, enforcing the monotonic
// ordering in invariant L4 (pending -> running -> stopping, never
// backwards), and persists the change atomically.
func (m *Manager) Transition(lf *types.Lockfile, newState types.LockState) error {
	if !monotonic(lf.State, newState) {
		return fmt.Errorf("lockfile: invalid transition %s -> %s", lf.State, newState)
	}
	lf.State = newState
	lf.RenewedAt = m.Clock.Now().Format(time.RFC3339Nano)
	return m.writeAtomic(lf)
}

// Renew updates RenewedAt without changing state. The cycle engine calls
// it as a heartbeat at the start of each cycle; it is not called while an
// agent invocation is running.
func (m *Manager) Renew(lf *types.Lockfile) error {
	lf.RenewedAt = m.Clock.Now().Format(time.RFC3339Nano)
	return m.writeAtomic(lf)
}

// Release removes the lockfile (invariant L5: never left behind in a
// terminal state).
func (m *Manager) Release() error {
	if err := os.Remove(m.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("lockfile: release: %w", err)
	}
	return nil
}

func monotonic(from, to types.LockState) bool {
	order := map[types.LockState]int{
		types.LockPending:  0,
		types.LockRunning:  1,
		types.LockStopping: 2,
	}
	fromRank, ok1 := order[from]
	toRank, ok2 := order[to]
	return ok1 && ok2 && toRank >= fromRank
}

func (m *Manager) read() (*types.Lockfile, error) {
	data, err := os.ReadFile(m.Path)
	if err != nil {
		return nil, err
	}
	var lf types.Lockfile
	if err := json.Unmarshal(data, &lf); err != nil {
		return nil, err
	}
	return &lf, nil
}

// isStale implements invariant L3: staleness is never decided by mtime
// alone. A lease is stale if its owning pid is dead, or if its state's
// timeout has elapsed since RenewedAt.
func (m *Manager) isStale(lf *types.Lockfile) bool {
	if !m.IsAlive(lf.PID) {
		return true
	}
	renewed, err := time.Parse(time.RFC3339Nano, lf.RenewedAt)
	if err != nil {
		return true
	}
	timeout := time.Duration(types.StaleTimeoutFor(lf.State)) * time.Second
	return m.Clock.Now().Sub(renewed) > timeout
}

// writeAtomic persists lf via temp file + rename, mirroring
// bramble/session/store.go's SaveSession.
func (m *Manager) writeAtomic(lf *types.Lockfile) error {
	if err := os.MkdirAll(filepath.Dir(m.Path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(lf, "", "  ")
	if err != nil {
		return err
	}
	tmpPath := m.Path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, m.Path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

// Read loads the lockfile without acquiring it, used by `rr status`.
func Read(path string) (*types.Lockfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var lf types.Lockfile
	if err := json.Unmarshal(data, &lf); err != nil {
		return nil, err
	}
	return &lf, nil
}
