package lockfile

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kenryu42/ralph-review-sub002/types"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func TestAcquire_CreatesPendingLock(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.lock")
	mgr := New(path)

	lf, err := mgr.Acquire(context.Background(), "/proj")
	require.NoError(t, err)
	assert.Equal(t, types.LockPending, lf.State)
	assert.Equal(t, types.LockfileVersion, lf.Version)

	reread, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, lf.SessionID, reread.SessionID)
}

func TestAcquire_FailsWhenLiveLockHeld(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.lock")

	clock := &fakeClock{t: time.Now().UTC()}
	mgr := &Manager{Path: path, Clock: clock, IsAlive: func(pid int) bool { return true }}

	_, err := mgr.Acquire(context.Background(), "/proj")
	require.NoError(t, err)

	_, err = mgr.Acquire(context.Background(), "/proj")
	require.Error(t, err)
	var contErr *types.LockContentionError
	assert.ErrorAs(t, err, &contErr)
}

func TestAcquire_SucceedsWhenLockIsStale_DeadPID(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.lock")

	clock := &fakeClock{t: time.Now().UTC()}
	dead := &Manager{Path: path, Clock: clock, IsAlive: func(pid int) bool { return false }}
	_, err := dead.Acquire(context.Background(), "/proj")
	require.NoError(t, err)

	// A second manager (simulating a new process) should be able to
	// acquire since the first's pid is reported dead.
	mgr2 := &Manager{Path: path, Clock: clock, IsAlive: func(pid int) bool { return false }}
	_, err = mgr2.Acquire(context.Background(), "/proj")
	require.NoError(t, err)
}

func TestAcquire_SucceedsWhenTimeoutElapsed(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.lock")

	start := time.Now().UTC()
	clock := &fakeClock{t: start}
	mgr := &Manager{Path: path, Clock: clock, IsAlive: func(pid int) bool { return true }}
	_, err := mgr.Acquire(context.Background(), "/proj")
	require.NoError(t, err)

	// Advance time past the pending-state timeout.
	clock.t = start.Add(time.Duration(types.StaleTimeoutFor(types.LockPending)+1) * time.Second)
	_, err = mgr.Acquire(context.Background(), "/proj")
	require.NoError(t, err)
}

func TestTransition_RejectsBackwardMove(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.lock")
	mgr := New(path)

	lf, err := mgr.Acquire(context.Background(), "/proj")
	require.NoError(t, err)
	require.NoError(t, mgr.Transition(lf, types.LockRunning))
	require.NoError(t, mgr.Transition(lf, types.LockStopping))

	err = mgr.Transition(lf, types.LockRunning)
	assert.Error(t, err)
}

func TestRelease_RemovesFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.lock")
	mgr := New(path)

	_, err := mgr.Acquire(context.Background(), "/proj")
	require.NoError(t, err)
	require.NoError(t, mgr.Release())

	_, err = Read(path)
	assert.Error(t, err)
}

func TestPathFor_AvoidsCollision(t *testing.T) {
	t.Parallel()
	p1 := PathFor("/locks", "/home/a/myproject")
	p2 := PathFor("/locks", "/home/b/myproject")
	assert.NotEqual(t, p1, p2)
}
