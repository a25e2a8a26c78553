package preflight

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGit struct {
	out []byte
	err error
}

func (f fakeGit) Run(ctx context.Context, args []string, dir string) ([]byte, error) {
	return f.out, f.err
}

func TestRun_ReportsCleanWorkingTree(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".rr.yaml"), []byte("reviewer: claude\nfixer: claude\nmax_cycles: 5\n"), 0o644))

	report, err := Run(context.Background(), dir, fakeGit{out: []byte("true\n")})
	require.NoError(t, err)
	assert.True(t, report.ConfigOK)
	assert.True(t, report.WorkingTreeOK)
}

func TestRun_ReportsBadWorkingTree(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	report, err := Run(context.Background(), dir, fakeGit{out: []byte("false\n")})
	require.NoError(t, err)
	assert.False(t, report.WorkingTreeOK)
}

func TestRun_ReportsInvalidConfig(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".rr.yaml"), []byte("reviewer: not-a-kind\nfixer: claude\nmax_cycles: 5\n"), 0o644))

	report, err := Run(context.Background(), dir, fakeGit{out: []byte("true\n")})
	require.NoError(t, err)
	assert.False(t, report.ConfigOK)
}

func TestProblems_IgnoresConfigErrorInInitMode(t *testing.T) {
	t.Parallel()
	report := &Report{ConfigOK: false, ConfigError: "bad yaml", WorkingTreeOK: true}
	assert.Empty(t, report.Problems(true))
	assert.NotEmpty(t, report.Problems(false))
}
