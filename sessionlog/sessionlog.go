// Package sessionlog appends structured events to a durable, per-run
// JSONL log and maintains an incrementally updated summary sidecar next
// to it.
package sessionlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/kenryu42/ralph-review-sub002/types"
)

// sanitizeName replaces filesystem-hostile characters, mirroring
// bramble/session/store.go's sanitizeName.
func sanitizeName(name string) string {
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, ":", "_")
	name = strings.ReplaceAll(name, " ", "_")
	return name
}

// Log is a single run's append-only event log plus its summary sidecar.
type Log struct {
	mu         sync.Mutex
	logPath    string
	summaryPath string
	file       *os.File
	summary    types.SessionSummary
}

// Open creates (or reopens) the session log for runID under dir; the log
// and sidecar file names are derived from runID's sanitized name. The log
// file is opened in append mode; the summary sidecar is initialized fresh
// since a reopen implies a new run.
func Open(dir, projectDir, runID string) (*Log, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("sessionlog: create dir: %w", err)
	}

	base := sanitizeName(runID)
	logPath := filepath.Join(dir, base+".jsonl")
	summaryPath := filepath.Join(dir, base+".summary.json")

	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("sessionlog: open log: %w", err)
	}

	l := &Log{
		logPath:     logPath,
		summaryPath: summaryPath,
		file:        f,
		summary: types.SessionSummary{
			RunID:      runID,
			ProjectDir: projectDir,
		},
	}
	return l, nil
}

// Append writes one JSON line to the log as a single Write call on the
// O_APPEND file, serialized with other Appends on this Log by its mutex,
// and then rewrites the summary sidecar to reflect it. Lines are not
// bounded in size: an iteration event carries the agent's full output.
func (l *Log) Append(event types.LogEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if event.Timestamp == "" {
		event.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	}

	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("sessionlog: marshal event: %w", err)
	}
	line = append(line, '\n')

	if _, err := l.file.Write(line); err != nil {
		return fmt.Errorf("sessionlog: append: %w", err)
	}

	l.applyToSummary(event)
	return l.writeSummaryLocked()
}

func (l *Log) applyToSummary(event types.LogEvent) {
	l.summary.LastUpdatedAt = event.Timestamp

	switch event.Type {
	case types.LogEventIteration:
		if event.Iteration == nil {
			return
		}
		result := event.Iteration.Result
		if result.Cycle > l.summary.Cycles {
			l.summary.Cycles = result.Cycle
		}
		if result.Review != nil {
			l.summary.TotalFindings += len(result.Review.Findings)
		}
		if result.Fix != nil {
			l.summary.TotalFixes += len(result.Fix.Fixes)
			l.summary.TotalSkipped += len(result.Fix.Skipped)
		}
		l.summary.LastState = string(result.Role)
	case types.LogEventSessionEnd:
		if event.SessionEnd == nil {
			return
		}
		l.summary.Done = true
		l.summary.Cycles = event.SessionEnd.Cycles
		if event.SessionEnd.Reason != "" && event.SessionEnd.Reason != "complete" {
			l.summary.Aborted = true
			l.summary.AbortReason = event.SessionEnd.Reason
		}
	case types.LogEventSystem:
		if event.System != nil {
			l.summary.LastState = event.System.Message
		}
	}
}

// writeSummaryLocked atomically replaces the summary sidecar, mirroring
// bramble/session/store.go's SaveSession: marshal, write to a .tmp file,
// rename over the final path, removing the temp file on failure.
func (l *Log) writeSummaryLocked() error {
	data, err := json.MarshalIndent(l.summary, "", "  ")
	if err != nil {
		return fmt.Errorf("sessionlog: marshal summary: %w", err)
	}

	tmpPath := l.summaryPath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("sessionlog: write summary: %w", err)
	}
	if err := os.Rename(tmpPath, l.summaryPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("sessionlog: rename summary: %w", err)
	}
	return nil
}

// Summary returns a copy of the current in-memory summary.
func (l *Log) Summary() types.SessionSummary {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.summary
}

// LoadSummary reads one run's summary sidecar from disk without requiring
// an open Log.
func LoadSummary(dir, runID string) (*types.SessionSummary, error) {
	path := filepath.Join(dir, sanitizeName(runID)+".summary.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("sessionlog: read summary: %w", err)
	}
	var summary types.SessionSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("sessionlog: unmarshal summary: %w", err)
	}
	return &summary, nil
}

// Close closes the underlying log file.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}
