package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/kenryu42/ralph-review-sub002/lockfile"
	"github.com/kenryu42/ralph-review-sub002/types"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current lock state and recent run summaries",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := resolveProjectDir()
		if err != nil {
			return err
		}
		lDir := lockDir
		if lDir == "" {
			lDir = dir
		}
		gDir := logDir
		if gDir == "" {
			gDir = dir
		}

		lockPath := lockfile.PathFor(lDir, dir)
		lf, lockErr := lockfile.Read(lockPath)

		summaries, err := loadSummaries(gDir)
		if err != nil {
			return fmt.Errorf("load summaries: %w", err)
		}

		if statusJSON {
			out := struct {
				Lock      *types.Lockfile         `json:"lock,omitempty"`
				Summaries []*types.SessionSummary `json:"summaries"`
			}{Summaries: summaries}
			if lockErr == nil {
				out.Lock = lf
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		}

		printStatus(lf, lockErr, summaries)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output as JSON")
}

// loadSummaries reads every *.summary.json sidecar in dir, most recently
// updated first.
func loadSummaries(dir string) ([]*types.SessionSummary, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.summary.json"))
	if err != nil {
		return nil, err
	}

	summaries := make([]*types.SessionSummary, 0, len(matches))
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var s types.SessionSummary
		if err := json.Unmarshal(data, &s); err != nil {
			continue
		}
		summaries = append(summaries, &s)
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].LastUpdatedAt > summaries[j].LastUpdatedAt
	})
	return summaries, nil
}

func printStatus(lf *types.Lockfile, lockErr error, summaries []*types.SessionSummary) {
	if lockErr != nil {
		fmt.Println("lock: none held")
	} else {
		fmt.Printf("lock: held by session %s (pid %d, state %s, renewed %s)\n", lf.SessionID, lf.PID, lf.State, lf.RenewedAt)
	}

	if len(summaries) == 0 {
		fmt.Println("no recorded runs")
		return
	}

	fmt.Printf("\n=== Recent runs (%d) ===\n", len(summaries))
	for _, s := range summaries {
		status := "in progress"
		if s.Done {
			status = "done"
		}
		if s.Aborted {
			status = "aborted: " + s.AbortReason
		}
		fmt.Printf("  %s: %s (cycles=%d findings=%d fixes=%d)\n", s.RunID, status, s.Cycles, s.TotalFindings, s.TotalFixes)
	}
}
