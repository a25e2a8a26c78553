package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kenryu42/ralph-review-sub002/checkpoint"
	"github.com/kenryu42/ralph-review-sub002/cycle"
	"github.com/kenryu42/ralph-review-sub002/preflight"
	"github.com/kenryu42/ralph-review-sub002/runtime"
	"github.com/kenryu42/ralph-review-sub002/types"
)

var runJSON bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the review/fix cycle loop to completion",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := resolveProjectDir()
		if err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		logger := newLogger()

		report, err := preflight.Run(ctx, dir, nil)
		if err != nil {
			return fmt.Errorf("preflight: %w", err)
		}
		if problems := report.Problems(false); len(problems) > 0 {
			for _, p := range problems {
				logger.Error("preflight.problem", "detail", p)
			}
			return fmt.Errorf("preflight failed: %d problem(s), see above", len(problems))
		}

		eng, err := cycle.New(cycle.Config{
			ProjectDir: dir,
			LockDir:    lockDir,
			LogDir:     logDir,
			MaxCycles:  maxCycles,
			Logger:     logger,
			GitRunner:  checkpoint.DefaultGitRunner{},
			RuntimeOpts: runtime.Options{
				WorkDir: dir,
			},
		})
		if err != nil {
			return fmt.Errorf("construct engine: %w", err)
		}

		summary, err := eng.Run(ctx)
		if err != nil {
			return fmt.Errorf("cycle run: %w", err)
		}

		if runJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(summary)
		}

		printSummary(summary)
		if summary.Aborted {
			return fmt.Errorf("run aborted: %s", summary.AbortReason)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolVar(&runJSON, "json", false, "Output the final summary as JSON")
}

func printSummary(s *types.SessionSummary) {
	status := "done"
	if s.Aborted {
		status = "aborted: " + s.AbortReason
	}
	fmt.Printf("run %s: %s (cycles=%d findings=%d fixes=%d skipped=%d)\n",
		s.RunID, status, s.Cycles, s.TotalFindings, s.TotalFixes, s.TotalSkipped)
}
