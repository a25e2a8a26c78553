// Command rr drives the review/fix cycle loop against a project
// directory, using whichever agent CLIs its .rr.yaml configures.
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	projectDir string
	lockDir    string
	logDir     string
	maxCycles  int
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "rr",
	Short: "Automated review/fix cycle runner",
	Long: `rr drives externally installed AI coding CLIs through a
review -> checkpoint -> fix loop against a project's working tree,
stopping once a reviewer reports a clean tree, the cycle budget is
exhausted, or an unrecoverable error occurs.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&projectDir, "dir", "", "Project directory (default: current directory)")
	rootCmd.PersistentFlags().StringVar(&lockDir, "lock-dir", "", "Lockfile directory (default: project directory)")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "", "Session log directory (default: project directory)")
	rootCmd.PersistentFlags().IntVar(&maxCycles, "max-cycles", 0, "Override the configured cycle budget (0: use .rr.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveProjectDir returns the configured project directory, defaulting
// to the current working directory.
func resolveProjectDir() (string, error) {
	if projectDir != "" {
		return projectDir, nil
	}
	return os.Getwd()
}

// newLogger builds a structured logger whose handler depends on whether
// stderr is an interactive terminal: a human-readable text handler when
// attached to a TTY, JSON otherwise (piped into a log aggregator).
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if term.IsTerminal(int(os.Stderr.Fd())) {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
