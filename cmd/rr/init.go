package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kenryu42/ralph-review-sub002/config"
	"github.com/kenryu42/ralph-review-sub002/preflight"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default .rr.yaml and check agent availability",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := resolveProjectDir()
		if err != nil {
			return err
		}

		path := filepath.Join(dir, ".rr.yaml")
		if _, err := os.Stat(path); err == nil && !initForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}

		data, err := yaml.Marshal(config.DefaultConfig())
		if err != nil {
			return fmt.Errorf("marshal default config: %w", err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		fmt.Printf("wrote %s\n", path)

		ctx := cmd.Context()
		report, err := preflight.Run(ctx, dir, nil)
		if err != nil {
			return fmt.Errorf("preflight: %w", err)
		}
		if problems := report.Problems(true); len(problems) > 0 {
			fmt.Println("preflight found the following (non-blocking at init time):")
			for _, p := range problems {
				fmt.Println("  - " + p)
			}
		} else {
			fmt.Println("preflight: all configured agents available")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing .rr.yaml")
}
