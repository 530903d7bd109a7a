package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	rootVerbose bool
	rootProject string
)

// errValidationFailed makes the process exit 1 without an extra error line.
var errValidationFailed = errors.New("validation failed")

var rootCmd = &cobra.Command{
	Use:   "tiergate",
	Short: "Complexity-aware end-to-end validation",
	Long: `tiergate decides how much end-to-end validation a change needs from
its complexity tier, then runs it against an automation backend.

Depths:
- smoke:   four fixed health checks (simple tier)
- feature: regression tests for the features the change touches (standard tier)
- full:    the whole suite across browser environments (complex tier)

When the automation backend is unreachable, the configured fallback mode
decides whether the build fails, warns, skips, or runs local checks instead.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errValidationFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&rootVerbose, "verbose", "v", false, "Mirror info logs to stderr")
	rootCmd.PersistentFlags().StringVarP(&rootProject, "project", "C", "", "Project root (default: current directory)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(versionCmd)
}
