package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/tiergate/internal/state"
)

var (
	historyLimit int
	historyJSON  bool
	historyPurge time.Duration
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "Show recorded validation runs",
	Long: `Show the project's recorded validation runs, newest first.

With a run id, shows that run in full. --purge deletes runs older than
the given age before listing.

Examples:
  tiergate history
  tiergate history --limit 5 --json
  tiergate history 3f2a9c1e-...
  tiergate history --purge 720h`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv()
		if err != nil {
			return err
		}
		db, err := state.OpenProject(e.root)
		if err != nil {
			return fmt.Errorf("opening run history: %w", err)
		}
		defer db.Close()

		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		if historyPurge > 0 {
			n, err := db.PurgeOldRuns(ctx, historyPurge)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Purged %d run(s) older than %s\n", n, historyPurge)
		}

		if len(args) == 1 {
			run, err := db.GetRun(ctx, args[0])
			if err != nil {
				return err
			}
			if run == nil {
				return fmt.Errorf("run %s not found", args[0])
			}
			if historyJSON {
				return encodeJSON(out, run)
			}
			printRunHeader(out, *run)
			printResult(out, run.Result(), &run.Metrics)
			return nil
		}

		runs, err := db.RecentRuns(ctx, historyLimit)
		if err != nil {
			return err
		}
		if historyJSON {
			return encodeJSON(out, runs)
		}
		printHistory(out, runs)
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of runs to show")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "Print runs as JSON")
	historyCmd.Flags().DurationVar(&historyPurge, "purge", 0, "Delete runs older than this age first")
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printHistory(w io.Writer, runs []state.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No recorded runs.")
		return
	}
	fmt.Fprintf(w, "%-8s  %-19s  %-8s  %-8s  %-7s  %s\n", "RUN", "WHEN", "TIER", "DEPTH", "RESULT", "TESTS")
	for _, r := range runs {
		verdict := passColor.Sprintf("%-7s", "pass")
		if !r.Passed {
			verdict = failColor.Sprintf("%-7s", "fail")
		}
		id := r.ID
		if len(id) > 8 {
			id = id[:8]
		}
		m := r.Metrics
		fmt.Fprintf(w, "%-8s  %-19s  %-8s  %-8s  %s  %d/%d passed, %d skipped (%s)\n",
			id, r.CreatedAt.Local().Format("2006-01-02 15:04:05"), m.Tier, m.Depth, verdict,
			m.PassedCount, m.TestCount, m.SkippedCount, m.Duration.Round(time.Millisecond))
	}
}

func printRunHeader(w io.Writer, r state.Run) {
	dimColor.Fprintf(w, "Run %s at %s\n", r.ID, r.CreatedAt.Local().Format(time.RFC3339))
}
