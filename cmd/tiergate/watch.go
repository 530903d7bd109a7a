package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/tiergate/internal/config"
	"github.com/ShayCichocki/tiergate/internal/watch"
)

var (
	watchOpts     runOptions
	watchPaths    []string
	watchDebounce time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-run validation when the suite or project config changes",
	Long: `Run validation once, then again whenever the suite file, the
.tiergate configs, or any extra --path changes.

Backend availability is cached across reruns for availability.cache_ttl.

Examples:
  tiergate watch --tier simple
  tiergate watch --tier standard --path src --path e2e`,
	RunE: func(cmd *cobra.Command, args []string) error {
		watchOpts.changedSet = cmd.Flags().Changed("changed")
		e, err := loadEnv()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		suitePath := watchOpts.suitePath
		if !filepath.IsAbs(suitePath) {
			suitePath = filepath.Join(e.root, suitePath)
		}
		paths := []string{suitePath, config.ProjectDir(e.root)}
		for _, p := range watchPaths {
			if !filepath.IsAbs(p) {
				p = filepath.Join(e.root, p)
			}
			paths = append(paths, p)
		}

		w, err := watch.New(paths, watch.WithDebounce(watchDebounce), watch.WithLogger(e.log))
		if err != nil {
			return err
		}
		defer w.Close()

		checker := e.checker(e.endpoint(watchOpts.endpoint))
		out := cmd.OutOrStdout()
		once := func(ctx context.Context) {
			if _, err := executeRun(ctx, e, checker, watchOpts, out); err != nil {
				printStatus("✗", err.Error(), color.FgRed)
			}
			dimColor.Fprintln(out, "\nWatching for changes (ctrl+c to stop)...")
		}

		once(ctx)
		err = w.Run(ctx, func(ctx context.Context, changed []string) {
			fmt.Fprintln(out)
			for _, c := range changed {
				if rel, err := filepath.Rel(e.root, c); err == nil {
					c = rel
				}
				printStatus("↻", c, color.FgCyan)
			}
			once(ctx)
		})
		if err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	},
}

func init() {
	addRunFlags(watchCmd, &watchOpts)
	watchCmd.Flags().StringSliceVar(&watchPaths, "path", nil, "Extra files or directories to watch")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watch.DefaultDebounce, "Quiet period before re-running")
}
