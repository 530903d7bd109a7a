package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/tiergate/internal/availability"
	"github.com/ShayCichocki/tiergate/internal/errcatalog"
	"github.com/ShayCichocki/tiergate/internal/fallback"
	"github.com/ShayCichocki/tiergate/internal/feature"
	"github.com/ShayCichocki/tiergate/internal/fullsuite"
	"github.com/ShayCichocki/tiergate/internal/suite"
	"github.com/ShayCichocki/tiergate/internal/tui"
	"github.com/ShayCichocki/tiergate/internal/validation"
	"github.com/ShayCichocki/tiergate/pkg/models"
)

// runOptions holds the flags shared by run and watch.
type runOptions struct {
	tier       string
	suitePath  string
	changed    []string
	changedSet bool
	base       string
	kind       string
	endpoint   string
	force      bool
	tui        bool
	json       bool
}

var runOpts runOptions

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Validate a change at the depth its tier calls for",
	Long: `Run end-to-end validation for a change.

The tier picks the depth: simple runs smoke checks, standard runs the
feature tests touched by the change, complex runs the full suite across
environments. Changed files come from --changed, or from git relative to
--base (default: git.base_ref).

The backend is probed first. If it is unavailable, the fallback mode in
.tiergate/mcp-fallback.yaml decides the outcome.

Exit status is 1 when validation fails or the fallback mode is fail.

Examples:
  tiergate run --tier simple --suite e2e/suite.yaml
  tiergate run --tier standard --suite e2e/suite.yaml --base origin/main
  tiergate run --tier complex --suite e2e/suite.yaml --tui`,
	RunE: func(cmd *cobra.Command, args []string) error {
		runOpts.changedSet = cmd.Flags().Changed("changed")
		e, err := loadEnv()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		endpoint := e.endpoint(runOpts.endpoint)
		passed, err := executeRun(ctx, e, e.checker(endpoint), runOpts, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		if !passed {
			return errValidationFailed
		}
		return nil
	},
}

func addRunFlags(cmd *cobra.Command, o *runOptions) {
	cmd.Flags().StringVarP(&o.tier, "tier", "t", "standard", "Complexity tier: simple, standard, complex (or quick-flow, method, enterprise)")
	cmd.Flags().StringVarP(&o.suitePath, "suite", "s", "e2e/suite.yaml", "Test suite file (YAML or JSON)")
	cmd.Flags().StringSliceVar(&o.changed, "changed", nil, "Changed files, comma separated (skips git discovery)")
	cmd.Flags().StringVar(&o.base, "base", "", "Git ref to diff against (default: git.base_ref)")
	cmd.Flags().StringVar(&o.kind, "kind", "", "Backend kind: web or desktop (default: backend.kind)")
	cmd.Flags().StringVar(&o.endpoint, "endpoint", "", "Automation backend URL (default: backend.endpoint)")
	cmd.Flags().BoolVar(&o.force, "force", false, "Ignore cached backend availability")
	cmd.Flags().BoolVar(&o.json, "json", false, "Print the result as JSON")
}

func init() {
	addRunFlags(runCmd, &runOpts)
	runCmd.Flags().BoolVar(&runOpts.tui, "tui", false, "Show live progress")
}

// executeRun performs one validation and prints the outcome. It returns
// whether the build may proceed.
func executeRun(ctx context.Context, e *env, checker *availability.Checker, o runOptions, out io.Writer) (bool, error) {
	path := o.suitePath
	if !filepath.IsAbs(path) {
		path = filepath.Join(e.root, path)
	}
	s, err := suite.Load(path)
	if err != nil {
		return false, err
	}

	kind, err := e.resolveKind(o.kind)
	if err != nil {
		return false, err
	}

	store := e.openStore()
	if store != nil {
		defer store.Close()
	}

	avail := e.checkBackend(ctx, checker, store, kind, o.force)
	if !avail.IsAvailable() {
		return handleUnavailable(ctx, e, avail, o, out)
	}

	changed := o.changed
	if !o.changedSet {
		base := o.base
		if base == "" {
			base = e.cfg.Git.BaseRef
		}
		changed = feature.ChangedFiles(ctx, e.root, base, e.log)
	}

	opts := []validation.Option{
		validation.WithLogger(e.log),
		validation.WithFullSuiteConfig(fullSuiteConfig(e)),
	}
	if store != nil {
		opts = append(opts, validation.WithRecorder(store))
	}

	req := validation.RequiredConfig{
		ProjectRoot: e.root,
		Factory:     e.factory(e.endpoint(o.endpoint), kind),
	}

	var (
		res     models.Result
		metrics models.Metrics
	)
	if o.tui {
		res, metrics, err = runWithTUI(ctx, req, opts, o, s, changed)
		if err != nil {
			return false, err
		}
	} else {
		res, metrics = validation.New(req, opts...).RunForTier(ctx, o.tier, s, changed)
	}

	if o.json {
		return res.Passed, writeJSON(out, report{Result: res, Metrics: &metrics})
	}
	printResult(out, res, &metrics)
	return res.Passed, nil
}

func runWithTUI(ctx context.Context, req validation.RequiredConfig, opts []validation.Option, o runOptions, s models.TestSuite, changed []string) (models.Result, models.Metrics, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := validation.NewEventEmitter(256)
	orch := validation.New(req, append(opts, validation.WithEvents(events))...)

	type outcome struct {
		res     models.Result
		metrics models.Metrics
	}
	done := make(chan outcome, 1)
	go func() {
		defer events.Close()
		res, m := orch.RunForTier(ctx, o.tier, s, changed)
		done <- outcome{res, m}
	}()

	model, err := tui.Run(ctx, s.Name, events.Events())
	if err != nil || model.Aborted() {
		cancel()
	}
	out := <-done
	if err != nil {
		return out.res, out.metrics, fmt.Errorf("progress view: %w", err)
	}
	return out.res, out.metrics, nil
}

func fullSuiteConfig(e *env) fullsuite.Config {
	fs := e.cfg.FullSuite
	return fullsuite.Config{
		Workers:          fs.Workers,
		Environments:     fs.Environments,
		CrossEnvironment: fs.CrossEnvironment,
		TaskTimeout:      fs.TaskTimeout,
	}
}

// handleUnavailable applies the fallback policy. FAIL mode prints the
// catalog entry and stops the build.
func handleUnavailable(ctx context.Context, e *env, avail availability.Availability, o runOptions, out io.Writer) (bool, error) {
	handler := fallback.NewHandler(e.log)
	res, fr := handler.Handle(ctx, avail, e.root, nil)

	if res == nil {
		if o.json {
			if err := writeJSON(out, report{Result: models.Result{Output: avail.Message}, Fallback: &fr}); err != nil {
				return false, err
			}
			return false, nil
		}
		failColor.Fprintln(out, "✗ Automation backend unavailable, fallback mode is fail")
		fmt.Fprintln(out, errcatalog.Format(avail.Reason, true))
		return false, nil
	}

	if o.json {
		return res.Passed, writeJSON(out, report{Result: *res, Fallback: &fr})
	}
	printFallback(out, fr)
	printResult(out, *res, nil)
	return res.Passed, nil
}
