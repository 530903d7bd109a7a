// Package fullsuite runs a whole test suite across an environment matrix
// with a bounded number of concurrent automation sessions.
package fullsuite

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/ShayCichocki/tiergate/internal/automation"
	"github.com/ShayCichocki/tiergate/internal/logging"
	"github.com/ShayCichocki/tiergate/pkg/models"
)

const (
	// DefaultWorkers is the session limit when none is configured.
	DefaultWorkers = 4
	// closeTimeout bounds client cleanup, which runs even after cancellation.
	closeTimeout = 10 * time.Second
)

// Config controls a full-suite run.
type Config struct {
	// Workers caps concurrent sessions. Values <= 0 mean DefaultWorkers.
	Workers int
	// Environments is the matrix to expand across, e.g. browser engines.
	Environments []string
	// CrossEnvironment enables expansion when more than one environment is set.
	CrossEnvironment bool
	// TaskTimeout is a hard deadline per case session. Zero disables it.
	TaskTimeout time.Duration
	// ScreenshotDir receives failure screenshots. Empty disables them.
	ScreenshotDir string

	// OnCaseStart and OnCaseDone are called from worker goroutines. A
	// panicking hook is ignored.
	OnCaseStart func(tc models.TestCase)
	OnCaseDone  func(res models.CaseResult)

	Logger *logging.Logger
}

// DefaultConfig returns four workers, chromium only, cross-environment on.
func DefaultConfig() Config {
	return Config{
		Workers:          DefaultWorkers,
		Environments:     []string{"chromium"},
		CrossEnvironment: true,
	}
}

// workers returns the effective session limit.
func (c Config) workers() int {
	if c.Workers <= 0 {
		return DefaultWorkers
	}
	return c.Workers
}

// expands reports whether the run fans out across environments.
func (c Config) expands() bool {
	return c.CrossEnvironment && len(c.Environments) > 1
}

// EnvironmentCount returns how many environments a run with c covers.
func (c Config) EnvironmentCount() int {
	if c.expands() {
		return len(c.Environments)
	}
	return 1
}

// KnownEnvironment reports whether name has dedicated backend settings.
func KnownEnvironment(name string) bool {
	switch name {
	case "chromium", "firefox", "webkit":
		return true
	}
	return false
}

// EnvironmentMatrix builds backend settings for each named environment.
// chromium, firefox and webkit are known; anything else gets plain
// headless defaults.
func EnvironmentMatrix(envs []string) map[string]automation.Environment {
	matrix := make(map[string]automation.Environment, len(envs))
	for _, name := range envs {
		env := automation.Environment{Name: name, Headless: true}
		switch name {
		case "chromium":
			env.Options = map[string]any{"channel": nil}
		case "firefox":
			env.Options = map[string]any{"firefox_user_prefs": map[string]any{}}
		}
		matrix[name] = env
	}
	return matrix
}

// Expand clones every case once per environment, case-major. Clones get
// id "<id>-<env>" and name "<name> (<env>)"; steps are deep-copied and
// the skip and critical flags carry over.
func Expand(cases []models.TestCase, envs []string) []models.TestCase {
	out := make([]models.TestCase, 0, len(cases)*len(envs))
	for _, tc := range cases {
		for _, env := range envs {
			out = append(out, expandOne(tc, env))
		}
	}
	return out
}

func expandOne(tc models.TestCase, env string) models.TestCase {
	clone := tc.Clone()
	clone.ID = tc.ID + "-" + env
	clone.Name = tc.Name + " (" + env + ")"
	return clone
}

type task struct {
	tc  models.TestCase
	env *automation.Environment
}

func buildTasks(cases []models.TestCase, cfg Config) []task {
	if !cfg.expands() {
		tasks := make([]task, len(cases))
		for i, tc := range cases {
			tasks[i] = task{tc: tc}
		}
		return tasks
	}
	for _, name := range cfg.Environments {
		if !KnownEnvironment(name) {
			cfg.Logger.Warn("unknown environment %q, using headless defaults", name)
		}
	}
	matrix := EnvironmentMatrix(cfg.Environments)
	tasks := make([]task, 0, len(cases)*len(cfg.Environments))
	for _, tc := range cases {
		for _, name := range cfg.Environments {
			env := matrix[name]
			tasks = append(tasks, task{tc: expandOne(tc, name), env: &env})
		}
	}
	return tasks
}

// Run executes suite with at most cfg.Workers sessions at a time. Each
// case gets a fresh client: connect, launch suite.AppURL, run, close.
// Every task failure, including a panic, becomes a failed case; it never
// stops sibling tasks. A cancelled ctx fails the cases not yet started.
func Run(ctx context.Context, suite models.TestSuite, projectRoot string, factory automation.Factory, cfg Config) models.Result {
	start := time.Now()
	if cfg.ScreenshotDir == "" && projectRoot != "" {
		cfg.ScreenshotDir = automation.ScreenshotDir(projectRoot)
	}

	tasks := buildTasks(suite.TestCases, cfg)
	results := make([]models.CaseResult, len(tasks))
	sem := semaphore.NewWeighted(int64(cfg.workers()))

	var wg sync.WaitGroup
	for i, tk := range tasks {
		if err := sem.Acquire(ctx, 1); err != nil {
			results[i] = failure(tk.tc, models.FailureSession, fmt.Sprintf("not started: %v", err))
			continue
		}
		wg.Add(1)
		go func(i int, tk task) {
			defer wg.Done()
			defer sem.Release(1)
			if cfg.OnCaseStart != nil {
				cfg.hook(func() { cfg.OnCaseStart(tk.tc) })
			}
			results[i] = runTask(ctx, suite.AppURL, factory, tk, cfg)
			if cfg.OnCaseDone != nil {
				cfg.hook(func() { cfg.OnCaseDone(results[i]) })
			}
		}(i, tk)
	}
	wg.Wait()

	res := models.ResultFromCases(results)
	res.Duration = time.Since(start)
	res.Output = fmt.Sprintf("full suite: %d/%d cases passed across %d environment(s)",
		res.PassedChecks, res.TotalChecks, cfg.EnvironmentCount())
	return res
}

// hook runs a progress callback, logging and dropping a panic.
func (c Config) hook(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			c.Logger.Warn("progress hook panicked: %v", r)
		}
	}()
	fn()
}

// runTask owns one session from creation to close. With a TaskTimeout the
// case fails at the deadline, but runTask still waits for the session to
// stop before closing the client, so the caller's worker slot covers the
// whole session.
func runTask(ctx context.Context, target string, factory automation.Factory, tk task, cfg Config) (res models.CaseResult) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			res = failure(tk.tc, models.FailureSession,
				fmt.Sprintf("panic during test case %s: %v\n%s", tk.tc.ID, r, debug.Stack()))
		}
		res.Duration = time.Since(start)
	}()

	if tk.tc.Skip {
		return models.CaseResult{ID: tk.tc.ID, Name: tk.tc.Name, Passed: true, Skipped: true}
	}

	client := factory()
	if client == nil {
		return failure(tk.tc, models.FailureSession, "client factory returned nil")
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
		defer cancel()
		_ = client.Close(closeCtx)
	}()

	taskCtx := ctx
	if cfg.TaskTimeout > 0 {
		var cancel context.CancelFunc
		taskCtx, cancel = context.WithTimeout(ctx, cfg.TaskTimeout)
		defer cancel()
	}

	if tk.env != nil {
		if sel, ok := client.(automation.EnvironmentSelector); ok {
			sel.SelectEnvironment(*tk.env)
		}
	}

	if cfg.TaskTimeout <= 0 {
		return session(taskCtx, client, target, tk.tc, cfg)
	}

	done := make(chan models.CaseResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- failure(tk.tc, models.FailureSession, fmt.Sprintf("panic during test case %s: %v", tk.tc.ID, r))
			}
		}()
		done <- session(taskCtx, client, target, tk.tc, cfg)
	}()
	select {
	case r := <-done:
		return r
	case <-taskCtx.Done():
		timedOut := failure(tk.tc, models.FailureSession,
			fmt.Sprintf("test case %s exceeded %s: %v", tk.tc.ID, cfg.TaskTimeout, taskCtx.Err()))
		<-done
		return timedOut
	}
}

// session connects, launches and runs one case on client.
func session(ctx context.Context, client automation.Client, target string, tc models.TestCase, cfg Config) models.CaseResult {
	ok, err := client.Connect(ctx)
	if err != nil {
		return failure(tc, models.FailureSession, fmt.Sprintf("failed to connect to automation backend: %v", err))
	}
	if !ok {
		return failure(tc, models.FailureSession, "failed to connect to automation backend")
	}

	ok, err = client.Launch(ctx, target)
	if err != nil {
		return failure(tc, models.FailureLaunch, fmt.Sprintf("failed to launch %s: %v", target, err))
	}
	if !ok {
		return failure(tc, models.FailureLaunch, fmt.Sprintf("failed to launch %s", target))
	}

	return automation.RunCase(ctx, client, tc, automation.CaseOptions{ScreenshotDir: cfg.ScreenshotDir})
}

func failure(tc models.TestCase, kind models.FailureKind, msg string) models.CaseResult {
	return models.CaseResult{
		ID:   tc.ID,
		Name: tc.Name,
		Failure: &models.Failure{
			CaseID:   tc.ID,
			CaseName: tc.Name,
			Kind:     kind,
			Error:    msg,
		},
	}
}

// Aggregate sums constituent results and concatenates their failures.
// The aggregate passes iff no check failed; no results is a pass with
// zero checks.
func Aggregate(results []models.Result) models.Result {
	agg := models.Result{}
	for _, r := range results {
		agg.TotalChecks += r.TotalChecks
		agg.PassedChecks += r.PassedChecks
		agg.FailedChecks += r.FailedChecks
		agg.Failures = append(agg.Failures, r.Failures...)
		agg.Screenshots = append(agg.Screenshots, r.Screenshots...)
		agg.Duration += r.Duration
	}
	agg.Passed = agg.FailedChecks == 0
	return agg
}
