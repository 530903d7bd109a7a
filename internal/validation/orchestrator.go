// Package validation is the entry point for complexity-aware end-to-end
// validation. An Orchestrator maps a tier onto a depth, runs the matching
// strategy against the automation backend and reports a single result
// with metrics.
//
//	orch := validation.New(validation.RequiredConfig{
//	    ProjectRoot: root,
//	    Factory:     remote.Factory(endpoint, automation.KindWeb),
//	}, validation.WithLogger(log))
//	result, metrics := orch.RunForTier(ctx, "standard", suite, changed)
package validation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ShayCichocki/tiergate/internal/automation"
	"github.com/ShayCichocki/tiergate/internal/depth"
	"github.com/ShayCichocki/tiergate/internal/feature"
	"github.com/ShayCichocki/tiergate/internal/fullsuite"
	"github.com/ShayCichocki/tiergate/internal/logging"
	"github.com/ShayCichocki/tiergate/internal/smoke"
	"github.com/ShayCichocki/tiergate/pkg/models"
)

// closeTimeout bounds session cleanup after the run context is done.
const closeTimeout = 10 * time.Second

// DefaultFullSuiteConfig is what FULL depth runs with unless overridden:
// four workers across chromium and firefox.
func DefaultFullSuiteConfig() fullsuite.Config {
	return fullsuite.Config{
		Workers:          fullsuite.DefaultWorkers,
		Environments:     []string{"chromium", "firefox"},
		CrossEnvironment: true,
	}
}

// Orchestrator runs validation at the depth a tier calls for.
// It is safe for concurrent use; each RunForTier call owns its sessions.
type Orchestrator struct {
	projectRoot string
	factory     automation.Factory
	opts        orchestratorOptions
}

// New creates an Orchestrator.
func New(req RequiredConfig, opts ...Option) *Orchestrator {
	o := orchestratorOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logging.Nop()
	}
	if o.events != nil && o.events.log == nil {
		o.events.log = o.logger
	}
	return &Orchestrator{projectRoot: req.ProjectRoot, factory: req.Factory, opts: o}
}

func (o *Orchestrator) depthConfig() *depth.Config {
	if o.opts.depthConfig != nil {
		return o.opts.depthConfig
	}
	return depth.LoadConfig(o.projectRoot, o.opts.logger)
}

func (o *Orchestrator) mappings() []feature.Mapping {
	if o.opts.mappingsSet {
		return o.opts.mappings
	}
	return feature.LoadMappings(o.projectRoot, o.opts.logger)
}

func (o *Orchestrator) fullSuiteConfig() fullsuite.Config {
	if o.opts.fullSuite != nil {
		return *o.opts.fullSuite
	}
	return DefaultFullSuiteConfig()
}

// RunForTier validates suite at the depth tier resolves to. changed lists
// the paths touched by the change; nil or empty means unknown. It never
// returns an error: every problem ends up in the result.
func (o *Orchestrator) RunForTier(ctx context.Context, tier string, suite models.TestSuite, changed []string) (models.Result, models.Metrics) {
	start := time.Now()
	log := o.opts.logger

	cfg := o.depthConfig()
	d, timeoutSecs := depth.Resolve(tier, cfg)
	log.Info("running %s validation for %s tier (timeout %ds)", d, tier, timeoutSecs)
	o.opts.events.Emit(Event{Type: EventDepthResolved, Depth: d, Message: tier})

	runCtx, cancel := context.WithTimeout(ctx, time.Duration(timeoutSecs)*time.Second)
	defer cancel()

	var (
		result  models.Result
		skipped int
		envs    = 1
	)
	switch d {
	case models.DepthSmoke:
		result = o.runSmoke(runCtx, suite)
		skipped = len(suite.TestCases)
	case models.DepthFull:
		fcfg := o.fullSuiteConfig()
		fcfg.OnCaseStart = o.caseStarted
		fcfg.OnCaseDone = o.caseFinished
		fcfg.Logger = o.opts.logger
		envs = fcfg.EnvironmentCount()
		o.opts.events.Emit(Event{Type: EventPlanned, Depth: d, Total: len(suite.TestCases) * envs})
		result = fullsuite.Run(runCtx, suite, o.projectRoot, o.factory, fcfg)
	default:
		var executed int
		result, executed = o.runFeature(runCtx, suite, changed, cfg)
		skipped = len(suite.TestCases) - executed
	}
	result.Duration = time.Since(start)

	metrics := models.Metrics{
		Tier:             tier,
		Depth:            d,
		TestCount:        result.TotalChecks,
		PassedCount:      result.PassedChecks,
		FailedCount:      result.FailedChecks,
		SkippedCount:     skipped,
		Duration:         result.Duration,
		EnvironmentCount: envs,
	}
	o.logMetrics(metrics)

	if o.opts.recorder != nil {
		recCtx, recCancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
		if id, err := o.opts.recorder.RecordRun(recCtx, metrics, result); err != nil {
			log.Warn("failed to record run: %v", err)
		} else {
			log.Debug("recorded run %s", id)
		}
		recCancel()
	}

	o.opts.events.Emit(Event{Type: EventCompleted, Depth: d, Passed: result.Passed, Total: result.TotalChecks, Metrics: &metrics})
	return result, metrics
}

// runSmoke performs the four fixed checks in one session.
func (o *Orchestrator) runSmoke(ctx context.Context, suite models.TestSuite) models.Result {
	o.opts.events.Emit(Event{Type: EventPlanned, Depth: models.DepthSmoke, Total: 1})
	o.opts.events.Emit(Event{Type: EventCaseStarted, Depth: models.DepthSmoke, CaseID: "smoke", CaseName: "smoke checks", Total: 4})

	var sr smoke.Result
	client, err := o.newClient()
	if err != nil {
		sr = smoke.NotConnected(err.Error())
	} else {
		defer o.closeClient(ctx, client)
		sr = smokeSession(ctx, client, suite.AppURL)
	}

	res := sr.ToResult()
	o.opts.events.Emit(Event{Type: EventCaseFinished, Depth: models.DepthSmoke, CaseID: "smoke", CaseName: "smoke checks", Passed: res.Passed, Message: res.Output})
	return res
}

// runFeature filters the suite by the features the change touches and runs
// what is left sequentially in one session. It returns the result and the
// number of cases selected to run.
func (o *Orchestrator) runFeature(ctx context.Context, suite models.TestSuite, changed []string, cfg *depth.Config) (models.Result, int) {
	log := o.opts.logger
	selected := suite

	switch {
	case len(changed) > 0:
		mappings := o.mappings()
		features := feature.AffectedFeatures(changed, mappings)
		log.Info("%d changed files affect features: %v", len(changed), features)
		selected = feature.FilterByFeatures(suite, features, mappings)
	case cfg.FeatureWithoutChanges == depth.PolicyCritical:
		log.Info("no changed files specified, running critical tests only")
		selected = models.TestSuite{
			Name:        suite.Name + "-critical",
			Description: suite.Description,
			AppURL:      suite.AppURL,
			TestCases:   suite.CriticalCases(),
		}
	default:
		log.Info("no changed files specified, running all feature tests")
	}

	cases := selected.TestCases
	batchFailure := func(kind models.FailureKind, msg string) models.Result {
		n := max(len(cases), 1)
		return models.Result{
			TotalChecks:  n,
			FailedChecks: n,
			Failures: []models.Failure{{
				CaseID:   selected.Name,
				CaseName: "feature batch",
				Kind:     kind,
				Error:    msg,
			}},
		}
	}

	o.opts.events.Emit(Event{Type: EventPlanned, Depth: models.DepthFeature, Total: len(cases)})
	if len(cases) == 0 {
		return models.NewPassingResult("no feature tests selected"), 0
	}

	client, err := o.newClient()
	if err != nil {
		return batchFailure(models.FailureSession, err.Error()), len(cases)
	}
	defer o.closeClient(ctx, client)

	return o.featureSession(ctx, client, selected, batchFailure), len(cases)
}

// featureSession connects, launches and runs the selected cases on one
// client. A panic anywhere in the session becomes a batch failure.
func (o *Orchestrator) featureSession(ctx context.Context, client automation.Client, selected models.TestSuite, batchFailure func(models.FailureKind, string) models.Result) (res models.Result) {
	defer func() {
		if r := recover(); r != nil {
			o.opts.logger.Warn("feature session panicked: %v", r)
			res = batchFailure(models.FailureSession, fmt.Sprintf("automation session panicked: %v", r))
		}
	}()

	if reason := connect(ctx, client); reason != "" {
		return batchFailure(models.FailureSession, reason)
	}
	if reason := launch(ctx, client, selected.AppURL); reason != "" {
		return batchFailure(models.FailureLaunch, reason)
	}

	opts := automation.CaseOptions{ScreenshotDir: automation.ScreenshotDir(o.projectRoot)}
	results := make([]models.CaseResult, 0, len(selected.TestCases))
	for _, tc := range selected.TestCases {
		o.caseStarted(tc)
		r := automation.RunCase(ctx, client, tc, opts)
		o.caseFinished(r)
		results = append(results, r)
	}

	res = models.ResultFromCases(results)
	res.Output = fmt.Sprintf("feature: %d/%d cases passed", res.PassedChecks, res.TotalChecks)
	return res
}

// smokeSession connects and runs the smoke checks. A panic becomes a
// not-connected result.
func smokeSession(ctx context.Context, client automation.Client, target string) (sr smoke.Result) {
	defer func() {
		if r := recover(); r != nil {
			sr = smoke.NotConnected(fmt.Sprintf("automation session panicked: %v", r))
		}
	}()
	if reason := connect(ctx, client); reason != "" {
		return smoke.NotConnected(reason)
	}
	return smoke.Run(ctx, client, target)
}

func (o *Orchestrator) caseStarted(tc models.TestCase) {
	o.opts.events.Emit(Event{Type: EventCaseStarted, CaseID: tc.ID, CaseName: tc.Name})
}

func (o *Orchestrator) caseFinished(r models.CaseResult) {
	ev := Event{Type: EventCaseFinished, CaseID: r.ID, CaseName: r.Name, Passed: r.Passed}
	if r.Failure != nil {
		ev.Message = r.Failure.Error
	}
	o.opts.events.Emit(ev)
}

// newClient calls the factory, turning a nil client or a panic into an error.
func (o *Orchestrator) newClient() (client automation.Client, err error) {
	defer func() {
		if r := recover(); r != nil {
			client, err = nil, fmt.Errorf("client factory panicked: %v", r)
		}
	}()
	if o.factory == nil {
		return nil, fmt.Errorf("no automation client factory configured")
	}
	client = o.factory()
	if client == nil {
		return nil, fmt.Errorf("client factory returned nil")
	}
	return client, nil
}

func (o *Orchestrator) closeClient(ctx context.Context, client automation.Client) {
	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			o.opts.logger.Warn("closing automation client panicked: %v", r)
		}
	}()
	if err := client.Close(closeCtx); err != nil {
		o.opts.logger.Debug("closing automation client: %v", err)
	}
}

// connect returns a failure reason, or "" when the session is open.
func connect(ctx context.Context, client automation.Client) string {
	ok, err := client.Connect(ctx)
	switch {
	case err != nil:
		return fmt.Sprintf("failed to connect to automation backend: %v", err)
	case !ok:
		return "failed to connect to automation backend"
	}
	return ""
}

// launch returns a failure reason, or "" when the target is up.
func launch(ctx context.Context, client automation.Client, target string) string {
	ok, err := client.Launch(ctx, target)
	switch {
	case err != nil:
		return fmt.Sprintf("failed to launch %s: %v", target, err)
	case !ok:
		return fmt.Sprintf("failed to launch %s", target)
	}
	return ""
}

// logMetrics writes the metrics line, a JSON copy for structured sinks and
// a verdict.
func (o *Orchestrator) logMetrics(m models.Metrics) {
	log := o.opts.logger
	log.Info("validation completed %s", m)
	if data, err := json.Marshal(m); err == nil {
		log.Debug("metrics %s", data)
	}
	if m.SkippedCount > 0 {
		log.Info("skipped %d tests due to depth filtering", m.SkippedCount)
	}
	if m.FailedCount > 0 {
		log.Warn("validation FAILED: %d/%d tests failed (%.1f%% failure rate)",
			m.FailedCount, m.TestCount, (1-m.PassRate())*100)
	} else {
		log.Info("validation PASSED: all %d tests passed", m.TestCount)
	}
}
