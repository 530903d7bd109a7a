package validation

import (
	"context"

	"github.com/ShayCichocki/tiergate/internal/automation"
	"github.com/ShayCichocki/tiergate/internal/depth"
	"github.com/ShayCichocki/tiergate/internal/feature"
	"github.com/ShayCichocki/tiergate/internal/fullsuite"
	"github.com/ShayCichocki/tiergate/internal/logging"
	"github.com/ShayCichocki/tiergate/pkg/models"
)

// RequiredConfig contains the minimal required configuration for an Orchestrator.
// All fields are required and have no defaults.
type RequiredConfig struct {
	// ProjectRoot is where per-project config, screenshots and logs live.
	ProjectRoot string
	// Factory creates a fresh automation client per session.
	Factory automation.Factory
}

// Recorder persists completed runs. internal/state implements it.
type Recorder interface {
	RecordRun(ctx context.Context, metrics models.Metrics, result models.Result) (string, error)
}

// Option configures an Orchestrator. Use With* functions to create Options.
type Option func(*orchestratorOptions)

type orchestratorOptions struct {
	depthConfig *depth.Config
	mappings    []feature.Mapping
	mappingsSet bool
	logger      *logging.Logger
	fullSuite   *fullsuite.Config
	events      *EventEmitter
	recorder    Recorder
}

// WithDepthConfig overrides the project's validation-depth file.
func WithDepthConfig(cfg *depth.Config) Option {
	return func(o *orchestratorOptions) { o.depthConfig = cfg }
}

// WithMappings overrides the project's feature mappings.
func WithMappings(m []feature.Mapping) Option {
	return func(o *orchestratorOptions) {
		o.mappings = m
		o.mappingsSet = true
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(o *orchestratorOptions) { o.logger = l }
}

// WithFullSuiteConfig overrides the FULL depth defaults.
func WithFullSuiteConfig(cfg fullsuite.Config) Option {
	return func(o *orchestratorOptions) { o.fullSuite = &cfg }
}

// WithEvents sets the emitter progress events are sent to.
func WithEvents(e *EventEmitter) Option {
	return func(o *orchestratorOptions) { o.events = e }
}

// WithRecorder persists every completed run.
func WithRecorder(r Recorder) Option {
	return func(o *orchestratorOptions) { o.recorder = r }
}
