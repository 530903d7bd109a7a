// Package depth selects how much end-to-end validation a tier receives.
package depth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ShayCichocki/tiergate/internal/config"
	"github.com/ShayCichocki/tiergate/internal/logging"
	"github.com/ShayCichocki/tiergate/pkg/models"
)

// Policy decides what FEATURE depth runs when no changed paths are known.
type Policy string

const (
	// PolicyAll runs the unfiltered suite.
	PolicyAll Policy = "all"
	// PolicyCritical runs only critical cases.
	PolicyCritical Policy = "critical"
)

// Config assigns a depth to each tier and a timeout to each depth.
type Config struct {
	SimpleDepth   models.Depth `mapstructure:"simple_depth" json:"simple_depth"`
	StandardDepth models.Depth `mapstructure:"standard_depth" json:"standard_depth"`
	ComplexDepth  models.Depth `mapstructure:"complex_depth" json:"complex_depth"`
	// ForceDepth, when set, wins over every tier.
	ForceDepth models.Depth `mapstructure:"force_depth" json:"force_depth,omitempty"`

	// Timeouts in seconds.
	SmokeTimeout   int `mapstructure:"smoke_timeout" json:"smoke_timeout"`
	FeatureTimeout int `mapstructure:"feature_timeout" json:"feature_timeout"`
	FullTimeout    int `mapstructure:"full_timeout" json:"full_timeout"`

	FeatureWithoutChanges Policy `mapstructure:"feature_without_changes" json:"feature_without_changes"`
}

// DefaultConfig returns the stock tier assignment and timeouts.
func DefaultConfig() *Config {
	return &Config{
		SimpleDepth:           models.DepthSmoke,
		StandardDepth:         models.DepthFeature,
		ComplexDepth:          models.DepthFull,
		SmokeTimeout:          60,
		FeatureTimeout:        300,
		FullTimeout:           1800,
		FeatureWithoutChanges: PolicyAll,
	}
}

// Resolve picks the depth for tier and returns it with its timeout in
// seconds. A forced depth bypasses the tier lookup. Unknown or empty tiers
// get FEATURE. A nil config means defaults.
func Resolve(tier string, cfg *Config) (models.Depth, int) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	if cfg.ForceDepth.Valid() {
		return cfg.ForceDepth, Timeout(cfg.ForceDepth, cfg)
	}

	var d models.Depth
	switch models.Tier(tier).Canonical() {
	case models.TierSimple:
		d = cfg.SimpleDepth
	case models.TierStandard:
		d = cfg.StandardDepth
	case models.TierComplex:
		d = cfg.ComplexDepth
	}
	if !d.Valid() {
		d = models.DepthFeature
	}
	return d, Timeout(d, cfg)
}

// Timeout returns the timeout in seconds for d. Unknown depths get the
// feature timeout.
func Timeout(d models.Depth, cfg *Config) int {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	def := DefaultConfig()
	pick := func(v, fallback int) int {
		if v > 0 {
			return v
		}
		return fallback
	}
	switch d {
	case models.DepthSmoke:
		return pick(cfg.SmokeTimeout, def.SmokeTimeout)
	case models.DepthFull:
		return pick(cfg.FullTimeout, def.FullTimeout)
	default:
		return pick(cfg.FeatureTimeout, def.FeatureTimeout)
	}
}

// Validate reports depths and policies that are set but not recognised.
func (c *Config) Validate() error {
	var errs []error
	check := func(field string, d models.Depth) {
		if d != "" && !d.Valid() {
			errs = append(errs, fmt.Errorf("%s: invalid depth %q", field, d))
		}
	}
	check("simple_depth", c.SimpleDepth)
	check("standard_depth", c.StandardDepth)
	check("complex_depth", c.ComplexDepth)
	check("force_depth", c.ForceDepth)
	if c.FeatureWithoutChanges != "" && c.FeatureWithoutChanges != PolicyAll && c.FeatureWithoutChanges != PolicyCritical {
		errs = append(errs, fmt.Errorf("feature_without_changes: invalid policy %q", c.FeatureWithoutChanges))
	}
	return errors.Join(errs...)
}

// normalize lowercases depth names so files may use SMOKE or Smoke.
func (c *Config) normalize() {
	lower := func(d *models.Depth) { *d = models.Depth(strings.ToLower(strings.TrimSpace(string(*d)))) }
	lower(&c.SimpleDepth)
	lower(&c.StandardDepth)
	lower(&c.ComplexDepth)
	lower(&c.ForceDepth)
	c.FeatureWithoutChanges = Policy(strings.ToLower(strings.TrimSpace(string(c.FeatureWithoutChanges))))
	if c.FeatureWithoutChanges == "" {
		c.FeatureWithoutChanges = PolicyAll
	}
}

// LoadConfig reads .tiergate/validation-depth from the project. A missing
// file yields defaults silently; an unreadable or invalid one logs a
// warning and yields defaults.
func LoadConfig(projectRoot string, log *logging.Logger) *Config {
	cfg := DefaultConfig()
	path, err := config.LoadProjectFile(projectRoot, config.DepthFile, cfg)
	if err != nil {
		if !errors.Is(err, config.ErrProjectFileNotFound) {
			log.Warn("ignoring validation depth config: %v", err)
		}
		return DefaultConfig()
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		log.Warn("ignoring invalid validation depth config %s: %v", path, err)
		return DefaultConfig()
	}
	log.Debug("loaded validation depth config from %s", path)
	return cfg
}
