// Package config handles configuration loading and management for tiergate.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to environment overrides, e.g. TIERGATE_BACKEND_ENDPOINT.
const EnvPrefix = "TIERGATE"

// Config holds all global configuration for tiergate.
type Config struct {
	Backend      BackendConfig      `mapstructure:"backend"`
	FullSuite    FullSuiteConfig    `mapstructure:"full_suite"`
	Availability AvailabilityConfig `mapstructure:"availability"`
	Git          GitConfig          `mapstructure:"git"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// BackendConfig describes how to reach the automation backend.
type BackendConfig struct {
	// Endpoint is the base URL of the automation bridge.
	Endpoint string `mapstructure:"endpoint"`
	// Kind is web or desktop.
	Kind string `mapstructure:"kind"`
	// Token is sent as a bearer token. ${VAR} references are expanded.
	Token string `mapstructure:"token"`
	// ConnectTimeout bounds a single backend call.
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// FullSuiteConfig holds full-depth execution settings.
type FullSuiteConfig struct {
	Workers          int      `mapstructure:"workers"`
	Environments     []string `mapstructure:"environments"`
	CrossEnvironment bool     `mapstructure:"cross_environment"`
	// TaskTimeout hard-limits one case session. Zero disables it.
	TaskTimeout time.Duration `mapstructure:"task_timeout"`
}

// AvailabilityConfig holds backend health cache settings.
type AvailabilityConfig struct {
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// GitConfig holds changed-file discovery settings.
type GitConfig struct {
	BaseRef string `mapstructure:"base_ref"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Verbose bool `mapstructure:"verbose"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (TIERGATE_*)
// 2. Project config (.tiergate.yaml in current directory or parent)
// 3. User config (~/.config/tiergate/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(getUserConfigDir())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	bindEnv(v)

	return unmarshal(v)
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	bindEnv(v)

	return unmarshal(v)
}

func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

func unmarshal(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	// A comma separated env override arrives as a single element.
	if len(cfg.FullSuite.Environments) == 1 && strings.Contains(cfg.FullSuite.Environments[0], ",") {
		cfg.FullSuite.Environments = splitList(cfg.FullSuite.Environments[0])
	}
	cfg.Backend.Token = os.ExpandEnv(cfg.Backend.Token)
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Save writes the configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(filepath.Join(userConfigDir, "config.yaml"))

	v.Set("backend.endpoint", cfg.Backend.Endpoint)
	v.Set("backend.kind", cfg.Backend.Kind)
	v.Set("backend.token", cfg.Backend.Token)
	v.Set("backend.connect_timeout", cfg.Backend.ConnectTimeout.String())
	v.Set("full_suite.workers", cfg.FullSuite.Workers)
	v.Set("full_suite.environments", cfg.FullSuite.Environments)
	v.Set("full_suite.cross_environment", cfg.FullSuite.CrossEnvironment)
	v.Set("full_suite.task_timeout", cfg.FullSuite.TaskTimeout.String())
	v.Set("availability.cache_ttl", cfg.Availability.CacheTTL.String())
	v.Set("git.base_ref", cfg.Git.BaseRef)
	v.Set("logging.verbose", cfg.Logging.Verbose)

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("backend.endpoint", d.Backend.Endpoint)
	v.SetDefault("backend.kind", d.Backend.Kind)
	v.SetDefault("backend.token", "")
	v.SetDefault("backend.connect_timeout", d.Backend.ConnectTimeout.String())

	v.SetDefault("full_suite.workers", d.FullSuite.Workers)
	v.SetDefault("full_suite.environments", d.FullSuite.Environments)
	v.SetDefault("full_suite.cross_environment", d.FullSuite.CrossEnvironment)
	v.SetDefault("full_suite.task_timeout", "0s")

	v.SetDefault("availability.cache_ttl", d.Availability.CacheTTL.String())

	v.SetDefault("git.base_ref", d.Git.BaseRef)

	v.SetDefault("logging.verbose", false)
}

// getUserConfigDir returns the XDG config directory for tiergate.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "tiergate")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "tiergate")
	}
	return filepath.Join(home, ".config", "tiergate")
}

// findProjectConfig searches for .tiergate.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".tiergate.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Backend: BackendConfig{
			Endpoint:       "http://localhost:9222",
			Kind:           "web",
			ConnectTimeout: 30 * time.Second,
		},
		FullSuite: FullSuiteConfig{
			Workers:          4,
			Environments:     []string{"chromium", "firefox"},
			CrossEnvironment: true,
		},
		Availability: AvailabilityConfig{
			CacheTTL: 60 * time.Second,
		},
		Git: GitConfig{
			BaseRef: "HEAD",
		},
	}
}
