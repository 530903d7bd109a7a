// Package fallback decides what a run reports when the automation backend
// is unavailable. Backend unavailability never becomes a test failure:
// every mode except FAIL returns a passing result with zero checks.
package fallback

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ShayCichocki/tiergate/internal/availability"
	"github.com/ShayCichocki/tiergate/internal/config"
	"github.com/ShayCichocki/tiergate/internal/errcatalog"
	"github.com/ShayCichocki/tiergate/internal/exec"
	"github.com/ShayCichocki/tiergate/internal/logging"
	"github.com/ShayCichocki/tiergate/pkg/models"
)

// Mode is the configured reaction to an unavailable backend.
type Mode string

const (
	// ModeFail halts the build.
	ModeFail Mode = "fail"
	// ModeWarn continues with a warning and remediation text.
	ModeWarn Mode = "warn"
	// ModeSkip continues silently.
	ModeSkip Mode = "skip"
	// ModeReduced runs local unit tests and lint instead.
	ModeReduced Mode = "reduced"
)

// Valid returns true if the mode is a known value.
func (m Mode) Valid() bool {
	switch m {
	case ModeFail, ModeWarn, ModeSkip, ModeReduced:
		return true
	default:
		return false
	}
}

// Validation run kinds recorded in Result.
const (
	RunNone    = "none"
	RunReduced = "reduced"
)

// SkipOutput is the output of the synthetic result in SKIP mode.
const SkipOutput = "E2E validation skipped - MCP unavailable"

// DefaultCommandTimeout bounds each substitute check.
const DefaultCommandTimeout = 10 * time.Minute

// Config selects the fallback behaviour. It is read from
// .tiergate/mcp-fallback.{yaml,json}.
type Config struct {
	Mode          Mode `mapstructure:"mode" json:"mode"`
	RunUnitTests  bool `mapstructure:"run_unit_tests" json:"run_unit_tests"`
	RunLint       bool `mapstructure:"run_lint" json:"run_lint"`
	MarkAsPartial bool `mapstructure:"mark_as_partial" json:"mark_as_partial"`
	// UnitTestCommand and LintCommand override detection. They run through sh -c.
	UnitTestCommand string        `mapstructure:"unit_test_command" json:"unit_test_command,omitempty"`
	LintCommand     string        `mapstructure:"lint_command" json:"lint_command,omitempty"`
	CommandTimeout  time.Duration `mapstructure:"command_timeout" json:"command_timeout,omitempty"`
}

// DefaultConfig returns WARN with both substitute checks and partial marking on.
func DefaultConfig() *Config {
	return &Config{
		Mode:           ModeWarn,
		RunUnitTests:   true,
		RunLint:        true,
		MarkAsPartial:  true,
		CommandTimeout: DefaultCommandTimeout,
	}
}

// LoadConfig reads the project's fallback config. Missing files yield
// defaults; invalid ones log a warning and yield defaults.
func LoadConfig(projectRoot string, log *logging.Logger) *Config {
	cfg := DefaultConfig()
	path, err := config.LoadProjectFile(projectRoot, config.FallbackFile, cfg)
	if err != nil {
		if errors.Is(err, config.ErrProjectFileNotFound) {
			log.Debug("no fallback config, using defaults")
		} else {
			log.Warn("invalid fallback config: %v, using defaults", err)
		}
		return DefaultConfig()
	}
	cfg.Mode = Mode(strings.ToLower(strings.TrimSpace(string(cfg.Mode))))
	if !cfg.Mode.Valid() {
		log.Warn("invalid fallback mode %q in %s, using defaults", cfg.Mode, path)
		return DefaultConfig()
	}
	return cfg
}

// Result records what the fallback did.
type Result struct {
	UsedFallback bool   `json:"used_fallback"`
	Reason       string `json:"reason"`
	// ValidationRun is "none" or "reduced".
	ValidationRun   string `json:"validation_run"`
	UnitTestsPassed *bool  `json:"unit_tests_passed,omitempty"`
	LintPassed      *bool  `json:"lint_passed,omitempty"`
	// Partial marks the build as only partially validated.
	Partial bool `json:"partial,omitempty"`
	// Commands lists the substitute commands that actually ran.
	Commands []string `json:"commands,omitempty"`
}

// Handler applies the fallback policy.
type Handler struct {
	Runner exec.CommandRunner
	Logger *logging.Logger
}

// NewHandler creates a handler that runs real commands.
func NewHandler(log *logging.Logger) *Handler {
	return &Handler{Runner: exec.NewRunner(), Logger: log}
}

// Handle converts an unavailable backend into an outcome. A nil result
// means the caller must halt (FAIL mode). A nil cfg is loaded from the
// project.
func (h *Handler) Handle(ctx context.Context, avail availability.Availability, projectRoot string, cfg *Config) (*models.Result, Result) {
	log := h.Logger
	if cfg == nil {
		cfg = LoadConfig(projectRoot, log)
	}

	log.Warn("automation backend unavailable: %s. Using fallback mode: %s", avail.Message, cfg.Mode)

	fr := Result{Reason: avail.Message, ValidationRun: RunNone}

	switch cfg.Mode {
	case ModeFail:
		return nil, fr
	case ModeSkip:
		fr.UsedFallback = true
		fr.Partial = cfg.MarkAsPartial
		res := models.NewPassingResult(SkipOutput)
		return &res, fr
	}

	fr.UsedFallback = true
	fr.Partial = cfg.MarkAsPartial
	if cfg.Mode == ModeReduced {
		fr.ValidationRun = RunReduced
		if cfg.RunUnitTests {
			passed, cmd := h.runCheck(ctx, projectRoot, cfg.UnitTestCommand, detectTestCommand(projectRoot), cfg.CommandTimeout)
			fr.UnitTestsPassed = &passed
			if cmd != "" {
				fr.Commands = append(fr.Commands, cmd)
			}
		}
		if cfg.RunLint {
			passed, cmd := h.runCheck(ctx, projectRoot, cfg.LintCommand, detectLintCommand(h.Runner, projectRoot), cfg.CommandTimeout)
			fr.LintPassed = &passed
			if cmd != "" {
				fr.Commands = append(fr.Commands, cmd)
			}
		}
	}

	res := models.NewPassingResult(errcatalog.Format(avail.Reason, true))
	return &res, fr
}

// runCheck runs the explicit command, else the detected one. Nothing to
// run counts as passed. It returns the outcome and the command line used.
func (h *Handler) runCheck(ctx context.Context, root, explicit string, detected []string, timeout time.Duration) (bool, string) {
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var (
		out  []byte
		err  error
		line string
	)
	switch {
	case strings.TrimSpace(explicit) != "":
		line = explicit
		out, err = h.Runner.RunShell(ctx, root, explicit)
	case len(detected) > 0:
		line = strings.Join(detected, " ")
		out, err = h.Runner.Run(ctx, root, detected[0], detected[1:]...)
	default:
		return true, ""
	}

	if err != nil {
		h.Logger.Info("fallback check %q failed: %v\n%s", line, err, tail(out, 20))
		return false, line
	}
	h.Logger.Debug("fallback check %q passed", line)
	return true, line
}

func detectTestCommand(root string) []string {
	switch {
	case exists(root, "go.mod"):
		return []string{"go", "test", "./..."}
	case exists(root, "pytest.ini"), exists(root, "tests"):
		return []string{"pytest", "-x", "-q"}
	case exists(root, "package.json"):
		return []string{"npm", "test"}
	case exists(root, "Cargo.toml"):
		return []string{"cargo", "test"}
	}
	return nil
}

func detectLintCommand(r exec.CommandRunner, root string) []string {
	switch {
	case exists(root, "go.mod"):
		if r.LookPath("golangci-lint") {
			return []string{"golangci-lint", "run"}
		}
		return []string{"go", "vet", "./..."}
	case exists(root, "package.json"):
		return []string{"npm", "run", "lint"}
	case exists(root, "pyproject.toml"):
		return []string{"ruff", "check", "."}
	case exists(root, "Cargo.toml"):
		return []string{"cargo", "clippy"}
	}
	return nil
}

func exists(root, name string) bool {
	_, err := os.Stat(filepath.Join(root, name))
	return err == nil
}

// tail returns the last n lines of out.
func tail(out []byte, n int) string {
	lines := strings.Split(strings.TrimRight(string(out), "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}

// Summary renders the fallback outcome for terminal output.
func (r Result) Summary() string {
	if !r.UsedFallback {
		return fmt.Sprintf("no fallback: %s", r.Reason)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "fallback used (%s validation): %s", r.ValidationRun, r.Reason)
	if r.UnitTestsPassed != nil {
		fmt.Fprintf(&sb, "\n  unit tests: %s", passFail(*r.UnitTestsPassed))
	}
	if r.LintPassed != nil {
		fmt.Fprintf(&sb, "\n  lint: %s", passFail(*r.LintPassed))
	}
	if r.Partial {
		sb.WriteString("\n  build marked as partially validated")
	}
	return sb.String()
}

func passFail(ok bool) string {
	if ok {
		return "passed"
	}
	return "failed"
}
