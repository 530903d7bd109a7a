package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/ShayCichocki/tiergate/internal/fallback"
	"github.com/ShayCichocki/tiergate/pkg/models"
)

var (
	passColor = color.New(color.FgGreen, color.Bold)
	failColor = color.New(color.FgRed, color.Bold)
	warnColor = color.New(color.FgYellow)
	dimColor  = color.New(color.Faint)
)

// report is the --json form of a run.
type report struct {
	Result   models.Result    `json:"result"`
	Metrics  *models.Metrics  `json:"metrics,omitempty"`
	Fallback *fallback.Result `json:"fallback,omitempty"`
}

func writeJSON(w io.Writer, r report) error {
	return encodeJSON(w, r)
}

// printResult renders a run for the terminal. m is nil for fallback results.
func printResult(w io.Writer, res models.Result, m *models.Metrics) {
	if res.Passed {
		passColor.Fprint(w, "✓ Validation PASSED")
	} else {
		failColor.Fprint(w, "✗ Validation FAILED")
	}
	if m != nil {
		dimColor.Fprintf(w, "  (%s depth, %s tier)", m.Depth, m.Tier)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "  checks: %d passed, %d failed of %d\n", res.PassedChecks, res.FailedChecks, res.TotalChecks)
	if m != nil {
		fmt.Fprintf(w, "  skipped: %d  environments: %d  pass rate: %.0f%%  duration: %s\n",
			m.SkippedCount, m.EnvironmentCount, m.PassRate()*100, m.Duration.Round(time.Millisecond))
	}
	if res.Output != "" {
		for _, line := range strings.Split(res.Output, "\n") {
			fmt.Fprintf(w, "  %s\n", line)
		}
	}

	if len(res.Failures) > 0 {
		fmt.Fprintln(w, "\nFailures:")
		for _, f := range res.Failures {
			fmt.Fprintf(w, "  %s %s\n", failColor.Sprint("✗"), failureTitle(f))
			fmt.Fprintf(w, "    %s\n", f.Error)
			if n := len(f.History); n > 0 {
				last := f.History[n-1]
				dimColor.Fprintf(w, "    last step %d: %s %s (%s)\n", last.Step, last.Action, last.Selector, last.Status)
			}
		}
	}
	if len(res.Screenshots) > 0 {
		fmt.Fprintln(w, "\nScreenshots:")
		for _, s := range res.Screenshots {
			fmt.Fprintf(w, "  %s\n", s)
		}
	}
}

func failureTitle(f models.Failure) string {
	name := f.CaseName
	switch {
	case f.Check != "":
		name = f.Check
	case name == "":
		name = f.CaseID
	case f.CaseID != "" && f.CaseID != name:
		name = fmt.Sprintf("%s (%s)", name, f.CaseID)
	}
	return fmt.Sprintf("[%s] %s", f.Kind, name)
}

// printFallback renders what the fallback handler did.
func printFallback(w io.Writer, fr fallback.Result) {
	warnColor.Fprintf(w, "⚠ %s\n", fr.Summary())
}
