// Package smoke runs four fixed health checks against a launched target.
//
// The checks are independent of any test suite:
//  1. app_loads: the target launches
//  2. main_page_renders: a root element is visible
//  3. console_errors: the backend reports no console errors
//  4. health_check: <target>/health answers 200 (http targets only)
package smoke

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ShayCichocki/tiergate/internal/automation"
	"github.com/ShayCichocki/tiergate/pkg/models"
)

// Check names, in execution order.
const (
	CheckAppLoads   = "app_loads"
	CheckMainPage   = "main_page_renders"
	CheckConsole    = "console_errors"
	CheckHealth     = "health_check"
	maxConsoleLines = 5
)

// RootSelectors are tried in order; the first visible one satisfies check 2.
var RootSelectors = []string{"body", "#root", "#app", "[data-testid='app']", "main"}

// Result holds the outcome of each smoke check.
type Result struct {
	AppLoads          bool
	MainPageRenders   bool
	NoConsoleErrors   bool
	HealthCheckPassed bool

	// RootSelector is the selector that satisfied the render check.
	RootSelector string
	// HealthStatus is the health endpoint status, 0 when not checked.
	HealthStatus int
	// Errors holds one line per problem found, in check order.
	Errors   []string
	Duration time.Duration

	failures map[string]string
}

// Run launches target on an already connected client and performs the
// four checks. It never returns an error and never panics: a problem in
// one check is recorded against that check and the rest still run.
func Run(ctx context.Context, client automation.Client, target string) Result {
	start := time.Now()
	r := Result{failures: make(map[string]string)}

	// 1. App loads.
	ok, err := guard(func() (bool, error) { return client.Launch(ctx, target) })
	switch {
	case err != nil:
		r.fail(CheckAppLoads, fmt.Sprintf("App failed to load: %v", err))
	case !ok:
		r.fail(CheckAppLoads, "App failed to load")
	default:
		r.AppLoads = true
	}

	// 2. Main page renders.
	if r.AppLoads {
		for _, sel := range RootSelectors {
			visible, err := guard(func() (bool, error) { return client.AssertVisible(ctx, sel) })
			if err == nil && visible {
				r.MainPageRenders = true
				r.RootSelector = sel
				break
			}
		}
		if !r.MainPageRenders {
			r.fail(CheckMainPage, "Main page did not render expected elements")
		}
	} else {
		r.fail(CheckMainPage, "Main page not checked: app did not load")
	}

	// 3. No console errors.
	r.NoConsoleErrors = true
	if reader, ok := client.(automation.ConsoleReader); ok {
		var lines []string
		_, err := guard(func() (bool, error) {
			var cerr error
			lines, cerr = reader.ConsoleErrors(ctx)
			return true, cerr
		})
		switch {
		case errors.Is(err, automation.ErrUnsupported):
		case err != nil:
			r.NoConsoleErrors = false
			r.fail(CheckConsole, fmt.Sprintf("Console error check failed: %v", err))
		case len(lines) > 0:
			r.NoConsoleErrors = false
			shown := lines
			if len(shown) > maxConsoleLines {
				shown = shown[:maxConsoleLines]
			}
			msgs := make([]string, len(shown))
			for i, l := range shown {
				msgs[i] = "Console error: " + l
			}
			r.failMany(CheckConsole, fmt.Sprintf("%d console errors detected", len(lines)), msgs)
		}
	}

	// 4. Health endpoint.
	r.HealthCheckPassed = true
	if fetcher, ok := client.(automation.HealthFetcher); ok && isHTTP(target) {
		url := strings.TrimRight(target, "/") + "/health"
		var status int
		_, err := guard(func() (bool, error) {
			var ferr error
			status, ferr = fetcher.FetchStatus(ctx, url)
			return true, ferr
		})
		if err == nil {
			r.HealthStatus = status
			if status != http.StatusOK {
				r.HealthCheckPassed = false
				r.fail(CheckHealth, fmt.Sprintf("Health check returned status %d", status))
			}
		}
	}

	r.Duration = time.Since(start)
	return r
}

// NotConnected is the result when no session could be opened. The app
// counts as not loaded; console and health are not checked.
func NotConnected(reason string) Result {
	r := Result{NoConsoleErrors: true, HealthCheckPassed: true}
	r.fail(CheckAppLoads, "App failed to load: "+reason)
	r.fail(CheckMainPage, "Main page not checked: app did not load")
	return r
}

func isHTTP(target string) bool {
	t := strings.ToLower(target)
	return strings.HasPrefix(t, "http://") || strings.HasPrefix(t, "https://")
}

// guard runs fn and converts a panic into an error.
func guard(fn func() (bool, error)) (ok bool, err error) {
	defer func() {
		if p := recover(); p != nil {
			ok, err = false, fmt.Errorf("panic: %v", p)
		}
	}()
	return fn()
}

func (r *Result) fail(check, msg string) {
	r.failMany(check, msg, []string{msg})
}

func (r *Result) failMany(check, summary string, lines []string) {
	if r.failures == nil {
		r.failures = make(map[string]string)
	}
	r.failures[check] = summary
	r.Errors = append(r.Errors, lines...)
}

// Passed reports whether all four checks passed.
func (r Result) Passed() bool {
	return r.AppLoads && r.MainPageRenders && r.NoConsoleErrors && r.HealthCheckPassed
}

// ToResult converts the smoke outcome into a validation result with
// exactly four checks.
func (r Result) ToResult() models.Result {
	checks := []struct {
		name   string
		passed bool
		dflt   string
	}{
		{CheckAppLoads, r.AppLoads, "App failed to load"},
		{CheckMainPage, r.MainPageRenders, "Main page did not render"},
		{CheckConsole, r.NoConsoleErrors, "Console errors detected"},
		{CheckHealth, r.HealthCheckPassed, "Health check failed"},
	}

	res := models.Result{TotalChecks: len(checks), Duration: r.Duration}
	for _, c := range checks {
		if c.passed {
			res.PassedChecks++
			continue
		}
		msg := r.failures[c.name]
		if msg == "" {
			msg = c.dflt
		}
		res.FailedChecks++
		res.Failures = append(res.Failures, models.Failure{
			Check: c.name,
			Kind:  models.FailureCheck,
			Error: msg,
		})
	}
	res.Passed = res.FailedChecks == 0
	res.Output = fmt.Sprintf("smoke: %d/%d checks passed", res.PassedChecks, res.TotalChecks)
	return res
}
