package automation

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/ShayCichocki/tiergate/pkg/models"
)

const (
	// maxDOMSnapshot caps the DOM captured on failure.
	maxDOMSnapshot = 10000
	// ipcCaptureLimit is how many IPC messages are requested on failure.
	ipcCaptureLimit = 20
	// ipcKeep is how many IPC messages are kept in the failure context.
	ipcKeep = 10
)

// CaseOptions controls failure capture for RunCase.
type CaseOptions struct {
	// ScreenshotDir receives <case-id>.png on failure. Empty disables screenshots.
	ScreenshotDir string
}

// RunCase executes every step of tc in order and reports the outcome.
// It never returns an error: configuration errors, assertion mismatches,
// backend errors and panics all become a failed CaseResult.
func RunCase(ctx context.Context, client Client, tc models.TestCase, opts CaseOptions) (result models.CaseResult) {
	start := time.Now()
	result = models.CaseResult{ID: tc.ID, Name: tc.Name}

	if tc.Skip {
		result.Passed = true
		result.Skipped = true
		return result
	}

	history := make([]models.StepRecord, 0, len(tc.Steps))

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic during test case %s: %v\n%s", tc.ID, r, debug.Stack())
			result = failedCase(ctx, client, tc, history, err, opts)
			result.Duration = time.Since(start)
		}
	}()

	for i, step := range tc.Steps {
		history = append(history, models.StepRecord{
			Step:     i + 1,
			Action:   step.Action,
			Selector: step.Selector,
			Value:    step.Value,
			Status:   "executing",
		})

		if err := ExecuteStep(ctx, client, i+1, step); err != nil {
			history[len(history)-1].Status = "failed"
			history[len(history)-1].Error = err.Error()
			result = failedCase(ctx, client, tc, history, err, opts)
			result.Duration = time.Since(start)
			return result
		}
		history[len(history)-1].Status = "completed"
	}

	result.Passed = true
	result.Duration = time.Since(start)
	return result
}

// failedCase builds a failed result and captures whatever context the
// backend can offer. Capture errors are swallowed.
func failedCase(ctx context.Context, client Client, tc models.TestCase, history []models.StepRecord, err error, opts CaseOptions) models.CaseResult {
	failure := &models.Failure{
		CaseID:   tc.ID,
		CaseName: tc.Name,
		Kind:     FailureKindOf(err),
		Error:    err.Error(),
		History:  history,
	}

	if snap, ok := client.(DOMSnapshotter); ok {
		if dom, derr := snap.DOMSnapshot(ctx); derr == nil && dom != "" {
			if len(dom) > maxDOMSnapshot {
				dom = dom[:maxDOMSnapshot]
			}
			failure.DOMSnapshot = dom
		}
	}

	if desktop, ok := client.(DesktopClient); ok {
		failure.Context = captureDesktopContext(ctx, desktop)
	}

	if opts.ScreenshotDir != "" {
		if path, serr := captureScreenshot(ctx, client, opts.ScreenshotDir, tc.ID); serr == nil && path != "" {
			if failure.Context == nil {
				failure.Context = make(map[string]any)
			}
			failure.Context["screenshot"] = path
		}
	}

	return models.CaseResult{ID: tc.ID, Name: tc.Name, Passed: false, Failure: failure}
}

func captureDesktopContext(ctx context.Context, desktop DesktopClient) map[string]any {
	out := make(map[string]any)
	if ws, err := desktop.WindowState(ctx); err == nil {
		out["window_state"] = ws
	}
	if state, err := desktop.AppState(ctx); err == nil {
		out["app_state"] = state
	}
	if msgs, err := desktop.IPCMessages(ctx, ipcCaptureLimit); err == nil {
		if len(msgs) > ipcKeep {
			msgs = msgs[:ipcKeep]
		}
		out["ipc_messages"] = msgs
	}
	return out
}

func captureScreenshot(ctx context.Context, client Client, dir, caseID string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, caseID+".png")
	ok, err := client.Screenshot(ctx, path)
	if err != nil || !ok {
		return "", err
	}
	return path, nil
}

// ScreenshotDir returns the project's failure screenshot directory.
func ScreenshotDir(projectRoot string) string {
	return filepath.Join(projectRoot, ".tiergate", "screenshots")
}
