package automation_test

import (
	"context"
	"strings"
	"testing"

	"github.com/ShayCichocki/tiergate/internal/automation"
	"github.com/ShayCichocki/tiergate/internal/automation/automationtest"
	"github.com/ShayCichocki/tiergate/pkg/models"
)

func loginCase() models.TestCase {
	return models.TestCase{
		ID:   "login",
		Name: "Login works",
		Steps: []models.TestStep{
			{Action: models.ActionType, Selector: "#user", Value: "alice"},
			{Action: models.ActionClick, Selector: "#submit"},
			{Action: models.ActionAssertVisible, Selector: ".dashboard"},
		},
	}
}

func TestRunCase_Passes(t *testing.T) {
	client := automationtest.NewClient()
	res := automation.RunCase(context.Background(), client, loginCase(), automation.CaseOptions{})

	if !res.Passed || res.Failure != nil {
		t.Fatalf("RunCase() = %+v, want passed", res)
	}
	if res.ID != "login" {
		t.Errorf("ID = %q, want login", res.ID)
	}
	if got := len(client.Calls()); got != 3 {
		t.Errorf("executed %d steps, want 3", got)
	}
}

func TestRunCase_Skipped(t *testing.T) {
	tc := loginCase()
	tc.Skip = true
	client := automationtest.NewClient()

	res := automation.RunCase(context.Background(), client, tc, automation.CaseOptions{})
	if !res.Passed || !res.Skipped {
		t.Errorf("RunCase() = %+v, want passed and skipped", res)
	}
	if len(client.Calls()) != 0 {
		t.Errorf("skipped case executed steps: %v", client.Calls())
	}
}

func TestRunCase_AssertionFailureStopsCase(t *testing.T) {
	tc := loginCase()
	tc.Steps = append(tc.Steps, models.TestStep{Action: models.ActionClick, Selector: "#logout"})
	client := automationtest.NewClient().WithHidden(".dashboard")

	res := automation.RunCase(context.Background(), client, tc, automation.CaseOptions{})
	if res.Passed {
		t.Fatal("RunCase() passed, want failure")
	}
	if res.Failure.Kind != models.FailureAssertion {
		t.Errorf("Kind = %v, want %v", res.Failure.Kind, models.FailureAssertion)
	}
	if len(res.Failure.History) != 3 {
		t.Fatalf("history has %d entries, want 3", len(res.Failure.History))
	}
	last := res.Failure.History[2]
	if last.Status != "failed" || last.Error == "" {
		t.Errorf("last history entry = %+v, want failed with error", last)
	}
	for _, c := range client.Calls() {
		if c == "click:#logout" {
			t.Error("step after failure was executed")
		}
	}
}

func TestRunCase_ConfigErrorKind(t *testing.T) {
	tc := models.TestCase{ID: "bad", Steps: []models.TestStep{{Action: models.ActionClick}}}

	res := automation.RunCase(context.Background(), automationtest.NewClient(), tc, automation.CaseOptions{})
	if res.Passed {
		t.Fatal("RunCase() passed, want config failure")
	}
	if res.Failure.Kind != models.FailureConfig {
		t.Errorf("Kind = %v, want %v", res.Failure.Kind, models.FailureConfig)
	}
}

func TestRunCase_RecoversPanic(t *testing.T) {
	client := automationtest.NewClient().WithPanic("#submit")

	res := automation.RunCase(context.Background(), client, loginCase(), automation.CaseOptions{})
	if res.Passed {
		t.Fatal("RunCase() passed, want failure")
	}
	if !strings.Contains(res.Failure.Error, "panic during test case login") {
		t.Errorf("Error = %q, want panic message", res.Failure.Error)
	}
	if res.Failure.Kind != models.FailureSession {
		t.Errorf("Kind = %v, want %v", res.Failure.Kind, models.FailureSession)
	}
}

type domClient struct {
	*automationtest.Client
	dom string
}

func (c *domClient) DOMSnapshot(ctx context.Context) (string, error) { return c.dom, nil }

func TestRunCase_CapsDOMSnapshot(t *testing.T) {
	client := &domClient{
		Client: automationtest.NewClient().WithHidden(".dashboard"),
		dom:    strings.Repeat("x", 25000),
	}

	res := automation.RunCase(context.Background(), client, loginCase(), automation.CaseOptions{})
	if got := len(res.Failure.DOMSnapshot); got != 10000 {
		t.Errorf("DOMSnapshot length = %d, want 10000", got)
	}
}

type desktopClient struct {
	*automationtest.Client
	requested int
}

func (c *desktopClient) WindowState(ctx context.Context) (automation.WindowState, error) {
	return automation.WindowState{Title: "Main", Focused: true}, nil
}

func (c *desktopClient) Windows(ctx context.Context) ([]map[string]any, error) { return nil, nil }

func (c *desktopClient) AppState(ctx context.Context) (map[string]any, error) {
	return map[string]any{"route": "/home"}, nil
}

func (c *desktopClient) IPCMessages(ctx context.Context, limit int) ([]map[string]any, error) {
	c.requested = limit
	out := make([]map[string]any, limit)
	for i := range out {
		out[i] = map[string]any{"seq": i}
	}
	return out, nil
}

func TestRunCase_DesktopContext(t *testing.T) {
	client := &desktopClient{Client: automationtest.NewClient().WithHidden(".dashboard")}

	res := automation.RunCase(context.Background(), client, loginCase(), automation.CaseOptions{})
	ctx := res.Failure.Context
	if ctx == nil {
		t.Fatal("Failure.Context is nil, want desktop context")
	}
	if ws, ok := ctx["window_state"].(automation.WindowState); !ok || ws.Title != "Main" {
		t.Errorf("window_state = %v", ctx["window_state"])
	}
	if client.requested != 20 {
		t.Errorf("requested %d IPC messages, want 20", client.requested)
	}
	if msgs, ok := ctx["ipc_messages"].([]map[string]any); !ok || len(msgs) != 10 {
		t.Errorf("ipc_messages = %v, want 10 entries", ctx["ipc_messages"])
	}
}

func TestRunCase_Screenshot(t *testing.T) {
	dir := t.TempDir()
	client := automationtest.NewClient().WithHidden(".dashboard")

	res := automation.RunCase(context.Background(), client, loginCase(), automation.CaseOptions{ScreenshotDir: dir})
	path, _ := res.Failure.Context["screenshot"].(string)
	if !strings.HasSuffix(path, "login.png") {
		t.Errorf("screenshot = %q, want path ending in login.png", path)
	}
}
