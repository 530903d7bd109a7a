package fullsuite

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ShayCichocki/tiergate/internal/automation"
	"github.com/ShayCichocki/tiergate/internal/automation/automationtest"
	"github.com/ShayCichocki/tiergate/pkg/models"
)

func testSuite(n int) models.TestSuite {
	s := models.TestSuite{Name: "app", AppURL: "http://localhost:3000"}
	for i := 0; i < n; i++ {
		s.TestCases = append(s.TestCases, models.TestCase{
			ID:   fmt.Sprintf("tc%d", i),
			Name: fmt.Sprintf("case %d", i),
			Steps: []models.TestStep{
				{Action: models.ActionClick, Selector: "#go"},
				{Action: models.ActionAssertVisible, Selector: "#done"},
			},
		})
	}
	return s
}

func TestExpand(t *testing.T) {
	x := 10.0
	cases := []models.TestCase{
		{ID: "login", Name: "Login", Critical: true, Steps: []models.TestStep{
			{Action: models.ActionAssertPosition, Selector: "#hdr", Position: &models.Position{X: &x}},
		}},
		{ID: "logout", Name: "Logout", Skip: true},
	}
	envs := []string{"chromium", "firefox", "webkit"}

	got := Expand(cases, envs)
	if len(got) != len(cases)*len(envs) {
		t.Fatalf("Expand() returned %d cases, want %d", len(got), len(cases)*len(envs))
	}

	wantIDs := []string{
		"login-chromium", "login-firefox", "login-webkit",
		"logout-chromium", "logout-firefox", "logout-webkit",
	}
	for i, want := range wantIDs {
		if got[i].ID != want {
			t.Errorf("Expand()[%d].ID = %q, want %q", i, got[i].ID, want)
		}
	}
	if got[1].Name != "Login (firefox)" {
		t.Errorf("Name = %q, want %q", got[1].Name, "Login (firefox)")
	}
	if !got[0].Critical || !got[3].Skip {
		t.Error("flags not carried over to clones")
	}

	*got[0].Steps[0].Position.X = 99
	if x != 10 || *got[1].Steps[0].Position.X != 10 {
		t.Error("clone steps share state with the original")
	}
}

func TestExpand_Empty(t *testing.T) {
	if got := Expand(nil, []string{"chromium"}); len(got) != 0 {
		t.Errorf("Expand(nil) = %v, want empty", got)
	}
	if got := Expand(testSuite(3).TestCases, nil); len(got) != 0 {
		t.Errorf("Expand(cases, nil) = %d cases, want 0", len(got))
	}
}

func TestEnvironmentMatrix(t *testing.T) {
	m := EnvironmentMatrix([]string{"chromium", "firefox", "webkit", "edge"})
	if len(m) != 4 {
		t.Fatalf("EnvironmentMatrix() has %d entries, want 4", len(m))
	}
	for name, env := range m {
		if env.Name != name || !env.Headless {
			t.Errorf("m[%q] = %+v, want headless with matching name", name, env)
		}
	}
	if _, ok := m["firefox"].Options["firefox_user_prefs"]; !ok {
		t.Error("firefox entry missing firefox_user_prefs")
	}
	if m["edge"].Options != nil {
		t.Errorf("m[edge].Options = %v, want plain headless defaults", m["edge"].Options)
	}
}

func TestKnownEnvironment(t *testing.T) {
	for name, want := range map[string]bool{"chromium": true, "firefox": true, "webkit": true, "edge": false, "": false} {
		if got := KnownEnvironment(name); got != want {
			t.Errorf("KnownEnvironment(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestRun_CrossEnvironmentCounts(t *testing.T) {
	f := automationtest.NewFactory(nil)
	cfg := Config{Workers: 4, Environments: []string{"chromium", "firefox"}, CrossEnvironment: true}

	res := Run(context.Background(), testSuite(2), "", f.Func(), cfg)
	if res.TotalChecks != 4 || res.PassedChecks != 4 || !res.Passed {
		t.Errorf("Run() = %d total, %d passed (passed=%v), want 4/4", res.TotalChecks, res.PassedChecks, res.Passed)
	}
	if f.Created() != 4 {
		t.Errorf("created %d clients, want one per expanded case", f.Created())
	}
	for _, c := range f.Clients() {
		if targets := c.LaunchTargets(); len(targets) != 1 || targets[0] != "http://localhost:3000" {
			t.Errorf("launch targets = %v", targets)
		}
	}
}

func TestRun_NoExpansion(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"single environment", Config{Environments: []string{"chromium"}, CrossEnvironment: true}},
		{"cross disabled", Config{Environments: []string{"chromium", "firefox"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Run(context.Background(), testSuite(3), "", automationtest.NewFactory(nil).Func(), tt.cfg)
			if res.TotalChecks != 3 {
				t.Errorf("TotalChecks = %d, want 3", res.TotalChecks)
			}
			if tt.cfg.EnvironmentCount() != 1 {
				t.Errorf("EnvironmentCount() = %d, want 1", tt.cfg.EnvironmentCount())
			}
		})
	}
}

func TestRun_BoundedParallelism(t *testing.T) {
	f := automationtest.NewFactory(func(int) *automationtest.Client {
		return automationtest.NewClient().WithDelay(15 * time.Millisecond)
	})

	res := Run(context.Background(), testSuite(12), "", f.Func(), Config{Workers: 3})
	if !res.Passed {
		t.Fatalf("Run() failed: %+v", res.Failures)
	}
	if got := f.Tracker.MaxConcurrent(); got > 3 || got < 1 {
		t.Errorf("max concurrent sessions = %d, want 1..3", got)
	}
	if f.Tracker.Active() != 0 {
		t.Errorf("%d sessions still open after Run", f.Tracker.Active())
	}
}

func TestRun_DefaultWorkers(t *testing.T) {
	f := automationtest.NewFactory(func(int) *automationtest.Client {
		return automationtest.NewClient().WithDelay(10 * time.Millisecond)
	})

	Run(context.Background(), testSuite(10), "", f.Func(), Config{Workers: 0})
	if got := f.Tracker.MaxConcurrent(); got > DefaultWorkers {
		t.Errorf("max concurrent sessions = %d, want <= %d", got, DefaultWorkers)
	}
}

func TestRun_FailureIsolation(t *testing.T) {
	f := automationtest.NewFactory(func(n int) *automationtest.Client {
		switch n {
		case 1:
			return automationtest.NewClient().WithConnect(false, nil)
		case 2:
			return automationtest.NewClient().WithLaunch(false, nil)
		case 3:
			return automationtest.NewClient().WithPanic("#go")
		}
		return nil
	})

	res := Run(context.Background(), testSuite(6), "", f.Func(), Config{Workers: 2})
	if res.TotalChecks != 6 || res.FailedChecks != 3 || res.PassedChecks != 3 {
		t.Fatalf("Run() = %d total, %d passed, %d failed, want 6/3/3", res.TotalChecks, res.PassedChecks, res.FailedChecks)
	}

	kinds := make(map[models.FailureKind]int)
	for _, fl := range res.Failures {
		kinds[fl.Kind]++
	}
	if kinds[models.FailureSession] != 2 || kinds[models.FailureLaunch] != 1 {
		t.Errorf("failure kinds = %v, want 2 session and 1 launch", kinds)
	}

	for i, c := range f.Clients() {
		if c.CloseCalls() != 1 {
			t.Errorf("client %d closed %d times, want 1", i, c.CloseCalls())
		}
	}
}

func TestRun_FactoryPanicIsContained(t *testing.T) {
	var calls atomic.Int32
	factory := func() automation.Client {
		if calls.Add(1) == 1 {
			panic("factory exploded")
		}
		return automationtest.NewClient()
	}

	res := Run(context.Background(), testSuite(3), "", factory, Config{Workers: 1})
	if res.TotalChecks != 3 || res.FailedChecks != 1 {
		t.Fatalf("Run() = %d total, %d failed, want 3 and 1", res.TotalChecks, res.FailedChecks)
	}
	if !strings.Contains(res.Failures[0].Error, "factory exploded") {
		t.Errorf("failure = %q, want panic message", res.Failures[0].Error)
	}
}

func TestRun_NilClient(t *testing.T) {
	res := Run(context.Background(), testSuite(1), "", func() automation.Client { return nil }, Config{})
	if res.Passed || res.FailedChecks != 1 {
		t.Errorf("Run() = %+v, want one failure", res)
	}
}

func TestRun_SkippedCasesOpenNoSession(t *testing.T) {
	s := testSuite(3)
	s.TestCases[1].Skip = true
	f := automationtest.NewFactory(nil)

	res := Run(context.Background(), s, "", f.Func(), Config{})
	if !res.Passed || res.TotalChecks != 3 || res.PassedChecks != 3 {
		t.Errorf("Run() = %+v, want 3/3 passed", res)
	}
	if f.Created() != 2 {
		t.Errorf("created %d clients, want 2", f.Created())
	}
}

func TestRun_TaskTimeout(t *testing.T) {
	f := automationtest.NewFactory(func(n int) *automationtest.Client {
		if n == 0 {
			return automationtest.NewClient().WithDelay(2 * time.Second)
		}
		return nil
	})

	start := time.Now()
	res := Run(context.Background(), testSuite(2), "", f.Func(), Config{Workers: 2, TaskTimeout: 30 * time.Millisecond})
	if time.Since(start) > time.Second {
		t.Errorf("Run() took %s, task deadline not enforced", time.Since(start))
	}
	if res.FailedChecks != 1 {
		t.Fatalf("FailedChecks = %d, want 1", res.FailedChecks)
	}
	if !strings.Contains(res.Failures[0].Error, "exceeded") {
		t.Errorf("failure = %q, want deadline message", res.Failures[0].Error)
	}
}

// slowLaunchClient ignores ctx in Launch, like a driver stuck in a
// blocking call.
type slowLaunchClient struct {
	*automationtest.Client
	gauge *launchGauge
	busy  atomic.Bool
}

type launchGauge struct {
	mu          sync.Mutex
	active      int
	peak        int
	closedEarly atomic.Int32
}

func (c *slowLaunchClient) Launch(ctx context.Context, target string) (bool, error) {
	c.busy.Store(true)
	c.gauge.mu.Lock()
	c.gauge.active++
	c.gauge.peak = max(c.gauge.peak, c.gauge.active)
	c.gauge.mu.Unlock()

	time.Sleep(100 * time.Millisecond)

	c.gauge.mu.Lock()
	c.gauge.active--
	c.gauge.mu.Unlock()
	c.busy.Store(false)
	return true, nil
}

func (c *slowLaunchClient) Close(ctx context.Context) error {
	if c.busy.Load() {
		c.gauge.closedEarly.Add(1)
	}
	return c.Client.Close(ctx)
}

func TestRun_TaskTimeoutKeepsWorkerBound(t *testing.T) {
	gauge := &launchGauge{}
	factory := func() automation.Client {
		return &slowLaunchClient{Client: automationtest.NewClient(), gauge: gauge}
	}

	res := Run(context.Background(), testSuite(4), "", factory, Config{Workers: 1, TaskTimeout: 20 * time.Millisecond})
	if res.FailedChecks != 4 {
		t.Errorf("FailedChecks = %d, want 4 timed-out cases", res.FailedChecks)
	}
	if gauge.peak > 1 {
		t.Errorf("peak sessions in flight = %d with Workers=1", gauge.peak)
	}
	if n := gauge.closedEarly.Load(); n != 0 {
		t.Errorf("%d clients closed while Launch was still running", n)
	}
}

func TestRun_PanickingHooksAreIsolated(t *testing.T) {
	cfg := Config{
		OnCaseStart: func(models.TestCase) { panic("start hook") },
		OnCaseDone:  func(models.CaseResult) { panic("done hook") },
	}

	res := Run(context.Background(), testSuite(3), "", automationtest.NewFactory(nil).Func(), cfg)
	if !res.Passed || res.TotalChecks != 3 || res.PassedChecks != 3 {
		t.Errorf("Run() = %d/%d passed (passed=%v), want 3/3", res.PassedChecks, res.TotalChecks, res.Passed)
	}
}

func TestRun_Callbacks(t *testing.T) {
	var started, done atomic.Int32
	cfg := Config{
		OnCaseStart: func(models.TestCase) { started.Add(1) },
		OnCaseDone:  func(models.CaseResult) { done.Add(1) },
	}

	Run(context.Background(), testSuite(5), "", automationtest.NewFactory(nil).Func(), cfg)
	if started.Load() != 5 || done.Load() != 5 {
		t.Errorf("callbacks: started=%d done=%d, want 5 each", started.Load(), done.Load())
	}
}

func TestAggregate(t *testing.T) {
	t.Run("empty is a vacuous pass", func(t *testing.T) {
		got := Aggregate(nil)
		if !got.Passed || got.TotalChecks != 0 {
			t.Errorf("Aggregate(nil) = %+v, want passed with zero checks", got)
		}
	})

	t.Run("sums constituents", func(t *testing.T) {
		results := []models.Result{
			{TotalChecks: 3, PassedChecks: 3, Passed: true},
			{TotalChecks: 4, PassedChecks: 2, FailedChecks: 2, Failures: []models.Failure{{CaseID: "a"}, {CaseID: "b"}}},
			{TotalChecks: 1, PassedChecks: 0, FailedChecks: 1, Failures: []models.Failure{{CaseID: "c"}}},
		}
		got := Aggregate(results)
		if got.TotalChecks != 8 || got.PassedChecks != 5 || got.FailedChecks != 3 {
			t.Errorf("Aggregate() = %d/%d/%d, want 8/5/3", got.TotalChecks, got.PassedChecks, got.FailedChecks)
		}
		if got.Passed {
			t.Error("Aggregate().Passed = true with failed checks")
		}
		if len(got.Failures) != 3 || got.Failures[2].CaseID != "c" {
			t.Errorf("Failures = %+v, want a, b, c", got.Failures)
		}
	})

	t.Run("all passing", func(t *testing.T) {
		got := Aggregate([]models.Result{{TotalChecks: 2, PassedChecks: 2}, {TotalChecks: 1, PassedChecks: 1}})
		if !got.Passed || got.TotalChecks != 3 {
			t.Errorf("Aggregate() = %+v, want passed with 3 checks", got)
		}
	})
}
