package availability

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ShayCichocki/tiergate/internal/automation"
	"github.com/ShayCichocki/tiergate/internal/automation/automationtest"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func probeWith(ok bool, err error) *automationtest.Factory {
	return automationtest.NewFactory(func(int) *automationtest.Client {
		return automationtest.NewClient().WithConnect(ok, err)
	})
}

func TestCheck_CachesWithinTTL(t *testing.T) {
	clock := newClock()
	web := probeWith(true, nil)
	c := NewChecker(map[automation.Kind]automation.Factory{automation.KindWeb: web.Func()}, WithClock(clock.Now))

	first := c.CheckWeb(context.Background(), false)
	clock.Advance(30 * time.Second)
	second := c.CheckWeb(context.Background(), false)

	if web.Created() != 1 {
		t.Fatalf("probed %d times within TTL, want 1", web.Created())
	}
	if !first.IsAvailable() || first != second {
		t.Errorf("second check = %+v, want cached %+v", second, first)
	}

	clock.Advance(31 * time.Second)
	c.CheckWeb(context.Background(), false)
	if web.Created() != 2 {
		t.Errorf("probed %d times after TTL expiry, want 2", web.Created())
	}
}

func TestCheck_ForceAndInvalidate(t *testing.T) {
	web := probeWith(true, nil)
	c := NewChecker(map[automation.Kind]automation.Factory{automation.KindWeb: web.Func()})
	ctx := context.Background()

	c.CheckWeb(ctx, false)
	c.CheckWeb(ctx, true)
	if web.Created() != 2 {
		t.Errorf("force did not re-probe: %d probes", web.Created())
	}

	c.Invalidate(automation.KindWeb)
	if _, ok := c.Cached(automation.KindWeb); ok {
		t.Error("Cached() after Invalidate returned a value")
	}
	c.CheckWeb(ctx, false)

	c.ClearCache()
	c.CheckWeb(ctx, false)
	if web.Created() != 4 {
		t.Errorf("probes = %d, want 4", web.Created())
	}
}

func TestCheck_Classification(t *testing.T) {
	tests := []struct {
		name      string
		ok        bool
		err       error
		status    Status
		reason    Reason
		wantRetry time.Duration
	}{
		{"available", true, nil, StatusAvailable, "", 0},
		{"not running", false, nil, StatusUnavailable, ReasonServerNotRunning, 5 * time.Minute},
		{"timeout sentinel", false, fmt.Errorf("connect: %w", automation.ErrTimeout), StatusUnavailable, ReasonConnectionTimeout, time.Minute},
		{"deadline", false, context.DeadlineExceeded, StatusUnavailable, ReasonConnectionTimeout, time.Minute},
		{"permission", false, automation.ErrPermission, StatusUnavailable, ReasonPermissionDenied, 0},
		{"fs permission", false, fs.ErrPermission, StatusUnavailable, ReasonPermissionDenied, 0},
		{"auth", false, automation.ErrAuth, StatusUnavailable, ReasonAuthFailed, 0},
		{"version", false, automation.ErrVersion, StatusUnavailable, ReasonVersionMismatch, 0},
		{"other", false, errors.New("socket hang up"), StatusUnavailable, ReasonUnknown, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := newClock()
			f := probeWith(tt.ok, tt.err)
			c := NewChecker(map[automation.Kind]automation.Factory{automation.KindDesktop: f.Func()}, WithClock(clock.Now))

			a := c.CheckDesktop(context.Background(), false)
			if a.Status != tt.status || a.Reason != tt.reason {
				t.Errorf("CheckDesktop() = %s/%s, want %s/%s", a.Status, a.Reason, tt.status, tt.reason)
			}
			if a.Kind != automation.KindDesktop || a.Message == "" {
				t.Errorf("CheckDesktop() = %+v, want kind and message set", a)
			}
			switch {
			case tt.wantRetry == 0 && a.RetryAfter != nil:
				t.Errorf("RetryAfter = %v, want nil", a.RetryAfter)
			case tt.wantRetry > 0 && (a.RetryAfter == nil || a.RetryAfter.Sub(clock.Now()) != tt.wantRetry):
				t.Errorf("RetryAfter = %v, want now+%s", a.RetryAfter, tt.wantRetry)
			}
			if got := f.Clients()[0].CloseCalls(); got != 1 {
				t.Errorf("probe client closed %d times, want 1", got)
			}
		})
	}
}

func TestCheck_PanickingProbeIsUnknown(t *testing.T) {
	c := NewChecker(map[automation.Kind]automation.Factory{
		automation.KindWeb: func() automation.Client { panic("driver crashed") },
	})

	a := c.CheckWeb(context.Background(), false)
	if a.Status != StatusUnavailable || a.Reason != ReasonUnknown {
		t.Errorf("CheckWeb() = %s/%s, want unavailable/unknown", a.Status, a.Reason)
	}
}

func TestCheck_UnknownKind(t *testing.T) {
	c := NewChecker(nil)
	a := c.Check(context.Background(), automation.Kind("mobile"), false)
	if a.Status != StatusUnknown {
		t.Errorf("Check(mobile) status = %s, want unknown", a.Status)
	}
}

func TestCheck_KindsAreIndependent(t *testing.T) {
	release := make(chan struct{})
	var webProbes atomic.Int32
	slowWeb := func() automation.Client {
		webProbes.Add(1)
		<-release
		return automationtest.NewClient()
	}
	desktop := probeWith(true, nil)
	c := NewChecker(map[automation.Kind]automation.Factory{
		automation.KindWeb:     slowWeb,
		automation.KindDesktop: desktop.Func(),
	})

	done := make(chan struct{})
	go func() {
		c.CheckWeb(context.Background(), false)
		close(done)
	}()

	// Desktop must answer while the web probe is stuck.
	finished := make(chan Availability, 1)
	go func() { finished <- c.CheckDesktop(context.Background(), false) }()
	select {
	case a := <-finished:
		if !a.IsAvailable() {
			t.Errorf("CheckDesktop() = %+v", a)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("desktop check blocked behind web probe")
	}

	close(release)
	<-done
	if webProbes.Load() != 1 {
		t.Errorf("web probes = %d, want 1", webProbes.Load())
	}
}

func TestCheck_ConcurrentSameKindShareProbe(t *testing.T) {
	web := automationtest.NewFactory(func(int) *automationtest.Client {
		return automationtest.NewClient().WithDelay(10 * time.Millisecond)
	})
	c := NewChecker(map[automation.Kind]automation.Factory{automation.KindWeb: web.Func()})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.CheckWeb(context.Background(), false)
		}()
	}
	wg.Wait()
	if web.Created() != 1 {
		t.Errorf("probes = %d, want 1", web.Created())
	}
}
