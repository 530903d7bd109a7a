// Package availability probes whether an automation backend is reachable
// and caches the answer per backend kind.
package availability

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ShayCichocki/tiergate/internal/automation"
	"github.com/ShayCichocki/tiergate/internal/logging"
)

// Status is the reachability of a backend.
type Status string

const (
	StatusAvailable   Status = "available"
	StatusUnavailable Status = "unavailable"
	// StatusDegraded is reserved for backends that answer but cannot serve
	// every capability. Probes do not currently produce it.
	StatusDegraded Status = "degraded"
	StatusUnknown  Status = "unknown"
)

// Reason classifies why a backend is unavailable.
type Reason string

const (
	ReasonServerNotRunning  Reason = "server_not_running"
	ReasonConnectionTimeout Reason = "connection_timeout"
	ReasonAuthFailed        Reason = "auth_failed"
	ReasonVersionMismatch   Reason = "version_mismatch"
	ReasonPermissionDenied  Reason = "permission_denied"
	ReasonUnknown           Reason = "unknown"
)

const (
	// DefaultTTL is how long a probe result is reused.
	DefaultTTL = 60 * time.Second

	notRunningRetry = 5 * time.Minute
	timeoutRetry    = time.Minute
	closeTimeout    = 5 * time.Second
)

// Availability is the classified outcome of one probe.
type Availability struct {
	Kind       automation.Kind `json:"kind"`
	Status     Status          `json:"status"`
	Reason     Reason          `json:"reason,omitempty"`
	Message    string          `json:"message"`
	CheckedAt  time.Time       `json:"checked_at"`
	RetryAfter *time.Time      `json:"retry_after,omitempty"`
}

// IsAvailable reports whether the backend can be used.
func (a Availability) IsAvailable() bool {
	return a.Status == StatusAvailable
}

type entry struct {
	mu     sync.Mutex
	cached *Availability
}

// Checker probes backends and caches results per kind. Each kind has its
// own lock, so checking web never waits on desktop. Concurrent checks of
// the same kind share one probe.
type Checker struct {
	ttl          time.Duration
	probeTimeout time.Duration
	now          func() time.Time
	log          *logging.Logger

	probes  map[automation.Kind]automation.Factory
	entries map[automation.Kind]*entry
}

// Option configures a Checker.
type Option func(*Checker)

// WithTTL sets how long results are cached. Values <= 0 keep the default.
func WithTTL(d time.Duration) Option {
	return func(c *Checker) {
		if d > 0 {
			c.ttl = d
		}
	}
}

// WithProbeTimeout bounds each connect attempt.
func WithProbeTimeout(d time.Duration) Option {
	return func(c *Checker) { c.probeTimeout = d }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Checker) { c.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(c *Checker) { c.log = l }
}

// NewChecker creates a checker that probes each kind with a fresh client
// from its factory.
func NewChecker(probes map[automation.Kind]automation.Factory, opts ...Option) *Checker {
	c := &Checker{
		ttl:     DefaultTTL,
		now:     time.Now,
		log:     logging.Nop(),
		probes:  make(map[automation.Kind]automation.Factory, len(probes)),
		entries: make(map[automation.Kind]*entry),
	}
	for kind, f := range probes {
		c.probes[kind] = f
		c.entries[kind] = &entry{}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Check returns the backend's availability, probing unless a cached
// result younger than the TTL exists and force is false.
func (c *Checker) Check(ctx context.Context, kind automation.Kind, force bool) Availability {
	e, ok := c.entries[kind]
	if !ok {
		return Availability{
			Kind:      kind,
			Status:    StatusUnknown,
			Reason:    ReasonUnknown,
			Message:   fmt.Sprintf("no probe configured for %q backends", kind),
			CheckedAt: c.now(),
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !force && e.cached != nil && c.now().Sub(e.cached.CheckedAt) < c.ttl {
		return *e.cached
	}

	a := c.probe(ctx, kind, c.probes[kind])
	if !a.IsAvailable() {
		c.log.Warn("%s", a.Message)
	} else {
		c.log.Debug("%s", a.Message)
	}
	e.cached = &a
	return a
}

// CheckWeb checks the web backend.
func (c *Checker) CheckWeb(ctx context.Context, force bool) Availability {
	return c.Check(ctx, automation.KindWeb, force)
}

// CheckDesktop checks the desktop backend.
func (c *Checker) CheckDesktop(ctx context.Context, force bool) Availability {
	return c.Check(ctx, automation.KindDesktop, force)
}

// Cached returns the cached result for kind, regardless of age.
func (c *Checker) Cached(kind automation.Kind) (Availability, bool) {
	e, ok := c.entries[kind]
	if !ok {
		return Availability{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cached == nil {
		return Availability{}, false
	}
	return *e.cached, true
}

// Invalidate forgets the cached result for kind.
func (c *Checker) Invalidate(kind automation.Kind) {
	if e, ok := c.entries[kind]; ok {
		e.mu.Lock()
		e.cached = nil
		e.mu.Unlock()
	}
}

// ClearCache forgets every cached result.
func (c *Checker) ClearCache() {
	for kind := range c.entries {
		c.Invalidate(kind)
	}
}

// probe connects once and always closes, whatever the connect outcome.
func (c *Checker) probe(ctx context.Context, kind automation.Kind, factory automation.Factory) (a Availability) {
	label := backendLabel(kind)
	defer func() {
		if r := recover(); r != nil {
			a = c.unavailable(kind, ReasonUnknown, fmt.Sprintf("%s check failed: panic: %v", label, r), 0)
		}
	}()

	client := factory()
	if client == nil {
		return c.unavailable(kind, ReasonUnknown, label+" check failed: no client", 0)
	}

	probeCtx := ctx
	if c.probeTimeout > 0 {
		var cancel context.CancelFunc
		probeCtx, cancel = context.WithTimeout(ctx, c.probeTimeout)
		defer cancel()
	}

	connected, err := client.Connect(probeCtx)

	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
	_ = client.Close(closeCtx)
	cancel()

	return c.classify(kind, connected, err)
}

func (c *Checker) classify(kind automation.Kind, connected bool, err error) Availability {
	label := backendLabel(kind)
	switch {
	case err == nil && connected:
		return Availability{Kind: kind, Status: StatusAvailable, Message: label + " is available", CheckedAt: c.now()}
	case err == nil:
		return c.unavailable(kind, ReasonServerNotRunning, label+" is not running", notRunningRetry)
	case automation.IsTimeout(err):
		return c.unavailable(kind, ReasonConnectionTimeout, "connection to "+label+" timed out", timeoutRetry)
	case automation.IsPermission(err):
		return c.unavailable(kind, ReasonPermissionDenied, "permission denied connecting to "+label, 0)
	case errors.Is(err, automation.ErrAuth):
		return c.unavailable(kind, ReasonAuthFailed, "authentication to "+label+" failed", 0)
	case errors.Is(err, automation.ErrVersion):
		return c.unavailable(kind, ReasonVersionMismatch, label+" version is incompatible", 0)
	default:
		return c.unavailable(kind, ReasonUnknown, fmt.Sprintf("%s check failed: %v", label, err), 0)
	}
}

func (c *Checker) unavailable(kind automation.Kind, reason Reason, msg string, retry time.Duration) Availability {
	now := c.now()
	a := Availability{Kind: kind, Status: StatusUnavailable, Reason: reason, Message: msg, CheckedAt: now}
	if retry > 0 {
		at := now.Add(retry)
		a.RetryAfter = &at
	}
	return a
}

func backendLabel(kind automation.Kind) string {
	switch kind {
	case automation.KindWeb:
		return "web automation backend"
	case automation.KindDesktop:
		return "desktop automation backend"
	default:
		return fmt.Sprintf("%s automation backend", kind)
	}
}
