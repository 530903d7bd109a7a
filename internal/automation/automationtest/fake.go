// Package automationtest provides scripted automation clients for tests.
package automationtest

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ShayCichocki/tiergate/internal/automation"
	"github.com/ShayCichocki/tiergate/pkg/models"
)

// Client is a scriptable automation.Client.
// Use NewClient() and the With* methods to configure behaviour.
type Client struct {
	connectResult bool
	connectErr    error
	launchResult  bool
	launchErr     error
	delay         time.Duration

	hidden      map[string]bool
	visibleErr  map[string]error
	textMiss    map[string]bool
	actionErr   map[string]error
	panicOn     map[string]bool
	closeErr    error
	tracker     *Tracker

	mu            sync.Mutex
	connected     bool
	launchTargets []string
	calls         []string

	connectCalls atomic.Int32
	closeCalls   atomic.Int32
}

// NewClient creates a client whose connect, launch and assertions all succeed.
func NewClient() *Client {
	return &Client{
		connectResult: true,
		launchResult:  true,
		hidden:        make(map[string]bool),
		visibleErr:    make(map[string]error),
		textMiss:      make(map[string]bool),
		actionErr:     make(map[string]error),
		panicOn:       make(map[string]bool),
	}
}

// WithConnect sets Connect's return values.
func (c *Client) WithConnect(ok bool, err error) *Client {
	c.connectResult, c.connectErr = ok, err
	return c
}

// WithLaunch sets Launch's return values.
func (c *Client) WithLaunch(ok bool, err error) *Client {
	c.launchResult, c.launchErr = ok, err
	return c
}

// WithDelay makes Launch and every step sleep for d.
func (c *Client) WithDelay(d time.Duration) *Client {
	c.delay = d
	return c
}

// WithHidden makes AssertVisible report false for the selectors.
func (c *Client) WithHidden(selectors ...string) *Client {
	for _, s := range selectors {
		c.hidden[s] = true
	}
	return c
}

// WithVisibleError makes AssertVisible fail with err for selector.
func (c *Client) WithVisibleError(selector string, err error) *Client {
	c.visibleErr[selector] = err
	return c
}

// WithTextMismatch makes AssertText report false for the selector.
func (c *Client) WithTextMismatch(selector string) *Client {
	c.textMiss[selector] = true
	return c
}

// WithActionError makes interactions on selector fail with err.
func (c *Client) WithActionError(selector string, err error) *Client {
	c.actionErr[selector] = err
	return c
}

// WithPanic makes interactions on selector panic.
func (c *Client) WithPanic(selector string) *Client {
	c.panicOn[selector] = true
	return c
}

// WithCloseError makes Close return err.
func (c *Client) WithCloseError(err error) *Client {
	c.closeErr = err
	return c
}

// ConnectCalls returns how many times Connect was called.
func (c *Client) ConnectCalls() int { return int(c.connectCalls.Load()) }

// CloseCalls returns how many times Close was called.
func (c *Client) CloseCalls() int { return int(c.closeCalls.Load()) }

// LaunchTargets returns the targets passed to Launch.
func (c *Client) LaunchTargets() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.launchTargets...)
}

// Calls returns "action:selector" for every interaction, in order.
func (c *Client) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

func (c *Client) Connect(ctx context.Context) (bool, error) {
	c.connectCalls.Add(1)
	if c.connectErr != nil || !c.connectResult {
		return c.connectResult, c.connectErr
	}
	c.mu.Lock()
	c.connected = true
	c.mu.Unlock()
	if c.tracker != nil {
		c.tracker.enter()
	}
	return true, nil
}

func (c *Client) Launch(ctx context.Context, target string) (bool, error) {
	c.mu.Lock()
	connected := c.connected
	c.launchTargets = append(c.launchTargets, target)
	c.mu.Unlock()
	if !connected {
		return false, automation.ErrNotConnected
	}
	if err := c.sleep(ctx); err != nil {
		return false, err
	}
	return c.launchResult, c.launchErr
}

func (c *Client) interact(ctx context.Context, action, selector string) error {
	c.mu.Lock()
	c.calls = append(c.calls, action+":"+selector)
	c.mu.Unlock()
	if c.panicOn[selector] {
		panic("scripted panic on " + selector)
	}
	if err := c.sleep(ctx); err != nil {
		return err
	}
	return c.actionErr[selector]
}

func (c *Client) sleep(ctx context.Context) error {
	if c.delay <= 0 {
		return nil
	}
	select {
	case <-time.After(c.delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) Click(ctx context.Context, selector string) error {
	return c.interact(ctx, "click", selector)
}

func (c *Client) TypeText(ctx context.Context, selector, text string) error {
	return c.interact(ctx, "type", selector)
}

func (c *Client) Navigate(ctx context.Context, address string) error {
	return c.interact(ctx, "navigate", address)
}

func (c *Client) Wait(ctx context.Context, d time.Duration) error {
	return c.interact(ctx, "wait", d.String())
}

func (c *Client) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error {
	return c.interact(ctx, "wait_for_selector", selector)
}

func (c *Client) Select(ctx context.Context, selector, value string) error {
	return c.interact(ctx, "select", selector)
}

func (c *Client) Check(ctx context.Context, selector string, checked bool) error {
	return c.interact(ctx, "check", selector)
}

func (c *Client) Submit(ctx context.Context, selector string) error {
	return c.interact(ctx, "submit", selector)
}

func (c *Client) AssertVisible(ctx context.Context, selector string) (bool, error) {
	if err := c.interact(ctx, "assert_visible", selector); err != nil {
		return false, err
	}
	if err := c.visibleErr[selector]; err != nil {
		return false, err
	}
	return !c.hidden[selector], nil
}

func (c *Client) AssertText(ctx context.Context, selector, expected string) (bool, error) {
	if err := c.interact(ctx, "assert_text", selector); err != nil {
		return false, err
	}
	return !c.textMiss[selector], nil
}

func (c *Client) AssertPosition(ctx context.Context, selector string, expected models.Position) (bool, error) {
	if err := c.interact(ctx, "assert_position", selector); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Client) Screenshot(ctx context.Context, path string) (bool, error) {
	return true, nil
}

func (c *Client) Close(ctx context.Context) error {
	c.closeCalls.Add(1)
	c.mu.Lock()
	wasConnected := c.connected
	c.connected = false
	c.mu.Unlock()
	if wasConnected && c.tracker != nil {
		c.tracker.leave()
	}
	return c.closeErr
}

var _ automation.Client = (*Client)(nil)

// ConsoleClient adds automation.ConsoleReader to a Client.
type ConsoleClient struct {
	*Client
	Errors []string
	Err    error
}

// WithConsole wraps c so it reports the given console errors.
func WithConsole(c *Client, errs []string, err error) *ConsoleClient {
	return &ConsoleClient{Client: c, Errors: errs, Err: err}
}

func (c *ConsoleClient) ConsoleErrors(ctx context.Context) ([]string, error) {
	return c.Errors, c.Err
}

// HealthClient adds automation.HealthFetcher to a Client.
type HealthClient struct {
	*Client
	Status int
	Err    error

	mu   sync.Mutex
	urls []string
}

// WithHealth wraps c so health fetches return status and err.
func WithHealth(c *Client, status int, err error) *HealthClient {
	return &HealthClient{Client: c, Status: status, Err: err}
}

func (c *HealthClient) FetchStatus(ctx context.Context, url string) (int, error) {
	c.mu.Lock()
	c.urls = append(c.urls, url)
	c.mu.Unlock()
	return c.Status, c.Err
}

// URLs returns the fetched URLs.
func (c *HealthClient) URLs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.urls...)
}

// Tracker records concurrently connected sessions across clients.
type Tracker struct {
	mu      sync.Mutex
	active  int
	maxSeen int
}

func (t *Tracker) enter() {
	t.mu.Lock()
	t.active++
	if t.active > t.maxSeen {
		t.maxSeen = t.active
	}
	t.mu.Unlock()
}

func (t *Tracker) leave() {
	t.mu.Lock()
	t.active--
	t.mu.Unlock()
}

// MaxConcurrent returns the highest number of simultaneously connected sessions.
func (t *Tracker) MaxConcurrent() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.maxSeen
}

// Active returns the number of sessions currently connected.
func (t *Tracker) Active() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

// Factory hands out fresh clients built by a configure function and
// remembers every client it created.
type Factory struct {
	Tracker *Tracker

	configure func(n int) *Client

	mu      sync.Mutex
	clients []*Client
}

// NewFactory creates a factory. configure receives the 0-based creation
// index and may be nil for default clients.
func NewFactory(configure func(n int) *Client) *Factory {
	return &Factory{Tracker: &Tracker{}, configure: configure}
}

// New creates the next client.
func (f *Factory) New() automation.Client {
	f.mu.Lock()
	n := len(f.clients)
	f.mu.Unlock()

	var c *Client
	if f.configure != nil {
		c = f.configure(n)
	}
	if c == nil {
		c = NewClient()
	}
	c.tracker = f.Tracker

	f.mu.Lock()
	f.clients = append(f.clients, c)
	f.mu.Unlock()
	return c
}

// Func adapts the factory to automation.Factory.
func (f *Factory) Func() automation.Factory {
	return f.New
}

// Clients returns every client created so far.
func (f *Factory) Clients() []*Client {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*Client(nil), f.clients...)
}

// Created returns how many clients were created.
func (f *Factory) Created() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.clients)
}
