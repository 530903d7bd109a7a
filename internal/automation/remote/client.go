// Package remote implements automation.Client over a JSON HTTP bridge to an
// automation backend.
//
// Every capability is one request: POST <endpoint>/call with body
// {"method": "...", "params": {...}}. The backend answers
// {"result": <value>} or {"error": "..."}.
package remote

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/ShayCichocki/tiergate/internal/automation"
	"github.com/ShayCichocki/tiergate/pkg/models"
)

// DefaultTimeout bounds a single bridge call.
const DefaultTimeout = 30 * time.Second

// Client talks to one automation backend session.
type Client struct {
	endpoint string
	kind     automation.Kind
	token    string
	env      *automation.Environment
	http     *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithToken sends "Authorization: Bearer <token>" on every call.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-call timeout. A client passed to WithHTTPClient
// is copied, not modified.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d <= 0 {
			return
		}
		hc := http.Client{}
		if c.http != nil {
			hc = *c.http
		}
		hc.Timeout = d
		c.http = &hc
	}
}

// New creates a client for endpoint. Desktop clients should be created
// with NewDesktop to expose the desktop extensions.
func New(endpoint string, kind automation.Kind, opts ...Option) *Client {
	c := &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		kind:     kind,
		http:     &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Factory returns an automation.Factory producing fresh clients for kind.
func Factory(endpoint string, kind automation.Kind, opts ...Option) automation.Factory {
	return func() automation.Client {
		if kind == automation.KindDesktop {
			return NewDesktop(endpoint, opts...)
		}
		return New(endpoint, kind, opts...)
	}
}

type request struct {
	Method string         `json:"method"`
	Params map[string]any `json:"params,omitempty"`
}

type response struct {
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error,omitempty"`
}

// call performs one bridge request and returns the raw result.
func (c *Client) call(ctx context.Context, method string, params map[string]any) (json.RawMessage, error) {
	body, err := json.Marshal(request{Method: method, Params: params})
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/call", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "tiergate")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if automation.IsTimeout(err) {
			return nil, fmt.Errorf("%s: %w: %v", method, automation.ErrTimeout, err)
		}
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	if err := statusError(resp.StatusCode); err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}

	var out response
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<20)).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", method, err)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("%s: %s", method, out.Error)
	}
	return out.Result, nil
}

func statusError(code int) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusUnauthorized:
		return automation.ErrAuth
	case code == http.StatusForbidden:
		return automation.ErrPermission
	case code == http.StatusUpgradeRequired:
		return automation.ErrVersion
	case code == http.StatusNotImplemented || code == http.StatusNotFound:
		return automation.ErrUnsupported
	case code == http.StatusRequestTimeout || code == http.StatusGatewayTimeout:
		return automation.ErrTimeout
	default:
		return fmt.Errorf("backend returned HTTP %d", code)
	}
}

func (c *Client) do(ctx context.Context, method string, params map[string]any) error {
	_, err := c.call(ctx, method, params)
	return err
}

func (c *Client) boolCall(ctx context.Context, method string, params map[string]any) (bool, error) {
	raw, err := c.call(ctx, method, params)
	if err != nil {
		return false, err
	}
	var ok bool
	if len(raw) == 0 || string(raw) == "null" {
		return false, nil
	}
	if err := json.Unmarshal(raw, &ok); err != nil {
		return false, fmt.Errorf("decode %s result: %w", method, err)
	}
	return ok, nil
}

func (c *Client) decode(ctx context.Context, method string, params map[string]any, v any) error {
	raw, err := c.call(ctx, method, params)
	if err != nil {
		return err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s result: %w", method, err)
	}
	return nil
}

// SelectEnvironment makes Connect request a specific environment.
func (c *Client) SelectEnvironment(env automation.Environment) {
	c.env = &env
}

// Connect opens the session. A refused connection reports false without
// an error: the backend is simply not running.
func (c *Client) Connect(ctx context.Context) (bool, error) {
	params := map[string]any{"kind": string(c.kind)}
	if c.env != nil {
		params["environment"] = c.env
	}
	ok, err := c.boolCall(ctx, "connect", params)
	if err != nil && isRefused(err) {
		return false, nil
	}
	return ok, err
}

func isRefused(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}

func (c *Client) Launch(ctx context.Context, target string) (bool, error) {
	key := "url"
	if c.kind == automation.KindDesktop {
		key = "path"
	}
	return c.boolCall(ctx, "launch", map[string]any{key: target})
}

func (c *Client) Click(ctx context.Context, selector string) error {
	return c.do(ctx, "click", map[string]any{"selector": selector})
}

func (c *Client) TypeText(ctx context.Context, selector, text string) error {
	return c.do(ctx, "type", map[string]any{"selector": selector, "text": text})
}

func (c *Client) Navigate(ctx context.Context, address string) error {
	return c.do(ctx, "navigate", map[string]any{"url": address})
}

func (c *Client) Wait(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error {
	return c.do(ctx, "wait_for_selector", map[string]any{"selector": selector, "timeout_ms": timeout.Milliseconds()})
}

func (c *Client) Select(ctx context.Context, selector, value string) error {
	return c.do(ctx, "select", map[string]any{"selector": selector, "value": value})
}

func (c *Client) Check(ctx context.Context, selector string, checked bool) error {
	return c.do(ctx, "check", map[string]any{"selector": selector, "checked": checked})
}

func (c *Client) Submit(ctx context.Context, selector string) error {
	return c.do(ctx, "submit", map[string]any{"selector": selector})
}

func (c *Client) AssertVisible(ctx context.Context, selector string) (bool, error) {
	return c.boolCall(ctx, "assert_visible", map[string]any{"selector": selector})
}

func (c *Client) AssertText(ctx context.Context, selector, expected string) (bool, error) {
	return c.boolCall(ctx, "assert_text", map[string]any{"selector": selector, "expected": expected})
}

// AssertPosition fetches the element's bounding box and compares locally.
func (c *Client) AssertPosition(ctx context.Context, selector string, expected models.Position) (bool, error) {
	var box struct {
		X      float64 `json:"x"`
		Y      float64 `json:"y"`
		Width  float64 `json:"width"`
		Height float64 `json:"height"`
	}
	if err := c.decode(ctx, "bounding_box", map[string]any{"selector": selector}, &box); err != nil {
		return false, err
	}
	actual := models.Position{X: &box.X, Y: &box.Y, Width: &box.Width, Height: &box.Height}
	return automation.PositionMatches(actual, expected), nil
}

// Screenshot asks the backend for a base64 PNG and writes it to path.
func (c *Client) Screenshot(ctx context.Context, path string) (bool, error) {
	var encoded string
	if err := c.decode(ctx, "screenshot", nil, &encoded); err != nil {
		return false, err
	}
	if encoded == "" {
		return false, nil
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return false, fmt.Errorf("decode screenshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return false, err
	}
	return true, nil
}

// Close ends the session. A backend that is already gone is not an error.
func (c *Client) Close(ctx context.Context) error {
	err := c.do(ctx, "close", nil)
	if err != nil && isRefused(err) {
		return nil
	}
	return err
}

// ConsoleErrors returns console errors the page has logged.
func (c *Client) ConsoleErrors(ctx context.Context) ([]string, error) {
	var errs []string
	if err := c.decode(ctx, "console_errors", nil, &errs); err != nil {
		return nil, err
	}
	return errs, nil
}

// FetchStatus issues a GET from the page context and returns its status code.
func (c *Client) FetchStatus(ctx context.Context, url string) (int, error) {
	var status int
	if err := c.decode(ctx, "fetch_status", map[string]any{"url": url}, &status); err != nil {
		return 0, err
	}
	return status, nil
}

// DOMSnapshot returns the current document HTML.
func (c *Client) DOMSnapshot(ctx context.Context) (string, error) {
	var dom string
	if err := c.decode(ctx, "dom_snapshot", nil, &dom); err != nil {
		return "", err
	}
	return dom, nil
}

var (
	_ automation.Client              = (*Client)(nil)
	_ automation.ConsoleReader       = (*Client)(nil)
	_ automation.HealthFetcher       = (*Client)(nil)
	_ automation.DOMSnapshotter      = (*Client)(nil)
	_ automation.EnvironmentSelector = (*Client)(nil)
)

// Desktop adds the desktop extensions to Client.
type Desktop struct {
	*Client
}

// NewDesktop creates a desktop client for endpoint.
func NewDesktop(endpoint string, opts ...Option) *Desktop {
	return &Desktop{Client: New(endpoint, automation.KindDesktop, opts...)}
}

func (d *Desktop) WindowState(ctx context.Context) (automation.WindowState, error) {
	var ws automation.WindowState
	err := d.decode(ctx, "window_state", nil, &ws)
	return ws, err
}

func (d *Desktop) Windows(ctx context.Context) ([]map[string]any, error) {
	var out []map[string]any
	err := d.decode(ctx, "windows", nil, &out)
	return out, err
}

func (d *Desktop) AppState(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	err := d.decode(ctx, "app_state", nil, &out)
	return out, err
}

func (d *Desktop) IPCMessages(ctx context.Context, limit int) ([]map[string]any, error) {
	var out []map[string]any
	err := d.decode(ctx, "ipc_messages", map[string]any{"limit": limit}, &out)
	return out, err
}

var _ automation.DesktopClient = (*Desktop)(nil)
