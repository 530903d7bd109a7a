// Package automation defines the boundary to the automation backend that
// drives real browsers or desktop applications, and runs test cases
// against it.
package automation

import (
	"context"
	"time"

	"github.com/ShayCichocki/tiergate/pkg/models"
)

// Kind identifies a backend family. Availability is cached per kind.
type Kind string

const (
	// KindWeb drives web applications in a browser.
	KindWeb Kind = "web"
	// KindDesktop drives desktop (Electron-style) applications.
	KindDesktop Kind = "desktop"
)

// Valid returns true if the kind is a known value.
func (k Kind) Valid() bool {
	return k == KindWeb || k == KindDesktop
}

// Client is the capability set every automation backend must provide.
// Boolean results report the backend's answer; errors report a failed call.
type Client interface {
	// Connect opens the backend session. false means the backend refused.
	Connect(ctx context.Context) (bool, error)
	// Launch loads the target address (web) or path (desktop).
	Launch(ctx context.Context, target string) (bool, error)

	Click(ctx context.Context, selector string) error
	TypeText(ctx context.Context, selector, text string) error
	Navigate(ctx context.Context, address string) error
	Wait(ctx context.Context, d time.Duration) error
	WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error
	Select(ctx context.Context, selector, value string) error
	Check(ctx context.Context, selector string, checked bool) error
	Submit(ctx context.Context, selector string) error

	AssertVisible(ctx context.Context, selector string) (bool, error)
	AssertText(ctx context.Context, selector, expected string) (bool, error)
	AssertPosition(ctx context.Context, selector string, expected models.Position) (bool, error)

	Screenshot(ctx context.Context, path string) (bool, error)

	// Close ends the session. It must be safe to call after a failed Connect.
	Close(ctx context.Context) error
}

// Factory creates a fresh, unconnected client.
type Factory func() Client

// ConsoleReader is implemented by backends that expose runtime console errors.
type ConsoleReader interface {
	ConsoleErrors(ctx context.Context) ([]string, error)
}

// HealthFetcher is implemented by backends that can issue an HTTP GET from
// the page context. It returns the response status code.
type HealthFetcher interface {
	FetchStatus(ctx context.Context, url string) (int, error)
}

// DOMSnapshotter is implemented by backends that can dump the current DOM.
type DOMSnapshotter interface {
	DOMSnapshot(ctx context.Context) (string, error)
}

// Environment is one entry of an environment matrix, e.g. a browser engine.
type Environment struct {
	Name     string         `json:"name"`
	Headless bool           `json:"headless"`
	Options  map[string]any `json:"options,omitempty"`
}

// EnvironmentSelector is implemented by backends that can target a
// specific environment. It is called before Connect.
type EnvironmentSelector interface {
	SelectEnvironment(env Environment)
}

// WindowState describes a desktop application window.
type WindowState struct {
	Title      string `json:"title"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	X          int    `json:"x"`
	Y          int    `json:"y"`
	Focused    bool   `json:"focused"`
	Visible    bool   `json:"visible"`
	Fullscreen bool   `json:"fullscreen"`
}

// DesktopClient is the optional desktop extension set: window state,
// multi-window handling and IPC introspection.
type DesktopClient interface {
	WindowState(ctx context.Context) (WindowState, error)
	Windows(ctx context.Context) ([]map[string]any, error)
	AppState(ctx context.Context) (map[string]any, error)
	IPCMessages(ctx context.Context, limit int) ([]map[string]any, error)
}
