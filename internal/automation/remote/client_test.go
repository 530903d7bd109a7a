package remote

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ShayCichocki/tiergate/internal/automation"
	"github.com/ShayCichocki/tiergate/pkg/models"
)

// bridge is a fake backend answering /call with canned results per method.
func bridge(t *testing.T, results map[string]any, seen *[]request) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/call" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if seen != nil {
			*seen = append(*seen, req)
		}
		res, ok := results[req.Method]
		if !ok {
			w.WriteHeader(http.StatusNotImplemented)
			return
		}
		if msg, isErr := res.(error); isErr {
			_ = json.NewEncoder(w).Encode(map[string]any{"error": msg.Error()})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"result": res})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_ConnectAndLaunch(t *testing.T) {
	var seen []request
	srv := bridge(t, map[string]any{"connect": true, "launch": true}, &seen)
	c := New(srv.URL, automation.KindWeb)

	ok, err := c.Connect(context.Background())
	if err != nil || !ok {
		t.Fatalf("Connect() = %v, %v, want true, nil", ok, err)
	}
	ok, err = c.Launch(context.Background(), "http://localhost:3000")
	if err != nil || !ok {
		t.Fatalf("Launch() = %v, %v, want true, nil", ok, err)
	}
	if len(seen) != 2 || seen[1].Params["url"] != "http://localhost:3000" {
		t.Errorf("launch params = %+v, want url", seen)
	}
}

func TestDesktop_LaunchUsesPath(t *testing.T) {
	var seen []request
	srv := bridge(t, map[string]any{"launch": true}, &seen)
	d := NewDesktop(srv.URL)

	if _, err := d.Launch(context.Background(), "/opt/app/App"); err != nil {
		t.Fatalf("Launch() error = %v", err)
	}
	if seen[0].Params["path"] != "/opt/app/App" {
		t.Errorf("params = %v, want path", seen[0].Params)
	}
}

func TestClient_ConnectRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	ok, err := New(addr, automation.KindWeb).Connect(context.Background())
	if ok || err != nil {
		t.Errorf("Connect() = %v, %v, want false, nil", ok, err)
	}
}

func TestClient_StatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, automation.ErrAuth},
		{http.StatusForbidden, automation.ErrPermission},
		{http.StatusUpgradeRequired, automation.ErrVersion},
		{http.StatusNotImplemented, automation.ErrUnsupported},
		{http.StatusGatewayTimeout, automation.ErrTimeout},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			_, err := New(srv.URL, automation.KindWeb).Connect(context.Background())
			if !errors.Is(err, tt.want) {
				t.Errorf("Connect() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	_, err := New(srv.URL, automation.KindWeb, WithTimeout(20*time.Millisecond)).Connect(context.Background())
	if !errors.Is(err, automation.ErrTimeout) {
		t.Errorf("Connect() error = %v, want ErrTimeout", err)
	}
	if err != nil && !strings.Contains(err.Error(), "Client.Timeout") {
		t.Errorf("Connect() error = %q, want the transport error kept", err)
	}
}

func TestWithTimeout_LeavesCallerClientAlone(t *testing.T) {
	hc := &http.Client{}
	c := New("http://127.0.0.1:1", automation.KindWeb, WithHTTPClient(hc), WithTimeout(5*time.Second))

	if hc.Timeout != 0 {
		t.Errorf("caller client Timeout = %v, want 0", hc.Timeout)
	}
	if c.http == hc || c.http.Timeout != 5*time.Second {
		t.Errorf("client http = %p (timeout %v), want a copy with 5s", c.http, c.http.Timeout)
	}
}

func TestClient_BackendError(t *testing.T) {
	srv := bridge(t, map[string]any{"click": errors.New("no element matches #go")}, nil)

	err := New(srv.URL, automation.KindWeb).Click(context.Background(), "#go")
	if err == nil || err.Error() != "click: no element matches #go" {
		t.Errorf("Click() error = %v", err)
	}
}

func TestClient_AssertPosition(t *testing.T) {
	srv := bridge(t, map[string]any{
		"bounding_box": map[string]float64{"x": 10, "y": 20, "width": 300, "height": 40},
	}, nil)
	c := New(srv.URL, automation.KindWeb)

	x := 12.0
	ok, err := c.AssertPosition(context.Background(), "#hdr", models.Position{X: &x, Tolerance: 5})
	if err != nil || !ok {
		t.Errorf("AssertPosition() = %v, %v, want true, nil", ok, err)
	}
	x = 40
	ok, _ = c.AssertPosition(context.Background(), "#hdr", models.Position{X: &x, Tolerance: 5})
	if ok {
		t.Error("AssertPosition() = true for out-of-tolerance x")
	}
}

func TestClient_Screenshot(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G'}
	srv := bridge(t, map[string]any{"screenshot": base64.StdEncoding.EncodeToString(png)}, nil)
	path := filepath.Join(t.TempDir(), "shots", "case.png")

	ok, err := New(srv.URL, automation.KindWeb).Screenshot(context.Background(), path)
	if err != nil || !ok {
		t.Fatalf("Screenshot() = %v, %v", ok, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != string(png) {
		t.Errorf("screenshot bytes = %v, want %v", data, png)
	}
}

func TestClient_OptionalCapabilities(t *testing.T) {
	srv := bridge(t, map[string]any{
		"console_errors": []string{"TypeError: x is undefined"},
		"fetch_status":   200,
		"dom_snapshot":   "<html></html>",
	}, nil)
	c := New(srv.URL, automation.KindWeb, WithToken("secret"))
	ctx := context.Background()

	errs, err := c.ConsoleErrors(ctx)
	if err != nil || len(errs) != 1 {
		t.Errorf("ConsoleErrors() = %v, %v", errs, err)
	}
	status, err := c.FetchStatus(ctx, "http://localhost/health")
	if err != nil || status != 200 {
		t.Errorf("FetchStatus() = %d, %v", status, err)
	}
	dom, err := c.DOMSnapshot(ctx)
	if err != nil || dom != "<html></html>" {
		t.Errorf("DOMSnapshot() = %q, %v", dom, err)
	}
}

func TestClient_UnsupportedCapability(t *testing.T) {
	srv := bridge(t, map[string]any{}, nil)

	_, err := New(srv.URL, automation.KindWeb).ConsoleErrors(context.Background())
	if !errors.Is(err, automation.ErrUnsupported) {
		t.Errorf("ConsoleErrors() error = %v, want ErrUnsupported", err)
	}
}

func TestFactory_KindSelectsType(t *testing.T) {
	if _, ok := Factory("http://x", automation.KindDesktop)().(automation.DesktopClient); !ok {
		t.Error("desktop factory did not produce a DesktopClient")
	}
	if _, ok := Factory("http://x", automation.KindWeb)().(automation.DesktopClient); ok {
		t.Error("web factory produced a DesktopClient")
	}
}

func TestClient_SelectEnvironment(t *testing.T) {
	var seen []request
	srv := bridge(t, map[string]any{"connect": true}, &seen)
	c := New(srv.URL, automation.KindWeb)
	c.SelectEnvironment(automation.Environment{Name: "firefox", Headless: true})

	if _, err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	env, ok := seen[0].Params["environment"].(map[string]any)
	if !ok || env["name"] != "firefox" || env["headless"] != true {
		t.Errorf("environment param = %v", seen[0].Params["environment"])
	}
}
