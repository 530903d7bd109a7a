package suite

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ShayCichocki/tiergate/pkg/models"
)

const yamlSuite = `
name: checkout
app_url: http://localhost:3000
test_cases:
  - id: add-to-cart
    name: Add to cart
    critical: true
    steps:
      - action: click
        selector: "#add"
      - action: assert_text
        selector: ".count"
        expected: "1"
  - id: pay
    name: Pay
    skip: true
    steps:
      - action: assert_position
        selector: "#pay"
        position: {x: 10, y: 20, tolerance: 2}
`

func write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_YAML(t *testing.T) {
	s, err := Load(write(t, "checkout.yaml", yamlSuite))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if s.Name != "checkout" || s.AppURL != "http://localhost:3000" || len(s.TestCases) != 2 {
		t.Fatalf("Load() = %+v", s)
	}
	if !s.TestCases[0].Critical || !s.TestCases[1].Skip {
		t.Errorf("flags not decoded: %+v", s.TestCases)
	}
	pos := s.TestCases[1].Steps[0].Position
	if pos == nil || pos.X == nil || *pos.X != 10 || pos.Width != nil || pos.Tolerance != 2 {
		t.Errorf("Position = %+v", pos)
	}
}

func TestLoad_JSON(t *testing.T) {
	path := write(t, "smoke.json", `{"app_url": "http://x", "test_cases": [{"id": "a", "name": "A", "steps": [{"action": "navigate", "value": "http://x"}]}]}`)
	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.Name != "smoke" {
		t.Errorf("Name = %q, want file stem", s.Name)
	}
	if s.TestCases[0].Steps[0].Action != models.ActionNavigate {
		t.Errorf("Steps = %+v", s.TestCases[0].Steps)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		wantErr error
	}{
		{"duplicate ids", "s.yaml", "test_cases:\n  - {id: a}\n  - {id: b}\n  - {id: a}\n", ErrDuplicateID},
		{"missing id", "s.yaml", "test_cases:\n  - {name: nameless}\n", ErrMissingID},
		{"unknown field", "s.yaml", "tset_cases: []\n", nil},
		{"unknown json field", "s.json", `{"cases": []}`, nil},
		{"malformed", "s.json", `{"name": `, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(write(t, tt.file, tt.content))
			if err == nil {
				t.Fatal("Load() error = nil")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Load() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_Missing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load() error = %v, want not exist", err)
	}
}

func TestLoad_EmptyFile(t *testing.T) {
	s, err := Load(write(t, "empty.yaml", ""))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.Name != "empty" || len(s.TestCases) != 0 {
		t.Errorf("Load() = %+v", s)
	}
}

func TestWriteThenLoad(t *testing.T) {
	for _, name := range []string{"e2e.yaml", "e2e.json"} {
		path := filepath.Join(t.TempDir(), ".tiergate", name)
		want := Example("http://localhost:8080")
		if err := Write(path, want); err != nil {
			t.Fatalf("Write(%s) error = %v", name, err)
		}
		got, err := Load(path)
		if err != nil {
			t.Fatalf("Load(%s) error = %v", name, err)
		}
		if len(got.TestCases) != len(want.TestCases) || got.TestCases[1].Steps[3].Expected != "Welcome" {
			t.Errorf("Load(%s) = %+v", name, got)
		}
	}
}
