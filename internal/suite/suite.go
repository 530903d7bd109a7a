// Package suite loads test suite definitions from YAML or JSON files.
package suite

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/ShayCichocki/tiergate/pkg/models"
)

// ErrDuplicateID is returned when two cases in a suite share an id.
var ErrDuplicateID = errors.New("duplicate test case id")

// ErrMissingID is returned when a case has no id.
var ErrMissingID = errors.New("test case without id")

// Load reads a suite file. Files ending in .json are decoded as JSON,
// everything else as YAML. Unknown fields are rejected.
func Load(path string) (models.TestSuite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.TestSuite{}, fmt.Errorf("reading suite: %w", err)
	}

	s, err := Parse(data, strings.EqualFold(filepath.Ext(path), ".json"))
	if err != nil {
		return models.TestSuite{}, fmt.Errorf("%s: %w", path, err)
	}
	if s.Name == "" {
		s.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return s, nil
}

// Parse decodes and validates a suite document.
func Parse(data []byte, isJSON bool) (models.TestSuite, error) {
	var s models.TestSuite
	if isJSON {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&s); err != nil {
			return models.TestSuite{}, fmt.Errorf("decoding json: %w", err)
		}
	} else {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
			return models.TestSuite{}, fmt.Errorf("decoding yaml: %w", err)
		}
	}

	if err := Validate(s); err != nil {
		return models.TestSuite{}, err
	}
	return s, nil
}

// Validate checks suite-level invariants. Step fields are checked when
// the steps run.
func Validate(s models.TestSuite) error {
	for i, tc := range s.TestCases {
		if strings.TrimSpace(tc.ID) == "" {
			return fmt.Errorf("%w: case %d (%q)", ErrMissingID, i, tc.Name)
		}
	}
	if dups := s.DuplicateIDs(); len(dups) > 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateID, strings.Join(dups, ", "))
	}
	return nil
}

// Write stores s at path as YAML, or JSON when path ends in .json.
func Write(path string, s models.TestSuite) error {
	var (
		data []byte
		err  error
	)
	if strings.EqualFold(filepath.Ext(path), ".json") {
		data, err = json.MarshalIndent(s, "", "  ")
		data = append(data, '\n')
	} else {
		data, err = yaml.Marshal(s)
	}
	if err != nil {
		return fmt.Errorf("encoding suite: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating suite directory: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// Example returns the starter suite written by init.
func Example(appURL string) models.TestSuite {
	return models.TestSuite{
		Name:        "e2e",
		Description: "End-to-end checks run by tiergate",
		AppURL:      appURL,
		TestCases: []models.TestCase{
			{
				ID:       "home-loads",
				Name:     "Home page loads",
				Critical: true,
				Steps: []models.TestStep{
					{Action: models.ActionNavigate, Value: appURL},
					{Action: models.ActionWaitForSelector, Selector: "body", Timeout: 5000},
					{Action: models.ActionAssertVisible, Selector: "body"},
				},
			},
			{
				ID:   "login-form",
				Name: "Login form accepts input",
				Steps: []models.TestStep{
					{Action: models.ActionClick, Selector: "#login"},
					{Action: models.ActionType, Selector: "#email", Value: "user@example.com"},
					{Action: models.ActionSubmit, Selector: "form"},
					{Action: models.ActionAssertText, Selector: ".welcome", Expected: "Welcome"},
				},
			},
		},
	}
}
