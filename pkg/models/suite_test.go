package models

import (
	"strings"
	"testing"
)

func TestTestStep_Validate(t *testing.T) {
	pos := &Position{Tolerance: 2}
	tests := []struct {
		name    string
		step    TestStep
		wantErr string
	}{
		{"click with selector", TestStep{Action: ActionClick, Selector: "#go"}, ""},
		{"click without selector", TestStep{Action: ActionClick}, "requires selector"},
		{"type without value", TestStep{Action: ActionType, Selector: "#name"}, "requires selector and value"},
		{"type complete", TestStep{Action: ActionType, Selector: "#name", Value: "bob"}, ""},
		{"navigate without value", TestStep{Action: ActionNavigate}, "requires an address"},
		{"wait needs nothing", TestStep{Action: ActionWait}, ""},
		{"select without value", TestStep{Action: ActionSelect, Selector: "#s"}, "requires selector and value"},
		{"assert text without expected", TestStep{Action: ActionAssertText, Selector: "h1"}, "expected text"},
		{"assert position without position", TestStep{Action: ActionAssertPosition, Selector: "h1"}, "requires selector and position"},
		{"assert position complete", TestStep{Action: ActionAssertPosition, Selector: "h1", Position: pos}, ""},
		{"unknown action", TestStep{Action: Action("hover")}, "unknown action"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.step.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestTestCase_CloneIsDeep(t *testing.T) {
	x := 10.0
	orig := TestCase{
		ID:    "login",
		Steps: []TestStep{{Action: ActionAssertPosition, Selector: "h1", Position: &Position{X: &x}}},
	}

	clone := orig.Clone()
	clone.Steps[0].Selector = "h2"
	clone.Steps[0].Position.Tolerance = 5

	if orig.Steps[0].Selector != "h1" {
		t.Errorf("clone shares steps slice with original")
	}
	if orig.Steps[0].Position.Tolerance != 0 {
		t.Errorf("clone shares position with original")
	}
}

func TestTestSuite_DuplicateIDs(t *testing.T) {
	suite := TestSuite{TestCases: []TestCase{{ID: "a"}, {ID: "b"}, {ID: "a"}, {ID: "a"}}}

	dups := suite.DuplicateIDs()
	if len(dups) != 1 || dups[0] != "a" {
		t.Errorf("DuplicateIDs() = %v, want [a]", dups)
	}
}
