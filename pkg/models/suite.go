package models

import "fmt"

// Action is the kind of interaction a test step performs.
type Action string

const (
	// ActionClick clicks the element matched by the selector.
	ActionClick Action = "click"
	// ActionType types Value into the element matched by the selector.
	ActionType Action = "type"
	// ActionNavigate loads the address held in Value.
	ActionNavigate Action = "navigate"
	// ActionWait pauses for Timeout milliseconds.
	ActionWait Action = "wait"
	// ActionWaitForSelector waits until the selector matches an element.
	ActionWaitForSelector Action = "wait_for_selector"
	// ActionSelect picks the option Value in a select element.
	ActionSelect Action = "select"
	// ActionCheck toggles a checkbox. Value "false" unchecks it.
	ActionCheck Action = "check"
	// ActionSubmit submits the form matched by the selector.
	ActionSubmit Action = "submit"
	// ActionAssertVisible asserts the element is visible.
	ActionAssertVisible Action = "assert_visible"
	// ActionAssertText asserts the element contains Expected.
	ActionAssertText Action = "assert_text"
	// ActionAssertPosition asserts the element geometry matches Position.
	ActionAssertPosition Action = "assert_position"
)

// Valid returns true if the action is a known value.
func (a Action) Valid() bool {
	switch a {
	case ActionClick, ActionType, ActionNavigate, ActionWait, ActionWaitForSelector,
		ActionSelect, ActionCheck, ActionSubmit, ActionAssertVisible,
		ActionAssertText, ActionAssertPosition:
		return true
	default:
		return false
	}
}

// Position is an expected element geometry with a pixel tolerance.
// Nil coordinates are not compared.
type Position struct {
	X         *float64 `json:"x,omitempty" yaml:"x,omitempty"`
	Y         *float64 `json:"y,omitempty" yaml:"y,omitempty"`
	Width     *float64 `json:"width,omitempty" yaml:"width,omitempty"`
	Height    *float64 `json:"height,omitempty" yaml:"height,omitempty"`
	Tolerance float64  `json:"tolerance,omitempty" yaml:"tolerance,omitempty"`
}

// TestStep is a single step in a test case.
type TestStep struct {
	// Action is the interaction to perform.
	Action Action `json:"action" yaml:"action"`
	// Selector targets an element (CSS, XPath or text selector).
	Selector string `json:"selector,omitempty" yaml:"selector,omitempty"`
	// Value is typed text, a navigation address or a select option.
	Value string `json:"value,omitempty" yaml:"value,omitempty"`
	// Expected is the expected text for assertions.
	Expected string `json:"expected,omitempty" yaml:"expected,omitempty"`
	// Timeout is an optional timeout in milliseconds.
	Timeout int `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	// Position is the expected geometry for assert_position.
	Position *Position `json:"position,omitempty" yaml:"position,omitempty"`
}

// Validate checks that the fields required by the step's action are set.
// It is called when the step is executed, not when it is built.
func (s TestStep) Validate() error {
	switch s.Action {
	case ActionClick, ActionWaitForSelector, ActionCheck, ActionSubmit, ActionAssertVisible:
		if s.Selector == "" {
			return fmt.Errorf("%s action requires selector", s.Action)
		}
	case ActionType, ActionSelect:
		if s.Selector == "" || s.Value == "" {
			return fmt.Errorf("%s action requires selector and value", s.Action)
		}
	case ActionNavigate:
		if s.Value == "" {
			return fmt.Errorf("navigate action requires an address in value")
		}
	case ActionWait:
	case ActionAssertText:
		if s.Selector == "" || s.Expected == "" {
			return fmt.Errorf("assert_text action requires selector and expected text")
		}
	case ActionAssertPosition:
		if s.Selector == "" || s.Position == nil {
			return fmt.Errorf("assert_position action requires selector and position")
		}
	default:
		return fmt.Errorf("unknown action type: %q", s.Action)
	}
	return nil
}

// Clone returns a deep copy of the step.
func (s TestStep) Clone() TestStep {
	if s.Position != nil {
		p := *s.Position
		s.Position = &p
	}
	return s
}

// TestCase is a single end-to-end test case.
type TestCase struct {
	// ID is unique within a suite.
	ID string `json:"id" yaml:"id"`
	// Name is a human-readable name.
	Name string `json:"name" yaml:"name"`
	// Description explains what the case validates.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	// Steps run in order.
	Steps []TestStep `json:"steps,omitempty" yaml:"steps,omitempty"`
	// Skip marks the case as skipped.
	Skip bool `json:"skip,omitempty" yaml:"skip,omitempty"`
	// Critical cases survive every feature filter.
	Critical bool `json:"critical,omitempty" yaml:"critical,omitempty"`
}

// Clone returns a deep copy of the test case.
func (c TestCase) Clone() TestCase {
	steps := make([]TestStep, len(c.Steps))
	for i, s := range c.Steps {
		steps[i] = s.Clone()
	}
	c.Steps = steps
	return c
}

// TestSuite is an ordered collection of test cases against one target.
type TestSuite struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	// AppURL is the address (web) or path (desktop) of the system under test.
	AppURL    string     `json:"app_url" yaml:"app_url"`
	TestCases []TestCase `json:"test_cases" yaml:"test_cases"`
}

// IDs returns the test case identifiers in suite order.
func (s TestSuite) IDs() []string {
	ids := make([]string, len(s.TestCases))
	for i, tc := range s.TestCases {
		ids[i] = tc.ID
	}
	return ids
}

// DuplicateIDs returns identifiers that appear more than once.
func (s TestSuite) DuplicateIDs() []string {
	seen := make(map[string]int, len(s.TestCases))
	var dups []string
	for _, tc := range s.TestCases {
		seen[tc.ID]++
		if seen[tc.ID] == 2 {
			dups = append(dups, tc.ID)
		}
	}
	return dups
}

// CriticalCases returns the critical test cases in suite order.
func (s TestSuite) CriticalCases() []TestCase {
	var out []TestCase
	for _, tc := range s.TestCases {
		if tc.Critical {
			out = append(out, tc)
		}
	}
	return out
}
