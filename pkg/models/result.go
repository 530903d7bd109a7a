package models

import "time"

// FailureKind classifies a failure record.
type FailureKind string

const (
	// FailureAssertion is an assertion that did not hold.
	FailureAssertion FailureKind = "assertion"
	// FailureConfig is a malformed step definition.
	FailureConfig FailureKind = "config"
	// FailureSession is any other error during a case's session.
	FailureSession FailureKind = "session"
	// FailureLaunch is a target that failed to start.
	FailureLaunch FailureKind = "launch"
	// FailureCheck is a failed smoke check.
	FailureCheck FailureKind = "check"
)

// StepRecord is one entry in a test case's interaction history.
type StepRecord struct {
	Step     int    `json:"step"`
	Action   Action `json:"action"`
	Selector string `json:"selector,omitempty"`
	Value    string `json:"value,omitempty"`
	Status   string `json:"status"`
	Error    string `json:"error,omitempty"`
}

// Failure describes one failed check or test case.
type Failure struct {
	// Check names the smoke check, if this is a smoke failure.
	Check    string       `json:"check,omitempty"`
	CaseID   string       `json:"id,omitempty"`
	CaseName string       `json:"name,omitempty"`
	Kind     FailureKind  `json:"kind"`
	Error    string       `json:"error"`
	History  []StepRecord `json:"interaction_history,omitempty"`
	// DOMSnapshot is a bounded capture of the page when the case failed.
	DOMSnapshot string `json:"dom_snapshot,omitempty"`
	// Context carries optional desktop failure details.
	Context map[string]any `json:"context,omitempty"`
}

// Result is the aggregated outcome of a validation run.
type Result struct {
	Passed       bool          `json:"passed"`
	TotalChecks  int           `json:"total_checks"`
	PassedChecks int           `json:"passed_checks"`
	FailedChecks int           `json:"failed_checks"`
	Failures     []Failure     `json:"failures,omitempty"`
	Screenshots  []string      `json:"screenshots,omitempty"`
	Duration     time.Duration `json:"duration"`
	// Output is a human-readable note, used by synthetic results.
	Output string `json:"output,omitempty"`
}

// NewPassingResult returns a result with zero checks that passed.
func NewPassingResult(output string) Result {
	return Result{Passed: true, Output: output}
}

// CaseResult is the outcome of running a single test case.
type CaseResult struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Passed   bool          `json:"passed"`
	Skipped  bool          `json:"skipped,omitempty"`
	Duration time.Duration `json:"duration"`
	// Failure is set when Passed is false.
	Failure *Failure `json:"failure,omitempty"`
}

// ResultFromCases folds per-case outcomes into a Result.
// Each case counts as one check. Skipped cases count as passed.
func ResultFromCases(cases []CaseResult) Result {
	r := Result{TotalChecks: len(cases)}
	for _, c := range cases {
		if c.Passed {
			r.PassedChecks++
			continue
		}
		r.FailedChecks++
		if c.Failure != nil {
			r.Failures = append(r.Failures, *c.Failure)
		} else {
			r.Failures = append(r.Failures, Failure{
				CaseID:   c.ID,
				CaseName: c.Name,
				Kind:     FailureSession,
				Error:    "test case failed",
			})
		}
	}
	r.Passed = r.FailedChecks == 0
	return r
}
