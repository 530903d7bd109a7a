package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Metrics summarizes one orchestrator invocation.
// It is produced once per run and never mutated afterwards.
type Metrics struct {
	Tier             string        `json:"tier"`
	Depth            Depth         `json:"depth"`
	TestCount        int           `json:"test_count"`
	PassedCount      int           `json:"passed_count"`
	FailedCount      int           `json:"failed_count"`
	SkippedCount     int           `json:"skipped_test_count"`
	Duration         time.Duration `json:"-"`
	EnvironmentCount int           `json:"browser_count"`
}

// PassRate returns passed/total, or 1.0 when no tests ran.
func (m Metrics) PassRate() float64 {
	if m.TestCount == 0 {
		return 1.0
	}
	return float64(m.PassedCount) / float64(m.TestCount)
}

// MarshalJSON adds the derived pass rate and duration in seconds.
func (m Metrics) MarshalJSON() ([]byte, error) {
	type plain Metrics
	return json.Marshal(struct {
		plain
		PassRate        float64 `json:"pass_rate"`
		DurationSeconds float64 `json:"duration_seconds"`
	}{
		plain:           plain(m),
		PassRate:        m.PassRate(),
		DurationSeconds: m.Duration.Seconds(),
	})
}

// String renders the metrics as a single key=value line.
func (m Metrics) String() string {
	return fmt.Sprintf("tier=%s depth=%s tests=%d passed=%d failed=%d skipped=%d pass_rate=%.2f duration=%.2fs environments=%d",
		m.Tier, m.Depth, m.TestCount, m.PassedCount, m.FailedCount, m.SkippedCount,
		m.PassRate(), m.Duration.Seconds(), m.EnvironmentCount)
}
