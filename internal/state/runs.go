package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ShayCichocki/tiergate/pkg/models"
)

// Run is one recorded validation run.
type Run struct {
	ID        string           `json:"id"`
	Passed    bool             `json:"passed"`
	Metrics   models.Metrics   `json:"metrics"`
	Output    string           `json:"output,omitempty"`
	Failures  []models.Failure `json:"failures,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// Result rebuilds the verdict of a recorded run. Screenshots are not kept.
func (r Run) Result() models.Result {
	return models.Result{
		Passed:       r.Passed,
		TotalChecks:  r.Metrics.TestCount,
		PassedChecks: r.Metrics.PassedCount,
		FailedChecks: r.Metrics.FailedCount,
		Failures:     r.Failures,
		Duration:     r.Metrics.Duration,
		Output:       r.Output,
	}
}

// RecordRun stores the metrics and verdict of a finished run and returns
// the new run id.
func (db *DB) RecordRun(ctx context.Context, m models.Metrics, r models.Result) (string, error) {
	failures, err := json.Marshal(r.Failures)
	if err != nil {
		return "", fmt.Errorf("encode failures: %w", err)
	}

	id := uuid.New().String()
	_, err = db.Exec(ctx, `
		INSERT INTO runs (id, tier, depth, passed, test_count, passed_count, failed_count,
			skipped_count, environment_count, duration_ms, output, failures, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, m.Tier, string(m.Depth), boolToInt(r.Passed), m.TestCount, m.PassedCount, m.FailedCount,
		m.SkippedCount, m.EnvironmentCount, m.Duration.Milliseconds(), r.Output, string(failures),
		formatTime(time.Now()))
	if err != nil {
		return "", fmt.Errorf("record run: %w", err)
	}
	return id, nil
}

const runColumns = `id, tier, depth, passed, test_count, passed_count, failed_count,
	skipped_count, environment_count, duration_ms, output, failures, created_at`

// GetRun retrieves a run by ID. It returns nil when the run does not exist.
func (db *DB) GetRun(ctx context.Context, id string) (*Run, error) {
	row := db.QueryRow(ctx, "SELECT "+runColumns+" FROM runs WHERE id = ?", id)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// RecentRuns returns up to limit runs, newest first. limit <= 0 means 20.
func (db *DB) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.Query(ctx, "SELECT "+runColumns+" FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// PurgeOldRuns deletes runs older than the specified duration.
// Returns the number of runs deleted.
func (db *DB) PurgeOldRuns(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := formatTime(time.Now().Add(-olderThan))

	result, err := db.Exec(ctx, "DELETE FROM runs WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge old runs: %w", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	return count, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	var (
		run        Run
		depth      string
		passed     int
		durationMs int64
		output     sql.NullString
		failures   sql.NullString
		createdAt  string
	)
	err := s.Scan(&run.ID, &run.Metrics.Tier, &depth, &passed, &run.Metrics.TestCount,
		&run.Metrics.PassedCount, &run.Metrics.FailedCount, &run.Metrics.SkippedCount,
		&run.Metrics.EnvironmentCount, &durationMs, &output, &failures, &createdAt)
	if err != nil {
		return nil, err
	}

	run.Metrics.Depth = models.Depth(depth)
	run.Metrics.Duration = time.Duration(durationMs) * time.Millisecond
	run.Passed = passed != 0
	run.Output = output.String
	run.CreatedAt, _ = parseTime(createdAt)
	if failures.Valid && failures.String != "" && failures.String != "null" {
		if err := json.Unmarshal([]byte(failures.String), &run.Failures); err != nil {
			return nil, fmt.Errorf("decode failures: %w", err)
		}
	}
	return &run, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
