package state

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ShayCichocki/tiergate/internal/automation"
	"github.com/ShayCichocki/tiergate/internal/availability"
)

// RecordAvailability appends a probe outcome to the check log.
func (db *DB) RecordAvailability(ctx context.Context, a availability.Availability) error {
	var retryAfter sql.NullString
	if a.RetryAfter != nil {
		retryAfter = sql.NullString{String: formatTime(*a.RetryAfter), Valid: true}
	}
	_, err := db.Exec(ctx, `
		INSERT INTO availability_checks (kind, status, reason, message, checked_at, retry_after)
		VALUES (?, ?, ?, ?, ?, ?)
	`, string(a.Kind), string(a.Status), string(a.Reason), a.Message, formatTime(a.CheckedAt), retryAfter)
	if err != nil {
		return fmt.Errorf("record availability: %w", err)
	}
	return nil
}

// LastAvailability returns the most recent recorded probe for kind, or
// nil when none was recorded.
func (db *DB) LastAvailability(ctx context.Context, kind automation.Kind) (*availability.Availability, error) {
	row := db.QueryRow(ctx, `
		SELECT kind, status, reason, message, checked_at, retry_after
		FROM availability_checks WHERE kind = ?
		ORDER BY checked_at DESC, id DESC LIMIT 1
	`, string(kind))

	var (
		a          availability.Availability
		reason     sql.NullString
		message    sql.NullString
		checkedAt  string
		retryAfter sql.NullString
	)
	err := row.Scan(&a.Kind, &a.Status, &reason, &message, &checkedAt, &retryAfter)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("last availability: %w", err)
	}

	a.Reason = availability.Reason(reason.String)
	a.Message = message.String
	a.CheckedAt, _ = parseTime(checkedAt)
	a.RetryAfter = parseNullableTime(retryAfter)
	return &a, nil
}
