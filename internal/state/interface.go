package state

import (
	"context"
	"io"
	"time"

	"github.com/ShayCichocki/tiergate/internal/automation"
	"github.com/ShayCichocki/tiergate/internal/availability"
	"github.com/ShayCichocki/tiergate/pkg/models"
)

// RunStore handles run history persistence.
type RunStore interface {
	RecordRun(ctx context.Context, m models.Metrics, r models.Result) (string, error)
	GetRun(ctx context.Context, id string) (*Run, error)
	RecentRuns(ctx context.Context, limit int) ([]Run, error)
	PurgeOldRuns(ctx context.Context, olderThan time.Duration) (int64, error)
}

// AvailabilityStore handles the backend probe log.
type AvailabilityStore interface {
	RecordAvailability(ctx context.Context, a availability.Availability) error
	LastAvailability(ctx context.Context, kind automation.Kind) (*availability.Availability, error)
}

// Migrator handles database schema migrations.
type Migrator interface {
	Migrate() error
}

// Store composes everything the CLI needs from persistence.
type Store interface {
	io.Closer
	Migrator
	RunStore
	AvailabilityStore
}

// Compile-time verification that DB implements all interfaces.
var (
	_ Store             = (*DB)(nil)
	_ RunStore          = (*DB)(nil)
	_ AvailabilityStore = (*DB)(nil)
)
