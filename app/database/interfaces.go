package database

import (
	"context"
	"time"

	"github.com/trendsift/trendsift/app/features"
	"github.com/trendsift/trendsift/app/normalizer"
)

// RawRecordRepository is the append-only keyed store of captured payloads.
type RawRecordRepository interface {
	InsertBatch(ctx context.Context, records []normalizer.RawRecord) (int, error)
	RecentExternalIDs(ctx context.Context, source string, days int) (map[string]bool, error)
	GetBatch(ctx context.Context, source string, since time.Time) ([]normalizer.RawRecord, error)
}

// FeatureRepository stores finished feature rows. A run's output replaces
// the previous snapshot wholesale; rows are never patched in place.
type FeatureRepository interface {
	ReplaceBatch(ctx context.Context, runID string, runAt time.Time, records []features.FeatureRecord) error
	GetByItemID(ctx context.Context, itemID string) (*features.FeatureRecord, error)
	GetTrending(ctx context.Context, limit int) ([]features.FeatureRecord, error)
	GetStats(ctx context.Context) (*FeatureStats, error)
}

// RunRepository keeps the run ledger and its quality-gate diagnostics.
type RunRepository interface {
	InsertRun(ctx context.Context, run Run) error
	ListRuns(ctx context.Context, limit int) ([]Run, error)
	InsertViolations(ctx context.Context, runID string, violations []features.Violation) error
	GetViolations(ctx context.Context, runID string) ([]StoredViolation, error)
}
