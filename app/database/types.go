package database

import (
	"time"
)

// Run is one pipeline run ledger entry. Each run's output batch is tagged
// with the fixed evaluation timestamp it was computed at, so downstream
// consumers can treat results as batch-relative.
type Run struct {
	ID              string
	Source          string
	RunAt           time.Time // the fixed "now" the batch was evaluated at
	RawCount        int
	ClassifiedCount int
	ExcludedCount   int
	TrendingCount   int
	ViolationCount  int
	Failed          bool
	CreatedAt       time.Time
}

// StoredViolation is one persisted quality-gate finding.
type StoredViolation struct {
	ID     string
	RunID  string
	ItemID *string
	Check  string
	Detail string
}

// FeatureStats summarizes the current feature snapshot for the stats
// endpoint.
type FeatureStats struct {
	Total    int
	Trending int
	Excluded int
	ByReason map[string]int
}
