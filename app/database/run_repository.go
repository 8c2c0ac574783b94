package database

import (
	"context"
	"fmt"

	"github.com/trendsift/trendsift/app/features"
)

var _ RunRepository = (*RunRepo)(nil)

// RunRepo keeps the pipeline run ledger.
type RunRepo struct {
	db *DB
}

func NewRunRepository(db *DB) *RunRepo {
	return &RunRepo{db: db}
}

func (r *RunRepo) InsertRun(ctx context.Context, run Run) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO pipeline_runs (
			id, source, run_at, raw_count, classified_count,
			excluded_count, trending_count, violation_count, failed
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, run.ID, run.Source, run.RunAt, run.RawCount, run.ClassifiedCount,
		run.ExcludedCount, run.TrendingCount, run.ViolationCount, run.Failed)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	return nil
}

func (r *RunRepo) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, source, run_at, raw_count, classified_count,
		       excluded_count, trending_count, violation_count, failed, created_at
		FROM pipeline_runs
		ORDER BY run_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		err := rows.Scan(&run.ID, &run.Source, &run.RunAt, &run.RawCount, &run.ClassifiedCount,
			&run.ExcludedCount, &run.TrendingCount, &run.ViolationCount, &run.Failed, &run.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

func (r *RunRepo) InsertViolations(ctx context.Context, runID string, violations []features.Violation) error {
	if len(violations) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO run_violations (run_id, item_id, check_name, detail)
		VALUES ($1, $2, $3, $4)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, v := range violations {
		if _, err := stmt.ExecContext(ctx, runID, v.ItemID, v.Check, v.Detail); err != nil {
			return fmt.Errorf("failed to insert violation: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit violations: %w", err)
	}

	return nil
}

func (r *RunRepo) GetViolations(ctx context.Context, runID string) ([]StoredViolation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, run_id, item_id, check_name, detail
		FROM run_violations
		WHERE run_id = $1
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query violations: %w", err)
	}
	defer rows.Close()

	var violations []StoredViolation
	for rows.Next() {
		var v StoredViolation
		if err := rows.Scan(&v.ID, &v.RunID, &v.ItemID, &v.Check, &v.Detail); err != nil {
			return nil, fmt.Errorf("failed to scan violation: %w", err)
		}
		violations = append(violations, v)
	}

	return violations, rows.Err()
}
