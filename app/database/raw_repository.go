package database

import (
	"context"
	"fmt"
	"time"

	"github.com/trendsift/trendsift/app/normalizer"
)

var _ RawRecordRepository = (*RawRepository)(nil)

// RawRepository persists captured payload snapshots.
type RawRepository struct {
	db *DB
}

func NewRawRepository(db *DB) *RawRepository {
	return &RawRepository{db: db}
}

// InsertBatch appends the records, skipping snapshots already present.
// Returns the number of rows actually inserted.
func (r *RawRepository) InsertBatch(ctx context.Context, records []normalizer.RawRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO raw_records (source, external_id, fetched_at, payload)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (source, external_id, fetched_at) DO NOTHING
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, rec := range records {
		res, err := stmt.ExecContext(ctx, rec.Source, rec.ExternalID, rec.FetchedAt, rec.Payload)
		if err != nil {
			return 0, fmt.Errorf("failed to insert raw record %s: %w", rec.ExternalID, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit raw batch: %w", err)
	}

	return inserted, nil
}

// RecentExternalIDs returns the ids fetched within the last N days, used to
// skip re-capturing recently seen items.
func (r *RawRepository) RecentExternalIDs(ctx context.Context, source string, days int) (map[string]bool, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT external_id
		FROM raw_records
		WHERE source = $1
		  AND fetched_at >= NOW() - ($2 || ' days')::interval
	`, source, days)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan external id: %w", err)
		}
		ids[id] = true
	}

	return ids, rows.Err()
}

// GetBatch loads the latest snapshot per external id fetched since the
// given time. One run's input batch is exactly this result set; callers
// document the window they used alongside the output.
func (r *RawRepository) GetBatch(ctx context.Context, source string, since time.Time) ([]normalizer.RawRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT ON (external_id) source, external_id, fetched_at, payload
		FROM raw_records
		WHERE source = $1
		  AND fetched_at >= $2
		ORDER BY external_id, fetched_at DESC
	`, source, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query raw batch: %w", err)
	}
	defer rows.Close()

	var records []normalizer.RawRecord
	for rows.Next() {
		var rec normalizer.RawRecord
		if err := rows.Scan(&rec.Source, &rec.ExternalID, &rec.FetchedAt, &rec.Payload); err != nil {
			return nil, fmt.Errorf("failed to scan raw record: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}
