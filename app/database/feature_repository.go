package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/trendsift/trendsift/app/features"
)

var _ FeatureRepository = (*FeatureRepo)(nil)

// FeatureRepo persists finished feature rows.
type FeatureRepo struct {
	db *DB
}

func NewFeatureRepository(db *DB) *FeatureRepo {
	return &FeatureRepo{db: db}
}

const featureColumns = `
	item_id, run_id, run_at,
	title, description, channel_id, channel_title, published_at,
	category_id, audio_language, is_audio_english,
	view_count, like_count, comment_count, duration_seconds,
	tags, detected_topics, topic_categories,
	detected_language, category_name, channel_subscriber_count,
	is_trending_source_flagged, fetched_at,
	title_len, title_has_numbers, hour_of_day, day_of_week,
	is_short, content_length_bucket,
	engagement_ratio_raw, engagement_rate, engagement_tier,
	age_hours, age_hours_capped, age_bucket,
	views_per_hour, views_per_hour_per_1k_subs,
	vph_pct_in_category, vph_pct_in_channel,
	is_trending, trending_reason`

// ReplaceBatch swaps the feature snapshot wholesale inside one transaction.
// Partial results are never visible: the previous snapshot survives any
// failure before commit.
func (r *FeatureRepo) ReplaceBatch(ctx context.Context, runID string, runAt time.Time, records []features.FeatureRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM feature_records`); err != nil {
		return fmt.Errorf("failed to clear previous snapshot: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO feature_records (`+featureColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
		        $11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
		        $21, $22, $23, $24, $25, $26, $27, $28, $29, $30,
		        $31, $32, $33, $34, $35, $36, $37, $38, $39, $40, $41)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		_, err := stmt.ExecContext(ctx,
			rec.ItemID, runID, runAt,
			rec.Title, rec.Description, rec.ChannelID, rec.ChannelTitle, rec.PublishedAt,
			rec.CategoryID, rec.AudioLanguage, rec.IsAudioEnglish,
			rec.ViewCount, rec.LikeCount, rec.CommentCount, rec.DurationSeconds,
			pq.Array(rec.Tags), pq.Array(rec.DetectedTopics), pq.Array(rec.TopicCategories),
			rec.DetectedLanguage, rec.CategoryName, rec.ChannelSubscriberCount,
			rec.IsTrendingSourceFlagged, rec.FetchedAt,
			rec.TitleLen, rec.TitleHasNumbers, rec.HourOfDay, rec.DayOfWeek,
			rec.IsShort, rec.ContentLengthBucket,
			rec.EngagementRatioRaw, rec.EngagementRate, rec.EngagementTier,
			rec.AgeHours, rec.AgeHoursCapped, rec.AgeBucket,
			rec.ViewsPerHour, rec.ViewsPerHourPer1kSubs,
			rec.VphPctInCategory, rec.VphPctInChannel,
			rec.IsTrending, rec.TrendingReason,
		)
		if err != nil {
			return fmt.Errorf("failed to insert feature record %s: %w", rec.ItemID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit feature batch: %w", err)
	}

	return nil
}

// GetByItemID returns one feature row, nil when absent.
func (r *FeatureRepo) GetByItemID(ctx context.Context, itemID string) (*features.FeatureRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+featureColumns+`
		FROM feature_records
		WHERE item_id = $1
	`, itemID)

	rec, err := scanFeatureRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get feature record: %w", err)
	}

	return rec, nil
}

// GetTrending returns the currently trending items, fastest first.
func (r *FeatureRepo) GetTrending(ctx context.Context, limit int) ([]features.FeatureRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+featureColumns+`
		FROM feature_records
		WHERE is_trending = TRUE
		ORDER BY views_per_hour DESC NULLS LAST, item_id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query trending records: %w", err)
	}
	defer rows.Close()

	var records []features.FeatureRecord
	for rows.Next() {
		rec, err := scanFeatureRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan feature record: %w", err)
		}
		records = append(records, *rec)
	}

	return records, rows.Err()
}

// GetStats summarizes the current snapshot.
func (r *FeatureRepo) GetStats(ctx context.Context) (*FeatureStats, error) {
	stats := &FeatureStats{ByReason: map[string]int{}}

	rows, err := r.db.QueryContext(ctx, `
		SELECT trending_reason, is_trending, COUNT(*)
		FROM feature_records
		GROUP BY trending_reason, is_trending
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query feature stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var reason string
		var isTrending bool
		var count int
		if err := rows.Scan(&reason, &isTrending, &count); err != nil {
			return nil, fmt.Errorf("failed to scan feature stats: %w", err)
		}

		stats.Total += count
		stats.ByReason[reason] += count
		if isTrending {
			stats.Trending += count
		}
		if reason == features.ReasonMissingPublishedAt {
			stats.Excluded += count
		}
	}

	return stats, rows.Err()
}

// scanner lets the row/rows scan paths share one column mapping.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanFeatureRecord(row scanner) (*features.FeatureRecord, error) {
	var rec features.FeatureRecord
	var runID string
	var runAt time.Time
	var tags, topics, topicCategories pq.StringArray

	err := row.Scan(
		&rec.ItemID, &runID, &runAt,
		&rec.Title, &rec.Description, &rec.ChannelID, &rec.ChannelTitle, &rec.PublishedAt,
		&rec.CategoryID, &rec.AudioLanguage, &rec.IsAudioEnglish,
		&rec.ViewCount, &rec.LikeCount, &rec.CommentCount, &rec.DurationSeconds,
		&tags, &topics, &topicCategories,
		&rec.DetectedLanguage, &rec.CategoryName, &rec.ChannelSubscriberCount,
		&rec.IsTrendingSourceFlagged, &rec.FetchedAt,
		&rec.TitleLen, &rec.TitleHasNumbers, &rec.HourOfDay, &rec.DayOfWeek,
		&rec.IsShort, &rec.ContentLengthBucket,
		&rec.EngagementRatioRaw, &rec.EngagementRate, &rec.EngagementTier,
		&rec.AgeHours, &rec.AgeHoursCapped, &rec.AgeBucket,
		&rec.ViewsPerHour, &rec.ViewsPerHourPer1kSubs,
		&rec.VphPctInCategory, &rec.VphPctInChannel,
		&rec.IsTrending, &rec.TrendingReason,
	)
	if err != nil {
		return nil, err
	}

	rec.Tags = tags
	rec.DetectedTopics = topics
	rec.TopicCategories = topicCategories

	return &rec, nil
}
