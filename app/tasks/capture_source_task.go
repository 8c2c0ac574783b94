package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/trendsift/trendsift/app/capture"
	"github.com/trendsift/trendsift/app/database"
	"github.com/trendsift/trendsift/app/normalizer"
	"github.com/trendsift/trendsift/app/sources"
)

type CaptureSourceTask struct {
	Task
	SourceConfig *sources.Config
	captor       *capture.Captor
	rawRepo      database.RawRecordRepository
}

func NewCaptureSourceTask(sourceName string, sourceConfig *sources.Config, captor *capture.Captor, rawRepo database.RawRecordRepository) *CaptureSourceTask {
	return &CaptureSourceTask{
		Task:         NewTask(TaskTypeCaptureSource, sourceName),
		SourceConfig: sourceConfig,
		captor:       captor,
		rawRepo:      rawRepo,
	}
}

func (t *CaptureSourceTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if !t.SourceConfig.Settings.Enabled {
		slog.Debug("Source disabled, skipping", "source", t.SourceName)
		return nil
	}

	records, report, err := t.captor.Run(ctx, t.SourceConfig)
	if err != nil {
		return fmt.Errorf("failed to capture source: %w", err)
	}

	skippedCount := 0
	insertedCount := 0

	if len(records) > 0 {
		fresh, skipped, err := t.dropRecentlySeen(ctx, records)
		if err != nil {
			return fmt.Errorf("failed to check recent records: %w", err)
		}
		skippedCount = skipped

		if len(fresh) > 0 {
			insertedCount, err = t.rawRepo.InsertBatch(ctx, fresh)
			if err != nil {
				return fmt.Errorf("failed to store raw records: %w", err)
			}
		}
	}

	slog.Info("Task completed",
		"type", "CaptureSource",
		"source", t.SourceName,
		"duration", t.GetDuration(),
		"fetched", report.Fetched,
		"after_gate", report.AfterGate,
		"skipped_recent", skippedCount,
		"inserted", insertedCount)

	return nil
}

// dropRecentlySeen excludes items already captured inside the configured
// skip window, so a snapshot is taken at most once per window per item.
func (t *CaptureSourceTask) dropRecentlySeen(ctx context.Context, records []normalizer.RawRecord) ([]normalizer.RawRecord, int, error) {
	days := t.SourceConfig.Settings.SkipRecentDays
	if days <= 0 {
		return records, 0, nil
	}

	recent, err := t.rawRepo.RecentExternalIDs(ctx, t.SourceConfig.Source, days)
	if err != nil {
		return nil, 0, err
	}

	fresh := make([]normalizer.RawRecord, 0, len(records))
	skipped := 0
	for _, rec := range records {
		if recent[rec.ExternalID] {
			skipped++
			continue
		}
		fresh = append(fresh, rec)
	}

	return fresh, skipped, nil
}
