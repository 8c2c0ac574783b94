package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/trendsift/trendsift/app/database"
	"github.com/trendsift/trendsift/app/pipeline"
)

type ComputeFeaturesTask struct {
	Task
	Source          string
	rawRepo         database.RawRecordRepository
	featureRepo     database.FeatureRepository
	runRepo         database.RunRepository
	pipeline        *pipeline.Pipeline
	batchWindowDays int
}

func NewComputeFeaturesTask(sourceName string, source string, rawRepo database.RawRecordRepository, featureRepo database.FeatureRepository, runRepo database.RunRepository, p *pipeline.Pipeline, batchWindowDays int) *ComputeFeaturesTask {
	return &ComputeFeaturesTask{
		Task:            NewTask(TaskTypeComputeFeatures, sourceName),
		Source:          source,
		rawRepo:         rawRepo,
		featureRepo:     featureRepo,
		runRepo:         runRepo,
		pipeline:        p,
		batchWindowDays: batchWindowDays,
	}
}

func (t *ComputeFeaturesTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	// The evaluation timestamp is fixed once. Every age and velocity in the
	// batch is computed against it, so re-running the same window at the
	// same instant yields the same records.
	now := time.Now().UTC()
	since := now.AddDate(0, 0, -t.batchWindowDays)

	raws, err := t.rawRepo.GetBatch(ctx, t.Source, since)
	if err != nil {
		return fmt.Errorf("failed to load raw record batch: %w", err)
	}

	if len(raws) == 0 {
		slog.Debug("No raw records in window, skipping run", "source", t.SourceName, "since", since)
		return nil
	}

	result := t.pipeline.Run(raws, now)

	runID := uuid.NewString()

	err = t.featureRepo.ReplaceBatch(ctx, runID, now, result.Records)
	if err != nil {
		return fmt.Errorf("failed to store feature batch: %w", err)
	}

	run := database.Run{
		ID:              runID,
		Source:          t.Source,
		RunAt:           now,
		RawCount:        result.Report.RawCount,
		ClassifiedCount: result.Report.ClassifiedCount,
		ExcludedCount:   result.Report.ExcludedCount,
		TrendingCount:   result.Report.TrendingCount,
		ViolationCount:  result.Report.ViolationCount,
		Failed:          len(result.Violations) > 0,
	}

	err = t.runRepo.InsertRun(ctx, run)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}

	if len(result.Violations) > 0 {
		err = t.runRepo.InsertViolations(ctx, runID, result.Violations)
		if err != nil {
			return fmt.Errorf("failed to record violations: %w", err)
		}
	}

	slog.Info("Task completed",
		"type", "ComputeFeatures",
		"source", t.SourceName,
		"duration", t.GetDuration(),
		"run_id", runID,
		"raw", run.RawCount,
		"trending", run.TrendingCount,
		"violations", run.ViolationCount,
		"failed", run.Failed)

	return nil
}
