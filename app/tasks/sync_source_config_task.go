package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/trendsift/trendsift/app/sources"
)

type SyncSourceConfigTask struct {
	Task
	sourceCache *sources.Cache
}

func NewSyncSourceConfigTask(sourceName string, sourceCache *sources.Cache) *SyncSourceConfigTask {
	return &SyncSourceConfigTask{
		Task:        NewTask(TaskTypeSyncSourceConfig, sourceName),
		sourceCache: sourceCache,
	}
}

func (t *SyncSourceConfigTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	config, err := t.sourceCache.LoadConfig(t.SourceName)
	if err != nil {
		slog.Error("Task failed", "type", "SyncSourceConfig", "source", t.SourceName, "error", err)
		return fmt.Errorf("failed to reload source config: %w", err)
	}

	slog.Info("Task completed",
		"type", "SyncSourceConfig",
		"source", t.SourceName,
		"duration", t.GetDuration(),
		"enabled", config.Settings.Enabled)

	return nil
}
