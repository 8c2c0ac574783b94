package api

import (
	"github.com/trendsift/trendsift/app/database"
	"github.com/trendsift/trendsift/app/pipeline"
	"github.com/trendsift/trendsift/app/sources"
	"github.com/trendsift/trendsift/app/tasks"
)

type Handler struct {
	rawRepo         database.RawRecordRepository
	featureRepo     database.FeatureRepository
	runRepo         database.RunRepository
	sourceCache     *sources.Cache
	pipeline        *pipeline.Pipeline
	batchWindowDays int
	scheduler       tasks.TaskSchedulerInterface
}
