package pipeline

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/trendsift/trendsift/app/features"
	"github.com/trendsift/trendsift/app/normalizer"
)

// Pipeline runs one full batch recompute: normalize and derive every raw
// record (per-item, concurrently), rank the materialized batch, classify
// each item and validate the result. It holds no mutable state between
// runs, so a run is a pure function of (raws, now) and re-running the same
// inputs yields bit-identical records.
type Pipeline struct {
	normalizer *normalizer.Normalizer
	deriver    *features.Deriver
	ranker     *features.Ranker
	classifier *features.Classifier
	gate       *features.QualityGate
	workers    int
}

// Result is one finished batch. A non-empty Violations list marks the batch
// as failed for downstream consumption; the records are still reported.
type Result struct {
	Records    []features.FeatureRecord
	Violations []features.Violation
	Report     Report
}

// Report summarizes one run per stage.
type Report struct {
	RawCount        int
	ClassifiedCount int
	ExcludedCount   int
	TrendingCount   int
	ViolationCount  int
	Now             time.Time
	Duration        time.Duration
}

func NewPipeline(thresholds features.Thresholds, workers int) *Pipeline {
	if workers < 1 {
		workers = 1
	}
	return &Pipeline{
		normalizer: normalizer.NewNormalizer(),
		deriver:    features.NewDeriver(thresholds),
		ranker:     features.NewRanker(),
		classifier: features.NewClassifier(thresholds),
		gate:       features.NewQualityGate(),
		workers:    workers,
	}
}

// Run computes the full feature batch for the given raw records at the
// fixed evaluation time now. Output is sorted by item id so identical
// inputs produce identical output regardless of scheduling.
func (p *Pipeline) Run(raws []normalizer.RawRecord, now time.Time) Result {
	started := time.Now()

	batch := p.deriveAll(raws, now)

	// Batch barrier: every item's local features must exist before any
	// percentile can be computed.
	batch = p.ranker.Run(batch)

	trending := 0
	excluded := 0
	for i := range batch {
		isTrending, reason := p.classifier.Run(batch[i])
		batch[i].IsTrending = isTrending
		batch[i].TrendingReason = reason

		if reason == features.ReasonMissingPublishedAt {
			excluded++
		}
		if isTrending {
			trending++
		}
	}

	sort.Slice(batch, func(i, j int) bool {
		return batch[i].ItemID < batch[j].ItemID
	})

	violations := p.gate.Run(batch, len(raws))

	result := Result{
		Records:    batch,
		Violations: violations,
		Report: Report{
			RawCount:        len(raws),
			ClassifiedCount: len(batch) - excluded,
			ExcludedCount:   excluded,
			TrendingCount:   trending,
			ViolationCount:  len(violations),
			Now:             now,
			Duration:        time.Since(started),
		},
	}

	slog.Info("Pipeline run completed",
		"raw", result.Report.RawCount,
		"classified", result.Report.ClassifiedCount,
		"excluded", result.Report.ExcludedCount,
		"trending", result.Report.TrendingCount,
		"violations", result.Report.ViolationCount,
		"duration", result.Report.Duration)

	return result
}

// deriveAll fans the per-item stages out over a bounded worker pool. Each
// worker writes only its own index, so no locking is needed.
func (p *Pipeline) deriveAll(raws []normalizer.RawRecord, now time.Time) []features.FeatureRecord {
	batch := make([]features.FeatureRecord, len(raws))

	var wg sync.WaitGroup
	jobs := make(chan int)

	for w := 0; w < p.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				item := p.normalizer.Run(raws[i])
				batch[i] = p.deriver.Run(item, now)
			}
		}()
	}

	for i := range raws {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return batch
}
