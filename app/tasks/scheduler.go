package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/trendsift/trendsift/app/capture"
	"github.com/trendsift/trendsift/app/cfg"
	"github.com/trendsift/trendsift/app/database"
	"github.com/trendsift/trendsift/app/pipeline"
	"github.com/trendsift/trendsift/app/sources"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

type Scheduler struct {
	sourceCache     *sources.Cache
	rawRepo         database.RawRecordRepository
	featureRepo     database.FeatureRepository
	runRepo         database.RunRepository
	captor          *capture.Captor
	pipeline        *pipeline.Pipeline
	batchWindowDays int
	interval        time.Duration
	workerCount     int
	ctx             context.Context
	cancel          context.CancelFunc
	wg              sync.WaitGroup
	taskQueue       chan TaskInterface

	mu          sync.Mutex
	lastCapture map[string]time.Time
}

func NewScheduler(sourceCache *sources.Cache, rawRepo database.RawRecordRepository,
	featureRepo database.FeatureRepository, runRepo database.RunRepository,
	captor *capture.Captor, p *pipeline.Pipeline) TaskSchedulerInterface {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := cfg.Get()

	return &Scheduler{
		sourceCache:     sourceCache,
		rawRepo:         rawRepo,
		featureRepo:     featureRepo,
		runRepo:         runRepo,
		captor:          captor,
		pipeline:        p,
		batchWindowDays: cfg.BatchWindowDays,
		interval:        time.Duration(cfg.SchedulerInterval) * time.Second,
		workerCount:     cfg.WorkerCount,
		ctx:             ctx,
		cancel:          cancel,
		taskQueue:       make(chan TaskInterface, 300),
		lastCapture:     make(map[string]time.Time),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.enqueueStartupTasks()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueTasks()
			}
		}
	}()

}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	close(s.taskQueue)
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	// Checked first: after Stop the queue is closed and the send case below
	// would panic. Stop cancels the context before closing the queue.
	select {
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
	}

	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

// NewComputeTask builds a compute task for the named source config, with
// the scheduler's repositories and pipeline already wired. Used by the API
// to trigger an out-of-band recompute.
func (s *Scheduler) NewComputeTask(config *sources.Config) TaskInterface {
	return NewComputeFeaturesTask(config.Name, config.Source, s.rawRepo, s.featureRepo, s.runRepo, s.pipeline, s.batchWindowDays)
}

func (s *Scheduler) enqueueStartupTasks() {
	sourceConfigs := s.sourceCache.GetConfigs()
	if len(sourceConfigs) == 0 {
		slog.Debug("No source configurations found")
		return
	}

	slog.Debug("Processing source configurations", "count", len(sourceConfigs))

	for _, sourceConfig := range sourceConfigs {
		if !sourceConfig.Settings.Enabled {
			slog.Debug("Source disabled, skipping CaptureSourceTask", "source", sourceConfig.Name)
			continue
		}

		s.enqueueCaptureAndCompute(sourceConfig)
	}
}

func (s *Scheduler) enqueueTasks() {
	sourceConfigs := s.sourceCache.GetEnabledConfigs()
	if len(sourceConfigs) == 0 {
		slog.Debug("No enabled source configurations found")
		return
	}

	slog.Debug("Processing enabled source configurations for task scheduling", "count", len(sourceConfigs))

	now := time.Now().UTC()

	for _, sourceConfig := range sourceConfigs {
		refresh := time.Duration(sourceConfig.Settings.RefreshInterval) * time.Second

		s.mu.Lock()
		last, ok := s.lastCapture[sourceConfig.Name]
		due := !ok || now.Sub(last) >= refresh
		s.mu.Unlock()

		if !due {
			slog.Debug("Source not due for capture yet", "source", sourceConfig.Name, "last_capture", last)
			continue
		}

		s.enqueueCaptureAndCompute(sourceConfig)
	}
}

// enqueueCaptureAndCompute queues a capture for the source followed by a
// feature recompute over its raw record window. The capture time is marked
// up front so a slow capture is not queued twice.
func (s *Scheduler) enqueueCaptureAndCompute(sourceConfig *sources.Config) {
	captureTask := NewCaptureSourceTask(sourceConfig.Name, sourceConfig, s.captor, s.rawRepo)
	if err := s.EnqueueTask(captureTask); err != nil {
		slog.Warn("Failed to enqueue CaptureSourceTask", "source", sourceConfig.Name, "error", err)
		return
	}

	s.mu.Lock()
	s.lastCapture[sourceConfig.Name] = time.Now().UTC()
	s.mu.Unlock()

	computeTask := s.NewComputeTask(sourceConfig)
	if err := s.EnqueueTask(computeTask); err != nil {
		slog.Warn("Failed to enqueue ComputeFeaturesTask", "source", sourceConfig.Name, "error", err)
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task, ok := <-s.taskQueue:
			if !ok {
				return
			}
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, 5*time.Minute)
	defer cancel()

	err := task.Execute(taskCtx)

	if err != nil {
		slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

		if task.CanRetry() {
			task.IncrementRetryCount()
			retryDelay := time.Duration(1<<uint(task.GetRetryCount()-1)) * time.Second
			if retryDelay > 30*time.Second {
				retryDelay = 30 * time.Second
			}

			slog.Warn("Task retry scheduled", "type", string(task.GetType()), "source", task.GetSourceName(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

			// The retry goroutine joins the WaitGroup so Stop cannot close
			// the task queue while a re-enqueue is still pending.
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()

				timer := time.NewTimer(retryDelay)
				defer timer.Stop()

				select {
				case <-s.ctx.Done():
					slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
					return
				case <-timer.C:
				}

				if retryErr := s.EnqueueTask(task); retryErr != nil {
					slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
				}
			}()
		} else {
			slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		}
	}
}
