// Package worker implements the capture job execution loop.
package worker

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/web-snapshot/internal/metrics"
	"github.com/JakeFAU/web-snapshot/internal/snapshot"
)

// interruptedMessage is attached to jobs found mid-flight on process start.
const interruptedMessage = "interrupted before completion"

// Orchestrator runs the capture for one job's URL list.
type Orchestrator interface {
	Capture(ctx context.Context, urls []string) ([]snapshot.CaptureResult, error)
}

// Config controls Worker behavior.
type Config struct {
	Topic string
}

// Worker consumes queue items and drives the capture orchestrator. Jobs move
// from queued to running on pickup and end in done or error; individual URL
// failures stay inside the result list and never fail the job.
type Worker struct {
	queue        snapshot.Queue
	jobStore     snapshot.JobStore
	orchestrator Orchestrator
	publisher    snapshot.Publisher
	clock        snapshot.Clock
	cfg          Config
	logger       *zap.Logger
}

// New constructs a Worker.
func New(
	queue snapshot.Queue,
	jobStore snapshot.JobStore,
	orchestrator Orchestrator,
	publisher snapshot.Publisher,
	clock snapshot.Clock,
	cfg Config,
	logger *zap.Logger,
) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		queue:        queue,
		jobStore:     jobStore,
		orchestrator: orchestrator,
		publisher:    publisher,
		clock:        clock,
		cfg:          cfg,
		logger:       logger,
	}
}

// Run blocks, consuming queue items until the context finishes.
func (w *Worker) Run(ctx context.Context) {
	for {
		item, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("queue dequeue failed", zap.Error(err))
			continue
		}
		w.logger.Debug("dequeued job", zap.String("job_id", item.JobID))
		w.processJob(ctx, item)
	}
}

func (w *Worker) processJob(ctx context.Context, item snapshot.QueueItem) {
	metrics.IncActiveWorkers()
	defer metrics.DecActiveWorkers()

	if err := w.jobStore.UpdateJobStatus(ctx, item.JobID, snapshot.JobStatusRunning, "", nil); err != nil {
		w.logger.Error("job status update failed",
			zap.String("job_id", item.JobID), zap.Error(err))
		return
	}

	results, err := w.capture(ctx, item.URLs)

	status := snapshot.JobStatusDone
	errText := ""
	if err != nil {
		status = snapshot.JobStatusError
		errText = err.Error()
		results = nil
		w.logger.Error("job failed",
			zap.String("job_id", item.JobID), zap.Error(err))
	}

	if err := w.jobStore.UpdateJobStatus(ctx, item.JobID, status, errText, results); err != nil {
		w.logger.Error("final job status update failed",
			zap.String("job_id", item.JobID), zap.Error(err))
	}
	metrics.ObserveJob(string(status))
	w.publishCompletion(ctx, item.JobID, status, results)
}

// capture shields the job record from orchestrator panics: a panic becomes a
// job-level error instead of killing the worker goroutine.
func (w *Worker) capture(ctx context.Context, urls []string) (results []snapshot.CaptureResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("capture panicked: %v", r)
		}
	}()
	return w.orchestrator.Capture(ctx, urls)
}

func (w *Worker) publishCompletion(
	ctx context.Context,
	jobID string,
	status snapshot.JobStatus,
	results []snapshot.CaptureResult,
) {
	if w.cfg.Topic == "" || w.publisher == nil {
		return
	}
	counts := map[string]int{}
	for _, res := range results {
		counts[string(res.Outcome)]++
	}
	payload := map[string]any{
		"job_id":    jobID,
		"status":    string(status),
		"outcomes":  counts,
		"timestamp": w.clock.Now().Format(time.RFC3339),
	}
	if _, err := w.publisher.Publish(ctx, w.cfg.Topic, payload); err != nil {
		w.logger.Warn("completion publish failed",
			zap.String("job_id", jobID), zap.Error(err))
		return
	}
	w.logger.Info("job completed",
		zap.String("job_id", jobID),
		zap.String("status", string(status)),
	)
}

// MarkInterrupted forces every queued or running job into error state. Run
// it once on process start: rendering sessions do not survive a restart, so
// in-flight work cannot be resumed.
func MarkInterrupted(ctx context.Context, jobStore snapshot.JobStore, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	jobs, err := jobStore.ListActiveJobs(ctx)
	if err != nil {
		return fmt.Errorf("list active jobs: %w", err)
	}
	for _, job := range jobs {
		if err := jobStore.UpdateJobStatus(ctx, job.ID, snapshot.JobStatusError, interruptedMessage, nil); err != nil {
			return fmt.Errorf("mark job %s interrupted: %w", job.ID, err)
		}
		logger.Warn("job marked interrupted",
			zap.String("job_id", job.ID),
			zap.String("previous_status", string(job.Status)),
		)
	}
	return nil
}
