package capture

import (
	"context"

	"go.uber.org/zap"

	"github.com/JakeFAU/web-snapshot/internal/snapshot"
)

// Orchestrator partitions a batch of URLs by origin and reuses one rendering
// session per origin. Session startup is the dominant fixed cost; batching
// amortizes it and lets same-origin navigations share cookies and cache.
type Orchestrator struct {
	renderer snapshot.Renderer
	pipeline *Pipeline
	logger   *zap.Logger
}

// NewOrchestrator constructs an Orchestrator.
func NewOrchestrator(renderer snapshot.Renderer, pipeline *Pipeline, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		renderer: renderer,
		pipeline: pipeline,
		logger:   logger,
	}
}

// Capture runs the pipeline for every URL, bucketed by normalized origin.
// It returns exactly one result per input URL: error results for unparseable
// URLs first in input order, then each bucket's results in bucket order with
// the per-bucket URL order preserved. Only context cancellation aborts the
// run early.
func (o *Orchestrator) Capture(ctx context.Context, urls []string) ([]snapshot.CaptureResult, error) {
	buckets, invalid := snapshot.BucketByOrigin(urls)

	results := make([]snapshot.CaptureResult, 0, len(urls))
	for _, raw := range invalid {
		results = append(results, snapshot.CaptureResult{
			URL:     raw,
			Outcome: snapshot.OutcomeError,
			Error:   "invalid url: missing host",
		})
	}

	for _, bucket := range buckets {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		results = append(results, o.captureBucket(ctx, bucket)...)
	}
	return results, nil
}

// captureBucket opens one session for the bucket's origin and drives the
// pipeline for each URL. A launch failure marks every URL in this bucket as
// errored; other origins are unaffected.
func (o *Orchestrator) captureBucket(ctx context.Context, bucket snapshot.OriginBucket) []snapshot.CaptureResult {
	o.logger.Info("starting session for origin",
		zap.String("origin", bucket.Origin),
		zap.Int("urls", len(bucket.URLs)),
	)

	sess, err := o.renderer.NewSession(ctx, bucket.Origin)
	if err != nil {
		o.logger.Error("session launch failed",
			zap.String("origin", bucket.Origin), zap.Error(err))
		results := make([]snapshot.CaptureResult, 0, len(bucket.URLs))
		for _, u := range bucket.URLs {
			results = append(results, snapshot.CaptureResult{
				URL:     u,
				Outcome: snapshot.OutcomeError,
				Error:   err.Error(),
			})
		}
		return results
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			o.logger.Warn("session close failed",
				zap.String("origin", bucket.Origin), zap.Error(cerr))
		}
	}()

	results := make([]snapshot.CaptureResult, 0, len(bucket.URLs))
	for _, u := range bucket.URLs {
		results = append(results, o.pipeline.CaptureOne(ctx, sess, bucket.Origin, u))
	}
	return results
}
