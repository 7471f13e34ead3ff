package capture

import (
	"context"
	"fmt"
	"path"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/web-snapshot/internal/metrics"
	"github.com/JakeFAU/web-snapshot/internal/snapshot"
)

// Artifact filenames carry a second-resolution timestamp next to the slug.
const timestampLayout = "20060102_150405"

// Pipeline produces one CaptureResult for one URL within an already-open
// per-origin rendering session.
type Pipeline struct {
	store  snapshot.SnapshotStore
	hasher snapshot.Hasher
	clock  snapshot.Clock
	index  *DedupIndex
	logger *zap.Logger
}

// NewPipeline constructs a Pipeline.
func NewPipeline(
	store snapshot.SnapshotStore,
	hasher snapshot.Hasher,
	clock snapshot.Clock,
	index *DedupIndex,
	logger *zap.Logger,
) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		store:  store,
		hasher: hasher,
		clock:  clock,
		index:  index,
		logger: logger,
	}
}

// CaptureOne renders rawURL inside sess and persists its artifacts. Every
// failure is converted into an error outcome so later URLs in the same
// bucket continue unaffected.
func (p *Pipeline) CaptureOne(ctx context.Context, sess snapshot.Session, origin, rawURL string) snapshot.CaptureResult {
	start := time.Now()
	result := p.captureOne(ctx, sess, origin, rawURL)
	metrics.ObserveCapture(origin, string(result.Outcome), time.Since(start))

	if result.Outcome == snapshot.OutcomeError {
		p.logger.Warn("capture failed",
			zap.String("origin", origin),
			zap.String("url", rawURL),
			zap.String("error", result.Error),
		)
	} else {
		p.logger.Info("capture finished",
			zap.String("origin", origin),
			zap.String("url", rawURL),
			zap.String("outcome", string(result.Outcome)),
		)
	}
	return result
}

func (p *Pipeline) captureOne(ctx context.Context, sess snapshot.Session, origin, rawURL string) snapshot.CaptureResult {
	page, err := sess.Capture(ctx, rawURL)
	if err != nil {
		return errorResult(rawURL, fmt.Errorf("render page: %w", err))
	}

	slug := snapshot.Slug(rawURL)
	ts := p.clock.Now().Format(timestampLayout)
	htmlPath := path.Join(origin, "html", fmt.Sprintf("%s_%s.html", slug, ts))
	shotPath := path.Join(origin, "screenshots", fmt.Sprintf("%s_%s.png", slug, ts))

	// Resolve the prior digest before the new screenshot lands so the
	// comparison never sees the file being written.
	prevDigest, err := p.index.LastDigest(ctx, origin)
	if err != nil {
		// A broken history lookup must not lose a fresh capture.
		p.logger.Warn("dedup lookup failed, treating as first capture",
			zap.String("origin", origin), zap.Error(err))
		prevDigest = ""
	}

	digest, err := p.hasher.Hash(page.Screenshot)
	if err != nil {
		return errorResult(rawURL, fmt.Errorf("hash screenshot: %w", err))
	}

	htmlURI, err := p.store.PutObject(ctx, htmlPath, page.HTML)
	if err != nil {
		return errorResult(rawURL, fmt.Errorf("store html: %w", err))
	}

	if prevDigest != "" && prevDigest == digest {
		// Screenshots are storage-heavy and visually idempotent across
		// unchanged pages, so a duplicate is never written. Rapid
		// re-captures can reuse the previous second's path, and writing
		// first would clobber the artifact that path already holds.
		// HTML stays for audit tooling.
		return snapshot.CaptureResult{
			URL:      rawURL,
			Outcome:  snapshot.OutcomeDuplicate,
			HTMLPath: htmlURI,
		}
	}

	shotURI, err := p.store.PutObject(ctx, shotPath, page.Screenshot)
	if err != nil {
		return errorResult(rawURL, fmt.Errorf("store screenshot: %w", err))
	}
	p.index.Record(origin, digest)
	return snapshot.CaptureResult{
		URL:            rawURL,
		Outcome:        snapshot.OutcomeSaved,
		HTMLPath:       htmlURI,
		ScreenshotPath: shotURI,
	}
}

func errorResult(rawURL string, err error) snapshot.CaptureResult {
	return snapshot.CaptureResult{
		URL:     rawURL,
		Outcome: snapshot.OutcomeError,
		Error:   err.Error(),
	}
}
