package snapshot

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// ErrNotFound is returned by job stores when no record matches the given ID.
var ErrNotFound = errors.New("job not found")

// JobStore persists job records. Every method is a single record-level
// operation; no multi-job transactions are required.
type JobStore interface {
	CreateJob(ctx context.Context, job Job) error
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errText string, results []CaptureResult) error
	GetJob(ctx context.Context, jobID string) (Job, error)
	// ListActiveJobs returns jobs still in queued or running state,
	// used for startup crash recovery.
	ListActiveJobs(ctx context.Context) ([]Job, error)
}

// ObjectInfo describes one stored artifact.
type ObjectInfo struct {
	Path    string
	ModTime time.Time
}

// SnapshotStore writes, reads, and removes capture artifacts.
type SnapshotStore interface {
	PutObject(ctx context.Context, path string, data []byte) (string, error)
	GetObject(ctx context.Context, path string) ([]byte, error)
	DeleteObject(ctx context.Context, path string) error
	ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error)
}

// Renderer produces rendering sessions. One session is opened per origin
// bucket and reused for every URL in that bucket.
type Renderer interface {
	NewSession(ctx context.Context, origin string) (Session, error)
	Close(ctx context.Context) error
}

// Session is one opaque browser instance scoped to a single origin.
// Sessions are not safe for concurrent use; each is confined to the worker
// goroutine executing its owning job.
type Session interface {
	// Capture opens a fresh tab, navigates, triggers lazy-loaded content,
	// and returns the rendered HTML plus a full-page screenshot.
	Capture(ctx context.Context, url string) (Page, error)
	Close() error
}

// FetchResponse is the result returned by a Fetcher implementation.
type FetchResponse struct {
	URL        string
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// Fetcher performs a plain HTTP GET, used for robots.txt and sitemap probing.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (FetchResponse, error)
}

// Publisher pushes job completion events to interested consumers.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Queue provides enqueue/dequeue semantics for capture jobs.
type Queue interface {
	Enqueue(ctx context.Context, item QueueItem) error
	Dequeue(ctx context.Context) (QueueItem, error)
}

// Hasher computes digests for screenshot deduplication.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces job IDs.
type IDGenerator interface {
	NewID() (string, error)
}
