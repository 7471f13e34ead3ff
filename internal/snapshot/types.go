// Package snapshot defines core types shared across subsystems.
package snapshot

import "time"

// JobStatus represents the lifecycle state of a capture job.
type JobStatus string

// Job status values persisted in the job store. Transitions are one-way:
// queued -> running -> done|error.
const (
	JobStatusQueued  JobStatus = "queued"
	JobStatusRunning JobStatus = "running"
	JobStatusDone    JobStatus = "done"
	JobStatusError   JobStatus = "error"
)

// IsTerminal reports whether the status permits no further transitions.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusDone || s == JobStatusError
}

// Outcome classifies what the capture pipeline did with a single URL.
type Outcome string

// Per-URL capture outcomes.
const (
	OutcomeSaved     Outcome = "saved"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeError     Outcome = "error"
)

// CaptureResult is the per-URL record returned for each capture attempt.
type CaptureResult struct {
	URL            string  `json:"url"`
	Outcome        Outcome `json:"outcome"`
	HTMLPath       string  `json:"html_path,omitempty"`
	ScreenshotPath string  `json:"screenshot_path,omitempty"`
	Error          string  `json:"error,omitempty"`
}

// Job represents the metadata persisted for each submitted capture request.
type Job struct {
	ID        string          `json:"id"`
	Status    JobStatus       `json:"status"`
	URLs      []string        `json:"urls"`
	Results   []CaptureResult `json:"results,omitempty"`
	ErrorText string          `json:"error_text,omitempty"`
	Submitted time.Time       `json:"submitted_at"`
	Updated   time.Time       `json:"updated_at"`
}

// OriginBucket groups the URLs of one capture run that share a normalized
// origin. It lives only for the duration of an orchestrator run.
type OriginBucket struct {
	Origin string
	URLs   []string
}

// QueueItem wraps a job ready to run.
type QueueItem struct {
	JobID     string
	URLs      []string
	Submitted int64
}

// Page is the output of one rendering pass over a URL.
type Page struct {
	HTML       []byte
	Screenshot []byte
}
