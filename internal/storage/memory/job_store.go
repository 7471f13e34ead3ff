package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/JakeFAU/web-snapshot/internal/clock/system"
	"github.com/JakeFAU/web-snapshot/internal/snapshot"
)

// JobStore provides an in-memory job store for development/testing.
type JobStore struct {
	mu    sync.RWMutex
	jobs  map[string]snapshot.Job
	clock snapshot.Clock
}

// NewJobStore constructs a JobStore. A nil clock falls back to the
// system clock.
func NewJobStore(clk snapshot.Clock) *JobStore {
	if clk == nil {
		clk = system.New()
	}
	return &JobStore{
		jobs:  make(map[string]snapshot.Job),
		clock: clk,
	}
}

// CreateJob stores a new job record.
func (s *JobStore) CreateJob(_ context.Context, job snapshot.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.ID]; exists {
		return errors.New("job already exists")
	}
	s.jobs[job.ID] = job
	return nil
}

// UpdateJobStatus updates status, error text, and results for a job.
// Transitions out of a terminal state are rejected.
func (s *JobStore) UpdateJobStatus(
	_ context.Context,
	jobID string,
	status snapshot.JobStatus,
	errText string,
	results []snapshot.CaptureResult,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return fmt.Errorf("update job %s: %w", jobID, snapshot.ErrNotFound)
	}
	if job.Status.IsTerminal() {
		return fmt.Errorf("job %s already terminal (%s)", jobID, job.Status)
	}
	job.Status = status
	job.ErrorText = errText
	job.Results = results
	job.Updated = s.clock.Now()
	s.jobs[jobID] = job
	return nil
}

// GetJob fetches a job by ID.
func (s *JobStore) GetJob(_ context.Context, jobID string) (snapshot.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return snapshot.Job{}, fmt.Errorf("get job %s: %w", jobID, snapshot.ErrNotFound)
	}
	job.URLs = cloneStrings(job.URLs)
	job.Results = cloneResults(job.Results)
	return job, nil
}

// ListActiveJobs returns jobs still in queued or running state.
func (s *JobStore) ListActiveJobs(_ context.Context) ([]snapshot.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var active []snapshot.Job
	for _, job := range s.jobs {
		if !job.Status.IsTerminal() {
			job.URLs = cloneStrings(job.URLs)
			job.Results = cloneResults(job.Results)
			active = append(active, job)
		}
	}
	return active, nil
}

func cloneStrings(src []string) []string {
	if len(src) == 0 {
		return nil
	}
	dst := make([]string, len(src))
	copy(dst, src)
	return dst
}

func cloneResults(src []snapshot.CaptureResult) []snapshot.CaptureResult {
	if len(src) == 0 {
		return nil
	}
	dst := make([]snapshot.CaptureResult, len(src))
	copy(dst, src)
	return dst
}
