package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/JakeFAU/web-snapshot/internal/snapshot"
)

type fakeClock struct{ t time.Time }

func (c fakeClock) Now() time.Time { return c.t }

func TestJobStoreLifecycle(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	store := NewJobStore(fakeClock{t: now})
	ctx := context.Background()
	job := snapshot.Job{ID: "job-1", Status: snapshot.JobStatusQueued, URLs: []string{"https://example.com"}}

	if err := store.CreateJob(ctx, job); err != nil {
		t.Fatalf("CreateJob() error = %v", err)
	}
	if err := store.CreateJob(ctx, job); err == nil {
		t.Fatal("expected duplicate job error")
	}
	if err := store.UpdateJobStatus(ctx, job.ID, snapshot.JobStatusRunning, "", nil); err != nil {
		t.Fatalf("UpdateJobStatus running error = %v", err)
	}

	results := []snapshot.CaptureResult{{URL: "https://example.com", Outcome: snapshot.OutcomeSaved}}
	if err := store.UpdateJobStatus(ctx, job.ID, snapshot.JobStatusDone, "", results); err != nil {
		t.Fatalf("UpdateJobStatus done error = %v", err)
	}

	final, err := store.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob() error = %v", err)
	}
	if final.Status != snapshot.JobStatusDone || len(final.Results) != 1 {
		t.Fatalf("unexpected final job: %+v", final)
	}
	if !final.Updated.Equal(now) {
		t.Fatalf("Updated = %v, want the injected clock's %v", final.Updated, now)
	}

	final.Results[0].URL = "modified"
	check, _ := store.GetJob(ctx, job.ID)
	if check.Results[0].URL != "https://example.com" {
		t.Fatal("expected GetJob to return a copy")
	}
}

func TestJobStoreNoBackwardTransition(t *testing.T) {
	t.Parallel()

	store := NewJobStore(nil)
	ctx := context.Background()
	job := snapshot.Job{ID: "job-2", Status: snapshot.JobStatusQueued}
	if err := store.CreateJob(ctx, job); err != nil {
		t.Fatalf("CreateJob() error = %v", err)
	}
	if err := store.UpdateJobStatus(ctx, job.ID, snapshot.JobStatusError, "boom", nil); err != nil {
		t.Fatalf("UpdateJobStatus error = %v", err)
	}
	if err := store.UpdateJobStatus(ctx, job.ID, snapshot.JobStatusRunning, "", nil); err == nil {
		t.Fatal("expected terminal state to reject further transitions")
	}
}

func TestJobStoreNotFound(t *testing.T) {
	t.Parallel()

	store := NewJobStore(nil)
	ctx := context.Background()
	if _, err := store.GetJob(ctx, "missing"); !errors.Is(err, snapshot.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := store.UpdateJobStatus(ctx, "missing", snapshot.JobStatusRunning, "", nil); !errors.Is(err, snapshot.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestJobStoreListActiveJobs(t *testing.T) {
	t.Parallel()

	store := NewJobStore(nil)
	ctx := context.Background()
	for _, j := range []snapshot.Job{
		{ID: "queued", Status: snapshot.JobStatusQueued},
		{ID: "running", Status: snapshot.JobStatusRunning},
		{ID: "done", Status: snapshot.JobStatusDone},
		{ID: "errored", Status: snapshot.JobStatusError},
	} {
		if err := store.CreateJob(ctx, j); err != nil {
			t.Fatalf("CreateJob(%s) error = %v", j.ID, err)
		}
	}

	active, err := store.ListActiveJobs(ctx)
	if err != nil {
		t.Fatalf("ListActiveJobs() error = %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("expected 2 active jobs, got %d: %+v", len(active), active)
	}
	for _, j := range active {
		if j.Status.IsTerminal() {
			t.Fatalf("terminal job %s listed as active", j.ID)
		}
	}
}
