package memory

import (
	"context"
	"testing"
	"time"

	"github.com/JakeFAU/web-snapshot/internal/snapshot"
)

func TestQueueRoundTrip(t *testing.T) {
	t.Parallel()

	q := NewQueue(2)
	ctx := context.Background()

	item := snapshot.QueueItem{JobID: "job-1", URLs: []string{"https://example.com"}}
	if err := q.Enqueue(ctx, item); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	got, err := q.Dequeue(ctx)
	if err != nil {
		t.Fatalf("Dequeue() error = %v", err)
	}
	if got.JobID != "job-1" || len(got.URLs) != 1 {
		t.Fatalf("unexpected item: %+v", got)
	}
}

func TestQueueRespectsContext(t *testing.T) {
	t.Parallel()

	q := NewQueue(1)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := q.Dequeue(ctx); err == nil {
		t.Fatal("expected context cancellation error")
	}
}

func TestQueueEnqueueBlocksWhenFull(t *testing.T) {
	t.Parallel()

	q := NewQueue(1)
	ctx := context.Background()
	if err := q.Enqueue(ctx, snapshot.QueueItem{JobID: "a"}); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	blocked, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := q.Enqueue(blocked, snapshot.QueueItem{JobID: "b"}); err == nil {
		t.Fatal("expected enqueue on full queue to time out")
	}
}

func TestQueueCloseIsIdempotent(t *testing.T) {
	t.Parallel()

	q := NewQueue(1)
	q.Close()
	q.Close()

	if _, err := q.Dequeue(context.Background()); err == nil {
		t.Fatal("expected error from closed queue")
	}
}
