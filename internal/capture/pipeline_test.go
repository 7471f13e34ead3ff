package capture

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	sha256hash "github.com/JakeFAU/web-snapshot/internal/hash/sha256"
	"github.com/JakeFAU/web-snapshot/internal/snapshot"
	"github.com/JakeFAU/web-snapshot/internal/storage/memory"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

type fakeSession struct {
	screenshots map[string][]byte
	errs        map[string]error
	closed      bool
}

func (s *fakeSession) Capture(_ context.Context, url string) (snapshot.Page, error) {
	if err := s.errs[url]; err != nil {
		return snapshot.Page{}, err
	}
	shot, ok := s.screenshots[url]
	if !ok {
		shot = []byte("png-" + url)
	}
	return snapshot.Page{
		HTML:       []byte("<html>" + url + "</html>"),
		Screenshot: shot,
	}, nil
}

func (s *fakeSession) Close() error {
	s.closed = true
	return nil
}

func newTestPipeline(store snapshot.SnapshotStore, clk snapshot.Clock) *Pipeline {
	hasher := sha256hash.New()
	return NewPipeline(store, hasher, clk, NewDedupIndex(store, hasher), zap.NewNop())
}

func TestPipelineFirstCaptureIsSaved(t *testing.T) {
	t.Parallel()

	store := memory.NewSnapshotStore()
	clk := &fakeClock{now: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)}
	p := newTestPipeline(store, clk)
	sess := &fakeSession{}

	res := p.CaptureOne(context.Background(), sess, "example.com", "https://example.com/about")
	if res.Outcome != snapshot.OutcomeSaved {
		t.Fatalf("expected saved, got %+v", res)
	}
	if res.HTMLPath != "example.com/html/about_20250102_030405.html" {
		t.Fatalf("unexpected html path %q", res.HTMLPath)
	}
	if res.ScreenshotPath != "example.com/screenshots/about_20250102_030405.png" {
		t.Fatalf("unexpected screenshot path %q", res.ScreenshotPath)
	}
	if !store.Exists(res.HTMLPath) || !store.Exists(res.ScreenshotPath) {
		t.Fatal("expected both artifacts stored")
	}
}

func TestPipelineDedupSecondCaptureIsDuplicate(t *testing.T) {
	t.Parallel()

	store := memory.NewSnapshotStore()
	clk := &fakeClock{now: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)}
	p := newTestPipeline(store, clk)
	sess := &fakeSession{screenshots: map[string][]byte{
		"https://example.com/about": []byte("stable-pixels"),
	}}
	ctx := context.Background()

	first := p.CaptureOne(ctx, sess, "example.com", "https://example.com/about")
	if first.Outcome != snapshot.OutcomeSaved {
		t.Fatalf("first capture: expected saved, got %+v", first)
	}

	clk.advance(time.Second)
	second := p.CaptureOne(ctx, sess, "example.com", "https://example.com/about")
	if second.Outcome != snapshot.OutcomeDuplicate {
		t.Fatalf("second capture: expected duplicate, got %+v", second)
	}
	if second.ScreenshotPath != "" {
		t.Fatalf("duplicate must not report a screenshot path, got %q", second.ScreenshotPath)
	}
	// The duplicate screenshot is removed; HTML from both calls is retained.
	if store.Exists("example.com/screenshots/about_20250102_030406.png") {
		t.Fatal("duplicate screenshot file must not exist")
	}
	if !store.Exists(first.ScreenshotPath) {
		t.Fatal("prior screenshot must remain")
	}
	if !store.Exists(first.HTMLPath) || !store.Exists(second.HTMLPath) {
		t.Fatal("html from both captures must exist")
	}
}

func TestPipelineSameSecondRecaptureKeepsFirstScreenshot(t *testing.T) {
	t.Parallel()

	store := memory.NewSnapshotStore()
	// The clock never advances, so both captures map to the same
	// {slug}_{timestamp} path.
	clk := &fakeClock{now: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)}
	p := newTestPipeline(store, clk)
	sess := &fakeSession{screenshots: map[string][]byte{
		"https://example.com/about": []byte("stable-pixels"),
	}}
	ctx := context.Background()

	first := p.CaptureOne(ctx, sess, "example.com", "https://example.com/about")
	if first.Outcome != snapshot.OutcomeSaved {
		t.Fatalf("first capture: expected saved, got %+v", first)
	}

	second := p.CaptureOne(ctx, sess, "example.com", "https://example.com/about")
	if second.Outcome != snapshot.OutcomeDuplicate {
		t.Fatalf("second capture: expected duplicate, got %+v", second)
	}
	if !store.Exists(first.ScreenshotPath) {
		t.Fatalf("screenshot %q reported saved must survive a same-second duplicate", first.ScreenshotPath)
	}
	got, err := store.GetObject(ctx, first.ScreenshotPath)
	if err != nil {
		t.Fatalf("GetObject() error = %v", err)
	}
	if string(got) != "stable-pixels" {
		t.Fatalf("stored screenshot was overwritten: %q", got)
	}
}

func TestPipelineChangedContentIsSaved(t *testing.T) {
	t.Parallel()

	store := memory.NewSnapshotStore()
	clk := &fakeClock{now: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)}
	p := newTestPipeline(store, clk)
	sess := &fakeSession{screenshots: map[string][]byte{
		"https://example.com/": []byte("v1"),
	}}
	ctx := context.Background()

	first := p.CaptureOne(ctx, sess, "example.com", "https://example.com/")
	if first.Outcome != snapshot.OutcomeSaved {
		t.Fatalf("expected saved, got %+v", first)
	}

	sess.screenshots["https://example.com/"] = []byte("v2")
	clk.advance(time.Second)
	second := p.CaptureOne(ctx, sess, "example.com", "https://example.com/")
	if second.Outcome != snapshot.OutcomeSaved {
		t.Fatalf("expected saved for changed content, got %+v", second)
	}
	if !store.Exists(first.ScreenshotPath) || !store.Exists(second.ScreenshotPath) {
		t.Fatal("both distinct screenshots must exist")
	}
}

func TestPipelineRenderErrorIsIsolated(t *testing.T) {
	t.Parallel()

	store := memory.NewSnapshotStore()
	clk := &fakeClock{now: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)}
	p := newTestPipeline(store, clk)
	sess := &fakeSession{errs: map[string]error{
		"https://example.com/broken": errors.New("navigation timeout exceeded"),
	}}
	ctx := context.Background()

	res := p.CaptureOne(ctx, sess, "example.com", "https://example.com/broken")
	if res.Outcome != snapshot.OutcomeError {
		t.Fatalf("expected error outcome, got %+v", res)
	}
	if !strings.Contains(res.Error, "navigation timeout") {
		t.Fatalf("expected timeout message, got %q", res.Error)
	}

	// The same session keeps serving subsequent URLs.
	ok := p.CaptureOne(ctx, sess, "example.com", "https://example.com/fine")
	if ok.Outcome != snapshot.OutcomeSaved {
		t.Fatalf("expected saved after isolated failure, got %+v", ok)
	}
}

func TestDedupIndexSeedsFromPriorRun(t *testing.T) {
	t.Parallel()

	store := memory.NewSnapshotStore()
	ctx := context.Background()
	// A screenshot left behind by a previous process run.
	if _, err := store.PutObject(ctx, "example.com/screenshots/index_20240101_000000.png", []byte("stable-pixels")); err != nil {
		t.Fatalf("PutObject() error = %v", err)
	}

	clk := &fakeClock{now: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)}
	p := newTestPipeline(store, clk)
	sess := &fakeSession{screenshots: map[string][]byte{
		"https://example.com/": []byte("stable-pixels"),
	}}

	res := p.CaptureOne(ctx, sess, "example.com", "https://example.com/")
	if res.Outcome != snapshot.OutcomeDuplicate {
		t.Fatalf("expected duplicate against prior run, got %+v", res)
	}
}

func TestDedupIndexPicksMostRecentPrior(t *testing.T) {
	t.Parallel()

	store := memory.NewSnapshotStore()
	ctx := context.Background()
	hasher := sha256hash.New()

	if _, err := store.PutObject(ctx, "example.com/screenshots/index_20240101_000000.png", []byte("old")); err != nil {
		t.Fatalf("PutObject() error = %v", err)
	}
	if _, err := store.PutObject(ctx, "example.com/screenshots/index_20240102_000000.png", []byte("new")); err != nil {
		t.Fatalf("PutObject() error = %v", err)
	}

	idx := NewDedupIndex(store, hasher)
	digest, err := idx.LastDigest(ctx, "example.com")
	if err != nil {
		t.Fatalf("LastDigest() error = %v", err)
	}
	want, _ := hasher.Hash([]byte("new"))
	if digest != want {
		t.Fatalf("LastDigest() = %s, want digest of most recent file %s", digest, want)
	}
}

func TestDedupIndexEmptyOrigin(t *testing.T) {
	t.Parallel()

	store := memory.NewSnapshotStore()
	idx := NewDedupIndex(store, sha256hash.New())
	digest, err := idx.LastDigest(context.Background(), "nothing.example")
	if err != nil {
		t.Fatalf("LastDigest() error = %v", err)
	}
	if digest != "" {
		t.Fatalf("expected empty digest, got %q", digest)
	}
}

func TestPipelineQuerySlugsDoNotCollide(t *testing.T) {
	t.Parallel()

	store := memory.NewSnapshotStore()
	clk := &fakeClock{now: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)}
	p := newTestPipeline(store, clk)
	sess := &fakeSession{screenshots: map[string][]byte{
		"https://example.com/about?x=1": []byte("p1"),
		"https://example.com/about?x=2": []byte("p2"),
	}}
	ctx := context.Background()

	r1 := p.CaptureOne(ctx, sess, "example.com", "https://example.com/about?x=1")
	r2 := p.CaptureOne(ctx, sess, "example.com", "https://example.com/about?x=2")
	if r1.HTMLPath == r2.HTMLPath {
		t.Fatalf("query variants must not share artifact paths: %q", r1.HTMLPath)
	}
	for _, res := range []snapshot.CaptureResult{r1, r2} {
		if res.Outcome != snapshot.OutcomeSaved {
			t.Fatalf("expected saved, got %+v", res)
		}
	}
}
