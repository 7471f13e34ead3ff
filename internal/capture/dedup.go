// Package capture implements the per-URL capture pipeline and the
// per-origin orchestrator that drives it.
package capture

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/JakeFAU/web-snapshot/internal/snapshot"
)

// DedupIndex tracks the digest of the most recent screenshot stored per
// origin. Entries are seeded lazily from the snapshot store so dedup keeps
// working across process restarts, then kept current in memory so no
// per-capture directory rescan is needed.
type DedupIndex struct {
	mu     sync.Mutex
	store  snapshot.SnapshotStore
	hasher snapshot.Hasher
	last   map[string]string
	seeded map[string]bool
}

// NewDedupIndex constructs a DedupIndex backed by the given store.
func NewDedupIndex(store snapshot.SnapshotStore, hasher snapshot.Hasher) *DedupIndex {
	return &DedupIndex{
		store:  store,
		hasher: hasher,
		last:   make(map[string]string),
		seeded: make(map[string]bool),
	}
}

// LastDigest returns the digest of the most recent screenshot for origin, or
// "" when none exists. The first call per origin scans the origin's
// screenshot directory, picking the most-recently-modified file with path as
// the tiebreaker.
func (i *DedupIndex) LastDigest(ctx context.Context, origin string) (string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.seeded[origin] {
		return i.last[origin], nil
	}

	infos, err := i.store.ListObjects(ctx, screenshotPrefix(origin))
	if err != nil {
		return "", fmt.Errorf("list prior screenshots: %w", err)
	}
	var latest string
	for _, info := range infos {
		if strings.HasSuffix(info.Path, ".png") {
			latest = info.Path
		}
	}
	if latest == "" {
		i.seeded[origin] = true
		return "", nil
	}

	data, err := i.store.GetObject(ctx, latest)
	if err != nil {
		return "", fmt.Errorf("read prior screenshot: %w", err)
	}
	digest, err := i.hasher.Hash(data)
	if err != nil {
		return "", fmt.Errorf("hash prior screenshot: %w", err)
	}
	i.last[origin] = digest
	i.seeded[origin] = true
	return digest, nil
}

// Record stores the digest of the screenshot just written for origin.
func (i *DedupIndex) Record(origin, digest string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.last[origin] = digest
	i.seeded[origin] = true
}

func screenshotPrefix(origin string) string {
	return origin + "/screenshots"
}
