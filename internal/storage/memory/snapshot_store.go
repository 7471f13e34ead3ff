// Package memory provides in-memory store implementations for development
// and testing.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/JakeFAU/web-snapshot/internal/snapshot"
)

type object struct {
	data    []byte
	modTime time.Time
}

// SnapshotStore keeps artifacts in a map.
type SnapshotStore struct {
	mu      sync.RWMutex
	objects map[string]object
	now     func() time.Time
}

// NewSnapshotStore constructs a SnapshotStore.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		objects: make(map[string]object),
		now:     time.Now,
	}
}

// PutObject stores data under path and returns the path as its URI.
func (s *SnapshotStore) PutObject(_ context.Context, path string, data []byte) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("path is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	s.objects[path] = object{data: cp, modTime: s.now()}
	return path, nil
}

// GetObject returns the stored bytes for path.
func (s *SnapshotStore) GetObject(_ context.Context, path string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[path]
	if !ok {
		return nil, fmt.Errorf("object %q not found", path)
	}
	cp := make([]byte, len(obj.data))
	copy(cp, obj.data)
	return cp, nil
}

// DeleteObject removes the object at path.
func (s *SnapshotStore) DeleteObject(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[path]; !ok {
		return fmt.Errorf("object %q not found", path)
	}
	delete(s.objects, path)
	return nil
}

// ListObjects returns objects whose path starts with prefix, sorted by
// modification time ascending with path as the tiebreaker.
func (s *SnapshotStore) ListObjects(_ context.Context, prefix string) ([]snapshot.ObjectInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var infos []snapshot.ObjectInfo
	for path, obj := range s.objects {
		if strings.HasPrefix(path, strings.TrimSuffix(prefix, "/")+"/") {
			infos = append(infos, snapshot.ObjectInfo{Path: path, ModTime: obj.modTime})
		}
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].ModTime.Equal(infos[j].ModTime) {
			return infos[i].Path < infos[j].Path
		}
		return infos[i].ModTime.Before(infos[j].ModTime)
	})
	return infos, nil
}

// Exists reports whether an object is stored at path.
func (s *SnapshotStore) Exists(path string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[path]
	return ok
}
