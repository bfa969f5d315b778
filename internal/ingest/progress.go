package ingest

import (
	"context"
	"sync"
	"time"

	"github.com/cozee/docchat/internal/model"
)

// ProgressTracker records per-resource ingestion progress: 0-100, or
// model.ProgressFailed. Get for an unknown resource reports 0/processing so
// a client can poll before the first chunk lands.
type ProgressTracker interface {
	Set(ctx context.Context, resourceID string, progress int) error
	Get(ctx context.Context, resourceID string) (*model.IngestStatus, error)
}

// MemoryTracker is a process-local ProgressTracker. Production wiring uses
// the database-backed store so progress survives restarts and is visible
// across instances; this one serves tests and single-node setups.
type MemoryTracker struct {
	mu      sync.RWMutex
	entries map[string]int
}

func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{entries: make(map[string]int)}
}

func (t *MemoryTracker) Set(_ context.Context, resourceID string, progress int) error {
	t.mu.Lock()
	t.entries[resourceID] = progress
	t.mu.Unlock()
	return nil
}

func (t *MemoryTracker) Get(_ context.Context, resourceID string) (*model.IngestStatus, error) {
	t.mu.RLock()
	progress := t.entries[resourceID]
	t.mu.RUnlock()
	return &model.IngestStatus{
		ResourceID: resourceID,
		Progress:   progress,
		Status:     model.StatusForProgress(progress),
		Mtime:      time.Now().UnixMilli(),
	}, nil
}
