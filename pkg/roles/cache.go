package roles

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	access  Access
	expires time.Time
}

// MemoryCache keeps resolved roles in process. It is the default when no
// Redis URL is configured.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[int]memoryEntry
	now     func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: map[int]memoryEntry{},
		now:     time.Now,
	}
}

func (mc *MemoryCache) Get(_ context.Context, userID int) (*Access, bool, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	entry, ok := mc.entries[userID]
	if !ok {
		return nil, false, nil
	}
	if !mc.now().Before(entry.expires) {
		delete(mc.entries, userID)
		return nil, false, nil
	}
	access := entry.access
	return &access, true, nil
}

func (mc *MemoryCache) Set(_ context.Context, userID int, access *Access, ttl time.Duration) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.entries[userID] = memoryEntry{access: *access, expires: mc.now().Add(ttl)}
	return nil
}

func (mc *MemoryCache) Delete(_ context.Context, userID int) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	delete(mc.entries, userID)
	return nil
}
