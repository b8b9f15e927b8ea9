// Package dedup prevents re-alerting the same marketplace listing within a
// retention window.
package dedup

import (
	"context"
	"sync"
	"time"
)

// SeenStore answers whether a listing key should trigger an alert. The first
// call for a key within the retention window claims it and returns true;
// repeats return false until the window elapses.
type SeenStore interface {
	ShouldAlert(ctx context.Context, key string) (bool, error)
}

// MemoryStore is the in-process SeenStore. Entries older than the retention
// window are purged lazily during calls; there is no background timer, so
// memory stays bounded under long uptime without extra goroutines.
type MemoryStore struct {
	retention time.Duration
	now       func() time.Time

	mu   sync.Mutex
	seen map[string]time.Time
}

// NewMemoryStore constructs a MemoryStore with the given retention window.
func NewMemoryStore(retention time.Duration) *MemoryStore {
	if retention <= 0 {
		panic("dedup: retention window must be positive")
	}
	return &MemoryStore{
		retention: retention,
		now:       time.Now,
		seen:      make(map[string]time.Time),
	}
}

// ShouldAlert claims the key if it has not been seen within the retention
// window. Purging is amortized into the call.
func (s *MemoryStore) ShouldAlert(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.purgeLocked(now)

	if firstSeen, ok := s.seen[key]; ok && now.Sub(firstSeen) < s.retention {
		return false, nil
	}
	s.seen[key] = now
	return true, nil
}

func (s *MemoryStore) purgeLocked(now time.Time) {
	for key, firstSeen := range s.seen {
		if now.Sub(firstSeen) >= s.retention {
			delete(s.seen, key)
		}
	}
}

// Snapshot copies the current seen set for checkpointing.
func (s *MemoryStore) Snapshot() map[string]time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]time.Time, len(s.seen))
	for key, firstSeen := range s.seen {
		out[key] = firstSeen
	}
	return out
}

// Restore loads a previously snapshotted seen set, dropping entries that
// already fell out of the retention window.
func (s *MemoryStore) Restore(snapshot map[string]time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.seen = make(map[string]time.Time, len(snapshot))
	for key, firstSeen := range snapshot {
		if now.Sub(firstSeen) < s.retention {
			s.seen[key] = firstSeen
		}
	}
}

var _ SeenStore = (*MemoryStore)(nil)
