package revocation

import (
	"context"
	"sync"
)

// MemoryStore is an in-process revocation Store backed by a map, guarded
// by a RWMutex so concurrent verifications can check revocation status
// without blocking each other while a sync pass reloads the set.
type MemoryStore struct {
	mu  sync.RWMutex
	ids map[string]struct{}
}

// NewMemoryStore builds an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{ids: make(map[string]struct{})}
}

// Revoke marks uniqueID as revoked.
func (s *MemoryStore) Revoke(_ context.Context, uniqueID []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids[encodeID(uniqueID)] = struct{}{}
	return nil
}

// Unrevoke clears a previously revoked id, if present.
func (s *MemoryStore) Unrevoke(_ context.Context, uniqueID []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.ids, encodeID(uniqueID))
	return nil
}

// IsRevoked reports whether uniqueID is in the revoked set.
func (s *MemoryStore) IsRevoked(_ context.Context, uniqueID []byte) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ids[encodeID(uniqueID)]
	return ok, nil
}

// Close is a no-op for MemoryStore; it exists to satisfy Store.
func (s *MemoryStore) Close() error { return nil }

// Replace atomically swaps the entire revoked set, used by the file and
// git syncers to install a freshly loaded snapshot without a window where
// IsRevoked sees a partially updated set.
func (s *MemoryStore) Replace(ids []string) {
	next := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		next[id] = struct{}{}
	}
	s.mu.Lock()
	s.ids = next
	s.mu.Unlock()
}

// Snapshot returns the currently revoked ids, hex-encoded, in no
// particular order. Intended for diagnostics, not for hot-path checks.
func (s *MemoryStore) Snapshot() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	return out
}
