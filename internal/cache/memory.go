package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a process-local Store, selected with CACHE_BACKEND=memory.
// Entries live until the process exits or the janitor prunes them.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	data      []byte
	writtenAt time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: map[string]memoryEntry{}, now: time.Now}
}

func memoryKey(ns Namespace, key string) string {
	return string(ns) + "/" + key
}

func (s *MemoryStore) Exists(_ context.Context, ns Namespace, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[memoryKey(ns, key)]
	return ok, nil
}

func (s *MemoryStore) Read(_ context.Context, ns Namespace, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[memoryKey(ns, key)]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(entry.data))
	copy(out, entry.data)
	return out, nil
}

func (s *MemoryStore) Write(_ context.Context, ns Namespace, key string, data []byte) error {
	if err := ns.validate(); err != nil {
		return err
	}
	stored := make([]byte, len(data))
	copy(stored, data)
	s.mu.Lock()
	s.entries[memoryKey(ns, key)] = memoryEntry{data: stored, writtenAt: s.now()}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Prune(_ context.Context, olderThan time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key, entry := range s.entries {
		if entry.writtenAt.Before(olderThan) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed, nil
}

// Len reports the number of stored entries across namespaces.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
