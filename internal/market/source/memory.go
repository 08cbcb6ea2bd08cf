package source

import (
	"context"
	"sync"
)

// MemoryStore keeps entries in process memory for the lifetime of the session.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[Key]Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[Key]Entry),
	}
}

// Get returns a copy of the entry's outer slice; snapshots themselves are
// treated as immutable once normalized.
func (s *MemoryStore) Get(_ context.Context, key Key) (Entry, bool, error) {
	s.mu.RLock()
	e, ok := s.data[key]
	s.mu.RUnlock()
	if !ok {
		return Entry{}, false, nil
	}
	return copyEntry(e), true, nil
}

func (s *MemoryStore) Set(_ context.Context, key Key, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = copyEntry(e)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// Len returns the number of cached keys.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

func copyEntry(e Entry) Entry {
	cp := e
	if e.Snapshots != nil {
		cp.Snapshots = append(e.Snapshots[:0:0], e.Snapshots...)
	}
	return cp
}
