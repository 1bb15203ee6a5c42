package cache

import (
	"encoding/json"
	"sync"
	"time"
)

// MemoryStore keeps entries in process memory. Contents are lost on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

func (s *MemoryStore) Get(key string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	return e, ok
}

func (s *MemoryStore) Put(key string, data json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = Entry{CachedAt: time.Now().UTC(), Data: data}
	return nil
}

func (s *MemoryStore) Summary() (Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary := Summary{Backend: "memory", Entries: []EntryInfo{}}
	for key, e := range s.entries {
		size := int64(len(e.Data))
		summary.Entries = append(summary.Entries, EntryInfo{
			Name:      key,
			SizeBytes: size,
			Modified:  e.CachedAt,
		})
		summary.TotalSize += size
	}
	return summary, nil
}
