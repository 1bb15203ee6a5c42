package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// FileStore persists each entry as <key>.json under a cache directory.
type FileStore struct {
	dir string
	mu  sync.RWMutex
}

// NewFileStore creates the cache directory if needed and returns a FileStore.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

// Get reads and decodes the entry file. Any read or decode failure is a miss.
func (s *FileStore) Get(key string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	raw, err := os.ReadFile(s.path(key))
	if err != nil {
		return Entry{}, false
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return Entry{}, false
	}
	if e.CachedAt.IsZero() {
		return Entry{}, false
	}
	return e, true
}

// Put writes the entry file atomically via a temp-file rename so readers
// never observe a partial write.
func (s *FileStore) Put(key string, data json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := Entry{CachedAt: time.Now().UTC(), Data: data}
	raw, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, "entry-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp cache file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing cache entry: %w", err)
	}
	if err := os.Rename(tmpName, s.path(key)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("publishing cache entry: %w", err)
	}
	return nil
}

// Summary lists every .json entry file with its size and modification time.
func (s *FileStore) Summary() (Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary := Summary{Backend: "file", Location: s.dir, Entries: []EntryInfo{}}
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		return Summary{}, fmt.Errorf("reading cache dir: %w", err)
	}
	for _, de := range dirEntries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), ".json") {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		summary.Entries = append(summary.Entries, EntryInfo{
			Name:      de.Name(),
			SizeBytes: info.Size(),
			Modified:  info.ModTime(),
		})
		summary.TotalSize += info.Size()
	}
	return summary, nil
}
