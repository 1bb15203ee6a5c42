// Package cache provides the keyed response cache used by the WHO ICD-11
// adapter. Keys are content-hashed so that arbitrary search terms produce
// safe storage names; a corrupt or unreadable entry is always treated as a
// miss, never an error.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"
)

// Entry holds a cached payload together with the wall-clock time it was
// written. Validity (TTL) is the caller's policy, not the store's.
type Entry struct {
	CachedAt time.Time       `json:"cached_at"`
	Data     json.RawMessage `json:"data"`
}

// EntryInfo describes one stored entry for cache introspection.
type EntryInfo struct {
	Name      string    `json:"file"`
	SizeBytes int64     `json:"size_bytes"`
	Modified  time.Time `json:"modified"`
}

// Summary aggregates cache introspection data.
type Summary struct {
	Backend   string      `json:"backend"`
	Location  string      `json:"location,omitempty"`
	Entries   []EntryInfo `json:"cached_files"`
	TotalSize int64       `json:"total_cache_size"`
}

// Store is a keyed cache backend. Implementations must tolerate concurrent
// readers and writers.
type Store interface {
	// Get returns the entry for key. A missing, expired-on-disk, or corrupt
	// entry is reported as ok=false.
	Get(key string) (Entry, bool)
	// Put stores data under key, overwriting any previous entry.
	Put(key string, data json.RawMessage) error
	// Summary reports what the cache currently holds.
	Summary() (Summary, error)
}

// Key derives a collision-resistant storage key from the logical key parts
// (operation name, parameters). The result is a hex SHA-256 digest, safe for
// filenames and bucket keys alike.
func Key(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}
