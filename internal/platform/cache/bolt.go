package cache

import (
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var boltBucket = []byte("entries")

// BoltStore persists entries in a single bbolt bucket. Unlike FileStore it
// keeps everything in one file, which suits deployments with many small
// cached lookups.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (or creates) the database file and ensures the bucket
// exists.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening cache db %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing cache bucket: %w", err)
	}
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) Get(key string) (Entry, bool) {
	var e Entry
	found := false
	_ = s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(boltBucket).Get([]byte(key))
		if raw == nil {
			return nil
		}
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil
		}
		found = !e.CachedAt.IsZero()
		return nil
	})
	if !found {
		return Entry{}, false
	}
	return e, true
}

func (s *BoltStore) Put(key string, data json.RawMessage) error {
	raw, err := json.Marshal(Entry{CachedAt: time.Now().UTC(), Data: data})
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(boltBucket).Put([]byte(key), raw)
	})
	if err != nil {
		return fmt.Errorf("storing cache entry: %w", err)
	}
	return nil
}

func (s *BoltStore) Summary() (Summary, error) {
	summary := Summary{Backend: "bolt", Location: s.db.Path(), Entries: []EntryInfo{}}
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(boltBucket).ForEach(func(k, v []byte) error {
			var e Entry
			modified := time.Time{}
			if json.Unmarshal(v, &e) == nil {
				modified = e.CachedAt
			}
			size := int64(len(v))
			summary.Entries = append(summary.Entries, EntryInfo{
				Name:      string(k),
				SizeBytes: size,
				Modified:  modified,
			})
			summary.TotalSize += size
			return nil
		})
	})
	if err != nil {
		return Summary{}, fmt.Errorf("reading cache bucket: %w", err)
	}
	return summary, nil
}
