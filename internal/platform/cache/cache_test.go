package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestKeyDeterministic(t *testing.T) {
	a := Key("fever", "tm2")
	b := Key("fever", "tm2")
	if a != b {
		t.Errorf("expected identical keys, got %s and %s", a, b)
	}
	if a == Key("fever", "mms") {
		t.Error("expected different keys for different parts")
	}
	if len(a) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(a))
	}
}

func TestKeySeparatorAmbiguity(t *testing.T) {
	if Key("ab", "c") == Key("a", "bc") {
		t.Error("joined parts must not collide")
	}
}

func storesUnderTest(t *testing.T) map[string]Store {
	t.Helper()

	fileStore, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	boltStore, err := NewBoltStore(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("NewBoltStore: %v", err)
	}
	t.Cleanup(func() { boltStore.Close() })

	return map[string]Store{
		"file":   fileStore,
		"memory": NewMemoryStore(),
		"bolt":   boltStore,
	}
}

func TestStoreRoundTrip(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			key := Key("search", "jvara")
			payload := json.RawMessage(`{"matches":[{"code":"SK50"}]}`)

			if _, ok := store.Get(key); ok {
				t.Fatal("expected miss before Put")
			}
			if err := store.Put(key, payload); err != nil {
				t.Fatalf("Put: %v", err)
			}

			entry, ok := store.Get(key)
			if !ok {
				t.Fatal("expected hit after Put")
			}
			if string(entry.Data) != string(payload) {
				t.Errorf("data = %s, want %s", entry.Data, payload)
			}
			if entry.CachedAt.IsZero() {
				t.Error("CachedAt not stamped")
			}
		})
	}
}

func TestStorePutOverwrites(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			key := Key("search", "kasa")
			if err := store.Put(key, json.RawMessage(`{"v":1}`)); err != nil {
				t.Fatalf("Put: %v", err)
			}
			if err := store.Put(key, json.RawMessage(`{"v":2}`)); err != nil {
				t.Fatalf("Put: %v", err)
			}
			entry, ok := store.Get(key)
			if !ok {
				t.Fatal("expected hit")
			}
			if string(entry.Data) != `{"v":2}` {
				t.Errorf("data = %s, want latest write", entry.Data)
			}
		})
	}
}

func TestStoreSummary(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.Put(Key("a"), json.RawMessage(`{"a":1}`)); err != nil {
				t.Fatalf("Put: %v", err)
			}
			if err := store.Put(Key("b"), json.RawMessage(`{"b":2}`)); err != nil {
				t.Fatalf("Put: %v", err)
			}
			summary, err := store.Summary()
			if err != nil {
				t.Fatalf("Summary: %v", err)
			}
			if summary.Backend != name {
				t.Errorf("backend = %s, want %s", summary.Backend, name)
			}
			if len(summary.Entries) != 2 {
				t.Fatalf("entries = %d, want 2", len(summary.Entries))
			}
			if summary.TotalSize <= 0 {
				t.Error("expected positive total size")
			}
			for _, e := range summary.Entries {
				if e.SizeBytes <= 0 {
					t.Errorf("entry %s has no size", e.Name)
				}
				if e.Modified.IsZero() {
					t.Errorf("entry %s has no modified time", e.Name)
				}
			}
		})
	}
}

func TestFileStoreCorruptEntryIsMiss(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	key := Key("broken")
	if err := os.WriteFile(filepath.Join(dir, key+".json"), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}
	if _, ok := store.Get(key); ok {
		t.Error("corrupt entry should be a miss")
	}
}

func TestFileStoreSummaryIgnoresForeignFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write foreign file: %v", err)
	}
	if err := store.Put(Key("a"), json.RawMessage(`{}`)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	summary, err := store.Summary()
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if len(summary.Entries) != 1 {
		t.Errorf("entries = %d, want only the .json entry", len(summary.Entries))
	}
}
