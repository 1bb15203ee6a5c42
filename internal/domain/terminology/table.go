package terminology

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrNotLoaded is returned when search or resolve runs before any ingest.
var ErrNotLoaded = errors.New("no terminology data loaded")

// Table is one immutable generation of the terminology table. Records keep
// their ingest order; lookups by code go through an index built once.
type Table struct {
	records []Record
	byCode  map[string]int
}

// NewTable builds a generation from enriched records. Codes must be unique
// and non-empty; searchable text is derived here so every reader sees the
// same haystacks.
func NewTable(records []Record) (*Table, error) {
	byCode := make(map[string]int, len(records))
	out := make([]Record, len(records))
	for i, r := range records {
		if r.Code == "" {
			return nil, fmt.Errorf("record %d has an empty code", i)
		}
		if _, dup := byCode[r.Code]; dup {
			return nil, fmt.Errorf("duplicate code %q", r.Code)
		}
		if r.TM2Code == "" {
			r.TM2Code = CodeUnknown
		}
		if r.BiomedCode == "" {
			r.BiomedCode = CodeUnknown
		}
		if r.Provenance == "" {
			r.Provenance = ProvenanceUnresolved
		}
		r.searchableText = strings.ToLower(r.Display + " " + r.Definition + " " + r.Code)
		byCode[r.Code] = i
		out[i] = r
	}
	return &Table{records: out, byCode: byCode}, nil
}

// Records returns the generation's rows in ingest order. Callers must not
// modify the returned slice.
func (t *Table) Records() []Record {
	return t.records
}

// Get returns the record for a code.
func (t *Table) Get(code string) (Record, bool) {
	idx, ok := t.byCode[code]
	if !ok {
		return Record{}, false
	}
	return t.records[idx], true
}

// HasCode reports whether the code exists in this generation. Resolve
// returns an empty list both for unknown and unmapped codes; callers that
// need to tell the two apart check existence separately.
func (t *Table) HasCode(code string) bool {
	_, ok := t.byCode[code]
	return ok
}

func (t *Table) Len() int {
	return len(t.records)
}

// Store publishes the current table generation. Replace swaps generations
// wholesale, so readers always see a complete table.
type Store struct {
	mu      sync.RWMutex
	current *Table
}

func NewStore() *Store {
	return &Store{}
}

// Replace publishes a new generation.
func (s *Store) Replace(t *Table) {
	s.mu.Lock()
	s.current = t
	s.mu.Unlock()
}

// Current returns the live generation, or ErrNotLoaded before the first
// ingest.
func (s *Store) Current() (*Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil, ErrNotLoaded
	}
	return s.current, nil
}

// Loaded reports whether a generation has been published.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current != nil
}
