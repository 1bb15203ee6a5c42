package terminology

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/namaste/namaste/internal/platform/cache"
	"github.com/namaste/namaste/internal/platform/ingest"
)

// cacheReporter exposes the external source's cache introspection.
type cacheReporter interface {
	CacheSummary() (cache.Summary, error)
}

// Service ties ingestion, enrichment, search and translation together. A
// single Service owns the live table generation; all read operations go
// through the published generation and are safe for concurrent use.
type Service struct {
	store    *Store
	enricher *Enricher
	cache    cacheReporter
	logger   zerolog.Logger

	mu        sync.RWMutex
	analytics Analytics
}

func NewService(store *Store, enricher *Enricher, cache cacheReporter, logger zerolog.Logger) *Service {
	return &Service{
		store:    store,
		enricher: enricher,
		cache:    cache,
		logger:   logger.With().Str("component", "terminology").Logger(),
	}
}

// ParseSystem maps a request string onto a coding system.
func ParseSystem(s string) (System, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "namaste":
		return SystemNAMASTE, nil
	case "tm2", "icd11-tm2":
		return SystemTM2, nil
	case "biomedicine", "biomed", "icd11-biomed":
		return SystemBiomedicine, nil
	default:
		return "", fmt.Errorf("unknown coding system %q", s)
	}
}

// Ingest enriches the raw rows, recomputes analytics and publishes a new
// table generation. Rows repeating a code are counted for analytics but
// collapsed to their first occurrence in the table. Returns the published
// record count.
func (s *Service) Ingest(ctx context.Context, rows []ingest.RawRecord) (int, error) {
	if len(rows) == 0 {
		return 0, fmt.Errorf("dataset contains no records")
	}

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, Record{
			Code:       row.Code,
			Display:    row.Disease,
			Definition: row.ShortDefinition,
			Region:     row.State,
		})
	}
	records = s.enricher.Enrich(ctx, records, nil)

	analytics := ComputeAnalytics(records)

	seen := make(map[string]bool, len(records))
	unique := make([]Record, 0, len(records))
	for _, r := range records {
		if seen[r.Code] {
			continue
		}
		seen[r.Code] = true
		unique = append(unique, r)
	}

	table, err := NewTable(unique)
	if err != nil {
		return 0, fmt.Errorf("building terminology table: %w", err)
	}

	s.mu.Lock()
	s.store.Replace(table)
	s.analytics = analytics
	s.mu.Unlock()

	s.logger.Info().Int("rows", len(rows)).Int("codes", table.Len()).Msg("terminology table published")
	return table.Len(), nil
}

// IngestFile loads and publishes a dataset from disk.
func (s *Service) IngestFile(ctx context.Context, path string) (int, error) {
	rows, err := ingest.ParseCSVFile(path)
	if err != nil {
		return 0, err
	}
	return s.Ingest(ctx, rows)
}

// Search runs the two-phase lookup against the live generation.
func (s *Service) Search(query string, limit, threshold int) ([]SearchResult, error) {
	table, err := s.store.Current()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if threshold <= 0 {
		threshold = DefaultSearchThreshold
	}
	return table.Search(query, limit, threshold), nil
}

// Translate resolves a code between two systems. The second return value
// reports whether the source code exists in the live generation, letting
// callers distinguish "not found" from "found but unmapped".
func (s *Service) Translate(code string, source, target System) ([]Translation, bool, error) {
	table, err := s.store.Current()
	if err != nil {
		return nil, false, err
	}
	translations, err := table.Resolve(code, source, target)
	if err != nil {
		return nil, false, err
	}
	exists := len(translations) > 0
	if source == SystemNAMASTE {
		exists = table.HasCode(code)
	}
	return translations, exists, nil
}

// TranslateAll returns both ICD-11 translations of a NAMASTE code.
func (s *Service) TranslateAll(code string) ([]Translation, bool, error) {
	table, err := s.store.Current()
	if err != nil {
		return nil, false, err
	}
	return table.ResolveAll(code), table.HasCode(code), nil
}

// ReverseTranslate maps an ICD-11 code from either view back to NAMASTE.
func (s *Service) ReverseTranslate(code string) ([]Translation, error) {
	table, err := s.store.Current()
	if err != nil {
		return nil, err
	}
	out, err := table.Resolve(code, SystemTM2, SystemNAMASTE)
	if err != nil {
		return nil, err
	}
	fromBiomed, err := table.Resolve(code, SystemBiomedicine, SystemNAMASTE)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(out))
	for _, tr := range out {
		seen[tr.TargetCode] = true
	}
	for _, tr := range fromBiomed {
		if !seen[tr.TargetCode] {
			out = append(out, tr)
		}
	}
	return out, nil
}

// Lookup returns the record for a NAMASTE code.
func (s *Service) Lookup(code string) (Record, bool, error) {
	table, err := s.store.Current()
	if err != nil {
		return Record{}, false, err
	}
	r, ok := table.Get(code)
	return r, ok, nil
}

// ValidateCode checks that a code exists and, when a display is supplied,
// that it matches the record's display (case-insensitive).
func (s *Service) ValidateCode(code, display string) (bool, Record, error) {
	table, err := s.store.Current()
	if err != nil {
		return false, Record{}, err
	}
	r, ok := table.Get(code)
	if !ok {
		return false, Record{}, nil
	}
	if display != "" && !strings.EqualFold(display, r.Display) {
		return false, r, nil
	}
	return true, r, nil
}

// Records returns the live generation's rows in ingest order.
func (s *Service) Records() ([]Record, error) {
	table, err := s.store.Current()
	if err != nil {
		return nil, err
	}
	return table.Records(), nil
}

// Loaded reports whether a generation has been published.
func (s *Service) Loaded() bool {
	return s.store.Loaded()
}

// Analytics returns the morbidity aggregates for the live generation.
func (s *Service) Analytics() (Analytics, error) {
	if !s.store.Loaded() {
		return Analytics{}, ErrNotLoaded
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.analytics, nil
}

// CacheSummary reports the external source's cache state.
func (s *Service) CacheSummary() (cache.Summary, error) {
	return s.cache.CacheSummary()
}
