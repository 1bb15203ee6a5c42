package terminology

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/namaste/namaste/internal/platform/icd11"
)

// externalSource is the slice of the WHO client the enricher needs. The
// second return value reports availability; false means the source could
// not be reached and counts as no candidates.
type externalSource interface {
	Search(ctx context.Context, term, linearization string) ([]icd11.Entity, bool)
}

// Per-search and per-category caps keep noise from open-ended terminology
// searches out of the mapping columns.
const (
	maxResultsPerSearch = 2
	maxPerCategory      = 2
)

var searchLinearizations = []string{"mms", "x02"}

// staticMapping is a hand-curated fallback used when the external source
// yields nothing for a code.
type staticMapping struct {
	Name   string
	TM2    string
	Biomed string
	Terms  []string
}

var staticFallback = map[string]staticMapping{
	"AAE-16":   {Name: "Sandhigatvata", TM2: "SP00", Biomed: "FA01", Terms: []string{"arthritis", "joint disease", "osteoarthritis"}},
	"AA":       {Name: "Vatavyadhi", TM2: "SP10", Biomed: "FA20", Terms: []string{"neurological disorder", "vata", "nervous system"}},
	"EE-3":     {Name: "Arsha", TM2: "SL01", Biomed: "ME83", Terms: []string{"hemorrhoids", "piles", "anorectal"}},
	"EF-2.4.4": {Name: "Madhumeha/Kshaudrameha", TM2: "SJ00", Biomed: "5A11", Terms: []string{"diabetes", "diabetes mellitus", "metabolic"}},
	"EA-3":     {Name: "Kasa", TM2: "SB00", Biomed: "CA22", Terms: []string{"cough", "respiratory", "bronchial"}},
}

// DefaultCuratedTerms returns the built-in search terms per NAMASTE code.
func DefaultCuratedTerms() map[string][]string {
	out := make(map[string][]string, len(staticFallback))
	for code, m := range staticFallback {
		out[code] = append([]string(nil), m.Terms...)
	}
	return out
}

// Enricher fills the ICD-11 mapping columns of ingested records by
// querying the external source with curated search terms, falling back to
// the static table when the source is unavailable or silent.
type Enricher struct {
	source externalSource
	logger zerolog.Logger
}

func NewEnricher(source externalSource, logger zerolog.Logger) *Enricher {
	return &Enricher{
		source: source,
		logger: logger.With().Str("component", "enrichment").Logger(),
	}
}

type mappingPair struct {
	tm2        []icd11.Entity
	biomed     []icd11.Entity
	provenance Provenance
	fallback   staticMapping
}

// Enrich resolves the mapping columns for every record and returns a new
// slice; the input is not modified. curated maps codes to search terms and
// defaults to the built-in set when nil. Source failures never abort the
// run: affected codes degrade to the static fallback or stay unresolved.
func (e *Enricher) Enrich(ctx context.Context, records []Record, curated map[string][]string) []Record {
	if curated == nil {
		curated = DefaultCuratedTerms()
	}

	resolved := make(map[string]mappingPair, len(records))
	out := make([]Record, len(records))
	for i, r := range records {
		pair, ok := resolved[r.Code]
		if !ok {
			pair = e.resolveCode(ctx, r.Code, curated[r.Code])
			resolved[r.Code] = pair
		}
		out[i] = applyMapping(r, pair)
	}
	return out
}

// resolveCode gathers external candidates for one code and decides its
// provenance.
func (e *Enricher) resolveCode(ctx context.Context, code string, terms []string) mappingPair {
	pair := mappingPair{provenance: ProvenanceUnresolved}

	for _, term := range terms {
		for _, linearization := range searchLinearizations {
			entities, available := e.source.Search(ctx, term, linearization)
			if !available {
				continue
			}
			if len(entities) > maxResultsPerSearch {
				entities = entities[:maxResultsPerSearch]
			}
			for _, entity := range entities {
				if entity.Code() == "" || entity.Title == "" {
					continue
				}
				if entity.Category() == icd11.CategoryTM2 {
					pair.tm2 = appendCandidate(pair.tm2, entity)
				} else {
					pair.biomed = appendCandidate(pair.biomed, entity)
				}
			}
		}
	}

	if len(pair.tm2) > 0 || len(pair.biomed) > 0 {
		pair.provenance = ProvenanceExternalSource
		e.logger.Debug().Str("code", code).
			Int("tm2", len(pair.tm2)).Int("biomed", len(pair.biomed)).
			Msg("mapped from external source")
		return pair
	}

	if fallback, ok := staticFallback[code]; ok {
		pair.provenance = ProvenanceStaticFallback
		pair.fallback = fallback
		e.logger.Debug().Str("code", code).Msg("mapped from static fallback")
		return pair
	}

	e.logger.Debug().Str("code", code).Msg("no mapping resolved")
	return pair
}

// appendCandidate deduplicates by code in first-seen order and enforces
// the per-category cap.
func appendCandidate(list []icd11.Entity, entity icd11.Entity) []icd11.Entity {
	if len(list) >= maxPerCategory {
		return list
	}
	for _, existing := range list {
		if existing.Code() == entity.Code() {
			return list
		}
	}
	return append(list, entity)
}

func applyMapping(r Record, pair mappingPair) Record {
	r.TM2Code, r.BiomedCode = CodeUnknown, CodeUnknown
	r.TM2Display, r.BiomedDisplay = "", ""
	r.Provenance = pair.provenance

	switch pair.provenance {
	case ProvenanceExternalSource:
		if len(pair.tm2) > 0 {
			r.TM2Code, r.TM2Display = pair.tm2[0].Code(), pair.tm2[0].Title
		}
		if len(pair.biomed) > 0 {
			r.BiomedCode, r.BiomedDisplay = pair.biomed[0].Code(), pair.biomed[0].Title
		}
	case ProvenanceStaticFallback:
		r.TM2Code = pair.fallback.TM2
		r.BiomedCode = pair.fallback.Biomed
	}
	return r
}
