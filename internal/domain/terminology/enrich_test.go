package terminology

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/namaste/namaste/internal/platform/icd11"
)

// fakeSource scripts external search answers per term.
type fakeSource struct {
	entities  map[string][]icd11.Entity
	available bool
	calls     int
}

func (f *fakeSource) Search(ctx context.Context, term, linearization string) ([]icd11.Entity, bool) {
	f.calls++
	if !f.available {
		return nil, false
	}
	return f.entities[term], true
}

func tm2Entity(code, title string) icd11.Entity {
	return icd11.Entity{ID: "http://id.who.int/icd/entity/x02/" + code, Title: title}
}

func biomedEntity(code, title string) icd11.Entity {
	return icd11.Entity{ID: "http://id.who.int/icd/entity/mms/" + code, Title: title}
}

func TestEnrichFromExternalSource(t *testing.T) {
	source := &fakeSource{
		available: true,
		entities: map[string][]icd11.Entity{
			"diabetes": {
				biomedEntity("5A11", "Type 2 diabetes mellitus"),
				tm2Entity("SJ00", "Consumptive thirst disorder"),
			},
		},
	}
	enricher := NewEnricher(source, zerolog.Nop())

	records := enricher.Enrich(context.Background(), []Record{
		{Code: "EF-2.4.4", Display: "Madhumeha", Definition: "excessive urination"},
	}, nil)

	r := records[0]
	if r.Provenance != ProvenanceExternalSource {
		t.Errorf("provenance = %v", r.Provenance)
	}
	if r.TM2Code != "SJ00" || r.BiomedCode != "5A11" {
		t.Errorf("mappings = %s / %s", r.TM2Code, r.BiomedCode)
	}
	if r.TM2Display != "Consumptive thirst disorder" {
		t.Errorf("tm2 display = %q", r.TM2Display)
	}
}

func TestEnrichDeduplicatesAndCaps(t *testing.T) {
	// Every curated term returns the same biomedicine hits plus extras;
	// the per-category cap keeps only the first two distinct codes.
	source := &fakeSource{
		available: true,
		entities: map[string][]icd11.Entity{
			"cough":       {biomedEntity("CA22", "Chronic cough"), biomedEntity("CA23", "Acute cough")},
			"respiratory": {biomedEntity("CA22", "Chronic cough"), biomedEntity("CA40", "Pneumonia")},
			"bronchial":   {biomedEntity("CA41", "Bronchitis")},
		},
	}
	enricher := NewEnricher(source, zerolog.Nop())

	records := enricher.Enrich(context.Background(), []Record{
		{Code: "EA-3", Display: "Kasa", Definition: "cough disorder"},
	}, nil)

	r := records[0]
	if r.BiomedCode != "CA22" {
		t.Errorf("biomed = %s, want first-seen CA22", r.BiomedCode)
	}
	if r.Provenance != ProvenanceExternalSource {
		t.Errorf("provenance = %v", r.Provenance)
	}
}

func TestEnrichFallsBackWhenSourceDown(t *testing.T) {
	source := &fakeSource{available: false}
	enricher := NewEnricher(source, zerolog.Nop())

	records := enricher.Enrich(context.Background(), []Record{
		{Code: "AA", Display: "Vatavyadhi", Definition: "vata disorders"},
		{Code: "EA-3", Display: "Kasa", Definition: "cough disorder"},
	}, nil)

	for _, r := range records {
		if r.Provenance != ProvenanceStaticFallback {
			t.Errorf("%s provenance = %v, want STATIC_FALLBACK", r.Code, r.Provenance)
		}
	}
	if records[0].TM2Code != "SP10" || records[0].BiomedCode != "FA20" {
		t.Errorf("AA mappings = %s / %s", records[0].TM2Code, records[0].BiomedCode)
	}
	if records[1].TM2Code != "SB00" || records[1].BiomedCode != "CA22" {
		t.Errorf("EA-3 mappings = %s / %s", records[1].TM2Code, records[1].BiomedCode)
	}
}

func TestEnrichUnresolvedWithoutFallback(t *testing.T) {
	source := &fakeSource{available: false}
	enricher := NewEnricher(source, zerolog.Nop())

	records := enricher.Enrich(context.Background(), []Record{
		{Code: "XX-99", Display: "Unknown disease", Definition: "no curated terms"},
	}, nil)

	r := records[0]
	if r.Provenance != ProvenanceUnresolved {
		t.Errorf("provenance = %v, want UNRESOLVED", r.Provenance)
	}
	if r.TM2Code != CodeUnknown || r.BiomedCode != CodeUnknown {
		t.Errorf("mappings = %s / %s, want UNKNOWN", r.TM2Code, r.BiomedCode)
	}
}

func TestEnrichEmptyAnswerUsesFallback(t *testing.T) {
	// The source is reachable but matches nothing; a static entry still
	// applies.
	source := &fakeSource{available: true}
	enricher := NewEnricher(source, zerolog.Nop())

	records := enricher.Enrich(context.Background(), []Record{
		{Code: "EE-3", Display: "Arsha", Definition: "hemorrhoids"},
	}, nil)

	if records[0].Provenance != ProvenanceStaticFallback {
		t.Errorf("provenance = %v", records[0].Provenance)
	}
	if records[0].TM2Code != "SL01" || records[0].BiomedCode != "ME83" {
		t.Errorf("mappings = %s / %s", records[0].TM2Code, records[0].BiomedCode)
	}
}

func TestEnrichResolvesEachCodeOnce(t *testing.T) {
	source := &fakeSource{available: true}
	enricher := NewEnricher(source, zerolog.Nop())

	// Three rows of the same code trigger one resolution pass.
	enricher.Enrich(context.Background(), []Record{
		{Code: "AA", Display: "Vatavyadhi"},
		{Code: "AA", Display: "Vatavyadhi"},
		{Code: "AA", Display: "Vatavyadhi"},
	}, nil)

	// AA has three curated terms, each searched in both linearizations.
	if source.calls != 6 {
		t.Errorf("source calls = %d, want 6", source.calls)
	}
}

func TestEnrichDoesNotMutateInput(t *testing.T) {
	source := &fakeSource{available: false}
	enricher := NewEnricher(source, zerolog.Nop())

	in := []Record{{Code: "AA", Display: "Vatavyadhi"}}
	enricher.Enrich(context.Background(), in, nil)
	if in[0].TM2Code != "" || in[0].Provenance != "" {
		t.Errorf("input mutated: %+v", in[0])
	}
}
