// Package terminology implements the NAMASTE terminology table, its
// search engine, the NAMASTE to ICD-11 mapping resolver and the
// enrichment pipeline that fills mapping columns from the WHO API.
package terminology

// CodeUnknown marks an unresolved ICD-11 mapping column.
const CodeUnknown = "UNKNOWN"

// System identifies a coding system for translation.
type System string

const (
	SystemNAMASTE     System = "NAMASTE"
	SystemTM2         System = "TM2"
	SystemBiomedicine System = "BIOMEDICINE"
)

// Provenance records where a mapping came from.
type Provenance string

const (
	ProvenanceExternalSource Provenance = "EXTERNAL_SOURCE"
	ProvenanceStaticFallback Provenance = "STATIC_FALLBACK"
	ProvenanceUnresolved     Provenance = "UNRESOLVED"
)

// MatchType distinguishes exact substring hits from fuzzy hits.
type MatchType string

const (
	MatchExact MatchType = "EXACT"
	MatchFuzzy MatchType = "FUZZY"
)

// Record is one row of the terminology table.
type Record struct {
	Code           string     `json:"code"`
	Display        string     `json:"display"`
	Definition     string     `json:"definition"`
	Region         string     `json:"region,omitempty"`
	TM2Code        string     `json:"icd11_tm2_code"`
	TM2Display     string     `json:"icd11_tm2_display,omitempty"`
	BiomedCode     string     `json:"icd11_biomed_code"`
	BiomedDisplay  string     `json:"icd11_biomed_display,omitempty"`
	Provenance     Provenance `json:"mapping_provenance"`
	searchableText string
}

// SearchableText is the lowercase haystack the fuzzy matcher scores
// against. It is derived once at table build time.
func (r Record) SearchableText() string {
	return r.searchableText
}

// SearchResult is one ranked entry returned by Search.
type SearchResult struct {
	Code            string    `json:"code"`
	Display         string    `json:"display"`
	Definition      string    `json:"definition"`
	TM2Code         string    `json:"icd11_tm2_code"`
	BiomedCode      string    `json:"icd11_biomed_code"`
	ConfidenceScore int       `json:"confidence_score"`
	MatchType       MatchType `json:"match_type"`
}

// Translation is one resolved target mapping.
type Translation struct {
	TargetCode  string `json:"target_code"`
	Display     string `json:"display"`
	Equivalence string `json:"equivalence"`
	Comment     string `json:"comment,omitempty"`
}

func resultFromRecord(r Record, score int, matchType MatchType) SearchResult {
	return SearchResult{
		Code:            r.Code,
		Display:         r.Display,
		Definition:      r.Definition,
		TM2Code:         r.TM2Code,
		BiomedCode:      r.BiomedCode,
		ConfidenceScore: score,
		MatchType:       matchType,
	}
}
