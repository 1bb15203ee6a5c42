package terminology

// Analytics aggregates morbidity counts over every ingested row, including
// repeated codes: each row is one reported case, so duplicates are counted
// rather than collapsed.
type Analytics struct {
	ByDisease    map[string]int `json:"by_disease"`
	ByState      map[string]int `json:"by_state"`
	ByTM2        map[string]int `json:"by_icd11_tm2"`
	ByBiomed     map[string]int `json:"by_icd11_biomed"`
	TotalRecords int            `json:"total_patients"`
}

// ComputeAnalytics tallies the enriched ingest rows.
func ComputeAnalytics(records []Record) Analytics {
	a := Analytics{
		ByDisease:    make(map[string]int),
		ByState:      make(map[string]int),
		ByTM2:        make(map[string]int),
		ByBiomed:     make(map[string]int),
		TotalRecords: len(records),
	}
	for _, r := range records {
		a.ByDisease[r.Display]++
		if r.Region != "" {
			a.ByState[r.Region]++
		}
		a.ByTM2[r.TM2Code]++
		a.ByBiomed[r.BiomedCode]++
	}
	return a
}
