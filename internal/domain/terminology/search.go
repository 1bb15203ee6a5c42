package terminology

import (
	"sort"
	"strings"
)

// Default search parameters used when a caller supplies none.
const (
	DefaultSearchLimit     = 10
	DefaultSearchThreshold = 60
)

// Search runs a two-phase lookup over this generation: exact substring
// matches at confidence 100, then fuzzy partial-ratio matches above the
// threshold. Results are deduplicated by code with exact hits winning, and
// never exceed limit. The call is a pure read and is safe for concurrent
// use.
func (t *Table) Search(query string, limit, threshold int) []SearchResult {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" || limit <= 0 {
		return []SearchResult{}
	}

	results := make([]SearchResult, 0, limit)
	for _, r := range t.records {
		if strings.Contains(strings.ToLower(r.Display), q) ||
			strings.Contains(strings.ToLower(r.Definition), q) ||
			strings.Contains(strings.ToLower(r.Code), q) {
			results = append(results, resultFromRecord(r, 100, MatchExact))
		}
	}
	if len(results) >= limit {
		return results[:limit]
	}

	remaining := limit - len(results)
	results = append(results, t.fuzzySearch(q, remaining, threshold)...)

	seen := make(map[string]bool, len(results))
	deduped := results[:0]
	for _, res := range results {
		if seen[res.Code] {
			continue
		}
		seen[res.Code] = true
		deduped = append(deduped, res)
	}
	if len(deduped) > limit {
		deduped = deduped[:limit]
	}
	return deduped
}

// fuzzySearch scores each distinct searchable text once, keeps the top
// 2*limit candidates, filters by threshold and expands texts back to their
// owning records. Ties keep table order.
func (t *Table) fuzzySearch(q string, limit, threshold int) []SearchResult {
	type candidate struct {
		score   int
		indexes []int
	}

	order := make([]string, 0, len(t.records))
	byText := make(map[string]*candidate, len(t.records))
	for i, r := range t.records {
		c, ok := byText[r.searchableText]
		if !ok {
			c = &candidate{}
			byText[r.searchableText] = c
			order = append(order, r.searchableText)
		}
		c.indexes = append(c.indexes, i)
	}

	candidates := make([]*candidate, 0, len(order))
	for _, text := range order {
		c := byText[text]
		c.score = partialRatio(q, text)
		candidates = append(candidates, c)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	width := 2 * limit
	if width < len(candidates) {
		candidates = candidates[:width]
	}

	var results []SearchResult
	for _, c := range candidates {
		if c.score < threshold {
			continue
		}
		for _, idx := range c.indexes {
			results = append(results, resultFromRecord(t.records[idx], c.score, MatchFuzzy))
		}
	}
	return results
}
