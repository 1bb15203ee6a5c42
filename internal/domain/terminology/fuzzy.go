package terminology

// levenshtein computes the edit distance between two rune slices using a
// two-row dynamic programming table.
func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// similarity converts edit distance into a 0-100 score.
func similarity(a, b []rune) int {
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 100
	}
	return (longest - levenshtein(a, b)) * 100 / longest
}

// partialRatio scores how well the needle matches anywhere inside the
// haystack: the best similarity between the needle and any
// needle-length window of the haystack. A short query scores 100
// against a long text that contains it verbatim.
func partialRatio(needle, haystack string) int {
	n := []rune(needle)
	h := []rune(haystack)
	if len(n) == 0 {
		return 0
	}
	if len(h) <= len(n) {
		return similarity(n, h)
	}

	best := 0
	for i := 0; i+len(n) <= len(h); i++ {
		score := similarity(n, h[i:i+len(n)])
		if score > best {
			best = score
			if best == 100 {
				break
			}
		}
	}
	return best
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
