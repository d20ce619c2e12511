package catalog

import "sort"

const (
	matchCutoff = 0.6
	maxMatches  = 3
)

// closeMatches returns up to three candidates similar enough to name
// to be worth suggesting, best first. Similarity is the classic
// 2*M/T ratio over the longest common subsequence.
func closeMatches(name string, candidates []string) []string {
	type scored struct {
		name  string
		ratio float64
		index int
	}
	var hits []scored
	for i, c := range candidates {
		r := similarity(name, c)
		if r >= matchCutoff {
			hits = append(hits, scored{name: c, ratio: r, index: i})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].ratio != hits[j].ratio {
			return hits[i].ratio > hits[j].ratio
		}
		return hits[i].index < hits[j].index
	})
	if len(hits) > maxMatches {
		hits = hits[:maxMatches]
	}
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.name
	}
	return out
}

func similarity(a, b string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	return 2 * float64(lcs(a, b)) / float64(len(a)+len(b))
}

// lcs computes the longest common subsequence length with a rolling
// single-row table. Candidate names are short, so quadratic time is
// fine.
func lcs(a, b string) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
