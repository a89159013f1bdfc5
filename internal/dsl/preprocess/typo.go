package preprocess

import (
	"github.com/dekarrin/dslc/internal/dsl/token"
)

// correctCallTypos rewrites `call <identifier>` targets not present in
// known to the single known name within Levenshtein distance 2, if exactly
// one such candidate exists. Ambiguous or unmatched targets are left alone
// so the parser or a later stage can report them.
func correctCallTypos(toks []token.Token, known map[string]bool) []token.Token {
	out := make([]token.Token, len(toks))
	copy(out, toks)

	for i := 0; i+1 < len(out); i++ {
		if !out[i].IsKeyword("call") || out[i+1].Kind != token.KindIdentifier {
			continue
		}
		target := out[i+1].Lexeme
		if known[target] {
			continue
		}
		if match, ok := closestWithinDistance(target, known, 2); ok {
			out[i+1].Lexeme = match
		}
	}
	return out
}

// closestWithinDistance returns the single candidate in known within
// maxDist of target, or ok=false if zero or more than one qualify.
func closestWithinDistance(target string, known map[string]bool, maxDist int) (string, bool) {
	var candidates []string
	for name := range known {
		if levenshtein(target, name) <= maxDist {
			candidates = append(candidates, name)
		}
	}
	if len(candidates) != 1 {
		return "", false
	}
	return candidates[0], true
}

// levenshtein computes the edit distance between a and b using the standard
// dynamic-programming table.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	n, m := len(ra), len(rb)

	prev := make([]int, m+1)
	curr := make([]int, m+1)
	for j := 0; j <= m; j++ {
		prev[j] = j
	}

	for i := 1; i <= n; i++ {
		curr[0] = i
		for j := 1; j <= m; j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[m]
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
