package preprocess

import (
	"strconv"
	"strings"

	"github.com/dekarrin/dslc/internal/dsl/token"
)

// convertBase12Literals rewrites a digit-led run of base-12 digits into a
// single integer token holding its decimal value. Because the tokenizer
// always stops a number scan at the first non-digit byte, a base-12 literal
// like "3a4b" arrives as two adjacent tokens, an Integer ("3") immediately
// followed by an Identifier ("a4b") at the next column on the same line;
// this pass recognizes that adjacency, re-merges the pair, and validates
// the combined lexeme matches [0-9]([0-9ab])*, requiring at least one a/b.
// Overflow of a 64-bit unsigned value leaves the pair unchanged rather than
// wrapping.
func convertBase12Literals(toks []token.Token) []token.Token {
	out := make([]token.Token, 0, len(toks))

	for i := 0; i < len(toks); i++ {
		if i+1 < len(toks) && isBase12Pair(toks[i], toks[i+1]) {
			combined := toks[i].Lexeme + toks[i+1].Lexeme
			n, err := strconv.ParseUint(strings.ToLower(combined), 12, 64)
			if err == nil {
				out = append(out, token.Token{
					Kind:   token.KindInteger,
					Lexeme: strconv.FormatUint(n, 10),
					Line:   toks[i].Line,
					Column: toks[i].Column,
				})
				i++
				continue
			}
		}
		out = append(out, toks[i])
	}
	return out
}

// isBase12Pair reports whether a and b are an adjacent Integer/Identifier
// pair whose concatenated lexeme is a plausible base-12 literal.
func isBase12Pair(a, b token.Token) bool {
	if a.Kind != token.KindInteger || b.Kind != token.KindIdentifier {
		return false
	}
	if a.Line != b.Line || b.Column != a.Column+len(a.Lexeme) {
		return false
	}
	return looksBase12(a.Lexeme + b.Lexeme)
}

// looksBase12 reports whether lexeme matches [0-9]([0-9ab])* case-
// insensitively, with at least one a/b present.
func looksBase12(lexeme string) bool {
	if lexeme == "" {
		return false
	}
	if lexeme[0] < '0' || lexeme[0] > '9' {
		return false
	}
	hasAB := false
	for _, r := range lexeme {
		lower := r
		if lower >= 'A' && lower <= 'Z' {
			lower += 'a' - 'A'
		}
		switch {
		case lower >= '0' && lower <= '9':
		case lower == 'a' || lower == 'b':
			hasAB = true
		default:
			return false
		}
	}
	return hasAB
}
