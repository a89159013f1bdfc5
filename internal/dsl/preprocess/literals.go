package preprocess

import (
	"fmt"
	"sort"

	"github.com/dekarrin/dslc/internal/dsl/token"
)

// extractRepeatedLiterals finds every `Print "literal"` statement whose
// string argument appears two or more times, hoists a single
// `_CIAM_Print_K { Print "literal" }` declaration per distinct literal to
// the top of the stream, and replaces each occurrence with
// `call _CIAM_Print_K[]`.
func extractRepeatedLiterals(toks []token.Token) []token.Token {
	counts := make(map[string]int)
	for i := 0; i+1 < len(toks); i++ {
		if toks[i].IsKeyword("Print") && toks[i+1].Kind == token.KindString {
			counts[toks[i+1].Lexeme]++
		}
	}

	var repeated []string
	for lit, n := range counts {
		if n >= 2 {
			repeated = append(repeated, lit)
		}
	}
	sort.Strings(repeated)

	names := make(map[string]string)
	var hoisted []token.Token
	for k, lit := range repeated {
		k++
		name := fmt.Sprintf("_CIAM_Print_%d", k)
		names[lit] = name
		hoisted = append(hoisted,
			token.Token{Kind: token.KindKeyword, Lexeme: "Fn"},
			token.Token{Kind: token.KindIdentifier, Lexeme: name},
			token.Token{Kind: token.KindSymbol, Lexeme: "("},
			token.Token{Kind: token.KindSymbol, Lexeme: ")"},
			token.Token{Kind: token.KindSymbol, Lexeme: "{"},
			token.Token{Kind: token.KindKeyword, Lexeme: "Print"},
			token.Token{Kind: token.KindString, Lexeme: lit},
			token.Token{Kind: token.KindSymbol, Lexeme: "}"},
		)
	}

	if len(names) == 0 {
		return toks
	}

	out := make([]token.Token, 0, len(toks)+len(hoisted))
	out = append(out, hoisted...)

	for i := 0; i < len(toks); i++ {
		if toks[i].IsKeyword("Print") && i+1 < len(toks) && toks[i+1].Kind == token.KindString {
			if name, ok := names[toks[i+1].Lexeme]; ok {
				line := toks[i].Line
				out = append(out,
					token.Token{Kind: token.KindKeyword, Lexeme: "call", Line: line},
					token.Token{Kind: token.KindIdentifier, Lexeme: name, Line: line},
					token.Token{Kind: token.KindSymbol, Lexeme: "[", Line: line},
					token.Token{Kind: token.KindSymbol, Lexeme: "]", Line: line},
				)
				i++
				continue
			}
		}
		out = append(out, toks[i])
	}
	return out
}
