package preprocess

import "github.com/dekarrin/dslc/internal/dsl/token"

// inferPrintArguments inserts a string token after any "Print" keyword not
// already followed by an expression: the most recently seen string literal
// earlier in the stream, or a synthetic placeholder if none exists yet.
func inferPrintArguments(toks []token.Token) []token.Token {
	out := make([]token.Token, 0, len(toks))
	lastString := ""
	haveString := false

	for i := 0; i < len(toks); i++ {
		tok := toks[i]
		out = append(out, tok)

		if tok.Kind == token.KindString {
			lastString = tok.Lexeme
			haveString = true
		}

		if tok.IsKeyword("Print") && !hasFollowingExpression(toks, i+1) {
			filler := "<no message>"
			if haveString {
				filler = lastString
			}
			out = append(out, token.Token{
				Kind: token.KindString, Lexeme: filler, Line: tok.Line,
			})
		}
	}
	return out
}

// hasFollowingExpression reports whether the token at idx can begin an
// expression (anything but a statement terminator, a block delimiter, or
// end of stream).
func hasFollowingExpression(toks []token.Token, idx int) bool {
	if idx >= len(toks) {
		return false
	}
	tok := toks[idx]
	if tok.Kind == token.KindEOF {
		return false
	}
	if tok.IsSymbol(";") || tok.IsSymbol("}") {
		return false
	}
	return true
}
