// Package preprocess rewrites a raw token stream before it reaches the
// parser. It applies seven independent, idempotent transformations: directive
// gating, function-name inventory, built-in directive expansion, argument
// inference for bare Print statements, base-12 numeric conversion, repeated
// string-literal macro extraction, and Levenshtein-based typo correction of
// call targets. No transformation ever
// aborts compilation; anything it does not recognize is passed through
// untouched.
package preprocess

import "github.com/dekarrin/dslc/internal/dsl/token"

// Result is the outcome of running the full preprocessing pipeline over a
// token stream.
type Result struct {
	Tokens  []token.Token
	Enabled bool // whether any transformation candidate was gated on
}

// Run applies all seven transformations in sequence and returns the rewritten
// stream. toks must end with a KindEOF token, as produced by token.Scan.
func Run(toks []token.Token) Result {
	enabled, toks := gateDirectives(toks)
	if !enabled {
		return Result{Tokens: toks, Enabled: false}
	}

	known := collectFunctionNames(toks)
	toks = expandBuiltinDirectives(toks, known)
	known = collectFunctionNames(toks) // sandbox expansion adds new Fn decls
	toks = inferPrintArguments(toks)
	toks = convertBase12Literals(toks)
	toks = extractRepeatedLiterals(toks)
	toks = correctCallTypos(toks, known)

	return Result{Tokens: toks, Enabled: true}
}

// gateDirectives scans for "call CIAM on" / "call CIAM off" spans, excises
// every matched span from the stream, and reports whether preprocessing as a
// whole should run: enabled once any "on" directive appears, disabled (and
// left as a no-op) if none ever does.
func gateDirectives(toks []token.Token) (bool, []token.Token) {
	enabled := false
	out := make([]token.Token, 0, len(toks))

	for i := 0; i < len(toks); i++ {
		if isCallCIAMToggle(toks, i) {
			state := toks[i+2].Lexeme
			if state == "on" {
				enabled = true
			}
			i += 2
			continue
		}
		out = append(out, toks[i])
	}
	return enabled, out
}

func isCallCIAMToggle(toks []token.Token, i int) bool {
	if i+2 >= len(toks) {
		return false
	}
	return toks[i].IsKeyword("call") &&
		toks[i+1].Kind == token.KindIdentifier && toks[i+1].Lexeme == "CIAM" &&
		toks[i+2].Kind == token.KindIdentifier &&
		(toks[i+2].Lexeme == "on" || toks[i+2].Lexeme == "off")
}

// collectFunctionNames finds every "Fn <identifier>" declaration header and
// returns the set of declared names, used as the known-symbol set for typo
// correction.
func collectFunctionNames(toks []token.Token) map[string]bool {
	known := make(map[string]bool)
	for i := 0; i+1 < len(toks); i++ {
		if toks[i].IsKeyword("Fn") && toks[i+1].Kind == token.KindIdentifier {
			known[toks[i+1].Lexeme] = true
		}
	}
	return known
}

// matchingBracket returns the index of the close bracket matching the open
// bracket at toks[openIdx] (close being "]" for "[" or "}" for "{"),
// accounting for nesting. It returns -1 if no match is found before the end
// of the stream, in which case the caller should leave the construct alone.
func matchingBracket(toks []token.Token, openIdx int) int {
	open := toks[openIdx].Lexeme
	var close string
	switch open {
	case "[":
		close = "]"
	case "{":
		close = "}"
	default:
		return -1
	}
	depth := 0
	for i := openIdx; i < len(toks); i++ {
		if toks[i].IsSymbol(open) {
			depth++
		} else if toks[i].IsSymbol(close) {
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// renderBody joins the lexical text of tokens strictly between open and
// close (exclusive) with single spaces, approximating the original source
// text for use inside a synthesized string literal.
func renderBody(toks []token.Token, open, close int) string {
	var out string
	for i := open + 1; i < close; i++ {
		if out != "" {
			out += " "
		}
		out += toks[i].Lexeme
	}
	return out
}
