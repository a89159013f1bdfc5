package preprocess

import (
	"fmt"
	"sort"

	"github.com/dekarrin/dslc/internal/dsl/token"
)

// expander carries the mutable state one expandBuiltinDirectives call needs
// (recorded overlay names, the sandbox counter, the known-function set) as
// fields on a value passed explicitly, rather than as package-level state.
type expander struct {
	overlays     []string
	sandboxCount int
	knownFns     map[string]bool
}

// expandBuiltinDirectives rewrites every `CIAM <cmd> [...]` or
// `CIAM <cmd> {...}` directive into its expansion. Unrecognized commands are
// left untouched so the parser can report them on its own terms.
func expandBuiltinDirectives(toks []token.Token, known map[string]bool) []token.Token {
	ex := &expander{knownFns: known}
	out := make([]token.Token, 0, len(toks))
	var hoisted []token.Token

	for i := 0; i < len(toks); i++ {
		if toks[i].Kind == token.KindIdentifier && toks[i].Lexeme == "CIAM" && i+1 < len(toks) &&
			toks[i+1].Kind == token.KindIdentifier {
			cmd := toks[i+1].Lexeme
			bracketIdx := i + 2
			var openSym string
			if bracketIdx < len(toks) && (toks[bracketIdx].IsSymbol("[") || toks[bracketIdx].IsSymbol("{")) {
				openSym = toks[bracketIdx].Lexeme
			}

			if openSym != "" {
				closeIdx := matchingBracket(toks, bracketIdx)
				if closeIdx != -1 {
					rewritten, hoist := ex.expandOne(toks, cmd, bracketIdx, closeIdx)
					if rewritten != nil {
						out = append(out, rewritten...)
						hoisted = append(hoisted, hoist...)
						i = closeIdx
						continue
					}
				}
			}
		}
		out = append(out, toks[i])
	}

	if len(hoisted) == 0 {
		return out
	}
	result := make([]token.Token, 0, len(hoisted)+len(out))
	result = append(result, hoisted...)
	result = append(result, out...)
	return result
}

// expandOne expands a single recognized CIAM directive whose argument/body
// spans toks[open..close] (inclusive of the brackets). It returns the tokens
// to splice in place of the directive, plus any function declarations that
// must be hoisted to the top of the stream. A nil first return means the
// command was not recognized and the directive should be left alone.
func (ex *expander) expandOne(toks []token.Token, cmd string, open, close int) ([]token.Token, []token.Token) {
	line := toks[open].Line

	switch cmd {
	case "write_stdout":
		body := renderBody(toks, open, close)
		return printStringTokens(body, line), nil

	case "overlay":
		if open+1 < close {
			name := toks[open+1].Lexeme
			ex.overlays = append(ex.overlays, name)
		}
		return []token.Token{}, nil

	case "inspect":
		kind := ""
		if open+1 < close {
			kind = toks[open+1].Lexeme
		}
		report := ex.renderInspectReport(kind)
		return printStringTokens(report, line), nil

	case "sandbox":
		ex.sandboxCount++
		name := fmt.Sprintf("_CIAM_sandbox_%d", ex.sandboxCount)
		ex.knownFns[name] = true

		fnDecl := []token.Token{
			{Kind: token.KindKeyword, Lexeme: "Fn", Line: line},
			{Kind: token.KindIdentifier, Lexeme: name, Line: line},
			{Kind: token.KindSymbol, Lexeme: "(", Line: line},
			{Kind: token.KindSymbol, Lexeme: ")", Line: line},
			{Kind: token.KindSymbol, Lexeme: "{", Line: line},
		}
		fnDecl = append(fnDecl, toks[open+1:close]...)
		fnDecl = append(fnDecl, token.Token{Kind: token.KindSymbol, Lexeme: "}", Line: line})

		callSite := []token.Token{
			{Kind: token.KindKeyword, Lexeme: "call", Line: line},
			{Kind: token.KindIdentifier, Lexeme: name, Line: line},
			{Kind: token.KindSymbol, Lexeme: "[", Line: line},
			{Kind: token.KindSymbol, Lexeme: "]", Line: line},
		}
		return callSite, fnDecl

	case "audit":
		report := ex.renderAuditReport()
		return printStringTokens(report, line), nil
	}

	return nil, nil
}

// printStringTokens builds `Print "<text>"` as a token pair.
func printStringTokens(text string, line int) []token.Token {
	return []token.Token{
		{Kind: token.KindKeyword, Lexeme: "Print", Line: line},
		{Kind: token.KindString, Lexeme: text, Line: line},
	}
}

func (ex *expander) renderInspectReport(kind string) string {
	switch kind {
	case "overlays":
		names := append([]string(nil), ex.overlays...)
		sort.Strings(names)
		return fmt.Sprintf("overlays: %v", names)
	case "fns", "symbols":
		names := make([]string, 0, len(ex.knownFns))
		for n := range ex.knownFns {
			names = append(names, n)
		}
		sort.Strings(names)
		return fmt.Sprintf("%s: %v", kind, names)
	default:
		return fmt.Sprintf("unknown inspect target %q", kind)
	}
}

func (ex *expander) renderAuditReport() string {
	fns := make([]string, 0, len(ex.knownFns))
	for n := range ex.knownFns {
		fns = append(fns, n)
	}
	sort.Strings(fns)
	overlays := append([]string(nil), ex.overlays...)
	sort.Strings(overlays)
	return fmt.Sprintf("functions: %v, overlays: %v", fns, overlays)
}
