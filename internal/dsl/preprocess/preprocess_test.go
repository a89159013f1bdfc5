package preprocess

import (
	"testing"

	"github.com/dekarrin/dslc/internal/dsl/token"
	"github.com/stretchr/testify/assert"
)

func scan(t *testing.T, src string) []token.Token {
	t.Helper()
	toks, errs := token.Scan([]byte(src))
	assert.Empty(t, errs)
	return toks
}

func lexemes(toks []token.Token) []string {
	out := make([]string, len(toks))
	for i, tok := range toks {
		out[i] = tok.Lexeme
	}
	return out
}

func Test_Run_disabledWithoutOnDirective(t *testing.T) {
	toks := scan(t, `Print "hi"`)
	res := Run(toks)
	assert.False(t, res.Enabled)
	assert.Equal(t, toks, res.Tokens)
}

func Test_Run_enabledAndDirectiveExcised(t *testing.T) {
	toks := scan(t, `call CIAM on
Print "hi"`)
	res := Run(toks)
	assert.True(t, res.Enabled)
	assert.NotContains(t, lexemes(res.Tokens), "CIAM")
}

func Test_expandBuiltinDirectives_writeStdout(t *testing.T) {
	toks := scan(t, `call CIAM on
CIAM write_stdout { hello world }`)
	res := Run(toks)
	lex := lexemes(res.Tokens)
	assert.Contains(t, lex, "Print")
	assert.Contains(t, lex, "hello world")
}

func Test_expandBuiltinDirectives_sandboxHoistsFnAndCalls(t *testing.T) {
	toks := scan(t, `call CIAM on
CIAM sandbox { Print "inner" }`)
	res := Run(toks)
	lex := lexemes(res.Tokens)

	fnIdx := indexOf(lex, "Fn")
	callIdx := indexOf(lex, "call")
	assert.GreaterOrEqual(t, fnIdx, 0)
	assert.GreaterOrEqual(t, callIdx, 0)
	assert.Less(t, fnIdx, callIdx, "hoisted Fn decl must precede its call site")
}

func Test_convertBase12Literals_mergesDigitIdentifierPair(t *testing.T) {
	toks := scan(t, `call CIAM on
let x = 3a`)
	res := Run(toks)

	var found token.Token
	for _, tok := range res.Tokens {
		if tok.Kind == token.KindInteger && tok.Lexeme != "" {
			found = tok
		}
	}
	// 3a in base 12 = 3*12 + 10 = 46
	assert.Equal(t, "46", found.Lexeme)
}

func Test_convertBase12Literals_leavesPlainIntegerAlone(t *testing.T) {
	toks := scan(t, `call CIAM on
let x = 42`)
	res := Run(toks)
	lex := lexemes(res.Tokens)
	assert.Contains(t, lex, "42")
}

func Test_extractRepeatedLiterals_hoistsAfterTwoOccurrences(t *testing.T) {
	toks := scan(t, `call CIAM on
Print "hello"
Print "hello"
Print "once"`)
	res := Run(toks)
	lex := lexemes(res.Tokens)

	assert.Contains(t, lex, "_CIAM_Print_1")
	// the singleton literal is untouched
	assert.Contains(t, lex, "once")
}

func Test_correctCallTypos_fixesSingleCandidate(t *testing.T) {
	toks := scan(t, `call CIAM on
Fn addNumbers ( ) { }
call addNumbrs [ ]`)
	res := Run(toks)
	lex := lexemes(res.Tokens)
	assert.Contains(t, lex, "addNumbers")
	assert.NotContains(t, lex, "addNumbrs")
}

func Test_inferPrintArguments_insertsPlaceholderWhenBare(t *testing.T) {
	toks := scan(t, `call CIAM on
Print ;`)
	res := Run(toks)

	printIdx := -1
	for i, tok := range res.Tokens {
		if tok.IsKeyword("Print") {
			printIdx = i
			break
		}
	}
	assert.GreaterOrEqual(t, printIdx, 0)
	assert.Equal(t, token.KindString, res.Tokens[printIdx+1].Kind)
	assert.Equal(t, "<no message>", res.Tokens[printIdx+1].Lexeme)
}

func indexOf(ss []string, target string) int {
	for i, s := range ss {
		if s == target {
			return i
		}
	}
	return -1
}
