package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Scan_kindSequence(t *testing.T) {
	testCases := []struct {
		name   string
		input  string
		expect []Kind
	}{
		{name: "empty", input: "", expect: []Kind{KindEOF}},
		{name: "print string", input: `Print "hi"`, expect: []Kind{KindKeyword, KindString, KindEOF}},
		{name: "let decl", input: `let x = 2 + 3`, expect: []Kind{
			KindKeyword, KindIdentifier, KindOperator, KindInteger, KindOperator, KindInteger, KindEOF,
		}},
		{name: "float literal", input: `3.14`, expect: []Kind{KindFloat, KindEOF}},
		{name: "integer then dot then integer is not a float", input: `3 . 14`, expect: []Kind{
			KindInteger, KindSymbol, KindInteger, KindEOF,
		}},
		{name: "line comment skipped", input: "let x = 1 // trailing comment\nlet y = 2", expect: []Kind{
			KindKeyword, KindIdentifier, KindOperator, KindInteger,
			KindKeyword, KindIdentifier, KindOperator, KindInteger, KindEOF,
		}},
		{name: "hash comment skipped", input: "# a comment\nPrint \"x\"", expect: []Kind{
			KindKeyword, KindString, KindEOF,
		}},
		{name: "longest match operator", input: "a <= b", expect: []Kind{
			KindIdentifier, KindOperator, KindIdentifier, KindEOF,
		}},
		{name: "end sentinel is symbols plus keyword-shaped identifier", input: "[end]", expect: []Kind{
			KindSymbol, KindIdentifier, KindSymbol, KindEOF,
		}},
		{name: "unknown byte recovers", input: "let x = 1 ` let y = 2", expect: []Kind{
			KindKeyword, KindIdentifier, KindOperator, KindInteger, KindError,
			KindKeyword, KindIdentifier, KindOperator, KindInteger, KindEOF,
		}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			toks, _ := Scan([]byte(tc.input))
			kinds := make([]Kind, len(toks))
			for i, tok := range toks {
				kinds[i] = tok.Kind
			}
			assert.Equal(t, tc.expect, kinds)
		})
	}
}

func Test_Scan_unterminatedString(t *testing.T) {
	toks, errs := Scan([]byte(`Print "hi`))

	assert.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, "unterminated string")
	assert.Equal(t, 1, errs[0].Line)

	// best-effort token still produced so parsing can continue
	assert.Equal(t, KindString, toks[1].Kind)
	assert.Equal(t, "hi", toks[1].Lexeme)
}

func Test_Scan_stringEscapes(t *testing.T) {
	toks, errs := Scan([]byte(`"a\nb\tc\\d\"e"`))
	assert.Empty(t, errs)
	assert.Equal(t, "a\nb\tc\\d\"e", toks[0].Lexeme)
}

func Test_Scan_keywordReclassification(t *testing.T) {
	toks, _ := Scan([]byte("Fn add"))
	assert.Equal(t, KindKeyword, toks[0].Kind)
	assert.Equal(t, KindIdentifier, toks[1].Kind)
}

func Test_Scan_lineColumnTracking(t *testing.T) {
	toks, _ := Scan([]byte("let x = 1\nlet y = 2"))

	// second "let" should be on line 2, column 1
	var secondLet Token
	found := 0
	for _, tok := range toks {
		if tok.IsKeyword("let") {
			found++
			if found == 2 {
				secondLet = tok
			}
		}
	}
	assert.Equal(t, 2, secondLet.Line)
	assert.Equal(t, 1, secondLet.Column)
}

func Test_Stream_cursor(t *testing.T) {
	toks, _ := Scan([]byte("let x = 1"))
	s := NewStream(toks)

	assert.True(t, s.HasNext())
	assert.Equal(t, KindKeyword, s.Peek().Kind)

	mark := s.Mark()
	first := s.Next()
	assert.Equal(t, KindKeyword, first.Kind)

	s.Reset(mark)
	assert.Equal(t, first, s.Next())
}
