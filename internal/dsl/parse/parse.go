// Package parse implements the recursive-descent, precedence-climbing
// parser that turns a token stream into an AST. The parser is a value type
// carrying the token stream and a pending-overlay buffer as fields; it has
// no ambient state, and every parsing operation is a method on that value.
package parse

import (
	"fmt"

	"github.com/dekarrin/dslc/internal/dsl/ast"
	"github.com/dekarrin/dslc/internal/dsl/token"
)

// ParseError describes an unrecoverable grammar mismatch. The parser does
// not attempt statement-level resync: the first ParseError is fatal for the
// translation unit.
type ParseError struct {
	Expected string
	Found    token.Token
	Line     int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%d: expected %s, found %s", e.Line, e.Expected, e.Found)
}

// Parser holds the token stream cursor and the pending-overlay buffer
// accumulated since the last function declaration drained it.
type Parser struct {
	toks     *token.Stream
	tree     *ast.Tree
	overlays []ast.ID // pending KindOverlay node IDs, attached to the next Fn
	err      *ParseError
}

// New builds a Parser over toks, allocating a fresh AST arena.
func New(toks []token.Token) *Parser {
	return &Parser{
		toks: token.NewStream(toks),
		tree: ast.NewTree(),
	}
}

// ParseProgram parses the full token stream into a Program node and returns
// the completed tree, or the first ParseError encountered.
func (p *Parser) ParseProgram() (*ast.Tree, *ParseError) {
	var stmts []ast.ID
	for p.toks.HasNext() {
		id := p.statement()
		if p.err != nil {
			return nil, p.err
		}
		if id != ast.NoID {
			stmts = append(stmts, id)
		}
	}
	prog := p.tree.New(ast.KindProgram, "", 1, stmts...)
	p.tree.SetRoot(prog)
	return p.tree, nil
}

func (p *Parser) fail(expected string, found token.Token) {
	if p.err == nil {
		p.err = &ParseError{Expected: expected, Found: found, Line: found.Line}
	}
}

func (p *Parser) failed() bool { return p.err != nil }

// expectSymbol consumes a symbol of the given lexeme or records a
// ParseError.
func (p *Parser) expectSymbol(sym string) {
	tok := p.toks.Next()
	if !tok.IsSymbol(sym) {
		p.fail(fmt.Sprintf("symbol %q", sym), tok)
	}
}

func (p *Parser) expectKeyword(kw string) {
	tok := p.toks.Next()
	if !tok.IsKeyword(kw) {
		p.fail(fmt.Sprintf("keyword %q", kw), tok)
	}
}

func (p *Parser) expectIdentifier() token.Token {
	tok := p.toks.Next()
	if tok.Kind != token.KindIdentifier {
		p.fail("identifier", tok)
	}
	return tok
}

// skipTrailingSentinel consumes an optional trailing "[ ... ]" opaque
// sentinel (balanced bracket depth, content never re-parsed) and an
// optional ";" terminator.
func (p *Parser) skipTrailingSentinel() {
	if p.toks.Peek().IsSymbol("[") {
		depth := 0
		for p.toks.HasNext() {
			tok := p.toks.Next()
			if tok.IsSymbol("[") {
				depth++
			} else if tok.IsSymbol("]") {
				depth--
				if depth == 0 {
					break
				}
			}
		}
	}
	if p.toks.Peek().IsSymbol(";") {
		p.toks.Next()
	}
}

// block parses a brace-delimited sequence of statements and returns a
// KindBlock node.
func (p *Parser) block() ast.ID {
	line := p.toks.Peek().Line
	p.expectSymbol("{")
	if p.failed() {
		return ast.NoID
	}
	var stmts []ast.ID
	for !p.toks.Peek().IsSymbol("}") && p.toks.HasNext() {
		id := p.statement()
		if p.failed() {
			return ast.NoID
		}
		if id != ast.NoID {
			stmts = append(stmts, id)
		}
	}
	p.expectSymbol("}")
	return p.tree.New(ast.KindBlock, "", line, stmts...)
}
