package parse

import (
	"github.com/dekarrin/dslc/internal/dsl/ast"
	"github.com/dekarrin/dslc/internal/dsl/token"
)

// openStmt parses `open <name> "<path>" [ "<mode>" ]`.
func (p *Parser) openStmt() ast.ID {
	line := p.toks.Next().Line // 'open'
	name := p.expectIdentifier()
	path := p.toks.Next()
	if path.Kind != token.KindString {
		p.fail("path string literal", path)
		return ast.NoID
	}
	children := []ast.ID{
		p.tree.New(ast.KindIdentifier, name.Lexeme, line),
		p.tree.New(ast.KindStringLiteral, path.Lexeme, line),
	}
	if p.toks.Peek().Kind == token.KindString {
		mode := p.toks.Next()
		children = append(children, p.tree.New(ast.KindStringLiteral, mode.Lexeme, line))
	}
	if p.failed() {
		return ast.NoID
	}
	return p.tree.New(ast.KindOpen, "", line, children...)
}

// writeStmt parses `write|writeln <handle> <expr>`.
func (p *Parser) writeStmt(kw string) ast.ID {
	line := p.toks.Next().Line
	handle := p.expectIdentifier()
	val := p.expression()
	if p.failed() {
		return ast.NoID
	}
	kind := ast.KindWrite
	if kw == "writeln" {
		kind = ast.KindWriteln
	}
	return p.tree.New(kind, handle.Lexeme, line, val)
}

// readStmt parses `read <handle> <var>`.
func (p *Parser) readStmt() ast.ID {
	line := p.toks.Next().Line // 'read'
	handle := p.expectIdentifier()
	v := p.expectIdentifier()
	if p.failed() {
		return ast.NoID
	}
	return p.tree.New(ast.KindRead, handle.Lexeme, line, p.tree.New(ast.KindIdentifier, v.Lexeme, line))
}

// inputStmt parses `input "<prompt>" <var>`.
func (p *Parser) inputStmt() ast.ID {
	line := p.toks.Next().Line // 'input'
	prompt := p.toks.Next()
	if prompt.Kind != token.KindString {
		p.fail("prompt string literal", prompt)
		return ast.NoID
	}
	v := p.expectIdentifier()
	if p.failed() {
		return ast.NoID
	}
	return p.tree.New(ast.KindInput, prompt.Lexeme, line, p.tree.New(ast.KindIdentifier, v.Lexeme, line))
}
