package parse

import (
	"github.com/dekarrin/dslc/internal/dsl/ast"
	"github.com/dekarrin/dslc/internal/dsl/token"
)

func (p *Parser) retStmt() ast.ID {
	line := p.toks.Next().Line // 'ret'
	if p.toks.Peek().IsSymbol(";") || p.toks.Peek().IsSymbol("[") || p.toks.Peek().IsSymbol("}") ||
		p.toks.Peek().Kind == token.KindEOF {
		return p.tree.New(ast.KindReturn, "", line)
	}
	val := p.expression()
	if p.failed() {
		return ast.NoID
	}
	return p.tree.New(ast.KindReturn, "", line, val)
}

func (p *Parser) ifStmt() ast.ID {
	line := p.toks.Next().Line // 'if'
	cond := p.expression()
	thenBlock := p.block()
	if p.failed() {
		return ast.NoID
	}
	children := []ast.ID{cond, thenBlock}
	if p.toks.Peek().IsKeyword("else") {
		p.toks.Next()
		var elseBlock ast.ID
		if p.toks.Peek().IsKeyword("if") {
			elseBlock = p.ifStmt()
		} else {
			elseBlock = p.block()
		}
		if p.failed() {
			return ast.NoID
		}
		children = append(children, elseBlock)
	}
	return p.tree.New(ast.KindIf, "", line, children...)
}

func (p *Parser) whileStmt() ast.ID {
	line := p.toks.Next().Line // 'while'
	cond := p.expression()
	body := p.block()
	if p.failed() {
		return ast.NoID
	}
	return p.tree.New(ast.KindWhile, "", line, cond, body)
}

func (p *Parser) switchStmt() ast.ID {
	line := p.toks.Next().Line // 'switch'
	subject := p.expression()
	p.expectSymbol("{")
	if p.failed() {
		return ast.NoID
	}

	children := []ast.ID{subject}
	for !p.toks.Peek().IsSymbol("}") && p.toks.HasNext() {
		switch {
		case p.toks.Peek().IsKeyword("case"):
			caseLine := p.toks.Next().Line
			val := p.expression()
			body := p.block()
			if p.failed() {
				return ast.NoID
			}
			children = append(children, p.tree.New(ast.KindCase, "", caseLine, val, body))
		case p.toks.Peek().IsKeyword("default"):
			defLine := p.toks.Next().Line
			body := p.block()
			if p.failed() {
				return ast.NoID
			}
			children = append(children, p.tree.New(ast.KindDefault, "", defLine, body))
		default:
			p.fail("case or default", p.toks.Peek())
			return ast.NoID
		}
	}
	p.expectSymbol("}")
	if p.failed() {
		return ast.NoID
	}
	return p.tree.New(ast.KindSwitch, "", line, children...)
}

// loopStmt parses `loop "<header>" { ... }`. The header string is opaque:
// it is neither evaluated as a source-language expression nor interpreted
// here, only carried forward verbatim to the back-end.
func (p *Parser) loopStmt() ast.ID {
	line := p.toks.Next().Line // 'loop'
	header := p.toks.Next()
	if header.Kind != token.KindString {
		p.fail("loop header string", header)
		return ast.NoID
	}
	body := p.block()
	if p.failed() {
		return ast.NoID
	}
	return p.tree.New(ast.KindLoop, header.Lexeme, line, body)
}
