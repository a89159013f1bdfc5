package parse

import (
	"github.com/dekarrin/dslc/internal/dsl/ast"
	"github.com/dekarrin/dslc/internal/dsl/token"
)

// channelStmt parses `channel <name> "<type>"`.
func (p *Parser) channelStmt() ast.ID {
	line := p.toks.Next().Line // 'channel'
	name := p.expectIdentifier()
	typ := p.toks.Next()
	if typ.Kind != token.KindString {
		p.fail("channel type string literal", typ)
		return ast.NoID
	}
	if p.failed() {
		return ast.NoID
	}
	return p.tree.New(ast.KindChannel, name.Lexeme+":"+typ.Lexeme, line)
}

// sendStmt parses `send <chan> <expr>`.
func (p *Parser) sendStmt() ast.ID {
	line := p.toks.Next().Line // 'send'
	ch := p.expectIdentifier()
	val := p.expression()
	if p.failed() {
		return ast.NoID
	}
	return p.tree.New(ast.KindSend, ch.Lexeme, line, val)
}

// recvStmt parses `recv <chan> <var>`.
func (p *Parser) recvStmt() ast.ID {
	line := p.toks.Next().Line // 'recv'
	ch := p.expectIdentifier()
	v := p.expectIdentifier()
	if p.failed() {
		return ast.NoID
	}
	return p.tree.New(ast.KindRecv, ch.Lexeme, line, p.tree.New(ast.KindIdentifier, v.Lexeme, line))
}

// syncStmt parses `sync <vars> { body }`, where <vars> is one or more
// space-separated identifiers naming the variables the body's access must
// be synchronized over. The exact locking granularity (single global lock
// vs. per-variable) is left to the runtime library.
func (p *Parser) syncStmt() ast.ID {
	line := p.toks.Next().Line // 'sync'
	var vars []ast.ID
	for p.toks.Peek().Kind == token.KindIdentifier {
		v := p.toks.Next()
		vars = append(vars, p.tree.New(ast.KindIdentifier, v.Lexeme, line))
	}
	body := p.block()
	if p.failed() {
		return ast.NoID
	}
	return p.tree.New(ast.KindSync, "", line, append(vars, body)...)
}

// parallelStmt parses `parallel { { ... } { ... } ... }`: a block whose
// direct children are themselves blocks, each an independent branch.
func (p *Parser) parallelStmt() ast.ID {
	line := p.toks.Next().Line // 'parallel'
	p.expectSymbol("{")
	if p.failed() {
		return ast.NoID
	}
	var branches []ast.ID
	for p.toks.Peek().IsSymbol("{") {
		branches = append(branches, p.block())
		if p.failed() {
			return ast.NoID
		}
	}
	p.expectSymbol("}")
	if p.failed() {
		return ast.NoID
	}
	return p.tree.New(ast.KindParallel, "", line, branches...)
}

// scheduleStmt parses `schedule <n> { body }`.
func (p *Parser) scheduleStmt() ast.ID {
	line := p.toks.Next().Line // 'schedule'
	n := p.expression()
	body := p.block()
	if p.failed() {
		return ast.NoID
	}
	return p.tree.New(ast.KindSchedule, "", line, n, body)
}

// batchStmt parses `batch <src> <n> { body }`.
func (p *Parser) batchStmt() ast.ID {
	line := p.toks.Next().Line // 'batch'
	src := p.expectIdentifier()
	n := p.expression()
	body := p.block()
	if p.failed() {
		return ast.NoID
	}
	return p.tree.New(ast.KindBatch, src.Lexeme, line, n, body)
}
