package parse

import "github.com/dekarrin/dslc/internal/dsl/ast"

// mutateStmt parses `mutate <var> <expr>`.
func (p *Parser) mutateStmt() ast.ID {
	line := p.toks.Next().Line // 'mutate'
	v := p.expectIdentifier()
	val := p.expression()
	if p.failed() {
		return ast.NoID
	}
	return p.tree.New(ast.KindMutate, v.Lexeme, line, val)
}

// scaleStmt parses `scale <var> <e1> <e2> <e3> <e4>`.
func (p *Parser) scaleStmt() ast.ID {
	line := p.toks.Next().Line // 'scale'
	v := p.expectIdentifier()
	var factors []ast.ID
	for i := 0; i < 4; i++ {
		factors = append(factors, p.expression())
		if p.failed() {
			return ast.NoID
		}
	}
	return p.tree.New(ast.KindScale, v.Lexeme, line, factors...)
}

// boundsStmt parses `bounds <var> <min> <max>`.
func (p *Parser) boundsStmt() ast.ID {
	line := p.toks.Next().Line // 'bounds'
	v := p.expectIdentifier()
	min := p.expression()
	max := p.expression()
	if p.failed() {
		return ast.NoID
	}
	return p.tree.New(ast.KindBounds, v.Lexeme, line, min, max)
}

// matrixStmt parses `matrix <name> rows cols`.
func (p *Parser) matrixStmt() ast.ID {
	line := p.toks.Next().Line // 'matrix'
	name := p.expectIdentifier()
	rows := p.expression()
	cols := p.expression()
	if p.failed() {
		return ast.NoID
	}
	return p.tree.New(ast.KindMatrix, name.Lexeme, line, rows, cols)
}
