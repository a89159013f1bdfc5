package parse

import (
	"github.com/dekarrin/dslc/internal/dsl/ast"
	"github.com/dekarrin/dslc/internal/dsl/token"
)

// binding powers, low to high, per the precedence table: ?: binds loosest
// of all (handled separately, outside this table) and unary binds tighter
// than every binary operator.
var binaryPrecedence = map[string]int{
	"||": 1,
	"&&": 2,
	"==": 3, "!=": 3,
	"<": 4, ">": 4, "<=": 4, ">=": 4,
	"+": 5, "-": 5,
	"*": 6, "/": 6, "%": 6,
}

// expression parses a full expression, including the lowest-precedence
// ternary form.
func (p *Parser) expression() ast.ID {
	cond := p.binaryExpr(0)
	if p.failed() {
		return ast.NoID
	}
	if p.toks.Peek().IsOperator("?") {
		line := p.toks.Next().Line
		thenExpr := p.expression()
		p.expectSymbol(":")
		elseExpr := p.expression()
		if p.failed() {
			return ast.NoID
		}
		return p.tree.New(ast.KindTernary, "", line, cond, thenExpr, elseExpr)
	}
	return cond
}

// binaryExpr implements precedence-climbing for left-associative binary
// operators at or above minPrec.
func (p *Parser) binaryExpr(minPrec int) ast.ID {
	left := p.unary()
	if p.failed() {
		return ast.NoID
	}
	for {
		tok := p.toks.Peek()
		if tok.Kind != token.KindOperator {
			break
		}
		prec, ok := binaryPrecedence[tok.Lexeme]
		if !ok || prec < minPrec {
			break
		}
		op := p.toks.Next()
		right := p.binaryExpr(prec + 1)
		if p.failed() {
			return ast.NoID
		}
		left = p.tree.New(ast.KindBinary, op.Lexeme, op.Line, left, right)
	}
	return left
}

// unary parses a right-associative unary `!` or `-`, falling through to a
// postfix chain on a primary expression.
func (p *Parser) unary() ast.ID {
	tok := p.toks.Peek()
	if tok.IsOperator("!") || tok.IsOperator("-") {
		op := p.toks.Next()
		operand := p.unary()
		if p.failed() {
			return ast.NoID
		}
		return p.tree.New(ast.KindUnary, op.Lexeme, op.Line, operand)
	}
	return p.postfix(p.primary())
}

// postfix combines call, index, and member chains left to right on base.
// Literal bases (int/float/string/bool) never participate: this is what
// keeps a trailing opaque "[...]" sentinel after a bare literal statement
// argument (e.g. `Print "hi" [end]`) from being misparsed as an index
// expression into the literal.
func (p *Parser) postfix(base ast.ID) ast.ID {
	if base == ast.NoID {
		return ast.NoID
	}
	switch p.tree.Node(base).Kind {
	case ast.KindIntLiteral, ast.KindFloatLiteral, ast.KindStringLiteral, ast.KindBoolLiteral:
		return base
	}
	for {
		if p.failed() {
			return ast.NoID
		}
		tok := p.toks.Peek()
		switch {
		case tok.IsSymbol("("):
			line := p.toks.Next().Line
			args := p.argList(")")
			if p.failed() {
				return ast.NoID
			}
			base = p.tree.New(ast.KindCallExpr, "", line, append([]ast.ID{base}, args...)...)
		case tok.IsSymbol("["):
			line := p.toks.Next().Line
			idx := p.expression()
			p.expectSymbol("]")
			if p.failed() {
				return ast.NoID
			}
			base = p.tree.New(ast.KindIndexExpr, "", line, base, idx)
		case tok.IsSymbol("."):
			line := p.toks.Next().Line
			name := p.expectIdentifier()
			if p.failed() {
				return ast.NoID
			}
			base = p.tree.New(ast.KindMemberExpr, name.Lexeme, line, base)
		default:
			return base
		}
	}
}

// argList parses a comma-separated expression list up to and including the
// closing symbol.
func (p *Parser) argList(closeSym string) []ast.ID {
	var args []ast.ID
	if p.toks.Peek().IsSymbol(closeSym) {
		p.toks.Next()
		return args
	}
	for {
		arg := p.expression()
		if p.failed() {
			return nil
		}
		args = append(args, arg)
		if p.toks.Peek().IsSymbol(",") {
			p.toks.Next()
			continue
		}
		break
	}
	p.expectSymbol(closeSym)
	return args
}

// primary parses a literal, identifier reference, or parenthesized
// sub-expression.
func (p *Parser) primary() ast.ID {
	if p.toks.Peek().IsKeyword("call") {
		return p.callStmt()
	}

	tok := p.toks.Next()
	switch tok.Kind {
	case token.KindInteger:
		return p.tree.New(ast.KindIntLiteral, tok.Lexeme, tok.Line)
	case token.KindFloat:
		return p.tree.New(ast.KindFloatLiteral, tok.Lexeme, tok.Line)
	case token.KindString:
		return p.tree.New(ast.KindStringLiteral, tok.Lexeme, tok.Line)
	case token.KindIdentifier:
		if tok.Lexeme == "true" || tok.Lexeme == "false" {
			return p.tree.New(ast.KindBoolLiteral, tok.Lexeme, tok.Line)
		}
		return p.tree.New(ast.KindIdentifier, tok.Lexeme, tok.Line)
	case token.KindSymbol:
		if tok.Lexeme == "(" {
			inner := p.expression()
			p.expectSymbol(")")
			return inner
		}
	}
	p.fail("expression", tok)
	return ast.NoID
}
