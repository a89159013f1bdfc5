package parse

import (
	"strings"

	"github.com/dekarrin/dslc/internal/dsl/ast"
	"github.com/dekarrin/dslc/internal/dsl/token"
)

// fnDecl parses a function declaration, draining any pending overlay
// annotations into its children first. Parameters are parsed either as a
// parenthesized block (scanned but not re-parsed as expressions) or as one
// or more string literals whose concatenated, comma-split, whitespace-split
// pieces become (type, name) params; an omitted type becomes "auto".
func (p *Parser) fnDecl() ast.ID {
	line := p.toks.Next().Line // 'Fn'
	name := p.expectIdentifier()
	if p.failed() {
		return ast.NoID
	}

	var params []ast.ID
	switch {
	case p.toks.Peek().IsSymbol("("):
		params = p.parenParamBlock()
	case p.toks.Peek().Kind == token.KindString:
		params = p.stringLiteralParams()
	}
	if p.failed() {
		return ast.NoID
	}

	body := p.block()
	if p.failed() {
		return ast.NoID
	}

	overlays := p.overlays
	p.overlays = nil

	children := make([]ast.ID, 0, len(overlays)+len(params)+1)
	children = append(children, overlays...)
	children = append(children, params...)
	children = append(children, body)

	return p.tree.New(ast.KindFnDecl, name.Lexeme, line, children...)
}

// parenParamBlock scans a balanced "( ... )" span without re-parsing its
// interior as expressions, per the opaque-parenthesized-parameter form, and
// returns it as a single Param node whose Value is the raw scanned text.
func (p *Parser) parenParamBlock() []ast.ID {
	open := p.toks.Mark()
	line := p.toks.Peek().Line
	depth := 0
	var raw []string
	for p.toks.HasNext() {
		tok := p.toks.Next()
		if tok.IsSymbol("(") {
			depth++
			if depth == 1 {
				continue
			}
		} else if tok.IsSymbol(")") {
			depth--
			if depth == 0 {
				break
			}
		}
		raw = append(raw, tok.Lexeme)
	}
	if depth != 0 {
		p.toks.Reset(open)
		p.fail("matching )", p.toks.Peek())
		return nil
	}
	return []ast.ID{p.tree.New(ast.KindParam, strings.Join(raw, " "), line)}
}

// stringLiteralParams consumes one or more adjacent string-literal tokens,
// concatenates their contents, splits on comma, and splits each piece on
// whitespace into (type, name) — or just name, recording type "auto".
func (p *Parser) stringLiteralParams() []ast.ID {
	line := p.toks.Peek().Line
	var concatenated string
	for p.toks.Peek().Kind == token.KindString {
		concatenated += p.toks.Next().Lexeme
	}

	var params []ast.ID
	for _, piece := range strings.Split(concatenated, ",") {
		fields := strings.Fields(piece)
		switch len(fields) {
		case 0:
			continue
		case 1:
			params = append(params, p.tree.New(ast.KindParam, "auto "+fields[0], line))
		default:
			params = append(params, p.tree.New(ast.KindParam, fields[0]+" "+fields[1], line))
		}
	}
	return params
}

// callStmt parses the prefix-call form `call <name> <arg>*`: zero or more
// space-separated argument expressions with no parentheses or commas. It is
// valid both as a standalone statement and, per the seed scenario where its
// result is assigned (`let s = call add 40 2`), as an expression primary;
// this is distinct from the expression-form `<name>(<args>)` handled by
// postfix, which it shares no parsing path with.
func (p *Parser) callStmt() ast.ID {
	line := p.toks.Next().Line // 'call'
	name := p.expectIdentifier()
	if p.failed() {
		return ast.NoID
	}

	var args []ast.ID
	if p.toks.Peek().IsSymbol("[") {
		// `call name[]` form used by synthesized preprocessor call sites
		p.toks.Next()
		p.expectSymbol("]")
		if p.failed() {
			return ast.NoID
		}
	} else {
		for p.callArgStarts() {
			args = append(args, p.unary())
			if p.failed() {
				return ast.NoID
			}
		}
	}

	id := p.tree.New(ast.KindIdentifier, name.Lexeme, line)
	return p.tree.New(ast.KindCallStmt, "", line, append([]ast.ID{id}, args...)...)
}

// callArgStarts reports whether the current token can begin another
// argument to a statement-form call: anything but a statement terminator,
// sentinel opener, block delimiter, or a new leading keyword.
func (p *Parser) callArgStarts() bool {
	tok := p.toks.Peek()
	switch {
	case tok.Kind == token.KindEOF:
		return false
	case tok.IsSymbol(";"), tok.IsSymbol("}"), tok.IsSymbol("["):
		return false
	case tok.Kind == token.KindKeyword:
		return false
	default:
		return true
	}
}
