package parse

import (
	"github.com/dekarrin/dslc/internal/dsl/ast"
)

// structDecl parses `struct N { field type ... }`.
func (p *Parser) structDecl() ast.ID {
	line := p.toks.Next().Line // 'struct'
	name := p.expectIdentifier()
	p.expectSymbol("{")
	if p.failed() {
		return ast.NoID
	}
	var fields []ast.ID
	for !p.toks.Peek().IsSymbol("}") && p.toks.HasNext() {
		fieldName := p.expectIdentifier()
		fieldType := p.expectIdentifier()
		if p.failed() {
			return ast.NoID
		}
		fields = append(fields, p.tree.New(ast.KindField, fieldType.Lexeme+" "+fieldName.Lexeme, line))
		if p.toks.Peek().IsSymbol(",") {
			p.toks.Next()
		}
	}
	p.expectSymbol("}")
	if p.failed() {
		return ast.NoID
	}
	return p.tree.New(ast.KindStructDecl, name.Lexeme, line, fields...)
}

// enumDecl parses `enum N { V, ... }`.
func (p *Parser) enumDecl() ast.ID {
	line := p.toks.Next().Line // 'enum'
	name := p.expectIdentifier()
	p.expectSymbol("{")
	if p.failed() {
		return ast.NoID
	}
	var values []ast.ID
	for !p.toks.Peek().IsSymbol("}") && p.toks.HasNext() {
		v := p.expectIdentifier()
		if p.failed() {
			return ast.NoID
		}
		values = append(values, p.tree.New(ast.KindEnumValue, v.Lexeme, line))
		if p.toks.Peek().IsSymbol(",") {
			p.toks.Next()
		}
	}
	p.expectSymbol("}")
	if p.failed() {
		return ast.NoID
	}
	return p.tree.New(ast.KindEnumDecl, name.Lexeme, line, values...)
}

// unionDecl parses `union N { field type ... }` — same shape as struct.
func (p *Parser) unionDecl() ast.ID {
	line := p.toks.Next().Line // 'union'
	name := p.expectIdentifier()
	p.expectSymbol("{")
	if p.failed() {
		return ast.NoID
	}
	var fields []ast.ID
	for !p.toks.Peek().IsSymbol("}") && p.toks.HasNext() {
		fieldName := p.expectIdentifier()
		fieldType := p.expectIdentifier()
		if p.failed() {
			return ast.NoID
		}
		fields = append(fields, p.tree.New(ast.KindField, fieldType.Lexeme+" "+fieldName.Lexeme, line))
		if p.toks.Peek().IsSymbol(",") {
			p.toks.Next()
		}
	}
	p.expectSymbol("}")
	if p.failed() {
		return ast.NoID
	}
	return p.tree.New(ast.KindUnionDecl, name.Lexeme, line, fields...)
}

// typedefDecl parses `typedef New = Existing`.
func (p *Parser) typedefDecl() ast.ID {
	line := p.toks.Next().Line // 'typedef'
	newName := p.expectIdentifier()
	if eq := p.toks.Next(); !eq.IsOperator("=") {
		p.fail(`operator "="`, eq)
	}
	existing := p.expectIdentifier()
	if p.failed() {
		return ast.NoID
	}
	return p.tree.New(ast.KindTypedef, newName.Lexeme+"="+existing.Lexeme, line)
}

// classDecl parses `class Name [ extends Base ] { [public|private] member* }`.
// Access-specifier sections lower directly onto the member FnDecl/Field
// nodes as an access attribute rather than into a separate object model.
func (p *Parser) classDecl() ast.ID {
	line := p.toks.Next().Line // 'class'
	name := p.expectIdentifier()
	className := name.Lexeme

	if p.toks.Peek().IsKeyword("extends") {
		p.toks.Next()
		base := p.expectIdentifier()
		if p.failed() {
			return ast.NoID
		}
		className += " extends " + base.Lexeme
	}

	p.expectSymbol("{")
	if p.failed() {
		return ast.NoID
	}
	access := "private"
	var members []ast.ID
	for !p.toks.Peek().IsSymbol("}") && p.toks.HasNext() {
		switch {
		case p.toks.Peek().IsKeyword("public"):
			p.toks.Next()
			access = "public"
		case p.toks.Peek().IsKeyword("private"):
			p.toks.Next()
			access = "private"
		case p.toks.Peek().IsKeyword("Fn"):
			member := p.fnDecl()
			if p.failed() {
				return ast.NoID
			}
			members = append(members, p.tagAccess(member, access))
		default:
			fieldType := p.expectIdentifier()
			fieldName := p.expectIdentifier()
			if p.failed() {
				return ast.NoID
			}
			field := p.tree.New(ast.KindField, access+":"+fieldType.Lexeme+" "+fieldName.Lexeme, line)
			members = append(members, field)
			if p.toks.Peek().IsSymbol(",") {
				p.toks.Next()
			}
		}
	}
	p.expectSymbol("}")
	if p.failed() {
		return ast.NoID
	}
	return p.tree.New(ast.KindClassDecl, className, line, members...)
}

// tagAccess prefixes an already-built FnDecl's Value with its access
// specifier, matching the "access:name" convention used for class fields.
func (p *Parser) tagAccess(member ast.ID, access string) ast.ID {
	n := p.tree.Node(member)
	p.tree.SetValue(member, access+":"+n.Value)
	return member
}
