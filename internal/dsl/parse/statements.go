package parse

import (
	"github.com/dekarrin/dslc/internal/dsl/ast"
)

// statement dispatches on the leading keyword (or, for a bare identifier,
// an expression-statement / statement-form call) and returns the resulting
// node, or ast.NoID with p.err set on failure. Every statement form
// tolerates a trailing opaque "[...]" sentinel and an optional ";".
func (p *Parser) statement() ast.ID {
	tok := p.toks.Peek()

	var id ast.ID
	switch {
	case tok.IsKeyword("overlay"):
		p.overlayAnnotation()
		return ast.NoID // overlays attach to the next Fn; they are not a statement node
	case tok.IsKeyword("Print"):
		id = p.printStmt()
	case tok.IsKeyword("let"):
		id = p.letStmt()
	case tok.IsKeyword("Fn"):
		id = p.fnDecl()
	case tok.IsKeyword("call"):
		id = p.exprStatement() // routes through primary(), which handles 'call'
	case tok.IsKeyword("ret"):
		id = p.retStmt()
	case tok.IsKeyword("if"):
		id = p.ifStmt()
	case tok.IsKeyword("while"):
		id = p.whileStmt()
	case tok.IsKeyword("break"):
		line := p.toks.Next().Line
		id = p.tree.New(ast.KindBreak, "", line)
	case tok.IsKeyword("continue"):
		line := p.toks.Next().Line
		id = p.tree.New(ast.KindContinue, "", line)
	case tok.IsKeyword("switch"):
		id = p.switchStmt()
	case tok.IsKeyword("loop"):
		id = p.loopStmt()
	case tok.IsKeyword("open"):
		id = p.openStmt()
	case tok.IsKeyword("write"), tok.IsKeyword("writeln"):
		id = p.writeStmt(tok.Lexeme)
	case tok.IsKeyword("read"):
		id = p.readStmt()
	case tok.IsKeyword("close"):
		id = p.simpleHandleStmt(ast.KindClose, "close")
	case tok.IsKeyword("input"):
		id = p.inputStmt()
	case tok.IsKeyword("thread"):
		id = p.blockWrapped(ast.KindThread, "thread")
	case tok.IsKeyword("async"):
		id = p.exprWrapped(ast.KindAsync, "async")
	case tok.IsKeyword("channel"):
		id = p.channelStmt()
	case tok.IsKeyword("send"):
		id = p.sendStmt()
	case tok.IsKeyword("recv"):
		id = p.recvStmt()
	case tok.IsKeyword("sync"):
		id = p.syncStmt()
	case tok.IsKeyword("parallel"):
		id = p.parallelStmt()
	case tok.IsKeyword("schedule"):
		id = p.scheduleStmt()
	case tok.IsKeyword("batch"):
		id = p.batchStmt()
	case tok.IsKeyword("struct"):
		id = p.structDecl()
	case tok.IsKeyword("enum"):
		id = p.enumDecl()
	case tok.IsKeyword("union"):
		id = p.unionDecl()
	case tok.IsKeyword("typedef"):
		id = p.typedefDecl()
	case tok.IsKeyword("class"):
		id = p.classDecl()
	case tok.IsKeyword("mutate"):
		id = p.mutateStmt()
	case tok.IsKeyword("scale"):
		id = p.scaleStmt()
	case tok.IsKeyword("bounds"):
		id = p.boundsStmt()
	case tok.IsKeyword("checkpoint"):
		id = p.labelStmt(ast.KindCheckpoint, "checkpoint")
	case tok.IsKeyword("vbreak"):
		id = p.labelStmt(ast.KindVBreak, "vbreak")
	case tok.IsKeyword("matrix"):
		id = p.matrixStmt()
	case tok.IsKeyword("sanitize_mem"), tok.IsKeyword("sanitize_code"):
		id = p.sanitizeStmt(tok.Lexeme)
	case tok.IsKeyword("ping"):
		line := p.toks.Next().Line
		id = p.tree.New(ast.KindPing, "", line)
	case tok.IsKeyword("audit"):
		line := p.toks.Next().Line
		id = p.tree.New(ast.KindAudit, "", line)
	case tok.IsKeyword("temperature"):
		line := p.toks.Next().Line
		id = p.tree.New(ast.KindTemperature, "", line)
	case tok.IsKeyword("pressure"):
		line := p.toks.Next().Line
		id = p.tree.New(ast.KindPressure, "", line)
	case tok.IsKeyword("gauge"):
		line := p.toks.Next().Line
		id = p.tree.New(ast.KindGauge, "", line)
	case tok.IsSymbol("["):
		// a bare sentinel with no preceding statement: tolerate and drop it
		p.skipTrailingSentinel()
		return ast.NoID
	default:
		id = p.exprStatement()
	}

	if p.failed() {
		return ast.NoID
	}
	p.skipTrailingSentinel()
	return id
}

// overlayAnnotation parses `overlay name(args...)` and appends it to the
// pending-overlay buffer, to be drained by the next Fn declaration.
func (p *Parser) overlayAnnotation() {
	line := p.toks.Next().Line // 'overlay'
	name := p.expectIdentifier()
	if p.failed() {
		return
	}
	var args []ast.ID
	if p.toks.Peek().IsSymbol("(") {
		p.toks.Next()
		args = p.argList(")")
	}
	if p.failed() {
		return
	}
	id := p.tree.New(ast.KindOverlay, name.Lexeme, line, args...)
	p.overlays = append(p.overlays, id)
	if p.toks.Peek().IsSymbol(",") {
		p.toks.Next()
		p.overlayAnnotation()
	}
}

func (p *Parser) printStmt() ast.ID {
	line := p.toks.Next().Line // 'Print'
	arg := p.expression()
	if p.failed() {
		return ast.NoID
	}
	return p.tree.New(ast.KindPrint, "", line, arg)
}

func (p *Parser) letStmt() ast.ID {
	line := p.toks.Next().Line // 'let'
	name := p.expectIdentifier()
	if eq := p.toks.Next(); !eq.IsOperator("=") {
		p.fail(`operator "="`, eq)
	}
	val := p.expression()
	if p.failed() {
		return ast.NoID
	}
	return p.tree.New(ast.KindLet, name.Lexeme, line, val)
}

func (p *Parser) exprStatement() ast.ID {
	return p.expression()
}

// simpleHandleStmt parses `<kw> <identifier>`.
func (p *Parser) simpleHandleStmt(kind ast.Kind, kw string) ast.ID {
	line := p.toks.Next().Line
	handle := p.expectIdentifier()
	if p.failed() {
		return ast.NoID
	}
	return p.tree.New(kind, handle.Lexeme, line)
}

// labelStmt parses `<kw> <identifier>` where the identifier is a label, not
// a handle; same shape as simpleHandleStmt but kept distinct for clarity at
// call sites.
func (p *Parser) labelStmt(kind ast.Kind, kw string) ast.ID {
	return p.simpleHandleStmt(kind, kw)
}

func (p *Parser) blockWrapped(kind ast.Kind, kw string) ast.ID {
	line := p.toks.Next().Line
	body := p.block()
	if p.failed() {
		return ast.NoID
	}
	return p.tree.New(kind, "", line, body)
}

func (p *Parser) exprWrapped(kind ast.Kind, kw string) ast.ID {
	line := p.toks.Next().Line
	e := p.expression()
	if p.failed() {
		return ast.NoID
	}
	return p.tree.New(kind, "", line, e)
}

func (p *Parser) sanitizeStmt(kw string) ast.ID {
	line := p.toks.Next().Line
	v := p.expectIdentifier()
	if p.failed() {
		return ast.NoID
	}
	return p.tree.New(ast.KindSanitize, kw+":"+v.Lexeme, line)
}
