package lower

import (
	"github.com/dekarrin/dslc/internal/dsl/ast"
	"github.com/dekarrin/dslc/internal/dsl/ir"
)

// lowerBody lowers a KindBlock's statements in sequence into the current
// block, threading the environment forward.
func (fb *fnBuilder) lowerBody(blockID ast.ID) {
	n := fb.tree.Node(blockID)
	for _, s := range n.Children {
		fb.lowerStmt(s)
	}
}

// lowerStmt lowers one statement. If the current block has already been
// terminated (by a prior ret/break/continue), every subsequent statement in
// the same straight-line sequence is unreachable and is skipped without
// further diagnostics.
func (fb *fnBuilder) lowerStmt(id ast.ID) {
	if fb.block == ir.NoBlock || id == ast.NoID {
		return
	}
	n := fb.tree.Node(id)
	switch n.Kind {
	case ast.KindPrint:
		v := fb.lowerExpr(n.Children[0])
		fb.emit(Instruction{Op: ir.OpIntrinsic, Type: ir.Void, Symbol: "print", Operands: []ir.ValueID{v}})
	case ast.KindLet:
		v := fb.lowerExpr(n.Children[0])
		fb.env[n.Value] = v
		fb.varTypes[n.Value] = fb.valueTypeOf(v)
	case ast.KindMutate:
		v := fb.lowerExpr(n.Children[0])
		fb.env[n.Value] = v
		fb.varTypes[n.Value] = fb.valueTypeOf(v)
	case ast.KindReturn:
		fb.lowerReturn(n)
	case ast.KindIf:
		fb.lowerIf(n)
	case ast.KindWhile:
		fb.lowerWhile(n)
	case ast.KindBreak:
		fb.lowerBreak(n)
	case ast.KindContinue:
		fb.lowerContinue(n)
	case ast.KindSwitch:
		fb.lowerSwitch(n)
	case ast.KindCallStmt, ast.KindCallExpr:
		fb.lowerExpr(id)
	case ast.KindBlock:
		fb.lowerBody(id)
	case ast.KindFnDecl:
		fb.reporter.Warning("nested function declarations are not supported; ignored", "", n.Line, 1)
	default:
		fb.lowerIntrinsicStmt(id, n)
	}
}

func (fb *fnBuilder) lowerReturn(n ast.Node) {
	if len(n.Children) == 0 {
		fb.emit(Instruction{Op: ir.OpRet, Type: ir.Void})
	} else {
		v := fb.lowerExpr(n.Children[0])
		t := fb.valueTypeOf(v)
		if fb.returnType.Kind == ir.KindVoid {
			fb.returnType = t
		} else if !fb.returnType.Equal(t) {
			fb.returnType = ir.UsualArithmeticConversion(fb.returnType, t)
		}
		fb.emit(Instruction{Op: ir.OpRet, Type: ir.Void, Operands: []ir.ValueID{v}})
	}
	fb.block = ir.NoBlock
}

// lowerIf lowers `if cond { then } [else { else }]` as a three-block
// diamond (two, if there is no else), reconverging at a merge block that
// receives a phi for every variable whose value differs between the
// branches that actually reach it.
func (fb *fnBuilder) lowerIf(n ast.Node) {
	cond := fb.lowerExpr(n.Children[0])
	baseEnv := cloneEnv(fb.env)

	thenBlock := fb.fn.NewBlock("if.then")
	var elseBlock ir.BlockID
	hasElse := len(n.Children) > 2
	if hasElse {
		elseBlock = fb.fn.NewBlock("if.else")
	} else {
		elseBlock = fb.fn.NewBlock("if.merge") // no else: false edge goes straight to merge
	}
	mergeBlock := elseBlock
	if hasElse {
		mergeBlock = fb.fn.NewBlock("if.merge")
	}
	fb.emit(Instruction{Op: ir.OpCondBr, Type: ir.Void, Operands: []ir.ValueID{cond}, TrueBlock: thenBlock, FalseBlock: elseBlock})

	fb.block = thenBlock
	fb.env = cloneEnv(baseEnv)
	fb.lowerBody(n.Children[1])
	thenExit, thenEnv := fb.block, fb.env
	if thenExit != ir.NoBlock {
		fb.emit(Instruction{Op: ir.OpBr, Type: ir.Void, Target: mergeBlock})
	}

	var elseExit ir.BlockID
	var elseEnv map[string]ir.ValueID
	if hasElse {
		fb.block = elseBlock
		fb.env = cloneEnv(baseEnv)
		elseBody := n.Children[2]
		if fb.tree.Node(elseBody).Kind == ast.KindIf {
			fb.lowerIf(fb.tree.Node(elseBody))
		} else {
			fb.lowerBody(elseBody)
		}
		elseExit, elseEnv = fb.block, fb.env
		if elseExit != ir.NoBlock {
			fb.emit(Instruction{Op: ir.OpBr, Type: ir.Void, Target: mergeBlock})
		}
	} else {
		elseExit, elseEnv = elseBlock, baseEnv
	}

	fb.block = mergeBlock
	fb.env = fb.mergeBranches(baseEnv, thenExit, thenEnv, elseExit, elseEnv, mergeBlock)
}

// mergeBranches inserts a phi in mergeBlock for every variable whose value
// could differ depending on which of the (live) incoming branches was
// taken, and returns the resulting environment.
func (fb *fnBuilder) mergeBranches(base map[string]ir.ValueID, aBlock ir.BlockID, aEnv map[string]ir.ValueID, bBlock ir.BlockID, bEnv map[string]ir.ValueID, mergeBlock ir.BlockID) map[string]ir.ValueID {
	type incoming struct {
		block ir.BlockID
		env   map[string]ir.ValueID
	}
	var live []incoming
	if aBlock != ir.NoBlock {
		live = append(live, incoming{aBlock, aEnv})
	}
	if bBlock != ir.NoBlock {
		live = append(live, incoming{bBlock, bEnv})
	}
	if len(live) == 0 {
		fb.block = ir.NoBlock
		return base
	}
	if len(live) == 1 {
		return live[0].env
	}

	merged := cloneEnv(base)
	savedBlock := fb.block
	fb.block = mergeBlock
	for name := range base {
		v0, v1 := live[0].env[name], live[1].env[name]
		if v0 == v1 {
			merged[name] = v0
			continue
		}
		t := ir.UsualArithmeticConversion(fb.valueTypeOf(v0), fb.valueTypeOf(v1))
		phi := fb.emit(Instruction{
			Op:             ir.OpPhi,
			Type:           t,
			Operands:       []ir.ValueID{v0, v1},
			IncomingBlocks: []ir.BlockID{live[0].block, live[1].block},
		})
		merged[name] = phi
	}
	// variables introduced by only one branch (new `let`s local to it) are
	// not carried forward: they are out of scope past the merge point.
	fb.block = savedBlock
	return merged
}

func (fb *fnBuilder) lowerBreak(n ast.Node) {
	if len(fb.loops) == 0 {
		fb.reporter.Error("break outside of a loop", "", n.Line, 1)
		return
	}
	l := fb.loops[len(fb.loops)-1]
	l.breaks = append(l.breaks, branchSite{block: fb.block, env: fb.env})
	fb.emit(Instruction{Op: ir.OpBr, Type: ir.Void, Target: l.exit})
	fb.block = ir.NoBlock
}

func (fb *fnBuilder) lowerContinue(n ast.Node) {
	if len(fb.loops) == 0 {
		fb.reporter.Error("continue outside of a loop", "", n.Line, 1)
		return
	}
	l := fb.loops[len(fb.loops)-1]
	l.continues = append(l.continues, branchSite{block: fb.block, env: fb.env})
	fb.emit(Instruction{Op: ir.OpBr, Type: ir.Void, Target: l.header})
	fb.block = ir.NoBlock
}

// lowerSwitch lowers `switch subject { case V { ... } ... [default { ... }] }`
// as a chain of equality comparisons against subject, each guarding its
// case body, falling through to default (or to a no-op merge) otherwise.
func (fb *fnBuilder) lowerSwitch(n ast.Node) {
	subject := fb.lowerExpr(n.Children[0])
	baseEnv := cloneEnv(fb.env)
	exitBlock := fb.fn.NewBlock("switch.exit")

	var defaultBody ast.ID = ast.NoID
	type caseArm struct {
		val  ast.ID
		body ast.ID
	}
	var arms []caseArm
	for _, c := range n.Children[1:] {
		cn := fb.tree.Node(c)
		if cn.Kind == ast.KindDefault {
			defaultBody = cn.Children[0]
		} else {
			arms = append(arms, caseArm{cn.Children[0], cn.Children[1]})
		}
	}

	var liveExits []branchSite
	next := fb.block
	for _, arm := range arms {
		fb.block = next
		fb.env = cloneEnv(baseEnv)
		val := fb.lowerExpr(arm.val)
		cmp := fb.emit(Instruction{Op: ir.OpCmpEq, Type: ir.U8, Operands: []ir.ValueID{subject, val}})
		body := fb.fn.NewBlock("switch.case")
		next = fb.fn.NewBlock("switch.next")
		fb.emit(Instruction{Op: ir.OpCondBr, Type: ir.Void, Operands: []ir.ValueID{cmp}, TrueBlock: body, FalseBlock: next})

		fb.block = body
		fb.lowerBody(arm.body)
		if fb.block != ir.NoBlock {
			liveExits = append(liveExits, branchSite{fb.block, fb.env})
			fb.emit(Instruction{Op: ir.OpBr, Type: ir.Void, Target: exitBlock})
		}
	}

	fb.block = next
	fb.env = cloneEnv(baseEnv)
	if defaultBody != ast.NoID {
		fb.lowerBody(defaultBody)
	}
	if fb.block != ir.NoBlock {
		liveExits = append(liveExits, branchSite{fb.block, fb.env})
		fb.emit(Instruction{Op: ir.OpBr, Type: ir.Void, Target: exitBlock})
	}

	fb.block = exitBlock
	fb.env = fb.mergeMany(baseEnv, liveExits)
}

// mergeMany generalizes mergeBranches to N live incoming edges, used by
// switch where each case is its own predecessor of the exit block.
func (fb *fnBuilder) mergeMany(base map[string]ir.ValueID, sites []branchSite) map[string]ir.ValueID {
	if len(sites) == 0 {
		fb.block = ir.NoBlock
		return base
	}
	if len(sites) == 1 {
		return sites[0].env
	}
	merged := cloneEnv(base)
	for name := range base {
		first := sites[0].env[name]
		allSame := true
		for _, s := range sites[1:] {
			if s.env[name] != first {
				allSame = false
				break
			}
		}
		if allSame {
			merged[name] = first
			continue
		}
		var operands []ir.ValueID
		var incoming []ir.BlockID
		t := fb.valueTypeOf(first)
		for _, s := range sites {
			operands = append(operands, s.env[name])
			incoming = append(incoming, s.block)
			t = ir.UsualArithmeticConversion(t, fb.valueTypeOf(s.env[name]))
		}
		merged[name] = fb.emit(Instruction{Op: ir.OpPhi, Type: t, Operands: operands, IncomingBlocks: incoming})
	}
	return merged
}
