package lower

import (
	"github.com/dekarrin/dslc/internal/dsl/ast"
	"github.com/dekarrin/dslc/internal/dsl/ir"
)

// lowerWhile lowers `while cond { body }` as header/body/exit blocks. Every
// variable the body assigns gets a phi in the header combining its
// pre-loop value with its value from every path that reaches back around
// (the normal fallthrough plus any `continue`), so reads inside the body
// and after the loop see the correctly merged value without a general
// dominance-frontier search (see scope.go's fnBuilder doc).
func (fb *fnBuilder) lowerWhile(n ast.Node) {
	assigned := assignedNames(fb.tree, n.Children[1])
	preEnv := cloneEnv(fb.env)

	header := fb.fn.NewBlock("while.header")
	body := fb.fn.NewBlock("while.body")
	exit := fb.fn.NewBlock("while.exit")
	fb.emit(Instruction{Op: ir.OpBr, Type: ir.Void, Target: header})

	fb.block = header
	headerEnv := cloneEnv(preEnv)
	phiIdx := make(map[string]int, len(assigned))
	for _, name := range assigned {
		preVal, ok := preEnv[name]
		if !ok {
			continue // assigned-before-use inside the loop only: no incoming value to merge yet
		}
		idx := len(fb.fn.Block(header).Instructions)
		phi := fb.emit(Instruction{
			Op:             ir.OpPhi,
			Type:           fb.valueTypeOf(preVal),
			Operands:       []ir.ValueID{preVal},
			IncomingBlocks: []ir.BlockID{fb.headerPred(header)},
		})
		headerEnv[name] = phi
		phiIdx[name] = idx
	}

	cond := fb.lowerExprIn(header, headerEnv, n.Children[0])
	fb.block = header
	fb.env = headerEnv
	fb.emit(Instruction{Op: ir.OpCondBr, Type: ir.Void, Operands: []ir.ValueID{cond}, TrueBlock: body, FalseBlock: exit})

	loop := &loopCtx{header: header, exit: exit, assigned: assigned}
	fb.loops = append(fb.loops, loop)

	fb.block = body
	fb.env = cloneEnv(headerEnv)
	fb.lowerBody(n.Children[1])
	if fb.block != ir.NoBlock {
		loop.continues = append(loop.continues, branchSite{block: fb.block, env: fb.env})
		fb.emit(Instruction{Op: ir.OpBr, Type: ir.Void, Target: header})
	}
	fb.loops = fb.loops[:len(fb.loops)-1]

	// patch each header phi with one incoming pair per site that loops back
	for _, name := range assigned {
		idx, ok := phiIdx[name]
		if !ok {
			continue
		}
		inst := &fb.fn.Block(header).Instructions[idx]
		for _, site := range loop.continues {
			inst.Operands = append(inst.Operands, site.env[name])
			inst.IncomingBlocks = append(inst.IncomingBlocks, site.block)
		}
	}

	fb.block = exit
	fb.env = fb.mergeMany(headerEnv, append([]branchSite{{header, headerEnv}}, loop.breaks...))
}

// headerPred returns the block that branches into header for the loop's
// initial entry, which by construction is always the current block at the
// point lowerWhile emits its preheader branch (the only predecessor header
// has before the body is lowered).
func (fb *fnBuilder) headerPred(header ir.BlockID) ir.BlockID {
	preds := fb.fn.Block(header).Preds
	return preds[len(preds)-1]
}

// lowerExprIn lowers expr with a specific block/env pair active, restoring
// nothing afterward (callers re-set fb.block/fb.env themselves); used for
// the while condition, which must read the header phis rather than the
// pre-loop values.
func (fb *fnBuilder) lowerExprIn(block ir.BlockID, env map[string]ir.ValueID, expr ast.ID) ir.ValueID {
	fb.block = block
	fb.env = env
	return fb.lowerExpr(expr)
}
