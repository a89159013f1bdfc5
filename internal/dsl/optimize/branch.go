package optimize

import "github.com/dekarrin/dslc/internal/dsl/ir"

// BranchSimplification folds a conditional branch whose condition is a
// known constant into an unconditional one, then collapses any block that
// now contains nothing but that unconditional branch by redirecting its
// predecessors straight to its target.
type BranchSimplification struct{}

func (BranchSimplification) Name() string { return "branch-simplification" }

func (bs BranchSimplification) Apply(mod *ir.Module) int {
	total := 0
	for _, name := range mod.Order {
		fn := mod.Functions[name]
		total += bs.foldConstantBranches(fn)
		total += bs.collapseEmptyBlocks(fn)
	}
	return total
}

func (bs BranchSimplification) foldConstantBranches(fn *ir.Function) int {
	changed := 0
	for _, b := range fn.Blocks {
		term := b.Terminator()
		if term == nil || term.Op != ir.OpCondBr || len(term.Operands) != 1 {
			continue
		}
		condVal, ok := constantOperand(fn, term.Operands[0])
		if !ok {
			continue
		}
		target := term.FalseBlock
		dropped := term.TrueBlock
		if condVal != 0 {
			target = term.TrueBlock
			dropped = term.FalseBlock
		}
		last := len(b.Instructions) - 1
		b.Instructions[last] = ir.Instruction{Op: ir.OpBr, Type: ir.Void, Block: b.ID, Target: target}
		removeEdge(fn, b.ID, dropped)
		changed++
	}
	if changed > 0 {
		fn.MarkDomDirty()
	}
	return changed
}

// constantOperand returns the value of v if its sole definition is an
// OpConstInt, searching every block (cheap enough here; this pass only runs
// right after constant folding has already flattened most candidates).
func constantOperand(fn *ir.Function, v ir.ValueID) (int64, bool) {
	for _, b := range fn.Blocks {
		for _, inst := range b.Instructions {
			if inst.ID == v && inst.Op == ir.OpConstInt {
				return inst.ConstInt, true
			}
		}
	}
	return 0, false
}

func removeEdge(fn *ir.Function, from, to ir.BlockID) {
	target := fn.Block(to)
	for i, p := range target.Preds {
		if p == from {
			target.Preds = append(target.Preds[:i], target.Preds[i+1:]...)
			break
		}
	}
	src := fn.Block(from)
	for i, s := range src.Succs {
		if s == to {
			src.Succs = append(src.Succs[:i], src.Succs[i+1:]...)
			break
		}
	}
}

// collapseEmptyBlocks redirects any predecessor of a block whose sole
// instruction is an unconditional branch straight to that branch's target,
// skipping the middleman. It never collapses a block with more than one
// predecessor into a phi-bearing target, so with phis it only fires when
// the forwarding block is the target's only predecessor and has a single
// predecessor itself, whose ID then replaces it in the phis'
// IncomingBlocks.
func (bs BranchSimplification) collapseEmptyBlocks(fn *ir.Function) int {
	changed := 0
	for _, b := range fn.Blocks {
		if b.ID == fn.Entry || len(b.Instructions) != 1 {
			continue
		}
		only := b.Instructions[0]
		if only.Op != ir.OpBr {
			continue
		}
		target := fn.Block(only.Target)
		if hasPhi(target) && (len(target.Preds) != 1 || len(b.Preds) != 1) {
			continue
		}
		preds := append([]ir.BlockID(nil), b.Preds...)
		for _, predID := range preds {
			pred := fn.Block(predID)
			retargeted := false
			term := pred.Terminator()
			if term == nil {
				continue
			}
			switch term.Op {
			case ir.OpBr:
				if term.Target == b.ID {
					term.Target = only.Target
					retargeted = true
				}
			case ir.OpCondBr:
				if term.TrueBlock == b.ID {
					term.TrueBlock = only.Target
					retargeted = true
				}
				if term.FalseBlock == b.ID {
					term.FalseBlock = only.Target
					retargeted = true
				}
			}
			if retargeted {
				removeEdge(fn, predID, b.ID)
				addEdgeIfAbsent(fn, predID, only.Target)
				for i, pp := range target.Preds {
					if pp == b.ID {
						target.Preds[i] = predID
					}
				}
				for k := range target.Instructions {
					phi := &target.Instructions[k]
					for m, inc := range phi.IncomingBlocks {
						if phi.Op == ir.OpPhi && inc == b.ID {
							phi.IncomingBlocks[m] = predID
						}
					}
				}
				changed++
			}
		}
	}
	if changed > 0 {
		fn.MarkDomDirty()
	}
	return changed
}

func hasPhi(b *ir.Block) bool {
	for _, inst := range b.Instructions {
		if inst.Op == ir.OpPhi {
			return true
		}
	}
	return false
}

func addEdgeIfAbsent(fn *ir.Function, from, to ir.BlockID) {
	src := fn.Block(from)
	for _, s := range src.Succs {
		if s == to {
			return
		}
	}
	src.Succs = append(src.Succs, to)
}
