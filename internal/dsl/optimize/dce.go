package optimize

import "github.com/dekarrin/dslc/internal/dsl/ir"

// DeadCodeElimination removes instructions whose result has no use and
// whose execution has no observable side effect, and prunes blocks no
// longer reachable from the entry.
type DeadCodeElimination struct{}

func (DeadCodeElimination) Name() string { return "dead-code-elimination" }

func (dce DeadCodeElimination) Apply(mod *ir.Module) int {
	total := 0
	for _, name := range mod.Order {
		fn := mod.Functions[name]
		total += pruneUnreachableBlocks(fn)
		total += dce.eliminateUnused(fn)
	}
	return total
}

// hasSideEffect reports whether inst must execute regardless of whether its
// result (if any) is used.
func hasSideEffect(op ir.Op) bool {
	switch op {
	case ir.OpStore, ir.OpCall, ir.OpIntrinsic, ir.OpBoundsCheck:
		return true
	default:
		return op.IsTerminator()
	}
}

func (dce DeadCodeElimination) eliminateUnused(fn *ir.Function) int {
	changed := 0
	// Dead code elimination can cascade (removing a use can make its sole
	// definer dead in turn), so iterate until a pass over every block finds
	// nothing left to remove.
	for {
		used := make(map[ir.ValueID]bool)
		for _, b := range fn.Blocks {
			for _, inst := range b.Instructions {
				if inst.Op == ir.OpPhi {
					for _, op := range inst.Operands {
						used[op] = true
					}
					continue
				}
				for _, op := range inst.Operands {
					used[op] = true
				}
			}
		}

		roundChanged := 0
		for _, b := range fn.Blocks {
			kept := b.Instructions[:0]
			for _, inst := range b.Instructions {
				if !hasSideEffect(inst.Op) && inst.ID != ir.NoValue && !used[inst.ID] {
					roundChanged++
					continue
				}
				kept = append(kept, inst)
			}
			b.Instructions = kept
		}
		changed += roundChanged
		if roundChanged == 0 {
			break
		}
	}
	return changed
}

// pruneUnreachableBlocks removes blocks no longer reachable from fn.Entry
// (e.g. after branch simplification deletes an edge) and fixes up every
// remaining block's Preds/Succs and every phi's IncomingBlocks/Operands
// pairs that referenced a removed predecessor.
func pruneUnreachableBlocks(fn *ir.Function) int {
	if fn.Entry == ir.NoBlock {
		return 0
	}
	reachable := map[ir.BlockID]bool{fn.Entry: true}
	queue := []ir.BlockID{fn.Entry}
	for len(queue) > 0 {
		b := queue[0]
		queue = queue[1:]
		for _, s := range fn.Block(b).Succs {
			if !reachable[s] {
				reachable[s] = true
				queue = append(queue, s)
			}
		}
	}

	removed := 0
	for _, b := range fn.Blocks {
		if !reachable[b.ID] {
			continue
		}
		newPreds := b.Preds[:0]
		for _, p := range b.Preds {
			if reachable[p] {
				newPreds = append(newPreds, p)
			}
		}
		b.Preds = newPreds

		for i := range b.Instructions {
			inst := &b.Instructions[i]
			if inst.Op != ir.OpPhi {
				continue
			}
			var ops []ir.ValueID
			var inc []ir.BlockID
			for j, pred := range inst.IncomingBlocks {
				if reachable[pred] {
					ops = append(ops, inst.Operands[j])
					inc = append(inc, pred)
				}
			}
			inst.Operands, inst.IncomingBlocks = ops, inc
		}
	}

	if len(reachable) == len(fn.Blocks) {
		return 0
	}
	var kept []*ir.Block
	for _, b := range fn.Blocks {
		if reachable[b.ID] {
			kept = append(kept, b)
		} else {
			removed++
		}
	}
	compactBlocks(fn, kept)
	return removed
}
