package optimize

import "github.com/dekarrin/dslc/internal/dsl/ir"

// FootprintCompression renumbers SSA values to a dense range starting at 0
// (closing gaps left by earlier DCE/folding passes) and compacts the block
// list to remove any blocks prior passes already emptied of meaning. It
// reports the number of values renumbered away from their original slot
// plus any blocks dropped, as a rough proxy for the compaction achieved.
type FootprintCompression struct{}

func (FootprintCompression) Name() string { return "footprint-compression" }

func (fc FootprintCompression) Apply(mod *ir.Module) int {
	total := 0
	for _, name := range mod.Order {
		total += fc.runFunction(mod.Functions[name])
	}
	return total
}

func (fc FootprintCompression) runFunction(fn *ir.Function) int {
	remap := make(map[ir.ValueID]ir.ValueID)
	var next ir.ValueID
	changed := 0
	for _, b := range fn.Blocks {
		for i := range b.Instructions {
			inst := &b.Instructions[i]
			if inst.ID == ir.NoValue {
				continue
			}
			if inst.ID != next {
				changed++
			}
			remap[inst.ID] = next
			inst.ID = next
			next++
		}
	}

	remapValue := func(v ir.ValueID) ir.ValueID {
		if ir.IsParam(v) || v == ir.NoValue {
			return v
		}
		if newID, ok := remap[v]; ok {
			return newID
		}
		return v
	}

	for _, b := range fn.Blocks {
		for i := range b.Instructions {
			inst := &b.Instructions[i]
			for j, op := range inst.Operands {
				inst.Operands[j] = remapValue(op)
			}
		}
	}

	var live []*ir.Block
	for _, b := range fn.Blocks {
		if b.ID == fn.Entry || blockReachableByScan(fn, b.ID) {
			live = append(live, b)
		} else {
			changed++
		}
	}
	if len(live) != len(fn.Blocks) {
		compactBlocks(fn, live)
	}

	return changed
}

// blockReachableByScan reports whether id is the target of any Br or
// CondBr terminator still present in fn; FootprintCompression runs after
// DeadCodeElimination's own reachability prune, so this only catches blocks
// orphaned by a pass that ran between the two without updating the graph.
func blockReachableByScan(fn *ir.Function, id ir.BlockID) bool {
	for _, b := range fn.Blocks {
		term := b.Terminator()
		if term == nil {
			continue
		}
		switch term.Op {
		case ir.OpBr:
			if term.Target == id {
				return true
			}
		case ir.OpCondBr:
			if term.TrueBlock == id || term.FalseBlock == id {
				return true
			}
		}
	}
	return false
}
