package optimize

import "github.com/dekarrin/dslc/internal/dsl/ir"

// InstructionReordering shrinks live ranges within a basic block by
// bubbling a pure instruction past an adjacent, independent one when the
// later instruction's result is needed sooner. Only adjacent swaps between
// two side-effect-free, non-phi, non-terminator instructions that do not
// reference each other's result are considered, so every swap is trivially
// safe: two independent instructions commute regardless of order.
type InstructionReordering struct{}

func (InstructionReordering) Name() string { return "instruction-reordering" }

func (p InstructionReordering) Apply(mod *ir.Module) int {
	total := 0
	for _, name := range mod.Order {
		fn := mod.Functions[name]
		for _, b := range fn.Blocks {
			total += p.reorderBlock(b)
		}
	}
	return total
}

func (InstructionReordering) reorderBlock(b *ir.Block) int {
	changed := 0
	n := len(b.Instructions)
	for round := 0; round < n; round++ {
		roundChanged := false
		for i := 0; i+1 < len(b.Instructions); i++ {
			a, c := b.Instructions[i], b.Instructions[i+1]
			if !swappable(a, c) {
				continue
			}
			if firstUseDistance(b, c.ID, i+2) < firstUseDistance(b, a.ID, i+2) {
				b.Instructions[i], b.Instructions[i+1] = c, a
				changed++
				roundChanged = true
			}
		}
		if !roundChanged {
			break
		}
	}
	return changed
}

func swappable(a, c ir.Instruction) bool {
	if hasSideEffect(a.Op) || hasSideEffect(c.Op) || a.Op == ir.OpPhi || c.Op == ir.OpPhi {
		return false
	}
	for _, op := range c.Operands {
		if op == a.ID {
			return false
		}
	}
	for _, op := range a.Operands {
		if op == c.ID {
			return false
		}
	}
	return true
}

// firstUseDistance returns how many instructions after startIdx (inclusive)
// elapse before v is first referenced, or a large sentinel if never used
// again in this block (its use lives in a successor, e.g. via phi).
func firstUseDistance(b *ir.Block, v ir.ValueID, startIdx int) int {
	if v == ir.NoValue {
		return 1 << 30
	}
	for i := startIdx; i < len(b.Instructions); i++ {
		for _, op := range b.Instructions[i].Operands {
			if op == v {
				return i - startIdx
			}
		}
	}
	return 1 << 30
}
