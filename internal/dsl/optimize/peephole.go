package optimize

import "github.com/dekarrin/dslc/internal/dsl/ir"

// Peephole applies a fixed rule table to adjacent instruction pairs: a
// store immediately overwritten by another store to the same address with
// no intervening read is reduced to the second store, and a self-compare
// for equality folds to a constant true.
type Peephole struct{}

func (Peephole) Name() string { return "peephole" }

func (ph Peephole) Apply(mod *ir.Module) int {
	total := 0
	for _, name := range mod.Order {
		fn := mod.Functions[name]
		for _, b := range fn.Blocks {
			total += ph.foldSelfCompares(b)
			total += ph.dropOverwrittenStores(b)
		}
	}
	return total
}

func (ph Peephole) foldSelfCompares(b *ir.Block) int {
	changed := 0
	for i := range b.Instructions {
		inst := &b.Instructions[i]
		if inst.Op != ir.OpCmpEq && inst.Op != ir.OpCmpGe && inst.Op != ir.OpCmpLe {
			continue
		}
		if len(inst.Operands) != 2 || inst.Operands[0] != inst.Operands[1] {
			continue
		}
		*inst = ir.Instruction{ID: inst.ID, Op: ir.OpConstInt, Type: ir.U8, Block: inst.Block, ConstInt: 1}
		changed++
	}
	for i := range b.Instructions {
		inst := &b.Instructions[i]
		if inst.Op != ir.OpCmpNe {
			continue
		}
		if len(inst.Operands) != 2 || inst.Operands[0] != inst.Operands[1] {
			continue
		}
		*inst = ir.Instruction{ID: inst.ID, Op: ir.OpConstInt, Type: ir.U8, Block: inst.Block, ConstInt: 0}
		changed++
	}
	return changed
}

// dropOverwrittenStores removes a Store immediately followed (with no
// intervening instruction referencing the same address) by another Store
// to the same address: the first write is never observed.
func (ph Peephole) dropOverwrittenStores(b *ir.Block) int {
	changed := 0
	kept := b.Instructions[:0]
	for i := 0; i < len(b.Instructions); i++ {
		inst := b.Instructions[i]
		if inst.Op == ir.OpStore && i+1 < len(b.Instructions) {
			next := b.Instructions[i+1]
			if next.Op == ir.OpStore && len(inst.Operands) > 0 && len(next.Operands) > 0 && inst.Operands[0] == next.Operands[0] {
				changed++
				continue // drop inst, keep scanning from next
			}
		}
		kept = append(kept, inst)
	}
	b.Instructions = kept
	return changed
}
