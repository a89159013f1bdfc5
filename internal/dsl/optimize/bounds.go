package optimize

import "github.com/dekarrin/dslc/internal/dsl/ir"

// BoundsCheckElimination removes an OpBoundsCheck when an earlier check
// against the same (base, index) SSA value pair is proven to have already
// executed on every path reaching this one, i.e. it occurred in a block
// that dominates the current one. SSA values never change after
// definition, so an identical pair passing the check once means it always
// passes here too.
type BoundsCheckElimination struct{}

func (BoundsCheckElimination) Name() string { return "bounds-check-elimination" }

type checkKey struct {
	base, index ir.ValueID
}

func (bce BoundsCheckElimination) Apply(mod *ir.Module) int {
	total := 0
	for _, name := range mod.Order {
		total += bce.runFunction(mod.Functions[name])
	}
	return total
}

func (bce BoundsCheckElimination) runFunction(fn *ir.Function) int {
	dom := fn.Dominance()
	seenAt := make(map[checkKey]ir.BlockID)
	changed := 0

	for _, blockID := range dom.ReversePostOrder() {
		b := fn.Block(blockID)
		kept := b.Instructions[:0]
		for _, inst := range b.Instructions {
			if inst.Op == ir.OpBoundsCheck && len(inst.Operands) == 2 {
				key := checkKey{inst.Operands[0], inst.Operands[1]}
				if dominator, ok := seenAt[key]; ok && (dom.Dominates(dominator, b.ID) || dominator == b.ID) {
					changed++
					continue
				}
				seenAt[key] = b.ID
			}
			kept = append(kept, inst)
		}
		b.Instructions = kept
	}
	return changed
}
