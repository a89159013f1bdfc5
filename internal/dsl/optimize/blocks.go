package optimize

import "github.com/dekarrin/dslc/internal/dsl/ir"

// compactBlocks rewrites fn to keep only the blocks in keep (in the given
// order), renumbering every BlockID reference to match their new slice
// positions. ir.BlockID is a direct index into Function.Blocks (see
// Function.Block), so dropping an element from the middle of that slice
// without this renumbering step would silently corrupt every terminator,
// Preds/Succs edge, and phi IncomingBlocks entry that referenced a block
// after the dropped one.
func compactBlocks(fn *ir.Function, keep []*ir.Block) {
	remap := make(map[ir.BlockID]ir.BlockID, len(keep))
	for i, b := range keep {
		remap[b.ID] = ir.BlockID(i)
	}

	remapID := func(id ir.BlockID) ir.BlockID {
		if id == ir.NoBlock {
			return ir.NoBlock
		}
		if newID, ok := remap[id]; ok {
			return newID
		}
		return ir.NoBlock
	}

	for i, b := range keep {
		b.ID = ir.BlockID(i)
		for j := range b.Instructions {
			inst := &b.Instructions[j]
			inst.Block = b.ID
			switch inst.Op {
			case ir.OpBr:
				inst.Target = remapID(inst.Target)
			case ir.OpCondBr:
				inst.TrueBlock = remapID(inst.TrueBlock)
				inst.FalseBlock = remapID(inst.FalseBlock)
			case ir.OpPhi:
				for k := range inst.IncomingBlocks {
					inst.IncomingBlocks[k] = remapID(inst.IncomingBlocks[k])
				}
			}
		}
		var preds, succs []ir.BlockID
		for _, p := range b.Preds {
			if newID, ok := remap[p]; ok {
				preds = append(preds, newID)
			}
		}
		for _, s := range b.Succs {
			if newID, ok := remap[s]; ok {
				succs = append(succs, newID)
			}
		}
		b.Preds, b.Succs = preds, succs
	}

	fn.Entry = remapID(fn.Entry)
	fn.Blocks = keep
	fn.MarkDomDirty()
}
