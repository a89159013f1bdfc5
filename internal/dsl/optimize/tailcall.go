package optimize

import "github.com/dekarrin/dslc/internal/dsl/ir"

// TailCallConversion rewrites a self-recursive call in tail position (a
// call to fn's own name immediately followed by a ret of its result, or of
// nothing for a void function) into a branch back to a synthetic loop
// header with the call's arguments rebound through phis, eliminating the
// call/return overhead of the recursion.
//
// Scope note: the general form of this pass ("a direct call in tail
// position with a matching signature") also covers
// tail calls to a *different* function. That version is a jump-with-frame-
// reuse at the calling-convention level (replace call+ret with a single
// jmp that keeps the caller's stack frame), which belongs in the code
// generator's instruction selection (C9) where frame layout is already
// visible, not in a mid-IR-to-mid-IR rewrite across two separate function
// graphs. This pass implements the self-recursive case, which is the one
// form expressible purely as a branch within the same function's CFG.
type TailCallConversion struct{}

func (TailCallConversion) Name() string { return "tail-call-conversion" }

func (tc TailCallConversion) Apply(mod *ir.Module) int {
	total := 0
	for _, name := range mod.Order {
		total += tc.runFunction(mod.Functions[name])
	}
	return total
}

type tailSite struct {
	block    ir.BlockID
	callIdx  int
	callArgs []ir.ValueID
}

func (tc TailCallConversion) runFunction(fn *ir.Function) int {
	var sites []tailSite
	for _, b := range fn.Blocks {
		n := len(b.Instructions)
		if n < 2 {
			continue
		}
		call, ret := b.Instructions[n-2], b.Instructions[n-1]
		if call.Op != ir.OpCall || call.Callee != fn.Name || ret.Op != ir.OpRet {
			continue
		}
		if len(fn.Params) != len(call.Operands) {
			continue
		}
		if len(ret.Operands) > 0 && ret.Operands[0] != call.ID {
			continue
		}
		if fn.ReturnType.Kind != ir.KindVoid && len(ret.Operands) == 0 {
			continue
		}
		sites = append(sites, tailSite{block: b.ID, callIdx: n - 2, callArgs: call.Operands})
	}
	if len(sites) == 0 {
		return 0
	}

	oldEntry := fn.Entry
	header := fn.NewBlock("tailcall.header")
	phiIdx := make([]int, len(fn.Params))
	for i, p := range fn.Params {
		idx := len(fn.Block(header).Instructions)
		fn.Emit(header, ir.Instruction{
			Op: ir.OpPhi, Type: p.Type,
			Operands:       []ir.ValueID{ir.ParamValue(i)},
			IncomingBlocks: []ir.BlockID{ir.NoBlock}, // from the initial (non-tail) call; params have no in-fn def to dominate
		})
		phiIdx[i] = idx
	}
	paramPhi := make([]ir.ValueID, len(fn.Params))
	for i, idx := range phiIdx {
		paramPhi[i] = fn.Block(header).Instructions[idx].ID
		replaceParamUses(fn, ir.ParamValue(i), paramPhi[i], header)
	}
	fn.Emit(header, ir.Instruction{Op: ir.OpBr, Type: ir.Void, Target: oldEntry})
	fn.Entry = header

	for _, site := range sites {
		b := fn.Block(site.block)
		b.Instructions = b.Instructions[:site.callIdx]
		fn.Emit(site.block, ir.Instruction{Op: ir.OpBr, Type: ir.Void, Target: header})
		for i, arg := range site.callArgs {
			inst := &fn.Block(header).Instructions[phiIdx[i]]
			inst.Operands = append(inst.Operands, arg)
			inst.IncomingBlocks = append(inst.IncomingBlocks, site.block)
		}
	}
	fn.MarkDomDirty()
	return len(sites)
}

// replaceParamUses rewrites every operand reference to old (a parameter
// pseudo-value) into replacement, everywhere in fn except within skipBlock
// (the header phi itself, which legitimately refers to the parameter as
// its "entered from outside" operand).
func replaceParamUses(fn *ir.Function, old, replacement ir.ValueID, skipBlock ir.BlockID) {
	for _, b := range fn.Blocks {
		if b.ID == skipBlock {
			continue
		}
		for i := range b.Instructions {
			inst := &b.Instructions[i]
			for j, op := range inst.Operands {
				if op == old {
					inst.Operands[j] = replacement
				}
			}
		}
	}
}
