package optimize

import "github.com/dekarrin/dslc/internal/dsl/ir"

// DeadBlockPruning is the standalone, on-demand form of the reachability
// sweep DeadCodeElimination already runs inline; exposed separately so
// Tier 3's LinkTimeOptimization (and any future interprocedural caller) can
// invoke just the block-reachability half without re-running value DCE.
type DeadBlockPruning struct{}

func (DeadBlockPruning) Name() string { return "dead-block-pruning" }

func (DeadBlockPruning) Apply(mod *ir.Module) int {
	total := 0
	for _, name := range mod.Order {
		total += pruneUnreachableBlocks(mod.Functions[name])
	}
	return total
}

// GlobalValueNumbering assigns a structural key (opcode + operand values +
// constant payload) to every pure instruction and replaces later
// instructions sharing a dominating earlier instruction's key with a
// reference to that earlier value, subsuming local common-subexpression
// elimination with one that reasons across the whole function via the
// dominator tree rather than only within a single block.
type GlobalValueNumbering struct{}

func (GlobalValueNumbering) Name() string { return "global-value-numbering" }

func (gvn GlobalValueNumbering) Apply(mod *ir.Module) int {
	total := 0
	for _, name := range mod.Order {
		total += gvn.runFunction(mod.Functions[name])
	}
	return total
}

type valueKey struct {
	op          ir.Op
	o0, o1      ir.ValueID
	constInt    int64
	constFloat  float64
	stringIndex int
	symbol      string
}

func keyOf(inst ir.Instruction) (valueKey, bool) {
	if hasSideEffect(inst.Op) || inst.Op == ir.OpPhi || inst.ID == ir.NoValue {
		return valueKey{}, false
	}
	k := valueKey{op: inst.Op, constInt: inst.ConstInt, constFloat: inst.ConstFloat,
		stringIndex: inst.StringIndex, symbol: inst.Symbol}
	if len(inst.Operands) > 0 {
		k.o0 = inst.Operands[0]
	}
	if len(inst.Operands) > 1 {
		k.o1 = inst.Operands[1]
	}
	return k, true
}

func (gvn GlobalValueNumbering) runFunction(fn *ir.Function) int {
	dom := fn.Dominance()
	seen := make(map[valueKey]struct {
		id    ir.ValueID
		block ir.BlockID
	})
	replace := make(map[ir.ValueID]ir.ValueID)
	changed := 0

	for _, blockID := range dom.ReversePostOrder() {
		b := fn.Block(blockID)
		for i := range b.Instructions {
			inst := &b.Instructions[i]
			for j, op := range inst.Operands {
				if r, ok := replace[op]; ok {
					inst.Operands[j] = r
				}
			}
			key, ok := keyOf(*inst)
			if !ok {
				continue
			}
			if prior, ok := seen[key]; ok && (dom.Dominates(prior.block, b.ID) || prior.block == b.ID) {
				replace[inst.ID] = prior.id
				changed++
				continue
			}
			seen[key] = struct {
				id    ir.ValueID
				block ir.BlockID
			}{inst.ID, b.ID}
		}
	}
	if changed == 0 {
		return 0
	}
	// A value numbered away in an earlier block can be referenced by a
	// later one processed before its own replacement was recorded only if
	// it appears after its replacement in RPO, which dominance guarantees
	// against; a second sweep still catches any chain of replacements.
	for _, b := range fn.Blocks {
		for i := range b.Instructions {
			inst := &b.Instructions[i]
			for j, op := range inst.Operands {
				if r, ok := replace[op]; ok {
					inst.Operands[j] = r
				}
			}
		}
	}
	return changed
}

// AliasInfo reports whether two pointer-typed SSA values can be proven
// never to alias. Without a slot-aware memory model, the only provable
// case is two allocations from distinct OpAlloca sites (stack slots are
// always disjoint); anything else is conservatively "may alias".
type AliasInfo struct {
	fn *ir.Function
}

// NewAliasInfo builds an alias query interface over fn.
func NewAliasInfo(fn *ir.Function) AliasInfo { return AliasInfo{fn: fn} }

// MustNotAlias reports whether a and b are provably distinct memory
// locations.
func (a AliasInfo) MustNotAlias(x, y ir.ValueID) bool {
	if x == y {
		return false
	}
	xa, xok := a.allocaOf(x)
	ya, yok := a.allocaOf(y)
	return xok && yok && xa != ya
}

func (a AliasInfo) allocaOf(v ir.ValueID) (ir.ValueID, bool) {
	inst := findInstruction(a.fn, v)
	if inst == nil || inst.Op != ir.OpAlloca {
		return ir.NoValue, false
	}
	return v, true
}

// EscapeInfo reports whether an OpAlloca's address is ever passed to a
// call or stored into another location, the two ways a local's address can
// outlive its stack frame. A local that does not escape is a candidate for
// the code generator to keep in a register instead of spilling to memory.
type EscapeInfo struct {
	escapes map[ir.ValueID]bool
}

// AnalyzeEscapes computes EscapeInfo for every OpAlloca in fn.
func AnalyzeEscapes(fn *ir.Function) EscapeInfo {
	info := EscapeInfo{escapes: make(map[ir.ValueID]bool)}
	for _, b := range fn.Blocks {
		for _, inst := range b.Instructions {
			switch inst.Op {
			case ir.OpCall, ir.OpIntrinsic:
				for _, op := range inst.Operands {
					info.escapes[op] = true
				}
			case ir.OpStore:
				if len(inst.Operands) > 1 {
					info.escapes[inst.Operands[1]] = true
				}
			}
		}
	}
	return info
}

// Escapes reports whether v (an OpAlloca result) is known to escape its
// defining function.
func (e EscapeInfo) Escapes(v ir.ValueID) bool { return e.escapes[v] }

// Devirtualization rewrites an OpCall whose Callee names a function-typed
// value with a single statically-determinable target into a direct call to
// that target. The source language has no indirect call expression of its
// own (every CallExpr/CallStmt already names a callee identifier
// literally), so there is no indirect-call site for this analysis to act
// on yet; it is kept as a documented no-op ready for the day a function-
// pointer or interface-dispatch construct is added to the front end,
// rather than invented speculatively now.
type Devirtualization struct{}

func (Devirtualization) Name() string { return "devirtualization" }

func (Devirtualization) Apply(mod *ir.Module) int { return 0 }
