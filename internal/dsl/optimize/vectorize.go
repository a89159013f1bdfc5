package optimize

import "github.com/dekarrin/dslc/internal/dsl/ir"

// Vectorization looks, in each natural loop with a recognized counting
// induction variable, for an OpAdd, OpMul or OpSub that takes as an operand
// the result of an OpIndex(base, induction variable), and widens that
// instruction's declared type to a vector of defaultLaneCount lanes. It
// marks at most one instruction per loop. It does not check the step, a
// store back to the array, other accesses to base, or loop-carried
// dependences, and the code generator (C9) has no vector instructions, so
// no SIMD code is produced for the marked instruction.
type Vectorization struct{}

func (Vectorization) Name() string { return "vectorization" }

const defaultLaneCount = 4

func (v Vectorization) Apply(mod *ir.Module) int {
	total := 0
	for _, name := range mod.Order {
		total += v.runFunction(mod.Functions[name])
	}
	return total
}

func (v Vectorization) runFunction(fn *ir.Function) int {
	changed := 0
	for _, loop := range findNaturalLoops(fn) {
		pattern, ok := recognizeInduction(fn, loop)
		if !ok {
			continue
		}
		if v.widenBody(fn, loop, pattern) {
			changed++
		}
	}
	return changed
}

// widenBody scans the loop's body blocks other than the header, in no
// particular order. In the first block holding an add/mul/sub that uses an
// `index(base, iv)` result computed earlier in the same block, it widens the
// last such instruction's Type to a vector of defaultLaneCount lanes and
// returns true; a block whose match is already a vector is skipped. No
// load or store is matched, and nothing else about the loop is checked
// (see DESIGN.md).
func (v Vectorization) widenBody(fn *ir.Function, loop naturalLoop, pattern inductionPattern) bool {
	for _, blockID := range loop.body {
		if blockID == loop.header {
			continue
		}
		b := fn.Block(blockID)
		var indexVal ir.ValueID = ir.NoValue
		var binopIdx = -1
		for i, inst := range b.Instructions {
			if inst.Op == ir.OpIndex && len(inst.Operands) == 2 && inst.Operands[1] == pattern.phiID {
				indexVal = inst.ID
			}
			if inst.Op == ir.OpAdd || inst.Op == ir.OpMul || inst.Op == ir.OpSub {
				for _, op := range inst.Operands {
					if op == indexVal {
						binopIdx = i
					}
				}
			}
		}
		if binopIdx < 0 {
			continue
		}
		inst := &b.Instructions[binopIdx]
		if inst.Type.Kind == ir.KindVector {
			continue // already widened
		}
		inst.Type = ir.Vector(inst.Type, defaultLaneCount)
		return true
	}
	return false
}
