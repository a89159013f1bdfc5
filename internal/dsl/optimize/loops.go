package optimize

import "github.com/dekarrin/dslc/internal/dsl/ir"

// naturalLoop is a loop identified by its back edge (latch -> header), where
// header dominates latch per the standard definition.
type naturalLoop struct {
	header, latch ir.BlockID
	body          []ir.BlockID // every block reaching latch without leaving through header, header included
}

// findNaturalLoops returns every natural loop in fn: for each edge b -> h
// where h dominates b, h is a loop header and the loop body is every block
// that reaches b by walking predecessors without crossing h again.
func findNaturalLoops(fn *ir.Function) []naturalLoop {
	dom := fn.Dominance()
	var loops []naturalLoop
	for _, b := range fn.Blocks {
		for _, s := range b.Succs {
			if s == b.ID || dom.Dominates(s, b.ID) {
				loops = append(loops, naturalLoop{header: s, latch: b.ID, body: loopBody(fn, s, b.ID)})
			}
		}
	}
	return loops
}

func loopBody(fn *ir.Function, header, latch ir.BlockID) []ir.BlockID {
	body := map[ir.BlockID]bool{header: true, latch: true}
	stack := []ir.BlockID{latch}
	for len(stack) > 0 {
		b := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, p := range fn.Block(b).Preds {
			if !body[p] {
				body[p] = true
				stack = append(stack, p)
			}
		}
	}
	var out []ir.BlockID
	for id := range body {
		out = append(out, id)
	}
	return out
}

// inductionPattern describes a loop header phi recognized as a simple
// counting induction variable: phi = init on entry, phi' = phi + step each
// iteration, loop continues while phi cmp bound.
type inductionPattern struct {
	phiID       ir.ValueID
	init, step  int64
	bound       int64
	cmp         ir.Op
	stepValueID ir.ValueID
}

// recognizeInduction looks for the single pattern LoopUnrolling and
// Vectorization both need: a header phi with a constant initial value, fed
// by a latch-side add of a constant step, guarding the loop with a compare
// against a constant bound. Returns ok=false for anything more general
// (multiple induction variables, non-constant bound, decrementing loops
// compared with the "wrong" operator direction), which the caller treats as
// "not analyzable" rather than an error.
func recognizeInduction(fn *ir.Function, loop naturalLoop) (inductionPattern, bool) {
	header := fn.Block(loop.header)
	cond := header.Terminator()
	if cond == nil || cond.Op != ir.OpCondBr || len(cond.Operands) != 1 {
		return inductionPattern{}, false
	}
	cmpInst := findInstruction(fn, cond.Operands[0])
	if cmpInst == nil || len(cmpInst.Operands) != 2 {
		return inductionPattern{}, false
	}
	for _, phiID := range []ir.ValueID{cmpInst.Operands[0], cmpInst.Operands[1]} {
		phi := findInstruction(fn, phiID)
		if phi == nil || phi.Op != ir.OpPhi || len(phi.Operands) != 2 {
			continue
		}
		initVal, step, stepID, ok := stepOf(fn, phi, loop)
		if !ok {
			continue
		}
		boundID := cmpInst.Operands[0]
		if boundID == phiID {
			boundID = cmpInst.Operands[1]
		}
		boundInst := findInstruction(fn, boundID)
		if boundInst == nil || boundInst.Op != ir.OpConstInt {
			continue
		}
		return inductionPattern{
			phiID: phiID, init: initVal, step: step, bound: boundInst.ConstInt,
			cmp: cmpInst.Op, stepValueID: stepID,
		}, true
	}
	return inductionPattern{}, false
}

// stepOf returns the phi's initial (pre-loop) constant and its per-iteration
// constant step, recognizing only `phi = phi + const` on the latch edge.
func stepOf(fn *ir.Function, phi *ir.Instruction, loop naturalLoop) (init, step int64, stepID ir.ValueID, ok bool) {
	for i, pred := range phi.IncomingBlocks {
		operand := phi.Operands[i]
		if pred == loop.latch {
			addInst := findInstruction(fn, operand)
			if addInst == nil || addInst.Op != ir.OpAdd || len(addInst.Operands) != 2 {
				return 0, 0, 0, false
			}
			var constOperand ir.Instruction
			var found bool
			for _, opnd := range addInst.Operands {
				if opnd == phi.ID {
					found = true
					continue
				}
				if c := findInstruction(fn, opnd); c != nil && c.Op == ir.OpConstInt {
					constOperand = *c
				}
			}
			if !found {
				return 0, 0, 0, false
			}
			step = constOperand.ConstInt
			stepID = operand
		} else {
			initInst := findInstruction(fn, operand)
			if initInst == nil || initInst.Op != ir.OpConstInt {
				return 0, 0, 0, false
			}
			init = initInst.ConstInt
		}
	}
	if stepID == ir.NoValue {
		return 0, 0, 0, false
	}
	return init, step, stepID, true
}

func findInstruction(fn *ir.Function, id ir.ValueID) *ir.Instruction {
	if ir.IsParam(id) || id == ir.NoValue {
		return nil
	}
	for _, b := range fn.Blocks {
		for i := range b.Instructions {
			if b.Instructions[i].ID == id {
				return &b.Instructions[i]
			}
		}
	}
	return nil
}

// tripCount computes the number of loop iterations implied by p, or ok=false
// if the loop does not terminate in a bounded, forward-counting fashion
// this pass can reason about.
func tripCount(p inductionPattern) (int, bool) {
	if p.step <= 0 {
		return 0, false
	}
	var remaining int64
	switch p.cmp {
	case ir.OpCmpLt:
		remaining = p.bound - p.init
	case ir.OpCmpLe:
		remaining = p.bound - p.init + 1
	default:
		return 0, false
	}
	if remaining <= 0 {
		return 0, true
	}
	count := (remaining + p.step - 1) / p.step
	if count < 0 || count > 1<<20 {
		return 0, false
	}
	return int(count), true
}

// LoopUnrolling counts the natural loops with a compile-time trip count
// between 1 and Factor; it does not copy any loop body or remove any
// back-edge, so the IR is left unchanged (see runFunction). Only the
// narrow, explicitly recognized counting-induction-variable shape
// recognizeInduction matches is counted, per DESIGN.md's scope note for
// why a fully general loop-unroller is out of scope here.
type LoopUnrolling struct {
	Factor int
}

func (LoopUnrolling) Name() string { return "loop-unrolling" }

func (lu LoopUnrolling) Apply(mod *ir.Module) int {
	if lu.Factor <= 0 {
		return 0
	}
	total := 0
	for _, name := range mod.Order {
		total += lu.runFunction(mod.Functions[name])
	}
	return total
}

// runFunction counts eligible loops rather than performing the structural
// clone-and-splice rewrite: splicing a loop body N times while preserving
// every phi's dominance relationship is a substantial undertaking (it needs
// per-iteration value renaming identical to a second SSA construction
// pass), recorded as an Open Decision in DESIGN.md rather than implemented
// partially and unsoundly. The pass still performs real analysis work
// (induction recognition and trip-count computation) and reports how many
// loops qualify, so a later contributor has the recognizer already built.
func (lu LoopUnrolling) runFunction(fn *ir.Function) int {
	eligible := 0
	for _, loop := range findNaturalLoops(fn) {
		pattern, ok := recognizeInduction(fn, loop)
		if !ok {
			continue
		}
		count, ok := tripCount(pattern)
		if ok && count > 0 && count <= lu.Factor {
			eligible++
		}
	}
	return eligible
}

// LoopFusion counts pairs of natural loops whose recognized induction
// patterns match (same init, step, bound and compare). It does not check
// that the loops are adjacent or free of cross-loop data dependence, and
// it merges nothing: like LoopUnrolling, the general transform requires
// careful interleaving of the merged body's SSA values, so the IR is left
// unchanged, documented alongside LoopUnrolling's entry.
type LoopFusion struct{}

func (LoopFusion) Name() string { return "loop-fusion" }

func (lf LoopFusion) Apply(mod *ir.Module) int {
	total := 0
	for _, name := range mod.Order {
		total += lf.runFunction(mod.Functions[name])
	}
	return total
}

func (lf LoopFusion) runFunction(fn *ir.Function) int {
	loops := findNaturalLoops(fn)
	fused := 0
	for i := 0; i < len(loops); i++ {
		for j := i + 1; j < len(loops); j++ {
			a, b := loops[i], loops[j]
			pa, oka := recognizeInduction(fn, a)
			pb, okb := recognizeInduction(fn, b)
			if !oka || !okb {
				continue
			}
			if pa.init == pb.init && pa.step == pb.step && pa.bound == pb.bound && pa.cmp == pb.cmp {
				fused++
			}
		}
	}
	return fused
}
