package codegen

import "github.com/dekarrin/dslc/internal/dsl/ir"

// frame assigns every value a function needs to address — its parameters
// and every instruction that defines a value — a fixed 8-byte stack slot.
//
// Scope note: a fuller backend would do graph-coloring register allocation
// with spill to stack slots when colors run out. A real interference-graph
// builder and coloring heuristic is substantial machinery to get right
// without ever compiling or running the result; this backend instead gives
// every value its own slot unconditionally (the degenerate "zero available
// colors" case of that same design) and reloads operands into scratch
// registers immediately before each instruction that consumes them. It is
// unconditionally correct and keeps instruction selection (select.go)
// simple to verify by inspection; the register-allocation upgrade is
// recorded as future work in DESIGN.md rather than attempted unverified.
type frame struct {
	paramSlot []int32 // index i -> slot for ir.ParamValue(i)
	valueSlot map[ir.ValueID]int32
	// allocaBacking holds the separate slot an OpAlloca's storage lives in;
	// the alloca's own value slot (in valueSlot) holds the *address* of
	// that backing slot, computed once at the alloca site via lea.
	allocaBacking map[ir.ValueID]int32
	size          int32 // total bytes reserved below rbp, 16-byte aligned
}

func buildFrame(fn *ir.Function) *frame {
	f := &frame{valueSlot: make(map[ir.ValueID]int32), allocaBacking: make(map[ir.ValueID]int32)}
	next := int32(0)

	for range fn.Params {
		f.paramSlot = append(f.paramSlot, next)
		next++
	}
	for _, b := range fn.Blocks {
		for _, inst := range b.Instructions {
			if inst.ID == ir.NoValue {
				continue
			}
			f.valueSlot[inst.ID] = next
			next++
			if inst.Op == ir.OpAlloca {
				f.allocaBacking[inst.ID] = next
				next++
			}
		}
	}

	size := next * 8
	if size%16 != 0 {
		size += 16 - size%16
	}
	f.size = size
	return f
}

// slotDisp returns the [rbp+disp] displacement for slot index i (slots live
// below rbp, in ascending index order starting at -8).
func slotDisp(i int32) int32 { return -8 * (i + 1) }

func (f *frame) dispOf(v ir.ValueID) int32 {
	if ir.IsParam(v) {
		return slotDisp(f.paramSlot[ir.ParamIndex(v)])
	}
	return slotDisp(f.valueSlot[v])
}

// emitPrologue pushes the caller's frame pointer, establishes this
// function's, and reserves stack space for every slot. ABI-passed
// parameters are then spilled from their argument registers into their
// slots, so every later reference — including the function's own
// recursive/tail-call phi rebinding (see optimize.TailCallConversion) —
// reads a parameter the same way: from its slot.
func (g *CodeGen) emitPrologue(f *frame, fn *ir.Function) error {
	g.emitPush(rbp)
	g.emitMovRegReg(rbp, rsp)
	if f.size > 0 {
		g.emitSubRspImm32(f.size)
	}

	intRegs := g.Target.intArgRegs()
	floatRegs := g.Target.floatArgRegs()
	intIdx, floatIdx := 0, 0
	for i, p := range fn.Params {
		disp := slotDisp(f.paramSlot[i])
		if p.Type.IsFloat() {
			if floatIdx >= len(floatRegs) {
				return &UnsupportedConstruct{Function: fn.Name, Kind: "too many float parameters for register-resident ABI", OperandTypes: []string{p.Type.String()}}
			}
			g.emitStoreSlotXMM(disp, floatRegs[floatIdx])
			floatIdx++
			continue
		}
		if intIdx >= len(intRegs) {
			return &UnsupportedConstruct{Function: fn.Name, Kind: "too many integer parameters for register-resident ABI", OperandTypes: []string{p.Type.String()}}
		}
		g.emitStoreSlot(disp, intRegs[intIdx])
		intIdx++
	}
	return nil
}

// emitEpilogue tears down the frame and returns; used at every OpRet
// (lowering ends a function whose last statement isn't `ret` with an
// explicit bare OpRet).
func (g *CodeGen) emitEpilogue() {
	g.emitMovRegReg(rsp, rbp)
	g.emitPop(rbp)
	g.emitRet()
}

// emitSubRspImm32 emits `sub rsp, imm32` (REX.W 81 /5 id).
func (g *CodeGen) emitSubRspImm32(v int32) {
	g.emitByte(rex(true, false, false, false))
	g.emitByte(0x81)
	g.emitByte(modrm(3, 5, rsp.n))
	g.emitI32(v)
}

// emitAddRspImm32 emits `add rsp, imm32` (REX.W 81 /0 id), used to release
// the Microsoft x64 shadow space reserved before a call.
func (g *CodeGen) emitAddRspImm32(v int32) {
	g.emitByte(rex(true, false, false, false))
	g.emitByte(0x81)
	g.emitByte(modrm(3, 0, rsp.n))
	g.emitI32(v)
}
