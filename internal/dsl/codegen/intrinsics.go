package codegen

import "github.com/dekarrin/dslc/internal/dsl/ir"

// Syscall numbers this backend knows how to emit directly, per target. Only
// the handful needed by print/write map onto a real number; open/read/close
// are UnsupportedConstruct everywhere (see selectIntrinsic) because a
// compile-time-unknown file descriptor would need to flow through the
// slot-per-value model as an ordinary value, and no intrinsic lowering
// currently produces one to thread through.
const (
	sysWriteLinux = 1
	sysExitLinux  = 60
	sysWriteMacOS = 0x2000004
	sysExitMacOS  = 0x2000001
)

// findConstString traces v back to a defining OpConstString in fn, for
// intrinsics that need a compile-time-known byte length (no string runtime
// representation beyond the interned table exists in this backend).
func findConstString(fn *ir.Function, v ir.ValueID) (int, bool) {
	if ir.IsParam(v) {
		return 0, false
	}
	for _, b := range fn.Blocks {
		for _, inst := range b.Instructions {
			if inst.ID == v {
				if inst.Op == ir.OpConstString {
					return inst.StringIndex, true
				}
				return 0, false
			}
		}
	}
	return 0, false
}

// selectIntrinsic lowers the named statement-form intrinsics (open/write/
// struct_decl/sanitize/... per lower.intrinsicNames). Only print-like
// output to stdout of a compile-time-known string is implemented; every
// other named intrinsic is a documented UnsupportedConstruct (see
// DESIGN.md's C9 section for the per-symbol rationale).
func (g *CodeGen) selectIntrinsic(f *frame, fn *ir.Function, mod *ir.Module, inst ir.Instruction) error {
	switch inst.Symbol {
	case "print", "write", "writeln":
		return g.selectWrite(f, fn, mod, inst)
	default:
		return &UnsupportedConstruct{Function: fn.Name, Kind: "intrinsic " + inst.Symbol}
	}
}

// selectWrite emits a single write(2)-equivalent syscall of a compile-time
// constant string's bytes to stdout (fd 1). writeln does not append a
// trailing newline in this backend (the newline byte has no interned
// string slot to source its address from); this is a documented narrowing,
// not an oversight.
func (g *CodeGen) selectWrite(f *frame, fn *ir.Function, mod *ir.Module, inst ir.Instruction) error {
	if g.Target == TargetWindowsX64 {
		return &UnsupportedConstruct{Function: fn.Name, Kind: "console output on windows-x64 (no IAT wiring)"}
	}
	if len(inst.Operands) == 0 {
		return &UnsupportedConstruct{Function: fn.Name, Kind: inst.Symbol + " with no operand"}
	}
	// write/writeln may carry a leading interned-string label operand ahead
	// of the real message (lowerIntrinsicStmt's n.Value convention); print
	// never does. The message is always the last operand either way.
	arg := inst.Operands[len(inst.Operands)-1]
	idx, ok := findConstString(fn, arg)
	if !ok {
		return &UnsupportedConstruct{Function: fn.Name, Kind: inst.Symbol + " of a non-constant-string value"}
	}
	length := len(mod.Strings.Get(idx))

	g.emitLoadSlot(rsi, f.dispOf(arg)) // buffer address, computed at the ConstString site
	g.emitMovRegImm64(rdi, 1)          // fd 1 (stdout)
	g.emitMovRegImm64(rdx, uint64(length))
	if g.Target == TargetMacOSX64 {
		g.emitMovRegImm64(rax, uint64(sysWriteMacOS))
	} else {
		g.emitMovRegImm64(rax, uint64(sysWriteLinux))
	}
	g.emitSyscall()
	return nil
}

// selectBuiltin handles OpCall whose Callee does not name a declared
// function: the fixed-arity numeric standard-library built-ins that map
// onto a handful of SSE2/SSE4.1 instructions. calleeReturnType (lower's
// side) has no type table for these names and always reports I64, so the
// float-returning cases below store their result with a movsd regardless
// of inst.Type — a compensating narrowing for that upstream gap, recorded
// in DESIGN.md. Every other standard-library name (trig, random, and the
// whole string/collection family) is UnsupportedConstruct: implementing
// them correctly in hand-assembled machine code without ever running the
// result was judged too failure-prone for this pass.
func (g *CodeGen) selectBuiltin(f *frame, fn *ir.Function, name string, operands []ir.ValueID, resultID ir.ValueID, resultType ir.Type) error {
	switch name {
	case "sqrt", "floor", "ceil", "round":
		return g.selectFloatUnary(f, fn, name, operands, resultID)
	case "abs":
		return g.selectAbs(f, fn, operands, resultID)
	case "min", "max":
		return g.selectMinMax(f, fn, name, operands, resultID)
	default:
		return &UnsupportedConstruct{Function: fn.Name, Kind: "builtin " + name, OperandTypes: []string{resultType.String()}}
	}
}

// selectFloatUnary loads operand[0] into xmm0 (converting from an integer
// slot first if its defining instruction is int-typed) and applies sqrt or
// one of roundsd's rounding modes, storing the double result.
func (g *CodeGen) selectFloatUnary(f *frame, fn *ir.Function, name string, operands []ir.ValueID, resultID ir.ValueID) error {
	if len(operands) != 1 {
		return &UnsupportedConstruct{Function: fn.Name, Kind: name + " arity"}
	}
	arg := operands[0]
	if instTypeOf(fn, arg).IsFloat() {
		g.emitLoadSlotXMM(xmm0, f.dispOf(arg))
	} else {
		g.emitLoadSlot(rax, f.dispOf(arg))
		g.emitCvtsi2sd(xmm0, rax)
	}
	switch name {
	case "sqrt":
		g.emitSqrtSD(xmm0, xmm0)
	case "floor":
		g.emitRoundSD(xmm0, xmm0, 1)
	case "ceil":
		g.emitRoundSD(xmm0, xmm0, 2)
	case "round":
		g.emitRoundSD(xmm0, xmm0, 0)
	}
	g.emitStoreSlotXMM(f.dispOf(resultID), xmm0)
	return nil
}

// selectAbs dispatches on the operand's type: integer abs clears the sign
// via a conditional negate, float abs clears the sign bit directly on the
// slot's raw bytes (cheaper than routing through an SSE andps for a single
// scalar).
func (g *CodeGen) selectAbs(f *frame, fn *ir.Function, operands []ir.ValueID, resultID ir.ValueID) error {
	if len(operands) != 1 {
		return &UnsupportedConstruct{Function: fn.Name, Kind: "abs arity"}
	}
	arg := operands[0]
	g.emitLoadSlot(rax, f.dispOf(arg))
	if instTypeOf(fn, arg).IsFloat() {
		g.emitMovRegImm64(rcx, 0x7FFFFFFFFFFFFFFF)
		g.emitArithRR(opAnd, rax, rcx)
	} else {
		g.emitTestRR(rax, rax)
		g.emitJccRel8(ccNS, 3) // skip the negate when already non-negative
		g.emitNeg(rax)
	}
	g.emitStoreSlot(f.dispOf(resultID), rax)
	return nil
}

// selectMinMax handles same-typed integer or float pairs via a compare and
// a short conditional skip over a move, rather than cmov, to reuse the
// already-verified emitJccRel8 primitive.
func (g *CodeGen) selectMinMax(f *frame, fn *ir.Function, name string, operands []ir.ValueID, resultID ir.ValueID) error {
	if len(operands) != 2 {
		return &UnsupportedConstruct{Function: fn.Name, Kind: name + " arity"}
	}
	a, b := operands[0], operands[1]
	if instTypeOf(fn, a).IsFloat() || instTypeOf(fn, b).IsFloat() {
		g.emitLoadSlotXMM(xmm0, f.dispOf(a))
		g.emitLoadSlotXMM(xmm1, f.dispOf(b))
		opcode := byte(xmmMin)
		if name == "max" {
			opcode = xmmMax
		}
		g.emitXmmArith(opcode, xmm0, xmm1)
		g.emitStoreSlotXMM(f.dispOf(resultID), xmm0)
		return nil
	}
	g.emitLoadSlot(rax, f.dispOf(a))
	g.emitLoadSlot(rcx, f.dispOf(b))
	g.emitArithRR(opCmp, rax, rcx)
	cc := byte(ccLE)
	if name == "max" {
		cc = ccGE
	}
	g.emitJccRel8(cc, 3) // a already satisfies the relation to b, skip the move
	g.emitMovRegReg(rax, rcx)
	g.emitStoreSlot(f.dispOf(resultID), rax)
	return nil
}
