package codegen

import (
	"fmt"
	"math"

	"github.com/dekarrin/dslc/internal/dsl/ir"
)

// edgeKey identifies one control-flow edge a phi might need a copy on.
type edgeKey struct {
	pred ir.BlockID
	succ ir.BlockID
}

// phiCopy is "move src into dst's slot", derived from one (operand,
// incoming block) pair of an OpPhi.
type phiCopy struct {
	dst ir.ValueID
	src ir.ValueID
	typ ir.Type
}

// thunk is a synthetic, IR-invisible label that performs a critical edge's
// phi copies before jumping on to the real target. Emitted after every real
// block in the function so forward fixups can reference it like any other
// label.
type thunk struct {
	label  string
	copies []phiCopy
	target string
}

// collectPhiCopies walks every OpPhi in fn and sorts its incoming pairs
// into per-edge copy lists, plus a one-time entryCopies list for any pair
// whose IncomingBlock is ir.NoBlock (optimize.TailCallConversion's
// arrives-via-parameter marker on the loop header's own entry predecessor).
func collectPhiCopies(fn *ir.Function) (map[edgeKey][]phiCopy, []phiCopy) {
	edges := make(map[edgeKey][]phiCopy)
	var entry []phiCopy
	for _, b := range fn.Blocks {
		for _, inst := range b.Instructions {
			if inst.Op != ir.OpPhi {
				continue
			}
			for i, pred := range inst.IncomingBlocks {
				c := phiCopy{dst: inst.ID, src: inst.Operands[i], typ: inst.Type}
				if pred == ir.NoBlock {
					entry = append(entry, c)
					continue
				}
				k := edgeKey{pred: pred, succ: b.ID}
				edges[k] = append(edges[k], c)
			}
		}
	}
	return edges, entry
}

// copyValue moves src's slot value into dst's slot, routing through the
// scratch integer or float register per typ.
func (g *CodeGen) copyValue(f *frame, dst, src ir.ValueID, typ ir.Type) {
	if typ.IsFloat() {
		g.emitLoadSlotXMM(xmm0, f.dispOf(src))
		g.emitStoreSlotXMM(f.dispOf(dst), xmm0)
		return
	}
	g.emitLoadSlot(rax, f.dispOf(src))
	g.emitStoreSlot(f.dispOf(dst), rax)
}

// generateFunction lays out fn's prologue, blocks (in reverse-postorder, to
// maximize fallthrough between consecutive blocks), and terminators,
// appending any synthetic edge thunks after the real blocks.
func (g *CodeGen) generateFunction(fn *ir.Function, mod *ir.Module) error {
	f := buildFrame(fn)
	g.labels[funcLabel(fn.Name)] = len(g.code)

	if err := g.emitPrologue(f, fn); err != nil {
		return err
	}

	edgeCopies, entryCopies := collectPhiCopies(fn)
	for _, c := range entryCopies {
		g.copyValue(f, c.dst, c.src, c.typ)
	}

	rpo := fn.Dominance().ReversePostOrder()
	nextOf := make(map[ir.BlockID]ir.BlockID, len(rpo))
	for i, b := range rpo {
		if i+1 < len(rpo) {
			nextOf[b] = rpo[i+1]
		} else {
			nextOf[b] = ir.NoBlock
		}
	}

	var thunks []*thunk
	for _, bid := range rpo {
		b := fn.Block(bid)
		g.labels[blockLabel(fn.Name, bid)] = len(g.code)
		for _, inst := range b.Instructions {
			if inst.Op.IsTerminator() {
				continue
			}
			if err := g.selectInstruction(f, fn, mod, inst); err != nil {
				return err
			}
		}
		term := b.Terminator()
		if term == nil {
			return &UnsupportedConstruct{Function: fn.Name, Kind: "block with no terminator"}
		}
		if err := g.selectTerminator(f, fn, bid, term, edgeCopies, nextOf[bid], &thunks); err != nil {
			return err
		}
	}

	for _, t := range thunks {
		g.labels[t.label] = len(g.code)
		for _, c := range t.copies {
			g.copyValue(f, c.dst, c.src, c.typ)
		}
		g.emitJmpRel32(t.target)
	}

	return nil
}

// edgeTarget resolves the label a (pred,succ) edge should jump to: the
// block's own label directly if the edge carries no phi copies, otherwise a
// freshly synthesized thunk label that performs the copies first.
func (g *CodeGen) edgeTarget(fn *ir.Function, pred, succ ir.BlockID, edgeCopies map[edgeKey][]phiCopy, thunks *[]*thunk) string {
	copies := edgeCopies[edgeKey{pred: pred, succ: succ}]
	target := blockLabel(fn.Name, succ)
	if len(copies) == 0 {
		return target
	}
	g.edgeSeq++
	label := fmt.Sprintf("thunk:%s:%d", fn.Name, g.edgeSeq)
	*thunks = append(*thunks, &thunk{label: label, copies: copies, target: target})
	return label
}

// selectTerminator emits the machine code for b's terminator. next is the
// block immediately following b in reverse-postorder, used to skip an
// unconditional jump when control would fall through to it anyway.
func (g *CodeGen) selectTerminator(f *frame, fn *ir.Function, b ir.BlockID, term *ir.Instruction, edgeCopies map[edgeKey][]phiCopy, next ir.BlockID, thunks *[]*thunk) error {
	switch term.Op {
	case ir.OpRet:
		if len(term.Operands) > 0 {
			if fn.ReturnType.IsFloat() {
				g.emitLoadSlotXMM(xmm0, f.dispOf(term.Operands[0]))
			} else {
				g.emitLoadSlot(rax, f.dispOf(term.Operands[0]))
			}
		}
		g.emitEpilogue()
		return nil

	case ir.OpUnreachable:
		g.emitUd2()
		return nil

	case ir.OpBr:
		lbl := g.edgeTarget(fn, b, term.Target, edgeCopies, thunks)
		if term.Target == next && lbl == blockLabel(fn.Name, term.Target) {
			return nil // falls through, no jump needed
		}
		g.emitJmpRel32(lbl)
		return nil

	case ir.OpCondBr:
		g.emitLoadSlot(rax, f.dispOf(term.Operands[0]))
		g.emitTestRR(rax, rax)
		trueLbl := g.edgeTarget(fn, b, term.TrueBlock, edgeCopies, thunks)
		falseLbl := g.edgeTarget(fn, b, term.FalseBlock, edgeCopies, thunks)
		g.emitJccRel32(ccNE, trueLbl)
		if term.FalseBlock == next && falseLbl == blockLabel(fn.Name, term.FalseBlock) {
			return nil
		}
		g.emitJmpRel32(falseLbl)
		return nil

	default:
		return &UnsupportedConstruct{Function: fn.Name, Kind: "terminator " + term.Op.String()}
	}
}

// selectInstruction lowers one non-terminator instruction, reloading every
// operand from its slot and storing the result back to inst.ID's slot
// immediately, per frame.go's slot-per-value scope note.
func (g *CodeGen) selectInstruction(f *frame, fn *ir.Function, mod *ir.Module, inst ir.Instruction) error {
	switch inst.Op {
	case ir.OpConstInt:
		g.emitMovRegImm64(rax, uint64(inst.ConstInt))
		g.emitStoreSlot(f.dispOf(inst.ID), rax)
		return nil

	case ir.OpConstFloat:
		// Slots are untyped 8-byte cells; movabs loads the IEEE754 bit
		// pattern into rax and the plain integer store writes those same
		// bytes, so a later movsd load of this slot reads back the
		// identical double.
		g.emitMovRegImm64(rax, floatBits(inst.ConstFloat))
		g.emitStoreSlot(f.dispOf(inst.ID), rax)
		return nil

	case ir.OpConstString:
		off, ok := g.strOff[inst.StringIndex]
		if !ok {
			return &UnsupportedConstruct{Function: fn.Name, Kind: "ConstString referencing unknown string index"}
		}
		g.emitMovRegImm64(rax, 0) // patched to the data segment's base VA + off once known
		g.recordDataReloc(len(g.code)-8, off)
		g.emitStoreSlot(f.dispOf(inst.ID), rax)
		return nil

	case ir.OpAdd, ir.OpSub, ir.OpMul, ir.OpAnd, ir.OpOr, ir.OpXor:
		return g.selectBinary(f, fn, inst)

	case ir.OpDiv, ir.OpMod:
		return g.selectDivMod(f, fn, inst)

	case ir.OpShl, ir.OpShr:
		return g.selectShift(f, fn, inst)

	case ir.OpNeg:
		if inst.Type.IsFloat() {
			return &UnsupportedConstruct{Function: fn.Name, Kind: "float Neg", OperandTypes: []string{inst.Type.String()}}
		}
		g.emitLoadSlot(rax, f.dispOf(inst.Operands[0]))
		g.emitNeg(rax)
		g.emitStoreSlot(f.dispOf(inst.ID), rax)
		return nil

	case ir.OpNot:
		g.emitLoadSlot(rax, f.dispOf(inst.Operands[0]))
		g.emitNotR(rax)
		g.emitStoreSlot(f.dispOf(inst.ID), rax)
		return nil

	case ir.OpCmpEq, ir.OpCmpNe, ir.OpCmpLt, ir.OpCmpLe, ir.OpCmpGt, ir.OpCmpGe:
		return g.selectCompare(f, fn, inst)

	case ir.OpAlloca:
		g.emitLeaSlot(rax, slotDisp(f.allocaBacking[inst.ID]))
		g.emitStoreSlot(f.dispOf(inst.ID), rax)
		return nil

	case ir.OpLoad:
		if inst.Symbol != "" {
			return &UnsupportedConstruct{Function: fn.Name, Kind: "member load " + inst.Symbol, OperandTypes: []string{inst.Type.String()}}
		}
		g.emitLoadSlot(rax, f.dispOf(inst.Operands[0]))
		g.emitLoadMem(rax, rax, 0)
		g.emitStoreSlot(f.dispOf(inst.ID), rax)
		return nil

	case ir.OpStore:
		g.emitLoadSlot(rax, f.dispOf(inst.Operands[0])) // address
		g.emitLoadSlot(rcx, f.dispOf(inst.Operands[1])) // value
		g.emitStoreMem(rax, 0, rcx)
		return nil

	case ir.OpBoundsCheck:
		return g.selectBoundsCheck(f, fn, inst)

	case ir.OpIndex:
		// base + 8 (length prefix) + idx*8, then load the element.
		g.emitLoadSlot(rax, f.dispOf(inst.Operands[0]))
		g.emitLoadSlot(rdx, f.dispOf(inst.Operands[1]))
		g.emitShlImm(rdx, 3)
		g.emitArithRR(opAdd, rax, rdx)
		g.emitLoadMem(rax, rax, 8)
		g.emitStoreSlot(f.dispOf(inst.ID), rax)
		return nil

	case ir.OpCall:
		return g.selectCall(f, fn, mod, inst)

	case ir.OpIntrinsic:
		return g.selectIntrinsic(f, fn, mod, inst)

	case ir.OpPhi:
		// Phis are eliminated into predecessor-edge copies (collectPhiCopies);
		// the phi instruction itself defines no code at its own site.
		return nil

	default:
		return &UnsupportedConstruct{Function: fn.Name, Kind: "instruction " + inst.Op.String(), OperandTypes: []string{inst.Type.String()}}
	}
}

func floatBits(v float64) uint64 { return math.Float64bits(v) }

// selectBinary handles the commutative/simple two-operand integer and float
// arithmetic ops that map onto a single REX.W or SSE2 instruction.
func (g *CodeGen) selectBinary(f *frame, fn *ir.Function, inst ir.Instruction) error {
	if inst.Type.IsFloat() {
		var opcode byte
		switch inst.Op {
		case ir.OpAdd:
			opcode = xmmAdd
		case ir.OpSub:
			opcode = xmmSub
		case ir.OpMul:
			opcode = xmmMul
		default:
			return &UnsupportedConstruct{Function: fn.Name, Kind: "float " + inst.Op.String(), OperandTypes: []string{inst.Type.String()}}
		}
		g.emitLoadSlotXMM(xmm0, f.dispOf(inst.Operands[0]))
		g.emitLoadSlotXMM(xmm1, f.dispOf(inst.Operands[1]))
		g.emitXmmArith(opcode, xmm0, xmm1)
		g.emitStoreSlotXMM(f.dispOf(inst.ID), xmm0)
		return nil
	}

	var op arithOp
	switch inst.Op {
	case ir.OpAdd:
		op = opAdd
	case ir.OpSub:
		op = opSub
	case ir.OpAnd:
		op = opAnd
	case ir.OpOr:
		op = opOr
	case ir.OpXor:
		op = opXor
	}
	g.emitLoadSlot(rax, f.dispOf(inst.Operands[0]))
	g.emitLoadSlot(rcx, f.dispOf(inst.Operands[1]))
	if inst.Op == ir.OpMul {
		g.emitImulRR(rax, rcx)
	} else {
		g.emitArithRR(op, rax, rcx)
	}
	g.emitStoreSlot(f.dispOf(inst.ID), rax)
	return nil
}

// selectDivMod handles OpDiv/OpMod. Integer division branches on
// inst.Type.Unsigned the same way selectShift branches on its shift kind:
// idiv with cqo sign-extension for signed operands, div with rdx zeroed
// for unsigned ones. Float division goes through divsd.
func (g *CodeGen) selectDivMod(f *frame, fn *ir.Function, inst ir.Instruction) error {
	if inst.Type.IsFloat() {
		if inst.Op == ir.OpMod {
			return &UnsupportedConstruct{Function: fn.Name, Kind: "float Mod", OperandTypes: []string{inst.Type.String()}}
		}
		g.emitLoadSlotXMM(xmm0, f.dispOf(inst.Operands[0]))
		g.emitLoadSlotXMM(xmm1, f.dispOf(inst.Operands[1]))
		g.emitXmmArith(xmmDiv, xmm0, xmm1)
		g.emitStoreSlotXMM(f.dispOf(inst.ID), xmm0)
		return nil
	}
	g.emitLoadSlot(rax, f.dispOf(inst.Operands[0]))
	g.emitLoadSlot(rcx, f.dispOf(inst.Operands[1]))
	if inst.Type.Unsigned {
		g.emitArithRR(opXor, rdx, rdx)
		g.emitDivR(rcx)
	} else {
		g.emitCqo()
		g.emitIdivR(rcx)
	}
	if inst.Op == ir.OpMod {
		g.emitStoreSlot(f.dispOf(inst.ID), rdx)
	} else {
		g.emitStoreSlot(f.dispOf(inst.ID), rax)
	}
	return nil
}

// selectShift loads the shift amount into cl (the only operand D3 /ext
// accepts) then shifts the left-hand operand in place.
func (g *CodeGen) selectShift(f *frame, fn *ir.Function, inst ir.Instruction) error {
	g.emitLoadSlot(rax, f.dispOf(inst.Operands[0]))
	g.emitLoadSlot(rcx, f.dispOf(inst.Operands[1]))
	ext := byte(4)
	if inst.Op == ir.OpShr {
		ext = byte(7)
		if inst.Type.Unsigned {
			ext = byte(5)
		}
	}
	g.emitShiftCL(ext, rax)
	g.emitStoreSlot(f.dispOf(inst.ID), rax)
	return nil
}

// emitShlImm shifts r left by a fixed small immediate amount by loading it
// into cl first; used only for the constant element-size-8 shift in OpIndex.
func (g *CodeGen) emitShlImm(r reg, amount byte) {
	g.emitMovRegImm64(rcx, uint64(amount))
	g.emitShiftCL(4, r)
}

// selectCompare produces a 0/1 integer result in inst.ID's slot.
func (g *CodeGen) selectCompare(f *frame, fn *ir.Function, inst ir.Instruction) error {
	// Comparisons produce an integer 0/1 result (inst.Type), but their
	// signedness dispatch depends on the left-hand *operand* type.
	lhsType := instTypeOf(fn, inst.Operands[0])
	if lhsType.IsFloat() {
		g.emitLoadSlotXMM(xmm0, f.dispOf(inst.Operands[0]))
		g.emitLoadSlotXMM(xmm1, f.dispOf(inst.Operands[1]))
		g.emitComiSD(xmm0, xmm1)
		g.emitSetccAndExtend(floatCC(inst.Op), rax)
		g.emitStoreSlot(f.dispOf(inst.ID), rax)
		return nil
	}
	g.emitLoadSlot(rax, f.dispOf(inst.Operands[0]))
	g.emitLoadSlot(rcx, f.dispOf(inst.Operands[1]))
	g.emitArithRR(opCmp, rax, rcx)
	cc := intCC(inst.Op)
	if lhsType.Unsigned {
		cc = floatCC(inst.Op) // the unsigned below/above codes, as comisd uses
	}
	g.emitSetccAndExtend(cc, rax)
	g.emitStoreSlot(f.dispOf(inst.ID), rax)
	return nil
}

func intCC(op ir.Op) byte {
	switch op {
	case ir.OpCmpEq:
		return ccE
	case ir.OpCmpNe:
		return ccNE
	case ir.OpCmpLt:
		return ccL
	case ir.OpCmpLe:
		return ccLE
	case ir.OpCmpGt:
		return ccG
	default:
		return ccGE
	}
}

func floatCC(op ir.Op) byte {
	switch op {
	case ir.OpCmpEq:
		return ccE
	case ir.OpCmpNe:
		return ccNE
	case ir.OpCmpLt:
		return ccB
	case ir.OpCmpLe:
		return ccBE
	case ir.OpCmpGt:
		return ccA
	default:
		return ccAE
	}
}

// instTypeOf looks up v's type: the declared type for a parameter
// pseudo-value, otherwise its defining instruction's type, and I64 when
// neither is found.
func instTypeOf(fn *ir.Function, v ir.ValueID) ir.Type {
	if ir.IsParam(v) {
		i := ir.ParamIndex(v)
		if i < len(fn.Params) {
			return fn.Params[i].Type
		}
		return ir.I64
	}
	for _, b := range fn.Blocks {
		for _, inst := range b.Instructions {
			if inst.ID == v {
				return inst.Type
			}
		}
	}
	return ir.I64
}

// selectBoundsCheck traps via ud2 when idx is outside [0, length), where
// length is stored as an int64 at [base+0] (this backend's invented
// length-prefixed array convention, see DESIGN.md).
func (g *CodeGen) selectBoundsCheck(f *frame, fn *ir.Function, inst ir.Instruction) error {
	g.emitLoadSlot(rax, f.dispOf(inst.Operands[0])) // base
	g.emitLoadMem(rax, rax, 0)                      // length
	g.emitLoadSlot(rcx, f.dispOf(inst.Operands[1])) // idx
	g.emitArithRR(opCmp, rcx, rax)
	// idx (rcx) must be unsigned-below length (rax); jump over the 2-byte
	// ud2 trap when in range, fall through into it otherwise.
	g.emitJccRel8(ccB, 2)
	g.emitUd2()
	return nil
}

// selectCall dispatches OpCall: a direct call to another module function if
// mod declares one by that name, otherwise the name is treated as a
// standard-library builtin and lowered by selectBuiltin.
func (g *CodeGen) selectCall(f *frame, fn *ir.Function, mod *ir.Module, inst ir.Instruction) error {
	if _, ok := mod.Functions[inst.Callee]; ok {
		return g.selectDirectCall(f, fn, mod, inst)
	}
	return g.selectBuiltin(f, fn, inst.Callee, inst.Operands, inst.ID, inst.Type)
}

// selectDirectCall loads arguments into their ABI registers and calls;
// no register spilling is needed first since the slot-per-value model never
// keeps a live value in a register across an instruction boundary.
func (g *CodeGen) selectDirectCall(f *frame, fn *ir.Function, mod *ir.Module, inst ir.Instruction) error {
	callee := mod.Functions[inst.Callee]
	intRegs := g.Target.intArgRegs()
	floatRegs := g.Target.floatArgRegs()
	intIdx, floatIdx := 0, 0
	for i, arg := range inst.Operands {
		var pt ir.Type
		if i < len(callee.Params) {
			pt = callee.Params[i].Type
		} else {
			pt = instTypeOf(fn, arg)
		}
		if pt.IsFloat() {
			if floatIdx >= len(floatRegs) {
				return &UnsupportedConstruct{Function: fn.Name, Kind: "call with too many float args", OperandTypes: []string{pt.String()}}
			}
			g.emitLoadSlotXMM(floatRegs[floatIdx], f.dispOf(arg))
			floatIdx++
			continue
		}
		if intIdx >= len(intRegs) {
			return &UnsupportedConstruct{Function: fn.Name, Kind: "call with too many int args", OperandTypes: []string{pt.String()}}
		}
		g.emitLoadSlot(intRegs[intIdx], f.dispOf(arg))
		intIdx++
	}
	if sp := g.Target.shadowSpace(); sp > 0 {
		g.emitSubRspImm32(int32(sp))
	}
	g.emitCallRel32(funcLabel(inst.Callee))
	if sp := g.Target.shadowSpace(); sp > 0 {
		g.emitAddRspImm32(int32(sp))
	}
	if inst.ID != ir.NoValue {
		if inst.Type.IsFloat() {
			g.emitStoreSlotXMM(f.dispOf(inst.ID), floatReturnReg)
		} else {
			g.emitStoreSlot(f.dispOf(inst.ID), intReturnReg)
		}
	}
	return nil
}
