package codegen

// reg is a machine register. Integer registers 0-15 map directly onto the
// x86-64 ModRM/REX encoding; SSE registers are numbered separately and
// distinguished by the xmm flag so the two spaces never collide.
type reg struct {
	n    byte
	xmm  bool
	name string
}

var (
	rax = reg{n: 0, name: "rax"}
	rcx = reg{n: 1, name: "rcx"}
	rdx = reg{n: 2, name: "rdx"}
	rbx = reg{n: 3, name: "rbx"}
	rsp = reg{n: 4, name: "rsp"}
	rbp = reg{n: 5, name: "rbp"}
	rsi = reg{n: 6, name: "rsi"}
	rdi = reg{n: 7, name: "rdi"}
	r8  = reg{n: 8, name: "r8"}
	r9  = reg{n: 9, name: "r9"}
	r10 = reg{n: 10, name: "r10"}
	r11 = reg{n: 11, name: "r11"}

	xmm0 = reg{n: 0, xmm: true, name: "xmm0"}
	xmm1 = reg{n: 1, xmm: true, name: "xmm1"}
	xmm2 = reg{n: 2, xmm: true, name: "xmm2"}
	xmm3 = reg{n: 3, xmm: true, name: "xmm3"}
	xmm4 = reg{n: 4, xmm: true, name: "xmm4"}
	xmm5 = reg{n: 5, xmm: true, name: "xmm5"}
	xmm6 = reg{n: 6, xmm: true, name: "xmm6"}
	xmm7 = reg{n: 7, xmm: true, name: "xmm7"}
)

// emitByte/emitBytes/emitU32/emitU64 follow the same raw-buffer append
// idiom as the grounding backend's CodeGen: every encoder below is built
// from these four primitives, matching a hand-assembled table-driven
// approach rather than calling into an external assembler library.
func (g *CodeGen) emitByte(b byte) { g.code = append(g.code, b) }

func (g *CodeGen) emitBytes(bs ...byte) { g.code = append(g.code, bs...) }

func (g *CodeGen) emitU32(v uint32) {
	g.code = append(g.code, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

func (g *CodeGen) emitU64(v uint64) {
	for i := 0; i < 8; i++ {
		g.code = append(g.code, byte(v>>(8*i)))
	}
}

func (g *CodeGen) emitI32(v int32) { g.emitU32(uint32(v)) }

// rex builds a REX prefix byte. w selects the 64-bit operand size, r/x/b
// are the high bits of the reg/index/rm fields respectively.
func rex(w, r, x, b bool) byte {
	v := byte(0x40)
	if w {
		v |= 0x08
	}
	if r {
		v |= 0x04
	}
	if x {
		v |= 0x02
	}
	if b {
		v |= 0x01
	}
	return v
}

func modrm(mod, regField, rm byte) byte {
	return mod<<6 | (regField&7)<<3 | (rm & 7)
}

// emitMovRegImm64 loads a 64-bit immediate into an integer register
// (REX.W + B8+r movabs).
func (g *CodeGen) emitMovRegImm64(r reg, v uint64) {
	g.emitByte(rex(true, false, false, r.n >= 8))
	g.emitByte(0xB8 + (r.n & 7))
	g.emitU64(v)
}

// emitMovRegReg copies src into dst (REX.W + 89 /r, dst is rm).
func (g *CodeGen) emitMovRegReg(dst, src reg) {
	g.emitByte(rex(true, src.n >= 8, false, dst.n >= 8))
	g.emitByte(0x89)
	g.emitByte(modrm(3, src.n, dst.n))
}

// emitLoadSlot loads the 8 bytes at [rbp+disp] into r.
func (g *CodeGen) emitLoadSlot(r reg, disp int32) {
	g.emitByte(rex(true, r.n >= 8, false, false))
	g.emitByte(0x8B)
	g.emitByte(modrm(2, r.n, rbp.n))
	g.emitI32(disp)
}

// emitStoreSlot stores r into the 8 bytes at [rbp+disp].
func (g *CodeGen) emitStoreSlot(disp int32, r reg) {
	g.emitByte(rex(true, r.n >= 8, false, false))
	g.emitByte(0x89)
	g.emitByte(modrm(2, r.n, rbp.n))
	g.emitI32(disp)
}

// emitLoadSlotXMM/emitStoreSlotXMM do the SSE2 scalar-double equivalents
// (F2 0F 10 /r movsd for load, F2 0F 11 /r for store).
func (g *CodeGen) emitLoadSlotXMM(x reg, disp int32) {
	g.emitByte(0xF2)
	if x.n >= 8 {
		g.emitByte(rex(false, true, false, false))
	}
	g.emitBytes(0x0F, 0x10)
	g.emitByte(modrm(2, x.n, rbp.n))
	g.emitI32(disp)
}

func (g *CodeGen) emitStoreSlotXMM(disp int32, x reg) {
	g.emitByte(0xF2)
	if x.n >= 8 {
		g.emitByte(rex(false, true, false, false))
	}
	g.emitBytes(0x0F, 0x11)
	g.emitByte(modrm(2, x.n, rbp.n))
	g.emitI32(disp)
}

// emitLeaSlot computes the address of [rbp+disp] into r (REX.W 8D /r).
func (g *CodeGen) emitLeaSlot(r reg, disp int32) {
	g.emitByte(rex(true, r.n >= 8, false, false))
	g.emitByte(0x8D)
	g.emitByte(modrm(2, r.n, rbp.n))
	g.emitI32(disp)
}

// emitLoadMem loads 8 bytes from [base+disp] into dst.
func (g *CodeGen) emitLoadMem(dst, base reg, disp int32) {
	g.emitByte(rex(true, dst.n >= 8, false, base.n >= 8))
	g.emitByte(0x8B)
	g.emitByte(modrm(2, dst.n, base.n))
	g.emitI32(disp)
}

// emitStoreMem stores src into [base+disp].
func (g *CodeGen) emitStoreMem(base reg, disp int32, src reg) {
	g.emitByte(rex(true, src.n >= 8, false, base.n >= 8))
	g.emitByte(0x89)
	g.emitByte(modrm(2, src.n, base.n))
	g.emitI32(disp)
}

func (g *CodeGen) emitPush(r reg) {
	if r.n >= 8 {
		g.emitByte(rex(false, false, false, true))
	}
	g.emitByte(0x50 + (r.n & 7))
}

func (g *CodeGen) emitPop(r reg) {
	if r.n >= 8 {
		g.emitByte(rex(false, false, false, true))
	}
	g.emitByte(0x58 + (r.n & 7))
}

// arithOp is the register-form opcode for a REX.W + op /r integer binary
// instruction between two general-purpose registers (dst op= src).
type arithOp struct {
	opcode byte // e.g. 0x01 for add, 0x29 for sub
}

var (
	opAdd = arithOp{0x01}
	opSub = arithOp{0x29}
	opAnd = arithOp{0x21}
	opOr  = arithOp{0x09}
	opXor = arithOp{0x31}
	opCmp = arithOp{0x39}
)

// emitTestRR emits `test dst, src` (REX.W 85 /r), setting ZF iff the
// bitwise AND of the two operands is zero; used with the same operand
// twice to test a single register against zero without destroying it.
func (g *CodeGen) emitTestRR(dst, src reg) {
	g.emitByte(rex(true, src.n >= 8, false, dst.n >= 8))
	g.emitByte(0x85)
	g.emitByte(modrm(3, src.n, dst.n))
}

func (g *CodeGen) emitArithRR(op arithOp, dst, src reg) {
	g.emitByte(rex(true, src.n >= 8, false, dst.n >= 8))
	g.emitByte(op.opcode)
	g.emitByte(modrm(3, src.n, dst.n))
}

// emitImulRR multiplies dst by src, result in dst (0F AF /r).
func (g *CodeGen) emitImulRR(dst, src reg) {
	g.emitByte(rex(true, dst.n >= 8, false, src.n >= 8))
	g.emitBytes(0x0F, 0xAF)
	g.emitByte(modrm(3, dst.n, src.n))
}

// emitCqo then emitIdivR perform a signed 128-bit/64-bit division:
// sign-extend rax into rdx (cqo), then divide rdx:rax by src, quotient in
// rax, remainder in rdx.
func (g *CodeGen) emitCqo() {
	g.emitByte(rex(true, false, false, false))
	g.emitByte(0x99)
}

func (g *CodeGen) emitIdivR(src reg) {
	g.emitByte(rex(true, false, false, src.n >= 8))
	g.emitByte(0xF7)
	g.emitByte(modrm(3, 7, src.n))
}

// emitDivR performs an unsigned 128-bit/64-bit division: rdx:rax divided by
// src, quotient in rax, remainder in rdx (F7 /6). Callers must zero rdx
// first instead of sign-extending with cqo.
func (g *CodeGen) emitDivR(src reg) {
	g.emitByte(rex(true, false, false, src.n >= 8))
	g.emitByte(0xF7)
	g.emitByte(modrm(3, 6, src.n))
}

// emitNeg negates r in place (F7 /3).
func (g *CodeGen) emitNeg(r reg) {
	g.emitByte(rex(true, false, false, r.n >= 8))
	g.emitByte(0xF7)
	g.emitByte(modrm(3, 3, r.n))
}

// emitNotR computes the bitwise complement of r in place (F7 /2).
func (g *CodeGen) emitNotR(r reg) {
	g.emitByte(rex(true, false, false, r.n >= 8))
	g.emitByte(0xF7)
	g.emitByte(modrm(3, 2, r.n))
}

// emitShiftCL emits a shift-by-CL instruction (D3 /ext); CL must already hold
// the shift count. ext selects the shift family: 4=SHL, 5=SHR, 7=SAR.
func (g *CodeGen) emitShiftCL(ext byte, dst reg) {
	g.emitByte(rex(true, false, false, dst.n >= 8))
	g.emitByte(0xD3)
	g.emitByte(modrm(3, ext, dst.n))
}

// emitSetccAndExtend sets al to 0/1 based on cc, then movzx dst, al widens it to a
// full register so boolean results behave like any other integer value.
func (g *CodeGen) emitSetccAndExtend(cc byte, dst reg) {
	g.emitBytes(0x0F, cc, modrm(3, 0, 0)) // setcc al
	g.emitByte(rex(true, dst.n >= 8, false, false))
	g.emitBytes(0x0F, 0xB6) // movzx
	g.emitByte(modrm(3, dst.n, 0))
}

const (
	ccE  = 0x94
	ccNE = 0x95
	ccL  = 0x9C
	ccLE = 0x9E
	ccG  = 0x9F
	ccGE = 0x9D

	// Unsigned/float condition codes: comisd sets CF (not SF/OF) for
	// "below", so a float less-than test uses ccB, not ccL.
	ccB  = 0x92
	ccBE = 0x96
	ccA  = 0x97
	ccAE = 0x93

	// Sign-flag codes, used by selectBuiltin's integer abs/min/max.
	ccS  = 0x98
	ccNS = 0x99
)

// emitXmmArith emits a scalar-double SSE2 arithmetic instruction (F2 0F op
// /r), dst = dst op src.
func (g *CodeGen) emitXmmArith(opcode byte, dst, src reg) {
	g.emitByte(0xF2)
	if dst.n >= 8 || src.n >= 8 {
		g.emitByte(rex(false, dst.n >= 8, false, src.n >= 8))
	}
	g.emitBytes(0x0F, opcode)
	g.emitByte(modrm(3, dst.n, src.n))
}

const (
	xmmAdd  = 0x58
	xmmSub  = 0x5C
	xmmMul  = 0x59
	xmmDiv  = 0x5E
	xmmMin  = 0x5D
	xmmMax  = 0x5F
	xmmComI = 0x2F // comisd (ordered compare, sets EFLAGS)
)

// emitRoundSD emits SSE4.1 roundsd (66 0F 3A 0B /r ib): dst = round(src,
// mode). mode 1 truncates toward -inf (floor), 2 toward +inf (ceil), 0
// rounds to nearest.
func (g *CodeGen) emitRoundSD(dst, src reg, mode byte) {
	g.emitByte(0x66)
	if dst.n >= 8 || src.n >= 8 {
		g.emitByte(rex(false, dst.n >= 8, false, src.n >= 8))
	}
	g.emitBytes(0x0F, 0x3A, 0x0B)
	g.emitByte(modrm(3, dst.n, src.n))
	g.emitByte(mode)
}

// emitComiSD compares dst against src (ordered double compare) and sets
// EFLAGS accordingly (66 0F 2F /r); ZF/PF/CF then feed the same Jcc/SETcc
// sequences used for integer comparisons, using the unsigned condition
// codes since comisd sets CF (not SF/OF) on "less than".
func (g *CodeGen) emitComiSD(dst, src reg) {
	g.emitByte(0x66)
	if dst.n >= 8 || src.n >= 8 {
		g.emitByte(rex(false, dst.n >= 8, false, src.n >= 8))
	}
	g.emitBytes(0x0F, 0x2F)
	g.emitByte(modrm(3, dst.n, src.n))
}

func (g *CodeGen) emitSqrtSD(dst, src reg) {
	g.emitByte(0xF2)
	if dst.n >= 8 || src.n >= 8 {
		g.emitByte(rex(false, dst.n >= 8, false, src.n >= 8))
	}
	g.emitBytes(0x0F, 0x51)
	g.emitByte(modrm(3, dst.n, src.n))
}

// emitCvtsi2sd converts the integer register src to a double in xmm dst.
func (g *CodeGen) emitCvtsi2sd(dst, src reg) {
	g.emitByte(0xF2)
	g.emitByte(rex(true, dst.n >= 8, false, src.n >= 8))
	g.emitBytes(0x0F, 0x2A)
	g.emitByte(modrm(3, dst.n, src.n))
}

// emitRet emits a near return (C3).
func (g *CodeGen) emitRet() { g.emitByte(0xC3) }

// emitJmpRel32/emitJccRel32/emitCallRel32 all emit a 5- or 6-byte
// instruction with a trailing 4-byte placeholder displacement and record a
// fixup for patchFixups to patch once every label's final offset is known.
func (g *CodeGen) emitJmpRel32(label string) {
	g.emitByte(0xE9)
	g.recordFixup(label, 4)
	g.emitI32(0)
}

// emitJccRel32 takes one of the ccXX SETcc-form condition codes (0x9X) and
// emits the corresponding Jcc rel32 (0F 8X — same low nibble, high nibble
// 0x80 instead of 0x90).
func (g *CodeGen) emitJccRel32(cc byte, label string) {
	g.emitBytes(0x0F, cc-0x10)
	g.recordFixup(label, 4)
	g.emitI32(0)
}

func (g *CodeGen) emitCallRel32(label string) {
	g.emitByte(0xE8)
	g.recordFixup(label, 4)
	g.emitI32(0)
}

func (g *CodeGen) emitSyscall() { g.emitBytes(0x0F, 0x05) }

// emitJccRel8 emits a short conditional jump over exactly n following
// bytes (cc is a SETcc-form code as with emitJccRel32; short Jcc is 7X).
func (g *CodeGen) emitJccRel8(cc byte, n byte) {
	g.emitBytes(cc-0x20, n)
}

// emitUd2 emits the guaranteed-invalid-opcode trap instruction, used as the
// target of a failed bounds check.
func (g *CodeGen) emitUd2() { g.emitBytes(0x0F, 0x0B) }
