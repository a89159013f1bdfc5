package codegen

import (
	"testing"

	"github.com/dekarrin/dslc/internal/dsl/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Generate_simpleArithmeticPrologueEpilogue(t *testing.T) {
	fn := ir.NewFunction("add", []ir.Param{{Name: "a", Type: ir.I64}, {Name: "b", Type: ir.I64}}, ir.I64)
	entry := fn.NewBlock("entry")
	sum := fn.Emit(entry, ir.Instruction{Op: ir.OpAdd, Type: ir.I64, Operands: []ir.ValueID{ir.ParamValue(0), ir.ParamValue(1)}})
	fn.Emit(entry, ir.Instruction{Op: ir.OpRet, Type: ir.I64, Operands: []ir.ValueID{sum}})

	mod := ir.NewModule()
	mod.AddFunction(fn)

	art, err := Generate(mod, TargetLinuxX64)
	require.NoError(t, err)
	require.NotEmpty(t, art.Code)

	// push rbp; mov rbp, rsp
	assert.Equal(t, byte(0x55), art.Code[0])
	assert.Equal(t, []byte{0x48, 0x89, 0xE5}, art.Code[1:4])
	// sub rsp, imm32 follows since this function defines slots
	assert.Equal(t, byte(0x48), art.Code[4])
	assert.Equal(t, byte(0x81), art.Code[5])
	// the function ends in a ret (0xC3) somewhere in the stream
	assert.Contains(t, art.Code, byte(0xC3))
}

func Test_Generate_conditionalBranchResolvesLabels(t *testing.T) {
	fn := ir.NewFunction("branchy", nil, ir.I64)
	entry := fn.NewBlock("entry")
	a := fn.Emit(entry, ir.Instruction{Op: ir.OpConstInt, Type: ir.I64, ConstInt: 1})
	b := fn.Emit(entry, ir.Instruction{Op: ir.OpConstInt, Type: ir.I64, ConstInt: 2})
	cond := fn.Emit(entry, ir.Instruction{Op: ir.OpCmpLt, Type: ir.I64, Operands: []ir.ValueID{a, b}})

	thenB := fn.NewBlock("then")
	elseB := fn.NewBlock("else")
	mergeB := fn.NewBlock("merge")
	fn.Emit(entry, ir.Instruction{Op: ir.OpCondBr, Type: ir.Void, Operands: []ir.ValueID{cond}, TrueBlock: thenB, FalseBlock: elseB})

	tv := fn.Emit(thenB, ir.Instruction{Op: ir.OpConstInt, Type: ir.I64, ConstInt: 10})
	fn.Emit(thenB, ir.Instruction{Op: ir.OpBr, Type: ir.Void, Target: mergeB})

	ev := fn.Emit(elseB, ir.Instruction{Op: ir.OpConstInt, Type: ir.I64, ConstInt: 20})
	fn.Emit(elseB, ir.Instruction{Op: ir.OpBr, Type: ir.Void, Target: mergeB})

	phi := fn.Emit(mergeB, ir.Instruction{
		Op: ir.OpPhi, Type: ir.I64,
		Operands:       []ir.ValueID{tv, ev},
		IncomingBlocks: []ir.BlockID{thenB, elseB},
	})
	fn.Emit(mergeB, ir.Instruction{Op: ir.OpRet, Type: ir.I64, Operands: []ir.ValueID{phi}})

	mod := ir.NewModule()
	mod.AddFunction(fn)

	art, err := Generate(mod, TargetLinuxX64)
	require.NoError(t, err)
	require.NoError(t, ir.Verify(fn))

	// Every rel32 fixup must have resolved to a non-placeholder label; a
	// completely unresolved forward jump would leave its 4-byte field at
	// zero, which a real jmp/jcc to a block past the entry never is once
	// patched (every block label lands at a nonzero code offset here).
	foundJcc := false
	for i := 0; i+1 < len(art.Code); i++ {
		if art.Code[i] == 0x0F && art.Code[i+1] == ccNE-0x10 {
			foundJcc = true
			require.LessOrEqual(t, i+6, len(art.Code))
			assert.NotEqual(t, []byte{0, 0, 0, 0}, art.Code[i+2:i+6], "jne rel32 field left unpatched")
		}
	}
	assert.True(t, foundJcc, "expected a jne encoding for the OpCondBr")
}

func Test_Generate_selfRecursionEntryPhiCopies(t *testing.T) {
	fn := ir.NewFunction("loopy", []ir.Param{{Name: "n", Type: ir.I64}}, ir.I64)
	header := fn.NewBlock("tailcall.header")
	body := fn.NewBlock("body")

	phi := fn.Emit(header, ir.Instruction{
		Op: ir.OpPhi, Type: ir.I64,
		Operands:       []ir.ValueID{ir.ParamValue(0), ir.NoValue},
		IncomingBlocks: []ir.BlockID{ir.NoBlock, body},
	})
	fn.Emit(header, ir.Instruction{Op: ir.OpBr, Type: ir.Void, Target: body})

	dec := fn.Emit(body, ir.Instruction{Op: ir.OpConstInt, Type: ir.I64, ConstInt: 1})
	next := fn.Emit(body, ir.Instruction{Op: ir.OpSub, Type: ir.I64, Operands: []ir.ValueID{phi, dec}})
	fn.Block(header).Instructions[0].Operands[1] = next // close the back-edge operand
	fn.Emit(body, ir.Instruction{Op: ir.OpBr, Type: ir.Void, Target: header})

	mod := ir.NewModule()
	mod.AddFunction(fn)

	_, err := Generate(mod, TargetLinuxX64)
	require.NoError(t, err)
}

func Test_Generate_boundsCheckEmitsTrap(t *testing.T) {
	fn := ir.NewFunction("at", []ir.Param{{Name: "arr", Type: ir.Ptr}, {Name: "i", Type: ir.I64}}, ir.I64)
	entry := fn.NewBlock("entry")
	fn.Emit(entry, ir.Instruction{Op: ir.OpBoundsCheck, Type: ir.Void, Operands: []ir.ValueID{ir.ParamValue(0), ir.ParamValue(1)}})
	idx := fn.Emit(entry, ir.Instruction{Op: ir.OpIndex, Type: ir.I64, Operands: []ir.ValueID{ir.ParamValue(0), ir.ParamValue(1)}})
	fn.Emit(entry, ir.Instruction{Op: ir.OpRet, Type: ir.I64, Operands: []ir.ValueID{idx}})

	mod := ir.NewModule()
	mod.AddFunction(fn)

	art, err := Generate(mod, TargetLinuxX64)
	require.NoError(t, err)

	foundUd2 := false
	for i := 0; i+1 < len(art.Code); i++ {
		if art.Code[i] == 0x0F && art.Code[i+1] == 0x0B {
			foundUd2 = true
		}
	}
	assert.True(t, foundUd2, "expected a ud2 trap from the bounds check")
}

func Test_Generate_signedDivUsesIdivWithCqo(t *testing.T) {
	fn := ir.NewFunction("div", []ir.Param{{Name: "a", Type: ir.I64}, {Name: "b", Type: ir.I64}}, ir.I64)
	entry := fn.NewBlock("entry")
	q := fn.Emit(entry, ir.Instruction{Op: ir.OpDiv, Type: ir.I64, Operands: []ir.ValueID{ir.ParamValue(0), ir.ParamValue(1)}})
	fn.Emit(entry, ir.Instruction{Op: ir.OpRet, Type: ir.I64, Operands: []ir.ValueID{q}})

	mod := ir.NewModule()
	mod.AddFunction(fn)

	art, err := Generate(mod, TargetLinuxX64)
	require.NoError(t, err)

	// cqo (48 99) immediately followed by idiv rcx (48 F7 F9, reg field 7)
	assert.Contains(t, string(art.Code), string([]byte{0x48, 0x99, 0x48, 0xF7, 0xF9}))
}

func Test_Generate_unsignedDivZeroesRdxAndUsesDiv(t *testing.T) {
	fn := ir.NewFunction("udiv", []ir.Param{{Name: "a", Type: ir.U64}, {Name: "b", Type: ir.U64}}, ir.U64)
	entry := fn.NewBlock("entry")
	q := fn.Emit(entry, ir.Instruction{Op: ir.OpDiv, Type: ir.U64, Operands: []ir.ValueID{ir.ParamValue(0), ir.ParamValue(1)}})
	fn.Emit(entry, ir.Instruction{Op: ir.OpRet, Type: ir.U64, Operands: []ir.ValueID{q}})

	mod := ir.NewModule()
	mod.AddFunction(fn)

	art, err := Generate(mod, TargetLinuxX64)
	require.NoError(t, err)

	// xor rdx, rdx (48 31 D2) immediately followed by div rcx (48 F7 F1, reg field 6)
	assert.Contains(t, string(art.Code), string([]byte{0x48, 0x31, 0xD2, 0x48, 0xF7, 0xF1}))
	// must not contain a signed idiv rcx (reg field 7) for this function
	assert.NotContains(t, string(art.Code), string([]byte{0x48, 0xF7, 0xF9}))
}

func Test_Generate_unsignedModUsesDivAndRdxResult(t *testing.T) {
	fn := ir.NewFunction("umod", []ir.Param{{Name: "a", Type: ir.U64}, {Name: "b", Type: ir.U64}}, ir.U64)
	entry := fn.NewBlock("entry")
	r := fn.Emit(entry, ir.Instruction{Op: ir.OpMod, Type: ir.U64, Operands: []ir.ValueID{ir.ParamValue(0), ir.ParamValue(1)}})
	fn.Emit(entry, ir.Instruction{Op: ir.OpRet, Type: ir.U64, Operands: []ir.ValueID{r}})

	mod := ir.NewModule()
	mod.AddFunction(fn)

	art, err := Generate(mod, TargetLinuxX64)
	require.NoError(t, err)
	assert.Contains(t, string(art.Code), string([]byte{0x48, 0x31, 0xD2, 0x48, 0xF7, 0xF1}))
}

func Test_Generate_memberLoadIsUnsupported(t *testing.T) {
	fn := ir.NewFunction("getField", []ir.Param{{Name: "s", Type: ir.Ptr}}, ir.I64)
	entry := fn.NewBlock("entry")
	v := fn.Emit(entry, ir.Instruction{Op: ir.OpLoad, Type: ir.I64, Operands: []ir.ValueID{ir.ParamValue(0)}, Symbol: "field"})
	fn.Emit(entry, ir.Instruction{Op: ir.OpRet, Type: ir.I64, Operands: []ir.ValueID{v}})

	mod := ir.NewModule()
	mod.AddFunction(fn)

	_, err := Generate(mod, TargetLinuxX64)
	require.Error(t, err)
	var uc *UnsupportedConstruct
	require.ErrorAs(t, err, &uc)
	assert.Contains(t, uc.Kind, "member load")
}

func Test_Generate_tooManyIntParamsIsUnsupported(t *testing.T) {
	params := make([]ir.Param, 7)
	for i := range params {
		params[i] = ir.Param{Name: "p", Type: ir.I64}
	}
	fn := ir.NewFunction("manyArgs", params, ir.Void)
	entry := fn.NewBlock("entry")
	fn.Emit(entry, ir.Instruction{Op: ir.OpRet, Type: ir.Void})

	mod := ir.NewModule()
	mod.AddFunction(fn)

	_, err := Generate(mod, TargetLinuxX64)
	require.Error(t, err)
	var uc *UnsupportedConstruct
	require.ErrorAs(t, err, &uc)
	assert.Contains(t, uc.Kind, "integer parameters")
}

func Test_Generate_printConstantStringEmitsWriteSyscall(t *testing.T) {
	fn := ir.NewFunction("greet", nil, ir.Void)
	entry := fn.NewBlock("entry")
	mod := ir.NewModule()
	idx := mod.Strings.Intern("hi")
	s := fn.Emit(entry, ir.Instruction{Op: ir.OpConstString, Type: ir.Ptr, StringIndex: idx})
	fn.Emit(entry, ir.Instruction{Op: ir.OpIntrinsic, Type: ir.Void, Symbol: "print", Operands: []ir.ValueID{s}})
	fn.Emit(entry, ir.Instruction{Op: ir.OpRet, Type: ir.Void})
	mod.AddFunction(fn)

	art, err := Generate(mod, TargetLinuxX64)
	require.NoError(t, err)
	assert.Equal(t, []byte("hi\x00"), art.Data)

	foundSyscall := false
	for i := 0; i+1 < len(art.Code); i++ {
		if art.Code[i] == 0x0F && art.Code[i+1] == 0x05 {
			foundSyscall = true
		}
	}
	assert.True(t, foundSyscall, "expected a syscall instruction for print")
}

func Test_Generate_printNonConstantIsUnsupported(t *testing.T) {
	fn := ir.NewFunction("greet", []ir.Param{{Name: "n", Type: ir.I64}}, ir.Void)
	entry := fn.NewBlock("entry")
	fn.Emit(entry, ir.Instruction{Op: ir.OpIntrinsic, Type: ir.Void, Symbol: "print", Operands: []ir.ValueID{ir.ParamValue(0)}})
	fn.Emit(entry, ir.Instruction{Op: ir.OpRet, Type: ir.Void})

	mod := ir.NewModule()
	mod.AddFunction(fn)

	_, err := Generate(mod, TargetLinuxX64)
	require.Error(t, err)
	var uc *UnsupportedConstruct
	require.ErrorAs(t, err, &uc)
}

func Test_Generate_sqrtBuiltinUsesRoundAndSqrtEncoding(t *testing.T) {
	fn := ir.NewFunction("root", []ir.Param{{Name: "x", Type: ir.F64}}, ir.I64) // return type defaults to I64 upstream; codegen overrides to a double store
	entry := fn.NewBlock("entry")
	call := fn.Emit(entry, ir.Instruction{Op: ir.OpCall, Type: ir.I64, Callee: "sqrt", Operands: []ir.ValueID{ir.ParamValue(0)}})
	fn.Emit(entry, ir.Instruction{Op: ir.OpRet, Type: ir.I64, Operands: []ir.ValueID{call}})

	mod := ir.NewModule()
	mod.AddFunction(fn)

	art, err := Generate(mod, TargetLinuxX64)
	require.NoError(t, err)

	foundSqrt := false
	for i := 0; i+1 < len(art.Code); i++ {
		if art.Code[i] == 0x0F && art.Code[i+1] == 0x51 {
			foundSqrt = true
		}
	}
	assert.True(t, foundSqrt, "expected a sqrtsd encoding")
}

func Test_Generate_sinBuiltinIsUnsupported(t *testing.T) {
	fn := ir.NewFunction("trig", []ir.Param{{Name: "x", Type: ir.F64}}, ir.I64)
	entry := fn.NewBlock("entry")
	call := fn.Emit(entry, ir.Instruction{Op: ir.OpCall, Type: ir.I64, Callee: "sin", Operands: []ir.ValueID{ir.ParamValue(0)}})
	fn.Emit(entry, ir.Instruction{Op: ir.OpRet, Type: ir.I64, Operands: []ir.ValueID{call}})

	mod := ir.NewModule()
	mod.AddFunction(fn)

	_, err := Generate(mod, TargetLinuxX64)
	require.Error(t, err)
	var uc *UnsupportedConstruct
	require.ErrorAs(t, err, &uc)
	assert.Contains(t, uc.Kind, "sin")
}
