package optimize

import (
	"testing"

	"github.com/dekarrin/dslc/internal/dsl/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ConstantFolding_reducesArithmeticChain(t *testing.T) {
	fn := ir.NewFunction("f", nil, ir.I64)
	entry := fn.NewBlock("entry")
	two := fn.Emit(entry, ir.Instruction{Op: ir.OpConstInt, Type: ir.I64, ConstInt: 2})
	three := fn.Emit(entry, ir.Instruction{Op: ir.OpConstInt, Type: ir.I64, ConstInt: 3})
	four := fn.Emit(entry, ir.Instruction{Op: ir.OpConstInt, Type: ir.I64, ConstInt: 4})
	mul := fn.Emit(entry, ir.Instruction{Op: ir.OpMul, Type: ir.I64, Operands: []ir.ValueID{three, four}})
	add := fn.Emit(entry, ir.Instruction{Op: ir.OpAdd, Type: ir.I64, Operands: []ir.ValueID{two, mul}})
	fn.Emit(entry, ir.Instruction{Op: ir.OpRet, Type: ir.Void, Operands: []ir.ValueID{add}})

	mod := ir.NewModule()
	mod.AddFunction(fn)

	n := ConstantFolding{}.Apply(mod)
	assert.Equal(t, 2, n) // mul then add fold

	require.NoError(t, ir.Verify(fn))
	last := fn.Block(entry).Instructions[len(fn.Block(entry).Instructions)-2]
	assert.Equal(t, ir.OpConstInt, last.Op)
	assert.Equal(t, int64(14), last.ConstInt)
}

func Test_DeadCodeElimination_removesUnusedPureValue(t *testing.T) {
	fn := ir.NewFunction("f", nil, ir.Void)
	entry := fn.NewBlock("entry")
	fn.Emit(entry, ir.Instruction{Op: ir.OpConstInt, Type: ir.I64, ConstInt: 99}) // unused
	fn.Emit(entry, ir.Instruction{Op: ir.OpRet, Type: ir.Void})

	mod := ir.NewModule()
	mod.AddFunction(fn)
	n := DeadCodeElimination{}.Apply(mod)
	assert.Equal(t, 1, n)
	require.NoError(t, ir.Verify(fn))
	assert.Len(t, fn.Block(entry).Instructions, 1)
}

func Test_DeadCodeElimination_keepsSideEffectingIntrinsic(t *testing.T) {
	fn := ir.NewFunction("f", nil, ir.Void)
	entry := fn.NewBlock("entry")
	s := fn.Emit(entry, ir.Instruction{Op: ir.OpConstString, Type: ir.Ptr, StringIndex: 0})
	fn.Emit(entry, ir.Instruction{Op: ir.OpIntrinsic, Type: ir.Void, Symbol: "print", Operands: []ir.ValueID{s}})
	fn.Emit(entry, ir.Instruction{Op: ir.OpRet, Type: ir.Void})

	mod := ir.NewModule()
	mod.AddFunction(fn)
	n := DeadCodeElimination{}.Apply(mod)
	assert.Equal(t, 0, n)
	require.NoError(t, ir.Verify(fn))
	assert.Len(t, fn.Block(entry).Instructions, 3)
}

func Test_DeadCodeElimination_prunesUnreachableBlock(t *testing.T) {
	fn := ir.NewFunction("f", nil, ir.Void)
	entry := fn.NewBlock("entry")
	dead := fn.NewBlock("dead")
	_ = dead
	fn.Emit(entry, ir.Instruction{Op: ir.OpRet, Type: ir.Void})
	// "dead" has no predecessor and is never branched to.
	fn.Emit(dead, ir.Instruction{Op: ir.OpRet, Type: ir.Void})

	mod := ir.NewModule()
	mod.AddFunction(fn)
	n := DeadCodeElimination{}.Apply(mod)
	assert.GreaterOrEqual(t, n, 1)
	require.NoError(t, ir.Verify(fn))
	assert.Len(t, fn.Blocks, 1)
}

func Test_BranchSimplification_foldsConstantCondition(t *testing.T) {
	fn := ir.NewFunction("f", nil, ir.Void)
	entry := fn.NewBlock("entry")
	thenB := fn.NewBlock("then")
	elseB := fn.NewBlock("else")
	cond := fn.Emit(entry, ir.Instruction{Op: ir.OpConstInt, Type: ir.U8, ConstInt: 1})
	fn.Emit(entry, ir.Instruction{Op: ir.OpCondBr, Type: ir.Void, Operands: []ir.ValueID{cond}, TrueBlock: thenB, FalseBlock: elseB})
	fn.Emit(thenB, ir.Instruction{Op: ir.OpRet, Type: ir.Void})
	fn.Emit(elseB, ir.Instruction{Op: ir.OpRet, Type: ir.Void})

	mod := ir.NewModule()
	mod.AddFunction(fn)
	n := BranchSimplification{}.Apply(mod)
	assert.Equal(t, 1, n)
	require.NoError(t, ir.Verify(fn))
	term := fn.Block(entry).Terminator()
	assert.Equal(t, ir.OpBr, term.Op)
	assert.Equal(t, thenB, term.Target)
}

func Test_BoundsCheckElimination_removesDominatedDuplicate(t *testing.T) {
	fn := ir.NewFunction("f", nil, ir.Void)
	entry := fn.NewBlock("entry")
	base := ir.ParamValue(0)
	idx := ir.ParamValue(1)
	fn.Params = []ir.Param{{Name: "base", Type: ir.Ptr}, {Name: "idx", Type: ir.I64}}
	fn.Emit(entry, ir.Instruction{Op: ir.OpBoundsCheck, Type: ir.Void, Operands: []ir.ValueID{base, idx}})
	v1 := fn.Emit(entry, ir.Instruction{Op: ir.OpIndex, Type: ir.I64, Operands: []ir.ValueID{base, idx}})
	fn.Emit(entry, ir.Instruction{Op: ir.OpBoundsCheck, Type: ir.Void, Operands: []ir.ValueID{base, idx}})
	v2 := fn.Emit(entry, ir.Instruction{Op: ir.OpIndex, Type: ir.I64, Operands: []ir.ValueID{base, idx}})
	fn.Emit(entry, ir.Instruction{Op: ir.OpRet, Type: ir.Void, Operands: []ir.ValueID{v2}})
	_ = v1

	mod := ir.NewModule()
	mod.AddFunction(fn)
	n := BoundsCheckElimination{}.Apply(mod)
	assert.Equal(t, 1, n)
	require.NoError(t, ir.Verify(fn))
	checks := 0
	for _, inst := range fn.Block(entry).Instructions {
		if inst.Op == ir.OpBoundsCheck {
			checks++
		}
	}
	assert.Equal(t, 1, checks)
}

func Test_FootprintCompression_densifiesValueIDs(t *testing.T) {
	fn := ir.NewFunction("f", nil, ir.Void)
	entry := fn.NewBlock("entry")
	a := fn.Emit(entry, ir.Instruction{Op: ir.OpConstInt, Type: ir.I64, ConstInt: 1})
	fn.Emit(entry, ir.Instruction{Op: ir.OpConstInt, Type: ir.I64, ConstInt: 2}) // will be dropped by DCE first
	c := fn.Emit(entry, ir.Instruction{Op: ir.OpAdd, Type: ir.I64, Operands: []ir.ValueID{a, a}})
	fn.Emit(entry, ir.Instruction{Op: ir.OpRet, Type: ir.Void, Operands: []ir.ValueID{c}})

	mod := ir.NewModule()
	mod.AddFunction(fn)
	DeadCodeElimination{}.Apply(mod)
	n := FootprintCompression{}.Apply(mod)
	assert.GreaterOrEqual(t, n, 1)
	require.NoError(t, ir.Verify(fn))
	for i, inst := range fn.Block(entry).Instructions {
		if inst.ID == ir.NoValue {
			continue
		}
		assert.Equal(t, ir.ValueID(i), inst.ID)
	}
}

func Test_TailCallConversion_rewritesSelfRecursion(t *testing.T) {
	// Fn f(n) { if n == 0 { ret n } ret call f(n-1) }
	fn := ir.NewFunction("f", []ir.Param{{Name: "n", Type: ir.I64}}, ir.I64)
	entry := fn.NewBlock("entry")
	thenB := fn.NewBlock("then")
	elseB := fn.NewBlock("else")

	n0 := fn.Emit(entry, ir.Instruction{Op: ir.OpConstInt, Type: ir.I64, ConstInt: 0})
	cmp := fn.Emit(entry, ir.Instruction{Op: ir.OpCmpEq, Type: ir.U8, Operands: []ir.ValueID{ir.ParamValue(0), n0}})
	fn.Emit(entry, ir.Instruction{Op: ir.OpCondBr, Type: ir.Void, Operands: []ir.ValueID{cmp}, TrueBlock: thenB, FalseBlock: elseB})

	fn.Emit(thenB, ir.Instruction{Op: ir.OpRet, Type: ir.Void, Operands: []ir.ValueID{ir.ParamValue(0)}})

	one := fn.Emit(elseB, ir.Instruction{Op: ir.OpConstInt, Type: ir.I64, ConstInt: 1})
	nMinus1 := fn.Emit(elseB, ir.Instruction{Op: ir.OpSub, Type: ir.I64, Operands: []ir.ValueID{ir.ParamValue(0), one}})
	call := fn.Emit(elseB, ir.Instruction{Op: ir.OpCall, Type: ir.I64, Callee: "f", Operands: []ir.ValueID{nMinus1}})
	fn.Emit(elseB, ir.Instruction{Op: ir.OpRet, Type: ir.Void, Operands: []ir.ValueID{call}})

	mod := ir.NewModule()
	mod.AddFunction(fn)
	n := TailCallConversion{}.Apply(mod)
	assert.Equal(t, 1, n)
	require.NoError(t, ir.Verify(fn))

	var sawCall bool
	for _, b := range fn.Blocks {
		for _, inst := range b.Instructions {
			if inst.Op == ir.OpCall {
				sawCall = true
			}
		}
	}
	assert.False(t, sawCall, "tail call should have become a branch")

	header := fn.Block(fn.Entry)
	require.NotEmpty(t, header.Instructions)
	assert.Equal(t, ir.OpPhi, header.Instructions[0].Op)
	assert.Len(t, header.Instructions[0].Operands, 2) // entry param + tail-call argument
}

func Test_GlobalValueNumbering_mergesDominatedDuplicate(t *testing.T) {
	fn := ir.NewFunction("f", []ir.Param{{Name: "a", Type: ir.I64}, {Name: "b", Type: ir.I64}}, ir.I64)
	entry := fn.NewBlock("entry")
	sum1 := fn.Emit(entry, ir.Instruction{Op: ir.OpAdd, Type: ir.I64, Operands: []ir.ValueID{ir.ParamValue(0), ir.ParamValue(1)}})
	sum2 := fn.Emit(entry, ir.Instruction{Op: ir.OpAdd, Type: ir.I64, Operands: []ir.ValueID{ir.ParamValue(0), ir.ParamValue(1)}})
	combined := fn.Emit(entry, ir.Instruction{Op: ir.OpMul, Type: ir.I64, Operands: []ir.ValueID{sum1, sum2}})
	fn.Emit(entry, ir.Instruction{Op: ir.OpRet, Type: ir.Void, Operands: []ir.ValueID{combined}})

	mod := ir.NewModule()
	mod.AddFunction(fn)
	n := GlobalValueNumbering{}.Apply(mod)
	assert.Equal(t, 1, n)
	require.NoError(t, ir.Verify(fn))
}

func Test_Pipeline_tier1FoldsAndCompacts(t *testing.T) {
	fn := ir.NewFunction("f", nil, ir.I64)
	entry := fn.NewBlock("entry")
	a := fn.Emit(entry, ir.Instruction{Op: ir.OpConstInt, Type: ir.I64, ConstInt: 2})
	b := fn.Emit(entry, ir.Instruction{Op: ir.OpConstInt, Type: ir.I64, ConstInt: 3})
	sum := fn.Emit(entry, ir.Instruction{Op: ir.OpAdd, Type: ir.I64, Operands: []ir.ValueID{a, b}})
	fn.Emit(entry, ir.Instruction{Op: ir.OpConstInt, Type: ir.I64, ConstInt: 0}) // dead
	fn.Emit(entry, ir.Instruction{Op: ir.OpRet, Type: ir.Void, Operands: []ir.ValueID{sum}})

	mod := ir.NewModule()
	mod.AddFunction(fn)

	p := NewPipeline(1, Options{})
	stats := p.Run(mod)
	assert.Greater(t, stats.Total(), 0)
	require.NoError(t, ir.VerifyModule(mod))
}

func Test_EscapeInfo_detectsCallArgumentEscape(t *testing.T) {
	fn := ir.NewFunction("f", nil, ir.Void)
	entry := fn.NewBlock("entry")
	local := fn.Emit(entry, ir.Instruction{Op: ir.OpAlloca, Type: ir.Ptr, Symbol: "x"})
	notEscaping := fn.Emit(entry, ir.Instruction{Op: ir.OpAlloca, Type: ir.Ptr, Symbol: "y"})
	fn.Emit(entry, ir.Instruction{Op: ir.OpCall, Type: ir.Void, Callee: "g", Operands: []ir.ValueID{local}})
	fn.Emit(entry, ir.Instruction{Op: ir.OpRet, Type: ir.Void})

	info := AnalyzeEscapes(fn)
	assert.True(t, info.Escapes(local))
	assert.False(t, info.Escapes(notEscaping))
}
