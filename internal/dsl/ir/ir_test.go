package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildDiamond builds:
//
//	entry -> left, right
//	left, right -> merge
//
// with a phi in merge combining a constant defined in left and one defined
// in right, the canonical join-point shape dominance-frontier insertion
// targets.
func buildDiamond(t *testing.T) (*Function, ValueID, BlockID) {
	t.Helper()
	fn := NewFunction("diamond", nil, I32)
	entry := fn.NewBlock("entry")
	left := fn.NewBlock("left")
	right := fn.NewBlock("right")
	merge := fn.NewBlock("merge")

	cond := fn.Emit(entry, Instruction{Op: OpConstInt, Type: I32, ConstInt: 1})
	fn.Emit(entry, Instruction{Op: OpCondBr, Type: Void, Operands: []ValueID{cond}, TrueBlock: left, FalseBlock: right})

	l := fn.Emit(left, Instruction{Op: OpConstInt, Type: I32, ConstInt: 10})
	fn.Emit(left, Instruction{Op: OpBr, Type: Void, Target: merge})

	r := fn.Emit(right, Instruction{Op: OpConstInt, Type: I32, ConstInt: 20})
	fn.Emit(right, Instruction{Op: OpBr, Type: Void, Target: merge})

	phi := fn.Emit(merge, Instruction{
		Op:             OpPhi,
		Type:           I32,
		Operands:       []ValueID{l, r},
		IncomingBlocks: []BlockID{left, right},
	})
	fn.Emit(merge, Instruction{Op: OpRet, Type: Void, Operands: []ValueID{phi}})

	return fn, phi, merge
}

func Test_DomTree_DiamondDominance(t *testing.T) {
	fn, _, merge := buildDiamond(t)
	dom := fn.Dominance()

	assert.True(t, dom.Dominates(fn.Entry, merge))
	assert.False(t, dom.Dominates(BlockID(1), BlockID(2))) // left does not dominate right
	assert.Equal(t, fn.Entry, dom.IDom(merge))
}

func Test_DomTree_FrontierAtMerge(t *testing.T) {
	fn, _, merge := buildDiamond(t)
	dom := fn.Dominance()

	left := BlockID(1)
	frontier := dom.Frontier(left)
	assert.True(t, frontier.Has(merge))
}

func Test_Verify_DiamondIsValid(t *testing.T) {
	fn, _, _ := buildDiamond(t)
	assert.NoError(t, Verify(fn))
}

func Test_Verify_CatchesUndominatedUse(t *testing.T) {
	fn := NewFunction("bad", nil, I32)
	entry := fn.NewBlock("entry")
	other := fn.NewBlock("other")

	v := fn.Emit(other, Instruction{Op: OpConstInt, Type: I32, ConstInt: 1})
	fn.Emit(entry, Instruction{Op: OpRet, Type: Void, Operands: []ValueID{v}})
	// entry has no edge to other and no predecessor relation making other
	// dominate entry, so this use is invalid.
	fn.Emit(other, Instruction{Op: OpRet, Type: Void})

	err := Verify(fn)
	require.Error(t, err)
	var violation *SSAViolation
	require.ErrorAs(t, err, &violation)
}

func Test_StringTable_InternsOnce(t *testing.T) {
	st := NewStringTable()
	a := st.Intern("hello")
	b := st.Intern("hello")
	c := st.Intern("world")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, "hello", st.Get(a))
	assert.Equal(t, 2, st.Len())
}

func Test_UsualArithmeticConversion(t *testing.T) {
	assert.Equal(t, F64, UsualArithmeticConversion(I32, F64))
	assert.Equal(t, I64, UsualArithmeticConversion(I32, I64))
	assert.True(t, UsualArithmeticConversion(I32, U32).Unsigned)
}

func Test_PrintFunction_RendersPhi(t *testing.T) {
	fn, _, _ := buildDiamond(t)
	out := PrintFunction(fn)
	assert.Contains(t, out, "phi")
	assert.Contains(t, out, "condbr")
	assert.Contains(t, out, "ret v")
}
