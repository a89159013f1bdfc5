package lower

import (
	"testing"

	"github.com/dekarrin/dslc/internal/dsl/diag"
	"github.com/dekarrin/dslc/internal/dsl/ir"
	"github.com/dekarrin/dslc/internal/dsl/parse"
	"github.com/dekarrin/dslc/internal/dsl/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustLower(t *testing.T, src string) (*ir.Module, *diag.Reporter) {
	t.Helper()
	toks, errs := token.Scan([]byte(src))
	require.Empty(t, errs)
	p := parse.New(toks)
	tree, perr := p.ParseProgram()
	require.Nil(t, perr, "unexpected parse error: %v", perr)
	reporter := diag.NewReporter(src)
	mod := Lower(tree, reporter)
	return mod, reporter
}

func Test_Lower_fnWithArithmeticAndReturn(t *testing.T) {
	mod, rep := mustLower(t, `Fn add "a,b" { ret a + b }`)
	assert.Empty(t, rep.Entries())

	fn, ok := mod.Functions["add"]
	require.True(t, ok)
	require.Len(t, fn.Params, 2)
	assert.True(t, fn.Params[0].Auto)
	assert.True(t, fn.Params[1].Auto)
	assert.Equal(t, ir.I64, fn.ReturnType)

	require.NoError(t, ir.Verify(fn))

	entry := fn.Block(fn.Entry)
	var sawAdd, sawRet bool
	for _, inst := range entry.Instructions {
		if inst.Op == ir.OpAdd {
			sawAdd = true
			assert.Equal(t, []ir.ValueID{ir.ParamValue(0), ir.ParamValue(1)}, inst.Operands)
		}
		if inst.Op == ir.OpRet {
			sawRet = true
		}
	}
	assert.True(t, sawAdd, "expected an OpAdd instruction")
	assert.True(t, sawRet, "expected an OpRet instruction")
}

func Test_Lower_autoParamResolvesFromFirstCallSite(t *testing.T) {
	mod, rep := mustLower(t, `
		Fn identity "a" { ret a }
		let x = call identity 5
	`)
	assert.Empty(t, rep.Entries())
	fn, ok := mod.Functions["identity"]
	require.True(t, ok)
	require.Len(t, fn.Params, 1)
	assert.Equal(t, ir.I64, fn.Params[0].Type)
}

func Test_Lower_autoParamMismatchReportsError(t *testing.T) {
	_, rep := mustLower(t, `
		Fn identity "a" { ret a }
		let x = call identity 5
		let y = call identity 1.5
	`)
	var sawMismatch bool
	for _, e := range rep.Entries() {
		if e.Level == diag.LevelError {
			sawMismatch = true
		}
	}
	assert.True(t, sawMismatch, "expected a type mismatch error to be reported")
}

func Test_Lower_ifElseMergesWithPhi(t *testing.T) {
	mod, rep := mustLower(t, `
		let x = 0
		if 1 == 1 {
			mutate x = 10
		} else {
			mutate x = 20
		}
		Print x
	`)
	assert.Empty(t, rep.Entries())

	fn, ok := mod.Functions[entryFunctionName]
	require.True(t, ok)
	require.NoError(t, ir.Verify(fn))

	var sawPhi bool
	for _, b := range fn.Blocks {
		for _, inst := range b.Instructions {
			if inst.Op == ir.OpPhi {
				sawPhi = true
				assert.Len(t, inst.Operands, 2)
				assert.Len(t, inst.IncomingBlocks, 2)
			}
		}
	}
	assert.True(t, sawPhi, "expected a merge phi for x")
}

func Test_Lower_ifWithoutElseSkipsPhiWhenUnchanged(t *testing.T) {
	mod, rep := mustLower(t, `
		let x = 0
		if 1 == 1 {
			Print x
		}
		Print x
	`)
	assert.Empty(t, rep.Entries())
	fn := mod.Functions[entryFunctionName]
	require.NoError(t, ir.Verify(fn))
	for _, b := range fn.Blocks {
		for _, inst := range b.Instructions {
			assert.NotEqual(t, ir.OpPhi, inst.Op, "x is unchanged on both paths, so no merge phi")
		}
	}
}

func Test_Lower_whileLoopCarriesPhiAndBreak(t *testing.T) {
	mod, rep := mustLower(t, `
		let i = 0
		while i < 10 {
			mutate i = i + 1
			if i == 5 {
				break
			}
		}
		Print i
	`)
	assert.Empty(t, rep.Entries())

	fn, ok := mod.Functions[entryFunctionName]
	require.True(t, ok)
	require.NoError(t, ir.Verify(fn))

	var header *ir.Block
	for _, b := range fn.Blocks {
		if b.Name == "while.header" {
			header = b
		}
	}
	require.NotNil(t, header, "expected a while.header block")

	var headerPhi *ir.Instruction
	for i := range header.Instructions {
		if header.Instructions[i].Op == ir.OpPhi {
			headerPhi = &header.Instructions[i]
		}
	}
	require.NotNil(t, headerPhi, "expected a phi for i in the loop header")
	// one incoming pair for the preheader, one for the body's fallthrough
	// back-edge (the break inside the nested if never reaches the header).
	assert.Len(t, headerPhi.Operands, 2)
	assert.Len(t, headerPhi.IncomingBlocks, 2)

	var exit *ir.Block
	for _, b := range fn.Blocks {
		if b.Name == "while.exit" {
			exit = b
		}
	}
	require.NotNil(t, exit, "expected a while.exit block")
	var sawExitPhi bool
	for _, inst := range exit.Instructions {
		if inst.Op == ir.OpPhi {
			sawExitPhi = true
		}
	}
	assert.True(t, sawExitPhi, "expected a phi at the loop exit merging the break and normal-exit values of i")
}

func Test_Lower_continueFeedsHeaderPhi(t *testing.T) {
	mod, rep := mustLower(t, `
		let i = 0
		let total = 0
		while i < 10 {
			mutate i = i + 1
			if i == 3 {
				continue
			}
			mutate total = total + i
		}
		Print total
	`)
	assert.Empty(t, rep.Entries())
	fn := mod.Functions[entryFunctionName]
	require.NoError(t, ir.Verify(fn))

	var header *ir.Block
	for _, b := range fn.Blocks {
		if b.Name == "while.header" {
			header = b
		}
	}
	require.NotNil(t, header)
	var totalPhiFound bool
	for i := range header.Instructions {
		inst := header.Instructions[i]
		if inst.Op == ir.OpPhi && len(inst.Operands) == 3 {
			// preheader + body fallthrough + explicit continue site
			totalPhiFound = true
		}
	}
	assert.True(t, totalPhiFound, "expected total's header phi to have 3 incoming pairs")
}

func Test_Lower_switchMergesCaseValues(t *testing.T) {
	mod, rep := mustLower(t, `
		let x = 1
		let y = 0
		switch x {
			case 1 { mutate y = 100 }
			case 2 { mutate y = 200 }
			default { mutate y = 0 }
		}
		Print y
	`)
	assert.Empty(t, rep.Entries())
	fn := mod.Functions[entryFunctionName]
	require.NoError(t, ir.Verify(fn))

	var exit *ir.Block
	for _, b := range fn.Blocks {
		if b.Name == "switch.exit" {
			exit = b
		}
	}
	require.NotNil(t, exit)
	var sawPhi bool
	for _, inst := range exit.Instructions {
		if inst.Op == ir.OpPhi {
			sawPhi = true
			assert.Len(t, inst.Operands, 3)
		}
	}
	assert.True(t, sawPhi)
}

func Test_Lower_undefinedIdentifierPoisonsAndReports(t *testing.T) {
	mod, rep := mustLower(t, `Print missing`)
	var sawError bool
	for _, e := range rep.Entries() {
		if e.Level == diag.LevelError {
			sawError = true
		}
	}
	assert.True(t, sawError)

	fn := mod.Functions[entryFunctionName]
	require.NoError(t, ir.Verify(fn))
	var sawPoison bool
	for _, inst := range fn.Block(fn.Entry).Instructions {
		if inst.Poison {
			sawPoison = true
		}
	}
	assert.True(t, sawPoison, "expected a poison value standing in for the undefined identifier")
}

func Test_Lower_intrinsicStatementLowersToNamedCall(t *testing.T) {
	mod, rep := mustLower(t, `open "out.txt"`)
	assert.Empty(t, rep.Entries())
	fn := mod.Functions[entryFunctionName]
	require.NoError(t, ir.Verify(fn))

	var sawOpen bool
	for _, inst := range fn.Block(fn.Entry).Instructions {
		if inst.Op == ir.OpIntrinsic && inst.Symbol == "open" {
			sawOpen = true
		}
	}
	assert.True(t, sawOpen)
}
