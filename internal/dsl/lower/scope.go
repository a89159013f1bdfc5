package lower

import (
	"github.com/dekarrin/dslc/internal/dsl/ast"
	"github.com/dekarrin/dslc/internal/dsl/ir"
)

// fnBuilder lowers one function body. It threads a plain name->value
// environment through sequential statements rather than running a
// dominance-frontier worklist: the source grammar only has structured
// control flow (if/while; no goto, no unstructured branches), so every join
// point is syntactically known in advance and a phi can be inserted
// directly where the branches reconverge. See DESIGN.md's lowering entry
// for why this is equivalent to (and simpler than) the general Cytron et
// al. construction for this grammar.
type fnBuilder struct {
	*builder
	fn    *ir.Function
	block ir.BlockID // current insertion point; ir.NoBlock means "unreachable"

	env      map[string]ir.ValueID
	varTypes map[string]ir.Type
	valTypes map[ir.ValueID]ir.Type

	returnType ir.Type
	loops      []*loopCtx
}

// branchSite records the block and live environment at a point that jumps
// directly to a loop's header (continue) or exit (break), used to patch
// phi operands after the rest of the loop is lowered.
type branchSite struct {
	block ir.BlockID
	env   map[string]ir.ValueID
}

type loopCtx struct {
	header, exit ir.BlockID
	assigned     []string
	continues    []branchSite
	breaks       []branchSite
}

func newFnBuilder(b *builder, fn *ir.Function) *fnBuilder {
	entry := fn.NewBlock("entry")
	return &fnBuilder{
		builder:    b,
		fn:         fn,
		block:      entry,
		env:        make(map[string]ir.ValueID),
		varTypes:   make(map[string]ir.Type),
		valTypes:   make(map[ir.ValueID]ir.Type),
		returnType: ir.Void,
	}
}

// emit appends inst to the current block and records the produced value's
// type, returning ir.NoValue (with no effect beyond the diagnostic-free
// no-op) if lowering has already reached unreachable code.
func (fb *fnBuilder) emit(inst Instruction) ir.ValueID {
	if fb.block == ir.NoBlock {
		return ir.NoValue
	}
	id := fb.fn.Emit(fb.block, ir.Instruction(inst))
	if id != ir.NoValue {
		fb.valTypes[id] = inst.Type
	}
	return id
}

// Instruction is a type alias so this package's call sites read as
// "lower.Instruction" without importing ir at every literal; it is
// identical to ir.Instruction.
type Instruction = ir.Instruction

// valueTypeOf returns the type of a previously emitted value or parameter.
func (fb *fnBuilder) valueTypeOf(v ir.ValueID) ir.Type {
	if ir.IsParam(v) {
		idx := ir.ParamIndex(v)
		if idx < len(fb.fn.Params) {
			return fb.fn.Params[idx].Type
		}
		return ir.I64
	}
	if t, ok := fb.valTypes[v]; ok {
		return t
	}
	return ir.I64
}

// cloneEnv returns a shallow copy of an environment map, used to give each
// branch of a structured conditional its own independent view before the
// branches reconverge at a merge block.
func cloneEnv(env map[string]ir.ValueID) map[string]ir.ValueID {
	out := make(map[string]ir.ValueID, len(env))
	for k, v := range env {
		out[k] = v
	}
	return out
}

// terminateFallthrough closes out a function body that fell off the end
// without an explicit ret, emitting a bare OpRet so every block ends in
// exactly one terminator.
func (fb *fnBuilder) terminateFallthrough() {
	if fb.block == ir.NoBlock {
		return
	}
	if fb.fn.Block(fb.block).Terminator() == nil {
		fb.emit(Instruction{Op: ir.OpRet, Type: ir.Void})
	}
}

// assignedNames returns every variable name directly written by a `let` or
// `mutate` anywhere within the subtree rooted at id, not descending into
// nested Fn declarations. Used to decide which variables need a phi at a
// loop header before the body is lowered.
func assignedNames(tree *ast.Tree, id ast.ID) []string {
	seen := map[string]bool{}
	var order []string
	var walk func(ast.ID)
	walk = func(id ast.ID) {
		if id == ast.NoID {
			return
		}
		n := tree.Node(id)
		switch n.Kind {
		case ast.KindFnDecl:
			return
		case ast.KindLet, ast.KindMutate:
			if !seen[n.Value] {
				seen[n.Value] = true
				order = append(order, n.Value)
			}
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(id)
	return order
}
