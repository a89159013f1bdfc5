// Package lower implements AST-to-mid-IR lowering: SSA construction for
// local variables, monomorphic local type inference with first-call-site
// resolution of auto parameters, and a direct opcode mapping for every
// statement and expression form the parser produces.
package lower

import (
	"github.com/dekarrin/dslc/internal/dsl/ast"
	"github.com/dekarrin/dslc/internal/dsl/diag"
	"github.com/dekarrin/dslc/internal/dsl/ir"
)

// entryFunctionName is the synthetic function lowering builds to hold
// top-level statements, per the mid-IR module contract (one function per
// top-level declaration plus this one).
const entryFunctionName = "__entry"

// builder holds lowering state shared across every function built from one
// translation unit: the source tree, the module under construction, and
// the diagnostic sink every stage reports through.
type builder struct {
	tree     *ast.Tree
	mod      *ir.Module
	reporter *diag.Reporter
	fnDecls  map[string]ast.ID // function name -> FnDecl node, for arity/param lookups
}

// Lower walks tree's Program node, producing one ir.Function per top-level
// Fn declaration plus a __entry function holding every other top-level
// statement, in source order.
func Lower(tree *ast.Tree, reporter *diag.Reporter) *ir.Module {
	b := &builder{
		tree:     tree,
		mod:      ir.NewModule(),
		reporter: reporter,
		fnDecls:  make(map[string]ast.ID),
	}

	root := tree.Node(tree.Root())
	for _, stmtID := range root.Children {
		n := tree.Node(stmtID)
		if n.Kind == ast.KindFnDecl {
			b.fnDecls[n.Value] = stmtID
		}
	}

	for _, stmtID := range root.Children {
		if tree.Node(stmtID).Kind == ast.KindFnDecl {
			b.lowerFnDecl(stmtID)
		}
	}

	entry := newFnBuilder(b, ir.NewFunction(entryFunctionName, nil, ir.Void))
	b.mod.AddFunction(entry.fn)
	for _, stmtID := range root.Children {
		if tree.Node(stmtID).Kind == ast.KindFnDecl {
			continue
		}
		entry.lowerStmt(stmtID)
	}
	entry.terminateFallthrough()

	return b.mod
}

// lowerFnDecl builds one ir.Function from a KindFnDecl node: its params
// (auto-typed until a call site resolves them), return type (always
// inferred from its ret statements, defaulting to void), and body.
func (b *builder) lowerFnDecl(id ast.ID) {
	n := b.tree.Node(id)
	var params []ir.Param
	var body ast.ID = ast.NoID
	for _, c := range n.Children {
		cn := b.tree.Node(c)
		switch cn.Kind {
		case ast.KindParam:
			params = append(params, parseParam(cn.Value))
		case ast.KindBlock:
			body = c
		case ast.KindOverlay:
			// overlays are back-end hints (profiling, placement); they carry
			// no lowering obligation of their own.
		}
	}

	fn := ir.NewFunction(n.Value, params, ir.Void)
	b.mod.AddFunction(fn)
	fb := newFnBuilder(b, fn)
	for i, p := range params {
		fb.env[p.Name] = ir.ParamValue(i)
		fb.varTypes[p.Name] = p.Type
	}

	if body != ast.NoID {
		fb.lowerBody(body)
	}
	fb.terminateFallthrough()
	fn.ReturnType = fb.returnType
}

// parseParam splits a "type name" or "auto name" Param value into a Param,
// defaulting an empty/omitted type to auto (resolved at first call site per
// §4.5).
func parseParam(value string) ir.Param {
	typeName, name := splitTypeName(value)
	if typeName == "" || typeName == "auto" {
		return ir.Param{Name: name, Auto: true}
	}
	return ir.Param{Name: name, Type: namedType(typeName)}
}

func splitTypeName(value string) (typeName, name string) {
	fields := fieldsOf(value)
	switch len(fields) {
	case 0:
		return "", ""
	case 1:
		return "", fields[0]
	default:
		return fields[0], fields[len(fields)-1]
	}
}

func fieldsOf(s string) []string {
	var fields []string
	var cur []byte
	flush := func() {
		if len(cur) > 0 {
			fields = append(fields, string(cur))
			cur = nil
		}
	}
	for i := 0; i < len(s); i++ {
		if s[i] == ' ' || s[i] == '\t' {
			flush()
			continue
		}
		cur = append(cur, s[i])
	}
	flush()
	return fields
}

func namedType(name string) ir.Type {
	switch name {
	case "int", "i64":
		return ir.I64
	case "i32":
		return ir.I32
	case "float", "f64":
		return ir.F64
	case "f32":
		return ir.F32
	case "string", "ptr":
		return ir.Ptr
	case "bool", "u8":
		return ir.U8
	default:
		return ir.I64
	}
}
