package lower

import (
	"strconv"

	"github.com/dekarrin/dslc/internal/dsl/ast"
	"github.com/dekarrin/dslc/internal/dsl/ir"
)

// lowerExpr lowers an expression node to the ir.ValueID computing it. On
// error (undefined name, unsupported form) it reports through the builder's
// diagnostic reporter and returns a poison constant so lowering of the
// surrounding statement can continue per the poison-propagation rule of
// §7's TypeError handling.
func (fb *fnBuilder) lowerExpr(id ast.ID) ir.ValueID {
	if id == ast.NoID {
		return fb.poison()
	}
	n := fb.tree.Node(id)
	switch n.Kind {
	case ast.KindIntLiteral:
		v, err := strconv.ParseInt(n.Value, 10, 64)
		if err != nil {
			return fb.poison()
		}
		return fb.emit(Instruction{Op: ir.OpConstInt, Type: ir.I64, ConstInt: v})
	case ast.KindFloatLiteral:
		v, err := strconv.ParseFloat(n.Value, 64)
		if err != nil {
			return fb.poison()
		}
		return fb.emit(Instruction{Op: ir.OpConstFloat, Type: ir.F64, ConstFloat: v})
	case ast.KindStringLiteral:
		idx := fb.mod.Strings.Intern(n.Value)
		return fb.emit(Instruction{Op: ir.OpConstString, Type: ir.Ptr, StringIndex: idx})
	case ast.KindBoolLiteral:
		var v int64
		if n.Value == "true" {
			v = 1
		}
		return fb.emit(Instruction{Op: ir.OpConstInt, Type: ir.U8, ConstInt: v})
	case ast.KindIdentifier:
		v, ok := fb.env[n.Value]
		if !ok {
			fb.reporter.Error("undefined identifier \""+n.Value+"\"", "", n.Line, 1)
			return fb.poison()
		}
		return v
	case ast.KindBinary:
		return fb.lowerBinary(n)
	case ast.KindUnary:
		return fb.lowerUnary(n)
	case ast.KindTernary:
		return fb.lowerTernary(n)
	case ast.KindCallExpr:
		return fb.lowerCallExpr(n)
	case ast.KindCallStmt:
		return fb.lowerCallStmtExpr(n)
	case ast.KindIndexExpr:
		return fb.lowerIndex(n)
	case ast.KindMemberExpr:
		return fb.lowerMember(n)
	default:
		fb.reporter.Error("unsupported expression form "+n.Kind.String(), "", n.Line, 1)
		return fb.poison()
	}
}

func (fb *fnBuilder) poison() ir.ValueID {
	return fb.emit(Instruction{Op: ir.OpConstInt, Type: ir.I64, Poison: true})
}

var binaryOps = map[string]ir.Op{
	"+": ir.OpAdd, "-": ir.OpSub, "*": ir.OpMul, "/": ir.OpDiv, "%": ir.OpMod,
	"&&": ir.OpAnd, "||": ir.OpOr,
	"==": ir.OpCmpEq, "!=": ir.OpCmpNe,
	"<": ir.OpCmpLt, "<=": ir.OpCmpLe, ">": ir.OpCmpGt, ">=": ir.OpCmpGe,
}

var comparisonOps = map[string]bool{
	"==": true, "!=": true, "<": true, "<=": true, ">": true, ">=": true,
}

func (fb *fnBuilder) lowerBinary(n ast.Node) ir.ValueID {
	left := fb.lowerExpr(n.Children[0])
	right := fb.lowerExpr(n.Children[1])
	op, ok := binaryOps[n.Value]
	if !ok {
		fb.reporter.Error("unknown binary operator \""+n.Value+"\"", "", n.Line, 1)
		return fb.poison()
	}
	resultType := ir.UsualArithmeticConversion(fb.valueTypeOf(left), fb.valueTypeOf(right))
	if comparisonOps[n.Value] {
		resultType = ir.U8
	}
	return fb.emit(Instruction{Op: op, Type: resultType, Operands: []ir.ValueID{left, right}})
}

func (fb *fnBuilder) lowerUnary(n ast.Node) ir.ValueID {
	operand := fb.lowerExpr(n.Children[0])
	t := fb.valueTypeOf(operand)
	op := ir.OpNeg
	if n.Value == "!" {
		op = ir.OpNot
		t = ir.U8
	}
	return fb.emit(Instruction{Op: op, Type: t, Operands: []ir.ValueID{operand}})
}

// lowerTernary lowers `cond ? then : else` as a three-block diamond merged
// by a phi, matching the same join-point shape as an if/else that returns a
// value.
func (fb *fnBuilder) lowerTernary(n ast.Node) ir.ValueID {
	cond := fb.lowerExpr(n.Children[0])

	thenBlock := fb.fn.NewBlock("ternary.then")
	elseBlock := fb.fn.NewBlock("ternary.else")
	mergeBlock := fb.fn.NewBlock("ternary.merge")
	fb.emit(Instruction{Op: ir.OpCondBr, Type: ir.Void, Operands: []ir.ValueID{cond}, TrueBlock: thenBlock, FalseBlock: elseBlock})

	fb.block = thenBlock
	thenVal := fb.lowerExpr(n.Children[1])
	thenType := fb.valueTypeOf(thenVal)
	thenEnd := fb.block
	fb.emit(Instruction{Op: ir.OpBr, Type: ir.Void, Target: mergeBlock})

	fb.block = elseBlock
	elseVal := fb.lowerExpr(n.Children[2])
	elseType := fb.valueTypeOf(elseVal)
	elseEnd := fb.block
	fb.emit(Instruction{Op: ir.OpBr, Type: ir.Void, Target: mergeBlock})

	fb.block = mergeBlock
	resultType := ir.UsualArithmeticConversion(thenType, elseType)
	return fb.emit(Instruction{
		Op:             ir.OpPhi,
		Type:           resultType,
		Operands:       []ir.ValueID{thenVal, elseVal},
		IncomingBlocks: []ir.BlockID{thenEnd, elseEnd},
	})
}

func (fb *fnBuilder) lowerArgs(children []ast.ID) []ir.ValueID {
	args := make([]ir.ValueID, len(children))
	for i, c := range children {
		args[i] = fb.lowerExpr(c)
	}
	return args
}

func (fb *fnBuilder) calleeReturnType(name string) ir.Type {
	if fn, ok := fb.mod.Functions[name]; ok {
		return fn.ReturnType
	}
	return ir.I64
}

// lowerCallExpr lowers the expression-form `base(args...)`, where base must
// be a plain identifier naming a function (method-call member bases are not
// yet resolved to a concrete callee and report UnsupportedConstruct).
func (fb *fnBuilder) lowerCallExpr(n ast.Node) ir.ValueID {
	base := fb.tree.Node(n.Children[0])
	if base.Kind != ast.KindIdentifier {
		fb.reporter.Error("unsupported call target", "", n.Line, 1)
		return fb.poison()
	}
	args := fb.lowerArgs(n.Children[1:])
	fb.checkArity(base.Value, args, n.Line)
	return fb.emit(Instruction{Op: ir.OpCall, Type: fb.calleeReturnType(base.Value), Callee: base.Value, Operands: args})
}

// lowerCallStmtExpr lowers the prefix form `call name arg*` when it appears
// in expression position (e.g. `let s = call add 40 2`); children[0] is
// always the callee Identifier, the rest are argument expressions.
func (fb *fnBuilder) lowerCallStmtExpr(n ast.Node) ir.ValueID {
	callee := fb.tree.Node(n.Children[0])
	args := fb.lowerArgs(n.Children[1:])
	fb.checkArity(callee.Value, args, n.Line)
	return fb.emit(Instruction{Op: ir.OpCall, Type: fb.calleeReturnType(callee.Value), Callee: callee.Value, Operands: args})
}

// checkArity resolves auto-typed parameters against this call site's
// argument types and reports TypeMismatch if a prior call site already
// fixed a different type, per §4.5's first-call-site resolution rule.
func (fb *fnBuilder) checkArity(name string, args []ir.ValueID, line int) {
	fn, ok := fb.mod.Functions[name]
	if !ok || len(fn.Params) != len(args) {
		return // unknown callee (e.g. a builtin) or argument-count mismatch: nothing to resolve, and neither is diagnosed here
	}
	for i, p := range fn.Params {
		if !p.Auto {
			continue
		}
		argType := fb.valueTypeOf(args[i])
		if fn.Params[i].Type.Kind == ir.KindVoid {
			fn.Params[i].Type = argType
			continue
		}
		if !fn.Params[i].Type.Equal(argType) {
			fb.reporter.Error("TypeMismatch: parameter \""+p.Name+"\" of \""+name+"\" resolved to "+fn.Params[i].Type.String()+", call site provides "+argType.String(), "", line, 1)
		}
	}
}

func (fb *fnBuilder) lowerIndex(n ast.Node) ir.ValueID {
	base := fb.lowerExpr(n.Children[0])
	idx := fb.lowerExpr(n.Children[1])
	fb.emit(Instruction{Op: ir.OpBoundsCheck, Type: ir.Void, Operands: []ir.ValueID{base, idx}})
	return fb.emit(Instruction{Op: ir.OpIndex, Type: ir.I64, Operands: []ir.ValueID{base, idx}})
}

func (fb *fnBuilder) lowerMember(n ast.Node) ir.ValueID {
	base := fb.lowerExpr(n.Children[0])
	return fb.emit(Instruction{Op: ir.OpLoad, Type: ir.I64, Operands: []ir.ValueID{base}, Symbol: n.Value})
}
