package lower

import (
	"github.com/dekarrin/dslc/internal/dsl/ast"
	"github.com/dekarrin/dslc/internal/dsl/ir"
)

// exprShaped reports whether a node kind can be lowered by lowerExpr.
// Statement forms like `open`/`channel` mix identifier handles, raw string
// literals used as labels, and real sub-expressions as children; only the
// latter go through lowerExpr, the rest become interned string operands.
func exprShaped(k ast.Kind) bool {
	switch k {
	case ast.KindIntLiteral, ast.KindFloatLiteral, ast.KindStringLiteral, ast.KindBoolLiteral,
		ast.KindIdentifier, ast.KindBinary, ast.KindUnary, ast.KindTernary,
		ast.KindCallExpr, ast.KindCallStmt, ast.KindIndexExpr, ast.KindMemberExpr:
		return true
	default:
		return false
	}
}

// lowerIntrinsicStmt is the fallback lowering for every statement kind
// without bespoke control-flow handling: I/O, concurrency, type
// declarations, and the data/monitoring statements. Each becomes a single
// OpIntrinsic call named after the statement keyword, with the node's own
// Value (if any) as a leading interned-string operand and each
// expression-shaped child lowered normally. These statements are specified
// only by name and arity (§1's "standard-library built-ins... specified
// only as named intrinsics"); deeper semantics belong to the runtime
// collaborator the code generator links against.
func (fb *fnBuilder) lowerIntrinsicStmt(id ast.ID, n ast.Node) {
	symbol := intrinsicName(n.Kind)
	var operands []ir.ValueID
	if n.Value != "" {
		idx := fb.mod.Strings.Intern(n.Value)
		operands = append(operands, fb.emit(Instruction{Op: ir.OpConstString, Type: ir.Ptr, StringIndex: idx}))
	}
	for _, c := range n.Children {
		cn := fb.tree.Node(c)
		if exprShaped(cn.Kind) {
			operands = append(operands, fb.lowerExpr(c))
		} else if cn.Kind == ast.KindBlock {
			fb.lowerBody(c)
		}
	}
	fb.emit(Instruction{Op: ir.OpIntrinsic, Type: ir.Void, Symbol: symbol, Operands: operands})
}

var intrinsicNames = map[ast.Kind]string{
	ast.KindOpen: "open", ast.KindWrite: "write", ast.KindWriteln: "writeln",
	ast.KindRead: "read", ast.KindClose: "close", ast.KindInput: "input",
	ast.KindThread: "thread", ast.KindAsync: "async", ast.KindChannel: "channel",
	ast.KindSend: "send", ast.KindRecv: "recv", ast.KindSync: "sync",
	ast.KindParallel: "parallel", ast.KindSchedule: "schedule", ast.KindBatch: "batch",
	ast.KindStructDecl: "struct_decl", ast.KindEnumDecl: "enum_decl",
	ast.KindUnionDecl: "union_decl", ast.KindTypedef: "typedef", ast.KindClassDecl: "class_decl",
	ast.KindScale: "scale", ast.KindBounds: "bounds",
	ast.KindCheckpoint: "checkpoint", ast.KindVBreak: "vbreak", ast.KindMatrix: "matrix",
	ast.KindSanitize: "sanitize", ast.KindPing: "ping", ast.KindAudit: "audit",
	ast.KindTemperature: "temperature", ast.KindPressure: "pressure", ast.KindGauge: "gauge",
	ast.KindLoop: "loop",
}

func intrinsicName(k ast.Kind) string {
	if n, ok := intrinsicNames[k]; ok {
		return n
	}
	return "unknown"
}
