package ir

import (
	"fmt"
	"strings"
)

// PrintFunction renders fn as an indented, human-readable instruction
// listing, the single non-member dispatch used in place of a virtual print
// method per opcode (mirroring the AST's own Print function).
func PrintFunction(fn *Function) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "fn %s(", fn.Name)
	for i, p := range fn.Params {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s %s", p.Type, p.Name)
	}
	fmt.Fprintf(&sb, ") %s\n", fn.ReturnType)
	for _, b := range fn.Blocks {
		fmt.Fprintf(&sb, "%s:\n", b.Name)
		for _, inst := range b.Instructions {
			sb.WriteString("  ")
			printInst(&sb, inst)
		}
	}
	return sb.String()
}

func printInst(sb *strings.Builder, inst Instruction) {
	if inst.ID != NoValue {
		fmt.Fprintf(sb, "v%d = ", inst.ID)
	}
	switch inst.Op {
	case OpConstInt:
		fmt.Fprintf(sb, "const.int %d : %s\n", inst.ConstInt, inst.Type)
	case OpConstFloat:
		fmt.Fprintf(sb, "const.float %g : %s\n", inst.ConstFloat, inst.Type)
	case OpConstString:
		fmt.Fprintf(sb, "const.string #%d : %s\n", inst.StringIndex, inst.Type)
	case OpCall:
		fmt.Fprintf(sb, "call %s(%s)\n", inst.Callee, valueList(inst.Operands))
	case OpIntrinsic:
		fmt.Fprintf(sb, "intrinsic.%s(%s)\n", inst.Symbol, valueList(inst.Operands))
	case OpPhi:
		var pairs []string
		for i, op := range inst.Operands {
			pairs = append(pairs, fmt.Sprintf("[v%d, %%%d]", op, inst.IncomingBlocks[i]))
		}
		fmt.Fprintf(sb, "phi %s\n", strings.Join(pairs, ", "))
	case OpBr:
		fmt.Fprintf(sb, "br %%%d\n", inst.Target)
	case OpCondBr:
		fmt.Fprintf(sb, "condbr v%d, %%%d, %%%d\n", inst.Operands[0], inst.TrueBlock, inst.FalseBlock)
	case OpRet:
		if len(inst.Operands) == 0 {
			sb.WriteString("ret\n")
		} else {
			fmt.Fprintf(sb, "ret v%d\n", inst.Operands[0])
		}
	case OpUnreachable:
		sb.WriteString("unreachable\n")
	default:
		fmt.Fprintf(sb, "%s %s : %s\n", opName(inst.Op), valueList(inst.Operands), inst.Type)
	}
}

func valueList(ids []ValueID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("v%d", id)
	}
	return strings.Join(parts, ", ")
}

var opMnemonics = map[Op]string{
	OpAdd: "add", OpSub: "sub", OpMul: "mul", OpDiv: "div", OpMod: "mod",
	OpAnd: "and", OpOr: "or", OpXor: "xor", OpShl: "shl", OpShr: "shr",
	OpNeg: "neg", OpNot: "not",
	OpCmpEq: "cmp.eq", OpCmpNe: "cmp.ne", OpCmpLt: "cmp.lt", OpCmpLe: "cmp.le",
	OpCmpGt: "cmp.gt", OpCmpGe: "cmp.ge",
	OpAlloca: "alloca", OpLoad: "load", OpStore: "store", OpIndex: "index",
	OpBoundsCheck: "bounds_check",
}

func opName(op Op) string {
	if n, ok := opMnemonics[op]; ok {
		return n
	}
	return "op" + itoa(int(op))
}
