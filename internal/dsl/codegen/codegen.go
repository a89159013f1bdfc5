// Package codegen lowers optimized mid-IR (internal/dsl/ir) into raw
// x86-64 machine code, a read-only data section, and a relocation list
// ready for internal/dsl/binary to wrap in a container format.
package codegen

import (
	"fmt"

	"github.com/dekarrin/dslc/internal/dsl/ir"
)

// UnsupportedConstruct reports a mid-IR instruction or intrinsic this
// backend does not know how to lower, naming the instruction kind and
// operand types.
type UnsupportedConstruct struct {
	Function     string
	Kind         string
	OperandTypes []string
}

func (e *UnsupportedConstruct) Error() string {
	return fmt.Sprintf("unsupported construct in %s: %s%v", e.Function, e.Kind, e.OperandTypes)
}

// fixup is a forward reference recorded while emitting code: the 4-byte
// rel32 field at codeOffset needs patching once label's final address is
// known, following the same placeholder-then-patch idiom as the grounding
// backend's emitCallPlaceholder/callFixups pair.
type fixup struct {
	codeOffset int
	label      string
	// instrEnd is the offset immediately after the 4-byte field, the base
	// a rel32 displacement is measured from.
	instrEnd int
}

// Artifact is the output of a completed Generate call: machine code, an
// initialized-data section (currently just the interned string table), and
// the entry point's offset into code, ready for internal/dsl/binary.
type Artifact struct {
	Code       []byte
	Data       []byte
	EntryPoint int
	// DataRelocs lists every absolute-address immediate embedded in Code
	// that still needs patching once the binary emitter (C10) knows the
	// data section's final loaded virtual address: the 8 bytes at
	// Code[CodeOffset:CodeOffset+8] must become (dataBaseVA + DataOffset).
	DataRelocs []DataReloc
}

// DataReloc is one pending absolute-address fixup into the data section,
// recorded by OpConstString's codegen (see select.go's recordDataReloc)
// since the data segment's load address isn't known until C10 lays out
// the final container.
type DataReloc struct {
	CodeOffset int
	DataOffset int
}

// CodeGen accumulates the code and data buffers for one module. Function
// labels use the form "func:<name>", block labels "blk:<name>:<blockID>"
// to stay unique across the whole module without requiring per-function
// CodeGen instances.
type CodeGen struct {
	Target Target

	code []byte
	data []byte

	labels     map[string]int // label -> code offset, once laid out
	fixups     []fixup
	strOff     map[int]int // string table index -> offset into data
	edgeSeq    int         // counter for synthetic phi-copy edge-thunk labels
	dataRelocs []DataReloc
}

// recordDataReloc notes that the 8-byte immediate at codeOffset holds a
// placeholder (0) that must become the data section's base VA plus
// dataOffset once C10 assigns one.
func (g *CodeGen) recordDataReloc(codeOffset, dataOffset int) {
	g.dataRelocs = append(g.dataRelocs, DataReloc{CodeOffset: codeOffset, DataOffset: dataOffset})
}

// NewCodeGen creates an empty generator targeting t.
func NewCodeGen(t Target) *CodeGen {
	return &CodeGen{Target: t, labels: make(map[string]int), strOff: make(map[int]int)}
}

func (g *CodeGen) recordFixup(label string, fieldLen int) {
	g.fixups = append(g.fixups, fixup{codeOffset: len(g.code), label: label, instrEnd: len(g.code) + fieldLen})
}

func funcLabel(name string) string { return "func:" + name }

func blockLabel(fn string, id ir.BlockID) string { return fmt.Sprintf("blk:%s:%d", fn, id) }

// Generate lowers every function in mod and returns the combined artifact.
// Functions are laid out in mod.Order; the module's "main" function (if
// present) becomes the entry point, otherwise the first declared function.
func Generate(mod *ir.Module, target Target) (*Artifact, error) {
	g := NewCodeGen(target)
	g.layoutStrings(mod)

	for _, name := range mod.Order {
		if err := g.generateFunction(mod.Functions[name], mod); err != nil {
			return nil, err
		}
	}
	g.patchFixups()

	entry := 0
	entryName := "main"
	if _, ok := mod.Functions[entryName]; !ok && len(mod.Order) > 0 {
		entryName = mod.Order[0]
	}
	if off, ok := g.labels[funcLabel(entryName)]; ok {
		entry = off
	}

	return &Artifact{Code: g.code, Data: g.data, EntryPoint: entry, DataRelocs: g.dataRelocs}, nil
}

// layoutStrings copies every interned string into the data section,
// recording each one's offset for OpConstString to reference later.
func (g *CodeGen) layoutStrings(mod *ir.Module) {
	if mod.Strings == nil {
		return
	}
	for i := 0; i < mod.Strings.Len(); i++ {
		s := mod.Strings.Get(i)
		g.strOff[i] = len(g.data)
		g.data = append(g.data, []byte(s)...)
		g.data = append(g.data, 0) // NUL terminator for syscall/libc consumers
	}
}

// patchFixups resolves every recorded forward reference now that every
// function and block has a final code offset, writing the rel32
// displacement in place.
func (g *CodeGen) patchFixups() {
	for _, fx := range g.fixups {
		target, ok := g.labels[fx.label]
		if !ok {
			// A label that never got laid out (e.g. a call to a function
			// never defined) is a linker-time error in a real toolchain;
			// this backend leaves the placeholder zero rather than
			// panicking, since mid-IR verification is responsible for
			// catching dangling callees before codegen runs.
			continue
		}
		disp := int32(target - fx.instrEnd)
		g.code[fx.codeOffset] = byte(disp)
		g.code[fx.codeOffset+1] = byte(disp >> 8)
		g.code[fx.codeOffset+2] = byte(disp >> 16)
		g.code[fx.codeOffset+3] = byte(disp >> 24)
	}
}
