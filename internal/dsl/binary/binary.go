// Package binary wraps a codegen.Artifact's code and data buffers in a
// platform executable container: PE32+ for windows-x64, ELF64 for
// linux-x64, Mach-O 64 for macos-x64.
package binary

import (
	"fmt"
	"os"

	"github.com/dekarrin/dslc/internal/dsl/codegen"
)

// EmitError reports a failure writing the final artifact to disk. This
// severity is fatal: the pipeline aborts and leaves no partial file behind.
type EmitError struct {
	Path string
	Op   string
	Err  error
}

func (e *EmitError) Error() string {
	return fmt.Sprintf("emit %s: %s: %v", e.Path, e.Op, e.Err)
}

func (e *EmitError) Unwrap() error { return e.Err }

// Build lowers art into the container format matching target's triple,
// without touching the filesystem. Exported separately from Write so tests
// can inspect the produced bytes directly (the binary round-trip and
// checksum-correctness testable properties).
func Build(art *codegen.Artifact, target codegen.Target) ([]byte, error) {
	switch target {
	case codegen.TargetWindowsX64:
		return buildPE(art), nil
	case codegen.TargetMacOSX64:
		return buildMachO(art), nil
	default:
		return buildELF(art), nil
	}
}

// Write builds art's container and writes it to path, marking it executable
// on POSIX targets. A build failure or I/O error leaves no partial file:
// the buffer is fully assembled in memory before any write.
func Write(art *codegen.Artifact, target codegen.Target, path string) error {
	buf, err := Build(art, target)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, buf, 0644); err != nil {
		return &EmitError{Path: path, Op: "write", Err: err}
	}
	if target != codegen.TargetWindowsX64 {
		if err := os.Chmod(path, 0755); err != nil {
			return &EmitError{Path: path, Op: "chmod", Err: err}
		}
	}
	return nil
}

func alignUp(v, align int) int {
	if v%align == 0 {
		return v
	}
	return v + (align - v%align)
}

func putU16(b []byte, v uint16) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
}

func putU32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func putU64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

// patchDataRelocs writes each pending absolute data-section address into
// code, now that the container layout has assigned the data section its
// final virtual address (see codegen.Artifact.DataRelocs's doc comment).
func patchDataRelocs(code []byte, relocs []codegen.DataReloc, dataBaseVA uint64) {
	for _, r := range relocs {
		putU64(code[r.CodeOffset:r.CodeOffset+8], dataBaseVA+uint64(r.DataOffset))
	}
}
