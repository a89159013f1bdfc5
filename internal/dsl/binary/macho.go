package binary

import "github.com/dekarrin/dslc/internal/dsl/codegen"

// Mach-O 64 minimal layout: one LC_SEGMENT_64 (named
// __TEXT, per convention) covering the whole file and holding two
// sections, __text and __data, plus an LC_MAIN entry-point command. This
// skips the dyld/__LINKEDIT/code-signature machinery a real macOS
// toolchain adds to link against libSystem — this backend only ever emits
// raw syscalls (see codegen/intrinsics.go), so nothing here needs dynamic
// linking to run, and reproducing the full loader chain unverified was out
// of scope.
const (
	machoMagic64    = 0xFEEDFACF
	machoCPUX86_64  = 0x01000007
	machoSubtypeAll = 3
	machoExecute    = 2
	machoLoadVA     = 0x100000000

	machoSegCmdSize  = 72
	machoSectCmdSize = 80
	machoMainCmdSize = 24
)

func buildMachO(art *codegen.Artifact) []byte {
	sizeOfCmds := machoSegCmdSize + 2*machoSectCmdSize + machoMainCmdSize
	headerSize := 32 + sizeOfCmds

	textSectionOff := alignUp(headerSize, 16)
	dataSectionOff := textSectionOff + len(art.Code)
	totalSize := dataSectionOff + len(art.Data)

	textSectionVA := uint64(machoLoadVA + textSectionOff)
	dataSectionVA := uint64(machoLoadVA + dataSectionOff)

	code := make([]byte, len(art.Code))
	copy(code, art.Code)
	patchDataRelocs(code, art.DataRelocs, dataSectionVA)

	bin := make([]byte, totalSize)

	putU32(bin[0:], machoMagic64)
	putU32(bin[4:], machoCPUX86_64)
	putU32(bin[8:], machoSubtypeAll)
	putU32(bin[12:], machoExecute)
	putU32(bin[16:], 2) // ncmds: LC_SEGMENT_64, LC_MAIN
	putU32(bin[20:], uint32(sizeOfCmds))
	putU32(bin[24:], 0) // flags
	putU32(bin[28:], 0) // reserved

	off := 32

	// LC_SEGMENT_64 __TEXT, covering the entire file (code and data both
	// live under it; there is no separate __DATA segment in this minimal
	// layout since nothing here needs distinct page protections enforced
	// by the loader to run correctly).
	seg := bin[off:]
	putU32(seg[0:], 0x19) // LC_SEGMENT_64
	putU32(seg[4:], machoSegCmdSize+2*machoSectCmdSize)
	copy(seg[8:24], "__TEXT")
	putU64(seg[24:], machoLoadVA)
	putU64(seg[32:], uint64(totalSize))
	putU64(seg[40:], 0) // fileoff
	putU64(seg[48:], uint64(totalSize))
	putU32(seg[56:], 7) // maxprot: rwx
	putU32(seg[60:], 7) // initprot: rwx
	putU32(seg[64:], 2) // nsects
	putU32(seg[68:], 0) // flags
	off += machoSegCmdSize

	sect := bin[off:]
	copy(sect[0:16], "__text")
	copy(sect[16:32], "__TEXT")
	putU64(sect[32:], textSectionVA)
	putU64(sect[40:], uint64(len(art.Code)))
	putU32(sect[48:], uint32(textSectionOff))
	putU32(sect[52:], 4)          // align: 2^4
	putU32(sect[64:], 0x80000400) // S_ATTR_PURE_INSTRUCTIONS | S_ATTR_SOME_INSTRUCTIONS
	off += machoSectCmdSize

	sect = bin[off:]
	copy(sect[0:16], "__data")
	copy(sect[16:32], "__TEXT")
	putU64(sect[32:], dataSectionVA)
	putU64(sect[40:], uint64(len(art.Data)))
	putU32(sect[48:], uint32(dataSectionOff))
	putU32(sect[52:], 0)
	off += machoSectCmdSize

	// LC_MAIN.
	putU32(bin[off:], 0x80000028)
	putU32(bin[off+4:], machoMainCmdSize)
	putU64(bin[off+8:], uint64(textSectionOff+art.EntryPoint))
	putU64(bin[off+16:], 0) // stacksize: use the default

	copy(bin[textSectionOff:], code)
	copy(bin[dataSectionOff:], art.Data)

	return bin
}
