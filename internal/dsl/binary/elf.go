package binary

import "github.com/dekarrin/dslc/internal/dsl/codegen"

// ELF64 layout: a fixed two-PT_LOAD-segment layout with no section headers
// (a static executable needs only program headers to be loadable; this
// backend never produces one a linker or objdump-style tool needs to
// relocate further). Virtual addresses are pinned at 0x401000 (code) and
// 0x402000 (data) rather than computed.
const (
	elfCodeVA  = 0x401000
	elfDataVA  = 0x402000
	elfAlign   = 0x1000
	elfEhSize  = 64
	elfPhSize  = 56
	elfNumPhdr = 2
)

func buildELF(art *codegen.Artifact) []byte {
	headerRegion := alignUp(elfEhSize+elfNumPhdr*elfPhSize, elfAlign)
	codeOff := headerRegion
	dataOff := alignUp(codeOff+len(art.Code), elfAlign)
	totalSize := dataOff + len(art.Data)

	code := make([]byte, len(art.Code))
	copy(code, art.Code)
	patchDataRelocs(code, art.DataRelocs, uint64(elfDataVA))

	buf := make([]byte, totalSize)

	// e_ident.
	copy(buf[0:4], []byte{0x7F, 'E', 'L', 'F'})
	buf[4] = 2 // ELFCLASS64
	buf[5] = 1 // ELFDATA2LSB
	buf[6] = 1 // EV_CURRENT
	buf[7] = 0 // ELFOSABI_SYSV
	// buf[8:16] ABI version + padding, already zero.

	putU16(buf[16:], 2)                               // e_type: ET_EXEC
	putU16(buf[18:], 0x3E)                             // e_machine: EM_X86_64
	putU32(buf[20:], 1)                                // e_version
	putU64(buf[24:], uint64(elfCodeVA+art.EntryPoint)) // e_entry
	putU64(buf[32:], elfEhSize)                        // e_phoff
	putU64(buf[40:], 0)                                // e_shoff: no section headers
	putU32(buf[48:], 0)                                // e_flags
	putU16(buf[52:], elfEhSize)                        // e_ehsize
	putU16(buf[54:], elfPhSize)                        // e_phentsize
	putU16(buf[56:], elfNumPhdr)                        // e_phnum
	putU16(buf[58:], 0)                                // e_shentsize
	putU16(buf[60:], 0)                                // e_shnum
	putU16(buf[62:], 0)                                // e_shstrndx

	writeProgramHeader(buf[elfEhSize:], 1, 5, codeOff, elfCodeVA, len(art.Code))
	writeProgramHeader(buf[elfEhSize+elfPhSize:], 1, 6, dataOff, elfDataVA, len(art.Data))

	copy(buf[codeOff:], code)
	copy(buf[dataOff:], art.Data)

	return buf
}

// writeProgramHeader writes one Elf64_Phdr. filesz and memsz are equal:
// this backend emits no BSS (every value gets a stack slot, never a
// zero-initialized data-section reservation).
func writeProgramHeader(buf []byte, ptype, flags uint32, fileOff, vaddr, size int) {
	putU32(buf[0:], ptype)
	putU32(buf[4:], flags)
	putU64(buf[8:], uint64(fileOff))
	putU64(buf[16:], uint64(vaddr))
	putU64(buf[24:], uint64(vaddr)) // p_paddr, unused on this target
	putU64(buf[32:], uint64(size))
	putU64(buf[40:], uint64(size))
	putU64(buf[48:], elfAlign)
}
