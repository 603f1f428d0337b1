// Package amd64 implements the x86-64 handoff trampoline: a
// position-independent machine-code stub that installs the new page
// table root and jumps to the kernel. The bytes are hand-encoded rather
// than assembled from mnemonics, which keeps the external assembler
// (and the RIP-relative addressing it may emit) out of the picture.
package amd64

// Stub holds the trampoline's machine code:
//
//	FC                CLD
//	FA                CLI
//	0F 22 D8          MOV CR3, RAX
//	48 89 D4          MOV RSP, RDX
//	48 89 CF          MOV RDI, RCX
//	FF E3             JMP RBX
//
// No instruction here is RIP-relative and none references memory other
// than the registers the launcher preloads, so the stub executes
// correctly from whatever physical page it is copied to.
var Stub = []byte{
	0xFC,
	0xFA,
	0x0F, 0x22, 0xD8,
	0x48, 0x89, 0xD4,
	0x48, 0x89, 0xCF,
	0xFF, 0xE3,
}
