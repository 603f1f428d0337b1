// Package riscv64 implements the RISC-V Sv48 handoff trampoline: a
// position-independent machine-code stub that installs the new satp
// value and jumps to the kernel. The bytes are hand-encoded rather than
// assembled from mnemonics, which keeps the external assembler (and
// any PC-relative addressing it may emit) out of the picture.
package riscv64

// Stub holds the trampoline's machine code, little-endian 32-bit words:
//
//	10017073   CSRRCI x0, sstatus, 2      clear SIE
//	18029073   CSRRW  x0, satp, t0        install new satp
//	12000073   SFENCE.VMA x0, x0          flush TLB
//	00038113   ADDI   sp, t2, 0           set stack pointer
//	00030067   JALR   x0, t1, 0           jump to kernel entry
//
// a0 (BootInfo physical address) and a1 (boot hart id) are never
// touched here; the launcher preloads them and they pass through
// unmodified to the kernel.
var Stub = []byte{
	0x73, 0x70, 0x01, 0x10,
	0x73, 0x90, 0x02, 0x18,
	0x73, 0x00, 0x00, 0x12,
	0x13, 0x81, 0x03, 0x00,
	0x67, 0x00, 0x03, 0x00,
}
