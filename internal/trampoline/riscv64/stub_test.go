package riscv64

import (
	"encoding/binary"
	"testing"
)

func TestStubInstructionWords(t *testing.T) {
	want := []uint32{
		0x10017073, // CSRRCI x0, sstatus, 2
		0x18029073, // CSRRW x0, satp, t0
		0x12000073, // SFENCE.VMA x0, x0
		0x00038113, // ADDI sp, t2, 0
		0x00030067, // JALR x0, t1, 0
	}
	if len(Stub) != 4*len(want) {
		t.Fatalf("stub is %d bytes, want %d", len(Stub), 4*len(want))
	}
	for i, w := range want {
		if got := binary.LittleEndian.Uint32(Stub[4*i:]); got != w {
			t.Fatalf("instruction %d = %#08x, want %#08x", i, got, w)
		}
	}
}

func TestPageBoundsStraddlesPageBoundary(t *testing.T) {
	phys := uint64(0x20_1000) - 8
	first, last := PageBounds(phys)
	if first != 0x20_0000 {
		t.Fatalf("first = %#x, want 0x200000", first)
	}
	if last != 0x20_1000 {
		t.Fatalf("last = %#x, want 0x201000", last)
	}
}
