package bootloader

import (
	"github.com/gk9339/seraph/internal/elfload"
	"github.com/gk9339/seraph/internal/paging"
	"github.com/gk9339/seraph/internal/paging/riscv64"
	tramp "github.com/gk9339/seraph/internal/trampoline/riscv64"
)

// NewRiscv64Arch returns the RISC-V wiring: Sv48 tables, the
// satp-encoded root, and the clear-SIE, write-satp, SFENCE.VMA, set-sp,
// jump stub.
func NewRiscv64Arch() Arch {
	return Arch{
		Machine: elfload.MachineRISCV64,
		NewBuilder: func(alloc paging.FrameAllocator) paging.Builder {
			return riscv64.NewTable(alloc)
		},
		Stub:       tramp.Stub,
		PageBounds: tramp.PageBounds,
		Enter: func(stubAddr, satp, entry, bootInfoPhys, stackTop, hartID uintptr) {
			tramp.Enter(stubAddr, satp, entry, stackTop, bootInfoPhys, hartID)
		},
	}
}
