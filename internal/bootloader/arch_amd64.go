package bootloader

import (
	"github.com/gk9339/seraph/internal/elfload"
	"github.com/gk9339/seraph/internal/paging"
	"github.com/gk9339/seraph/internal/paging/amd64"
	tramp "github.com/gk9339/seraph/internal/trampoline/amd64"
)

// NewAmd64Arch returns the x86-64 wiring: PML4 tables, the root physical
// address used directly as CR3, and the CLD;CLI;MOV CR3;MOV RSP;MOV RDI;
// JMP stub.
func NewAmd64Arch() Arch {
	return Arch{
		Machine: elfload.MachineX86_64,
		NewBuilder: func(alloc paging.FrameAllocator) paging.Builder {
			return amd64.NewTable(alloc)
		},
		Stub:       tramp.Stub,
		PageBounds: tramp.PageBounds,
		Enter: func(stubAddr, root, entry, bootInfoPhys, stackTop, hartID uintptr) {
			// hartID has no x86-64 register contract; it is accepted
			// here only so the orchestrator's call site stays
			// architecture-neutral.
			tramp.Enter(stubAddr, root, entry, bootInfoPhys, stackTop)
		},
	}
}
