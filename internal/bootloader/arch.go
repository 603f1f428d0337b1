package bootloader

import (
	"github.com/gk9339/seraph/internal/elfload"
	"github.com/gk9339/seraph/internal/paging"
)

// Arch collects the per-architecture pieces the orchestrator needs, so
// Run itself stays a single architecture-neutral sequence. The concrete
// wiring lives in arch_amd64.go and arch_riscv64.go; only the matching
// file is compiled into each build, since the trampoline launchers are
// assembly that exists for one GOARCH at a time.
type Arch struct {
	Machine    elfload.Machine
	NewBuilder func(alloc paging.FrameAllocator) paging.Builder
	Stub       []byte
	PageBounds func(phys uint64) (first, last uint64)
	Enter      func(stubAddr, root, entry, bootInfoPhys, stackTop, hartID uintptr)
}
