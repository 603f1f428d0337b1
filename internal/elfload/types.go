package elfload

import "github.com/gk9339/seraph/internal/bootproto"

// MaxSegments bounds the inline segment arrays below, mirroring
// bootproto.MaxSegments so KernelInfo and the InitImage this package
// produces both satisfy BootInfo's fixed-size contract.
const MaxSegments = bootproto.MaxSegments

// LoadedSegment is one placed kernel LOAD segment.
type LoadedSegment struct {
	PhysBase   uint64
	VirtBase   uint64
	Size       uint64
	Writable   bool
	Executable bool
}

// KernelInfo is the placement result for the microkernel image:
// physical and virtual bases, total physical span, entry address, and
// the committed segments.
type KernelInfo struct {
	PhysicalBase uint64
	VirtualBase  uint64
	Size         uint64
	EntryVirtual uint64
	Segments     [MaxSegments]LoadedSegment
	SegmentCount uint32
}

// Memory is the physical-memory capability the loader needs to place
// segments: fixed and any-address allocation, plus raw byte access for
// copying file contents and zeroing BSS. internal/bootloader's
// firmwareMemory implements this against the firmware AllocatePages
// calls; tests use an in-memory stand-in.
type Memory interface {
	// AllocFixed requests pages pages at the given physical address.
	AllocFixed(phys, pages uint64) error
	// AllocAny requests pages pages at firmware's choice of address.
	AllocAny(pages uint64) (uint64, error)
	// Write copies data to the frame(s) at phys. phys..phys+len(data)
	// must already be allocated.
	Write(phys uint64, data []byte) error
	// Zero clears size bytes starting at phys.
	Zero(phys, size uint64) error
}
