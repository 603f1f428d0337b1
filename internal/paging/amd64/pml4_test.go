package amd64

import (
	"testing"

	"github.com/gk9339/seraph/internal/paging"
)

// memAllocator is an in-memory stand-in for firmware page allocation.
type memAllocator struct {
	frames map[uint64][]byte
	next   uint64
	fail   bool
}

func newMemAllocator() *memAllocator {
	return &memAllocator{frames: make(map[uint64][]byte), next: 0x10_0000}
}

func (m *memAllocator) AllocFrame() (uint64, error) {
	if m.fail {
		return 0, paging.ErrOutOfMemory
	}
	addr := m.next
	m.next += paging.PageSize
	m.frames[addr] = make([]byte, paging.PageSize)
	return addr, nil
}

func (m *memAllocator) Frame(physAddr uint64) ([]byte, error) {
	frame, ok := m.frames[physAddr]
	if !ok {
		return nil, paging.ErrOutOfMemory
	}
	return frame, nil
}

func TestMapRejectsWriteExecute(t *testing.T) {
	alloc := newMemAllocator()
	table := NewTable(alloc)
	root, err := table.NewRoot()
	if err != nil {
		t.Fatalf("NewRoot: %v", err)
	}

	err = table.Map(root, 0x1000, 0x1000, paging.PageSize, paging.PageFlags{Writable: true, Executable: true})
	if err != paging.ErrWxViolation {
		t.Fatalf("expected ErrWxViolation, got %v", err)
	}
}

func TestMapInstallsLeafWithExpectedBits(t *testing.T) {
	alloc := newMemAllocator()
	table := NewTable(alloc)
	root, err := table.NewRoot()
	if err != nil {
		t.Fatalf("NewRoot: %v", err)
	}

	virt := uint64(0x0000_0000_4000_0000)
	phys := uint64(0x20_0000)
	if err := table.Map(root, virt, phys, paging.PageSize, paging.PageFlags{Writable: true}); err != nil {
		t.Fatalf("Map: %v", err)
	}

	pt := walkToPT(t, alloc, root, virt)
	idx := (virt >> 12) & 0x1FF
	entry := readEntry(pt, idx)

	if entry&flagPresent == 0 {
		t.Fatalf("leaf entry not present: %#x", entry)
	}
	if entry&flagWritable == 0 {
		t.Fatalf("leaf entry not writable: %#x", entry)
	}
	if entry&flagNoExec == 0 {
		t.Fatalf("leaf entry should be NX since Executable was false: %#x", entry)
	}
	if entry&physMask != phys {
		t.Fatalf("leaf phys = %#x, want %#x", entry&physMask, phys)
	}
}

func TestMapExecutableClearsNoExecute(t *testing.T) {
	alloc := newMemAllocator()
	table := NewTable(alloc)
	root, _ := table.NewRoot()

	virt := uint64(0x1000)
	phys := uint64(0x30_0000)
	if err := table.Map(root, virt, phys, paging.PageSize, paging.PageFlags{Executable: true}); err != nil {
		t.Fatalf("Map: %v", err)
	}

	pt := walkToPT(t, alloc, root, virt)
	entry := readEntry(pt, (virt>>12)&0x1FF)
	if entry&flagNoExec != 0 {
		t.Fatalf("executable leaf should not be NX: %#x", entry)
	}
	if entry&flagWritable != 0 {
		t.Fatalf("executable-only leaf should not be writable: %#x", entry)
	}
}

func TestMapOutOfMemoryPropagates(t *testing.T) {
	alloc := newMemAllocator()
	table := NewTable(alloc)
	root, _ := table.NewRoot()

	alloc.fail = true
	err := table.Map(root, 0x2000, 0x40_0000, paging.PageSize, paging.PageFlags{})
	if err != paging.ErrOutOfMemory {
		t.Fatalf("expected ErrOutOfMemory, got %v", err)
	}
}

func TestRootPhysIsIdentity(t *testing.T) {
	table := NewTable(newMemAllocator())
	if table.RootPhys(0x12345000) != 0x12345000 {
		t.Fatalf("RootPhys should return root unchanged on x86-64")
	}
}

func walkToPT(t *testing.T, alloc *memAllocator, root, virt uint64) []byte {
	t.Helper()
	indices := [3]uint64{
		(virt >> 39) & 0x1FF,
		(virt >> 30) & 0x1FF,
		(virt >> 21) & 0x1FF,
	}
	table := root
	for _, idx := range indices {
		frame, err := alloc.Frame(table)
		if err != nil {
			t.Fatalf("Frame(%#x): %v", table, err)
		}
		entry := readEntry(frame, idx)
		if entry&flagPresent == 0 {
			t.Fatalf("intermediate entry at index %d not present", idx)
		}
		table = entry & physMask
	}
	pt, err := alloc.Frame(table)
	if err != nil {
		t.Fatalf("Frame(%#x): %v", table, err)
	}
	return pt
}

func TestMapKernelVirtualAddressResolves(t *testing.T) {
	alloc := newMemAllocator()
	table := NewTable(alloc)
	root, _ := table.NewRoot()

	virt := uint64(0xFFFF_FFFF_8020_0000)
	phys := uint64(0x20_0000)
	if err := table.Map(root, virt, phys, paging.PageSize, paging.PageFlags{Executable: true}); err != nil {
		t.Fatalf("Map: %v", err)
	}

	pt := walkToPT(t, alloc, root, virt)
	entry := readEntry(pt, (virt>>12)&0x1FF)
	if entry&flagPresent == 0 {
		t.Fatalf("leaf not present: %#x", entry)
	}
	if entry&flagNoExec != 0 {
		t.Fatalf("kernel text leaf should be executable: %#x", entry)
	}
	if entry&flagWritable != 0 {
		t.Fatalf("kernel text leaf should not be writable: %#x", entry)
	}
	if entry&physMask != phys {
		t.Fatalf("leaf phys = %#x, want %#x", entry&physMask, phys)
	}
}

func TestMapTwiceIsIdempotent(t *testing.T) {
	alloc := newMemAllocator()
	table := NewTable(alloc)
	root, _ := table.NewRoot()

	virt := uint64(0x40_0000)
	phys := uint64(0x50_0000)
	flags := paging.PageFlags{Writable: true}
	if err := table.Map(root, virt, phys, paging.PageSize, flags); err != nil {
		t.Fatalf("first Map: %v", err)
	}
	framesAfterFirst := len(alloc.frames)
	first := readEntry(walkToPT(t, alloc, root, virt), (virt>>12)&0x1FF)

	if err := table.Map(root, virt, phys, paging.PageSize, flags); err != nil {
		t.Fatalf("second Map: %v", err)
	}
	if len(alloc.frames) != framesAfterFirst {
		t.Fatalf("second identical Map allocated %d new frames", len(alloc.frames)-framesAfterFirst)
	}
	second := readEntry(walkToPT(t, alloc, root, virt), (virt>>12)&0x1FF)
	if first != second {
		t.Fatalf("leaf changed on identical re-map: %#x != %#x", first, second)
	}
}

func TestMapRoundsSizeUpAndZeroMapsNothing(t *testing.T) {
	alloc := newMemAllocator()
	table := NewTable(alloc)
	root, _ := table.NewRoot()

	if err := table.Map(root, 0x10_0000, 0x60_0000, paging.PageSize+1, paging.PageFlags{}); err != nil {
		t.Fatalf("Map: %v", err)
	}
	pt := walkToPT(t, alloc, root, 0x10_0000)
	if readEntry(pt, (0x10_1000>>12)&0x1FF)&flagPresent == 0 {
		t.Fatalf("size should round up to cover a second page")
	}

	framesBefore := len(alloc.frames)
	if err := table.Map(root, 0x7000_0000, 0x7000_0000, 0, paging.PageFlags{}); err != nil {
		t.Fatalf("Map size 0: %v", err)
	}
	if len(alloc.frames) != framesBefore {
		t.Fatalf("Map with size 0 should install nothing")
	}
}
