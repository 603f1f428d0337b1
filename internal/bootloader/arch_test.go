package bootloader

import "github.com/gk9339/seraph/internal/paging"

// fakeAllocator is a minimal in-memory paging.FrameAllocator, enough to
// exercise Arch.NewBuilder without any firmware dependency.
type fakeAllocator struct {
	frames map[uint64][]byte
	next   uint64
}

func newFakeAllocator() *fakeAllocator {
	return &fakeAllocator{frames: make(map[uint64][]byte), next: 0x10000}
}

func (a *fakeAllocator) AllocFrame() (uint64, error) {
	phys := a.next
	a.next += paging.PageSize
	a.frames[phys] = make([]byte, paging.PageSize)
	return phys, nil
}

func (a *fakeAllocator) Frame(phys uint64) ([]byte, error) {
	return a.frames[phys], nil
}
