package bootloader

import (
	"unsafe"

	"github.com/gk9339/seraph/internal/elfload"
	"github.com/gk9339/seraph/internal/firmware"
	"github.com/gk9339/seraph/internal/paging"
)

// physBytes views size bytes of physical memory at phys as a slice.
// Valid only because firmware keeps an identity map of all memory while
// boot services live, and the page-table builder is responsible for
// keeping it identity-mapped afterward.
func physBytes(phys, size uint64) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(uintptr(phys))), int(size))
}

// firmwareMemory adapts firmware.BootServices to the narrower
// paging.FrameAllocator and elfload.Memory capability interfaces those
// packages declare, so neither depends on the firmware package directly.
type firmwareMemory struct {
	bs      firmware.BootServices
	memType firmware.MemoryType
}

func newFirmwareMemory(bs firmware.BootServices) *firmwareMemory {
	return &firmwareMemory{bs: bs, memType: firmware.EfiLoaderData}
}

var _ paging.FrameAllocator = (*firmwareMemory)(nil)
var _ elfload.Memory = (*firmwareMemory)(nil)

func (m *firmwareMemory) AllocFrame() (uint64, error) {
	phys, err := m.bs.AllocatePagesAny(1, m.memType)
	if err != nil {
		return 0, err
	}
	clear(physBytes(phys, paging.PageSize))
	return phys, nil
}

func (m *firmwareMemory) Frame(physAddr uint64) ([]byte, error) {
	return physBytes(physAddr, paging.PageSize), nil
}

func (m *firmwareMemory) AllocFixed(phys, pages uint64) error {
	return m.bs.AllocatePagesFixed(phys, pages, m.memType)
}

func (m *firmwareMemory) AllocAny(pages uint64) (uint64, error) {
	return m.bs.AllocatePagesAny(pages, m.memType)
}

func (m *firmwareMemory) Write(phys uint64, data []byte) error {
	copy(physBytes(phys, uint64(len(data))), data)
	return nil
}

func (m *firmwareMemory) Zero(phys, size uint64) error {
	clear(physBytes(phys, size))
	return nil
}
