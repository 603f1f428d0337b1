// Package riscv64 builds RISC-V Sv48 four-level page tables.
package riscv64

import (
	"encoding/binary"

	"github.com/gk9339/seraph/internal/paging"
)

const (
	entrySize = 8

	pteValid    = uint64(1) << 0
	pteRead     = uint64(1) << 1
	pteWrite    = uint64(1) << 2
	pteExec     = uint64(1) << 3
	pteAccessed = uint64(1) << 6
	pteDirty    = uint64(1) << 7

	ppnShift = 10

	// satpModeSv48 is the MODE field value selecting Sv48 translation.
	satpModeSv48 = uint64(9)
	satpModeBit  = 60
)

// Table builds Sv48 hierarchies against frames handed out by alloc.
type Table struct {
	alloc paging.FrameAllocator
}

// NewTable returns a page table builder backed by alloc.
func NewTable(alloc paging.FrameAllocator) *Table {
	return &Table{alloc: alloc}
}

var _ paging.Builder = (*Table)(nil)

// NewRoot allocates one zeroed root frame. AllocFrame already returns
// zeroed memory, so every entry starts invalid.
func (t *Table) NewRoot() (uint64, error) {
	return t.alloc.AllocFrame()
}

// RootPhys returns the satp value for root: MODE=Sv48 in the top four
// bits and the root's page number in the low 44 bits.
func (t *Table) RootPhys(root uint64) uint64 {
	return (satpModeSv48 << satpModeBit) | (root >> 12)
}

// Map installs 4 KiB leaf entries covering [virt, virt+size) -> [phys, ...)
// walking (and lazily allocating) the four-level Sv48 hierarchy rooted at
// root.
func (t *Table) Map(root, virt, phys, size uint64, flags paging.PageFlags) error {
	if flags.WX() {
		return paging.ErrWxViolation
	}

	pageCount := paging.PageCount(size)
	for i := uint64(0); i < pageCount; i++ {
		v := virt + i*paging.PageSize
		p := phys + i*paging.PageSize
		if err := t.mapPage(root, v, p, flags); err != nil {
			return err
		}
	}
	return nil
}

func (t *Table) mapPage(root, virt, phys uint64, flags paging.PageFlags) error {
	indices := [4]uint64{
		(virt >> 39) & 0x1FF, // VPN[3]
		(virt >> 30) & 0x1FF, // VPN[2]
		(virt >> 21) & 0x1FF, // VPN[1]
		(virt >> 12) & 0x1FF, // VPN[0]
	}

	table := root
	for level := 0; level < 3; level++ {
		next, err := t.descend(table, indices[level])
		if err != nil {
			return err
		}
		table = next
	}

	return t.setLeaf(table, indices[3], phys, flags)
}

// descend reads (or lazily creates) the intermediate entry at idx.
// Intermediate entries carry V only, with R, W and X all clear, so the
// hardware walker keeps descending instead of treating the entry as a
// leaf.
func (t *Table) descend(table, idx uint64) (uint64, error) {
	frame, err := t.alloc.Frame(table)
	if err != nil {
		return 0, err
	}

	entry := readEntry(frame, idx)
	if entry&pteValid != 0 {
		return ppn(entry) << 12, nil
	}

	child, err := t.alloc.AllocFrame()
	if err != nil {
		return 0, paging.ErrOutOfMemory
	}
	writeEntry(frame, idx, ((child>>12)<<ppnShift)|pteValid)
	return child, nil
}

// setLeaf installs a leaf PTE. V, R and A are always set; W and D
// travel together when the mapping is writable; X is set when
// executable. Writing A and D up front avoids faults on hardware that
// does not update them itself.
func (t *Table) setLeaf(table, idx, phys uint64, flags paging.PageFlags) error {
	frame, err := t.alloc.Frame(table)
	if err != nil {
		return err
	}

	entry := ((phys >> 12) << ppnShift) | pteValid | pteRead | pteAccessed
	if flags.Writable {
		entry |= pteWrite | pteDirty
	}
	if flags.Executable {
		entry |= pteExec
	}
	writeEntry(frame, idx, entry)
	return nil
}

func ppn(entry uint64) uint64 {
	return entry >> ppnShift
}

func readEntry(frame []byte, idx uint64) uint64 {
	return binary.LittleEndian.Uint64(frame[idx*entrySize:])
}

func writeEntry(frame []byte, idx, value uint64) {
	binary.LittleEndian.PutUint64(frame[idx*entrySize:], value)
}
