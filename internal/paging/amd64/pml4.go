// Package amd64 builds x86-64 four-level (PML4) page tables.
package amd64

import (
	"encoding/binary"

	"github.com/gk9339/seraph/internal/paging"
)

const (
	entryCount = 512
	entrySize  = 8

	flagPresent  = uint64(1) << 0
	flagWritable = uint64(1) << 1
	flagNoExec   = uint64(1) << 63

	physMask = uint64(0x000F_FFFF_FFFF_F000)
)

// Table builds PML4 hierarchies against frames handed out by alloc. At
// boot that is internal/bootloader's firmwareMemory, which backs each
// frame with a firmware AllocatePages call.
type Table struct {
	alloc paging.FrameAllocator
}

// NewTable returns a page table builder backed by alloc.
func NewTable(alloc paging.FrameAllocator) *Table {
	return &Table{alloc: alloc}
}

var _ paging.Builder = (*Table)(nil)

// NewRoot allocates one zeroed PML4 frame. AllocFrame already returns
// zeroed memory, so every entry starts invalid.
func (t *Table) NewRoot() (uint64, error) {
	return t.alloc.AllocFrame()
}

// RootPhys returns root unchanged: on x86-64 the root physical address
// is used directly as CR3.
func (t *Table) RootPhys(root uint64) uint64 {
	return root
}

// Map installs 4 KiB leaf entries covering [virt, virt+size) -> [phys, ...)
// with the requested permissions, walking (and lazily allocating) the
// PML4/PDPT/PD/PT hierarchy rooted at root.
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
		(virt >> 39) & 0x1FF, // PML4
		(virt >> 30) & 0x1FF, // PDPT
		(virt >> 21) & 0x1FF, // PD
		(virt >> 12) & 0x1FF, // PT
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

// descend reads (or lazily creates) the intermediate entry at idx within
// table and returns the physical address of the next level down.
// Intermediate entries use Present|Writable with NX clear so the level
// below may still contain executable leaves; only the leaf's NX bit is
// authoritative.
func (t *Table) descend(table, idx uint64) (uint64, error) {
	frame, err := t.alloc.Frame(table)
	if err != nil {
		return 0, err
	}

	entry := readEntry(frame, idx)
	if entry&flagPresent != 0 {
		return entry & physMask, nil
	}

	child, err := t.alloc.AllocFrame()
	if err != nil {
		return 0, paging.ErrOutOfMemory
	}
	writeEntry(frame, idx, (child&physMask)|flagPresent|flagWritable)
	return child, nil
}

func (t *Table) setLeaf(table, idx, phys uint64, flags paging.PageFlags) error {
	frame, err := t.alloc.Frame(table)
	if err != nil {
		return err
	}

	entry := (phys & physMask) | flagPresent
	if flags.Writable {
		entry |= flagWritable
	}
	if !flags.Executable {
		entry |= flagNoExec
	}
	writeEntry(frame, idx, entry)
	return nil
}

func readEntry(frame []byte, idx uint64) uint64 {
	return binary.LittleEndian.Uint64(frame[idx*entrySize:])
}

func writeEntry(frame []byte, idx, value uint64) {
	binary.LittleEndian.PutUint64(frame[idx*entrySize:], value)
}
