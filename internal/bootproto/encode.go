package bootproto

import "encoding/binary"

// MemoryMapEntrySize is the on-wire size of one encoded MemoryMapEntry:
// physical base, size, and a 4-byte type tag plus padding.
const MemoryMapEntrySize = 24

// EncodeMemoryMapEntry writes one entry to buf (which must be at least
// MemoryMapEntrySize bytes).
func EncodeMemoryMapEntry(buf []byte, e MemoryMapEntry) {
	binary.LittleEndian.PutUint64(buf[0:8], e.PhysBase)
	binary.LittleEndian.PutUint64(buf[8:16], e.Size)
	binary.LittleEndian.PutUint32(buf[16:20], uint32(e.Type))
}

// EncodeMemoryMap writes entries back-to-back into buf, which must be at
// least len(entries)*MemoryMapEntrySize bytes.
func EncodeMemoryMap(buf []byte, entries []MemoryMapEntry) {
	for i, e := range entries {
		EncodeMemoryMapEntry(buf[i*MemoryMapEntrySize:], e)
	}
}

// Wire sizes of the encoded field groups. version, InitSegment and
// InitImage each carry 4 bytes of trailing padding to keep the next
// 8-byte field aligned; FramebufferInfo is 24 bytes and needs none.
const (
	versionSize         = 4 + 4
	sliceSize           = 8 + 8
	initSegmentSize     = 8 + 8 + 8 + 4 + 4
	initImageSize       = 8 + MaxSegments*initSegmentSize + 4 + 4
	framebufferInfoSize = 8 + 4 + 4 + 4 + 4
)

// bootInfoSize is the encoded size of BootInfo's fixed-layout fields:
// version, memory-map slice, 3 kernel fields, InitImage, modules slice,
// framebuffer, acpi+devicetree, platform-resources slice, command line.
const bootInfoSize = versionSize + sliceSize + 8 + 8 + 8 + initImageSize + sliceSize + framebufferInfoSize + 8 + 8 + sliceSize + 8 + 8

// EncodeBootInfo writes info into buf using BootInfo's stable,
// architecture-independent layout.
func EncodeBootInfo(buf []byte, info BootInfo) {
	le32 := binary.LittleEndian.PutUint32
	le64 := binary.LittleEndian.PutUint64

	off := 0
	le32(buf[off:], info.Version)
	off += 4
	off += 4 // padding before the next 8-byte-aligned field

	le64(buf[off:], info.MemoryMap.Ptr)
	off += 8
	le64(buf[off:], info.MemoryMap.Count)
	off += 8

	le64(buf[off:], info.KernelPhysBase)
	off += 8
	le64(buf[off:], info.KernelVirtBase)
	off += 8
	le64(buf[off:], info.KernelSize)
	off += 8

	le64(buf[off:], info.Init.Entry)
	off += 8
	for i := 0; i < MaxSegments; i++ {
		s := info.Init.Segments[i]
		le64(buf[off:], s.PhysAddr)
		off += 8
		le64(buf[off:], s.VirtAddr)
		off += 8
		le64(buf[off:], s.Size)
		off += 8
		le32(buf[off:], uint32(s.Flags))
		off += 4
		off += 4 // padding
	}
	le32(buf[off:], info.Init.SegmentCount)
	off += 4
	off += 4 // padding

	le64(buf[off:], info.Modules.Ptr)
	off += 8
	le64(buf[off:], info.Modules.Count)
	off += 8

	le64(buf[off:], info.Framebuffer.PhysBase)
	off += 8
	le32(buf[off:], info.Framebuffer.Width)
	off += 4
	le32(buf[off:], info.Framebuffer.Height)
	off += 4
	le32(buf[off:], info.Framebuffer.Stride)
	off += 4
	le32(buf[off:], uint32(info.Framebuffer.Format))
	off += 4

	le64(buf[off:], info.AcpiRsdp)
	off += 8
	le64(buf[off:], info.DeviceTree)
	off += 8

	le64(buf[off:], info.PlatformResources.Ptr)
	off += 8
	le64(buf[off:], info.PlatformResources.Count)
	off += 8

	le64(buf[off:], info.CommandLinePtr)
	off += 8
	le64(buf[off:], info.CommandLineLen)
	off += 8
}

// BootInfoSize returns the minimum buffer size EncodeBootInfo needs.
func BootInfoSize() int { return bootInfoSize }
