package firmware

import "encoding/binary"

// descriptorWireSize is unsafe.Sizeof(Descriptor{}) as encoded on the
// wire; it is NOT necessarily the stride firmware uses between entries,
// so MemoryMap.At always indexes by DescriptorSize.
const descriptorWireSize = 40

// MemoryMap is the raw buffer GetMemoryMap filled, plus the map key
// ExitBootServices must be called with. Iteration must use DescriptorSize
// as the stride, never unsafe.Sizeof(Descriptor{}), since firmware may
// report a larger stride to leave room for future fields.
type MemoryMap struct {
	Buffer         []byte
	DescriptorSize uint64
	Key            uint64
}

// Len returns the number of descriptors in the map.
func (m MemoryMap) Len() int {
	if m.DescriptorSize == 0 {
		return 0
	}
	return len(m.Buffer) / int(m.DescriptorSize)
}

// At decodes the i'th descriptor using the firmware-reported stride.
func (m MemoryMap) At(i int) Descriptor {
	off := uint64(i) * m.DescriptorSize
	raw := m.Buffer[off : off+descriptorWireSize]
	return Descriptor{
		Type:          MemoryType(binary.LittleEndian.Uint32(raw[0:4])),
		PhysicalStart: binary.LittleEndian.Uint64(raw[8:16]),
		VirtualStart:  binary.LittleEndian.Uint64(raw[16:24]),
		NumberOfPages: binary.LittleEndian.Uint64(raw[24:32]),
		Attribute:     binary.LittleEndian.Uint64(raw[32:40]),
	}
}
