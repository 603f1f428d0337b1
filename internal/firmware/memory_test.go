package firmware

import (
	"testing"

	"github.com/gk9339/seraph/internal/bootproto"
)

func TestTranslateMemoryTypeIsIdempotent(t *testing.T) {
	types := []MemoryType{
		EfiReservedMemoryType, EfiLoaderCode, EfiLoaderData,
		EfiBootServicesCode, EfiBootServicesData, EfiRuntimeServicesCode,
		EfiRuntimeServicesData, EfiConventionalMemory, EfiUnusableMemory,
		EfiACPIReclaimMemory, EfiACPIMemoryNVS, EfiMemoryMappedIO,
		EfiMemoryMappedIOPortSpace, EfiPalCode, EfiPersistentMemory,
	}
	for _, ty := range types {
		first := TranslateMemoryType(ty)
		second := TranslateMemoryType(ty)
		if first != second {
			t.Fatalf("TranslateMemoryType(%d) not idempotent: %v != %v", ty, first, second)
		}
	}
}

func TestTranslateMemoryTypeScenario5(t *testing.T) {
	cases := []struct {
		in   MemoryType
		want bootproto.MemoryType
	}{
		{EfiConventionalMemory, bootproto.MemoryUsable},
		{EfiBootServicesData, bootproto.MemoryUsable},
		{EfiLoaderData, bootproto.MemoryLoaded},
	}
	for _, c := range cases {
		if got := TranslateMemoryType(c.in); got != c.want {
			t.Fatalf("TranslateMemoryType(%d) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestMemoryMapAtUsesDescriptorStride(t *testing.T) {
	const stride = 48 // 8 bytes of padding beyond descriptorWireSize
	buf := make([]byte, stride*3)

	write := func(i int, ty MemoryType, phys uint64) {
		off := i * stride
		putDescriptor(buf[off:off+descriptorWireSize], ty, phys)
	}
	write(0, EfiConventionalMemory, 0x1000)
	write(1, EfiBootServicesData, 0x0)
	write(2, EfiLoaderData, 0x2000)

	m := MemoryMap{Buffer: buf, DescriptorSize: stride}
	if m.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", m.Len())
	}

	d0 := m.At(0)
	if d0.PhysicalStart != 0x1000 || TranslateMemoryType(d0.Type) != bootproto.MemoryUsable {
		t.Fatalf("descriptor 0 decoded wrong: %+v", d0)
	}
	d2 := m.At(2)
	if d2.PhysicalStart != 0x2000 || TranslateMemoryType(d2.Type) != bootproto.MemoryLoaded {
		t.Fatalf("descriptor 2 decoded wrong: %+v", d2)
	}
}

// putDescriptor encodes a Descriptor's wire fields by hand so the test
// does not depend on any encoding helper the production stride-aware
// reader also uses.
func putDescriptor(raw []byte, ty MemoryType, phys uint64) {
	le32 := func(b []byte, v uint32) {
		b[0] = byte(v)
		b[1] = byte(v >> 8)
		b[2] = byte(v >> 16)
		b[3] = byte(v >> 24)
	}
	le64 := func(b []byte, v uint64) {
		for i := 0; i < 8; i++ {
			b[i] = byte(v >> (8 * i))
		}
	}
	le32(raw[0:4], uint32(ty))
	le64(raw[8:16], phys)
}
