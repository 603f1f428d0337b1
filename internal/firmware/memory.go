package firmware

import "github.com/gk9339/seraph/internal/bootproto"

// MemoryType is the raw EFI_MEMORY_TYPE enumeration firmware uses in
// memory descriptors.
type MemoryType uint32

const (
	EfiReservedMemoryType MemoryType = iota
	EfiLoaderCode
	EfiLoaderData
	EfiBootServicesCode
	EfiBootServicesData
	EfiRuntimeServicesCode
	EfiRuntimeServicesData
	EfiConventionalMemory
	EfiUnusableMemory
	EfiACPIReclaimMemory
	EfiACPIMemoryNVS
	EfiMemoryMappedIO
	EfiMemoryMappedIOPortSpace
	EfiPalCode
	EfiPersistentMemory
)

// Descriptor mirrors EFI_MEMORY_DESCRIPTOR. The firmware-reported
// descriptor stride may exceed unsafe.Sizeof(Descriptor{}); callers
// must iterate using that stride, never this type's size.
type Descriptor struct {
	Type          MemoryType
	_             uint32 // padding to align PhysicalStart on some firmware builds
	PhysicalStart uint64
	VirtualStart  uint64
	NumberOfPages uint64
	Attribute     uint64
}

// TranslateMemoryType maps a firmware memory type to the kernel-facing
// MemoryType. The mapping is a pure function of its input, so
// translating the same value twice always yields the same MemoryType.
func TranslateMemoryType(t MemoryType) bootproto.MemoryType {
	switch t {
	case EfiLoaderCode, EfiLoaderData:
		return bootproto.MemoryLoaded
	case EfiBootServicesCode, EfiBootServicesData, EfiConventionalMemory:
		return bootproto.MemoryUsable
	case EfiACPIReclaimMemory:
		return bootproto.MemoryAcpiReclaimable
	case EfiPersistentMemory:
		return bootproto.MemoryPersistent
	default:
		// EfiReservedMemoryType, EfiRuntimeServices{Code,Data},
		// EfiUnusableMemory, EfiACPIMemoryNVS, EfiMemoryMappedIO(+PortSpace),
		// EfiPalCode, and any firmware-private type this loader doesn't
		// recognize all stay reserved: none of them are safe for the
		// kernel to reuse as general-purpose memory.
		return bootproto.MemoryReserved
	}
}
