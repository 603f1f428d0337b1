package firmware

import "unsafe"

// configTableEntry mirrors EFI_CONFIGURATION_TABLE.
type configTableEntry struct {
	VendorGUID  GUID
	VendorTable uintptr
}

// SystemTable mirrors the fields of EFI_SYSTEM_TABLE this loader reads.
type SystemTable struct {
	Hdr                  tableHeader
	FirmwareVendor       uintptr
	FirmwareRevision     uint32
	_                    uint32
	ConsoleInHandle      uintptr
	ConIn                uintptr
	ConsoleOutHandle     uintptr
	ConOut               uintptr
	StandardErrorHandle  uintptr
	StdErr               uintptr
	RuntimeServices      uintptr
	BootServicesPtr      uintptr
	NumberOfTableEntries uint64
	ConfigurationTable   uintptr
}

// NewSystemTable wraps the EFI_SYSTEM_TABLE pointer handed to the
// loader's entry point.
func NewSystemTable(addr uintptr) *SystemTable {
	return (*SystemTable)(unsafe.Pointer(addr))
}

// BootServices returns the boot-services table, ready to drive through
// imageHandle.
func (s *SystemTable) BootServices(imageHandle Handle) *Table {
	return NewTable(s.BootServicesPtr, imageHandle)
}

// FindConfigTable walks the configuration table array for guid.
// Returns ok=false if absent; callers record 0 in that case, never an
// error, since a missing RSDP or devicetree entry is expected on the
// other architecture.
func (s *SystemTable) FindConfigTable(guid GUID) (uintptr, bool) {
	entries := unsafe.Slice((*configTableEntry)(unsafe.Pointer(s.ConfigurationTable)), int(s.NumberOfTableEntries))
	for _, e := range entries {
		if e.VendorGUID.Equal(guid) {
			return e.VendorTable, true
		}
	}
	return 0, false
}

// loadedImageProtocol mirrors the EFI_LOADED_IMAGE_PROTOCOL fields this
// loader reads.
type loadedImageProtocol struct {
	Revision     uint32
	ParentHandle uintptr
	SystemTable  uintptr

	DeviceHandle uintptr
	FilePath     uintptr
	Reserved     uintptr
}

// LoadedImage wraps EFI_LOADED_IMAGE_PROTOCOL, used to derive the boot
// device handle.
type LoadedImage struct {
	raw *loadedImageProtocol
}

// NewLoadedImage wraps a raw EFI_LOADED_IMAGE_PROTOCOL*.
func NewLoadedImage(addr uintptr) *LoadedImage {
	return &LoadedImage{raw: (*loadedImageProtocol)(unsafe.Pointer(addr))}
}

// DeviceHandle returns the handle of the device this image was loaded
// from, used to open its simple-file-system protocol.
func (l *LoadedImage) DeviceHandle() Handle {
	return Handle(l.raw.DeviceHandle)
}
