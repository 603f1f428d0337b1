package firmware

import "unsafe"

// AllocateType selects how AllocatePages interprets its memory argument,
// mirroring EFI_ALLOCATE_TYPE.
type AllocateType uint32

const (
	AllocateAnyPages AllocateType = iota
	AllocateMaxAddress
	AllocateAddress
)

// Handle is an opaque EFI_HANDLE.
type Handle uintptr

// BootServices is the subset of EFI_BOOT_SERVICES the orchestrator
// drives. internal/bootloader depends only on this interface; *Table is
// the real firmware-backed implementation, tests substitute a fake.
type BootServices interface {
	AllocatePagesFixed(phys uint64, pages uint64, memType MemoryType) error
	AllocatePagesAny(pages uint64, memType MemoryType) (uint64, error)
	FreePool(ptr uint64) error
	GetMemoryMap(buf []byte) (MemoryMap, error)
	MemoryMapBufferSize() (int, error)
	ExitBootServices(mapKey uint64) error
	LocateHandleBuffer(protocol GUID) ([]Handle, error)
	LocateAllHandles() ([]Handle, error)
	OpenProtocol(handle Handle, protocol GUID) (uintptr, error)
	HandleProtocol(handle Handle, protocol GUID) (uintptr, error)
	ConnectController(handle Handle) error
}

// tableHeader mirrors EFI_TABLE_HEADER, the common prologue of every
// UEFI services table.
type tableHeader struct {
	Signature  uint64
	Revision   uint32
	HeaderSize uint32
	CRC32      uint32
	_          uint32
}

// table mirrors the function-pointer layout of EFI_BOOT_SERVICES in
// firmware-call order. Every field is the raw entry point address;
// Table's methods cross into it through the callN thunks in
// abi_amd64.s/abi_riscv64.s.
type table struct {
	Hdr tableHeader

	RaiseTPL, RestoreTPL uintptr

	AllocatePages, FreePages, GetMemoryMap, AllocatePool, FreePoolFn uintptr

	CreateEvent, SetTimer, WaitForEvent, SignalEvent, CloseEvent, CheckEvent uintptr

	InstallProtocolInterface, ReinstallProtocolInterface, UninstallProtocolInterface uintptr

	HandleProtocolFn, reserved uintptr

	RegisterProtocolNotify uintptr

	LocateHandle, LocateDevicePath, InstallConfigurationTable uintptr

	LoadImage, StartImage, Exit, UnloadImage, ExitBootServicesFn uintptr

	GetNextMonotonicCount, Stall, SetWatchdogTimer uintptr

	ConnectControllerFn, DisconnectController uintptr

	OpenProtocolFn, CloseProtocol, OpenProtocolInformation uintptr

	ProtocolsPerHandle, LocateHandleBufferFn, LocateProtocol uintptr

	InstallMultipleProtocolInterfaces, UninstallMultipleProtocolInterfaces uintptr

	CalculateCrc32 uintptr

	CopyMem, SetMem uintptr

	CreateEventEx uintptr
}

// Table is the firmware-backed BootServices implementation: raw is the
// physical address of firmware's EFI_BOOT_SERVICES table, handed down
// from the system table at process entry.
type Table struct {
	raw         *table
	imageHandle Handle
}

var _ BootServices = (*Table)(nil)

// NewTable wraps the boot-services table at the given address, as
// published through EFI_SYSTEM_TABLE.BootServices. imageHandle is the
// running image's own handle, required by ExitBootServices.
func NewTable(addr uintptr, imageHandle Handle) *Table {
	return &Table{raw: (*table)(unsafe.Pointer(addr)), imageHandle: imageHandle}
}

func (t *Table) AllocatePagesFixed(phys uint64, pages uint64, memType MemoryType) error {
	physArg := phys
	status := Status(call4(t.raw.AllocatePages,
		uintptr(AllocateAddress), uintptr(memType), uintptr(pages), uintptr(unsafe.Pointer(&physArg))))
	if status.IsError() {
		return &UefiError{Status: status}
	}
	return nil
}

func (t *Table) AllocatePagesAny(pages uint64, memType MemoryType) (uint64, error) {
	var addr uint64
	status := Status(call4(t.raw.AllocatePages,
		uintptr(AllocateAnyPages), uintptr(memType), uintptr(pages), uintptr(unsafe.Pointer(&addr))))
	if status.IsError() {
		return 0, &UefiError{Status: status}
	}
	return addr, nil
}

func (t *Table) FreePool(ptr uint64) error {
	status := Status(call1(t.raw.FreePoolFn, uintptr(ptr)))
	if status.IsError() {
		return &UefiError{Status: status}
	}
	return nil
}

// MemoryMapBufferSize performs the first, size-discovering GetMemoryMap
// call and adds 16 descriptors of slack so the buffer allocation itself
// does not invalidate the size it just queried.
func (t *Table) MemoryMapBufferSize() (int, error) {
	var size uintptr
	var key, descSize uint64
	var descVersion uint32
	status := Status(call5(t.raw.GetMemoryMap,
		uintptr(unsafe.Pointer(&size)), 0,
		uintptr(unsafe.Pointer(&key)), uintptr(unsafe.Pointer(&descSize)),
		uintptr(unsafe.Pointer(&descVersion))))
	if status != StatusBufferTooSmall && status.IsError() {
		return 0, &UefiError{Status: status}
	}
	if descSize == 0 {
		descSize = descriptorWireSize
	}
	return int(size) + 16*int(descSize), nil
}

// GetMemoryMap fills buf with the current memory map and returns it
// along with the map key the snapshot is valid under.
func (t *Table) GetMemoryMap(buf []byte) (MemoryMap, error) {
	size := uintptr(len(buf))
	var key, descSize uint64
	var descVersion uint32
	status := Status(call5(t.raw.GetMemoryMap,
		uintptr(unsafe.Pointer(&size)), uintptr(unsafe.Pointer(&buf[0])),
		uintptr(unsafe.Pointer(&key)), uintptr(unsafe.Pointer(&descSize)),
		uintptr(unsafe.Pointer(&descVersion))))
	if status.IsError() {
		return MemoryMap{}, &UefiError{Status: status}
	}
	return MemoryMap{Buffer: buf[:size], DescriptorSize: descSize, Key: key}, nil
}

// ExitBootServices calls EFI_BOOT_SERVICES.ExitBootServices with the
// given map key. Callers implement the single-retry-on-stale-key
// policy; this method never retries on its own.
func (t *Table) ExitBootServices(mapKey uint64) error {
	status := Status(call2(t.raw.ExitBootServicesFn, uintptr(t.imageHandle), uintptr(mapKey)))
	if status.IsError() {
		return &UefiError{Status: status}
	}
	return nil
}

// LocateHandleBuffer returns every handle carrying protocol. The
// pool buffer firmware allocates for the result is copied out and freed
// before returning.
func (t *Table) LocateHandleBuffer(protocol GUID) ([]Handle, error) {
	var count uintptr
	var buf uintptr
	const byProtocol = 2 // EFI_LOCATE_HANDLE_SEARCH_TYPE
	status := Status(call5(t.raw.LocateHandleBufferFn,
		uintptr(byProtocol), uintptr(unsafe.Pointer(&protocol)), 0,
		uintptr(unsafe.Pointer(&count)), uintptr(unsafe.Pointer(&buf))))
	if status.IsError() {
		return nil, &UefiError{Status: status}
	}
	handles := unsafe.Slice((*Handle)(unsafe.Pointer(buf)), int(count))
	out := make([]Handle, len(handles))
	copy(out, handles)
	_ = t.FreePool(uint64(buf))
	return out, nil
}

// LocateAllHandles returns every handle in the handle database, used to
// force driver binding across the board before protocol lookups.
func (t *Table) LocateAllHandles() ([]Handle, error) {
	var count uintptr
	var buf uintptr
	const allHandles = 0 // EFI_LOCATE_HANDLE_SEARCH_TYPE
	status := Status(call5(t.raw.LocateHandleBufferFn,
		uintptr(allHandles), 0, 0,
		uintptr(unsafe.Pointer(&count)), uintptr(unsafe.Pointer(&buf))))
	if status.IsError() {
		return nil, &UefiError{Status: status}
	}
	handles := unsafe.Slice((*Handle)(unsafe.Pointer(buf)), int(count))
	out := make([]Handle, len(handles))
	copy(out, handles)
	_ = t.FreePool(uint64(buf))
	return out, nil
}

func (t *Table) OpenProtocol(handle Handle, protocol GUID) (uintptr, error) {
	var iface uintptr
	const attrByHandleProtocol = 1
	status := Status(call6(t.raw.OpenProtocolFn,
		uintptr(handle), uintptr(unsafe.Pointer(&protocol)), uintptr(unsafe.Pointer(&iface)),
		0, 0, attrByHandleProtocol))
	if status.IsError() {
		return 0, &UefiError{Status: status}
	}
	return iface, nil
}

func (t *Table) HandleProtocol(handle Handle, protocol GUID) (uintptr, error) {
	var iface uintptr
	status := Status(call3(t.raw.HandleProtocolFn,
		uintptr(handle), uintptr(unsafe.Pointer(&protocol)), uintptr(unsafe.Pointer(&iface))))
	if status.IsError() {
		return 0, &UefiError{Status: status}
	}
	return iface, nil
}

// ConnectController forces driver binding on handle, required on
// platforms that do not auto-connect controllers during BDS.
func (t *Table) ConnectController(handle Handle) error {
	status := Status(call4(t.raw.ConnectControllerFn, uintptr(handle), 0, 0, 0))
	if status.IsError() && status != StatusNotFound {
		return &UefiError{Status: status}
	}
	return nil
}
