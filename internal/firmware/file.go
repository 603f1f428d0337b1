package firmware

import (
	"encoding/binary"
	"unsafe"
)

const (
	fileModeRead = uint64(1) << 0

	// fileInfoBufSize holds an EFI_FILE_INFO record: 80 fixed bytes
	// (Size, FileSize, PhysicalSize, three EFI_TIME stamps, Attribute)
	// plus the variable-length null-terminated UTF-16 FileName tail.
	fileInfoBufSize = 512

	fileInfoFileSizeOff = 8
)

// fileInfoGUID is EFI_FILE_INFO_ID, the only GetInfo information type
// this loader requests: the plain file metadata record carrying size.
var fileInfoGUID = GUID{0x09576E92, 0x6D3F, 0x11D2, [8]byte{0x8E, 0x39, 0x00, 0xA0, 0xC9, 0x69, 0x72, 0x3B}}

// fileProtocol mirrors the EFI_FILE_PROTOCOL vtable layout, in call
// order, starting after its Revision field.
type fileProtocol struct {
	Revision uint64

	OpenFn  uintptr
	CloseFn uintptr
	Delete  uintptr
	ReadFn  uintptr
	Write   uintptr

	GetPositionFn uintptr
	SetPositionFn uintptr

	GetInfoFn uintptr
}

// File is an open handle on the ESP, wrapping EFI_FILE_PROTOCOL.
type File struct {
	raw *fileProtocol
}

// newFile wraps a raw EFI_FILE_PROTOCOL* returned by Open/OpenVolume.
func newFile(addr uintptr) *File {
	return &File{raw: (*fileProtocol)(unsafe.Pointer(addr))}
}

// SimpleFileSystem wraps EFI_SIMPLE_FILE_SYSTEM_PROTOCOL, the entry
// point to the ESP's FAT filesystem.
type SimpleFileSystem struct {
	raw *simpleFileSystemProtocol
}

type simpleFileSystemProtocol struct {
	Revision   uint64
	OpenVolume uintptr
}

// NewSimpleFileSystem wraps a raw EFI_SIMPLE_FILE_SYSTEM_PROTOCOL*.
func NewSimpleFileSystem(addr uintptr) *SimpleFileSystem {
	return &SimpleFileSystem{raw: (*simpleFileSystemProtocol)(unsafe.Pointer(addr))}
}

// OpenVolume opens the root directory of the filesystem.
func (fs *SimpleFileSystem) OpenVolume() (*File, error) {
	var out uintptr
	status := Status(call2(fs.raw.OpenVolume, uintptr(unsafe.Pointer(fs.raw)), uintptr(unsafe.Pointer(&out))))
	if status.IsError() {
		return nil, &UefiError{Status: status}
	}
	return newFile(out), nil
}

// Open resolves a backslash-separated ESP path relative to f, read-only.
func (f *File) Open(path string) (*File, error) {
	wide := utf16FromASCII(path)
	var out uintptr
	status := Status(call5(f.raw.OpenFn,
		uintptr(unsafe.Pointer(f.raw)), uintptr(unsafe.Pointer(&out)),
		uintptr(unsafe.Pointer(&wide[0])), uintptr(fileModeRead), 0))
	if status == StatusNotFound {
		return nil, &ErrFileNotFound{Name: path}
	}
	if status.IsError() {
		return nil, &UefiError{Status: status}
	}
	return newFile(out), nil
}

// Size returns the file's size in bytes via GetInfo(EFI_FILE_INFO). The
// record's FileName tail is variable length, so the call reads into a
// buffer with room to spare and decodes only the FileSize field.
func (f *File) Size() (uint64, error) {
	var info [fileInfoBufSize]byte
	bufSize := uintptr(len(info))
	guid := fileInfoGUID
	status := Status(call4(f.raw.GetInfoFn,
		uintptr(unsafe.Pointer(f.raw)), uintptr(unsafe.Pointer(&guid)),
		uintptr(unsafe.Pointer(&bufSize)), uintptr(unsafe.Pointer(&info[0]))))
	if status.IsError() {
		return 0, &UefiError{Status: status}
	}
	return binary.LittleEndian.Uint64(info[fileInfoFileSizeOff:]), nil
}

// Read fills buf and returns the number of bytes actually read.
func (f *File) Read(buf []byte) (int, error) {
	size := uintptr(len(buf))
	var ptr uintptr
	if len(buf) > 0 {
		ptr = uintptr(unsafe.Pointer(&buf[0]))
	}
	status := Status(call3(f.raw.ReadFn, uintptr(unsafe.Pointer(f.raw)), uintptr(unsafe.Pointer(&size)), ptr))
	if status.IsError() {
		return 0, &UefiError{Status: status}
	}
	return int(size), nil
}

// SetPosition seeks to an absolute byte offset.
func (f *File) SetPosition(pos uint64) error {
	status := Status(call2(f.raw.SetPositionFn, uintptr(unsafe.Pointer(f.raw)), uintptr(pos)))
	if status.IsError() {
		return &UefiError{Status: status}
	}
	return nil
}

// Close releases the file handle.
func (f *File) Close() error {
	status := Status(call1(f.raw.CloseFn, uintptr(unsafe.Pointer(f.raw))))
	if status.IsError() {
		return &UefiError{Status: status}
	}
	return nil
}

// utf16FromASCII widens an ASCII ESP path to a null-terminated UTF-16
// buffer. ESP paths and config values are ASCII only, so widening is a
// plain byte-to-code-unit copy.
func utf16FromASCII(s string) []uint16 {
	out := make([]uint16, len(s)+1)
	for i := 0; i < len(s); i++ {
		out[i] = uint16(s[i])
	}
	out[len(s)] = 0
	return out
}
