package firmware

import (
	"unsafe"

	"github.com/gk9339/seraph/internal/bootproto"
)

// gopPixelFormat mirrors EFI_GRAPHICS_PIXEL_FORMAT.
type gopPixelFormat uint32

const (
	pixelRedGreenBlueReserved8BitPerColor gopPixelFormat = iota
	pixelBlueGreenRedReserved8BitPerColor
	pixelBitMask
	pixelBltOnly
)

type gopModeInfo struct {
	Version              uint32
	HorizontalResolution uint32
	VerticalResolution   uint32
	PixelFormat          gopPixelFormat
	_                    [16]byte // PixelInformation (bitmask masks), unused here
	PixelsPerScanLine    uint32
}

type gopMode struct {
	MaxMode         uint32
	Mode            uint32
	Info            *gopModeInfo
	SizeOfInfo      uint64
	FrameBufferBase uint64
	FrameBufferSize uint64
}

type graphicsOutputProtocol struct {
	QueryMode uintptr
	SetMode   uintptr
	Blt       uintptr
	Mode      *gopMode
}

// QueryFramebuffer inspects the GOP interface and returns its
// FramebufferInfo, or the zero value (with ok=false) if its current
// mode is BltOnly or bitmask. Only linear RGBX and BGRX framebuffers
// are usable by the kernel's text renderer.
func QueryFramebuffer(iface uintptr) (bootproto.FramebufferInfo, bool) {
	gop := (*graphicsOutputProtocol)(unsafe.Pointer(iface))
	if gop.Mode == nil || gop.Mode.Info == nil {
		return bootproto.FramebufferInfo{}, false
	}

	var format bootproto.PixelFormat
	switch gop.Mode.Info.PixelFormat {
	case pixelRedGreenBlueReserved8BitPerColor:
		format = bootproto.PixelFormatRgbx8
	case pixelBlueGreenRedReserved8BitPerColor:
		format = bootproto.PixelFormatBgrx8
	default:
		return bootproto.FramebufferInfo{}, false
	}

	return bootproto.FramebufferInfo{
		PhysBase: gop.Mode.FrameBufferBase,
		Width:    gop.Mode.Info.HorizontalResolution,
		Height:   gop.Mode.Info.VerticalResolution,
		Stride:   gop.Mode.Info.PixelsPerScanLine * 4,
		Format:   format,
	}, true
}
