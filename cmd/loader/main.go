// Command loader is the UEFI application entry point. It is built once
// per architecture (GOARCH=amd64 and GOARCH=riscv64), each build picking
// up the matching arch_*.go file below.
package main

import (
	_ "unsafe" // for go:linkname

	"github.com/gk9339/seraph/internal/bootloader"
	"github.com/gk9339/seraph/internal/console"
	"github.com/gk9339/seraph/internal/firmware"
)

// efiMain is the symbol the linker script points the PE entry point at.
// systemTablePtr is EFI_SYSTEM_TABLE*, imageHandlePtr is the running
// image's own EFI_HANDLE, both handed in by firmware exactly as the UEFI
// image entry point prototype requires.
//
//go:linkname efiMain efi_main
func efiMain(imageHandlePtr uintptr, systemTablePtr uintptr) uintptr {
	sys := firmware.NewSystemTable(systemTablePtr)
	imageHandle := firmware.Handle(imageHandlePtr)
	bs := sys.BootServices(imageHandle)

	con := console.New()
	// Serial first, framebuffer second, once. Neither sink is wired
	// here: the UART and font-blit drivers live outside this binary.
	// Any future sink is added here, before Run, never afterward.

	orch := &bootloader.Orchestrator{
		Arch:         arch(),
		BootServices: bs,
		System:       sys,
		ImageHandle:  imageHandle,
		Console:      con,
	}

	if err := orch.Run(); err != nil {
		con.WriteLine("boot failed: " + err.Error())
		haltLoop()
	}
	// Run only returns on error; success ends inside the trampoline.
	return 0
}

// main is never reached. Firmware enters through efiMain; this exists so
// the package links as a Go program.
func main() {}

// haltLoop spins forever. It is the only recovery from a fatal boot
// error: there is no supervisor to return control to.
func haltLoop() {
	for {
	}
}
