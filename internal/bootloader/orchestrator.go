// Package bootloader implements the ten-step boot orchestrator: the
// single, concurrency-free sequence that turns firmware boot services
// into a running kernel. ELF placement, page-table construction and the
// handoff trampoline are reached through narrow interfaces and the Arch
// wiring, and each is testable on its own without real firmware. Run
// itself also drives the concrete firmware file-system and system-table
// wrappers, so it has no fake-backed test.
package bootloader

import (
	"errors"

	"github.com/gk9339/seraph/internal/bootconfig"
	"github.com/gk9339/seraph/internal/bootproto"
	"github.com/gk9339/seraph/internal/console"
	"github.com/gk9339/seraph/internal/elfload"
	"github.com/gk9339/seraph/internal/firmware"
	"github.com/gk9339/seraph/internal/paging"
)

const (
	configPath = `\EFI\seraph\boot.conf`

	stackPages       = 16 // 64 KiB kernel stack
	memoryMapPages   = 4  // holds ~680 translated entries at 24 bytes each
	bootInfoPages    = 1
	moduleArrayPages = 1
	cmdLinePages     = 1
)

// maxMemoryMapEntries is how many translated entries fit in the
// preallocated memory-map pages.
const maxMemoryMapEntries = memoryMapPages * paging.PageSize / bootproto.MemoryMapEntrySize

// Orchestrator drives one boot attempt for a single architecture.
// BootServices is an interface: *firmware.Table satisfies it at the real
// entry point, and tests substitute a fake. System and Console are the
// concrete *firmware.SystemTable and *console.Console.
type Orchestrator struct {
	Arch         Arch
	BootServices firmware.BootServices
	System       *firmware.SystemTable
	ImageHandle  firmware.Handle
	Console      *console.Console

	Trace BootTrace
}

// Run executes the boot sequence and transfers control to the kernel.
// It returns only on a fatal error; a successful run ends inside
// Arch.Enter, which never returns. Steps run in a fixed order with no
// backward edge: protocol discovery, config load, kernel load, init
// load, firmware-table discovery, preallocation and page-table
// construction, memory-map capture, ExitBootServices, BootInfo
// population, handoff.
func (o *Orchestrator) Run() error {
	mem := newFirmwareMemory(o.BootServices)

	o.enter(StepProtoDiscovery)
	fs, fb, err := o.discoverProtocols()
	if err != nil {
		return o.fatal(err)
	}

	o.enter(StepConfigLoaded)
	cfg, err := o.loadConfig(fs)
	if err != nil {
		return o.fatal(err)
	}

	var identity IdentityMapSet

	o.enter(StepKernelLoaded)
	kernel, err := o.loadKernel(fs, cfg.Kernel, mem, &identity)
	if err != nil {
		return o.fatal(err)
	}

	o.enter(StepInitLoaded)
	init, err := o.loadInit(fs, cfg.Init, mem, &identity)
	if err != nil {
		return o.fatal(err)
	}

	o.enter(StepFirmwareKnown)
	acpiRsdp, _ := o.System.FindConfigTable(firmware.Acpi20TableGUID)
	deviceTree, _ := o.System.FindConfigTable(firmware.DeviceTreeTableGUID)

	o.enter(StepPreallocatedAndMapped)
	alloc, err := o.preallocate(mem, &identity, fb)
	if err != nil {
		return o.fatal(err)
	}
	_, rootReg, err := o.buildPageTables(mem, kernel, &identity)
	if err != nil {
		return o.fatal(err)
	}

	o.enter(StepMemoryMapCaptured)
	size, err := o.BootServices.MemoryMapBufferSize()
	if err != nil {
		return o.fatal(err)
	}
	buf := make([]byte, size)
	mmap, err := o.BootServices.GetMemoryMap(buf)
	if err != nil {
		return o.fatal(err)
	}

	// No firmware allocation may happen between the query above and the
	// exit call below, or the map key goes stale.
	o.Trace.Enter(StepBootServicesExited)
	mmap, err = o.exitBootServices(buf, mmap)
	if err != nil {
		return o.fatal(err)
	}

	o.Trace.Enter(StepBootInfoWritten)
	o.writeBootInfo(alloc, kernel, init, mmap, acpiRsdp, deviceTree, fb)

	o.Trace.Enter(StepHandoff)
	o.handoff(alloc, rootReg, kernel)
	return nil
}

// enter records the transition into step and logs it. Used only for
// steps before ExitBootServices; past that point the trace is recorded
// without console output, since the sinks may depend on firmware state
// that no longer exists.
func (o *Orchestrator) enter(step Step) {
	o.Trace.Enter(step)
	if o.Console != nil {
		o.Console.WriteLine("boot: " + step.String())
	}
}

func (o *Orchestrator) fatal(err error) error {
	failed := o.Trace.Step()
	o.Trace.Enter(StepFatalHalt)
	if o.Console != nil {
		o.Console.WriteLine("fatal at " + failed.String() + ": " + err.Error())
	}
	return err
}

// discoverProtocols resolves the boot device's filesystem and,
// best-effort, the first usable GOP framebuffer. Driver binding is
// forced on every handle first, since some platforms do not connect
// controllers during BDS and the boot device's filesystem driver may
// not be bound yet.
func (o *Orchestrator) discoverProtocols() (*firmware.SimpleFileSystem, bootproto.FramebufferInfo, error) {
	bs := o.BootServices

	if handles, err := bs.LocateAllHandles(); err == nil {
		for _, h := range handles {
			_ = bs.ConnectController(h)
		}
	}

	imageIface, err := bs.HandleProtocol(o.ImageHandle, firmware.LoadedImageProtocolGUID)
	if err != nil {
		return nil, bootproto.FramebufferInfo{}, &firmware.ErrProtocolNotFound{Name: "LoadedImage"}
	}
	loadedImage := firmware.NewLoadedImage(imageIface)
	deviceHandle := loadedImage.DeviceHandle()

	fsIface, err := bs.HandleProtocol(deviceHandle, firmware.SimpleFileSystemProtocolGUID)
	if err != nil {
		return nil, bootproto.FramebufferInfo{}, &firmware.ErrProtocolNotFound{Name: "SimpleFileSystem"}
	}
	fs := firmware.NewSimpleFileSystem(fsIface)

	// No GOP handle at all is fine; the framebuffer stays zeroed and the
	// kernel runs headless.
	var fb bootproto.FramebufferInfo
	if handles, err := bs.LocateHandleBuffer(firmware.GraphicsOutputProtocolGUID); err == nil {
		for _, h := range handles {
			iface, err := bs.HandleProtocol(h, firmware.GraphicsOutputProtocolGUID)
			if err != nil {
				continue
			}
			if info, ok := firmware.QueryFramebuffer(iface); ok {
				fb = info
				break
			}
		}
	}

	return fs, fb, nil
}

func (o *Orchestrator) loadConfig(fs *firmware.SimpleFileSystem) (bootconfig.Config, error) {
	root, err := fs.OpenVolume()
	if err != nil {
		return bootconfig.Config{}, err
	}
	defer root.Close()

	f, err := root.Open(configPath)
	if err != nil {
		return bootconfig.Config{}, err
	}
	defer f.Close()

	size, err := f.Size()
	if err != nil {
		return bootconfig.Config{}, err
	}
	if size > bootconfig.MaxSize {
		return bootconfig.Config{}, &bootconfig.Error{Kind: bootconfig.KindTooLarge, Reason: "boot.conf exceeds 4096 bytes"}
	}

	buf := make([]byte, size)
	if _, err := f.Read(buf); err != nil {
		return bootconfig.Config{}, err
	}
	return bootconfig.Parse(buf)
}

// readWholeFile opens path relative to fs's root and reads it into a
// firmware-allocated temporary buffer. The buffer joins the
// identity-map set so the kernel can still reach the raw file bytes at
// handoff time.
func (o *Orchestrator) readWholeFile(fs *firmware.SimpleFileSystem, path string, mem *firmwareMemory, identity *IdentityMapSet) ([]byte, error) {
	root, err := fs.OpenVolume()
	if err != nil {
		return nil, err
	}
	defer root.Close()

	f, err := root.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	size, err := f.Size()
	if err != nil {
		return nil, err
	}

	pages := paging.PageCount(size)
	phys, err := mem.AllocAny(pages)
	if err != nil {
		return nil, err
	}
	identity.Add(IdentityMapRegion{
		Name: path, PhysBase: phys, Size: pages * paging.PageSize,
		Flags: paging.PageFlags{Writable: true},
	})

	buf := physBytes(phys, size)
	if _, err := f.Read(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (o *Orchestrator) loadKernel(fs *firmware.SimpleFileSystem, path string, mem *firmwareMemory, identity *IdentityMapSet) (elfload.KernelInfo, error) {
	buf, err := o.readWholeFile(fs, path, mem, identity)
	if err != nil {
		return elfload.KernelInfo{}, err
	}
	info, err := elfload.LoadKernel(buf, o.Arch.Machine, mem)
	if err != nil {
		return elfload.KernelInfo{}, err
	}
	// Kernel segments are identity-mapped with their declared
	// permissions. On configurations where a segment's virtual address
	// equals its physical address, this installs the same leaf the
	// virtual mapping below does, instead of fighting it.
	for i := uint32(0); i < info.SegmentCount; i++ {
		seg := info.Segments[i]
		identity.Add(IdentityMapRegion{
			Name: "kernel-segment", PhysBase: seg.PhysBase, Size: paging.AlignUp(seg.Size),
			Flags: paging.PageFlags{Writable: seg.Writable, Executable: seg.Executable},
		})
	}
	return info, nil
}

func (o *Orchestrator) loadInit(fs *firmware.SimpleFileSystem, path string, mem *firmwareMemory, identity *IdentityMapSet) (bootproto.InitImage, error) {
	buf, err := o.readWholeFile(fs, path, mem, identity)
	if err != nil {
		return bootproto.InitImage{}, err
	}
	image, err := elfload.LoadInit(buf, o.Arch.Machine, mem)
	if err != nil {
		return bootproto.InitImage{}, err
	}
	// Init segments stay read-write for the kernel; it rebuilds init's
	// address space with the real permissions later.
	for i := uint32(0); i < image.SegmentCount; i++ {
		seg := image.Segments[i]
		identity.Add(IdentityMapRegion{
			Name: "init-segment", PhysBase: seg.PhysAddr, Size: paging.AlignUp(seg.Size),
			Flags: paging.PageFlags{Writable: true},
		})
	}
	return image, nil
}

// preallocated holds the fixed pages allocated before any page-table
// write. Everything the kernel must be able to reach at entry exists by
// the time the memory map is captured; nothing is allocated after.
type preallocated struct {
	bootInfo   uint64
	modules    uint64
	memoryMap  uint64
	stackBase  uint64
	cmdLine    uint64
	trampoline uint64
}

func (o *Orchestrator) preallocate(mem *firmwareMemory, identity *IdentityMapSet, fb bootproto.FramebufferInfo) (preallocated, error) {
	alloc := func(pages uint64, name string, flags paging.PageFlags) (uint64, error) {
		phys, err := mem.AllocAny(pages)
		if err != nil {
			return 0, err
		}
		identity.Add(IdentityMapRegion{Name: name, PhysBase: phys, Size: pages * paging.PageSize, Flags: flags})
		return phys, nil
	}

	rw := paging.PageFlags{Writable: true}

	bootInfo, err := alloc(bootInfoPages, "boot-info", rw)
	if err != nil {
		return preallocated{}, err
	}
	modules, err := alloc(moduleArrayPages, "module-array", rw)
	if err != nil {
		return preallocated{}, err
	}
	memoryMap, err := alloc(memoryMapPages, "memory-map", rw)
	if err != nil {
		return preallocated{}, err
	}
	stackBase, err := alloc(stackPages, "kernel-stack", rw)
	if err != nil {
		return preallocated{}, err
	}
	cmdLine, err := alloc(cmdLinePages, "command-line", rw)
	if err != nil {
		return preallocated{}, err
	}
	physBytes(cmdLine, 1)[0] = 0

	trampolinePhys, err := mem.AllocAny(1)
	if err != nil {
		return preallocated{}, err
	}
	copy(physBytes(trampolinePhys, uint64(len(o.Arch.Stub))), o.Arch.Stub)
	first, last := o.Arch.PageBounds(trampolinePhys)
	identity.Add(IdentityMapRegion{Name: "trampoline-first", PhysBase: first, Size: paging.PageSize, Flags: paging.PageFlags{Executable: true}})
	if last != first {
		identity.Add(IdentityMapRegion{Name: "trampoline-last", PhysBase: last, Size: paging.PageSize, Flags: paging.PageFlags{Executable: true}})
	}

	if fb.PhysBase != 0 {
		pages := paging.PageCount(uint64(fb.Stride) * uint64(fb.Height))
		identity.Add(IdentityMapRegion{Name: "framebuffer", PhysBase: fb.PhysBase, Size: pages * paging.PageSize, Flags: rw})
	}

	return preallocated{
		bootInfo: bootInfo, modules: modules, memoryMap: memoryMap,
		stackBase: stackBase, cmdLine: cmdLine, trampoline: trampolinePhys,
	}, nil
}

// buildPageTables constructs the new root: kernel segments at their ELF
// virtual addresses with declared permissions, then every identity-map
// region at its physical address. Construction only begins after every
// allocation above succeeds, so a mapping failure cannot strand a
// half-built kernel environment behind a committed table root.
func (o *Orchestrator) buildPageTables(mem *firmwareMemory, kernel elfload.KernelInfo, identity *IdentityMapSet) (root uint64, rootReg uint64, err error) {
	builder := o.Arch.NewBuilder(mem)
	root, err = builder.NewRoot()
	if err != nil {
		return 0, 0, err
	}

	for i := uint32(0); i < kernel.SegmentCount; i++ {
		seg := kernel.Segments[i]
		flags := paging.PageFlags{Writable: seg.Writable, Executable: seg.Executable}
		if err := builder.Map(root, seg.VirtBase, seg.PhysBase, seg.Size, flags); err != nil {
			return 0, 0, err
		}
	}

	for _, region := range identity.Regions() {
		if err := builder.Map(root, region.PhysBase, region.PhysBase, region.Size, region.Flags); err != nil {
			return 0, 0, err
		}
	}

	return root, builder.RootPhys(root), nil
}

// exitBootServices implements the single stale-key retry: on
// EFI_INVALID_PARAMETER, re-query the map into the same buffer (no new
// allocation permitted at this point) and retry exactly once with the
// freshly returned key. Any other failure, or a second one, is final.
func (o *Orchestrator) exitBootServices(buf []byte, mmap firmware.MemoryMap) (firmware.MemoryMap, error) {
	firstErr := o.BootServices.ExitBootServices(mmap.Key)
	if firstErr == nil {
		return mmap, nil
	}
	var uefiErr *firmware.UefiError
	if !errors.As(firstErr, &uefiErr) || uefiErr.Status != firmware.StatusInvalidParameter {
		return mmap, &ErrExitBootServicesFailed{FirstErr: firstErr, RetryErr: firstErr}
	}

	retried, mapErr := o.BootServices.GetMemoryMap(buf)
	if mapErr != nil {
		return mmap, &ErrExitBootServicesFailed{FirstErr: firstErr, RetryErr: mapErr}
	}
	retryErr := o.BootServices.ExitBootServices(retried.Key)
	if retryErr == nil {
		return retried, nil
	}
	return mmap, &ErrExitBootServicesFailed{FirstErr: firstErr, RetryErr: retryErr}
}

func (o *Orchestrator) writeBootInfo(alloc preallocated, kernel elfload.KernelInfo, init bootproto.InitImage, mmap firmware.MemoryMap, acpiRsdp, deviceTree uintptr, fb bootproto.FramebufferInfo) {
	count := mmap.Len()
	if count > maxMemoryMapEntries {
		count = maxMemoryMapEntries
	}
	entries := make([]bootproto.MemoryMapEntry, count)
	for i := range entries {
		d := mmap.At(i)
		entries[i] = bootproto.MemoryMapEntry{
			PhysBase: d.PhysicalStart,
			Size:     d.NumberOfPages * paging.PageSize,
			Type:     firmware.TranslateMemoryType(d.Type),
		}
	}
	bootproto.SortMemoryMap(entries)
	bootproto.EncodeMemoryMap(physBytes(alloc.memoryMap, uint64(len(entries)*bootproto.MemoryMapEntrySize)), entries)

	info := bootproto.BootInfo{
		Version:        bootproto.Version,
		MemoryMap:      bootproto.Slice{Ptr: alloc.memoryMap, Count: uint64(len(entries))},
		KernelPhysBase: kernel.PhysicalBase,
		KernelVirtBase: kernel.VirtualBase,
		KernelSize:     kernel.Size,
		Init:           init,
		Modules:        bootproto.Slice{Ptr: alloc.modules, Count: 0},
		Framebuffer:    fb,
		AcpiRsdp:       uint64(acpiRsdp),
		DeviceTree:     uint64(deviceTree),
		// PlatformResources stays empty until a firmware-table walker
		// exists to fill it; the kernel tolerates a zero count.
		PlatformResources: bootproto.Slice{Ptr: 0, Count: 0},
		CommandLinePtr:    alloc.cmdLine,
		CommandLineLen:    0,
	}
	bootproto.EncodeBootInfo(physBytes(alloc.bootInfo, uint64(bootproto.BootInfoSize())), info)
}

// handoff computes the stack top and transfers control through the
// trampoline. It never returns on success. rootReg is already the
// launcher-ready value: CR3 verbatim on x86-64, the satp-encoded value
// on RISC-V.
func (o *Orchestrator) handoff(alloc preallocated, rootReg uint64, kernel elfload.KernelInfo) {
	stackTop := alloc.stackBase + stackPages*paging.PageSize
	// Correct as long as firmware boots hart 0, which QEMU and the
	// platforms this loader targets guarantee. A UEFI RISC-V boot
	// protocol lookup would replace this constant.
	const bootHartID = 0
	o.Arch.Enter(
		uintptr(alloc.trampoline),
		uintptr(rootReg),
		uintptr(kernel.EntryVirtual),
		uintptr(alloc.bootInfo),
		uintptr(stackTop),
		uintptr(bootHartID),
	)
}
