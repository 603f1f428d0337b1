package elfload

import "github.com/gk9339/seraph/internal/bootproto"

// LoadInit validates buf as a static ELF64 image for want and places
// its LOAD segments at firmware-chosen physical addresses. Unlike
// LoadKernel, the ELF-specified physical address is never used (it is
// typically a low userspace VA already occupied by firmware), but the
// ELF virtual address is preserved so the kernel can build init's
// address space without its own ELF parser.
func LoadInit(buf []byte, want Machine, mem Memory) (bootproto.InitImage, error) {
	hdr, phdrs, err := parseHeader(buf, want)
	if err != nil {
		return bootproto.InitImage{}, err
	}
	if err := scanWX(phdrs); err != nil {
		return bootproto.InitImage{}, err
	}

	loads := make([]progHeader, 0, len(phdrs))
	for _, p := range phdrs {
		if p.pType != ptLoad || p.memsz == 0 {
			continue
		}
		if p.memsz < p.filesz {
			return bootproto.InitImage{}, &Error{Reason: "segment memsz smaller than filesz"}
		}
		loads = append(loads, p)
	}
	if len(loads) == 0 {
		return bootproto.InitImage{}, &Error{Reason: "no LOAD segment with non-zero memory size"}
	}
	if len(loads) > MaxSegments {
		return bootproto.InitImage{}, &Error{Reason: "more than 8 LOAD segments"}
	}

	var image bootproto.InitImage
	image.Entry = hdr.entry

	for _, p := range loads {
		end := p.offset + p.filesz
		if end < p.offset || end > uint64(len(buf)) {
			return bootproto.InitImage{}, &Error{Reason: "segment file range out of bounds"}
		}

		pages := pageCount(p.memsz)
		phys, err := mem.AllocAny(pages)
		if err != nil {
			return bootproto.InitImage{}, ErrOutOfMemory
		}
		if p.filesz > 0 {
			if err := mem.Write(phys, buf[p.offset:end]); err != nil {
				return bootproto.InitImage{}, ErrOutOfMemory
			}
		}
		if tail := p.memsz - p.filesz; tail > 0 {
			if err := mem.Zero(phys+p.filesz, tail); err != nil {
				return bootproto.InitImage{}, ErrOutOfMemory
			}
		}

		image.Segments[image.SegmentCount] = bootproto.InitSegment{
			PhysAddr: phys,
			VirtAddr: p.vaddr,
			Size:     p.memsz,
			Flags:    segmentFlags(p),
		}
		image.SegmentCount++
	}

	return image, nil
}

func segmentFlags(p progHeader) bootproto.SegmentFlags {
	switch {
	case p.executable():
		return bootproto.SegmentReadExecute
	case p.writable():
		return bootproto.SegmentReadWrite
	default:
		return bootproto.SegmentRead
	}
}
