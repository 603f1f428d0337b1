package elfload

// LoadKernel validates buf as a static ELF64 image for want and places
// its LOAD segments at their ELF-specified physical addresses. No
// allocation happens until validation and the W xor X scan both pass.
func LoadKernel(buf []byte, want Machine, mem Memory) (KernelInfo, error) {
	hdr, phdrs, err := parseHeader(buf, want)
	if err != nil {
		return KernelInfo{}, err
	}
	if err := scanWX(phdrs); err != nil {
		return KernelInfo{}, err
	}

	loads := make([]progHeader, 0, len(phdrs))
	for _, p := range phdrs {
		if p.pType != ptLoad || p.memsz == 0 {
			continue
		}
		if p.memsz < p.filesz {
			return KernelInfo{}, &Error{Reason: "segment memsz smaller than filesz"}
		}
		loads = append(loads, p)
	}
	if len(loads) == 0 {
		return KernelInfo{}, &Error{Reason: "no LOAD segment with non-zero memory size"}
	}
	if len(loads) > MaxSegments {
		return KernelInfo{}, &Error{Reason: "more than 8 LOAD segments"}
	}

	var info KernelInfo
	info.EntryVirtual = hdr.entry
	physBase := ^uint64(0)
	virtBase := ^uint64(0)
	physEnd := uint64(0)

	for _, p := range loads {
		end := p.offset + p.filesz
		if end < p.offset || end > uint64(len(buf)) {
			return KernelInfo{}, &Error{Reason: "segment file range out of bounds"}
		}

		pages := pageCount(p.memsz)
		if err := mem.AllocFixed(p.paddr, pages); err != nil {
			return KernelInfo{}, ErrOutOfMemory
		}
		if p.filesz > 0 {
			if err := mem.Write(p.paddr, buf[p.offset:end]); err != nil {
				return KernelInfo{}, ErrOutOfMemory
			}
		}
		if tail := p.memsz - p.filesz; tail > 0 {
			if err := mem.Zero(p.paddr+p.filesz, tail); err != nil {
				return KernelInfo{}, ErrOutOfMemory
			}
		}

		seg := LoadedSegment{
			PhysBase:   p.paddr,
			VirtBase:   p.vaddr,
			Size:       p.memsz,
			Writable:   p.writable(),
			Executable: p.executable(),
		}
		info.Segments[info.SegmentCount] = seg
		info.SegmentCount++

		if p.paddr < physBase {
			physBase = p.paddr
		}
		if p.vaddr < virtBase {
			virtBase = p.vaddr
		}
		if end := p.paddr + p.memsz; end > physEnd {
			physEnd = end
		}
	}

	info.PhysicalBase = physBase
	info.VirtualBase = virtBase
	info.Size = physEnd - physBase
	return info, nil
}
