package amd64

const pageSize = 4096

// PageBounds returns the first and last page physical addresses
// overlapping the trampoline once copied to phys: the pages the
// page-table builder must identity-map executable before the switch,
// since the CPU fetches the next instruction from the same linear
// address the moment the new root is installed.
func PageBounds(phys uint64) (first, last uint64) {
	first = phys &^ (pageSize - 1)
	end := phys + uint64(len(Stub)) - 1
	last = end &^ (pageSize - 1)
	return first, last
}
