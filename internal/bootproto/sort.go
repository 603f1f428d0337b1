package bootproto

// SortMemoryMap sorts entries ascending by PhysBase using insertion
// sort. The UEFI memory map is usually nearly sorted already, so
// insertion sort's O(n) best case matters more here than a general
// O(n log n) sort would; n is bounded at roughly 680 entries by the
// preallocated translation buffer. Duplicate PhysBase values keep
// their relative order (stable).
func SortMemoryMap(entries []MemoryMapEntry) {
	for i := 1; i < len(entries); i++ {
		cur := entries[i]
		j := i - 1
		for j >= 0 && entries[j].PhysBase > cur.PhysBase {
			entries[j+1] = entries[j]
			j--
		}
		entries[j+1] = cur
	}
}

// SortPlatformResources sorts resources ascending by (Type, Base), the
// order the kernel expects. Nothing calls it today, since no
// firmware-table walker populates PlatformResources yet; kept so that
// walker has a tested insertion point.
func SortPlatformResources(resources []PlatformResource) {
	for i := 1; i < len(resources); i++ {
		cur := resources[i]
		j := i - 1
		for j >= 0 && less(cur, resources[j]) {
			resources[j+1] = resources[j]
			j--
		}
		resources[j+1] = cur
	}
}

func less(a, b PlatformResource) bool {
	if a.Type != b.Type {
		return a.Type < b.Type
	}
	return a.Base < b.Base
}
