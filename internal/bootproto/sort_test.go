package bootproto

import "testing"

func TestSortMemoryMapEmptyAndSingle(t *testing.T) {
	var empty []MemoryMapEntry
	SortMemoryMap(empty)
	if len(empty) != 0 {
		t.Fatalf("expected no-op on empty slice")
	}

	single := []MemoryMapEntry{{PhysBase: 0x1000, Size: 0x1000, Type: MemoryUsable}}
	SortMemoryMap(single)
	if single[0].PhysBase != 0x1000 {
		t.Fatalf("expected no-op on single-entry slice, got %+v", single)
	}
}

func TestSortMemoryMapOrdersByPhysBase(t *testing.T) {
	entries := []MemoryMapEntry{
		{PhysBase: 0x2000, Type: MemoryLoaded},
		{PhysBase: 0x0, Type: MemoryReserved},
		{PhysBase: 0x1000, Type: MemoryUsable},
	}
	SortMemoryMap(entries)

	want := []uint64{0x0, 0x1000, 0x2000}
	for i, w := range want {
		if entries[i].PhysBase != w {
			t.Fatalf("entry %d: got PhysBase %#x, want %#x", i, entries[i].PhysBase, w)
		}
	}
}

func TestSortMemoryMapStableOnDuplicates(t *testing.T) {
	entries := []MemoryMapEntry{
		{PhysBase: 0x1000, Type: MemoryUsable},
		{PhysBase: 0x1000, Type: MemoryLoaded},
		{PhysBase: 0x1000, Type: MemoryReserved},
	}
	SortMemoryMap(entries)

	if entries[0].Type != MemoryUsable || entries[1].Type != MemoryLoaded || entries[2].Type != MemoryReserved {
		t.Fatalf("duplicate PhysBase entries were reordered: %+v", entries)
	}
}

func TestSortPlatformResourcesByTypeThenBase(t *testing.T) {
	resources := []PlatformResource{
		{Type: ResourceIrqLine, Base: 4},
		{Type: ResourceMmioRange, Base: 0x2000},
		{Type: ResourceMmioRange, Base: 0x1000},
	}
	SortPlatformResources(resources)

	if resources[0].Type != ResourceMmioRange || resources[0].Base != 0x1000 {
		t.Fatalf("expected MmioRange@0x1000 first, got %+v", resources[0])
	}
	if resources[1].Type != ResourceMmioRange || resources[1].Base != 0x2000 {
		t.Fatalf("expected MmioRange@0x2000 second, got %+v", resources[1])
	}
	if resources[2].Type != ResourceIrqLine {
		t.Fatalf("expected IrqLine last, got %+v", resources[2])
	}
}
