package bootloader

import "github.com/gk9339/seraph/internal/paging"

// IdentityMapRegion is one physical range that must remain reachable by
// the kernel after handoff.
type IdentityMapRegion struct {
	Name     string
	PhysBase uint64
	Size     uint64
	Flags    paging.PageFlags
}

// IdentityMapSet aggregates every region the orchestrator must
// identity-map before installing the new page tables.
type IdentityMapSet struct {
	regions []IdentityMapRegion
}

// Add records region, ignoring zero-size regions (a framebuffer that
// was never found, for instance, contributes nothing).
func (s *IdentityMapSet) Add(region IdentityMapRegion) {
	if region.Size == 0 {
		return
	}
	s.regions = append(s.regions, region)
}

// Regions returns every recorded region.
func (s *IdentityMapSet) Regions() []IdentityMapRegion {
	return s.regions
}
