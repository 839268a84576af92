// chm_stats.go -- optional construction/runtime counters for CHM
//
// (c) Sudhi Herle 2018
//
// License GPLv2
//
// If you need a commercial license for this work, please contact
// the author.
//
// This software does not come with any express or implied
// warranty; it is provided "as is". No claim  is made to its
// suitability for any purpose.

package mph

// ChmStats accumulates counters from a single Freeze() call when attached
// to a ChmBuilder or Inputs. Every field reads zero when Enabled is false;
// Enabled is flipped on by Freeze the first time it touches a non-nil
// *ChmStats, so callers only need to allocate one and assign it.
type ChmStats struct {
	Enabled bool

	// construction loop
	Iterations       uint64
	VerticesExplored uint64
	RandCalls        uint64
	HashesComputed   uint64
	FinalGraphSize   uint64
	MaxKeyLen        int

	// graph edge-list growth
	MinEdgeCap int
	MaxEdgeCap int
	Reallocs   uint64
	ReallocBytes uint64

	// input collector
	InputGrowthEvents int
	InputCapacity     int
	SafeAddHits       uint64
	SafeAddMisses     uint64
}

// reset zeroes the per-trial counters that a caller might reuse a
// *ChmStats across multiple Freeze() calls for (Enabled is left as-is).
func (s *ChmStats) reset() {
	if s == nil {
		return
	}
	*s = ChmStats{Enabled: s.Enabled}
}
