package density

import (
	"sort"

	"github.com/ChicagoDave/casemap/pkg/geo"
)

// DefaultCellSize is the angular size in degrees of one cell of the
// 4096-pixel-wide global population raster the tables are built from.
const DefaultCellSize = 360.0 / 4096

// Rand is the source of uniform draws in [0,1). *rand.Rand satisfies it.
type Rand interface {
	Float64() float64
}

// Search returns the index of the first entry whose cumulative weight is
// >= u. Draws above every entry clamp to the last index, draws below the
// first entry to index 0.
func (t Table) Search(u float64) int {
	i := sort.Search(len(t), func(i int) bool {
		return t[i].Cumulative >= u
	})
	if i >= len(t) {
		i = len(t) - 1
	}
	return i
}

// Sample draws a density-weighted position and jitters both axes
// uniformly within half a raster cell.
func (t Table) Sample(rng Rand, cellSize float64) (geo.LatLng, error) {
	if len(t) == 0 {
		return geo.LatLng{}, ErrEmptyTable
	}
	p := t[t.Search(rng.Float64())].Point
	half := cellSize / 2
	dLat := jitter(rng, half)
	dLng := jitter(rng, half)
	return p.Offset(dLat, dLng), nil
}

// jitter returns a uniform offset in [-half, +half).
func jitter(rng Rand, half float64) float64 {
	return (rng.Float64()*2 - 1) * half
}
