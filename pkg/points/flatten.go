package points

import (
	"math"

	"github.com/ChicagoDave/casemap/pkg/geo"
)

// Absent is the day value of an unset recovered or dead day in Buffers.
// No valid day compares greater than or equal to it.
var Absent = math.Inf(1)

// Buffers holds all events as index-aligned parallel arrays.
type Buffers struct {
	Positions []geo.LatLng
	Confirmed []float64
	Recovered []float64
	Dead      []float64
}

// Len returns the number of events.
func (b *Buffers) Len() int {
	return len(b.Positions)
}

// Flatten concatenates per-region runs in the given order, keeping the
// creation order inside each run.
func Flatten(runs [][]Event) *Buffers {
	n := 0
	for _, r := range runs {
		n += len(r)
	}
	b := &Buffers{
		Positions: make([]geo.LatLng, 0, n),
		Confirmed: make([]float64, 0, n),
		Recovered: make([]float64, 0, n),
		Dead:      make([]float64, 0, n),
	}
	for _, r := range runs {
		for _, e := range r {
			b.Positions = append(b.Positions, e.Position)
			b.Confirmed = append(b.Confirmed, float64(e.Confirmed))
			b.Recovered = append(b.Recovered, dayOrAbsent(e.Recovered))
			b.Dead = append(b.Dead, dayOrAbsent(e.Dead))
		}
	}
	return b
}

func dayOrAbsent(d int) float64 {
	if d == NoDay {
		return Absent
	}
	return float64(d)
}
