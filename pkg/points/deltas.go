// Package points turns per-region cumulative statistics into individual
// point-events: one per decimated confirmed case, placed by density
// sampling and carrying the days it was confirmed, recovered or died.
package points

import (
	"math"

	"github.com/ChicagoDave/casemap/pkg/stats"
)

// ExtractDeltas converts a cumulative series into new units per day,
// divided by decimation. The fractional part of each day is carried in a
// running remainder and emitted once it reaches a whole unit, so the total
// emitted times decimation stays within decimation-1 of the raw total.
//
// A decrease in the cumulative series yields a negative value, which is
// passed through. A decimation below 1 is treated as 1.
func ExtractDeltas(series stats.Series, decimation int) []int {
	if decimation < 1 {
		decimation = 1
	}
	out := make([]int, len(series))
	remainder := 0.0
	prev := 0.0
	for d, v := range series {
		scaled := (v - prev) / float64(decimation)
		prev = v

		whole := math.Floor(scaled)
		remainder += scaled - whole
		if remainder >= 1 {
			k := math.Floor(remainder)
			whole += k
			remainder -= k
		}
		out[d] = int(whole)
	}
	return out
}
