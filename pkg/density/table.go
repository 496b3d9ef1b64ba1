// Package density builds per-region cumulative population tables and draws
// density-weighted positions from them.
package density

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/ChicagoDave/casemap/pkg/geo"
)

var (
	// ErrEmptyTable is returned when a table without samples is built or sampled.
	ErrEmptyTable = errors.New("density table is empty")
	// ErrZeroWeight is returned when a region's raw weights sum to zero.
	ErrZeroWeight = errors.New("density weights sum to zero")
)

// cumulativeTolerance bounds how far the last cumulative weight may drift from 1.
const cumulativeTolerance = 1e-6

// Sample is one raster cell of a region with its cumulative weight in (0,1].
type Sample struct {
	Point      geo.LatLng `json:"point"`
	Cumulative float64    `json:"cumulative"`
}

// Table is a cumulative distribution over a region's sample points, sorted
// ascending by Cumulative. The last entry is ~1.
type Table []Sample

// Build normalizes weights so they sum to 1 and turns them into a running
// prefix sum.
func Build(points []geo.LatLng, weights []float64) (Table, error) {
	if len(points) != len(weights) {
		return nil, fmt.Errorf("density table: %d points but %d weights", len(points), len(weights))
	}
	if len(points) == 0 {
		return nil, ErrEmptyTable
	}
	for i, w := range weights {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, fmt.Errorf("density table: invalid weight %v at index %d", w, i)
		}
	}
	sum := floats.Sum(weights)
	if sum <= 0 {
		return nil, ErrZeroWeight
	}

	norm := make([]float64, len(weights))
	copy(norm, weights)
	floats.Scale(1/sum, norm)
	cum := floats.CumSum(make([]float64, len(norm)), norm)

	t := make(Table, len(points))
	for i, p := range points {
		t[i] = Sample{Point: p, Cumulative: cum[i]}
	}
	return t, nil
}

// Validate checks the ordering and normalization invariants.
func (t Table) Validate() error {
	if len(t) == 0 {
		return ErrEmptyTable
	}
	prev := 0.0
	for i, s := range t {
		if s.Cumulative < prev {
			return fmt.Errorf("density table: cumulative weight decreases at index %d (%v < %v)", i, s.Cumulative, prev)
		}
		prev = s.Cumulative
	}
	if last := t[len(t)-1].Cumulative; math.Abs(last-1) > cumulativeTolerance {
		return fmt.Errorf("density table: last cumulative weight is %v, want 1", last)
	}
	return nil
}

// Weight returns the probability mass of entry i.
func (t Table) Weight(i int) float64 {
	if i == 0 {
		return t[0].Cumulative
	}
	return t[i].Cumulative - t[i-1].Cumulative
}
