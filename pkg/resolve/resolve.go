// Package resolve pairs per-region statistics with the geographic feature
// and density table of the same region.
package resolve

import (
	"github.com/ChicagoDave/casemap/pkg/density"
	"github.com/ChicagoDave/casemap/pkg/features"
	"github.com/ChicagoDave/casemap/pkg/region"
	"github.com/ChicagoDave/casemap/pkg/stats"
)

// WorkingSet is everything the allocator needs for one region.
type WorkingSet struct {
	Key       region.Key
	Feature   *features.Feature
	Table     density.Table
	Confirmed stats.Series
	Recovered stats.Series
	Deaths    stats.Series
}

// Resolver matches region keys exactly against features, density tables
// and statistics. Key normalization happens upstream.
type Resolver struct {
	features  *features.Index
	tables    map[region.Key]density.Table
	confirmed map[region.Key]stats.Series
	recovered map[region.Key]stats.Series
	deaths    map[region.Key]stats.Series
	rows      []region.Key
}

// New builds a resolver. Any of the datasets may be nil (a failed fetch);
// regions then resolve with the corresponding series absent.
func New(fx *features.Index, tables map[region.Key]density.Table, confirmed, recovered, deaths *stats.Dataset) *Resolver {
	r := &Resolver{
		features:  fx,
		tables:    tables,
		confirmed: confirmed.Index(),
		recovered: recovered.Index(),
		deaths:    deaths.Index(),
	}
	if confirmed != nil {
		for _, row := range confirmed.Rows {
			r.rows = append(r.rows, row.Key)
		}
	}
	return r
}

// Resolve returns the working set for k. It reports false when k has no
// confirmed series, no feature or no non-empty density table.
func (r *Resolver) Resolve(k region.Key) (*WorkingSet, bool) {
	confirmed, ok := r.confirmed[k]
	if !ok {
		return nil, false
	}
	if r.features == nil {
		return nil, false
	}
	f, ok := r.features.Lookup(k)
	if !ok {
		return nil, false
	}
	table := r.tables[k]
	if len(table) == 0 {
		return nil, false
	}
	return &WorkingSet{
		Key:       k,
		Feature:   f,
		Table:     table,
		Confirmed: confirmed,
		Recovered: r.recovered[k],
		Deaths:    r.deaths[k],
	}, true
}

// All resolves every region in feature collection order, which is also the
// order regions are flattened in.
func (r *Resolver) All() []*WorkingSet {
	if r.features == nil {
		return nil
	}
	var out []*WorkingSet
	for _, k := range r.features.Keys() {
		if ws, ok := r.Resolve(k); ok {
			out = append(out, ws)
		}
	}
	return out
}

// Unmatched lists confirmed statistics rows that did not resolve, in row
// order.
func (r *Resolver) Unmatched() []region.Key {
	var out []region.Key
	for _, k := range r.rows {
		if _, ok := r.Resolve(k); !ok {
			out = append(out, k)
		}
	}
	return out
}

// Summary reports where each key is available. Used for diagnostics.
func (r *Resolver) Summary(k region.Key) (hasStats, hasFeature, hasDensity bool) {
	_, hasStats = r.confirmed[k]
	hasFeature = r.features != nil && r.features.Has(k)
	hasDensity = len(r.tables[k]) > 0
	return hasStats, hasFeature, hasDensity
}
