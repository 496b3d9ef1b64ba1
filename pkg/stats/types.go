// Package stats ingests per-region daily cumulative counters and prepares
// them for the point allocator and for chart summaries.
package stats

import (
	"time"

	"github.com/ChicagoDave/casemap/pkg/region"
)

// Kind names one of the three counter series.
type Kind string

const (
	KindConfirmed Kind = "confirmed"
	KindRecovered Kind = "recovered"
	KindDeaths    Kind = "deaths"
)

// Kinds lists every series kind in processing order.
var Kinds = []Kind{KindConfirmed, KindRecovered, KindDeaths}

// Series is one cumulative value per calendar day. It is expected to be
// non-decreasing but that is not enforced.
type Series []float64

// Row is the series of one region.
type Row struct {
	Key    region.Key `json:"key"`
	Values Series     `json:"values"`
}

// Dataset is a set of date-aligned region rows of one kind.
type Dataset struct {
	Dates []time.Time `json:"dates"`
	Rows  []Row       `json:"rows"`
}

// Find returns the series for k. The first row wins if k occurs twice.
func (d *Dataset) Find(k region.Key) (Series, bool) {
	if d == nil {
		return nil, false
	}
	for _, r := range d.Rows {
		if r.Key == k {
			return r.Values, true
		}
	}
	return nil, false
}

// Index maps every key to its series, first row winning.
func (d *Dataset) Index() map[region.Key]Series {
	if d == nil {
		return nil
	}
	m := make(map[region.Key]Series, len(d.Rows))
	for _, r := range d.Rows {
		if _, ok := m[r.Key]; !ok {
			m[r.Key] = r.Values
		}
	}
	return m
}

// StartDate returns the first date of the dataset.
func (d *Dataset) StartDate() (time.Time, bool) {
	if d == nil || len(d.Dates) == 0 {
		return time.Time{}, false
	}
	return d.Dates[0], true
}

// Days returns the number of days covered.
func (d *Dataset) Days() int {
	if d == nil {
		return 0
	}
	return len(d.Dates)
}
