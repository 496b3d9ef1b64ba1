package stats

import (
	"gonum.org/v1/gonum/floats"

	"github.com/ChicagoDave/casemap/pkg/region"
)

// Merge sums rows sharing an identical key element-wise into a single row.
// Rows need not be grouped; the merged row takes the position of the first
// occurrence of its key. A shorter row counts as zero on the missing days.
// The input rows are not modified.
func Merge(rows []Row) []Row {
	out := make([]Row, 0, len(rows))
	at := make(map[region.Key]int, len(rows))

	for _, r := range rows {
		i, ok := at[r.Key]
		if !ok {
			at[r.Key] = len(out)
			out = append(out, Row{Key: r.Key, Values: append(Series(nil), r.Values...)})
			continue
		}
		out[i].Values = addSeries(out[i].Values, r.Values)
	}
	return out
}

// addSeries adds src into dst, growing dst when src is longer.
func addSeries(dst, src Series) Series {
	if len(src) > len(dst) {
		dst = append(dst, make(Series, len(src)-len(dst))...)
	}
	floats.Add(dst[:len(src)], src)
	return dst
}

// Combine concatenates datasets of the same kind, e.g. a global file and a
// national file with sub-national rows. Dates come from the first dataset
// that has any; rows sharing a key across datasets are merged. Nil datasets
// (failed fetches) are skipped.
func Combine(datasets ...*Dataset) *Dataset {
	out := &Dataset{}
	var rows []Row
	for _, d := range datasets {
		if d == nil {
			continue
		}
		if len(out.Dates) == 0 {
			out.Dates = d.Dates
		}
		rows = append(rows, d.Rows...)
	}
	out.Rows = Merge(rows)
	return out
}
