package stats

import "math"

// Aggregate sums, per day, the series of all rows whose country or state
// equals filter. An empty filter selects every row.
func Aggregate(rows []Row, filter string) Series {
	var total Series
	for _, r := range rows {
		if filter != "" && !r.Key.Matches(filter) {
			continue
		}
		total = addSeries(total, r.Values)
	}
	return total
}

// GrowthRates returns the day-over-day ratio s[d]/s[d-1] of a cumulative
// series. Days where the ratio is not finite (including day 0) are nil.
func GrowthRates(s Series) []*float64 {
	out := make([]*float64, len(s))
	for d := range s {
		prev := 0.0
		if d > 0 {
			prev = s[d-1]
		}
		rate := s[d] / prev
		if math.IsInf(rate, 0) || math.IsNaN(rate) {
			continue
		}
		out[d] = &rate
	}
	return out
}
