package stats

import "time"

// Chart is the aggregated view of one region, or of all regions, drawn by
// the chart panel.
type Chart struct {
	Region    string      `json:"region,omitempty"`
	Dates     []time.Time `json:"dates"`
	Confirmed Series      `json:"confirmed"`
	Deaths    Series      `json:"deaths"`
	Growth    []*float64  `json:"growth"`
}

// NewChart aggregates confirmed and deaths for filter (a country or state
// name, empty for the world) and computes the confirmed growth rate.
func NewChart(confirmed, deaths *Dataset, filter string) Chart {
	c := Chart{Region: filter}
	if confirmed != nil {
		c.Dates = confirmed.Dates
		c.Confirmed = Aggregate(confirmed.Rows, filter)
	}
	if deaths != nil {
		c.Deaths = Aggregate(deaths.Rows, filter)
	}
	c.Growth = GrowthRates(c.Confirmed)
	return c
}
