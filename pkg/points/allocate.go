package points

import (
	"fmt"

	"github.com/ChicagoDave/casemap/pkg/density"
	"github.com/ChicagoDave/casemap/pkg/geo"
	"github.com/ChicagoDave/casemap/pkg/resolve"
)

// NoDay marks an unset recovered or dead day on an Event.
const NoDay = -1

// DefaultRecoveryDays is the provisional recovery delay given to every new
// point before outcome data is applied.
const DefaultRecoveryDays = 14

// Event is one simulated case.
type Event struct {
	Position  geo.LatLng `json:"position"`
	Confirmed int        `json:"confirmed"`
	Recovered int        `json:"recovered"`
	Dead      int        `json:"dead"`
}

// HasRecovered reports whether a recovery day is set.
func (e Event) HasRecovered() bool { return e.Recovered != NoDay }

// HasDead reports whether a death day is set.
func (e Event) HasDead() bool { return e.Dead != NoDay }

// Diagnostics counts the data inconsistencies absorbed while allocating.
type Diagnostics struct {
	Points int `json:"points"`
	// DroppedDead and DroppedRecovered count outcome units that found no
	// point left in the region's pool.
	DroppedDead      int `json:"dropped_dead"`
	DroppedRecovered int `json:"dropped_recovered"`
	// NegativeUnits counts units from negative daily deltas, which are
	// treated as zero.
	NegativeUnits int `json:"negative_units"`
}

// Add accumulates o into d.
func (d *Diagnostics) Add(o Diagnostics) {
	d.Points += o.Points
	d.DroppedDead += o.DroppedDead
	d.DroppedRecovered += o.DroppedRecovered
	d.NegativeUnits += o.NegativeUnits
}

// Allocator creates the point-events of one region.
type Allocator struct {
	Decimation   int
	RecoveryDays int
	CellSize     float64
}

// NewAllocator returns an allocator with the default recovery delay and
// raster cell size.
func NewAllocator(decimation int) Allocator {
	return Allocator{
		Decimation:   decimation,
		RecoveryDays: DefaultRecoveryDays,
		CellSize:     density.DefaultCellSize,
	}
}

// Allocate creates one event per decimated confirmed unit of ws, in day
// order, then applies the region's deaths and recoveries to those events in
// creation order. Outcome series are read only over the days of the
// confirmed series; missing days count as zero.
//
// The only error is a precondition violation from sampling, e.g. an empty
// density table for a region that needs points.
func (a Allocator) Allocate(ws *resolve.WorkingSet, rng density.Rand) ([]Event, Diagnostics, error) {
	var diag Diagnostics
	confirmed := ExtractDeltas(ws.Confirmed, a.Decimation)

	var events []Event
	for d, n := range confirmed {
		if n < 0 {
			diag.NegativeUnits -= n
			continue
		}
		for i := 0; i < n; i++ {
			pos, err := ws.Table.Sample(rng, a.CellSize)
			if err != nil {
				return nil, diag, fmt.Errorf("sampling %s day %d: %w", ws.Key, d, err)
			}
			events = append(events, Event{
				Position:  pos,
				Confirmed: d,
				Recovered: d + a.RecoveryDays,
				Dead:      NoDay,
			})
		}
	}
	diag.Points = len(events)

	a.applyOutcomes(events, ws, len(confirmed), &diag)
	return events, diag, nil
}

// applyOutcomes walks events with a single cursor shared by deaths and
// recoveries. Within a day deaths are consumed first. Once the cursor
// reaches the end of the pool every remaining unit is dropped.
func (a Allocator) applyOutcomes(events []Event, ws *resolve.WorkingSet, days int, diag *Diagnostics) {
	if len(ws.Recovered) == 0 && len(ws.Deaths) == 0 {
		return
	}
	recovered := ExtractDeltas(ws.Recovered, a.Decimation)
	dead := ExtractDeltas(ws.Deaths, a.Decimation)

	cursor := 0
	for d := 0; d < days; d++ {
		n := a.units(dead, d, diag)
		for ; n > 0 && cursor < len(events); n-- {
			events[cursor].Recovered = NoDay
			events[cursor].Dead = d
			cursor++
		}
		diag.DroppedDead += n

		n = a.units(recovered, d, diag)
		for ; n > 0 && cursor < len(events); n-- {
			events[cursor].Recovered = d
			cursor++
		}
		diag.DroppedRecovered += n
	}
}

// units returns deltas[d], zero past the end and zero for negative values.
func (a Allocator) units(deltas []int, d int, diag *Diagnostics) int {
	if d >= len(deltas) {
		return 0
	}
	n := deltas[d]
	if n < 0 {
		diag.NegativeUnits -= n
		return 0
	}
	return n
}
