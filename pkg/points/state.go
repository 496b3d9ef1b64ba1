package points

import "math"

// State is what a point shows at a given simulation time.
type State int

const (
	NotYet State = iota
	Active
	Recovered
	Dead
	Extinct
)

func (s State) String() string {
	switch s {
	case NotYet:
		return "not_yet"
	case Active:
		return "active"
	case Recovered:
		return "recovered"
	case Dead:
		return "dead"
	case Extinct:
		return "extinct"
	}
	return "unknown"
}

// Settings are the display options applied when evaluating a point.
type Settings struct {
	// ExtinctionDays hides a point this many days after it recovered or
	// died. Zero, negative or +Inf keeps points forever.
	ExtinctionDays float64
	// KeepDeaths exempts dead points from extinction.
	KeepDeaths bool
	// UseRecoveryData uses the allocated recovery day. When false every
	// surviving point recovers RecoveryDays after confirmation.
	UseRecoveryData bool
	RecoveryDays    int
}

// DefaultSettings mirrors the defaults of the project file.
func DefaultSettings() Settings {
	return Settings{
		ExtinctionDays:  30,
		KeepDeaths:      true,
		UseRecoveryData: true,
		RecoveryDays:    DefaultRecoveryDays,
	}
}

func (s Settings) extinct(since, t float64) bool {
	if s.ExtinctionDays <= 0 || math.IsInf(s.ExtinctionDays, 1) {
		return false
	}
	return t >= since+s.ExtinctionDays
}

// StateAt evaluates event i at time t, measured in days since the start.
func (b *Buffers) StateAt(i int, t float64, s Settings) State {
	confirmed := b.Confirmed[i]
	if t < confirmed {
		return NotYet
	}
	if dead := b.Dead[i]; t >= dead {
		if !s.KeepDeaths && s.extinct(dead, t) {
			return Extinct
		}
		return Dead
	}
	recovered := b.Recovered[i]
	if !s.UseRecoveryData && math.IsInf(b.Dead[i], 1) {
		recovered = confirmed + float64(s.RecoveryDays)
	}
	if t >= recovered {
		if s.extinct(recovered, t) {
			return Extinct
		}
		return Recovered
	}
	return Active
}

// Counts tallies points per state.
type Counts struct {
	NotYet    int `json:"not_yet"`
	Active    int `json:"active"`
	Recovered int `json:"recovered"`
	Dead      int `json:"dead"`
	Extinct   int `json:"extinct"`
}

// Visible returns the number of points drawn on the globe.
func (c Counts) Visible() int {
	return c.Active + c.Recovered + c.Dead
}

// CountAt evaluates every point at time t.
func (b *Buffers) CountAt(t float64, s Settings) Counts {
	return b.CountRange(0, b.Len(), t, s)
}

// CountRange evaluates points lo through hi-1, e.g. the run of one region.
func (b *Buffers) CountRange(lo, hi int, t float64, s Settings) Counts {
	var c Counts
	for i := lo; i < hi; i++ {
		switch b.StateAt(i, t, s) {
		case NotYet:
			c.NotYet++
		case Active:
			c.Active++
		case Recovered:
			c.Recovered++
		case Dead:
			c.Dead++
		case Extinct:
			c.Extinct++
		}
	}
	return c
}

// Add accumulates o into c.
func (c *Counts) Add(o Counts) {
	c.NotYet += o.NotYet
	c.Active += o.Active
	c.Recovered += o.Recovered
	c.Dead += o.Dead
	c.Extinct += o.Extinct
}
