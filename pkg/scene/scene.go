// Package scene packs generated point-events into the buffers handed to the
// globe renderer.
package scene

import "github.com/ChicagoDave/casemap/pkg/geo"

// Attribute names the per-point buffers, matching the shader inputs.
type Attribute string

const (
	AttrPosition      Attribute = "position"
	AttrConfirmedTime Attribute = "confirmed_time"
	AttrRecoveredTime Attribute = "recovered_time"
	AttrDeadTime      Attribute = "dead_time"
)

// Attributes lists the buffers in encoding order.
var Attributes = []Attribute{AttrPosition, AttrConfirmedTime, AttrRecoveredTime, AttrDeadTime}

// RenderSettings are the shader uniforms delivered with the buffers.
type RenderSettings struct {
	ExtinctionDays  float64 `json:"extinction_days"`
	KeepDeaths      bool    `json:"keep_deaths"`
	UseRecoveryData bool    `json:"use_recovery_data"`
}

// Metadata holds cloud-level information.
type Metadata struct {
	ID          string         `json:"id"`
	SpecVersion string         `json:"spec_version"`
	GeneratedAt string         `json:"generated_at"`
	StartDate   string         `json:"start_date,omitempty"`
	Days        int            `json:"days"`
	Decimation  int            `json:"decimation"`
	Points      int            `json:"points"`
	Radius      float64        `json:"radius"`
	Render      RenderSettings `json:"render"`
}

// Cloud is the complete renderer input. Positions holds three values per
// point (cartesian x, y, z on the globe). Time buffers hold days since the
// start date; an unset recovered or dead day is +Inf.
type Cloud struct {
	Metadata      Metadata  `json:"metadata"`
	Positions     []float32 `json:"positions"`
	ConfirmedTime []float32 `json:"confirmed_time"`
	RecoveredTime []float32 `json:"recovered_time"`
	DeadTime      []float32 `json:"dead_time"`
}

// NewCloud creates an empty cloud with room for n points.
func NewCloud(n int) *Cloud {
	return &Cloud{
		Positions:     make([]float32, 0, 3*n),
		ConfirmedTime: make([]float32, 0, n),
		RecoveredTime: make([]float32, 0, n),
		DeadTime:      make([]float32, 0, n),
	}
}

// Len returns the number of points.
func (c *Cloud) Len() int {
	return len(c.ConfirmedTime)
}

// Position returns the cartesian position of point i.
func (c *Cloud) Position(i int) geo.Vec3 {
	return geo.Vec3{
		X: float64(c.Positions[3*i]),
		Y: float64(c.Positions[3*i+1]),
		Z: float64(c.Positions[3*i+2]),
	}
}
