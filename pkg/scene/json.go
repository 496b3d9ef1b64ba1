package scene

import (
	"encoding/json"
	"math"
	"strconv"
)

// days is a time buffer whose absent (+Inf) values marshal as JSON null.
type days []float32

func (d days) MarshalJSON() ([]byte, error) {
	b := make([]byte, 0, 2+len(d)*5)
	b = append(b, '[')
	for i, v := range d {
		if i > 0 {
			b = append(b, ',')
		}
		f := float64(v)
		if math.IsInf(f, 0) || math.IsNaN(f) {
			b = append(b, "null"...)
			continue
		}
		b = strconv.AppendFloat(b, f, 'g', -1, 32)
	}
	return append(b, ']'), nil
}

// MarshalJSON encodes the cloud with absent days as null, since JSON has
// no infinity.
func (c *Cloud) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Metadata      Metadata  `json:"metadata"`
		Positions     []float32 `json:"positions"`
		ConfirmedTime days      `json:"confirmed_time"`
		RecoveredTime days      `json:"recovered_time"`
		DeadTime      days      `json:"dead_time"`
	}{c.Metadata, c.Positions, c.ConfirmedTime, c.RecoveredTime, c.DeadTime})
}
