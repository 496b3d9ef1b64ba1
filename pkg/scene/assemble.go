package scene

import (
	"math"
	"time"

	"github.com/ChicagoDave/casemap/pkg/geo"
	"github.com/ChicagoDave/casemap/pkg/points"
)

// Assemble converts flattened point buffers into a renderer cloud. meta is
// copied; Points, Radius and a missing GeneratedAt are filled in.
func Assemble(meta Metadata, b *points.Buffers) *Cloud {
	n := b.Len()
	c := NewCloud(n)

	for i := 0; i < n; i++ {
		v := geo.ToCartesian(b.Positions[i], 0)
		c.Positions = append(c.Positions, float32(v.X), float32(v.Y), float32(v.Z))
		c.ConfirmedTime = append(c.ConfirmedTime, float32(b.Confirmed[i]))
		c.RecoveredTime = append(c.RecoveredTime, float32(b.Recovered[i]))
		c.DeadTime = append(c.DeadTime, float32(b.Dead[i]))
	}

	meta.Points = n
	meta.Radius = geo.GlobeRadius
	if meta.GeneratedAt == "" {
		meta.GeneratedAt = time.Now().UTC().Format(time.RFC3339)
	}
	c.Metadata = meta
	return c
}

// RenderFrom converts point settings to shader uniforms. Disabled
// extinction is sent as 0.
func RenderFrom(s points.Settings) RenderSettings {
	ext := s.ExtinctionDays
	if ext < 0 || math.IsInf(ext, 1) {
		ext = 0
	}
	return RenderSettings{
		ExtinctionDays:  ext,
		KeepDeaths:      s.KeepDeaths,
		UseRecoveryData: s.UseRecoveryData,
	}
}
