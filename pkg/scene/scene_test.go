package scene

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/ChicagoDave/casemap/pkg/geo"
	"github.com/ChicagoDave/casemap/pkg/points"
)

func approxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func testBuffers() *points.Buffers {
	return points.Flatten([][]points.Event{
		{
			{Position: geo.LL(0, 0), Confirmed: 1, Recovered: 15, Dead: points.NoDay},
			{Position: geo.LL(48.2, 16.4), Confirmed: 2, Recovered: points.NoDay, Dead: 4},
		},
		{
			{Position: geo.LL(-33.9, 151.2), Confirmed: 0, Recovered: 14, Dead: points.NoDay},
		},
	})
}

func validCloud() *Cloud {
	return Assemble(Metadata{ID: "run-1", SpecVersion: "0.1.0", Decimation: 10}, testBuffers())
}

func TestAssemble(t *testing.T) {
	c := validCloud()
	if c.Len() != 3 || len(c.Positions) != 9 {
		t.Fatalf("len = %d positions = %d, want 3 and 9", c.Len(), len(c.Positions))
	}
	if c.Metadata.Points != 3 || c.Metadata.ID != "run-1" || c.Metadata.GeneratedAt == "" {
		t.Errorf("metadata = %+v", c.Metadata)
	}

	// lat 0, lng 0 faces +Z.
	p := c.Position(0)
	if !approxEqual(p.X, 0, 1e-4) || !approxEqual(p.Y, 0, 1e-4) || !approxEqual(p.Z, geo.GlobeRadius, 1e-4) {
		t.Errorf("position 0 = %+v, want (0, 0, %v)", p, geo.GlobeRadius)
	}
	if c.ConfirmedTime[1] != 2 || c.DeadTime[1] != 4 || !math.IsInf(float64(c.RecoveredTime[1]), 1) {
		t.Errorf("point 1 times = %v %v %v", c.ConfirmedTime[1], c.RecoveredTime[1], c.DeadTime[1])
	}
	if !math.IsInf(float64(c.DeadTime[2]), 1) {
		t.Errorf("absent dead day = %v, want +Inf", c.DeadTime[2])
	}
}

func TestValidateCloud_Valid(t *testing.T) {
	r := ValidateCloud(validCloud())
	if !r.Valid {
		t.Errorf("expected valid, got %d errors", len(r.Errors))
		for _, e := range r.Errors {
			t.Logf("  error: %s", e.Message)
		}
	}
	if len(r.Warnings) != 0 {
		t.Errorf("unexpected warnings: %+v", r.Warnings)
	}
}

func TestValidateCloud_Nil(t *testing.T) {
	if r := ValidateCloud(nil); r.Valid {
		t.Error("expected invalid for nil cloud")
	}
}

func TestValidateCloud_MisalignedBuffers(t *testing.T) {
	c := validCloud()
	c.DeadTime = c.DeadTime[:2]
	r := ValidateCloud(c)
	if r.Valid {
		t.Error("expected invalid for misaligned buffers")
	}
}

func TestValidateCloud_BothOutcomes(t *testing.T) {
	c := validCloud()
	c.RecoveredTime[1] = 3
	if r := ValidateCloud(c); r.Valid {
		t.Error("expected invalid for a point that both recovered and died")
	}
}

func TestValidateCloud_InvalidConfirmed(t *testing.T) {
	c := validCloud()
	c.ConfirmedTime[0] = float32(math.Inf(1))
	if r := ValidateCloud(c); r.Valid {
		t.Error("expected invalid for an absent confirmed day")
	}
}

func TestValidateCloud_OffGlobe(t *testing.T) {
	c := validCloud()
	c.Positions[0] = 500
	if r := ValidateCloud(c); r.Valid {
		t.Error("expected invalid for a point off the globe")
	}
}

func TestValidateCloud_Warnings(t *testing.T) {
	c := validCloud()
	c.DeadTime[1] = 1
	c.Metadata.Points = 7
	c.Metadata.Decimation = 0
	r := ValidateCloud(c)
	if !r.Valid {
		t.Errorf("warnings only, got errors: %+v", r.Errors)
	}
	if len(r.Warnings) != 3 {
		t.Errorf("warnings = %d, want 3", len(r.Warnings))
	}
}

func TestEncodeDecode(t *testing.T) {
	c := validCloud()
	var buf bytes.Buffer
	n, err := c.WriteTo(&buf)
	if err != nil {
		t.Fatalf("WriteTo failed: %v", err)
	}
	if n != int64(buf.Len()) {
		t.Errorf("WriteTo reported %d bytes, wrote %d", n, buf.Len())
	}

	got, err := ReadCloud(&buf)
	if err != nil {
		t.Fatalf("ReadCloud failed: %v", err)
	}
	if got.Metadata != c.Metadata {
		t.Errorf("metadata = %+v, want %+v", got.Metadata, c.Metadata)
	}
	for i := range c.Positions {
		if got.Positions[i] != c.Positions[i] {
			t.Fatalf("position value %d = %v, want %v", i, got.Positions[i], c.Positions[i])
		}
	}
	if !math.IsInf(float64(got.RecoveredTime[1]), 1) || got.DeadTime[1] != 4 {
		t.Errorf("times did not survive encoding: %v %v", got.RecoveredTime, got.DeadTime)
	}
}

func TestReadCloudRejectsGarbage(t *testing.T) {
	_, err := ReadCloud(bytes.NewReader([]byte("GIF89a......")))
	if !errors.Is(err, ErrBadMagic) {
		t.Errorf("err = %v, want ErrBadMagic", err)
	}
	if _, err := ReadCloud(bytes.NewReader(nil)); err == nil {
		t.Error("expected error for empty input")
	}
}

func BenchmarkAssemble(b *testing.B) {
	events := make([]points.Event, 100000)
	for i := range events {
		events[i] = points.Event{
			Position:  geo.LL(float64(i%180)-90, float64(i%360)-180),
			Confirmed: i % 300,
			Recovered: i%300 + 14,
			Dead:      points.NoDay,
		}
	}
	buf := points.Flatten([][]points.Event{events})
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Assemble(Metadata{Decimation: 10}, buf)
	}
}

func TestMarshalJSONUsesNullForAbsentDays(t *testing.T) {
	data, err := json.Marshal(validCloud())
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var out struct {
		Metadata      Metadata   `json:"metadata"`
		RecoveredTime []*float64 `json:"recovered_time"`
		DeadTime      []*float64 `json:"dead_time"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if out.RecoveredTime[1] != nil || out.DeadTime[1] == nil || *out.DeadTime[1] != 4 {
		t.Errorf("recovered = %v, dead = %v", out.RecoveredTime, out.DeadTime)
	}
	if out.Metadata.Points != 3 {
		t.Errorf("metadata points = %d, want 3", out.Metadata.Points)
	}
}

func TestRenderFrom(t *testing.T) {
	s := points.DefaultSettings()
	s.ExtinctionDays = math.Inf(1)
	r := RenderFrom(s)
	if r.ExtinctionDays != 0 || !r.KeepDeaths || !r.UseRecoveryData {
		t.Errorf("render = %+v", r)
	}
}
