package points

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/ChicagoDave/casemap/pkg/density"
	"github.com/ChicagoDave/casemap/pkg/geo"
	"github.com/ChicagoDave/casemap/pkg/region"
	"github.com/ChicagoDave/casemap/pkg/resolve"
	"github.com/ChicagoDave/casemap/pkg/stats"
)

func sum(xs []int) int {
	s := 0
	for _, x := range xs {
		s += x
	}
	return s
}

func intsEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func singleCellSet(t *testing.T, confirmed, recovered, deaths stats.Series) *resolve.WorkingSet {
	t.Helper()
	table, err := density.Build([]geo.LatLng{geo.LL(10, 20)}, []float64{1})
	if err != nil {
		t.Fatal(err)
	}
	return &resolve.WorkingSet{
		Key:       region.K("Testland", ""),
		Table:     table,
		Confirmed: confirmed,
		Recovered: recovered,
		Deaths:    deaths,
	}
}

func allocate(t *testing.T, ws *resolve.WorkingSet, decimation int) ([]Event, Diagnostics) {
	t.Helper()
	events, diag, err := NewAllocator(decimation).Allocate(ws, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	return events, diag
}

// --- ExtractDeltas tests ---

func TestExtractDeltasExactWithoutDecimation(t *testing.T) {
	got := ExtractDeltas(stats.Series{0, 2, 5, 5, 12}, 1)
	want := []int{0, 2, 3, 0, 7}
	if !intsEqual(got, want) {
		t.Errorf("deltas = %v, want %v", got, want)
	}
}

func TestExtractDeltasFirstDayIsCumulative(t *testing.T) {
	got := ExtractDeltas(stats.Series{4, 4}, 1)
	if got[0] != 4 {
		t.Errorf("day 0 = %d, want 4 (series[-1] is 0)", got[0])
	}
}

func TestExtractDeltasRemainderCarry(t *testing.T) {
	// 4 new cases per day at decimation 10: 0.4 per day.
	got := ExtractDeltas(stats.Series{4, 8, 12, 16, 20}, 10)
	want := []int{0, 0, 1, 0, 1}
	if !intsEqual(got, want) {
		t.Errorf("deltas = %v, want %v", got, want)
	}
}

func TestExtractDeltasTotalWithinDecimation(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for _, decimation := range []int{1, 2, 3, 7, 10, 30} {
		series := make(stats.Series, 120)
		total := 0.0
		for d := range series {
			total += float64(rng.Intn(500))
			series[d] = total
		}
		emitted := sum(ExtractDeltas(series, decimation))
		// The shortfall is the final remainder: under one emitted unit,
		// i.e. at most decimation-1 raw cases.
		if diff := total/float64(decimation) - float64(emitted); diff < -1e-9 || diff > 1+1e-9 {
			t.Errorf("decimation %d: emitted %d for raw %v (diff %v)", decimation, emitted, total, diff)
		}
	}
}

func TestExtractDeltasNegativePassThrough(t *testing.T) {
	got := ExtractDeltas(stats.Series{5, 3, 3}, 1)
	want := []int{5, -2, 0}
	if !intsEqual(got, want) {
		t.Errorf("deltas = %v, want %v", got, want)
	}
}

func TestExtractDeltasDecimationBelowOne(t *testing.T) {
	got := ExtractDeltas(stats.Series{1, 3}, 0)
	if !intsEqual(got, []int{1, 2}) {
		t.Errorf("deltas = %v, want [1 2]", got)
	}
}

// --- Allocate tests ---

func TestAllocateConfirmedOnly(t *testing.T) {
	events, diag := allocate(t, singleCellSet(t, stats.Series{0, 2, 5, 5}, nil, nil), 1)
	wantDays := []int{1, 1, 2, 2, 2}
	if len(events) != len(wantDays) {
		t.Fatalf("created %d points, want %d", len(events), len(wantDays))
	}
	for i, e := range events {
		if e.Confirmed != wantDays[i] {
			t.Errorf("point %d confirmed = %d, want %d", i, e.Confirmed, wantDays[i])
		}
		if e.Recovered != e.Confirmed+14 {
			t.Errorf("point %d recovered = %d, want %d", i, e.Recovered, e.Confirmed+14)
		}
		if e.HasDead() {
			t.Errorf("point %d has dead day %d", i, e.Dead)
		}
	}
	if diag.Points != 5 {
		t.Errorf("diag.Points = %d, want 5", diag.Points)
	}
}

func TestAllocateDeathClearsRecovery(t *testing.T) {
	events, diag := allocate(t, singleCellSet(t, stats.Series{0, 2, 5, 5}, nil, stats.Series{0, 0, 1, 1}), 1)
	if len(events) != 5 {
		t.Fatalf("created %d points, want 5", len(events))
	}
	// The cursor starts at the region's first point.
	if events[0].Dead != 2 || events[0].HasRecovered() {
		t.Errorf("first point = %+v, want dead on day 2 with recovery cleared", events[0])
	}
	for i, e := range events[1:] {
		if e.HasDead() || e.Recovered != e.Confirmed+14 {
			t.Errorf("point %d = %+v, want default recovery and no death", i+1, e)
		}
	}
	if events[2].Confirmed != 2 || events[2].Recovered != 16 {
		t.Errorf("day-2 point = %+v, want recovered 16", events[2])
	}
	if diag.DroppedDead != 0 {
		t.Errorf("dropped dead = %d, want 0", diag.DroppedDead)
	}
}

func TestAllocateDeadBeforeRecoveredSameDay(t *testing.T) {
	events, _ := allocate(t, singleCellSet(t,
		stats.Series{3, 3, 3},
		stats.Series{0, 1, 1},
		stats.Series{0, 1, 2}), 1)
	if events[0].Dead != 1 || events[0].HasRecovered() {
		t.Errorf("point 0 = %+v, want dead day 1", events[0])
	}
	if events[1].Recovered != 1 || events[1].HasDead() {
		t.Errorf("point 1 = %+v, want recovered day 1", events[1])
	}
	if events[2].Dead != 2 || events[2].HasRecovered() {
		t.Errorf("point 2 = %+v, want dead day 2", events[2])
	}
}

func TestAllocatePoolExhaustion(t *testing.T) {
	events, diag := allocate(t, singleCellSet(t,
		stats.Series{2, 2, 2, 2},
		stats.Series{0, 1, 3, 4},
		stats.Series{0, 1, 1, 3}), 1)
	if len(events) != 2 {
		t.Fatalf("created %d points, want 2 (no new points for outcomes)", len(events))
	}
	// Day 1: one dead, one recovered. Pool is then empty.
	if events[0].Dead != 1 || events[1].Recovered != 1 {
		t.Errorf("events = %+v", events)
	}
	if diag.DroppedRecovered != 3 {
		t.Errorf("dropped recovered = %d, want 3", diag.DroppedRecovered)
	}
	if diag.DroppedDead != 2 {
		t.Errorf("dropped dead = %d, want 2", diag.DroppedDead)
	}
}

func TestAllocateAtMostOneOutcome(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	confirmed := make(stats.Series, 60)
	recovered := make(stats.Series, 60)
	deaths := make(stats.Series, 60)
	c, r, d := 0.0, 0.0, 0.0
	for i := range confirmed {
		c += float64(rng.Intn(40))
		r += float64(rng.Intn(25))
		d += float64(rng.Intn(5))
		confirmed[i], recovered[i], deaths[i] = c, r, d
	}
	for _, decimation := range []int{1, 3, 10} {
		events, diag := allocate(t, singleCellSet(t, confirmed, recovered, deaths), decimation)
		if want := sum(ExtractDeltas(confirmed, decimation)); len(events) != want {
			t.Errorf("decimation %d: %d points, want %d", decimation, len(events), want)
		}
		if diag.Points != len(events) {
			t.Errorf("decimation %d: diag.Points = %d, want %d", decimation, diag.Points, len(events))
		}
		for i, e := range events {
			if e.HasDead() && e.HasRecovered() {
				t.Fatalf("decimation %d: point %d is both dead and recovered: %+v", decimation, i, e)
			}
			if e.HasDead() && e.Dead < 0 {
				t.Fatalf("point %d has invalid dead day %d", i, e.Dead)
			}
		}
	}
}

func TestAllocateNegativeDeltas(t *testing.T) {
	events, diag := allocate(t, singleCellSet(t,
		stats.Series{5, 3, 4},
		nil,
		stats.Series{1, 0, 0}), 1)
	if len(events) != 6 {
		t.Errorf("created %d points, want 6 (5 + 0 + 1)", len(events))
	}
	if diag.NegativeUnits != 3 {
		t.Errorf("negative units = %d, want 3 (2 confirmed + 1 dead)", diag.NegativeUnits)
	}
	if events[0].Dead != 0 {
		t.Errorf("point 0 = %+v, want dead day 0", events[0])
	}
}

func TestAllocateTruncatesLongOutcomeSeries(t *testing.T) {
	events, diag := allocate(t, singleCellSet(t,
		stats.Series{3, 3},
		stats.Series{0, 0, 2, 3}, nil), 1)
	for i, e := range events {
		if e.Recovered != e.Confirmed+14 {
			t.Errorf("point %d recovered = %d, want default", i, e.Recovered)
		}
	}
	if diag.DroppedRecovered != 0 {
		t.Errorf("days past the confirmed series must be ignored, dropped %d", diag.DroppedRecovered)
	}
}

func TestAllocatePositionsInCell(t *testing.T) {
	events, _ := allocate(t, singleCellSet(t, stats.Series{50}, nil, nil), 1)
	half := density.DefaultCellSize / 2
	for i, e := range events {
		if math.Abs(e.Position.Lat-10) > half || math.Abs(e.Position.Lng-20) > half {
			t.Errorf("point %d at %v outside the sampled cell", i, e.Position)
		}
	}
}

func TestAllocateDeterministic(t *testing.T) {
	ws := singleCellSet(t, stats.Series{3, 9}, nil, nil)
	a, _ := allocate(t, ws, 1)
	b, _ := allocate(t, ws, 1)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("point %d differs between runs with the same seed", i)
		}
	}
}

func TestAllocateEmptyTable(t *testing.T) {
	ws := &resolve.WorkingSet{Key: region.K("Nowhere", ""), Confirmed: stats.Series{1}}
	_, _, err := NewAllocator(1).Allocate(ws, rand.New(rand.NewSource(1)))
	if !errors.Is(err, density.ErrEmptyTable) {
		t.Errorf("err = %v, want ErrEmptyTable", err)
	}
	ws.Confirmed = stats.Series{0, 0}
	if _, _, err := NewAllocator(1).Allocate(ws, rand.New(rand.NewSource(1))); err != nil {
		t.Errorf("a region needing no points must not sample: %v", err)
	}
}

func TestDiagnosticsAdd(t *testing.T) {
	d := Diagnostics{Points: 1, DroppedDead: 2}
	d.Add(Diagnostics{Points: 3, DroppedRecovered: 4, NegativeUnits: 5})
	want := Diagnostics{Points: 4, DroppedDead: 2, DroppedRecovered: 4, NegativeUnits: 5}
	if d != want {
		t.Errorf("sum = %+v, want %+v", d, want)
	}
}

// --- Flatten tests ---

func TestFlattenKeepsRegionOrder(t *testing.T) {
	runs := [][]Event{
		{{Position: geo.LL(1, 1), Confirmed: 3, Recovered: 17, Dead: NoDay}},
		{},
		{
			{Position: geo.LL(2, 2), Confirmed: 0, Recovered: NoDay, Dead: 4},
			{Position: geo.LL(3, 3), Confirmed: 1, Recovered: 2, Dead: NoDay},
		},
	}
	b := Flatten(runs)
	if b.Len() != 3 || len(b.Confirmed) != 3 || len(b.Recovered) != 3 || len(b.Dead) != 3 {
		t.Fatalf("buffer lengths = %d/%d/%d/%d, want 3", b.Len(), len(b.Confirmed), len(b.Recovered), len(b.Dead))
	}
	if b.Positions[0] != geo.LL(1, 1) || b.Positions[2] != geo.LL(3, 3) {
		t.Errorf("positions = %v", b.Positions)
	}
	if b.Confirmed[0] != 3 || b.Recovered[0] != 17 || !math.IsInf(b.Dead[0], 1) {
		t.Errorf("point 0 = %v %v %v", b.Confirmed[0], b.Recovered[0], b.Dead[0])
	}
	if !math.IsInf(b.Recovered[1], 1) || b.Dead[1] != 4 {
		t.Errorf("point 1 = %v %v", b.Recovered[1], b.Dead[1])
	}
	if b.Confirmed[1] != 0 {
		t.Errorf("day 0 must stay distinguishable from absent, got %v", b.Confirmed[1])
	}
}

func TestFlattenEmpty(t *testing.T) {
	if b := Flatten(nil); b.Len() != 0 {
		t.Errorf("len = %d, want 0", b.Len())
	}
}

// --- State tests ---

func stateBuffers() *Buffers {
	return Flatten([][]Event{{
		{Confirmed: 2, Recovered: 16, Dead: NoDay},
		{Confirmed: 2, Recovered: NoDay, Dead: 5},
		{Confirmed: 2, Recovered: 4, Dead: NoDay},
	}})
}

func TestStateAt(t *testing.T) {
	b := stateBuffers()
	s := Settings{ExtinctionDays: 10, KeepDeaths: true, UseRecoveryData: true, RecoveryDays: 14}
	tests := []struct {
		i    int
		t    float64
		want State
	}{
		{0, 1.9, NotYet},
		{0, 2, Active},
		{0, 16, Recovered},
		{0, 26, Extinct},
		{1, 4.5, Active},
		{1, 5, Dead},
		{1, 500, Dead},
		{2, 4, Recovered},
		{2, 13.9, Recovered},
		{2, 14, Extinct},
	}
	for _, tt := range tests {
		if got := b.StateAt(tt.i, tt.t, s); got != tt.want {
			t.Errorf("StateAt(%d, %v) = %v, want %v", tt.i, tt.t, got, tt.want)
		}
	}
}

func TestStateAtSettings(t *testing.T) {
	b := stateBuffers()
	s := Settings{ExtinctionDays: 10, KeepDeaths: false, UseRecoveryData: false, RecoveryDays: 14}
	if got := b.StateAt(1, 15, s); got != Extinct {
		t.Errorf("dead point without keep deaths = %v, want extinct", got)
	}
	if got := b.StateAt(2, 5, s); got != Active {
		t.Errorf("ignoring recovery data: state = %v, want active until day 16", got)
	}
	if got := b.StateAt(2, 16, s); got != Recovered {
		t.Errorf("ignoring recovery data: state = %v, want recovered at day 16", got)
	}
	s.ExtinctionDays = math.Inf(1)
	if got := b.StateAt(0, 1e6, s); got != Recovered {
		t.Errorf("infinite extinction: state = %v, want recovered", got)
	}
}

func TestCountAt(t *testing.T) {
	c := stateBuffers().CountAt(5, DefaultSettings())
	want := Counts{Active: 1, Recovered: 1, Dead: 1}
	if c != want {
		t.Errorf("counts = %+v, want %+v", c, want)
	}
	if c.Visible() != 3 {
		t.Errorf("visible = %d, want 3", c.Visible())
	}
	if got := stateBuffers().CountAt(0, DefaultSettings()); got.NotYet != 3 {
		t.Errorf("counts at t=0 = %+v, want 3 not yet", got)
	}
}

func TestCountRange(t *testing.T) {
	b := stateBuffers()
	s := DefaultSettings()
	c := b.CountRange(1, 3, 5, s)
	if c != (Counts{Recovered: 1, Dead: 1}) {
		t.Errorf("counts = %+v, want one recovered and one dead", c)
	}
	c.Add(b.CountRange(0, 1, 5, s))
	if c != b.CountAt(5, s) {
		t.Errorf("sum of ranges = %+v, want %+v", c, b.CountAt(5, s))
	}
}
