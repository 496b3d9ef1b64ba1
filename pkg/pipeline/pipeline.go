// Package pipeline runs the point allocator over every resolved region and
// flattens the result for rendering.
package pipeline

import (
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ChicagoDave/casemap/internal/logger"
	"github.com/ChicagoDave/casemap/internal/metrics"
	"github.com/ChicagoDave/casemap/pkg/density"
	"github.com/ChicagoDave/casemap/pkg/points"
	"github.com/ChicagoDave/casemap/pkg/region"
	"github.com/ChicagoDave/casemap/pkg/resolve"
	"github.com/ChicagoDave/casemap/pkg/validation"
)

// Options configures a run.
type Options struct {
	Allocator points.Allocator
	// Seed makes runs reproducible. Region i draws from a source seeded
	// with Seed+i, so the result does not depend on Workers.
	Seed    int64
	Workers int
	// RandFor overrides the per-region random source.
	RandFor func(i int) density.Rand
	Log     *slog.Logger
}

// RegionResult is the allocation of one region.
type RegionResult struct {
	Key         region.Key         `json:"key"`
	Offset      int                `json:"offset"`
	Events      []points.Event     `json:"-"`
	Diagnostics points.Diagnostics `json:"diagnostics"`
}

// Result is the output of one run.
type Result struct {
	ID          string             `json:"id"`
	GeneratedAt time.Time          `json:"generated_at"`
	Regions     []RegionResult     `json:"regions"`
	Buffers     *points.Buffers    `json:"-"`
	Diagnostics points.Diagnostics `json:"diagnostics"`
}

// Region returns the result for k.
func (r *Result) Region(k region.Key) (*RegionResult, bool) {
	for i := range r.Regions {
		if r.Regions[i].Key == k {
			return &r.Regions[i], true
		}
	}
	return nil, false
}

// Run allocates points for every region the resolver can pair, in feature
// order. Regions are processed concurrently; the output order and content
// only depend on the inputs and the seed. Data inconsistencies are
// reported, not returned; the error is reserved for precondition
// violations such as sampling an empty density table.
func Run(res *resolve.Resolver, opts Options) (*Result, *validation.Report, error) {
	start := time.Now()
	log := opts.Log
	if log == nil {
		log = logger.L()
	}
	report := validation.NewReport()

	for _, k := range res.Unmatched() {
		_, hasFeature, hasDensity := res.Summary(k)
		log.Debug("region_skipped", "region", k.String(), "feature", hasFeature, "density", hasDensity)
		metrics.RegionsSkipped.Inc()
		report.AddInfo(validation.Result{
			Level:    validation.LevelData,
			Message:  fmt.Sprintf("statistics for %s not drawn: feature=%t density=%t", k, hasFeature, hasDensity),
			SpecPath: "sources.statistics",
			Region:   k.String(),
		})
	}

	sets := res.All()
	results := make([]RegionResult, len(sets))
	errs := make([]error, len(sets))

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				events, diag, err := opts.Allocator.Allocate(sets[i], opts.randFor(i))
				results[i] = RegionResult{Key: sets[i].Key, Events: events, Diagnostics: diag}
				errs[i] = err
			}
		}()
	}
	for i := range sets {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	out := &Result{
		ID:          uuid.NewString(),
		GeneratedAt: start.UTC(),
		Regions:     results,
	}
	runs := make([][]points.Event, len(results))
	offset := 0
	for i := range results {
		if errs[i] != nil {
			return nil, report, fmt.Errorf("allocating %s: %w", results[i].Key, errs[i])
		}
		r := &results[i]
		r.Offset = offset
		offset += len(r.Events)
		runs[i] = r.Events
		out.Diagnostics.Add(r.Diagnostics)
		reportDiagnostics(report, r)
		metrics.RegionsProcessed.Inc()
	}
	out.Buffers = points.Flatten(runs)

	d := out.Diagnostics
	metrics.PointsGenerated.Add(float64(d.Points))
	metrics.DroppedUnits.WithLabelValues("dead").Add(float64(d.DroppedDead))
	metrics.DroppedUnits.WithLabelValues("recovered").Add(float64(d.DroppedRecovered))
	metrics.NegativeUnits.Add(float64(d.NegativeUnits))
	metrics.GenerateDurationMs.Observe(float64(time.Since(start).Milliseconds()))

	log.Info("points_generated",
		"id", out.ID,
		"regions", len(results),
		"points", d.Points,
		"dropped_dead", d.DroppedDead,
		"dropped_recovered", d.DroppedRecovered,
		"negative_units", d.NegativeUnits,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return out, report, nil
}

func (o Options) randFor(i int) density.Rand {
	if o.RandFor != nil {
		return o.RandFor(i)
	}
	return rand.New(rand.NewSource(o.Seed + int64(i)))
}

func reportDiagnostics(report *validation.Report, r *RegionResult) {
	d := r.Diagnostics
	if d.DroppedDead > 0 || d.DroppedRecovered > 0 {
		report.AddWarning(validation.Result{
			Level:       validation.LevelAllocation,
			Message:     fmt.Sprintf("%s: %d dead and %d recovered units exceed the %d confirmed points", r.Key, d.DroppedDead, d.DroppedRecovered, d.Points),
			SpecPath:    "sources.statistics",
			Region:      r.Key.String(),
			ActualValue: d.DroppedDead + d.DroppedRecovered,
		})
	}
	if d.NegativeUnits > 0 {
		report.AddInfo(validation.Result{
			Level:       validation.LevelAllocation,
			Message:     fmt.Sprintf("%s: %d units from downward corrections ignored", r.Key, d.NegativeUnits),
			SpecPath:    "sources.statistics",
			Region:      r.Key.String(),
			ActualValue: d.NegativeUnits,
		})
	}
}
