package validation

import (
	"fmt"
	"strings"
	"time"

	"github.com/ChicagoDave/casemap/pkg/spec"
)

// ValidateSchema performs Level 1 (schema) validation on a parsed ProjectSpec.
// It checks structural correctness before any source is fetched.
func ValidateSchema(s *spec.ProjectSpec) *Report {
	r := NewReport()

	validateVersion(s, r)
	validateSources(s, r)
	validateSampling(s, r)
	validateRender(s, r)
	validateClock(s, r)
	validateServer(s, r)
	validateCache(s, r)

	return r
}

func validateVersion(s *spec.ProjectSpec, r *Report) {
	if s.SpecVersion == "" {
		r.AddError(Result{
			Level:    LevelSchema,
			Message:  "spec_version is required",
			SpecPath: "spec_version",
			Expected: "e.g. 0.1.0",
		})
	}
}

func validateSources(s *spec.ProjectSpec, r *Report) {
	src := s.Sources

	if len(src.Geography) == 0 {
		r.AddError(Result{
			Level:    LevelSchema,
			Message:  "sources.geography must contain at least one feature collection",
			SpecPath: "sources.geography",
			Expected: "at least 1 source",
		})
	}
	for i, g := range src.Geography {
		if g.URI == "" {
			r.AddError(Result{
				Level:    LevelSchema,
				Message:  fmt.Sprintf("sources.geography[%d] has no uri", i),
				SpecPath: fmt.Sprintf("sources.geography[%d].uri", i),
			})
		}
	}
	if len(src.Densities) == 0 {
		r.AddError(Result{
			Level:       LevelSchema,
			Message:     "sources.densities must contain at least one density document",
			SpecPath:    "sources.densities",
			Expected:    "at least 1 source",
			Suggestions: []string{"Run `casemap precalc` against a population raster to produce one"},
		})
	}
	if len(src.Statistics.Confirmed) == 0 {
		r.AddError(Result{
			Level:    LevelSchema,
			Message:  "sources.statistics.confirmed must contain at least one series",
			SpecPath: "sources.statistics.confirmed",
			Expected: "at least 1 source",
		})
	}
	if len(src.Statistics.Recovered) == 0 && len(src.Statistics.Deaths) == 0 {
		r.AddInfo(Result{
			Level:    LevelSchema,
			Message:  fmt.Sprintf("no recovered or deaths series: every point recovers %d days after confirmation", s.Sampling.DefaultRecoveryDays),
			SpecPath: "sources.statistics",
		})
	}

	if usesScheme(s, "s3://") && s.Storage.Endpoint == "" {
		r.AddError(Result{
			Level:       LevelSchema,
			Message:     "s3:// sources require storage.endpoint",
			SpecPath:    "storage.endpoint",
			Suggestions: []string{"Set storage.endpoint or MINIO_ENDPOINT"},
		})
	}
}

func usesScheme(s *spec.ProjectSpec, prefix string) bool {
	var all []string
	for _, g := range s.Sources.Geography {
		all = append(all, g.URI)
	}
	all = append(all, s.Sources.Densities...)
	all = append(all, s.Sources.Statistics.Confirmed...)
	all = append(all, s.Sources.Statistics.Recovered...)
	all = append(all, s.Sources.Statistics.Deaths...)
	all = append(all, s.Sources.Raster)
	for _, u := range all {
		if strings.HasPrefix(u, prefix) {
			return true
		}
	}
	return false
}

func validateSampling(s *spec.ProjectSpec, r *Report) {
	sm := s.Sampling
	if sm.Decimation < 1 {
		r.AddError(Result{
			Level:       LevelSchema,
			Message:     "sampling.decimation must be >= 1",
			SpecPath:    "sampling.decimation",
			ActualValue: sm.Decimation,
			Expected:    ">= 1",
		})
	}
	if sm.DecimationConstrained < 1 {
		r.AddError(Result{
			Level:       LevelSchema,
			Message:     "sampling.decimation_constrained must be >= 1",
			SpecPath:    "sampling.decimation_constrained",
			ActualValue: sm.DecimationConstrained,
			Expected:    ">= 1",
		})
	} else if sm.Decimation >= 1 && sm.DecimationConstrained < sm.Decimation {
		r.AddWarning(Result{
			Level:        LevelSchema,
			Message:      "constrained devices get more points than regular ones",
			SpecPath:     "sampling.decimation_constrained",
			ActualValue:  sm.DecimationConstrained,
			ConflictWith: "sampling.decimation",
		})
	}
	if sm.CellSizeDeg <= 0 || sm.CellSizeDeg > 10 {
		r.AddError(Result{
			Level:       LevelSchema,
			Message:     fmt.Sprintf("sampling.cell_size_deg %.4f is outside valid range (0-10)", sm.CellSizeDeg),
			SpecPath:    "sampling.cell_size_deg",
			ActualValue: sm.CellSizeDeg,
			Expected:    "0 < size <= 10",
		})
	}
	if sm.DefaultRecoveryDays < 0 {
		r.AddError(Result{
			Level:       LevelSchema,
			Message:     "sampling.default_recovery_days must be >= 0",
			SpecPath:    "sampling.default_recovery_days",
			ActualValue: sm.DefaultRecoveryDays,
			Expected:    ">= 0",
		})
	}
	if sm.Workers < 0 {
		r.AddError(Result{
			Level:       LevelSchema,
			Message:     "sampling.workers must be >= 0 (0 uses one worker per CPU)",
			SpecPath:    "sampling.workers",
			ActualValue: sm.Workers,
		})
	}
	if sm.RasterStep < 1 {
		r.AddError(Result{
			Level:       LevelSchema,
			Message:     "sampling.raster_step must be >= 1",
			SpecPath:    "sampling.raster_step",
			ActualValue: sm.RasterStep,
		})
	}
}

func validateRender(s *spec.ProjectSpec, r *Report) {
	if s.Render.ExtinctionDays <= 0 {
		r.AddError(Result{
			Level:       LevelSchema,
			Message:     "render.extinction_days must be > 0",
			SpecPath:    "render.extinction_days",
			ActualValue: s.Render.ExtinctionDays,
			Expected:    "> 0",
		})
	}
}

func validateClock(s *spec.ProjectSpec, r *Report) {
	if s.Clock.DaysPerSecond <= 0 {
		r.AddError(Result{
			Level:       LevelSchema,
			Message:     "clock.days_per_second must be > 0",
			SpecPath:    "clock.days_per_second",
			ActualValue: s.Clock.DaysPerSecond,
			Expected:    "> 0",
		})
	}
	if s.Clock.TickHz <= 0 || s.Clock.TickHz > 1000 {
		r.AddError(Result{
			Level:       LevelSchema,
			Message:     fmt.Sprintf("clock.tick_hz %.1f is outside valid range (0-1000)", s.Clock.TickHz),
			SpecPath:    "clock.tick_hz",
			ActualValue: s.Clock.TickHz,
			Expected:    "0 < hz <= 1000",
		})
	}
}

func validateServer(s *spec.ProjectSpec, r *Report) {
	if s.Server.Port < 1 || s.Server.Port > 65535 {
		r.AddError(Result{
			Level:       LevelSchema,
			Message:     fmt.Sprintf("server.port %d is outside valid range (1-65535)", s.Server.Port),
			SpecPath:    "server.port",
			ActualValue: s.Server.Port,
		})
	}
}

func validateCache(s *spec.ProjectSpec, r *Report) {
	if s.Cache.TTL == "" {
		return
	}
	if d, err := time.ParseDuration(s.Cache.TTL); err != nil || d <= 0 {
		r.AddError(Result{
			Level:       LevelSchema,
			Message:     fmt.Sprintf("cache.ttl %q is not a positive duration", s.Cache.TTL),
			SpecPath:    "cache.ttl",
			ActualValue: s.Cache.TTL,
			Expected:    "e.g. 6h",
		})
	}
}
