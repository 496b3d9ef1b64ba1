package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ChicagoDave/casemap/internal/logger"
	"github.com/ChicagoDave/casemap/internal/server"
	"github.com/ChicagoDave/casemap/internal/source"
	"github.com/ChicagoDave/casemap/pkg/bus"
	"github.com/ChicagoDave/casemap/pkg/clock"
	"github.com/ChicagoDave/casemap/pkg/density"
	"github.com/ChicagoDave/casemap/pkg/features"
	"github.com/ChicagoDave/casemap/pkg/pipeline"
	"github.com/ChicagoDave/casemap/pkg/points"
	"github.com/ChicagoDave/casemap/pkg/resolve"
	"github.com/ChicagoDave/casemap/pkg/scene"
	"github.com/ChicagoDave/casemap/pkg/spec"
	"github.com/ChicagoDave/casemap/pkg/validation"
)

const (
	formatJSON   = "json"
	formatBinary = "bin"
)

// loadAndValidate loads the project file, applies environment overrides
// and runs schema validation.
func loadAndValidate(projectPath string) (*spec.ProjectSpec, *validation.Report, error) {
	projectSpec, err := spec.LoadProject(projectPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading project: %w", err)
	}
	if err := projectSpec.ApplyEnv(os.Getenv); err != nil {
		return nil, nil, fmt.Errorf("environment: %w", err)
	}
	return projectSpec, validation.ValidateSchema(projectSpec), nil
}

// newFetcher wires the optional Redis cache and object store of s.
func newFetcher(s *spec.ProjectSpec) (*source.Fetcher, error) {
	f := source.NewFetcher()
	if client := source.OpenRedis(s.Cache.RedisAddr); client != nil {
		f.Cache = source.NewRedisCache(client)
		f.TTL = s.CacheTTL()
	}
	if s.Storage.Endpoint != "" {
		store, err := source.NewMinioStore(s.Storage)
		if err != nil {
			return nil, fmt.Errorf("object storage: %w", err)
		}
		f.Objects = store
	}
	return f, nil
}

// renderSettings converts the project's render block.
func renderSettings(s *spec.ProjectSpec) points.Settings {
	return points.Settings{
		ExtinctionDays:  s.Render.ExtinctionDays,
		KeepDeaths:      s.Render.KeepDeaths,
		UseRecoveryData: s.Render.UseRecoveryData,
		RecoveryDays:    s.Sampling.DefaultRecoveryDays,
	}
}

// generate loads the sources of s and runs the whole pipeline. Findings
// are merged into report; the error is only set when no cloud could be
// produced.
func generate(ctx context.Context, s *spec.ProjectSpec, report *validation.Report, constrained bool) (*server.Snapshot, error) {
	fetcher, err := newFetcher(s)
	if err != nil {
		return nil, err
	}

	inputs, loadReport := fetcher.Load(ctx, s)
	report.Merge(loadReport)
	if !loadReport.Valid {
		return nil, fmt.Errorf("data sources have errors")
	}

	alloc := points.NewAllocator(s.EffectiveDecimation(constrained))
	alloc.RecoveryDays = s.Sampling.DefaultRecoveryDays
	alloc.CellSize = s.Sampling.CellSizeDeg

	res := resolve.New(inputs.Index, inputs.Tables, inputs.Confirmed, inputs.Recovered, inputs.Deaths)
	result, runReport, err := pipeline.Run(res, pipeline.Options{
		Allocator: alloc,
		Seed:      s.Sampling.Seed,
		Workers:   s.Sampling.Workers,
		Log:       logger.L(),
	})
	report.Merge(runReport)
	if err != nil {
		return nil, fmt.Errorf("generating points: %w", err)
	}

	settings := renderSettings(s)
	meta := scene.Metadata{
		ID:          result.ID,
		SpecVersion: s.SpecVersion,
		GeneratedAt: result.GeneratedAt.UTC().Format(time.RFC3339),
		Days:        inputs.Confirmed.Days(),
		Decimation:  alloc.Decimation,
		Render:      scene.RenderFrom(settings),
	}
	if start, ok := inputs.Confirmed.StartDate(); ok {
		meta.StartDate = start.Format("2006-01-02")
	}
	cloud := scene.Assemble(meta, result.Buffers)
	report.Merge(scene.ValidateCloud(cloud))

	return &server.Snapshot{
		Inputs:   inputs,
		Result:   result,
		Cloud:    cloud,
		Report:   report,
		Settings: settings,
	}, nil
}

// prepare loads the project and generates its points, printing the report
// and failing when the project is invalid.
func prepare(ctx context.Context, projectPath string, constrained bool) (*spec.ProjectSpec, *server.Snapshot, error) {
	projectSpec, report, err := loadAndValidate(projectPath)
	if err != nil {
		return nil, nil, err
	}
	if !report.Valid {
		printValidationReport(os.Stderr, report)
		return nil, nil, fmt.Errorf("project has validation errors")
	}

	snap, err := generate(ctx, projectSpec, report, constrained)
	if err != nil {
		printValidationReport(os.Stderr, report)
		return nil, nil, err
	}
	return projectSpec, snap, nil
}

func runValidate(ctx context.Context, projectPath string, schemaOnly bool) error {
	projectSpec, report, err := loadAndValidate(projectPath)
	if err != nil {
		return err
	}

	if report.Valid && !schemaOnly {
		fetcher, err := newFetcher(projectSpec)
		if err != nil {
			return err
		}
		_, dataReport := fetcher.Load(ctx, projectSpec)
		report.Merge(dataReport)
	}

	printValidationReport(os.Stdout, report)

	if !report.Valid {
		os.Exit(1)
	}
	return nil
}

func runGenerate(ctx context.Context, projectPath, out, format string, constrained bool) error {
	if format != formatJSON && format != formatBinary {
		return fmt.Errorf("unknown format %q", format)
	}
	_, snap, err := prepare(ctx, projectPath, constrained)
	if err != nil {
		return err
	}
	if len(snap.Report.Warnings) > 0 {
		printValidationReport(os.Stderr, snap.Report)
	}

	return writeOutput(out, func(w io.Writer) error {
		if format == formatBinary {
			_, err := snap.Cloud.WriteTo(w)
			return err
		}
		return json.NewEncoder(w).Encode(snap.Cloud)
	})
}

func runSummary(ctx context.Context, projectPath, filter string, day float64, constrained bool) error {
	_, snap, err := prepare(ctx, projectPath, constrained)
	if err != nil {
		return err
	}
	if day < 0 {
		day = float64(snap.Cloud.Metadata.Days - 1)
	}
	printSummary(os.Stdout, snap, filter, day)
	return nil
}

func runPrecalc(ctx context.Context, projectPath, raster, out string) error {
	projectSpec, report, err := loadAndValidate(projectPath)
	if err != nil {
		return err
	}
	if !report.Valid {
		printValidationReport(os.Stderr, report)
		return fmt.Errorf("project has validation errors")
	}
	if raster == "" {
		raster = projectSpec.Sources.Raster
	}
	if raster == "" {
		return fmt.Errorf("no raster given; set sources.raster or --raster")
	}

	fetcher, err := newFetcher(projectSpec)
	if err != nil {
		return err
	}
	layers := projectSpec.Sources.Geography
	uris := make([]string, 0, len(layers)+1)
	for _, g := range layers {
		uris = append(uris, g.URI)
	}
	uris = append(uris, raster)
	results := fetcher.FetchAll(ctx, uris)

	var cols []features.Collection
	for i, g := range layers {
		if results[i].Err != nil {
			return fmt.Errorf("geography %s: %w", g.URI, results[i].Err)
		}
		c, err := features.Decode(results[i].Data, g.ExcludeCountries...)
		if err != nil {
			return fmt.Errorf("geography %s: %w", g.URI, err)
		}
		cols = append(cols, c)
	}
	rr := results[len(layers)]
	if rr.Err != nil {
		return fmt.Errorf("raster %s: %w", raster, rr.Err)
	}
	img, err := density.DecodeRaster(bytes.NewReader(rr.Data))
	if err != nil {
		return err
	}

	docs := density.Rasterize(img, features.Merge(cols...), projectSpec.Sampling.RasterStep)
	var buf bytes.Buffer
	if err := density.Encode(&buf, docs); err != nil {
		return fmt.Errorf("encoding densities: %w", err)
	}
	if check := validation.ValidateDensityDocument(raster, buf.Bytes()); !check.Valid {
		printValidationReport(os.Stderr, check)
		return fmt.Errorf("generated density document is invalid")
	}
	logger.L().Info("precalc_done", "regions", len(docs), "raster", raster)

	return writeOutput(out, func(w io.Writer) error {
		_, err := w.Write(buf.Bytes())
		return err
	})
}

func runServe(ctx context.Context, projectPath string, port int, constrained bool) error {
	projectSpec, snap, err := prepare(ctx, projectPath, constrained)
	if err != nil {
		return err
	}
	if port == 0 {
		port = projectSpec.Server.Port
	}

	b := bus.New()
	clk := clock.New(b, projectSpec.Clock.DaysPerSecond)
	if start, ok := snap.Inputs.Confirmed.StartDate(); ok {
		clk.SetStart(start)
	}

	log := logger.L()
	go func() {
		if err := clk.Run(ctx, projectSpec.Clock.TickHz); err != nil && ctx.Err() == nil {
			log.Error("clock_stopped", "err", err)
		}
	}()

	log.Info("project_loaded",
		"project", projectPath,
		"points", snap.Cloud.Len(),
		"regions", len(snap.Result.Regions),
		"warnings", len(snap.Report.Warnings))
	return server.New(snap, clk, b, port, log).Run(ctx)
}

// writeOutput runs write against the named file, or stdout when path is
// empty.
func writeOutput(path string, write func(io.Writer) error) error {
	if path == "" {
		return write(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output: %w", err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}
