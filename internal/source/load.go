package source

import (
	"bytes"
	"context"
	"fmt"

	"github.com/ChicagoDave/casemap/pkg/density"
	"github.com/ChicagoDave/casemap/pkg/features"
	"github.com/ChicagoDave/casemap/pkg/region"
	"github.com/ChicagoDave/casemap/pkg/spec"
	"github.com/ChicagoDave/casemap/pkg/stats"
	"github.com/ChicagoDave/casemap/pkg/validation"
)

// Inputs are the parsed data sources of a project.
type Inputs struct {
	Features  features.Collection
	Index     *features.Index
	Densities []density.RegionDensity
	Tables    map[region.Key]density.Table
	Confirmed *stats.Dataset
	Recovered *stats.Dataset
	Deaths    *stats.Dataset
}

// Dataset returns the dataset of kind k.
func (in *Inputs) Dataset(k stats.Kind) *stats.Dataset {
	switch k {
	case stats.KindConfirmed:
		return in.Confirmed
	case stats.KindRecovered:
		return in.Recovered
	case stats.KindDeaths:
		return in.Deaths
	}
	return nil
}

// Load fetches every source of s concurrently and parses them. Sources
// that fail to fetch or parse are reported as warnings and left out; the
// report only turns invalid when no confirmed statistics remain.
func (f *Fetcher) Load(ctx context.Context, s *spec.ProjectSpec) (*Inputs, *validation.Report) {
	report := validation.NewReport()
	src := s.Sources

	var uris []string
	for _, g := range src.Geography {
		uris = append(uris, g.URI)
	}
	uris = append(uris, src.Densities...)
	uris = append(uris, src.Statistics.Confirmed...)
	uris = append(uris, src.Statistics.Recovered...)
	uris = append(uris, src.Statistics.Deaths...)

	results := f.FetchAll(ctx, uris)
	next := func(n int) []Result {
		part := results[:n]
		results = results[n:]
		return part
	}

	in := &Inputs{}

	var cols []features.Collection
	for i, r := range next(len(src.Geography)) {
		path := fmt.Sprintf("sources.geography[%d]", i)
		if !fetched(report, r, path) {
			continue
		}
		c, err := features.Decode(r.Data, src.Geography[i].ExcludeCountries...)
		if err != nil {
			sourceWarning(report, path, r.URI, err)
			continue
		}
		cols = append(cols, c)
	}
	in.Features = features.Merge(cols...)
	in.Index = features.NewIndex(in.Features)

	for i, r := range next(len(src.Densities)) {
		path := fmt.Sprintf("sources.densities[%d]", i)
		if !fetched(report, r, path) {
			continue
		}
		if check := validation.ValidateDensityDocument(r.URI, r.Data); !check.Valid {
			for _, e := range check.Errors {
				report.AddWarning(e)
			}
			continue
		}
		docs, err := density.Decode(bytes.NewReader(r.Data))
		if err != nil {
			sourceWarning(report, path, r.URI, err)
			continue
		}
		in.Densities = append(in.Densities, docs...)
	}
	tables, tableReport := density.Tables(in.Densities)
	in.Tables = tables
	report.Merge(tableReport)

	norm := stats.Normalizer{
		Aliases:         src.Statistics.CountryAliases,
		SubnationalOnly: src.Statistics.SubnationalOnly,
		Features:        in.Index,
	}
	in.Confirmed = parseKind(report, norm, stats.KindConfirmed, next(len(src.Statistics.Confirmed)))
	in.Recovered = parseKind(report, norm, stats.KindRecovered, next(len(src.Statistics.Recovered)))
	in.Deaths = parseKind(report, norm, stats.KindDeaths, next(len(src.Statistics.Deaths)))

	if in.Confirmed == nil {
		report.AddError(validation.Result{
			Level:    validation.LevelData,
			Message:  "no confirmed statistics could be loaded",
			SpecPath: "sources.statistics.confirmed",
		})
	}
	return in, report
}

// parseKind parses and combines the files of one series kind. It returns
// nil when none of them could be read.
func parseKind(report *validation.Report, n stats.Normalizer, kind stats.Kind, results []Result) *stats.Dataset {
	var sets []*stats.Dataset
	for i, r := range results {
		path := fmt.Sprintf("sources.statistics.%s[%d]", kind, i)
		if !fetched(report, r, path) {
			continue
		}
		d, err := stats.ParseTimeSeries(bytes.NewReader(r.Data), n)
		if err != nil {
			sourceWarning(report, path, r.URI, err)
			continue
		}
		sets = append(sets, d)
	}
	if len(sets) == 0 {
		return nil
	}
	return stats.Combine(sets...)
}

func fetched(report *validation.Report, r Result, path string) bool {
	if r.Err != nil {
		sourceWarning(report, path, r.URI, r.Err)
		return false
	}
	return true
}

func sourceWarning(report *validation.Report, path, uri string, err error) {
	report.AddWarning(validation.Result{
		Level:       validation.LevelData,
		Message:     fmt.Sprintf("source skipped: %v", err),
		SpecPath:    path,
		ActualValue: uri,
	})
}
