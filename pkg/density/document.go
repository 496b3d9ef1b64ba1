package density

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/ChicagoDave/casemap/pkg/geo"
	"github.com/ChicagoDave/casemap/pkg/region"
	"github.com/ChicagoDave/casemap/pkg/validation"
)

// RawSample is one raster cell with its un-normalized population weight.
type RawSample struct {
	Point   geo.LatLng `json:"point"`
	Density float64    `json:"density"`
}

// RegionDensity is the serialized form of one region's raw samples as
// written by the raster precalculation.
type RegionDensity struct {
	Admin     string      `json:"admin"`
	Admin1    string      `json:"admin_1,omitempty"`
	Densities []RawSample `json:"densities"`
}

// Key returns the region key of d.
func (d RegionDensity) Key() region.Key {
	return region.K(d.Admin, d.Admin1)
}

// Table normalizes the raw samples of d.
func (d RegionDensity) Table() (Table, error) {
	points := make([]geo.LatLng, len(d.Densities))
	weights := make([]float64, len(d.Densities))
	for i, s := range d.Densities {
		points[i] = s.Point
		weights[i] = s.Density
	}
	return Build(points, weights)
}

// Decode reads a density document.
func Decode(r io.Reader) ([]RegionDensity, error) {
	var docs []RegionDensity
	if err := json.NewDecoder(r).Decode(&docs); err != nil {
		return nil, fmt.Errorf("parsing density document: %w", err)
	}
	return docs, nil
}

// Encode writes a density document.
func Encode(w io.Writer, docs []RegionDensity) error {
	if err := json.NewEncoder(w).Encode(docs); err != nil {
		return fmt.Errorf("writing density document: %w", err)
	}
	return nil
}

// Tables builds one table per region key. The first document for a key
// wins. Regions without usable samples are reported and left out, so they
// are never sampled.
func Tables(docs []RegionDensity) (map[region.Key]Table, *validation.Report) {
	report := validation.NewReport()
	tables := make(map[region.Key]Table, len(docs))

	for _, d := range docs {
		key := d.Key()
		if _, ok := tables[key]; ok {
			continue
		}
		t, err := d.Table()
		if err != nil {
			if errors.Is(err, ErrEmptyTable) || errors.Is(err, ErrZeroWeight) {
				report.AddInfo(validation.Result{
					Level:    validation.LevelData,
					Message:  fmt.Sprintf("region %s has no population samples", key),
					SpecPath: "densities",
				})
				continue
			}
			report.AddWarning(validation.Result{
				Level:       validation.LevelData,
				Message:     fmt.Sprintf("region %s: %v", key, err),
				SpecPath:    "densities",
				ActualValue: len(d.Densities),
			})
			continue
		}
		tables[key] = t
	}
	return tables, report
}
