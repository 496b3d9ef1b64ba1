// Package features holds the geographic feature collections regions are
// drawn from and resolves them by region key or by position.
package features

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"

	"github.com/ChicagoDave/casemap/pkg/geo"
	"github.com/ChicagoDave/casemap/pkg/region"
)

// Feature is one region outline.
type Feature struct {
	Key      region.Key   `json:"key"`
	Geometry orb.Geometry `json:"-"`
	Bound    orb.Bound    `json:"bound"`
}

// Collection is an ordered list of features. Order matters: it is the
// region processing order and the priority order for position lookups.
type Collection struct {
	Features []Feature
}

// Country property names in priority order.
var countryProps = []string{"ADMIN", "admin", "NAME_0"}

// State property names in priority order.
var stateProps = []string{"name", "NAME_1"}

// CountryOf returns the country name stored in a feature's properties.
func CountryOf(props geojson.Properties) string {
	return firstString(props, countryProps)
}

// StateOf returns the sub-national region name stored in a feature's
// properties, or "" for country-level features.
func StateOf(props geojson.Properties) string {
	return firstString(props, stateProps)
}

func firstString(props geojson.Properties, names []string) string {
	for _, n := range names {
		if v, ok := props[n]; ok && v != nil {
			if s, ok := v.(string); ok {
				return s
			}
		}
	}
	return ""
}

// FromGeoJSON converts a GeoJSON feature collection. Features whose country
// is listed in exclude are dropped, which lets a coarse world layer give way
// to finer sub-national layers for the same countries.
func FromGeoJSON(fc *geojson.FeatureCollection, exclude ...string) Collection {
	skip := make(map[string]bool, len(exclude))
	for _, e := range exclude {
		skip[e] = true
	}

	var c Collection
	for _, f := range fc.Features {
		if f == nil || f.Geometry == nil {
			continue
		}
		key := region.K(CountryOf(f.Properties), StateOf(f.Properties))
		if key.Country == "" || skip[key.Country] {
			continue
		}
		c.Features = append(c.Features, Feature{
			Key:      key,
			Geometry: f.Geometry,
			Bound:    f.Geometry.Bound(),
		})
	}
	return c
}

// Decode parses GeoJSON feature collection bytes.
func Decode(data []byte, exclude ...string) (Collection, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return Collection{}, fmt.Errorf("parsing feature collection: %w", err)
	}
	return FromGeoJSON(fc, exclude...), nil
}

// Merge concatenates collections in order.
func Merge(cols ...Collection) Collection {
	var out Collection
	for _, c := range cols {
		out.Features = append(out.Features, c.Features...)
	}
	return out
}

// Len returns the number of features.
func (c Collection) Len() int {
	return len(c.Features)
}

// Locate returns the index of the first feature containing p, or -1.
func (c Collection) Locate(p geo.LatLng) int {
	pt := p.Point()
	for i := range c.Features {
		f := &c.Features[i]
		if !f.Bound.Contains(pt) {
			continue
		}
		if Contains(f.Geometry, pt) {
			return i
		}
	}
	return -1
}

// Contains reports whether an areal geometry contains pt.
func Contains(g orb.Geometry, pt orb.Point) bool {
	switch g := g.(type) {
	case orb.Polygon:
		return planar.PolygonContains(g, pt)
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(g, pt)
	case orb.Collection:
		for _, sub := range g {
			if Contains(sub, pt) {
				return true
			}
		}
	}
	return false
}
