package features

import (
	"testing"

	"github.com/paulmach/orb/geojson"

	"github.com/ChicagoDave/casemap/pkg/geo"
	"github.com/ChicagoDave/casemap/pkg/region"
)

const worldLayer = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"ADMIN": "Squareland"},
     "geometry": {"type": "Polygon", "coordinates": [[[0,0],[10,0],[10,10],[0,10],[0,0]]]}},
    {"type": "Feature", "properties": {"ADMIN": "China"},
     "geometry": {"type": "Polygon", "coordinates": [[[100,20],[110,20],[110,30],[100,30],[100,20]]]}},
    {"type": "Feature", "properties": {"admin": "Islandia"},
     "geometry": {"type": "MultiPolygon", "coordinates": [
       [[[20,20],[22,20],[22,22],[20,22],[20,20]]],
       [[[30,30],[32,30],[32,32],[30,32],[30,30]]]
     ]}}
  ]
}`

const provinceLayer = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"NAME_0": "China", "NAME_1": "Hubei"},
     "geometry": {"type": "Polygon", "coordinates": [[[100,20],[105,20],[105,30],[100,30],[100,20]]]}},
    {"type": "Feature", "properties": {"NAME_0": "China", "NAME_1": "Hunan"},
     "geometry": {"type": "Polygon", "coordinates": [[[105,20],[110,20],[110,30],[105,30],[105,20]]]}}
  ]
}`

func mustDecode(t *testing.T, data string, exclude ...string) Collection {
	t.Helper()
	c, err := Decode([]byte(data), exclude...)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	return c
}

func TestPropertyNames(t *testing.T) {
	tests := []struct {
		props   geojson.Properties
		country string
		state   string
	}{
		{geojson.Properties{"ADMIN": "A", "admin": "B"}, "A", ""},
		{geojson.Properties{"admin": "B", "name": "S"}, "B", "S"},
		{geojson.Properties{"NAME_0": "C", "NAME_1": "T"}, "C", "T"},
		{geojson.Properties{"ADMIN": 5, "NAME_0": "D"}, "D", ""},
	}
	for _, tt := range tests {
		if got := CountryOf(tt.props); got != tt.country {
			t.Errorf("CountryOf(%v) = %q, want %q", tt.props, got, tt.country)
		}
		if got := StateOf(tt.props); got != tt.state {
			t.Errorf("StateOf(%v) = %q, want %q", tt.props, got, tt.state)
		}
	}
}

func TestDecodeExcludesCountries(t *testing.T) {
	c := mustDecode(t, worldLayer, "China")
	if c.Len() != 2 {
		t.Fatalf("expected 2 features, got %d", c.Len())
	}
	for _, f := range c.Features {
		if f.Key.Country == "China" {
			t.Error("China should have been excluded")
		}
	}
}

func TestDecodeInvalid(t *testing.T) {
	if _, err := Decode([]byte(`{"type":`)); err == nil {
		t.Error("expected error for malformed GeoJSON")
	}
}

func TestMergeKeepsOrder(t *testing.T) {
	c := Merge(mustDecode(t, worldLayer, "China"), mustDecode(t, provinceLayer))
	want := []region.Key{
		region.K("Squareland", ""),
		region.K("Islandia", ""),
		region.K("China", "Hubei"),
		region.K("China", "Hunan"),
	}
	if c.Len() != len(want) {
		t.Fatalf("expected %d features, got %d", len(want), c.Len())
	}
	for i, k := range want {
		if c.Features[i].Key != k {
			t.Errorf("feature %d key = %v, want %v", i, c.Features[i].Key, k)
		}
	}
}

func TestLocate(t *testing.T) {
	c := Merge(mustDecode(t, worldLayer, "China"), mustDecode(t, provinceLayer))
	tests := []struct {
		p    geo.LatLng
		want region.Key
		ok   bool
	}{
		{geo.LL(5, 5), region.K("Squareland", ""), true},
		{geo.LL(31, 31), region.K("Islandia", ""), true},
		{geo.LL(25, 102), region.K("China", "Hubei"), true},
		{geo.LL(25, 108), region.K("China", "Hunan"), true},
		{geo.LL(-40, -40), region.Key{}, false},
		{geo.LL(25, 25), region.Key{}, false},
	}
	for _, tt := range tests {
		i := c.Locate(tt.p)
		if !tt.ok {
			if i != -1 {
				t.Errorf("Locate(%+v) = %d, want -1", tt.p, i)
			}
			continue
		}
		if i < 0 {
			t.Errorf("Locate(%+v) found nothing, want %v", tt.p, tt.want)
			continue
		}
		if c.Features[i].Key != tt.want {
			t.Errorf("Locate(%+v) = %v, want %v", tt.p, c.Features[i].Key, tt.want)
		}
	}
}

func TestIndexFirstWins(t *testing.T) {
	c := Merge(mustDecode(t, worldLayer), mustDecode(t, worldLayer))
	ix := NewIndex(c)
	if !ix.Has(region.K("China", "")) {
		t.Fatal("expected China in index")
	}
	if ix.Has(region.K("China", "Hubei")) {
		t.Error("state key must not match a country-only feature")
	}
	f, ok := ix.Lookup(region.K("Islandia", ""))
	if !ok {
		t.Fatal("expected Islandia in index")
	}
	if f != &ix.Collection().Features[2] {
		t.Error("Lookup should return the first occurrence")
	}
	if got := len(ix.Keys()); got != 3 {
		t.Errorf("Keys() returned %d keys, want 3", got)
	}
}
