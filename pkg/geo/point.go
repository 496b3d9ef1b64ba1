package geo

import (
	"math"

	"github.com/paulmach/orb"
)

// LatLng is a geographic coordinate in degrees.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// LL is a shorthand constructor for LatLng.
func LL(lat, lng float64) LatLng {
	return LatLng{Lat: lat, Lng: lng}
}

// FromPoint converts an orb point (lng, lat order) to a LatLng.
func FromPoint(pt orb.Point) LatLng {
	return LatLng{Lat: pt.Y(), Lng: pt.X()}
}

// Point returns p as an orb point in (lng, lat) order.
func (p LatLng) Point() orb.Point {
	return orb.Point{p.Lng, p.Lat}
}

// Offset returns p moved by dLat and dLng degrees.
func (p LatLng) Offset(dLat, dLng float64) LatLng {
	return LatLng{Lat: p.Lat + dLat, Lng: p.Lng + dLng}
}

// Lerp returns the linear interpolation between p and q at t in [0,1].
func (p LatLng) Lerp(q LatLng, t float64) LatLng {
	return LatLng{
		Lat: p.Lat + (q.Lat-p.Lat)*t,
		Lng: p.Lng + (q.Lng-p.Lng)*t,
	}
}

// Valid reports whether p lies within the usual latitude/longitude ranges.
func (p LatLng) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// Equirect maps normalized raster coordinates u, v in [0,1) (origin top-left)
// to the geographic coordinate of an equirectangular global raster.
func Equirect(u, v float64) LatLng {
	return LatLng{
		Lat: -(v - 0.5) * 180,
		Lng: (u - 0.5) * 2 * 180,
	}
}
