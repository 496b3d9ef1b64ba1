package geo

import "math"

// GlobeRadius is the radius of the rendered globe in scene units.
const GlobeRadius = 100.0

// Vec3 is a 3D vector in scene space (Y is up).
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Length returns the Euclidean length of the vector.
func (v Vec3) Length() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// ToCartesian places p on the globe surface, raised by relAltitude
// (a fraction of GlobeRadius).
func ToCartesian(p LatLng, relAltitude float64) Vec3 {
	phi := (90 - p.Lat) * math.Pi / 180
	theta := (90 - p.Lng) * math.Pi / 180
	r := GlobeRadius * (1 + relAltitude)
	return Vec3{
		X: r * math.Sin(phi) * math.Cos(theta),
		Y: r * math.Cos(phi),
		Z: r * math.Sin(phi) * math.Sin(theta),
	}
}

// FromCartesian is the inverse of ToCartesian. The returned longitude is
// kept within [-180, 180].
func FromCartesian(v Vec3) (LatLng, float64) {
	r := v.Length()
	if r == 0 {
		return LatLng{}, -1
	}
	phi := math.Acos(v.Y / r)
	theta := math.Atan2(v.Z, v.X)

	lng := 90 - theta*180/math.Pi
	if theta < -math.Pi/2 {
		lng -= 360
	}
	return LatLng{
		Lat: 90 - phi*180/math.Pi,
		Lng: lng,
	}, r/GlobeRadius - 1
}
