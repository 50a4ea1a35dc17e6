// Package geo holds the geodetic value types shared by the projection and
// footprint packages.
//
// Points are geographic latitude/longitude in degrees. A reserved sentinel,
// Undefined, marks positions that could not be computed (for example a pixel
// that looks past the Earth limb). Callers must test for it with IsUndefined
// before using a point as a real coordinate.
package geo

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// UndefinedValue is the latitude and longitude stored in Undefined.
const UndefinedValue = -999.999

// Undefined denotes an off-Earth or otherwise uncomputable position.
var Undefined = Point{Lat: UndefinedValue, Lon: UndefinedValue}

// Point is a geographic position in degrees.
type Point struct {
	Lat float64 `json:"lat"` // -90..90
	Lon float64 `json:"lon"` // -180..180
}

// FromRadians builds a Point from latitude and longitude in radians.
func FromRadians(latRad, lonRad float64) Point {
	return Point{Lat: latRad * 180.0 / math.Pi, Lon: lonRad * 180.0 / math.Pi}
}

// Radians returns latitude and longitude in radians.
func (p Point) Radians() (lat, lon float64) {
	return p.Lat * math.Pi / 180.0, p.Lon * math.Pi / 180.0
}

// IsUndefined reports whether p is the Undefined sentinel.
func (p Point) IsUndefined() bool {
	return p.Lat == UndefinedValue && p.Lon == UndefinedValue
}

// Valid reports whether p is a finite coordinate inside the geographic bounds.
// Both bounds are inclusive.
func (p Point) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// ToSphere maps p onto a sphere of the given radius.
// The x axis points at (0°, 0°), y at (0°, 90°E) and z at the north pole.
func (p Point) ToSphere(radius float64) mgl64.Vec3 {
	lat, lon := p.Radians()
	return SphereRad(lat, lon, radius)
}

// SphereRad is ToSphere for coordinates already in radians.
func SphereRad(latRad, lonRad, radius float64) mgl64.Vec3 {
	cosLat := math.Cos(latRad)
	return mgl64.Vec3{
		radius * cosLat * math.Cos(lonRad),
		radius * cosLat * math.Sin(lonRad),
		radius * math.Sin(latRad),
	}
}

// FromSphere recovers the geographic position of a point on a sphere
// centred at the origin. The zero vector maps to Undefined.
func FromSphere(v mgl64.Vec3) Point {
	r := v.Len()
	if r == 0 {
		return Undefined
	}
	lat := math.Asin(clamp(v.Z()/r, -1, 1))
	lon := math.Atan2(v.Y(), v.X())
	return FromRadians(lat, lon)
}

// WrapLon wraps a longitude in degrees into [-180, 180].
func WrapLon(lon float64) float64 {
	if lon >= -180 && lon <= 180 {
		return lon
	}
	lon = math.Mod(lon+180, 360)
	if lon < 0 {
		lon += 360
	}
	return lon - 180
}

// WrapPi wraps an angle in radians into [-π, π].
func WrapPi(a float64) float64 {
	if a >= -math.Pi && a <= math.Pi {
		return a
	}
	a = math.Mod(a+math.Pi, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a - math.Pi
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
