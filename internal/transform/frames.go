// Package transform converts SGP4 output to the Earth-fixed frame and to
// geodetic coordinates.
//
// TEME is rotated to ECEF about the Z axis by GMST only. Polar motion and
// the equation of the equinoxes are ignored; the resulting error of a few
// tens of metres is far below what an outline drawn on a globe can show.
package transform

import (
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/star/scangeo/internal/geo"
)

// WGS-84 ellipsoid, kilometres.
const (
	wgs84A  = 6378.137
	wgs84F  = 1.0 / 298.257223563
	wgs84E2 = wgs84F * (2 - wgs84F)
)

// Plausible orbit radii for an Earth satellite, kilometres.
const (
	minOrbitRadius = 6200.0
	maxOrbitRadius = 50000.0
)

// TEMEToECEF rotates a TEME position (km) into ECEF (km) for the given GMST
// angle in radians.
func TEMEToECEF(teme mgl64.Vec3, gmst float64) mgl64.Vec3 {
	return mgl64.Rotate3DZ(-gmst).Mul3x1(teme)
}

// ECEFToGeodetic returns the geodetic position and the height above the
// WGS-84 ellipsoid (km) of an ECEF point (km). Latitude is refined with
// Bowring's iteration; a few rounds reach sub-millimetre accuracy.
func ECEFToGeodetic(v mgl64.Vec3) (geo.Point, float64) {
	x, y, z := v.Elem()
	p := math.Hypot(x, y)
	lon := math.Atan2(y, x)

	lat := math.Atan2(z, p*(1-wgs84E2))
	var n float64
	for i := 0; i < 5; i++ {
		s := math.Sin(lat)
		n = wgs84A / math.Sqrt(1-wgs84E2*s*s)
		lat = math.Atan2(z+wgs84E2*n*s, p)
	}

	sinLat, cosLat := math.Sin(lat), math.Cos(lat)
	n = wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)
	var alt float64
	if math.Abs(cosLat) > 1e-10 {
		alt = p/cosLat - n
	} else {
		alt = math.Abs(z)/math.Abs(sinLat) - n*(1-wgs84E2)
	}
	return geo.FromRadians(lat, lon), alt
}

// SubSatellitePoint returns the point on the ground directly below a
// satellite at TEME position teme (km) at time t.
func SubSatellitePoint(teme mgl64.Vec3, t time.Time) geo.Point {
	pt, _ := ECEFToGeodetic(TEMEToECEF(teme, GMST(t)))
	return pt
}

// PlausibleOrbit reports whether v (km) is a finite position at a radius
// an Earth satellite can have.
func PlausibleOrbit(v mgl64.Vec3) bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	r := v.Len()
	return r >= minOrbitRadius && r <= maxOrbitRadius
}
