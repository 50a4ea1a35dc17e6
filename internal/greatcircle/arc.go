// Package greatcircle discretizes the shortest path between two geographic
// points on a sphere.
//
// The formulas follow the aviation formulary (haversine distance, initial
// course and intermediate points by distance along the course). Degenerate
// inputs never produce NaN: coincident endpoints collapse to the start point,
// an arc leaving a pole follows the meridian of its end point, and antipodal
// endpoints take whichever course the bearing formula yields.
package greatcircle

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/star/scangeo/internal/geo"
)

const (
	// DefaultPoints is the number of vertices per arc used for outlines.
	DefaultPoints = 10
	// DefaultRadius lifts outlines just above a unit globe.
	DefaultRadius = 1.001
)

// Below this, endpoints are treated as coincident and a start latitude as polar.
const epsilon = 1e-12

// Points returns n points along the great circle from start to end, both
// included. n <= 0 yields nil and n == 1 yields only start.
func Points(start, end geo.Point, n int) []geo.Point {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []geo.Point{start}
	}

	lat1, lon1 := start.Radians()
	lat2, lon2 := end.Radians()
	cosLat1, sinLat1 := math.Cos(lat1), math.Sin(lat1)

	delta := Distance(start, end)

	out := make([]geo.Point, n)
	out[0] = start
	out[n-1] = end

	switch {
	case delta < epsilon:
		for i := range out {
			out[i] = start
		}
		return out

	case math.Abs(cosLat1) < epsilon:
		// Every course leaves a pole southward (or northward); take the end meridian.
		dir := -1.0
		if lat1 < 0 {
			dir = 1.0
		}
		for i := 1; i < n-1; i++ {
			d := float64(i) * delta / float64(n-1)
			out[i] = geo.FromRadians(lat1+dir*d, lon2)
		}
		return out
	}

	tc := math.Atan2(
		math.Sin(lon1-lon2)*math.Cos(lat2),
		cosLat1*math.Sin(lat2)-sinLat1*math.Cos(lat2)*math.Cos(lon1-lon2),
	)
	tc = math.Mod(tc, 2*math.Pi)
	if tc < 0 {
		tc += 2 * math.Pi
	}
	sinTc, cosTc := math.Sin(tc), math.Cos(tc)

	for i := 1; i < n-1; i++ {
		d := float64(i) * delta / float64(n-1)
		sinD, cosD := math.Sin(d), math.Cos(d)

		lat := math.Asin(clamp(sinLat1*cosD+cosLat1*sinD*cosTc, -1, 1))
		dlon := math.Atan2(sinTc*sinD*cosLat1, cosD-sinLat1*math.Sin(lat))
		lon := geo.WrapPi(lon1 - dlon)

		out[i] = geo.FromRadians(lat, lon)
	}
	return out
}

// Arc is Points mapped onto a sphere of the given radius.
func Arc(start, end geo.Point, radius float64, n int) []mgl64.Vec3 {
	pts := Points(start, end, n)
	if pts == nil {
		return nil
	}
	out := make([]mgl64.Vec3, len(pts))
	for i, p := range pts {
		out[i] = p.ToSphere(radius)
	}
	return out
}

// Distance is the central angle between a and b in radians (haversine).
func Distance(a, b geo.Point) float64 {
	lat1, lon1 := a.Radians()
	lat2, lon2 := b.Radians()
	sDLat := math.Sin((lat1 - lat2) / 2)
	sDLon := math.Sin((lon1 - lon2) / 2)
	h := sDLat*sDLat + math.Cos(lat1)*math.Cos(lat2)*sDLon*sDLon
	return 2 * math.Asin(math.Sqrt(clamp(h, 0, 1)))
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
