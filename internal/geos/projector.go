package geos

import (
	"fmt"
	"math"

	"github.com/star/scangeo/internal/geo"
)

// Projection constants, CGMS 03 Issue 2.6 section 4.4. Distances in km.
const (
	SatHeight = 42164.0   // distance from Earth centre to satellite
	RadiusEq  = 6378.169  // equatorial radius
	RadiusPol = 6356.5838 // polar radius

	// satHeight² − RadiusEq²
	limbTerm = 1737121856.0
	// RadiusEq² / RadiusPol²
	eccCorrection = 1.006803
	// RadiusPol² / RadiusEq²
	geocentricCorrection = 0.993243
	// (RadiusEq² − RadiusPol²) / RadiusEq²
	flattening = 0.00675701

	// Pixels whose limb discriminant does not exceed this are in space.
	pixelVisibilityThreshold = 450000.0
	// Dot-product thresholds for geodetic points (degrees and radians entry points).
	dotThresholdDeg = 26.7e6
	dotThresholdRad = 0.0
)

var (
	twoPow16    = math.Pow(2, 16)
	twoPowNeg16 = math.Pow(2, -16)
)

// Projector converts between pixels and geographic coordinates for one
// geostationary imager. The zero value is not usable; build one with
// NewProjector.
type Projector struct {
	scan ScanGeometry
}

// NewProjector validates scan and returns a Projector over a copy of it.
func NewProjector(scan ScanGeometry) (Projector, error) {
	if err := scan.Validate(); err != nil {
		return Projector{}, fmt.Errorf("invalid scan geometry: %w", err)
	}
	return Projector{scan: scan}, nil
}

// Scan returns the projector's scan geometry.
func (p Projector) Scan() ScanGeometry {
	return p.scan
}

// ScanAngles returns the viewing angles x, y (radians) of a pixel.
func (p Projector) ScanAngles(px Pixel) (x, y float64) {
	x = twoPow16 * (float64(px.Column) - float64(p.scan.ColumnOffset)) / float64(p.scan.ColumnScalingFactor)
	y = twoPow16 * (float64(px.Row) - float64(p.scan.LineOffset)) / float64(p.scan.LineScalingFactor)
	return x, y
}

// PixelToGeodetic returns the geographic position seen by a pixel.
// Pixels that look past the Earth limb yield geo.Undefined and ErrInvisible.
func (p Projector) PixelToGeodetic(px Pixel) (geo.Point, error) {
	x, y := p.ScanAngles(px)
	return p.fromScanAngles(x, y)
}

// fromScanAngles is the inverse projection for continuous scan angles.
func (p Projector) fromScanAngles(x, y float64) (geo.Point, error) {
	cosX, sinX := math.Cos(x), math.Sin(x)
	cosY, sinY := math.Cos(y), math.Sin(y)

	denom := cosY*cosY + eccCorrection*sinY*sinY
	hc := SatHeight * cosX * cosY
	if hc <= 0 {
		// Scan angles past 90° look away from the Earth.
		return geo.Undefined, ErrInvisible
	}

	// Negative discriminant means the line of sight misses the Earth.
	sa := hc*hc - denom*limbTerm
	if sa <= pixelVisibilityThreshold {
		return geo.Undefined, ErrInvisible
	}

	sn := (hc - math.Sqrt(sa)) / denom

	s1 := SatHeight - sn*cosX*cosY
	s2 := sn * sinX * cosY
	s3 := -sn * sinY
	sxy := math.Sqrt(s1*s1 + s2*s2)

	subLon := p.scan.SubLongitudeDeg * math.Pi / 180.0
	lon := math.Atan(s2/s1) + subLon
	lat := math.Atan(eccCorrection * s3 / sxy)

	pt := geo.FromRadians(lat, lon)
	pt.Lon = geo.WrapLon(pt.Lon)
	return pt, nil
}

// GeodeticToPixel returns the pixel that sees the geographic point pt
// (degrees). Coordinates outside [-90, 90] × [-180, 180] yield
// ErrOutOfRange; points on the far side of the Earth yield ErrInvisible.
// UndefinedPixel accompanies every error.
func (p Projector) GeodeticToPixel(pt geo.Point) (Pixel, error) {
	if !inRange(pt.Lat, 90) || !inRange(pt.Lon, 180) {
		return UndefinedPixel, fmt.Errorf("lat=%.6f lon=%.6f: %w", pt.Lat, pt.Lon, ErrOutOfRange)
	}
	lat, lon := pt.Radians()
	return p.toPixel(lat, lon, dotThresholdDeg)
}

// GeodeticToPixelRad is GeodeticToPixel with latitude and longitude in
// radians. Its visibility test accepts any point in front of the limb.
func (p Projector) GeodeticToPixelRad(latRad, lonRad float64) (Pixel, error) {
	if !inRange(latRad, math.Pi/2) || !inRange(lonRad, math.Pi) {
		return UndefinedPixel, fmt.Errorf("lat=%.6f lon=%.6f rad: %w", latRad, lonRad, ErrOutOfRange)
	}
	return p.toPixel(latRad, lonRad, dotThresholdRad)
}

func (p Projector) toPixel(lat, lon, threshold float64) (Pixel, error) {
	x, y, err := p.scanAnglesOf(lat, lon, threshold)
	if err != nil {
		return UndefinedPixel, err
	}
	cc := float64(p.scan.ColumnOffset) + x*twoPowNeg16*float64(p.scan.ColumnScalingFactor)
	ll := float64(p.scan.LineOffset) + y*twoPowNeg16*float64(p.scan.LineScalingFactor)
	return Pixel{Column: nearestInt(cc), Row: nearestInt(ll)}, nil
}

// scanAnglesOf is the forward projection: the viewing angles under which
// the satellite sees (lat, lon), both in radians.
func (p Projector) scanAnglesOf(lat, lon, threshold float64) (x, y float64, err error) {
	subLon := p.scan.SubLongitudeDeg * math.Pi / 180.0

	// Geocentric latitude and distance to the ellipsoid surface.
	cLat := math.Atan(geocentricCorrection * math.Tan(lat))
	cosC := math.Cos(cLat)
	re := RadiusPol / math.Sqrt(1.0-flattening*cosC*cosC)

	dLon := lon - subLon
	r1 := SatHeight - re*cosC*math.Cos(dLon)
	r2 := -re * cosC * math.Sin(dLon)
	r3 := re * math.Sin(cLat)
	rn := math.Sqrt(r1*r1 + r2*r2 + r3*r3)

	// Point-to-satellite against point-to-centre; positive means visible.
	ratio := RadiusEq / RadiusPol
	dot := r1*(re*cosC*math.Cos(dLon)) - r2*r2 - r3*r3*ratio*ratio
	if dot <= threshold {
		return 0, 0, ErrInvisible
	}

	return math.Atan(-r2 / r1), math.Asin(-r3 / rn), nil
}

// nearestInt rounds to the nearest integer with ties going away from zero,
// so 2.5 becomes 3 and -2.5 becomes -3. math.Round has exactly these
// semantics; math.RoundToEven must not be used here.
func nearestInt(v float64) int {
	return int(math.Round(v))
}

func inRange(v, bound float64) bool {
	return v >= -bound && v <= bound
}
