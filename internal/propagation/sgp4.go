package propagation

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/star/scangeo/internal/geo"
	"github.com/star/scangeo/internal/transform"
)

// SGP4Propagator wraps go-satellite for a single satellite. It is safe for
// concurrent use: go-satellite copies the element set on every call.
type SGP4Propagator struct {
	sat     satellite.Satellite
	noradID int
}

// NewSGP4Propagator creates a propagator from TLE lines.
//
// The lines are checked before they reach go-satellite, which calls
// log.Fatal on malformed input.
func NewSGP4Propagator(line1, line2 string, noradID int) (*SGP4Propagator, error) {
	if err := validateTLELines(line1, line2); err != nil {
		return nil, fmt.Errorf("invalid TLE for NORAD %d: %w", noradID, err)
	}

	sat := satellite.TLEToSat(line1, line2, satellite.GravityWGS84)
	if sat.Error != 0 {
		return nil, fmt.Errorf("sgp4 init failed for NORAD %d: code=%d %s", noradID, sat.Error, sat.ErrorStr)
	}
	return &SGP4Propagator{sat: sat, noradID: noradID}, nil
}

func validateTLELines(line1, line2 string) error {
	line1 = strings.TrimSpace(line1)
	line2 = strings.TrimSpace(line2)

	if len(line1) != 69 {
		return fmt.Errorf("line1 length %d, expected 69", len(line1))
	}
	if len(line2) != 69 {
		return fmt.Errorf("line2 length %d, expected 69", len(line2))
	}
	if line1[0] != '1' {
		return fmt.Errorf("line1 must start with '1', got '%c'", line1[0])
	}
	if line2[0] != '2' {
		return fmt.Errorf("line2 must start with '2', got '%c'", line2[0])
	}
	return nil
}

// NORADID returns the catalogue number.
func (p *SGP4Propagator) NORADID() int {
	return p.noradID
}

// Position returns the TEME position (km) at t. go-satellite works in whole
// seconds, so t is rounded to the nearest second.
func (p *SGP4Propagator) Position(t time.Time) (mgl64.Vec3, error) {
	t = t.UTC().Round(time.Second)
	pos, _ := satellite.Propagate(p.sat, t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second())

	v := mgl64.Vec3{pos.X, pos.Y, pos.Z}
	if !transform.PlausibleOrbit(v) {
		return mgl64.Vec3{}, fmt.Errorf("sgp4 propagation failed for NORAD %d at %s: position %v km",
			p.noradID, t.Format(time.RFC3339), v)
	}
	return v, nil
}

// SubSatellitePoint returns the ground point below the satellite at t.
func (p *SGP4Propagator) SubSatellitePoint(t time.Time) (geo.Point, error) {
	teme, err := p.Position(t)
	if err != nil {
		return geo.Undefined, err
	}
	return transform.SubSatellitePoint(teme, t.UTC().Round(time.Second)), nil
}
