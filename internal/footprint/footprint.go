// Package footprint builds the outline of a polar-orbiter swath segment on
// the globe.
//
// A segment is described by the geodetic corners of its first and last scan
// lines plus the sub-satellite points at segment start and end. The outline
// joins the corners along great circles into a closed loop; the ground track
// is a separate open polyline. Results are lifted slightly above the unit
// sphere so they draw on top of a textured globe.
package footprint

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/star/scangeo/internal/geo"
	"github.com/star/scangeo/internal/greatcircle"
)

var (
	// ErrInvalidCorner is returned when a corner or track point is undefined
	// or outside the geographic bounds.
	ErrInvalidCorner = errors.New("footprint: invalid corner")

	// ErrInvalidOptions is returned for a per-arc count below 2 or a
	// non-positive radius.
	ErrInvalidOptions = errors.New("footprint: invalid options")
)

// SegmentFootprint holds the corners of one segment. "First" and "Last"
// name the scan lines at segment start and end, "Start" and "End" the two
// ends of a scan line.
type SegmentFootprint struct {
	FirstStart geo.Point `json:"first_start"`
	FirstEnd   geo.Point `json:"first_end"`
	LastStart  geo.Point `json:"last_start"`
	LastEnd    geo.Point `json:"last_end"`
	TrackStart geo.Point `json:"track_start"`
	TrackEnd   geo.Point `json:"track_end"`
}

// UndefinedSegment has every point set to geo.Undefined. Request types
// embedding a SegmentFootprint start from it so that a missing segment
// fails validation.
func UndefinedSegment() SegmentFootprint {
	return SegmentFootprint{
		FirstStart: geo.Undefined,
		FirstEnd:   geo.Undefined,
		LastStart:  geo.Undefined,
		LastEnd:    geo.Undefined,
		TrackStart: geo.Undefined,
		TrackEnd:   geo.Undefined,
	}
}

// UnmarshalJSON leaves omitted corners undefined so that Validate rejects
// them instead of reading them as (0, 0).
func (s *SegmentFootprint) UnmarshalJSON(b []byte) error {
	type plain SegmentFootprint
	p := plain(UndefinedSegment())
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*s = SegmentFootprint(p)
	return nil
}

// Validate reports the first corner that is undefined or out of range.
func (s SegmentFootprint) Validate() error {
	for _, c := range s.named() {
		if c.pt.IsUndefined() || !c.pt.Valid() {
			return fmt.Errorf("%s (%.4f, %.4f): %w", c.name, c.pt.Lat, c.pt.Lon, ErrInvalidCorner)
		}
	}
	return nil
}

// ValidateScanCorners is Validate restricted to the four scan-line corners,
// for segments whose track is resolved elsewhere.
func (s SegmentFootprint) ValidateScanCorners() error {
	for _, c := range s.named()[:4] {
		if c.pt.IsUndefined() || !c.pt.Valid() {
			return fmt.Errorf("%s (%.4f, %.4f): %w", c.name, c.pt.Lat, c.pt.Lon, ErrInvalidCorner)
		}
	}
	return nil
}

type namedPoint struct {
	name string
	pt   geo.Point
}

func (s SegmentFootprint) named() []namedPoint {
	return []namedPoint{
		{"first_start", s.FirstStart},
		{"first_end", s.FirstEnd},
		{"last_start", s.LastStart},
		{"last_end", s.LastEnd},
		{"track_start", s.TrackStart},
		{"track_end", s.TrackEnd},
	}
}

// edges lists the loop arcs in drawing order.
func (s SegmentFootprint) edges() [4][2]geo.Point {
	return [4][2]geo.Point{
		{s.FirstStart, s.LastStart},
		{s.LastStart, s.LastEnd},
		{s.LastEnd, s.FirstEnd},
		{s.FirstEnd, s.FirstStart},
	}
}

// Options controls the discretization. Zero fields take the defaults.
type Options struct {
	ArcPoints int     // vertices per arc, at least 2
	Radius    float64 // sphere radius of the outline
}

// DefaultOptions returns ten points per arc on a sphere of radius 1.001.
func DefaultOptions() Options {
	return Options{ArcPoints: greatcircle.DefaultPoints, Radius: greatcircle.DefaultRadius}
}

func (o Options) resolve() (Options, error) {
	if o.ArcPoints == 0 {
		o.ArcPoints = greatcircle.DefaultPoints
	}
	if o.Radius == 0 {
		o.Radius = greatcircle.DefaultRadius
	}
	if o.ArcPoints < 2 {
		return o, fmt.Errorf("arc points %d: %w", o.ArcPoints, ErrInvalidOptions)
	}
	if o.Radius < 0 {
		return o, fmt.Errorf("radius %g: %w", o.Radius, ErrInvalidOptions)
	}
	return o, nil
}

// Contour is the drawable outline of one segment.
type Contour struct {
	// Loop is the closed outline, each shared corner emitted once.
	Loop []mgl64.Vec3
	// Track is the open sub-satellite polyline.
	Track []mgl64.Vec3

	TrackStart mgl64.Vec3
	TrackEnd   mgl64.Vec3

	// Geodetic counterparts of Loop and Track, used for map exports.
	LoopPoints  []geo.Point
	TrackPoints []geo.Point

	Segment SegmentFootprint
}

// Build computes the contour of s. It fails with ErrInvalidCorner when any
// of the six input points is unusable.
func Build(s SegmentFootprint, opts Options) (Contour, error) {
	opts, err := opts.resolve()
	if err != nil {
		return Contour{}, err
	}
	if err := s.Validate(); err != nil {
		return Contour{}, err
	}

	n := opts.ArcPoints
	c := Contour{
		Loop:       make([]mgl64.Vec3, 0, 4*n-4),
		LoopPoints: make([]geo.Point, 0, 4*n-4),
		Segment:    s,
	}
	for _, e := range s.edges() {
		pts := greatcircle.Points(e[0], e[1], n)
		// The last point of each edge is the first of the next.
		for _, p := range pts[:n-1] {
			c.LoopPoints = append(c.LoopPoints, p)
			c.Loop = append(c.Loop, p.ToSphere(opts.Radius))
		}
	}

	c.TrackPoints = greatcircle.Points(s.TrackStart, s.TrackEnd, n)
	c.Track = make([]mgl64.Vec3, len(c.TrackPoints))
	for i, p := range c.TrackPoints {
		c.Track[i] = p.ToSphere(opts.Radius)
	}
	c.TrackStart = c.Track[0]
	c.TrackEnd = c.Track[len(c.Track)-1]
	return c, nil
}

// LoopLen is the number of loop vertices at the front of Vertices.
func (c Contour) LoopLen() int {
	return len(c.Loop)
}

// Vertices returns Loop followed by Track as interleaved x, y, z values,
// ready for a vertex buffer.
func (c Contour) Vertices() []float32 {
	out := make([]float32, 0, 3*(len(c.Loop)+len(c.Track)))
	for _, v := range c.Loop {
		out = append(out, float32(v[0]), float32(v[1]), float32(v[2]))
	}
	for _, v := range c.Track {
		out = append(out, float32(v[0]), float32(v[1]), float32(v[2]))
	}
	return out
}
