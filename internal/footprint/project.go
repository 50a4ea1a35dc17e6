package footprint

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/star/scangeo/internal/geo"
)

// View is a snapshot of the camera used to draw the globe.
type View struct {
	ModelView  mgl64.Mat4
	Projection mgl64.Mat4
	Width      int
	Height     int
}

// Window projects a point on the unit globe into window coordinates, origin
// at the lower left.
func (v View) Window(p mgl64.Vec3) mgl64.Vec2 {
	w := mgl64.Project(p, v.ModelView, v.Projection, 0, 0, v.Width, v.Height)
	return w.Vec2()
}

// Projected holds the window positions of a segment's corners and track
// endpoints.
type Projected struct {
	FirstStart mgl64.Vec2
	FirstEnd   mgl64.Vec2
	LastStart  mgl64.Vec2
	LastEnd    mgl64.Vec2
	TrackStart mgl64.Vec2
	TrackEnd   mgl64.Vec2
}

// Project maps the corners and track endpoints of s into window coordinates.
// The points are taken on the unit sphere.
func (s SegmentFootprint) Project(v View) Projected {
	win := func(p geo.Point) mgl64.Vec2 { return v.Window(p.ToSphere(1)) }
	return Projected{
		FirstStart: win(s.FirstStart),
		FirstEnd:   win(s.FirstEnd),
		LastStart:  win(s.LastStart),
		LastEnd:    win(s.LastEnd),
		TrackStart: win(s.TrackStart),
		TrackEnd:   win(s.TrackEnd),
	}
}

// Ring returns the projected corners in loop order.
func (p Projected) Ring() orb.Ring {
	r := orb.Ring{
		orb.Point(p.FirstStart),
		orb.Point(p.LastStart),
		orb.Point(p.LastEnd),
		orb.Point(p.FirstEnd),
	}
	return append(r, r[0])
}

// Contains reports whether the window position (x, y) falls inside the
// projected corner quadrilateral. Points on an edge count as inside.
func (p Projected) Contains(x, y float64) bool {
	return planar.RingContains(p.Ring(), orb.Point{x, y})
}
