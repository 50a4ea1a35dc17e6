// Package preview draws segment outlines onto an equirectangular world map
// and encodes the result as PNG.
package preview

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/gogpu/gg"

	"github.com/star/scangeo/internal/footprint"
	"github.com/star/scangeo/internal/geo"
)

// ErrInvalidSize is returned for a non-positive image size.
var ErrInvalidSize = errors.New("preview: invalid image size")

var (
	background = gg.Hex("#0b1621")
	graticule  = gg.RGBA2(1, 1, 1, 0.15)
)

const (
	outlineWidth   = 2
	trackWidth     = 1.5
	graticuleWidth = 1
	graticuleStep  = 30.0
)

// Item is one outline to draw.
type Item struct {
	Contour  footprint.Contour
	Selected bool
}

// Renderer draws outlines at a fixed image size.
type Renderer struct {
	width, height int
	style         footprint.Style
}

// NewRenderer returns a renderer producing width×height images.
func NewRenderer(width, height int, style footprint.Style) (*Renderer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%dx%d: %w", width, height, ErrInvalidSize)
	}
	return &Renderer{width: width, height: height, style: style}, nil
}

// Render draws items over a graticule and writes the PNG to w.
func (r *Renderer) Render(w io.Writer, items ...Item) error {
	dc := gg.NewContext(r.width, r.height)
	defer dc.Close()

	dc.ClearWithColor(background)
	if err := r.drawGraticule(dc); err != nil {
		return err
	}

	for _, it := range items {
		c := r.style.For(it.Selected)
		dc.SetRGBA(c.R, c.G, c.B, c.A)

		dc.SetLineWidth(outlineWidth)
		for _, run := range SplitAntimeridian(closeRing(it.Contour.LoopPoints)) {
			r.polyline(dc, run)
		}
		if err := dc.Stroke(); err != nil {
			return fmt.Errorf("stroke outline: %w", err)
		}

		dc.SetLineWidth(trackWidth)
		for _, run := range SplitAntimeridian(it.Contour.TrackPoints) {
			r.polyline(dc, run)
		}
		if err := dc.Stroke(); err != nil {
			return fmt.Errorf("stroke track: %w", err)
		}
	}

	if err := dc.EncodePNG(w); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

func (r *Renderer) drawGraticule(dc *gg.Context) error {
	dc.SetRGBA(graticule.R, graticule.G, graticule.B, graticule.A)
	dc.SetLineWidth(graticuleWidth)
	for lon := -180.0; lon <= 180; lon += graticuleStep {
		x0, y0 := r.Pixel(geo.Point{Lat: 90, Lon: lon})
		x1, y1 := r.Pixel(geo.Point{Lat: -90, Lon: lon})
		dc.DrawLine(x0, y0, x1, y1)
	}
	for lat := -90.0 + graticuleStep; lat < 90; lat += graticuleStep {
		x0, y0 := r.Pixel(geo.Point{Lat: lat, Lon: -180})
		x1, y1 := r.Pixel(geo.Point{Lat: lat, Lon: 180})
		dc.DrawLine(x0, y0, x1, y1)
	}
	if err := dc.Stroke(); err != nil {
		return fmt.Errorf("stroke graticule: %w", err)
	}
	return nil
}

func (r *Renderer) polyline(dc *gg.Context, pts []geo.Point) {
	if len(pts) < 2 {
		return
	}
	for i, p := range pts {
		x, y := r.Pixel(p)
		if i == 0 {
			dc.MoveTo(x, y)
			continue
		}
		dc.LineTo(x, y)
	}
}

// Pixel maps a geodetic point to image coordinates. Longitude −180 is the
// left edge and latitude 90 the top.
func (r *Renderer) Pixel(p geo.Point) (x, y float64) {
	x = (p.Lon + 180) / 360 * float64(r.width)
	y = (90 - p.Lat) / 180 * float64(r.height)
	return x, y
}

func closeRing(pts []geo.Point) []geo.Point {
	if len(pts) == 0 {
		return nil
	}
	out := make([]geo.Point, 0, len(pts)+1)
	out = append(out, pts...)
	return append(out, pts[0])
}

// SplitAntimeridian cuts a polyline where consecutive points are more than
// 180° of longitude apart. The crossing latitude is interpolated and each
// side gets an extra vertex on its map edge.
func SplitAntimeridian(pts []geo.Point) [][]geo.Point {
	if len(pts) == 0 {
		return nil
	}
	var runs [][]geo.Point
	cur := []geo.Point{pts[0]}
	for i := 1; i < len(pts); i++ {
		a, b := pts[i-1], pts[i]
		if math.Abs(b.Lon-a.Lon) <= 180 {
			cur = append(cur, b)
			continue
		}

		edge := 180.0
		if a.Lon < 0 {
			edge = -180
		}
		// Unwrap b onto a's side, then interpolate the crossing.
		bl := b.Lon + 2*edge
		t := (edge - a.Lon) / (bl - a.Lon)
		lat := a.Lat + t*(b.Lat-a.Lat)

		cur = append(cur, geo.Point{Lat: lat, Lon: edge})
		runs = append(runs, cur)
		cur = []geo.Point{{Lat: lat, Lon: -edge}, b}
	}
	return append(runs, cur)
}
