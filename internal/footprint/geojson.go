package footprint

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/star/scangeo/internal/geo"
)

// Feature kinds written to the "kind" property.
const (
	KindOutline = "outline"
	KindTrack   = "track"
)

// GeoJSON returns the contour as two features: the closed outline and the
// ground track. Coordinates are longitude, latitude in degrees.
func (c Contour) GeoJSON() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	ring := lineString(c.LoopPoints)
	if len(ring) > 0 {
		ring = append(ring, ring[0])
	}
	outline := geojson.NewFeature(ring)
	outline.Properties["kind"] = KindOutline
	outline.Properties["first_start"] = lonLat(c.Segment.FirstStart)
	outline.Properties["first_end"] = lonLat(c.Segment.FirstEnd)
	outline.Properties["last_start"] = lonLat(c.Segment.LastStart)
	outline.Properties["last_end"] = lonLat(c.Segment.LastEnd)
	fc.Append(outline)

	track := geojson.NewFeature(lineString(c.TrackPoints))
	track.Properties["kind"] = KindTrack
	fc.Append(track)

	return fc
}

func lineString(pts []geo.Point) orb.LineString {
	ls := make(orb.LineString, len(pts))
	for i, p := range pts {
		ls[i] = lonLat(p)
	}
	return ls
}

func lonLat(p geo.Point) orb.Point {
	return orb.Point{p.Lon, p.Lat}
}
