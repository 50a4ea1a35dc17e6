package propagation

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/star/scangeo/internal/footprint"
	"github.com/star/scangeo/internal/geo"
	"github.com/star/scangeo/internal/greatcircle"
	"github.com/star/scangeo/internal/tle"
	"github.com/star/scangeo/internal/transform"
)

// Synthetic sun-synchronous element set (Metop-B like, ~820 km).
const (
	metopLine1 = "1 38771U 12049A   24100.50000000  .00000100  00000-0  66000-4 0  9990"
	metopLine2 = "2 38771  98.7000 160.0000 0002000  90.0000 270.0000 14.21500000    01"
)

// ISS TLE (epoch 2024).
const (
	issLine1 = "1 25544U 98067A   24100.50000000  .00016717  00000-0  10270-3 0  9005"
	issLine2 = "2 25544  51.6400 100.0000 0001000   0.0000   0.0000 15.50000000    09"
)

var epoch = time.Date(2024, 4, 10, 12, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func testStore() *tle.Store {
	s := tle.NewStore()
	s.Set(tle.NewDataset("test", time.Now(), []tle.Entry{
		{NORADID: 38771, Name: "METOP-B", Line1: metopLine1, Line2: metopLine2},
		{NORADID: 25544, Name: "ISS", Line1: issLine1, Line2: issLine2},
	}))
	return s
}

func TestNewSGP4PropagatorInvalid(t *testing.T) {
	tests := []struct {
		name         string
		line1, line2 string
	}{
		{"short lines", "invalid line 1", "invalid line 2"},
		{"swapped lines", metopLine2, metopLine1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewSGP4Propagator(tt.line1, tt.line2, 99999); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestSubSatellitePointMatchesGoSatellite(t *testing.T) {
	sp, err := NewSGP4Propagator(metopLine1, metopLine2, 38771)
	if err != nil {
		t.Fatalf("NewSGP4Propagator: %v", err)
	}

	for _, offset := range []time.Duration{0, 17 * time.Minute, 3 * time.Hour} {
		tm := epoch.Add(offset)
		got, err := sp.SubSatellitePoint(tm)
		if err != nil {
			t.Fatalf("SubSatellitePoint(%v): %v", tm, err)
		}

		sat := satellite.TLEToSat(metopLine1, metopLine2, satellite.GravityWGS84)
		pos, _ := satellite.Propagate(sat, tm.Year(), int(tm.Month()), tm.Day(), tm.Hour(), tm.Minute(), tm.Second())
		gmst := satellite.GSTimeFromDate(tm.Year(), int(tm.Month()), tm.Day(), tm.Hour(), tm.Minute(), tm.Second())
		_, _, ll := satellite.ECIToLLA(pos, gmst)
		want := geo.FromRadians(ll.Latitude, geo.WrapPi(ll.Longitude))

		if math.Abs(got.Lat-want.Lat) > 1e-5 || math.Abs(got.Lon-want.Lon) > 1e-5 {
			t.Errorf("%v: SubSatellitePoint = %+v, go-satellite = %+v", tm, got, want)
		}
		// A 98.7° inclination orbit never goes beyond 81.3° latitude.
		if math.Abs(got.Lat) > 81.5 {
			t.Errorf("%v: lat %.3f beyond the inclination limit", tm, got.Lat)
		}
	}
}

func TestPositionAltitude(t *testing.T) {
	sp, err := NewSGP4Propagator(metopLine1, metopLine2, 38771)
	if err != nil {
		t.Fatalf("NewSGP4Propagator: %v", err)
	}
	teme, err := sp.Position(epoch)
	if err != nil {
		t.Fatalf("Position: %v", err)
	}
	_, alt := transform.ECEFToGeodetic(transform.TEMEToECEF(teme, transform.GMST(epoch)))
	if alt < 780 || alt > 860 {
		t.Errorf("altitude = %.1f km, want about 820", alt)
	}
}

func TestPropagatorTrack(t *testing.T) {
	p := NewPropagator(testStore(), testLogger())

	first, last, err := p.Track(38771, epoch, 3*time.Minute)
	if err != nil {
		t.Fatalf("Track: %v", err)
	}
	// Ground speed is about 6.6 km/s, so three minutes cover roughly 10.7°.
	deg := greatcircle.Distance(first, last) * 180 / math.Pi
	if deg < 9 || deg > 12.5 {
		t.Errorf("track length = %.2f°, want about 10.7°", deg)
	}

	// The cache is reused while the dataset is unchanged.
	c1 := p.sgp4.Load()
	if _, _, err := p.Track(25544, epoch, time.Minute); err != nil {
		t.Fatalf("Track(ISS): %v", err)
	}
	if p.sgp4.Load() != c1 {
		t.Error("propagator cache rebuilt without a dataset change")
	}
}

func TestPropagatorErrors(t *testing.T) {
	empty := NewPropagator(tle.NewStore(), testLogger())
	if _, _, err := empty.Track(38771, epoch, time.Minute); !errors.Is(err, ErrNoDataset) {
		t.Errorf("empty store: err = %v, want ErrNoDataset", err)
	}

	p := NewPropagator(testStore(), testLogger())
	if _, _, err := p.Track(12345, epoch, time.Minute); !errors.Is(err, ErrUnknownSatellite) {
		t.Errorf("unknown satellite: err = %v, want ErrUnknownSatellite", err)
	}
}

func TestPropagatorCacheFollowsDataset(t *testing.T) {
	store := testStore()
	p := NewPropagator(store, testLogger())
	if _, err := p.SGP4(25544); err != nil {
		t.Fatalf("SGP4: %v", err)
	}

	store.Set(tle.NewDataset("reload", time.Now(), []tle.Entry{
		{NORADID: 38771, Name: "METOP-B", Line1: metopLine1, Line2: metopLine2},
	}))
	if _, err := p.SGP4(25544); !errors.Is(err, ErrUnknownSatellite) {
		t.Errorf("after reload: err = %v, want ErrUnknownSatellite", err)
	}
}

// fixedTrack returns the same endpoints for every satellite.
type fixedTrack struct{ a, b geo.Point }

func (f fixedTrack) Track(int, time.Time, time.Duration) (geo.Point, geo.Point, error) {
	return f.a, f.b, nil
}

var europe = footprint.SegmentFootprint{
	FirstStart: geo.Point{Lat: 62.1, Lon: -12.4},
	FirstEnd:   geo.Point{Lat: 66.3, Lon: 38.2},
	LastStart:  geo.Point{Lat: 51.0, Lon: -4.9},
	LastEnd:    geo.Point{Lat: 54.2, Lon: 32.6},
	TrackStart: geo.Point{Lat: 65.8, Lon: 12.1},
	TrackEnd:   geo.Point{Lat: 54.4, Lon: 12.8},
}

func TestWorkerPoolBuildOutlines(t *testing.T) {
	track := fixedTrack{geo.Point{Lat: 64, Lon: 13}, geo.Point{Lat: 53, Lon: 14}}
	pool := NewWorkerPool(4, track, footprint.DefaultOptions(), testLogger())

	bad := europe
	bad.LastEnd = geo.Undefined
	reqs := []OutlineRequest{
		{ID: "explicit", Segment: europe},
		{ID: "propagated", Segment: europe, NORADID: 38771, Start: epoch, SensingSeconds: 180},
		{ID: "broken", Segment: bad},
	}

	results := pool.BuildOutlines(context.Background(), reqs)
	if len(results) != len(reqs) {
		t.Fatalf("got %d results, want %d", len(results), len(reqs))
	}
	for i, r := range results {
		if r.ID != reqs[i].ID {
			t.Errorf("result %d ID = %q, want %q (order must be preserved)", i, r.ID, reqs[i].ID)
		}
	}

	if results[0].Err != nil || results[0].Contour.TrackStart != europe.TrackStart.ToSphere(greatcircle.DefaultRadius) {
		t.Errorf("explicit track not used: %+v", results[0].Err)
	}
	if results[1].Err != nil {
		t.Fatalf("propagated: %v", results[1].Err)
	}
	if !results[1].Contour.TrackStart.ApproxEqualThreshold(track.a.ToSphere(greatcircle.DefaultRadius), 1e-12) {
		t.Errorf("propagated track start = %v, want %v", results[1].Contour.TrackStart, track.a)
	}
	if !errors.Is(results[2].Err, footprint.ErrInvalidCorner) {
		t.Errorf("broken: err = %v, want ErrInvalidCorner", results[2].Err)
	}
}

func TestWorkerPoolWithPropagator(t *testing.T) {
	pool := NewWorkerPool(2, NewPropagator(testStore(), testLogger()), footprint.DefaultOptions(), testLogger())
	res := pool.BuildOutline(OutlineRequest{Segment: europe, NORADID: 38771, Start: epoch, SensingSeconds: 180})
	if res.Err != nil {
		t.Fatalf("BuildOutline: %v", res.Err)
	}
	if got := res.Contour.TrackStart.Len(); math.Abs(got-greatcircle.DefaultRadius) > 1e-12 {
		t.Errorf("track start radius = %f", got)
	}
	if res.Contour.TrackStart.ApproxEqualThreshold(res.Contour.TrackEnd, 1e-6) {
		t.Error("track did not move over three minutes")
	}
}

func TestWorkerPoolNoTrackSource(t *testing.T) {
	pool := NewWorkerPool(1, nil, footprint.DefaultOptions(), testLogger())
	res := pool.BuildOutline(OutlineRequest{Segment: europe, NORADID: 38771, Start: epoch})
	if !errors.Is(res.Err, ErrNoTrackSource) {
		t.Errorf("err = %v, want ErrNoTrackSource", res.Err)
	}
}

func TestWorkerPoolCancellation(t *testing.T) {
	pool := NewWorkerPool(2, nil, footprint.DefaultOptions(), testLogger())

	reqs := make([]OutlineRequest, 100)
	for i := range reqs {
		reqs[i] = OutlineRequest{Segment: europe}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var cancelled int
	for _, r := range pool.BuildOutlines(ctx, reqs) {
		if errors.Is(r.Err, context.Canceled) {
			cancelled++
		}
	}
	if cancelled != len(reqs) {
		t.Errorf("%d of %d requests cancelled, want all", cancelled, len(reqs))
	}
}

func TestOutlineRequestMissingSegment(t *testing.T) {
	var r OutlineRequest
	if err := json.Unmarshal([]byte(`{"id": "x", "norad_id": 38771}`), &r); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if err := r.Segment.Validate(); !errors.Is(err, footprint.ErrInvalidCorner) {
		t.Errorf("Validate: err = %v, want ErrInvalidCorner", err)
	}

	// Scan corners are rejected before the track lookup.
	pool := NewWorkerPool(1, fixedTrack{geo.Point{Lat: 64, Lon: 13}, geo.Point{Lat: 53, Lon: 14}}, footprint.DefaultOptions(), testLogger())
	r.Start = epoch
	if res := pool.BuildOutline(r); !errors.Is(res.Err, footprint.ErrInvalidCorner) {
		t.Errorf("BuildOutline: err = %v, want ErrInvalidCorner", res.Err)
	}
	if res := NewWorkerPool(1, nil, footprint.DefaultOptions(), testLogger()).BuildOutline(r); !errors.Is(res.Err, footprint.ErrInvalidCorner) {
		t.Errorf("BuildOutline without tracks: err = %v, want ErrInvalidCorner", res.Err)
	}
}

func TestOutlineRequestSensing(t *testing.T) {
	r := OutlineRequest{SensingSeconds: 180.5}
	if got := r.Sensing(); got != 180*time.Second+500*time.Millisecond {
		t.Errorf("Sensing() = %v", got)
	}
}

// BenchmarkBuildOutlines builds 1000 outlines with propagated tracks.
func BenchmarkBuildOutlines(b *testing.B) {
	pool := NewWorkerPool(4, NewPropagator(testStore(), testLogger()), footprint.DefaultOptions(), testLogger())
	reqs := make([]OutlineRequest, 1000)
	for i := range reqs {
		reqs[i] = OutlineRequest{Segment: europe, NORADID: 38771, Start: epoch.Add(time.Duration(i) * time.Minute), SensingSeconds: 180}
	}
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		pool.BuildOutlines(ctx, reqs)
	}
}

func TestPoolConfigSize(t *testing.T) {
	if got := (PoolConfig{Workers: 3}).Size(); got != 3 {
		t.Errorf("Size() = %d, want 3", got)
	}
	if got := (PoolConfig{}).Size(); got < 1 {
		t.Errorf("default Size() = %d, want at least 1", got)
	}
}
