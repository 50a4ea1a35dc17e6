package geo

import (
	"math"
	"testing"
)

func TestPointValid(t *testing.T) {
	tests := []struct {
		name  string
		p     Point
		valid bool
	}{
		{"origin", Point{0, 0}, true},
		{"north pole", Point{90, 0}, true},
		{"south pole antimeridian", Point{-90, -180}, true},
		{"east bound", Point{0, 180}, true},
		{"lat 91", Point{91, 0}, false},
		{"lon 181", Point{0, 181}, false},
		{"lon -180.0001", Point{0, -180.0001}, false},
		{"NaN", Point{math.NaN(), 0}, false},
		{"undefined", Undefined, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p.Valid(); got != tt.valid {
				t.Errorf("Valid(%v) = %v, want %v", tt.p, got, tt.valid)
			}
		})
	}
}

func TestUndefined(t *testing.T) {
	if !Undefined.IsUndefined() {
		t.Fatal("Undefined.IsUndefined() = false")
	}
	if (Point{Lat: UndefinedValue, Lon: 0}).IsUndefined() {
		t.Error("half-sentinel point reported as undefined")
	}
}

func TestToSphereAxes(t *testing.T) {
	tests := []struct {
		name    string
		p       Point
		x, y, z float64
	}{
		{"prime meridian", Point{0, 0}, 1, 0, 0},
		{"90 east", Point{0, 90}, 0, 1, 0},
		{"north pole", Point{90, 0}, 0, 0, 1},
		{"10 east", Point{0, 10}, math.Cos(10 * math.Pi / 180), math.Sin(10 * math.Pi / 180), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := tt.p.ToSphere(1.0)
			if math.Abs(v.X()-tt.x) > 1e-12 || math.Abs(v.Y()-tt.y) > 1e-12 || math.Abs(v.Z()-tt.z) > 1e-12 {
				t.Errorf("ToSphere(%v) = %v, want [%g %g %g]", tt.p, v, tt.x, tt.y, tt.z)
			}
		})
	}
}

func TestToSphereRadius(t *testing.T) {
	v := Point{Lat: 37.5, Lon: -122.3}.ToSphere(1.001)
	if math.Abs(v.Len()-1.001) > 1e-12 {
		t.Errorf("|v| = %.15f, want 1.001", v.Len())
	}
}

func TestFromSphereRoundTrip(t *testing.T) {
	points := []Point{{12.5, 45.25}, {-33.9, 151.2}, {64.1, -21.9}, {0, 179.5}}
	for _, p := range points {
		got := FromSphere(p.ToSphere(2.5))
		if math.Abs(got.Lat-p.Lat) > 1e-9 || math.Abs(got.Lon-p.Lon) > 1e-9 {
			t.Errorf("FromSphere(ToSphere(%v)) = %v", p, got)
		}
	}
}

func TestWrapLon(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{180, 180},
		{-180, -180},
		{190, -170},
		{-190, 170},
		{540, 180 - 360},
		{725, 5},
	}
	for _, tt := range tests {
		if got := WrapLon(tt.in); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("WrapLon(%g) = %g, want %g", tt.in, got, tt.want)
		}
	}
}

func TestWrapPi(t *testing.T) {
	for _, a := range []float64{-7, -3.5, 0, 3.5, 7, 12} {
		got := WrapPi(a)
		if got < -math.Pi || got > math.Pi {
			t.Errorf("WrapPi(%g) = %g, outside [-π, π]", a, got)
		}
		if math.Abs(math.Sin(got)-math.Sin(a)) > 1e-12 || math.Abs(math.Cos(got)-math.Cos(a)) > 1e-12 {
			t.Errorf("WrapPi(%g) = %g changes the angle", a, got)
		}
	}
}
