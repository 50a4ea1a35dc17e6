package main

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const segment = `{
	"first_start": {"lat": 62.1, "lon": -12.4},
	"first_end":   {"lat": 66.3, "lon": 38.2},
	"last_start":  {"lat": 51.0, "lon": -4.9},
	"last_end":    {"lat": 54.2, "lon": 32.6},
	"track_start": {"lat": 65.8, "lon": 12.1},
	"track_end":   {"lat": 54.4, "lon": 12.8}
}`

const (
	metopLine1 = "1 38771U 12049A   24100.50000000  .00000100  00000-0  66000-4 0  9990"
	metopLine2 = "2 38771  98.7000 160.0000 0002000  90.0000 270.0000 14.21500000    01"
)

func runCLI(t *testing.T, stdin string, args ...string) ([]byte, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, strings.NewReader(stdin), &stdout, &stderr)
	return stdout.Bytes(), err
}

func TestRunJSON(t *testing.T) {
	out, err := runCLI(t, `{"id": "a", "segment": `+segment+`}`, "-points", "5")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	var got []outlineOutput
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 || got[0].ID != "a" || got[0].LoopLen != 16 || len(got[0].TrackPoints) != 5 {
		t.Errorf("output = %+v", got)
	}
}

func TestRunArrayWithFailure(t *testing.T) {
	in := `[{"id": "ok", "segment": ` + segment + `}, {"id": "bad", "segment": {"first_start": {"lat": 95, "lon": 0}}}]`
	out, err := runCLI(t, in)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	var got []outlineOutput
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 2 || got[0].Error != "" || got[1].Error == "" {
		t.Errorf("output = %+v", got)
	}
}

func TestRunMissingSegment(t *testing.T) {
	in := `[{"id": "ok", "segment": ` + segment + `}, {"id": "none"}, {"id": "norad", "norad_id": 38771, "start": "2024-04-10T12:00:00Z"}]`
	out, err := runCLI(t, in)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	var got []outlineOutput
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 3 || got[0].Error != "" {
		t.Fatalf("output = %+v", got)
	}
	for _, o := range got[1:] {
		if !strings.Contains(o.Error, "invalid corner") {
			t.Errorf("%s: error = %q, want invalid corner", o.ID, o.Error)
		}
	}
}

func TestRunAllFailed(t *testing.T) {
	if _, err := runCLI(t, `{"segment": {}}`); err == nil {
		t.Error("expected error when every outline fails")
	}
}

func TestRunGeoJSON(t *testing.T) {
	out, err := runCLI(t, `{"id": "a", "segment": `+segment+`}`, "-format", "geojson")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	var fc struct {
		Features []json.RawMessage `json:"features"`
	}
	if err := json.Unmarshal(out, &fc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(fc.Features) != 2 {
		t.Errorf("got %d features, want 2", len(fc.Features))
	}
}

func TestRunPNGFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preview.png")
	_, err := runCLI(t, `{"id": "a", "segment": `+segment+`}`,
		"-format", "png", "-out", path, "-width", "120", "-height", "60", "-selected", "a")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("png.Decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 120 || b.Dy() != 60 {
		t.Errorf("size = %v", b)
	}
}

func TestRunPropagatedTrack(t *testing.T) {
	tlePath := filepath.Join(t.TempDir(), "weather.txt")
	if err := os.WriteFile(tlePath, []byte("METOP-B\n"+metopLine1+"\n"+metopLine2+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	in := `{"id": "p", "norad_id": 38771, "start": "2024-04-10T12:00:00Z", "sensing_seconds": 180, "segment": ` + segment + `}`
	out, err := runCLI(t, in, "-tle", tlePath)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	var got []outlineOutput
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got[0].Error != "" {
		t.Fatalf("propagated outline failed: %s", got[0].Error)
	}
	if got[0].TrackPoints[0].Lat == 65.8 {
		t.Error("track start was not replaced by the propagated position")
	}
}

func TestRunInvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		stdin string
		args  []string
	}{
		{"empty input", "", nil},
		{"empty array", "[]", nil},
		{"malformed", "{", nil},
		{"bad format", `{"segment": ` + segment + `}`, []string{"-format", "svg"}},
		{"bad colour", `{"segment": ` + segment + `}`, []string{"-format", "png", "-color", "green"}},
		{"missing tle file", `{"segment": ` + segment + `}`, []string{"-tle", "/nonexistent/tle.txt"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := runCLI(t, tt.stdin, tt.args...); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}
