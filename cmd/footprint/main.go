// Command footprint builds segment outlines from a JSON request file and
// writes them as JSON, GeoJSON or a PNG preview.
//
//	footprint -in segments.json -format png -out preview.png
//	footprint -tle weather.txt -format geojson < segments.json
//
// The input is one outline request or an array of them. Requests with a
// norad_id take their ground track from the -tle element sets.
package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/paulmach/orb/geojson"

	"github.com/star/scangeo/internal/footprint"
	"github.com/star/scangeo/internal/geo"
	"github.com/star/scangeo/internal/logging"
	"github.com/star/scangeo/internal/preview"
	"github.com/star/scangeo/internal/propagation"
	"github.com/star/scangeo/internal/tle"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "footprint:", err)
		os.Exit(1)
	}
}

type outlineOutput struct {
	ID          string      `json:"id,omitempty"`
	LoopLen     int         `json:"loop_len,omitempty"`
	LoopPoints  []geo.Point `json:"loop_points,omitempty"`
	TrackPoints []geo.Point `json:"track_points,omitempty"`
	Error       string      `json:"error,omitempty"`
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("footprint", flag.ContinueOnError)
	fs.SetOutput(stderr)
	in := fs.String("in", "-", "request file, - for stdin")
	out := fs.String("out", "-", "output file, - for stdout")
	format := fs.String("format", "json", "output format: json, geojson or png")
	points := fs.Int("points", 10, "vertices per great-circle arc")
	radius := fs.Float64("radius", 1.001, "outline sphere radius")
	tleFiles := fs.String("tle", "", "comma-separated TLE files for norad_id requests")
	selected := fs.String("selected", "", "comma-separated request IDs drawn in the selected colour")
	color := fs.String("color", footprint.DefaultColor, "outline colour")
	selectedColor := fs.String("selected-color", footprint.DefaultSelectedColor, "selected outline colour")
	width := fs.Int("width", 1024, "png width")
	height := fs.Int("height", 512, "png height")
	workers := fs.Int("workers", 0, "worker goroutines, 0 for one per CPU")
	logLevel := fs.String("log-level", "warn", "log level")
	if err := fs.Parse(args); err != nil {
		return err
	}

	switch *format {
	case "json", "geojson", "png":
	default:
		return fmt.Errorf("unknown format %q", *format)
	}

	logger := logging.New(*logLevel, "text", stderr)

	reqs, err := readRequests(*in, stdin)
	if err != nil {
		return err
	}

	var tracks propagation.TrackSource
	if *tleFiles != "" {
		store := tle.NewStore()
		loader := tle.NewLoader(tle.Sources{Files: splitList(*tleFiles)}, logger)
		ds, err := loader.Load(ctx)
		if err != nil {
			return fmt.Errorf("loading TLE files: %w", err)
		}
		store.Set(ds)
		tracks = propagation.NewPropagator(store, logger)
	}

	opts := footprint.Options{ArcPoints: *points, Radius: *radius}
	pool := propagation.NewWorkerPool(propagation.PoolConfig{Workers: *workers}.Size(), tracks, opts, logger)
	results := pool.BuildOutlines(ctx, reqs)

	w := stdout
	if *out != "-" {
		f, err := os.Create(*out)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	var failed int
	for _, r := range results {
		if r.Err != nil {
			failed++
			logger.Warn("outline failed", "id", r.ID, "error", r.Err)
		}
	}

	switch *format {
	case "geojson":
		fc := geojson.NewFeatureCollection()
		for _, r := range results {
			if r.Err != nil {
				continue
			}
			for _, f := range r.Contour.GeoJSON().Features {
				f.Properties["id"] = r.ID
				fc.Append(f)
			}
		}
		err = json.NewEncoder(w).Encode(fc)
	case "png":
		style, serr := footprint.ParseStyle(*color, *selectedColor)
		if serr != nil {
			return serr
		}
		rend, rerr := preview.NewRenderer(*width, *height, style)
		if rerr != nil {
			return rerr
		}
		sel := make(map[string]bool)
		for _, id := range splitList(*selected) {
			sel[id] = true
		}
		var items []preview.Item
		for _, r := range results {
			if r.Err == nil {
				items = append(items, preview.Item{Contour: r.Contour, Selected: sel[r.ID]})
			}
		}
		err = rend.Render(w, items...)
	default:
		outs := make([]outlineOutput, len(results))
		for i, r := range results {
			if r.Err != nil {
				outs[i] = outlineOutput{ID: r.ID, Error: r.Err.Error()}
				continue
			}
			outs[i] = outlineOutput{
				ID:          r.ID,
				LoopLen:     r.Contour.LoopLen(),
				LoopPoints:  r.Contour.LoopPoints,
				TrackPoints: r.Contour.TrackPoints,
			}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		err = enc.Encode(outs)
	}
	if err != nil {
		return err
	}

	if failed == len(results) {
		return fmt.Errorf("all %d outlines failed", failed)
	}
	return nil
}

// readRequests decodes one request object or an array of them.
func readRequests(path string, stdin io.Reader) ([]propagation.OutlineRequest, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(bufio.NewReader(stdin))
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.New("empty request input")
	}
	if data[0] == '[' {
		var reqs []propagation.OutlineRequest
		if err := json.Unmarshal(data, &reqs); err != nil {
			return nil, fmt.Errorf("decoding requests: %w", err)
		}
		if len(reqs) == 0 {
			return nil, errors.New("empty request list")
		}
		return reqs, nil
	}
	var req propagation.OutlineRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("decoding request: %w", err)
	}
	return []propagation.OutlineRequest{req}, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
