package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/paulmach/orb/geojson"

	"github.com/star/scangeo/internal/footprint"
	"github.com/star/scangeo/internal/geo"
	"github.com/star/scangeo/internal/geos"
	"github.com/star/scangeo/internal/metrics"
	"github.com/star/scangeo/internal/preview"
	"github.com/star/scangeo/internal/propagation"
)

// maxBodyBytes bounds footprint request bodies.
const maxBodyBytes = 4 << 20

const (
	formatJSON    = "json"
	formatGeoJSON = "geojson"
	formatPNG     = "png"
)

type handlers struct {
	deps       Deps
	logger     *slog.Logger
	limiter    *batchLimiter
	maxBatch   int
	trustProxy bool
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// GET /api/v1/geostationary
func (h *handlers) listSatellites(w http.ResponseWriter, r *http.Request) {
	sats := h.deps.Catalog.Satellites()
	writeJSON(w, http.StatusOK, map[string]any{
		"count":      len(sats),
		"satellites": sats,
	})
}

func (h *handlers) projector(w http.ResponseWriter, r *http.Request) (geos.Projector, bool) {
	name := r.PathValue("name")
	p, ok := h.deps.Catalog.Projector(name)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown satellite %q", name))
	}
	return p, ok
}

// projectionStatus maps projection errors onto HTTP status codes.
func projectionStatus(err error) int {
	switch {
	case errors.Is(err, geos.ErrInvisible):
		return http.StatusUnprocessableEntity
	case errors.Is(err, geos.ErrOutOfRange):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

type geodeticResponse struct {
	Satellite string  `json:"satellite"`
	Column    int     `json:"column"`
	Row       int     `json:"row"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
}

// GET /api/v1/geostationary/{name}/geodetic?column=&row=
func (h *handlers) geodetic(w http.ResponseWriter, r *http.Request) {
	proj, ok := h.projector(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	col, errC := strconv.Atoi(q.Get("column"))
	row, errR := strconv.Atoi(q.Get("row"))
	if errC != nil || errR != nil {
		writeError(w, http.StatusBadRequest, "column and row must be integers")
		return
	}

	pt, err := proj.PixelToGeodetic(geos.Pixel{Column: col, Row: row})
	metrics.RecordProjection(metrics.PixelToGeodetic, err)
	if err != nil {
		writeError(w, projectionStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, geodeticResponse{
		Satellite: r.PathValue("name"),
		Column:    col,
		Row:       row,
		Lat:       pt.Lat,
		Lon:       pt.Lon,
	})
}

type pixelResponse struct {
	Satellite string  `json:"satellite"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	Unit      string  `json:"unit"`
	Column    int     `json:"column"`
	Row       int     `json:"row"`
}

// GET /api/v1/geostationary/{name}/pixel?lat=&lon=[&unit=deg|rad]
func (h *handlers) pixel(w http.ResponseWriter, r *http.Request) {
	proj, ok := h.projector(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	lat, errLat := strconv.ParseFloat(q.Get("lat"), 64)
	lon, errLon := strconv.ParseFloat(q.Get("lon"), 64)
	if errLat != nil || errLon != nil {
		writeError(w, http.StatusBadRequest, "lat and lon must be numbers")
		return
	}

	unit := q.Get("unit")
	var (
		px  geos.Pixel
		err error
	)
	switch unit {
	case "", "deg":
		unit = "deg"
		px, err = proj.GeodeticToPixel(geo.Point{Lat: lat, Lon: lon})
	case "rad":
		px, err = proj.GeodeticToPixelRad(lat, lon)
	default:
		writeError(w, http.StatusBadRequest, "unit must be deg or rad")
		return
	}
	metrics.RecordProjection(metrics.GeodeticToPixel, err)
	if err != nil {
		writeError(w, projectionStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, pixelResponse{
		Satellite: r.PathValue("name"),
		Lat:       lat,
		Lon:       lon,
		Unit:      unit,
		Column:    px.Column,
		Row:       px.Row,
	})
}

type outlineBody struct {
	ID             string                     `json:"id"`
	Segment        footprint.SegmentFootprint `json:"segment"`
	NORADID        int                        `json:"norad_id"`
	Start          time.Time                  `json:"start"`
	SensingSeconds float64                    `json:"sensing_seconds"`
}

// UnmarshalJSON starts from an undefined segment so an absent "segment"
// key is rejected like omitted corners.
func (b *outlineBody) UnmarshalJSON(data []byte) error {
	type plain outlineBody
	p := plain{Segment: footprint.UndefinedSegment()}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return err
	}
	*b = outlineBody(p)
	return nil
}

func (b outlineBody) validate() error {
	if b.NORADID < 0 {
		return fmt.Errorf("norad_id %d must not be negative", b.NORADID)
	}
	if b.NORADID > 0 && b.Start.IsZero() {
		return errors.New("start is required with norad_id")
	}
	if b.SensingSeconds < 0 {
		return errors.New("sensing_seconds must not be negative")
	}
	return nil
}

func (b outlineBody) request() propagation.OutlineRequest {
	return propagation.OutlineRequest{
		ID:             b.ID,
		Segment:        b.Segment,
		NORADID:        b.NORADID,
		Start:          b.Start,
		SensingSeconds: b.SensingSeconds,
	}
}

// outlineStatus maps outline build errors onto HTTP status codes.
func outlineStatus(err error) int {
	switch {
	case errors.Is(err, footprint.ErrInvalidCorner), errors.Is(err, footprint.ErrInvalidOptions):
		return http.StatusUnprocessableEntity
	case errors.Is(err, propagation.ErrUnknownSatellite):
		return http.StatusNotFound
	case errors.Is(err, propagation.ErrNoDataset), errors.Is(err, propagation.ErrNoTrackSource),
		errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

type contourResponse struct {
	ID          string                     `json:"id,omitempty"`
	LoopLen     int                        `json:"loop_len"`
	Loop        []mgl64.Vec3               `json:"loop"`
	Track       []mgl64.Vec3               `json:"track"`
	TrackStart  mgl64.Vec3                 `json:"track_start"`
	TrackEnd    mgl64.Vec3                 `json:"track_end"`
	LoopPoints  []geo.Point                `json:"loop_points"`
	TrackPoints []geo.Point                `json:"track_points"`
	Segment     footprint.SegmentFootprint `json:"segment"`
}

func newContourResponse(id string, c footprint.Contour) contourResponse {
	return contourResponse{
		ID:          id,
		LoopLen:     c.LoopLen(),
		Loop:        c.Loop,
		Track:       c.Track,
		TrackStart:  c.TrackStart,
		TrackEnd:    c.TrackEnd,
		LoopPoints:  c.LoopPoints,
		TrackPoints: c.TrackPoints,
		Segment:     c.Segment,
	}
}

func outputFormat(w http.ResponseWriter, r *http.Request) (string, bool) {
	switch f := r.URL.Query().Get("format"); f {
	case "", formatJSON:
		return formatJSON, true
	case formatGeoJSON, formatPNG:
		return f, true
	default:
		writeError(w, http.StatusBadRequest, "format must be json, geojson or png")
		return "", false
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func (h *handlers) writePNG(w http.ResponseWriter, items ...preview.Item) {
	if h.deps.Renderer == nil {
		writeError(w, http.StatusNotImplemented, "png rendering is not configured")
		return
	}
	var buf bytes.Buffer
	if err := h.deps.Renderer.Render(&buf, items...); err != nil {
		h.logger.Error("preview render failed", "error", err)
		writeError(w, http.StatusInternalServerError, "render failed")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func writeGeoJSON(w http.ResponseWriter, fc *geojson.FeatureCollection) {
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(fc)
}

// POST /api/v1/footprint?format=json|geojson|png[&selected=true]
func (h *handlers) footprint(w http.ResponseWriter, r *http.Request) {
	format, ok := outputFormat(w, r)
	if !ok {
		return
	}
	var body outlineBody
	if !decodeBody(w, r, &body) {
		return
	}
	if err := body.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res := h.deps.Pool.BuildOutline(body.request())
	if res.Err != nil {
		writeError(w, outlineStatus(res.Err), res.Err.Error())
		return
	}

	switch format {
	case formatGeoJSON:
		writeGeoJSON(w, res.Contour.GeoJSON())
	case formatPNG:
		selected, _ := strconv.ParseBool(r.URL.Query().Get("selected"))
		h.writePNG(w, preview.Item{Contour: res.Contour, Selected: selected})
	default:
		writeJSON(w, http.StatusOK, newContourResponse(res.ID, res.Contour))
	}
}

type batchBody struct {
	Segments []outlineBody `json:"segments"`
	// Selected lists the IDs drawn in the selected colour for format=png.
	Selected []string `json:"selected"`
}

type batchResult struct {
	ID      string           `json:"id,omitempty"`
	Contour *contourResponse `json:"contour,omitempty"`
	Error   string           `json:"error,omitempty"`
	Status  int              `json:"status"`
}

// POST /api/v1/footprint/many?format=json|geojson|png
func (h *handlers) footprints(w http.ResponseWriter, r *http.Request) {
	format, ok := outputFormat(w, r)
	if !ok {
		return
	}
	var body batchBody
	if !decodeBody(w, r, &body) {
		return
	}
	if len(body.Segments) == 0 {
		writeError(w, http.StatusBadRequest, "segments must not be empty")
		return
	}
	if len(body.Segments) > h.maxBatch {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":     fmt.Sprintf("too many segments: %d", len(body.Segments)),
			"max_batch": h.maxBatch,
		})
		return
	}
	reqs := make([]propagation.OutlineRequest, len(body.Segments))
	for i, s := range body.Segments {
		if err := s.validate(); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("segment %d: %v", i, err))
			return
		}
		reqs[i] = s.request()
	}

	ip := clientIP(r, h.trustProxy)
	if !h.limiter.acquire(ip) {
		h.logger.Warn("batch limit exceeded",
			"remote_ip", ip,
			"current_count", h.limiter.count(ip),
		)
		w.Header().Set("Retry-After", "5")
		writeError(w, http.StatusTooManyRequests, "too many concurrent batch requests")
		return
	}
	defer h.limiter.release(ip)

	results := h.deps.Pool.BuildOutlines(r.Context(), reqs)

	switch format {
	case formatGeoJSON:
		fc := geojson.NewFeatureCollection()
		for _, res := range results {
			if res.Err != nil {
				continue
			}
			for _, f := range res.Contour.GeoJSON().Features {
				f.Properties["id"] = res.ID
				fc.Append(f)
			}
		}
		writeGeoJSON(w, fc)
	case formatPNG:
		selected := make(map[string]bool, len(body.Selected))
		for _, id := range body.Selected {
			selected[id] = true
		}
		items := make([]preview.Item, 0, len(results))
		for _, res := range results {
			if res.Err == nil {
				items = append(items, preview.Item{Contour: res.Contour, Selected: selected[res.ID]})
			}
		}
		h.writePNG(w, items...)
	default:
		out := make([]batchResult, len(results))
		var failed int
		for i, res := range results {
			if res.Err != nil {
				failed++
				out[i] = batchResult{ID: res.ID, Error: res.Err.Error(), Status: outlineStatus(res.Err)}
				continue
			}
			c := newContourResponse(res.ID, res.Contour)
			out[i] = batchResult{ID: res.ID, Contour: &c, Status: http.StatusOK}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"count":   len(out),
			"failed":  failed,
			"results": out,
		})
	}
}
