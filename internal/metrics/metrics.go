package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/star/scangeo/internal/geos"
)

// Projection directions.
const (
	PixelToGeodetic = "pixel_to_geodetic"
	GeodeticToPixel = "geodetic_to_pixel"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scangeo_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scangeo_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	projectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scangeo_projections_total",
			Help: "Geostationary projections by direction and outcome.",
		},
		[]string{"direction", "result"},
	)

	contoursBuiltTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scangeo_contours_built_total",
			Help: "Segment outlines built, by outcome.",
		},
		[]string{"result"},
	)

	contourBuildSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scangeo_contour_build_seconds",
			Help:    "Time to resolve the track and build one segment outline.",
			Buckets: []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05},
		},
	)

	tleSatellites = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "scangeo_tle_satellites",
			Help: "Distinct satellites in the loaded TLE dataset.",
		},
	)

	tleAgeSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "scangeo_tle_dataset_age_seconds",
			Help: "Seconds since the TLE dataset was loaded.",
		},
	)

	outlineWorkers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "scangeo_outline_workers",
			Help: "Size of the outline worker pool.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpDurationSeconds,
		projectionsTotal,
		contoursBuiltTotal,
		contourBuildSeconds,
		tleSatellites,
		tleAgeSeconds,
		outlineWorkers,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordProjection counts one projection; err is the error the projector
// returned, if any.
func RecordProjection(direction string, err error) {
	projectionsTotal.WithLabelValues(direction, projectionResult(err)).Inc()
}

func projectionResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, geos.ErrInvisible):
		return "invisible"
	case errors.Is(err, geos.ErrOutOfRange):
		return "out_of_range"
	default:
		return "error"
	}
}

// RecordContour records one outline build.
func RecordContour(d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	contoursBuiltTotal.WithLabelValues(result).Inc()
	contourBuildSeconds.Observe(d.Seconds())
}

// SetTLESatellites sets the number of satellites in the TLE dataset.
func SetTLESatellites(n int) {
	tleSatellites.Set(float64(n))
}

// SetTLEAge sets the dataset age gauge.
func SetTLEAge(seconds float64) {
	tleAgeSeconds.Set(seconds)
}

// SetOutlineWorkers sets the worker pool size gauge.
func SetOutlineWorkers(n int) {
	outlineWorkers.Set(float64(n))
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		route := normalizeRoute(r.URL.Path)
		httpRequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(rw.statusCode)).Inc()
		httpDurationSeconds.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

var exactRoutes = map[string]bool{
	"/healthz":               true,
	"/readyz":                true,
	"/metrics":               true,
	"/api/v1/geostationary":  true,
	"/api/v1/footprint":      true,
	"/api/v1/footprint/many": true,
}

// normalizeRoute maps request paths onto a bounded set of labels so that
// satellite names do not explode label cardinality.
func normalizeRoute(path string) string {
	if exactRoutes[path] {
		return path
	}
	rest, ok := strings.CutPrefix(path, "/api/v1/geostationary/")
	if !ok {
		return "other"
	}
	name, op, ok := strings.Cut(rest, "/")
	if !ok || name == "" {
		return "other"
	}
	switch op {
	case "geodetic", "pixel":
		return "/api/v1/geostationary/{name}/" + op
	}
	return "other"
}
