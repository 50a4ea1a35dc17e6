package api

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/star/scangeo/internal/auth"
	"github.com/star/scangeo/internal/geos"
	"github.com/star/scangeo/internal/health"
	"github.com/star/scangeo/internal/metrics"
	"github.com/star/scangeo/internal/preview"
	"github.com/star/scangeo/internal/propagation"
)

// Options configures the HTTP server.
type Options struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Auth         auth.Config
	// TrustProxy reads the client address from X-Forwarded-For and X-Real-IP.
	TrustProxy bool
	// MaxBatch caps the segments of one batch request.
	MaxBatch int
	// MaxBatchPerClient caps concurrent batch requests from one client.
	MaxBatchPerClient int
}

// Deps are the services behind the routes.
type Deps struct {
	Catalog  *geos.Catalog
	Pool     *propagation.WorkerPool
	Renderer *preview.Renderer
	Health   *health.Checker
}

// Server holds the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a configured HTTP server.
func NewServer(opts Options, deps Deps, logger *slog.Logger) *Server {
	if opts.MaxBatch <= 0 {
		opts.MaxBatch = defaultMaxBatch
	}
	if opts.MaxBatchPerClient <= 0 {
		opts.MaxBatchPerClient = defaultMaxBatchPerClient
	}
	if deps.Health == nil {
		deps.Health = health.New()
	}

	h := &handlers{
		deps:       deps,
		logger:     logger.With("component", "api"),
		limiter:    newBatchLimiter(opts.MaxBatchPerClient),
		maxBatch:   opts.MaxBatch,
		trustProxy: opts.TrustProxy,
	}

	mux := http.NewServeMux()

	// Register routes.
	mux.HandleFunc("GET /healthz", health.Healthz)
	mux.HandleFunc("GET /readyz", deps.Health.Readyz)
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /api/v1/geostationary", h.listSatellites)
	mux.HandleFunc("GET /api/v1/geostationary/{name}/geodetic", h.geodetic)
	mux.HandleFunc("GET /api/v1/geostationary/{name}/pixel", h.pixel)
	mux.HandleFunc("POST /api/v1/footprint", h.footprint)
	mux.HandleFunc("POST /api/v1/footprint/many", h.footprints)

	// Build middleware chain: metrics -> logging -> auth -> mux.
	var handler http.Handler = mux
	handler = auth.Middleware(opts.Auth)(handler)
	handler = loggingMiddleware(logger, opts.TrustProxy)(handler)
	handler = metrics.Middleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:              opts.Addr,
			Handler:           handler,
			ReadTimeout:       opts.ReadTimeout,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      opts.WriteTimeout,
			IdleTimeout:       120 * time.Second,
		},
		logger: logger,
	}
}

// HTTPServer returns the underlying *http.Server for external control (e.g. shutdown).
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// Handler returns the full middleware chain.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// probePath returns true for health/readiness probe paths that should not log at INFO.
func probePath(path string) bool {
	return path == "/healthz" || path == "/readyz" || path == "/metrics"
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(logger *slog.Logger, trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(sr, r)

			duration := time.Since(start)
			level := slog.LevelInfo
			if probePath(r.URL.Path) {
				level = slog.LevelDebug
			}
			if sr.statusCode >= http.StatusInternalServerError {
				level = slog.LevelError
			}

			logger.Log(r.Context(), level, "request",
				"component", "api",
				"method", r.Method,
				"path", r.URL.Path,
				"status", strconv.Itoa(sr.statusCode),
				"duration_ms", duration.Milliseconds(),
				"remote_ip", clientIP(r, trustProxy),
			)
		})
	}
}

// clientIP extracts the client address. With trustProxy the first
// X-Forwarded-For entry, then X-Real-IP, take precedence over RemoteAddr.
func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
		if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
			return xri
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
