package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MeKo-Tech/qrscan/internal/pdf"
	"github.com/MeKo-Tech/qrscan/internal/scanner"
	"github.com/MeKo-Tech/qrscan/internal/version"
)

// Server holds the HTTP server state and dependencies.
type Server struct {
	scanner        *scanner.Scanner
	pdf            *pdf.Processor
	rateLimiter    *RateLimiter
	corsOrigin     string
	maxUploadMB    int64
	timeout        time.Duration
	metricsEnabled bool
}

// Config holds server configuration.
type Config struct {
	Host           string
	Port           int
	CORSOrigin     string
	MaxUploadMB    int64
	TimeoutSec     int
	MetricsEnabled bool
	Scanner        scanner.Config
	RateLimit      RateLimitConfig
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Time    string `json:"time"`
}

// ScanResponse wraps image scan results.
type ScanResponse struct {
	Success   bool                 `json:"success"`
	RequestID string               `json:"request_id,omitempty"`
	Result    *scanner.ImageResult `json:"result,omitempty"`
	Error     string               `json:"error,omitempty"`
}

// PDFResponse wraps PDF scan results.
type PDFResponse struct {
	Success   bool                `json:"success"`
	RequestID string              `json:"request_id,omitempty"`
	Result    *pdf.DocumentResult `json:"result,omitempty"`
	Error     string              `json:"error,omitempty"`
}

// NewServer creates a server with its own scanner.
func NewServer(config Config) (*Server, error) {
	if config.MaxUploadMB <= 0 {
		return nil, errors.New("max upload size must be positive")
	}
	if config.TimeoutSec <= 0 {
		return nil, errors.New("timeout must be positive")
	}
	s, err := scanner.New(config.Scanner)
	if err != nil {
		return nil, err
	}

	srv := &Server{
		scanner:        s,
		pdf:            pdf.NewProcessor(s, nil),
		corsOrigin:     config.CORSOrigin,
		maxUploadMB:    config.MaxUploadMB,
		timeout:        time.Duration(config.TimeoutSec) * time.Second,
		metricsEnabled: config.MetricsEnabled,
	}
	if config.RateLimit.Enabled() {
		srv.rateLimiter = NewRateLimiter(config.RateLimit)
	}
	return srv, nil
}

// Close releases server resources.
func (s *Server) Close() error {
	return nil
}

// PruneRateLimits drops clients idle for a day every interval until ctx is
// done. It returns at once when rate limiting is off.
func (s *Server) PruneRateLimits(ctx context.Context, interval time.Duration) {
	if s.rateLimiter == nil {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.rateLimiter.Prune(24 * time.Hour); n > 0 {
				slog.Debug("Pruned idle rate limit entries", "clients", n)
			}
		}
	}
}

// SetupRoutes registers the API on router.
func (s *Server) SetupRoutes(router *mux.Router) {
	router.Use(requestIDMiddleware)

	router.HandleFunc("/health", s.corsMiddleware(s.healthHandler)).
		Methods(http.MethodGet, http.MethodOptions)
	router.HandleFunc("/scan/image", s.corsMiddleware(s.rateLimitMiddleware(s.scanImageHandler))).
		Methods(http.MethodPost, http.MethodOptions)
	router.HandleFunc("/scan/pdf", s.corsMiddleware(s.rateLimitMiddleware(s.scanPDFHandler))).
		Methods(http.MethodPost, http.MethodOptions)
	router.HandleFunc("/ws/scan", s.scanWebSocketHandler).Methods(http.MethodGet)

	if s.metricsEnabled {
		router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	}
}

// Handler returns a router with every route registered.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	s.SetupRoutes(router)
	return router
}

func versionString() string {
	v, _, _ := version.Info()
	return v
}
