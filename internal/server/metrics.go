package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/MeKo-Tech/qrscan/internal/scanner"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qrscan_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "qrscan_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Scan metrics
	scanRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qrscan_scan_requests_total",
			Help: "Total number of scan requests",
		},
		[]string{"type", "status"}, // type: image, pdf, websocket
	)

	scanDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "qrscan_scan_duration_seconds",
			Help:    "Scan duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"type"},
	)

	symbolsDetected = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "qrscan_symbols_detected",
			Help:    "Number of QR symbols detected per request",
			Buckets: []float64{0, 1, 2, 4, 8, 16},
		},
		[]string{"type"},
	)

	decodeFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qrscan_decode_failures_total",
			Help: "Detected symbols that could not be decoded, by reason",
		},
		[]string{"reason"},
	)

	rateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qrscan_rate_limit_hits_total",
			Help: "Total number of rate limit hits",
		},
		[]string{"type"}, // minute, hour, requests, data
	)

	uploadSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "qrscan_upload_size_bytes",
			Help:    "Size of uploaded files in bytes",
			Buckets: []float64{1024, 10 * 1024, 100 * 1024, 1024 * 1024, 10 * 1024 * 1024, 50 * 1024 * 1024},
		},
	)

	// WebSocket metrics
	websocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "qrscan_websocket_active_connections",
			Help: "Number of active WebSocket connections",
		},
	)

	websocketMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qrscan_websocket_messages_total",
			Help: "Total number of WebSocket messages",
		},
		[]string{"direction"}, // sent, received
	)
)

// observeSymbols records detection counts and decode failures.
func observeSymbols(kind string, symbols []scanner.Result) {
	symbolsDetected.WithLabelValues(kind).Observe(float64(len(symbols)))
	for i := range symbols {
		if !symbols[i].OK() {
			reason := symbols[i].Reason
			if reason == "" {
				reason = "unknown"
			}
			decodeFailuresTotal.WithLabelValues(reason).Inc()
		}
	}
}
