package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pdfcodes_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pdfcodes_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Extraction metrics
	extractionRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pdfcodes_extraction_requests_total",
			Help: "Total number of code extraction requests",
		},
		[]string{"mode", "source", "status"}, // source: pdf, image, unknown
	)

	extractionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pdfcodes_extraction_duration_seconds",
			Help:    "Code extraction duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"mode"},
	)

	codesDetected = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pdfcodes_codes_detected",
			Help:    "Number of codes found per request",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50},
		},
		[]string{"kind"},
	)

	pagesRasterized = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pdfcodes_pages_rasterized",
			Help:    "Number of PDF pages rendered per request",
			Buckets: []float64{0, 1, 2, 3},
		},
	)

	uploadSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pdfcodes_upload_size_bytes",
			Help:    "Size of uploaded files in bytes",
			Buckets: []float64{1024, 10 * 1024, 100 * 1024, 1024 * 1024, 10 * 1024 * 1024, 50 * 1024 * 1024},
		},
	)

	// WebSocket metrics
	websocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pdfcodes_websocket_active_connections",
			Help: "Number of active WebSocket connections",
		},
	)

	websocketMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pdfcodes_websocket_messages_total",
			Help: "Total number of WebSocket messages",
		},
		[]string{"direction"}, // sent, received
	)
)

func metricsHandler() http.Handler {
	return promhttp.Handler()
}
