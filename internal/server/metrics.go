package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/MeKo-Tech/qrscan/internal/detect"
)

const namespace = "qrscan"

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "http", Name: "requests_total",
		Help: "HTTP requests by route and status.",
	}, []string{"method", "endpoint", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "http", Name: "request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint"})

	// kind is image, url, pdf or stream.
	scanRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "scan", Name: "requests_total",
		Help: "Scan requests by kind and outcome.",
	}, []string{"type", "status"})

	scanDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "scan", Name: "duration_seconds",
		Help:    "Detect cycle latency.",
		Buckets: prometheus.ExponentialBuckets(0.005, 2.5, 10),
	}, []string{"type"})

	detectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "detections_total",
		Help: "Decoded symbols by symbology and origin.",
	}, []string{"symbol", "origin"})

	rateLimitHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "rate_limit_hits_total",
		Help: "Requests rejected by the rate limiter.",
	})

	uploadSizeBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace, Name: "upload_size_bytes",
		Help:    "Size of uploaded images and documents.",
		Buckets: prometheus.ExponentialBuckets(1024, 4, 8),
	})

	websocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "websocket", Name: "active_connections",
		Help: "Open scan streams.",
	})

	// direction is sent or received.
	websocketMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "websocket", Name: "messages_total",
		Help: "Stream messages by direction.",
	}, []string{"direction"})
)

// scanFailed counts a request of kind that never reached the scanner.
func scanFailed(kind string) {
	scanRequestsTotal.WithLabelValues(kind, "error").Inc()
}

// scanFinished records the latency, outcome and detections of one scan.
func scanFinished(kind string, start time.Time, detections []detect.Detection, err error) {
	scanDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	if err != nil {
		scanFailed(kind)
		return
	}
	scanRequestsTotal.WithLabelValues(kind, "success").Inc()
	for _, d := range detections {
		detectionsTotal.WithLabelValues(d.Symbol, string(d.Origin)).Inc()
	}
}
