// Package server exposes the scanner over HTTP and WebSocket.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MeKo-Tech/qrscan/internal/detect"
	"github.com/MeKo-Tech/qrscan/internal/history"
	"github.com/MeKo-Tech/qrscan/internal/media"
	"github.com/MeKo-Tech/qrscan/internal/pdf"
	"github.com/MeKo-Tech/qrscan/internal/scan"
	"github.com/MeKo-Tech/qrscan/internal/version"
)

// Server holds the HTTP server state and dependencies.
type Server struct {
	pool       *scan.Pool
	history    *history.Store
	sessions   scan.Factory
	fetcher    *media.Fetcher
	pdf        *pdf.Processor
	limiter    *RateLimiter
	corsOrigin string

	maxUploadMB    int64
	timeout        time.Duration
	overlayEnabled bool
}

// Config holds server configuration.
type Config struct {
	Host           string
	Port           int
	CORSOrigin     string
	MaxUploadMB    int64
	TimeoutSec     int
	OverlayEnabled bool
	RateLimitRPS   float64
	RateLimitBurst int
	FetchTimeout   time.Duration
}

// Deps are the scanning components the server drives. Sessions builds the
// dedicated Runner of each WebSocket connection.
type Deps struct {
	Pool     *scan.Pool
	History  *history.Store
	Sessions scan.Factory
}

// Response types for API endpoints.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Time    string `json:"time"`
	Workers int    `json:"workers"`
}

type ScanResult struct {
	Count      int                `json:"count"`
	Detections []detect.Detection `json:"detections"`
	Width      int                `json:"width"`
	Height     int                `json:"height"`
	Overlay    string             `json:"overlay,omitempty"`
	Processing struct {
		TotalTimeMs int64 `json:"total_time_ms"`
	} `json:"processing"`
}

type ScanResponse struct {
	Success bool        `json:"success"`
	Result  *ScanResult `json:"result,omitempty"`
	Error   string      `json:"error,omitempty"`
}

type URLRequest struct {
	URL     string `json:"url"`
	Overlay bool   `json:"overlay,omitempty"`
}

type HistoryItem struct {
	ID     string   `json:"id"`
	Data   string   `json:"data"`
	Symbol string   `json:"symbol"`
	Links  []string `json:"links,omitempty"`
}

type HistoryResponse struct {
	Entries []HistoryItem `json:"entries"`
	Count   int           `json:"count"`
}

// NewServer creates a server over the given scanning components.
func NewServer(config Config, deps Deps) *Server {
	if config.MaxUploadMB <= 0 {
		config.MaxUploadMB = 50
	}
	if config.TimeoutSec <= 0 {
		config.TimeoutSec = 30
	}
	if config.CORSOrigin == "" {
		config.CORSOrigin = "*"
	}
	s := &Server{
		pool:           deps.Pool,
		history:        deps.History,
		sessions:       deps.Sessions,
		fetcher:        media.NewFetcher(config.FetchTimeout),
		corsOrigin:     config.CORSOrigin,
		maxUploadMB:    config.MaxUploadMB,
		timeout:        time.Duration(config.TimeoutSec) * time.Second,
		overlayEnabled: config.OverlayEnabled,
	}
	s.fetcher.MaxBytes = config.MaxUploadMB << 20
	if deps.Pool != nil {
		s.pdf = pdf.NewProcessor(deps.Pool)
	}
	if config.RateLimitRPS > 0 {
		s.limiter = NewRateLimiter(config.RateLimitRPS, config.RateLimitBurst)
	}
	return s
}

// Close releases server resources.
func (s *Server) Close() error {
	if s.limiter != nil {
		s.limiter.Stop()
	}
	return nil
}

// Router configures the HTTP routes.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.requestIDMiddleware, s.corsMiddleware)

	r.HandleFunc("/health", s.healthHandler).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := r.NewRoute().Subrouter()
	api.Use(s.rateLimitMiddleware)
	api.HandleFunc("/scan/image", s.scanImageHandler).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/scan/url", s.scanURLHandler).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/scan/pdf", s.scanPDFHandler).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/history", s.historyListHandler).Methods(http.MethodGet)
	api.HandleFunc("/history", s.historyClearHandler).Methods(http.MethodDelete)
	api.HandleFunc("/history/copy", s.historyCopyHandler).Methods(http.MethodGet)
	api.HandleFunc("/history/{id}", s.historyDeleteHandler).Methods(http.MethodDelete)
	api.HandleFunc("/ws/scan", s.scanWebSocketHandler).Methods(http.MethodGet)
	return r
}

func (s *Server) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), s.timeout)
}

func versionString() string { return version.Short() }
