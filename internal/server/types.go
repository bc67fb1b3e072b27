package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/medscan-tech/labxtract/internal/config"
	"github.com/medscan-tech/labxtract/internal/detection"
	"github.com/medscan-tech/labxtract/internal/dictionary"
	"github.com/medscan-tech/labxtract/internal/pipeline"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// extractor defines the methods the server needs from the extraction
// pipeline.
type extractor interface {
	Extract(ctx context.Context, dets []detection.Detection) ([]pipeline.Record, error)
	ExtractWithTrace(ctx context.Context, dets []detection.Detection) ([]pipeline.Record, *pipeline.Trace, error)
}

// Server holds the HTTP server state and dependencies.
type Server struct {
	pipeline    extractor
	corsOrigin  string
	maxUploadMB int64
	timeoutSec  int
	rateLimiter *RateLimiter
}

// Config holds server configuration.
type Config struct {
	Host           string
	Port           int
	CORSOrigin     string
	MaxUploadMB    int64
	TimeoutSec     int
	DictPath       string
	PipelineConfig pipeline.Config
	RateLimit      config.RateLimitConfig
}

// HealthResponse is the /health payload.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Time    string `json:"time"`
}

// ErrorResponse is the JSON error body for failed requests.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// DebugResponse pairs the primary records with the diagnostic trace. The
// records are identical to what the primary endpoint would return for the
// same input.
type DebugResponse struct {
	Records []pipeline.Record `json:"records"`
	Trace   *pipeline.Trace   `json:"trace"`
}

// NewServer creates a new extraction server instance.
func NewServer(cfg Config) (*Server, error) {
	dict := dictionary.Default()
	if cfg.DictPath != "" {
		var err error
		dict, err = dictionary.Load(cfg.DictPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load dictionary: %w", err)
		}
	}

	s := &Server{
		pipeline:    pipeline.New(cfg.PipelineConfig, dict),
		corsOrigin:  cfg.CORSOrigin,
		maxUploadMB: cfg.MaxUploadMB,
		timeoutSec:  cfg.TimeoutSec,
	}

	if cfg.RateLimit.Enabled {
		s.rateLimiter = NewRateLimiter(
			cfg.RateLimit.RequestsPerMinute,
			cfg.RateLimit.RequestsPerHour,
			cfg.RateLimit.MaxRequestsPerDay,
			cfg.RateLimit.MaxDataPerDay,
		)
	}

	return s, nil
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.HandleFunc("/extract", s.corsMiddleware(s.rateLimitMiddleware(s.extractHandler)))
	mux.HandleFunc("/extract/debug", s.corsMiddleware(s.rateLimitMiddleware(s.debugExtractHandler)))
	mux.HandleFunc("/ws/extract", s.extractWebSocketHandler)
	mux.Handle("/metrics", promhttp.Handler())
}
