package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/medscan-tech/labxtract/internal/detection"
	"github.com/medscan-tech/labxtract/internal/pipeline"
	"github.com/medscan-tech/labxtract/internal/version"
)

const (
	formatCSV  = "csv"
	formatText = "text"
)

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := HealthResponse{
		Status:  "healthy",
		Version: version.Version,
		Time:    time.Now().UTC().Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding health response: %v\n", err)
	}
}

// detectionEnvelope is the alternative request shape wrapping the
// detection array in an object.
type detectionEnvelope struct {
	Detections []detection.Detection `json:"detections"`
}

// readDetections decodes the request body as either a bare JSON array of
// detections or a {"detections": [...]} envelope.
func (s *Server) readDetections(w http.ResponseWriter, r *http.Request) ([]detection.Detection, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadMB*1024*1024)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read request body: %v", detection.ErrInvalidInput, err)
	}
	uploadSizeBytes.Observe(float64(len(body)))

	var dets []detection.Detection
	if err := json.Unmarshal(body, &dets); err == nil {
		return dets, nil
	}

	var env detectionEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: body must be a JSON detection array or {\"detections\": [...]}: %v",
			detection.ErrInvalidInput, err)
	}
	return env.Detections, nil
}

// extractHandler processes detection lists into lab test records.
func (s *Server) extractHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	dets, err := s.readDetections(w, r)
	if err != nil {
		extractRequestsTotal.WithLabelValues("extract", "invalid").Inc()
		s.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	start := time.Now()
	records, err := s.pipeline.Extract(ctx, dets)
	if err != nil {
		s.handleExtractError(w, "extract", err)
		return
	}

	extractRequestsTotal.WithLabelValues("extract", "success").Inc()
	extractDuration.WithLabelValues("extract").Observe(time.Since(start).Seconds())
	detectionsPerRequest.Observe(float64(len(dets)))
	recordsPerRequest.Observe(float64(len(records)))

	s.writeRecords(w, r, records)
}

// debugExtractHandler runs the same extraction and additionally returns
// the per-row diagnostic trace. The records never differ from what
// /extract returns for the same input.
func (s *Server) debugExtractHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	dets, err := s.readDetections(w, r)
	if err != nil {
		extractRequestsTotal.WithLabelValues("debug", "invalid").Inc()
		s.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	start := time.Now()
	records, trace, err := s.pipeline.ExtractWithTrace(ctx, dets)
	if err != nil {
		s.handleExtractError(w, "debug", err)
		return
	}

	extractRequestsTotal.WithLabelValues("debug", "success").Inc()
	extractDuration.WithLabelValues("debug").Observe(time.Since(start).Seconds())

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(DebugResponse{Records: records, Trace: trace}); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding debug response: %v\n", err)
	}
}

// requestContext derives a per-request timeout context from the server
// configuration.
func (s *Server) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	if s.timeoutSec <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), time.Duration(s.timeoutSec)*time.Second)
}

// handleExtractError maps pipeline errors to HTTP status codes, counting
// them under the endpoint that produced them.
func (s *Server) handleExtractError(w http.ResponseWriter, endpoint string, err error) {
	if errors.Is(err, detection.ErrInvalidInput) {
		extractRequestsTotal.WithLabelValues(endpoint, "invalid").Inc()
		s.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	extractRequestsTotal.WithLabelValues(endpoint, "error").Inc()
	s.writeErrorResponse(w, fmt.Sprintf("extraction failed: %v", err), http.StatusInternalServerError)
}

// writeRecords writes the record list in the requested output format:
// json (default), csv, or text.
func (s *Server) writeRecords(w http.ResponseWriter, r *http.Request, records []pipeline.Record) {
	format := r.FormValue("format")
	if format == "" {
		format = r.URL.Query().Get("format")
	}

	switch format {
	case formatCSV:
		out, err := pipeline.ToCSV(records)
		if err != nil {
			s.writeErrorResponse(w, fmt.Sprintf("formatting failed: %v", err), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte(out))
	case formatText:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(pipeline.ToPlainText(records)))
	default:
		w.Header().Set("Content-Type", "application/json")
		if records == nil {
			records = []pipeline.Record{}
		}
		if err := json.NewEncoder(w).Encode(records); err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding extract response: %v\n", err)
		}
	}
}

// writeErrorResponse writes a JSON error response.
func (s *Server) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(ErrorResponse{Success: false, Error: message}); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing error response: %v\n", err)
	}
}
