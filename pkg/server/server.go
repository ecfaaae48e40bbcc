// Package server exposes the orchestrator over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/zen-systems/boardroom/pkg/cache"
	"github.com/zen-systems/boardroom/pkg/memory"
	"github.com/zen-systems/boardroom/pkg/metrics"
	"github.com/zen-systems/boardroom/pkg/orchestrator"
)

// Version is reported by the index endpoint.
const Version = "2.0.0"

// Service is the orchestrator surface the server needs.
type Service interface {
	Orchestrate(ctx context.Context, query string, useMemory bool) (*orchestrator.Result, error)
	History() []memory.Message
	ClearMemory()
	CacheStats() cache.Stats
	ClearCache(ctx context.Context) error
	Health() orchestrator.Health
}

// QueryRequest is the body of POST /query.
type QueryRequest struct {
	Query     string `json:"query"`
	UseMemory *bool  `json:"use_memory,omitempty"`
}

// ErrorResponse is returned for failed requests.
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse acknowledges a state-changing request.
type MessageResponse struct {
	Message string `json:"message"`
}

// Server serves the HTTP API.
type Server struct {
	svc        Service
	httpServer *http.Server
	logger     zerolog.Logger
}

// New builds a server listening on addr.
func New(addr string, svc Service, logger zerolog.Logger) *Server {
	s := &Server{svc: svc, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.instrument("/", s.indexHandler))
	mux.HandleFunc("POST /query", s.instrument("/query", s.queryHandler))
	mux.HandleFunc("GET /history", s.instrument("/history", s.historyHandler))
	mux.HandleFunc("POST /clear", s.instrument("/clear", s.clearHandler))
	mux.HandleFunc("GET /cache/stats", s.instrument("/cache/stats", s.cacheStatsHandler))
	mux.HandleFunc("POST /cache/clear", s.instrument("/cache/clear", s.cacheClearHandler))
	mux.HandleFunc("GET /health", s.instrument("/health", s.healthHandler))
	mux.Handle("GET /metrics", promhttp.Handler())

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.httpServer.Addr).Msg("HTTP server starting")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) instrument(endpoint string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r)
		metrics.RequestCount.WithLabelValues(r.Method, endpoint, strconv.Itoa(rec.status)).Inc()
		metrics.RequestDuration.WithLabelValues(r.Method, endpoint).Observe(time.Since(start).Seconds())
	}
}

func (s *Server) indexHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "Business Intelligence Orchestrator",
		"version": Version,
		"agents":  []string{"Market Analysis", "Operations Audit", "Financial Modeling", "Lead Generation"},
		"endpoints": map[string]string{
			"/query":       "POST - Submit a business query for analysis",
			"/history":     "GET - Get conversation history",
			"/clear":       "POST - Clear conversation memory",
			"/cache/stats": "GET - Get cache performance statistics",
			"/cache/clear": "POST - Clear cache",
			"/health":      "GET - Health check",
			"/metrics":     "GET - Prometheus metrics",
		},
	})
}

func (s *Server) queryHandler(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	useMemory := true
	if req.UseMemory != nil {
		useMemory = *req.UseMemory
	}

	res, err := s.svc.Orchestrate(r.Context(), req.Query, useMemory)
	if err != nil {
		if errors.Is(err, orchestrator.ErrEmptyQuery) {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		s.logger.Error().Err(err).Msg("query failed")
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) historyHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"history": s.svc.History()})
}

func (s *Server) clearHandler(w http.ResponseWriter, _ *http.Request) {
	s.svc.ClearMemory()
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Conversation memory cleared successfully"})
}

func (s *Server) cacheStatsHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"stats": s.svc.CacheStats()})
}

func (s *Server) cacheClearHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.ClearCache(r.Context()); err != nil {
		s.logger.Error().Err(err).Msg("cache clear failed")
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Cache cleared successfully"})
}

func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Health())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
