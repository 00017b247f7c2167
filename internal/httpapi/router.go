// Package httpapi implements the session-oriented wire protocol: JSON
// request/response bodies over net/http.ServeMux, permissive CORS, and a
// websocket live-push endpoint for render frames.
package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/linlinlin-zhang/stream2graph/internal/config"
	"github.com/linlinlin-zhang/stream2graph/internal/metrics"
	"github.com/linlinlin-zhang/stream2graph/internal/ratelimit"
	"github.com/linlinlin-zhang/stream2graph/internal/session"
)

// Server holds the dependencies every handler needs: the session registry,
// the default config, a per-session ingest limiter, a logger, and the
// live-frame broker backing the websocket endpoint.
type Server struct {
	registry *session.Registry
	cfg      *config.Features
	limiter  *ratelimit.Limiter
	logger   *zap.Logger
	broker   *Broker
}

// NewServer wires a Server from its dependencies. A nil cfg loads defaults.
func NewServer(registry *session.Registry, cfg *config.Features, limiter *ratelimit.Limiter, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg == nil {
		cfg, _ = config.Load()
	}
	return &Server{
		registry: registry,
		cfg:      cfg,
		limiter:  limiter,
		logger:   logger,
		broker:   NewBroker(),
	}
}

// NewRouter builds the full mux and wraps it with CORS + cache headers.
func NewRouter(s *Server) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/config", s.handleConfig)
	mux.HandleFunc("/api/session/list", s.handleSessionList)
	mux.HandleFunc("/api/session/create", s.handleSessionCreate)
	mux.HandleFunc("/api/session/chunk", s.handleSessionChunk)
	mux.HandleFunc("/api/session/flush", s.handleSessionFlush)
	mux.HandleFunc("/api/session/snapshot", s.handleSessionSnapshot)
	mux.HandleFunc("/api/session/close", s.handleSessionClose)
	mux.HandleFunc("/api/session/stream", s.handleSessionStream)
	mux.HandleFunc("/api/pipeline/run", s.handlePipelineRun)
	mux.HandleFunc("/api/pipeline/evaluate", s.handlePipelineEvaluate)

	return withCommonHeaders(mux, s)
}

func withCommonHeaders(next http.Handler, s *Server) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Cache-Control", "no-store")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		metrics.RequestsTotal.WithLabelValues(r.URL.Path, http.StatusText(rec.status)).Inc()
		s.logger.Debug("http request",
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", time.Since(start)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeOK(w http.ResponseWriter, fields map[string]any) {
	body := map[string]any{"ok": true}
	for k, v := range fields {
		body[k] = v
	}
	writeJSON(w, http.StatusOK, body)
}

func writeError(w http.ResponseWriter, status int, reason string) {
	writeJSON(w, status, map[string]any{"ok": false, "error": reason})
}

func nowMs() int64 {
	return time.Now().UnixMilli()
}
