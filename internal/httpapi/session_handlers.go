package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/linlinlin-zhang/stream2graph/internal/chunk"
	"github.com/linlinlin-zhang/stream2graph/internal/evaluate"
	"github.com/linlinlin-zhang/stream2graph/internal/metrics"
	"github.com/linlinlin-zhang/stream2graph/internal/tracing"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusBadRequest, "method not allowed")
		return
	}
	writeOK(w, map[string]any{
		"service":         "stream2graph",
		"sessions_active": s.registry.Count(),
	})
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusBadRequest, "method not allowed")
		return
	}
	writeOK(w, map[string]any{
		"thresholds":            s.cfg.Thresholds,
		"wait_k":                s.cfg.WaitK,
		"transcript_source_hint": "json|jsonl|free_text",
	})
}

func (s *Server) handleSessionList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusBadRequest, "method not allowed")
		return
	}
	type row struct {
		SessionID      string `json:"session_id"`
		ChunkCount     int    `json:"chunk_count"`
		UpdatesEmitted int    `json:"updates_emitted"`
	}
	ids := s.registry.List()
	rows := make([]row, 0, len(ids))
	for _, id := range ids {
		st, err := s.registry.Get(id)
		if err != nil {
			continue
		}
		snap := st.Snapshot()
		rows = append(rows, row{
			SessionID:      id,
			ChunkCount:     snap.Meta.InputChunkCount,
			UpdatesEmitted: snap.Summary.UpdatesEmitted,
		})
	}
	writeOK(w, map[string]any{"sessions": rows})
}

func (s *Server) handleSessionCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusBadRequest, "method not allowed")
		return
	}
	var req waitKParams
	if !decodeOptionalBody(w, r, &req) {
		return
	}
	bounds := req.bounds(s.cfg.Bounds())
	st := s.registry.Create(bounds)
	metrics.SessionsCreated.Inc()
	metrics.SessionsActive.Set(float64(s.registry.Count()))
	writeOK(w, map[string]any{
		"session_id": st.ID(),
		"config":     bounds,
	})
}

type chunkRequest struct {
	SessionID      string  `json:"session_id"`
	Text           string  `json:"text"`
	TimestampMs    *int64  `json:"timestamp_ms"`
	Speaker        *string `json:"speaker"`
	IsFinal        *bool   `json:"is_final"`
	ExpectedIntent *string `json:"expected_intent"`
}

func (s *Server) handleSessionChunk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusBadRequest, "method not allowed")
		return
	}
	var req chunkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		writeError(w, http.StatusBadRequest, "text must not be empty")
		return
	}
	st, err := s.registry.Get(req.SessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}
	if s.limiter != nil && !s.limiter.Allow(req.SessionID) {
		writeError(w, http.StatusTooManyRequests, "ingest rate limit exceeded")
		return
	}

	_, span := tracing.StartSpan(r.Context(), "ingest_chunk", req.SessionID)
	defer span.End()

	c := chunk.TranscriptChunk{
		Text:           text,
		TimestampMs:    st.AutoTimestamp(req.TimestampMs),
		Speaker:        "user",
		IsFinal:        true,
		ExpectedIntent: req.ExpectedIntent,
	}
	if req.Speaker != nil && *req.Speaker != "" {
		c.Speaker = *req.Speaker
	}
	if req.IsFinal != nil {
		c.IsFinal = *req.IsFinal
	}

	before := st.Snapshot().Summary.UpdatesEmitted
	arrival := nowMs()
	renderBefore := nowMs()
	st.IngestChunk(c, arrival, arrival, renderBefore, nowMs())
	metrics.ChunksIngested.Inc()

	snap := st.Snapshot()
	emitted := snap.Summary.UpdatesEmitted - before
	if emitted > 0 {
		ev := snap.Events[len(snap.Events)-1]
		metrics.UpdatesEmitted.WithLabelValues(string(ev.Update.BoundaryReason)).Inc()
		metrics.IntentDistribution.WithLabelValues(string(ev.Update.IntentType)).Inc()
		metrics.ProcessingLatencyMs.Observe(float64(ev.Update.ProcessingLatencyMs))
		metrics.RenderLatencyMs.Observe(float64(ev.RenderLatency))
		metrics.WaitKCurrent.Observe(float64(ev.Update.WaitKUsed))
		metrics.FlickerIndex.Observe(ev.RenderFrame.FlickerIndex)
		metrics.MentalMapScore.Observe(ev.RenderFrame.MentalMapScore)
		s.broker.Publish(req.SessionID, ev)
	}

	writeOK(w, map[string]any{
		"emitted_events": emitted,
		"session_summary": snap.Summary,
		"events_total":    len(snap.Events),
	})
}

type flushRequest struct {
	SessionID       string `json:"session_id"`
	CloseAfterFlush *bool  `json:"close_after_flush"`
	thresholdParams
}

// closeAfterFlush defaults to true; an explicit false keeps the session
// open after its tail segment is dispatched.
func (r flushRequest) closeAfterFlush() bool {
	if r.CloseAfterFlush == nil {
		return true
	}
	return *r.CloseAfterFlush
}

func (s *Server) handleSessionFlush(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusBadRequest, "method not allowed")
		return
	}
	var req flushRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}
	st, err := s.registry.Get(req.SessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}

	_, span := tracing.StartSpan(r.Context(), "flush", req.SessionID)
	defer span.End()

	before := st.Snapshot().Summary.UpdatesEmitted
	t := nowMs()
	snap := st.Flush(t, t, nowMs())
	emitted := snap.Summary.UpdatesEmitted - before
	if emitted > 0 {
		ev := snap.Events[len(snap.Events)-1]
		metrics.UpdatesEmitted.WithLabelValues(string(ev.Update.BoundaryReason)).Inc()
		metrics.IntentDistribution.WithLabelValues(string(ev.Update.IntentType)).Inc()
		metrics.ProcessingLatencyMs.Observe(float64(ev.Update.ProcessingLatencyMs))
		metrics.RenderLatencyMs.Observe(float64(ev.RenderLatency))
		metrics.WaitKCurrent.Observe(float64(ev.Update.WaitKUsed))
		metrics.FlickerIndex.Observe(ev.RenderFrame.FlickerIndex)
		metrics.MentalMapScore.Observe(ev.RenderFrame.MentalMapScore)
		s.broker.Publish(req.SessionID, ev)
	}

	closed := false
	if req.closeAfterFlush() {
		_ = s.registry.Close(req.SessionID)
		if s.limiter != nil {
			s.limiter.Forget(req.SessionID)
		}
		metrics.SessionsActive.Set(float64(s.registry.Count()))
		closed = true
	}

	thresholds := req.thresholdParams.apply(s.cfg.Thresholds)
	writeOK(w, map[string]any{
		"emitted_events": emitted,
		"pipeline":       snap,
		"evaluation":     evaluate.Evaluate(snap, thresholds),
		"closed":         closed,
	})
}

type snapshotRequest struct {
	SessionID         string `json:"session_id"`
	IncludeEvaluation bool   `json:"include_evaluation"`
	thresholdParams
}

func (s *Server) handleSessionSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusBadRequest, "method not allowed")
		return
	}
	var req snapshotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}
	st, err := s.registry.Get(req.SessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}

	_, span := tracing.StartSpan(r.Context(), "snapshot", req.SessionID)
	defer span.End()

	snap := st.Snapshot()
	fields := map[string]any{"pipeline": snap}
	if req.IncludeEvaluation {
		thresholds := req.thresholdParams.apply(s.cfg.Thresholds)
		fields["evaluation"] = evaluate.Evaluate(snap, thresholds)
	}
	writeOK(w, fields)
}

type closeRequest struct {
	SessionID string `json:"session_id"`
}

func (s *Server) handleSessionClose(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusBadRequest, "method not allowed")
		return
	}
	var req closeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}
	if err := s.registry.Close(req.SessionID); err != nil {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}
	if s.limiter != nil {
		s.limiter.Forget(req.SessionID)
	}
	metrics.SessionsActive.Set(float64(s.registry.Count()))
	writeOK(w, map[string]any{"closed": true})
}

// decodeOptionalBody decodes a possibly-empty request body; an empty body
// is not an error (every field of dst stays at its zero value).
func decodeOptionalBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return false
	}
	return true
}
