package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/linlinlin-zhang/stream2graph/internal/chunk"
	"github.com/linlinlin-zhang/stream2graph/internal/evaluate"
	"github.com/linlinlin-zhang/stream2graph/internal/session"
	"github.com/linlinlin-zhang/stream2graph/internal/waitk"
)

type pipelineRunRequest struct {
	Chunks         json.RawMessage `json:"chunks"`
	TranscriptText *string         `json:"transcript_text"`
	Realtime       bool            `json:"realtime"`
	TimeScale      float64         `json:"time_scale"`
	MaxChunks      int             `json:"max_chunks"`
	waitKParams
	thresholdParams
}

// resolveChunks accepts either a JSON chunks array (parsed by
// chunk.ParseJSON; JSONL text is not accepted here) or a free-form
// transcript_text field, never both required.
func resolveChunks(req pipelineRunRequest) ([]chunk.TranscriptChunk, error) {
	if len(req.Chunks) > 0 {
		return chunk.ParseJSON(req.Chunks)
	}
	if req.TranscriptText != nil {
		return chunk.ParseFreeText(*req.TranscriptText), nil
	}
	return nil, errors.New("chunks or transcript_text is required")
}

// runPipeline drives a detached session through chunks, honoring the
// realtime/time_scale replay option (wall-clock delay proportional to the
// transcript-clock gap, divided by time_scale), and returns its final
// pipeline payload.
func runPipeline(req pipelineRunRequest, chunks []chunk.TranscriptChunk, bounds waitk.Bounds) session.Payload {
	if req.MaxChunks > 0 && len(chunks) > req.MaxChunks {
		chunks = chunks[:req.MaxChunks]
	}
	timeScale := req.TimeScale
	if timeScale <= 0 {
		timeScale = 1.0
	}

	st := session.NewDetached(bounds)

	var haveLast bool
	var lastTs int64
	for _, c := range chunks {
		if req.Realtime && haveLast {
			gap := c.TimestampMs - lastTs
			if gap > 0 {
				time.Sleep(time.Duration(float64(gap)/timeScale) * time.Millisecond)
			}
		}
		lastTs = c.TimestampMs
		haveLast = true

		arrival := nowMs()
		renderBefore := nowMs()
		st.IngestChunk(c, arrival, arrival, renderBefore, nowMs())
	}

	t := nowMs()
	return st.Flush(t, t, nowMs())
}

func (s *Server) handlePipelineRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusBadRequest, "method not allowed")
		return
	}
	var req pipelineRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	chunks, err := resolveChunks(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	bounds := req.waitKParams.bounds(s.cfg.Bounds())
	result := runPipeline(req, chunks, bounds)
	writeOK(w, map[string]any{"result": result})
}

func (s *Server) handlePipelineEvaluate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusBadRequest, "method not allowed")
		return
	}
	var req pipelineRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	chunks, err := resolveChunks(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	bounds := req.waitKParams.bounds(s.cfg.Bounds())
	result := runPipeline(req, chunks, bounds)
	thresholds := req.thresholdParams.apply(s.cfg.Thresholds)
	writeOK(w, map[string]any{
		"pipeline":   result,
		"evaluation": evaluate.Evaluate(result, thresholds),
	})
}
