package session

import (
	"sort"
	"strings"

	"github.com/linlinlin-zhang/stream2graph/internal/chunk"
	"github.com/linlinlin-zhang/stream2graph/internal/graphop"
	"github.com/linlinlin-zhang/stream2graph/internal/intent"
	"github.com/linlinlin-zhang/stream2graph/internal/opsynth"
	"github.com/linlinlin-zhang/stream2graph/internal/segment"
	"github.com/linlinlin-zhang/stream2graph/internal/tokenize"
	"github.com/linlinlin-zhang/stream2graph/internal/waitk"
)

// Update is the output of the segmentation+intent+synthesis pipeline for
// one dispatched segment.
type Update struct {
	UpdateID            int                 `json:"update_id"`
	StartMs             int64               `json:"start_ms"`
	EndMs               int64               `json:"end_ms"`
	DurationMs          int64               `json:"duration_ms"`
	BoundaryReason      segment.Reason      `json:"boundary_reason"`
	IntentType          intent.Type         `json:"intent_type"`
	IntentConfidence    float64             `json:"intent_confidence"`
	WaitKUsed           int                 `json:"wait_k_used"`
	TokenCount          int                 `json:"token_count"`
	ChunkCount          int                 `json:"chunk_count"`
	Keywords            []string            `json:"keywords"`
	Operations          []graphop.Operation `json:"operations"`
	TranscriptText      string              `json:"transcript_text"`
	ProcessingLatencyMs int64               `json:"processing_latency_ms"`
}

// RuntimeReport mirrors a session pipeline's lifetime counters.
type RuntimeReport struct {
	UpdatesEmitted       int            `json:"updates_emitted"`
	CurrentWaitK         int            `json:"current_wait_k"`
	IntentDistribution   map[string]int `json:"intent_distribution"`
	BoundaryDistribution map[string]int `json:"boundary_distribution"`
	LatencyMs           statPack       `json:"latency_ms"`
	UpdateDurationMs    statPack       `json:"update_duration_ms"`
	TokensPerUpdate     statPack       `json:"tokens_per_update"`
}

type statPack struct {
	Count float64 `json:"count"`
	Mean  float64 `json:"mean"`
	P50   float64 `json:"p50"`
	P95   float64 `json:"p95"`
	Max   float64 `json:"max"`
}

// pipeline composes the segmentation buffer, intent classifier, wait-k
// controller, and operation synthesizer into the per-session streaming
// engine.
type pipeline struct {
	buf        *segment.Buffer
	classifier *intent.Classifier
	controller *waitk.Controller

	updateID int

	intentCounter   map[string]int
	boundaryCounter map[string]int
	latencySamples  []float64
	durationSamples []float64
	tokenSamples    []float64
}

func newPipeline(bounds waitk.Bounds) *pipeline {
	return &pipeline{
		buf:             segment.NewBuffer(),
		classifier:      intent.NewClassifier(),
		controller:      waitk.NewController(bounds),
		intentCounter:   make(map[string]int),
		boundaryCounter: make(map[string]int),
	}
}

// ingest feeds one transcript chunk through the buffer and, if a boundary
// fires, dispatches and returns the resulting update. arrivalWallMs and
// nowMs are wall-clock reads supplied by the caller so the pipeline itself
// never calls time.Now.
func (p *pipeline) ingest(c chunk.TranscriptChunk, arrivalWallMs, nowMs int64) (Update, bool) {
	reason, fires := p.buf.Ingest(c, p.controller.Current(), arrivalWallMs)
	if !fires {
		return Update{}, false
	}
	return p.dispatch(reason, nowMs), true
}

// flush dispatches whatever is pending as a stream_end update.
func (p *pipeline) flush(nowMs int64) (Update, bool) {
	reason, fires := p.buf.Flush()
	if !fires {
		return Update{}, false
	}
	return p.dispatch(reason, nowMs), true
}

func (p *pipeline) dispatch(reason segment.Reason, nowMs int64) Update {
	p.updateID++
	pending := p.buf.Drain()

	startMs := pending.Chunks[0].TimestampMs
	endMs := pending.Chunks[len(pending.Chunks)-1].TimestampMs
	durationMs := endMs - startMs
	if durationMs < 0 {
		durationMs = 0
	}

	var texts []string
	for _, ck := range pending.Chunks {
		t := strings.TrimSpace(ck.Text)
		if t != "" {
			texts = append(texts, t)
		}
	}
	joined := strings.Join(texts, " ")
	tokens := tokenize.Tokenize(joined)

	intentType, confidence, _ := p.classifier.Classify(joined)
	keywords := p.classifier.ExtractKeywords(joined, tokens)
	novelty := p.controller.Novelty(keywords)
	p.controller.Update(confidence, novelty, keywords)
	ops := opsynth.Synthesize(p.updateID, keywords, intentType)

	minArrival := pending.ArrivalWallMs[0]
	for _, a := range pending.ArrivalWallMs {
		if a < minArrival {
			minArrival = a
		}
	}
	latency := nowMs - minArrival
	if latency < 0 {
		latency = 0
	}

	p.intentCounter[string(intentType)]++
	p.boundaryCounter[string(reason)]++
	p.latencySamples = append(p.latencySamples, float64(latency))
	p.durationSamples = append(p.durationSamples, float64(durationMs))
	p.tokenSamples = append(p.tokenSamples, float64(len(tokens)))

	return Update{
		UpdateID:            p.updateID,
		StartMs:             startMs,
		EndMs:               endMs,
		DurationMs:          durationMs,
		BoundaryReason:      reason,
		IntentType:          intentType,
		IntentConfidence:    confidence,
		WaitKUsed:           p.controller.Current(),
		TokenCount:          len(tokens),
		ChunkCount:          len(pending.Chunks),
		Keywords:            keywords,
		Operations:          ops,
		TranscriptText:      joined,
		ProcessingLatencyMs: latency,
	}
}

func (p *pipeline) runtimeReport() RuntimeReport {
	return RuntimeReport{
		UpdatesEmitted:       p.updateID,
		CurrentWaitK:         p.controller.Current(),
		IntentDistribution:   copyCounter(p.intentCounter),
		BoundaryDistribution: copyCounter(p.boundaryCounter),
		LatencyMs:            buildStatPack(p.latencySamples),
		UpdateDurationMs:     buildStatPack(p.durationSamples),
		TokensPerUpdate:      buildStatPack(p.tokenSamples),
	}
}

func copyCounter(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func buildStatPack(values []float64) statPack {
	if len(values) == 0 {
		return statPack{}
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	p50 := medianSorted(sorted)
	p95 := pctl(sorted, 95.0)
	maxV := sorted[len(sorted)-1]

	return statPack{
		Count: float64(len(values)),
		Mean:  round3(mean),
		P50:   round3(p50),
		P95:   round3(p95),
		Max:   round3(maxV),
	}
}

// medianSorted expects an already-sorted slice; even-length samples average
// the two midpoints.
func medianSorted(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// pctl expects an already-sorted slice.
func pctl(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}
	idx := int(roundHalfEven(float64(len(sorted)-1) * p / 100.0))
	return sorted[idx]
}

func roundHalfEven(v float64) float64 {
	// Rounds halves up, not to even (an index of 9.5, from 11 samples at
	// p95, becomes 10); for the non-negative indices used here this matches
	// math.Round and the renderer's percentile.
	return float64(int64(v + 0.5))
}

func round3(v float64) float64 {
	return float64(int64(v*1000+0.5)) / 1000
}
