// Package session implements the Session Orchestrator: it owns a per-session
// streaming pipeline (segmentation, intent, wait-k, operation synthesis) and
// an incremental renderer, and exposes the create/ingest/flush/snapshot/
// close/list contract over an in-memory registry keyed by session id.
package session

import (
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/linlinlin-zhang/stream2graph/internal/chunk"
	"github.com/linlinlin-zhang/stream2graph/internal/render"
	"github.com/linlinlin-zhang/stream2graph/internal/waitk"
)

// defaultAutoIntervalMs mirrors chunk.DefaultIntervalMs for sessions fed one
// chunk at a time over the live HTTP surface, where no upstream parser has
// already stamped the arrival-order auto-timestamp.
const defaultAutoIntervalMs = chunk.DefaultIntervalMs

// ErrNotFound is returned when an operation references an unknown session id.
var ErrNotFound = errors.New("session: not found")

// sessionIDHexLen is the opaque session id length, in hex characters.
const sessionIDHexLen = 12

// NewID returns a fresh 12-hex-character session id, truncated from a v4
// UUID's hex digits.
func NewID() string {
	raw := strings.ReplaceAll(uuid.New().String(), "-", "")
	return raw[:sessionIDHexLen]
}

// Event is one entry in a session's append-only log.
type Event struct {
	Update        Update       `json:"update"`
	RenderFrame   render.Frame `json:"render_frame"`
	GoldIntent    *string      `json:"gold_intent"`
	IntentCorrect *bool        `json:"intent_correct"`
	RenderLatency int64        `json:"render_latency_ms"`
	E2ELatencyMs  float64      `json:"e2e_latency_ms"`
}

type labeledChunk struct {
	timestampMs    int64
	expectedIntent *string
}

// Meta is the mode/runtime-stats header of a pipeline payload.
type Meta struct {
	Mode                 string `json:"mode"`
	InputChunkCount      int    `json:"input_chunk_count"`
	TranscriptDurationMs int64  `json:"transcript_duration_ms"`
}

// Summary is the aggregate block of a pipeline payload.
type Summary struct {
	UpdatesEmitted            int            `json:"updates_emitted"`
	LatencyE2EMs              statPack       `json:"latency_e2e_ms"`
	LatencyUpdateMs           statPack       `json:"latency_update_ms"`
	LatencyRenderMs           statPack       `json:"latency_render_ms"`
	IntentLabeledEvalCount    int            `json:"intent_labeled_eval_count"`
	IntentLabeledAccuracy     *float64       `json:"intent_labeled_accuracy"`
	IntentRuntimeDistribution map[string]int `json:"intent_runtime_distribution"`
	BoundaryDistribution      map[string]int `json:"boundary_distribution"`
	RendererStability         render.Summary `json:"renderer_stability"`
}

// Payload is the full pipeline snapshot returned by snapshot() and flush().
type Payload struct {
	Meta          Meta          `json:"meta"`
	Summary       Summary       `json:"summary"`
	EngineReport  RuntimeReport `json:"engine_report"`
	RendererState render.State  `json:"renderer_state"`
	Events        []Event       `json:"events"`
}

// State is one active session: its pipeline, renderer, and logs. All
// mutation happens under mu, held for the full duration of a call, per the
// orchestrator's per-session exclusive-lock rule.
type State struct {
	mu sync.Mutex

	id       string
	pipeline *pipeline
	renderer *render.Renderer
	events   []Event
	labels   []labeledChunk
	closed   bool
	autoTsMs int64
}

// newState allocates a fresh engine+renderer+log under the given wait-k
// bounds.
func newState(id string, bounds waitk.Bounds) *State {
	return &State{
		id:       id,
		pipeline: newPipeline(bounds),
		renderer: render.New(),
	}
}

// NewDetached allocates a session not tracked by any Registry, for one-shot
// offline pipeline runs (the replay CLI and /api/pipeline/run) that don't
// need list/close semantics.
func NewDetached(bounds waitk.Bounds) *State {
	return newState(NewID(), bounds)
}

// ID returns the session's opaque identifier.
func (s *State) ID() string {
	return s.id
}

// AutoTimestamp resolves the timestamp for a live-pushed chunk. When ts is
// non-nil it is used as-is and the auto-assignment baseline advances past
// it; when nil, it returns the next value in the session's 450ms-interval
// arrival-order sequence.
func (s *State) AutoTimestamp(ts *int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ts != nil {
		if next := *ts + defaultAutoIntervalMs; next > s.autoTsMs {
			s.autoTsMs = next
		}
		return *ts
	}
	out := s.autoTsMs
	s.autoTsMs += defaultAutoIntervalMs
	return out
}

// IngestChunk forwards a chunk into the buffer, renders every produced
// update, and appends matching events. arrivalWallMs, nowMs, and the two
// render stamps are wall-clock reads supplied by the caller (the only place allowed to touch
// the clock, per the concurrency model).
func (s *State) IngestChunk(c chunk.TranscriptChunk, arrivalWallMs, nowMs, renderWallBeforeMs, renderWallAfterMs int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	s.labels = append(s.labels, labeledChunk{timestampMs: c.TimestampMs, expectedIntent: c.ExpectedIntent})

	update, fired := s.pipeline.ingest(c, arrivalWallMs, nowMs)
	if !fired {
		return
	}
	s.recordUpdate(update, renderWallAfterMs-renderWallBeforeMs)
}

// Flush dispatches any tail segment as stream_end, renders it if present,
// and returns the full pipeline payload.
func (s *State) Flush(nowMs, renderWallBeforeMs, renderWallAfterMs int64) Payload {
	s.mu.Lock()
	defer s.mu.Unlock()

	update, fired := s.pipeline.flush(nowMs)
	if fired {
		s.recordUpdate(update, renderWallAfterMs-renderWallBeforeMs)
	}
	return s.snapshotLocked()
}

// Snapshot returns the current pipeline payload without mutating state.
func (s *State) Snapshot() Payload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Close marks the session closed; further ingest calls are no-ops.
func (s *State) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

// Closed reports whether the session has been closed.
func (s *State) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// recordUpdate renders the given update, computes the gold label, and
// appends the resulting event. Must be called with mu held.
func (s *State) recordUpdate(update Update, renderWallMs int64) {
	frame := s.renderer.ApplyUpdate(update.UpdateID, update.Operations, string(update.IntentType))

	gold := s.majorityGoldLabel(update.StartMs, update.EndMs)
	var intentCorrect *bool
	if gold != nil {
		correct := *gold == string(update.IntentType)
		intentCorrect = &correct
	}

	e2e := float64(update.ProcessingLatencyMs + renderWallMs)
	s.events = append(s.events, Event{
		Update:        update,
		RenderFrame:   frame,
		GoldIntent:    gold,
		IntentCorrect: intentCorrect,
		RenderLatency: renderWallMs,
		E2ELatencyMs:  e2e,
	})
}

// majorityGoldLabel returns the mode of expected_intent among labeled
// chunks whose timestamp falls in [startMs, endMs], or nil if none.
func (s *State) majorityGoldLabel(startMs, endMs int64) *string {
	counts := make(map[string]int)
	var order []string
	for _, lc := range s.labels {
		if lc.expectedIntent == nil {
			continue
		}
		if lc.timestampMs < startMs || lc.timestampMs > endMs {
			continue
		}
		label := *lc.expectedIntent
		if _, seen := counts[label]; !seen {
			order = append(order, label)
		}
		counts[label]++
	}
	if len(counts) == 0 {
		return nil
	}
	best := order[0]
	bestCount := counts[best]
	for _, label := range order[1:] {
		if counts[label] > bestCount {
			best = label
			bestCount = counts[label]
		}
	}
	return &best
}

func (s *State) snapshotLocked() Payload {
	var e2e, upd, rend []float64
	for _, ev := range s.events {
		e2e = append(e2e, ev.E2ELatencyMs)
		upd = append(upd, float64(ev.Update.ProcessingLatencyMs))
		rend = append(rend, float64(ev.RenderLatency))
	}

	labeledCount := 0
	labeledCorrect := 0
	for _, ev := range s.events {
		if ev.IntentCorrect != nil {
			labeledCount++
			if *ev.IntentCorrect {
				labeledCorrect++
			}
		}
	}
	var accuracy *float64
	if labeledCount > 0 {
		a := round3(float64(labeledCorrect) / float64(labeledCount))
		accuracy = &a
	}

	var transcriptDuration int64
	if len(s.labels) > 0 {
		first := s.labels[0].timestampMs
		last := s.labels[len(s.labels)-1].timestampMs
		transcriptDuration = last - first
		if transcriptDuration < 0 {
			transcriptDuration = 0
		}
	}

	report := s.pipeline.runtimeReport()

	return Payload{
		Meta: Meta{
			Mode:                 "session",
			InputChunkCount:      len(s.labels),
			TranscriptDurationMs: transcriptDuration,
		},
		Summary: Summary{
			UpdatesEmitted:            len(s.events),
			LatencyE2EMs:              buildStatPack(e2e),
			LatencyUpdateMs:           buildStatPack(upd),
			LatencyRenderMs:           buildStatPack(rend),
			IntentLabeledEvalCount:    labeledCount,
			IntentLabeledAccuracy:     accuracy,
			IntentRuntimeDistribution: report.IntentDistribution,
			BoundaryDistribution:      report.BoundaryDistribution,
			RendererStability:         s.renderer.Summary(),
		},
		EngineReport:  report,
		RendererState: s.renderer.ExportState(),
		Events:        append([]Event(nil), s.events...),
	}
}
