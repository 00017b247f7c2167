package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linlinlin-zhang/stream2graph/internal/chunk"
	"github.com/linlinlin-zhang/stream2graph/internal/waitk"
)

func expect(s string) *string { return &s }

func TestNewID_Is12HexChars(t *testing.T) {
	id := NewID()
	assert.Len(t, id, 12)
	for _, r := range id {
		assert.True(t, (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f'))
	}
}

func TestSequentialChainScenario(t *testing.T) {
	s := newState("test", waitk.DefaultBounds())
	// The two tail chunks restate the topic of the preceding segment, so the
	// final update's keyword set overlaps the previous one enough that the
	// controller holds k at base instead of narrowing on a topic jump.
	texts := []struct {
		ts   int64
		text string
	}{
		{0, "first capture sensor data"},
		{450, "then normalize and filter"},
		{900, "next compute feature windows"},
		{1400, "finally write result."},
		{1850, "then compute feature windows again"},
		{2300, "finally write the result fully."},
	}
	for _, tc := range texts {
		s.IngestChunk(chunk.TranscriptChunk{TimestampMs: tc.ts, Text: tc.text}, tc.ts, tc.ts, tc.ts, tc.ts)
	}
	payload := s.Flush(2800, 2800, 2801)

	require.NotEmpty(t, payload.Events)
	last := payload.Events[len(payload.Events)-1]
	assert.GreaterOrEqual(t, last.Update.WaitKUsed, 2)

	foundSequential := false
	foundChainEdge := false
	for _, ev := range payload.Events {
		if string(ev.Update.IntentType) == "sequential" {
			foundSequential = true
			assert.Contains(t, []string{"discourse_marker", "sentence_end", "stream_end"}, string(ev.Update.BoundaryReason))
			for _, op := range ev.Update.Operations {
				if op.Op == "add_edge" {
					foundChainEdge = true
				}
			}
		}
	}
	assert.True(t, foundSequential)
	assert.True(t, foundChainEdge)
}

func TestStructuralHubScenario(t *testing.T) {
	s := newState("test", waitk.DefaultBounds())
	s.IngestChunk(chunk.TranscriptChunk{TimestampMs: 0, Text: "gateway module connects to auth service and data service."}, 0, 0, 0, 0)
	payload := s.Flush(10, 10, 11)

	require.Len(t, payload.Events, 1)
	ev := payload.Events[0]
	assert.Equal(t, "structural", string(ev.Update.IntentType))

	hub := ev.Update.Operations[0].ID
	edgeCount := 0
	for _, op := range ev.Update.Operations {
		if op.Op == "add_edge" {
			edgeCount++
			assert.Equal(t, hub, op.From)
		}
	}
	assert.Greater(t, edgeCount, 0)
}

func TestSilenceInducedSplitScenario(t *testing.T) {
	// The boundary predicate gates silence_gap on the pending token count
	// after the gap-ending chunk joins it, so a gap that closes a segment
	// drains everything accumulated so far together.
	// A third chunk after the gap then becomes its own stream_end update.
	s := newState("test", waitk.DefaultBounds())
	s.IngestChunk(chunk.TranscriptChunk{TimestampMs: 0, Text: "the payment module handles refunds today in full detail"}, 0, 0, 0, 0)
	s.IngestChunk(chunk.TranscriptChunk{TimestampMs: 2000, Text: "short update"}, 2000, 2000, 2000, 2000)
	s.IngestChunk(chunk.TranscriptChunk{TimestampMs: 2100, Text: "the ledger service records transactions for audit"}, 2100, 2100, 2100, 2100)
	payload := s.Flush(5000, 5000, 5001)

	require.Len(t, payload.Events, 2)
	assert.Equal(t, "silence_gap", string(payload.Events[0].Update.BoundaryReason))
	assert.Equal(t, "stream_end", string(payload.Events[1].Update.BoundaryReason))
}

func TestRendererStabilityScenario(t *testing.T) {
	s := newState("test", waitk.DefaultBounds())
	chunks := []struct {
		ts   int64
		text string
	}{
		{0, "first capture sensor data"},
		{450, "then normalize and filter"},
		{900, "next compute feature windows"},
		{1400, "finally write result."},
	}
	for _, c := range chunks {
		s.IngestChunk(chunk.TranscriptChunk{TimestampMs: c.ts, Text: c.text}, c.ts, c.ts, c.ts, c.ts)
	}
	payload := s.Flush(2000, 2000, 2001)

	for i, ev := range payload.Events {
		if i == 0 {
			continue
		}
		assert.Equal(t, 0.0, ev.RenderFrame.UnchangedMaxDrift)
	}
}

func TestIntentAccuracyReporting(t *testing.T) {
	s := newState("test", waitk.DefaultBounds())
	phrases := []string{
		"first capture sensor data",
		"then normalize and filter",
		"next compute feature windows",
		"finally write the result",
		"first again we start",
		"then continue the flow",
		"next step in the loop",
		"finally end this segment.",
		"then another sequential cue",
		"finally close the stream.",
	}
	ts := int64(0)
	for _, p := range phrases {
		s.IngestChunk(chunk.TranscriptChunk{TimestampMs: ts, Text: p, ExpectedIntent: expect("sequential")}, ts, ts, ts, ts)
		ts += 450
	}
	payload := s.Flush(ts+100, ts+100, ts+101)

	require.GreaterOrEqual(t, payload.Summary.IntentLabeledEvalCount, 1)
	require.NotNil(t, payload.Summary.IntentLabeledAccuracy)
	assert.Equal(t, 1.0, *payload.Summary.IntentLabeledAccuracy)
}

func TestFlushMonotonicity_SecondFlushYieldsNoNewUpdate(t *testing.T) {
	s := newState("test", waitk.DefaultBounds())
	s.IngestChunk(chunk.TranscriptChunk{TimestampMs: 0, Text: "a lone partial phrase"}, 0, 0, 0, 0)
	first := s.Flush(10, 10, 11)
	require.Len(t, first.Events, 1)

	second := s.Flush(20, 20, 21)
	assert.Equal(t, len(first.Events), len(second.Events))
}

func TestSnapshot_IdempotentWithoutIngest(t *testing.T) {
	s := newState("test", waitk.DefaultBounds())
	s.IngestChunk(chunk.TranscriptChunk{TimestampMs: 0, Text: "gateway module connects to auth service."}, 0, 0, 0, 0)
	a := s.Snapshot()
	b := s.Snapshot()
	assert.Equal(t, a.Summary.UpdatesEmitted, b.Summary.UpdatesEmitted)
	assert.Equal(t, a.RendererState, b.RendererState)
	assert.Equal(t, len(a.Events), len(b.Events))
}

func TestUpdateIDsAreDenseAndIncreasing(t *testing.T) {
	s := newState("test", waitk.DefaultBounds())
	ts := int64(0)
	for i := 0; i < 5; i++ {
		s.IngestChunk(chunk.TranscriptChunk{TimestampMs: ts, Text: "first then next finally step loop if else while start."}, ts, ts, ts, ts)
		ts += 5000
	}
	payload := s.Snapshot()
	for i, ev := range payload.Events {
		assert.Equal(t, i+1, ev.Update.UpdateID)
	}
}

func TestAutoTimestamp_AssignsAtFixedIntervalWhenOmitted(t *testing.T) {
	s := newState("test", waitk.DefaultBounds())
	assert.Equal(t, int64(0), s.AutoTimestamp(nil))
	assert.Equal(t, int64(defaultAutoIntervalMs), s.AutoTimestamp(nil))
	assert.Equal(t, int64(2*defaultAutoIntervalMs), s.AutoTimestamp(nil))
}

func TestAutoTimestamp_ExplicitValueAdvancesBaseline(t *testing.T) {
	s := newState("test", waitk.DefaultBounds())
	assert.Equal(t, int64(5000), s.AutoTimestamp(func() *int64 { v := int64(5000); return &v }()))
	assert.Equal(t, int64(5000+defaultAutoIntervalMs), s.AutoTimestamp(nil))
}

func TestBuildStatPack_P50IsMedianOnEvenSample(t *testing.T) {
	sp := buildStatPack([]float64{10, 20})
	assert.Equal(t, 15.0, sp.P50)
	assert.NotEqual(t, pctl([]float64{10, 20}, 50.0), sp.P50)
	assert.Equal(t, 20.0, sp.P95)
}

func TestRegistry_CreateGetCloseList(t *testing.T) {
	r := NewRegistry(nil)
	s1 := r.Create(waitk.DefaultBounds())
	s2 := r.Create(waitk.DefaultBounds())

	assert.Len(t, r.List(), 2)

	got, err := r.Get(s1.ID())
	require.NoError(t, err)
	assert.Equal(t, s1, got)

	require.NoError(t, r.Close(s1.ID()))
	assert.Len(t, r.List(), 1)
	assert.Equal(t, []string{s2.ID()}, r.List())

	_, err = r.Get(s1.ID())
	assert.ErrorIs(t, err, ErrNotFound)
}
