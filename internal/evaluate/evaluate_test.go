package evaluate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linlinlin-zhang/stream2graph/internal/chunk"
	"github.com/linlinlin-zhang/stream2graph/internal/session"
	"github.com/linlinlin-zhang/stream2graph/internal/waitk"
)

func buildPayload(t *testing.T) session.Payload {
	t.Helper()
	r := session.NewRegistry(nil)
	s := r.Create(waitk.DefaultBounds())
	ts := int64(0)
	for i := 0; i < 6; i++ {
		s.IngestChunk(chunk.TranscriptChunk{
			TimestampMs:    ts,
			Text:           "first capture sensor data then normalize and filter",
			ExpectedIntent: ptr("sequential"),
		}, ts, ts, ts, ts)
		ts += 500
	}
	return s.Flush(ts+10, ts+10, ts+11)
}

func ptr(s string) *string { return &s }

func TestEvaluate_MentalMapAndIntentChecksPass(t *testing.T) {
	payload := buildPayload(t)
	report := Evaluate(payload, DefaultThresholds())
	assert.True(t, report.Checks.MentalMapOk)
	assert.True(t, report.Checks.IntentAccuracyOk)
}

func TestEvaluate_NoLabelsIsNotAFailure(t *testing.T) {
	r := session.NewRegistry(nil)
	s := r.Create(waitk.DefaultBounds())
	s.IngestChunk(chunk.TranscriptChunk{TimestampMs: 0, Text: "gateway module connects to auth service."}, 0, 0, 0, 0)
	payload := s.Flush(10, 10, 11)

	report := Evaluate(payload, DefaultThresholds())
	assert.True(t, report.Checks.IntentAccuracyOk)
	assert.Nil(t, report.Metrics.IntentAccuracy)
}

func TestEvaluate_LatencyFailureIsIsolated(t *testing.T) {
	payload := buildPayload(t)
	thresholds := DefaultThresholds()
	thresholds.LatencyP95ThresholdMs = -1 // force failure regardless of actual latency
	report := Evaluate(payload, thresholds)

	require.False(t, report.Checks.LatencyP95Ok)
	assert.False(t, report.RealtimeEvalPass)
	assert.True(t, report.Checks.FlickerMeanOk)
	assert.True(t, report.Checks.MentalMapOk)
}

func TestMacroF1_PerfectPredictionsScoreOne(t *testing.T) {
	pairs := [][2]string{{"a", "a"}, {"b", "b"}, {"a", "a"}}
	f1 := macroF1Score(pairs)
	require.NotNil(t, f1)
	assert.Equal(t, 1.0, *f1)
}

func TestMacroF1_EmptyPairsReturnsNil(t *testing.T) {
	assert.Nil(t, macroF1Score(nil))
}

func TestMacroF1_MismatchScoresBelowOne(t *testing.T) {
	pairs := [][2]string{{"a", "b"}, {"b", "a"}}
	f1 := macroF1Score(pairs)
	require.NotNil(t, f1)
	assert.Less(t, *f1, 1.0)
}
