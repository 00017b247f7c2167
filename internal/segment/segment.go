// Package segment implements the Segmentation Buffer: it holds pending
// chunks and decides, on each ingest, whether a semantic boundary has fired.
package segment

import (
	"strings"
	"unicode/utf8"

	"github.com/linlinlin-zhang/stream2graph/internal/chunk"
	"github.com/linlinlin-zhang/stream2graph/internal/tokenize"
)

// Reason names the boundary predicate that fired.
type Reason string

const (
	SilenceGap     Reason = "silence_gap"
	MaxWindowMs    Reason = "max_window_ms"
	SentenceEnd    Reason = "sentence_end"
	DiscourseMark  Reason = "discourse_marker"
	TokenBudget    Reason = "token_budget"
	StreamEnd      Reason = "stream_end"
)

const (
	minBoundaryTokens = 6
	maxWindowLimitMs  = int64(3800)
	silenceBoundaryMs = int64(1200)
	tokenBudgetPerK   = 18
)

var discourseMarkers = []string{"then", "next", "finally", "meanwhile", "然后", "接着", "另外", "最后"}

var sentenceEndings = []rune{'.', '!', '?', '。', '！', '？'}

// PendingSegment is the ordered, not-yet-dispatched chunk aggregate.
type PendingSegment struct {
	Chunks        []chunk.TranscriptChunk
	ArrivalWallMs []int64
	TokenCount    int
}

// Buffer holds at most one PendingSegment at a time.
type Buffer struct {
	pending     *PendingSegment
	lastChunkTs *int64
}

// NewBuffer returns an empty segmentation buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Empty reports whether there is no pending segment.
func (b *Buffer) Empty() bool {
	return b.pending == nil || len(b.pending.Chunks) == 0
}

// Ingest appends chunk c (dropping empty text), evaluates the boundary
// predicate, and reports whether a boundary fired and under what reason.
// currentWaitK is the wait-k controller's present value; soft boundaries
// only fire once the pending chunk count reaches it, while hard boundaries
// (silence_gap, max_window_ms) fire regardless. arrivalWallMs is the
// wall-clock read at ingest time, stamped for latency accounting.
func (b *Buffer) Ingest(c chunk.TranscriptChunk, currentWaitK int, arrivalWallMs int64) (Reason, bool) {
	text := strings.TrimSpace(c.Text)
	if text == "" {
		return "", false
	}
	c.Text = text

	var gapMs int64
	if b.lastChunkTs != nil {
		gapMs = c.TimestampMs - *b.lastChunkTs
		if gapMs < 0 {
			gapMs = 0
		}
	}
	ts := c.TimestampMs
	b.lastChunkTs = &ts

	if b.pending == nil {
		b.pending = &PendingSegment{}
	}
	b.pending.Chunks = append(b.pending.Chunks, c)
	b.pending.ArrivalWallMs = append(b.pending.ArrivalWallMs, arrivalWallMs)
	b.pending.TokenCount += len(tokenize.Tokenize(text))

	reason, fires := b.boundaryReason(c, gapMs, currentWaitK)
	if !fires {
		return "", false
	}
	if len(b.pending.Chunks) < currentWaitK && reason != MaxWindowMs && reason != SilenceGap {
		return "", false
	}
	return reason, true
}

// Flush reports stream_end if the buffer is non-empty.
func (b *Buffer) Flush() (Reason, bool) {
	if b.Empty() {
		return "", false
	}
	return StreamEnd, true
}

// Drain clears and returns the current pending segment. Callers must have
// just observed a boundary (via Ingest or Flush) before calling Drain.
func (b *Buffer) Drain() *PendingSegment {
	p := b.pending
	b.pending = nil
	return p
}

// boundaryReason evaluates the six-step boundary predicate in priority
// order: silence_gap and max_window_ms are hard boundaries; sentence_end,
// discourse_marker, and token_budget are soft.
func (b *Buffer) boundaryReason(latest chunk.TranscriptChunk, gapMs int64, currentWaitK int) (Reason, bool) {
	tokens := b.pending.TokenCount
	startMs := b.pending.Chunks[0].TimestampMs
	windowMs := latest.TimestampMs - startMs
	if windowMs < 0 {
		windowMs = 0
	}
	text := strings.TrimSpace(latest.Text)
	lower := strings.ToLower(text)

	if gapMs >= silenceBoundaryMs && tokens >= minBoundaryTokens {
		return SilenceGap, true
	}
	if windowMs >= maxWindowLimitMs {
		return MaxWindowMs, true
	}
	if endsInSentencePunct(text) && tokens >= minBoundaryTokens {
		return SentenceEnd, true
	}
	if startsWithDiscourseMarker(lower) && tokens >= minBoundaryTokens {
		return DiscourseMark, true
	}
	if tokens >= currentWaitK*tokenBudgetPerK {
		return TokenBudget, true
	}
	return "", false
}

func endsInSentencePunct(text string) bool {
	if text == "" {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(text)
	for _, e := range sentenceEndings {
		if r == e {
			return true
		}
	}
	return false
}

func startsWithDiscourseMarker(lower string) bool {
	for _, m := range discourseMarkers {
		if strings.HasPrefix(lower, m) {
			return true
		}
	}
	return false
}
