// Package chunk defines the TranscriptChunk wire/data model and the parsers
// that turn external transcript payloads (JSON, JSONL, or free-form text)
// into an ordered slice of chunks.
package chunk

import (
	"bufio"
	"encoding/json"
	"sort"
	"strings"
)

// DefaultIntervalMs is the spacing assigned to chunks that omit timestamp_ms,
// applied in arrival order.
const DefaultIntervalMs = 450

// TranscriptChunk is one unit of input: a timestamped, speaker-tagged
// fragment of already-recognized text.
type TranscriptChunk struct {
	TimestampMs     int64          `json:"timestamp_ms"`
	Text            string         `json:"text"`
	Speaker         string         `json:"speaker"`
	IsFinal         bool           `json:"is_final"`
	ExpectedIntent  *string        `json:"expected_intent,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

// wireChunk mirrors the raw JSON shape; fields are pointers/raw so we can
// tell "absent" apart from "zero value".
type wireChunk struct {
	TimestampMs    *int64         `json:"timestamp_ms"`
	Text           string         `json:"text"`
	Speaker        *string        `json:"speaker"`
	IsFinal        *bool          `json:"is_final"`
	ExpectedIntent *string        `json:"expected_intent"`
	Metadata       map[string]any `json:"metadata"`
}

func (w wireChunk) toChunk(autoTs *int64) (TranscriptChunk, bool) {
	text := strings.TrimSpace(w.Text)
	if text == "" {
		return TranscriptChunk{}, false
	}
	ts := *autoTs
	if w.TimestampMs != nil {
		ts = *w.TimestampMs
	} else {
		*autoTs += DefaultIntervalMs
	}
	speaker := "user"
	if w.Speaker != nil && *w.Speaker != "" {
		speaker = *w.Speaker
	}
	isFinal := true
	if w.IsFinal != nil {
		isFinal = *w.IsFinal
	}
	return TranscriptChunk{
		TimestampMs:    ts,
		Text:           text,
		Speaker:        speaker,
		IsFinal:        isFinal,
		ExpectedIntent: w.ExpectedIntent,
		Metadata:       w.Metadata,
	}, true
}

// ParseJSON decodes either a bare JSON array of chunk objects or an object
// with a top-level "chunks" array, applying the auto-timestamp rule to
// entries that omit timestamp_ms. The result is sorted by timestamp.
func ParseJSON(data []byte) ([]TranscriptChunk, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil, nil
	}

	var rows []wireChunk
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(data, &rows); err != nil {
			return nil, err
		}
	} else {
		var obj struct {
			Chunks []wireChunk `json:"chunks"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return nil, err
		}
		rows = obj.Chunks
	}

	return buildFromRows(rows), nil
}

// ParseJSONL decodes newline-delimited JSON chunk objects.
func ParseJSONL(data []byte) ([]TranscriptChunk, error) {
	var rows []wireChunk
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var row wireChunk
		if err := json.Unmarshal([]byte(line), &row); err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return buildFromRows(rows), nil
}

func buildFromRows(rows []wireChunk) []TranscriptChunk {
	var autoTs int64
	out := make([]TranscriptChunk, 0, len(rows))
	for _, row := range rows {
		c, ok := row.toChunk(&autoTs)
		if !ok {
			continue
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TimestampMs < out[j].TimestampMs })
	return out
}

// ParseFreeText accepts a newline-separated transcript where each line is
// one of: "text", "speaker|text", or "speaker|text|expected_intent". Lines
// are assigned timestamps at DefaultIntervalMs spacing in order.
func ParseFreeText(text string) []TranscriptChunk {
	lines := strings.Split(text, "\n")
	out := make([]TranscriptChunk, 0, len(lines))
	var ts int64
	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		parts := strings.Split(line, "|")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}

		var speaker, body string
		var expected *string
		switch len(parts) {
		case 1:
			speaker, body = "user", parts[0]
		case 2:
			speaker, body = parts[0], parts[1]
		default:
			speaker, body = parts[0], parts[1]
			if parts[2] != "" {
				e := parts[2]
				expected = &e
			}
		}
		if speaker == "" {
			speaker = "user"
		}
		if body == "" {
			continue
		}

		out = append(out, TranscriptChunk{
			TimestampMs:    ts,
			Text:           body,
			Speaker:        speaker,
			IsFinal:        true,
			ExpectedIntent: expected,
		})
		ts += DefaultIntervalMs
	}
	return out
}
