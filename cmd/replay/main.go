// Command replay drives a transcript file through the offline pipeline and
// prints the resulting pipeline payload as JSON. Feeding the same chunks
// through the live session surface one at a time, then flushing, yields the
// same update sequence this tool produces in one pass.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/linlinlin-zhang/stream2graph/internal/chunk"
	"github.com/linlinlin-zhang/stream2graph/internal/evaluate"
	"github.com/linlinlin-zhang/stream2graph/internal/session"
	"github.com/linlinlin-zhang/stream2graph/internal/waitk"
)

func main() {
	path := flag.String("transcript", "", "path to a JSON/JSONL chunk array or free-text transcript file")
	format := flag.String("format", "auto", "input format: json, jsonl, text, or auto (detect from extension)")
	evalFlag := flag.Bool("evaluate", false, "also run the evaluator against default thresholds")
	realtime := flag.Bool("realtime", false, "pace ingestion by the transcript-clock gaps between chunks")
	timeScale := flag.Float64("time-scale", 1.0, "replay speed divisor when -realtime is set (>1 is faster than realtime)")
	maxChunks := flag.Int("max-chunks", 0, "ingest at most this many chunks (0 = all)")
	baseK := flag.Int("base-wait-k", 2, "base wait-k")
	minK := flag.Int("min-wait-k", 1, "minimum wait-k")
	maxK := flag.Int("max-wait-k", 4, "maximum wait-k")
	flag.Parse()

	if *path == "" {
		fmt.Fprintln(os.Stderr, "usage: replay -transcript /path/to/file [-format json|jsonl|text] [-evaluate]")
		os.Exit(2)
	}

	data, err := os.ReadFile(*path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read %s: %v\n", *path, err)
		os.Exit(1)
	}

	chunks, err := parseInput(*path, *format, data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse %s: %v\n", *path, err)
		os.Exit(1)
	}

	if *maxChunks > 0 && len(chunks) > *maxChunks {
		chunks = chunks[:*maxChunks]
	}
	scale := *timeScale
	if scale <= 0 {
		scale = 1.0
	}

	bounds := waitk.Bounds{Min: *minK, Base: *baseK, Max: *maxK}
	st := session.NewDetached(bounds)

	var haveLast bool
	var lastTs int64
	for _, c := range chunks {
		if *realtime && haveLast {
			if gap := c.TimestampMs - lastTs; gap > 0 {
				time.Sleep(time.Duration(float64(gap)/scale) * time.Millisecond)
			}
		}
		lastTs = c.TimestampMs
		haveLast = true

		now := time.Now().UnixMilli()
		st.IngestChunk(c, now, now, now, time.Now().UnixMilli())
	}
	now := time.Now().UnixMilli()
	payload := st.Flush(now, now, time.Now().UnixMilli())

	out := map[string]any{"pipeline_result": payload}
	if *evalFlag {
		out["evaluation"] = evaluate.Evaluate(payload, evaluate.DefaultThresholds())
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintf(os.Stderr, "encode result: %v\n", err)
		os.Exit(1)
	}
}

func parseInput(path, format string, data []byte) ([]chunk.TranscriptChunk, error) {
	f := format
	if f == "auto" {
		switch {
		case strings.HasSuffix(path, ".jsonl"):
			f = "jsonl"
		case strings.HasSuffix(path, ".json"):
			f = "json"
		default:
			f = "text"
		}
	}
	switch f {
	case "json":
		return chunk.ParseJSON(data)
	case "jsonl":
		return chunk.ParseJSONL(data)
	case "text":
		return chunk.ParseFreeText(string(data)), nil
	default:
		return nil, fmt.Errorf("unknown format %q", f)
	}
}
