package httpapi

import (
	"github.com/linlinlin-zhang/stream2graph/internal/evaluate"
	"github.com/linlinlin-zhang/stream2graph/internal/waitk"
)

// waitKParams is the wire shape of the optional wait-k override fields
// accepted by /api/session/create and /api/pipeline/run.
type waitKParams struct {
	MinWaitK  *int `json:"min_wait_k"`
	BaseWaitK *int `json:"base_wait_k"`
	MaxWaitK  *int `json:"max_wait_k"`
}

func (p waitKParams) bounds(base waitk.Bounds) waitk.Bounds {
	b := base
	if p.MinWaitK != nil {
		b.Min = *p.MinWaitK
	}
	if p.BaseWaitK != nil {
		b.Base = *p.BaseWaitK
	}
	if p.MaxWaitK != nil {
		b.Max = *p.MaxWaitK
	}
	return b
}

// thresholdParams is the wire shape of optional evaluator threshold
// overrides accepted by /api/session/flush, /api/session/snapshot, and
// /api/pipeline/evaluate.
type thresholdParams struct {
	LatencyP95ThresholdMs *float64 `json:"latency_p95_threshold_ms"`
	FlickerMeanThreshold  *float64 `json:"flicker_mean_threshold"`
	MentalMapMin          *float64 `json:"mental_map_min"`
	IntentAccThreshold    *float64 `json:"intent_acc_threshold"`
}

func (p thresholdParams) apply(base evaluate.Thresholds) evaluate.Thresholds {
	t := base
	if p.LatencyP95ThresholdMs != nil {
		t.LatencyP95ThresholdMs = *p.LatencyP95ThresholdMs
	}
	if p.FlickerMeanThreshold != nil {
		t.FlickerMeanThreshold = *p.FlickerMeanThreshold
	}
	if p.MentalMapMin != nil {
		t.MentalMapMin = *p.MentalMapMin
	}
	if p.IntentAccThreshold != nil {
		t.IntentAccThreshold = *p.IntentAccThreshold
	}
	return t
}
