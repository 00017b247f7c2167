// Package evaluate implements the Evaluator: a pure function over a
// session's pipeline payload and four thresholds, reporting pass/fail
// checks plus macro-F1 over labeled intent predictions.
package evaluate

import (
	"sort"

	"github.com/linlinlin-zhang/stream2graph/internal/session"
)

// Thresholds are the four configurable pass/fail bars.
type Thresholds struct {
	LatencyP95ThresholdMs float64 `mapstructure:"latency_p95_threshold_ms"`
	FlickerMeanThreshold  float64 `mapstructure:"flicker_mean_threshold"`
	MentalMapMin          float64 `mapstructure:"mental_map_min"`
	IntentAccThreshold    float64 `mapstructure:"intent_acc_threshold"`
}

// DefaultThresholds returns the stock threshold values.
func DefaultThresholds() Thresholds {
	return Thresholds{
		LatencyP95ThresholdMs: 2000.0,
		FlickerMeanThreshold:  6.0,
		MentalMapMin:          0.85,
		IntentAccThreshold:    0.80,
	}
}

// Checks is the per-criterion pass/fail breakdown.
type Checks struct {
	LatencyP95Ok      bool `json:"latency_p95_ok"`
	FlickerMeanOk     bool `json:"flicker_mean_ok"`
	MentalMapOk       bool `json:"mental_map_ok"`
	IntentAccuracyOk  bool `json:"intent_accuracy_ok"`
}

// Metrics is the raw numbers behind the checks, for reporting.
type Metrics struct {
	E2ELatencyP95Ms       float64  `json:"e2e_latency_p95_ms"`
	FlickerMean           float64  `json:"flicker_mean"`
	MentalMapMean         float64  `json:"mental_map_mean"`
	IntentAccuracy        *float64 `json:"intent_accuracy"`
	IntentMacroF1         *float64 `json:"intent_macro_f1"`
	UpdatesEmitted        int      `json:"updates_emitted"`
	IntentLabeledEvalCount int     `json:"intent_labeled_eval_count"`
}

// Report is the Evaluator's output.
type Report struct {
	RealtimeEvalPass bool       `json:"realtime_eval_pass"`
	Checks           Checks     `json:"checks"`
	Thresholds       Thresholds `json:"thresholds"`
	Metrics          Metrics    `json:"metrics"`
}

// Evaluate scores a pipeline payload against thresholds. It never mutates
// the payload and never touches the clock: it is a pure function.
func Evaluate(payload session.Payload, t Thresholds) Report {
	e2eP95 := payload.Summary.LatencyE2EMs.P95
	flickerMean := payload.Summary.RendererStability.FlickerIndex.Mean
	mentalMean := payload.Summary.RendererStability.MentalMapScore.Mean
	intentAcc := payload.Summary.IntentLabeledAccuracy

	checks := Checks{
		LatencyP95Ok:     e2eP95 <= t.LatencyP95ThresholdMs,
		FlickerMeanOk:    flickerMean <= t.FlickerMeanThreshold,
		MentalMapOk:      mentalMean >= t.MentalMapMin,
		IntentAccuracyOk: intentAcc == nil || *intentAcc >= t.IntentAccThreshold,
	}
	overall := checks.LatencyP95Ok && checks.FlickerMeanOk && checks.MentalMapOk && checks.IntentAccuracyOk

	macroF1 := macroF1Score(collectPairs(payload.Events))

	return Report{
		RealtimeEvalPass: overall,
		Checks:           checks,
		Thresholds:       t,
		Metrics: Metrics{
			E2ELatencyP95Ms:        e2eP95,
			FlickerMean:            flickerMean,
			MentalMapMean:          mentalMean,
			IntentAccuracy:         intentAcc,
			IntentMacroF1:          macroF1,
			UpdatesEmitted:         payload.Summary.UpdatesEmitted,
			IntentLabeledEvalCount: payload.Summary.IntentLabeledEvalCount,
		},
	}
}

func collectPairs(events []session.Event) [][2]string {
	var pairs [][2]string
	for _, e := range events {
		if e.GoldIntent == nil {
			continue
		}
		pairs = append(pairs, [2]string{*e.GoldIntent, string(e.Update.IntentType)})
	}
	return pairs
}

// macroF1Score averages per-class F1 over the union of gold and predicted
// labels appearing in pairs with a non-null gold value.
func macroF1Score(pairs [][2]string) *float64 {
	if len(pairs) == 0 {
		return nil
	}

	labelSet := make(map[string]struct{})
	for _, p := range pairs {
		labelSet[p[0]] = struct{}{}
		labelSet[p[1]] = struct{}{}
	}
	labels := make([]string, 0, len(labelSet))
	for l := range labelSet {
		labels = append(labels, l)
	}
	sort.Strings(labels)

	var sum float64
	for _, label := range labels {
		var tp, fp, fn int
		for _, p := range pairs {
			gold, pred := p[0], p[1]
			switch {
			case gold == label && pred == label:
				tp++
			case gold != label && pred == label:
				fp++
			case gold == label && pred != label:
				fn++
			}
		}
		denom := 2*tp + fp + fn
		f1 := 0.0
		if denom > 0 {
			f1 = float64(2*tp) / float64(denom)
		}
		sum += f1
	}
	avg := round4(sum / float64(len(labels)))
	return &avg
}

func round4(v float64) float64 {
	return float64(int64(v*10000+0.5)) / 10000
}
