// Package datasetready implements the dataset readiness evaluator: an
// external collaborator that scores a directory of diagram-training
// records and optionally fuses that score with a realtime pipeline
// evaluation report. Only the scoring interface is implemented here; the
// dataset curation pipeline that produces the input records lives
// elsewhere.
package datasetready

import "strings"

// invalidLicenseValues is the rejection list, including the empty string.
var invalidLicenseValues = map[string]struct{}{
	"none": {}, "unknown": {}, "error": {}, "rate_limited": {}, "": {},
}

// Record is one dataset entry under evaluation, already normalized by the
// caller (whichever alternate key was present in the raw JSON).
type Record struct {
	ID                string
	Code              string
	DiagramType       string
	DialogueTurns     int // -1 if cscw_dialogue is absent
	License           string
	CompilationStatus string
}

// Ratios is the per-criterion breakdown behind the readiness score.
type Ratios struct {
	SchemaRatio         float64 `json:"schema_ratio"`
	CompileSuccessRatio float64 `json:"compile_success_ratio"`
	LicenseValidRatio   float64 `json:"license_valid_ratio"`
	TurnRangeRatio      float64 `json:"turn_range_ratio"`
	DiversityRatio      float64 `json:"diversity_ratio"`
}

// DatasetReport is the result of evaluating a set of records.
type DatasetReport struct {
	FileCount             int            `json:"file_count"`
	Ratios                Ratios         `json:"ratios"`
	UniqueDiagramTypes    int            `json:"unique_diagram_types"`
	DatasetReadinessScore float64        `json:"dataset_readiness_score"`
	DiagramTypeCounts     map[string]int `json:"diagram_type_counts"`
}

// EvaluateDataset scores a set of records as a weighted blend of
// 0.30*schema_ratio + 0.20*compile_success_ratio + 0.15*license_valid_ratio
// + 0.20*turn_range_ratio + 0.15*diversity_ratio, scaled to [0, 100].
func EvaluateDataset(records []Record) DatasetReport {
	total := len(records)
	var schemaOK, compileOK, licenseOK, dialogueOK, turnRangeOK int
	diagramTypes := make(map[string]int)

	for _, r := range records {
		hasID := r.ID != ""
		hasCode := r.Code != ""
		hasDiagramType := r.DiagramType != ""
		hasDialogue := r.DialogueTurns > 0

		if hasID && hasCode && hasDiagramType && hasDialogue {
			schemaOK++
		}
		if hasDialogue {
			dialogueOK++
			if r.DialogueTurns >= 4 && r.DialogueTurns <= 120 {
				turnRangeOK++
			}
		}
		if lowerEquals(r.CompilationStatus, "success") {
			compileOK++
		}
		if _, invalid := invalidLicenseValues[lowerTrim(r.License)]; !invalid {
			licenseOK++
		}
		if hasDiagramType {
			diagramTypes[r.DiagramType]++
		}
	}

	uniqueTypes := len(diagramTypes)
	ratios := Ratios{
		SchemaRatio:         round4(safeRatio(schemaOK, total)),
		CompileSuccessRatio: round4(safeRatio(compileOK, total)),
		LicenseValidRatio:   round4(safeRatio(licenseOK, total)),
		TurnRangeRatio:      round4(safeRatio(turnRangeOK, dialogueOK)),
		DiversityRatio:      round4(minFloat(float64(uniqueTypes)/10.0, 1.0)),
	}

	score := 0.30*ratios.SchemaRatio + 0.20*ratios.CompileSuccessRatio +
		0.15*ratios.LicenseValidRatio + 0.20*ratios.TurnRangeRatio +
		0.15*ratios.DiversityRatio
	score = round2(score * 100.0)

	return DatasetReport{
		FileCount:             total,
		Ratios:                ratios,
		UniqueDiagramTypes:    uniqueTypes,
		DatasetReadinessScore: score,
		DiagramTypeCounts:     diagramTypes,
	}
}

// FusedReport combines a dataset score with an optional realtime score.
type FusedReport struct {
	Mode                          string   `json:"mode"`
	DatasetScore                  float64  `json:"dataset_score"`
	RealtimeScore                 *float64 `json:"realtime_score"`
	OverallPretrainReadinessScore float64  `json:"overall_pretrain_readiness_score"`
	Ready                         bool     `json:"ready"`
}

// RealtimePassRatio turns a set of named boolean checks (e.g. an
// evaluate.Checks struct flattened by the caller) into a 0-100 score: the
// percentage of checks that passed.
func RealtimePassRatio(checks map[string]bool) float64 {
	if len(checks) == 0 {
		return 0.0
	}
	passed := 0
	for _, v := range checks {
		if v {
			passed++
		}
	}
	return round2(safeRatio(passed, len(checks)) * 100.0)
}

// Fuse combines a dataset readiness score with an optional realtime score
// (0.7/0.3 weighting) and applies the ≥80 readiness threshold.
func Fuse(datasetScore float64, realtimeScore *float64) FusedReport {
	if realtimeScore == nil {
		final := round2(datasetScore)
		return FusedReport{
			Mode:                          "dataset_only",
			DatasetScore:                  datasetScore,
			RealtimeScore:                 nil,
			OverallPretrainReadinessScore: final,
			Ready:                         final >= 80.0,
		}
	}
	final := round2(0.7*datasetScore + 0.3*(*realtimeScore))
	return FusedReport{
		Mode:                          "dataset+realtime",
		DatasetScore:                  datasetScore,
		RealtimeScore:                 realtimeScore,
		OverallPretrainReadinessScore: final,
		Ready:                         final >= 80.0,
	}
}

func safeRatio(a, b int) float64 {
	if b <= 0 {
		return 0.0
	}
	return float64(a) / float64(b)
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func lowerTrim(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func lowerEquals(s, target string) bool {
	return lowerTrim(s) == target
}

func round4(v float64) float64 {
	return float64(int64(v*10000+0.5)) / 10000
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
