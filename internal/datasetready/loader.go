package datasetready

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
)

// wireRecord mirrors the on-disk JSON schema, including the two pairs of
// interchangeable field names that appear across dataset generations
// (id|record_id, license|license_name).
type wireRecord struct {
	ID                string          `json:"id"`
	RecordID          string          `json:"record_id"`
	Code              string          `json:"code"`
	DiagramType       string          `json:"diagram_type"`
	CSCWDialogue      json.RawMessage `json:"cscw_dialogue"`
	License           string          `json:"license"`
	LicenseName       string          `json:"license_name"`
	CompilationStatus string          `json:"compilation_status"`
}

func (w wireRecord) normalize() Record {
	id := w.ID
	if id == "" {
		id = w.RecordID
	}
	license := w.LicenseName
	if license == "" {
		license = w.License
	}

	turns := -1
	if len(w.CSCWDialogue) > 0 {
		var arr []json.RawMessage
		if err := json.Unmarshal(w.CSCWDialogue, &arr); err == nil {
			turns = len(arr)
		}
	}

	return Record{
		ID:                id,
		Code:              w.Code,
		DiagramType:       w.DiagramType,
		DialogueTurns:     turns,
		License:           license,
		CompilationStatus: w.CompilationStatus,
	}
}

// LoadDirectory reads every *.json file in dir (non-recursive, sorted by
// name for deterministic ordering), normalizes the interchangeable field
// names, and returns the resulting records. A file that fails to parse is
// skipped rather than aborting the whole directory scan.
func LoadDirectory(dir string) ([]Record, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	records := make([]Record, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		var w wireRecord
		if err := json.Unmarshal(data, &w); err != nil {
			continue
		}
		records = append(records, w.normalize())
	}
	return records, nil
}
