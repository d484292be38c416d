package storage

import (
	"encoding/json"
	"io"

	"github.com/san-kum/magbrake/internal/dynamo"
)

type ExportData struct {
	Run        *RunMetadata       `json:"run,omitempty"`
	Points     int                `json:"points"`
	Trajectory *dynamo.Trajectory `json:"trajectory"`
}

// ExportJSON writes the run metadata and its samples as indented JSON.
// meta may be nil for runs that were never stored.
func ExportJSON(w io.Writer, meta *RunMetadata, tr *dynamo.Trajectory) error {
	data := ExportData{
		Run:        meta,
		Points:     tr.Len(),
		Trajectory: tr,
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
