package pipeline

import (
	"github.com/medscan-tech/labxtract/internal/detection"
	"github.com/medscan-tech/labxtract/internal/fieldmap"
)

// ReasonUnresolvable marks a traced row that no strategy could resolve to
// a usable name/value pair. Such rows are dropped from the primary output;
// this is expected steady-state behavior on noisy documents, not a fault.
const ReasonUnresolvable = "unresolvable"

// RowTrace records everything that happened to one grouped row: its input
// detections, every strategy attempt, and the selection outcome.
type RowTrace struct {
	RowIndex          int                   `json:"row_index"`
	YCenter           float64               `json:"y_center"`
	Detections        []detection.Detection `json:"detections"`
	ReconstructedText string                `json:"reconstructed_text"`
	Attempts          []fieldmap.Attempt    `json:"attempts"`
	ChosenStrategy    string                `json:"chosen_strategy,omitempty"`
	Confidence        float64               `json:"confidence,omitempty"`
	Reason            string                `json:"reason,omitempty"`
}

// Trace is the per-request diagnostic record. It is purely additive
// instrumentation: building it never changes which records are produced.
type Trace struct {
	TotalDetections int        `json:"total_detections"`
	RowsFormed      int        `json:"rows_formed"`
	Rows            []RowTrace `json:"rows"`
}
