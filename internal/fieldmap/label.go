package fieldmap

import (
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/medscan-tech/labxtract/internal/detection"
	"github.com/medscan-tech/labxtract/internal/layout"
)

// labelStrategy maps detections to fields using the detector's explicit
// field_type labels. It is the primary path: semantic labels beat
// positional inference whenever the detector provides them.
type labelStrategy struct{}

func (labelStrategy) Name() string  { return "label-direct" }
func (labelStrategy) Priority() int { return 1 }

// Resolve succeeds when the row's labels cover at least a test name and a
// test value. Multiple detections sharing a field type are concatenated in
// x-order with single spaces. Confidence is the mean detector confidence
// of the contributing detections.
func (labelStrategy) Resolve(row layout.Row) (Candidate, bool) {
	fields := map[detection.FieldType][]string{}
	var confs []float64

	for _, d := range row.Detections {
		if d.Field == detection.FieldUnknown || d.Text == "" {
			continue
		}
		fields[d.Field] = append(fields[d.Field], d.Text)
		confs = append(confs, d.Confidence)
	}

	name := strings.Join(fields[detection.FieldTestName], " ")
	value := strings.Join(fields[detection.FieldTestValue], " ")
	if name == "" || value == "" {
		return Candidate{}, false
	}

	return Candidate{
		TestName:       name,
		TestValue:      value,
		TestUnit:       strings.Join(fields[detection.FieldUnit], " "),
		ReferenceRange: strings.Join(fields[detection.FieldReferenceRange], " "),
		Confidence:     stat.Mean(confs, nil),
	}, true
}
