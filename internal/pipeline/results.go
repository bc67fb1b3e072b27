package pipeline

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"
)

// Record is the final output unit for one lab test, using the externally
// observed response field names. Unit and range may be empty strings when
// undetermined; name and value are always non-empty.
type Record struct {
	TestName          string `json:"test_name"`
	TestValue         string `json:"test_value"`
	BioReferenceRange string `json:"bio_reference_range"`
	TestUnit          string `json:"test_unit"`
	OutOfRange        bool   `json:"lab_test_out_of_range"`
}

// ToJSON serializes records to pretty JSON. An empty record set encodes as
// an empty array, never null.
func ToJSON(records []Record) (string, error) {
	if records == nil {
		records = []Record{}
	}
	b, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ToCSV exports records as CSV with a header row.
func ToCSV(records []Record) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"test_name", "test_value", "test_unit", "bio_reference_range", "out_of_range"})
	for _, r := range records {
		_ = w.Write([]string{
			r.TestName,
			r.TestValue,
			r.TestUnit,
			r.BioReferenceRange,
			fmt.Sprintf("%t", r.OutOfRange),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ToPlainText renders records one per line for terminal output.
func ToPlainText(records []Record) string {
	lines := make([]string, 0, len(records))
	for _, r := range records {
		line := fmt.Sprintf("%s: %s", r.TestName, r.TestValue)
		if r.TestUnit != "" {
			line += " " + r.TestUnit
		}
		if r.BioReferenceRange != "" {
			line += fmt.Sprintf(" (ref %s)", r.BioReferenceRange)
		}
		if r.OutOfRange {
			line += " [out of range]"
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
