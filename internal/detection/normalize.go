package detection

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidInput indicates a structurally malformed detection list. It is
// the only error class that aborts an extraction run; row-level noise is
// handled further down the pipeline.
var ErrInvalidInput = errors.New("invalid detection input")

// Normalize validates and cleans a raw detection list into a uniform shape:
// OCR text is whitespace-trimmed, confidence is clamped to [0,1], and
// detections carrying no usable signal (empty text and an Unknown label)
// are discarded. A malformed detection (degenerate box) fails the whole
// list with ErrInvalidInput. An empty input list is valid and yields an
// empty result.
func Normalize(raw []Detection) ([]Detection, error) {
	out := make([]Detection, 0, len(raw))
	for i, d := range raw {
		if !d.Box.Valid() {
			return nil, fmt.Errorf("%w: detection %d has degenerate box (x: %g..%g, y: %g..%g)",
				ErrInvalidInput, i, d.Box.XMin, d.Box.XMax, d.Box.YMin, d.Box.YMax)
		}

		d.Text = collapseSpaces(strings.TrimSpace(d.Text))
		if d.Text == "" && d.Field == FieldUnknown {
			continue
		}

		if d.Confidence < 0 {
			d.Confidence = 0
		} else if d.Confidence > 1 {
			d.Confidence = 1
		}

		out = append(out, d)
	}
	return out, nil
}

// collapseSpaces folds internal runs of whitespace into single spaces.
func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
