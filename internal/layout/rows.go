// Package layout clusters normalized detections into visually-ordered table
// rows. Grouping depends only on box geometry, never on input order.
package layout

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/medscan-tech/labxtract/internal/detection"
)

// Config holds the row-grouping tolerance parameters. The effective
// tolerance is max(MinTolerancePx, ToleranceFraction * median detection
// height), so dense reports with small boxes still group correctly while a
// floor guards against degenerate medians.
type Config struct {
	ToleranceFraction float64
	MinTolerancePx    float64
}

// DefaultConfig returns the default grouping tolerances.
func DefaultConfig() Config {
	return Config{
		ToleranceFraction: 0.5,
		MinTolerancePx:    10.0,
	}
}

// Span is a closed vertical interval.
type Span struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Row is a horizontal band of detections judged to belong to one logical
// table row. Detections are ordered left-to-right by x_min.
type Row struct {
	Detections []detection.Detection `json:"detections"`
	YCenter    float64               `json:"y_center"`
	YSpan      Span                  `json:"y_span"`
}

// Text reconstructs the row's full text by joining member texts in reading
// order with single spaces. Empty member texts are skipped.
func (r Row) Text() string {
	n := 0
	for _, d := range r.Detections {
		n += len(d.Text) + 1
	}
	buf := make([]byte, 0, n)
	for _, d := range r.Detections {
		if d.Text == "" {
			continue
		}
		if len(buf) > 0 {
			buf = append(buf, ' ')
		}
		buf = append(buf, d.Text...)
	}
	return string(buf)
}

// GroupRows clusters detections into rows with a single top-to-bottom sweep.
// Detections are sorted by vertical center (ties broken by x_min, then
// text, so the result is a pure function of the detection set); a detection
// joins the open row when its center lies within the row's span extended by
// the tolerance, otherwise it closes the row and opens a new one. Rows are
// emitted in increasing YCenter order and every detection lands in exactly
// one row.
func GroupRows(dets []detection.Detection, cfg Config) []Row {
	if len(dets) == 0 {
		return nil
	}

	sorted := make([]detection.Detection, len(dets))
	copy(sorted, dets)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Box.CenterY() != b.Box.CenterY() {
			return a.Box.CenterY() < b.Box.CenterY()
		}
		if a.Box.XMin != b.Box.XMin {
			return a.Box.XMin < b.Box.XMin
		}
		return a.Text < b.Text
	})

	tol := tolerance(sorted, cfg)

	var rows []Row
	open := []detection.Detection{sorted[0]}
	span := Span{Min: sorted[0].Box.YMin, Max: sorted[0].Box.YMax}

	for _, d := range sorted[1:] {
		c := d.Box.CenterY()
		if c >= span.Min-tol && c <= span.Max+tol {
			open = append(open, d)
			if d.Box.YMin < span.Min {
				span.Min = d.Box.YMin
			}
			if d.Box.YMax > span.Max {
				span.Max = d.Box.YMax
			}
			continue
		}
		rows = append(rows, finishRow(open, span))
		open = []detection.Detection{d}
		span = Span{Min: d.Box.YMin, Max: d.Box.YMax}
	}
	rows = append(rows, finishRow(open, span))

	return rows
}

// tolerance computes the vertical join tolerance from the median detection
// height, floored at the configured pixel minimum.
func tolerance(dets []detection.Detection, cfg Config) float64 {
	heights := make([]float64, len(dets))
	for i, d := range dets {
		heights[i] = d.Box.Height()
	}
	sort.Float64s(heights)
	median := stat.Quantile(0.5, stat.Empirical, heights, nil)

	tol := cfg.ToleranceFraction * median
	if tol < cfg.MinTolerancePx {
		tol = cfg.MinTolerancePx
	}
	return tol
}

// finishRow freezes an open row: members are re-ordered left-to-right and
// the row center becomes the mean of member centers.
func finishRow(members []detection.Detection, span Span) Row {
	sort.Slice(members, func(i, j int) bool {
		a, b := members[i], members[j]
		if a.Box.XMin != b.Box.XMin {
			return a.Box.XMin < b.Box.XMin
		}
		if a.Box.CenterY() != b.Box.CenterY() {
			return a.Box.CenterY() < b.Box.CenterY()
		}
		return a.Text < b.Text
	})

	centers := make([]float64, len(members))
	for i, d := range members {
		centers[i] = d.Box.CenterY()
	}

	return Row{
		Detections: members,
		YCenter:    stat.Mean(centers, nil),
		YSpan:      span,
	}
}
