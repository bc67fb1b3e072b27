package detection

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FieldType identifies the semantic label assigned to a detection by the
// upstream object detector.
type FieldType int

const (
	FieldUnknown FieldType = iota
	FieldTestName
	FieldTestValue
	FieldUnit
	FieldReferenceRange
)

// String returns the canonical wire name of the field type.
func (f FieldType) String() string {
	switch f {
	case FieldTestName:
		return "test_name"
	case FieldTestValue:
		return "test_value"
	case FieldUnit:
		return "unit"
	case FieldReferenceRange:
		return "reference_range"
	default:
		return "unknown"
	}
}

// fieldAliases maps the class names emitted by known detector models onto
// field types. The upstream YOLO model uses Test_Name/Test_Value/Test_Unit/
// Ref_Range; we also accept the canonical snake_case names.
var fieldAliases = map[string]FieldType{
	"test_name":       FieldTestName,
	"testname":        FieldTestName,
	"test_value":      FieldTestValue,
	"testvalue":       FieldTestValue,
	"test_unit":       FieldUnit,
	"testunit":        FieldUnit,
	"unit":            FieldUnit,
	"ref_range":       FieldReferenceRange,
	"refrange":        FieldReferenceRange,
	"reference_range": FieldReferenceRange,
	"referencerange":  FieldReferenceRange,
	"unknown":         FieldUnknown,
	"":                FieldUnknown,
}

// ParseFieldType resolves a detector class name to a FieldType.
func ParseFieldType(s string) (FieldType, bool) {
	ft, ok := fieldAliases[strings.ToLower(strings.TrimSpace(s))]
	return ft, ok
}

// MarshalJSON encodes the field type using its canonical wire name.
func (f FieldType) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.String())
}

// UnmarshalJSON decodes a field type from any accepted class name alias.
func (f *FieldType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("field_type must be a string: %w", err)
	}
	ft, ok := ParseFieldType(s)
	if !ok {
		return fmt.Errorf("unrecognized field_type %q", s)
	}
	*f = ft
	return nil
}

// Box is an axis-aligned rectangle in pixel coordinates.
type Box struct {
	XMin float64 `json:"x_min"`
	YMin float64 `json:"y_min"`
	XMax float64 `json:"x_max"`
	YMax float64 `json:"y_max"`
}

// NewBox constructs a box from its corner coordinates.
func NewBox(xMin, yMin, xMax, yMax float64) Box {
	return Box{XMin: xMin, YMin: yMin, XMax: xMax, YMax: yMax}
}

// Valid reports whether the box has positive extent on both axes.
func (b Box) Valid() bool {
	return b.XMin < b.XMax && b.YMin < b.YMax
}

// Width returns the horizontal extent of the box.
func (b Box) Width() float64 { return b.XMax - b.XMin }

// Height returns the vertical extent of the box.
func (b Box) Height() float64 { return b.YMax - b.YMin }

// CenterY returns the vertical center of the box.
func (b Box) CenterY() float64 { return (b.YMin + b.YMax) / 2 }

// Detection is one recognized region on the page: a bounding box, the
// detector's field label, the OCR text for the crop, and the detector
// confidence.
type Detection struct {
	Box        Box       `json:"box"`
	Field      FieldType `json:"field_type"`
	Text       string    `json:"text"`
	Confidence float64   `json:"confidence"`
}
