package detection

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_EmptyInput(t *testing.T) {
	out, err := Normalize(nil)
	require.NoError(t, err)
	assert.Empty(t, out)

	out, err = Normalize([]Detection{})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestNormalize_TrimsAndCollapsesText(t *testing.T) {
	out, err := Normalize([]Detection{
		{Box: NewBox(0, 0, 10, 10), Field: FieldTestName, Text: "  Hemoglobin \t A1c  ", Confidence: 0.9},
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Hemoglobin A1c", out[0].Text)
}

func TestNormalize_ClampsConfidence(t *testing.T) {
	out, err := Normalize([]Detection{
		{Box: NewBox(0, 0, 10, 10), Field: FieldTestValue, Text: "5", Confidence: 1.7},
		{Box: NewBox(0, 20, 10, 30), Field: FieldTestValue, Text: "6", Confidence: -0.2},
	})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, 1.0, out[0].Confidence)
	assert.Equal(t, 0.0, out[1].Confidence)
}

func TestNormalize_DropsEmptyUnknownDetections(t *testing.T) {
	out, err := Normalize([]Detection{
		{Box: NewBox(0, 0, 10, 10), Field: FieldUnknown, Text: "   "},
		{Box: NewBox(0, 0, 10, 10), Field: FieldTestName, Text: ""},
		{Box: NewBox(0, 0, 10, 10), Field: FieldUnknown, Text: "@@"},
	})
	require.NoError(t, err)
	// Empty Unknown is dropped; an empty labeled detection and a non-empty
	// Unknown both survive.
	require.Len(t, out, 2)
}

func TestNormalize_DegenerateBoxIsFatal(t *testing.T) {
	_, err := Normalize([]Detection{
		{Box: NewBox(0, 0, 10, 10), Field: FieldTestName, Text: "Glucose", Confidence: 0.9},
		{Box: NewBox(50, 20, 50, 30), Field: FieldTestValue, Text: "90", Confidence: 0.9},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "detection 1")
}

func TestParseFieldType_DetectorAliases(t *testing.T) {
	tests := []struct {
		in   string
		want FieldType
	}{
		{"Test_Name", FieldTestName},
		{"Test_Value", FieldTestValue},
		{"Test_Unit", FieldUnit},
		{"Ref_Range", FieldReferenceRange},
		{"reference_range", FieldReferenceRange},
		{"unknown", FieldUnknown},
		{"", FieldUnknown},
	}
	for _, tt := range tests {
		got, ok := ParseFieldType(tt.in)
		require.True(t, ok, "alias %q", tt.in)
		assert.Equal(t, tt.want, got, "alias %q", tt.in)
	}

	_, ok := ParseFieldType("bogus_label")
	assert.False(t, ok)
}

func TestDetection_JSONRoundTrip(t *testing.T) {
	in := `{"box":{"x_min":1,"y_min":2,"x_max":30,"y_max":12},"field_type":"Ref_Range","text":"11.1-14.4","confidence":0.82}`

	var d Detection
	require.NoError(t, json.Unmarshal([]byte(in), &d))
	assert.Equal(t, FieldReferenceRange, d.Field)
	assert.Equal(t, "11.1-14.4", d.Text)

	out, err := json.Marshal(d)
	require.NoError(t, err)
	// Marshaling uses the canonical wire name, not the detector alias.
	assert.Contains(t, string(out), `"field_type":"reference_range"`)
}
