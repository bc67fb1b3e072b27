package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medscan-tech/labxtract/internal/detection"
)

func det(field detection.FieldType, text string, conf, xMin, yMin float64) detection.Detection {
	return detection.Detection{
		Box:        detection.NewBox(xMin, yMin, xMin+60, yMin+20),
		Field:      field,
		Text:       text,
		Confidence: conf,
	}
}

// hemoglobinRow is the fully labeled single-row fixture: value above range.
func hemoglobinRow() []detection.Detection {
	return []detection.Detection{
		det(detection.FieldTestName, "Hemoglobin", 0.9, 0, 100),
		det(detection.FieldTestValue, "15.3", 0.9, 100, 101),
		det(detection.FieldUnit, "g/dl", 0.8, 200, 99),
		det(detection.FieldReferenceRange, "11.1-14.4", 0.8, 300, 100),
	}
}

func TestExtract_LabeledRow(t *testing.T) {
	p := New(DefaultConfig(), nil)

	records, err := p.Extract(context.Background(), hemoglobinRow())
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Equal(t, Record{
		TestName:          "Hemoglobin",
		TestValue:         "15.3",
		BioReferenceRange: "11.1-14.4",
		TestUnit:          "g/dl",
		OutOfRange:        true,
	}, records[0])
}

func TestExtract_RowTextFallback(t *testing.T) {
	p := New(DefaultConfig(), nil)

	// No field labels; structure must be inferred from reading order.
	dets := []detection.Detection{
		det(detection.FieldUnknown, "Glucose", 0.9, 0, 100),
		det(detection.FieldUnknown, "90", 0.9, 100, 100),
		det(detection.FieldUnknown, "mg/dl", 0.9, 200, 100),
		det(detection.FieldUnknown, "70-110", 0.9, 300, 100),
	}

	records, err := p.Extract(context.Background(), dets)
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Equal(t, Record{
		TestName:          "Glucose",
		TestValue:         "90",
		BioReferenceRange: "70-110",
		TestUnit:          "mg/dl",
		OutOfRange:        false,
	}, records[0])
}

func TestExtract_DictionaryFallback(t *testing.T) {
	p := New(DefaultConfig(), nil)

	// Value printed before a misspelled name defeats positional parsing;
	// the reference dictionary still recognizes the test.
	dets := []detection.Detection{
		det(detection.FieldUnknown, "95", 0.9, 0, 100),
		det(detection.FieldUnknown, "Glucoze", 0.9, 100, 100),
	}

	records, err := p.Extract(context.Background(), dets)
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Equal(t, Record{
		TestName:          "Glucose",
		TestValue:         "95",
		BioReferenceRange: "",
		TestUnit:          "",
		OutOfRange:        false,
	}, records[0])
}

func TestExtract_UnresolvableRowDropped(t *testing.T) {
	p := New(DefaultConfig(), nil)

	dets := append(hemoglobinRow(),
		det(detection.FieldUnknown, "@@##", 0.4, 0, 300),
	)

	records, trace, err := p.ExtractWithTrace(context.Background(), dets)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Hemoglobin", records[0].TestName)

	require.Equal(t, 2, trace.RowsFormed)
	require.Len(t, trace.Rows, 2)
	dropped := trace.Rows[1]
	assert.Equal(t, ReasonUnresolvable, dropped.Reason)
	assert.Empty(t, dropped.ChosenStrategy)
	assert.Equal(t, "@@##", dropped.ReconstructedText)
}

func TestExtract_InclusiveUpperBound(t *testing.T) {
	p := New(DefaultConfig(), nil)

	dets := []detection.Detection{
		det(detection.FieldTestName, "ESR", 0.9, 0, 100),
		det(detection.FieldTestValue, "5", 0.9, 100, 100),
		det(detection.FieldReferenceRange, "<5", 0.9, 200, 100),
	}

	records, err := p.Extract(context.Background(), dets)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.False(t, records[0].OutOfRange)
}

func TestExtract_EmptyInput(t *testing.T) {
	p := New(DefaultConfig(), nil)

	records, err := p.Extract(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, records)

	out, err := ToJSON(records)
	require.NoError(t, err)
	assert.Equal(t, "[]", out)
}

func TestExtract_InvalidInputIsFatal(t *testing.T) {
	p := New(DefaultConfig(), nil)

	dets := append(hemoglobinRow(), detection.Detection{
		Box:   detection.NewBox(10, 10, 10, 30),
		Field: detection.FieldTestValue,
		Text:  "7",
	})

	_, err := p.Extract(context.Background(), dets)
	require.Error(t, err)
	assert.ErrorIs(t, err, detection.ErrInvalidInput)
}

func TestExtract_FlagMarkerForcesOutOfRange(t *testing.T) {
	p := New(DefaultConfig(), nil)

	dets := []detection.Detection{
		det(detection.FieldTestName, "Hemoglobin", 0.9, 0, 100),
		det(detection.FieldTestValue, "13.0*", 0.9, 100, 100),
		det(detection.FieldReferenceRange, "11.1-14.4", 0.9, 200, 100),
	}

	records, err := p.Extract(context.Background(), dets)
	require.NoError(t, err)
	require.Len(t, records, 1)
	// 13.0 is numerically inside the range; the printed marker wins and is
	// stripped from the emitted value.
	assert.True(t, records[0].OutOfRange)
	assert.Equal(t, "13.0", records[0].TestValue)
}

func TestExtract_UnitCorrection(t *testing.T) {
	p := New(DefaultConfig(), nil)

	dets := []detection.Detection{
		det(detection.FieldTestName, "Creatinine", 0.9, 0, 100),
		det(detection.FieldTestValue, "1.1", 0.9, 100, 100),
		det(detection.FieldUnit, "mgdl", 0.9, 200, 100),
	}

	records, err := p.Extract(context.Background(), dets)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "mg/dL", records[0].TestUnit)
}

func TestExtract_RecordsFollowDocumentOrder(t *testing.T) {
	p := New(DefaultConfig(), nil)

	// Supplied bottom row first.
	dets := []detection.Detection{
		det(detection.FieldTestName, "Glucose", 0.9, 0, 300),
		det(detection.FieldTestValue, "90", 0.9, 100, 300),
		det(detection.FieldTestName, "Hemoglobin", 0.9, 0, 100),
		det(detection.FieldTestValue, "13.2", 0.9, 100, 100),
		det(detection.FieldTestName, "Sodium", 0.9, 0, 200),
		det(detection.FieldTestValue, "140", 0.9, 100, 200),
	}

	records, err := p.Extract(context.Background(), dets)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "Hemoglobin", records[0].TestName)
	assert.Equal(t, "Sodium", records[1].TestName)
	assert.Equal(t, "Glucose", records[2].TestName)
}

func TestExtract_Idempotent(t *testing.T) {
	p := New(DefaultConfig(), nil)
	dets := append(hemoglobinRow(),
		det(detection.FieldTestName, "Glucose", 0.9, 0, 200),
		det(detection.FieldTestValue, "90", 0.9, 100, 200),
	)

	first, err := p.Extract(context.Background(), dets)
	require.NoError(t, err)
	second, err := p.Extract(context.Background(), dets)
	require.NoError(t, err)

	a, err := ToJSON(first)
	require.NoError(t, err)
	b, err := ToJSON(second)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestExtract_ParallelMatchesSequential(t *testing.T) {
	var dets []detection.Detection
	for i := range 40 {
		y := float64(i * 50)
		dets = append(dets,
			det(detection.FieldTestName, "Hemoglobin", 0.9, 0, y),
			det(detection.FieldTestValue, "13.2", 0.9, 100, y),
			det(detection.FieldReferenceRange, "11.1-14.4", 0.9, 200, y),
		)
	}

	seqCfg := DefaultConfig()
	seqCfg.Workers = 1
	parCfg := DefaultConfig()
	parCfg.Workers = 8

	seq, err := New(seqCfg, nil).Extract(context.Background(), dets)
	require.NoError(t, err)
	par, err := New(parCfg, nil).Extract(context.Background(), dets)
	require.NoError(t, err)

	assert.Equal(t, seq, par)
	assert.Len(t, par, 40)
}

func TestExtract_ContextCancellation(t *testing.T) {
	p := New(DefaultConfig(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Extract(ctx, hemoglobinRow())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExtractWithTrace_TraceDoesNotAlterRecords(t *testing.T) {
	p := New(DefaultConfig(), nil)
	dets := append(hemoglobinRow(),
		det(detection.FieldUnknown, "@@##", 0.4, 0, 300),
	)

	plain, err := p.Extract(context.Background(), dets)
	require.NoError(t, err)
	traced, trace, err := p.ExtractWithTrace(context.Background(), dets)
	require.NoError(t, err)

	assert.Equal(t, plain, traced)
	require.NotNil(t, trace)
	assert.Equal(t, 5, trace.TotalDetections)
	assert.Equal(t, 2, trace.RowsFormed)

	resolved := trace.Rows[0]
	assert.Equal(t, "label-direct", resolved.ChosenStrategy)
	assert.NotEmpty(t, resolved.Attempts)
}
