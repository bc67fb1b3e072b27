package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medscan-tech/labxtract/internal/detection"
)

func det(xMin, yMin, xMax, yMax float64, text string) detection.Detection {
	return detection.Detection{
		Box:        detection.NewBox(xMin, yMin, xMax, yMax),
		Field:      detection.FieldUnknown,
		Text:       text,
		Confidence: 0.9,
	}
}

func TestGroupRows_Empty(t *testing.T) {
	assert.Nil(t, GroupRows(nil, DefaultConfig()))
	assert.Nil(t, GroupRows([]detection.Detection{}, DefaultConfig()))
}

func TestGroupRows_SeparatesBands(t *testing.T) {
	dets := []detection.Detection{
		det(0, 100, 80, 120, "Hemoglobin"),
		det(100, 102, 140, 122, "15.3"),
		det(0, 200, 80, 220, "Glucose"),
		det(100, 198, 140, 218, "90"),
	}

	rows := GroupRows(dets, DefaultConfig())
	require.Len(t, rows, 2)

	assert.Equal(t, "Hemoglobin 15.3", rows[0].Text())
	assert.Equal(t, "Glucose 90", rows[1].Text())
	assert.Less(t, rows[0].YCenter, rows[1].YCenter)
}

func TestGroupRows_LeftToRightWithinRow(t *testing.T) {
	// Supplied right-to-left; the row must still read left-to-right.
	dets := []detection.Detection{
		det(300, 100, 360, 120, "11.1-14.4"),
		det(200, 101, 240, 121, "g/dl"),
		det(100, 99, 140, 119, "15.3"),
		det(0, 100, 80, 120, "Hemoglobin"),
	}

	rows := GroupRows(dets, DefaultConfig())
	require.Len(t, rows, 1)
	assert.Equal(t, "Hemoglobin 15.3 g/dl 11.1-14.4", rows[0].Text())
}

func TestGroupRows_ToleranceJoinsJitteredBoxes(t *testing.T) {
	// Box centers differ by 8px, within the 10px tolerance floor.
	dets := []detection.Detection{
		det(0, 100, 80, 110, "Sodium"),
		det(100, 108, 140, 118, "140"),
	}

	rows := GroupRows(dets, DefaultConfig())
	require.Len(t, rows, 1)
	assert.Equal(t, "Sodium 140", rows[0].Text())
}

func TestGroupRows_ToleranceScalesWithHeight(t *testing.T) {
	// Tall boxes: median height 40 gives tolerance 20, so a 30px center
	// offset splits while an 18px offset joins.
	joined := []detection.Detection{
		det(0, 100, 80, 140, "Potassium"),
		det(100, 118, 140, 158, "4.2"),
	}
	rows := GroupRows(joined, DefaultConfig())
	assert.Len(t, rows, 1)

	split := []detection.Detection{
		det(0, 100, 80, 140, "Potassium"),
		det(100, 170, 140, 210, "4.2"),
	}
	rows = GroupRows(split, DefaultConfig())
	assert.Len(t, rows, 2)
}

func TestGroupRows_EveryDetectionInExactlyOneRow(t *testing.T) {
	dets := []detection.Detection{
		det(0, 10, 50, 30, "a"),
		det(60, 12, 100, 32, "b"),
		det(0, 60, 50, 80, "c"),
		det(0, 110, 50, 130, "d"),
		det(60, 108, 100, 128, "e"),
	}

	rows := GroupRows(dets, DefaultConfig())
	total := 0
	for _, r := range rows {
		total += len(r.Detections)
	}
	assert.Equal(t, len(dets), total)
}

func TestRow_TextSkipsEmptyMembers(t *testing.T) {
	r := Row{Detections: []detection.Detection{
		det(0, 0, 10, 10, "Glucose"),
		{Box: detection.NewBox(20, 0, 30, 10), Field: detection.FieldUnit},
		det(40, 0, 50, 10, "90"),
	}}
	assert.Equal(t, "Glucose 90", r.Text())
}
