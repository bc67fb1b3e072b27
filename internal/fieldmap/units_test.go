package fieldmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeUnit(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"mmoll", "mmol/L"},
		{"MGDL", "mg/dL"},
		{"mgidl", "mg/dL"},
		{"gdl", "g/dL"},
		{"umol/l", "μmol/L"},
		{"iul", "IU/L"},
		// Already-clean units pass through in source form.
		{"g/dl", "g/dl"},
		{"mg/dl", "mg/dl"},
		{"%", "%"},
		{" fL ", "fL"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeUnit(tt.in), "input %q", tt.in)
	}
}
