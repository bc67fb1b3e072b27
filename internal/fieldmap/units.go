package fieldmap

import "strings"

// unitCorrections maps OCR-mangled unit spellings to their standard form.
// Keys are compared lowercased; anything not in the table passes through
// in its source form.
var unitCorrections = map[string]string{
	"mmoll":  "mmol/L",
	"mgldl":  "mg/dL",
	"mgidl":  "mg/dL",
	"mgdl":   "mg/dL",
	"mgl":    "mg/L",
	"gdl":    "g/dL",
	"g/di":   "g/dL",
	"gmldl":  "gm/dL",
	"mg/di":  "mg/dL",
	"umoll":  "μmol/L",
	"umol/l": "μmol/L",
	"umol/i": "μmol/L",
	"ngml":   "ng/mL",
	"pgml":   "pg/mL",
	"iul":    "IU/L",
	"iu/i":   "IU/L",
	"hul":    "μL",
}

// NormalizeUnit corrects common OCR misreadings of unit strings. Unknown
// units are returned trimmed but otherwise untouched, preserving the
// source-document form.
func NormalizeUnit(unit string) string {
	unit = strings.TrimSpace(unit)
	if unit == "" {
		return ""
	}
	if fixed, ok := unitCorrections[strings.ToLower(unit)]; ok {
		return fixed
	}
	return unit
}
