// Package refrange decides whether a test value falls outside its
// bio-reference range. Parsing failures never raise: an undeterminable
// comparison yields in-range (false), because source documents are noisy
// and a bad range must not block record emission.
package refrange

import (
	"regexp"
	"strconv"
	"strings"
)

// Bounds is a parsed reference interval. Bounds are inclusive: a value
// exactly equal to an endpoint is in range.
type Bounds struct {
	Low     float64
	High    float64
	HasLow  bool
	HasHigh bool
}

// Contains reports whether v lies on or inside the bounds.
func (b Bounds) Contains(v float64) bool {
	if b.HasLow && v < b.Low {
		return false
	}
	if b.HasHigh && v > b.High {
		return false
	}
	return true
}

var (
	numberRe   = regexp.MustCompile(`[-+]?\d+(?:[.,]\d+)?`)
	intervalRe = regexp.MustCompile(`^([-+]?\d+(?:\.\d+)?)-([-+]?\d+(?:\.\d+)?)$`)
	upperRe    = regexp.MustCompile(`^[<≤]([-+]?\d+(?:\.\d+)?)$`)
	lowerRe    = regexp.MustCompile(`^[>≥]([-+]?\d+(?:\.\d+)?)$`)

	// Markers a lab prints next to a value to flag it abnormal.
	flagMarkerRe = regexp.MustCompile(`[*↑↓]|\b[HL]\b`)

	toSeparatorRe = regexp.MustCompile(`(\d)\s+to\s+(\d)`)
)

// HasFlagMarker reports whether the raw value carries an explicit
// out-of-range marker (asterisk, H/L annotation, arrow).
func HasFlagMarker(value string) bool {
	return flagMarkerRe.MatchString(value)
}

// StripFlagMarkers removes abnormality markers from a raw value string.
func StripFlagMarkers(value string) string {
	return strings.TrimSpace(flagMarkerRe.ReplaceAllString(value, ""))
}

// ParseValue extracts the first numeric substring from a raw test value,
// ignoring unit suffixes and decoration. Decimal commas are accepted.
func ParseValue(s string) (float64, bool) {
	m := numberRe.FindString(s)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", "."), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// normalizeRange canonicalizes separator variants before parsing: en-dash
// and minus-sign separators, "a to b" wording, and stray spaces.
func normalizeRange(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	s = strings.ReplaceAll(s, "–", "-")
	s = strings.ReplaceAll(s, "−", "-")
	s = toSeparatorRe.ReplaceAllString(s, "$1-$2")
	s = strings.ReplaceAll(s, ",", ".")
	// Drop all remaining whitespace so "11.1 - 14.4" and "< 5" parse.
	return strings.Join(strings.Fields(s), "")
}

// ParseRange parses a source-document reference range. Supported forms:
// "low-high" (inclusive interval), "<x" (upper bound only), ">x" (lower
// bound only). Anything else is unparseable.
func ParseRange(s string) (Bounds, bool) {
	s = normalizeRange(s)
	if s == "" {
		return Bounds{}, false
	}

	if m := intervalRe.FindStringSubmatch(s); m != nil {
		low, err1 := strconv.ParseFloat(m[1], 64)
		high, err2 := strconv.ParseFloat(m[2], 64)
		if err1 == nil && err2 == nil && low <= high {
			return Bounds{Low: low, High: high, HasLow: true, HasHigh: true}, true
		}
		return Bounds{}, false
	}
	if m := upperRe.FindStringSubmatch(s); m != nil {
		high, err := strconv.ParseFloat(m[1], 64)
		if err == nil {
			return Bounds{High: high, HasHigh: true}, true
		}
		return Bounds{}, false
	}
	if m := lowerRe.FindStringSubmatch(s); m != nil {
		low, err := strconv.ParseFloat(m[1], 64)
		if err == nil {
			return Bounds{Low: low, HasLow: true}, true
		}
		return Bounds{}, false
	}
	return Bounds{}, false
}

// OutOfRange reports whether a raw test value lies strictly outside its
// reference range. An explicit abnormality marker on the value forces
// true. Values that are themselves inequalities ("<0.01") and any value or
// range that fails to parse are treated as in range.
func OutOfRange(value, refRange string) bool {
	if HasFlagMarker(value) {
		return true
	}

	cleaned := strings.TrimSpace(value)
	if strings.HasPrefix(cleaned, "<") || strings.HasPrefix(cleaned, ">") {
		return false
	}

	v, ok := ParseValue(cleaned)
	if !ok {
		return false
	}
	bounds, ok := ParseRange(refRange)
	if !ok {
		return false
	}
	return !bounds.Contains(v)
}
