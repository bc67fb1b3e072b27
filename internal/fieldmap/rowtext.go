package fieldmap

import (
	"regexp"
	"strings"

	"github.com/medscan-tech/labxtract/internal/layout"
)

var (
	// A numeric value token, optionally carrying an inequality prefix.
	valueTokenRe = regexp.MustCompile(`^[<>]?\d+(?:\.\d+)?$`)

	// A reference range token: "low-high", "<x" or ">x".
	rangeTokenRe = regexp.MustCompile(`^(?:\d+(?:\.\d+)?-\d+(?:\.\d+)?|[<>]\d+(?:\.\d+)?)$`)

	// A short unit token: alphabetic with the usual unit symbols.
	unitTokenRe = regexp.MustCompile(`^[A-Za-zµμ%][A-Za-z0-9µμ%/^.*]*$`)

	hasLetterRe = regexp.MustCompile(`[A-Za-z]`)

	// Rejoin split range/inequality tokens before tokenizing:
	// "11.1 - 14.4" -> "11.1-14.4", "< 5" -> "<5".
	hyphenGapRe     = regexp.MustCompile(`(\d)\s*[-–]\s*([<>]?\d)`)
	inequalityGapRe = regexp.MustCompile(`([<>])\s+(\d)`)
)

const maxUnitTokenLen = 12

// rowTextStrategy reconstructs the row's full text in reading order and
// applies a positional token parse: name tokens, then the first numeric
// token as value, then an optional short unit token, then a range token.
// Structure is inferred rather than labeled, so confidence is a fixed
// weight below the label strategy, with a bonus when all four fields
// resolve.
type rowTextStrategy struct {
	base  float64
	bonus float64
}

func (rowTextStrategy) Name() string  { return "row-text" }
func (rowTextStrategy) Priority() int { return 2 }

func (s rowTextStrategy) Resolve(row layout.Row) (Candidate, bool) {
	text := hyphenGapRe.ReplaceAllString(row.Text(), "$1-$2")
	text = inequalityGapRe.ReplaceAllString(text, "$1$2")
	tokens := strings.Fields(text)

	// Locate the value: first numeric token with at least one name token
	// before it.
	valueIdx := -1
	for i, tok := range tokens {
		if valueTokenRe.MatchString(tok) {
			valueIdx = i
			break
		}
	}
	if valueIdx < 1 {
		return Candidate{}, false
	}

	name := strings.Join(tokens[:valueIdx], " ")
	if !hasLetterRe.MatchString(name) {
		return Candidate{}, false
	}

	var unit, refRange string
	rest := tokens[valueIdx+1:]
	for i, tok := range rest {
		if refRange == "" && rangeTokenRe.MatchString(tok) {
			refRange = tok
			continue
		}
		// The unit must immediately follow the value.
		if i == 0 && unit == "" && len(tok) <= maxUnitTokenLen && unitTokenRe.MatchString(tok) {
			unit = tok
		}
	}

	conf := s.base
	if unit != "" && refRange != "" {
		conf += s.bonus
	}

	return Candidate{
		TestName:       name,
		TestValue:      tokens[valueIdx],
		TestUnit:       unit,
		ReferenceRange: refRange,
		Confidence:     conf,
	}, true
}
