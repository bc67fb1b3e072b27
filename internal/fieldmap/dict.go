package fieldmap

import (
	"regexp"
	"strings"

	"github.com/medscan-tech/labxtract/internal/dictionary"
	"github.com/medscan-tech/labxtract/internal/layout"
)

var (
	alphaRunRe     = regexp.MustCompile(`[A-Za-z]+(?: [A-Za-z]+)*`)
	bareNumberRe   = regexp.MustCompile(`^\d+(?:\.\d+)?$`)
	trailingBandRe = regexp.MustCompile(`\d+(?:\.\d+)?-\d+(?:\.\d+)?|[<>]\s?\d+(?:\.\d+)?`)
)

// dictStrategy is the last-resort path: match the longest alphabetic run
// in the row against the reference dictionary of known test names, and
// pair it with the first standalone numeric token. It only runs when the
// label and row-text strategies both failed to produce a name/value pair.
type dictStrategy struct {
	dict          *dictionary.Dictionary
	confidence    float64
	minSimilarity float64
}

func (dictStrategy) Name() string  { return "dictionary" }
func (dictStrategy) Priority() int { return 3 }

func (s dictStrategy) Resolve(row layout.Row) (Candidate, bool) {
	if s.dict == nil {
		return Candidate{}, false
	}
	text := row.Text()

	var longest string
	for _, run := range alphaRunRe.FindAllString(text, -1) {
		if len(run) > len(longest) {
			longest = run
		}
	}
	if longest == "" {
		return Candidate{}, false
	}

	name, ok := s.dict.Match(longest, s.minSimilarity)
	if !ok {
		return Candidate{}, false
	}

	var value string
	for _, tok := range strings.Fields(text) {
		if bareNumberRe.MatchString(tok) {
			value = tok
			break
		}
	}
	if value == "" {
		return Candidate{}, false
	}

	// A recognizable range pattern elsewhere in the row still counts; the
	// unit is left undetermined at this confidence tier.
	var refRange string
	if bands := trailingBandRe.FindAllString(text, -1); len(bands) > 0 {
		refRange = strings.ReplaceAll(bands[len(bands)-1], " ", "")
	}

	return Candidate{
		TestName:       name,
		TestValue:      value,
		ReferenceRange: refRange,
		Confidence:     s.confidence,
	}, true
}
