// Package fieldmap turns a grouped row of detections into a structured
// lab-test candidate. Three independent strategies are run and scored
// uniformly; selection picks the most confident candidate that carries
// both a test name and a test value.
package fieldmap

import (
	"github.com/medscan-tech/labxtract/internal/dictionary"
	"github.com/medscan-tech/labxtract/internal/layout"
)

// Candidate is one strategy's proposed record for a row.
type Candidate struct {
	TestName       string  `json:"test_name"`
	TestValue      string  `json:"test_value"`
	TestUnit       string  `json:"test_unit"`
	ReferenceRange string  `json:"bio_reference_range"`
	Confidence     float64 `json:"confidence"`
	Strategy       string  `json:"strategy"`
}

// usable reports whether the candidate satisfies the selection minimum:
// non-empty name and value.
func (c Candidate) usable() bool {
	return c.TestName != "" && c.TestValue != ""
}

// Strategy is one row-to-candidate parsing approach. Lower Priority wins
// ties between equally confident candidates.
type Strategy interface {
	Name() string
	Priority() int
	Resolve(row layout.Row) (Candidate, bool)
}

// Attempt records one strategy's outcome for the diagnostic trace.
type Attempt struct {
	Strategy  string    `json:"strategy"`
	Resolved  bool      `json:"resolved"`
	Candidate Candidate `json:"candidate,omitempty"`
}

// Config holds the tunable scoring parameters for the non-label
// strategies and the dictionary match threshold.
type Config struct {
	RowTextConfidence  float64
	CompleteBonus      float64
	FallbackConfidence float64
	MinSimilarity      float64
}

// DefaultConfig returns the default mapper parameters.
func DefaultConfig() Config {
	return Config{
		RowTextConfidence:  0.55,
		CompleteBonus:      0.15,
		FallbackConfidence: 0.35,
		MinSimilarity:      0.7,
	}
}

// Mapper runs the strategy set over rows. It is stateless apart from the
// shared read-only dictionary and safe for concurrent use.
type Mapper struct {
	primary  []Strategy
	fallback Strategy
}

// NewMapper builds a Mapper with the standard strategy set: label-direct,
// reconstructed row text, and the dictionary-backed fallback.
func NewMapper(cfg Config, dict *dictionary.Dictionary) *Mapper {
	return &Mapper{
		primary: []Strategy{
			labelStrategy{},
			rowTextStrategy{base: cfg.RowTextConfidence, bonus: cfg.CompleteBonus},
		},
		fallback: dictStrategy{dict: dict, confidence: cfg.FallbackConfidence, minSimilarity: cfg.MinSimilarity},
	}
}

// MapRow resolves a row to its best candidate. The fallback strategy is
// consulted only when no primary strategy produced a usable name/value
// pair. All attempts are returned for the trace regardless of outcome.
func (m *Mapper) MapRow(row layout.Row) (Candidate, []Attempt, bool) {
	attempts := make([]Attempt, 0, len(m.primary)+1)
	var usable []scored

	for _, s := range m.primary {
		attempts, usable = m.run(s, row, attempts, usable)
	}
	if len(usable) == 0 {
		attempts, usable = m.run(m.fallback, row, attempts, usable)
	}

	if len(usable) == 0 {
		return Candidate{}, attempts, false
	}

	best := usable[0]
	for _, s := range usable[1:] {
		diff := s.candidate.Confidence - best.candidate.Confidence
		if diff > confidenceEpsilon || (diff > -confidenceEpsilon && s.priority < best.priority) {
			best = s
		}
	}
	return best.candidate, attempts, true
}

// confidenceEpsilon absorbs float rounding in summed confidence weights,
// so candidates whose scores differ only by accumulation noise are treated
// as tied and resolved by priority.
const confidenceEpsilon = 1e-9

type scored struct {
	candidate Candidate
	priority  int
}

func (m *Mapper) run(s Strategy, row layout.Row, attempts []Attempt, usable []scored) ([]Attempt, []scored) {
	cand, ok := s.Resolve(row)
	if ok {
		cand.Strategy = s.Name()
	}
	attempts = append(attempts, Attempt{Strategy: s.Name(), Resolved: ok, Candidate: cand})
	if ok && cand.usable() {
		usable = append(usable, scored{candidate: cand, priority: s.Priority()})
	}
	return attempts, usable
}
