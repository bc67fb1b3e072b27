// Package dictionary provides the read-only reference dictionary of known
// lab test names used by the fallback parsing strategy. A Dictionary is
// immutable after load and safe for concurrent lookups.
package dictionary

import (
	"bufio"
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

//go:embed data/test_names.txt
var defaultTerms []byte

// Dictionary holds the known test names. Entries keeps the original
// (canonical) spelling; lookups run against normalized forms.
type Dictionary struct {
	entries    []string
	normalized []string
	index      map[string]int
}

// removeBOM strips a UTF-8 BOM from the first line of a dictionary file.
func removeBOM(line string, isFirstLine bool) string {
	if isFirstLine {
		return strings.TrimPrefix(line, "\uFEFF")
	}
	return line
}

// Load reads a dictionary from a file with one test name per line. Blank
// lines and '#' comments are skipped.
func Load(path string) (*Dictionary, error) {
	if path == "" {
		return nil, errors.New("dictionary path cannot be empty")
	}
	f, err := os.Open(path) //nolint:gosec // G304: opening a user-provided dictionary file is expected
	if err != nil {
		return nil, fmt.Errorf("failed to open dictionary: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Error closing dictionary file: %v\n", err)
		}
	}()

	d, err := read(f)
	if err != nil {
		return nil, err
	}
	if d.Size() == 0 {
		return nil, fmt.Errorf("dictionary is empty: %s", path)
	}
	return d, nil
}

// Default returns the dictionary built from the embedded test-name list.
func Default() *Dictionary {
	d, err := read(bytes.NewReader(defaultTerms))
	if err != nil {
		// The embedded list is compiled into the binary; a parse failure
		// here is a build defect, not a runtime condition.
		panic(fmt.Sprintf("embedded dictionary invalid: %v", err))
	}
	return d
}

func read(r io.Reader) (*Dictionary, error) {
	d := &Dictionary{index: make(map[string]int)}

	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(removeBOM(scanner.Text(), lineNum == 1))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key := NormalizeName(line)
		if key == "" {
			continue
		}
		// First occurrence wins on duplicates.
		if _, ok := d.index[key]; ok {
			continue
		}
		d.index[key] = len(d.entries)
		d.entries = append(d.entries, line)
		d.normalized = append(d.normalized, key)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed reading dictionary: %w", err)
	}
	return d, nil
}

// Size returns the number of entries.
func (d *Dictionary) Size() int { return len(d.entries) }

// Entries returns the canonical entry list.
func (d *Dictionary) Entries() []string {
	out := make([]string, len(d.entries))
	copy(out, d.entries)
	return out
}

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeName folds a candidate test name into lookup form: lowercase,
// diacritics stripped, punctuation removed, whitespace collapsed.
func NormalizeName(s string) string {
	folded, _, err := transform.String(stripMarks, s)
	if err != nil {
		folded = s
	}
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range strings.ToLower(folded) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '-' || r == '_':
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Match looks up a candidate test name, tolerating OCR noise. The lookup
// tries, in order: exact normalized match, substring containment (for
// candidates of at least four characters), and Levenshtein similarity
// against every entry with the given minimum similarity in [0,1]. It
// returns the canonical dictionary spelling.
func (d *Dictionary) Match(candidate string, minSimilarity float64) (string, bool) {
	key := NormalizeName(candidate)
	if len(key) < 2 {
		return "", false
	}

	if i, ok := d.index[key]; ok {
		return d.entries[i], true
	}

	if len(key) >= 4 {
		for i, n := range d.normalized {
			if strings.Contains(key, n) || strings.Contains(n, key) {
				return d.entries[i], true
			}
		}
	}

	bestIdx := -1
	bestSim := minSimilarity
	for i, n := range d.normalized {
		sim := similarity(key, n)
		if sim > bestSim || (sim == bestSim && bestIdx == -1 && sim >= minSimilarity) {
			bestIdx = i
			bestSim = sim
		}
	}
	if bestIdx >= 0 {
		return d.entries[bestIdx], true
	}
	return "", false
}

// similarity maps Levenshtein distance to [0,1], 1 meaning identical.
func similarity(a, b string) float64 {
	la, lb := len([]rune(a)), len([]rune(b))
	longest := la
	if lb > longest {
		longest = lb
	}
	if longest == 0 {
		return 0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(longest)
}
