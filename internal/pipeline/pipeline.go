// Package pipeline wires the extraction stages together: normalize raw
// detections, group them into rows, map each row to its best candidate,
// evaluate reference ranges, and assemble the ordered record list.
package pipeline

import (
	"context"
	"log/slog"
	"runtime"
	"strings"
	"sync"

	"github.com/medscan-tech/labxtract/internal/detection"
	"github.com/medscan-tech/labxtract/internal/dictionary"
	"github.com/medscan-tech/labxtract/internal/fieldmap"
	"github.com/medscan-tech/labxtract/internal/layout"
	"github.com/medscan-tech/labxtract/internal/refrange"
)

// Config holds the pipeline tuning parameters.
type Config struct {
	Grouping layout.Config
	Mapper   fieldmap.Config
	// Workers bounds per-row parallelism (0 = runtime.NumCPU()).
	Workers int
}

// DefaultConfig returns sensible defaults for the extraction pipeline.
func DefaultConfig() Config {
	return Config{
		Grouping: layout.DefaultConfig(),
		Mapper:   fieldmap.DefaultConfig(),
		Workers:  0,
	}
}

// Pipeline is a stateless extraction engine. The only shared state is the
// read-only test-name dictionary, so a single Pipeline serves concurrent
// requests safely.
type Pipeline struct {
	cfg    Config
	mapper *fieldmap.Mapper
}

// New builds a pipeline. A nil dictionary falls back to the embedded
// default test-name list.
func New(cfg Config, dict *dictionary.Dictionary) *Pipeline {
	if dict == nil {
		dict = dictionary.Default()
	}
	return &Pipeline{
		cfg:    cfg,
		mapper: fieldmap.NewMapper(cfg.Mapper, dict),
	}
}

// Extract runs the full pipeline over a raw detection list and returns
// records in top-to-bottom document order. The only fatal condition is a
// structurally malformed input list; unresolvable rows are dropped and
// range-evaluation failures degrade to an unset flag.
func (p *Pipeline) Extract(ctx context.Context, dets []detection.Detection) ([]Record, error) {
	records, _, err := p.run(ctx, dets, false)
	return records, err
}

// ExtractWithTrace runs the pipeline and additionally returns the per-row
// diagnostic trace. The trace never alters the records.
func (p *Pipeline) ExtractWithTrace(ctx context.Context, dets []detection.Detection) ([]Record, *Trace, error) {
	return p.run(ctx, dets, true)
}

// rowOutcome is the result of mapping a single row.
type rowOutcome struct {
	index  int
	record Record
	ok     bool
	trace  RowTrace
}

func (p *Pipeline) run(ctx context.Context, dets []detection.Detection, traced bool) ([]Record, *Trace, error) {
	normalized, err := detection.Normalize(dets)
	if err != nil {
		return nil, nil, err
	}

	rows := layout.GroupRows(normalized, p.cfg.Grouping)
	slog.Debug("Grouped detections into rows", "detections", len(normalized), "rows", len(rows))

	outcomes, err := p.mapRows(ctx, rows)
	if err != nil {
		return nil, nil, err
	}

	records := make([]Record, 0, len(outcomes))
	for _, o := range outcomes {
		if o.ok {
			records = append(records, o.record)
		}
	}

	var trace *Trace
	if traced {
		trace = &Trace{
			TotalDetections: len(normalized),
			RowsFormed:      len(rows),
			Rows:            make([]RowTrace, len(outcomes)),
		}
		for i, o := range outcomes {
			trace.Rows[i] = o.trace
		}
	}

	return records, trace, nil
}

// mapRows evaluates all rows, in parallel when configured. Row grouping is
// already complete here, so rows are independent units of work; outcomes
// are merged back in row order regardless of completion order.
func (p *Pipeline) mapRows(ctx context.Context, rows []layout.Row) ([]rowOutcome, error) {
	workers := p.cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(rows) {
		workers = len(rows)
	}

	if len(rows) <= 1 || workers == 1 {
		outcomes := make([]rowOutcome, len(rows))
		for i, row := range rows {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			outcomes[i] = p.evaluateRow(i, row)
		}
		return outcomes, nil
	}

	jobs := make(chan int, len(rows))
	results := make(chan rowOutcome, len(rows))

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case i, ok := <-jobs:
					if !ok {
						return
					}
					select {
					case results <- p.evaluateRow(i, rows[i]):
					case <-ctx.Done():
						return
					}
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := range rows {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	outcomes := make([]rowOutcome, len(rows))
	for o := range results {
		outcomes[o.index] = o
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// evaluateRow maps one row to a candidate, evaluates its reference range,
// and assembles the final record plus its trace entry.
func (p *Pipeline) evaluateRow(index int, row layout.Row) rowOutcome {
	cand, attempts, ok := p.mapper.MapRow(row)

	trace := RowTrace{
		RowIndex:          index,
		YCenter:           row.YCenter,
		Detections:        row.Detections,
		ReconstructedText: row.Text(),
		Attempts:          attempts,
	}

	if !ok {
		trace.Reason = ReasonUnresolvable
		return rowOutcome{index: index, trace: trace}
	}

	trace.ChosenStrategy = cand.Strategy
	trace.Confidence = cand.Confidence

	return rowOutcome{
		index:  index,
		record: assemble(cand),
		ok:     true,
		trace:  trace,
	}
}

// assemble turns the winning candidate into the externally visible record
// shape. Missing unit/range stay empty strings so consumers always see the
// full field set; abnormality markers force the out-of-range flag and are
// stripped from the emitted value.
func assemble(cand fieldmap.Candidate) Record {
	rawValue := strings.TrimSpace(cand.TestValue)
	refRange := strings.TrimSpace(cand.ReferenceRange)

	return Record{
		TestName:          strings.TrimSpace(cand.TestName),
		TestValue:         refrange.StripFlagMarkers(rawValue),
		BioReferenceRange: refRange,
		TestUnit:          fieldmap.NormalizeUnit(cand.TestUnit),
		OutOfRange:        refrange.OutOfRange(rawValue, refRange),
	}
}
