// Package extract replays delimited text to pull the raw fields of selected
// rows without retaining the rest of the source.
package extract

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/datalens/pkg/observability"
	"github.com/Sumatoshi-tech/datalens/pkg/parser"
)

const tracerName = "datalens"

// ErrNegativeIndex is returned for a target row index below zero.
var ErrNegativeIndex = errors.New("row index must not be negative")

// ExtractedRow is one requested row. Index is the 0-based data-row index,
// not counting the header.
type ExtractedRow struct {
	Index  int64    `json:"index"  yaml:"index"`
	Fields []string `json:"fields" yaml:"fields"`
}

// Options describe the delimited source being scanned.
type Options struct {
	// Delimiter separates fields. Zero means a comma.
	Delimiter byte
	HasHeader bool
	// Encoding of the raw chunks. Empty means UTF-8.
	Encoding parser.Encoding

	Tracer trace.Tracer
}

// Extractor scans chunks in order and keeps the rows whose index was
// requested. It is not safe for concurrent use.
type Extractor struct {
	scanner *parser.Scanner
	decoder *parser.TextDecoder
	tracer  trace.Tracer
	targets map[int64]struct{}
	header  []string

	skipHeader bool
	row        int64
	found      []ExtractedRow
	fresh      []ExtractedRow
	finished   bool
}

// New creates an extractor for the given row indices. Duplicate indices are
// collapsed.
func New(targets []int64, opts Options) (*Extractor, error) {
	set := make(map[int64]struct{}, len(targets))

	for _, idx := range targets {
		if idx < 0 {
			return nil, fmt.Errorf("%w: %d", ErrNegativeIndex, idx)
		}

		set[idx] = struct{}{}
	}

	if opts.Delimiter == 0 {
		opts.Delimiter = parser.DefaultDelimiter
	}

	dec, err := parser.NewTextDecoder(opts.Encoding)
	if err != nil {
		return nil, err
	}

	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer(tracerName)
	}

	return &Extractor{
		scanner:    parser.NewScanner(opts.Delimiter),
		decoder:    dec,
		tracer:     opts.Tracer,
		targets:    set,
		skipHeader: opts.HasHeader,
	}, nil
}

// ProcessChunk decodes and scans the next chunk and returns the requested
// rows it completed. Once every target is found later chunks are ignored.
func (x *Extractor) ProcessChunk(ctx context.Context, chunk []byte) ([]ExtractedRow, error) {
	if x.Done() {
		return nil, nil
	}

	_, span := x.tracer.Start(ctx, observability.SpanExtractChunk,
		trace.WithAttributes(attribute.Int("chunk.bytes", len(chunk))))
	defer span.End()

	text, err := x.decoder.Decode(chunk)
	if err != nil {
		observability.RecordSpanError(span, err, observability.ErrTypeFormat, observability.ErrSourceInput)

		return nil, err
	}

	x.fresh = x.fresh[:0]
	x.scanner.Feed(text, x.emit)

	return slices.Clone(x.fresh), nil
}

// Finalize completes a trailing row without a line break and returns every
// requested row found, in ascending index order.
func (x *Extractor) Finalize() []ExtractedRow {
	if !x.finished && !x.Done() {
		if held := x.decoder.Flush(); len(held) > 0 {
			x.scanner.Feed(held, x.emit)
		}

		if !x.Done() {
			x.scanner.Flush(x.emit)
		}
	}

	x.finished = true

	return slices.Clone(x.found)
}

// Done reports whether every requested row has been found.
func (x *Extractor) Done() bool {
	return len(x.found) == len(x.targets)
}

// Found returns the number of requested rows found so far.
func (x *Extractor) Found() int {
	return len(x.found)
}

// Header returns the header fields when the extractor was created with a
// header and it has been scanned.
func (x *Extractor) Header() []string {
	return x.header
}

func (x *Extractor) emit(record []string) bool {
	if x.skipHeader {
		x.skipHeader = false
		x.header = slices.Clone(record)

		return !x.Done()
	}

	idx := x.row
	x.row++

	if _, ok := x.targets[idx]; ok {
		row := ExtractedRow{Index: idx, Fields: slices.Clone(record)}
		x.found = append(x.found, row)
		x.fresh = append(x.fresh, row)
	}

	return !x.Done()
}
