// Package parser turns an ordered stream of byte chunks into rows.
//
// Text formats (delimited and structured JSON) are parsed incrementally: a
// row split across chunks is carried over and completed by the next Feed.
// Binary container formats (Parquet, Avro, XLSX) need their trailing or
// embedded metadata, so they buffer every chunk and decode in Finish.
package parser

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/Sumatoshi-tech/datalens/pkg/profile"
	"github.com/Sumatoshi-tech/datalens/pkg/units"
)

// Defaults.
const (
	DefaultDelimiter      = ','
	DefaultMaxDepth       = 5
	DefaultMaxBufferBytes = 512 * units.MiB
)

// RowSink receives the rows a parser produces.
type RowSink interface {
	// DeclareColumns registers header names before any row.
	DeclareColumns(names []string) error
	// Row ingests one row.
	Row(fields []profile.Field) error
	// Malformed counts a row that did not match the expected shape.
	Malformed()
}

// Parser consumes chunks in arrival order.
type Parser interface {
	// Feed parses one chunk. The parser copies anything it keeps.
	Feed(chunk []byte) error
	// Finish ends the stream: it completes a trailing partial row or decodes
	// the buffered container.
	Finish() error
	// Buffered returns the bytes held between chunks.
	Buffered() int
	// Streaming reports whether rows are produced while feeding.
	Streaming() bool
}

// Options configure a parser.
type Options struct {
	Delimiter      byte
	HasHeader      bool
	Encoding       Encoding
	MaxDepth       int
	MaxBufferBytes int64
}

// DefaultOptions returns options for comma-separated UTF-8 text with a header.
func DefaultOptions() Options {
	return Options{
		Delimiter:      DefaultDelimiter,
		HasHeader:      true,
		Encoding:       EncodingUTF8,
		MaxDepth:       DefaultMaxDepth,
		MaxBufferBytes: DefaultMaxBufferBytes,
	}
}

// New creates the parser for format, feeding rows into sink.
func New(format Format, opts Options, sink RowSink) (Parser, error) {
	switch format {
	case FormatDelimited:
		return NewDelimited(opts, sink)
	case FormatJSON, FormatJSONLines, FormatJSONArray:
		return NewStructured(format, opts, sink)
	case FormatParquet:
		return newWholeBuffer(opts, &parquetDecoder{}, sink), nil
	case FormatAvro:
		return newWholeBuffer(opts, &avroDecoder{maxDepth: opts.MaxDepth}, sink), nil
	case FormatXLSX:
		return newWholeBuffer(opts, &xlsxDecoder{header: opts.HasHeader}, sink), nil
	default:
		return nil, &UnknownFormatError{Name: string(format)}
	}
}

// containerDecoder decodes a complete binary container into rows.
type containerDecoder interface {
	decode(data []byte, sink RowSink) error
}

// wholeBuffer accumulates chunks until Finish.
type wholeBuffer struct {
	buf      []byte
	limit    int64
	decoder  containerDecoder
	sink     RowSink
	finished bool
}

func newWholeBuffer(opts Options, dec containerDecoder, sink RowSink) *wholeBuffer {
	return &wholeBuffer{limit: opts.MaxBufferBytes, decoder: dec, sink: sink}
}

func (w *wholeBuffer) Feed(chunk []byte) error {
	if w.finished {
		return ErrFinished
	}

	if w.limit > 0 && int64(len(w.buf)+len(chunk)) > w.limit {
		return fmt.Errorf("%w: %s > %s", ErrBufferLimit,
			humanize.IBytes(uint64(len(w.buf)+len(chunk))), humanize.IBytes(uint64(w.limit)))
	}

	w.buf = append(w.buf, chunk...)

	return nil
}

func (w *wholeBuffer) Finish() error {
	if w.finished {
		return ErrFinished
	}

	w.finished = true
	data := w.buf
	w.buf = nil

	if len(data) == 0 {
		return nil
	}

	return w.decoder.decode(data, w.sink)
}

func (w *wholeBuffer) Buffered() int {
	return len(w.buf)
}

func (w *wholeBuffer) Streaming() bool {
	return false
}
