package parser

import "fmt"

// Delimited parses delimited text such as CSV or TSV.
type Delimited struct {
	scanner  *Scanner
	decoder  *TextDecoder
	table    tabular
	err      error
	finished bool
}

// NewDelimited creates a delimited-text parser.
func NewDelimited(opts Options, sink RowSink) (*Delimited, error) {
	delim := opts.Delimiter
	if delim == 0 {
		delim = DefaultDelimiter
	}

	if delim == quoteByte || delim == crByte || delim == lfByte {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDelimiter, delim)
	}

	dec, err := NewTextDecoder(opts.Encoding)
	if err != nil {
		return nil, err
	}

	return &Delimited{
		scanner: NewScanner(delim),
		decoder: dec,
		table:   tabular{sink: sink, header: opts.HasHeader},
	}, nil
}

// Feed parses one chunk.
func (d *Delimited) Feed(chunk []byte) error {
	if d.finished {
		return ErrFinished
	}

	if d.err != nil {
		return d.err
	}

	text, err := d.decoder.Decode(chunk)
	if err != nil {
		return err
	}

	d.scanner.Feed(text, d.emit)

	return d.err
}

// Finish completes a trailing row that lacks a line break.
func (d *Delimited) Finish() error {
	if d.finished {
		return ErrFinished
	}

	d.finished = true

	if held := d.decoder.Flush(); len(held) > 0 {
		d.scanner.Feed(held, d.emit)
	}

	if d.err == nil {
		d.scanner.Flush(d.emit)
	}

	return d.err
}

// Buffered returns the size of the partial row carried between chunks.
func (d *Delimited) Buffered() int {
	return d.scanner.Buffered()
}

// Streaming is always true for delimited text.
func (d *Delimited) Streaming() bool {
	return true
}

func (d *Delimited) emit(record []string) bool {
	d.err = d.table.record(record)

	return d.err == nil
}
